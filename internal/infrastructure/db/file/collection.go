package file

import (
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"sync"

	"github.com/google/renameio/v2"

	"github.com/deliverydz/dispatch-api/internal/core/domain"
)

// errNoChange lets an Update callback finish without writing.
var errNoChange = errors.New("no change")

// snapshot is the on-disk envelope of a collection.
type snapshot[T any] struct {
	Version uint64 `json:"version"`
	Items   []T    `json:"items"`
}

// collection is one durable keyed collection. Every mutation holds mu from
// read to flush, so read-modify-write cycles on the same collection are
// serialized. The in-memory copy only changes after the file was replaced.
type collection[T any] struct {
	mu      sync.Mutex
	path    string
	key     func(T) string
	clone   func(T) T
	items   []T
	index   map[string]int
	version uint64
}

func openCollection[T any](path string, key func(T) string, clone func(T) T) (*collection[T], error) {
	c := &collection[T]{path: path, key: key, clone: clone}

	data, err := os.ReadFile(path)
	switch {
	case errors.Is(err, fs.ErrNotExist):
		c.reindex()
		return c, nil
	case err != nil:
		return nil, fmt.Errorf("read %s: %w", path, err)
	}

	var snap snapshot[T]
	if err := json.Unmarshal(data, &snap); err != nil {
		return nil, fmt.Errorf("decode %s: %w", path, err)
	}
	c.items = snap.Items
	c.version = snap.Version
	c.reindex()
	return c, nil
}

// Load returns a private copy of the collection and its version token.
func (c *collection[T]) Load() ([]T, uint64) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.copyItems(), c.version
}

// Get returns a private copy of the item stored under key.
func (c *collection[T]) Get(key string) (T, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	i, ok := c.index[key]
	if !ok {
		var zero T
		return zero, false
	}
	return c.clone(c.items[i]), true
}

// Filter returns copies of the items keep accepts, in stored order.
func (c *collection[T]) Filter(keep func(T) bool) []T {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]T, 0)
	for _, it := range c.items {
		if keep(it) {
			out = append(out, c.clone(it))
		}
	}
	return out
}

// Save replaces the whole collection. It fails with domain.ErrConflict when
// expected is not the current version.
func (c *collection[T]) Save(items []T, expected uint64) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if expected != c.version {
		return fmt.Errorf("%w: %s at version %d, caller had %d", domain.ErrConflict, c.path, c.version, expected)
	}
	return c.commit(items)
}

// Update runs fn on a private copy and commits what it returns, all under the
// collection lock. fn may return errNoChange to skip the write.
func (c *collection[T]) Update(fn func(items []T) ([]T, error)) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	next, err := fn(c.copyItems())
	if errors.Is(err, errNoChange) {
		return nil
	}
	if err != nil {
		return err
	}
	return c.commit(next)
}

func (c *collection[T]) commit(items []T) error {
	if items == nil {
		items = []T{}
	}
	next := c.version + 1
	data, err := json.MarshalIndent(snapshot[T]{Version: next, Items: items}, "", "  ")
	if err != nil {
		return fmt.Errorf("encode %s: %w", c.path, err)
	}
	// renameio writes a temp file in the same directory, fsyncs it and renames
	// it over the target, so readers and crashes see either version, never a
	// truncated file.
	if err := renameio.WriteFile(c.path, append(data, '\n'), 0o644); err != nil {
		return fmt.Errorf("write %s: %w", c.path, err)
	}
	c.items = items
	c.version = next
	c.reindex()
	return nil
}

func (c *collection[T]) copyItems() []T {
	out := make([]T, len(c.items))
	for i, it := range c.items {
		out[i] = c.clone(it)
	}
	return out
}

func (c *collection[T]) reindex() {
	c.index = make(map[string]int, len(c.items))
	for i, it := range c.items {
		c.index[c.key(it)] = i
	}
}
