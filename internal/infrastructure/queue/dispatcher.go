package queue

import (
	"context"
	"errors"
	"hash/fnv"
	"strconv"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/deliverydz/dispatch-api/internal/core/domain"
	"github.com/deliverydz/dispatch-api/internal/core/ports"
	"github.com/deliverydz/dispatch-api/internal/pkg/metrics"
)

const (
	defaultWorkers = 4
	channelBuffer  = 256
	maxAttempts    = 3
	baseBackoff    = 200 * time.Millisecond
)

var (
	// ErrQueueFull is returned when the worker owning an order has no room left.
	ErrQueueFull = errors.New("notification queue full")
	// ErrStopped is returned once Stop has been called.
	ErrStopped = errors.New("notification queue stopped")
)

// Dispatcher delivers order notifications on a fixed set of workers. Orders
// are sharded by id, so notifications for one order are delivered in order.
type Dispatcher struct {
	workers  []chan domain.Order
	notifier ports.Notifier
	log      zerolog.Logger
	backoff  time.Duration

	mu      sync.RWMutex
	stopped bool
	wg      sync.WaitGroup
}

// NewDispatcher creates a Dispatcher with numWorkers sharded workers.
// If numWorkers <= 0, defaultWorkers is used.
func NewDispatcher(numWorkers int, notifier ports.Notifier, log zerolog.Logger) *Dispatcher {
	if numWorkers <= 0 {
		numWorkers = defaultWorkers
	}
	d := &Dispatcher{
		workers:  make([]chan domain.Order, numWorkers),
		notifier: notifier,
		log:      log,
		backoff:  baseBackoff,
	}
	for i := range d.workers {
		d.workers[i] = make(chan domain.Order, channelBuffer)
	}
	return d
}

// Start launches all worker goroutines. Workers drain their channel after
// Stop, or quit early when ctx is cancelled.
func (d *Dispatcher) Start(ctx context.Context) {
	for i, ch := range d.workers {
		d.wg.Add(1)
		go d.runWorker(ctx, i, ch)
	}
}

// Stop rejects further notifications and waits for the workers to drain.
func (d *Dispatcher) Stop() {
	d.mu.Lock()
	if d.stopped {
		d.mu.Unlock()
		return
	}
	d.stopped = true
	for _, ch := range d.workers {
		close(ch)
	}
	d.mu.Unlock()
	d.wg.Wait()
}

// Enqueue hands o to the worker responsible for its id. It never blocks: a
// full worker channel or a stopped dispatcher is reported as an error.
func (d *Dispatcher) Enqueue(o domain.Order) error {
	d.mu.RLock()
	defer d.mu.RUnlock()
	if d.stopped {
		metrics.NotificationsTotal.WithLabelValues("rejected").Inc()
		return ErrStopped
	}

	idx := d.shardIndex(o.ID)
	select {
	case d.workers[idx] <- o.Clone():
		metrics.NotificationQueueDepth.WithLabelValues(strconv.Itoa(idx)).Set(float64(len(d.workers[idx])))
		return nil
	default:
		metrics.NotificationsTotal.WithLabelValues("rejected").Inc()
		return ErrQueueFull
	}
}

// shardIndex maps an order id deterministically to a worker index.
func (d *Dispatcher) shardIndex(orderID string) int {
	h := fnv.New32a()
	_, _ = h.Write([]byte(orderID))
	return int(h.Sum32() % uint32(len(d.workers)))
}

func (d *Dispatcher) runWorker(ctx context.Context, id int, ch <-chan domain.Order) {
	defer d.wg.Done()
	depth := metrics.NotificationQueueDepth.WithLabelValues(strconv.Itoa(id))
	for {
		select {
		case <-ctx.Done():
			return
		case o, ok := <-ch:
			if !ok {
				return
			}
			depth.Set(float64(len(ch)))
			d.deliver(ctx, id, o)
		}
	}
}

func (d *Dispatcher) deliver(ctx context.Context, worker int, o domain.Order) {
	start := time.Now()
	var err error
retry:
	for attempt := 1; attempt <= maxAttempts; attempt++ {
		if err = d.notifier.NotifyOrderCreated(ctx, o); err == nil {
			metrics.NotificationsTotal.WithLabelValues("sent").Inc()
			metrics.NotificationDuration.WithLabelValues("sent").Observe(time.Since(start).Seconds())
			return
		}
		if attempt == maxAttempts {
			break
		}
		d.log.Warn().Err(err).
			Str("order_id", o.ID).
			Int("attempt", attempt).
			Int("worker_id", worker).
			Msg("notification attempt failed, retrying")
		select {
		case <-ctx.Done():
			err = ctx.Err()
			break retry
		case <-time.After(d.backoff * time.Duration(1<<(attempt-1))):
		}
	}
	metrics.NotificationsTotal.WithLabelValues("failed").Inc()
	metrics.NotificationDuration.WithLabelValues("failed").Observe(time.Since(start).Seconds())
	d.log.Error().Err(err).
		Str("order_id", o.ID).
		Int("worker_id", worker).
		Msg("notification delivery failed")
}
