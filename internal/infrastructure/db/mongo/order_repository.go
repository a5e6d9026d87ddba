package mongo

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/deliverydz/dispatch-api/internal/core/domain"
	"github.com/deliverydz/dispatch-api/internal/core/ports"
)

const collectionOrders = "orders"

// OrderRepository implements ports.OrderRepository using MongoDB. Updates are
// optimistic: the replace is filtered on the version that was read.
type OrderRepository struct {
	col *mongo.Collection
}

func NewOrderRepository(db *mongo.Database) *OrderRepository {
	return &OrderRepository{col: db.Collection(collectionOrders)}
}

// Create inserts a new order document at version 1.
func (r *OrderRepository) Create(ctx context.Context, o *domain.Order) error {
	if err := o.Validate(); err != nil {
		return err
	}

	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	doc := o.Clone()
	doc.Version = 1
	if _, err := r.col.InsertOne(ctx, doc); err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return fmt.Errorf("%w: %s", domain.ErrDuplicateOrder, o.ID)
		}
		return fmt.Errorf("insert order: %w", err)
	}
	o.Version = doc.Version
	return nil
}

func (r *OrderRepository) FindByID(ctx context.Context, id string) (*domain.Order, error) {
	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	var o domain.Order
	if err := r.col.FindOne(ctx, bson.M{"_id": id}).Decode(&o); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, domain.ErrOrderNotFound
		}
		return nil, fmt.Errorf("find order: %w", err)
	}
	return &o, nil
}

// ListByClientPhone returns the customer's orders, oldest first.
func (r *OrderRepository) ListByClientPhone(ctx context.Context, phone string) ([]domain.Order, error) {
	return r.find(ctx, bson.M{"phone": phone})
}

// ListForAgent returns every pending order plus those held by agentPhone.
func (r *OrderRepository) ListForAgent(ctx context.Context, agentPhone string) ([]domain.Order, error) {
	return r.find(ctx, bson.M{"$or": bson.A{
		bson.M{"status": domain.StatusPending},
		bson.M{"delivery_agent": agentPhone},
	}})
}

// Update reads the order, applies mutate and replaces the document only if
// nobody else bumped its version in between. A lost race returns
// domain.ErrConflict.
func (r *OrderRepository) Update(ctx context.Context, id string, mutate ports.OrderMutation) (*domain.Order, error) {
	current, err := r.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}

	next := current.Clone()
	if err := mutate(&next); err != nil {
		return nil, err
	}
	if err := next.Validate(); err != nil {
		return nil, err
	}
	next.ID = current.ID
	next.Version = current.Version + 1

	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	res, err := r.col.ReplaceOne(ctx, bson.M{"_id": id, "version": current.Version}, next)
	if err != nil {
		return nil, fmt.Errorf("replace order: %w", err)
	}
	if res.MatchedCount == 0 {
		return nil, fmt.Errorf("%w: order %s changed since version %d", domain.ErrConflict, id, current.Version)
	}
	return &next, nil
}

// EnsureIndexes creates the indexes backing the listing queries.
func (r *OrderRepository) EnsureIndexes(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, 30*time.Second)
	defer cancel()

	indexes := []mongo.IndexModel{
		{Keys: bson.D{{Key: "phone", Value: 1}, {Key: "created_at", Value: 1}}},
		{Keys: bson.D{{Key: "status", Value: 1}}},
		{Keys: bson.D{{Key: "delivery_agent", Value: 1}}},
	}

	_, err := r.col.Indexes().CreateMany(ctx, indexes)
	return err
}

func (r *OrderRepository) find(ctx context.Context, filter bson.M) ([]domain.Order, error) {
	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	opts := options.Find().SetSort(bson.D{{Key: "created_at", Value: 1}, {Key: "_id", Value: 1}})
	cur, err := r.col.Find(ctx, filter, opts)
	if err != nil {
		return nil, fmt.Errorf("find orders: %w", err)
	}
	defer cur.Close(ctx)

	orders := make([]domain.Order, 0)
	if err := cur.All(ctx, &orders); err != nil {
		return nil, fmt.Errorf("decode orders: %w", err)
	}
	return orders, nil
}
