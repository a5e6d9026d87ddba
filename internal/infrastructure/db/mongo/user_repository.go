package mongo

import (
	"context"
	"errors"
	"fmt"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/deliverydz/dispatch-api/internal/core/domain"
)

const collectionUsers = "users"

// UserRepository implements ports.UserRepository using MongoDB. Documents are
// keyed by phone.
type UserRepository struct {
	col *mongo.Collection
}

func NewUserRepository(db *mongo.Database) *UserRepository {
	return &UserRepository{col: db.Collection(collectionUsers)}
}

func (r *UserRepository) FindByPhone(ctx context.Context, phone string) (*domain.User, error) {
	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	var u domain.User
	if err := r.col.FindOne(ctx, bson.M{"_id": phone}).Decode(&u); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, domain.ErrUserNotFound
		}
		return nil, fmt.Errorf("find user: %w", err)
	}
	return &u, nil
}

// Ensure upserts with $setOnInsert so an existing identity is never touched.
// The returned document is whatever the collection holds afterwards.
func (r *UserRepository) Ensure(ctx context.Context, u domain.User) (*domain.User, bool, error) {
	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	update := bson.M{"$setOnInsert": bson.M{
		"username":   u.Username,
		"role":       u.Role,
		"created_at": u.CreatedAt,
	}}
	res, err := r.col.UpdateOne(ctx, bson.M{"_id": u.Phone}, update, options.Update().SetUpsert(true))
	if err != nil {
		// Two concurrent upserts on a fresh phone can both miss and race on
		// the insert; the loser sees a duplicate key and reads the winner.
		if !mongo.IsDuplicateKeyError(err) {
			return nil, false, fmt.Errorf("ensure user: %w", err)
		}
		res = &mongo.UpdateResult{}
	}
	if res.UpsertedCount == 1 {
		return &u, true, nil
	}

	stored, err := r.FindByPhone(ctx, u.Phone)
	if err != nil {
		return nil, false, err
	}
	return stored, false, nil
}

func (r *UserRepository) ListByRole(ctx context.Context, role string) ([]domain.User, error) {
	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	opts := options.Find().SetSort(bson.D{{Key: "created_at", Value: 1}})
	cur, err := r.col.Find(ctx, bson.M{"role": role}, opts)
	if err != nil {
		return nil, fmt.Errorf("find users: %w", err)
	}
	defer cur.Close(ctx)

	users := make([]domain.User, 0)
	if err := cur.All(ctx, &users); err != nil {
		return nil, fmt.Errorf("decode users: %w", err)
	}
	return users, nil
}

