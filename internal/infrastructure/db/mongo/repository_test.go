package mongo

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo/integration/mtest"

	"github.com/deliverydz/dispatch-api/internal/core/domain"
)

func orderDoc(version int64) bson.D {
	return bson.D{
		{Key: "_id", Value: "o-1"},
		{Key: "name", Value: "Amal"},
		{Key: "phone", Value: "555"},
		{Key: "address", Value: "Algiers"},
		{Key: "cart", Value: bson.A{bson.D{{Key: "name", Value: "Pizza"}, {Key: "price", Value: 1200.0}}}},
		{Key: "total_price", Value: 1200.0},
		{Key: "delivery_price", Value: 300.0},
		{Key: "status", Value: string(domain.StatusPending)},
		{Key: "created_at", Value: time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)},
		{Key: "version", Value: version},
	}
}

func userDoc(phone, username, role string) bson.D {
	return bson.D{
		{Key: "_id", Value: phone},
		{Key: "username", Value: username},
		{Key: "role", Value: role},
		{Key: "created_at", Value: time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)},
	}
}

func assignToKarim(o *domain.Order) error {
	return o.Assign("777", "karim")
}

func TestOrderRepository_Update(t *testing.T) {
	mt := mtest.New(t, mtest.NewOptions().ClientType(mtest.Mock))

	mt.Run("bumps version when the replace matches", func(mt *mtest.T) {
		repo := NewOrderRepository(mt.DB)
		mt.AddMockResponses(
			mtest.CreateCursorResponse(0, "dispatch.orders", mtest.FirstBatch, orderDoc(3)),
			mtest.CreateSuccessResponse(bson.E{Key: "n", Value: 1}, bson.E{Key: "nModified", Value: 1}),
		)

		got, err := repo.Update(context.Background(), "o-1", assignToKarim)
		require.NoError(mt, err)
		assert.Equal(mt, uint64(4), got.Version)
		assert.Equal(mt, domain.StatusAssigned, got.Status)
		require.NotNil(mt, got.DeliveryAgent)
		assert.Equal(mt, "777", *got.DeliveryAgent)
	})

	mt.Run("stale version is a conflict", func(mt *mtest.T) {
		repo := NewOrderRepository(mt.DB)
		mt.AddMockResponses(
			mtest.CreateCursorResponse(0, "dispatch.orders", mtest.FirstBatch, orderDoc(3)),
			mtest.CreateSuccessResponse(bson.E{Key: "n", Value: 0}, bson.E{Key: "nModified", Value: 0}),
		)

		got, err := repo.Update(context.Background(), "o-1", assignToKarim)
		assert.ErrorIs(mt, err, domain.ErrConflict)
		assert.Nil(mt, got)
	})

	mt.Run("missing order", func(mt *mtest.T) {
		repo := NewOrderRepository(mt.DB)
		mt.AddMockResponses(mtest.CreateCursorResponse(0, "dispatch.orders", mtest.FirstBatch))

		_, err := repo.Update(context.Background(), "o-1", assignToKarim)
		assert.ErrorIs(mt, err, domain.ErrOrderNotFound)
	})

	mt.Run("mutation error is returned unchanged", func(mt *mtest.T) {
		repo := NewOrderRepository(mt.DB)
		mt.AddMockResponses(mtest.CreateCursorResponse(0, "dispatch.orders", mtest.FirstBatch, orderDoc(3)))

		_, err := repo.Update(context.Background(), "o-1", func(o *domain.Order) error {
			return o.Advance("777", domain.StatusDelivered)
		})
		assert.ErrorIs(mt, err, domain.ErrInvalidTransition)
	})
}

func TestOrderRepository_CreateDuplicate(t *testing.T) {
	mt := mtest.New(t, mtest.NewOptions().ClientType(mtest.Mock))

	mt.Run("duplicate id", func(mt *mtest.T) {
		repo := NewOrderRepository(mt.DB)
		mt.AddMockResponses(mtest.CreateWriteErrorsResponse(mtest.WriteError{
			Index:   0,
			Code:    11000,
			Message: "E11000 duplicate key error",
		}))

		o := &domain.Order{
			ID:        "o-1",
			Name:      "Amal",
			Phone:     "555",
			Address:   "Algiers",
			Cart:      []domain.CartItem{{Name: "Pizza", Price: 1200}},
			Status:    domain.StatusPending,
			CreatedAt: time.Now().UTC(),
		}
		assert.ErrorIs(mt, repo.Create(context.Background(), o), domain.ErrDuplicateOrder)
	})
}

func TestUserRepository_Ensure(t *testing.T) {
	mt := mtest.New(t, mtest.NewOptions().ClientType(mtest.Mock))
	amal := domain.User{Phone: "555", Username: "amal", Role: domain.RoleAgent, CreatedAt: time.Now().UTC()}

	mt.Run("fresh phone is inserted", func(mt *mtest.T) {
		repo := NewUserRepository(mt.DB)
		mt.AddMockResponses(mtest.CreateSuccessResponse(
			bson.E{Key: "n", Value: 1},
			bson.E{Key: "nModified", Value: 0},
			bson.E{Key: "upserted", Value: bson.A{bson.D{{Key: "index", Value: 0}, {Key: "_id", Value: "555"}}}},
		))

		got, created, err := repo.Ensure(context.Background(), amal)
		require.NoError(mt, err)
		assert.True(mt, created)
		assert.Equal(mt, domain.RoleAgent, got.Role)
	})

	mt.Run("known phone keeps its stored role", func(mt *mtest.T) {
		repo := NewUserRepository(mt.DB)
		mt.AddMockResponses(
			mtest.CreateSuccessResponse(bson.E{Key: "n", Value: 1}, bson.E{Key: "nModified", Value: 0}),
			mtest.CreateCursorResponse(0, "dispatch.users", mtest.FirstBatch, userDoc("555", "amal", domain.RoleClient)),
		)

		got, created, err := repo.Ensure(context.Background(), amal)
		require.NoError(mt, err)
		assert.False(mt, created)
		assert.Equal(mt, domain.RoleClient, got.Role)
	})

	mt.Run("lost upsert race reads the winner", func(mt *mtest.T) {
		repo := NewUserRepository(mt.DB)
		mt.AddMockResponses(
			mtest.CreateWriteErrorsResponse(mtest.WriteError{Index: 0, Code: 11000, Message: "E11000 duplicate key error"}),
			mtest.CreateCursorResponse(0, "dispatch.users", mtest.FirstBatch, userDoc("555", "amal", domain.RoleClient)),
		)

		got, created, err := repo.Ensure(context.Background(), amal)
		require.NoError(mt, err)
		assert.False(mt, created)
		assert.Equal(mt, domain.RoleClient, got.Role)
	})

	mt.Run("other write errors surface", func(mt *mtest.T) {
		repo := NewUserRepository(mt.DB)
		mt.AddMockResponses(mtest.CreateWriteErrorsResponse(mtest.WriteError{Index: 0, Code: 2, Message: "bad value"}))

		_, _, err := repo.Ensure(context.Background(), amal)
		assert.Error(mt, err)
	})
}
