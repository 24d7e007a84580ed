package repository

import (
	"context"
	"fmt"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"

	"github.com/reshmacrochets/backend/internal/domain"
)

// OrderRepository covers the order lookups account administration needs:
// whether a user has purchase history, and their spend aggregate.
type OrderRepository struct {
	col *mongo.Collection
}

// NewOrderRepository returns an OrderRepository over db.
func NewOrderRepository(db *mongo.Database) *OrderRepository {
	return &OrderRepository{col: db.Collection("orders")}
}

// CountByUser returns how many orders a user owns.
func (r *OrderRepository) CountByUser(ctx context.Context, userID primitive.ObjectID) (int64, error) {
	n, err := r.col.CountDocuments(ctx, bson.M{"user": userID})
	if err != nil {
		return 0, fmt.Errorf("count orders: %w", err)
	}
	return n, nil
}

// StatsByUser aggregates a user's order count, lifetime spend and average
// order value. A user with no orders gets the zero stats, not an error.
func (r *OrderRepository) StatsByUser(ctx context.Context, userID primitive.ObjectID) (domain.OrderStats, error) {
	cur, err := r.col.Aggregate(ctx, mongo.Pipeline{
		{{Key: "$match", Value: bson.M{"user": userID}}},
		{{Key: "$group", Value: bson.M{
			"_id":           nil,
			"totalOrders":   bson.M{"$sum": 1},
			"totalSpent":    bson.M{"$sum": "$totalPrice"},
			"avgOrderValue": bson.M{"$avg": "$totalPrice"},
		}}},
	})
	if err != nil {
		return domain.OrderStats{}, fmt.Errorf("aggregate orders: %w", err)
	}
	defer cur.Close(ctx)

	var stats domain.OrderStats
	if cur.Next(ctx) {
		if err := cur.Decode(&stats); err != nil {
			return domain.OrderStats{}, fmt.Errorf("decode order stats: %w", err)
		}
	}
	return stats, nil
}
