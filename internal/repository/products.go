package repository

import (
	"context"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"

	"github.com/reshmacrochets/backend/internal/domain"
)

// ProductRepository covers the product reads and the single write the
// rating aggregator needs.
type ProductRepository struct {
	col *mongo.Collection
}

// NewProductRepository returns a ProductRepository over db.
func NewProductRepository(db *mongo.Database) *ProductRepository {
	return &ProductRepository{col: db.Collection("products")}
}

// FindByID returns one product.
func (r *ProductRepository) FindByID(ctx context.Context, id primitive.ObjectID) (*domain.Product, error) {
	var p domain.Product
	err := r.col.FindOne(ctx, bson.M{"_id": id}).Decode(&p)
	if err != nil {
		if err == mongo.ErrNoDocuments {
			return nil, domain.ErrNotFound
		}
		return nil, fmt.Errorf("find product: %w", err)
	}
	return &p, nil
}

// Exists reports whether a product document is present.
func (r *ProductRepository) Exists(ctx context.Context, id primitive.ObjectID) (bool, error) {
	n, err := r.col.CountDocuments(ctx, bson.M{"_id": id})
	if err != nil {
		return false, fmt.Errorf("count product: %w", err)
	}
	return n > 0, nil
}

// UpdateRatingSummary overwrites a product's denormalized rating block.
// A product deleted between aggregation and write is a no-op, not an error.
func (r *ProductRepository) UpdateRatingSummary(ctx context.Context, id primitive.ObjectID, summary domain.RatingSummary) error {
	_, err := r.col.UpdateByID(ctx, id, bson.M{"$set": bson.M{
		"numReviews":         summary.NumReviews,
		"avgRating":          summary.AvgRating,
		"ratingDistribution": summary.Distribution,
		"updatedAt":          time.Now(),
	}})
	if err != nil {
		return fmt.Errorf("update rating summary: %w", err)
	}
	return nil
}
