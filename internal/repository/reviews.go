package repository

import (
	"context"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/reshmacrochets/backend/internal/domain"
)

// ReviewRepository persists reviews. The unique (user, product) index backs
// the one-review-per-pair invariant.
type ReviewRepository struct {
	col *mongo.Collection
}

// NewReviewRepository returns a ReviewRepository over db.
func NewReviewRepository(db *mongo.Database) *ReviewRepository {
	return &ReviewRepository{col: db.Collection("reviews")}
}

// Create inserts a review; a second review for the same (user, product)
// pair maps to domain.ErrDuplicateReview.
func (r *ReviewRepository) Create(ctx context.Context, review *domain.Review) error {
	now := time.Now()
	review.CreatedAt = now
	review.UpdatedAt = now
	if review.ID.IsZero() {
		review.ID = primitive.NewObjectID()
	}

	if _, err := r.col.InsertOne(ctx, review); err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return domain.ErrDuplicateReview
		}
		return fmt.Errorf("insert review: %w", err)
	}
	return nil
}

// FindByID returns one review.
func (r *ReviewRepository) FindByID(ctx context.Context, id primitive.ObjectID) (*domain.Review, error) {
	var review domain.Review
	err := r.col.FindOne(ctx, bson.M{"_id": id}).Decode(&review)
	if err != nil {
		if err == mongo.ErrNoDocuments {
			return nil, domain.ErrNotFound
		}
		return nil, fmt.Errorf("find review: %w", err)
	}
	return &review, nil
}

// Update rewrites the mutable fields of an existing review.
func (r *ReviewRepository) Update(ctx context.Context, review *domain.Review) error {
	review.UpdatedAt = time.Now()
	res, err := r.col.UpdateByID(ctx, review.ID, bson.M{"$set": bson.M{
		"rating":    review.Rating,
		"title":     review.Title,
		"comment":   review.Comment,
		"images":    review.Images,
		"status":    review.Status,
		"updatedAt": review.UpdatedAt,
	}})
	if err != nil {
		return fmt.Errorf("update review: %w", err)
	}
	if res.MatchedCount == 0 {
		return domain.ErrNotFound
	}
	return nil
}

// Delete removes a review.
func (r *ReviewRepository) Delete(ctx context.Context, id primitive.ObjectID) error {
	res, err := r.col.DeleteOne(ctx, bson.M{"_id": id})
	if err != nil {
		return fmt.Errorf("delete review: %w", err)
	}
	if res.DeletedCount == 0 {
		return domain.ErrNotFound
	}
	return nil
}

// ListByProduct returns reviews for a product, optionally filtered to one
// moderation status, newest first.
func (r *ReviewRepository) ListByProduct(ctx context.Context, productID primitive.ObjectID, status domain.ReviewStatus) ([]domain.Review, error) {
	filter := bson.M{"product": productID}
	if status != "" {
		filter["status"] = status
	}

	opts := options.Find().SetSort(bson.D{{Key: "createdAt", Value: -1}})
	cur, err := r.col.Find(ctx, filter, opts)
	if err != nil {
		return nil, fmt.Errorf("list reviews: %w", err)
	}
	defer cur.Close(ctx)

	var reviews []domain.Review
	if err := cur.All(ctx, &reviews); err != nil {
		return nil, fmt.Errorf("decode reviews: %w", err)
	}
	return reviews, nil
}

// RatingCounts aggregates approved reviews of one product into a per-star
// histogram. The rating aggregator derives the full summary from it.
func (r *ReviewRepository) RatingCounts(ctx context.Context, productID primitive.ObjectID) (map[int]int, error) {
	cur, err := r.col.Aggregate(ctx, mongo.Pipeline{
		{{Key: "$match", Value: bson.M{"product": productID, "status": domain.ReviewApproved}}},
		{{Key: "$group", Value: bson.M{"_id": "$rating", "count": bson.M{"$sum": 1}}}},
	})
	if err != nil {
		return nil, fmt.Errorf("aggregate ratings: %w", err)
	}
	defer cur.Close(ctx)

	counts := map[int]int{}
	for cur.Next(ctx) {
		var row struct {
			Rating int `bson:"_id"`
			Count  int `bson:"count"`
		}
		if err := cur.Decode(&row); err != nil {
			return nil, fmt.Errorf("decode rating row: %w", err)
		}
		counts[row.Rating] = row.Count
	}
	return counts, nil
}
