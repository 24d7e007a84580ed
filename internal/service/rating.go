package service

import (
	"context"
	"math"

	"go.mongodb.org/mongo-driver/bson/primitive"

	"github.com/reshmacrochets/backend/internal/domain"
)

// RatingService keeps the denormalized rating block on products in sync
// with their approved reviews.
type RatingService struct {
	reviews  ReviewStore
	products ProductStore
}

// NewRatingService wires the rating aggregator.
func NewRatingService(reviews ReviewStore, products ProductStore) *RatingService {
	return &RatingService{reviews: reviews, products: products}
}

// RecomputeProductRatings rebuilds numReviews, avgRating and the per-star
// distribution from the current approved review set. It never adjusts
// incrementally, so concurrent triggers converge on the same result. A
// product deleted in the meantime is a no-op.
func (s *RatingService) RecomputeProductRatings(ctx context.Context, productID primitive.ObjectID) error {
	counts, err := s.reviews.RatingCounts(ctx, productID)
	if err != nil {
		return err
	}

	summary := domain.EmptyRatingSummary()
	sum := 0
	for star := domain.MinRating; star <= domain.MaxRating; star++ {
		n := counts[star]
		summary.Distribution[star] = n
		summary.NumReviews += n
		sum += star * n
	}
	if summary.NumReviews > 0 {
		summary.AvgRating = math.Round(float64(sum)/float64(summary.NumReviews)*10) / 10
	}

	return s.products.UpdateRatingSummary(ctx, productID, summary)
}
