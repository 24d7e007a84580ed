package service

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.uber.org/zap"

	"github.com/reshmacrochets/backend/internal/domain"
)

func newTestReviews(t *testing.T) (*ReviewService, *RatingService, *fakeReviewStore, *fakeProductStore) {
	t.Helper()
	reviews := newFakeReviewStore()
	products := newFakeProductStore()
	rating := NewRatingService(reviews, products)
	svc := NewReviewService(reviews, products, rating, zap.NewNop())
	return svc, rating, reviews, products
}

func addReview(t *testing.T, reviews *fakeReviewStore, productID primitive.ObjectID, stars int, status domain.ReviewStatus) primitive.ObjectID {
	t.Helper()
	r := &domain.Review{
		UserID:    primitive.NewObjectID(),
		ProductID: productID,
		Rating:    stars,
		Comment:   "fine yarn work",
		Status:    status,
	}
	require.NoError(t, reviews.Create(context.Background(), r))
	return r.ID
}

func TestRecomputeProductRatings(t *testing.T) {
	_, rating, reviews, products := newTestReviews(t)
	ctx := context.Background()
	productID := products.add(&domain.Product{Name: "Granny Square Blanket"})

	for _, stars := range []int{5, 5, 4, 3} {
		addReview(t, reviews, productID, stars, domain.ReviewApproved)
	}
	// Pending and rejected reviews never count.
	addReview(t, reviews, productID, 1, domain.ReviewPending)
	addReview(t, reviews, productID, 1, domain.ReviewRejected)

	require.NoError(t, rating.RecomputeProductRatings(ctx, productID))

	got := products.summaries[productID]
	assert.Equal(t, 4, got.NumReviews)
	assert.Equal(t, 4.3, got.AvgRating)
	assert.Equal(t, map[int]int{1: 0, 2: 0, 3: 0, 4: 1, 5: 2}, got.Distribution)

	sum := 0
	for _, n := range got.Distribution {
		sum += n
	}
	assert.Equal(t, got.NumReviews, sum, "distribution buckets must sum to numReviews")
}

func TestRecomputeEmptySet(t *testing.T) {
	_, rating, _, products := newTestReviews(t)
	productID := products.add(&domain.Product{Name: "Amigurumi Octopus"})

	require.NoError(t, rating.RecomputeProductRatings(context.Background(), productID))

	got := products.summaries[productID]
	assert.Zero(t, got.NumReviews)
	assert.Zero(t, got.AvgRating)
	assert.Equal(t, map[int]int{1: 0, 2: 0, 3: 0, 4: 0, 5: 0}, got.Distribution)
}

func TestRecomputeMissingProductIsNoop(t *testing.T) {
	_, rating, _, products := newTestReviews(t)
	ghost := primitive.NewObjectID()

	require.NoError(t, rating.RecomputeProductRatings(context.Background(), ghost))
	assert.NotContains(t, products.summaries, ghost)
}

func TestDeleteRecomputesFromRemaining(t *testing.T) {
	svc, rating, reviews, products := newTestReviews(t)
	ctx := context.Background()
	productID := products.add(&domain.Product{Name: "Bucket Hat"})

	var ids []primitive.ObjectID
	for _, stars := range []int{5, 5, 4, 3} {
		ids = append(ids, addReview(t, reviews, productID, stars, domain.ReviewApproved))
	}
	require.NoError(t, rating.RecomputeProductRatings(ctx, productID))

	admin := &domain.User{ID: primitive.NewObjectID(), Role: domain.RoleAdmin}
	require.NoError(t, svc.Delete(ctx, admin, ids[3])) // the 3-star review

	got := products.summaries[productID]
	assert.Equal(t, 3, got.NumReviews)
	assert.Equal(t, 4.7, got.AvgRating)
	assert.Equal(t, map[int]int{1: 0, 2: 0, 3: 0, 4: 1, 5: 2}, got.Distribution)
}
