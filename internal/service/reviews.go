package service

import (
	"context"
	"errors"
	"fmt"

	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.uber.org/zap"

	"github.com/reshmacrochets/backend/internal/domain"
)

// ReviewService manages customer reviews and drives the rating aggregator
// after every mutation.
type ReviewService struct {
	reviews  ReviewStore
	products ProductStore
	rating   *RatingService
	log      *zap.Logger
}

// NewReviewService wires review management.
func NewReviewService(reviews ReviewStore, products ProductStore, rating *RatingService, log *zap.Logger) *ReviewService {
	return &ReviewService{reviews: reviews, products: products, rating: rating, log: log}
}

// ReviewInput is the user-editable part of a review.
type ReviewInput struct {
	Rating  int
	Title   string
	Comment string
	Images  []domain.ProductImage
}

func validateReviewInput(in ReviewInput) error {
	if !domain.ValidRating(in.Rating) {
		return fmt.Errorf("%w: rating must be between %d and %d", domain.ErrValidation, domain.MinRating, domain.MaxRating)
	}
	if in.Comment == "" {
		return fmt.Errorf("%w: review comment is required", domain.ErrValidation)
	}
	return nil
}

// Create adds a user's review of a product. A user may review a product
// once; a second attempt returns ErrDuplicateReview.
func (s *ReviewService) Create(ctx context.Context, userID, productID primitive.ObjectID, in ReviewInput) (*domain.Review, error) {
	if err := validateReviewInput(in); err != nil {
		return nil, err
	}

	exists, err := s.products.Exists(ctx, productID)
	if err != nil {
		return nil, err
	}
	if !exists {
		return nil, fmt.Errorf("%w: product", domain.ErrNotFound)
	}

	review := &domain.Review{
		UserID:    userID,
		ProductID: productID,
		Rating:    in.Rating,
		Title:     in.Title,
		Comment:   in.Comment,
		Images:    in.Images,
		Status:    domain.ReviewApproved,
	}
	if err := s.reviews.Create(ctx, review); err != nil {
		return nil, err
	}

	s.recompute(ctx, productID)
	return review, nil
}

// Update edits the caller's own review.
func (s *ReviewService) Update(ctx context.Context, userID, reviewID primitive.ObjectID, in ReviewInput) (*domain.Review, error) {
	if err := validateReviewInput(in); err != nil {
		return nil, err
	}

	review, err := s.reviews.FindByID(ctx, reviewID)
	if err != nil {
		return nil, err
	}
	if review.UserID != userID {
		return nil, fmt.Errorf("%w: not your review", domain.ErrForbidden)
	}

	review.Rating = in.Rating
	review.Title = in.Title
	review.Comment = in.Comment
	review.Images = in.Images
	if err := s.reviews.Update(ctx, review); err != nil {
		return nil, err
	}

	s.recompute(ctx, review.ProductID)
	return review, nil
}

// Delete removes a review. Owners may delete their own; admins may delete
// any.
func (s *ReviewService) Delete(ctx context.Context, caller *domain.User, reviewID primitive.ObjectID) error {
	review, err := s.reviews.FindByID(ctx, reviewID)
	if err != nil {
		return err
	}
	if review.UserID != caller.ID && !caller.IsAdmin() {
		return fmt.Errorf("%w: not your review", domain.ErrForbidden)
	}

	if err := s.reviews.Delete(ctx, reviewID); err != nil {
		return err
	}

	s.recompute(ctx, review.ProductID)
	return nil
}

// SetStatus moderates a review (admin only, enforced at the route).
func (s *ReviewService) SetStatus(ctx context.Context, reviewID primitive.ObjectID, status domain.ReviewStatus) (*domain.Review, error) {
	if !domain.ValidReviewStatus(status) {
		return nil, fmt.Errorf("%w: unknown review status %q", domain.ErrValidation, status)
	}

	review, err := s.reviews.FindByID(ctx, reviewID)
	if err != nil {
		return nil, err
	}
	if review.Status != status {
		review.Status = status
		if err := s.reviews.Update(ctx, review); err != nil {
			return nil, err
		}
		s.recompute(ctx, review.ProductID)
	}
	return review, nil
}

// ListApproved returns the approved reviews of a product, newest first.
func (s *ReviewService) ListApproved(ctx context.Context, productID primitive.ObjectID) ([]domain.Review, error) {
	return s.reviews.ListByProduct(ctx, productID, domain.ReviewApproved)
}

// recompute runs synchronously after the review write has succeeded. An
// aggregation failure leaves the review intact and only the denormalized
// numbers stale, so it is logged rather than propagated.
func (s *ReviewService) recompute(ctx context.Context, productID primitive.ObjectID) {
	err := s.rating.RecomputeProductRatings(ctx, productID)
	if err != nil && !errors.Is(err, domain.ErrNotFound) {
		s.log.Warn("rating recompute failed",
			zap.String("productId", productID.Hex()),
			zap.Error(err))
	}
}
