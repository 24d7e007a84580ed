// Package service holds the workflow layer: auth orchestration, user and
// review management, and the product rating aggregator. Persistence and
// mail are consumed through interfaces so tests can run against fakes.
package service

import (
	"context"
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"

	"github.com/reshmacrochets/backend/internal/domain"
	"github.com/reshmacrochets/backend/internal/repository"
)

// UserStore is the account persistence surface the services need.
// Implemented by repository.UserRepository.
type UserStore interface {
	Create(ctx context.Context, user *domain.User) error
	FindByEmail(ctx context.Context, email string, withCredentials bool) (*domain.User, error)
	FindByID(ctx context.Context, id primitive.ObjectID, withCredentials bool) (*domain.User, error)
	FindByResetTokenHash(ctx context.Context, hash string, now time.Time) (*domain.User, error)
	FindByVerificationTokenHash(ctx context.Context, hash string, now time.Time) (*domain.User, error)
	UpdatePassword(ctx context.Context, id primitive.ObjectID, hash string, changedAt time.Time) error
	SetResetToken(ctx context.Context, id primitive.ObjectID, hash string, expire time.Time) error
	ClearResetToken(ctx context.Context, id primitive.ObjectID) error
	SetVerificationToken(ctx context.Context, id primitive.ObjectID, hash string, expire time.Time) error
	MarkVerified(ctx context.Context, id primitive.ObjectID) error
	StampLastLogin(ctx context.Context, id primitive.ObjectID, at time.Time) error
	UpdateProfile(ctx context.Context, id primitive.ObjectID, upd repository.ProfileUpdate) (*domain.User, error)
	SaveAddresses(ctx context.Context, id primitive.ObjectID, addresses []domain.Address) error
	AddToWishlist(ctx context.Context, id, productID primitive.ObjectID) error
	RemoveFromWishlist(ctx context.Context, id, productID primitive.ObjectID) error
	List(ctx context.Context, f repository.ListFilter) ([]domain.User, int64, error)
	UpdateAdmin(ctx context.Context, id primitive.ObjectID, upd repository.AdminUpdate) (*domain.User, error)
	Deactivate(ctx context.Context, id primitive.ObjectID) error
	Delete(ctx context.Context, id primitive.ObjectID) error
	DashboardStats(ctx context.Context, now time.Time) (total, active, newThisMonth int64, byRole map[string]int, growth []repository.MonthCount, err error)
}

// ReviewStore is implemented by repository.ReviewRepository.
type ReviewStore interface {
	Create(ctx context.Context, review *domain.Review) error
	FindByID(ctx context.Context, id primitive.ObjectID) (*domain.Review, error)
	Update(ctx context.Context, review *domain.Review) error
	Delete(ctx context.Context, id primitive.ObjectID) error
	ListByProduct(ctx context.Context, productID primitive.ObjectID, status domain.ReviewStatus) ([]domain.Review, error)
	RatingCounts(ctx context.Context, productID primitive.ObjectID) (map[int]int, error)
}

// ProductStore is implemented by repository.ProductRepository.
type ProductStore interface {
	Exists(ctx context.Context, id primitive.ObjectID) (bool, error)
	UpdateRatingSummary(ctx context.Context, id primitive.ObjectID, summary domain.RatingSummary) error
}

// OrderStore is implemented by repository.OrderRepository.
type OrderStore interface {
	CountByUser(ctx context.Context, userID primitive.ObjectID) (int64, error)
	StatsByUser(ctx context.Context, userID primitive.ObjectID) (domain.OrderStats, error)
}

// LockoutGuard is implemented by lockout.Guard.
type LockoutGuard interface {
	RecordFailure(ctx context.Context, userID string) (bool, error)
	IsLocked(ctx context.Context, userID string) (bool, error)
	Reset(ctx context.Context, userID string) error
}

// scrub blanks the credential fields before a user leaves the service layer.
// The json tags already hide them, this keeps them out of logs too.
func scrub(u *domain.User) *domain.User {
	u.Password = ""
	u.ResetPasswordToken = ""
	u.ResetPasswordExpire = nil
	u.EmailVerificationToken = ""
	u.EmailVerificationExpire = nil
	return u
}
