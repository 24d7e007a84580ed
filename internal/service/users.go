package service

import (
	"context"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"

	"github.com/reshmacrochets/backend/internal/domain"
	"github.com/reshmacrochets/backend/internal/repository"
)

// UserService covers profile self-service (addresses, wishlist) and the
// admin-side account management.
type UserService struct {
	users  UserStore
	orders OrderStore
}

// NewUserService wires user management.
func NewUserService(users UserStore, orders OrderStore) *UserService {
	return &UserService{users: users, orders: orders}
}

// UpdateProfile applies the caller's own profile edits. Email and password
// are not reachable through this path.
func (s *UserService) UpdateProfile(ctx context.Context, userID primitive.ObjectID, upd repository.ProfileUpdate) (*domain.User, error) {
	return s.users.UpdateProfile(ctx, userID, upd)
}

// AddAddress appends a delivery address. The first address, or one flagged
// default, becomes the single default.
func (s *UserService) AddAddress(ctx context.Context, userID primitive.ObjectID, addr domain.Address) (*domain.User, error) {
	user, err := s.users.FindByID(ctx, userID, false)
	if err != nil {
		return nil, err
	}

	addr.ID = primitive.NewObjectID()
	if len(user.Addresses) == 0 {
		addr.IsDefault = true
	}
	user.Addresses = append(user.Addresses, addr)
	if addr.IsDefault {
		user.SetDefaultAddress(addr.ID)
	}

	if err := s.users.SaveAddresses(ctx, userID, user.Addresses); err != nil {
		return nil, err
	}
	return user, nil
}

// UpdateAddress replaces one address in place, keeping its id. Flagging it
// default clears the flag everywhere else.
func (s *UserService) UpdateAddress(ctx context.Context, userID, addressID primitive.ObjectID, addr domain.Address) (*domain.User, error) {
	user, err := s.users.FindByID(ctx, userID, false)
	if err != nil {
		return nil, err
	}

	idx := -1
	for i := range user.Addresses {
		if user.Addresses[i].ID == addressID {
			idx = i
			break
		}
	}
	if idx < 0 {
		return nil, fmt.Errorf("%w: address", domain.ErrNotFound)
	}

	addr.ID = addressID
	user.Addresses[idx] = addr
	if addr.IsDefault {
		user.SetDefaultAddress(addressID)
	}

	if err := s.users.SaveAddresses(ctx, userID, user.Addresses); err != nil {
		return nil, err
	}
	return user, nil
}

// RemoveAddress deletes one address. If it was the default, the first
// remaining address inherits the flag.
func (s *UserService) RemoveAddress(ctx context.Context, userID, addressID primitive.ObjectID) (*domain.User, error) {
	user, err := s.users.FindByID(ctx, userID, false)
	if err != nil {
		return nil, err
	}

	kept := user.Addresses[:0]
	removedDefault := false
	found := false
	for _, a := range user.Addresses {
		if a.ID == addressID {
			found = true
			removedDefault = a.IsDefault
			continue
		}
		kept = append(kept, a)
	}
	if !found {
		return nil, fmt.Errorf("%w: address", domain.ErrNotFound)
	}

	user.Addresses = kept
	if removedDefault && len(user.Addresses) > 0 {
		user.Addresses[0].IsDefault = true
	}

	if err := s.users.SaveAddresses(ctx, userID, user.Addresses); err != nil {
		return nil, err
	}
	return user, nil
}

// AddToWishlist adds a product with set semantics.
func (s *UserService) AddToWishlist(ctx context.Context, userID, productID primitive.ObjectID) error {
	return s.users.AddToWishlist(ctx, userID, productID)
}

// RemoveFromWishlist removes a product.
func (s *UserService) RemoveFromWishlist(ctx context.Context, userID, productID primitive.ObjectID) error {
	return s.users.RemoveFromWishlist(ctx, userID, productID)
}

// ListUsers returns a filtered page of accounts for the admin listing.
func (s *UserService) ListUsers(ctx context.Context, f repository.ListFilter) ([]domain.User, int64, error) {
	return s.users.List(ctx, f)
}

// GetUserWithStats returns one account plus its purchase aggregate for the
// admin detail view.
func (s *UserService) GetUserWithStats(ctx context.Context, id primitive.ObjectID) (*domain.User, domain.OrderStats, error) {
	user, err := s.users.FindByID(ctx, id, false)
	if err != nil {
		return nil, domain.OrderStats{}, err
	}
	stats, err := s.orders.StatsByUser(ctx, id)
	if err != nil {
		return nil, domain.OrderStats{}, err
	}
	return user, stats, nil
}

// UpdateUser applies an admin edit. Passwords cannot be set this way.
func (s *UserService) UpdateUser(ctx context.Context, id primitive.ObjectID, upd repository.AdminUpdate) (*domain.User, error) {
	return s.users.UpdateAdmin(ctx, id, upd)
}

// DeleteUser removes an account. Admin accounts are not deletable, and
// accounts with purchase history are deactivated instead of deleted so the
// order archive stays consistent.
func (s *UserService) DeleteUser(ctx context.Context, id primitive.ObjectID) (deactivated bool, err error) {
	user, err := s.users.FindByID(ctx, id, false)
	if err != nil {
		return false, err
	}
	if user.IsAdmin() {
		return false, fmt.Errorf("%w: admin accounts cannot be deleted", domain.ErrForbidden)
	}

	orders, err := s.orders.CountByUser(ctx, id)
	if err != nil {
		return false, err
	}
	if orders > 0 {
		return true, s.users.Deactivate(ctx, id)
	}
	return false, s.users.Delete(ctx, id)
}

// Dashboard is the admin statistics block.
type Dashboard struct {
	TotalUsers    int64                   `json:"totalUsers"`
	ActiveUsers   int64                   `json:"activeUsers"`
	NewThisMonth  int64                   `json:"newUsersThisMonth"`
	UsersByRole   map[string]int          `json:"usersByRole"`
	MonthlyGrowth []repository.MonthCount `json:"monthlyGrowth"`
}

// GetDashboard aggregates the admin dashboard numbers.
func (s *UserService) GetDashboard(ctx context.Context) (*Dashboard, error) {
	total, active, newThisMonth, byRole, growth, err := s.users.DashboardStats(ctx, time.Now())
	if err != nil {
		return nil, err
	}
	return &Dashboard{
		TotalUsers:    total,
		ActiveUsers:   active,
		NewThisMonth:  newThisMonth,
		UsersByRole:   byRole,
		MonthlyGrowth: growth,
	}, nil
}
