package service

import (
	"context"
	"sync"
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"

	"github.com/reshmacrochets/backend/internal/domain"
	"github.com/reshmacrochets/backend/internal/repository"
)

// In-memory stand-ins for the mongo repositories and the mail sender.
// They implement just enough semantics for the workflow tests: unique
// email / (user, product) constraints, token-hash lookups with expiry,
// and per-star counting.

type fakeUserStore struct {
	mu    sync.Mutex
	users map[primitive.ObjectID]*domain.User
}

func newFakeUserStore() *fakeUserStore {
	return &fakeUserStore{users: map[primitive.ObjectID]*domain.User{}}
}

func (f *fakeUserStore) Create(_ context.Context, user *domain.User) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, u := range f.users {
		if u.Email == user.Email {
			return domain.ErrDuplicateEmail
		}
	}
	if user.ID.IsZero() {
		user.ID = primitive.NewObjectID()
	}
	user.CreatedAt = time.Now()
	cp := *user
	f.users[user.ID] = &cp
	return nil
}

func (f *fakeUserStore) FindByEmail(_ context.Context, email string, _ bool) (*domain.User, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, u := range f.users {
		if u.Email == domain.NormalizeEmail(email) {
			cp := *u
			return &cp, nil
		}
	}
	return nil, domain.ErrNotFound
}

func (f *fakeUserStore) FindByID(_ context.Context, id primitive.ObjectID, _ bool) (*domain.User, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	u, ok := f.users[id]
	if !ok {
		return nil, domain.ErrNotFound
	}
	cp := *u
	return &cp, nil
}

func (f *fakeUserStore) FindByResetTokenHash(_ context.Context, hash string, now time.Time) (*domain.User, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, u := range f.users {
		if u.ResetPasswordToken == hash && u.ResetPasswordExpire != nil && u.ResetPasswordExpire.After(now) {
			cp := *u
			return &cp, nil
		}
	}
	return nil, domain.ErrNotFound
}

func (f *fakeUserStore) FindByVerificationTokenHash(_ context.Context, hash string, now time.Time) (*domain.User, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, u := range f.users {
		if u.EmailVerificationToken == hash && u.EmailVerificationExpire != nil && u.EmailVerificationExpire.After(now) {
			cp := *u
			return &cp, nil
		}
	}
	return nil, domain.ErrNotFound
}

func (f *fakeUserStore) get(id primitive.ObjectID) (*domain.User, error) {
	u, ok := f.users[id]
	if !ok {
		return nil, domain.ErrNotFound
	}
	return u, nil
}

func (f *fakeUserStore) UpdatePassword(_ context.Context, id primitive.ObjectID, hash string, changedAt time.Time) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	u, err := f.get(id)
	if err != nil {
		return err
	}
	u.Password = hash
	u.PasswordChangedAt = &changedAt
	u.ResetPasswordToken = ""
	u.ResetPasswordExpire = nil
	return nil
}

func (f *fakeUserStore) SetResetToken(_ context.Context, id primitive.ObjectID, hash string, expire time.Time) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	u, err := f.get(id)
	if err != nil {
		return err
	}
	u.ResetPasswordToken = hash
	u.ResetPasswordExpire = &expire
	return nil
}

func (f *fakeUserStore) ClearResetToken(_ context.Context, id primitive.ObjectID) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	u, err := f.get(id)
	if err != nil {
		return err
	}
	u.ResetPasswordToken = ""
	u.ResetPasswordExpire = nil
	return nil
}

func (f *fakeUserStore) SetVerificationToken(_ context.Context, id primitive.ObjectID, hash string, expire time.Time) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	u, err := f.get(id)
	if err != nil {
		return err
	}
	u.EmailVerificationToken = hash
	u.EmailVerificationExpire = &expire
	return nil
}

func (f *fakeUserStore) MarkVerified(_ context.Context, id primitive.ObjectID) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	u, err := f.get(id)
	if err != nil {
		return err
	}
	u.IsVerified = true
	u.EmailVerificationToken = ""
	u.EmailVerificationExpire = nil
	return nil
}

func (f *fakeUserStore) StampLastLogin(_ context.Context, id primitive.ObjectID, at time.Time) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	u, err := f.get(id)
	if err != nil {
		return err
	}
	u.LastLogin = &at
	return nil
}

func (f *fakeUserStore) UpdateProfile(_ context.Context, id primitive.ObjectID, upd repository.ProfileUpdate) (*domain.User, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	u, err := f.get(id)
	if err != nil {
		return nil, err
	}
	if upd.FirstName != nil {
		u.FirstName = *upd.FirstName
	}
	if upd.LastName != nil {
		u.LastName = *upd.LastName
	}
	if upd.Phone != nil {
		u.Phone = *upd.Phone
	}
	if upd.DateOfBirth != nil {
		u.DateOfBirth = upd.DateOfBirth
	}
	if upd.Gender != nil {
		u.Gender = *upd.Gender
	}
	cp := *u
	return &cp, nil
}

func (f *fakeUserStore) SaveAddresses(_ context.Context, id primitive.ObjectID, addresses []domain.Address) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	u, err := f.get(id)
	if err != nil {
		return err
	}
	u.Addresses = addresses
	return nil
}

func (f *fakeUserStore) AddToWishlist(_ context.Context, id, productID primitive.ObjectID) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	u, err := f.get(id)
	if err != nil {
		return err
	}
	if !u.InWishlist(productID) {
		u.Wishlist = append(u.Wishlist, productID)
	}
	return nil
}

func (f *fakeUserStore) RemoveFromWishlist(_ context.Context, id, productID primitive.ObjectID) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	u, err := f.get(id)
	if err != nil {
		return err
	}
	kept := u.Wishlist[:0]
	for _, p := range u.Wishlist {
		if p != productID {
			kept = append(kept, p)
		}
	}
	u.Wishlist = kept
	return nil
}

func (f *fakeUserStore) List(_ context.Context, _ repository.ListFilter) ([]domain.User, int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []domain.User
	for _, u := range f.users {
		out = append(out, *u)
	}
	return out, int64(len(out)), nil
}

func (f *fakeUserStore) UpdateAdmin(_ context.Context, id primitive.ObjectID, upd repository.AdminUpdate) (*domain.User, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	u, err := f.get(id)
	if err != nil {
		return nil, err
	}
	if upd.Role != nil {
		u.Role = *upd.Role
	}
	if upd.IsVerified != nil {
		u.IsVerified = *upd.IsVerified
	}
	if upd.IsActive != nil {
		u.IsActive = *upd.IsActive
	}
	cp := *u
	return &cp, nil
}

func (f *fakeUserStore) Deactivate(_ context.Context, id primitive.ObjectID) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	u, err := f.get(id)
	if err != nil {
		return err
	}
	u.IsActive = false
	return nil
}

func (f *fakeUserStore) Delete(_ context.Context, id primitive.ObjectID) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if _, ok := f.users[id]; !ok {
		return domain.ErrNotFound
	}
	delete(f.users, id)
	return nil
}

func (f *fakeUserStore) DashboardStats(_ context.Context, _ time.Time) (int64, int64, int64, map[string]int, []repository.MonthCount, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var total, active int64
	byRole := map[string]int{}
	for _, u := range f.users {
		total++
		if u.IsActive {
			active++
		}
		byRole[string(u.Role)]++
	}
	return total, active, total, byRole, nil, nil
}

type fakeReviewStore struct {
	mu      sync.Mutex
	reviews map[primitive.ObjectID]*domain.Review
}

func newFakeReviewStore() *fakeReviewStore {
	return &fakeReviewStore{reviews: map[primitive.ObjectID]*domain.Review{}}
}

func (f *fakeReviewStore) Create(_ context.Context, review *domain.Review) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, r := range f.reviews {
		if r.UserID == review.UserID && r.ProductID == review.ProductID {
			return domain.ErrDuplicateReview
		}
	}
	if review.ID.IsZero() {
		review.ID = primitive.NewObjectID()
	}
	cp := *review
	f.reviews[review.ID] = &cp
	return nil
}

func (f *fakeReviewStore) FindByID(_ context.Context, id primitive.ObjectID) (*domain.Review, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	r, ok := f.reviews[id]
	if !ok {
		return nil, domain.ErrNotFound
	}
	cp := *r
	return &cp, nil
}

func (f *fakeReviewStore) Update(_ context.Context, review *domain.Review) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if _, ok := f.reviews[review.ID]; !ok {
		return domain.ErrNotFound
	}
	cp := *review
	f.reviews[review.ID] = &cp
	return nil
}

func (f *fakeReviewStore) Delete(_ context.Context, id primitive.ObjectID) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if _, ok := f.reviews[id]; !ok {
		return domain.ErrNotFound
	}
	delete(f.reviews, id)
	return nil
}

func (f *fakeReviewStore) ListByProduct(_ context.Context, productID primitive.ObjectID, status domain.ReviewStatus) ([]domain.Review, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []domain.Review
	for _, r := range f.reviews {
		if r.ProductID == productID && (status == "" || r.Status == status) {
			out = append(out, *r)
		}
	}
	return out, nil
}

func (f *fakeReviewStore) RatingCounts(_ context.Context, productID primitive.ObjectID) (map[int]int, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	counts := map[int]int{}
	for _, r := range f.reviews {
		if r.ProductID == productID && r.Status == domain.ReviewApproved {
			counts[r.Rating]++
		}
	}
	return counts, nil
}

type fakeProductStore struct {
	mu        sync.Mutex
	products  map[primitive.ObjectID]*domain.Product
	summaries map[primitive.ObjectID]domain.RatingSummary
}

func newFakeProductStore() *fakeProductStore {
	return &fakeProductStore{
		products:  map[primitive.ObjectID]*domain.Product{},
		summaries: map[primitive.ObjectID]domain.RatingSummary{},
	}
}

func (f *fakeProductStore) add(p *domain.Product) primitive.ObjectID {
	f.mu.Lock()
	defer f.mu.Unlock()
	if p.ID.IsZero() {
		p.ID = primitive.NewObjectID()
	}
	f.products[p.ID] = p
	return p.ID
}

func (f *fakeProductStore) Exists(_ context.Context, id primitive.ObjectID) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	_, ok := f.products[id]
	return ok, nil
}

func (f *fakeProductStore) UpdateRatingSummary(_ context.Context, id primitive.ObjectID, summary domain.RatingSummary) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if _, ok := f.products[id]; !ok {
		return nil // missing product is a silent no-op, like the mongo update
	}
	f.summaries[id] = summary
	return nil
}

type fakeOrderStore struct {
	counts map[primitive.ObjectID]int64
	stats  map[primitive.ObjectID]domain.OrderStats
}

func newFakeOrderStore() *fakeOrderStore {
	return &fakeOrderStore{
		counts: map[primitive.ObjectID]int64{},
		stats:  map[primitive.ObjectID]domain.OrderStats{},
	}
}

func (f *fakeOrderStore) CountByUser(_ context.Context, userID primitive.ObjectID) (int64, error) {
	return f.counts[userID], nil
}

func (f *fakeOrderStore) StatsByUser(_ context.Context, userID primitive.ObjectID) (domain.OrderStats, error) {
	return f.stats[userID], nil
}

type fakeLockout struct {
	mu        sync.Mutex
	threshold int
	failures  map[string]int
	locked    map[string]bool
}

func newFakeLockout(threshold int) *fakeLockout {
	return &fakeLockout{threshold: threshold, failures: map[string]int{}, locked: map[string]bool{}}
}

func (f *fakeLockout) RecordFailure(_ context.Context, userID string) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.failures[userID]++
	if f.failures[userID] >= f.threshold {
		f.locked[userID] = true
	}
	return f.locked[userID], nil
}

func (f *fakeLockout) IsLocked(_ context.Context, userID string) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.locked[userID], nil
}

func (f *fakeLockout) Reset(_ context.Context, userID string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	delete(f.failures, userID)
	delete(f.locked, userID)
	return nil
}

type sentMail struct {
	To      string
	Subject string
	Body    string
}

type fakeMailer struct {
	mu   sync.Mutex
	sent []sentMail
	fail error
}

func (f *fakeMailer) Send(_ context.Context, to, subject, body string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.fail != nil {
		return f.fail
	}
	f.sent = append(f.sent, sentMail{To: to, Subject: subject, Body: body})
	return nil
}

func (f *fakeMailer) lastSent() (sentMail, bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if len(f.sent) == 0 {
		return sentMail{}, false
	}
	return f.sent[len(f.sent)-1], true
}
