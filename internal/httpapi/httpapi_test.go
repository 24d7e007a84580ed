package httpapi

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.uber.org/zap"

	"github.com/reshmacrochets/backend/internal/domain"
	"github.com/reshmacrochets/backend/internal/password"
	"github.com/reshmacrochets/backend/internal/repository"
	"github.com/reshmacrochets/backend/internal/service"
	"github.com/reshmacrochets/backend/internal/token"
)

func init() {
	gin.SetMode(gin.TestMode)
}

// memUsers is a minimal in-memory service.UserStore for handler tests.
type memUsers struct {
	mu    sync.Mutex
	users map[primitive.ObjectID]*domain.User
}

func newMemUsers() *memUsers {
	return &memUsers{users: map[primitive.ObjectID]*domain.User{}}
}

func (m *memUsers) Create(_ context.Context, u *domain.User) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, ex := range m.users {
		if ex.Email == u.Email {
			return domain.ErrDuplicateEmail
		}
	}
	if u.ID.IsZero() {
		u.ID = primitive.NewObjectID()
	}
	cp := *u
	m.users[u.ID] = &cp
	return nil
}

func (m *memUsers) FindByEmail(_ context.Context, email string, _ bool) (*domain.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, u := range m.users {
		if u.Email == domain.NormalizeEmail(email) {
			cp := *u
			return &cp, nil
		}
	}
	return nil, domain.ErrNotFound
}

func (m *memUsers) FindByID(_ context.Context, id primitive.ObjectID, _ bool) (*domain.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	u, ok := m.users[id]
	if !ok {
		return nil, domain.ErrNotFound
	}
	cp := *u
	return &cp, nil
}

func (m *memUsers) FindByResetTokenHash(_ context.Context, hash string, now time.Time) (*domain.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, u := range m.users {
		if u.ResetPasswordToken == hash && u.ResetPasswordExpire != nil && u.ResetPasswordExpire.After(now) {
			cp := *u
			return &cp, nil
		}
	}
	return nil, domain.ErrNotFound
}

func (m *memUsers) FindByVerificationTokenHash(_ context.Context, hash string, now time.Time) (*domain.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, u := range m.users {
		if u.EmailVerificationToken == hash && u.EmailVerificationExpire != nil && u.EmailVerificationExpire.After(now) {
			cp := *u
			return &cp, nil
		}
	}
	return nil, domain.ErrNotFound
}

func (m *memUsers) mutate(id primitive.ObjectID, fn func(*domain.User)) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	u, ok := m.users[id]
	if !ok {
		return domain.ErrNotFound
	}
	fn(u)
	return nil
}

func (m *memUsers) UpdatePassword(_ context.Context, id primitive.ObjectID, hash string, changedAt time.Time) error {
	return m.mutate(id, func(u *domain.User) {
		u.Password = hash
		u.PasswordChangedAt = &changedAt
		u.ResetPasswordToken = ""
		u.ResetPasswordExpire = nil
	})
}

func (m *memUsers) SetResetToken(_ context.Context, id primitive.ObjectID, hash string, expire time.Time) error {
	return m.mutate(id, func(u *domain.User) {
		u.ResetPasswordToken = hash
		u.ResetPasswordExpire = &expire
	})
}

func (m *memUsers) ClearResetToken(_ context.Context, id primitive.ObjectID) error {
	return m.mutate(id, func(u *domain.User) {
		u.ResetPasswordToken = ""
		u.ResetPasswordExpire = nil
	})
}

func (m *memUsers) SetVerificationToken(_ context.Context, id primitive.ObjectID, hash string, expire time.Time) error {
	return m.mutate(id, func(u *domain.User) {
		u.EmailVerificationToken = hash
		u.EmailVerificationExpire = &expire
	})
}

func (m *memUsers) MarkVerified(_ context.Context, id primitive.ObjectID) error {
	return m.mutate(id, func(u *domain.User) {
		u.IsVerified = true
		u.EmailVerificationToken = ""
		u.EmailVerificationExpire = nil
	})
}

func (m *memUsers) StampLastLogin(_ context.Context, id primitive.ObjectID, at time.Time) error {
	return m.mutate(id, func(u *domain.User) { u.LastLogin = &at })
}

func (m *memUsers) UpdateProfile(_ context.Context, id primitive.ObjectID, upd repository.ProfileUpdate) (*domain.User, error) {
	err := m.mutate(id, func(u *domain.User) {
		if upd.FirstName != nil {
			u.FirstName = *upd.FirstName
		}
		if upd.LastName != nil {
			u.LastName = *upd.LastName
		}
	})
	if err != nil {
		return nil, err
	}
	return m.FindByID(context.Background(), id, false)
}

func (m *memUsers) SaveAddresses(_ context.Context, id primitive.ObjectID, addresses []domain.Address) error {
	return m.mutate(id, func(u *domain.User) { u.Addresses = addresses })
}

func (m *memUsers) AddToWishlist(_ context.Context, id, productID primitive.ObjectID) error {
	return m.mutate(id, func(u *domain.User) {
		if !u.InWishlist(productID) {
			u.Wishlist = append(u.Wishlist, productID)
		}
	})
}

func (m *memUsers) RemoveFromWishlist(_ context.Context, id, productID primitive.ObjectID) error {
	return m.mutate(id, func(u *domain.User) {
		kept := u.Wishlist[:0]
		for _, p := range u.Wishlist {
			if p != productID {
				kept = append(kept, p)
			}
		}
		u.Wishlist = kept
	})
}

func (m *memUsers) List(_ context.Context, _ repository.ListFilter) ([]domain.User, int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []domain.User
	for _, u := range m.users {
		out = append(out, *u)
	}
	return out, int64(len(out)), nil
}

func (m *memUsers) UpdateAdmin(_ context.Context, id primitive.ObjectID, upd repository.AdminUpdate) (*domain.User, error) {
	err := m.mutate(id, func(u *domain.User) {
		if upd.Role != nil {
			u.Role = *upd.Role
		}
		if upd.IsActive != nil {
			u.IsActive = *upd.IsActive
		}
	})
	if err != nil {
		return nil, err
	}
	return m.FindByID(context.Background(), id, false)
}

func (m *memUsers) Deactivate(_ context.Context, id primitive.ObjectID) error {
	return m.mutate(id, func(u *domain.User) { u.IsActive = false })
}

func (m *memUsers) Delete(_ context.Context, id primitive.ObjectID) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.users[id]; !ok {
		return domain.ErrNotFound
	}
	delete(m.users, id)
	return nil
}

func (m *memUsers) DashboardStats(_ context.Context, _ time.Time) (int64, int64, int64, map[string]int, []repository.MonthCount, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return int64(len(m.users)), int64(len(m.users)), 0, map[string]int{}, nil, nil
}

type memReviews struct {
	mu      sync.Mutex
	reviews map[primitive.ObjectID]*domain.Review
}

func newMemReviews() *memReviews {
	return &memReviews{reviews: map[primitive.ObjectID]*domain.Review{}}
}

func (m *memReviews) Create(_ context.Context, r *domain.Review) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, ex := range m.reviews {
		if ex.UserID == r.UserID && ex.ProductID == r.ProductID {
			return domain.ErrDuplicateReview
		}
	}
	if r.ID.IsZero() {
		r.ID = primitive.NewObjectID()
	}
	cp := *r
	m.reviews[r.ID] = &cp
	return nil
}

func (m *memReviews) FindByID(_ context.Context, id primitive.ObjectID) (*domain.Review, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	r, ok := m.reviews[id]
	if !ok {
		return nil, domain.ErrNotFound
	}
	cp := *r
	return &cp, nil
}

func (m *memReviews) Update(_ context.Context, r *domain.Review) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.reviews[r.ID]; !ok {
		return domain.ErrNotFound
	}
	cp := *r
	m.reviews[r.ID] = &cp
	return nil
}

func (m *memReviews) Delete(_ context.Context, id primitive.ObjectID) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.reviews[id]; !ok {
		return domain.ErrNotFound
	}
	delete(m.reviews, id)
	return nil
}

func (m *memReviews) ListByProduct(_ context.Context, productID primitive.ObjectID, status domain.ReviewStatus) ([]domain.Review, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := []domain.Review{}
	for _, r := range m.reviews {
		if r.ProductID == productID && (status == "" || r.Status == status) {
			out = append(out, *r)
		}
	}
	return out, nil
}

func (m *memReviews) RatingCounts(_ context.Context, productID primitive.ObjectID) (map[int]int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	counts := map[int]int{}
	for _, r := range m.reviews {
		if r.ProductID == productID && r.Status == domain.ReviewApproved {
			counts[r.Rating]++
		}
	}
	return counts, nil
}

type memProducts struct {
	mu       sync.Mutex
	existing map[primitive.ObjectID]bool
}

func (m *memProducts) Exists(_ context.Context, id primitive.ObjectID) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.existing[id], nil
}

func (m *memProducts) UpdateRatingSummary(_ context.Context, _ primitive.ObjectID, _ domain.RatingSummary) error {
	return nil
}

type memOrders struct{}

func (memOrders) CountByUser(_ context.Context, _ primitive.ObjectID) (int64, error) {
	return 0, nil
}

func (memOrders) StatsByUser(_ context.Context, _ primitive.ObjectID) (domain.OrderStats, error) {
	return domain.OrderStats{}, nil
}

type memLockout struct {
	mu       sync.Mutex
	failures map[string]int
	locked   map[string]bool
}

func newMemLockout() *memLockout {
	return &memLockout{failures: map[string]int{}, locked: map[string]bool{}}
}

func (m *memLockout) RecordFailure(_ context.Context, userID string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.failures[userID]++
	if m.failures[userID] >= 5 {
		m.locked[userID] = true
	}
	return m.locked[userID], nil
}

func (m *memLockout) IsLocked(_ context.Context, userID string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.locked[userID], nil
}

func (m *memLockout) Reset(_ context.Context, userID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.failures, userID)
	delete(m.locked, userID)
	return nil
}

type memMailer struct {
	mu   sync.Mutex
	sent []string
}

func (m *memMailer) Send(_ context.Context, _, _, body string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.sent = append(m.sent, body)
	return nil
}

type testEnv struct {
	router   *gin.Engine
	users    *memUsers
	products *memProducts
	mailer   *memMailer
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()

	hasher, err := password.New(password.Config{
		Memory:      8 * 1024,
		Time:        1,
		Parallelism: 1,
		SaltLength:  16,
		KeyLength:   16,
	})
	require.NoError(t, err)

	tokens, err := token.NewManager(token.Config{
		Secret:     []byte("0123456789abcdef0123456789abcdef"),
		SessionTTL: time.Hour,
	})
	require.NoError(t, err)

	users := newMemUsers()
	reviews := newMemReviews()
	products := &memProducts{existing: map[primitive.ObjectID]bool{}}
	mailer := &memMailer{}
	log := zap.NewNop()

	authSvc := service.NewAuthService(users, hasher, tokens, newMemLockout(), mailer, "https://shop.example.com", log)
	ratingSvc := service.NewRatingService(reviews, products)
	reviewSvc := service.NewReviewService(reviews, products, ratingSvc, log)
	userSvc := service.NewUserService(users, memOrders{})

	srv := NewServer(authSvc, userSvc, reviewSvc, CookieConfig{MaxAge: 3600, Secure: false}, log)
	return &testEnv{router: srv.Router(), users: users, products: products, mailer: mailer}
}

func (e *testEnv) do(method, path string, body any, headers map[string]string) *httptest.ResponseRecorder {
	var buf bytes.Buffer
	if body != nil {
		_ = json.NewEncoder(&buf).Encode(body)
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	for k, v := range headers {
		req.Header.Set(k, v)
	}
	rec := httptest.NewRecorder()
	e.router.ServeHTTP(rec, req)
	return rec
}

func (e *testEnv) registerAndLogin(t *testing.T, email string) string {
	t.Helper()
	rec := e.do(http.MethodPost, "/api/auth/register", gin.H{
		"firstName": "Ada",
		"lastName":  "Lovelace",
		"email":     email,
		"password":  "Password1",
	}, nil)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

	var resp struct {
		Token string `json:"token"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	require.NotEmpty(t, resp.Token)
	return resp.Token
}

func bearer(tok string) map[string]string {
	return map[string]string{"Authorization": "Bearer " + tok}
}

func TestRegisterEndpoint(t *testing.T) {
	env := newTestEnv(t)

	rec := env.do(http.MethodPost, "/api/auth/register", gin.H{
		"firstName": "Ada",
		"lastName":  "Lovelace",
		"email":     "ada@example.com",
		"password":  "Password1",
	}, nil)

	require.Equal(t, http.StatusCreated, rec.Code)
	body := rec.Body.String()
	assert.Contains(t, body, `"success":true`)
	assert.Contains(t, body, `"token":`)
	assert.NotContains(t, body, "Password1")
	assert.NotContains(t, body, "$argon2id$", "hash must never appear in a response")

	var sessionCookie *http.Cookie
	for _, ck := range rec.Result().Cookies() {
		if ck.Name == SessionCookie {
			sessionCookie = ck
		}
	}
	require.NotNil(t, sessionCookie, "registration should set the session cookie")
	assert.True(t, sessionCookie.HttpOnly)
	assert.Equal(t, http.SameSiteStrictMode, sessionCookie.SameSite)
}

func TestRegisterValidation(t *testing.T) {
	env := newTestEnv(t)

	rec := env.do(http.MethodPost, "/api/auth/register", gin.H{
		"firstName": "A",
		"lastName":  "Lovelace",
		"email":     "not-an-email",
		"password":  "x",
	}, nil)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Contains(t, rec.Body.String(), `"success":false`)
}

func TestRegisterDuplicateEndpoint(t *testing.T) {
	env := newTestEnv(t)
	env.registerAndLogin(t, "dup@example.com")

	rec := env.do(http.MethodPost, "/api/auth/register", gin.H{
		"firstName": "Ada",
		"lastName":  "Lovelace",
		"email":     "dup@example.com",
		"password":  "Password1",
	}, nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestLoginEndpointStatuses(t *testing.T) {
	env := newTestEnv(t)
	env.registerAndLogin(t, "login@example.com")

	rec := env.do(http.MethodPost, "/api/auth/login", gin.H{
		"email": "login@example.com", "password": "Password1",
	}, nil)
	assert.Equal(t, http.StatusOK, rec.Code)

	rec = env.do(http.MethodPost, "/api/auth/login", gin.H{
		"email": "login@example.com", "password": "WrongPass1",
	}, nil)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	rec = env.do(http.MethodPost, "/api/auth/login", gin.H{
		"email": "ghost@example.com", "password": "Password1",
	}, nil)
	assert.Equal(t, http.StatusUnauthorized, rec.Code, "unknown email must look like a wrong password")
}

func TestLoginLockoutEndpoint(t *testing.T) {
	env := newTestEnv(t)
	env.registerAndLogin(t, "lock@example.com")

	for i := 0; i < 5; i++ {
		rec := env.do(http.MethodPost, "/api/auth/login", gin.H{
			"email": "lock@example.com", "password": "WrongPass1",
		}, nil)
		assert.Equal(t, http.StatusUnauthorized, rec.Code)
	}

	rec := env.do(http.MethodPost, "/api/auth/login", gin.H{
		"email": "lock@example.com", "password": "Password1",
	}, nil)
	assert.Equal(t, http.StatusLocked, rec.Code)
}

func TestAuthMiddleware(t *testing.T) {
	env := newTestEnv(t)
	tok := env.registerAndLogin(t, "me@example.com")

	rec := env.do(http.MethodGet, "/api/auth/me", nil, nil)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	rec = env.do(http.MethodGet, "/api/auth/me", nil, bearer(tok))
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "me@example.com")

	rec = env.do(http.MethodGet, "/api/auth/me", nil, bearer("garbage"))
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestAuthMiddlewareCookie(t *testing.T) {
	env := newTestEnv(t)
	tok := env.registerAndLogin(t, "cookie@example.com")

	req := httptest.NewRequest(http.MethodGet, "/api/auth/me", nil)
	req.AddCookie(&http.Cookie{Name: SessionCookie, Value: tok})
	rec := httptest.NewRecorder()
	env.router.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestLogoutClearsCookie(t *testing.T) {
	env := newTestEnv(t)

	rec := env.do(http.MethodPost, "/api/auth/logout", nil, nil)
	require.Equal(t, http.StatusOK, rec.Code)

	var cleared *http.Cookie
	for _, ck := range rec.Result().Cookies() {
		if ck.Name == SessionCookie {
			cleared = ck
		}
	}
	require.NotNil(t, cleared)
	assert.Empty(t, cleared.Value)
	assert.Negative(t, cleared.MaxAge)
}

func TestAdminGate(t *testing.T) {
	env := newTestEnv(t)
	tok := env.registerAndLogin(t, "customer@example.com")

	rec := env.do(http.MethodGet, "/api/users", nil, bearer(tok))
	assert.Equal(t, http.StatusForbidden, rec.Code)

	// Promote and retry.
	for id, u := range env.users.users {
		u.Role = domain.RoleAdmin
		env.users.users[id] = u
	}
	rec = env.do(http.MethodGet, "/api/users", nil, bearer(tok))
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestVerifyEmailEndpoint(t *testing.T) {
	env := newTestEnv(t)
	env.registerAndLogin(t, "verify@example.com")

	require.NotEmpty(t, env.mailer.sent)
	body := env.mailer.sent[len(env.mailer.sent)-1]
	marker := "https://shop.example.com/verify-email/"
	idx := strings.Index(body, marker)
	require.GreaterOrEqual(t, idx, 0)
	secret := body[idx+len(marker) : idx+len(marker)+40]

	rec := env.do(http.MethodGet, "/api/auth/verify-email/"+secret, nil, nil)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"isVerified":true`)

	rec = env.do(http.MethodGet, "/api/auth/verify-email/"+secret, nil, nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code, "a consumed link must not verify twice")
}

func TestForgotPasswordEndpoint(t *testing.T) {
	env := newTestEnv(t)
	env.registerAndLogin(t, "forgot@example.com")

	rec := env.do(http.MethodPost, "/api/auth/forgot-password", gin.H{"email": "forgot@example.com"}, nil)
	assert.Equal(t, http.StatusOK, rec.Code)

	rec = env.do(http.MethodPost, "/api/auth/forgot-password", gin.H{"email": "ghost@example.com"}, nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestReviewEndpoints(t *testing.T) {
	env := newTestEnv(t)
	tok := env.registerAndLogin(t, "reviewer@example.com")
	productID := primitive.NewObjectID()
	env.products.existing[productID] = true

	rec := env.do(http.MethodPost, "/api/products/"+productID.Hex()+"/reviews", gin.H{
		"rating": 5, "comment": "beautiful work",
	}, bearer(tok))
	assert.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

	rec = env.do(http.MethodPost, "/api/products/"+productID.Hex()+"/reviews", gin.H{
		"rating": 3, "comment": "on reflection",
	}, bearer(tok))
	assert.Equal(t, http.StatusBadRequest, rec.Code, "second review of the same product is rejected")

	rec = env.do(http.MethodGet, "/api/products/"+productID.Hex()+"/reviews", nil, nil)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "beautiful work")

	rec = env.do(http.MethodPost, "/api/products/not-an-id/reviews", gin.H{
		"rating": 5, "comment": "x",
	}, bearer(tok))
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}
