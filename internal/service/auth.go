package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.uber.org/zap"

	"github.com/reshmacrochets/backend/internal/domain"
	"github.com/reshmacrochets/backend/internal/mail"
	"github.com/reshmacrochets/backend/internal/password"
	"github.com/reshmacrochets/backend/internal/token"
)

// MinPasswordLen is the minimum accepted password length.
const MinPasswordLen = 6

// passwordChangeMargin is subtracted from the recorded password-change time
// so a session token minted in the same instant is not rejected as stale.
const passwordChangeMargin = time.Second

// AuthService orchestrates registration, login, lockout, password recovery
// and email verification.
type AuthService struct {
	users       UserStore
	hasher      *password.Hasher
	tokens      *token.Manager
	lockout     LockoutGuard
	mailer      mail.Sender
	frontendURL string
	log         *zap.Logger
}

// NewAuthService wires the auth workflows.
func NewAuthService(users UserStore, hasher *password.Hasher, tokens *token.Manager, guard LockoutGuard, mailer mail.Sender, frontendURL string, log *zap.Logger) *AuthService {
	return &AuthService{
		users:       users,
		hasher:      hasher,
		tokens:      tokens,
		lockout:     guard,
		mailer:      mailer,
		frontendURL: frontendURL,
		log:         log,
	}
}

// RegisterInput is the validated registration payload.
type RegisterInput struct {
	FirstName string
	LastName  string
	Email     string
	Password  string
	Phone     string
}

// Register creates an account, emails a verification link and signs the new
// user in. A failed verification email is logged but never fails the
// registration; the user can request a resend.
func (s *AuthService) Register(ctx context.Context, in RegisterInput) (*domain.User, string, error) {
	if len(in.Password) < MinPasswordLen {
		return nil, "", fmt.Errorf("%w: password must be at least %d characters long", domain.ErrValidation, MinPasswordLen)
	}

	hash, err := s.hasher.Hash(in.Password)
	if err != nil {
		return nil, "", fmt.Errorf("hash password: %w", err)
	}

	user := &domain.User{
		FirstName: in.FirstName,
		LastName:  in.LastName,
		Email:     domain.NormalizeEmail(in.Email),
		Password:  hash,
		Phone:     in.Phone,
		Role:      domain.RoleCustomer,
		IsActive:  true,
	}
	if err := s.users.Create(ctx, user); err != nil {
		return nil, "", err
	}

	if err := s.sendVerification(ctx, user); err != nil {
		s.log.Warn("verification email not sent on registration",
			zap.String("userId", user.ID.Hex()),
			zap.Error(err))
	}

	sessionToken, err := s.tokens.IssueSession(user.ID.Hex())
	if err != nil {
		return nil, "", fmt.Errorf("issue session: %w", err)
	}
	return scrub(user), sessionToken, nil
}

// Login verifies credentials under the lockout policy and issues a session
// token. Unknown email and wrong password are indistinguishable to the
// caller; lockout state is checked before the password so a locked account
// answers the same for right and wrong passwords.
func (s *AuthService) Login(ctx context.Context, email, plaintext string) (*domain.User, string, error) {
	user, err := s.users.FindByEmail(ctx, email, true)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return nil, "", domain.ErrInvalidCredentials
		}
		return nil, "", err
	}

	uid := user.ID.Hex()
	locked, err := s.lockout.IsLocked(ctx, uid)
	if err != nil {
		return nil, "", fmt.Errorf("lockout check: %w", err)
	}
	if locked {
		return nil, "", domain.ErrAccountLocked
	}

	ok, err := s.hasher.Verify(plaintext, user.Password)
	if err != nil {
		return nil, "", fmt.Errorf("verify password: %w", err)
	}
	if !ok {
		if nowLocked, lerr := s.lockout.RecordFailure(ctx, uid); lerr != nil {
			s.log.Warn("failed to record login failure", zap.String("userId", uid), zap.Error(lerr))
		} else if nowLocked {
			s.log.Info("account locked after repeated failures", zap.String("userId", uid))
		}
		return nil, "", domain.ErrInvalidCredentials
	}

	if err := s.lockout.Reset(ctx, uid); err != nil {
		s.log.Warn("failed to reset lockout state", zap.String("userId", uid), zap.Error(err))
	}

	now := time.Now()
	if err := s.users.StampLastLogin(ctx, user.ID, now); err != nil {
		s.log.Warn("failed to stamp last login", zap.String("userId", uid), zap.Error(err))
	}
	user.LastLogin = &now

	sessionToken, err := s.tokens.IssueSession(uid)
	if err != nil {
		return nil, "", fmt.Errorf("issue session: %w", err)
	}
	return scrub(user), sessionToken, nil
}

// Authenticate resolves a session token to its account. Tokens issued
// before the account's last password change are stale and rejected.
func (s *AuthService) Authenticate(ctx context.Context, sessionToken string) (*domain.User, error) {
	claims, err := s.tokens.VerifySession(sessionToken)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrUnauthorized, err)
	}

	id, err := primitive.ObjectIDFromHex(claims.UID)
	if err != nil {
		return nil, fmt.Errorf("%w: malformed subject", domain.ErrUnauthorized)
	}

	user, err := s.users.FindByID(ctx, id, false)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return nil, fmt.Errorf("%w: account no longer exists", domain.ErrUnauthorized)
		}
		return nil, err
	}

	if user.PasswordChangedAt != nil && claims.IssuedBefore(*user.PasswordChangedAt) {
		return nil, fmt.Errorf("%w: password changed after token was issued", domain.ErrUnauthorized)
	}
	if !user.IsActive {
		return nil, fmt.Errorf("%w: account deactivated", domain.ErrUnauthorized)
	}
	return user, nil
}

// Me returns the caller's own account.
func (s *AuthService) Me(ctx context.Context, userID primitive.ObjectID) (*domain.User, error) {
	return s.users.FindByID(ctx, userID, false)
}

// ForgotPassword stores a hashed ten-minute reset secret on the account and
// emails the cleartext link. If the email cannot be delivered the stored
// secret is rolled back so no orphaned reset window stays open.
func (s *AuthService) ForgotPassword(ctx context.Context, email string) error {
	user, err := s.users.FindByEmail(ctx, email, false)
	if err != nil {
		return err
	}

	secret, err := token.NewOneTimeSecret(token.ResetSecretTTL)
	if err != nil {
		return fmt.Errorf("mint reset secret: %w", err)
	}
	if err := s.users.SetResetToken(ctx, user.ID, secret.Hash, secret.ExpiresAt); err != nil {
		return err
	}

	subject, body := mail.ResetMessage(s.frontendURL, user.FirstName, secret.Cleartext)
	if err := s.mailer.Send(ctx, user.Email, subject, body); err != nil {
		if cerr := s.users.ClearResetToken(ctx, user.ID); cerr != nil {
			s.log.Error("failed to roll back reset token after mail failure",
				zap.String("userId", user.ID.Hex()),
				zap.Error(cerr))
		}
		return err
	}
	return nil
}

// ResetPassword consumes a reset secret and installs a new password. The
// lockout state is cleared and a fresh session is issued so the user lands
// signed in.
func (s *AuthService) ResetPassword(ctx context.Context, secret, newPassword string) (*domain.User, string, error) {
	if len(newPassword) < MinPasswordLen {
		return nil, "", fmt.Errorf("%w: password must be at least %d characters long", domain.ErrValidation, MinPasswordLen)
	}

	user, err := s.users.FindByResetTokenHash(ctx, token.HashSecret(secret), time.Now())
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return nil, "", domain.ErrTokenInvalid
		}
		return nil, "", err
	}

	if err := s.setPassword(ctx, user, newPassword); err != nil {
		return nil, "", err
	}
	if err := s.lockout.Reset(ctx, user.ID.Hex()); err != nil {
		s.log.Warn("failed to reset lockout state", zap.String("userId", user.ID.Hex()), zap.Error(err))
	}

	sessionToken, err := s.tokens.IssueSession(user.ID.Hex())
	if err != nil {
		return nil, "", fmt.Errorf("issue session: %w", err)
	}
	return scrub(user), sessionToken, nil
}

// VerifyEmail consumes a verification secret and marks the account verified.
func (s *AuthService) VerifyEmail(ctx context.Context, secret string) (*domain.User, error) {
	user, err := s.users.FindByVerificationTokenHash(ctx, token.HashSecret(secret), time.Now())
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return nil, domain.ErrTokenInvalid
		}
		return nil, err
	}

	if err := s.users.MarkVerified(ctx, user.ID); err != nil {
		return nil, err
	}
	user.IsVerified = true
	return scrub(user), nil
}

// ResendVerification reissues the verification secret for an unverified
// account. Unlike registration, a mail failure here is fatal: resending is
// the user's explicit goal.
func (s *AuthService) ResendVerification(ctx context.Context, email string) error {
	user, err := s.users.FindByEmail(ctx, email, false)
	if err != nil {
		return err
	}
	if user.IsVerified {
		return domain.ErrAlreadyVerified
	}
	return s.sendVerification(ctx, user)
}

// ChangePassword rotates the password of an authenticated user after
// re-verifying the current one, and returns a fresh session token since the
// old one goes stale.
func (s *AuthService) ChangePassword(ctx context.Context, userID primitive.ObjectID, current, newPassword string) (string, error) {
	if len(newPassword) < MinPasswordLen {
		return "", fmt.Errorf("%w: new password must be at least %d characters long", domain.ErrValidation, MinPasswordLen)
	}

	user, err := s.users.FindByID(ctx, userID, true)
	if err != nil {
		return "", err
	}

	ok, err := s.hasher.Verify(current, user.Password)
	if err != nil {
		return "", fmt.Errorf("verify password: %w", err)
	}
	if !ok {
		return "", fmt.Errorf("%w: current password is incorrect", domain.ErrValidation)
	}

	if err := s.setPassword(ctx, user, newPassword); err != nil {
		return "", err
	}
	return s.tokens.IssueSession(user.ID.Hex())
}

func (s *AuthService) setPassword(ctx context.Context, user *domain.User, newPassword string) error {
	hash, err := s.hasher.Hash(newPassword)
	if err != nil {
		return fmt.Errorf("hash password: %w", err)
	}

	changedAt := time.Now().Add(-passwordChangeMargin)
	if err := s.users.UpdatePassword(ctx, user.ID, hash, changedAt); err != nil {
		return err
	}
	user.Password = hash
	user.PasswordChangedAt = &changedAt
	return nil
}

func (s *AuthService) sendVerification(ctx context.Context, user *domain.User) error {
	secret, err := token.NewOneTimeSecret(token.VerificationSecretTTL)
	if err != nil {
		return fmt.Errorf("mint verification secret: %w", err)
	}
	if err := s.users.SetVerificationToken(ctx, user.ID, secret.Hash, secret.ExpiresAt); err != nil {
		return err
	}

	subject, body := mail.VerificationMessage(s.frontendURL, user.FirstName, secret.Cleartext)
	return s.mailer.Send(ctx, user.Email, subject, body)
}
