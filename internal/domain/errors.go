package domain

import "errors"

// Sentinel errors for the workflow layer. Handlers match these with
// errors.Is and map them to HTTP statuses; anything unmatched becomes a
// generic 500 with no internal detail.
var (
	// ErrValidation covers malformed input that survived request binding.
	ErrValidation = errors.New("validation failed")

	// ErrDuplicateEmail is returned when a registration reuses an existing
	// email (case-insensitive).
	ErrDuplicateEmail = errors.New("user already exists with this email")

	// ErrInvalidCredentials is deliberately ambiguous between "no such
	// account" and "wrong password".
	ErrInvalidCredentials = errors.New("invalid credentials")

	// ErrAccountLocked is returned while the lockout window is active,
	// regardless of password correctness.
	ErrAccountLocked = errors.New("account temporarily locked")

	// ErrTokenInvalid covers both expired and non-matching one-time secrets
	// for reset and verification flows.
	ErrTokenInvalid = errors.New("invalid or expired token")

	// ErrUnauthorized means a missing or unverifiable session token.
	ErrUnauthorized = errors.New("not authorized")

	// ErrForbidden means the authenticated user lacks the required role.
	ErrForbidden = errors.New("access denied")

	// ErrNotFound is used for direct lookups (admin user fetch,
	// forgot-password by email).
	ErrNotFound = errors.New("not found")

	// ErrDuplicateReview enforces one review per (user, product) pair.
	ErrDuplicateReview = errors.New("product already reviewed by this user")

	// ErrEmailSend wraps an upstream mail failure where the flow cannot
	// proceed without the email.
	ErrEmailSend = errors.New("email could not be sent")

	// ErrAlreadyVerified rejects a verification resend for a verified account.
	ErrAlreadyVerified = errors.New("email is already verified")
)
