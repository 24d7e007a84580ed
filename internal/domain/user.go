package domain

import (
	"strings"
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// Role gates access to admin-only operations. Checked with an explicit
// predicate, never by type.
type Role string

const (
	RoleCustomer Role = "customer"
	RoleAdmin    Role = "admin"
)

// Address is an embedded delivery address. At most one address per user
// may have IsDefault set; SetDefaultAddress maintains the invariant.
type Address struct {
	ID         primitive.ObjectID `bson:"_id,omitempty" json:"id,omitempty"`
	Type       string             `bson:"type" json:"type"`
	FirstName  string             `bson:"firstName" json:"firstName"`
	LastName   string             `bson:"lastName" json:"lastName"`
	Street     string             `bson:"street" json:"street"`
	City       string             `bson:"city" json:"city"`
	State      string             `bson:"state" json:"state"`
	PostalCode string             `bson:"postalCode" json:"postalCode"`
	Country    string             `bson:"country" json:"country"`
	Phone      string             `bson:"phone,omitempty" json:"phone,omitempty"`
	IsDefault  bool               `bson:"isDefault" json:"isDefault"`
}

// Avatar is an uploaded profile image reference.
type Avatar struct {
	PublicID string `bson:"public_id,omitempty" json:"public_id,omitempty"`
	URL      string `bson:"url,omitempty" json:"url,omitempty"`
}

// Preferences holds per-user notification and locale settings.
type Preferences struct {
	Newsletter       bool   `bson:"newsletter" json:"newsletter"`
	SMSNotifications bool   `bson:"smsNotifications" json:"smsNotifications"`
	Currency         string `bson:"currency" json:"currency"`
	Language         string `bson:"language" json:"language"`
}

// User is the account document. The password hash and the one-time token
// hashes are never serialized to JSON; repository reads exclude them unless
// the caller asks for credentials explicitly.
//
// Failed-login counters are not stored here: the lockout guard keeps them
// in Redis so increments are atomic under concurrent logins.
type User struct {
	ID                      primitive.ObjectID `bson:"_id,omitempty" json:"id"`
	FirstName               string             `bson:"firstName" json:"firstName"`
	LastName                string             `bson:"lastName" json:"lastName"`
	Email                   string             `bson:"email" json:"email"`
	Password                string             `bson:"password,omitempty" json:"-"`
	Role                    Role               `bson:"role" json:"role"`
	Phone                   string             `bson:"phone,omitempty" json:"phone,omitempty"`
	DateOfBirth             *time.Time         `bson:"dateOfBirth,omitempty" json:"dateOfBirth,omitempty"`
	Gender                  string             `bson:"gender,omitempty" json:"gender,omitempty"`
	Avatar                  *Avatar            `bson:"avatar,omitempty" json:"avatar,omitempty"`
	IsVerified              bool               `bson:"isVerified" json:"isVerified"`
	IsActive                bool               `bson:"isActive" json:"isActive"`
	Addresses               []Address          `bson:"addresses,omitempty" json:"addresses,omitempty"`
	Wishlist                []primitive.ObjectID `bson:"wishlist,omitempty" json:"wishlist,omitempty"`
	Preferences             Preferences        `bson:"preferences" json:"preferences"`
	LastLogin               *time.Time         `bson:"lastLogin,omitempty" json:"lastLogin,omitempty"`
	PasswordChangedAt       *time.Time         `bson:"passwordChangedAt,omitempty" json:"-"`
	ResetPasswordToken      string             `bson:"resetPasswordToken,omitempty" json:"-"`
	ResetPasswordExpire     *time.Time         `bson:"resetPasswordExpire,omitempty" json:"-"`
	EmailVerificationToken  string             `bson:"emailVerificationToken,omitempty" json:"-"`
	EmailVerificationExpire *time.Time         `bson:"emailVerificationExpire,omitempty" json:"-"`
	CreatedAt               time.Time          `bson:"createdAt" json:"createdAt"`
	UpdatedAt               time.Time          `bson:"updatedAt" json:"updatedAt"`
}

// FullName is derived, never stored.
func (u *User) FullName() string {
	return strings.TrimSpace(u.FirstName + " " + u.LastName)
}

// IsAdmin reports whether the user may access admin-only operations.
func (u *User) IsAdmin() bool {
	return u.Role == RoleAdmin
}

// NormalizeEmail lowercases and trims an email for storage and lookup.
// Email uniqueness is case-insensitive.
func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

// SetDefaultAddress marks the address with the given id as the default and
// clears the flag on every other address. Returns false when the id does
// not belong to the user.
func (u *User) SetDefaultAddress(id primitive.ObjectID) bool {
	found := false
	for i := range u.Addresses {
		if u.Addresses[i].ID == id {
			found = true
		}
	}
	if !found {
		return false
	}
	for i := range u.Addresses {
		u.Addresses[i].IsDefault = u.Addresses[i].ID == id
	}
	return true
}

// DefaultAddress returns the default address, or nil when none is set.
func (u *User) DefaultAddress() *Address {
	for i := range u.Addresses {
		if u.Addresses[i].IsDefault {
			return &u.Addresses[i]
		}
	}
	return nil
}

// InWishlist reports whether the product is already wishlisted.
func (u *User) InWishlist(productID primitive.ObjectID) bool {
	for _, id := range u.Wishlist {
		if id == productID {
			return true
		}
	}
	return false
}
