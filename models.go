package accounts

import (
	"strings"
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// UserRole is the user's role
type UserRole = string

const (
	// RoleUser is the default role for self-registered accounts
	RoleUser UserRole = "user"
	// RoleAdmin grants access to the user management routes
	RoleAdmin UserRole = "admin"
)

// ValidRole reports whether role is a known role value.
func ValidRole(role string) bool {
	return role == RoleUser || role == RoleAdmin
}

// User is the user document as stored in the users collection.
// Password and the reset fields never serialize to JSON; reads hide
// them at the query layer too unless explicitly requested.
type User struct {
	ID                   primitive.ObjectID `bson:"_id,omitempty" json:"id,omitempty"`
	Name                 string             `bson:"name" json:"name"`
	Email                string             `bson:"email" json:"email"`
	Password             string             `bson:"password,omitempty" json:"-"`
	Role                 UserRole           `bson:"role" json:"role"`
	PasswordChangedAt    *time.Time         `bson:"password_changed_at,omitempty" json:"-"`
	PasswordResetToken   string             `bson:"password_reset_token,omitempty" json:"-"`
	PasswordResetExpires *time.Time         `bson:"password_reset_expires,omitempty" json:"-"`
	Active               *bool              `bson:"active,omitempty" json:"-"`
	CreatedAt            time.Time          `bson:"created_at" json:"created_at"`
}

// ChangedPasswordAfter reports whether the password was changed at or
// after the given token issue time. A token minted before the change
// must be rejected.
func (u *User) ChangedPasswordAfter(issuedAt time.Time) bool {
	if u.PasswordChangedAt == nil {
		return false
	}
	// Compare at second precision, the resolution of the iat claim.
	return u.PasswordChangedAt.Unix() >= issuedAt.Unix()
}

// IsActive treats a missing flag as active; only an explicit false
// marks a soft-deleted account.
func (u *User) IsActive() bool {
	return u.Active == nil || *u.Active
}

// Sanitize clears credential material from a copy of the record before
// it is written to a response. The JSON tags already hide these fields;
// this is defense in depth for any other serialization path.
func (u *User) Sanitize() *User {
	out := *u
	out.Password = ""
	out.PasswordResetToken = ""
	out.PasswordResetExpires = nil
	return &out
}

// NormalizeEmail folds an email address the way the store persists it.
func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}
