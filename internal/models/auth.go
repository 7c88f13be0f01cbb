package models

import (
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// ClientInfo identifies where a request came from. It is copied into sessions and audit rows.
type ClientInfo struct {
	IP        string `json:"-"`
	UserAgent string `json:"-"`
}

// Credentials is the login payload.
type Credentials struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required"`
	ClientInfo
}

// RefreshRequest trades a session token for a fresh token pair.
type RefreshRequest struct {
	RefreshToken string `json:"refresh_token" validate:"required"`
	ClientInfo
}

// PasswordChange replaces the caller's password.
type PasswordChange struct {
	OldPassword string `json:"old_password" validate:"required"`
	NewPassword string `json:"new_password" validate:"required,min=8,max=72,nefield=OldPassword"`
}

// Identity is the public view of an account.
type Identity struct {
	ID       string   `json:"id"`
	Email    string   `json:"email"`
	FullName string   `json:"full_name"`
	Role     UserRole `json:"role"`
}

// Session is returned by login and refresh. The refresh token is only ever shown here; the
// store keeps its hash.
type Session struct {
	AccessToken  string    `json:"access_token"`
	TokenType    string    `json:"token_type"`
	ExpiresAt    time.Time `json:"expires_at"`
	RefreshToken string    `json:"refresh_token"`
	User         Identity  `json:"user"`
}

// JWTClaims is the access token payload. It carries identity only; teacher ownership and
// parent links are read from the store on every request.
type JWTClaims struct {
	UserID   string   `json:"user_id"`
	Role     UserRole `json:"role"`
	Email    string   `json:"email"`
	FullName string   `json:"full_name"`
	jwt.RegisteredClaims
}

// IdentityOf projects a user onto its public identity.
func IdentityOf(u *User) Identity {
	return Identity{ID: u.ID, Email: u.Email, FullName: u.FullName, Role: u.Role}
}
