package models

import "time"

// RefreshSession is a stored session token. Only the SHA-256 hash of the opaque token is kept.
type RefreshSession struct {
	ID        string     `db:"id"`
	UserID    string     `db:"user_id"`
	TokenHash string     `db:"token_hash"`
	ExpiresAt time.Time  `db:"expires_at"`
	CreatedAt time.Time  `db:"created_at"`
	Revoked   bool       `db:"revoked"`
	RevokedAt *time.Time `db:"revoked_at"`
	IPAddress string     `db:"ip_address"`
	UserAgent string     `db:"user_agent"`
}

// Usable reports whether the session can still be exchanged at now.
func (s *RefreshSession) Usable(now time.Time) bool {
	return !s.Revoked && now.Before(s.ExpiresAt)
}
