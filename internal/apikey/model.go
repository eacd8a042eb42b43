package apikey

import "time"

// Key is an issued API credential. The secret is stored only as a bcrypt hash.
type Key struct {
	ID              string
	KeyID           string
	SecretHash      []byte
	UserID          string
	Name            string
	Active          bool
	RateLimitPerMin int
	CallCount       int64
	LastUsedAt      *time.Time
	CreatedAt       time.Time
	ExpiresAt       time.Time
}

// Expired reports whether the key has passed its expiry.
func (k Key) Expired(now time.Time) bool {
	return !k.ExpiresAt.IsZero() && now.After(k.ExpiresAt)
}
