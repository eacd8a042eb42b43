package identity

import "time"

// User represents a registered wallet owner.
type User struct {
	ID            string
	WalletAddress string
	Username      string
	Email         string
	Admin         bool
	TokenVersion  int
	CreatedAt     time.Time
	LastLogin     *time.Time
}

// RegisterInput captures onboarding data for a new user.
type RegisterInput struct {
	WalletAddress string
	Username      string
	Email         string
}
