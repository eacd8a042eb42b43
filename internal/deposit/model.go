package deposit

import "time"

// Transaction statuses mirrored from the chain confirmation lifecycle.
const (
	StatusPending   = "pending"
	StatusCompleted = "completed"
	StatusFailed    = "failed"
)

// Transaction records an off-chain mirror of an on-chain deposit.
type Transaction struct {
	ID            string
	UserID        string
	WalletAddress string
	TxHash        string
	Amount        int64
	Status        string
	CreatedAt     time.Time
	UpdatedAt     time.Time
}
