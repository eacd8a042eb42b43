package usage

import "time"

// Record statuses for the fee collection outcome.
const (
	StatusCharged     = "charged"
	StatusUncollected = "uncollected"
)

// Record captures a single metered API call.
type Record struct {
	ID        string
	KeyID     string
	UserID    string
	Source    string
	Method    string
	Fee       int64
	Status    string
	Timestamp time.Time
}
