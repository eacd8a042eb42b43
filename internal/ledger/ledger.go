package ledger

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"
)

var (
	// ErrZeroAmount occurs when an operation carries a non-positive amount.
	ErrZeroAmount = errors.New("amount must be positive")

	// ErrInsufficientFunds occurs when an account lacks recorded balance to
	// cover a requested withdrawal or deduction.
	ErrInsufficientFunds = errors.New("insufficient funds")

	// ErrInsufficientReserve occurs when the held pool cannot cover an
	// outgoing payout. With solvent bookkeeping this never fires before
	// ErrInsufficientFunds; it is kept as an independent guard.
	ErrInsufficientReserve = errors.New("insufficient held funds")

	// ErrNotOwner occurs when a privileged operation is invoked by any
	// principal other than the configured owner.
	ErrNotOwner = errors.New("caller is not the ledger owner")

	// ErrPayoutFailed wraps payout port failures after which the whole
	// operation has been rolled back.
	ErrPayoutFailed = errors.New("payout failed")

	// ErrInvalidAddress indicates a malformed account identifier.
	ErrInvalidAddress = errors.New("invalid account address")
)

// Event kinds journaled by the ledger.
const (
	EventDeposit       = "deposit"
	EventWithdraw      = "withdraw"
	EventUsageDeducted = "usage_deducted"
)

// Event describes a completed balance mutation.
type Event struct {
	Kind      string
	Account   string
	Amount    int64
	Recipient string
	At        time.Time
}

// EventSink receives ledger events after the mutation has been applied.
type EventSink interface {
	Record(ctx context.Context, event Event) error
}

// Payout moves native-unit value out of the held pool to an external account.
// Implementations must either complete the transfer or return an error; a
// returned error rolls the enclosing ledger operation back.
type Payout interface {
	Transfer(ctx context.Context, to string, amount int64) error
}

// Ledger tracks deposited balances per account against a held pool of funds.
//
// The held pool must always cover the sum of recorded balances. Privileged
// operations (Withdraw, DeductForUsage, TransferOwnership) take the caller
// principal explicitly and compare it against the configured owner; there is
// no ambient authorization state. Outgoing operations debit the recorded
// balance strictly before invoking the payout port, so a re-entrant observer
// only ever sees the already-debited balance.
type Ledger interface {
	Deposit(ctx context.Context, account string, amount int64) (int64, error)
	Withdraw(ctx context.Context, caller, account string, amount int64) (int64, error)
	DeductForUsage(ctx context.Context, caller, account string, amount int64, recipient string) (int64, error)
	Balance(ctx context.Context, account string) (int64, error)
	HeldFunds(ctx context.Context) (int64, error)
	Receive(ctx context.Context, amount int64) error
	TransferOwnership(ctx context.Context, caller, newOwner string) error
	Owner() string
}

// NormalizeAddress lowercases and validates a 0x-prefixed hex account address.
func NormalizeAddress(addr string) (string, error) {
	addr = strings.ToLower(strings.TrimSpace(addr))
	if len(addr) != 42 || !strings.HasPrefix(addr, "0x") {
		return "", ErrInvalidAddress
	}
	for _, r := range addr[2:] {
		if (r < '0' || r > '9') && (r < 'a' || r > 'f') {
			return "", ErrInvalidAddress
		}
	}
	return addr, nil
}

// NoopPayout satisfies Payout without moving funds. Settlement to the chain
// happens out of band through the deposit contract operator.
type NoopPayout struct{}

// Transfer always succeeds.
func (NoopPayout) Transfer(_ context.Context, _ string, _ int64) error {
	return nil
}

// DiscardSink drops all events.
type DiscardSink struct{}

// Record does nothing.
func (DiscardSink) Record(_ context.Context, _ Event) error {
	return nil
}

func checkAmount(amount int64) error {
	if amount <= 0 {
		return fmt.Errorf("%w: %d", ErrZeroAmount, amount)
	}
	return nil
}
