package ledger

import (
	"context"
	"fmt"
	"sync"
	"time"
)

type inMemoryLedger struct {
	mu       sync.RWMutex
	owner    string
	balances map[string]int64
	held     int64
	payout   Payout
	sink     EventSink
}

// NewInMemory creates a concurrency-safe in-memory ledger. A nil payout
// defaults to NoopPayout and a nil sink to DiscardSink.
func NewInMemory(owner string, payout Payout, sink EventSink) Ledger {
	if payout == nil {
		payout = NoopPayout{}
	}
	if sink == nil {
		sink = DiscardSink{}
	}
	return &inMemoryLedger{
		owner:    owner,
		balances: make(map[string]int64),
		payout:   payout,
		sink:     sink,
	}
}

func (l *inMemoryLedger) Deposit(ctx context.Context, account string, amount int64) (int64, error) {
	if err := checkAmount(amount); err != nil {
		return 0, err
	}

	l.mu.Lock()
	l.balances[account] += amount
	l.held += amount
	balance := l.balances[account]
	l.mu.Unlock()

	_ = l.sink.Record(ctx, Event{Kind: EventDeposit, Account: account, Amount: amount, At: time.Now().UTC()})
	return balance, nil
}

func (l *inMemoryLedger) Withdraw(ctx context.Context, caller, account string, amount int64) (int64, error) {
	return l.debitAndPay(ctx, caller, account, amount, account, EventWithdraw)
}

func (l *inMemoryLedger) DeductForUsage(ctx context.Context, caller, account string, amount int64, recipient string) (int64, error) {
	return l.debitAndPay(ctx, caller, account, amount, recipient, EventUsageDeducted)
}

// debitAndPay removes amount from the account and the held pool, then pays the
// recipient. The debit happens before the payout call and is restored in full
// if the payout fails, so no partial state is ever observable.
func (l *inMemoryLedger) debitAndPay(ctx context.Context, caller, account string, amount int64, recipient, kind string) (int64, error) {
	if err := checkAmount(amount); err != nil {
		return 0, err
	}

	l.mu.Lock()
	if caller != l.owner {
		l.mu.Unlock()
		return 0, ErrNotOwner
	}
	balance := l.balances[account]
	if balance < amount {
		l.mu.Unlock()
		return 0, ErrInsufficientFunds
	}
	if l.held < amount {
		l.mu.Unlock()
		return 0, ErrInsufficientReserve
	}
	l.balances[account] = balance - amount
	l.held -= amount
	l.mu.Unlock()

	if err := l.payout.Transfer(ctx, recipient, amount); err != nil {
		l.mu.Lock()
		l.balances[account] += amount
		l.held += amount
		l.mu.Unlock()
		return 0, fmt.Errorf("%w: %v", ErrPayoutFailed, err)
	}

	event := Event{Kind: kind, Account: account, Amount: amount, At: time.Now().UTC()}
	if kind == EventUsageDeducted {
		event.Recipient = recipient
	}
	_ = l.sink.Record(ctx, event)

	l.mu.RLock()
	remaining := l.balances[account]
	l.mu.RUnlock()
	return remaining, nil
}

func (l *inMemoryLedger) Balance(_ context.Context, account string) (int64, error) {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.balances[account], nil
}

func (l *inMemoryLedger) HeldFunds(_ context.Context) (int64, error) {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.held, nil
}

func (l *inMemoryLedger) Receive(_ context.Context, amount int64) error {
	if err := checkAmount(amount); err != nil {
		return err
	}
	l.mu.Lock()
	defer l.mu.Unlock()
	// Unsolicited inflow: no balance record is credited, the margin between
	// held funds and recorded obligations only widens.
	l.held += amount
	return nil
}

func (l *inMemoryLedger) TransferOwnership(_ context.Context, caller, newOwner string) error {
	normalized, err := NormalizeAddress(newOwner)
	if err != nil {
		return err
	}
	l.mu.Lock()
	defer l.mu.Unlock()
	if caller != l.owner {
		return ErrNotOwner
	}
	l.owner = normalized
	return nil
}

func (l *inMemoryLedger) Owner() string {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.owner
}
