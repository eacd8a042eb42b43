package ledger

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// PostgresLedger persists balance records and the held pool in PostgreSQL.
//
// Schema:
//
//	balances(address TEXT PRIMARY KEY, amount BIGINT NOT NULL)
//	reserve(id SMALLINT PRIMARY KEY, held BIGINT NOT NULL)   -- single row, id = 1
//	ledger_events(id UUID PRIMARY KEY, kind TEXT, account TEXT,
//	              amount BIGINT, recipient TEXT, created_at TIMESTAMPTZ)
type PostgresLedger struct {
	db     *pgxpool.Pool
	payout Payout
	sink   EventSink

	mu    sync.RWMutex
	owner string
}

// NewPostgresLedger constructs a Postgres-backed ledger. The owner principal
// is configured, not stored: a restart always reverts to the configured owner.
func NewPostgresLedger(db *pgxpool.Pool, owner string, payout Payout, sink EventSink) *PostgresLedger {
	if payout == nil {
		payout = NoopPayout{}
	}
	if sink == nil {
		sink = DiscardSink{}
	}
	return &PostgresLedger{db: db, owner: owner, payout: payout, sink: sink}
}

// Deposit credits the account and the held pool in a single transaction.
func (l *PostgresLedger) Deposit(ctx context.Context, account string, amount int64) (int64, error) {
	if err := checkAmount(amount); err != nil {
		return 0, err
	}

	tx, err := l.db.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return 0, err
	}
	defer tx.Rollback(ctx) // nolint:errcheck

	var balance int64
	if err := tx.QueryRow(ctx, `INSERT INTO balances (address, amount) VALUES ($1, $2)
        ON CONFLICT (address) DO UPDATE SET amount = balances.amount + EXCLUDED.amount
        RETURNING amount`, account, amount).Scan(&balance); err != nil {
		return 0, err
	}

	if _, err := tx.Exec(ctx, `UPDATE reserve SET held = held + $1 WHERE id = 1`, amount); err != nil {
		return 0, err
	}

	if err := insertEvent(ctx, tx, EventDeposit, account, amount, ""); err != nil {
		return 0, err
	}

	if err := tx.Commit(ctx); err != nil {
		return 0, err
	}

	_ = l.sink.Record(ctx, Event{Kind: EventDeposit, Account: account, Amount: amount, At: time.Now().UTC()})
	return balance, nil
}

// Withdraw debits the account and pays the funds back to it.
func (l *PostgresLedger) Withdraw(ctx context.Context, caller, account string, amount int64) (int64, error) {
	return l.debitAndPay(ctx, caller, account, amount, account, EventWithdraw)
}

// DeductForUsage debits the account and routes the funds to the recipient.
func (l *PostgresLedger) DeductForUsage(ctx context.Context, caller, account string, amount int64, recipient string) (int64, error) {
	return l.debitAndPay(ctx, caller, account, amount, recipient, EventUsageDeducted)
}

// debitAndPay runs the debit and the payout inside one transaction. Rows are
// locked and debited before the payout port is called; a payout error aborts
// the transaction so the debit never becomes visible.
//
// The balance and reserve row locks are held across the payout call, so slow
// payout implementations stall other movements on the same rows. If Commit
// fails after a successful payout, funds have moved without the debit being
// persisted; payout implementations that transfer real value need their own
// journal to reconcile that window.
func (l *PostgresLedger) debitAndPay(ctx context.Context, caller, account string, amount int64, recipient, kind string) (int64, error) {
	if err := checkAmount(amount); err != nil {
		return 0, err
	}
	if caller != l.Owner() {
		return 0, ErrNotOwner
	}

	tx, err := l.db.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return 0, err
	}
	defer tx.Rollback(ctx) // nolint:errcheck

	var balance int64
	if err := tx.QueryRow(ctx, `SELECT amount FROM balances WHERE address = $1 FOR UPDATE`, account).Scan(&balance); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return 0, ErrInsufficientFunds
		}
		return 0, err
	}
	if balance < amount {
		return 0, ErrInsufficientFunds
	}

	var held int64
	if err := tx.QueryRow(ctx, `SELECT held FROM reserve WHERE id = 1 FOR UPDATE`).Scan(&held); err != nil {
		return 0, err
	}
	if held < amount {
		return 0, ErrInsufficientReserve
	}

	if _, err := tx.Exec(ctx, `UPDATE balances SET amount = amount - $1 WHERE address = $2`, amount, account); err != nil {
		return 0, err
	}
	if _, err := tx.Exec(ctx, `UPDATE reserve SET held = held - $1 WHERE id = 1`, amount); err != nil {
		return 0, err
	}
	if err := insertEvent(ctx, tx, kind, account, amount, recipient); err != nil {
		return 0, err
	}

	if err := l.payout.Transfer(ctx, recipient, amount); err != nil {
		return 0, fmt.Errorf("%w: %v", ErrPayoutFailed, err)
	}

	if err := tx.Commit(ctx); err != nil {
		return 0, err
	}

	event := Event{Kind: kind, Account: account, Amount: amount, At: time.Now().UTC()}
	if kind == EventUsageDeducted {
		event.Recipient = recipient
	}
	_ = l.sink.Record(ctx, event)

	return balance - amount, nil
}

// Balance returns the recorded balance, zero for unknown accounts.
func (l *PostgresLedger) Balance(ctx context.Context, account string) (int64, error) {
	var balance int64
	if err := l.db.QueryRow(ctx, `SELECT amount FROM balances WHERE address = $1`, account).Scan(&balance); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return 0, nil
		}
		return 0, err
	}
	return balance, nil
}

// HeldFunds returns the current held pool.
func (l *PostgresLedger) HeldFunds(ctx context.Context) (int64, error) {
	var held int64
	if err := l.db.QueryRow(ctx, `SELECT held FROM reserve WHERE id = 1`).Scan(&held); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return 0, nil
		}
		return 0, err
	}
	return held, nil
}

// Receive grows the held pool without crediting any account.
func (l *PostgresLedger) Receive(ctx context.Context, amount int64) error {
	if err := checkAmount(amount); err != nil {
		return err
	}
	_, err := l.db.Exec(ctx, `UPDATE reserve SET held = held + $1 WHERE id = 1`, amount)
	return err
}

// TransferOwnership reassigns the owner principal for this instance.
func (l *PostgresLedger) TransferOwnership(_ context.Context, caller, newOwner string) error {
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

// Owner returns the current owner principal.
func (l *PostgresLedger) Owner() string {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.owner
}

// EnsureReserve guarantees the singleton reserve row exists.
func (l *PostgresLedger) EnsureReserve(ctx context.Context) error {
	_, err := l.db.Exec(ctx, `INSERT INTO reserve (id, held) VALUES (1, 0) ON CONFLICT (id) DO NOTHING`)
	return err
}

func insertEvent(ctx context.Context, tx pgx.Tx, kind, account string, amount int64, recipient string) error {
	_, err := tx.Exec(ctx, `INSERT INTO ledger_events (id, kind, account, amount, recipient, created_at)
        VALUES ($1, $2, $3, $4, $5, $6)`, uuid.New(), kind, account, amount, recipient, time.Now().UTC())
	return err
}
