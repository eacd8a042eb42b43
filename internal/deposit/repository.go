package deposit

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// ErrDuplicateHash indicates the transaction hash was already recorded.
var ErrDuplicateHash = errors.New("transaction hash already recorded")

// Repository persists deposit transaction records.
type Repository interface {
	Create(ctx context.Context, tx Transaction) error
	FindByHash(ctx context.Context, txHash string) (Transaction, error)
	UpdateStatus(ctx context.Context, id, status string) error
	ListByUser(ctx context.Context, userID string, limit int) ([]Transaction, error)
}

// PostgresRepository stores deposit transactions in PostgreSQL.
type PostgresRepository struct {
	db *pgxpool.Pool
}

// NewPostgresRepository builds a Postgres-backed deposit repository.
func NewPostgresRepository(db *pgxpool.Pool) *PostgresRepository {
	return &PostgresRepository{db: db}
}

// Create inserts a deposit transaction record; the hash is unique.
func (r *PostgresRepository) Create(ctx context.Context, tx Transaction) error {
	id, err := uuid.Parse(tx.ID)
	if err != nil {
		return err
	}
	cmd, err := r.db.Exec(ctx, `INSERT INTO deposit_transactions (id, user_id, wallet_address, tx_hash, amount, status, created_at, updated_at)
        VALUES ($1, $2, $3, $4, $5, $6, $7, $8) ON CONFLICT (tx_hash) DO NOTHING`,
		id, tx.UserID, tx.WalletAddress, tx.TxHash, tx.Amount, tx.Status, tx.CreatedAt.UTC(), tx.UpdatedAt.UTC())
	if err != nil {
		return err
	}
	if cmd.RowsAffected() == 0 {
		return ErrDuplicateHash
	}
	return nil
}

// FindByHash fetches a deposit record by transaction hash.
func (r *PostgresRepository) FindByHash(ctx context.Context, txHash string) (Transaction, error) {
	row := r.db.QueryRow(ctx, `SELECT id, user_id, wallet_address, tx_hash, amount, status, created_at, updated_at
        FROM deposit_transactions WHERE tx_hash = $1`, txHash)
	return scanTransaction(row)
}

// UpdateStatus moves a deposit record through its lifecycle.
func (r *PostgresRepository) UpdateStatus(ctx context.Context, id, status string) error {
	txID, err := uuid.Parse(id)
	if err != nil {
		return err
	}
	_, err = r.db.Exec(ctx, `UPDATE deposit_transactions SET status = $1, updated_at = $2 WHERE id = $3`,
		status, time.Now().UTC(), txID)
	return err
}

// ListByUser returns the most recent deposit records for a user.
func (r *PostgresRepository) ListByUser(ctx context.Context, userID string, limit int) ([]Transaction, error) {
	if limit <= 0 {
		limit = 50
	}
	rows, err := r.db.Query(ctx, `SELECT id, user_id, wallet_address, tx_hash, amount, status, created_at, updated_at
        FROM deposit_transactions WHERE user_id = $1 ORDER BY created_at DESC LIMIT $2`, userID, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var txs []Transaction
	for rows.Next() {
		tx, err := scanTransaction(rows)
		if err != nil {
			return nil, err
		}
		txs = append(txs, tx)
	}
	return txs, rows.Err()
}

func scanTransaction(row pgx.Row) (Transaction, error) {
	var (
		id                   uuid.UUID
		createdAt, updatedAt time.Time
		tx                   Transaction
	)
	if err := row.Scan(&id, &tx.UserID, &tx.WalletAddress, &tx.TxHash, &tx.Amount, &tx.Status, &createdAt, &updatedAt); err != nil {
		return Transaction{}, err
	}
	tx.ID = id.String()
	tx.CreatedAt = createdAt.UTC()
	tx.UpdatedAt = updatedAt.UTC()
	return tx, nil
}
