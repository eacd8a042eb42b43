package apikey

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// ErrNotFound indicates the requested key does not exist.
var ErrNotFound = errors.New("api key not found")

// Repository persists API keys.
type Repository interface {
	Create(ctx context.Context, key Key) error
	FindByKeyID(ctx context.Context, keyID string) (Key, error)
	GetForUser(ctx context.Context, userID, keyID string) (Key, error)
	ListByUser(ctx context.Context, userID string) ([]Key, error)
	Delete(ctx context.Context, userID, keyID string) error
	TouchUsage(ctx context.Context, keyID string, at time.Time) error
}

// PostgresRepository stores API keys in PostgreSQL.
type PostgresRepository struct {
	db *pgxpool.Pool
}

// NewPostgresRepository builds a Postgres-backed API key repository.
func NewPostgresRepository(db *pgxpool.Pool) *PostgresRepository {
	return &PostgresRepository{db: db}
}

// Create inserts a key record.
func (r *PostgresRepository) Create(ctx context.Context, key Key) error {
	id, err := uuid.Parse(key.ID)
	if err != nil {
		return err
	}
	_, err = r.db.Exec(ctx, `INSERT INTO api_keys (id, key_id, secret_hash, user_id, name, is_active, rate_limit_per_minute, call_count, created_at, expires_at)
        VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)`,
		id, key.KeyID, key.SecretHash, key.UserID, key.Name, key.Active, key.RateLimitPerMin, key.CallCount, key.CreatedAt.UTC(), key.ExpiresAt.UTC())
	return err
}

const keyColumns = `id, key_id, secret_hash, user_id, name, is_active, rate_limit_per_minute, call_count, last_used_at, created_at, expires_at`

// FindByKeyID fetches a key by its public identifier.
func (r *PostgresRepository) FindByKeyID(ctx context.Context, keyID string) (Key, error) {
	row := r.db.QueryRow(ctx, `SELECT `+keyColumns+` FROM api_keys WHERE key_id = $1`, keyID)
	return scanKey(row)
}

// GetForUser fetches a key owned by the given user.
func (r *PostgresRepository) GetForUser(ctx context.Context, userID, keyID string) (Key, error) {
	row := r.db.QueryRow(ctx, `SELECT `+keyColumns+` FROM api_keys WHERE key_id = $1 AND user_id = $2`, keyID, userID)
	return scanKey(row)
}

// ListByUser returns all keys owned by the user.
func (r *PostgresRepository) ListByUser(ctx context.Context, userID string) ([]Key, error) {
	rows, err := r.db.Query(ctx, `SELECT `+keyColumns+` FROM api_keys WHERE user_id = $1 ORDER BY created_at DESC`, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var keys []Key
	for rows.Next() {
		key, err := scanKey(rows)
		if err != nil {
			return nil, err
		}
		keys = append(keys, key)
	}
	return keys, rows.Err()
}

// Delete removes a key owned by the given user.
func (r *PostgresRepository) Delete(ctx context.Context, userID, keyID string) error {
	cmd, err := r.db.Exec(ctx, `DELETE FROM api_keys WHERE key_id = $1 AND user_id = $2`, keyID, userID)
	if err != nil {
		return err
	}
	if cmd.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

// TouchUsage bumps the call counter and the last-used timestamp.
func (r *PostgresRepository) TouchUsage(ctx context.Context, keyID string, at time.Time) error {
	_, err := r.db.Exec(ctx, `UPDATE api_keys SET call_count = call_count + 1, last_used_at = $1 WHERE key_id = $2`, at.UTC(), keyID)
	return err
}

func scanKey(row pgx.Row) (Key, error) {
	var (
		id                   uuid.UUID
		lastUsedAt           *time.Time
		createdAt, expiresAt time.Time
		key                  Key
	)
	if err := row.Scan(&id, &key.KeyID, &key.SecretHash, &key.UserID, &key.Name, &key.Active, &key.RateLimitPerMin, &key.CallCount, &lastUsedAt, &createdAt, &expiresAt); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Key{}, ErrNotFound
		}
		return Key{}, err
	}
	key.ID = id.String()
	key.LastUsedAt = lastUsedAt
	key.CreatedAt = createdAt.UTC()
	key.ExpiresAt = expiresAt.UTC()
	return key, nil
}
