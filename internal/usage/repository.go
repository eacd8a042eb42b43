package usage

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
)

// Repository persists usage records.
type Repository interface {
	Create(ctx context.Context, record Record) error
	ListByKey(ctx context.Context, keyID string, limit int) ([]Record, error)
}

// PostgresRepository stores usage records in PostgreSQL.
type PostgresRepository struct {
	db *pgxpool.Pool
}

// NewPostgresRepository builds a Postgres-backed usage repository.
func NewPostgresRepository(db *pgxpool.Pool) *PostgresRepository {
	return &PostgresRepository{db: db}
}

// Create inserts a usage record.
func (r *PostgresRepository) Create(ctx context.Context, record Record) error {
	id, err := uuid.Parse(record.ID)
	if err != nil {
		return err
	}
	_, err = r.db.Exec(ctx, `INSERT INTO usage_records (id, key_id, user_id, source, method, fee, status, recorded_at)
        VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`,
		id, record.KeyID, record.UserID, record.Source, record.Method, record.Fee, record.Status, record.Timestamp.UTC())
	return err
}

// ListByKey returns the most recent usage records for a key.
func (r *PostgresRepository) ListByKey(ctx context.Context, keyID string, limit int) ([]Record, error) {
	if limit <= 0 {
		limit = 100
	}
	rows, err := r.db.Query(ctx, `SELECT id, key_id, user_id, source, method, fee, status, recorded_at
        FROM usage_records WHERE key_id = $1 ORDER BY recorded_at DESC LIMIT $2`, keyID, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var records []Record
	for rows.Next() {
		var (
			id         uuid.UUID
			recordedAt time.Time
			record     Record
		)
		if err := rows.Scan(&id, &record.KeyID, &record.UserID, &record.Source, &record.Method, &record.Fee, &record.Status, &recordedAt); err != nil {
			return nil, err
		}
		record.ID = id.String()
		record.Timestamp = recordedAt.UTC()
		records = append(records, record)
	}
	return records, rows.Err()
}
