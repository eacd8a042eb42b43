package catalog

import (
	"context"
	"errors"
	"sort"
	"sync"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// ErrNotFound indicates the requested data source does not exist.
var ErrNotFound = errors.New("data source not found")

// Repository lists registered data sources.
type Repository interface {
	List(ctx context.Context) ([]Source, error)
	Get(ctx context.Context, id string) (Source, error)
}

// PostgresRepository reads the source registry from PostgreSQL.
type PostgresRepository struct {
	db *pgxpool.Pool
}

// NewPostgresRepository builds a Postgres-backed catalog repository.
func NewPostgresRepository(db *pgxpool.Pool) *PostgresRepository {
	return &PostgresRepository{db: db}
}

// List returns all active sources.
func (r *PostgresRepository) List(ctx context.Context) ([]Source, error) {
	rows, err := r.db.Query(ctx, `SELECT id, name, description, provider_address, fee_per_call, currency, is_active
        FROM data_sources WHERE is_active ORDER BY id`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var sources []Source
	for rows.Next() {
		var s Source
		if err := rows.Scan(&s.ID, &s.Name, &s.Description, &s.ProviderAddress, &s.FeePerCall, &s.Currency, &s.Active); err != nil {
			return nil, err
		}
		sources = append(sources, s)
	}
	return sources, rows.Err()
}

// Get fetches one source by identifier.
func (r *PostgresRepository) Get(ctx context.Context, id string) (Source, error) {
	var s Source
	err := r.db.QueryRow(ctx, `SELECT id, name, description, provider_address, fee_per_call, currency, is_active
        FROM data_sources WHERE id = $1`, id).
		Scan(&s.ID, &s.Name, &s.Description, &s.ProviderAddress, &s.FeePerCall, &s.Currency, &s.Active)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Source{}, ErrNotFound
		}
		return Source{}, err
	}
	return s, nil
}

type memoryRepository struct {
	mu      sync.RWMutex
	sources map[string]Source
}

// NewMemoryRepository builds an in-memory registry seeded with the default
// marketplace sources. Used in tests and dev mode.
func NewMemoryRepository(sources ...Source) Repository {
	if len(sources) == 0 {
		sources = DefaultSources()
	}
	byID := make(map[string]Source, len(sources))
	for _, s := range sources {
		byID[s.ID] = s
	}
	return &memoryRepository{sources: byID}
}

func (r *memoryRepository) List(_ context.Context) ([]Source, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	var sources []Source
	for _, s := range r.sources {
		if s.Active {
			sources = append(sources, s)
		}
	}
	sort.Slice(sources, func(i, j int) bool { return sources[i].ID < sources[j].ID })
	return sources, nil
}

func (r *memoryRepository) Get(_ context.Context, id string) (Source, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	s, ok := r.sources[id]
	if !ok {
		return Source{}, ErrNotFound
	}
	return s, nil
}

// DefaultSources returns the built-in feed registry.
func DefaultSources() []Source {
	return []Source{
		{
			ID:              "btc-usd",
			Name:            "BTC/USD spot",
			Description:     "Latest bitcoin spot price aggregated across exchanges",
			ProviderAddress: "0x00000000000000000000000000000000000000d1",
			FeePerCall:      5,
			Currency:        "USD",
			Active:          true,
		},
		{
			ID:              "eth-usd",
			Name:            "ETH/USD spot",
			Description:     "Latest ether spot price aggregated across exchanges",
			ProviderAddress: "0x00000000000000000000000000000000000000d2",
			FeePerCall:      5,
			Currency:        "USD",
			Active:          true,
		},
		{
			ID:              "kimchi-premium",
			Name:            "Kimchi premium",
			Description:     "KRW/USD bitcoin price premium between Upbit and Binance",
			ProviderAddress: "0x00000000000000000000000000000000000000d3",
			FeePerCall:      10,
			Currency:        "PCT",
			Active:          true,
		},
		{
			ID:              "funding-rates",
			Name:            "Perp funding rates",
			Description:     "Current perpetual futures funding rates for majors",
			ProviderAddress: "0x00000000000000000000000000000000000000d4",
			FeePerCall:      8,
			Currency:        "PCT",
			Active:          true,
		},
	}
}
