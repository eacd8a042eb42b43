package deposit

import (
	"context"
	"errors"
	"sort"
	"sync"
	"time"
)

type memoryRepository struct {
	mu  sync.RWMutex
	txs map[string]Transaction
}

// NewMemoryRepository builds an in-memory deposit store for tests and dev mode.
func NewMemoryRepository() Repository {
	return &memoryRepository{txs: make(map[string]Transaction)}
}

func (r *memoryRepository) Create(_ context.Context, tx Transaction) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, exists := r.txs[tx.TxHash]; exists {
		return ErrDuplicateHash
	}
	r.txs[tx.TxHash] = tx
	return nil
}

func (r *memoryRepository) FindByHash(_ context.Context, txHash string) (Transaction, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	tx, ok := r.txs[txHash]
	if !ok {
		return Transaction{}, errors.New("deposit not found")
	}
	return tx, nil
}

func (r *memoryRepository) UpdateStatus(_ context.Context, id, status string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for hash, tx := range r.txs {
		if tx.ID == id {
			tx.Status = status
			tx.UpdatedAt = time.Now().UTC()
			r.txs[hash] = tx
			return nil
		}
	}
	return errors.New("deposit not found")
}

func (r *memoryRepository) ListByUser(_ context.Context, userID string, limit int) ([]Transaction, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	if limit <= 0 {
		limit = 50
	}
	var txs []Transaction
	for _, tx := range r.txs {
		if tx.UserID == userID {
			txs = append(txs, tx)
		}
	}
	sort.Slice(txs, func(i, j int) bool { return txs[i].CreatedAt.After(txs[j].CreatedAt) })
	if len(txs) > limit {
		txs = txs[:limit]
	}
	return txs, nil
}
