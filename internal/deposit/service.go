package deposit

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/hashscope/hashscope/internal/identity"
	"github.com/hashscope/hashscope/internal/ledger"
	"github.com/hashscope/hashscope/internal/notification"
)

// Service mirrors confirmed on-chain deposits into the ledger.
type Service struct {
	ledger   ledger.Ledger
	repo     Repository
	ids      identity.Repository
	verifier ChainVerifier
	notifier notification.Notifier
}

// NewService builds a deposit service. A nil verifier defaults to the static
// implementation.
func NewService(ledgerBackend ledger.Ledger, repo Repository, ids identity.Repository, verifier ChainVerifier, notifier notification.Notifier) (*Service, error) {
	if ledgerBackend == nil {
		return nil, fmt.Errorf("ledger is required")
	}
	if repo == nil {
		return nil, fmt.Errorf("deposit repository is required")
	}
	if verifier == nil {
		verifier = StaticVerifier{}
	}
	return &Service{ledger: ledgerBackend, repo: repo, ids: ids, verifier: verifier, notifier: notifier}, nil
}

// NotifyInput captures a client's claim that a deposit transaction confirmed.
type NotifyInput struct {
	UserID string
	TxHash string
	Amount int64
}

// NotifyResult describes the outcome of a processed deposit notification.
type NotifyResult struct {
	TransactionID string
	Status        string
	NewBalance    int64
	CompletedAt   time.Time
}

// Notify verifies the claimed transaction on chain and credits the user's
// recorded balance. Each hash is processed at most once.
func (s *Service) Notify(ctx context.Context, input NotifyInput) (NotifyResult, error) {
	if input.Amount <= 0 {
		return NotifyResult{}, ledger.ErrZeroAmount
	}
	txHash, err := NormalizeTxHash(input.TxHash)
	if err != nil {
		return NotifyResult{}, fmt.Errorf("%w: malformed transaction hash", ErrVerificationFailed)
	}

	user, err := s.ids.FindByID(ctx, input.UserID)
	if err != nil {
		return NotifyResult{}, err
	}

	now := time.Now().UTC()
	record := Transaction{
		ID:            uuid.New().String(),
		UserID:        user.ID,
		WalletAddress: user.WalletAddress,
		TxHash:        txHash,
		Amount:        input.Amount,
		Status:        StatusPending,
		CreatedAt:     now,
		UpdatedAt:     now,
	}
	if err := s.repo.Create(ctx, record); err != nil {
		return NotifyResult{}, err
	}

	if err := s.verifier.VerifyDeposit(ctx, txHash, user.WalletAddress, input.Amount); err != nil {
		_ = s.repo.UpdateStatus(ctx, record.ID, StatusFailed)
		return NotifyResult{}, fmt.Errorf("%w: %v", ErrVerificationFailed, err)
	}

	balance, err := s.ledger.Deposit(ctx, user.WalletAddress, input.Amount)
	if err != nil {
		_ = s.repo.UpdateStatus(ctx, record.ID, StatusFailed)
		return NotifyResult{}, err
	}

	if err := s.repo.UpdateStatus(ctx, record.ID, StatusCompleted); err != nil {
		return NotifyResult{}, err
	}

	if s.notifier != nil {
		_ = s.notifier.Send(ctx, notification.Message{
			Kind:        notification.KindDepositCredited,
			Destination: user.WalletAddress,
			Body:        fmt.Sprintf("Deposit %s credited %d", txHash, input.Amount),
		})
	}

	return NotifyResult{
		TransactionID: record.ID,
		Status:        StatusCompleted,
		NewBalance:    balance,
		CompletedAt:   time.Now().UTC(),
	}, nil
}

// History returns recent deposit records for a user.
func (s *Service) History(ctx context.Context, userID string, limit int) ([]Transaction, error) {
	return s.repo.ListByUser(ctx, userID, limit)
}
