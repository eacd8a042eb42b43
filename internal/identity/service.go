package identity

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"

	"github.com/hashscope/hashscope/internal/ledger"
)

// ErrWalletTaken indicates the wallet address is already registered.
var ErrWalletTaken = errors.New("wallet address already registered")

// Service manages identity lifecycle.
type Service struct {
	repo Repository
}

// NewService creates a new identity service.
func NewService(repo Repository) *Service {
	return &Service{repo: repo}
}

// Register provisions a user keyed by their wallet address.
func (s *Service) Register(ctx context.Context, input RegisterInput) (User, error) {
	address, err := ledger.NormalizeAddress(input.WalletAddress)
	if err != nil {
		return User{}, err
	}

	if _, err := s.repo.FindByWallet(ctx, address); err == nil {
		return User{}, ErrWalletTaken
	} else if !errors.Is(err, ErrNotFound) {
		return User{}, err
	}

	user := User{
		ID:            uuid.New().String(),
		WalletAddress: address,
		Username:      input.Username,
		Email:         input.Email,
		CreatedAt:     time.Now().UTC(),
	}

	if err := s.repo.Create(ctx, user); err != nil {
		return User{}, err
	}

	return user, nil
}

// Get retrieves a user by identifier.
func (s *Service) Get(ctx context.Context, id string) (User, error) {
	return s.repo.FindByID(ctx, id)
}

// GetByWallet retrieves a user by their normalized wallet address.
func (s *Service) GetByWallet(ctx context.Context, walletAddress string) (User, error) {
	address, err := ledger.NormalizeAddress(walletAddress)
	if err != nil {
		return User{}, err
	}
	return s.repo.FindByWallet(ctx, address)
}
