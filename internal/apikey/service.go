package apikey

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"

	"github.com/hashscope/hashscope/internal/identity"
	"github.com/hashscope/hashscope/internal/ledger"
)

const (
	defaultRateLimit = 60
	defaultValidity  = 365 * 24 * time.Hour
)

var (
	// ErrNoDeposit indicates the user has no positive recorded balance and
	// therefore cannot be issued a key.
	ErrNoDeposit = errors.New("insufficient deposited balance")

	// ErrBadCredentials indicates the presented key credential is invalid,
	// inactive or expired.
	ErrBadCredentials = errors.New("invalid api key credentials")
)

// Service manages API key issuance and authentication.
type Service struct {
	repo   Repository
	ids    identity.Repository
	ledger ledger.Ledger
}

// NewService builds an API key service.
func NewService(repo Repository, ids identity.Repository, ledgerBackend ledger.Ledger) *Service {
	return &Service{repo: repo, ids: ids, ledger: ledgerBackend}
}

// CreateInput captures key creation parameters.
type CreateInput struct {
	Name            string
	RateLimitPerMin int
}

// Create issues a new key for the user. Requires a positive deposited
// balance; the plaintext secret is returned exactly once.
func (s *Service) Create(ctx context.Context, userID string, input CreateInput) (Key, string, error) {
	user, err := s.ids.FindByID(ctx, userID)
	if err != nil {
		return Key{}, "", err
	}

	balance, err := s.ledger.Balance(ctx, user.WalletAddress)
	if err != nil {
		return Key{}, "", err
	}
	if balance <= 0 {
		return Key{}, "", ErrNoDeposit
	}

	pair, err := GeneratePair()
	if err != nil {
		return Key{}, "", err
	}

	rateLimit := input.RateLimitPerMin
	if rateLimit <= 0 {
		rateLimit = defaultRateLimit
	}

	now := time.Now().UTC()
	key := Key{
		ID:              uuid.New().String(),
		KeyID:           pair.KeyID,
		SecretHash:      pair.SecretHash,
		UserID:          user.ID,
		Name:            input.Name,
		Active:          true,
		RateLimitPerMin: rateLimit,
		CreatedAt:       now,
		ExpiresAt:       now.Add(defaultValidity),
	}

	if err := s.repo.Create(ctx, key); err != nil {
		return Key{}, "", err
	}

	return key, pair.Secret, nil
}

// List returns the user's keys.
func (s *Service) List(ctx context.Context, userID string) ([]Key, error) {
	return s.repo.ListByUser(ctx, userID)
}

// Get returns one of the user's keys by its public identifier.
func (s *Service) Get(ctx context.Context, userID, keyID string) (Key, error) {
	return s.repo.GetForUser(ctx, userID, keyID)
}

// Delete removes one of the user's keys.
func (s *Service) Delete(ctx context.Context, userID, keyID string) error {
	return s.repo.Delete(ctx, userID, keyID)
}

// Authenticate validates a key credential, bumps its usage counters and
// returns the key together with its owner.
func (s *Service) Authenticate(ctx context.Context, keyID, secret string) (Key, identity.User, error) {
	key, err := s.repo.FindByKeyID(ctx, keyID)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return Key{}, identity.User{}, ErrBadCredentials
		}
		return Key{}, identity.User{}, err
	}

	if !key.Active || key.Expired(time.Now()) {
		return Key{}, identity.User{}, ErrBadCredentials
	}
	if err := bcrypt.CompareHashAndPassword(key.SecretHash, []byte(secret)); err != nil {
		return Key{}, identity.User{}, ErrBadCredentials
	}

	user, err := s.ids.FindByID(ctx, key.UserID)
	if err != nil {
		return Key{}, identity.User{}, err
	}

	if err := s.repo.TouchUsage(ctx, key.KeyID, time.Now()); err != nil {
		return Key{}, identity.User{}, err
	}
	key.CallCount++

	return key, user, nil
}
