package usage

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/hashscope/hashscope/internal/ledger"
	"github.com/hashscope/hashscope/internal/notification"
)

// Service meters API calls and collects usage fees through the ledger.
//
// The service acts for the ledger owner: fee deductions are privileged calls
// carried out with the configured owner principal.
type Service struct {
	repo     Repository
	ledger   ledger.Ledger
	owner    string
	notifier notification.Notifier
	logger   *slog.Logger
}

// NewService builds a usage metering service.
func NewService(repo Repository, ledgerBackend ledger.Ledger, owner string, notifier notification.Notifier, logger *slog.Logger) *Service {
	return &Service{repo: repo, ledger: ledgerBackend, owner: owner, notifier: notifier, logger: logger}
}

// ChargeInput describes one billable API call.
type ChargeInput struct {
	KeyID    string
	UserID   string
	Account  string
	Source   string
	Method   string
	Fee      int64
	Provider string
}

// Charge records the call and routes the fee from the caller's balance to the
// data provider. Collection failure is recorded but never propagated: data
// already served must not be withdrawn because the fee bounced.
func (s *Service) Charge(ctx context.Context, input ChargeInput) (Record, error) {
	record := Record{
		ID:        uuid.New().String(),
		KeyID:     input.KeyID,
		UserID:    input.UserID,
		Source:    input.Source,
		Method:    input.Method,
		Fee:       input.Fee,
		Status:    StatusCharged,
		Timestamp: time.Now().UTC(),
	}

	if input.Fee > 0 {
		if _, err := s.ledger.DeductForUsage(ctx, s.owner, input.Account, input.Fee, input.Provider); err != nil {
			record.Status = StatusUncollected
			if s.logger != nil {
				s.logger.Warn("usage fee not collected",
					slog.String("key_id", input.KeyID),
					slog.String("source", input.Source),
					slog.Int64("fee", input.Fee),
					slog.Any("error", err),
				)
			}
			if s.logger != nil && errors.Is(err, ledger.ErrNotOwner) {
				// Misconfigured owner principal breaks all fee collection.
				s.logger.Error("usage service is not the ledger owner", slog.String("owner", s.owner))
			}
		}
	}

	if err := s.repo.Create(ctx, record); err != nil {
		return Record{}, err
	}

	if s.notifier != nil && record.Status == StatusCharged && input.Fee > 0 {
		_ = s.notifier.Send(ctx, notification.Message{
			Kind:        notification.KindUsageCharged,
			Destination: input.Provider,
			Body:        fmt.Sprintf("Usage fee %d collected for %s", input.Fee, input.Source),
		})
	}

	return record, nil
}

// History returns recent usage records for a key.
func (s *Service) History(ctx context.Context, keyID string, limit int) ([]Record, error) {
	return s.repo.ListByKey(ctx, keyID, limit)
}
