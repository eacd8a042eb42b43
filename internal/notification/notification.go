package notification

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/hashscope/hashscope/internal/ledger"
)

const (
	// KindDepositCredited indicates a confirmed on-chain deposit was credited.
	KindDepositCredited = "deposit_credited"
	// KindWithdrawSettled indicates an owner-approved withdrawal was paid out.
	KindWithdrawSettled = "withdraw_settled"
	// KindUsageCharged indicates a usage fee was routed to a data provider.
	KindUsageCharged = "usage_charged"
)

// Message describes a notification payload.
type Message struct {
	Kind        string
	Destination string
	Body        string
}

// Notifier delivers notifications to downstream systems.
type Notifier interface {
	Send(ctx context.Context, message Message) error
}

// LoggerNotifier is a stub implementation that writes notifications to the logger.
type LoggerNotifier struct {
	logger *slog.Logger
}

// NewLoggerNotifier constructs a logging notifier stub.
func NewLoggerNotifier(logger *slog.Logger) *LoggerNotifier {
	return &LoggerNotifier{logger: logger}
}

// Send writes the message to the structured logger.
func (n *LoggerNotifier) Send(_ context.Context, message Message) error {
	if n == nil || n.logger == nil {
		return nil
	}
	n.logger.Info("notification", "kind", message.Kind, "destination", message.Destination, "body", message.Body)
	return nil
}

// LedgerEvents forwards ledger events to a Notifier, keyed by account.
type LedgerEvents struct {
	notifier Notifier
}

// NewLedgerEvents builds a ledger event sink backed by the given notifier.
func NewLedgerEvents(notifier Notifier) *LedgerEvents {
	return &LedgerEvents{notifier: notifier}
}

// Record translates a ledger event into a notification message.
func (s *LedgerEvents) Record(ctx context.Context, event ledger.Event) error {
	if s == nil || s.notifier == nil {
		return nil
	}
	msg := Message{Destination: event.Account}
	switch event.Kind {
	case ledger.EventDeposit:
		msg.Kind = KindDepositCredited
		msg.Body = fmt.Sprintf("Deposit of %d credited", event.Amount)
	case ledger.EventWithdraw:
		msg.Kind = KindWithdrawSettled
		msg.Body = fmt.Sprintf("Withdrawal of %d settled", event.Amount)
	case ledger.EventUsageDeducted:
		msg.Kind = KindUsageCharged
		msg.Body = fmt.Sprintf("Usage fee of %d routed to %s", event.Amount, event.Recipient)
	default:
		return nil
	}
	return s.notifier.Send(ctx, msg)
}
