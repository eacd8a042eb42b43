package deposit

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/hashscope/hashscope/internal/identity"
	"github.com/hashscope/hashscope/internal/ledger"
)

const (
	testOwner  = "0x00000000000000000000000000000000000000a1"
	testWallet = "0x00000000000000000000000000000000000000b2"
	testHash   = "0x1111111111111111111111111111111111111111111111111111111111111111"
)

type rejectingVerifier struct{}

func (rejectingVerifier) VerifyDeposit(_ context.Context, _, _ string, _ int64) error {
	return errors.New("no deposit event in receipt")
}

func newTestService(t *testing.T, verifier ChainVerifier) (*Service, ledger.Ledger, identity.User) {
	t.Helper()
	ctx := context.Background()

	led := ledger.NewInMemory(testOwner, nil, nil)
	ids := identity.NewMemoryRepository()
	idSvc := identity.NewService(ids)
	user, err := idSvc.Register(ctx, identity.RegisterInput{WalletAddress: testWallet})
	if err != nil {
		t.Fatalf("register: %v", err)
	}

	svc, err := NewService(led, NewMemoryRepository(), ids, verifier, nil)
	if err != nil {
		t.Fatalf("new service: %v", err)
	}
	return svc, led, user
}

func TestNotifyCreditsLedger(t *testing.T) {
	svc, led, user := newTestService(t, nil)
	ctx := context.Background()

	res, err := svc.Notify(ctx, NotifyInput{UserID: user.ID, TxHash: testHash, Amount: 10_000})
	if err != nil {
		t.Fatalf("notify: %v", err)
	}
	if res.Status != StatusCompleted {
		t.Fatalf("unexpected status: %s", res.Status)
	}
	if res.NewBalance != 10_000 {
		t.Fatalf("expected balance 10000, got %d", res.NewBalance)
	}

	balance, _ := led.Balance(ctx, testWallet)
	if balance != 10_000 {
		t.Fatalf("ledger not credited: %d", balance)
	}
}

func TestNotifyDuplicateHash(t *testing.T) {
	svc, _, user := newTestService(t, nil)
	ctx := context.Background()

	if _, err := svc.Notify(ctx, NotifyInput{UserID: user.ID, TxHash: testHash, Amount: 500}); err != nil {
		t.Fatalf("first notify: %v", err)
	}
	if _, err := svc.Notify(ctx, NotifyInput{UserID: user.ID, TxHash: testHash, Amount: 500}); !errors.Is(err, ErrDuplicateHash) {
		t.Fatalf("expected duplicate hash, got %v", err)
	}
}

func TestNotifyDuplicateHashIgnoresCase(t *testing.T) {
	svc, led, user := newTestService(t, nil)
	ctx := context.Background()

	lower := "0x" + strings.Repeat("abab", 16)
	upper := "0x" + strings.Repeat("ABAB", 16)

	if _, err := svc.Notify(ctx, NotifyInput{UserID: user.ID, TxHash: lower, Amount: 50}); err != nil {
		t.Fatalf("first notify: %v", err)
	}
	if _, err := svc.Notify(ctx, NotifyInput{UserID: user.ID, TxHash: upper, Amount: 50}); !errors.Is(err, ErrDuplicateHash) {
		t.Fatalf("expected duplicate hash for case variant, got %v", err)
	}

	balance, _ := led.Balance(ctx, testWallet)
	if balance != 50 {
		t.Fatalf("case variant double-credited: balance %d, want 50", balance)
	}
}

func TestNotifyVerificationFailure(t *testing.T) {
	svc, led, user := newTestService(t, rejectingVerifier{})
	ctx := context.Background()

	if _, err := svc.Notify(ctx, NotifyInput{UserID: user.ID, TxHash: testHash, Amount: 500}); !errors.Is(err, ErrVerificationFailed) {
		t.Fatalf("expected verification failure, got %v", err)
	}

	balance, _ := led.Balance(ctx, testWallet)
	if balance != 0 {
		t.Fatalf("ledger credited despite failed verification: %d", balance)
	}

	record, err := svc.repo.FindByHash(ctx, testHash)
	if err != nil {
		t.Fatalf("find record: %v", err)
	}
	if record.Status != StatusFailed {
		t.Fatalf("expected failed record, got %s", record.Status)
	}
}

func TestStaticVerifierRejectsMalformedHash(t *testing.T) {
	v := StaticVerifier{}
	ctx := context.Background()

	if err := v.VerifyDeposit(ctx, testHash, testWallet, 1); err != nil {
		t.Fatalf("well-formed hash rejected: %v", err)
	}
	for _, bad := range []string{"", "0x123", "abcdef"} {
		if err := v.VerifyDeposit(ctx, bad, testWallet, 1); !errors.Is(err, ErrVerificationFailed) {
			t.Fatalf("expected rejection for %q, got %v", bad, err)
		}
	}
}
