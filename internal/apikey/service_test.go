package apikey

import (
	"context"
	"errors"
	"testing"

	"github.com/hashscope/hashscope/internal/identity"
	"github.com/hashscope/hashscope/internal/ledger"
)

const (
	testOwner  = "0x00000000000000000000000000000000000000a1"
	testWallet = "0x00000000000000000000000000000000000000b2"
)

func newTestService(t *testing.T) (*Service, ledger.Ledger, identity.User) {
	t.Helper()
	ctx := context.Background()

	led := ledger.NewInMemory(testOwner, nil, nil)
	ids := identity.NewMemoryRepository()
	user, err := identity.NewService(ids).Register(ctx, identity.RegisterInput{WalletAddress: testWallet})
	if err != nil {
		t.Fatalf("register: %v", err)
	}

	return NewService(NewMemoryRepository(), ids, led), led, user
}

func TestCreateRequiresDeposit(t *testing.T) {
	svc, led, user := newTestService(t)
	ctx := context.Background()

	if _, _, err := svc.Create(ctx, user.ID, CreateInput{Name: "agent"}); !errors.Is(err, ErrNoDeposit) {
		t.Fatalf("expected no-deposit error, got %v", err)
	}

	ledger.SeedBalance(led, testWallet, 1_000)

	key, secret, err := svc.Create(ctx, user.ID, CreateInput{Name: "agent"})
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if len(key.KeyID) != keyIDLength || len(secret) != secretLength {
		t.Fatalf("unexpected credential lengths: %d/%d", len(key.KeyID), len(secret))
	}
	if key.RateLimitPerMin != defaultRateLimit {
		t.Fatalf("expected default rate limit, got %d", key.RateLimitPerMin)
	}
}

func TestAuthenticate(t *testing.T) {
	svc, led, user := newTestService(t)
	ctx := context.Background()
	ledger.SeedBalance(led, testWallet, 1_000)

	key, secret, err := svc.Create(ctx, user.ID, CreateInput{Name: "agent"})
	if err != nil {
		t.Fatalf("create: %v", err)
	}

	authed, owner, err := svc.Authenticate(ctx, key.KeyID, secret)
	if err != nil {
		t.Fatalf("authenticate: %v", err)
	}
	if owner.ID != user.ID {
		t.Fatalf("expected owner %s, got %s", user.ID, owner.ID)
	}
	if authed.CallCount != 1 {
		t.Fatalf("expected call count 1, got %d", authed.CallCount)
	}

	if _, _, err := svc.Authenticate(ctx, key.KeyID, "wrong-secret"); !errors.Is(err, ErrBadCredentials) {
		t.Fatalf("expected bad credentials, got %v", err)
	}
	if _, _, err := svc.Authenticate(ctx, "nosuchkey", secret); !errors.Is(err, ErrBadCredentials) {
		t.Fatalf("expected bad credentials for unknown key, got %v", err)
	}
}

func TestDelete(t *testing.T) {
	svc, led, user := newTestService(t)
	ctx := context.Background()
	ledger.SeedBalance(led, testWallet, 1_000)

	key, _, err := svc.Create(ctx, user.ID, CreateInput{})
	if err != nil {
		t.Fatalf("create: %v", err)
	}

	if err := svc.Delete(ctx, user.ID, key.KeyID); err != nil {
		t.Fatalf("delete: %v", err)
	}
	if err := svc.Delete(ctx, user.ID, key.KeyID); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected not found, got %v", err)
	}

	keys, err := svc.List(ctx, user.ID)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(keys) != 0 {
		t.Fatalf("expected no keys, got %d", len(keys))
	}
}
