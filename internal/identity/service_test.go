package identity

import (
	"context"
	"errors"
	"testing"

	"github.com/hashscope/hashscope/internal/ledger"
)

func TestRegisterNormalizesWallet(t *testing.T) {
	repo := NewMemoryRepository()
	svc := NewService(repo)
	ctx := context.Background()

	user, err := svc.Register(ctx, RegisterInput{WalletAddress: "0x00000000000000000000000000000000000000AB", Username: "alice"})
	if err != nil {
		t.Fatalf("register: %v", err)
	}
	if user.WalletAddress != "0x00000000000000000000000000000000000000ab" {
		t.Fatalf("wallet not normalized: %s", user.WalletAddress)
	}

	fetched, err := svc.GetByWallet(ctx, "0x00000000000000000000000000000000000000AB")
	if err != nil {
		t.Fatalf("get by wallet: %v", err)
	}
	if fetched.ID != user.ID {
		t.Fatalf("expected user %s, got %s", user.ID, fetched.ID)
	}
}

func TestRegisterDuplicateWallet(t *testing.T) {
	repo := NewMemoryRepository()
	svc := NewService(repo)
	ctx := context.Background()

	wallet := "0x00000000000000000000000000000000000000cd"
	if _, err := svc.Register(ctx, RegisterInput{WalletAddress: wallet}); err != nil {
		t.Fatalf("register: %v", err)
	}
	if _, err := svc.Register(ctx, RegisterInput{WalletAddress: wallet}); !errors.Is(err, ErrWalletTaken) {
		t.Fatalf("expected wallet taken, got %v", err)
	}
}

func TestRegisterRejectsBadAddress(t *testing.T) {
	svc := NewService(NewMemoryRepository())
	if _, err := svc.Register(context.Background(), RegisterInput{WalletAddress: "not-an-address"}); !errors.Is(err, ledger.ErrInvalidAddress) {
		t.Fatalf("expected invalid address, got %v", err)
	}
}
