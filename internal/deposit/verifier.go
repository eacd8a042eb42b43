package deposit

import (
	"context"
	"errors"
	"strings"
)

// ErrVerificationFailed indicates the chain transaction could not be
// confirmed as a deposit by the claiming wallet.
var ErrVerificationFailed = errors.New("deposit verification failed")

// ChainVerifier confirms that a transaction hash carries a deposit event for
// the given wallet and amount on the deposit contract.
type ChainVerifier interface {
	VerifyDeposit(ctx context.Context, txHash, walletAddress string, amount int64) error
}

// NormalizeTxHash lowercases and validates a 0x-prefixed 32-byte transaction
// hash. Dedup and storage always work on the normalized form so case variants
// of one hash cannot be replayed as distinct deposits.
func NormalizeTxHash(txHash string) (string, error) {
	hash := strings.ToLower(strings.TrimSpace(txHash))
	if len(hash) != 66 || !strings.HasPrefix(hash, "0x") {
		return "", ErrVerificationFailed
	}
	for _, r := range hash[2:] {
		if (r < '0' || r > '9') && (r < 'a' || r > 'f') {
			return "", ErrVerificationFailed
		}
	}
	return hash, nil
}

// StaticVerifier accepts any well-formed transaction hash. It stands in for
// the RPC-backed verifier in tests and dev mode.
type StaticVerifier struct{}

// VerifyDeposit approves hashes that look like 0x-prefixed 32-byte values.
func (StaticVerifier) VerifyDeposit(_ context.Context, txHash, _ string, _ int64) error {
	_, err := NormalizeTxHash(txHash)
	return err
}
