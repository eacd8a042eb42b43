package ledger

// SeedBalance is a test helper that credits an account and the held pool
// directly when using the in-memory ledger.
func SeedBalance(l Ledger, account string, amount int64) {
	if mem, ok := l.(*inMemoryLedger); ok {
		mem.mu.Lock()
		defer mem.mu.Unlock()
		mem.held += amount - mem.balances[account]
		mem.balances[account] = amount
	}
}
