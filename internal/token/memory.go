package token

import "sync"

// MemoryLedger is an in-process stable-token ledger with ERC-20 allowance
// semantics. It is the host ledger in development and tests; production
// deployments use the on-chain ERC20 adapter instead.
type MemoryLedger struct {
	mu         sync.Mutex
	balances   map[string]uint64
	allowances map[string]map[string]uint64 // owner -> spender -> remaining
}

// NewMemoryLedger creates an empty ledger.
func NewMemoryLedger() *MemoryLedger {
	return &MemoryLedger{
		balances:   make(map[string]uint64),
		allowances: make(map[string]map[string]uint64),
	}
}

// Mint credits freshly created units to an account. Dev/test only.
func (l *MemoryLedger) Mint(account string, amount uint64) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.balances[account] += amount
}

// BalanceOf implements Ledger.
func (l *MemoryLedger) BalanceOf(account string) (uint64, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.balances[account], nil
}

// Transfer implements Ledger.
func (l *MemoryLedger) Transfer(from, to string, amount uint64) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.balances[from] < amount {
		return ErrInsufficientBalance
	}
	l.balances[from] -= amount
	l.balances[to] += amount
	return nil
}

// Approve implements Ledger.
func (l *MemoryLedger) Approve(owner, spender string, amount uint64) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	spenders, ok := l.allowances[owner]
	if !ok {
		spenders = make(map[string]uint64)
		l.allowances[owner] = spenders
	}
	spenders[spender] = amount
	return nil
}

// Allowance returns the remaining approved amount.
func (l *MemoryLedger) Allowance(owner, spender string) uint64 {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.allowances[owner][spender]
}

// TransferFrom implements Ledger. The spender's allowance is consumed
// together with the balance move, under one lock.
func (l *MemoryLedger) TransferFrom(spender, from, to string, amount uint64) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.allowances[from][spender] < amount {
		return ErrInsufficientAllowance
	}
	if l.balances[from] < amount {
		return ErrInsufficientBalance
	}
	l.allowances[from][spender] -= amount
	l.balances[from] -= amount
	l.balances[to] += amount
	return nil
}
