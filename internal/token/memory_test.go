package token

import (
	"errors"
	"sync"
	"testing"
	"testing/quick"
)

func TestTransfer(t *testing.T) {
	l := NewMemoryLedger()
	l.Mint("alice", 100)

	if err := l.Transfer("alice", "bob", 60); err != nil {
		t.Fatalf("Transfer: %v", err)
	}
	if b, _ := l.BalanceOf("alice"); b != 40 {
		t.Fatalf("alice = %d, want 40", b)
	}
	if b, _ := l.BalanceOf("bob"); b != 60 {
		t.Fatalf("bob = %d, want 60", b)
	}

	if err := l.Transfer("alice", "bob", 41); !errors.Is(err, ErrInsufficientBalance) {
		t.Fatalf("got %v, want ErrInsufficientBalance", err)
	}
}

func TestTransferFromConsumesAllowance(t *testing.T) {
	l := NewMemoryLedger()
	l.Mint("alice", 100)
	if err := l.Approve("alice", "market", 70); err != nil {
		t.Fatal(err)
	}

	if err := l.TransferFrom("market", "alice", "market", 50); err != nil {
		t.Fatalf("TransferFrom: %v", err)
	}
	if a := l.Allowance("alice", "market"); a != 20 {
		t.Fatalf("allowance = %d, want 20", a)
	}

	// Remaining allowance is 20 but the request is 30.
	if err := l.TransferFrom("market", "alice", "market", 30); !errors.Is(err, ErrInsufficientAllowance) {
		t.Fatalf("got %v, want ErrInsufficientAllowance", err)
	}
}

func TestTransferFromWithoutApproval(t *testing.T) {
	l := NewMemoryLedger()
	l.Mint("alice", 100)

	if err := l.TransferFrom("market", "alice", "market", 1); !errors.Is(err, ErrInsufficientAllowance) {
		t.Fatalf("got %v, want ErrInsufficientAllowance", err)
	}
}

func TestTransferFromAllowanceExceedsBalance(t *testing.T) {
	l := NewMemoryLedger()
	l.Mint("alice", 10)
	if err := l.Approve("alice", "market", 100); err != nil {
		t.Fatal(err)
	}

	if err := l.TransferFrom("market", "alice", "market", 50); !errors.Is(err, ErrInsufficientBalance) {
		t.Fatalf("got %v, want ErrInsufficientBalance", err)
	}
	// The failed transfer must not burn allowance.
	if a := l.Allowance("alice", "market"); a != 100 {
		t.Fatalf("allowance = %d, want 100", a)
	}
}

func TestConcurrentTransfersConserveSupply(t *testing.T) {
	l := NewMemoryLedger()
	accounts := []string{"a", "b", "c", "d"}
	for _, acct := range accounts {
		l.Mint(acct, 1000)
	}

	var wg sync.WaitGroup
	for i := 0; i < 100; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			from := accounts[i%len(accounts)]
			to := accounts[(i+1)%len(accounts)]
			_ = l.Transfer(from, to, uint64(i%7))
		}(i)
	}
	wg.Wait()

	var total uint64
	for _, acct := range accounts {
		b, _ := l.BalanceOf(acct)
		total += b
	}
	if total != 4000 {
		t.Fatalf("total supply = %d, want 4000", total)
	}
}

func TestTransferConservesSupplyProperty(t *testing.T) {
	property := func(mint uint64, amounts []uint64) bool {
		l := NewMemoryLedger()
		mint = mint % 1_000_000
		l.Mint("alice", mint)
		for _, amount := range amounts {
			_ = l.Transfer("alice", "bob", amount%1_000_000)
			_ = l.Transfer("bob", "alice", amount%500_000)
		}
		a, _ := l.BalanceOf("alice")
		b, _ := l.BalanceOf("bob")
		return a+b == mint
	}
	if err := quick.Check(property, nil); err != nil {
		t.Fatal(err)
	}
}
