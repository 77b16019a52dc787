// Package token provides the fungible stake-token collaborator. Amounts are
// integer units of a 6-decimal stable token; the engine only ever moves exact
// staked and payout amounts and never mints or burns outside the dev ledger.
package token

import "errors"

var (
	ErrInsufficientBalance   = errors.New("insufficient token balance")
	ErrInsufficientAllowance = errors.New("insufficient token allowance")
)

// Ledger is the standard fungible-token surface the engine depends on.
type Ledger interface {
	BalanceOf(account string) (uint64, error)
	Transfer(from, to string, amount uint64) error
	TransferFrom(spender, from, to string, amount uint64) error
	Approve(owner, spender string, amount uint64) error
}
