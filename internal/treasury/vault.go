// Package treasury tracks the protocol's own funds: operational funding for
// automation, prepayment for the randomness service, and accrued market fees.
// All three are tracked independently of market stakes.
package treasury

import (
	"errors"
	"sync"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
)

var (
	ErrInsufficientFunds = errors.New("insufficient vault funds")
	ErrUnauthorized      = errors.New("deposits are restricted to the vault operator")
)

// Vault holds the treasury balances. Deposits are credit-only and restricted
// to the configured operator; debits happen only inside the resolution
// pipeline, never to an arbitrary address.
type Vault struct {
	mu       sync.RWMutex
	operator string

	operational uint64
	randomness  uint64
	fees        uint64
	version     uint64

	log *logrus.Entry
}

// NewVault creates a vault administered by operator.
func NewVault(operator string, log *logrus.Logger) *Vault {
	if log == nil {
		log = logrus.StandardLogger()
	}
	return &Vault{
		operator: operator,
		log:      log.WithField("component", "treasury"),
	}
}

// Account is the token account the vault's fee income is paid into.
func (v *Vault) Account() string {
	return "treasury:" + v.operator
}

// DepositOperationalFunds credits the automation funding balance.
func (v *Vault) DepositOperationalFunds(from string, amount uint64) error {
	v.mu.Lock()
	defer v.mu.Unlock()
	if from != v.operator {
		return ErrUnauthorized
	}
	v.operational += amount
	v.version++
	v.log.WithField("amount", amount).Info("Operational funds deposited")
	return nil
}

// DepositRandomnessFunds credits the randomness-service funding balance.
func (v *Vault) DepositRandomnessFunds(from string, amount uint64) error {
	v.mu.Lock()
	defer v.mu.Unlock()
	if from != v.operator {
		return ErrUnauthorized
	}
	v.randomness += amount
	v.version++
	v.log.WithField("amount", amount).Info("Randomness funds deposited")
	return nil
}

// DebitOperational pays an automation cost. Pipeline use only.
func (v *Vault) DebitOperational(amount uint64) error {
	v.mu.Lock()
	defer v.mu.Unlock()
	if v.operational < amount {
		return ErrInsufficientFunds
	}
	v.operational -= amount
	v.version++
	return nil
}

// DebitRandomness pays for one randomness request. Pipeline use only.
func (v *Vault) DebitRandomness(amount uint64) error {
	v.mu.Lock()
	defer v.mu.Unlock()
	if v.randomness < amount {
		return ErrInsufficientFunds
	}
	v.randomness -= amount
	v.version++
	return nil
}

// CreditFee records a settled market's protocol fee. The credit is a single
// atomic step under the vault lock, so concurrently settling markets cannot
// lose updates.
func (v *Vault) CreditFee(marketID uuid.UUID, amount uint64) {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.fees += amount
	v.version++
	v.log.WithFields(logrus.Fields{
		"market_id": marketID.String(),
		"amount":    amount,
	}).Info("Protocol fee credited")
}

// Balances is a read-only snapshot of vault state.
type Balances struct {
	Operational uint64 `json:"operational"`
	Randomness  uint64 `json:"randomness"`
	Fees        uint64 `json:"fees"`
	Version     uint64 `json:"version"`
}

// Snapshot returns the current balances.
func (v *Vault) Snapshot() Balances {
	v.mu.RLock()
	defer v.mu.RUnlock()
	return Balances{
		Operational: v.operational,
		Randomness:  v.randomness,
		Fees:        v.fees,
		Version:     v.version,
	}
}
