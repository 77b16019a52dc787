package market

import (
	"fmt"
	"math/big"

	"predictionmarket-backend/internal/metrics"

	"github.com/sirupsen/logrus"
)

// Settle takes the protocol fee from the losing pool and transitions
// Resolved -> Settled. The fee base is the full losing pool, so it is computed
// and transferred before any individual payout. When nobody staked the winning
// side there is no one to distribute to: no fee is taken and every claim
// becomes a refund of the original stake. Settle is idempotent once settled.
func (m *Market) Settle() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.settleLocked()
}

// settleLocked must hold m.mu.
func (m *Market) settleLocked() error {
	switch m.status {
	case StatusSettled:
		return nil
	case StatusResolved:
	default:
		return ErrMarketNotResolved
	}

	res := m.resolution
	var fee uint64
	if res.WinningPool > 0 && res.LosingPool > 0 && m.feeBps > 0 {
		fee = mulDiv(res.LosingPool, m.feeBps, OddsBasis)
	}

	if fee > 0 {
		// Vault credit and ledger record precede the outbound transfer; a
		// failed transfer rolls the record back and leaves the market Resolved.
		res.FeeTaken = fee
		if err := m.deps.Token.Transfer(m.Account(), m.deps.Vault.Account(), fee); err != nil {
			res.FeeTaken = 0
			return fmt.Errorf("fee transfer: %w", err)
		}
		m.deps.Vault.CreditFee(m.id, fee)
		metrics.FeesAccrued.Add(float64(fee))
	}

	now := m.deps.Now()
	res.SettledAt = &now
	m.status = StatusSettled

	m.log.WithFields(logrus.Fields{
		"fee":          fee,
		"winning_pool": res.WinningPool,
		"losing_pool":  res.LosingPool,
	}).Info("Market settled")
	m.emitLocked(EventMarketSettled, nil)
	return nil
}

// ClaimPayout pays a participant their share of a resolved market and zeroes
// their stake entries exactly once. Winners receive their own stake back plus
// a pro-rata share of the losing pool net of fee; losers receive zero. If the
// winning pool is empty every staker is refunded their original stake.
//
// The ledger entry is zeroed before the outbound token transfer is issued, so
// a reentrant token cannot observe a half-updated ledger; a failed transfer
// restores the entry and reports the error.
func (m *Market) ClaimPayout(participant string) (uint64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	switch m.status {
	case StatusResolved:
		if err := m.settleLocked(); err != nil {
			return 0, err
		}
	case StatusSettled:
	default:
		return 0, ErrMarketNotResolved
	}

	if m.ledger.HasClaimed(participant) {
		return 0, ErrAlreadyClaimed
	}
	if !m.ledger.HasStaked(participant) {
		return 0, ErrNoStake
	}

	payout := m.payoutLocked(participant)
	yes, no := m.ledger.Clear(participant)

	if payout > 0 {
		if err := m.deps.Token.Transfer(m.Account(), participant, payout); err != nil {
			m.ledger.Restore(participant, yes, no)
			return 0, fmt.Errorf("payout transfer: %w", err)
		}
	}

	metrics.PayoutsClaimed.Inc()
	metrics.PayoutVolume.Add(float64(payout))
	m.log.WithFields(logrus.Fields{
		"participant": participant,
		"payout":      payout,
	}).Info("Payout claimed")
	m.emitLocked(EventPayoutClaimed, &EventDetail{
		Participant: participant,
		Amount:      payout,
	})
	return payout, nil
}

// payoutLocked computes a participant's payout from the immutable resolution
// record. Must hold m.mu, with the market settled.
func (m *Market) payoutLocked(participant string) uint64 {
	res := m.resolution

	// Empty winning pool: full refund of whatever was staked, no fee.
	if res.WinningPool == 0 {
		return m.ledger.StakeOf(participant, SideYes) + m.ledger.StakeOf(participant, SideNo)
	}

	stake := m.ledger.StakeOf(participant, res.Outcome)
	if stake == 0 {
		return 0
	}
	netLosing := res.LosingPool - res.FeeTaken
	return stake + mulDiv(stake, netLosing, res.WinningPool)
}

// mulDiv computes a*b/denom without intermediate uint64 overflow.
func mulDiv(a, b, denom uint64) uint64 {
	product := new(big.Int).Mul(new(big.Int).SetUint64(a), new(big.Int).SetUint64(b))
	return product.Div(product, new(big.Int).SetUint64(denom)).Uint64()
}
