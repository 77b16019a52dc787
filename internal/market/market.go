package market

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"

	"predictionmarket-backend/internal/metrics"
)

// Status represents the lifecycle stage of a prediction market.
// Transitions only ever move forward: Open -> Closed -> Resolving -> Resolved -> Settled,
// with Resolving skipped when the oracle reading is unambiguous.
type Status int

const (
	StatusOpen      Status = iota // Accepting bets
	StatusClosed                  // Deadline passed, awaiting resolution
	StatusResolving               // Tie observed, awaiting randomness fulfillment
	StatusResolved                // Outcome fixed, payouts computable
	StatusSettled                 // Fee taken, terminal
)

func (s Status) String() string {
	switch s {
	case StatusOpen:
		return "open"
	case StatusClosed:
		return "closed"
	case StatusResolving:
		return "resolving"
	case StatusResolved:
		return "resolved"
	case StatusSettled:
		return "settled"
	default:
		return "unknown"
	}
}

// Side is the side of a binary market a stake is placed on.
type Side string

const (
	SideYes Side = "YES"
	SideNo  Side = "NO"
)

// Valid reports whether the side is one of the two defined sides.
func (s Side) Valid() bool {
	return s == SideYes || s == SideNo
}

// Opposite returns the other side.
func (s Side) Opposite() Side {
	if s == SideYes {
		return SideNo
	}
	return SideYes
}

// Outcome is the resolved result of a market. nil until resolution.
type Outcome = Side

// TokenLedger is the fungible stake-token collaborator. The market only ever
// moves the exact staked and payout amounts; it never mints or burns.
type TokenLedger interface {
	// TransferFrom moves previously approved funds from a participant into
	// the spender's account.
	TransferFrom(spender, from, to string, amount uint64) error
	// Transfer moves funds out of the caller's own account.
	Transfer(from, to string, amount uint64) error
}

// PriceSource is the read-value capability of the external price feed. A
// failed or stale read must return an error; the caller surfaces it as the
// retryable ErrOracleUnavailable.
type PriceSource interface {
	Observe(ctx context.Context) (decimal.Decimal, error)
}

// RandomnessGate is the request half of the verifiable-randomness protocol.
// Fulfillment arrives later through Market.FulfillRandomness, correlated by
// the returned request id.
type RandomnessGate interface {
	Request(ctx context.Context) (uuid.UUID, error)
}

// FeeVault receives the protocol fee accrued at settlement.
type FeeVault interface {
	CreditFee(marketID uuid.UUID, amount uint64)
	Account() string
}

// Deps are the external collaborators a market is constructed with. All are
// fixed at construction; there is no runtime dispatch.
type Deps struct {
	Token      TokenLedger
	Oracle     PriceSource
	Randomness RandomnessGate
	Vault      FeeVault
	Now        func() time.Time
	OnEvent    func(Event)
	Log        *logrus.Logger
}

// Resolution is the immutable audit record written when the outcome is fixed
// and completed at settlement.
type Resolution struct {
	Outcome     Outcome         `json:"outcome"`
	Value       decimal.Decimal `json:"value"`
	RandomValue *uint64         `json:"random_value,omitempty"`
	WinningPool uint64          `json:"winning_pool"`
	LosingPool  uint64          `json:"losing_pool"`
	FeeTaken    uint64          `json:"fee_taken"`
	ResolvedAt  time.Time       `json:"resolved_at"`
	SettledAt   *time.Time      `json:"settled_at,omitempty"`
}

// Market is one binary-outcome staking event. All state mutation is serialized
// by the market's own mutex: every public operation either fully commits or
// leaves the market in its pre-call state.
type Market struct {
	mu sync.Mutex

	id         uuid.UUID
	question   string
	asset      string
	baseAsset  string
	target     decimal.Decimal
	feeBps     uint64
	createdAt  time.Time
	resolvesAt time.Time

	status     Status
	ledger     *StakeLedger
	resolution *Resolution
	pending    *uuid.UUID
	tieValue   decimal.Decimal

	deps Deps
	log  *logrus.Entry
}

// Config carries the immutable parameters of a new market.
type Config struct {
	Question   string
	Asset      string
	BaseAsset  string
	Target     decimal.Decimal
	FeeBps     uint64
	ResolvesAt time.Time
}

// New creates a market in the Open state. Callers are expected to go through
// Registry.CreateMarket, which validates the deadline.
func New(cfg Config, deps Deps) *Market {
	if deps.Now == nil {
		deps.Now = time.Now
	}
	if deps.Log == nil {
		deps.Log = logrus.StandardLogger()
	}
	m := &Market{
		id:         uuid.New(),
		question:   cfg.Question,
		asset:      cfg.Asset,
		baseAsset:  cfg.BaseAsset,
		target:     cfg.Target,
		feeBps:     cfg.FeeBps,
		createdAt:  deps.Now(),
		resolvesAt: cfg.ResolvesAt,
		status:     StatusOpen,
		ledger:     NewStakeLedger(),
		deps:       deps,
	}
	m.log = deps.Log.WithField("market_id", m.id.String())
	return m
}

// ID returns the market's identity.
func (m *Market) ID() uuid.UUID { return m.id }

// Account is the token account holding this market's staked funds.
func (m *Market) Account() string {
	return "market:" + m.id.String()
}

// Status returns the current lifecycle state.
func (m *Market) Status() Status {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.status
}

// ResolvesAt returns the resolution deadline.
func (m *Market) ResolvesAt() time.Time { return m.resolvesAt }

// PendingRequest returns the outstanding randomness request id, if any.
func (m *Market) PendingRequest() *uuid.UUID {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.pending == nil {
		return nil
	}
	id := *m.pending
	return &id
}

// PlaceBet stakes amount on side for participant. Valid only while the market
// is Open and before the resolution deadline. The token transfer into the
// market account happens first; the ledger records the stake only after the
// funds are held, so pool totals always equal funds actually transferred in.
func (m *Market) PlaceBet(participant string, side Side, amount uint64) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.status != StatusOpen || !m.deps.Now().Before(m.resolvesAt) {
		return ErrMarketClosed
	}
	if amount == 0 {
		return ErrInvalidAmount
	}
	if !side.Valid() {
		return ErrInvalidSide
	}

	if err := m.deps.Token.TransferFrom(m.Account(), participant, m.Account(), amount); err != nil {
		return fmt.Errorf("stake transfer: %w", err)
	}

	m.ledger.Record(participant, side, amount, m.deps.Now())
	metrics.BetsPlaced.WithLabelValues(string(side)).Inc()
	metrics.StakeVolume.WithLabelValues(string(side)).Add(float64(amount))

	m.log.WithFields(logrus.Fields{
		"participant": participant,
		"side":        side,
		"amount":      amount,
	}).Info("Bet placed")

	m.emitLocked(EventBetPlaced, &EventDetail{
		Participant: participant,
		Side:        side,
		Amount:      amount,
	})
	return nil
}

// CloseForBetting transitions Open -> Closed once the deadline has passed.
// Callable by anyone; a no-op when the market is already past Open.
func (m *Market) CloseForBetting() error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.status != StatusOpen {
		return nil
	}
	if m.deps.Now().Before(m.resolvesAt) {
		return ErrDeadlineNotReached
	}

	m.status = StatusClosed
	m.log.Info("Market closed for betting")
	m.emitLocked(EventMarketClosed, nil)
	return nil
}

// RequestResolution reads the oracle and fixes the outcome. When the reading
// exactly equals the target the outcome is ambiguous: a randomness request is
// issued and the market parks in Resolving until FulfillRandomness arrives.
// Safe to call redundantly: only the first successful call reads the oracle,
// later callers observe AlreadyResolving/AlreadyResolved. A failed oracle read
// or randomness request leaves the market in Closed, so any caller may retry.
func (m *Market) RequestResolution(ctx context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	switch m.status {
	case StatusOpen:
		return ErrMarketNotClosed
	case StatusResolving:
		return ErrAlreadyResolving
	case StatusResolved, StatusSettled:
		return ErrAlreadyResolved
	}

	value, err := m.deps.Oracle.Observe(ctx)
	if err != nil {
		metrics.OracleReads.WithLabelValues("error").Inc()
		return fmt.Errorf("%w: %v", ErrOracleUnavailable, err)
	}
	metrics.OracleReads.WithLabelValues("ok").Inc()

	switch value.Cmp(m.target) {
	case 1:
		m.fixOutcomeLocked(SideYes, value, nil)
	case -1:
		m.fixOutcomeLocked(SideNo, value, nil)
	default:
		requestID, err := m.deps.Randomness.Request(ctx)
		if err != nil {
			return fmt.Errorf("randomness request: %w", err)
		}
		m.pending = &requestID
		m.tieValue = value
		m.status = StatusResolving
		metrics.TieBreaks.Inc()
		m.log.WithFields(logrus.Fields{
			"value":      value.String(),
			"request_id": requestID.String(),
		}).Info("Oracle reading equals target, tie-break randomness requested")
		m.emitLocked(EventResolutionPending, &EventDetail{RequestID: &requestID})
	}
	return nil
}

// FulfillRandomness consumes the tie-break random value. Exactly-once: the id
// must match the single outstanding request, and the request is consumed even
// when fulfillment fixes the outcome, so duplicates fail with UnknownRequest.
// An even value resolves YES, an odd value resolves NO.
func (m *Market) FulfillRandomness(requestID uuid.UUID, randomValue uint64) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.status != StatusResolving || m.pending == nil || *m.pending != requestID {
		return ErrUnknownRequest
	}
	m.pending = nil

	outcome := SideNo
	if randomValue%2 == 0 {
		outcome = SideYes
	}
	m.log.WithFields(logrus.Fields{
		"request_id":   requestID.String(),
		"random_value": randomValue,
		"outcome":      outcome,
	}).Info("Tie-break randomness fulfilled")

	m.fixOutcomeLocked(outcome, m.tieValue, &randomValue)
	return nil
}

// fixOutcomeLocked records the resolution outcome and transitions to Resolved.
// Must hold m.mu.
func (m *Market) fixOutcomeLocked(outcome Outcome, value decimal.Decimal, randomValue *uint64) {
	winning := m.ledger.TotalFor(outcome)
	losing := m.ledger.TotalFor(outcome.Opposite())

	m.resolution = &Resolution{
		Outcome:     outcome,
		Value:       value,
		RandomValue: randomValue,
		WinningPool: winning,
		LosingPool:  losing,
		ResolvedAt:  m.deps.Now(),
	}
	m.status = StatusResolved
	metrics.MarketsResolved.WithLabelValues(string(outcome)).Inc()

	m.log.WithFields(logrus.Fields{
		"outcome": outcome,
		"value":   value.String(),
	}).Info("Market resolved")
	m.emitLocked(EventMarketResolved, nil)
}

// GetCurrentOdds derives the live implied probabilities from the current pool
// totals. Available in every state and never cached.
func (m *Market) GetCurrentOdds() Odds {
	m.mu.Lock()
	defer m.mu.Unlock()
	return ComputeOdds(m.ledger.TotalFor(SideYes), m.ledger.TotalFor(SideNo))
}

// Totals returns the live pool totals.
func (m *Market) Totals() (yes, no uint64) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.ledger.TotalFor(SideYes), m.ledger.TotalFor(SideNo)
}

// StakeOf returns participant's live stake on one side.
func (m *Market) StakeOf(participant string, side Side) uint64 {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.ledger.StakeOf(participant, side)
}

// emitLocked publishes an event with a snapshot taken under the lock.
// Must hold m.mu.
func (m *Market) emitLocked(typ EventType, detail *EventDetail) {
	if m.deps.OnEvent == nil {
		return
	}
	m.deps.OnEvent(Event{
		Type:   typ,
		Market: m.snapshotLocked(),
		Detail: detail,
	})
}
