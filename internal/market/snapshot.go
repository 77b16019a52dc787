package market

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"
)

// Snapshot is the persisted and wire representation of a market's full state:
// immutable parameters, lifecycle state, pool totals, the resolution record
// and every stake entry. It is sufficient to rebuild the market.
type Snapshot struct {
	ID             string          `json:"id"`
	Question       string          `json:"question"`
	Asset          string          `json:"asset"`
	BaseAsset      string          `json:"base_asset"`
	TargetValue    decimal.Decimal `json:"target_value"`
	FeeBps         uint64          `json:"fee_bps"`
	CreatedAt      time.Time       `json:"created_at"`
	ResolvesAt     time.Time       `json:"resolves_at"`
	Status         string          `json:"status"`
	Outcome        *Outcome        `json:"outcome,omitempty"`
	YesTotal       uint64          `json:"yes_total"`
	NoTotal        uint64          `json:"no_total"`
	Odds           Odds            `json:"odds"`
	Resolution     *Resolution     `json:"resolution,omitempty"`
	PendingRequest *uuid.UUID      `json:"pending_request,omitempty"`
	Stakes         []StakeEntry    `json:"stakes,omitempty"`
	Claimed        []string        `json:"claimed,omitempty"`
}

// Snapshot returns a consistent copy of the market's state.
func (m *Market) Snapshot() Snapshot {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.snapshotLocked()
}

// snapshotLocked must hold m.mu.
func (m *Market) snapshotLocked() Snapshot {
	yes := m.ledger.TotalFor(SideYes)
	no := m.ledger.TotalFor(SideNo)

	snap := Snapshot{
		ID:          m.id.String(),
		Question:    m.question,
		Asset:       m.asset,
		BaseAsset:   m.baseAsset,
		TargetValue: m.target,
		FeeBps:      m.feeBps,
		CreatedAt:   m.createdAt,
		ResolvesAt:  m.resolvesAt,
		Status:      m.status.String(),
		YesTotal:    yes,
		NoTotal:     no,
		Odds:        ComputeOdds(yes, no),
		Stakes:      m.ledger.Entries(),
		Claimed:     m.ledger.ClaimedParticipants(),
	}
	if m.resolution != nil {
		res := *m.resolution
		snap.Resolution = &res
		outcome := res.Outcome
		snap.Outcome = &outcome
	}
	if m.pending != nil {
		id := *m.pending
		snap.PendingRequest = &id
	}
	return snap
}

// statusFromString is the inverse of Status.String for snapshot restore.
func statusFromString(s string) (Status, bool) {
	switch s {
	case "open":
		return StatusOpen, true
	case "closed":
		return StatusClosed, true
	case "resolving":
		return StatusResolving, true
	case "resolved":
		return StatusResolved, true
	case "settled":
		return StatusSettled, true
	default:
		return StatusOpen, false
	}
}

// restore rebuilds a market from a persisted snapshot. Used on startup only,
// before the market is reachable by any caller.
func restore(snap Snapshot, deps Deps) (*Market, error) {
	id, err := uuid.Parse(snap.ID)
	if err != nil {
		return nil, err
	}
	status, ok := statusFromString(snap.Status)
	if !ok {
		return nil, ErrMarketNotFound
	}
	if deps.Now == nil {
		deps.Now = time.Now
	}
	if deps.Log == nil {
		deps.Log = logrus.StandardLogger()
	}

	m := &Market{
		id:         id,
		question:   snap.Question,
		asset:      snap.Asset,
		baseAsset:  snap.BaseAsset,
		target:     snap.TargetValue,
		feeBps:     snap.FeeBps,
		createdAt:  snap.CreatedAt,
		resolvesAt: snap.ResolvesAt,
		status:     status,
		ledger:     NewStakeLedger(),
		deps:       deps,
	}
	m.log = deps.Log.WithField("market_id", m.id.String())

	for _, entry := range snap.Stakes {
		sides, ok := m.ledger.entries[entry.Participant]
		if !ok {
			sides = make(map[Side]*StakeEntry)
			m.ledger.entries[entry.Participant] = sides
		}
		e := entry
		sides[entry.Side] = &e
		m.ledger.totals[entry.Side] += entry.Amount
	}
	for _, p := range snap.Claimed {
		m.ledger.claimed[p] = true
	}
	if snap.Resolution != nil {
		res := *snap.Resolution
		m.resolution = &res
		m.tieValue = res.Value
	}
	if snap.PendingRequest != nil {
		id := *snap.PendingRequest
		m.pending = &id
	}
	return m, nil
}
