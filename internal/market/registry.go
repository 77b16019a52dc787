package market

import (
	"errors"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"

	"predictionmarket-backend/internal/metrics"
)

// Registry creates markets and owns the collection. The sequence of market
// identities is append-only in creation order; settled markets stay queryable
// forever. Oracle, randomness, token and vault collaborators are fixed at
// registry construction and shared by every market it creates.
type Registry struct {
	mu      sync.RWMutex
	markets map[uuid.UUID]*Market
	order   []uuid.UUID

	deps          Deps
	defaultFeeBps uint64
}

// RegistryConfig configures a registry.
type RegistryConfig struct {
	Token         TokenLedger
	Oracle        PriceSource
	Randomness    RandomnessGate
	Vault         FeeVault
	DefaultFeeBps uint64
	Now           func() time.Time
	OnEvent       func(Event)
	Log           *logrus.Logger
}

// NewRegistry creates an empty registry.
func NewRegistry(cfg RegistryConfig) *Registry {
	deps := Deps{
		Token:      cfg.Token,
		Oracle:     cfg.Oracle,
		Randomness: cfg.Randomness,
		Vault:      cfg.Vault,
		Now:        cfg.Now,
		OnEvent:    cfg.OnEvent,
		Log:        cfg.Log,
	}
	if deps.Now == nil {
		deps.Now = time.Now
	}
	return &Registry{
		markets:       make(map[uuid.UUID]*Market),
		order:         make([]uuid.UUID, 0),
		deps:          deps,
		defaultFeeBps: cfg.DefaultFeeBps,
	}
}

// SetRandomnessGate installs the randomness collaborator after construction.
// The randomness coordinator delivers fulfillments back through the registry,
// so the two are wired in two phases at startup, before any market exists.
func (r *Registry) SetRandomnessGate(gate RandomnessGate) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.deps.Randomness = gate
}

// SetEventCallback installs the event observer after construction. Must be
// called before any market exists: each market captures its collaborators at
// creation time.
func (r *Registry) SetEventCallback(fn func(Event)) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.deps.OnEvent = fn
}

// CreateMarketRequest carries the parameters for a new market.
type CreateMarketRequest struct {
	Question   string
	Asset      string
	BaseAsset  string
	Target     decimal.Decimal
	FeeBps     uint64 // 0 means the registry default
	ResolvesAt time.Time
}

// CreateMarket validates the deadline, instantiates a market in Open and
// appends it to the ordered collection.
func (r *Registry) CreateMarket(req CreateMarketRequest) (*Market, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if !req.ResolvesAt.After(r.deps.Now()) {
		return nil, ErrInvalidDeadline
	}

	feeBps := req.FeeBps
	if feeBps == 0 {
		feeBps = r.defaultFeeBps
	}

	m := New(Config{
		Question:   req.Question,
		Asset:      req.Asset,
		BaseAsset:  req.BaseAsset,
		Target:     req.Target,
		FeeBps:     feeBps,
		ResolvesAt: req.ResolvesAt,
	}, r.deps)

	r.markets[m.id] = m
	r.order = append(r.order, m.id)
	metrics.MarketsCreated.Inc()

	if r.deps.OnEvent != nil {
		r.deps.OnEvent(Event{Type: EventMarketCreated, Market: m.Snapshot()})
	}
	return m, nil
}

// Get retrieves a market by id.
func (r *Registry) Get(id uuid.UUID) (*Market, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	m, ok := r.markets[id]
	if !ok {
		return nil, ErrMarketNotFound
	}
	return m, nil
}

// Count returns the number of markets ever created.
func (r *Registry) Count() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.order)
}

// All returns every market in creation order.
func (r *Registry) All() []*Market {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]*Market, 0, len(r.order))
	for _, id := range r.order {
		out = append(out, r.markets[id])
	}
	return out
}

// Range returns the inclusive slice [start, end] of markets in creation order.
func (r *Registry) Range(start, end int) ([]*Market, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	if start < 0 || start > end || end >= len(r.order) {
		return nil, ErrInvalidRange
	}
	out := make([]*Market, 0, end-start+1)
	for _, id := range r.order[start : end+1] {
		out = append(out, r.markets[id])
	}
	return out, nil
}

// FulfillRandomness routes a randomness fulfillment to the market that owns
// the request. Each pending request is owned by exactly one market, so the
// first market to accept it consumes it; an id no market recognises fails
// with UnknownRequest, duplicates included.
func (r *Registry) FulfillRandomness(requestID uuid.UUID, randomValue uint64) error {
	for _, m := range r.All() {
		err := m.FulfillRandomness(requestID, randomValue)
		if err == nil {
			return nil
		}
		if !errors.Is(err, ErrUnknownRequest) {
			return err
		}
	}
	return ErrUnknownRequest
}

// Restore rebuilds markets from persisted snapshots, preserving creation
// order by creation time. Called once at startup before the registry is
// reachable.
func (r *Registry) Restore(snaps []Snapshot) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	sort.SliceStable(snaps, func(i, j int) bool {
		return snaps[i].CreatedAt.Before(snaps[j].CreatedAt)
	})
	for _, snap := range snaps {
		m, err := restore(snap, r.deps)
		if err != nil {
			return err
		}
		r.markets[m.id] = m
		r.order = append(r.order, m.id)
	}
	return nil
}
