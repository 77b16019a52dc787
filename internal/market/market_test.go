package market

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"

	"predictionmarket-backend/internal/token"
	"predictionmarket-backend/internal/treasury"
)

// testClock is a controllable clock for deadline checks.
type testClock struct {
	mu sync.Mutex
	t  time.Time
}

func newTestClock() *testClock {
	return &testClock{t: time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC)}
}

func (c *testClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.t
}

func (c *testClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.t = c.t.Add(d)
}

// stubOracle counts reads and reports a settable value or error.
type stubOracle struct {
	mu    sync.Mutex
	value decimal.Decimal
	err   error
	reads int
}

func (o *stubOracle) Observe(_ context.Context) (decimal.Decimal, error) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.reads++
	if o.err != nil {
		return decimal.Zero, o.err
	}
	return o.value, nil
}

func (o *stubOracle) readCount() int {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.reads
}

// stubGate records issued request ids without producing values.
type stubGate struct {
	mu       sync.Mutex
	requests []uuid.UUID
	err      error
}

func (g *stubGate) Request(_ context.Context) (uuid.UUID, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.err != nil {
		return uuid.Nil, g.err
	}
	id := uuid.New()
	g.requests = append(g.requests, id)
	return id, nil
}

func (g *stubGate) requestCount() int {
	g.mu.Lock()
	defer g.mu.Unlock()
	return len(g.requests)
}

func (g *stubGate) lastRequest() uuid.UUID {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.requests[len(g.requests)-1]
}

// fixture bundles a market with all of its collaborators.
type fixture struct {
	market *Market
	ledger *token.MemoryLedger
	vault  *treasury.Vault
	oracle *stubOracle
	gate   *stubGate
	clock  *testClock
}

func newFixture(t *testing.T, feeBps uint64) *fixture {
	t.Helper()

	clock := newTestClock()
	ledger := token.NewMemoryLedger()
	vault := treasury.NewVault("operator", nil)
	orc := &stubOracle{value: decimal.NewFromInt(3000)}
	gate := &stubGate{}

	m := New(Config{
		Question:   "Will ETH price be above $3000?",
		Asset:      "ETH",
		BaseAsset:  "USD",
		Target:     decimal.NewFromInt(3000),
		FeeBps:     feeBps,
		ResolvesAt: clock.Now().Add(24 * time.Hour),
	}, Deps{
		Token:      ledger,
		Oracle:     orc,
		Randomness: gate,
		Vault:      vault,
		Now:        clock.Now,
	})

	return &fixture{market: m, ledger: ledger, vault: vault, oracle: orc, gate: gate, clock: clock}
}

// fund mints and approves stake for a participant.
func (f *fixture) fund(participant string, amount uint64) {
	f.ledger.Mint(participant, amount)
	_ = f.ledger.Approve(participant, f.market.Account(), amount)
}

func (f *fixture) mustBet(t *testing.T, participant string, side Side, amount uint64) {
	t.Helper()
	f.fund(participant, amount)
	require.NoError(t, f.market.PlaceBet(participant, side, amount))
}

func TestPlaceBetRecordsStakeAndMovesFunds(t *testing.T) {
	f := newFixture(t, 200)
	f.mustBet(t, "alice", SideYes, 100_000000)

	yes, no := f.market.Totals()
	require.Equal(t, uint64(100_000000), yes)
	require.Equal(t, uint64(0), no)

	balance, err := f.ledger.BalanceOf(f.market.Account())
	require.NoError(t, err)
	require.Equal(t, uint64(100_000000), balance)

	balance, err = f.ledger.BalanceOf("alice")
	require.NoError(t, err)
	require.Equal(t, uint64(0), balance)
}

func TestPlaceBetRejectsZeroAmount(t *testing.T) {
	f := newFixture(t, 200)
	err := f.market.PlaceBet("alice", SideYes, 0)
	require.ErrorIs(t, err, ErrInvalidAmount)
}

func TestPlaceBetRejectsInvalidSide(t *testing.T) {
	f := newFixture(t, 200)
	f.fund("alice", 10)
	err := f.market.PlaceBet("alice", Side("MAYBE"), 10)
	require.ErrorIs(t, err, ErrInvalidSide)
}

func TestPlaceBetAfterDeadline(t *testing.T) {
	f := newFixture(t, 200)
	f.fund("alice", 10)
	f.clock.Advance(25 * time.Hour)
	err := f.market.PlaceBet("alice", SideYes, 10)
	require.ErrorIs(t, err, ErrMarketClosed)
}

func TestPlaceBetWithoutApprovalLeavesNoState(t *testing.T) {
	f := newFixture(t, 200)
	f.ledger.Mint("alice", 100)

	err := f.market.PlaceBet("alice", SideYes, 100)
	require.ErrorIs(t, err, token.ErrInsufficientAllowance)

	yes, no := f.market.Totals()
	require.Zero(t, yes+no)
}

func TestCloseForBetting(t *testing.T) {
	f := newFixture(t, 200)

	require.ErrorIs(t, f.market.CloseForBetting(), ErrDeadlineNotReached)
	require.Equal(t, StatusOpen, f.market.Status())

	f.clock.Advance(24 * time.Hour)
	require.NoError(t, f.market.CloseForBetting())
	require.Equal(t, StatusClosed, f.market.Status())

	// Idempotent past Open.
	require.NoError(t, f.market.CloseForBetting())
	require.Equal(t, StatusClosed, f.market.Status())
}

func TestRequestResolutionRequiresClosed(t *testing.T) {
	f := newFixture(t, 200)
	err := f.market.RequestResolution(context.Background())
	require.ErrorIs(t, err, ErrMarketNotClosed)
}

func TestRequestResolutionAboveTarget(t *testing.T) {
	f := newFixture(t, 200)
	f.mustBet(t, "alice", SideYes, 100_000000)
	f.clock.Advance(24 * time.Hour)
	require.NoError(t, f.market.CloseForBetting())

	f.oracle.value = decimal.NewFromInt(3500)
	require.NoError(t, f.market.RequestResolution(context.Background()))

	require.Equal(t, StatusResolved, f.market.Status())
	require.Zero(t, f.gate.requestCount(), "unambiguous outcome must not request randomness")

	snap := f.market.Snapshot()
	require.NotNil(t, snap.Outcome)
	require.Equal(t, SideYes, *snap.Outcome)
	require.Equal(t, "3500", snap.Resolution.Value.String())

	err := f.market.RequestResolution(context.Background())
	require.ErrorIs(t, err, ErrAlreadyResolved)
}

func TestRequestResolutionBelowTarget(t *testing.T) {
	f := newFixture(t, 200)
	f.clock.Advance(24 * time.Hour)
	require.NoError(t, f.market.CloseForBetting())

	f.oracle.value = decimal.NewFromInt(2400)
	require.NoError(t, f.market.RequestResolution(context.Background()))

	snap := f.market.Snapshot()
	require.Equal(t, StatusResolved, f.market.Status())
	require.Equal(t, SideNo, *snap.Outcome)
}

func TestRequestResolutionOracleUnavailableIsRetryable(t *testing.T) {
	f := newFixture(t, 200)
	f.clock.Advance(24 * time.Hour)
	require.NoError(t, f.market.CloseForBetting())

	f.oracle.err = errors.New("feed down")
	err := f.market.RequestResolution(context.Background())
	require.ErrorIs(t, err, ErrOracleUnavailable)
	require.Equal(t, StatusClosed, f.market.Status(), "failed read must leave the market Closed")

	f.oracle.err = nil
	f.oracle.value = decimal.NewFromInt(3100)
	require.NoError(t, f.market.RequestResolution(context.Background()))
	require.Equal(t, StatusResolved, f.market.Status())
}

func TestTieBreakRequestsRandomness(t *testing.T) {
	f := newFixture(t, 200)
	f.clock.Advance(24 * time.Hour)
	require.NoError(t, f.market.CloseForBetting())

	f.oracle.value = decimal.NewFromInt(3000) // exactly the target
	require.NoError(t, f.market.RequestResolution(context.Background()))

	require.Equal(t, StatusResolving, f.market.Status())
	require.Equal(t, 1, f.gate.requestCount())
	require.NotNil(t, f.market.PendingRequest())

	err := f.market.RequestResolution(context.Background())
	require.ErrorIs(t, err, ErrAlreadyResolving)
	require.Equal(t, 1, f.oracle.readCount(), "no second oracle read while resolving")
}

func TestFulfillRandomnessEvenResolvesYes(t *testing.T) {
	f := newFixture(t, 200)
	f.clock.Advance(24 * time.Hour)
	require.NoError(t, f.market.CloseForBetting())
	f.oracle.value = decimal.NewFromInt(3000)
	require.NoError(t, f.market.RequestResolution(context.Background()))

	requestID := f.gate.lastRequest()
	require.NoError(t, f.market.FulfillRandomness(requestID, 42))

	snap := f.market.Snapshot()
	require.Equal(t, StatusResolved, f.market.Status())
	require.Equal(t, SideYes, *snap.Outcome)
	require.NotNil(t, snap.Resolution.RandomValue)
	require.Equal(t, uint64(42), *snap.Resolution.RandomValue)

	// The request is consumed: a duplicate fulfillment is rejected.
	err := f.market.FulfillRandomness(requestID, 42)
	require.ErrorIs(t, err, ErrUnknownRequest)
}

func TestFulfillRandomnessOddResolvesNo(t *testing.T) {
	f := newFixture(t, 200)
	f.clock.Advance(24 * time.Hour)
	require.NoError(t, f.market.CloseForBetting())
	f.oracle.value = decimal.NewFromInt(3000)
	require.NoError(t, f.market.RequestResolution(context.Background()))

	require.NoError(t, f.market.FulfillRandomness(f.gate.lastRequest(), 7))
	snap := f.market.Snapshot()
	require.Equal(t, SideNo, *snap.Outcome)
}

func TestFulfillRandomnessUnknownID(t *testing.T) {
	f := newFixture(t, 200)
	f.clock.Advance(24 * time.Hour)
	require.NoError(t, f.market.CloseForBetting())
	f.oracle.value = decimal.NewFromInt(3000)
	require.NoError(t, f.market.RequestResolution(context.Background()))

	err := f.market.FulfillRandomness(uuid.New(), 1)
	require.ErrorIs(t, err, ErrUnknownRequest)
	require.Equal(t, StatusResolving, f.market.Status(), "bad fulfillment must not corrupt state")
}

// Resolution exclusivity: many concurrent callers produce exactly one oracle
// read and at most one randomness request.
func TestRequestResolutionConcurrent(t *testing.T) {
	f := newFixture(t, 200)
	f.clock.Advance(24 * time.Hour)
	require.NoError(t, f.market.CloseForBetting())
	f.oracle.value = decimal.NewFromInt(3000)

	var wg sync.WaitGroup
	var successes int64
	var mu sync.Mutex
	for i := 0; i < 16; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if err := f.market.RequestResolution(context.Background()); err == nil {
				mu.Lock()
				successes++
				mu.Unlock()
			}
		}()
	}
	wg.Wait()

	require.Equal(t, int64(1), successes)
	require.Equal(t, 1, f.oracle.readCount())
	require.Equal(t, 1, f.gate.requestCount())
}

func TestConservationAcrossBets(t *testing.T) {
	f := newFixture(t, 200)
	stakes := []struct {
		participant string
		side        Side
		amount      uint64
	}{
		{"alice", SideYes, 100_000000},
		{"bob", SideNo, 200_000000},
		{"carol", SideYes, 50_000000},
		{"alice", SideNo, 25_000000},
	}
	var transferred uint64
	for _, s := range stakes {
		f.mustBet(t, s.participant, s.side, s.amount)
		transferred += s.amount
	}

	yes, no := f.market.Totals()
	require.Equal(t, transferred, yes+no)

	balance, err := f.ledger.BalanceOf(f.market.Account())
	require.NoError(t, err)
	require.Equal(t, transferred, balance, "pool totals must equal funds actually transferred in")
}
