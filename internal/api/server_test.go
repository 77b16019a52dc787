package api

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/require"

	"predictionmarket-backend/internal/config"
	"predictionmarket-backend/internal/market"
	"predictionmarket-backend/internal/oracle"
	"predictionmarket-backend/internal/randomness"
	"predictionmarket-backend/internal/token"
	"predictionmarket-backend/internal/treasury"
)

type apiHarness struct {
	mux      *http.ServeMux
	registry *market.Registry
	ledger   *token.MemoryLedger
	feed     *oracle.FixedFeed
	coord    *randomness.Coordinator
	vault    *treasury.Vault
}

func newAPIHarness(t *testing.T) *apiHarness {
	t.Helper()
	log := logrus.New()
	log.SetLevel(logrus.PanicLevel)

	h := &apiHarness{
		ledger: token.NewMemoryLedger(),
		feed:   oracle.NewFixedFeed(decimal.NewFromInt(3000)),
		vault:  treasury.NewVault("operator", nil),
	}
	h.registry = market.NewRegistry(market.RegistryConfig{
		Token:         h.ledger,
		Oracle:        oracle.NewResolver(h.feed, time.Hour),
		Vault:         h.vault,
		DefaultFeeBps: 200,
		Log:           log,
	})
	h.coord = randomness.NewCoordinator(randomness.Config{
		Sink: h.registry.FulfillRandomness,
		Log:  log,
	})
	h.registry.SetRandomnessGate(h.coord)

	srv := NewServer(&config.Config{ServerPort: "0"}, h.registry, h.vault, h.coord, log)
	h.mux = http.NewServeMux()
	srv.RegisterRoutes(h.mux)
	return h
}

func (h *apiHarness) do(t *testing.T, method, path string, body interface{}) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	rec := httptest.NewRecorder()
	h.mux.ServeHTTP(rec, req)
	return rec
}

func (h *apiHarness) createMarket(t *testing.T) market.Snapshot {
	t.Helper()
	rec := h.do(t, http.MethodPost, "/api/markets", CreateMarketRequest{
		Question:    "Will ETH price be above $3000?",
		Asset:       "ETH",
		BaseAsset:   "USD",
		TargetValue: "3000",
		ResolvesAt:  time.Now().Add(24 * time.Hour).Format(time.RFC3339),
	})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

	var snap market.Snapshot
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&snap))
	return snap
}

func TestHealthEndpoint(t *testing.T) {
	h := newAPIHarness(t)
	rec := h.do(t, http.MethodGet, "/api/health", nil)
	require.Equal(t, http.StatusOK, rec.Code)
}

func TestCreateMarketEndpoint(t *testing.T) {
	h := newAPIHarness(t)
	snap := h.createMarket(t)

	require.Equal(t, "open", snap.Status)
	require.Equal(t, uint64(200), snap.FeeBps, "default fee applies when omitted")
	require.Equal(t, market.Odds{Yes: 5000, No: 5000}, snap.Odds)

	rec := h.do(t, http.MethodGet, "/api/markets/count", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	require.JSONEq(t, `{"count":1}`, rec.Body.String())
}

func TestCreateMarketValidation(t *testing.T) {
	h := newAPIHarness(t)

	rec := h.do(t, http.MethodPost, "/api/markets", CreateMarketRequest{
		Question:    "bad target",
		TargetValue: "not-a-number",
		ResolvesAt:  time.Now().Add(time.Hour).Format(time.RFC3339),
	})
	require.Equal(t, http.StatusBadRequest, rec.Code)

	rec = h.do(t, http.MethodPost, "/api/markets", CreateMarketRequest{
		Question:    "past deadline",
		TargetValue: "3000",
		ResolvesAt:  time.Now().Add(-time.Hour).Format(time.RFC3339),
	})
	require.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestGetMarketNotFound(t *testing.T) {
	h := newAPIHarness(t)

	rec := h.do(t, http.MethodGet, "/api/markets/not-a-uuid", nil)
	require.Equal(t, http.StatusBadRequest, rec.Code)

	rec = h.do(t, http.MethodGet, "/api/markets/00000000-0000-0000-0000-000000000001", nil)
	require.Equal(t, http.StatusNotFound, rec.Code)
}

func TestPlaceBetEndpoint(t *testing.T) {
	h := newAPIHarness(t)
	snap := h.createMarket(t)

	h.ledger.Mint("alice", 100)
	require.NoError(t, h.ledger.Approve("alice", "market:"+snap.ID, 100))

	rec := h.do(t, http.MethodPost, "/api/markets/"+snap.ID+"/bets", PlaceBetRequest{
		Participant: "alice",
		Side:        "YES",
		Amount:      100,
	})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	rec = h.do(t, http.MethodGet, "/api/markets/"+snap.ID+"/odds", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var odds market.Odds
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&odds))
	require.Equal(t, uint64(10000), odds.Yes+odds.No)
}

func TestPlaceBetErrorMapping(t *testing.T) {
	h := newAPIHarness(t)
	snap := h.createMarket(t)

	// No funds approved: payment required.
	rec := h.do(t, http.MethodPost, "/api/markets/"+snap.ID+"/bets", PlaceBetRequest{
		Participant: "alice",
		Side:        "YES",
		Amount:      100,
	})
	require.Equal(t, http.StatusPaymentRequired, rec.Code)

	rec = h.do(t, http.MethodPost, "/api/markets/"+snap.ID+"/bets", PlaceBetRequest{
		Participant: "alice",
		Side:        "MAYBE",
		Amount:      100,
	})
	require.Equal(t, http.StatusBadRequest, rec.Code)

	rec = h.do(t, http.MethodPost, "/api/markets/"+snap.ID+"/bets", PlaceBetRequest{
		Side:   "YES",
		Amount: 100,
	})
	require.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestCloseBeforeDeadline(t *testing.T) {
	h := newAPIHarness(t)
	snap := h.createMarket(t)

	rec := h.do(t, http.MethodPost, "/api/markets/"+snap.ID+"/close", nil)
	require.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestResolveOpenMarketConflicts(t *testing.T) {
	h := newAPIHarness(t)
	snap := h.createMarket(t)

	rec := h.do(t, http.MethodPost, "/api/markets/"+snap.ID+"/resolve", nil)
	require.Equal(t, http.StatusConflict, rec.Code)
}

func TestFulfillRandomnessEndpoint(t *testing.T) {
	h := newAPIHarness(t)

	rec := h.do(t, http.MethodPost, "/api/randomness/fulfill", FulfillRandomnessRequest{
		RequestID:   "not-a-uuid",
		RandomValue: 1,
	})
	require.Equal(t, http.StatusBadRequest, rec.Code)

	rec = h.do(t, http.MethodPost, "/api/randomness/fulfill", FulfillRandomnessRequest{
		RequestID:   "00000000-0000-0000-0000-000000000002",
		RandomValue: 1,
	})
	require.Equal(t, http.StatusConflict, rec.Code, "unknown correlation ids are rejected")
}

func TestMarketsRangeEndpoint(t *testing.T) {
	h := newAPIHarness(t)
	for i := 0; i < 3; i++ {
		h.createMarket(t)
	}

	rec := h.do(t, http.MethodGet, "/api/markets/range?start=0&end=1", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var snaps []market.Snapshot
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&snaps))
	require.Len(t, snaps, 2)

	rec = h.do(t, http.MethodGet, "/api/markets/range?start=5&end=9", nil)
	require.Equal(t, http.StatusBadRequest, rec.Code)

	rec = h.do(t, http.MethodGet, fmt.Sprintf("/api/markets/range?start=%d&end=oops", 0), nil)
	require.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestTreasuryEndpoints(t *testing.T) {
	h := newAPIHarness(t)

	rec := h.do(t, http.MethodPost, "/api/treasury/operational", DepositRequest{
		From:   "operator",
		Amount: 500,
	})
	require.Equal(t, http.StatusOK, rec.Code)

	rec = h.do(t, http.MethodPost, "/api/treasury/randomness", DepositRequest{
		From:   "mallory",
		Amount: 500,
	})
	require.Equal(t, http.StatusForbidden, rec.Code)

	rec = h.do(t, http.MethodGet, "/api/treasury", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var balances treasury.Balances
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&balances))
	require.Equal(t, uint64(500), balances.Operational)
	require.Zero(t, balances.Randomness)
}
