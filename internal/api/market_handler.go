package api

import (
	"encoding/json"
	"net/http"
	"strconv"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"predictionmarket-backend/internal/market"
)

// CreateMarketRequest is the request to create a new market.
type CreateMarketRequest struct {
	Question    string `json:"question"`
	Asset       string `json:"asset"`
	BaseAsset   string `json:"base_asset"`
	TargetValue string `json:"target_value"`
	FeeBps      uint64 `json:"fee_bps,omitempty"`
	ResolvesAt  string `json:"resolves_at"` // RFC3339 format
}

// handleCreateMarket handles POST /api/markets.
func (s *Server) handleCreateMarket(w http.ResponseWriter, r *http.Request) {
	var req CreateMarketRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	if req.Question == "" {
		writeError(w, http.StatusBadRequest, "question is required")
		return
	}
	target, err := decimal.NewFromString(req.TargetValue)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid target_value")
		return
	}
	resolvesAt, err := time.Parse(time.RFC3339, req.ResolvesAt)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid resolves_at format, use RFC3339")
		return
	}

	m, err := s.registry.CreateMarket(market.CreateMarketRequest{
		Question:   req.Question,
		Asset:      req.Asset,
		BaseAsset:  req.BaseAsset,
		Target:     target,
		FeeBps:     req.FeeBps,
		ResolvesAt: resolvesAt,
	})
	if err != nil {
		writeDomainError(w, err)
		return
	}

	writeJSON(w, http.StatusCreated, m.Snapshot())
}

// handleListMarkets handles GET /api/markets.
func (s *Server) handleListMarkets(w http.ResponseWriter, r *http.Request) {
	markets := s.registry.All()
	result := make([]market.Snapshot, 0, len(markets))
	for _, m := range markets {
		result = append(result, m.Snapshot())
	}
	writeJSON(w, http.StatusOK, result)
}

// handleMarketsCount handles GET /api/markets/count.
func (s *Server) handleMarketsCount(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]int{"count": s.registry.Count()})
}

// handleMarketsRange handles GET /api/markets/range?start=N&end=M (inclusive).
func (s *Server) handleMarketsRange(w http.ResponseWriter, r *http.Request) {
	start, err := strconv.Atoi(r.URL.Query().Get("start"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "start must be an integer")
		return
	}
	end, err := strconv.Atoi(r.URL.Query().Get("end"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "end must be an integer")
		return
	}

	markets, err := s.registry.Range(start, end)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	result := make([]market.Snapshot, 0, len(markets))
	for _, m := range markets {
		result = append(result, m.Snapshot())
	}
	writeJSON(w, http.StatusOK, result)
}

// marketFromPath resolves the {id} path value to a market.
func (s *Server) marketFromPath(w http.ResponseWriter, r *http.Request) (*market.Market, bool) {
	id, err := uuid.Parse(r.PathValue("id"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid market id")
		return nil, false
	}
	m, err := s.registry.Get(id)
	if err != nil {
		writeDomainError(w, err)
		return nil, false
	}
	return m, true
}

// handleGetMarket handles GET /api/markets/{id}.
func (s *Server) handleGetMarket(w http.ResponseWriter, r *http.Request) {
	m, ok := s.marketFromPath(w, r)
	if !ok {
		return
	}
	writeJSON(w, http.StatusOK, m.Snapshot())
}

// handleGetOdds handles GET /api/markets/{id}/odds. Odds are always derived
// live from the current pool totals.
func (s *Server) handleGetOdds(w http.ResponseWriter, r *http.Request) {
	m, ok := s.marketFromPath(w, r)
	if !ok {
		return
	}
	writeJSON(w, http.StatusOK, m.GetCurrentOdds())
}
