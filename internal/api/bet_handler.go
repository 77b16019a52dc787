package api

import (
	"encoding/json"
	"net/http"

	"predictionmarket-backend/internal/market"
)

// PlaceBetRequest is the request body for placing a bet.
type PlaceBetRequest struct {
	Participant string `json:"participant"`
	Side        string `json:"side"`   // "YES" or "NO"
	Amount      uint64 `json:"amount"` // 6-decimal token units
}

// handlePlaceBet handles POST /api/markets/{id}/bets.
func (s *Server) handlePlaceBet(w http.ResponseWriter, r *http.Request) {
	m, ok := s.marketFromPath(w, r)
	if !ok {
		return
	}

	var req PlaceBetRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if req.Participant == "" {
		writeError(w, http.StatusBadRequest, "participant required")
		return
	}

	side := market.Side(req.Side)
	if !side.Valid() {
		writeDomainError(w, market.ErrInvalidSide)
		return
	}

	if err := m.PlaceBet(req.Participant, side, req.Amount); err != nil {
		writeDomainError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]interface{}{
		"market": m.Snapshot(),
		"odds":   m.GetCurrentOdds(),
	})
}
