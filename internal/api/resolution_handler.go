package api

import (
	"encoding/json"
	"net/http"

	"github.com/google/uuid"
)

// handleCloseMarket handles POST /api/markets/{id}/close. Callable by anyone
// once the resolution deadline has passed.
func (s *Server) handleCloseMarket(w http.ResponseWriter, r *http.Request) {
	m, ok := s.marketFromPath(w, r)
	if !ok {
		return
	}
	if err := m.CloseForBetting(); err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, m.Snapshot())
}

// handleRequestResolution handles POST /api/markets/{id}/resolve.
func (s *Server) handleRequestResolution(w http.ResponseWriter, r *http.Request) {
	m, ok := s.marketFromPath(w, r)
	if !ok {
		return
	}
	if err := m.RequestResolution(r.Context()); err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, m.Snapshot())
}

// handleSettle handles POST /api/markets/{id}/settle.
func (s *Server) handleSettle(w http.ResponseWriter, r *http.Request) {
	m, ok := s.marketFromPath(w, r)
	if !ok {
		return
	}
	if err := m.Settle(); err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, m.Snapshot())
}

// ClaimRequest is the request body for claiming a payout.
type ClaimRequest struct {
	Participant string `json:"participant"`
}

// handleClaimPayout handles POST /api/markets/{id}/claims.
func (s *Server) handleClaimPayout(w http.ResponseWriter, r *http.Request) {
	m, ok := s.marketFromPath(w, r)
	if !ok {
		return
	}

	var req ClaimRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if req.Participant == "" {
		writeError(w, http.StatusBadRequest, "participant required")
		return
	}

	payout, err := m.ClaimPayout(req.Participant)
	if err != nil {
		writeDomainError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]interface{}{
		"participant": req.Participant,
		"payout":      payout,
	})
}

// FulfillRandomnessRequest is the callback body from the randomness service.
type FulfillRandomnessRequest struct {
	RequestID   string `json:"request_id"`
	RandomValue uint64 `json:"random_value"`
}

// handleFulfillRandomness handles POST /api/randomness/fulfill. The
// coordinator validates the correlation id before the value reaches any
// market; duplicates and unknown ids are rejected.
func (s *Server) handleFulfillRandomness(w http.ResponseWriter, r *http.Request) {
	var req FulfillRandomnessRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	requestID, err := uuid.Parse(req.RequestID)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid request_id")
		return
	}

	if err := s.randomness.Fulfill(requestID, req.RandomValue); err != nil {
		writeDomainError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]string{
		"request_id": req.RequestID,
		"status":     "fulfilled",
	})
}
