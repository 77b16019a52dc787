package api

import (
	"encoding/json"
	"net/http"
)

// DepositRequest is the request body for treasury deposits.
type DepositRequest struct {
	From   string `json:"from"`
	Amount uint64 `json:"amount"`
}

// handleTreasuryBalances handles GET /api/treasury.
func (s *Server) handleTreasuryBalances(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, s.vault.Snapshot())
}

// handleDepositOperational handles POST /api/treasury/operational.
func (s *Server) handleDepositOperational(w http.ResponseWriter, r *http.Request) {
	s.handleDeposit(w, r, s.vault.DepositOperationalFunds)
}

// handleDepositRandomness handles POST /api/treasury/randomness.
func (s *Server) handleDepositRandomness(w http.ResponseWriter, r *http.Request) {
	s.handleDeposit(w, r, s.vault.DepositRandomnessFunds)
}

func (s *Server) handleDeposit(w http.ResponseWriter, r *http.Request, deposit func(string, uint64) error) {
	var req DepositRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if req.Amount == 0 {
		writeError(w, http.StatusBadRequest, "amount must be greater than 0")
		return
	}
	if err := deposit(req.From, req.Amount); err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, s.vault.Snapshot())
}
