package api

import (
	"encoding/json"
	"errors"
	"net/http"

	"predictionmarket-backend/internal/market"
	"predictionmarket-backend/internal/randomness"
	"predictionmarket-backend/internal/token"
	"predictionmarket-backend/internal/treasury"
)

// writeJSON writes a JSON response with the given status code.
func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

// writeError writes a JSON error response.
func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, map[string]string{"error": message})
}

// writeDomainError maps an engine error onto an HTTP status.
func writeDomainError(w http.ResponseWriter, err error) {
	writeError(w, statusForError(err), err.Error())
}

func statusForError(err error) int {
	switch {
	case errors.Is(err, market.ErrInvalidAmount),
		errors.Is(err, market.ErrInvalidSide),
		errors.Is(err, market.ErrInvalidDeadline),
		errors.Is(err, market.ErrInvalidRange),
		errors.Is(err, market.ErrDeadlineNotReached):
		return http.StatusBadRequest
	case errors.Is(err, market.ErrMarketNotFound),
		errors.Is(err, market.ErrNoStake):
		return http.StatusNotFound
	case errors.Is(err, market.ErrMarketClosed),
		errors.Is(err, market.ErrMarketNotClosed),
		errors.Is(err, market.ErrMarketNotResolved),
		errors.Is(err, market.ErrAlreadyResolving),
		errors.Is(err, market.ErrAlreadyResolved),
		errors.Is(err, market.ErrAlreadyClaimed),
		errors.Is(err, market.ErrUnknownRequest),
		errors.Is(err, randomness.ErrUnknownRequest):
		return http.StatusConflict
	case errors.Is(err, market.ErrOracleUnavailable):
		return http.StatusServiceUnavailable
	case errors.Is(err, treasury.ErrInsufficientFunds),
		errors.Is(err, token.ErrInsufficientBalance),
		errors.Is(err, token.ErrInsufficientAllowance):
		return http.StatusPaymentRequired
	case errors.Is(err, treasury.ErrUnauthorized):
		return http.StatusForbidden
	default:
		return http.StatusInternalServerError
	}
}
