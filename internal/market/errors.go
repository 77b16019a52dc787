package market

import "errors"

var (
	ErrInvalidAmount      = errors.New("amount must be greater than 0")
	ErrInvalidSide        = errors.New("side must be YES or NO")
	ErrMarketClosed       = errors.New("market is closed for betting")
	ErrMarketNotClosed    = errors.New("market must be closed before resolution")
	ErrDeadlineNotReached = errors.New("resolution deadline not reached")
	ErrAlreadyResolving   = errors.New("resolution already in progress")
	ErrAlreadyResolved    = errors.New("market already resolved")
	ErrMarketNotResolved  = errors.New("market not resolved yet")
	ErrAlreadyClaimed     = errors.New("payout already claimed")
	ErrNoStake            = errors.New("no stake recorded for participant")
	ErrUnknownRequest     = errors.New("unknown randomness request")
	ErrOracleUnavailable  = errors.New("oracle unavailable")
	ErrMarketNotFound     = errors.New("market not found")
	ErrInvalidRange       = errors.New("invalid range")
	ErrInvalidDeadline    = errors.New("resolution deadline must be in the future")
)
