// Package oracle adapts an external price feed into the single read-value
// capability the market engine resolves against.
package oracle

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/shopspring/decimal"
)

var (
	ErrUnavailable = errors.New("price feed unavailable")
	ErrStale       = errors.New("price feed reading is stale")
)

// Reading is one observation of the external price feed.
type Reading struct {
	Value      decimal.Decimal
	ObservedAt time.Time
}

// PriceFeed is the external price-feed collaborator.
type PriceFeed interface {
	ReadValue(ctx context.Context) (Reading, error)
}

// Resolver wraps a feed with a staleness bound. A reading older than the
// bound is treated as unavailable so resolution stays retryable rather than
// fixing an outcome from a dead feed.
type Resolver struct {
	feed   PriceFeed
	maxAge time.Duration
	now    func() time.Time
}

// NewResolver creates a resolver. A zero maxAge disables the staleness check.
func NewResolver(feed PriceFeed, maxAge time.Duration) *Resolver {
	return &Resolver{feed: feed, maxAge: maxAge, now: time.Now}
}

// Observe returns the current authoritative value or an error wrapping
// ErrUnavailable/ErrStale.
func (r *Resolver) Observe(ctx context.Context) (decimal.Decimal, error) {
	reading, err := r.feed.ReadValue(ctx)
	if err != nil {
		return decimal.Zero, fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	if r.maxAge > 0 && r.now().Sub(reading.ObservedAt) > r.maxAge {
		return decimal.Zero, fmt.Errorf("%w: observed at %s", ErrStale, reading.ObservedAt.Format(time.RFC3339))
	}
	return reading.Value, nil
}
