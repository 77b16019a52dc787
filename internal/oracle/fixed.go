package oracle

import (
	"context"
	"sync"
	"time"

	"github.com/shopspring/decimal"
)

// FixedFeed is an in-process price feed for local development and tests.
// The value and observation time are set explicitly.
type FixedFeed struct {
	mu      sync.RWMutex
	reading Reading
	err     error
}

// NewFixedFeed creates a feed reporting value as of now.
func NewFixedFeed(value decimal.Decimal) *FixedFeed {
	return &FixedFeed{reading: Reading{Value: value, ObservedAt: time.Now()}}
}

// Set updates the reported value and refreshes the observation time.
func (f *FixedFeed) Set(value decimal.Decimal) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.reading = Reading{Value: value, ObservedAt: time.Now()}
	f.err = nil
}

// SetReading updates the full reading, observation time included.
func (f *FixedFeed) SetReading(reading Reading) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.reading = reading
	f.err = nil
}

// Fail makes subsequent reads return err until the next Set.
func (f *FixedFeed) Fail(err error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.err = err
}

// ReadValue implements PriceFeed.
func (f *FixedFeed) ReadValue(_ context.Context) (Reading, error) {
	f.mu.RLock()
	defer f.mu.RUnlock()
	if f.err != nil {
		return Reading{}, f.err
	}
	return f.reading, nil
}
