// Package randomness implements the request/fulfill protocol with the
// verifiable-randomness collaborator. Requests are correlated by opaque uuids;
// each fulfillment is delivered exactly once to the sink and duplicates or
// unknown ids are rejected.
package randomness

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"predictionmarket-backend/internal/metrics"
)

var ErrUnknownRequest = errors.New("unknown or already fulfilled randomness request")

// FundingSource pays for randomness requests. Debits happen inside the
// resolution pipeline only.
type FundingSource interface {
	DebitRandomness(amount uint64) error
}

// Source produces random values asynchronously for locally-served requests.
// Deployments backed by an external VRF-style service leave this nil and
// deliver through Coordinator.Fulfill instead.
type Source interface {
	Deliver(requestID uuid.UUID, fulfill func(requestID uuid.UUID, value uint64) error)
}

// Config configures a coordinator. KeyHash and SubscriptionID identify the
// randomness subscription; both are fixed per deployment.
type Config struct {
	KeyHash        common.Hash
	SubscriptionID uint64
	RequestFee     uint64 // debited from Funding per request, 0 disables
	Funding        FundingSource
	Source         Source
	Sink           func(requestID uuid.UUID, value uint64) error
	Log            *logrus.Logger
}

// Coordinator issues randomness requests and validates fulfillments before
// forwarding them to the sink.
type Coordinator struct {
	cfg Config
	log *logrus.Entry

	mu          sync.Mutex
	outstanding map[uuid.UUID]time.Time
}

// NewCoordinator creates a coordinator.
func NewCoordinator(cfg Config) *Coordinator {
	if cfg.Log == nil {
		cfg.Log = logrus.StandardLogger()
	}
	return &Coordinator{
		cfg:         cfg,
		log:         cfg.Log.WithField("key_hash", cfg.KeyHash.Hex()),
		outstanding: make(map[uuid.UUID]time.Time),
	}
}

// Request issues a new randomness request and returns its correlation id.
// The request fee is debited first; an underfunded vault fails the request
// before any id is issued, so callers can fund and retry.
func (c *Coordinator) Request(_ context.Context) (uuid.UUID, error) {
	if c.cfg.Funding != nil && c.cfg.RequestFee > 0 {
		if err := c.cfg.Funding.DebitRandomness(c.cfg.RequestFee); err != nil {
			return uuid.Nil, err
		}
	}

	requestID := uuid.New()
	c.mu.Lock()
	c.outstanding[requestID] = time.Now()
	c.mu.Unlock()

	metrics.RandomnessRequests.WithLabelValues("requested").Inc()
	c.log.WithFields(logrus.Fields{
		"request_id":      requestID.String(),
		"subscription_id": c.cfg.SubscriptionID,
	}).Info("Randomness requested")

	if c.cfg.Source != nil {
		c.cfg.Source.Deliver(requestID, c.Fulfill)
	}
	return requestID, nil
}

// Track re-registers a request id issued before a restart so its fulfillment
// is accepted. Called during startup restore for every market still awaiting
// a tie-break value.
func (c *Coordinator) Track(requestID uuid.UUID) {
	c.mu.Lock()
	c.outstanding[requestID] = time.Now()
	c.mu.Unlock()

	c.log.WithField("request_id", requestID.String()).Info("Restored outstanding randomness request")
	if c.cfg.Source != nil {
		c.cfg.Source.Deliver(requestID, c.Fulfill)
	}
}

// Fulfill consumes one outstanding request and forwards the value to the
// sink. Ids the coordinator never issued, or already consumed, fail with
// ErrUnknownRequest without touching any state.
func (c *Coordinator) Fulfill(requestID uuid.UUID, value uint64) error {
	c.mu.Lock()
	_, ok := c.outstanding[requestID]
	if ok {
		delete(c.outstanding, requestID)
	}
	c.mu.Unlock()

	if !ok {
		metrics.RandomnessRequests.WithLabelValues("rejected").Inc()
		return ErrUnknownRequest
	}

	metrics.RandomnessRequests.WithLabelValues("fulfilled").Inc()
	c.log.WithField("request_id", requestID.String()).Info("Randomness fulfilled")

	if c.cfg.Sink == nil {
		return nil
	}
	return c.cfg.Sink(requestID, value)
}

// Outstanding returns the number of unfulfilled requests.
func (c *Coordinator) Outstanding() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.outstanding)
}
