// Package automation is the external-scheduler half of the resolution
// pipeline: a periodic loop asking "is any market due?" and performing
// resolution when one is. Any external caller may invoke the same two halves
// directly; only the first successful call per market transitions it.
package automation

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/sirupsen/logrus"

	"predictionmarket-backend/internal/market"
	"predictionmarket-backend/internal/metrics"
	"predictionmarket-backend/internal/treasury"
)

// Trigger drives due markets through close and resolution.
type Trigger struct {
	registry   *market.Registry
	vault      *treasury.Vault
	interval   time.Duration
	upkeepCost uint64

	stopCh chan struct{}
	wg     sync.WaitGroup
	log    *logrus.Entry
}

// NewTrigger creates a trigger. upkeepCost is debited from the vault's
// operational balance per performed resolution; 0 disables the debit.
func NewTrigger(registry *market.Registry, vault *treasury.Vault, interval time.Duration, upkeepCost uint64, log *logrus.Logger) *Trigger {
	if log == nil {
		log = logrus.StandardLogger()
	}
	return &Trigger{
		registry:   registry,
		vault:      vault,
		interval:   interval,
		upkeepCost: upkeepCost,
		stopCh:     make(chan struct{}),
		log:        log.WithField("component", "automation"),
	}
}

// Start begins the upkeep loop.
func (t *Trigger) Start(ctx context.Context) {
	t.wg.Add(1)
	go t.run(ctx)
}

// Stop stops the loop and waits for it to exit.
func (t *Trigger) Stop() {
	close(t.stopCh)
	t.wg.Wait()
}

func (t *Trigger) run(ctx context.Context) {
	defer t.wg.Done()

	ticker := time.NewTicker(t.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-t.stopCh:
			return
		case <-ticker.C:
			t.checkAndPerform(ctx)
		}
	}
}

// IsResolutionDue is the check half of the automation contract.
func (t *Trigger) IsResolutionDue(m *market.Market) bool {
	switch m.Status() {
	case market.StatusOpen:
		return !time.Now().Before(m.ResolvesAt())
	case market.StatusClosed:
		return true
	default:
		return false
	}
}

// PerformResolution is the perform half: closes betting if needed and
// requests resolution. Transient failures (oracle unavailable, underfunded
// randomness) are left for the next tick.
func (t *Trigger) PerformResolution(ctx context.Context, m *market.Market) error {
	if err := m.CloseForBetting(); err != nil {
		return err
	}
	if err := m.RequestResolution(ctx); err != nil {
		return err
	}
	if t.upkeepCost > 0 {
		if err := t.vault.DebitOperational(t.upkeepCost); err != nil {
			// The resolution already happened; an underfunded vault is an
			// operational alert, not a reason to wedge the market.
			t.log.WithError(err).Warn("Upkeep performed with underfunded operational balance")
		}
	}
	return nil
}

func (t *Trigger) checkAndPerform(ctx context.Context) {
	for _, m := range t.registry.All() {
		if !t.IsResolutionDue(m) {
			continue
		}
		err := t.PerformResolution(ctx, m)
		switch {
		case err == nil:
			metrics.AutomationRuns.WithLabelValues("performed").Inc()
			t.log.WithField("market_id", m.ID().String()).Info("Automation performed resolution")
		case errors.Is(err, market.ErrOracleUnavailable),
			errors.Is(err, treasury.ErrInsufficientFunds):
			metrics.AutomationRuns.WithLabelValues("retry").Inc()
			t.log.WithError(err).WithField("market_id", m.ID().String()).
				Warn("Resolution deferred, will retry")
		case errors.Is(err, market.ErrAlreadyResolving), errors.Is(err, market.ErrAlreadyResolved):
			// Raced with another caller; nothing to do.
		default:
			metrics.AutomationRuns.WithLabelValues("error").Inc()
			t.log.WithError(err).WithField("market_id", m.ID().String()).
				Error("Automation resolution failed")
		}
	}
}
