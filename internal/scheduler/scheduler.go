// Package scheduler runs the background inventory reconciliation sweep:
// every fund's cached unit inventory is periodically re-derived from the
// investments ledger so drift from failed best-effort writes never persists.
package scheduler

import (
	"context"
	"log/slog"
	"time"

	"github.com/vriksha/farmfund/internal/config"
	"github.com/vriksha/farmfund/internal/domain"
	"github.com/vriksha/farmfund/internal/service"
)

// FundLister returns every registered fund.
type FundLister interface {
	List(ctx context.Context) ([]domain.Fund, error)
}

// Scheduler periodically reconciles every fund's snapshot inventory against
// the investments ledger. Call Start(ctx) once from main(); cancel the
// context to shut it down gracefully.
type Scheduler struct {
	funds   FundLister
	metrics *service.MetricsService
	cfg     *config.Config
	logger  *slog.Logger
}

// NewScheduler creates a Scheduler.
func NewScheduler(
	funds FundLister,
	metrics *service.MetricsService,
	cfg *config.Config,
	logger *slog.Logger,
) *Scheduler {
	return &Scheduler{
		funds:   funds,
		metrics: metrics,
		cfg:     cfg,
		logger:  logger,
	}
}

// Start runs one immediate sweep and then launches the periodic loop.
// A zero interval disables the loop; the startup sweep still runs.
func (s *Scheduler) Start(ctx context.Context) {
	go func() {
		defer s.recoverAndLog("inventorySweepLoop")

		s.sweep(ctx)

		interval := s.cfg.Scheduler.InventorySyncInterval
		if interval <= 0 {
			s.logger.Info("inventory sweep loop disabled")
			return
		}

		ticker := time.NewTicker(interval)
		defer ticker.Stop()

		for {
			select {
			case <-ctx.Done():
				s.logger.Info("inventorySweepLoop: shutting down")
				return
			case <-ticker.C:
				s.sweep(ctx)
			}
		}
	}()
	s.logger.Info("scheduler started", "interval", s.cfg.Scheduler.InventorySyncInterval)
}

// sweep reconciles every fund once. Per-fund failures are logged and the
// sweep continues; a fund with a broken snapshot table must not block the
// others.
func (s *Scheduler) sweep(ctx context.Context) {
	funds, err := s.funds.List(ctx)
	if err != nil {
		s.logger.Error("inventory sweep: fund list failed", "err", err)
		return
	}

	start := time.Now()
	reconciled := 0
	for _, fund := range funds {
		if ctx.Err() != nil {
			return
		}
		fundCtx, cancel := context.WithTimeout(ctx, s.cfg.Server.RequestTimeout)
		_, err := s.metrics.RefreshInventory(fundCtx, fund.ID)
		cancel()
		if err != nil {
			s.logger.Warn("inventory sweep: fund reconcile failed",
				"fund_id", fund.ID, "err", err)
			continue
		}
		reconciled++
	}
	s.logger.Info("inventory sweep complete",
		"funds", len(funds), "reconciled", reconciled,
		"took", time.Since(start).Round(time.Millisecond))
}

// recoverAndLog is deferred inside the sweep goroutine to catch unexpected
// panics, log them, and keep the process alive.
func (s *Scheduler) recoverAndLog(loop string) {
	if r := recover(); r != nil {
		s.logger.Error("PANIC recovered in scheduler loop",
			"loop", loop, "panic", r)
	}
}
