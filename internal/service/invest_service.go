package service

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/vriksha/farmfund/internal/domain"
)

// InvestmentLedger is the slice of the investment repository InvestService
// writes through.
type InvestmentLedger interface {
	Create(ctx context.Context, inv *domain.Investment) error
	UnitsHeld(ctx context.Context, email string) (int64, error)
}

// UnitHolderStore updates the cached per-profile unit total.
type UnitHolderStore interface {
	AddUnits(ctx context.Context, email string, units int64) (int64, error)
}

// InventoryRefresher reconciles a fund's snapshot after a purchase.
// Implemented by MetricsService.
type InventoryRefresher interface {
	RefreshInventory(ctx context.Context, fundID uuid.UUID) (*domain.MetricsSnapshot, error)
}

// InvestmentBroadcaster announces a sale to connected clients.
// Implemented by ws.Hub; injected post-construction.
type InvestmentBroadcaster interface {
	BroadcastInvestmentMade(fundID uuid.UUID, stockCount, remaining int64)
}

// ──────────────────────────────────────────────────────────────────────────────
// InvestService
// ──────────────────────────────────────────────────────────────────────────────

// InvestService records unit purchases. The investments table is the
// authoritative ledger; the snapshot inventory and the profile's cached unit
// total are both derived from it after each write.
type InvestService struct {
	ledger      InvestmentLedger
	profiles    UnitHolderStore
	funds       FundStore
	events      EventStore
	metrics     InventoryRefresher
	log         *slog.Logger
	broadcaster InvestmentBroadcaster // injected after WS Hub is built
}

// NewInvestService creates an InvestService.
func NewInvestService(
	ledger InvestmentLedger,
	profiles UnitHolderStore,
	funds FundStore,
	events EventStore,
	metrics InventoryRefresher,
	log *slog.Logger,
) *InvestService {
	return &InvestService{
		ledger:   ledger,
		profiles: profiles,
		funds:    funds,
		events:   events,
		metrics:  metrics,
		log:      log,
	}
}

// SetBroadcaster injects the WS Hub dependency post-construction.
func (s *InvestService) SetBroadcaster(b InvestmentBroadcaster) { s.broadcaster = b }

// InvestInput carries one purchase request. Email comes from the caller's
// token, never from the request body.
type InvestInput struct {
	FundID     uuid.UUID       `json:"fund_id"`
	StockCount int64           `json:"stock_count"`
	AmountPaid decimal.Decimal `json:"amount_paid"`
}

// InvestResult is returned after a recorded purchase.
type InvestResult struct {
	Investment   *domain.Investment      `json:"investment"`
	Snapshot     *domain.MetricsSnapshot `json:"snapshot"`
	UnitsHeld    int64                   `json:"units_held"`
	Warnings     []Warning               `json:"warnings,omitempty"`
}

// RecordInvestment validates and persists a purchase, appends the capital
// event, reconciles the fund snapshot, and bumps the investor's unit total.
// The ledger write is the only fatal step; everything downstream degrades to
// warnings because the purchase itself must never be lost.
func (s *InvestService) RecordInvestment(ctx context.Context, email string, in InvestInput) (*InvestResult, error) {
	if in.FundID == uuid.Nil {
		return nil, domain.ErrMissingFundID
	}
	if in.StockCount <= 0 {
		return nil, domain.ErrInvalidUnitCount
	}
	if _, err := s.funds.GetByID(ctx, in.FundID); err != nil {
		return nil, err
	}

	inv := &domain.Investment{
		FundID:     in.FundID,
		Email:      email,
		StockCount: in.StockCount,
		AmountPaid: in.AmountPaid,
		Status:     domain.InvestmentCompleted,
		CreatedAt:  time.Now().UTC(),
	}
	if err := s.ledger.Create(ctx, inv); err != nil {
		return nil, fmt.Errorf("invest_service.RecordInvestment: %w", err)
	}

	res := &InvestResult{Investment: inv}

	ev := &domain.FinancialEvent{
		FundID:    in.FundID,
		Kind:      domain.EventInvestmentMade,
		Amount:    in.AmountPaid,
		Email:     email,
		CreatedAt: inv.CreatedAt,
	}
	if err := s.events.Append(ctx, ev); err != nil {
		res.Warnings = append(res.Warnings, Warning{Stage: "event_log", Detail: err.Error()})
		s.log.Warn("investment event append failed", "fund_id", in.FundID, "error", err)
	}

	snap, err := s.metrics.RefreshInventory(ctx, in.FundID)
	if err != nil {
		res.Warnings = append(res.Warnings, Warning{Stage: "inventory", Detail: err.Error()})
		s.log.Warn("inventory refresh failed after investment", "fund_id", in.FundID, "error", err)
	} else {
		res.Snapshot = snap
		if s.broadcaster != nil {
			s.broadcaster.BroadcastInvestmentMade(in.FundID, in.StockCount, snap.TotalStocks)
		}
	}

	total, err := s.profiles.AddUnits(ctx, email, in.StockCount)
	if err != nil {
		res.Warnings = append(res.Warnings, Warning{Stage: "profile_units", Detail: err.Error()})
		s.log.Warn("profile unit update failed after investment", "email", email, "error", err)
		// Fall back to recounting the ledger directly.
		if held, cntErr := s.ledger.UnitsHeld(ctx, email); cntErr == nil {
			total = held
		}
	}
	res.UnitsHeld = total

	return res, nil
}
