package service

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/vriksha/farmfund/internal/config"
	"github.com/vriksha/farmfund/internal/domain"
)

// FundStore is the slice of the fund repository the read services need.
type FundStore interface {
	GetByID(ctx context.Context, id uuid.UUID) (*domain.Fund, error)
	GetBySlug(ctx context.Context, slug string) (*domain.Fund, error)
	List(ctx context.Context) ([]domain.Fund, error)
}

// EventReplayStore reads events in replay order.
type EventReplayStore interface {
	ListByFund(ctx context.Context, fundID uuid.UUID) ([]domain.FinancialEvent, error)
	ListAll(ctx context.Context) ([]domain.FinancialEvent, error)
}

// ──────────────────────────────────────────────────────────────────────────────
// HistoryService
// ──────────────────────────────────────────────────────────────────────────────

// HistoryService projects the event log into the daily fund value chart.
// The projection is recomputed per request; the event log is the only input,
// so the chart is always consistent with the ledger.
type HistoryService struct {
	funds  FundStore
	events EventReplayStore
	cfg    *config.Config
}

// NewHistoryService creates a HistoryService.
func NewHistoryService(funds FundStore, events EventReplayStore, cfg *config.Config) *HistoryService {
	return &HistoryService{funds: funds, events: events, cfg: cfg}
}

// FundHistory is the chart payload for one fund.
type FundHistory struct {
	FundID    uuid.UUID          `json:"fund_id"`
	FundName  string             `json:"fund_name"`
	StartDate string             `json:"start_date"`
	Target    int64              `json:"target"`
	Series    []domain.DailyPoint `json:"series"`
}

// ProjectHistory builds the growth series for a fund addressed by UUID or by
// name slug. An empty fundRef replays the whole ledger across funds against
// the configured default target and start date. Funds without a declared
// target or entry date fall back to the same defaults so the chart always
// renders.
func (s *HistoryService) ProjectHistory(ctx context.Context, fundRef string) (*FundHistory, error) {
	if fundRef == "" {
		return s.projectAllFunds(ctx)
	}

	fund, err := s.resolveFund(ctx, fundRef)
	if err != nil {
		return nil, err
	}

	target := fund.TargetAmount
	if !target.IsPositive() {
		target = decimal.NewFromInt(s.cfg.Fund.DefaultTarget)
	}
	start := fund.EntryDate
	if start == "" {
		start = s.cfg.Fund.DefaultStartDate
	}

	events, err := s.events.ListByFund(ctx, fund.ID)
	if err != nil {
		return nil, fmt.Errorf("history_service.ProjectHistory: %w", err)
	}

	return &FundHistory{
		FundID:    fund.ID,
		FundName:  fund.Name,
		StartDate: start,
		Target:    target.IntPart(),
		Series:    domain.BuildHistorySeries(start, target, events),
	}, nil
}

// projectAllFunds charts the combined ledger.
func (s *HistoryService) projectAllFunds(ctx context.Context) (*FundHistory, error) {
	events, err := s.events.ListAll(ctx)
	if err != nil {
		return nil, fmt.Errorf("history_service.ProjectHistory: %w", err)
	}
	target := decimal.NewFromInt(s.cfg.Fund.DefaultTarget)
	start := s.cfg.Fund.DefaultStartDate
	return &FundHistory{
		FundName:  "All Funds",
		StartDate: start,
		Target:    target.IntPart(),
		Series:    domain.BuildHistorySeries(start, target, events),
	}, nil
}

// resolveFund accepts either a fund UUID or a name slug.
func (s *HistoryService) resolveFund(ctx context.Context, fundRef string) (*domain.Fund, error) {
	if id, err := uuid.Parse(fundRef); err == nil {
		return s.funds.GetByID(ctx, id)
	}
	return s.funds.GetBySlug(ctx, domain.Slugify(fundRef))
}
