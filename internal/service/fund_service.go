package service

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/vriksha/farmfund/internal/config"
	"github.com/vriksha/farmfund/internal/domain"
)

// FundAdminStore is the write side of the fund repository.
type FundAdminStore interface {
	FundStore
	Create(ctx context.Context, f *domain.Fund) error
	UpdateDates(ctx context.Context, fundID uuid.UUID, d domain.FundDates) error
	UpdateRoadmap(ctx context.Context, fundID uuid.UUID, roadmap domain.Roadmap) error
	AllocationByPhase(ctx context.Context) ([]domain.AllocationItem, error)
}

// ManagerAdminStore creates manager records and promotes their profiles.
type ManagerAdminStore interface {
	CreateManager(ctx context.Context, m *domain.FundManager) error
	SetRole(ctx context.Context, email, role string, assignedFund *uuid.UUID) error
}

// ARRStore reads and writes the per-year growth timeline and the expenses
// mirror used for spend reports.
type ARRStore interface {
	UpsertARR(ctx context.Context, entry *domain.ARREntry) error
	ListARR(ctx context.Context, fundID uuid.UUID) ([]domain.ARREntry, error)
	ListExpenses(ctx context.Context, fundID uuid.UUID) ([]domain.Expense, error)
}

// SnapshotSeeder writes the initial metrics row for a new fund.
type SnapshotSeeder interface {
	Insert(ctx context.Context, snap *domain.MetricsSnapshot, effectiveDate string) error
}

// Authorizer decides whether an actor may administer a fund.
// Implemented by MetricsService.
type Authorizer interface {
	Authorize(ctx context.Context, email string, fundID uuid.UUID) error
}

// ──────────────────────────────────────────────────────────────────────────────
// FundService
// ──────────────────────────────────────────────────────────────────────────────

// FundService handles fund administration: creation, manager delegation, date
// and roadmap edits, the ARR timeline, and spend reports.
type FundService struct {
	funds     FundAdminStore
	managers  ManagerAdminStore
	arr       ARRStore
	snapshots SnapshotSeeder
	events    EventStore
	authz     Authorizer
	cfg       *config.Config
	log       *slog.Logger
}

// NewFundService creates a FundService.
func NewFundService(
	funds FundAdminStore,
	managers ManagerAdminStore,
	arr ARRStore,
	snapshots SnapshotSeeder,
	events EventStore,
	authz Authorizer,
	cfg *config.Config,
	log *slog.Logger,
) *FundService {
	return &FundService{
		funds:     funds,
		managers:  managers,
		arr:       arr,
		snapshots: snapshots,
		events:    events,
		authz:     authz,
		cfg:       cfg,
		log:       log,
	}
}

func (s *FundService) requireAdmin(email string) error {
	if strings.EqualFold(email, s.cfg.Admin.Email) {
		return nil
	}
	return domain.ErrForbidden
}

// ──────────────────────────────────────────────────────────────────────────────
// Fund lifecycle
// ──────────────────────────────────────────────────────────────────────────────

// CreateFundInput carries the new-fund form.
type CreateFundInput struct {
	Name         string          `json:"name"`
	Location     string          `json:"location"`
	TargetAmount decimal.Decimal `json:"target_amount"`
	InitialValue decimal.Decimal `json:"initial_value"`
	EntryDate    string          `json:"entry_date"`
	ExitDate     string          `json:"exit_date"`
	Phase        string          `json:"phase"`
	Description  *string         `json:"description"`
	BlueprintURL *string         `json:"blueprint_url"`
	Roadmap      domain.Roadmap  `json:"roadmap"`
}

// CreateFund registers a new fund and seeds its first metrics snapshot at the
// target valuation with full inventory. Administrator only.
func (s *FundService) CreateFund(ctx context.Context, actor string, in CreateFundInput) (*domain.Fund, error) {
	if err := s.requireAdmin(actor); err != nil {
		return nil, err
	}
	if strings.TrimSpace(in.Name) == "" {
		return nil, domain.ErrInvalidFundName
	}

	target := in.TargetAmount
	if !target.IsPositive() {
		target = decimal.NewFromInt(s.cfg.Fund.DefaultTarget)
	}
	capacity := s.cfg.Fund.AuthorizedCapacity

	fund := &domain.Fund{
		ID:           uuid.New(),
		Name:         strings.TrimSpace(in.Name),
		Location:     in.Location,
		TargetAmount: target,
		TotalStocks:  capacity,
		StockPrice:   target.IntPart() / capacity,
		EntryDate:    in.EntryDate,
		ExitDate:     in.ExitDate,
		Phase:        in.Phase,
		Description:  in.Description,
		BlueprintURL: in.BlueprintURL,
		Roadmap:      in.Roadmap,
		CreatedBy:    actor,
		CreatedAt:    time.Now().UTC(),
	}
	if fund.EntryDate == "" {
		fund.EntryDate = s.cfg.Fund.DefaultStartDate
	}
	if err := s.funds.Create(ctx, fund); err != nil {
		return nil, fmt.Errorf("fund_service.CreateFund: %w", err)
	}

	seed := domain.DefaultSnapshot(fund.ID, capacity)
	seed.TotalFundValue = target.IntPart()
	seed.LandValue = in.InitialValue.IntPart()
	seed.RecomputeStockPrice(capacity)
	seed.UpdatedAt = fund.CreatedAt
	if err := s.snapshots.Insert(ctx, seed, fund.EntryDate); err != nil {
		// The fund exists; the first mutation will create the snapshot instead.
		s.log.Warn("seed snapshot failed for new fund", "fund_id", fund.ID, "error", err)
	}

	return fund, nil
}

// ListFunds returns all funds.
func (s *FundService) ListFunds(ctx context.Context) ([]domain.Fund, error) {
	return s.funds.List(ctx)
}

// GetFund returns one fund by UUID.
func (s *FundService) GetFund(ctx context.Context, id uuid.UUID) (*domain.Fund, error) {
	return s.funds.GetByID(ctx, id)
}

// Allocation returns the phase allocation pie.
func (s *FundService) Allocation(ctx context.Context) ([]domain.AllocationItem, error) {
	return s.funds.AllocationByPhase(ctx)
}

// ──────────────────────────────────────────────────────────────────────────────
// Manager delegation
// ──────────────────────────────────────────────────────────────────────────────

// CreateManagerInput carries the new-manager form.
type CreateManagerInput struct {
	Name         string     `json:"name"`
	Email        string     `json:"email"`
	Phone        string     `json:"phone"`
	AssignedFund *uuid.UUID `json:"assigned_fund"`
}

// CreateManager registers a fund manager and promotes any existing profile
// with that email. Administrator only.
func (s *FundService) CreateManager(ctx context.Context, actor string, in CreateManagerInput) (*domain.FundManager, error) {
	if err := s.requireAdmin(actor); err != nil {
		return nil, err
	}

	m := &domain.FundManager{
		Name:         in.Name,
		Email:        strings.ToLower(strings.TrimSpace(in.Email)),
		Phone:        in.Phone,
		AssignedFund: in.AssignedFund,
		CreatedBy:    actor,
		CreatedAt:    time.Now().UTC(),
	}
	if err := s.managers.CreateManager(ctx, m); err != nil {
		return nil, fmt.Errorf("fund_service.CreateManager: %w", err)
	}

	// The profile may not exist yet; role sync also runs at login.
	if err := s.managers.SetRole(ctx, m.Email, "fund_manager", in.AssignedFund); err != nil {
		s.log.Warn("manager profile promotion failed", "email", m.Email, "error", err)
	}
	return m, nil
}

// ──────────────────────────────────────────────────────────────────────────────
// Dates, roadmap, ARR
// ──────────────────────────────────────────────────────────────────────────────

// UpdateFundDates overwrites the fund's entry/exit and phase dates.
func (s *FundService) UpdateFundDates(ctx context.Context, actor string, fundID uuid.UUID, d domain.FundDates) error {
	if fundID == uuid.Nil {
		return domain.ErrMissingFundID
	}
	if err := s.authz.Authorize(ctx, actor, fundID); err != nil {
		return err
	}
	if err := s.funds.UpdateDates(ctx, fundID, d); err != nil {
		return fmt.Errorf("fund_service.UpdateFundDates: %w", err)
	}
	s.appendAudit(ctx, fundID, domain.EventDatesUpdated, decimal.Zero, actor)
	return nil
}

// UpdateRoadmap replaces the fund's roadmap.
func (s *FundService) UpdateRoadmap(ctx context.Context, actor string, fundID uuid.UUID, roadmap domain.Roadmap) error {
	if fundID == uuid.Nil {
		return domain.ErrMissingFundID
	}
	if err := s.authz.Authorize(ctx, actor, fundID); err != nil {
		return err
	}
	if err := s.funds.UpdateRoadmap(ctx, fundID, roadmap); err != nil {
		return fmt.Errorf("fund_service.UpdateRoadmap: %w", err)
	}
	s.appendAudit(ctx, fundID, domain.EventRoadmapUpdated, decimal.Zero, actor)
	return nil
}

// ARRUpdate is one year's declared growth rate.
type ARRUpdate struct {
	YearLabel  string  `json:"year_label"`
	GrowthRate float64 `json:"growth_rate"`
}

// UpdateARRBulk upserts the growth rate for each supplied year and logs a
// single audit event whose amount is the number of years touched.
func (s *FundService) UpdateARRBulk(ctx context.Context, actor string, fundID uuid.UUID, updates []ARRUpdate) error {
	if fundID == uuid.Nil {
		return domain.ErrMissingFundID
	}
	if err := s.authz.Authorize(ctx, actor, fundID); err != nil {
		return err
	}

	now := time.Now().UTC()
	for _, u := range updates {
		entry := &domain.ARREntry{
			FundID:     fundID,
			YearLabel:  u.YearLabel,
			GrowthRate: u.GrowthRate,
			UpdatedBy:  actor,
			UpdatedAt:  now,
		}
		if err := s.arr.UpsertARR(ctx, entry); err != nil {
			return fmt.Errorf("fund_service.UpdateARRBulk: year %s: %w", u.YearLabel, err)
		}
	}
	s.appendAudit(ctx, fundID, domain.EventARRUpdatedBulk, decimal.NewFromInt(int64(len(updates))), actor)
	return nil
}

// ARRTimeline returns the fund's per-year growth rates.
func (s *FundService) ARRTimeline(ctx context.Context, fundID uuid.UUID) ([]domain.ARREntry, error) {
	if fundID == uuid.Nil {
		return nil, domain.ErrMissingFundID
	}
	return s.arr.ListARR(ctx, fundID)
}

// appendAudit logs an administrative event; failures never fail the edit.
func (s *FundService) appendAudit(ctx context.Context, fundID uuid.UUID, kind domain.EventKind, amount decimal.Decimal, actor string) {
	ev := &domain.FinancialEvent{
		FundID:    fundID,
		Kind:      kind,
		Amount:    amount,
		Email:     actor,
		CreatedAt: time.Now().UTC(),
	}
	if err := s.events.Append(ctx, ev); err != nil {
		s.log.Warn("audit event append failed", "fund_id", fundID, "type", string(kind), "error", err)
	}
}

// ──────────────────────────────────────────────────────────────────────────────
// Spend reports
// ──────────────────────────────────────────────────────────────────────────────

// ExpenseReport is the full spend analytics payload for one fund.
type ExpenseReport struct {
	Daily      []domain.ExpenseBucket      `json:"daily"`
	Monthly    []domain.ExpenseBucket      `json:"monthly"`
	Yearly     []domain.ExpenseBucket      `json:"yearly"`
	ByPhase    []domain.ExpenseBucket      `json:"by_phase"`
	ByCategory []domain.ExpenseBucket      `json:"by_category"`
	Breakdown  []domain.MonthlyCategoryRow `json:"breakdown"`
}

// BuildExpenseReport aggregates the expenses mirror into every report shape
// the admin dashboard renders.
func (s *FundService) BuildExpenseReport(ctx context.Context, fundID uuid.UUID) (*ExpenseReport, error) {
	if fundID == uuid.Nil {
		return nil, domain.ErrMissingFundID
	}
	expenses, err := s.arr.ListExpenses(ctx, fundID)
	if err != nil {
		return nil, fmt.Errorf("fund_service.BuildExpenseReport: %w", err)
	}
	return &ExpenseReport{
		Daily:      domain.GroupExpensesDaily(expenses),
		Monthly:    domain.GroupExpensesMonthly(expenses),
		Yearly:     domain.GroupExpensesYearly(expenses),
		ByPhase:    domain.GroupExpensesByPhase(expenses),
		ByCategory: domain.GroupExpensesByCategory(expenses),
		Breakdown:  domain.MonthlyCategoryBreakdown(expenses),
	}, nil
}
