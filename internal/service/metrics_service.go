package service

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/vriksha/farmfund/internal/config"
	"github.com/vriksha/farmfund/internal/domain"
)

// ──────────────────────────────────────────────────────────────────────────────
// Store interfaces injected into MetricsService
// ──────────────────────────────────────────────────────────────────────────────

// SnapshotStore is the slice of the snapshot repository MetricsService needs.
type SnapshotStore interface {
	Latest(ctx context.Context, fundID uuid.UUID) (*domain.SnapshotOverlay, error)
	PhaseHistory(ctx context.Context, fundID uuid.UUID) ([]domain.PhaseProgress, error)
	Insert(ctx context.Context, snap *domain.MetricsSnapshot, effectiveDate string) error
}

// EventStore appends and reads the financial event log.
type EventStore interface {
	Append(ctx context.Context, ev *domain.FinancialEvent) error
	ListRecent(ctx context.Context, fundID *uuid.UUID, limit int) ([]domain.FinancialEvent, error)
}

// InvestmentStore exposes the aggregate unit count sold for a fund.
type InvestmentStore interface {
	UnitsSold(ctx context.Context, fundID uuid.UUID) (int64, error)
}

// ManagerStore resolves a manager email to its fund assignment.
type ManagerStore interface {
	ManagerAssignment(ctx context.Context, email string) (*uuid.UUID, bool, error)
}

// MirrorStore feeds the best-effort analytics side tables.
type MirrorStore interface {
	InsertExpense(ctx context.Context, e *domain.Expense) error
	InsertPerformance(ctx context.Context, e *domain.PerformanceEntry) error
}

// Broadcaster is the minimal interface MetricsService needs from the WS hub.
// Implemented by ws.Hub; injected post-construction.
type Broadcaster interface {
	BroadcastMetricsUpdate(snap *domain.MetricsSnapshot)
}

// ──────────────────────────────────────────────────────────────────────────────
// Results
// ──────────────────────────────────────────────────────────────────────────────

// Warning records a non-fatal failure inside a mutation: a mirror write or the
// event append that could not complete while the authoritative snapshot write
// succeeded. Warnings are returned to the caller instead of being swallowed.
type Warning struct {
	Stage  string `json:"stage"`
	Detail string `json:"detail"`
}

// MutationResult is the outcome of one snapshot mutation.
type MutationResult struct {
	Snapshot *domain.MetricsSnapshot `json:"snapshot"`
	Warnings []Warning               `json:"warnings,omitempty"`
}

func (r *MutationResult) warn(log *slog.Logger, stage string, err error) {
	r.Warnings = append(r.Warnings, Warning{Stage: stage, Detail: err.Error()})
	log.Warn("non-fatal mutation step failed", "stage", stage, "error", err)
}

// ──────────────────────────────────────────────────────────────────────────────
// MetricsService
// ──────────────────────────────────────────────────────────────────────────────

// MetricsService owns the fund metrics lifecycle: reading the current snapshot
// with drift-tolerant defaults, and the read-modify-insert mutation pipeline
// every financial update goes through.
//
// Mutations on the same fund are serialized with a per-fund lock so two
// concurrent deltas never read the same baseline. Different funds proceed in
// parallel.
type MetricsService struct {
	snapshots   SnapshotStore
	events      EventStore
	investments InvestmentStore
	managers    ManagerStore
	mirrors     MirrorStore
	cfg         *config.Config
	log         *slog.Logger
	broadcaster Broadcaster // injected after WS Hub is built

	mu        sync.Mutex
	fundLocks map[uuid.UUID]*sync.Mutex
}

// NewMetricsService creates a MetricsService.
func NewMetricsService(
	snapshots SnapshotStore,
	events EventStore,
	investments InvestmentStore,
	managers ManagerStore,
	mirrors MirrorStore,
	cfg *config.Config,
	log *slog.Logger,
) *MetricsService {
	return &MetricsService{
		snapshots:   snapshots,
		events:      events,
		investments: investments,
		managers:    managers,
		mirrors:     mirrors,
		cfg:         cfg,
		log:         log,
		fundLocks:   make(map[uuid.UUID]*sync.Mutex),
	}
}

// SetBroadcaster injects the WS Hub dependency post-construction.
func (s *MetricsService) SetBroadcaster(b Broadcaster) { s.broadcaster = b }

// lockFund returns the mutex serializing mutations for one fund, creating it
// on first use.
func (s *MetricsService) lockFund(fundID uuid.UUID) *sync.Mutex {
	s.mu.Lock()
	defer s.mu.Unlock()
	l, ok := s.fundLocks[fundID]
	if !ok {
		l = &sync.Mutex{}
		s.fundLocks[fundID] = l
	}
	return l
}

// ──────────────────────────────────────────────────────────────────────────────
// Authorization
// ──────────────────────────────────────────────────────────────────────────────

// Authorize checks that the actor may mutate the given fund: either the
// configured administrator, or a fund manager whose assignment matches.
// Lookup failures deny rather than surface storage errors to the caller.
func (s *MetricsService) Authorize(ctx context.Context, email string, fundID uuid.UUID) error {
	if strings.EqualFold(email, s.cfg.Admin.Email) {
		return nil
	}
	assigned, found, err := s.managers.ManagerAssignment(ctx, email)
	if err != nil {
		s.log.Warn("manager lookup failed, denying", "email", email, "error", err)
		return domain.ErrForbidden
	}
	if found && assigned != nil && *assigned == fundID {
		return nil
	}
	return domain.ErrForbidden
}

// ──────────────────────────────────────────────────────────────────────────────
// Reads
// ──────────────────────────────────────────────────────────────────────────────

// CurrentMetrics returns the live state of a fund: the latest stored snapshot
// overlaid on the zero-state defaults. When the latest row carries an all-zero
// phase triple the history is scanned newest-first and the last real triple is
// restored, so a partial write never shows phase progress going backwards.
func (s *MetricsService) CurrentMetrics(ctx context.Context, fundID uuid.UUID) (*domain.MetricsSnapshot, error) {
	snap := domain.DefaultSnapshot(fundID, s.cfg.Fund.AuthorizedCapacity)

	overlay, err := s.snapshots.Latest(ctx, fundID)
	if err != nil {
		return nil, fmt.Errorf("metrics_service.CurrentMetrics: %w", err)
	}
	overlay.ApplyTo(snap)

	if !snap.HasPhaseProgress() {
		s.backfillPhases(ctx, snap)
	}
	return snap, nil
}

// backfillPhases restores the phase triple from the most recent snapshot that
// recorded real progress. A scan failure leaves the zeros in place.
func (s *MetricsService) backfillPhases(ctx context.Context, snap *domain.MetricsSnapshot) {
	history, err := s.snapshots.PhaseHistory(ctx, snap.FundID)
	if err != nil {
		s.log.Warn("phase backfill scan failed", "fund_id", snap.FundID, "error", err)
		return
	}
	for _, row := range history {
		if row.Any() {
			snap.Phase1Progress, snap.Phase2Progress, snap.Phase3Progress = row.Values()
			return
		}
	}
}

// RecentActivity returns the newest events, optionally for one fund.
func (s *MetricsService) RecentActivity(ctx context.Context, fundID *uuid.UUID, limit int) ([]domain.FinancialEvent, error) {
	if limit <= 0 {
		limit = 20
	}
	events, err := s.events.ListRecent(ctx, fundID, limit)
	if err != nil {
		return nil, fmt.Errorf("metrics_service.RecentActivity: %w", err)
	}
	return events, nil
}

// ──────────────────────────────────────────────────────────────────────────────
// Mutation pipeline
// ──────────────────────────────────────────────────────────────────────────────

// applyDelta is the single write path for fund metrics. It holds the fund's
// lock for the full read-modify-insert cycle:
//
//  1. read the current snapshot (defaults + latest row + phase backfill)
//  2. apply the caller's mutation
//  3. reconcile inventory against the investments ledger
//  4. recompute the unit price from the new fund value
//  5. insert the new snapshot row (the only fatal step)
//  6. append the event and broadcast, both non-fatal
func (s *MetricsService) applyDelta(
	ctx context.Context,
	fundID uuid.UUID,
	effectiveDate string,
	mutate func(*domain.MetricsSnapshot),
	ev *domain.FinancialEvent,
) (*MutationResult, error) {
	if fundID == uuid.Nil {
		return nil, domain.ErrMissingFundID
	}

	lock := s.lockFund(fundID)
	lock.Lock()
	defer lock.Unlock()

	snap, err := s.CurrentMetrics(ctx, fundID)
	if err != nil {
		return nil, err
	}
	mutate(snap)

	res := &MutationResult{Snapshot: snap}

	if sold, err := s.investments.UnitsSold(ctx, fundID); err != nil {
		res.warn(s.log, "inventory", err)
	} else {
		snap.ClampInventory(s.cfg.Fund.AuthorizedCapacity, sold)
	}

	snap.RecomputeStockPrice(s.cfg.Fund.AuthorizedCapacity)
	snap.UpdatedAt = time.Now().UTC()

	if err := s.snapshots.Insert(ctx, snap, effectiveDate); err != nil {
		return nil, fmt.Errorf("metrics_service.applyDelta: %w", err)
	}

	if ev != nil {
		ev.FundID = fundID
		ev.CreatedAt = effectiveTime(effectiveDate)
		if err := s.events.Append(ctx, ev); err != nil {
			res.warn(s.log, "event_log", err)
		}
	}

	if s.broadcaster != nil {
		s.broadcaster.BroadcastMetricsUpdate(snap)
	}
	return res, nil
}

// effectiveTime resolves the snapshot/event timestamp: a parsed effective date
// when the administrator backdates, the wall clock otherwise.
func effectiveTime(effectiveDate string) time.Time {
	if effectiveDate != "" {
		if t, err := time.Parse("2006-01-02", effectiveDate); err == nil {
			return t.UTC()
		}
	}
	return time.Now().UTC()
}

// ExpenseInput carries one expense entry.
type ExpenseInput struct {
	FundID        uuid.UUID       `json:"fund_id"`
	Title         string          `json:"title"`
	Amount        decimal.Decimal `json:"amount"`
	Category      string          `json:"category"`
	Phase         int64           `json:"phase"`
	Date          string          `json:"date"`
	Notes         *string         `json:"notes"`
	EffectiveDate string          `json:"effective_date"`
}

// GrowthInput carries a land-appreciation or profit entry.
type GrowthInput struct {
	FundID        uuid.UUID       `json:"fund_id"`
	Amount        decimal.Decimal `json:"amount"`
	Description   string          `json:"description"`
	EffectiveDate string          `json:"effective_date"`
}

// ProgressInput carries a phase progress update. Nil fields keep the current
// value.
type ProgressInput struct {
	FundID        uuid.UUID `json:"fund_id"`
	Phase1        *int64    `json:"phase1_progress"`
	Phase2        *int64    `json:"phase2_progress"`
	Phase3        *int64    `json:"phase3_progress"`
	EffectiveDate string    `json:"effective_date"`
}

// ApplyExpense records an operating expense: mirror row for analytics, then
// the snapshot delta. The mirror write happens first and its failure is a
// warning, never a reason to lose the expense itself.
func (s *MetricsService) ApplyExpense(ctx context.Context, actor string, in ExpenseInput) (*MutationResult, error) {
	if in.FundID == uuid.Nil {
		return nil, domain.ErrMissingFundID
	}
	if !in.Amount.IsPositive() {
		return nil, domain.ErrInvalidAmount
	}
	if err := s.Authorize(ctx, actor, in.FundID); err != nil {
		return nil, err
	}
	// A dated expense backdates the snapshot and event too.
	if in.EffectiveDate == "" {
		in.EffectiveDate = in.Date
	}

	var mirrorWarn error
	mirror := &domain.Expense{
		FundID:   in.FundID,
		Title:    in.Title,
		Amount:   in.Amount,
		Category: in.Category,
		Phase:    in.Phase,
		Date:     expenseDate(in),
		Notes:    in.Notes,
	}
	if err := s.mirrors.InsertExpense(ctx, mirror); err != nil {
		mirrorWarn = err
	}

	category := in.Category
	phase := in.Phase
	res, err := s.applyDelta(ctx, in.FundID, in.EffectiveDate,
		func(snap *domain.MetricsSnapshot) {
			snap.TotalExpenses += in.Amount.IntPart()
		},
		&domain.FinancialEvent{
			Kind:     domain.EventExpenseAdded,
			Amount:   in.Amount,
			Email:    actor,
			Category: &category,
			Phase:    &phase,
		})
	if err != nil {
		return nil, err
	}
	if mirrorWarn != nil {
		res.warn(s.log, "expense_mirror", mirrorWarn)
	}
	return res, nil
}

func expenseDate(in ExpenseInput) string {
	if in.Date != "" {
		return in.Date
	}
	if in.EffectiveDate != "" {
		return in.EffectiveDate
	}
	return time.Now().UTC().Format("2006-01-02")
}

// ApplyLandGrowth records land appreciation: both the land total and the fund
// value increase by the amount.
func (s *MetricsService) ApplyLandGrowth(ctx context.Context, actor string, in GrowthInput) (*MutationResult, error) {
	return s.applyGrowth(ctx, actor, in, "land_growth", domain.EventLandValueUpdated,
		func(snap *domain.MetricsSnapshot) {
			delta := in.Amount.IntPart()
			snap.LandValue += delta
			snap.TotalFundValue += delta
		})
}

// ApplyProfit records realized profit: both the profit total and the fund
// value increase by the amount.
func (s *MetricsService) ApplyProfit(ctx context.Context, actor string, in GrowthInput) (*MutationResult, error) {
	return s.applyGrowth(ctx, actor, in, "profit", domain.EventProfitAdded,
		func(snap *domain.MetricsSnapshot) {
			delta := in.Amount.IntPart()
			snap.TotalProfits += delta
			snap.TotalFundValue += delta
		})
}

func (s *MetricsService) applyGrowth(
	ctx context.Context,
	actor string,
	in GrowthInput,
	perfKind string,
	eventKind domain.EventKind,
	mutate func(*domain.MetricsSnapshot),
) (*MutationResult, error) {
	if in.FundID == uuid.Nil {
		return nil, domain.ErrMissingFundID
	}
	if !in.Amount.IsPositive() {
		return nil, domain.ErrInvalidAmount
	}
	if err := s.Authorize(ctx, actor, in.FundID); err != nil {
		return nil, err
	}

	res, err := s.applyDelta(ctx, in.FundID, in.EffectiveDate, mutate,
		&domain.FinancialEvent{
			Kind:   eventKind,
			Amount: in.Amount,
			Email:  actor,
		})
	if err != nil {
		return nil, err
	}

	perf := &domain.PerformanceEntry{
		FundID:      in.FundID,
		Kind:        perfKind,
		Amount:      in.Amount,
		Date:        effectiveTime(in.EffectiveDate).Format("2006-01-02"),
		UpdatedBy:   actor,
		Description: in.Description,
	}
	if err := s.mirrors.InsertPerformance(ctx, perf); err != nil {
		res.warn(s.log, "performance_mirror", err)
	}
	return res, nil
}

// SetPhaseProgress overwrites the supplied phase completion percentages.
// Monetary totals are untouched; the event carries a zero amount.
func (s *MetricsService) SetPhaseProgress(ctx context.Context, actor string, in ProgressInput) (*MutationResult, error) {
	if in.FundID == uuid.Nil {
		return nil, domain.ErrMissingFundID
	}
	if err := s.Authorize(ctx, actor, in.FundID); err != nil {
		return nil, err
	}
	return s.applyDelta(ctx, in.FundID, in.EffectiveDate,
		func(snap *domain.MetricsSnapshot) {
			if in.Phase1 != nil {
				snap.Phase1Progress = *in.Phase1
			}
			if in.Phase2 != nil {
				snap.Phase2Progress = *in.Phase2
			}
			if in.Phase3 != nil {
				snap.Phase3Progress = *in.Phase3
			}
		},
		&domain.FinancialEvent{
			Kind:   domain.EventProgressUpdated,
			Amount: decimal.Zero,
			Email:  actor,
		})
}

// RefreshInventory reconciles the snapshot's available unit count against the
// investments ledger and persists the result. Used after a purchase and by the
// background sweep; no event is logged and no authorization applies.
func (s *MetricsService) RefreshInventory(ctx context.Context, fundID uuid.UUID) (*domain.MetricsSnapshot, error) {
	if fundID == uuid.Nil {
		return nil, domain.ErrMissingFundID
	}

	lock := s.lockFund(fundID)
	lock.Lock()
	defer lock.Unlock()

	snap, err := s.CurrentMetrics(ctx, fundID)
	if err != nil {
		return nil, err
	}
	sold, err := s.investments.UnitsSold(ctx, fundID)
	if err != nil {
		return nil, fmt.Errorf("metrics_service.RefreshInventory: %w", err)
	}
	snap.ClampInventory(s.cfg.Fund.AuthorizedCapacity, sold)
	snap.RecomputeStockPrice(s.cfg.Fund.AuthorizedCapacity)
	snap.UpdatedAt = time.Now().UTC()

	if err := s.snapshots.Insert(ctx, snap, ""); err != nil {
		return nil, fmt.Errorf("metrics_service.RefreshInventory: %w", err)
	}

	if s.broadcaster != nil {
		s.broadcaster.BroadcastMetricsUpdate(snap)
	}
	return snap, nil
}
