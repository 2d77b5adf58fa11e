package service_test

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"sync"
	"testing"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/vriksha/farmfund/internal/config"
	"github.com/vriksha/farmfund/internal/domain"
	"github.com/vriksha/farmfund/internal/service"
)

const adminEmail = "admin@farmfund.in"

// ── In-memory fakes ───────────────────────────────────────────────────────────

type fakeSnapshotStore struct {
	mu        sync.Mutex
	rows      []domain.MetricsSnapshot // append-only, like the real table
	insertErr error
}

func (f *fakeSnapshotStore) Latest(_ context.Context, fundID uuid.UUID) (*domain.SnapshotOverlay, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for i := len(f.rows) - 1; i >= 0; i-- {
		if f.rows[i].FundID != fundID {
			continue
		}
		s := f.rows[i]
		return &domain.SnapshotOverlay{
			TotalFundValue:   &s.TotalFundValue,
			TotalStocks:      &s.TotalStocks,
			StockPrice:       &s.StockPrice,
			GrowthPercentage: &s.GrowthPercentage,
			Phase1Progress:   &s.Phase1Progress,
			Phase2Progress:   &s.Phase2Progress,
			Phase3Progress:   &s.Phase3Progress,
			LandValue:        &s.LandValue,
			TotalProfits:     &s.TotalProfits,
			TotalExpenses:    &s.TotalExpenses,
		}, nil
	}
	return nil, nil
}

func (f *fakeSnapshotStore) PhaseHistory(_ context.Context, fundID uuid.UUID) ([]domain.PhaseProgress, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []domain.PhaseProgress
	for i := len(f.rows) - 1; i >= 0; i-- {
		if f.rows[i].FundID != fundID {
			continue
		}
		s := f.rows[i]
		out = append(out, domain.PhaseProgress{
			Phase1: &s.Phase1Progress,
			Phase2: &s.Phase2Progress,
			Phase3: &s.Phase3Progress,
		})
	}
	return out, nil
}

func (f *fakeSnapshotStore) Insert(_ context.Context, snap *domain.MetricsSnapshot, _ string) error {
	if f.insertErr != nil {
		return f.insertErr
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	f.rows = append(f.rows, *snap)
	return nil
}

func (f *fakeSnapshotStore) last(t *testing.T) domain.MetricsSnapshot {
	t.Helper()
	f.mu.Lock()
	defer f.mu.Unlock()
	if len(f.rows) == 0 {
		t.Fatal("no snapshot rows written")
	}
	return f.rows[len(f.rows)-1]
}

type fakeEventStore struct {
	mu        sync.Mutex
	events    []domain.FinancialEvent
	appendErr error
}

func (f *fakeEventStore) Append(_ context.Context, ev *domain.FinancialEvent) error {
	if f.appendErr != nil {
		return f.appendErr
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	f.events = append(f.events, *ev)
	return nil
}

func (f *fakeEventStore) ListRecent(_ context.Context, fundID *uuid.UUID, limit int) ([]domain.FinancialEvent, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []domain.FinancialEvent
	for i := len(f.events) - 1; i >= 0 && len(out) < limit; i-- {
		if fundID != nil && f.events[i].FundID != *fundID {
			continue
		}
		out = append(out, f.events[i])
	}
	return out, nil
}

type fakeInvestmentStore struct {
	sold    int64
	soldErr error
}

func (f *fakeInvestmentStore) UnitsSold(context.Context, uuid.UUID) (int64, error) {
	return f.sold, f.soldErr
}

type fakeManagerStore struct {
	assignments map[string]uuid.UUID
	lookupErr   error
}

func (f *fakeManagerStore) ManagerAssignment(_ context.Context, email string) (*uuid.UUID, bool, error) {
	if f.lookupErr != nil {
		return nil, false, f.lookupErr
	}
	id, ok := f.assignments[email]
	if !ok {
		return nil, false, nil
	}
	return &id, true, nil
}

type fakeMirrorStore struct {
	mu       sync.Mutex
	expenses []domain.Expense
	perf     []domain.PerformanceEntry
	expErr   error
	perfErr  error
}

func (f *fakeMirrorStore) InsertExpense(_ context.Context, e *domain.Expense) error {
	if f.expErr != nil {
		return f.expErr
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	f.expenses = append(f.expenses, *e)
	return nil
}

func (f *fakeMirrorStore) InsertPerformance(_ context.Context, e *domain.PerformanceEntry) error {
	if f.perfErr != nil {
		return f.perfErr
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	f.perf = append(f.perf, *e)
	return nil
}

// ── Harness ───────────────────────────────────────────────────────────────────

type metricsFixture struct {
	svc         *service.MetricsService
	snapshots   *fakeSnapshotStore
	events      *fakeEventStore
	investments *fakeInvestmentStore
	managers    *fakeManagerStore
	mirrors     *fakeMirrorStore
}

func newMetricsFixture() *metricsFixture {
	cfg := &config.Config{
		Admin: config.AdminConfig{Email: adminEmail},
		Fund: config.FundConfig{
			AuthorizedCapacity: 1000,
			DefaultTarget:      26500000,
			DefaultStartDate:   "2024-01-01",
		},
	}
	f := &metricsFixture{
		snapshots:   &fakeSnapshotStore{},
		events:      &fakeEventStore{},
		investments: &fakeInvestmentStore{},
		managers:    &fakeManagerStore{assignments: map[string]uuid.UUID{}},
		mirrors:     &fakeMirrorStore{},
	}
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	f.svc = service.NewMetricsService(
		f.snapshots, f.events, f.investments, f.managers, f.mirrors, cfg, logger)
	return f
}

func (f *metricsFixture) seed(snap domain.MetricsSnapshot) {
	f.snapshots.rows = append(f.snapshots.rows, snap)
}

// ── Tests ─────────────────────────────────────────────────────────────────────

func TestApplyDeltasAreAdditive(t *testing.T) {
	f := newMetricsFixture()
	fundID := uuid.New()
	f.seed(domain.MetricsSnapshot{FundID: fundID, TotalFundValue: 26500000, TotalStocks: 1000})

	ctx := context.Background()
	if _, err := f.svc.ApplyLandGrowth(ctx, adminEmail, service.GrowthInput{
		FundID: fundID, Amount: decimal.NewFromInt(500000),
	}); err != nil {
		t.Fatalf("ApplyLandGrowth: %v", err)
	}
	if _, err := f.svc.ApplyProfit(ctx, adminEmail, service.GrowthInput{
		FundID: fundID, Amount: decimal.NewFromInt(250000),
	}); err != nil {
		t.Fatalf("ApplyProfit: %v", err)
	}

	last := f.snapshots.last(t)
	if last.TotalFundValue != 27250000 {
		t.Errorf("fund value: want 27250000, got %d", last.TotalFundValue)
	}
	if last.LandValue != 500000 {
		t.Errorf("land value: want 500000, got %d", last.LandValue)
	}
	if last.TotalProfits != 250000 {
		t.Errorf("profits: want 250000, got %d", last.TotalProfits)
	}
	if last.StockPrice != 27250 {
		t.Errorf("stock price: want 27250, got %d", last.StockPrice)
	}
}

func TestStockPriceFloorsOnWrite(t *testing.T) {
	f := newMetricsFixture()
	fundID := uuid.New()

	res, err := f.svc.ApplyLandGrowth(context.Background(), adminEmail, service.GrowthInput{
		FundID: fundID, Amount: decimal.NewFromInt(999),
	})
	if err != nil {
		t.Fatalf("ApplyLandGrowth: %v", err)
	}
	if res.Snapshot.StockPrice != 0 {
		t.Errorf("999/1000 should floor to 0, got %d", res.Snapshot.StockPrice)
	}
}

func TestPhaseBackfillFromHistory(t *testing.T) {
	f := newMetricsFixture()
	fundID := uuid.New()
	f.seed(domain.MetricsSnapshot{FundID: fundID, Phase1Progress: 85, Phase2Progress: 40, Phase3Progress: 15})
	// A later partial write zeroed the triple.
	f.seed(domain.MetricsSnapshot{FundID: fundID, TotalFundValue: 100})

	snap, err := f.svc.CurrentMetrics(context.Background(), fundID)
	if err != nil {
		t.Fatalf("CurrentMetrics: %v", err)
	}
	if snap.Phase1Progress != 85 || snap.Phase2Progress != 40 || snap.Phase3Progress != 15 {
		t.Errorf("phase triple should backfill from history, got %d/%d/%d",
			snap.Phase1Progress, snap.Phase2Progress, snap.Phase3Progress)
	}
	if snap.TotalFundValue != 100 {
		t.Errorf("latest monetary state must survive the backfill, got %d", snap.TotalFundValue)
	}
}

func TestSetPhaseProgressPartialUpdate(t *testing.T) {
	f := newMetricsFixture()
	fundID := uuid.New()
	f.seed(domain.MetricsSnapshot{FundID: fundID, Phase1Progress: 85, Phase2Progress: 40, Phase3Progress: 15})

	p2 := int64(60)
	res, err := f.svc.SetPhaseProgress(context.Background(), adminEmail, service.ProgressInput{
		FundID: fundID, Phase2: &p2,
	})
	if err != nil {
		t.Fatalf("SetPhaseProgress: %v", err)
	}
	s := res.Snapshot
	if s.Phase1Progress != 85 || s.Phase2Progress != 60 || s.Phase3Progress != 15 {
		t.Errorf("only phase2 should change, got %d/%d/%d",
			s.Phase1Progress, s.Phase2Progress, s.Phase3Progress)
	}
}

func TestAuthorization(t *testing.T) {
	f := newMetricsFixture()
	fundA := uuid.New()
	fundB := uuid.New()
	f.managers.assignments["manager@farmfund.in"] = fundA

	ctx := context.Background()
	amount := decimal.NewFromInt(100)

	if _, err := f.svc.ApplyProfit(ctx, "manager@farmfund.in", service.GrowthInput{FundID: fundA, Amount: amount}); err != nil {
		t.Errorf("assigned manager should mutate own fund: %v", err)
	}
	if _, err := f.svc.ApplyProfit(ctx, "manager@farmfund.in", service.GrowthInput{FundID: fundB, Amount: amount}); !errors.Is(err, domain.ErrForbidden) {
		t.Errorf("manager on foreign fund: want ErrForbidden, got %v", err)
	}
	if _, err := f.svc.ApplyProfit(ctx, "stranger@example.com", service.GrowthInput{FundID: fundA, Amount: amount}); !errors.Is(err, domain.ErrForbidden) {
		t.Errorf("stranger: want ErrForbidden, got %v", err)
	}
	if _, err := f.svc.ApplyProfit(ctx, "ADMIN@farmfund.in", service.GrowthInput{FundID: fundB, Amount: amount}); err != nil {
		t.Errorf("admin match should be case-insensitive: %v", err)
	}
}

func TestAuthorizationLookupFailureDenies(t *testing.T) {
	f := newMetricsFixture()
	f.managers.lookupErr = errors.New("connection refused")

	_, err := f.svc.ApplyProfit(context.Background(), "manager@farmfund.in", service.GrowthInput{
		FundID: uuid.New(), Amount: decimal.NewFromInt(1),
	})
	if !errors.Is(err, domain.ErrForbidden) {
		t.Errorf("lookup failure must deny, got %v", err)
	}
}

func TestMissingFundIDRejected(t *testing.T) {
	f := newMetricsFixture()
	_, err := f.svc.ApplyProfit(context.Background(), adminEmail, service.GrowthInput{
		Amount: decimal.NewFromInt(1),
	})
	if !errors.Is(err, domain.ErrMissingFundID) {
		t.Errorf("want ErrMissingFundID, got %v", err)
	}
}

func TestInventoryReconciledOnEveryWrite(t *testing.T) {
	f := newMetricsFixture()
	fundID := uuid.New()
	f.investments.sold = 300

	res, err := f.svc.ApplyProfit(context.Background(), adminEmail, service.GrowthInput{
		FundID: fundID, Amount: decimal.NewFromInt(1000),
	})
	if err != nil {
		t.Fatalf("ApplyProfit: %v", err)
	}
	if res.Snapshot.TotalStocks != 700 {
		t.Errorf("inventory: want 700, got %d", res.Snapshot.TotalStocks)
	}
	if len(res.Warnings) != 0 {
		t.Errorf("unexpected warnings: %+v", res.Warnings)
	}
}

func TestInventoryFailureIsWarningNotFatal(t *testing.T) {
	f := newMetricsFixture()
	fundID := uuid.New()
	f.investments.soldErr = errors.New("ledger offline")

	res, err := f.svc.ApplyProfit(context.Background(), adminEmail, service.GrowthInput{
		FundID: fundID, Amount: decimal.NewFromInt(1000),
	})
	if err != nil {
		t.Fatalf("mutation must survive an inventory failure: %v", err)
	}
	if len(res.Warnings) == 0 {
		t.Error("inventory failure should surface as a warning")
	}
	if res.Snapshot.TotalProfits != 1000 {
		t.Errorf("delta must still apply, got profits %d", res.Snapshot.TotalProfits)
	}
}

func TestEventAppendFailureIsWarningNotFatal(t *testing.T) {
	f := newMetricsFixture()
	fundID := uuid.New()
	f.events.appendErr = errors.New("log table missing")

	res, err := f.svc.ApplyProfit(context.Background(), adminEmail, service.GrowthInput{
		FundID: fundID, Amount: decimal.NewFromInt(500),
	})
	if err != nil {
		t.Fatalf("mutation must survive an event append failure: %v", err)
	}
	found := false
	for _, w := range res.Warnings {
		if w.Stage == "event_log" {
			found = true
		}
	}
	if !found {
		t.Errorf("expected event_log warning, got %+v", res.Warnings)
	}
	if f.snapshots.last(t).TotalProfits != 500 {
		t.Error("snapshot write must persist despite the event failure")
	}
}

func TestApplyExpense(t *testing.T) {
	f := newMetricsFixture()
	fundID := uuid.New()

	res, err := f.svc.ApplyExpense(context.Background(), adminEmail, service.ExpenseInput{
		FundID:   fundID,
		Title:    "Irrigation lines",
		Amount:   decimal.NewFromInt(75000),
		Category: "infrastructure",
		Phase:    2,
		Date:     "2024-05-10",
	})
	if err != nil {
		t.Fatalf("ApplyExpense: %v", err)
	}
	if res.Snapshot.TotalExpenses != 75000 {
		t.Errorf("expenses: want 75000, got %d", res.Snapshot.TotalExpenses)
	}
	if res.Snapshot.TotalFundValue != 0 {
		t.Errorf("an expense must not change the fund value, got %d", res.Snapshot.TotalFundValue)
	}
	if len(f.mirrors.expenses) != 1 || f.mirrors.expenses[0].Title != "Irrigation lines" {
		t.Errorf("expense mirror not fed: %+v", f.mirrors.expenses)
	}
	if len(f.events.events) != 1 {
		t.Fatalf("want 1 event, got %d", len(f.events.events))
	}
	ev := f.events.events[0]
	if ev.Kind != domain.EventExpenseAdded || ev.Category == nil || *ev.Category != "infrastructure" {
		t.Errorf("event wrong: %+v", ev)
	}
	// The expense date backdates the ledger entry without a separate field.
	if got := ev.CreatedAt.Format("2006-01-02"); got != "2024-05-10" {
		t.Errorf("event date: want 2024-05-10, got %s", got)
	}
}

func TestNonPositiveAmountsRejected(t *testing.T) {
	f := newMetricsFixture()
	fundID := uuid.New()
	ctx := context.Background()

	if _, err := f.svc.ApplyExpense(ctx, adminEmail, service.ExpenseInput{
		FundID: fundID, Amount: decimal.Zero, Category: "misc",
	}); !errors.Is(err, domain.ErrInvalidAmount) {
		t.Errorf("zero expense: got %v", err)
	}
	if _, err := f.svc.ApplyLandGrowth(ctx, adminEmail, service.GrowthInput{
		FundID: fundID, Amount: decimal.NewFromInt(-100),
	}); !errors.Is(err, domain.ErrInvalidAmount) {
		t.Errorf("negative land growth: got %v", err)
	}
	if _, err := f.svc.ApplyProfit(ctx, adminEmail, service.GrowthInput{
		FundID: fundID, Amount: decimal.NewFromInt(-1),
	}); !errors.Is(err, domain.ErrInvalidAmount) {
		t.Errorf("negative profit: got %v", err)
	}
	f.snapshots.mu.Lock()
	defer f.snapshots.mu.Unlock()
	if len(f.snapshots.rows) != 0 {
		t.Error("rejected amounts must not write snapshots")
	}
}

func TestApplyExpenseMirrorFailureIsWarning(t *testing.T) {
	f := newMetricsFixture()
	f.mirrors.expErr = errors.New("expenses table drifted")

	res, err := f.svc.ApplyExpense(context.Background(), adminEmail, service.ExpenseInput{
		FundID: uuid.New(), Amount: decimal.NewFromInt(100), Category: "misc",
	})
	if err != nil {
		t.Fatalf("mutation must survive a mirror failure: %v", err)
	}
	if res.Snapshot.TotalExpenses != 100 {
		t.Errorf("delta must still apply, got %d", res.Snapshot.TotalExpenses)
	}
	found := false
	for _, w := range res.Warnings {
		if w.Stage == "expense_mirror" {
			found = true
		}
	}
	if !found {
		t.Errorf("expected expense_mirror warning, got %+v", res.Warnings)
	}
}

func TestGrowthWritesPerformanceMirror(t *testing.T) {
	f := newMetricsFixture()
	fundID := uuid.New()

	if _, err := f.svc.ApplyLandGrowth(context.Background(), adminEmail, service.GrowthInput{
		FundID: fundID, Amount: decimal.NewFromInt(100), Description: "Q2 appraisal",
	}); err != nil {
		t.Fatalf("ApplyLandGrowth: %v", err)
	}
	if len(f.mirrors.perf) != 1 || f.mirrors.perf[0].Kind != "land_growth" {
		t.Errorf("performance mirror not fed: %+v", f.mirrors.perf)
	}
}

func TestConcurrentProfitsSerialize(t *testing.T) {
	f := newMetricsFixture()
	fundID := uuid.New()

	const workers = 10
	var wg sync.WaitGroup
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := f.svc.ApplyProfit(context.Background(), adminEmail, service.GrowthInput{
				FundID: fundID, Amount: decimal.NewFromInt(100),
			})
			if err != nil {
				t.Errorf("ApplyProfit: %v", err)
			}
		}()
	}
	wg.Wait()

	last := f.snapshots.last(t)
	if last.TotalProfits != workers*100 {
		t.Errorf("concurrent deltas lost: want %d, got %d", workers*100, last.TotalProfits)
	}
}

func TestRefreshInventory(t *testing.T) {
	f := newMetricsFixture()
	fundID := uuid.New()
	f.seed(domain.MetricsSnapshot{FundID: fundID, TotalFundValue: 1000000, TotalStocks: 1000})
	f.investments.sold = 1500

	snap, err := f.svc.RefreshInventory(context.Background(), fundID)
	if err != nil {
		t.Fatalf("RefreshInventory: %v", err)
	}
	if snap.TotalStocks != 0 {
		t.Errorf("oversold fund should clamp to zero, got %d", snap.TotalStocks)
	}
	if snap.StockPrice != 1000 {
		t.Errorf("price should recompute, got %d", snap.StockPrice)
	}
}
