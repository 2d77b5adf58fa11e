package service_test

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/vriksha/farmfund/internal/config"
	"github.com/vriksha/farmfund/internal/domain"
	"github.com/vriksha/farmfund/internal/service"
)

type fakeFundAdminStore struct {
	fakeFundStore
	roadmaps map[uuid.UUID]domain.Roadmap
}

func (f *fakeFundAdminStore) Create(_ context.Context, fund *domain.Fund) error {
	f.funds = append(f.funds, *fund)
	return nil
}

func (f *fakeFundAdminStore) UpdateDates(_ context.Context, fundID uuid.UUID, d domain.FundDates) error {
	for i := range f.funds {
		if f.funds[i].ID == fundID {
			f.funds[i].EntryDate = d.EntryDate
			f.funds[i].ExitDate = d.ExitDate
			return nil
		}
	}
	return domain.ErrFundNotFound
}

func (f *fakeFundAdminStore) UpdateRoadmap(_ context.Context, fundID uuid.UUID, roadmap domain.Roadmap) error {
	if f.roadmaps == nil {
		f.roadmaps = map[uuid.UUID]domain.Roadmap{}
	}
	f.roadmaps[fundID] = roadmap
	return nil
}

func (f *fakeFundAdminStore) AllocationByPhase(context.Context) ([]domain.AllocationItem, error) {
	return nil, nil
}

type fakeManagerAdminStore struct {
	managers []domain.FundManager
	roles    map[string]string
}

func (f *fakeManagerAdminStore) CreateManager(_ context.Context, m *domain.FundManager) error {
	m.ID = int64(len(f.managers) + 1)
	f.managers = append(f.managers, *m)
	return nil
}

func (f *fakeManagerAdminStore) SetRole(_ context.Context, email, role string, _ *uuid.UUID) error {
	if f.roles == nil {
		f.roles = map[string]string{}
	}
	f.roles[email] = role
	return nil
}

type fakeARRStore struct {
	entries  map[string]domain.ARREntry // keyed by year label
	expenses []domain.Expense
}

func (f *fakeARRStore) UpsertARR(_ context.Context, e *domain.ARREntry) error {
	if f.entries == nil {
		f.entries = map[string]domain.ARREntry{}
	}
	f.entries[e.YearLabel] = *e
	return nil
}

func (f *fakeARRStore) ListARR(_ context.Context, _ uuid.UUID) ([]domain.ARREntry, error) {
	var out []domain.ARREntry
	for _, e := range f.entries {
		out = append(out, e)
	}
	return out, nil
}

func (f *fakeARRStore) ListExpenses(_ context.Context, _ uuid.UUID) ([]domain.Expense, error) {
	return f.expenses, nil
}

type fakeSeeder struct {
	seeds   []domain.MetricsSnapshot
	seedErr error
}

func (f *fakeSeeder) Insert(_ context.Context, snap *domain.MetricsSnapshot, _ string) error {
	if f.seedErr != nil {
		return f.seedErr
	}
	f.seeds = append(f.seeds, *snap)
	return nil
}

type allowAll struct{}

func (allowAll) Authorize(context.Context, string, uuid.UUID) error { return nil }

type denyAll struct{}

func (denyAll) Authorize(context.Context, string, uuid.UUID) error { return domain.ErrForbidden }

type fundFixture struct {
	svc      *service.FundService
	funds    *fakeFundAdminStore
	managers *fakeManagerAdminStore
	arr      *fakeARRStore
	seeder   *fakeSeeder
	events   *fakeEventStore
}

func newFundFixture(authz service.Authorizer) *fundFixture {
	cfg := &config.Config{
		Admin: config.AdminConfig{Email: adminEmail},
		Fund: config.FundConfig{
			AuthorizedCapacity: 1000,
			DefaultTarget:      26500000,
			DefaultStartDate:   "2024-01-01",
		},
	}
	f := &fundFixture{
		funds:    &fakeFundAdminStore{},
		managers: &fakeManagerAdminStore{},
		arr:      &fakeARRStore{},
		seeder:   &fakeSeeder{},
		events:   &fakeEventStore{},
	}
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	f.svc = service.NewFundService(
		f.funds, f.managers, f.arr, f.seeder, f.events, authz, cfg, logger)
	return f
}

func TestCreateFund(t *testing.T) {
	f := newFundFixture(allowAll{})

	fund, err := f.svc.CreateFund(context.Background(), adminEmail, service.CreateFundInput{
		Name:         "  Green Valley Fund ",
		Location:     "Nashik",
		TargetAmount: decimal.NewFromInt(10000000),
		InitialValue: decimal.NewFromInt(2000000),
		EntryDate:    "2024-06-01",
	})
	if err != nil {
		t.Fatalf("CreateFund: %v", err)
	}
	if fund.Name != "Green Valley Fund" {
		t.Errorf("name should trim: %q", fund.Name)
	}
	if fund.StockPrice != 10000 {
		t.Errorf("unit price: want 10000, got %d", fund.StockPrice)
	}
	if fund.TotalStocks != 1000 {
		t.Errorf("inventory: want 1000, got %d", fund.TotalStocks)
	}
	if len(f.seeder.seeds) != 1 {
		t.Fatalf("want 1 seed snapshot, got %d", len(f.seeder.seeds))
	}
	seed := f.seeder.seeds[0]
	if seed.TotalFundValue != 10000000 || seed.LandValue != 2000000 {
		t.Errorf("seed snapshot wrong: %+v", seed)
	}
}

func TestCreateFundDefaults(t *testing.T) {
	f := newFundFixture(allowAll{})

	fund, err := f.svc.CreateFund(context.Background(), adminEmail, service.CreateFundInput{
		Name: "Bare Fund",
	})
	if err != nil {
		t.Fatalf("CreateFund: %v", err)
	}
	if !fund.TargetAmount.Equal(decimal.NewFromInt(26500000)) {
		t.Errorf("target fallback: %s", fund.TargetAmount)
	}
	if fund.EntryDate != "2024-01-01" {
		t.Errorf("entry date fallback: %q", fund.EntryDate)
	}
}

func TestCreateFundRejections(t *testing.T) {
	f := newFundFixture(allowAll{})
	ctx := context.Background()

	if _, err := f.svc.CreateFund(ctx, "investor@example.com", service.CreateFundInput{Name: "X"}); !errors.Is(err, domain.ErrForbidden) {
		t.Errorf("non-admin: got %v", err)
	}
	if _, err := f.svc.CreateFund(ctx, adminEmail, service.CreateFundInput{Name: "   "}); !errors.Is(err, domain.ErrInvalidFundName) {
		t.Errorf("blank name: got %v", err)
	}
}

func TestCreateFundSurvivesSeedFailure(t *testing.T) {
	f := newFundFixture(allowAll{})
	f.seeder.seedErr = errors.New("schema drift")

	fund, err := f.svc.CreateFund(context.Background(), adminEmail, service.CreateFundInput{Name: "X"})
	if err != nil {
		t.Fatalf("seed failure must not fail fund creation: %v", err)
	}
	if len(f.funds.funds) != 1 || f.funds.funds[0].ID != fund.ID {
		t.Error("fund row missing")
	}
}

func TestCreateManagerPromotesProfile(t *testing.T) {
	f := newFundFixture(allowAll{})
	fundID := uuid.New()

	m, err := f.svc.CreateManager(context.Background(), adminEmail, service.CreateManagerInput{
		Name:         "Priya",
		Email:        " Priya@Example.COM ",
		AssignedFund: &fundID,
	})
	if err != nil {
		t.Fatalf("CreateManager: %v", err)
	}
	if m.Email != "priya@example.com" {
		t.Errorf("email should normalize: %q", m.Email)
	}
	if f.managers.roles["priya@example.com"] != "fund_manager" {
		t.Error("existing profile should be promoted")
	}
}

func TestUpdateARRBulk(t *testing.T) {
	f := newFundFixture(allowAll{})
	fundID := uuid.New()

	err := f.svc.UpdateARRBulk(context.Background(), adminEmail, fundID, []service.ARRUpdate{
		{YearLabel: "Year 1", GrowthRate: 12.5},
		{YearLabel: "Year 2", GrowthRate: 15.0},
	})
	if err != nil {
		t.Fatalf("UpdateARRBulk: %v", err)
	}
	if len(f.arr.entries) != 2 {
		t.Errorf("want 2 entries, got %d", len(f.arr.entries))
	}
	if len(f.events.events) != 1 {
		t.Fatalf("want one audit event, got %d", len(f.events.events))
	}
	ev := f.events.events[0]
	if ev.Kind != domain.EventARRUpdatedBulk || !ev.Amount.Equal(decimal.NewFromInt(2)) {
		t.Errorf("audit event wrong: %+v", ev)
	}
}

func TestFundEditsRequireAuthorization(t *testing.T) {
	f := newFundFixture(denyAll{})
	fundID := uuid.New()
	ctx := context.Background()

	if err := f.svc.UpdateFundDates(ctx, "x@y.z", fundID, domain.FundDates{}); !errors.Is(err, domain.ErrForbidden) {
		t.Errorf("dates: got %v", err)
	}
	if err := f.svc.UpdateRoadmap(ctx, "x@y.z", fundID, nil); !errors.Is(err, domain.ErrForbidden) {
		t.Errorf("roadmap: got %v", err)
	}
	if err := f.svc.UpdateARRBulk(ctx, "x@y.z", fundID, nil); !errors.Is(err, domain.ErrForbidden) {
		t.Errorf("arr: got %v", err)
	}
}

func TestBuildExpenseReport(t *testing.T) {
	f := newFundFixture(allowAll{})
	f.arr.expenses = []domain.Expense{
		{Amount: decimal.NewFromInt(100), Category: "labor", Phase: 1, Date: "2024-01-05"},
		{Amount: decimal.NewFromInt(200), Category: "seeds", Phase: 1, Date: "2024-02-10"},
	}

	report, err := f.svc.BuildExpenseReport(context.Background(), uuid.New())
	if err != nil {
		t.Fatalf("BuildExpenseReport: %v", err)
	}
	if len(report.Monthly) != 2 || len(report.ByCategory) != 2 {
		t.Errorf("report shape wrong: %+v", report)
	}
	if len(report.ByPhase) != 1 || !report.ByPhase[0].Total.Equal(decimal.NewFromInt(300)) {
		t.Errorf("phase rollup wrong: %+v", report.ByPhase)
	}
}
