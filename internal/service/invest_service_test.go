package service_test

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/vriksha/farmfund/internal/domain"
	"github.com/vriksha/farmfund/internal/service"
)

type fakeLedger struct {
	investments []domain.Investment
	createErr   error
}

func (f *fakeLedger) Create(_ context.Context, inv *domain.Investment) error {
	if f.createErr != nil {
		return f.createErr
	}
	inv.ID = int64(len(f.investments) + 1)
	f.investments = append(f.investments, *inv)
	return nil
}

func (f *fakeLedger) UnitsHeld(_ context.Context, email string) (int64, error) {
	var total int64
	for _, inv := range f.investments {
		if inv.Email == email {
			total += inv.StockCount
		}
	}
	return total, nil
}

type fakeUnitHolder struct {
	totals map[string]int64
	addErr error
}

func (f *fakeUnitHolder) AddUnits(_ context.Context, email string, units int64) (int64, error) {
	if f.addErr != nil {
		return 0, f.addErr
	}
	f.totals[email] += units
	return f.totals[email], nil
}

type fakeRefresher struct {
	snap       *domain.MetricsSnapshot
	refreshErr error
	calls      int
}

func (f *fakeRefresher) RefreshInventory(_ context.Context, fundID uuid.UUID) (*domain.MetricsSnapshot, error) {
	f.calls++
	if f.refreshErr != nil {
		return nil, f.refreshErr
	}
	if f.snap == nil {
		f.snap = domain.DefaultSnapshot(fundID, 1000)
	}
	return f.snap, nil
}

type recordedSale struct {
	fundID     uuid.UUID
	stockCount int64
	remaining  int64
}

type fakeSaleBroadcaster struct {
	sales []recordedSale
}

func (f *fakeSaleBroadcaster) BroadcastInvestmentMade(fundID uuid.UUID, stockCount, remaining int64) {
	f.sales = append(f.sales, recordedSale{fundID: fundID, stockCount: stockCount, remaining: remaining})
}

type investFixture struct {
	svc      *service.InvestService
	ledger   *fakeLedger
	profiles *fakeUnitHolder
	funds    *fakeFundStore
	events   *fakeEventStore
	metrics  *fakeRefresher
	hub      *fakeSaleBroadcaster
}

func newInvestFixture(fundID uuid.UUID) *investFixture {
	f := &investFixture{
		ledger:   &fakeLedger{},
		profiles: &fakeUnitHolder{totals: map[string]int64{}},
		funds:    &fakeFundStore{funds: []domain.Fund{{ID: fundID, Name: "Green Valley Fund"}}},
		events:   &fakeEventStore{},
		metrics:  &fakeRefresher{},
		hub:      &fakeSaleBroadcaster{},
	}
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	f.svc = service.NewInvestService(f.ledger, f.profiles, f.funds, f.events, f.metrics, logger)
	f.svc.SetBroadcaster(f.hub)
	return f
}

func TestRecordInvestment(t *testing.T) {
	fundID := uuid.New()
	f := newInvestFixture(fundID)

	res, err := f.svc.RecordInvestment(context.Background(), "investor@example.com", service.InvestInput{
		FundID: fundID, StockCount: 5, AmountPaid: decimal.NewFromInt(132500),
	})
	if err != nil {
		t.Fatalf("RecordInvestment: %v", err)
	}
	if res.Investment.Status != domain.InvestmentCompleted {
		t.Errorf("status: %q", res.Investment.Status)
	}
	if res.UnitsHeld != 5 {
		t.Errorf("units held: want 5, got %d", res.UnitsHeld)
	}
	if len(res.Warnings) != 0 {
		t.Errorf("unexpected warnings: %+v", res.Warnings)
	}
	if f.metrics.calls != 1 {
		t.Errorf("inventory should refresh once, got %d", f.metrics.calls)
	}
	if len(f.events.events) != 1 || f.events.events[0].Kind != domain.EventInvestmentMade {
		t.Errorf("capital event missing: %+v", f.events.events)
	}
	if len(f.hub.sales) != 1 {
		t.Fatalf("want 1 sale broadcast, got %d", len(f.hub.sales))
	}
	sale := f.hub.sales[0]
	if sale.fundID != fundID || sale.stockCount != 5 || sale.remaining != res.Snapshot.TotalStocks {
		t.Errorf("sale broadcast wrong: %+v", sale)
	}
}

func TestRecordInvestmentValidation(t *testing.T) {
	fundID := uuid.New()
	f := newInvestFixture(fundID)
	ctx := context.Background()

	_, err := f.svc.RecordInvestment(ctx, "a@b.c", service.InvestInput{StockCount: 1})
	if !errors.Is(err, domain.ErrMissingFundID) {
		t.Errorf("missing fund: got %v", err)
	}
	_, err = f.svc.RecordInvestment(ctx, "a@b.c", service.InvestInput{FundID: fundID, StockCount: 0})
	if !errors.Is(err, domain.ErrInvalidUnitCount) {
		t.Errorf("zero units: got %v", err)
	}
	_, err = f.svc.RecordInvestment(ctx, "a@b.c", service.InvestInput{FundID: uuid.New(), StockCount: 1})
	if !errors.Is(err, domain.ErrFundNotFound) {
		t.Errorf("unknown fund: got %v", err)
	}
	if len(f.ledger.investments) != 0 {
		t.Error("rejected purchases must not reach the ledger")
	}
}

func TestRecordInvestmentLedgerFailureIsFatal(t *testing.T) {
	fundID := uuid.New()
	f := newInvestFixture(fundID)
	f.ledger.createErr = errors.New("deadlock detected")

	if _, err := f.svc.RecordInvestment(context.Background(), "a@b.c", service.InvestInput{
		FundID: fundID, StockCount: 1,
	}); err == nil {
		t.Error("ledger failure must fail the purchase")
	}
	if f.metrics.calls != 0 {
		t.Error("no reconciliation should run for a failed purchase")
	}
}

func TestRecordInvestmentDownstreamFailuresDegrade(t *testing.T) {
	fundID := uuid.New()
	f := newInvestFixture(fundID)
	f.metrics.refreshErr = errors.New("snapshot insert rejected")
	f.profiles.addErr = errors.New("profiles offline")

	// Two prior purchases already in the ledger for the fallback recount.
	seed := []int64{3, 2}
	for _, n := range seed {
		f.ledger.investments = append(f.ledger.investments, domain.Investment{
			Email: "investor@example.com", StockCount: n,
		})
	}

	res, err := f.svc.RecordInvestment(context.Background(), "investor@example.com", service.InvestInput{
		FundID: fundID, StockCount: 5, AmountPaid: decimal.NewFromInt(10000),
	})
	if err != nil {
		t.Fatalf("purchase must survive downstream failures: %v", err)
	}
	if len(res.Warnings) != 2 {
		t.Errorf("want 2 warnings, got %+v", res.Warnings)
	}
	// Cached total failed, so the units come from recounting the ledger.
	if res.UnitsHeld != 10 {
		t.Errorf("fallback recount: want 10, got %d", res.UnitsHeld)
	}
	if res.Snapshot != nil {
		t.Error("no snapshot should be reported when reconciliation failed")
	}
	// Without a reconciled snapshot there is no remaining-units figure to announce.
	if len(f.hub.sales) != 0 {
		t.Errorf("no sale broadcast without a snapshot, got %+v", f.hub.sales)
	}
}
