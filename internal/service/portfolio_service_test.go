package service_test

import (
	"context"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/vriksha/farmfund/internal/domain"
	"github.com/vriksha/farmfund/internal/service"
)

type fakeHoldingsLedger struct {
	investments []domain.Investment
}

func (f *fakeHoldingsLedger) ListByEmail(_ context.Context, email string) ([]domain.Investment, error) {
	var out []domain.Investment
	for _, inv := range f.investments {
		if inv.Email == email {
			out = append(out, inv)
		}
	}
	return out, nil
}

type fakeProfileReader struct {
	profiles map[string]*domain.Profile
}

func (f *fakeProfileReader) GetByEmail(_ context.Context, email string) (*domain.Profile, error) {
	p, ok := f.profiles[email]
	if !ok {
		return nil, domain.ErrProfileNotFound
	}
	return p, nil
}

type fakePriceReader struct {
	prices map[uuid.UUID]int64
}

func (f *fakePriceReader) LatestStockPrice(_ context.Context, fundID uuid.UUID) (int64, bool, error) {
	p, ok := f.prices[fundID]
	return p, ok, nil
}

func newPortfolioService(ledger *fakeHoldingsLedger, prices *fakePriceReader) *service.PortfolioService {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	profiles := &fakeProfileReader{profiles: map[string]*domain.Profile{}}
	return service.NewPortfolioService(ledger, profiles, prices, logger)
}

func purchase(fundID uuid.UUID, name string, units, paid int64, day int) domain.Investment {
	return domain.Investment{
		FundID:     fundID,
		Email:      "investor@example.com",
		StockCount: units,
		AmountPaid: decimal.NewFromInt(paid),
		FundName:   &name,
		CreatedAt:  time.Date(2024, 3, day, 10, 0, 0, 0, time.UTC),
	}
}

func TestGetPortfolioEmpty(t *testing.T) {
	svc := newPortfolioService(&fakeHoldingsLedger{}, &fakePriceReader{})

	p, err := svc.GetPortfolio(context.Background(), "nobody@example.com")
	if err != nil {
		t.Fatalf("a missing profile must render an empty portfolio: %v", err)
	}
	if p.IsInvestor {
		t.Error("no purchases should not flag an investor")
	}
	if p.Holdings == nil || p.History == nil || p.Timeline == nil {
		t.Error("empty collections should be non-nil for JSON rendering")
	}
}

func TestGetPortfolioAggregatesHoldings(t *testing.T) {
	fundA := uuid.New()
	fundB := uuid.New()
	ledger := &fakeHoldingsLedger{investments: []domain.Investment{
		purchase(fundA, "Green Valley Fund", 3, 79500, 1),
		purchase(fundA, "Green Valley Fund", 2, 53000, 5),
		purchase(fundB, "Sunrise Orchard Fund", 4, 40000, 10),
	}}
	prices := &fakePriceReader{prices: map[uuid.UUID]int64{
		fundA: 27000,
		fundB: 11000,
	}}
	svc := newPortfolioService(ledger, prices)

	p, err := svc.GetPortfolio(context.Background(), "investor@example.com")
	if err != nil {
		t.Fatalf("GetPortfolio: %v", err)
	}
	if !p.IsInvestor {
		t.Error("purchases should flag the investor")
	}
	if len(p.Holdings) != 2 {
		t.Fatalf("want 2 holdings, got %d", len(p.Holdings))
	}
	// First-purchase order is preserved.
	a := p.Holdings[0]
	if a.Name != "Green Valley Fund" || a.Units != 5 || a.InvestedAmount != 132500 {
		t.Errorf("fund A position wrong: %+v", a)
	}
	if a.CurrentValue != 5*27000 {
		t.Errorf("fund A value: want %d, got %d", 5*27000, a.CurrentValue)
	}
	if p.TotalStocks != 9 {
		t.Errorf("total units: want 9, got %d", p.TotalStocks)
	}
	if p.TotalPortfolioValue != 5*27000+4*11000 {
		t.Errorf("portfolio value: got %d", p.TotalPortfolioValue)
	}
	// History runs newest first.
	if !p.History[0].CreatedAt.After(p.History[len(p.History)-1].CreatedAt) {
		t.Error("history should be newest first")
	}
}

func TestGetPortfolioPriceFallback(t *testing.T) {
	fundID := uuid.New()
	ledger := &fakeHoldingsLedger{investments: []domain.Investment{
		purchase(fundID, "Unlisted Fund", 4, 40000, 1),
	}}
	// No snapshot price exists for the fund.
	svc := newPortfolioService(ledger, &fakePriceReader{})

	p, err := svc.GetPortfolio(context.Background(), "investor@example.com")
	if err != nil {
		t.Fatalf("GetPortfolio: %v", err)
	}
	h := p.Holdings[0]
	if h.CurrentPrice != 10000 {
		t.Errorf("missing snapshot should fall back to paid average, got %d", h.CurrentPrice)
	}
	if h.CurrentValue != 40000 {
		t.Errorf("position should never value at zero, got %d", h.CurrentValue)
	}
}

func TestGetPortfolioTimeline(t *testing.T) {
	fundA := uuid.New()
	fundB := uuid.New()
	ledger := &fakeHoldingsLedger{investments: []domain.Investment{
		purchase(fundA, "Green Valley Fund", 2, 20000, 1),
		purchase(fundB, "Sunrise Orchard Fund", 1, 5000, 3),
		purchase(fundA, "Green Valley Fund", 1, 10000, 3), // same day as above
	}}
	prices := &fakePriceReader{prices: map[uuid.UUID]int64{
		fundA: 10000,
		fundB: 5000,
	}}
	svc := newPortfolioService(ledger, prices)

	p, err := svc.GetPortfolio(context.Background(), "investor@example.com")
	if err != nil {
		t.Fatalf("GetPortfolio: %v", err)
	}
	if len(p.Timeline) != 2 {
		t.Fatalf("same-day purchases should collapse: want 2 points, got %d", len(p.Timeline))
	}
	first := p.Timeline[0]
	if first.Date != "2024-03-01" || first.Total != 20000 {
		t.Errorf("first point wrong: %+v", first)
	}
	last := p.Timeline[1]
	if last.Date != "2024-03-03" || last.Total != 3*10000+1*5000 {
		t.Errorf("last point wrong: %+v", last)
	}
	if last.FundValues["Green Valley Fund"] != 30000 {
		t.Errorf("per-fund value wrong: %+v", last.FundValues)
	}
}
