package service

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/google/uuid"
	"github.com/vriksha/farmfund/internal/domain"
)

// HoldingsLedger is the slice of the investment repository the portfolio
// view reads from.
type HoldingsLedger interface {
	ListByEmail(ctx context.Context, email string) ([]domain.Investment, error)
}

// ProfileReader fetches a profile by email.
type ProfileReader interface {
	GetByEmail(ctx context.Context, email string) (*domain.Profile, error)
}

// PriceReader returns the current unit price for a fund.
type PriceReader interface {
	LatestStockPrice(ctx context.Context, fundID uuid.UUID) (int64, bool, error)
}

// ──────────────────────────────────────────────────────────────────────────────
// PortfolioService
// ──────────────────────────────────────────────────────────────────────────────

// PortfolioService assembles the investor view: per-fund holdings at current
// prices, the purchase history, and the cumulative multi-fund timeline.
type PortfolioService struct {
	ledger   HoldingsLedger
	profiles ProfileReader
	prices   PriceReader
	log      *slog.Logger
}

// NewPortfolioService creates a PortfolioService.
func NewPortfolioService(
	ledger HoldingsLedger,
	profiles ProfileReader,
	prices PriceReader,
	log *slog.Logger,
) *PortfolioService {
	return &PortfolioService{
		ledger:   ledger,
		profiles: profiles,
		prices:   prices,
		log:      log,
	}
}

// GetPortfolio builds the full portfolio for one investor. A missing profile
// is not an error: the view renders as an empty non-investor portfolio.
func (s *PortfolioService) GetPortfolio(ctx context.Context, email string) (*domain.Portfolio, error) {
	portfolio := &domain.Portfolio{
		Holdings:  []domain.Holding{},
		History:   []domain.Investment{},
		Timeline:  []domain.TimelinePoint{},
		FundNames: []string{},
	}

	profile, err := s.profiles.GetByEmail(ctx, email)
	if err != nil && !domain.IsNotFound(err) {
		return nil, fmt.Errorf("portfolio_service.GetPortfolio: %w", err)
	}
	if profile != nil {
		portfolio.IsInvestor = profile.IsInvestor
	}

	investments, err := s.ledger.ListByEmail(ctx, email)
	if err != nil {
		return nil, fmt.Errorf("portfolio_service.GetPortfolio: %w", err)
	}
	if len(investments) == 0 {
		return portfolio, nil
	}
	portfolio.IsInvestor = true

	holdings, prices := s.aggregateHoldings(ctx, investments)
	portfolio.Holdings = holdings
	for _, h := range holdings {
		portfolio.TotalStocks += h.Units
		portfolio.TotalPortfolioValue += h.CurrentValue
		portfolio.FundNames = append(portfolio.FundNames, h.Name)
	}

	// History is presented newest first.
	portfolio.History = make([]domain.Investment, len(investments))
	for i := range investments {
		portfolio.History[len(investments)-1-i] = investments[i]
	}

	portfolio.Timeline = buildTimeline(investments, prices)
	return portfolio, nil
}

// aggregateHoldings folds purchases into one position per fund, priced at the
// latest snapshot. When a fund has no snapshot yet the average paid price is
// used so the position never values at zero.
func (s *PortfolioService) aggregateHoldings(ctx context.Context, investments []domain.Investment) ([]domain.Holding, map[uuid.UUID]int64) {
	type position struct {
		name     string
		units    int64
		invested int64
	}
	order := []uuid.UUID{}
	positions := make(map[uuid.UUID]*position)

	for _, inv := range investments {
		pos, ok := positions[inv.FundID]
		if !ok {
			name := inv.FundID.String()
			if inv.FundName != nil {
				name = *inv.FundName
			}
			pos = &position{name: name}
			positions[inv.FundID] = pos
			order = append(order, inv.FundID)
		}
		pos.units += inv.StockCount
		pos.invested += inv.AmountPaid.IntPart()
	}

	prices := make(map[uuid.UUID]int64, len(positions))
	holdings := make([]domain.Holding, 0, len(positions))
	for _, fundID := range order {
		pos := positions[fundID]
		price, found, err := s.prices.LatestStockPrice(ctx, fundID)
		if err != nil {
			s.log.Warn("price lookup failed, using paid average", "fund_id", fundID, "error", err)
			found = false
		}
		if !found || price <= 0 {
			if pos.units > 0 {
				price = pos.invested / pos.units
			}
		}
		prices[fundID] = price
		holdings = append(holdings, domain.Holding{
			FundID:         fundID,
			Name:           pos.name,
			Units:          pos.units,
			CurrentPrice:   price,
			InvestedAmount: pos.invested,
			CurrentValue:   pos.units * price,
		})
	}
	return holdings, prices
}

// buildTimeline replays purchases oldest first into a cumulative chart: each
// purchase date carries every fund's holding value as of that date, priced at
// the current unit price.
func buildTimeline(investments []domain.Investment, prices map[uuid.UUID]int64) []domain.TimelinePoint {
	unitsByFund := make(map[uuid.UUID]int64)
	nameByFund := make(map[uuid.UUID]string)
	timeline := []domain.TimelinePoint{}

	for _, inv := range investments {
		unitsByFund[inv.FundID] += inv.StockCount
		if inv.FundName != nil {
			nameByFund[inv.FundID] = *inv.FundName
		} else if _, ok := nameByFund[inv.FundID]; !ok {
			nameByFund[inv.FundID] = inv.FundID.String()
		}

		point := domain.TimelinePoint{
			Date:       inv.CreatedAt.Format("2006-01-02"),
			FundValues: make(map[string]int64, len(unitsByFund)),
		}
		for fundID, units := range unitsByFund {
			value := units * prices[fundID]
			point.FundValues[nameByFund[fundID]] = value
			point.Total += value
		}

		// Same-day purchases collapse into one point.
		if n := len(timeline); n > 0 && timeline[n-1].Date == point.Date {
			timeline[n-1] = point
		} else {
			timeline = append(timeline, point)
		}
	}
	return timeline
}
