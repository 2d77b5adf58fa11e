package domain

import (
	"sort"
	"time"

	"github.com/shopspring/decimal"
)

// DailyPoint is one date on the fund value chart. All amounts are cumulative
// as of the end of that calendar day.
type DailyPoint struct {
	Date             string `json:"date"`
	LandAppreciation int64  `json:"landAppreciation"`
	Profits          int64  `json:"profits"`
	Capital          int64  `json:"capital"`
	Deployment       int64  `json:"deployment"` // cumulative expenses actually spent
	FundValue        int64  `json:"fundValue"`
	Total            int64  `json:"total"`
	Progress         int64  `json:"progress"` // % of target raised, capped at 100
}

// BuildHistorySeries replays the event log chronologically into a cumulative
// daily series. It is a pure function of its inputs: the same events always
// produce the same series.
//
// startDate is the fund's creation day in "2006-01-02" form; the series is
// seeded with a zero point one day earlier so charts have a baseline even for
// funds with no events. Events must be sorted ascending by time then id.
// When several events land on one calendar day, the last one wins that day's
// point. Valuation at any point is capital + land appreciation + profits.
func BuildHistorySeries(startDate string, targetAmount decimal.Decimal, events []FinancialEvent) []DailyPoint {
	points := make(map[string]DailyPoint)

	origin := "2024-01-01"
	if t, err := time.Parse("2006-01-02", startDate); err == nil {
		origin = t.AddDate(0, 0, -1).Format("2006-01-02")
	}
	points[origin] = DailyPoint{Date: origin}

	var runningLand, runningProfits, runningCapital, runningExpenses decimal.Decimal

	for _, ev := range events {
		relevant := true
		switch {
		case ev.Kind.IsLandGrowth():
			runningLand = runningLand.Add(ev.Amount)
		case ev.Kind.IsProfit():
			runningProfits = runningProfits.Add(ev.Amount)
		case ev.Kind == EventInvestmentMade:
			runningCapital = runningCapital.Add(ev.Amount)
		case ev.Kind == EventExpenseAdded:
			runningExpenses = runningExpenses.Add(ev.Amount)
		case ev.Kind == EventProgressUpdated:
			// Marks the date as chart-relevant without moving any total.
		default:
			relevant = false
		}
		if !relevant {
			continue
		}

		day := ev.CreatedAt.Format("2006-01-02")
		valuation := runningCapital.Add(runningLand).Add(runningProfits)

		points[day] = DailyPoint{
			Date:             day,
			LandAppreciation: runningLand.IntPart(),
			Profits:          runningProfits.IntPart(),
			Capital:          runningCapital.IntPart(),
			Deployment:       runningExpenses.IntPart(),
			FundValue:        valuation.IntPart(),
			Total:            valuation.IntPart(),
			Progress:         raisedProgress(runningCapital, targetAmount),
		}
	}

	series := make([]DailyPoint, 0, len(points))
	for _, p := range points {
		series = append(series, p)
	}
	sort.Slice(series, func(i, j int) bool { return series[i].Date < series[j].Date })
	return series
}

// raisedProgress returns floor(capital/target × 100) capped at 100,
// or 0 when no target is declared.
func raisedProgress(capital, target decimal.Decimal) int64 {
	if !target.IsPositive() {
		return 0
	}
	pct := capital.Div(target).Mul(decimal.NewFromInt(100)).IntPart()
	if pct > 100 {
		return 100
	}
	return pct
}
