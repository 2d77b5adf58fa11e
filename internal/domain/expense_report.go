package domain

import (
	"fmt"
	"sort"

	"github.com/shopspring/decimal"
)

// ExpenseBucket is one aggregated row of an expense report.
type ExpenseBucket struct {
	Label string          `json:"label"`
	Total decimal.Decimal `json:"total"`
}

// GroupExpensesDaily sums expenses per calendar day (YYYY-MM-DD).
func GroupExpensesDaily(expenses []Expense) []ExpenseBucket {
	return groupExpenses(expenses, func(e Expense) string { return datePart(e.Date, 10) })
}

// GroupExpensesMonthly sums expenses per month (YYYY-MM).
func GroupExpensesMonthly(expenses []Expense) []ExpenseBucket {
	return groupExpenses(expenses, func(e Expense) string { return datePart(e.Date, 7) })
}

// GroupExpensesYearly sums expenses per year (YYYY).
func GroupExpensesYearly(expenses []Expense) []ExpenseBucket {
	return groupExpenses(expenses, func(e Expense) string { return datePart(e.Date, 4) })
}

// GroupExpensesByPhase sums expenses per project phase.
func GroupExpensesByPhase(expenses []Expense) []ExpenseBucket {
	return groupExpenses(expenses, func(e Expense) string { return fmt.Sprintf("Phase %d", e.Phase) })
}

// GroupExpensesByCategory sums expenses per spend category.
func GroupExpensesByCategory(expenses []Expense) []ExpenseBucket {
	return groupExpenses(expenses, func(e Expense) string { return e.Category })
}

func groupExpenses(expenses []Expense, key func(Expense) string) []ExpenseBucket {
	grouped := make(map[string]decimal.Decimal)
	for _, e := range expenses {
		k := key(e)
		grouped[k] = grouped[k].Add(e.Amount)
	}
	out := make([]ExpenseBucket, 0, len(grouped))
	for k, v := range grouped {
		out = append(out, ExpenseBucket{Label: k, Total: v})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Label < out[j].Label })
	return out
}

// datePart slices the leading n characters of a loosely formatted ISO date.
func datePart(date string, n int) string {
	if len(date) < n {
		return date
	}
	return date[:n]
}

// MonthlyCategoryRow breaks one month's spend down by category.
type MonthlyCategoryRow struct {
	Month      string                     `json:"month"`
	Total      decimal.Decimal            `json:"total"`
	Categories map[string]decimal.Decimal `json:"categories"`
}

// MonthlyCategoryBreakdown groups expenses by month and then category.
// Every row carries the full category set so chart series stay aligned;
// months without spend in a category report zero.
func MonthlyCategoryBreakdown(expenses []Expense) []MonthlyCategoryRow {
	type monthAgg struct {
		total decimal.Decimal
		cats  map[string]decimal.Decimal
	}
	months := make(map[string]*monthAgg)
	allCategories := make(map[string]struct{})

	for _, e := range expenses {
		m := datePart(e.Date, 7)
		agg, ok := months[m]
		if !ok {
			agg = &monthAgg{cats: make(map[string]decimal.Decimal)}
			months[m] = agg
		}
		agg.cats[e.Category] = agg.cats[e.Category].Add(e.Amount)
		agg.total = agg.total.Add(e.Amount)
		allCategories[e.Category] = struct{}{}
	}

	keys := make([]string, 0, len(months))
	for m := range months {
		keys = append(keys, m)
	}
	sort.Strings(keys)

	out := make([]MonthlyCategoryRow, 0, len(keys))
	for _, m := range keys {
		row := MonthlyCategoryRow{
			Month:      m,
			Total:      months[m].total,
			Categories: make(map[string]decimal.Decimal, len(allCategories)),
		}
		for cat := range allCategories {
			row.Categories[cat] = months[m].cats[cat]
		}
		out = append(out, row)
	}
	return out
}
