package domain

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// ──────────────────────────────────────────────────────────────────────────────
// EventKind
// ──────────────────────────────────────────────────────────────────────────────

// EventKind classifies an entry in the financial event log.
type EventKind string

const (
	EventExpenseAdded     EventKind = "expense_added"
	EventLandValueUpdated EventKind = "land_value_updated"
	EventProfitAdded      EventKind = "profit_added"
	EventInvestmentMade   EventKind = "investment_made"
	EventProgressUpdated  EventKind = "progress_updated"
	EventRoadmapUpdated   EventKind = "roadmap_updated"
	EventDatesUpdated     EventKind = "dates_updated"
	EventARRUpdatedBulk   EventKind = "arr_updated_bulk"
)

// Earlier deployments wrote land and profit events under these labels.
// The history replay accepts them so old ledgers still chart correctly.
const (
	legacyLandUpdated EventKind = "land updated"
	legacyLandGrowth  EventKind = "land_growth"
	legacyProfit      EventKind = "profit_growth"
)

// IsLandGrowth reports whether the event increases the land value total.
func (k EventKind) IsLandGrowth() bool {
	return k == EventLandValueUpdated || k == legacyLandUpdated || k == legacyLandGrowth
}

// IsProfit reports whether the event increases the realized profit total.
func (k EventKind) IsProfit() bool {
	return k == EventProfitAdded || k == legacyProfit
}

// ──────────────────────────────────────────────────────────────────────────────
// FinancialEvent
// ──────────────────────────────────────────────────────────────────────────────

// FinancialEvent is one immutable entry in the append-only activity log.
// Amount is zero for non-monetary events (progress, roadmap, dates).
// Replay order is created_at ascending, id ascending.
type FinancialEvent struct {
	ID        int64           `json:"id"         db:"id"`
	FundID    uuid.UUID       `json:"fund_id"    db:"fund_id"`
	Kind      EventKind       `json:"type"       db:"type"`
	Amount    decimal.Decimal `json:"amount"     db:"amount"`
	Email     string          `json:"email"      db:"email"`
	Category  *string         `json:"category"   db:"category"`
	Phase     *int64          `json:"phase"      db:"phase"`
	CreatedAt time.Time       `json:"created_at" db:"created_at"`
}

// ──────────────────────────────────────────────────────────────────────────────
// Mirror records — best-effort side tables fed alongside the event log
// ──────────────────────────────────────────────────────────────────────────────

// Expense is a row in the expenses mirror table, used for spend analytics.
type Expense struct {
	ID       int64           `json:"id"       db:"id"`
	FundID   uuid.UUID       `json:"fund_id"  db:"fund_id"`
	Title    string          `json:"title"    db:"title"`
	Amount   decimal.Decimal `json:"amount"   db:"amount"`
	Category string          `json:"category" db:"category"`
	Phase    int64           `json:"phase"    db:"phase"`
	Date     string          `json:"date"     db:"date"`
	Notes    *string         `json:"notes"    db:"notes"`
}

// PerformanceEntry is a row in the fund_performance_history mirror table.
type PerformanceEntry struct {
	ID          int64           `json:"id"          db:"id"`
	FundID      uuid.UUID       `json:"fund_id"     db:"fund_id"`
	Kind        string          `json:"type"        db:"type"`
	Amount      decimal.Decimal `json:"amount"      db:"amount"`
	Date        string          `json:"date"        db:"date"`
	UpdatedBy   string          `json:"updated_by"  db:"updated_by"`
	Description string          `json:"description" db:"description"`
}

// ARREntry records the declared annual growth rate for one labelled year.
type ARREntry struct {
	ID         int64     `json:"id"          db:"id"`
	FundID     uuid.UUID `json:"fund_id"     db:"fund_id"`
	YearLabel  string    `json:"year_label"  db:"year_label"`
	GrowthRate float64   `json:"growth_rate" db:"growth_rate"`
	UpdatedBy  string    `json:"updated_by"  db:"updated_by"`
	UpdatedAt  time.Time `json:"updated_at"  db:"updated_at"`
}
