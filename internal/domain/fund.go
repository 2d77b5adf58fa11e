// Package domain defines the core business entities and types for the
// FarmFund investment administration system.
package domain

import (
	"database/sql/driver"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// DefaultAuthorizedCapacity is the fixed unit count every fund's valuation is
// divided by to obtain the unit price. Funds are never issued with a different
// capacity; the config value exists only for test harnesses.
const DefaultAuthorizedCapacity int64 = 1000

// ──────────────────────────────────────────────────────────────────────────────
// Roadmap
// ──────────────────────────────────────────────────────────────────────────────

// RoadmapStep is a single milestone on a fund's development roadmap.
type RoadmapStep struct {
	Phase  string `json:"phase"`
	Date   string `json:"date"`
	Status string `json:"status"`
}

// Roadmap is an ordered list of steps, stored as a JSONB column on funds.
type Roadmap []RoadmapStep

// Value implements driver.Valuer so sqlx can write the roadmap as JSONB.
func (r Roadmap) Value() (driver.Value, error) {
	if r == nil {
		return []byte("[]"), nil
	}
	return json.Marshal(r)
}

// Scan implements sql.Scanner for reading the JSONB roadmap column.
func (r *Roadmap) Scan(src interface{}) error {
	if src == nil {
		*r = nil
		return nil
	}
	var data []byte
	switch v := src.(type) {
	case []byte:
		data = v
	case string:
		data = []byte(v)
	default:
		return fmt.Errorf("roadmap: cannot scan %T", src)
	}
	return json.Unmarshal(data, r)
}

// ──────────────────────────────────────────────────────────────────────────────
// Fund
// ──────────────────────────────────────────────────────────────────────────────

// Fund represents a single managed land/investment fund. Date fields are kept
// as plain ISO strings because administrators enter and backdate them freely;
// only CreatedAt is a real timestamp.
type Fund struct {
	ID           uuid.UUID       `json:"id"             db:"id"`
	Name         string          `json:"name"           db:"name"`
	Location     string          `json:"location"       db:"location"`
	TargetAmount decimal.Decimal `json:"target_amount"  db:"target_amount"`
	TotalStocks  int64           `json:"total_stocks"   db:"total_stocks"`
	StockPrice   int64           `json:"stock_price"    db:"stock_price"`
	EntryDate    string          `json:"entry_date"     db:"entry_date"`
	ExitDate     string          `json:"exit_date"      db:"exit_date"`
	Phase        string          `json:"phase"          db:"phase"`
	Description  *string         `json:"description"    db:"description"`
	BlueprintURL *string         `json:"blueprint_url"  db:"blueprint_url"`
	P1StartDate  *string         `json:"p1_start_date"  db:"p1_start_date"`
	P1EndDate    *string         `json:"p1_end_date"    db:"p1_end_date"`
	P2StartDate  *string         `json:"p2_start_date"  db:"p2_start_date"`
	P2EndDate    *string         `json:"p2_end_date"    db:"p2_end_date"`
	P3StartDate  *string         `json:"p3_start_date"  db:"p3_start_date"`
	P3EndDate    *string         `json:"p3_end_date"    db:"p3_end_date"`
	Roadmap      Roadmap         `json:"roadmap"        db:"roadmap"`
	CreatedBy    string          `json:"created_by"     db:"created_by"`
	CreatedAt    time.Time       `json:"created_at"     db:"created_at"`
}

// Slug returns the human-readable identifier derived from the fund name
// ("Green Valley Fund" → "green-valley-fund"). Chart clients address funds by
// slug when they do not hold the UUID.
func (f *Fund) Slug() string {
	return Slugify(f.Name)
}

// Slugify lowercases a name and replaces spaces with hyphens.
func Slugify(name string) string {
	return strings.ReplaceAll(strings.ToLower(strings.TrimSpace(name)), " ", "-")
}

// FundDates carries the editable date fields for a fund.
type FundDates struct {
	EntryDate   string  `json:"entry_date"`
	ExitDate    string  `json:"exit_date"`
	P1StartDate *string `json:"p1_start_date"`
	P1EndDate   *string `json:"p1_end_date"`
	P2StartDate *string `json:"p2_start_date"`
	P2EndDate   *string `json:"p2_end_date"`
	P3StartDate *string `json:"p3_start_date"`
	P3EndDate   *string `json:"p3_end_date"`
}

// ──────────────────────────────────────────────────────────────────────────────
// FundManager
// ──────────────────────────────────────────────────────────────────────────────

// FundManager is a delegated administrator restricted to one fund.
// AssignedFund may be nil for managers created before a fund was chosen.
type FundManager struct {
	ID           int64      `json:"id"            db:"id"`
	Name         string     `json:"name"          db:"name"`
	Email        string     `json:"email"         db:"email"`
	Phone        string     `json:"phone"         db:"phone"`
	AssignedFund *uuid.UUID `json:"assigned_fund" db:"assigned_fund"`
	CreatedBy    string     `json:"created_by"    db:"created_by"`
	CreatedAt    time.Time  `json:"created_at"    db:"created_at"`
}

// AllocationItem is one slice of the phase allocation pie.
type AllocationItem struct {
	Name  string `json:"name"`
	Value int64  `json:"value"`
}
