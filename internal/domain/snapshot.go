package domain

import (
	"time"

	"github.com/google/uuid"
)

// ──────────────────────────────────────────────────────────────────────────────
// MetricsSnapshot
// ──────────────────────────────────────────────────────────────────────────────

// MetricsSnapshot is one materialized fund-metrics row. The table is
// insert-only: every mutation produces a new row and "current" means the row
// with the highest id for the fund. Monetary fields are whole currency units.
type MetricsSnapshot struct {
	ID               int64     `json:"id"                db:"id"`
	FundID           uuid.UUID `json:"fund_id"           db:"fund_id"`
	TotalFundValue   int64     `json:"total_fund_value"  db:"total_fund_value"`
	TotalStocks      int64     `json:"total_stocks"      db:"total_stocks"`
	StockPrice       int64     `json:"stock_price"       db:"stock_price"`
	GrowthPercentage float64   `json:"growth_percentage" db:"growth_percentage"`
	Phase1Progress   int64     `json:"phase1_progress"   db:"phase1_progress"`
	Phase2Progress   int64     `json:"phase2_progress"   db:"phase2_progress"`
	Phase3Progress   int64     `json:"phase3_progress"   db:"phase3_progress"`
	LandValue        int64     `json:"land_value"        db:"land_value"`
	TotalProfits     int64     `json:"total_profits"     db:"total_profits"`
	TotalExpenses    int64     `json:"total_expenses"    db:"total_expenses"`
	CreatedAt        time.Time `json:"created_at"        db:"created_at"`
	UpdatedAt        time.Time `json:"updated_at"        db:"updated_at"`
}

// DefaultSnapshot returns the zero-state metrics for a fund that has no
// stored snapshot yet: full inventory, everything else zero.
func DefaultSnapshot(fundID uuid.UUID, capacity int64) *MetricsSnapshot {
	return &MetricsSnapshot{
		FundID:      fundID,
		TotalStocks: capacity,
	}
}

// HasPhaseProgress reports whether any phase records nonzero progress.
// An all-zero triple on the latest snapshot is treated as a suspect partial
// write and triggers the anti-regression backfill from history.
func (s *MetricsSnapshot) HasPhaseProgress() bool {
	return s.Phase1Progress > 0 || s.Phase2Progress > 0 || s.Phase3Progress > 0
}

// RecomputeStockPrice derives the unit price from the fund value and the
// authorized capacity using integer division. Caller-supplied prices are
// never trusted; this runs on every write.
func (s *MetricsSnapshot) RecomputeStockPrice(capacity int64) {
	if capacity <= 0 {
		capacity = DefaultAuthorizedCapacity
	}
	s.StockPrice = s.TotalFundValue / capacity
}

// ClampInventory sets the available unit count to capacity minus sold,
// floored at zero.
func (s *MetricsSnapshot) ClampInventory(capacity, sold int64) {
	available := capacity - sold
	if available < 0 {
		available = 0
	}
	s.TotalStocks = available
}

// ──────────────────────────────────────────────────────────────────────────────
// SnapshotOverlay
// ──────────────────────────────────────────────────────────────────────────────

// SnapshotOverlay is a partially-populated snapshot as read from storage.
// Every field is a pointer because the stored schema drifts independently of
// the code: columns may be absent or NULL. Overlaying onto DefaultSnapshot
// only applies the fields that were actually present.
type SnapshotOverlay struct {
	TotalFundValue   *int64   `db:"total_fund_value"`
	TotalStocks      *int64   `db:"total_stocks"`
	StockPrice       *int64   `db:"stock_price"`
	GrowthPercentage *float64 `db:"growth_percentage"`
	Phase1Progress   *int64   `db:"phase1_progress"`
	Phase2Progress   *int64   `db:"phase2_progress"`
	Phase3Progress   *int64   `db:"phase3_progress"`
	LandValue        *int64   `db:"land_value"`
	TotalProfits     *int64   `db:"total_profits"`
	TotalExpenses    *int64   `db:"total_expenses"`
	CreatedAt        *time.Time
	UpdatedAt        *time.Time
}

// ApplyTo overlays every non-nil field onto the target snapshot.
func (o *SnapshotOverlay) ApplyTo(s *MetricsSnapshot) {
	if o == nil {
		return
	}
	if o.TotalFundValue != nil {
		s.TotalFundValue = *o.TotalFundValue
	}
	if o.TotalStocks != nil {
		s.TotalStocks = *o.TotalStocks
	}
	if o.StockPrice != nil {
		s.StockPrice = *o.StockPrice
	}
	if o.GrowthPercentage != nil {
		s.GrowthPercentage = *o.GrowthPercentage
	}
	if o.Phase1Progress != nil {
		s.Phase1Progress = *o.Phase1Progress
	}
	if o.Phase2Progress != nil {
		s.Phase2Progress = *o.Phase2Progress
	}
	if o.Phase3Progress != nil {
		s.Phase3Progress = *o.Phase3Progress
	}
	if o.LandValue != nil {
		s.LandValue = *o.LandValue
	}
	if o.TotalProfits != nil {
		s.TotalProfits = *o.TotalProfits
	}
	if o.TotalExpenses != nil {
		s.TotalExpenses = *o.TotalExpenses
	}
	if o.CreatedAt != nil {
		s.CreatedAt = *o.CreatedAt
	}
	if o.UpdatedAt != nil {
		s.UpdatedAt = *o.UpdatedAt
	}
}

// PhaseProgress is the three-field slice of a snapshot used by the
// anti-regression history scan.
type PhaseProgress struct {
	Phase1 *int64 `db:"phase1_progress"`
	Phase2 *int64 `db:"phase2_progress"`
	Phase3 *int64 `db:"phase3_progress"`
}

// Any reports whether any recorded phase value is positive.
func (p PhaseProgress) Any() bool {
	return val(p.Phase1) > 0 || val(p.Phase2) > 0 || val(p.Phase3) > 0
}

// Values returns the triple with nils read as zero.
func (p PhaseProgress) Values() (int64, int64, int64) {
	return val(p.Phase1), val(p.Phase2), val(p.Phase3)
}

func val(p *int64) int64 {
	if p == nil {
		return 0
	}
	return *p
}
