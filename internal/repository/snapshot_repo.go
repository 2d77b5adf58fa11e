package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/vriksha/farmfund/internal/domain"
)

// snapshotCoreColumns is the minimal safe field set for fund_metrics writes,
// used when the schema probe cannot discover the stored shape.
var snapshotCoreColumns = []string{
	"fund_id", "total_fund_value", "stock_price", "total_stocks",
	"growth_percentage", "phase1_progress", "phase2_progress",
	"phase3_progress", "land_value", "total_profits", "total_expenses",
}

// SnapshotRepository handles the append-only fund_metrics table. Rows are
// never updated in place: every write inserts a new as-of record and the
// current state of a fund is the row with the highest id.
type SnapshotRepository struct {
	db    *sqlx.DB
	probe *SchemaProbe
}

// NewSnapshotRepository creates a SnapshotRepository.
func NewSnapshotRepository(db *sqlx.DB) *SnapshotRepository {
	return &SnapshotRepository{db: db, probe: NewSchemaProbe(db)}
}

// Latest fetches the most recent snapshot overlay for a fund, or (nil, nil)
// when the fund has no stored row yet. Fields are pointers so NULL columns
// stay distinguishable from genuine zeros.
func (r *SnapshotRepository) Latest(ctx context.Context, fundID uuid.UUID) (*domain.SnapshotOverlay, error) {
	var row struct {
		domain.SnapshotOverlay
		CreatedAt *time.Time `db:"created_at"`
		UpdatedAt *time.Time `db:"updated_at"`
	}
	err := r.db.GetContext(ctx, &row, `
		SELECT total_fund_value, total_stocks, stock_price, growth_percentage,
		       phase1_progress, phase2_progress, phase3_progress,
		       land_value, total_profits, total_expenses, created_at, updated_at
		FROM fund_metrics
		WHERE fund_id = $1
		ORDER BY id DESC
		LIMIT 1`, fundID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("snapshot_repo.Latest: %w", err)
	}
	overlay := row.SnapshotOverlay
	overlay.CreatedAt = row.CreatedAt
	overlay.UpdatedAt = row.UpdatedAt
	return &overlay, nil
}

// PhaseHistory returns the phase progress triples for a fund, newest first.
// Used by the anti-regression backfill to find the last snapshot that
// recorded real progress.
func (r *SnapshotRepository) PhaseHistory(ctx context.Context, fundID uuid.UUID) ([]domain.PhaseProgress, error) {
	var rows []domain.PhaseProgress
	err := r.db.SelectContext(ctx, &rows, `
		SELECT phase1_progress, phase2_progress, phase3_progress
		FROM fund_metrics
		WHERE fund_id = $1
		ORDER BY id DESC`, fundID)
	if err != nil {
		return nil, fmt.Errorf("snapshot_repo.PhaseHistory: %w", err)
	}
	return rows, nil
}

// LatestStockPrice returns the most recent unit price for a fund, or
// (0, false) when no snapshot exists.
func (r *SnapshotRepository) LatestStockPrice(ctx context.Context, fundID uuid.UUID) (int64, bool, error) {
	var price int64
	err := r.db.GetContext(ctx, &price, `
		SELECT COALESCE(stock_price, 0)
		FROM fund_metrics
		WHERE fund_id = $1
		ORDER BY id DESC
		LIMIT 1`, fundID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return 0, false, nil
		}
		return 0, false, fmt.Errorf("snapshot_repo.LatestStockPrice: %w", err)
	}
	return price, true, nil
}

// Insert writes a new snapshot row through the schema probe. effectiveDate,
// when non-empty, backdates created_at for historical corrections; updated_at
// always reflects the wall clock of the write.
func (r *SnapshotRepository) Insert(ctx context.Context, snap *domain.MetricsSnapshot, effectiveDate string) error {
	candidate := map[string]interface{}{
		"fund_id":           snap.FundID,
		"total_fund_value":  snap.TotalFundValue,
		"total_stocks":      snap.TotalStocks,
		"stock_price":       snap.StockPrice,
		"growth_percentage": snap.GrowthPercentage,
		"phase1_progress":   snap.Phase1Progress,
		"phase2_progress":   snap.Phase2Progress,
		"phase3_progress":   snap.Phase3Progress,
		"land_value":        snap.LandValue,
		"total_profits":     snap.TotalProfits,
		"total_expenses":    snap.TotalExpenses,
		"updated_at":        snap.UpdatedAt,
	}
	if effectiveDate != "" {
		candidate["created_at"] = effectiveDate
	}

	payload := r.probe.FilterPayload(ctx, "fund_metrics", candidate, snapshotCoreColumns)
	if len(payload) == 0 {
		return fmt.Errorf("snapshot_repo.Insert: %w", domain.ErrSchemaMismatch)
	}
	if err := r.probe.InsertFiltered(ctx, "fund_metrics", payload); err != nil {
		return fmt.Errorf("snapshot_repo.Insert: %w", err)
	}
	return nil
}
