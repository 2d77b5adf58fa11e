package repository

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/vriksha/farmfund/internal/domain"
)

// expenseCoreColumns is the minimal safe field set for the expenses mirror.
var expenseCoreColumns = []string{"fund_id", "title", "amount", "category", "phase", "date"}

// MirrorRepository handles the best-effort side tables fed alongside the
// primary snapshot write: the expenses mirror, the performance history, and
// the ARR growth timeline. Failures here are non-fatal by design — callers
// log and continue, keeping the authoritative snapshot mutation intact.
type MirrorRepository struct {
	db    *sqlx.DB
	probe *SchemaProbe
}

// NewMirrorRepository creates a MirrorRepository.
func NewMirrorRepository(db *sqlx.DB) *MirrorRepository {
	return &MirrorRepository{db: db, probe: NewSchemaProbe(db)}
}

// InsertExpense writes one row to the expenses mirror through the schema
// probe; the mirror's schema drifts most often of all the tables.
func (r *MirrorRepository) InsertExpense(ctx context.Context, e *domain.Expense) error {
	candidate := map[string]interface{}{
		"fund_id":  e.FundID,
		"title":    e.Title,
		"amount":   e.Amount,
		"category": e.Category,
		"phase":    e.Phase,
		"date":     e.Date,
		"notes":    e.Notes,
	}
	payload := r.probe.FilterPayload(ctx, "expenses", candidate, expenseCoreColumns)
	if err := r.probe.InsertFiltered(ctx, "expenses", payload); err != nil {
		return fmt.Errorf("mirror_repo.InsertExpense: %w", err)
	}
	return nil
}

// ListExpenses returns the expenses mirror for a fund, oldest first.
func (r *MirrorRepository) ListExpenses(ctx context.Context, fundID uuid.UUID) ([]domain.Expense, error) {
	var expenses []domain.Expense
	err := r.db.SelectContext(ctx, &expenses, `
		SELECT * FROM expenses
		WHERE fund_id = $1
		ORDER BY date ASC, id ASC`, fundID)
	if err != nil {
		return nil, fmt.Errorf("mirror_repo.ListExpenses: %w", err)
	}
	return expenses, nil
}

// InsertPerformance writes one row to fund_performance_history.
func (r *MirrorRepository) InsertPerformance(ctx context.Context, e *domain.PerformanceEntry) error {
	query := `
		INSERT INTO fund_performance_history
			(fund_id, type, amount, date, updated_by, description)
		VALUES
			(:fund_id, :type, :amount, :date, :updated_by, :description)`
	if _, err := r.db.NamedExecContext(ctx, query, e); err != nil {
		return fmt.Errorf("mirror_repo.InsertPerformance: %w", err)
	}
	return nil
}

// UpsertARR inserts or updates the growth rate for one labelled year of a
// fund's five-year timeline.
func (r *MirrorRepository) UpsertARR(ctx context.Context, entry *domain.ARREntry) error {
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO fund_arr_history (fund_id, year_label, growth_rate, updated_by, updated_at)
		VALUES ($1, $2, $3, $4, $5)
		ON CONFLICT (fund_id, year_label)
		DO UPDATE SET growth_rate = EXCLUDED.growth_rate,
		              updated_by  = EXCLUDED.updated_by,
		              updated_at  = EXCLUDED.updated_at`,
		entry.FundID, entry.YearLabel, entry.GrowthRate, entry.UpdatedBy, entry.UpdatedAt)
	if err != nil {
		return fmt.Errorf("mirror_repo.UpsertARR: %w", err)
	}
	return nil
}

// ListARR returns the ARR timeline for a fund ordered by year label.
func (r *MirrorRepository) ListARR(ctx context.Context, fundID uuid.UUID) ([]domain.ARREntry, error) {
	var entries []domain.ARREntry
	err := r.db.SelectContext(ctx, &entries, `
		SELECT * FROM fund_arr_history
		WHERE fund_id = $1
		ORDER BY year_label ASC`, fundID)
	if err != nil {
		return nil, fmt.Errorf("mirror_repo.ListARR: %w", err)
	}
	return entries, nil
}
