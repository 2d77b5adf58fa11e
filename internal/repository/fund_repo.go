package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/vriksha/farmfund/internal/domain"
)

// FundRepository handles the funds table and the fund_allocation side table.
type FundRepository struct {
	db *sqlx.DB
}

// NewFundRepository creates a FundRepository.
func NewFundRepository(db *sqlx.DB) *FundRepository {
	return &FundRepository{db: db}
}

// Create inserts a new fund row.
func (r *FundRepository) Create(ctx context.Context, f *domain.Fund) error {
	query := `
		INSERT INTO funds
			(id, name, location, target_amount, total_stocks, stock_price,
			 entry_date, exit_date, phase, description, blueprint_url,
			 roadmap, created_by, created_at)
		VALUES
			(:id, :name, :location, :target_amount, :total_stocks, :stock_price,
			 :entry_date, :exit_date, :phase, :description, :blueprint_url,
			 :roadmap, :created_by, :created_at)`
	if _, err := r.db.NamedExecContext(ctx, query, f); err != nil {
		return fmt.Errorf("fund_repo.Create: %w", err)
	}
	return nil
}

// GetByID fetches a fund by its primary key.
func (r *FundRepository) GetByID(ctx context.Context, id uuid.UUID) (*domain.Fund, error) {
	var f domain.Fund
	err := r.db.GetContext(ctx, &f, `SELECT * FROM funds WHERE id = $1`, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.ErrFundNotFound
		}
		return nil, fmt.Errorf("fund_repo.GetByID: %w", err)
	}
	return &f, nil
}

// List returns all funds ordered by creation time.
func (r *FundRepository) List(ctx context.Context) ([]domain.Fund, error) {
	var funds []domain.Fund
	err := r.db.SelectContext(ctx, &funds, `SELECT * FROM funds ORDER BY created_at ASC`)
	if err != nil {
		return nil, fmt.Errorf("fund_repo.List: %w", err)
	}
	return funds, nil
}

// GetBySlug resolves a human-readable slug ("green-valley-fund") to a fund by
// slugifying each fund name. There is no slug column; the match is computed.
func (r *FundRepository) GetBySlug(ctx context.Context, slug string) (*domain.Fund, error) {
	funds, err := r.List(ctx)
	if err != nil {
		return nil, err
	}
	for i := range funds {
		if funds[i].Slug() == slug {
			return &funds[i], nil
		}
	}
	return nil, domain.ErrFundNotFound
}

// UpdateDates overwrites the entry/exit and per-phase dates for a fund.
func (r *FundRepository) UpdateDates(ctx context.Context, fundID uuid.UUID, d domain.FundDates) error {
	res, err := r.db.ExecContext(ctx, `
		UPDATE funds
		SET entry_date    = $1,
		    exit_date     = $2,
		    p1_start_date = $3,
		    p1_end_date   = $4,
		    p2_start_date = $5,
		    p2_end_date   = $6,
		    p3_start_date = $7,
		    p3_end_date   = $8
		WHERE id = $9`,
		d.EntryDate, d.ExitDate,
		d.P1StartDate, d.P1EndDate,
		d.P2StartDate, d.P2EndDate,
		d.P3StartDate, d.P3EndDate,
		fundID)
	if err != nil {
		return fmt.Errorf("fund_repo.UpdateDates: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return domain.ErrFundNotFound
	}
	return nil
}

// UpdateRoadmap replaces the fund's roadmap JSONB.
func (r *FundRepository) UpdateRoadmap(ctx context.Context, fundID uuid.UUID, roadmap domain.Roadmap) error {
	res, err := r.db.ExecContext(ctx,
		`UPDATE funds SET roadmap = $1 WHERE id = $2`, roadmap, fundID)
	if err != nil {
		return fmt.Errorf("fund_repo.UpdateRoadmap: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return domain.ErrFundNotFound
	}
	return nil
}

// AllocationByPhase aggregates the fund_allocation table by phase name.
func (r *FundRepository) AllocationByPhase(ctx context.Context) ([]domain.AllocationItem, error) {
	var items []domain.AllocationItem
	err := r.db.SelectContext(ctx, &items, `
		SELECT phase_name AS name, COALESCE(SUM(amount), 0) AS value
		FROM fund_allocation
		GROUP BY phase_name
		ORDER BY phase_name ASC`)
	if err != nil {
		return nil, fmt.Errorf("fund_repo.AllocationByPhase: %w", err)
	}
	return items, nil
}
