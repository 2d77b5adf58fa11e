package repository

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/vriksha/farmfund/internal/domain"
)

// InvestmentRepository handles the append-only investments table. Inventory
// and raised capital are always derived by aggregating this table; the
// snapshot cache is reconciled against it on every write.
type InvestmentRepository struct {
	db *sqlx.DB
}

// NewInvestmentRepository creates an InvestmentRepository.
func NewInvestmentRepository(db *sqlx.DB) *InvestmentRepository {
	return &InvestmentRepository{db: db}
}

// Create inserts one purchase row.
func (r *InvestmentRepository) Create(ctx context.Context, inv *domain.Investment) error {
	query := `
		INSERT INTO investments
			(fund_id, email, stock_count, amount_paid, status, created_at)
		VALUES
			(:fund_id, :email, :stock_count, :amount_paid, :status, :created_at)`
	if _, err := r.db.NamedExecContext(ctx, query, inv); err != nil {
		return fmt.Errorf("investment_repo.Create: %w", err)
	}
	return nil
}

// UnitsSold returns the total unit count sold for a fund.
func (r *InvestmentRepository) UnitsSold(ctx context.Context, fundID uuid.UUID) (int64, error) {
	var total int64
	err := r.db.GetContext(ctx, &total, `
		SELECT COALESCE(SUM(stock_count), 0)
		FROM investments
		WHERE fund_id = $1`, fundID)
	if err != nil {
		return 0, fmt.Errorf("investment_repo.UnitsSold: %w", err)
	}
	return total, nil
}

// UnitsHeld returns the total unit count an investor holds across all funds.
func (r *InvestmentRepository) UnitsHeld(ctx context.Context, email string) (int64, error) {
	var total int64
	err := r.db.GetContext(ctx, &total, `
		SELECT COALESCE(SUM(stock_count), 0)
		FROM investments
		WHERE email = $1`, email)
	if err != nil {
		return 0, fmt.Errorf("investment_repo.UnitsHeld: %w", err)
	}
	return total, nil
}

// ListByEmail returns an investor's purchases oldest first, with the fund
// name joined in for display.
func (r *InvestmentRepository) ListByEmail(ctx context.Context, email string) ([]domain.Investment, error) {
	var investments []domain.Investment
	err := r.db.SelectContext(ctx, &investments, `
		SELECT i.*, f.name AS fund_name
		FROM investments i
		LEFT JOIN funds f ON f.id = i.fund_id
		WHERE i.email = $1
		ORDER BY i.created_at ASC, i.id ASC`, email)
	if err != nil {
		return nil, fmt.Errorf("investment_repo.ListByEmail: %w", err)
	}
	return investments, nil
}
