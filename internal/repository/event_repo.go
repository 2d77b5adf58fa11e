package repository

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/vriksha/farmfund/internal/domain"
)

// EventRepository handles the append-only activity_log table. Events are the
// authoritative record for the history projection; they are never updated or
// deleted.
type EventRepository struct {
	db *sqlx.DB
}

// NewEventRepository creates an EventRepository.
func NewEventRepository(db *sqlx.DB) *EventRepository {
	return &EventRepository{db: db}
}

// Append writes one event. created_at carries the effective timestamp, which
// may be backdated by an administrator.
func (r *EventRepository) Append(ctx context.Context, ev *domain.FinancialEvent) error {
	query := `
		INSERT INTO activity_log
			(fund_id, type, amount, email, category, phase, created_at)
		VALUES
			(:fund_id, :type, :amount, :email, :category, :phase, :created_at)`
	if _, err := r.db.NamedExecContext(ctx, query, ev); err != nil {
		return fmt.Errorf("event_repo.Append: %w", err)
	}
	return nil
}

// ListByFund returns every event for a fund in replay order: effective
// timestamp ascending, insertion order as the tiebreaker.
func (r *EventRepository) ListByFund(ctx context.Context, fundID uuid.UUID) ([]domain.FinancialEvent, error) {
	var events []domain.FinancialEvent
	err := r.db.SelectContext(ctx, &events, `
		SELECT * FROM activity_log
		WHERE fund_id = $1
		ORDER BY created_at ASC, id ASC`, fundID)
	if err != nil {
		return nil, fmt.Errorf("event_repo.ListByFund: %w", err)
	}
	return events, nil
}

// ListAll returns every event across funds in replay order.
func (r *EventRepository) ListAll(ctx context.Context) ([]domain.FinancialEvent, error) {
	var events []domain.FinancialEvent
	err := r.db.SelectContext(ctx, &events,
		`SELECT * FROM activity_log ORDER BY created_at ASC, id ASC`)
	if err != nil {
		return nil, fmt.Errorf("event_repo.ListAll: %w", err)
	}
	return events, nil
}

// ListRecent returns the newest events first, optionally filtered to one
// fund, capped at limit.
func (r *EventRepository) ListRecent(ctx context.Context, fundID *uuid.UUID, limit int) ([]domain.FinancialEvent, error) {
	var events []domain.FinancialEvent
	var err error
	if fundID != nil {
		err = r.db.SelectContext(ctx, &events, `
			SELECT * FROM activity_log
			WHERE fund_id = $1
			ORDER BY created_at DESC, id DESC
			LIMIT $2`, *fundID, limit)
	} else {
		err = r.db.SelectContext(ctx, &events, `
			SELECT * FROM activity_log
			ORDER BY created_at DESC, id DESC
			LIMIT $1`, limit)
	}
	if err != nil {
		return nil, fmt.Errorf("event_repo.ListRecent: %w", err)
	}
	return events, nil
}
