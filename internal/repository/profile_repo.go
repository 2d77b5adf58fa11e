package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/vriksha/farmfund/internal/domain"
)

// ProfileRepository handles the profiles and fund_managers tables.
type ProfileRepository struct {
	db *sqlx.DB
}

// NewProfileRepository creates a ProfileRepository.
func NewProfileRepository(db *sqlx.DB) *ProfileRepository {
	return &ProfileRepository{db: db}
}

// Create inserts a new profile row.
func (r *ProfileRepository) Create(ctx context.Context, p *domain.Profile) error {
	query := `
		INSERT INTO profiles
			(id, email, password_hash, full_name, phone, role, assigned_fund,
			 is_investor, verification_status, total_stocks, created_at, updated_at)
		VALUES
			(:id, :email, :password_hash, :full_name, :phone, :role, :assigned_fund,
			 :is_investor, :verification_status, :total_stocks, :created_at, :updated_at)`
	if _, err := r.db.NamedExecContext(ctx, query, p); err != nil {
		if strings.Contains(err.Error(), "profiles_email_key") {
			return domain.ErrEmailTaken
		}
		return fmt.Errorf("profile_repo.Create: %w", err)
	}
	return nil
}

// GetByEmail fetches a profile by email.
func (r *ProfileRepository) GetByEmail(ctx context.Context, email string) (*domain.Profile, error) {
	var p domain.Profile
	err := r.db.GetContext(ctx, &p, `SELECT * FROM profiles WHERE email = $1`, email)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.ErrProfileNotFound
		}
		return nil, fmt.Errorf("profile_repo.GetByEmail: %w", err)
	}
	return &p, nil
}

// GetByID fetches a profile by primary key.
func (r *ProfileRepository) GetByID(ctx context.Context, id uuid.UUID) (*domain.Profile, error) {
	var p domain.Profile
	err := r.db.GetContext(ctx, &p, `SELECT * FROM profiles WHERE id = $1`, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.ErrProfileNotFound
		}
		return nil, fmt.Errorf("profile_repo.GetByID: %w", err)
	}
	return &p, nil
}

// UpdateContact overwrites the editable contact/KYC detail fields present in
// the request; nil fields are left untouched.
func (r *ProfileRepository) UpdateContact(ctx context.Context, email string, fields map[string]interface{}) error {
	if len(fields) == 0 {
		return nil
	}
	sets := make([]string, 0, len(fields))
	args := make([]interface{}, 0, len(fields)+1)
	i := 1
	for _, col := range []string{"full_name", "phone", "pan_number", "aadhaar_number",
		"bank_name", "account_number", "ifsc_code", "verification_status"} {
		if v, ok := fields[col]; ok {
			sets = append(sets, fmt.Sprintf("%s = $%d", col, i))
			args = append(args, v)
			i++
		}
	}
	if len(sets) == 0 {
		return nil
	}
	args = append(args, email)
	query := fmt.Sprintf(`UPDATE profiles SET %s, updated_at = now() WHERE email = $%d`,
		strings.Join(sets, ", "), i)
	res, err := r.db.ExecContext(ctx, query, args...)
	if err != nil {
		return fmt.Errorf("profile_repo.UpdateContact: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return domain.ErrProfileNotFound
	}
	return nil
}

// SetInvestor flags a profile as an investor.
func (r *ProfileRepository) SetInvestor(ctx context.Context, email string) error {
	res, err := r.db.ExecContext(ctx,
		`UPDATE profiles SET is_investor = true, updated_at = now() WHERE email = $1`, email)
	if err != nil {
		return fmt.Errorf("profile_repo.SetInvestor: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return domain.ErrProfileNotFound
	}
	return nil
}

// SetVerification updates the KYC verification state.
func (r *ProfileRepository) SetVerification(ctx context.Context, email, status string) error {
	res, err := r.db.ExecContext(ctx,
		`UPDATE profiles SET verification_status = $1, updated_at = now() WHERE email = $2`,
		status, email)
	if err != nil {
		return fmt.Errorf("profile_repo.SetVerification: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return domain.ErrProfileNotFound
	}
	return nil
}

// SetRole updates the role and fund assignment on a profile.
func (r *ProfileRepository) SetRole(ctx context.Context, email, role string, assignedFund *uuid.UUID) error {
	_, err := r.db.ExecContext(ctx, `
		UPDATE profiles
		SET role = $1, assigned_fund = $2, updated_at = now()
		WHERE email = $3`, role, assignedFund, email)
	if err != nil {
		return fmt.Errorf("profile_repo.SetRole: %w", err)
	}
	return nil
}

// AddUnits increments the cached per-profile unit total after a purchase and
// returns the new total.
func (r *ProfileRepository) AddUnits(ctx context.Context, email string, units int64) (int64, error) {
	var total int64
	err := r.db.GetContext(ctx, &total, `
		UPDATE profiles
		SET total_stocks = total_stocks + $1, is_investor = true, updated_at = now()
		WHERE email = $2
		RETURNING total_stocks`, units, email)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return 0, domain.ErrProfileNotFound
		}
		return 0, fmt.Errorf("profile_repo.AddUnits: %w", err)
	}
	return total, nil
}

// ──────────────────────────────────────────────────────────────────────────────
// Fund managers
// ──────────────────────────────────────────────────────────────────────────────

// CreateManager inserts a fund manager row.
func (r *ProfileRepository) CreateManager(ctx context.Context, m *domain.FundManager) error {
	query := `
		INSERT INTO fund_managers
			(name, email, phone, assigned_fund, created_by, created_at)
		VALUES
			(:name, :email, :phone, :assigned_fund, :created_by, :created_at)`
	if _, err := r.db.NamedExecContext(ctx, query, m); err != nil {
		return fmt.Errorf("profile_repo.CreateManager: %w", err)
	}
	return nil
}

// ManagerAssignment returns the fund assignment for a manager email.
// found is false when the email is not a registered manager.
func (r *ProfileRepository) ManagerAssignment(ctx context.Context, email string) (assigned *uuid.UUID, found bool, err error) {
	var m domain.FundManager
	err = r.db.GetContext(ctx, &m,
		`SELECT * FROM fund_managers WHERE email = $1 ORDER BY id DESC LIMIT 1`, email)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, false, nil
		}
		return nil, false, fmt.Errorf("profile_repo.ManagerAssignment: %w", err)
	}
	return m.AssignedFund, true, nil
}
