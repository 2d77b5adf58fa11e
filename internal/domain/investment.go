package domain

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// InvestmentStatus tracks settlement of a unit purchase.
type InvestmentStatus string

const (
	InvestmentCompleted InvestmentStatus = "completed"
	InvestmentPending   InvestmentStatus = "pending"
)

// Investment is a single unit purchase by an investor. Rows are append-only;
// per-fund and per-investor totals are always derived by aggregation, never
// stored authoritatively.
type Investment struct {
	ID         int64            `json:"id"          db:"id"`
	FundID     uuid.UUID        `json:"fund_id"     db:"fund_id"`
	Email      string           `json:"email"       db:"email"`
	StockCount int64            `json:"stock_count" db:"stock_count"`
	AmountPaid decimal.Decimal  `json:"amount_paid" db:"amount_paid"`
	Status     InvestmentStatus `json:"status"      db:"status"`
	FundName   *string          `json:"fund_name"   db:"fund_name"`
	CreatedAt  time.Time        `json:"created_at"  db:"created_at"`
}

// Holding is the aggregated position of one investor in one fund.
type Holding struct {
	FundID         uuid.UUID `json:"fund_id"`
	Name           string    `json:"name"`
	Units          int64     `json:"units"`
	CurrentPrice   int64     `json:"current_price"`
	InvestedAmount int64     `json:"invested_amount"`
	CurrentValue   int64     `json:"current_value"`
}

// TimelinePoint is one date on the investor's cumulative portfolio chart.
// FundValues maps fund name to that fund's holding value on the date.
type TimelinePoint struct {
	Date       string           `json:"date"`
	Total      int64            `json:"total"`
	FundValues map[string]int64 `json:"fund_values"`
}

// Portfolio is the full investor view returned by the portfolio endpoint.
type Portfolio struct {
	IsInvestor          bool            `json:"is_investor"`
	TotalStocks         int64           `json:"total_stocks"`
	TotalPortfolioValue int64           `json:"total_portfolio_value"`
	Holdings            []Holding       `json:"holdings"`
	History             []Investment    `json:"history"`
	Timeline            []TimelinePoint `json:"timeline"`
	FundNames           []string        `json:"fund_names"`
}

// Profile is a platform account. Role is "investor", "fund_manager", or the
// administrator (identified by config, not by role).
type Profile struct {
	ID                 uuid.UUID  `json:"id"                  db:"id"`
	Email              string     `json:"email"               db:"email"`
	PasswordHash       string     `json:"-"                   db:"password_hash"`
	FullName           *string    `json:"full_name"           db:"full_name"`
	Phone              *string    `json:"phone"               db:"phone"`
	Role               string     `json:"role"                db:"role"`
	AssignedFund       *uuid.UUID `json:"assigned_fund"       db:"assigned_fund"`
	IsInvestor         bool       `json:"is_investor"         db:"is_investor"`
	VerificationStatus string     `json:"verification_status" db:"verification_status"`
	TotalStocks        int64      `json:"total_stocks"        db:"total_stocks"`
	PANNumber          *string    `json:"pan_number"          db:"pan_number"`
	AadhaarNumber      *string    `json:"aadhaar_number"      db:"aadhaar_number"`
	BankName           *string    `json:"bank_name"           db:"bank_name"`
	AccountNumber      *string    `json:"account_number"      db:"account_number"`
	IFSCCode           *string    `json:"ifsc_code"           db:"ifsc_code"`
	CreatedAt          time.Time  `json:"created_at"          db:"created_at"`
	UpdatedAt          time.Time  `json:"updated_at"          db:"updated_at"`
}
