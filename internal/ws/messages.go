// Package ws holds WebSocket message types and the Hub implementation.
// messages.go defines all message structs broadcast to connected clients.
package ws

import (
	"time"

	"github.com/google/uuid"
)

// MsgType identifies the kind of WS message so clients can switch on it.
type MsgType string

const (
	MsgTypeMetricsUpdate  MsgType = "metrics_update"
	MsgTypeInvestmentMade MsgType = "investment_made"
	MsgTypeError          MsgType = "error"
)

// ──────────────────────────────────────────────────────────────────────────────
// MetricsUpdateMessage — broadcast after every snapshot write.
// ──────────────────────────────────────────────────────────────────────────────

// MetricsUpdateMessage carries the fresh fund metrics so dashboards refresh
// without polling.
type MetricsUpdateMessage struct {
	Type             MsgType   `json:"type"`
	FundID           uuid.UUID `json:"fund_id"`
	TotalFundValue   int64     `json:"total_fund_value"`
	StockPrice       int64     `json:"stock_price"`
	TotalStocks      int64     `json:"total_stocks"`
	LandValue        int64     `json:"land_value"`
	TotalProfits     int64     `json:"total_profits"`
	TotalExpenses    int64     `json:"total_expenses"`
	Phase1Progress   int64     `json:"phase1_progress"`
	Phase2Progress   int64     `json:"phase2_progress"`
	Phase3Progress   int64     `json:"phase3_progress"`
	GrowthPercentage float64   `json:"growth_percentage"`
	Timestamp        time.Time `json:"timestamp"`
}

// ──────────────────────────────────────────────────────────────────────────────
// InvestmentMadeMessage — broadcast after a purchase so inventory refreshes.
// ──────────────────────────────────────────────────────────────────────────────

// InvestmentMadeMessage notifies all clients that units were sold.
type InvestmentMadeMessage struct {
	Type           MsgType   `json:"type"`
	FundID         uuid.UUID `json:"fund_id"`
	StockCount     int64     `json:"stock_count"`
	RemainingUnits int64     `json:"remaining_units"`
	Timestamp      time.Time `json:"timestamp"`
}

// ──────────────────────────────────────────────────────────────────────────────
// ErrorMessage — sent to a single client on a non-fatal error.
// ──────────────────────────────────────────────────────────────────────────────

// ErrorMessage is sent directly to one client (not broadcast).
type ErrorMessage struct {
	Type    MsgType `json:"type"`
	Code    string  `json:"code"`
	Message string  `json:"message"`
}
