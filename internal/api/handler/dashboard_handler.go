package handler

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/vriksha/farmfund/internal/config"
	"github.com/vriksha/farmfund/internal/domain"
	"github.com/vriksha/farmfund/internal/service"
)

// DashboardHandler serves the public investor dashboard: live metrics, the
// growth chart, allocation, activity, and fund listings.
type DashboardHandler struct {
	metricsSvc *service.MetricsService
	historySvc *service.HistoryService
	fundSvc    *service.FundService
	cfg        *config.Config
}

// NewDashboardHandler creates a DashboardHandler.
func NewDashboardHandler(
	metricsSvc *service.MetricsService,
	historySvc *service.HistoryService,
	fundSvc *service.FundService,
	cfg *config.Config,
) *DashboardHandler {
	return &DashboardHandler{
		metricsSvc: metricsSvc,
		historySvc: historySvc,
		fundSvc:    fundSvc,
		cfg:        cfg,
	}
}

// GetMetrics godoc
// GET /api/dashboard/metrics?fund_id=<uuid>
//
// Without fund_id the first registered fund is used. Storage failures fall
// back to the showcase defaults so the public page always renders.
func (h *DashboardHandler) GetMetrics(c *gin.Context) {
	fundID, err := h.resolveFundID(c)
	if err != nil {
		respondSuccess(c, http.StatusOK, h.fallbackMetrics())
		return
	}

	snap, err := h.metricsSvc.CurrentMetrics(c.Request.Context(), fundID)
	if err != nil {
		respondSuccess(c, http.StatusOK, h.fallbackMetrics())
		return
	}
	respondSuccess(c, http.StatusOK, snap)
}

// resolveFundID reads ?fund_id, falling back to the first fund.
func (h *DashboardHandler) resolveFundID(c *gin.Context) (uuid.UUID, error) {
	if raw := c.Query("fund_id"); raw != "" {
		return uuid.Parse(raw)
	}
	funds, err := h.fundSvc.ListFunds(c.Request.Context())
	if err != nil {
		return uuid.Nil, err
	}
	if len(funds) == 0 {
		return uuid.Nil, domain.ErrFundNotFound
	}
	return funds[0].ID, nil
}

// fallbackMetrics is the showcase payload used when storage is unreachable.
func (h *DashboardHandler) fallbackMetrics() *domain.MetricsSnapshot {
	return &domain.MetricsSnapshot{
		TotalFundValue:   h.cfg.Fund.DefaultTarget,
		TotalStocks:      h.cfg.Fund.AuthorizedCapacity,
		StockPrice:       h.cfg.Fund.DefaultTarget / h.cfg.Fund.AuthorizedCapacity,
		GrowthPercentage: 12.5,
		Phase1Progress:   85,
		Phase2Progress:   40,
		Phase3Progress:   15,
	}
}

// GetAllocation godoc
// GET /api/dashboard/allocation
func (h *DashboardHandler) GetAllocation(c *gin.Context) {
	items, err := h.fundSvc.Allocation(c.Request.Context())
	if err != nil || len(items) == 0 {
		respondSuccess(c, http.StatusOK, fallbackAllocation())
		return
	}
	respondSuccess(c, http.StatusOK, items)
}

// fallbackAllocation mirrors the showcase pie rendered before any allocation
// rows exist.
func fallbackAllocation() []domain.AllocationItem {
	return []domain.AllocationItem{
		{Name: "Land Acquisition", Value: 60},
		{Name: "Development", Value: 25},
		{Name: "Operations", Value: 15},
	}
}

// GetGrowthHistory godoc
// GET /api/dashboard/growth-history/:fund
//
// :fund accepts a UUID or a name slug ("green-valley-fund"). Without :fund
// the whole ledger is replayed across funds.
func (h *DashboardHandler) GetGrowthHistory(c *gin.Context) {
	history, err := h.historySvc.ProjectHistory(c.Request.Context(), c.Param("fund"))
	if err != nil {
		respondDomainError(c, err, "could not build growth history")
		return
	}
	respondSuccess(c, http.StatusOK, history)
}

// GetActivities godoc
// GET /api/dashboard/activities?fund_id=<uuid>&limit=20
func (h *DashboardHandler) GetActivities(c *gin.Context) {
	var fundID *uuid.UUID
	if raw := c.Query("fund_id"); raw != "" {
		id, err := uuid.Parse(raw)
		if err != nil {
			respondError(c, http.StatusBadRequest, "ERR_INVALID_ID", "invalid fund id")
			return
		}
		fundID = &id
	}
	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "20"))

	events, err := h.metricsSvc.RecentActivity(c.Request.Context(), fundID, limit)
	if err != nil {
		respondError(c, http.StatusInternalServerError, "ERR_INTERNAL", "could not fetch activities")
		return
	}
	respondList(c, events, len(events), 1, limit)
}

// ListFunds godoc
// GET /api/funds
func (h *DashboardHandler) ListFunds(c *gin.Context) {
	funds, err := h.fundSvc.ListFunds(c.Request.Context())
	if err != nil {
		respondError(c, http.StatusInternalServerError, "ERR_INTERNAL", "could not list funds")
		return
	}
	respondList(c, funds, len(funds), 1, len(funds))
}

// GetFund godoc
// GET /api/funds/:id
func (h *DashboardHandler) GetFund(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		respondError(c, http.StatusBadRequest, "ERR_INVALID_ID", "invalid fund id")
		return
	}
	fund, err := h.fundSvc.GetFund(c.Request.Context(), id)
	if err != nil {
		respondDomainError(c, err, "could not fetch fund")
		return
	}
	respondSuccess(c, http.StatusOK, fund)
}

// GetARR godoc
// GET /api/funds/:id/arr
func (h *DashboardHandler) GetARR(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		respondError(c, http.StatusBadRequest, "ERR_INVALID_ID", "invalid fund id")
		return
	}
	entries, err := h.fundSvc.ARRTimeline(c.Request.Context(), id)
	if err != nil {
		respondDomainError(c, err, "could not fetch growth timeline")
		return
	}
	respondList(c, entries, len(entries), 1, len(entries))
}
