package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/vriksha/farmfund/internal/api/middleware"
	"github.com/vriksha/farmfund/internal/domain"
	"github.com/vriksha/farmfund/internal/service"
)

// AdminHandler serves the fund administration surface: financial updates,
// fund and manager creation, dates, roadmap, ARR, and spend reports.
// Per-fund authorization happens in the services; the handler only carries
// the actor identity from the token.
type AdminHandler struct {
	metricsSvc *service.MetricsService
	fundSvc    *service.FundService
}

// NewAdminHandler creates an AdminHandler.
func NewAdminHandler(metricsSvc *service.MetricsService, fundSvc *service.FundService) *AdminHandler {
	return &AdminHandler{metricsSvc: metricsSvc, fundSvc: fundSvc}
}

// ──────────────────────────────────────────────────────────────────────────────
// Financial updates
// ──────────────────────────────────────────────────────────────────────────────

// AddExpense godoc
// POST /api/admin/expenses
func (h *AdminHandler) AddExpense(c *gin.Context) {
	var in service.ExpenseInput
	if err := c.ShouldBindJSON(&in); err != nil {
		respondError(c, http.StatusBadRequest, "ERR_VALIDATION", err.Error())
		return
	}

	res, err := h.metricsSvc.ApplyExpense(c.Request.Context(), middleware.GetEmail(c), in)
	if err != nil {
		respondDomainError(c, err, "could not record expense")
		return
	}
	respondSuccess(c, http.StatusOK, res)
}

// AddLandGrowth godoc
// POST /api/admin/land-growth
func (h *AdminHandler) AddLandGrowth(c *gin.Context) {
	var in service.GrowthInput
	if err := c.ShouldBindJSON(&in); err != nil {
		respondError(c, http.StatusBadRequest, "ERR_VALIDATION", err.Error())
		return
	}

	res, err := h.metricsSvc.ApplyLandGrowth(c.Request.Context(), middleware.GetEmail(c), in)
	if err != nil {
		respondDomainError(c, err, "could not record land appreciation")
		return
	}
	respondSuccess(c, http.StatusOK, res)
}

// AddProfit godoc
// POST /api/admin/profits
func (h *AdminHandler) AddProfit(c *gin.Context) {
	var in service.GrowthInput
	if err := c.ShouldBindJSON(&in); err != nil {
		respondError(c, http.StatusBadRequest, "ERR_VALIDATION", err.Error())
		return
	}

	res, err := h.metricsSvc.ApplyProfit(c.Request.Context(), middleware.GetEmail(c), in)
	if err != nil {
		respondDomainError(c, err, "could not record profit")
		return
	}
	respondSuccess(c, http.StatusOK, res)
}

// SetProgress godoc
// POST /api/admin/progress
func (h *AdminHandler) SetProgress(c *gin.Context) {
	var in service.ProgressInput
	if err := c.ShouldBindJSON(&in); err != nil {
		respondError(c, http.StatusBadRequest, "ERR_VALIDATION", err.Error())
		return
	}

	res, err := h.metricsSvc.SetPhaseProgress(c.Request.Context(), middleware.GetEmail(c), in)
	if err != nil {
		respondDomainError(c, err, "could not update progress")
		return
	}
	respondSuccess(c, http.StatusOK, res)
}

// ──────────────────────────────────────────────────────────────────────────────
// Fund lifecycle
// ──────────────────────────────────────────────────────────────────────────────

// CreateFund godoc
// POST /api/admin/funds
func (h *AdminHandler) CreateFund(c *gin.Context) {
	var in service.CreateFundInput
	if err := c.ShouldBindJSON(&in); err != nil {
		respondError(c, http.StatusBadRequest, "ERR_VALIDATION", err.Error())
		return
	}

	fund, err := h.fundSvc.CreateFund(c.Request.Context(), middleware.GetEmail(c), in)
	if err != nil {
		respondDomainError(c, err, "could not create fund")
		return
	}
	respondSuccess(c, http.StatusCreated, fund)
}

// CreateManager godoc
// POST /api/admin/managers
func (h *AdminHandler) CreateManager(c *gin.Context) {
	var in service.CreateManagerInput
	if err := c.ShouldBindJSON(&in); err != nil {
		respondError(c, http.StatusBadRequest, "ERR_VALIDATION", err.Error())
		return
	}

	manager, err := h.fundSvc.CreateManager(c.Request.Context(), middleware.GetEmail(c), in)
	if err != nil {
		respondDomainError(c, err, "could not create manager")
		return
	}
	respondSuccess(c, http.StatusCreated, manager)
}

// UpdateDates godoc
// PUT /api/admin/funds/:id/dates
func (h *AdminHandler) UpdateDates(c *gin.Context) {
	fundID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		respondError(c, http.StatusBadRequest, "ERR_INVALID_ID", "invalid fund id")
		return
	}
	var dates domain.FundDates
	if err := c.ShouldBindJSON(&dates); err != nil {
		respondError(c, http.StatusBadRequest, "ERR_VALIDATION", err.Error())
		return
	}

	if err := h.fundSvc.UpdateFundDates(c.Request.Context(), middleware.GetEmail(c), fundID, dates); err != nil {
		respondDomainError(c, err, "could not update dates")
		return
	}
	respondSuccess(c, http.StatusOK, gin.H{"fund_id": fundID})
}

// UpdateRoadmap godoc
// PUT /api/admin/funds/:id/roadmap
func (h *AdminHandler) UpdateRoadmap(c *gin.Context) {
	fundID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		respondError(c, http.StatusBadRequest, "ERR_INVALID_ID", "invalid fund id")
		return
	}
	var req struct {
		Roadmap domain.Roadmap `json:"roadmap" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, http.StatusBadRequest, "ERR_VALIDATION", err.Error())
		return
	}

	if err := h.fundSvc.UpdateRoadmap(c.Request.Context(), middleware.GetEmail(c), fundID, req.Roadmap); err != nil {
		respondDomainError(c, err, "could not update roadmap")
		return
	}
	respondSuccess(c, http.StatusOK, gin.H{"fund_id": fundID})
}

// UpdateARR godoc
// PUT /api/admin/funds/:id/arr
func (h *AdminHandler) UpdateARR(c *gin.Context) {
	fundID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		respondError(c, http.StatusBadRequest, "ERR_INVALID_ID", "invalid fund id")
		return
	}
	var req struct {
		Updates []service.ARRUpdate `json:"updates" binding:"required,min=1"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, http.StatusBadRequest, "ERR_VALIDATION", err.Error())
		return
	}

	if err := h.fundSvc.UpdateARRBulk(c.Request.Context(), middleware.GetEmail(c), fundID, req.Updates); err != nil {
		respondDomainError(c, err, "could not update growth timeline")
		return
	}
	respondSuccess(c, http.StatusOK, gin.H{"fund_id": fundID, "updated": len(req.Updates)})
}

// ──────────────────────────────────────────────────────────────────────────────
// Reports
// ──────────────────────────────────────────────────────────────────────────────

// ExpenseReport godoc
// GET /api/admin/funds/:id/expense-report
func (h *AdminHandler) ExpenseReport(c *gin.Context) {
	fundID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		respondError(c, http.StatusBadRequest, "ERR_INVALID_ID", "invalid fund id")
		return
	}

	report, err := h.fundSvc.BuildExpenseReport(c.Request.Context(), fundID)
	if err != nil {
		respondDomainError(c, err, "could not build expense report")
		return
	}
	respondSuccess(c, http.StatusOK, report)
}
