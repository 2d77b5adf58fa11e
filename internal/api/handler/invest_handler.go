package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/vriksha/farmfund/internal/api/middleware"
	"github.com/vriksha/farmfund/internal/service"
)

// InvestHandler serves the unit purchase endpoint.
type InvestHandler struct {
	investSvc *service.InvestService
}

// NewInvestHandler creates an InvestHandler.
func NewInvestHandler(investSvc *service.InvestService) *InvestHandler {
	return &InvestHandler{investSvc: investSvc}
}

// Invest godoc
// POST /api/invest
//
// The investor identity comes from the access token; a purchase can never be
// recorded on behalf of someone else.
func (h *InvestHandler) Invest(c *gin.Context) {
	var in service.InvestInput
	if err := c.ShouldBindJSON(&in); err != nil {
		respondError(c, http.StatusBadRequest, "ERR_VALIDATION", err.Error())
		return
	}

	res, err := h.investSvc.RecordInvestment(c.Request.Context(), middleware.GetEmail(c), in)
	if err != nil {
		respondDomainError(c, err, "could not record investment")
		return
	}
	respondSuccess(c, http.StatusCreated, res)
}
