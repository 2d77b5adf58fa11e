package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/vriksha/farmfund/internal/api/middleware"
	"github.com/vriksha/farmfund/internal/service"
)

// PortfolioHandler serves the investor portfolio view.
type PortfolioHandler struct {
	portfolioSvc *service.PortfolioService
}

// NewPortfolioHandler creates a PortfolioHandler.
func NewPortfolioHandler(portfolioSvc *service.PortfolioService) *PortfolioHandler {
	return &PortfolioHandler{portfolioSvc: portfolioSvc}
}

// GetPortfolio godoc
// GET /api/portfolio
func (h *PortfolioHandler) GetPortfolio(c *gin.Context) {
	portfolio, err := h.portfolioSvc.GetPortfolio(c.Request.Context(), middleware.GetEmail(c))
	if err != nil {
		respondError(c, http.StatusInternalServerError, "ERR_INTERNAL", "could not build portfolio")
		return
	}
	respondSuccess(c, http.StatusOK, portfolio)
}
