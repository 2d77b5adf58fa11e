package api

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/vriksha/farmfund/internal/api/handler"
	"github.com/vriksha/farmfund/internal/api/middleware"
	"github.com/vriksha/farmfund/internal/config"
	"github.com/vriksha/farmfund/internal/service"
	"github.com/vriksha/farmfund/internal/ws"
)

// RouterDeps bundles every dependency needed to build the router.
// Populated once in main() and passed to SetupRouter.
type RouterDeps struct {
	AuthSvc      *service.AuthService
	MetricsSvc   *service.MetricsService
	HistorySvc   *service.HistoryService
	FundSvc      *service.FundService
	InvestSvc    *service.InvestService
	PortfolioSvc *service.PortfolioService
	Hub          *ws.Hub
	Cfg          *config.Config
}

// SetupRouter creates and configures the main Gin engine with all routes,
// middleware, CORS, and rate limiting rules.
func SetupRouter(deps RouterDeps) *gin.Engine {
	if deps.Cfg.IsProd() {
		gin.SetMode(gin.ReleaseMode)
	}

	r := gin.New()
	r.Use(gin.Logger())
	r.Use(gin.Recovery())

	// ── CORS ─────────────────────────────────────────────────────────────────
	r.Use(corsMiddleware(deps.Cfg))

	// ── Request deadline ─────────────────────────────────────────────────────
	r.Use(middleware.TimeoutMiddleware(deps.Cfg.Server.RequestTimeout))

	// ── Health check ─────────────────────────────────────────────────────────
	r.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	// ── Handlers ─────────────────────────────────────────────────────────────
	authH := handler.NewAuthHandler(deps.AuthSvc)
	dashH := handler.NewDashboardHandler(deps.MetricsSvc, deps.HistorySvc, deps.FundSvc, deps.Cfg)
	adminH := handler.NewAdminHandler(deps.MetricsSvc, deps.FundSvc)
	investH := handler.NewInvestHandler(deps.InvestSvc)
	portfolioH := handler.NewPortfolioHandler(deps.PortfolioSvc)

	// ── JWT middleware (shared) ───────────────────────────────────────────────
	jwtMW := middleware.JWTMiddleware(deps.AuthSvc)

	// ── Rate limiters ─────────────────────────────────────────────────────────
	authRL := middleware.RateLimitMiddleware(10)  // 10 req/s per IP for auth endpoints
	writeRL := middleware.RateLimitMiddleware(30) // 30 req/s per IP for mutations

	api := r.Group("/api")
	{
		// ── Auth (public, strict rate limit) ─────────────────────────────────
		auth := api.Group("/auth")
		auth.Use(authRL)
		{
			auth.POST("/signup", authH.Signup)
			auth.POST("/login", authH.Login)
			auth.POST("/refresh", authH.Refresh)
		}

		// ── Dashboard and funds (public) ─────────────────────────────────────
		dashboard := api.Group("/dashboard")
		{
			dashboard.GET("/metrics", dashH.GetMetrics)
			dashboard.GET("/allocation", dashH.GetAllocation)
			dashboard.GET("/growth-history", dashH.GetGrowthHistory)
			dashboard.GET("/growth-history/:fund", dashH.GetGrowthHistory)
			dashboard.GET("/activities", dashH.GetActivities)
		}
		funds := api.Group("/funds")
		{
			funds.GET("", dashH.ListFunds)
			funds.GET("/:id", dashH.GetFund)
			funds.GET("/:id/arr", dashH.GetARR)
		}

		// ── Authenticated routes ──────────────────────────────────────────────
		authed := api.Group("")
		authed.Use(jwtMW)
		{
			// Profile
			authed.GET("/me", authH.Me)
			authed.PATCH("/me", authH.UpdateMe)
			authed.POST("/verify/kyc", authH.SubmitKYC)

			// Portfolio
			authed.GET("/portfolio", portfolioH.GetPortfolio)

			// Investing
			invest := authed.Group("/invest")
			invest.Use(writeRL)
			{
				invest.POST("", investH.Invest)
			}

			// Administration — the role gate keeps investors out; per-fund
			// authorization lives in the services so a manager only reaches
			// their own fund.
			admin := authed.Group("/admin")
			admin.Use(writeRL)
			admin.Use(middleware.RoleMiddleware("admin", "fund_manager"))
			{
				admin.POST("/expenses", adminH.AddExpense)
				admin.POST("/land-growth", adminH.AddLandGrowth)
				admin.POST("/profits", adminH.AddProfit)
				admin.POST("/progress", adminH.SetProgress)
				admin.POST("/funds", adminH.CreateFund)
				admin.POST("/managers", adminH.CreateManager)
				admin.PUT("/funds/:id/dates", adminH.UpdateDates)
				admin.PUT("/funds/:id/roadmap", adminH.UpdateRoadmap)
				admin.PUT("/funds/:id/arr", adminH.UpdateARR)
				admin.GET("/funds/:id/expense-report", adminH.ExpenseReport)
			}
		}
	}

	// ── WebSocket ─────────────────────────────────────────────────────────────
	if deps.Hub != nil {
		r.GET("/ws", func(c *gin.Context) {
			deps.Hub.ServeWs(c.Writer, c.Request)
		})
	}

	return r
}

// ── CORS helper ───────────────────────────────────────────────────────────────

// corsMiddleware returns a gin middleware that sets appropriate CORS headers.
// In development all origins are allowed; in production only configured origins.
func corsMiddleware(cfg *config.Config) gin.HandlerFunc {
	return func(c *gin.Context) {
		origin := c.Request.Header.Get("Origin")

		if !cfg.IsProd() {
			// Development: allow any origin
			c.Header("Access-Control-Allow-Origin", "*")
		} else if origin != "" {
			allowed := map[string]bool{
				"https://farmfund.in":     true,
				"https://www.farmfund.in": true,
			}
			if allowed[origin] {
				c.Header("Access-Control-Allow-Origin", origin)
			}
		}

		c.Header("Access-Control-Allow-Methods", "GET, POST, PUT, PATCH, DELETE, OPTIONS")
		c.Header("Access-Control-Allow-Headers", "Authorization, Content-Type, X-Request-ID")
		c.Header("Access-Control-Max-Age", "86400")

		if c.Request.Method == http.MethodOptions {
			c.AbortWithStatus(http.StatusNoContent)
			return
		}
		c.Next()
	}
}
