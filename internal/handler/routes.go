package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/GTDGit/muni_commerce/internal/middleware"
	"github.com/GTDGit/muni_commerce/internal/models"
	"github.com/GTDGit/muni_commerce/internal/service"
)

// Handlers groups the HTTP handlers.
type Handlers struct {
	Public  *PublicHandler
	Admin   *AdminHandler
	Health  *HealthHandler
	Metrics http.Handler
}

// Middlewares groups the route-level middleware.
type Middlewares struct {
	Gate      *middleware.FeatureGate
	RateLimit *middleware.RateLimiter
	Guard     *middleware.AdminGuard
}

// SetupRoutes registers every route on router.
func SetupRoutes(router *gin.Engine, h *Handlers, mw *Middlewares) {
	router.GET("/health", h.Health.GetHealth)
	if h.Metrics != nil {
		router.GET("/metrics", gin.WrapH(h.Metrics))
	}

	// Public pages
	router.GET("/", h.Public.Presentation)
	router.GET("/presentation", h.Public.Presentation)
	router.GET("/home", h.Public.Home)
	router.GET("/accueil", h.Public.Home)

	commerce := mw.Gate.Require(models.FlagCommerce)
	router.GET("/commerce", commerce, h.Public.Commerce)
	router.GET("/section/:name", commerce, h.Public.Section)

	investissement := mw.Gate.Require(models.FlagInvestissement)
	router.GET("/investissement", investissement, h.Public.InvestmentForm)
	router.POST("/investissement", investissement, mw.RateLimit.Limit(service.EndpointInvestissement), h.Public.SubmitInvestment)

	recrutement := mw.Gate.Require(models.FlagRecrutement)
	router.GET("/recrutement", recrutement, h.Public.RecruitmentForm)
	router.POST("/recrutement", recrutement, mw.RateLimit.Limit(service.EndpointRecrutement), h.Public.SubmitApplication)

	// Admin
	router.GET("/admin", h.Admin.LoginPage)
	router.POST("/admin", mw.RateLimit.Limit(service.EndpointAdminLogin), h.Admin.Login)

	panel := router.Group("/admin", mw.Guard.Require())
	for _, path := range []string{"/dashboard", "/panel"} {
		panel.GET(path, h.Admin.Dashboard)
		panel.POST(path, h.Admin.DashboardAction)
	}
	panel.GET("/logout", h.Admin.Logout)

	router.NoRoute(h.Public.NotFound)
}
