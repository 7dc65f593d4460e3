package middleware

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog/log"

	"github.com/GTDGit/muni_commerce/internal/metrics"
	"github.com/GTDGit/muni_commerce/internal/service"
	"github.com/GTDGit/muni_commerce/internal/utils"
	"github.com/GTDGit/muni_commerce/internal/web"
)

// FeatureGate renders the unavailable page for sections whose flag is off.
// It runs before any content read, rate limiting or form validation.
type FeatureGate struct {
	flags    *service.FeatureFlagService
	renderer *web.Renderer
	metrics  *metrics.Metrics
}

// NewFeatureGate creates a FeatureGate.
func NewFeatureGate(flags *service.FeatureFlagService, renderer *web.Renderer, m *metrics.Metrics) *FeatureGate {
	return &FeatureGate{flags: flags, renderer: renderer, metrics: m}
}

// Require lets the request through only when flag is active.
func (g *FeatureGate) Require(flag string) gin.HandlerFunc {
	return func(c *gin.Context) {
		active, err := g.flags.IsActive(c.Request.Context(), flag)
		if err != nil {
			log.Error().Err(err).Str("request_id", utils.GetRequestID(c)).Str("flag", flag).Msg("Feature flag read failed")
			g.renderer.Error(c, http.StatusInternalServerError, "Une erreur est survenue. Réessayez plus tard.")
			c.Abort()
			return
		}
		if !active {
			g.metrics.RecordSectionUnavailable(flag)
			name := service.SectionDisplayName(flag)
			g.renderer.HTML(c, http.StatusOK, "indisponible", gin.H{
				"Title":       name,
				"SectionName": name,
			})
			c.Abort()
			return
		}
		c.Next()
	}
}
