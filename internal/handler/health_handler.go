package handler

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/jmoiron/sqlx"

	"github.com/GTDGit/muni_commerce/internal/utils"
)

var startTime = time.Now()

// HealthHandler provides health endpoint.
type HealthHandler struct {
	db             *sqlx.DB
	fallbackReason string
}

// NewHealthHandler creates a new HealthHandler. fallbackReason is empty when
// the configured store is in use.
func NewHealthHandler(db *sqlx.DB, fallbackReason string) *HealthHandler {
	return &HealthHandler{db: db, fallbackReason: fallbackReason}
}

// GetHealth responds with service and store status.
func (h *HealthHandler) GetHealth(c *gin.Context) {
	ctx, cancel := context.WithTimeout(c.Request.Context(), 2*time.Second)
	defer cancel()

	store := gin.H{
		"driver":   h.db.DriverName(),
		"fallback": h.fallbackReason != "",
	}
	if h.fallbackReason != "" {
		store["fallbackReason"] = h.fallbackReason
	}

	if err := h.db.PingContext(ctx); err != nil {
		utils.Error(c, http.StatusServiceUnavailable, "STORE_UNAVAILABLE", "Store is unreachable")
		return
	}
	store["status"] = "connected"

	utils.Success(c, http.StatusOK, "Service is healthy", gin.H{
		"status":  "healthy",
		"version": "1.0.0",
		"uptime":  int(time.Since(startTime).Seconds()),
		"store":   store,
	})
}
