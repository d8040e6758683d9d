package handlers

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/spidey000/sendit-discord-wallet-verif/internal/models"
)

const serviceName = "wallet-verifier"

// StoreHealthChecker reports whether the token store is reachable.
type StoreHealthChecker interface {
	HealthCheck(ctx context.Context) error
}

// HealthHandler serves the unauthenticated health endpoint.
type HealthHandler struct {
	db StoreHealthChecker
}

func NewHealthHandler(db StoreHealthChecker) *HealthHandler {
	return &HealthHandler{db: db}
}

// Health handles GET /api/health.
func (h *HealthHandler) Health(c *gin.Context) {
	ctx, cancel := context.WithTimeout(c.Request.Context(), 2*time.Second)
	defer cancel()

	if err := h.db.HealthCheck(ctx); err != nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{
			"status": "unhealthy",
			"error":  "store unreachable",
		})
		return
	}

	c.JSON(http.StatusOK, models.HealthResponse{
		Status:    "healthy",
		Service:   serviceName,
		Timestamp: time.Now().UTC(),
	})
}
