package handlers

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/spidey000/sendit-discord-wallet-verif/internal/models"
)

// UserStatsSource counts users by verification state.
type UserStatsSource interface {
	Stats(ctx context.Context) (*models.UserStats, error)
}

// TokenStatsSource counts recently issued tokens by status.
type TokenStatsSource interface {
	StatsSince(ctx context.Context, cutoff time.Time) (*models.TokenStats, error)
}

// StatsHandler serves the admin verification-statistics endpoint.
type StatsHandler struct {
	users  UserStatsSource
	tokens TokenStatsSource
}

func NewStatsHandler(users UserStatsSource, tokens TokenStatsSource) *StatsHandler {
	return &StatsHandler{users: users, tokens: tokens}
}

// Stats handles GET /api/stats.
func (h *StatsHandler) Stats(c *gin.Context) {
	ctx := c.Request.Context()

	userStats, err := h.users.Stats(ctx)
	if err != nil {
		errorResponse(c, http.StatusInternalServerError, "Failed to fetch verification statistics.")
		return
	}

	tokenStats, err := h.tokens.StatsSince(ctx, time.Now().Add(-24*time.Hour))
	if err != nil {
		errorResponse(c, http.StatusInternalServerError, "Failed to fetch verification statistics.")
		return
	}

	c.JSON(http.StatusOK, models.StatsResponse{
		Status:    "success",
		Users:     *userStats,
		Tokens24h: *tokenStats,
		Timestamp: time.Now().UTC(),
	})
}
