package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/spidey000/sendit-discord-wallet-verif/internal/models"
)

type fakeStatsSource struct {
	users     *models.UserStats
	tokens    *models.TokenStats
	usersErr  error
	tokensErr error

	cutoff time.Time
}

func (f *fakeStatsSource) Stats(ctx context.Context) (*models.UserStats, error) {
	return f.users, f.usersErr
}

func (f *fakeStatsSource) StatsSince(ctx context.Context, cutoff time.Time) (*models.TokenStats, error) {
	f.cutoff = cutoff
	return f.tokens, f.tokensErr
}

func statsRouter(source *fakeStatsSource) *gin.Engine {
	gin.SetMode(gin.TestMode)
	router := gin.New()
	router.GET("/api/stats", NewStatsHandler(source, source).Stats)
	return router
}

func TestStatsHandler_Success(t *testing.T) {
	source := &fakeStatsSource{
		users:  &models.UserStats{Verified: 7, Unverified: 3, UniqueWallets: 7},
		tokens: &models.TokenStats{Pending: 2, Completed: 10, Failed: 1, Expired: 3},
	}
	router := statsRouter(source)

	w := httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/stats", nil))

	assert.Equal(t, http.StatusOK, w.Code)

	var resp models.StatsResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, "success", resp.Status)
	assert.Equal(t, int64(7), resp.Users.Verified)
	assert.Equal(t, int64(10), resp.Tokens24h.Completed)

	// Token counters cover the last 24 hours.
	assert.WithinDuration(t, time.Now().Add(-24*time.Hour), source.cutoff, time.Minute)
}

func TestStatsHandler_StoreFailure(t *testing.T) {
	source := &fakeStatsSource{usersErr: errors.New("connection refused")}
	router := statsRouter(source)

	w := httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/stats", nil))

	assert.Equal(t, http.StatusInternalServerError, w.Code)
	assert.Contains(t, w.Body.String(), "Failed to fetch verification statistics")
}
