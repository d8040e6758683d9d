package handlers

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
)

type fakeHealthChecker struct {
	err error
}

func (f *fakeHealthChecker) HealthCheck(ctx context.Context) error {
	return f.err
}

func healthRouter(checker *fakeHealthChecker) *gin.Engine {
	gin.SetMode(gin.TestMode)
	router := gin.New()
	router.GET("/api/health", NewHealthHandler(checker).Health)
	return router
}

func TestHealthHandler_Healthy(t *testing.T) {
	router := healthRouter(&fakeHealthChecker{})

	w := httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/health", nil))

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"healthy"`)
	assert.Contains(t, w.Body.String(), "wallet-verifier")
}

func TestHealthHandler_StoreDown(t *testing.T) {
	router := healthRouter(&fakeHealthChecker{err: errors.New("dial tcp: connection refused")})

	w := httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/health", nil))

	assert.Equal(t, http.StatusServiceUnavailable, w.Code)
	assert.Contains(t, w.Body.String(), "store unreachable")
}
