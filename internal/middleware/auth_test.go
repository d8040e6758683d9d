package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
)

func keyAuthRouter(mw gin.HandlerFunc) *gin.Engine {
	gin.SetMode(gin.TestMode)
	router := gin.New()
	router.GET("/protected", mw, func(c *gin.Context) {
		c.Status(http.StatusOK)
	})
	return router
}

func TestInternalAuth(t *testing.T) {
	router := keyAuthRouter(InternalAuth("bot-secret"))

	tests := []struct {
		name     string
		token    string
		wantCode int
	}{
		{"valid key", "bot-secret", http.StatusOK},
		{"wrong key", "wrong", http.StatusUnauthorized},
		{"missing header", "", http.StatusUnauthorized},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := httptest.NewRecorder()
			req := httptest.NewRequest(http.MethodGet, "/protected", nil)
			if tt.token != "" {
				req.Header.Set("X-Internal-Token", tt.token)
			}
			router.ServeHTTP(w, req)
			assert.Equal(t, tt.wantCode, w.Code)
		})
	}
}

func TestAdminAuth_UsesAdminHeader(t *testing.T) {
	router := keyAuthRouter(AdminAuth("admin-secret"))

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/protected", nil)
	req.Header.Set("X-Admin-Token", "admin-secret")
	router.ServeHTTP(w, req)
	assert.Equal(t, http.StatusOK, w.Code)
}

func TestKeyAuth_EmptyConfiguredKeyRejectsEverything(t *testing.T) {
	router := keyAuthRouter(InternalAuth(""))

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/protected", nil)
	req.Header.Set("X-Internal-Token", "")
	router.ServeHTTP(w, req)
	assert.Equal(t, http.StatusUnauthorized, w.Code)
}
