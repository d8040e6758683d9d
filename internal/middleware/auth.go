package middleware

import (
	"crypto/subtle"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/spidey000/sendit-discord-wallet-verif/internal/models"
)

// InternalAuth gates the bot-facing endpoints behind a shared secret header.
func InternalAuth(apiKey string) gin.HandlerFunc {
	return keyAuth("X-Internal-Token", apiKey)
}

// AdminAuth gates the stats endpoint behind the admin key header.
func AdminAuth(apiKey string) gin.HandlerFunc {
	return keyAuth("X-Admin-Token", apiKey)
}

func keyAuth(header, apiKey string) gin.HandlerFunc {
	return func(c *gin.Context) {
		provided := c.GetHeader(header)
		if apiKey == "" || subtle.ConstantTimeCompare([]byte(provided), []byte(apiKey)) != 1 {
			c.AbortWithStatusJSON(http.StatusUnauthorized, models.APIResponse{
				Status:    "error",
				Message:   "Unauthorized",
				Timestamp: time.Now().UTC(),
			})
			return
		}
		c.Next()
	}
}
