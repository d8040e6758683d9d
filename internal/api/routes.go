// Package api wires the HTTP routes of the verification service.
package api

import (
	"github.com/gin-gonic/gin"

	"github.com/spidey000/sendit-discord-wallet-verif/internal/api/handlers"
	"github.com/spidey000/sendit-discord-wallet-verif/internal/config"
	"github.com/spidey000/sendit-discord-wallet-verif/internal/database"
	"github.com/spidey000/sendit-discord-wallet-verif/internal/middleware"
	"github.com/spidey000/sendit-discord-wallet-verif/internal/services"
)

// Deps carries everything SetupRoutes needs.
type Deps struct {
	Config       *config.Config
	Health       handlers.StoreHealthChecker
	Users        *database.UserRepository
	Tokens       *database.TokenStore
	Issuer       *services.TokenIssuer
	Verification *services.VerificationService
	RateLimiter  *middleware.RateLimiter
}

// SetupRoutes registers every endpoint on the router.
//
// The public confirm route sits behind CORS and the rate limiter; the
// bot-facing token route and the admin stats route sit behind their
// shared-secret headers. Health is open.
func SetupRoutes(router *gin.Engine, deps Deps) {
	healthHandler := handlers.NewHealthHandler(deps.Health)
	confirmHandler := handlers.NewConfirmHandler(deps.Verification)
	issueHandler := handlers.NewIssueHandler(deps.Users, deps.Issuer)
	statsHandler := handlers.NewStatsHandler(deps.Users, deps.Tokens)

	cors := middleware.CORS(deps.Config.Server.AllowedOrigins)

	apiGroup := router.Group("/api")
	{
		apiGroup.GET("/health", healthHandler.Health)

		confirm := apiGroup.Group("/confirm")
		confirm.Use(cors, deps.RateLimiter.Middleware())
		{
			confirm.POST("", confirmHandler.Confirm)
			confirm.OPTIONS("", func(*gin.Context) {})
		}

		internal := apiGroup.Group("/tokens")
		internal.Use(middleware.InternalAuth(deps.Config.Auth.InternalAPIKey))
		{
			internal.POST("", issueHandler.Issue)
		}

		admin := apiGroup.Group("/stats")
		admin.Use(middleware.AdminAuth(deps.Config.Auth.AdminAPIKey))
		{
			admin.GET("", statsHandler.Stats)
		}
	}
}
