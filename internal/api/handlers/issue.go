package handlers

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/spidey000/sendit-discord-wallet-verif/internal/models"
	"github.com/spidey000/sendit-discord-wallet-verif/internal/services"
)

// UserResolver resolves or creates the user row before issuance.
type UserResolver interface {
	CreateOrGet(ctx context.Context, userID int64) (*models.User, error)
}

// ChallengeIssuer is the slice of TokenIssuer the handler needs.
type ChallengeIssuer interface {
	Issue(ctx context.Context, userID int64) (*services.IssuedToken, error)
}

// IssueHandler serves the bot-facing token issuance endpoint.
type IssueHandler struct {
	users  UserResolver
	issuer ChallengeIssuer
}

func NewIssueHandler(users UserResolver, issuer ChallengeIssuer) *IssueHandler {
	return &IssueHandler{users: users, issuer: issuer}
}

// Issue handles POST /api/tokens. Repeated calls while a challenge is
// pending return the same token_id.
func (h *IssueHandler) Issue(c *gin.Context) {
	var req models.IssueRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		errorResponse(c, http.StatusBadRequest, "user_id is required")
		return
	}

	user, err := h.users.CreateOrGet(c.Request.Context(), req.UserID)
	if err != nil {
		errorResponse(c, http.StatusInternalServerError, "Something went wrong. Please try again.")
		return
	}
	if user.IsVerified {
		errorResponse(c, http.StatusConflict, "This account already has a verified wallet.")
		return
	}

	issued, err := h.issuer.Issue(c.Request.Context(), req.UserID)
	if err != nil {
		errorResponse(c, http.StatusInternalServerError, "Something went wrong. Please try again.")
		return
	}

	c.JSON(http.StatusOK, models.IssueResponse{
		Status:    "success",
		TokenID:   issued.Token.TokenID,
		JWT:       issued.JWT,
		VerifyURL: issued.VerifyURL,
		ExpiresAt: issued.Token.ExpiresAt.UTC(),
	})
}
