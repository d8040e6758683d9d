// Package handlers implements the HTTP endpoints of the verification API.
package handlers

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/spidey000/sendit-discord-wallet-verif/internal/models"
	"github.com/spidey000/sendit-discord-wallet-verif/internal/services"
)

// ProofSubmitter is the slice of VerificationService the handler needs.
type ProofSubmitter interface {
	SubmitProof(ctx context.Context, bearer, wallet, signature, clientIP string) (*models.VerificationToken, error)
}

// ConfirmHandler serves the public proof-submission endpoint.
type ConfirmHandler struct {
	service ProofSubmitter
}

func NewConfirmHandler(service ProofSubmitter) *ConfirmHandler {
	return &ConfirmHandler{service: service}
}

// Confirm handles POST /api/confirm. Error messages stay generic so the
// endpoint cannot be used as an oracle against the signature check; only
// the already-used/expired case says so explicitly.
func (h *ConfirmHandler) Confirm(c *gin.Context) {
	var req models.ConfirmRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		errorResponse(c, http.StatusBadRequest, "Invalid request. Token, wallet and signature are required.")
		return
	}

	_, err := h.service.SubmitProof(c.Request.Context(), req.JWT, req.Wallet, req.Signature, c.ClientIP())
	if err != nil {
		h.writeError(c, err)
		return
	}

	c.JSON(http.StatusOK, models.APIResponse{
		Status:    "success",
		Message:   "Wallet verified successfully. You can now return to Discord.",
		Timestamp: time.Now().UTC(),
	})
}

func (h *ConfirmHandler) writeError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, services.ErrInvalidToken):
		errorResponse(c, http.StatusUnauthorized, "Invalid or expired verification link. Please request a new one.")
	case errors.Is(err, services.ErrTokenNotPending),
		errors.Is(err, services.ErrAlreadyProcessed):
		errorResponse(c, http.StatusBadRequest, "This verification link has already been used or has expired. Please request a new one.")
	case errors.Is(err, services.ErrTokenNotFound),
		errors.Is(err, services.ErrUserMismatch),
		errors.Is(err, services.ErrInvalidAddress),
		errors.Is(err, services.ErrInvalidSignature),
		errors.Is(err, services.ErrSignatureInvalid),
		errors.Is(err, services.ErrWalletTaken):
		errorResponse(c, http.StatusBadRequest, "Verification failed. Please request a new link and try again.")
	default:
		errorResponse(c, http.StatusInternalServerError, "Something went wrong. Please try again.")
	}
}

func errorResponse(c *gin.Context, status int, message string) {
	c.JSON(status, models.APIResponse{
		Status:    "error",
		Message:   message,
		Timestamp: time.Now().UTC(),
	})
}
