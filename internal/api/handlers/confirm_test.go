package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/spidey000/sendit-discord-wallet-verif/internal/models"
	"github.com/spidey000/sendit-discord-wallet-verif/internal/services"
)

type fakeSubmitter struct {
	err error

	bearer    string
	wallet    string
	signature string
}

func (f *fakeSubmitter) SubmitProof(ctx context.Context, bearer, wallet, signature, clientIP string) (*models.VerificationToken, error) {
	f.bearer = bearer
	f.wallet = wallet
	f.signature = signature
	if f.err != nil {
		return nil, f.err
	}
	return &models.VerificationToken{TokenID: "token-1", Status: models.TokenStatusSuccess}, nil
}

func confirmRouter(submitter *fakeSubmitter) *gin.Engine {
	gin.SetMode(gin.TestMode)
	router := gin.New()
	router.POST("/api/confirm", NewConfirmHandler(submitter).Confirm)
	return router
}

func postConfirm(t *testing.T, router *gin.Engine, body any) *httptest.ResponseRecorder {
	t.Helper()

	payload, err := json.Marshal(body)
	require.NoError(t, err)

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/api/confirm", bytes.NewReader(payload))
	req.Header.Set("Content-Type", "application/json")
	router.ServeHTTP(w, req)
	return w
}

func TestConfirmHandler_Success(t *testing.T) {
	submitter := &fakeSubmitter{}
	router := confirmRouter(submitter)

	w := postConfirm(t, router, models.ConfirmRequest{
		JWT:       "bearer-token",
		Wallet:    "wallet-address",
		Signature: "signed-challenge",
	})

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "Wallet verified successfully")
	assert.Equal(t, "bearer-token", submitter.bearer)
	assert.Equal(t, "wallet-address", submitter.wallet)
	assert.Equal(t, "signed-challenge", submitter.signature)
}

func TestConfirmHandler_MissingFields(t *testing.T) {
	router := confirmRouter(&fakeSubmitter{})

	w := postConfirm(t, router, map[string]string{"jwt": "only-a-token"})

	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Contains(t, w.Body.String(), "Token, wallet and signature are required")
}

func TestConfirmHandler_ErrorMapping(t *testing.T) {
	tests := []struct {
		name       string
		err        error
		wantStatus int
		wantBody   string
	}{
		{"invalid bearer", services.ErrInvalidToken, http.StatusUnauthorized, "Invalid or expired verification link"},
		{"not pending", services.ErrTokenNotPending, http.StatusBadRequest, "already been used or has expired"},
		{"already processed", services.ErrAlreadyProcessed, http.StatusBadRequest, "already been used or has expired"},
		{"token not found", services.ErrTokenNotFound, http.StatusBadRequest, "Verification failed"},
		{"user mismatch", services.ErrUserMismatch, http.StatusBadRequest, "Verification failed"},
		{"bad address", services.ErrInvalidAddress, http.StatusBadRequest, "Verification failed"},
		{"bad signature encoding", services.ErrInvalidSignature, http.StatusBadRequest, "Verification failed"},
		{"signature rejected", services.ErrSignatureInvalid, http.StatusBadRequest, "Verification failed"},
		{"wallet taken", services.ErrWalletTaken, http.StatusBadRequest, "Verification failed"},
		{"store down", services.ErrStoreUnavailable, http.StatusInternalServerError, "Something went wrong"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			router := confirmRouter(&fakeSubmitter{err: tt.err})

			w := postConfirm(t, router, models.ConfirmRequest{
				JWT:       "bearer-token",
				Wallet:    "wallet-address",
				Signature: "signed-challenge",
			})

			assert.Equal(t, tt.wantStatus, w.Code)
			assert.Contains(t, w.Body.String(), tt.wantBody)
		})
	}
}

func TestConfirmHandler_WrappedErrorsStillMap(t *testing.T) {
	wrapped := errors.Join(errors.New("op failed"), services.ErrAlreadyProcessed)
	router := confirmRouter(&fakeSubmitter{err: wrapped})

	w := postConfirm(t, router, models.ConfirmRequest{
		JWT:       "bearer-token",
		Wallet:    "wallet-address",
		Signature: "signed-challenge",
	})

	assert.Equal(t, http.StatusBadRequest, w.Code)
}
