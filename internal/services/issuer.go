package services

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	"github.com/spidey000/sendit-discord-wallet-verif/internal/database"
	"github.com/spidey000/sendit-discord-wallet-verif/internal/models"
)

// ErrInvalidToken means the bearer JWT is malformed, expired, or signed
// with the wrong key.
var ErrInvalidToken = errors.New("invalid or expired bearer token")

// BearerClaims are the claims carried by the bearer JWT handed to the user.
// TokenID references the verification token row the claims were minted for.
type BearerClaims struct {
	UserID  int64  `json:"user_id"`
	TokenID string `json:"token_id"`
	jwt.RegisteredClaims
}

// IssuedToken is the result of a successful Issue call.
type IssuedToken struct {
	Token     *models.VerificationToken
	JWT       string
	VerifyURL string
}

// TokenIssuer creates verification challenges and mints their bearer JWTs.
type TokenIssuer struct {
	store   *database.TokenStore
	secret  []byte
	baseURL string
	ttl     time.Duration

	now func() time.Time
}

// NewTokenIssuer creates a TokenIssuer.
//
// Parameters:
//
//	store: Token persistence.
//	secret: HS256 signing key for bearer tokens (>=32 bytes, enforced by config).
//	baseURL: Public frontend base URL for verification links.
//	ttl: Challenge lifetime.
func NewTokenIssuer(store *database.TokenStore, secret []byte, baseURL string, ttl time.Duration) *TokenIssuer {
	return &TokenIssuer{
		store:   store,
		secret:  secret,
		baseURL: baseURL,
		ttl:     ttl,
		now:     time.Now,
	}
}

// Issue returns the user's pending challenge, creating one if none exists.
// Calling Issue twice before the first token resolves yields the same
// token_id both times, so button-mashing never piles up challenges.
func (i *TokenIssuer) Issue(ctx context.Context, userID int64) (*IssuedToken, error) {
	if pending, err := i.store.GetPending(ctx, userID); err == nil {
		return i.issued(pending)
	} else if !errors.Is(err, database.ErrTokenNotFound) {
		return nil, fmt.Errorf("failed to look up pending token: %w", err)
	}

	now := i.now().UTC()
	token := &models.VerificationToken{
		TokenID:   uuid.New().String(),
		UserID:    userID,
		Status:    models.TokenStatusPending,
		IssuedAt:  now,
		ExpiresAt: now.Add(i.ttl),
	}

	err := i.store.Create(ctx, token)
	if errors.Is(err, database.ErrPendingExists) {
		// Lost a race with a concurrent Issue for the same user; return the
		// winner's token.
		pending, getErr := i.store.GetPending(ctx, userID)
		if getErr != nil {
			return nil, fmt.Errorf("failed to load concurrently created token: %w", getErr)
		}
		return i.issued(pending)
	}
	if err != nil {
		return nil, err
	}

	return i.issued(token)
}

func (i *TokenIssuer) issued(token *models.VerificationToken) (*IssuedToken, error) {
	bearer, err := i.MintBearer(token)
	if err != nil {
		return nil, err
	}
	return &IssuedToken{
		Token:     token,
		JWT:       bearer,
		VerifyURL: fmt.Sprintf("%s/verify/%s", i.baseURL, bearer),
	}, nil
}

// MintBearer signs a bearer JWT for a verification token. The JWT's exp
// matches the token row's expiry so both lifetimes agree.
func (i *TokenIssuer) MintBearer(token *models.VerificationToken) (string, error) {
	claims := BearerClaims{
		UserID:  token.UserID,
		TokenID: token.TokenID,
		RegisteredClaims: jwt.RegisteredClaims{
			IssuedAt:  jwt.NewNumericDate(i.now().UTC()),
			ExpiresAt: jwt.NewNumericDate(token.ExpiresAt),
		},
	}

	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(i.secret)
	if err != nil {
		return "", fmt.Errorf("failed to sign bearer token: %w", err)
	}
	return signed, nil
}

// ParseBearer validates a bearer JWT and returns its claims. Every failure
// mode (bad signature, wrong algorithm, expired, missing claims) collapses
// to ErrInvalidToken so callers leak nothing.
func ParseBearer(secret []byte, tokenString string) (*BearerClaims, error) {
	var claims BearerClaims
	token, err := jwt.ParseWithClaims(tokenString, &claims, func(t *jwt.Token) (any, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", t.Header["alg"])
		}
		return secret, nil
	})
	if err != nil || !token.Valid {
		return nil, ErrInvalidToken
	}
	if claims.UserID == 0 || claims.TokenID == "" {
		return nil, ErrInvalidToken
	}
	return &claims, nil
}
