package services

import (
	"context"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/pashagolub/pgxmock/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/spidey000/sendit-discord-wallet-verif/internal/database"
	"github.com/spidey000/sendit-discord-wallet-verif/internal/models"
)

var testSecret = []byte("0123456789abcdef0123456789abcdef")

var tokenColumns = []string{
	"token_id", "user_id", "status", "wallet_address", "client_ip",
	"issued_at", "expires_at", "completed_at",
}

func newMockStore(t *testing.T) (*database.TokenStore, pgxmock.PgxPoolIface) {
	t.Helper()

	mockPool, err := pgxmock.NewPool()
	require.NoError(t, err)
	t.Cleanup(mockPool.Close)

	return database.NewTokenStore(database.NewMockDBPool(mockPool)), mockPool
}

func pendingTokenRow(tokenID string, userID int64, issuedAt, expiresAt time.Time) *pgxmock.Rows {
	return pgxmock.NewRows(tokenColumns).
		AddRow(tokenID, userID, models.TokenStatusPending, nil, nil, issuedAt, expiresAt, nil)
}

func TestTokenIssuer_Issue_CreatesFreshToken(t *testing.T) {
	store, mock := newMockStore(t)
	issuer := NewTokenIssuer(store, testSecret, "https://verify.example.com", models.TokenTTL)

	mock.ExpectQuery("WHERE user_id").
		WithArgs(int64(42), models.TokenStatusPending).
		WillReturnError(pgx.ErrNoRows)
	mock.ExpectExec("INSERT INTO verification_tokens").
		WithArgs(pgxmock.AnyArg(), int64(42), models.TokenStatusPending, pgxmock.AnyArg(), pgxmock.AnyArg()).
		WillReturnResult(pgxmock.NewResult("INSERT", 1))

	issued, err := issuer.Issue(context.Background(), 42)
	require.NoError(t, err)

	assert.Equal(t, models.TokenStatusPending, issued.Token.Status)
	assert.Equal(t, int64(42), issued.Token.UserID)
	assert.NotEmpty(t, issued.Token.TokenID)
	assert.WithinDuration(t, time.Now().Add(models.TokenTTL), issued.Token.ExpiresAt, 5*time.Second)
	assert.Contains(t, issued.VerifyURL, "https://verify.example.com/verify/")

	claims, err := ParseBearer(testSecret, issued.JWT)
	require.NoError(t, err)
	assert.Equal(t, int64(42), claims.UserID)
	assert.Equal(t, issued.Token.TokenID, claims.TokenID)

	require.NoError(t, mock.ExpectationsWereMet())
}

func TestTokenIssuer_Issue_ReturnsExistingPending(t *testing.T) {
	store, mock := newMockStore(t)
	issuer := NewTokenIssuer(store, testSecret, "https://verify.example.com", models.TokenTTL)

	now := time.Now().UTC()
	mock.ExpectQuery("WHERE user_id").
		WithArgs(int64(42), models.TokenStatusPending).
		WillReturnRows(pendingTokenRow("existing-token", 42, now, now.Add(5*time.Minute)))

	issued, err := issuer.Issue(context.Background(), 42)
	require.NoError(t, err)

	assert.Equal(t, "existing-token", issued.Token.TokenID)

	claims, err := ParseBearer(testSecret, issued.JWT)
	require.NoError(t, err)
	assert.Equal(t, "existing-token", claims.TokenID)

	require.NoError(t, mock.ExpectationsWereMet())
}

func TestTokenIssuer_Issue_LosesCreateRace(t *testing.T) {
	store, mock := newMockStore(t)
	issuer := NewTokenIssuer(store, testSecret, "https://verify.example.com", models.TokenTTL)

	now := time.Now().UTC()
	mock.ExpectQuery("WHERE user_id").
		WithArgs(int64(42), models.TokenStatusPending).
		WillReturnError(pgx.ErrNoRows)
	mock.ExpectExec("INSERT INTO verification_tokens").
		WithArgs(pgxmock.AnyArg(), int64(42), models.TokenStatusPending, pgxmock.AnyArg(), pgxmock.AnyArg()).
		WillReturnError(&pgconn.PgError{Code: "23505"})
	mock.ExpectQuery("WHERE user_id").
		WithArgs(int64(42), models.TokenStatusPending).
		WillReturnRows(pendingTokenRow("winner-token", 42, now, now.Add(10*time.Minute)))

	issued, err := issuer.Issue(context.Background(), 42)
	require.NoError(t, err)
	assert.Equal(t, "winner-token", issued.Token.TokenID)

	require.NoError(t, mock.ExpectationsWereMet())
}

func TestParseBearer_Expired(t *testing.T) {
	store, _ := newMockStore(t)
	issuer := NewTokenIssuer(store, testSecret, "https://verify.example.com", models.TokenTTL)

	token := &models.VerificationToken{
		TokenID:   "expired-token",
		UserID:    42,
		ExpiresAt: time.Now().Add(-time.Minute),
	}
	bearer, err := issuer.MintBearer(token)
	require.NoError(t, err)

	_, err = ParseBearer(testSecret, bearer)
	assert.ErrorIs(t, err, ErrInvalidToken)
}

func TestParseBearer_WrongSecret(t *testing.T) {
	store, _ := newMockStore(t)
	issuer := NewTokenIssuer(store, []byte("another-secret-another-secret-ab"), "https://verify.example.com", models.TokenTTL)

	token := &models.VerificationToken{
		TokenID:   "some-token",
		UserID:    42,
		ExpiresAt: time.Now().Add(10 * time.Minute),
	}
	bearer, err := issuer.MintBearer(token)
	require.NoError(t, err)

	_, err = ParseBearer(testSecret, bearer)
	assert.ErrorIs(t, err, ErrInvalidToken)
}

func TestParseBearer_MissingClaims(t *testing.T) {
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.RegisteredClaims{
		ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Minute)),
	}).SignedString(testSecret)
	require.NoError(t, err)

	_, err = ParseBearer(testSecret, signed)
	assert.ErrorIs(t, err, ErrInvalidToken)
}

func TestParseBearer_Garbage(t *testing.T) {
	_, err := ParseBearer(testSecret, "not.a.jwt")
	assert.ErrorIs(t, err, ErrInvalidToken)
}
