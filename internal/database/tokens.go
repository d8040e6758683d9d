package database

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"github.com/spidey000/sendit-discord-wallet-verif/internal/models"
)

var (
	// ErrPendingExists means the user already has a pending challenge.
	ErrPendingExists = errors.New("a pending verification token already exists for this user")
	// ErrTokenNotFound means no token row matches the given id.
	ErrTokenNotFound = errors.New("verification token not found")
	// ErrStaleState means a transition's expected status no longer matches;
	// some other submission consumed the token first.
	ErrStaleState = errors.New("verification token is not in the expected state")
)

const uniqueViolationCode = "23505"

// TokenStore persists verification tokens. All status mutation goes through
// Transition; no other code path writes status.
type TokenStore struct {
	db DBPool
}

func NewTokenStore(db DBPool) *TokenStore {
	return &TokenStore{db: db}
}

// Create inserts a fresh pending token. Returns ErrPendingExists when the
// partial unique index rejects a second pending row for the same user.
func (s *TokenStore) Create(ctx context.Context, token *models.VerificationToken) error {
	query := `
		INSERT INTO verification_tokens (token_id, user_id, status, issued_at, expires_at)
		VALUES ($1, $2, $3, $4, $5)`

	_, err := s.db.Exec(ctx, query,
		token.TokenID,
		token.UserID,
		token.Status,
		token.IssuedAt,
		token.ExpiresAt,
	)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == uniqueViolationCode {
			return ErrPendingExists
		}
		return fmt.Errorf("failed to create verification token: %w", err)
	}
	return nil
}

// Get loads a token by id.
func (s *TokenStore) Get(ctx context.Context, tokenID string) (*models.VerificationToken, error) {
	query := `
		SELECT token_id, user_id, status, wallet_address, client_ip, issued_at, expires_at, completed_at
		FROM verification_tokens
		WHERE token_id = $1`

	return s.scanToken(s.db.QueryRow(ctx, query, tokenID))
}

// GetPending returns the user's pending token, or ErrTokenNotFound.
func (s *TokenStore) GetPending(ctx context.Context, userID int64) (*models.VerificationToken, error) {
	query := `
		SELECT token_id, user_id, status, wallet_address, client_ip, issued_at, expires_at, completed_at
		FROM verification_tokens
		WHERE user_id = $1 AND status = $2`

	return s.scanToken(s.db.QueryRow(ctx, query, userID, models.TokenStatusPending))
}

// Transition atomically moves a token from expected to next, recording the
// wallet and client IP when provided. The status predicate in the WHERE
// clause is the compare-and-set: of N racing submissions at most one sees a
// row to update, the rest get ErrStaleState.
func (s *TokenStore) Transition(ctx context.Context, tokenID string, expected, next models.TokenStatus, wallet, clientIP *string) error {
	return transitionExec(ctx, s.db, tokenID, expected, next, wallet, clientIP)
}

func transitionExec(ctx context.Context, db Executor, tokenID string, expected, next models.TokenStatus, wallet, clientIP *string) error {
	query := `
		UPDATE verification_tokens
		SET status = $3,
		    wallet_address = COALESCE($4, wallet_address),
		    client_ip = COALESCE($5, client_ip),
		    completed_at = NOW()
		WHERE token_id = $1 AND status = $2`

	result, err := db.Exec(ctx, query, tokenID, expected, next, wallet, clientIP)
	if err != nil {
		return fmt.Errorf("failed to transition verification token: %w", err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to read transition result: %w", err)
	}
	if rows == 0 {
		return ErrStaleState
	}
	return nil
}

// ConsumeAndLink flips a pending token to success and records the wallet on
// the user row in one transaction: the token row and the user flag are the
// durable record of a completed verification and must never diverge, even
// across a crash between the two writes. ErrStaleState means a concurrent
// submission consumed the token first; ErrWalletTaken means the wallet
// unique index rejected the link.
func (s *TokenStore) ConsumeAndLink(ctx context.Context, tokenID string, userID int64, wallet, clientIP string) error {
	tx, err := s.db.Begin(ctx)
	if err != nil {
		return fmt.Errorf("failed to begin verification transaction: %w", err)
	}
	defer func() { _ = tx.Rollback(context.Background()) }()

	if err := transitionExec(ctx, tx, tokenID, models.TokenStatusPending, models.TokenStatusSuccess, &wallet, &clientIP); err != nil {
		return err
	}
	if err := linkWalletExec(ctx, tx, userID, wallet); err != nil {
		return err
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("failed to commit verification transaction: %w", err)
	}
	return nil
}

// ExpireStale transitions every pending token past its deadline to expired
// and returns the number of rows affected. Idempotent: a second run with no
// new pending tokens is a no-op.
func (s *TokenStore) ExpireStale(ctx context.Context, now time.Time) (int64, error) {
	query := `
		UPDATE verification_tokens
		SET status = $1, completed_at = NOW()
		WHERE status = $2 AND expires_at < $3`

	result, err := s.db.Exec(ctx, query, models.TokenStatusExpired, models.TokenStatusPending, now)
	if err != nil {
		return 0, fmt.Errorf("failed to expire stale tokens: %w", err)
	}
	return result.RowsAffected()
}

// PurgeOlderThan deletes terminal rows issued before now-age. Pending rows
// are never deleted here; ExpireStale runs first and ages them out.
func (s *TokenStore) PurgeOlderThan(ctx context.Context, now time.Time, age time.Duration) (int64, error) {
	query := `
		DELETE FROM verification_tokens
		WHERE status <> $1 AND issued_at < $2`

	result, err := s.db.Exec(ctx, query, models.TokenStatusPending, now.Add(-age))
	if err != nil {
		return 0, fmt.Errorf("failed to purge old tokens: %w", err)
	}
	return result.RowsAffected()
}

// StatsSince counts tokens issued after the cutoff, grouped by status.
func (s *TokenStore) StatsSince(ctx context.Context, cutoff time.Time) (*models.TokenStats, error) {
	query := `
		SELECT
			COUNT(*) FILTER (WHERE status = 'pending'),
			COUNT(*) FILTER (WHERE status = 'success'),
			COUNT(*) FILTER (WHERE status = 'failed'),
			COUNT(*) FILTER (WHERE status = 'expired')
		FROM verification_tokens
		WHERE issued_at > $1`

	var stats models.TokenStats
	err := s.db.QueryRow(ctx, query, cutoff).Scan(
		&stats.Pending,
		&stats.Completed,
		&stats.Failed,
		&stats.Expired,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to query token stats: %w", err)
	}
	return &stats, nil
}

func (s *TokenStore) scanToken(row Row) (*models.VerificationToken, error) {
	var token models.VerificationToken
	err := row.Scan(
		&token.TokenID,
		&token.UserID,
		&token.Status,
		&token.WalletAddress,
		&token.ClientIP,
		&token.IssuedAt,
		&token.ExpiresAt,
		&token.CompletedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrTokenNotFound
		}
		return nil, fmt.Errorf("failed to scan verification token: %w", err)
	}
	return &token, nil
}
