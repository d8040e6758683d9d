package database

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"github.com/spidey000/sendit-discord-wallet-verif/internal/models"
)

var (
	// ErrUserNotFound means no user row matches the given id or wallet.
	ErrUserNotFound = errors.New("user not found")
	// ErrWalletTaken means the wallet is already linked to a different user.
	ErrWalletTaken = errors.New("wallet address is already linked to another user")
)

// UserRepository owns the wallet_address and is_verified columns; every
// other user field belongs to the bot process.
type UserRepository struct {
	db DBPool
}

func NewUserRepository(db DBPool) *UserRepository {
	return &UserRepository{db: db}
}

// CreateOrGet inserts the user row if missing and returns it either way.
func (r *UserRepository) CreateOrGet(ctx context.Context, userID int64) (*models.User, error) {
	query := `
		INSERT INTO users (user_id)
		VALUES ($1)
		ON CONFLICT (user_id) DO UPDATE SET updated_at = NOW()
		RETURNING user_id, wallet_address, is_verified, created_at, updated_at`

	return r.scanUser(r.db.QueryRow(ctx, query, userID))
}

// Get loads a user by id.
func (r *UserRepository) Get(ctx context.Context, userID int64) (*models.User, error) {
	query := `
		SELECT user_id, wallet_address, is_verified, created_at, updated_at
		FROM users
		WHERE user_id = $1`

	return r.scanUser(r.db.QueryRow(ctx, query, userID))
}

// GetByWallet loads the user a wallet is linked to, or ErrUserNotFound.
func (r *UserRepository) GetByWallet(ctx context.Context, wallet string) (*models.User, error) {
	query := `
		SELECT user_id, wallet_address, is_verified, created_at, updated_at
		FROM users
		WHERE wallet_address = $1`

	return r.scanUser(r.db.QueryRow(ctx, query, wallet))
}

// LinkWallet records the verified wallet and flips is_verified. The unique
// wallet index turns a concurrent double-link into ErrWalletTaken.
func (r *UserRepository) LinkWallet(ctx context.Context, userID int64, wallet string) error {
	return linkWalletExec(ctx, r.db, userID, wallet)
}

func linkWalletExec(ctx context.Context, db Executor, userID int64, wallet string) error {
	query := `
		UPDATE users
		SET wallet_address = $2, is_verified = TRUE, updated_at = NOW()
		WHERE user_id = $1`

	result, err := db.Exec(ctx, query, userID, wallet)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == uniqueViolationCode {
			return ErrWalletTaken
		}
		return fmt.Errorf("failed to link wallet: %w", err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to read link result: %w", err)
	}
	if rows == 0 {
		return ErrUserNotFound
	}
	return nil
}

// Stats counts users by verification state.
func (r *UserRepository) Stats(ctx context.Context) (*models.UserStats, error) {
	query := `
		SELECT
			COUNT(*) FILTER (WHERE is_verified),
			COUNT(*) FILTER (WHERE NOT is_verified),
			COUNT(DISTINCT wallet_address) FILTER (WHERE wallet_address IS NOT NULL)
		FROM users`

	var stats models.UserStats
	err := r.db.QueryRow(ctx, query).Scan(
		&stats.Verified,
		&stats.Unverified,
		&stats.UniqueWallets,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to query user stats: %w", err)
	}
	return &stats, nil
}

func (r *UserRepository) scanUser(row Row) (*models.User, error) {
	var user models.User
	err := row.Scan(
		&user.UserID,
		&user.WalletAddress,
		&user.IsVerified,
		&user.CreatedAt,
		&user.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrUserNotFound
		}
		return nil, fmt.Errorf("failed to scan user: %w", err)
	}
	return &user, nil
}
