package database

import (
	"context"
	"fmt"
)

// The partial unique index on pending rows is what backs the one-pending-
// token-per-user invariant; Create relies on the resulting 23505 error.
var schemaStatements = []string{
	`CREATE TABLE IF NOT EXISTS users (
		user_id BIGINT PRIMARY KEY,
		wallet_address TEXT,
		is_verified BOOLEAN NOT NULL DEFAULT FALSE,
		created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
		updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
	)`,
	`CREATE UNIQUE INDEX IF NOT EXISTS users_wallet_address_key
		ON users (wallet_address) WHERE wallet_address IS NOT NULL`,
	`CREATE TABLE IF NOT EXISTS verification_tokens (
		token_id UUID PRIMARY KEY,
		user_id BIGINT NOT NULL REFERENCES users(user_id),
		status TEXT NOT NULL DEFAULT 'pending',
		wallet_address TEXT,
		client_ip TEXT,
		issued_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
		expires_at TIMESTAMPTZ NOT NULL,
		completed_at TIMESTAMPTZ
	)`,
	`CREATE UNIQUE INDEX IF NOT EXISTS verification_tokens_pending_user
		ON verification_tokens (user_id) WHERE status = 'pending'`,
	`CREATE INDEX IF NOT EXISTS verification_tokens_status_expires
		ON verification_tokens (status, expires_at)`,
}

// Bootstrap creates the schema if it does not exist. Every statement is
// idempotent, so repeated startups are safe.
func Bootstrap(ctx context.Context, db DBPool) error {
	for _, stmt := range schemaStatements {
		if _, err := db.Exec(ctx, stmt); err != nil {
			return fmt.Errorf("failed to bootstrap schema: %w", err)
		}
	}
	return nil
}
