package models

import "time"

// TokenStatus is the lifecycle state of a verification token.
// pending is the only non-terminal status.
type TokenStatus string

const (
	TokenStatusPending TokenStatus = "pending"
	TokenStatusSuccess TokenStatus = "success"
	TokenStatusFailed  TokenStatus = "failed"
	TokenStatusExpired TokenStatus = "expired"
)

// TokenTTL is the fixed lifetime of a verification challenge.
const TokenTTL = 10 * time.Minute

// VerificationToken is one wallet-ownership challenge issued to a user.
type VerificationToken struct {
	TokenID       string      `json:"token_id" db:"token_id"`
	UserID        int64       `json:"user_id" db:"user_id"`
	Status        TokenStatus `json:"status" db:"status"`
	WalletAddress *string     `json:"wallet_address,omitempty" db:"wallet_address"`
	ClientIP      *string     `json:"-" db:"client_ip"`
	IssuedAt      time.Time   `json:"issued_at" db:"issued_at"`
	ExpiresAt     time.Time   `json:"expires_at" db:"expires_at"`
	CompletedAt   *time.Time  `json:"completed_at,omitempty" db:"completed_at"`
}

// IsExpired reports whether the token's TTL has elapsed at the given time.
func (t *VerificationToken) IsExpired(now time.Time) bool {
	return !now.Before(t.ExpiresAt)
}

// TokenStats counts recently issued tokens by status.
type TokenStats struct {
	Pending   int64 `json:"pending"`
	Completed int64 `json:"completed"`
	Failed    int64 `json:"failed"`
	Expired   int64 `json:"expired"`
}
