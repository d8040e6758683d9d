package models

import "time"

// User is the subset of the account record this service owns writes for.
// All other profile fields belong to the bot process.
type User struct {
	UserID        int64     `json:"user_id" db:"user_id"`
	WalletAddress *string   `json:"wallet_address,omitempty" db:"wallet_address"`
	IsVerified    bool      `json:"is_verified" db:"is_verified"`
	CreatedAt     time.Time `json:"created_at" db:"created_at"`
	UpdatedAt     time.Time `json:"updated_at" db:"updated_at"`
}

// UserStats counts users by verification state.
type UserStats struct {
	Verified      int64 `json:"verified"`
	Unverified    int64 `json:"unverified"`
	UniqueWallets int64 `json:"unique_wallets"`
}
