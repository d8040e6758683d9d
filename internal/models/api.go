package models

import "time"

// ConfirmRequest is the proof submission body posted by the wallet frontend.
type ConfirmRequest struct {
	JWT       string `json:"jwt" binding:"required"`
	Wallet    string `json:"wallet" binding:"required"`
	Signature string `json:"signature" binding:"required"`
}

// IssueRequest asks for a new verification challenge for a user.
type IssueRequest struct {
	UserID int64 `json:"user_id" binding:"required"`
}

// IssueResponse carries the minted challenge back to the bot process.
type IssueResponse struct {
	Status    string    `json:"status"`
	TokenID   string    `json:"token_id"`
	JWT       string    `json:"jwt"`
	VerifyURL string    `json:"verify_url"`
	ExpiresAt time.Time `json:"expires_at"`
}

// APIResponse is the uniform envelope for every non-payload response.
type APIResponse struct {
	Status    string    `json:"status"`
	Message   string    `json:"message"`
	Timestamp time.Time `json:"timestamp"`
}

// HealthResponse is returned by the health endpoint when the store is reachable.
type HealthResponse struct {
	Status    string    `json:"status"`
	Service   string    `json:"service"`
	Timestamp time.Time `json:"timestamp"`
}

// StatsResponse aggregates verification counters for the admin endpoint.
type StatsResponse struct {
	Status    string     `json:"status"`
	Users     UserStats  `json:"users"`
	Tokens24h TokenStats `json:"tokens_24h"`
	Timestamp time.Time  `json:"timestamp"`
}
