package models

import "time"

// Payout statuses.
const (
	PayoutPending    = "pending"
	PayoutProcessing = "processing"
	PayoutCompleted  = "completed"
	PayoutFailed     = "failed"
)

// Payout represents one payout request and its settlement state.
type Payout struct {
	ID        string    `json:"id"`
	UserID    string    `json:"-"`
	Amount    float64   `json:"amount"`
	NetAmount float64   `json:"netAmount"`
	Status    string    `json:"status"`
	Error     string    `json:"error,omitempty"`
	CreatedAt time.Time `json:"createdAt"`
}

// Referral represents one credited referral for a user.
type Referral struct {
	ID        string    `json:"id"`
	UserID    string    `json:"-"`
	Earned    float64   `json:"earned"`
	CreatedAt time.Time `json:"createdAt"`
}
