package banter

import (
	"context"
	"encoding/json"
	"math"
	"time"
)

// PayoutStatus is the lifecycle state of a payout request.
type PayoutStatus string

const (
	PayoutPending    PayoutStatus = "pending"
	PayoutProcessing PayoutStatus = "processing"
	PayoutCompleted  PayoutStatus = "completed"
	PayoutFailed     PayoutStatus = "failed"
)

// ReferralStats is the referral-earnings summary for the dashboard.
type ReferralStats struct {
	TotalReferrals   int     `json:"totalReferrals"`
	TotalEarned      float64 `json:"totalEarned"`
	AvailableBalance float64 `json:"availableBalance"`
}

// Payout is one payout request and its settlement state.
type Payout struct {
	ID        string       `json:"id"`
	Amount    float64      `json:"amount"`
	NetAmount float64      `json:"netAmount"`
	Status    PayoutStatus `json:"status"`
	Error     string       `json:"error,omitempty"`
	CreatedAt time.Time    `json:"createdAt"`
}

// ConnectStatus describes the caller's payment-processor onboarding state.
type ConnectStatus struct {
	Connected      bool   `json:"connected"`
	PayoutsEnabled bool   `json:"payoutsEnabled"`
	OnboardingURL  string `json:"onboardingUrl,omitempty"`
}

// GetReferralStats fetches the referral-earnings summary.
func (c *Client) GetReferralStats(ctx context.Context) (*ReferralStats, error) {
	respBody, err := c.doRequest(ctx, "GET", "/referrals/stats", nil)
	if err != nil {
		return nil, err
	}
	var stats ReferralStats
	if err := json.Unmarshal(respBody, &stats); err != nil {
		return nil, err
	}
	return &stats, nil
}

// GetConnectStatus fetches the payment-processor onboarding state.
func (c *Client) GetConnectStatus(ctx context.Context) (*ConnectStatus, error) {
	respBody, err := c.doRequest(ctx, "GET", "/stripe/status", nil)
	if err != nil {
		return nil, err
	}
	var status ConnectStatus
	if err := json.Unmarshal(respBody, &status); err != nil {
		return nil, err
	}
	return &status, nil
}

// payoutRequest is the request body for requesting a payout.
type payoutRequest struct {
	Amount float64 `json:"amount"`
}

// RequestPayout asks for a cash payout of the given amount.
func (c *Client) RequestPayout(ctx context.Context, amount float64) (*Payout, error) {
	body, _ := json.Marshal(payoutRequest{Amount: amount})
	respBody, err := c.doRequest(ctx, "POST", "/payouts", body)
	if err != nil {
		return nil, err
	}
	var payout Payout
	if err := json.Unmarshal(respBody, &payout); err != nil {
		return nil, err
	}
	return &payout, nil
}

// payoutsResponse is the response from listing payouts.
type payoutsResponse struct {
	Success bool     `json:"success"`
	Payouts []Payout `json:"payouts"`
}

// ListPayouts fetches the caller's payout history.
func (c *Client) ListPayouts(ctx context.Context) ([]Payout, error) {
	respBody, err := c.doRequest(ctx, "GET", "/payouts", nil)
	if err != nil {
		return nil, err
	}
	var resp payoutsResponse
	if err := json.Unmarshal(respBody, &resp); err != nil {
		return nil, err
	}
	return resp.Payouts, nil
}

// FeeBreakdown computes the processor fee (2.9% + $0.30, never more than the
// amount itself) and the resulting net. Pure display computation.
func FeeBreakdown(amount float64) (fee, net float64) {
	if amount <= 0 {
		return 0, 0
	}
	fee = roundCents(amount*0.029 + 0.30)
	if fee > amount {
		fee = amount
	}
	return fee, roundCents(amount - fee)
}

func roundCents(v float64) float64 {
	return math.Round(v*100) / 100
}
