package handlers

import (
	"encoding/json"
	"math"
	"net/http"

	"github.com/banterlabs/banter/internal/api/middleware"
	"github.com/banterlabs/banter/internal/metrics"
	"github.com/banterlabs/banter/internal/models"
)

// minPayout is the smallest payout the service will process.
const minPayout = 1.00

// ReferralStatsResponse represents the referral earnings summary.
type ReferralStatsResponse struct {
	TotalReferrals   int64   `json:"totalReferrals"`
	TotalEarned      float64 `json:"totalEarned"`
	AvailableBalance float64 `json:"availableBalance"`
}

// ConnectStatusResponse describes the caller's payment-processor state.
type ConnectStatusResponse struct {
	Connected      bool   `json:"connected"`
	PayoutsEnabled bool   `json:"payoutsEnabled"`
	OnboardingURL  string `json:"onboardingUrl,omitempty"`
}

// PayoutRequest represents the payout request body.
type PayoutRequest struct {
	Amount float64 `json:"amount"`
}

// PayoutsResponse represents the payout listing response.
type PayoutsResponse struct {
	Success bool            `json:"success"`
	Payouts []models.Payout `json:"payouts"`
}

// ReferralStats handles the referral earnings summary endpoint.
func (h *Handler) ReferralStats(w http.ResponseWriter, r *http.Request) {
	user := middleware.GetUserFromContext(r.Context())

	count, err := h.db.CountReferrals(r.Context(), user.ID)
	if err != nil {
		h.Error(w, http.StatusInternalServerError, "failed to load referral stats")
		return
	}
	earned, err := h.db.SumReferralEarnings(r.Context(), user.ID)
	if err != nil {
		h.Error(w, http.StatusInternalServerError, "failed to load referral stats")
		return
	}
	paid, err := h.db.SumPayouts(r.Context(), user.ID)
	if err != nil {
		h.Error(w, http.StatusInternalServerError, "failed to load referral stats")
		return
	}

	balance := roundCents(earned - paid)
	if balance < 0 {
		balance = 0
	}

	h.JSON(w, http.StatusOK, ReferralStatsResponse{
		TotalReferrals:   count,
		TotalEarned:      roundCents(earned),
		AvailableBalance: balance,
	})
}

// ConnectStatus handles the payment-processor status endpoint. The
// reference server has no processor attached, so callers always see a
// not-yet-onboarded state.
func (h *Handler) ConnectStatus(w http.ResponseWriter, r *http.Request) {
	h.JSON(w, http.StatusOK, ConnectStatusResponse{
		Connected:      false,
		PayoutsEnabled: false,
		OnboardingURL:  "",
	})
}

// RequestPayout handles a cash-out request. The fee is 2.9% + $0.30,
// capped at the amount itself.
func (h *Handler) RequestPayout(w http.ResponseWriter, r *http.Request) {
	user := middleware.GetUserFromContext(r.Context())

	var req PayoutRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.Error(w, http.StatusBadRequest, "invalid JSON body")
		return
	}

	if req.Amount < minPayout {
		h.Error(w, http.StatusBadRequest, "amount below minimum payout")
		return
	}

	earned, err := h.db.SumReferralEarnings(r.Context(), user.ID)
	if err != nil {
		h.Error(w, http.StatusInternalServerError, "failed to check balance")
		return
	}
	paid, err := h.db.SumPayouts(r.Context(), user.ID)
	if err != nil {
		h.Error(w, http.StatusInternalServerError, "failed to check balance")
		return
	}
	if req.Amount > roundCents(earned-paid) {
		h.Error(w, http.StatusBadRequest, "amount exceeds available balance")
		return
	}

	fee := roundCents(req.Amount*0.029 + 0.30)
	if fee > req.Amount {
		fee = req.Amount
	}

	payout := &models.Payout{
		UserID:    user.ID,
		Amount:    req.Amount,
		NetAmount: roundCents(req.Amount - fee),
		Status:    models.PayoutPending,
	}
	if err := h.db.CreatePayout(r.Context(), payout); err != nil {
		h.logger.Error().Err(err).Msg("payout creation failed")
		h.Error(w, http.StatusInternalServerError, "failed to create payout")
		return
	}

	metrics.PayoutsRequested.Inc()
	h.events.PublishPayout(payout)

	h.JSON(w, http.StatusCreated, payout)
}

// ListPayouts handles the payout history endpoint.
func (h *Handler) ListPayouts(w http.ResponseWriter, r *http.Request) {
	user := middleware.GetUserFromContext(r.Context())

	payouts, err := h.db.ListPayouts(r.Context(), user.ID)
	if err != nil {
		h.Error(w, http.StatusInternalServerError, "failed to list payouts")
		return
	}
	if payouts == nil {
		payouts = []models.Payout{}
	}

	h.JSON(w, http.StatusOK, PayoutsResponse{Success: true, Payouts: payouts})
}

func roundCents(v float64) float64 {
	return math.Round(v*100) / 100
}
