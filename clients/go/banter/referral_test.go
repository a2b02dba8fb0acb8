package banter

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
)

func TestFeeBreakdown(t *testing.T) {
	fee, net := FeeBreakdown(100)
	if fee != 3.20 {
		t.Fatalf("expected fee 3.20, got %v", fee)
	}
	if net != 96.80 {
		t.Fatalf("expected net 96.80, got %v", net)
	}
}

func TestFeeCappedAtAmount(t *testing.T) {
	fee, net := FeeBreakdown(0.10)
	if fee != 0.10 {
		t.Fatalf("fee must be capped at the amount, got %v", fee)
	}
	if net != 0 {
		t.Fatalf("expected zero net, got %v", net)
	}
}

func TestFeeBreakdownNonPositive(t *testing.T) {
	if fee, net := FeeBreakdown(0); fee != 0 || net != 0 {
		t.Fatalf("expected zeros, got %v %v", fee, net)
	}
	if fee, net := FeeBreakdown(-5); fee != 0 || net != 0 {
		t.Fatalf("expected zeros, got %v %v", fee, net)
	}
}

func TestReferralEndpoints(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /referrals/stats", func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"totalReferrals":3,"totalEarned":45.5,"availableBalance":20}`))
	})
	mux.HandleFunc("GET /stripe/status", func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"connected":true,"payoutsEnabled":false,"onboardingUrl":"https://connect.example/onboard"}`))
	})
	mux.HandleFunc("GET /payouts", func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"success":true,"payouts":[{"id":"p1","amount":20,"netAmount":19.12,"status":"pending"}]}`))
	})
	srv := httptest.NewServer(mux)
	defer srv.Close()

	c := NewClient(srv.URL, StaticToken("tok"))

	stats, err := c.GetReferralStats(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	if stats.TotalReferrals != 3 || stats.AvailableBalance != 20 {
		t.Fatalf("unexpected stats: %+v", stats)
	}

	status, err := c.GetConnectStatus(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	if !status.Connected || status.PayoutsEnabled {
		t.Fatalf("unexpected status: %+v", status)
	}

	payouts, err := c.ListPayouts(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	if len(payouts) != 1 || payouts[0].Status != PayoutPending {
		t.Fatalf("unexpected payouts: %+v", payouts)
	}
}
