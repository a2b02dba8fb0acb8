package middleware

import (
	"net/http/httptest"
	"testing"

	"github.com/rs/zerolog"
)

func TestFindLimitReturnsMatchedPattern(t *testing.T) {
	rl := NewRateLimiter(nil, zerolog.Nop(), RateLimiterConfig{})

	req := httptest.NewRequest("POST", "/chat/send", nil)
	limit, pattern := rl.findLimit(req)
	if limit == nil {
		t.Fatal("expected a limit for POST /chat/send")
	}
	if pattern != "POST /chat/send" {
		t.Fatalf("expected matched pattern, got %q", pattern)
	}

	req = httptest.NewRequest("GET", "/health", nil)
	if limit, _ := rl.findLimit(req); limit != nil {
		t.Fatalf("expected no limit for /health, got %+v", limit)
	}
}

func TestUserKeyShardsByTokenUserID(t *testing.T) {
	req := httptest.NewRequest("POST", "/chat/send", nil)
	req.Header.Set("Authorization", "Bearer u-42.secret")
	if got := userKey(req); got != "ratelimit:user:u-42" {
		t.Fatalf("expected user-sharded key, got %q", got)
	}

	req = httptest.NewRequest("POST", "/chat/send", nil)
	req.RemoteAddr = "10.0.0.9:1234"
	if got := userKey(req); got != "ratelimit:ip:10.0.0.9" {
		t.Fatalf("expected ip fallback key, got %q", got)
	}
}
