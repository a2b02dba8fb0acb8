package banter

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
)

func TestBearerCredentialAttached(t *testing.T) {
	var got string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		got = r.Header.Get("Authorization")
		w.Write([]byte(`{"success":true,"threads":[]}`))
	}))
	defer srv.Close()

	c := NewClient(srv.URL, StaticToken("tok-123"))
	if _, err := c.ListThreads(context.Background()); err != nil {
		t.Fatal(err)
	}
	if got != "Bearer tok-123" {
		t.Fatalf("expected bearer header, got %q", got)
	}
}

func TestMissingCredentialFailsWithoutNetwork(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		t.Error("request must not reach the network without a credential")
	}))
	defer srv.Close()

	c := NewClient(srv.URL, StaticToken(""))
	_, err := c.ListThreads(context.Background())
	if !errors.Is(err, ErrAuthRequired) {
		t.Fatalf("expected ErrAuthRequired, got %v", err)
	}
}

func TestGetMessagesNotFoundIsEmptyHistory(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, `{"error":"thread not found"}`, http.StatusNotFound)
	}))
	defer srv.Close()

	c := NewClient(srv.URL, StaticToken("tok"))
	msgs, err := c.GetMessages(context.Background(), "gone")
	if err != nil {
		t.Fatalf("404 history must not be an error, got %v", err)
	}
	if len(msgs) != 0 {
		t.Fatalf("expected empty history, got %d messages", len(msgs))
	}
}

func TestThreadExistsDistinguishesNotFoundFromFailure(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /chat/threads/gone", func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, `{"error":"thread not found"}`, http.StatusNotFound)
	})
	mux.HandleFunc("GET /chat/threads/broken", func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, `{"error":"boom"}`, http.StatusInternalServerError)
	})
	srv := httptest.NewServer(mux)
	defer srv.Close()

	c := NewClient(srv.URL, StaticToken("tok"))

	exists, err := c.ThreadExists(context.Background(), "gone")
	if err != nil || exists {
		t.Fatalf("expected (false, nil) for not-found, got (%v, %v)", exists, err)
	}

	_, err = c.ThreadExists(context.Background(), "broken")
	var apiErr *APIError
	if !errors.As(err, &apiErr) || apiErr.Status != http.StatusInternalServerError {
		t.Fatalf("expected hard APIError, got %v", err)
	}
}

func TestNotFoundOutsideThreadsIsHardError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, `{"error":"no such route"}`, http.StatusNotFound)
	}))
	defer srv.Close()

	c := NewClient(srv.URL, StaticToken("tok"))
	_, err := c.doRequest(context.Background(), "GET", "/payouts", nil)
	if errors.Is(err, ErrThreadNotFound) {
		t.Fatal("a 404 outside the thread endpoints must not be soft-classified")
	}
	var apiErr *APIError
	if !errors.As(err, &apiErr) || apiErr.Status != http.StatusNotFound {
		t.Fatalf("expected hard APIError, got %v", err)
	}
}

func TestSendWirePayload(t *testing.T) {
	var got SendRequest
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if err := json.NewDecoder(r.Body).Decode(&got); err != nil {
			t.Error(err)
		}
		json.NewEncoder(w).Encode(SendResponse{Success: true, ThreadID: "t1"})
	}))
	defer srv.Close()

	c := NewClient(srv.URL, StaticToken("tok"))
	_, err := c.Send(context.Background(), SendRequest{
		Message:     "hey",
		Style:       "smooth",
		ThreadID:    "t1",
		ImageBase64: "aGk=",
		ImageType:   "image/png",
	})
	if err != nil {
		t.Fatal(err)
	}
	if got.Message != "hey" || got.Style != "smooth" || got.ThreadID != "t1" {
		t.Fatalf("unexpected payload: %+v", got)
	}
	if got.ImageBase64 != "aGk=" || got.ImageType != "image/png" {
		t.Fatalf("image fields not passed through: %+v", got)
	}
}
