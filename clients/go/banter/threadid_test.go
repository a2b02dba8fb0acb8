package banter

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/rs/zerolog"
)

func newTestManager(t *testing.T, handler http.Handler) (*ThreadManager, *MemThreadStore, *httptest.Server) {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	store := &MemThreadStore{}
	api := NewClient(srv.URL, StaticToken("test-token"))
	return NewThreadManager(api, store, zerolog.Nop()), store, srv
}

func TestEnsureReplacesStaleID(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /chat/threads/stale", func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, `{"error":"thread not found"}`, http.StatusNotFound)
	})
	mux.HandleFunc("POST /chat/threads", func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"threadId":"t2"}`))
	})

	mgr, store, _ := newTestManager(t, mux)
	store.Save("stale")

	id, err := mgr.Ensure(context.Background(), "hello")
	if err != nil {
		t.Fatal(err)
	}
	if id != "t2" {
		t.Fatalf("expected t2, got %q", id)
	}
	if store.Load() != "t2" {
		t.Fatalf("expected persisted id t2, got %q", store.Load())
	}
}

func TestEnsureKeepsValidID(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /chat/threads/t1", func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"success":true}`))
	})

	mgr, store, _ := newTestManager(t, mux)
	store.Save("t1")

	id, err := mgr.Ensure(context.Background(), "hello")
	if err != nil {
		t.Fatal(err)
	}
	if id != "t1" {
		t.Fatalf("expected persisted id to be reused, got %q", id)
	}
}

func TestVerifyFalseOnRemoteError(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/", func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, `{"error":"boom"}`, http.StatusInternalServerError)
	})

	mgr, _, _ := newTestManager(t, mux)
	if mgr.Verify(context.Background(), "t1") {
		t.Fatal("verify must degrade to false on a hard remote failure")
	}
}

func TestEnsureKeepsSlotOnVerifyOutage(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/", func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, `{"error":"boom"}`, http.StatusInternalServerError)
	})

	mgr, store, _ := newTestManager(t, mux)
	store.Save("t1")

	if _, err := mgr.Ensure(context.Background(), "hello"); err == nil {
		t.Fatal("expected an error when the existence check fails")
	}
	if store.Load() != "t1" {
		t.Fatalf("persisted id must survive a transient failure, got %q", store.Load())
	}
}

func TestCreateWithoutIDFails(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("POST /chat/threads", func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{}`))
	})

	mgr, _, _ := newTestManager(t, mux)
	_, err := mgr.Create(context.Background(), "hello")
	if _, ok := err.(*ThreadCreationError); !ok {
		t.Fatalf("expected ThreadCreationError, got %v", err)
	}
}

func TestFileThreadStoreRoundTrip(t *testing.T) {
	store := NewFileThreadStore(t.TempDir())
	if store.Load() != "" {
		t.Fatal("expected empty slot")
	}
	if err := store.Save("t9"); err != nil {
		t.Fatal(err)
	}
	if store.Load() != "t9" {
		t.Fatalf("expected t9, got %q", store.Load())
	}
	if err := store.Clear(); err != nil {
		t.Fatal(err)
	}
	if store.Load() != "" {
		t.Fatal("expected cleared slot")
	}
}
