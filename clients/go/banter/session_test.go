package banter

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"
	"unicode/utf8"

	"github.com/rs/zerolog"
)

type countingNotifier struct {
	mu       sync.Mutex
	messages []string
}

func (n *countingNotifier) Notify(msg string) {
	n.mu.Lock()
	n.messages = append(n.messages, msg)
	n.mu.Unlock()
}

func (n *countingNotifier) count() int {
	n.mu.Lock()
	defer n.mu.Unlock()
	return len(n.messages)
}

func newTestSession(t *testing.T, handler http.Handler) (*Session, *MemThreadStore, *countingNotifier) {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)

	store := &MemThreadStore{}
	api := NewClient(srv.URL, StaticToken("test-token"))
	mgr := NewThreadManager(api, store, zerolog.Nop())
	notifier := &countingNotifier{}
	return NewSession(api, mgr, notifier, zerolog.Nop()), store, notifier
}

func TestSendWithoutThreadCreatesAndReconciles(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("POST /chat/threads", func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"threadId":"t1"}`))
	})
	mux.HandleFunc("POST /chat/send", func(w http.ResponseWriter, r *http.Request) {
		var req SendRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			t.Errorf("bad send body: %v", err)
		}
		if req.ThreadID != "t1" {
			t.Errorf("expected send to target t1, got %q", req.ThreadID)
		}
		json.NewEncoder(w).Encode(SendResponse{
			Success:  true,
			Response: AssistantReply{ID: "m1", Content: "hello!", Timestamp: time.Now().UTC().Format(time.RFC3339)},
			ThreadID: "t1",
		})
	})

	session, store, notifier := newTestSession(t, mux)

	if err := session.Send(context.Background(), "hi", nil); err != nil {
		t.Fatal(err)
	}

	turns := session.Turns()
	if len(turns) != 2 {
		t.Fatalf("expected 2 turns, got %d", len(turns))
	}
	if turns[0].Role != RoleUser || turns[0].Content != "hi" {
		t.Fatalf("expected user turn first, got %+v", turns[0])
	}
	if turns[1].Role != RoleAssistant || turns[1].Content != "hello!" {
		t.Fatalf("expected assistant reply second, got %+v", turns[1])
	}
	if store.Load() != "t1" {
		t.Fatalf("expected persisted thread t1, got %q", store.Load())
	}
	if notifier.count() != 0 {
		t.Fatalf("expected no notifications, got %v", notifier.messages)
	}
}

func TestSendFailureKeepsOptimisticTurn(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /chat/threads/t1", func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"success":true}`))
	})
	mux.HandleFunc("GET /chat/threads/t1/messages", func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"success":true,"messages":[]}`))
	})
	mux.HandleFunc("POST /chat/send", func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, `{"error":"upstream unavailable"}`, http.StatusBadGateway)
	})

	session, store, notifier := newTestSession(t, mux)
	store.Save("t1")
	session.SwitchThread(context.Background(), "t1")

	err := session.Send(context.Background(), "hi", nil)
	var sendErr *RemoteSendError
	if !errors.As(err, &sendErr) {
		t.Fatalf("expected RemoteSendError, got %v", err)
	}

	turns := session.Turns()
	if len(turns) != 1 || turns[0].Role != RoleUser || turns[0].Content != "hi" {
		t.Fatalf("expected only the optimistic user turn, got %+v", turns)
	}
	if notifier.count() != 1 {
		t.Fatalf("expected exactly one hard-error notification, got %d", notifier.count())
	}
	if store.Load() != "t1" {
		t.Fatalf("persisted thread id must be unchanged, got %q", store.Load())
	}
	if session.Sending() {
		t.Fatal("session must return to idle after a failed send")
	}
}

func TestSendRejectsEmptyTurn(t *testing.T) {
	session, _, _ := newTestSession(t, http.NewServeMux())
	if err := session.Send(context.Background(), "   ", nil); !errors.Is(err, ErrEmptySend) {
		t.Fatalf("expected ErrEmptySend, got %v", err)
	}
}

func TestStaleHydrateDoesNotEraseOptimisticTurn(t *testing.T) {
	release := make(chan struct{})
	entered := make(chan struct{})
	mux := http.NewServeMux()
	mux.HandleFunc("GET /chat/threads/t1/messages", func(w http.ResponseWriter, r *http.Request) {
		close(entered)
		<-release
		w.Write([]byte(`{"success":true,"messages":[]}`))
	})
	mux.HandleFunc("GET /chat/threads/t2/messages", func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"success":true,"messages":[]}`))
	})
	mux.HandleFunc("POST /chat/send", func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(SendResponse{
			Success:  true,
			Response: AssistantReply{ID: "m1", Content: "ok", Timestamp: time.Now().UTC().Format(time.RFC3339)},
			ThreadID: "t2",
		})
	})

	session, _, _ := newTestSession(t, mux)

	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		session.SwitchThread(context.Background(), "t1")
	}()

	// Supersede the slow t1 load, then send on t2.
	<-entered
	session.SwitchThread(context.Background(), "t2")
	if err := session.Send(context.Background(), "u1", nil); err != nil {
		t.Fatal(err)
	}

	close(release)
	wg.Wait()

	turns := session.Turns()
	if len(turns) != 2 {
		t.Fatalf("stale hydrate erased the timeline: %+v", turns)
	}
	if turns[0].Content != "u1" {
		t.Fatalf("expected optimistic turn to survive, got %+v", turns[0])
	}
}

func TestSwitchThreadNotFoundIsEmptyNotError(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /chat/threads/gone/messages", func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, `{"error":"thread not found"}`, http.StatusNotFound)
	})

	session, _, notifier := newTestSession(t, mux)
	session.SwitchThread(context.Background(), "gone")

	if len(session.Turns()) != 0 {
		t.Fatal("expected empty timeline")
	}
	if notifier.count() != 0 {
		t.Fatalf("not-found history must not be surfaced, got %v", notifier.messages)
	}
}

func TestNewThreadGuardsConcurrentCreation(t *testing.T) {
	var creates int32
	release := make(chan struct{})
	mux := http.NewServeMux()
	mux.HandleFunc("POST /chat/threads", func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&creates, 1)
		<-release
		w.Write([]byte(`{"threadId":"t1"}`))
	})

	session, _, _ := newTestSession(t, mux)

	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		session.NewThread(context.Background())
	}()

	// Wait until the first creation is in flight.
	for atomic.LoadInt32(&creates) == 0 {
		time.Sleep(time.Millisecond)
	}
	if err := session.NewThread(context.Background()); err != nil {
		t.Fatalf("concurrent NewThread must be a no-op, got %v", err)
	}
	if got := atomic.LoadInt32(&creates); got != 1 {
		t.Fatalf("expected a single create call, got %d", got)
	}

	close(release)
	wg.Wait()

	if session.CurrentThread() != "t1" {
		t.Fatalf("expected session bound to t1, got %q", session.CurrentThread())
	}
}

func TestDeleteThreadFailureKeepsLocalState(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /chat/threads/t1", func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"success":true}`))
	})
	mux.HandleFunc("GET /chat/threads/t1/messages", func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"success":true,"messages":[{"id":"m1","role":"user","content":"hey","timestamp":"2025-06-01T12:00:00Z"}]}`))
	})
	mux.HandleFunc("DELETE /chat/threads/t1", func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, `{"error":"boom"}`, http.StatusInternalServerError)
	})

	session, store, notifier := newTestSession(t, mux)
	store.Save("t1")
	session.SwitchThread(context.Background(), "t1")

	if err := session.DeleteThread(context.Background(), "t1"); err == nil {
		t.Fatal("expected delete error")
	}
	if session.CurrentThread() != "t1" || len(session.Turns()) != 1 {
		t.Fatal("failed delete must leave local state intact")
	}
	if notifier.count() != 1 {
		t.Fatalf("expected one notification, got %d", notifier.count())
	}
}

func TestDeleteThreadSuccessClearsCurrent(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /chat/threads/t1", func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"success":true}`))
	})
	mux.HandleFunc("GET /chat/threads/t1/messages", func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"success":true,"messages":[]}`))
	})
	mux.HandleFunc("DELETE /chat/threads/t1", func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"success":true}`))
	})

	session, store, _ := newTestSession(t, mux)
	store.Save("t1")
	session.SwitchThread(context.Background(), "t1")

	if err := session.DeleteThread(context.Background(), "t1"); err != nil {
		t.Fatal(err)
	}
	if session.CurrentThread() != "" {
		t.Fatal("expected current thread to be cleared")
	}
	if store.Load() != "" {
		t.Fatal("expected persisted id to be cleared")
	}
}

func TestResumeKeepsPersistedIDOnOutage(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/", func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, `{"error":"boom"}`, http.StatusInternalServerError)
	})

	session, store, notifier := newTestSession(t, mux)
	store.Save("t1")
	session.Resume(context.Background())

	if store.Load() != "t1" {
		t.Fatalf("persisted id must survive a failed resume, got %q", store.Load())
	}
	if session.CurrentThread() != "" {
		t.Fatal("expected session unbound after a failed resume")
	}
	if notifier.count() != 0 {
		t.Fatal("a failed resume check must not be surfaced")
	}
}

func TestThreadTitleTruncatesOnRuneBoundary(t *testing.T) {
	title := threadTitle(strings.Repeat("é", 60))
	if !utf8.ValidString(title) {
		t.Fatalf("truncated title is not valid UTF-8: %q", title)
	}
	if got := utf8.RuneCountInString(title); got != 41 {
		t.Fatalf("expected 40 runes plus ellipsis, got %d", got)
	}
}

func TestResumeClearsStalePersistedID(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /chat/threads/stale", func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, `{"error":"thread not found"}`, http.StatusNotFound)
	})

	session, store, notifier := newTestSession(t, mux)
	store.Save("stale")
	session.Resume(context.Background())

	if session.CurrentThread() != "" {
		t.Fatal("expected session unbound after stale resume")
	}
	if store.Load() != "" {
		t.Fatal("expected stale id cleared")
	}
	if notifier.count() != 0 {
		t.Fatal("stale-id recovery must not be surfaced")
	}
}
