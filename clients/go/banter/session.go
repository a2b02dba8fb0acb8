package banter

import (
	"context"
	"errors"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog"
)

// Notifier receives hard failures for display. Soft failures never reach it.
type Notifier interface {
	Notify(message string)
}

// NotifierFunc adapts a function to the Notifier interface.
type NotifierFunc func(message string)

// Notify implements Notifier.
func (f NotifierFunc) Notify(message string) { f(message) }

type nopNotifier struct{}

func (nopNotifier) Notify(string) {}

// Session orchestrates the timeline, thread identity, and remote calls for
// one open chat view.
//
// State transitions are Idle -> LoadingHistory -> Idle on thread switch and
// Idle -> Sending -> Idle on send; the loading, sending, and creating flags
// are mutually exclusive. Every in-flight request is tagged with the thread
// it targets so late arrivals for a superseded thread are discarded instead
// of corrupting the visible log.
type Session struct {
	mu       sync.Mutex
	api      *Client
	threads  *ThreadManager
	timeline Timeline
	current  string
	style    Style

	loading  bool
	sending  bool
	creating bool

	notify Notifier
	logger zerolog.Logger
	now    func() time.Time
}

// NewSession creates a session over the given client and thread manager.
func NewSession(api *Client, threads *ThreadManager, notify Notifier, logger zerolog.Logger) *Session {
	if notify == nil {
		notify = nopNotifier{}
	}
	return &Session{
		api:     api,
		threads: threads,
		style:   StyleConfident,
		notify:  notify,
		logger:  logger,
		now:     time.Now,
	}
}

// SetStyle selects the reply-style hint passed through on every send.
func (s *Session) SetStyle(style Style) {
	s.mu.Lock()
	s.style = style
	s.mu.Unlock()
}

// Style returns the selected reply style.
func (s *Session) Style() Style {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.style
}

// CurrentThread returns the id of the currently bound thread, or "".
func (s *Session) CurrentThread() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.current
}

// Turns returns a copy of the visible timeline.
func (s *Session) Turns() []Turn {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.timeline.Turns()
}

// Sending reports whether a send is in flight.
func (s *Session) Sending() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.sending
}

// Loading reports whether a history load is in flight.
func (s *Session) Loading() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.loading
}

// Resume rebinds the session to the persisted thread id, if any, and loads
// its history. A confirmed-stale id leaves the session unbound with an
// empty timeline and no error; a failed check leaves the persisted id in
// place so the next resume can retry.
func (s *Session) Resume(ctx context.Context) {
	id := s.threads.Resolve()
	if id == "" {
		return
	}
	exists, err := s.threads.Check(ctx, id)
	if err != nil {
		s.logger.Warn().Err(err).Str("thread", id).Msg("could not verify persisted thread")
		return
	}
	if !exists {
		s.logger.Info().Str("thread", id).Msg("persisted thread no longer exists")
		if err := s.threads.Persist(""); err != nil {
			s.logger.Warn().Err(err).Msg("failed to clear stale thread id")
		}
		return
	}
	s.SwitchThread(ctx, id)
}

// SwitchThread binds the session to a thread and loads its history. A
// not-found history is a valid empty thread, not an error. Hard load
// failures are surfaced once and leave the previous timeline untouched.
func (s *Session) SwitchThread(ctx context.Context, id string) {
	s.mu.Lock()
	if s.creating {
		s.mu.Unlock()
		return
	}
	s.loading = true
	s.current = id
	s.mu.Unlock()

	if err := s.threads.Persist(id); err != nil {
		s.logger.Warn().Err(err).Msg("failed to persist thread id")
	}

	wire, err := s.api.GetMessages(ctx, id)

	s.mu.Lock()
	defer s.mu.Unlock()
	s.loading = false

	// A later switch supersedes this load.
	if s.current != id {
		return
	}

	if err != nil {
		if IsSoft(err) {
			s.timeline.Clear()
			return
		}
		s.logger.Error().Err(err).Str("thread", id).Msg("history load failed")
		s.notify.Notify("Could not load the conversation. Please try again.")
		return
	}

	turns := make([]Turn, 0, len(wire))
	for _, m := range wire {
		turns = append(turns, TurnFromWire(id, m))
	}
	s.timeline.Hydrate(turns)
}

// NewThread mints a fresh thread and points the session at it. Invoking it
// while a creation is already in flight is a no-op.
func (s *Session) NewThread(ctx context.Context) error {
	s.mu.Lock()
	if s.creating {
		s.mu.Unlock()
		return nil
	}
	if s.loading || s.sending {
		s.mu.Unlock()
		return ErrBusy
	}
	s.creating = true
	style := s.style
	s.mu.Unlock()

	id, err := s.threads.Create(ctx, "New conversation ("+string(style)+")")

	s.mu.Lock()
	defer s.mu.Unlock()
	s.creating = false

	if err != nil {
		s.logger.Error().Err(err).Msg("thread creation failed")
		s.notify.Notify("Could not start a new conversation.")
		return err
	}

	s.current = id
	s.timeline.Clear()
	return nil
}

// Send pushes an optimistic user turn, performs the remote send, and
// reconciles the assistant's confirmed reply. On failure the optimistic turn
// stays visible; only the assistant reply is missing.
func (s *Session) Send(ctx context.Context, text string, attachment *Attachment) error {
	text = strings.TrimSpace(text)
	if text == "" && attachment == nil {
		return ErrEmptySend
	}

	s.mu.Lock()
	if s.sending || s.loading || s.creating {
		s.mu.Unlock()
		return ErrBusy
	}
	s.sending = true
	style := s.style
	target := s.current
	s.mu.Unlock()

	finish := func(err error) error {
		s.mu.Lock()
		s.sending = false
		s.mu.Unlock()
		return err
	}

	// Resolve a thread lazily: verify the persisted id, fall back to create.
	if target == "" {
		id, err := s.threads.Ensure(ctx, threadTitle(text))
		if err != nil {
			s.logger.Error().Err(err).Msg("could not obtain a thread for send")
			s.notify.Notify("Could not start the conversation.")
			return finish(err)
		}
		target = id
		s.mu.Lock()
		s.current = id
		s.mu.Unlock()
	}

	optimistic := Turn{
		ID:        NewProvisionalID(),
		ThreadID:  target,
		Role:      RoleUser,
		Content:   text,
		Timestamp: s.now(),
	}
	if attachment != nil {
		optimistic.ImageRef = attachment.MediaType
	}

	s.mu.Lock()
	s.timeline.InsertOptimistic(optimistic)
	s.mu.Unlock()

	req := SendRequest{
		Message:  text,
		Style:    string(style),
		ThreadID: target,
	}
	if attachment != nil {
		req.ImageBase64 = attachment.Payload
		req.ImageType = attachment.MediaType
	}

	resp, err := s.api.Send(ctx, req)
	if err != nil {
		s.logger.Error().Err(err).Str("thread", target).Msg("send failed")
		s.notify.Notify("Message could not be delivered.")
		return finish(&RemoteSendError{Err: err})
	}

	s.mu.Lock()
	defer func() { s.sending = false; s.mu.Unlock() }()

	confirmed := resp.ThreadID
	if confirmed == "" {
		confirmed = target
	}

	// First message may have created the thread server-side.
	if confirmed != target && s.current == target {
		s.current = confirmed
		if err := s.threads.Persist(confirmed); err != nil {
			s.logger.Warn().Err(err).Msg("failed to persist rebound thread id")
		}
	}

	// Discard reconciliations that no longer target the visible thread.
	if s.current != confirmed {
		s.logger.Debug().Str("thread", confirmed).Msg("discarding reply for superseded thread")
		return nil
	}

	ts, perr := time.Parse(time.RFC3339, resp.Response.Timestamp)
	if perr != nil {
		ts = s.now()
	}
	s.timeline.Reconcile(Turn{
		ID:        resp.Response.ID,
		ThreadID:  confirmed,
		Role:      RoleAssistant,
		Content:   resp.Response.Content,
		Timestamp: ts,
	})
	return nil
}

// DeleteThread deletes a thread remotely. Local state is cleared only on
// confirmed success; a failed delete is reported and leaves the view intact.
func (s *Session) DeleteThread(ctx context.Context, id string) error {
	if err := s.api.DeleteThread(ctx, id); err != nil && !errors.Is(err, ErrThreadNotFound) {
		s.logger.Error().Err(err).Str("thread", id).Msg("thread delete failed")
		s.notify.Notify("Could not delete the conversation.")
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.current == id {
		s.current = ""
		s.timeline.Clear()
		if err := s.threads.Persist(""); err != nil {
			s.logger.Warn().Err(err).Msg("failed to clear thread id")
		}
	}
	return nil
}

// threadTitle derives a short thread title from the first message,
// truncating on rune boundaries.
func threadTitle(text string) string {
	if text == "" {
		return "New conversation"
	}
	const max = 40
	runes := []rune(text)
	if len(runes) <= max {
		return text
	}
	head := string(runes[:max])
	if cut := strings.LastIndex(head, " "); cut > 0 {
		head = head[:cut]
	}
	return head + "…"
}
