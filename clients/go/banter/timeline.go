package banter

import (
	"encoding/json"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"
)

// Role identifies the author of a turn.
type Role string

const (
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
)

// provisionalPrefix marks client-generated ids for optimistic turns.
const provisionalPrefix = "local-"

// Turn is one message exchange unit in a thread.
type Turn struct {
	ID        string
	ThreadID  string
	Role      Role
	Content   string
	Timestamp time.Time
	ImageRef  string
}

// Provisional reports whether the turn carries a client-generated id that has
// not been confirmed by the server yet.
func (t Turn) Provisional() bool {
	return strings.HasPrefix(t.ID, provisionalPrefix)
}

// NewProvisionalID returns a fresh client-generated turn id.
func NewProvisionalID() string {
	return provisionalPrefix + uuid.New().String()
}

// Timeline is the ordered, deduplicated log of turns for the current thread.
//
// Every mutation re-establishes the total order: turns sort by timestamp, and
// a user turn with the same timestamp as an assistant turn sorts strictly
// before it, so a reply never precedes the prompt that produced it even under
// coarse clocks.
type Timeline struct {
	turns []Turn
}

// Hydrate replaces the whole log, used on thread switch. An empty input is a
// valid "no messages yet" state.
func (tl *Timeline) Hydrate(turns []Turn) {
	tl.turns = make([]Turn, len(turns))
	copy(tl.turns, turns)
	tl.sort()
}

// InsertOptimistic appends a locally originated turn immediately, before any
// network round trip completes.
func (tl *Timeline) InsertOptimistic(turn Turn) {
	if turn.ID == "" {
		turn.ID = NewProvisionalID()
	}
	tl.turns = append(tl.turns, turn)
	tl.sort()
}

// Reconcile merges a server-confirmed turn into the log.
//
// Merging is idempotent by id, so an out-of-order or duplicate confirmation
// replaces rather than duplicates. A confirmed user turn whose provisional
// counterpart is still present takes over that entry so a provisional id is
// never duplicated.
func (tl *Timeline) Reconcile(turn Turn) {
	for i := range tl.turns {
		if tl.turns[i].ID == turn.ID {
			tl.turns[i] = turn
			tl.sort()
			return
		}
	}
	if turn.Role == RoleUser {
		for i := range tl.turns {
			if tl.turns[i].Provisional() && tl.turns[i].Role == RoleUser && tl.turns[i].Content == turn.Content {
				tl.turns[i] = turn
				tl.sort()
				return
			}
		}
	}
	tl.turns = append(tl.turns, turn)
	tl.sort()
}

// Clear empties the log.
func (tl *Timeline) Clear() {
	tl.turns = nil
}

// Turns returns a copy of the ordered log.
func (tl *Timeline) Turns() []Turn {
	out := make([]Turn, len(tl.turns))
	copy(out, tl.turns)
	return out
}

// Len returns the number of turns in the log.
func (tl *Timeline) Len() int { return len(tl.turns) }

func (tl *Timeline) sort() {
	sort.SliceStable(tl.turns, func(i, j int) bool {
		a, b := tl.turns[i], tl.turns[j]
		if !a.Timestamp.Equal(b.Timestamp) {
			return a.Timestamp.Before(b.Timestamp)
		}
		return roleRank(a.Role) < roleRank(b.Role)
	})
}

// roleRank encodes the tiebreak: user turns sort before assistant turns that
// share their timestamp.
func roleRank(r Role) int {
	if r == RoleUser {
		return 0
	}
	return 1
}

// contentEnvelope is the structured form message content may arrive in.
type contentEnvelope struct {
	Content string `json:"content"`
	Text    string `json:"text"`
}

// NormalizeContent extracts the textual payload from raw message content,
// which may be a plain JSON string or a structured envelope. Malformed
// content degrades to an empty string so a single bad turn never blocks the
// rest of the timeline from rendering.
func NormalizeContent(raw json.RawMessage) string {
	if len(raw) == 0 {
		return ""
	}
	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		return s
	}
	var env contentEnvelope
	if err := json.Unmarshal(raw, &env); err == nil {
		if env.Content != "" {
			return env.Content
		}
		return env.Text
	}
	return ""
}

// TurnFromWire maps a wire message to the canonical turn shape, normalizing
// content and parsing the ISO-8601 timestamp. An unparseable timestamp
// degrades to the zero time, which sorts first rather than failing the load.
func TurnFromWire(threadID string, m WireMessage) Turn {
	ts, _ := time.Parse(time.RFC3339, m.Timestamp)
	role := RoleAssistant
	if m.Role == string(RoleUser) {
		role = RoleUser
	}
	return Turn{
		ID:        m.ID,
		ThreadID:  threadID,
		Role:      role,
		Content:   NormalizeContent(m.Content),
		Timestamp: ts,
	}
}
