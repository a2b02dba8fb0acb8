// Package responder generates assistant replies for the reference server.
// It picks from canned, style-keyed lines so the API contract can be
// exercised without a model backend.
package responder

import (
	"fmt"
	"math/rand"
	"strings"
	"sync"
)

// Styles the responder understands. Unknown styles fall back to "confident".
const (
	StyleConfident = "confident"
	StyleFlirty    = "flirty"
	StyleFunny     = "funny"
	StyleSmooth    = "smooth"
)

var lines = map[string][]string{
	StyleConfident: {
		"Here's the move: keep it short and ask them out directly.",
		"You already know what to say. Lead with it.",
		"Skip the small talk. Tell them what caught your attention.",
		"Own it. Something like: \"I had a great time, let's do it again Friday.\"",
	},
	StyleFlirty: {
		"Try: \"I was going to play it cool, but you're making that really hard.\"",
		"Tease a little: \"You're trouble, aren't you?\"",
		"Something like: \"Okay, that smile in your third photo is unfair.\"",
		"Go with: \"I'd say something smooth here but you've got me distracted.\"",
	},
	StyleFunny: {
		"Try: \"On a scale of 1 to stealing my fries, how trustworthy are you?\"",
		"Open with: \"Important question before this goes any further: pineapple on pizza?\"",
		"Something like: \"My dog helped me write this. He says hi.\"",
		"Go with: \"I was going to use a pickup line but they're all legally terrible.\"",
	},
	StyleSmooth: {
		"Keep it easy: \"No rush, but I'd love to grab a coffee sometime this week.\"",
		"Try: \"Your taste in music is great. What's the last show you went to?\"",
		"Something relaxed: \"Sounds like a good weekend. What was the highlight?\"",
		"Go with: \"I like your energy. Tell me something nobody asks you about.\"",
	},
}

// Responder produces canned replies, avoiding back-to-back repeats.
type Responder struct {
	mu   sync.Mutex
	rand *rand.Rand
}

// New creates a Responder seeded from the given source.
func New(seed int64) *Responder {
	return &Responder{rand: rand.New(rand.NewSource(seed))}
}

// Reply returns an assistant reply for the given style. Replies listed in
// avoid are skipped when an alternative exists. hasImage marks sends that
// included a screenshot, which get a framing prefix.
func (r *Responder) Reply(style string, hasImage bool, avoid []string) string {
	pool, ok := lines[style]
	if !ok {
		pool = lines[StyleConfident]
	}

	avoided := make(map[string]bool, len(avoid))
	for _, a := range avoid {
		avoided[a] = true
	}

	candidates := make([]string, 0, len(pool))
	for _, line := range pool {
		if !avoided[line] {
			candidates = append(candidates, line)
		}
	}
	if len(candidates) == 0 {
		candidates = pool
	}

	r.mu.Lock()
	reply := candidates[r.rand.Intn(len(candidates))]
	r.mu.Unlock()

	if hasImage {
		reply = fmt.Sprintf("Looking at that conversation: %s", lowerFirst(reply))
	}

	return reply
}

func lowerFirst(s string) string {
	if s == "" {
		return s
	}
	return strings.ToLower(s[:1]) + s[1:]
}
