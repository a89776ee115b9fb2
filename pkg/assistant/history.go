package assistant

import (
	"sync"

	"disputedesk-hq/guardrail/pkg/llm"
)

// History keeps the recent redacted conversation of each user. It is safe
// for concurrent use.
type History struct {
	limit int

	mu    sync.Mutex
	users map[string][]llm.Message
}

// NewHistory creates a history keeping at most limit messages per user. A
// non-positive limit keeps nothing.
func NewHistory(limit int) *History {
	return &History{limit: limit, users: make(map[string][]llm.Message)}
}

// Get returns a copy of the user's messages, oldest first.
func (h *History) Get(userHash string) []llm.Message {
	h.mu.Lock()
	defer h.mu.Unlock()
	return append([]llm.Message(nil), h.users[userHash]...)
}

// Append records a completed exchange and drops the oldest messages beyond
// the limit.
func (h *History) Append(userHash string, msgs ...llm.Message) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if h.limit <= 0 {
		return
	}
	all := append(h.users[userHash], msgs...)
	if over := len(all) - h.limit; over > 0 {
		all = append([]llm.Message(nil), all[over:]...)
	}
	h.users[userHash] = all
}

// Clear forgets the user's conversation.
func (h *History) Clear(userHash string) {
	h.mu.Lock()
	defer h.mu.Unlock()
	delete(h.users, userHash)
}

// SetLimit changes the per-user limit. Existing conversations are trimmed
// on their next Append.
func (h *History) SetLimit(limit int) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.limit = limit
}
