// Package session holds per-user interactive state: the selection, the
// fetched dataset and the conversation transcript.
package session

import (
	"iter"
	"sync"
	"time"

	"github.com/ashureev/datachat/internal/domain"
	"github.com/google/uuid"
)

// Greeting is the synthetic first entry of every transcript.
const Greeting = "Hello! Ask me anything about the data in the selected collection 🤗"

// Transcript is an append-only log of conversation entries.
type Transcript struct {
	mu      sync.RWMutex
	entries []domain.ConversationEntry
}

// NewTranscript creates a transcript holding only the greeting.
func NewTranscript() *Transcript {
	return &Transcript{
		entries: []domain.ConversationEntry{{
			ID:        uuid.NewString(),
			Response:  domain.TextResponse(Greeting),
			Synthetic: true,
			CreatedAt: time.Now().UTC(),
		}},
	}
}

// Append adds one entry at the end and returns it.
func (t *Transcript) Append(userMessage string, resp domain.Response) domain.ConversationEntry {
	entry := domain.ConversationEntry{
		ID:          uuid.NewString(),
		UserMessage: userMessage,
		Response:    resp,
		CreatedAt:   time.Now().UTC(),
	}

	t.mu.Lock()
	t.entries = append(t.entries, entry)
	t.mu.Unlock()

	return entry
}

// Entries yields entries oldest first. Each iteration walks the entries
// present when it starts, so the sequence can be ranged over repeatedly.
func (t *Transcript) Entries() iter.Seq[domain.ConversationEntry] {
	return func(yield func(domain.ConversationEntry) bool) {
		t.mu.RLock()
		snapshot := t.entries[:len(t.entries):len(t.entries)]
		t.mu.RUnlock()

		for _, e := range snapshot {
			if !yield(e) {
				return
			}
		}
	}
}

// Len returns the number of entries, greeting included.
func (t *Transcript) Len() int {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return len(t.entries)
}
