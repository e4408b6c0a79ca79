// Package store holds the conversation log, the single source of truth
// for conversational state.
package store

import (
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/sahyadri-labs/krishirakshak/domain"
)

// CardPatch is applied to a ResultCard entry by Update. Nil fields are
// left untouched.
type CardPatch struct {
	ExplanationState *domain.ExplanationState
	Explanation      *string
}

// ConversationStore is an append-only ordered log of conversation entries.
// Insertion order is preserved permanently; snapshots returned by List are
// never mutated by later appends.
type ConversationStore struct {
	mu      sync.RWMutex
	entries []domain.Entry
	index   map[string]int
}

// NewConversationStore creates an empty conversation log.
func NewConversationStore() *ConversationStore {
	return &ConversationStore{
		index: make(map[string]int),
	}
}

// Append adds an entry to the end of the log and returns its ID. The
// caller's entry is copied; later mutation of the argument does not affect
// the store.
func (s *ConversationStore) Append(entry domain.Entry) string {
	s.mu.Lock()
	defer s.mu.Unlock()

	if entry.EntryID == "" {
		entry.EntryID = "msg_" + uuid.New().String()[:8]
	}
	if entry.CreatedAt.IsZero() {
		entry.CreatedAt = time.Now()
	}
	stored := copyEntry(entry)

	s.index[stored.EntryID] = len(s.entries)
	s.entries = append(s.entries, stored)
	return stored.EntryID
}

// Update applies a patch to the ResultCard entry with the given ID.
func (s *ConversationStore) Update(entryID string, patch CardPatch) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	pos, ok := s.index[entryID]
	if !ok {
		return fmt.Errorf("update %s: %w", entryID, domain.ErrEntryNotFound)
	}
	entry := &s.entries[pos]
	if entry.Card == nil {
		return fmt.Errorf("update %s: entry is not a result card", entryID)
	}
	if patch.ExplanationState != nil {
		entry.Card.ExplanationState = *patch.ExplanationState
	}
	if patch.Explanation != nil {
		entry.Card.Explanation = *patch.Explanation
	}
	return nil
}

// Get returns a copy of the entry with the given ID.
func (s *ConversationStore) Get(entryID string) (domain.Entry, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	pos, ok := s.index[entryID]
	if !ok {
		return domain.Entry{}, fmt.Errorf("get %s: %w", entryID, domain.ErrEntryNotFound)
	}
	return copyEntry(s.entries[pos]), nil
}

// List returns a snapshot of the log in append order. The snapshot is a
// deep copy and stays stable while further appends and updates occur.
func (s *ConversationStore) List() []domain.Entry {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]domain.Entry, len(s.entries))
	for i, e := range s.entries {
		out[i] = copyEntry(e)
	}
	return out
}

// RemoveTyping deletes all transient typing-indicator entries from the
// log. Removal is physical, not cosmetic: a later List never sees them.
func (s *ConversationStore) RemoveTyping() {
	s.mu.Lock()
	defer s.mu.Unlock()

	kept := s.entries[:0]
	for _, e := range s.entries {
		if e.Kind != domain.EntryKindBotTyping {
			kept = append(kept, e)
		}
	}
	s.entries = kept

	for id := range s.index {
		delete(s.index, id)
	}
	for i, e := range s.entries {
		s.index[e.EntryID] = i
	}
}

// History renders the log as role/content messages for the explanation
// endpoint. Typing indicators are skipped; result cards are flattened to
// their label and advice text.
func (s *ConversationStore) History() []domain.HistoryMessage {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]domain.HistoryMessage, 0, len(s.entries))
	for _, e := range s.entries {
		switch e.Kind {
		case domain.EntryKindUserTurn:
			out = append(out, domain.HistoryMessage{Role: "user", Content: e.Text})
		case domain.EntryKindBotText:
			out = append(out, domain.HistoryMessage{Role: "assistant", Content: e.Text})
		case domain.EntryKindResultCard:
			content := fmt.Sprintf("Detected %s (confidence %.1f%%). Advice: %s",
				e.Card.Prediction.Label.Readable(),
				e.Card.Prediction.Confidence*100,
				e.Card.Advice)
			out = append(out, domain.HistoryMessage{Role: "assistant", Content: content})
		}
	}
	return out
}

func copyEntry(e domain.Entry) domain.Entry {
	out := e
	if e.Images != nil {
		out.Images = make([]domain.ImageRef, len(e.Images))
		copy(out.Images, e.Images)
	}
	if e.Card != nil {
		card := *e.Card
		if e.Card.Prediction.RawScores != nil {
			card.Prediction.RawScores = make([]float64, len(e.Card.Prediction.RawScores))
			copy(card.Prediction.RawScores, e.Card.Prediction.RawScores)
		}
		out.Card = &card
	}
	return out
}
