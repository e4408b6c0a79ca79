package domain

import (
	"time"
)

// EntryKind discriminates the conversation entry variants.
type EntryKind string

const (
	EntryKindUserTurn   EntryKind = "user"
	EntryKindBotText    EntryKind = "bot"
	EntryKindBotTyping  EntryKind = "bot_typing"
	EntryKindResultCard EntryKind = "bot_card"
)

// ExplanationState tracks the lifecycle of a card's generated explanation.
type ExplanationState string

const (
	ExplanationNone    ExplanationState = "none"
	ExplanationPending ExplanationState = "pending"
	ExplanationReady   ExplanationState = "ready"
	ExplanationAbsent  ExplanationState = "absent"
)

// PredictionResult is the outcome of classifying one image. Immutable once
// produced.
type PredictionResult struct {
	Label      Label     `json:"label"`
	Confidence float64   `json:"confidence"`
	RawScores  []float64 `json:"raw_scores"`
}

// ImageRef identifies one uploaded image within the conversation.
type ImageRef struct {
	RefID    string `json:"ref_id"`
	Filename string `json:"filename"`
}

// ResultCard bundles one image's classification, canned advice and, once
// resolved, the generated explanation.
type ResultCard struct {
	SourceImage      ImageRef         `json:"source_image"`
	Prediction       PredictionResult `json:"prediction"`
	Advice           string           `json:"advice"`
	ExplanationState ExplanationState `json:"explanation_state"`
	Explanation      string           `json:"explanation,omitempty"`
}

// Entry is a single conversation entry. Exactly one of the variant fields
// is populated, selected by Kind. Entries are appended in creation order
// and never re-sorted.
type Entry struct {
	EntryID   string      `json:"entry_id"`
	Kind      EntryKind   `json:"kind"`
	Text      string      `json:"text,omitempty"`
	Images    []ImageRef  `json:"images,omitempty"`
	Card      *ResultCard `json:"card,omitempty"`
	CreatedAt time.Time   `json:"created_at"`
}

// HistoryMessage is the textual form of an entry forwarded to the
// explanation endpoint.
type HistoryMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// ExplanationContext carries one card's classification context plus the
// conversation history to the explanation endpoint.
type ExplanationContext struct {
	Label      Label            `json:"label"`
	Advice     string           `json:"advice"`
	Confidence string           `json:"confidence"`
	Messages   []HistoryMessage `json:"messages"`
}
