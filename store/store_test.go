package store

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sahyadri-labs/krishirakshak/domain"
)

func botText(text string) domain.Entry {
	return domain.Entry{Kind: domain.EntryKindBotText, Text: text}
}

func resultCard(label domain.Label) domain.Entry {
	return domain.Entry{
		Kind: domain.EntryKindResultCard,
		Card: &domain.ResultCard{
			SourceImage:      domain.ImageRef{RefID: "img_1", Filename: "leaf.jpg"},
			Prediction:       domain.PredictionResult{Label: label, Confidence: 0.8, RawScores: []float64{0.8, 0.2}},
			Advice:           domain.AdviceFor(label),
			ExplanationState: domain.ExplanationNone,
		},
	}
}

func TestAppendPreservesOrder(t *testing.T) {
	s := NewConversationStore()

	var ids []string
	for i := 0; i < 10; i++ {
		ids = append(ids, s.Append(botText(fmt.Sprintf("entry %d", i))))
	}

	entries := s.List()
	require.Len(t, entries, 10)
	for i, e := range entries {
		assert.Equal(t, ids[i], e.EntryID)
		assert.Equal(t, fmt.Sprintf("entry %d", i), e.Text)
	}
}

func TestSnapshotsGrowAsPrefixes(t *testing.T) {
	s := NewConversationStore()

	var snapshots [][]domain.Entry
	for i := 0; i < 5; i++ {
		s.Append(botText(fmt.Sprintf("entry %d", i)))
		snapshots = append(snapshots, s.List())
	}

	for i := 1; i < len(snapshots); i++ {
		prev, cur := snapshots[i-1], snapshots[i]
		require.Equal(t, len(prev)+1, len(cur))
		for j := range prev {
			assert.Equal(t, prev[j].EntryID, cur[j].EntryID, "snapshot %d not a prefix of %d", i-1, i)
		}
	}
}

func TestSnapshotIsolatedFromLaterUpdates(t *testing.T) {
	s := NewConversationStore()
	id := s.Append(resultCard(domain.LabelTomatoDiseased))

	before := s.List()

	ready := domain.ExplanationReady
	text := "generated explanation"
	require.NoError(t, s.Update(id, CardPatch{ExplanationState: &ready, Explanation: &text}))

	// The earlier snapshot is untouched.
	assert.Equal(t, domain.ExplanationNone, before[0].Card.ExplanationState)
	assert.Empty(t, before[0].Card.Explanation)

	after := s.List()
	assert.Equal(t, domain.ExplanationReady, after[0].Card.ExplanationState)
	assert.Equal(t, "generated explanation", after[0].Card.Explanation)
}

func TestUpdateMissingEntry(t *testing.T) {
	s := NewConversationStore()
	ready := domain.ExplanationReady

	err := s.Update("msg_missing", CardPatch{ExplanationState: &ready})
	require.ErrorIs(t, err, domain.ErrEntryNotFound)
}

func TestUpdateNonCardEntry(t *testing.T) {
	s := NewConversationStore()
	id := s.Append(botText("hello"))
	ready := domain.ExplanationReady

	err := s.Update(id, CardPatch{ExplanationState: &ready})
	require.Error(t, err)
}

func TestRemoveTyping(t *testing.T) {
	s := NewConversationStore()
	s.Append(domain.Entry{Kind: domain.EntryKindUserTurn, Text: "check this leaf"})
	s.Append(domain.Entry{Kind: domain.EntryKindBotTyping})
	cardID := s.Append(resultCard(domain.LabelMaizeDiseased))

	s.RemoveTyping()

	entries := s.List()
	require.Len(t, entries, 2)
	assert.Equal(t, domain.EntryKindUserTurn, entries[0].Kind)
	assert.Equal(t, domain.EntryKindResultCard, entries[1].Kind)

	// Index stays consistent after removal.
	ready := domain.ExplanationReady
	require.NoError(t, s.Update(cardID, CardPatch{ExplanationState: &ready}))
	got, err := s.Get(cardID)
	require.NoError(t, err)
	assert.Equal(t, domain.ExplanationReady, got.Card.ExplanationState)
}

func TestHistoryFlattensEntries(t *testing.T) {
	s := NewConversationStore()
	s.Append(domain.Entry{Kind: domain.EntryKindUserTurn, Text: "what is wrong with my tomato?"})
	s.Append(domain.Entry{Kind: domain.EntryKindBotTyping})
	s.Append(resultCard(domain.LabelTomatoDiseased))
	s.Append(botText("anything else?"))

	history := s.History()
	require.Len(t, history, 3)
	assert.Equal(t, "user", history[0].Role)
	assert.Equal(t, "assistant", history[1].Role)
	assert.Contains(t, history[1].Content, "Tomato Diseased")
	assert.Contains(t, history[1].Content, domain.AdviceFor(domain.LabelTomatoDiseased))
	assert.Equal(t, "assistant", history[2].Role)
}

func TestAppendCopiesCaller(t *testing.T) {
	s := NewConversationStore()
	entry := resultCard(domain.LabelCashewDiseased)
	id := s.Append(entry)

	entry.Card.Advice = "mutated"
	entry.Card.Prediction.RawScores[0] = 99

	got, err := s.Get(id)
	require.NoError(t, err)
	assert.Equal(t, domain.AdviceFor(domain.LabelCashewDiseased), got.Card.Advice)
	assert.Equal(t, 0.8, got.Card.Prediction.RawScores[0])
}
