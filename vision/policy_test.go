package vision

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sahyadri-labs/krishirakshak/domain"
)

func TestClassifyAboveThreshold(t *testing.T) {
	scores := []float64{0.05, 0.7, 0.05, 0.05, 0.05, 0.025, 0.025, 0.025, 0.025}

	result := Classify(scores, DefaultConfidenceThreshold)

	assert.Equal(t, domain.LabelCashewDiseased, result.Label)
	assert.Equal(t, 0.7, result.Confidence)
	assert.Equal(t, scores, result.RawScores)
}

func TestClassifyBelowThresholdGatesToUnknown(t *testing.T) {
	scores := []float64{0.05, 0.05, 0.59, 0.05, 0.05, 0.05, 0.05, 0.06, 0.05}

	result := Classify(scores, DefaultConfidenceThreshold)

	assert.Equal(t, domain.LabelUnknown, result.Label)
	// The raw confidence survives the gate.
	assert.Equal(t, 0.59, result.Confidence)
}

func TestClassifyExactTieTakesLowestIndex(t *testing.T) {
	scores := []float64{0.1, 0.8, 0.8, 0.05, 0.05, 0.05, 0.05, 0.05, 0.05}

	result := Classify(scores, DefaultConfidenceThreshold)

	assert.Equal(t, domain.LabelCashewDiseased, result.Label)
	assert.Equal(t, 0.8, result.Confidence)
}

func TestClassifyMaxAtUnknownIndexStillGated(t *testing.T) {
	// Index 0 is the maximum at 0.1; index 8 (Unknown) holds 0.55. The
	// argmax is index 0, gated to Unknown because 0.1 < 0.6.
	scores := []float64{0.1, 0.05, 0.05, 0.05, 0.05, 0.05, 0.05, 0.05, 0.55}

	result := Classify(scores, DefaultConfidenceThreshold)

	assert.Equal(t, domain.LabelUnknown, result.Label)
	assert.Equal(t, 0.55, result.Confidence)
}

func TestClassifyEmptyScores(t *testing.T) {
	result := Classify(nil, DefaultConfidenceThreshold)

	assert.Equal(t, domain.LabelUnknown, result.Label)
	assert.Zero(t, result.Confidence)
}

func TestClassifyDoesNotAliasInput(t *testing.T) {
	scores := []float64{0.9, 0.1, 0, 0, 0, 0, 0, 0, 0}
	result := Classify(scores, DefaultConfidenceThreshold)

	scores[0] = 0
	assert.Equal(t, 0.9, result.RawScores[0])
}

func TestAdviceForEveryLabel(t *testing.T) {
	for _, label := range domain.Labels {
		require.NotEmpty(t, domain.AdviceFor(label), "label %s has no advice", label)
	}
	// Unmapped labels fall back to the Unknown entry.
	assert.Equal(t, domain.AdviceFor(domain.LabelUnknown), domain.AdviceFor(domain.Label("Brinjal_Diseased")))
}

func TestLabelReadable(t *testing.T) {
	assert.Equal(t, "Maize Diseased", domain.LabelMaizeDiseased.Readable())
	assert.Equal(t, "Unknown", domain.LabelUnknown.Readable())
}
