package vision

import (
	"github.com/sahyadri-labs/krishirakshak/domain"
)

// DefaultConfidenceThreshold gates low-certainty predictions to Unknown.
const DefaultConfidenceThreshold = 0.6

// Classify applies confidence gating to a raw score vector. The argmax
// gives the candidate label and confidence; a confidence below the
// threshold overrides the label to Unknown while keeping the numeric
// confidence and raw scores. Exact ties resolve to the lowest index.
// Pure and deterministic.
func Classify(scores []float64, threshold float64) domain.PredictionResult {
	raw := make([]float64, len(scores))
	copy(raw, scores)

	if len(scores) == 0 {
		return domain.PredictionResult{Label: domain.LabelUnknown, RawScores: raw}
	}

	maxIdx := 0
	for i, v := range scores {
		if v > scores[maxIdx] {
			maxIdx = i
		}
	}
	confidence := scores[maxIdx]

	label := domain.LabelAt(maxIdx)
	if confidence < threshold {
		label = domain.LabelUnknown
	}

	return domain.PredictionResult{
		Label:      label,
		Confidence: confidence,
		RawScores:  raw,
	}
}
