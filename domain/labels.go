// Package domain defines the core domain models for the crop-disease
// analysis pipeline.
package domain

// Label is one of the fixed crop/disease classes the classifier can emit.
type Label string

const (
	LabelCashewHealthy   Label = "Cashew_Healthy"
	LabelCashewDiseased  Label = "Cashew_Diseased"
	LabelCassavaHealthy  Label = "Cassava_Healthy"
	LabelCassavaDiseased Label = "Cassava_Diseased"
	LabelMaizeHealthy    Label = "Maize_Healthy"
	LabelMaizeDiseased   Label = "Maize_Diseased"
	LabelTomatoHealthy   Label = "Tomato_Healthy"
	LabelTomatoDiseased  Label = "Tomato_Diseased"
	LabelUnknown         Label = "Unknown"
)

// Labels is the closed label set, index-aligned with the classifier's
// output vector. Order is fixed at process start and must match the
// exported model artifact.
var Labels = []Label{
	LabelCashewHealthy,
	LabelCashewDiseased,
	LabelCassavaHealthy,
	LabelCassavaDiseased,
	LabelMaizeHealthy,
	LabelMaizeDiseased,
	LabelTomatoHealthy,
	LabelTomatoDiseased,
	LabelUnknown,
}

// LabelAt maps a raw score index to its label. Out-of-range indexes fall
// back to Unknown.
func LabelAt(idx int) Label {
	if idx < 0 || idx >= len(Labels) {
		return LabelUnknown
	}
	return Labels[idx]
}

// Readable returns the display form of a label ("Maize Diseased").
func (l Label) Readable() string {
	out := make([]byte, len(l))
	for i := 0; i < len(l); i++ {
		if l[i] == '_' {
			out[i] = ' '
		} else {
			out[i] = l[i]
		}
	}
	return string(out)
}

// adviceTable is the static label-to-remedy mapping. Healthy crops get a
// short confirmation; anything not listed falls back to the Unknown entry.
var adviceTable = map[Label]string{
	LabelCashewHealthy:   "Leaf looks healthy. Keep up mulching and regular neem spraying as prevention.",
	LabelCashewDiseased:  "Spray neem oil and remove infected leaves.",
	LabelCassavaHealthy:  "Leaf looks healthy. Maintain spacing and avoid waterlogging.",
	LabelCassavaDiseased: "Use compost and avoid overwatering.",
	LabelMaizeHealthy:    "Leaf looks healthy. Continue crop rotation next season.",
	LabelMaizeDiseased:   "Rotate crops and use Trichoderma-based compost.",
	LabelTomatoHealthy:   "Leaf looks healthy. Stake plants and water at the base only.",
	LabelTomatoDiseased:  "Use cow dung slurry and neem extract weekly.",
	LabelUnknown:         "Valid leaf detected or uncertain - retake photo from multiple angles.",
}

// AdviceFor looks up the canned remedy for a label, falling back to the
// Unknown entry.
func AdviceFor(label Label) string {
	if advice, ok := adviceTable[label]; ok {
		return advice
	}
	return adviceTable[LabelUnknown]
}
