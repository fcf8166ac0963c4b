// Package classify integrates the pretrained facial stress classifier and
// its deterministic fallback.
package classify

import (
	"github.com/okian/aula/internal/domain/model"
)

// FeatureColumns is the classifier's feature order, fixed by the offline
// trainer. Any artifact whose feature list deviates from this table is
// rejected at load time: silent column drift corrupts every prediction.
var FeatureColumns = []string{
	"neutral_avg",
	"happiness_avg",
	"sadness_avg",
	"anger_avg",
	"fear_avg",
	"disgust_avg",
	"surprise_avg",
	"negative_ratio",
}

// columnSource maps each feature column to the emotion label it averages.
// negative_ratio is not label-backed and is handled separately.
var columnSource = map[string]string{
	"neutral_avg":   "neutral",
	"happiness_avg": "happy",
	"sadness_avg":   "sad",
	"anger_avg":     "angry",
	"fear_avg":      "fearful",
	"disgust_avg":   "disgusted",
	"surprise_avg":  "surprised",
}

// Features projects a session aggregate onto the classifier's feature
// vector, in FeatureColumns order.
func Features(meanEmotions map[string]float64, negativeRatio float64) []float64 {
	out := make([]float64, len(FeatureColumns))
	for i, col := range FeatureColumns {
		if col == "negative_ratio" {
			out[i] = negativeRatio
			continue
		}
		out[i] = meanEmotions[columnSource[col]]
	}
	return out
}

// Ratio-threshold fallback bands.
const (
	highRatio   = 0.75
	mediumRatio = 0.40
)

// LevelFromRatio is the deterministic fallback categorizer used when the
// model artifact is unavailable or errs: ratio >= 0.75 high, >= 0.40
// medium, otherwise low.
func LevelFromRatio(ratio float64) model.Level {
	switch {
	case ratio >= highRatio:
		return model.LevelHigh
	case ratio >= mediumRatio:
		return model.LevelMedium
	default:
		return model.LevelLow
	}
}
