// Package fusion combines the questionnaire-derived and facial-derived
// stress categories into one final verdict.
//
// The rule is a weighted ordinal average. The questionnaire carries the
// larger weight: PSS-10 is a validated instrument while the facial signal
// is experimental and advisory.
package fusion

import (
	"math"

	"github.com/okian/aula/internal/domain/model"
)

// Fusion weights. They sum to 1.
const (
	pssWeight    = 0.6
	facialWeight = 0.4
)

var ordinals = map[model.Level]float64{
	model.LevelLow:    1,
	model.LevelMedium: 2,
	model.LevelHigh:   3,
}

var fromOrdinal = map[int]model.Level{
	1: model.LevelLow,
	2: model.LevelMedium,
	3: model.LevelHigh,
}

// Fuse computes the final stress level. An unknown facial category
// substitutes the PSS ordinal, degenerating to the questionnaire verdict
// alone. The weighted score rounds half away from zero (1.8 -> 2 -> medium;
// 1.5 -> 2). Given levels in {low,medium,high} the result is always in
// range; a rounding result outside [1,3] defaults to medium.
func Fuse(pssLevel, facialLevel model.Level) model.Level {
	p, ok := ordinals[pssLevel]
	if !ok {
		return model.LevelMedium
	}
	f, ok := ordinals[facialLevel]
	if !ok {
		// Classifier unavailable or no facial signal.
		f = p
	}

	score := pssWeight*p + facialWeight*f
	rounded := int(math.Floor(score + 0.5))

	level, ok := fromOrdinal[rounded]
	if !ok {
		return model.LevelMedium
	}
	return level
}
