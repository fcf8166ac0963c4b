// Package pss maps Perceived Stress Scale questionnaire scores to stress
// levels. PSS-10 yields an integer in [0,40].
package pss

import (
	"fmt"

	"github.com/okian/aula/internal/domain/model"
)

// Score bounds and band edges, inclusive on the low end of each band.
const (
	MinScore = 0
	MaxScore = 40

	lowUpper    = 13
	mediumUpper = 26
)

// Categorize bands a questionnaire score: [0,13] low, [14,26] medium,
// [27,40] high. Out-of-range scores are a precondition violation and are
// rejected, never clamped.
func Categorize(score int) (model.Level, error) {
	if score < MinScore || score > MaxScore {
		return "", fmt.Errorf("%w: %d", ErrScoreOutOfRange, score)
	}
	switch {
	case score <= lowUpper:
		return model.LevelLow, nil
	case score <= mediumUpper:
		return model.LevelMedium, nil
	default:
		return model.LevelHigh, nil
	}
}
