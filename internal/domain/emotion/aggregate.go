// Package emotion reduces a session's frame stream into the aggregate
// features consumed by categorization and classification.
package emotion

import (
	"github.com/okian/aula/internal/domain/model"
)

// RatioMode selects which negative-affect ratio definition is active.
// Both definitions appear across deployments and are not numerically
// equivalent, so the choice is explicit configuration, never a guess.
type RatioMode string

const (
	// RatioDominant counts frames whose highest-probability label is in
	// the negative set {angry, disgusted, fearful}.
	RatioDominant RatioMode = "dominant"

	// RatioThresholdSum counts frames where the probability mass over
	// {angry, fearful, sad, disgusted} exceeds a fixed threshold.
	RatioThresholdSum RatioMode = "threshold_sum"
)

// Probability-mass threshold for RatioThresholdSum.
const sumThreshold = 0.1

// dominantNegative is the negative set for RatioDominant.
var dominantNegative = map[string]bool{
	"angry":     true,
	"disgusted": true,
	"fearful":   true,
}

// thresholdNegative is the label set summed for RatioThresholdSum.
var thresholdNegative = []string{"angry", "fearful", "sad", "disgusted"}

// Option applies a configuration option to the Aggregator.
type Option func(*Aggregator)

// WithRatioMode selects the negative-ratio definition.
func WithRatioMode(mode RatioMode) Option {
	return func(a *Aggregator) {
		switch mode {
		case RatioDominant, RatioThresholdSum:
			a.mode = mode
		}
	}
}

// Result is the aggregate of one session's frames.
type Result struct {
	// MeanEmotions holds the arithmetic mean per fixed label. Components
	// each lie in [0,1] but are independent probabilities, not a
	// distribution; they need not sum to 1.
	MeanEmotions map[string]float64

	// NegativeRatio is the fraction of frames reflecting negative affect
	// under the configured mode, in [0,1].
	NegativeRatio float64

	// Frames is the number of frames observed.
	Frames int
}

// Aggregator computes session aggregates over the fixed label set.
type Aggregator struct {
	mode RatioMode
}

// New creates an Aggregator. The default ratio mode is RatioDominant.
func New(opts ...Option) *Aggregator {
	a := &Aggregator{mode: RatioDominant}
	for _, opt := range opts {
		opt(a)
	}
	return a
}

// Mode reports the active ratio definition.
func (a *Aggregator) Mode() RatioMode {
	return a.mode
}

// Aggregate reduces the given frames. Zero frames is a normal state, not an
// error: the result is a zero vector and ratio 0. Keys outside the fixed
// label set are ignored; missing labels read as 0.
func (a *Aggregator) Aggregate(frames []model.EmotionFrame) Result {
	mean := make(map[string]float64, len(model.EmotionLabels))
	for _, label := range model.EmotionLabels {
		mean[label] = 0
	}
	if len(frames) == 0 {
		return Result{MeanEmotions: mean}
	}

	negative := 0
	for i := range frames {
		v := frames[i].Emotions
		for _, label := range model.EmotionLabels {
			mean[label] += v[label]
		}
		if a.frameIsNegative(v) {
			negative++
		}
	}

	n := float64(len(frames))
	for _, label := range model.EmotionLabels {
		mean[label] /= n
	}

	return Result{
		MeanEmotions:  mean,
		NegativeRatio: float64(negative) / n,
		Frames:        len(frames),
	}
}

func (a *Aggregator) frameIsNegative(v map[string]float64) bool {
	if a.mode == RatioThresholdSum {
		sum := 0.0
		for _, label := range thresholdNegative {
			sum += v[label]
		}
		return sum > sumThreshold
	}
	return dominantNegative[dominantLabel(v)]
}

// dominantLabel returns the highest-probability label over the fixed set.
// Ties resolve to the first maximum in label order.
func dominantLabel(v map[string]float64) string {
	best := model.EmotionLabels[0]
	bestVal := v[best]
	for _, label := range model.EmotionLabels[1:] {
		if v[label] > bestVal {
			best = label
			bestVal = v[label]
		}
	}
	return best
}
