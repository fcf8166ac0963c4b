// Package model contains domain models passed between layers.
package model

import (
	"strings"
	"time"
)

// Level is the three-step stress category shared by every pipeline stage.
type Level string

// Stress levels. LevelUnknown marks a facial category with no frames behind it
// and never appears as a final verdict.
const (
	LevelLow     Level = "low"
	LevelMedium  Level = "medium"
	LevelHigh    Level = "high"
	LevelUnknown Level = "unknown"
)

// EmotionLabels is the fixed emotion vocabulary, in tie-break order.
// Frames may carry extra keys; only these labels are aggregated.
var EmotionLabels = []string{
	"angry", "disgusted", "fearful", "happy", "sad", "surprised", "neutral",
}

// levelAliases folds stored label variants into canonical levels. The legacy
// deployments wrote Spanish labels, so both vocabularies are recognized.
var levelAliases = map[string]Level{
	"low":    LevelLow,
	"bajo":   LevelLow,
	"medium": LevelMedium,
	"medio":  LevelMedium,
	"high":   LevelHigh,
	"alto":   LevelHigh,
}

// ParseLevel normalizes a raw stored label (trim + case-fold) and resolves it
// to a canonical Level. Unrecognized labels report ok=false and must be
// dropped by callers rather than counted into an unrelated bucket.
func ParseLevel(raw string) (Level, bool) {
	l, ok := levelAliases[strings.ToLower(strings.TrimSpace(raw))]
	return l, ok
}

// EmotionFrame is one webcam sample: per-label probabilities tagged by
// session. Immutable once ingested; (SessionID, CapturedAt) is the key.
type EmotionFrame struct {
	UserID     int64              // student identifier
	SessionID  string             // capture session grouping key
	Emotions   map[string]float64 // label -> probability in [0,1]
	CapturedAt float64            // client capture time, epoch seconds
}

// Evaluation is the fused verdict for one (user, session). Append-only:
// created exactly once per submitted session, never mutated.
type Evaluation struct {
	UserID        int64
	SessionID     string
	Course        string // course scope copied from the student at submit time
	PSSScore      int
	PSSLevel      Level
	FacialLevel   Level // may be LevelUnknown when the session had no frames
	FinalLevel    Level
	MeanEmotions  map[string]float64
	NegativeRatio float64
	CreatedAt     time.Time
}

// Student is a read-only row from the external user directory.
type Student struct {
	ID     int64  `json:"id"`
	Name   string `json:"name"`
	Email  string `json:"email"`
	Course string `json:"course"`
}

// CategoryCount is one bucket of a stress-level distribution.
type CategoryCount struct {
	Category Level `json:"category"`
	Count    int   `json:"count"`
}

// Distribution summarizes every evaluation on record, not deduplicated
// by student.
type Distribution struct {
	TotalEvaluations int             `json:"total_evaluations"`
	Buckets          []CategoryCount `json:"distribution"`
}

// ClassDistribution summarizes the latest evaluation per student within one
// course scope, alongside the enrollment denominator.
type ClassDistribution struct {
	TotalEvaluated int             `json:"total_evaluated"`
	TotalEnrolled  int             `json:"total_enrolled"`
	Buckets        []CategoryCount `json:"distribution"`
}

// HistoryPoint is one row of a student's evaluation timeline.
type HistoryPoint struct {
	Date                 string  `json:"date"`
	PSSScore             int     `json:"pss_score"`
	NegativeRatioPercent float64 `json:"negative_ratio"`
	FinalLevel           Level   `json:"final_category"`
}

// SubmitResult is the response shape of an evaluation submission.
type SubmitResult struct {
	PSSScore      int                `json:"pss_score"`
	PSSLevel      Level              `json:"pss_category"`
	FacialLevel   Level              `json:"facial_category"`
	FinalLevel    Level              `json:"final_category"`
	NegativeRatio float64            `json:"negative_ratio"`
	MeanEmotions  map[string]float64 `json:"mean_emotion_vector"`
}
