package pss

import "errors"

// Sentinel kinds for questionnaire errors.
var (
	ErrScoreOutOfRange = errors.New("pss score out of range")
)
