package classify

import "errors"

// Sentinel kinds for classifier errors.
var (
	ErrUnavailable     = errors.New("classifier unavailable")
	ErrInvalidArtifact = errors.New("invalid classifier artifact")
	ErrBadFeatures     = errors.New("feature vector mismatch")
)
