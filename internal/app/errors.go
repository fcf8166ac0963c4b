package service

import "errors"

// Sentinel kinds for service errors.
var (
	ErrNotStarted     = errors.New("service not started")
	ErrDuplicateFrame = errors.New("duplicate frame")
	ErrQueueFull      = errors.New("ingest queue full")
	ErrUnknownStudent = errors.New("unknown student")
)
