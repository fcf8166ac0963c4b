package queue

import "errors"

// ErrQueueClosed reports an enqueue after Close.
var ErrQueueClosed = errors.New("queue closed")
