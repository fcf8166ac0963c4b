// Package dedupe provides best-effort duplicate suppression for emotion
// frames. The filter is bounded: once full it evicts an arbitrary entry,
// trading exactness for a hard memory ceiling. The persistence layer's
// primary key remains the authoritative dedupe line.
package dedupe

import (
	"strconv"
	"sync"
)

// Deduper tracks recently seen frame keys.
type Deduper interface {
	// SeenAndRecord reports whether key was already recorded and records it
	// if not. The check and record are atomic.
	SeenAndRecord(key string) bool
	// Unrecord forgets key so a retried frame is not rejected.
	Unrecord(key string)
	// Size returns the number of tracked keys.
	Size() int
}

// FrameKey builds the dedupe key for a frame: session scoped to capture
// instant. CapturedAt uses full float precision so distinct instants never
// collide.
func FrameKey(sessionID string, capturedAt float64) string {
	return sessionID + "|" + strconv.FormatFloat(capturedAt, 'g', -1, 64)
}

type boundedSet struct {
	mu      sync.Mutex
	seen    map[string]struct{}
	maxSize int
}

// New returns a bounded in-memory deduper.
func New(opts ...Option) Deduper {
	d := &boundedSet{
		seen:    make(map[string]struct{}),
		maxSize: defaultMaxSize,
	}
	for _, opt := range opts {
		opt(d)
	}
	return d
}

func (d *boundedSet) SeenAndRecord(key string) bool {
	d.mu.Lock()
	defer d.mu.Unlock()

	if _, ok := d.seen[key]; ok {
		return true
	}
	if len(d.seen) >= d.maxSize {
		// Evict one arbitrary entry; map iteration order is as good a
		// victim policy as any at this scale.
		for victim := range d.seen {
			delete(d.seen, victim)
			break
		}
	}
	d.seen[key] = struct{}{}
	return false
}

func (d *boundedSet) Unrecord(key string) {
	d.mu.Lock()
	defer d.mu.Unlock()
	delete(d.seen, key)
}

func (d *boundedSet) Size() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return len(d.seen)
}
