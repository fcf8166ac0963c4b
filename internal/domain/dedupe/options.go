package dedupe

// defaultMaxSize bounds the filter at roughly a day of frames for a mid
// sized class before eviction starts.
const defaultMaxSize = 200_000

// Option configures the deduper.
type Option func(*boundedSet)

// WithMaxSize caps the number of tracked keys. Values below 1 keep the
// default.
func WithMaxSize(n int) Option {
	return func(d *boundedSet) {
		if n > 0 {
			d.maxSize = n
		}
	}
}
