package dedupe

// Option applies a configuration option to the Deduper.
type Option func(*Deduper)

// WithMinDistance sets the planar separation in degrees.
// Values <= 0 disable deduplication.
func WithMinDistance(minDistance float64) Option {
	return func(d *Deduper) {
		d.minDistance = minDistance
	}
}
