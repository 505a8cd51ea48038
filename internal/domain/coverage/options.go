package coverage

// Option applies a configuration option to the Evaluator.
type Option func(*Evaluator)

// WithRadius sets the coverage radius in meters.
func WithRadius(radius float64) Option {
	return func(e *Evaluator) {
		if radius > 0 {
			e.radius = radius
		}
	}
}
