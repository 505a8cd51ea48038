package costmatrix

import "github.com/okian/aedplacement/pkg/logger"

// Option applies a configuration option to the Builder.
type Option func(*Builder)

// WithDispatcher runs cell resolution through d, typically a worker pool.
func WithDispatcher(d Dispatcher) Option {
	return func(b *Builder) {
		if d != nil {
			b.dispatcher = d
		}
	}
}

// WithLogger sets a custom logger for the builder.
func WithLogger(l logger.Logger) Option {
	return func(b *Builder) {
		if l != nil {
			b.logger = l
		}
	}
}
