package repository

// Option applies a configuration option to the MemoryStore.
type Option func(*MemoryStore)

// WithDisplayNames maps city keys to the names shown to users. Keys without
// an entry are shown as-is.
func WithDisplayNames(names map[string]string) Option {
	return func(s *MemoryStore) {
		if names != nil {
			s.displayNames = names
		}
	}
}
