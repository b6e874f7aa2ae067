package leaderboard

type settings struct {
	capacity int
}

func newSettings(opts []Option) settings {
	s := settings{capacity: DefaultCapacity}
	for _, opt := range opts {
		opt(&s)
	}
	return s
}

// Option applies a configuration option to a board.
type Option func(*settings)

// WithCapacity sets the maximum number of rows kept.
func WithCapacity(n int) Option {
	return func(s *settings) {
		if n > 0 {
			s.capacity = n
		}
	}
}
