package claims

type options struct {
	expected int
}

// Option applies a configuration option to the registry.
type Option func(*options)

// WithExpectedSize preallocates room for n addresses, typically the number
// of leaves in the distribution.
func WithExpectedSize(n int) Option {
	return func(o *options) {
		if n > 0 {
			o.expected = n
		}
	}
}
