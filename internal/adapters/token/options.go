package token

// Option applies a configuration option to the Memory token.
type Option func(*Memory)

// WithDecimals sets the decimals of one whole token.
func WithDecimals(d uint8) Option {
	return func(t *Memory) { t.decimals = d }
}

// WithSymbol sets the ticker.
func WithSymbol(s string) Option {
	return func(t *Memory) {
		if s != "" {
			t.symbol = s
		}
	}
}
