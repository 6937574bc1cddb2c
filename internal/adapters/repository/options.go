package repository

// defaultMaxTxnRetries bounds how often a conflicting read-modify-write is
// re-run before the transaction surfaces ErrTxnExhausted.
const defaultMaxTxnRetries = 5

// Option applies a configuration option to a store.
type Option func(*storeConfig)

// storeConfig carries options shared by the store implementations.
type storeConfig struct {
	maxTxnRetries int
}

func newStoreConfig(opts ...Option) storeConfig {
	cfg := storeConfig{maxTxnRetries: defaultMaxTxnRetries}

	for _, opt := range opts {
		opt(&cfg)
	}

	return cfg
}

// WithMaxTxnRetries sets the retry budget for conflicting transactions.
func WithMaxTxnRetries(n int) Option {
	return func(c *storeConfig) {
		if n > 0 {
			c.maxTxnRetries = n
		}
	}
}
