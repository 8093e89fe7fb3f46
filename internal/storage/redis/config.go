package redis

import "time"

// Config holds Redis connection and behavior settings
type Config struct {
	// URL is the Redis connection URL (e.g., redis://localhost:6379)
	URL string

	// Pool settings
	PoolSize     int
	MinIdleConns int

	// PlayerTTL expires rows whose owner never sent a delete.
	// Refreshed on every write. Zero disables expiry.
	PlayerTTL time.Duration

	// MaxTxRetries bounds optimistic-lock retries for read-modify-write operations
	MaxTxRetries int
}

// DefaultConfig returns sensible defaults for Redis configuration
func DefaultConfig() Config {
	return Config{
		URL:          "redis://localhost:6379",
		PoolSize:     10,
		MinIdleConns: 2,
		PlayerTTL:    24 * time.Hour,
		MaxTxRetries: 5,
	}
}
