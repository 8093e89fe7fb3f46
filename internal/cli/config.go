package cli

import (
	"os"
)

// Config holds CLI configuration
type Config struct {
	ServerURL string
	Transport string
	Output    string
	Verbose   bool
}

// DefaultConfig returns a Config with default values
func DefaultConfig() *Config {
	return &Config{
		ServerURL: getEnvOrDefault("PLAYFIELD_SERVER", "http://localhost:8080"),
		Transport: getEnvOrDefault("PLAYFIELD_TRANSPORT", "sse"),
		Output:    "text",
		Verbose:   false,
	}
}

func getEnvOrDefault(key, defaultVal string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}
	return defaultVal
}
