package session

import (
	"time"

	"github.com/mcoot/playfield/internal/motion"
	"github.com/mcoot/playfield/internal/roster"
)

// Config holds configuration for a Field
type Config struct {
	// Name is the requested display name; blank means generated
	Name string
	// Motion describes the playfield and movement cadence
	Motion motion.Config
	// WriteTimeout bounds each position write-back
	WriteTimeout time.Duration
	// LeaveTimeout bounds the best-effort delete issued on teardown
	LeaveTimeout time.Duration
	// MissingUpdatePolicy decides how the roster treats UPDATEs for unknown IDs
	MissingUpdatePolicy roster.MissingUpdatePolicy
}

// DefaultConfig returns the default Field configuration
func DefaultConfig() Config {
	return Config{
		Motion:              motion.DefaultConfig(),
		WriteTimeout:        5 * time.Second,
		LeaveTimeout:        3 * time.Second,
		MissingUpdatePolicy: roster.UpsertMissing,
	}
}
