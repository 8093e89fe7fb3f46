// Package motion moves the local player from held direction keys.
package motion

import (
	"errors"
	"fmt"
	"time"
)

// Config describes the playfield and movement cadence
type Config struct {
	FieldWidth   float64
	FieldHeight  float64
	Size         float64
	Step         float64
	SpawnX       float64
	SpawnY       float64
	TickInterval time.Duration
}

// DefaultConfig returns an 800x600 field, 30px player spawning at (400,300)
// moving 5px per tick at roughly 60Hz
func DefaultConfig() Config {
	return Config{
		FieldWidth:   800,
		FieldHeight:  600,
		Size:         30,
		Step:         5,
		SpawnX:       400,
		SpawnY:       300,
		TickInterval: 16 * time.Millisecond,
	}
}

// MaxX is the largest x a player may occupy
func (c Config) MaxX() float64 {
	return c.FieldWidth - c.Size
}

// MaxY is the largest y a player may occupy
func (c Config) MaxY() float64 {
	return c.FieldHeight - c.Size
}

// Validate checks the config describes a usable field
func (c Config) Validate() error {
	if c.Size <= 0 {
		return errors.New("motion: size must be positive")
	}
	if c.FieldWidth < c.Size || c.FieldHeight < c.Size {
		return fmt.Errorf("motion: field %vx%v smaller than player size %v", c.FieldWidth, c.FieldHeight, c.Size)
	}
	if c.Step <= 0 {
		return errors.New("motion: step must be positive")
	}
	if c.TickInterval <= 0 {
		return errors.New("motion: tick interval must be positive")
	}
	if c.SpawnX < 0 || c.SpawnX > c.MaxX() || c.SpawnY < 0 || c.SpawnY > c.MaxY() {
		return fmt.Errorf("motion: spawn (%v,%v) outside field", c.SpawnX, c.SpawnY)
	}
	return nil
}
