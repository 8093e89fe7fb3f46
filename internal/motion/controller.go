package motion

import (
	"context"
	"log/slog"
	"sync"

	"github.com/mcoot/playfield/internal/dependencies/clock"
	"github.com/mcoot/playfield/internal/model"
)

// Sink receives every committed position change. It is called on the tick
// goroutine and must not block; network writes belong on their own goroutine.
type Sink interface {
	PositionChanged(pos model.Position)
}

// SinkFunc adapts a function to Sink
type SinkFunc func(pos model.Position)

func (f SinkFunc) PositionChanged(pos model.Position) { f(pos) }

// Advance applies one tick of movement for the held keys, clamped to the field.
// Opposite keys cancel out.
func Advance(pos model.Position, keys Keys, cfg Config) model.Position {
	var dx, dy float64
	if keys.Has(KeyUp) {
		dy -= cfg.Step
	}
	if keys.Has(KeyDown) {
		dy += cfg.Step
	}
	if keys.Has(KeyLeft) {
		dx -= cfg.Step
	}
	if keys.Has(KeyRight) {
		dx += cfg.Step
	}
	return model.Position{
		X: clamp(pos.X+dx, 0, cfg.MaxX()),
		Y: clamp(pos.Y+dy, 0, cfg.MaxY()),
	}
}

func clamp(v, lo, hi float64) float64 {
	return max(lo, min(v, hi))
}

// Controller owns the local player's position. Only the tick loop writes it.
type Controller struct {
	cfg    Config
	clock  clock.Clock
	sink   Sink
	logger *slog.Logger

	mu      sync.RWMutex
	pos     model.Position
	keys    Keys
	active  bool
	stopped bool

	stop     chan struct{}
	stopOnce sync.Once
}

// NewController creates an inactive controller at the spawn point
func NewController(cfg Config, clk clock.Clock, sink Sink, logger *slog.Logger) *Controller {
	return &Controller{
		cfg:    cfg,
		clock:  clk,
		sink:   sink,
		logger: logger.With(slog.String("component", "motion")),
		pos:    model.Position{X: cfg.SpawnX, Y: cfg.SpawnY},
		stop:   make(chan struct{}),
	}
}

// Activate starts accepting input
func (c *Controller) Activate() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.stopped {
		return
	}
	c.active = true
	c.logger.Debug("motion activated")
}

// Active reports whether input is accepted
func (c *Controller) Active() bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.active
}

// Press holds a key. Ignored while inactive.
func (c *Controller) Press(k Key) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if !c.active {
		return
	}
	c.keys = c.keys.With(k)
}

// Release lets go of a key
func (c *Controller) Release(k Key) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.keys = c.keys.Without(k)
}

// Toggle presses k if released and releases it if held
func (c *Controller) Toggle(k Key) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if !c.active {
		return
	}
	if c.keys.Has(k) {
		c.keys = c.keys.Without(k)
	} else {
		c.keys = c.keys.With(k)
	}
}

// ReleaseAll lets go of every key
func (c *Controller) ReleaseAll() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.keys = 0
}

// Held returns the currently held keys
func (c *Controller) Held() Keys {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.keys
}

// Position returns the authoritative local position
func (c *Controller) Position() model.Position {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.pos
}

// Tick applies one movement step and reports whether the position changed.
// A changed position is handed to the sink before Tick returns.
func (c *Controller) Tick() bool {
	c.mu.Lock()
	if !c.active || c.stopped || c.keys.Empty() {
		c.mu.Unlock()
		return false
	}
	next := Advance(c.pos, c.keys, c.cfg)
	if next == c.pos {
		c.mu.Unlock()
		return false
	}
	c.pos = next
	c.mu.Unlock()

	if c.sink != nil {
		c.sink.PositionChanged(next)
	}
	return true
}

// Run drives Tick at the configured interval until ctx is done or Stop is called
func (c *Controller) Run(ctx context.Context) {
	ticker := c.clock.NewTicker(c.cfg.TickInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-c.stop:
			return
		case <-ticker.C():
			c.Tick()
		}
	}
}

// Stop ends the tick loop and disables input. Safe to call more than once.
func (c *Controller) Stop() {
	c.stopOnce.Do(func() {
		c.mu.Lock()
		c.stopped = true
		c.active = false
		c.keys = 0
		c.mu.Unlock()
		close(c.stop)
	})
}
