package roster

import (
	"log/slog"
	"sync"
	"sync/atomic"

	"github.com/mcoot/playfield/internal/feed"
	"github.com/mcoot/playfield/internal/model"
)

// Store publishes roster states for concurrent readers
type Store struct {
	state  atomic.Pointer[State]
	mu     sync.Mutex // serializes writers
	policy MissingUpdatePolicy
	logger *slog.Logger
}

// Option configures a Store
type Option func(*Store)

// WithMissingUpdatePolicy overrides the default UpsertMissing
func WithMissingUpdatePolicy(p MissingUpdatePolicy) Option {
	return func(s *Store) { s.policy = p }
}

// New creates an empty roster store
func New(logger *slog.Logger, opts ...Option) *Store {
	s := &Store{
		policy: UpsertMissing,
		logger: logger.With(slog.String("component", "roster")),
	}
	for _, opt := range opts {
		opt(s)
	}
	empty := NewState(nil)
	s.state.Store(&empty)
	return s
}

// ReplaceAll sets the baseline from a full snapshot
func (s *Store) ReplaceAll(players []model.Player) {
	next := NewState(players)
	s.mu.Lock()
	s.state.Store(&next)
	s.mu.Unlock()
	s.logger.Debug("roster baseline loaded", slog.Int("players", next.Len()))
}

// Apply reduces one change event into the roster
func (s *Store) Apply(event model.ChangeEvent) Outcome {
	if err := event.Validate(); err != nil {
		s.logger.Warn("ignoring invalid change event",
			slog.String("kind", string(event.Kind)),
			slog.Any("error", err))
		return Ignored
	}

	s.mu.Lock()
	next, outcome := Reduce(*s.state.Load(), event, s.policy)
	if outcome != Ignored {
		s.state.Store(&next)
	}
	s.mu.Unlock()

	s.logger.Debug("change applied",
		slog.String("kind", string(event.Kind)),
		slog.String("player_id", string(event.PlayerID())),
		slog.String("outcome", outcome.String()))
	return outcome
}

// Handler returns the feed handler that drives this store
func (s *Store) Handler() feed.Handler {
	return func(event model.ChangeEvent) {
		s.Apply(event)
	}
}

// State returns the current immutable state
func (s *Store) State() State {
	return *s.state.Load()
}

// Snapshot returns a copy of the roster in arrival order
func (s *Store) Snapshot() []model.Player {
	return s.state.Load().Players()
}

// Get looks up a player by ID
func (s *Store) Get(id model.PlayerID) (model.Player, bool) {
	return s.state.Load().Get(id)
}

// Len returns the number of players
func (s *Store) Len() int {
	return s.state.Load().Len()
}
