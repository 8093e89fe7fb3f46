// Package session runs one client's participation in the shared playfield:
// joining, moving, observing everyone else and leaving.
package session

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"

	"github.com/mcoot/playfield/internal/dependencies/clock"
	"github.com/mcoot/playfield/internal/dependencies/random"
	"github.com/mcoot/playfield/internal/feed"
	"github.com/mcoot/playfield/internal/model"
	"github.com/mcoot/playfield/internal/motion"
	"github.com/mcoot/playfield/internal/reconcile"
	"github.com/mcoot/playfield/internal/roster"
)

// Store is the subset of the player store a Field writes to and snapshots from
type Store interface {
	InsertPlayer(ctx context.Context, player *model.Player) error
	UpdatePlayerPosition(ctx context.Context, id model.PlayerID, update model.PositionUpdate) (*model.Player, error)
	DeletePlayer(ctx context.Context, id model.PlayerID) error
	ListPlayers(ctx context.Context) ([]model.Player, error)
}

// Entry is one line of the player list
type Entry struct {
	ID     model.PlayerID
	Name   string
	Color  string
	IsSelf bool
}

// Label is the display name with a "(You)" marker on the local player
func (e Entry) Label() string {
	if e.IsSelf {
		return e.Name + " (You)"
	}
	return e.Name
}

// Field owns the join/leave state machine and everything hanging off it
type Field struct {
	cfg      Config
	store    Store
	identity Identity
	logger   *slog.Logger

	feed       *feed.Client
	roster     *roster.Store
	motion     *motion.Controller
	reconciler *reconcile.Reconciler

	mu       sync.Mutex
	phase    Phase
	selfID   model.PlayerID
	tornDown bool

	// ctx ends at teardown; write-backs derive from it
	ctx    context.Context
	cancel context.CancelFunc

	writes    sync.WaitGroup
	closeOnce sync.Once
}

// New creates an unjoined Field. Nothing touches the network until Start or Join.
func New(
	cfg Config,
	store Store,
	source feed.Source,
	clk clock.Clock,
	rnd random.Random,
	logger *slog.Logger,
) *Field {
	ctx, cancel := context.WithCancel(context.Background())
	logger = logger.With(slog.String("component", "session"))

	f := &Field{
		cfg:      cfg,
		store:    store,
		identity: NewIdentity(cfg.Name, rnd),
		logger:   logger,
		feed:     feed.NewClient(source, logger),
		roster:   roster.New(logger, roster.WithMissingUpdatePolicy(cfg.MissingUpdatePolicy)),
		phase:    PhaseUnjoined,
		ctx:      ctx,
		cancel:   cancel,
	}
	f.motion = motion.NewController(cfg.Motion, clk, motion.SinkFunc(f.writeBack), logger)
	f.reconciler = reconcile.New(f.roster, f.motion, f)
	return f
}

// Start subscribes to the change feed, loads the baseline snapshot, then joins.
// A feed failure only degrades the roster and is not returned.
func (f *Field) Start(ctx context.Context) error {
	err := f.feed.Subscribe(f.ctx, f.roster.Handler(), feed.WithBaseline(f.loadBaseline))
	if err != nil {
		f.logger.Error("change feed unavailable, roster will not update", slog.Any("error", err))
	}
	return f.Join(ctx)
}

func (f *Field) loadBaseline(ctx context.Context) error {
	players, err := f.store.ListPlayers(ctx)
	if err != nil {
		return fmt.Errorf("list players: %w", err)
	}
	f.roster.ReplaceAll(players)
	return nil
}

// Join inserts the local player. On failure the field returns to Unjoined
// and may be joined again; nothing retries automatically.
func (f *Field) Join(ctx context.Context) error {
	f.mu.Lock()
	switch {
	case f.tornDown:
		f.mu.Unlock()
		return model.ErrAlreadyLeft
	case f.phase == PhaseJoining:
		f.mu.Unlock()
		return model.ErrJoinInFlight
	case f.phase == PhaseJoined:
		f.mu.Unlock()
		return model.ErrAlreadyJoined
	}
	f.phase = PhaseJoining
	f.mu.Unlock()

	player := f.identity.Player(NewPlayerID(), f.motion.Position())
	logger := f.logger.With(slog.String("player_id", string(player.ID)))
	logger.Info("joining", slog.String("name", player.Name), slog.String("color", player.Color))

	err := f.store.InsertPlayer(ctx, &player)

	f.mu.Lock()
	if f.tornDown {
		// Close ran while the insert was in flight
		f.phase = PhaseLeft
		f.mu.Unlock()
		if err == nil {
			logger.Info("join completed after teardown, removing player")
			f.deleteDetached(player.ID)
		}
		return model.ErrAlreadyLeft
	}
	if err != nil {
		f.phase = PhaseUnjoined
		f.mu.Unlock()
		logger.Error("join failed", slog.Any("error", err))
		return fmt.Errorf("insert player: %w", err)
	}
	f.phase = PhaseJoined
	f.selfID = player.ID
	f.mu.Unlock()

	f.motion.Activate()
	go f.motion.Run(f.ctx)

	logger.Info("joined")
	return nil
}

// Close leaves the playfield. It never waits on the network; the delete of the
// local row is best effort. Safe to call more than once and from any phase.
func (f *Field) Close() {
	f.closeOnce.Do(func() {
		f.mu.Lock()
		f.tornDown = true
		prev := f.phase
		selfID := f.selfID
		switch prev {
		case PhaseJoined, PhaseJoining:
			f.phase = PhaseLeaving
		default:
			f.phase = PhaseLeft
		}
		f.mu.Unlock()

		f.motion.Stop()
		f.cancel()
		f.feed.Unsubscribe()

		if prev == PhaseJoined {
			f.deleteDetached(selfID)
			f.mu.Lock()
			f.phase = PhaseLeft
			f.mu.Unlock()
		}

		f.logger.Info("left", slog.String("from_phase", prev.String()))
	})
}

// deleteDetached removes id in the background on a context that outlives teardown
func (f *Field) deleteDetached(id model.PlayerID) {
	f.writes.Add(1)
	go func() {
		defer f.writes.Done()
		ctx, cancel := context.WithTimeout(context.Background(), f.cfg.LeaveTimeout)
		defer cancel()
		if err := f.store.DeletePlayer(ctx, id); err != nil {
			f.logger.Warn("leave delete failed",
				slog.String("player_id", string(id)),
				slog.Any("error", err))
		}
	}()
}

// writeBack is the motion sink. Each changed position gets its own write with
// no ordering between them, so the store sees last-write-wins.
func (f *Field) writeBack(pos model.Position) {
	f.mu.Lock()
	if f.phase != PhaseJoined {
		f.mu.Unlock()
		return
	}
	id := f.selfID
	f.writes.Add(1)
	f.mu.Unlock()

	go func() {
		defer f.writes.Done()
		ctx, cancel := context.WithTimeout(f.ctx, f.cfg.WriteTimeout)
		defer cancel()
		_, err := f.store.UpdatePlayerPosition(ctx, id, model.PositionUpdate{X: pos.X, Y: pos.Y})
		switch {
		case err == nil:
		case errors.Is(err, context.Canceled):
			// teardown
		default:
			f.logger.Warn("position write failed",
				slog.String("player_id", string(id)),
				slog.Any("error", err))
		}
	}()
}

// Wait blocks until every background write has finished. Call after Close.
func (f *Field) Wait() {
	f.writes.Wait()
}

// Phase returns the current lifecycle phase
func (f *Field) Phase() Phase {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.phase
}

// SelfID returns the local player's ID once the join is acknowledged
func (f *Field) SelfID() (model.PlayerID, bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.selfID, f.phase == PhaseJoined
}

// Identity returns the local player's name and color
func (f *Field) Identity() Identity {
	return f.identity
}

// Motion exposes the controller for input
func (f *Field) Motion() *motion.Controller {
	return f.motion
}

// Roster exposes the merged roster for reading
func (f *Field) Roster() *roster.Store {
	return f.roster
}

// FeedDone closes when the change feed stops delivering
func (f *Field) FeedDone() <-chan struct{} {
	return f.feed.Done()
}

// Frame returns the reconciled sprites for this instant
func (f *Field) Frame() []reconcile.Sprite {
	return f.reconciler.Frame()
}

// Players returns the player list in roster order with the local player marked
func (f *Field) Players() []Entry {
	sprites := f.Frame()
	entries := make([]Entry, len(sprites))
	for i, s := range sprites {
		entries[i] = Entry{ID: s.ID, Name: s.Name, Color: s.Color, IsSelf: s.IsSelf}
	}
	return entries
}
