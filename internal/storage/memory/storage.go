package memory

import (
	"context"
	"io"
	"log/slog"
	"sync"

	"github.com/mcoot/playfield/internal/dependencies/clock"
	"github.com/mcoot/playfield/internal/model"
	"github.com/mcoot/playfield/internal/storage"
)

// Storage is an in-memory implementation of the storage interface
type Storage struct {
	mu sync.RWMutex

	players map[model.PlayerID]*model.Player
	order   []model.PlayerID

	subscribers map[*subscription]struct{}

	clock  clock.Clock
	logger *slog.Logger
}

// Option configures a memory Storage
type Option func(*Storage)

// WithClock sets the clock used for commit timestamps
func WithClock(c clock.Clock) Option {
	return func(s *Storage) { s.clock = c }
}

// WithLogger sets the logger used to report dropped feed events
func WithLogger(logger *slog.Logger) Option {
	return func(s *Storage) { s.logger = logger }
}

// New creates a new in-memory storage instance
func New(opts ...Option) *Storage {
	s := &Storage{
		players:     make(map[model.PlayerID]*model.Player),
		subscribers: make(map[*subscription]struct{}),
		clock:       clock.New(),
		logger:      slog.New(slog.NewJSONHandler(io.Discard, nil)),
	}
	for _, opt := range opts {
		opt(s)
	}
	s.logger = s.logger.With(slog.String("component", "memory-storage"))
	return s
}

// Ensure Storage implements the interface
var _ storage.Storage = (*Storage)(nil)

func (s *Storage) InsertPlayer(ctx context.Context, player *model.Player) error {
	if err := player.Validate(); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.players[player.ID]; ok {
		return model.ErrPlayerExists
	}
	stored := *player
	s.players[player.ID] = &stored
	s.order = append(s.order, player.ID)
	s.publishLocked(model.InsertEvent(stored, s.clock.Now()))
	return nil
}

func (s *Storage) UpdatePlayerPosition(ctx context.Context, id model.PlayerID, update model.PositionUpdate) (*model.Player, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	existing, ok := s.players[id]
	if !ok {
		return nil, model.ErrPlayerNotFound
	}
	updated := existing.WithPosition(update.Position())
	s.players[id] = &updated
	s.publishLocked(model.UpdateEvent(updated, s.clock.Now()))

	result := updated
	return &result, nil
}

func (s *Storage) DeletePlayer(ctx context.Context, id model.PlayerID) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.players[id]; !ok {
		return nil
	}
	delete(s.players, id)
	for i, existing := range s.order {
		if existing == id {
			s.order = append(s.order[:i], s.order[i+1:]...)
			break
		}
	}
	s.publishLocked(model.DeleteEvent(id, s.clock.Now()))
	return nil
}

func (s *Storage) ListPlayers(ctx context.Context) ([]model.Player, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	result := make([]model.Player, 0, len(s.order))
	for _, id := range s.order {
		result = append(result, *s.players[id])
	}
	return result, nil
}

// Change feed

func (s *Storage) Subscribe(ctx context.Context) (storage.Subscription, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	sub := &subscription{
		owner:  s,
		events: make(chan model.ChangeEvent, storage.SubscriptionBuffer),
	}

	s.mu.Lock()
	s.subscribers[sub] = struct{}{}
	s.mu.Unlock()

	context.AfterFunc(ctx, func() { _ = sub.Close() })
	return sub, nil
}

// SubscriberCount returns the number of live subscriptions
func (s *Storage) SubscriberCount() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.subscribers)
}

// publishLocked fans an event out to every subscriber; callers hold s.mu
func (s *Storage) publishLocked(event model.ChangeEvent) {
	for sub := range s.subscribers {
		select {
		case sub.events <- event:
		default:
			s.logger.Warn("feed event dropped - subscriber buffer full",
				slog.String("kind", string(event.Kind)),
				slog.String("player_id", string(event.PlayerID())))
		}
	}
}

func (s *Storage) removeSubscriber(sub *subscription) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.subscribers[sub]; ok {
		delete(s.subscribers, sub)
		close(sub.events)
	}
}

type subscription struct {
	owner  *Storage
	events chan model.ChangeEvent
	once   sync.Once
}

func (sub *subscription) Events() <-chan model.ChangeEvent {
	return sub.events
}

func (sub *subscription) Close() error {
	sub.once.Do(func() {
		sub.owner.removeSubscriber(sub)
	})
	return nil
}
