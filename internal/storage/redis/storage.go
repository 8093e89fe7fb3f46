package redis

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/mcoot/playfield/internal/model"
	"github.com/mcoot/playfield/internal/storage"
)

// Storage is a Redis-backed implementation of the storage interface.
// Rows are JSON strings; the change feed is a pub/sub channel published
// in the same MULTI block as the mutation.
type Storage struct {
	client *redis.Client
	cfg    Config
	logger *slog.Logger
	now    func() time.Time
}

// New creates a new Redis storage instance
func New(cfg Config, logger *slog.Logger) (*Storage, error) {
	opts, err := redis.ParseURL(cfg.URL)
	if err != nil {
		return nil, err
	}

	opts.PoolSize = cfg.PoolSize
	opts.MinIdleConns = cfg.MinIdleConns

	client := redis.NewClient(opts)

	// Verify connection
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := client.Ping(ctx).Err(); err != nil {
		return nil, err
	}

	return NewWithClient(client, cfg, logger), nil
}

// NewWithClient creates a Redis storage with an existing client (for testing)
func NewWithClient(client *redis.Client, cfg Config, logger *slog.Logger) *Storage {
	if logger == nil {
		logger = slog.New(slog.NewJSONHandler(io.Discard, nil))
	}
	if cfg.MaxTxRetries <= 0 {
		cfg.MaxTxRetries = 1
	}
	return &Storage{
		client: client,
		cfg:    cfg,
		logger: logger.With(slog.String("component", "redis-storage")),
		now:    time.Now,
	}
}

// Close closes the Redis connection
func (s *Storage) Close() error {
	return s.client.Close()
}

// Ensure Storage implements the interface
var _ storage.Storage = (*Storage)(nil)

func (s *Storage) InsertPlayer(ctx context.Context, player *model.Player) error {
	if err := player.Validate(); err != nil {
		return err
	}
	data, err := json.Marshal(player)
	if err != nil {
		return err
	}
	event, err := json.Marshal(model.InsertEvent(*player, s.now()))
	if err != nil {
		return err
	}

	key := playerKey(player.ID)
	return s.withRetry(ctx, func(tx *redis.Tx) error {
		exists, err := tx.Exists(ctx, key).Result()
		if err != nil {
			return err
		}
		if exists > 0 {
			return model.ErrPlayerExists
		}
		seq, err := tx.Incr(ctx, sequenceKey()).Result()
		if err != nil {
			return err
		}

		_, err = tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
			pipe.Set(ctx, key, data, s.cfg.PlayerTTL)
			pipe.ZAdd(ctx, playerOrderKey(), redis.Z{Score: float64(seq), Member: string(player.ID)})
			pipe.Publish(ctx, changesChannel(), event)
			return nil
		})
		return err
	}, key)
}

func (s *Storage) UpdatePlayerPosition(ctx context.Context, id model.PlayerID, update model.PositionUpdate) (*model.Player, error) {
	key := playerKey(id)
	var result model.Player

	err := s.withRetry(ctx, func(tx *redis.Tx) error {
		data, err := tx.Get(ctx, key).Bytes()
		if err != nil {
			if errors.Is(err, redis.Nil) {
				return model.ErrPlayerNotFound
			}
			return err
		}

		var existing model.Player
		if err := json.Unmarshal(data, &existing); err != nil {
			return err
		}
		updated := existing.WithPosition(update.Position())

		row, err := json.Marshal(updated)
		if err != nil {
			return err
		}
		event, err := json.Marshal(model.UpdateEvent(updated, s.now()))
		if err != nil {
			return err
		}

		_, err = tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
			pipe.Set(ctx, key, row, s.cfg.PlayerTTL)
			pipe.Publish(ctx, changesChannel(), event)
			return nil
		})
		if err != nil {
			return err
		}
		result = updated
		return nil
	}, key)
	if err != nil {
		return nil, err
	}
	return &result, nil
}

func (s *Storage) DeletePlayer(ctx context.Context, id model.PlayerID) error {
	key := playerKey(id)
	event, err := json.Marshal(model.DeleteEvent(id, s.now()))
	if err != nil {
		return err
	}

	return s.withRetry(ctx, func(tx *redis.Tx) error {
		exists, err := tx.Exists(ctx, key).Result()
		if err != nil {
			return err
		}
		if exists == 0 {
			// Row already gone (or expired); drop any stale index entry quietly
			return tx.ZRem(ctx, playerOrderKey(), string(id)).Err()
		}

		_, err = tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
			pipe.Del(ctx, key)
			pipe.ZRem(ctx, playerOrderKey(), string(id))
			pipe.Publish(ctx, changesChannel(), event)
			return nil
		})
		return err
	}, key)
}

func (s *Storage) ListPlayers(ctx context.Context) ([]model.Player, error) {
	ids, err := s.client.ZRange(ctx, playerOrderKey(), 0, -1).Result()
	if err != nil {
		return nil, err
	}
	if len(ids) == 0 {
		return []model.Player{}, nil
	}

	keys := make([]string, len(ids))
	for i, id := range ids {
		keys[i] = playerKey(model.PlayerID(id))
	}

	values, err := s.client.MGet(ctx, keys...).Result()
	if err != nil {
		return nil, err
	}

	players := make([]model.Player, 0, len(values))
	for _, val := range values {
		if val == nil {
			continue // Row may have expired
		}
		raw, ok := val.(string)
		if !ok {
			continue
		}
		var player model.Player
		if err := json.Unmarshal([]byte(raw), &player); err != nil {
			continue // Skip invalid data
		}
		players = append(players, player)
	}
	return players, nil
}

// Change feed

func (s *Storage) Subscribe(ctx context.Context) (storage.Subscription, error) {
	pubsub := s.client.Subscribe(ctx, changesChannel())

	// Wait for the subscription to be confirmed so no publish after return is missed
	if _, err := pubsub.Receive(ctx); err != nil {
		_ = pubsub.Close()
		return nil, err
	}

	sub := &subscription{
		pubsub: pubsub,
		events: make(chan model.ChangeEvent, storage.SubscriptionBuffer),
		done:   make(chan struct{}),
		logger: s.logger,
	}
	go sub.run(ctx)
	return sub, nil
}

// withRetry runs fn in a WATCH transaction, retrying on optimistic lock failure
func (s *Storage) withRetry(ctx context.Context, fn func(tx *redis.Tx) error, keys ...string) error {
	var err error
	for range s.cfg.MaxTxRetries {
		err = s.client.Watch(ctx, fn, keys...)
		if !errors.Is(err, redis.TxFailedErr) {
			return err
		}
	}
	return err
}

type subscription struct {
	pubsub *redis.PubSub
	events chan model.ChangeEvent
	done   chan struct{}
	once   sync.Once
	logger *slog.Logger
}

func (sub *subscription) run(ctx context.Context) {
	defer close(sub.events)
	messages := sub.pubsub.Channel()
	for {
		select {
		case msg, ok := <-messages:
			if !ok {
				return
			}
			var event model.ChangeEvent
			if err := json.Unmarshal([]byte(msg.Payload), &event); err != nil {
				sub.logger.Warn("feed event undecodable", slog.Any("error", err))
				continue
			}
			select {
			case sub.events <- event:
			case <-sub.done:
				return
			}
		case <-sub.done:
			return
		case <-ctx.Done():
			_ = sub.Close()
			return
		}
	}
}

func (sub *subscription) Events() <-chan model.ChangeEvent {
	return sub.events
}

func (sub *subscription) Close() error {
	var err error
	sub.once.Do(func() {
		close(sub.done)
		err = sub.pubsub.Close()
	})
	return err
}
