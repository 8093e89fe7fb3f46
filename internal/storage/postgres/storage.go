package postgres

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"sync"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/mcoot/playfield/internal/model"
	"github.com/mcoot/playfield/internal/storage"
)

// notifyChannel is the LISTEN channel fed by the players trigger
const notifyChannel = "players_changes"

// uniqueViolation is the PostgreSQL error code for unique_violation
const uniqueViolation = "23505"

// Storage is a Postgres-backed implementation of the storage interface.
// The change feed comes from a row trigger calling pg_notify.
type Storage struct {
	pool   *pgxpool.Pool
	logger *slog.Logger
}

// New connects a pool and, if configured, applies migrations
func New(ctx context.Context, cfg Config, logger *slog.Logger) (*Storage, error) {
	if cfg.AutoMigrate {
		if err := Migrate(ctx, cfg.URL); err != nil {
			return nil, err
		}
	}

	poolCfg, err := pgxpool.ParseConfig(cfg.URL)
	if err != nil {
		return nil, fmt.Errorf("parse postgres url: %w", err)
	}
	if cfg.MaxConns > 0 {
		poolCfg.MaxConns = cfg.MaxConns
	}

	pool, err := pgxpool.NewWithConfig(ctx, poolCfg)
	if err != nil {
		return nil, err
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, err
	}

	return NewWithPool(pool, logger), nil
}

// NewWithPool creates a Postgres storage over an existing pool (for testing)
func NewWithPool(pool *pgxpool.Pool, logger *slog.Logger) *Storage {
	if logger == nil {
		logger = slog.New(slog.NewJSONHandler(io.Discard, nil))
	}
	return &Storage{
		pool:   pool,
		logger: logger.With(slog.String("component", "postgres-storage")),
	}
}

// Close releases the pool
func (s *Storage) Close() error {
	s.pool.Close()
	return nil
}

// Ensure Storage implements the interface
var _ storage.Storage = (*Storage)(nil)

func (s *Storage) InsertPlayer(ctx context.Context, player *model.Player) error {
	if err := player.Validate(); err != nil {
		return err
	}

	_, err := s.pool.Exec(ctx,
		"INSERT INTO players (id, x, y, color, name) VALUES ($1, $2, $3, $4, $5)",
		string(player.ID), player.X, player.Y, player.Color, player.Name)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == uniqueViolation {
			return model.ErrPlayerExists
		}
		return err
	}
	return nil
}

func (s *Storage) UpdatePlayerPosition(ctx context.Context, id model.PlayerID, update model.PositionUpdate) (*model.Player, error) {
	row := s.pool.QueryRow(ctx,
		"UPDATE players SET x = $2, y = $3 WHERE id = $1 RETURNING id, x, y, color, name",
		string(id), update.X, update.Y)

	player, err := scanPlayer(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, model.ErrPlayerNotFound
		}
		return nil, err
	}
	return &player, nil
}

func (s *Storage) DeletePlayer(ctx context.Context, id model.PlayerID) error {
	_, err := s.pool.Exec(ctx, "DELETE FROM players WHERE id = $1", string(id))
	return err
}

func (s *Storage) ListPlayers(ctx context.Context) ([]model.Player, error) {
	rows, err := s.pool.Query(ctx, "SELECT id, x, y, color, name FROM players ORDER BY seq")
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	players := []model.Player{}
	for rows.Next() {
		player, err := scanPlayer(rows)
		if err != nil {
			return nil, err
		}
		players = append(players, player)
	}
	return players, rows.Err()
}

func scanPlayer(row pgx.Row) (model.Player, error) {
	var (
		player model.Player
		id     string
	)
	if err := row.Scan(&id, &player.X, &player.Y, &player.Color, &player.Name); err != nil {
		return model.Player{}, err
	}
	player.ID = model.PlayerID(id)
	return player, nil
}

// Change feed

// Subscribe pins a pool connection and LISTENs on the players channel
func (s *Storage) Subscribe(ctx context.Context) (storage.Subscription, error) {
	conn, err := s.pool.Acquire(ctx)
	if err != nil {
		return nil, err
	}
	if _, err := conn.Exec(ctx, "LISTEN "+notifyChannel); err != nil {
		conn.Release()
		return nil, err
	}

	listenCtx, cancel := context.WithCancel(ctx)
	sub := &subscription{
		conn:    conn,
		cancel:  cancel,
		events:  make(chan model.ChangeEvent, storage.SubscriptionBuffer),
		stopped: make(chan struct{}),
		logger:  s.logger,
	}
	go sub.run(listenCtx)
	return sub, nil
}

type subscription struct {
	conn    *pgxpool.Conn
	cancel  context.CancelFunc
	events  chan model.ChangeEvent
	stopped chan struct{}
	once    sync.Once
	logger  *slog.Logger
}

func (sub *subscription) run(ctx context.Context) {
	defer close(sub.stopped)
	defer close(sub.events)

	for {
		n, err := sub.conn.Conn().WaitForNotification(ctx)
		if err != nil {
			if ctx.Err() == nil {
				sub.logger.Error("feed listen failed", slog.Any("error", err))
			}
			return
		}

		var event model.ChangeEvent
		if err := json.Unmarshal([]byte(n.Payload), &event); err != nil {
			sub.logger.Warn("feed event undecodable", slog.Any("error", err))
			continue
		}
		select {
		case sub.events <- event:
		case <-ctx.Done():
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
		sub.cancel()
		<-sub.stopped
		// A cancelled WaitForNotification leaves the connection unusable; let the pool discard it
		if cerr := sub.conn.Conn().Close(context.Background()); cerr != nil {
			err = cerr
		}
		sub.conn.Release()
	})
	return err
}
