package storage

import (
	"context"

	"github.com/mcoot/playfield/internal/model"
)

// Storage is the players table plus its change feed.
// Every successful mutation is published to all live subscriptions,
// in commit order for any single row.
type Storage interface {
	// InsertPlayer stores a new row; returns model.ErrPlayerExists on a duplicate ID
	InsertPlayer(ctx context.Context, player *model.Player) error
	// UpdatePlayerPosition moves an existing row; it never creates one
	UpdatePlayerPosition(ctx context.Context, id model.PlayerID, update model.PositionUpdate) (*model.Player, error)
	// DeletePlayer removes a row; a missing row is not an error
	DeletePlayer(ctx context.Context, id model.PlayerID) error
	// ListPlayers returns every row in insertion order
	ListPlayers(ctx context.Context) ([]model.Player, error)

	// Subscribe opens a change feed starting from now
	Subscribe(ctx context.Context) (Subscription, error)
}

// Subscription is a live change feed
type Subscription interface {
	// Events delivers changes in arrival order; it is closed when the subscription ends
	Events() <-chan model.ChangeEvent
	// Close ends the subscription. Safe to call more than once.
	Close() error
}

// SubscriptionBuffer is the per-subscriber event buffer used by the backends
const SubscriptionBuffer = 256
