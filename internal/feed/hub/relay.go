package hub

import (
	"context"
	"encoding/json"
	"log/slog"
	"time"

	"github.com/mcoot/playfield/internal/storage"
)

// resubscribeDelay is the pause before reopening a storage feed that ended
const resubscribeDelay = time.Second

// Source opens storage change feeds
type Source interface {
	Subscribe(ctx context.Context) (storage.Subscription, error)
}

// Relay forwards every storage change event into a Hub
type Relay struct {
	source Source
	hub    *Hub
	logger *slog.Logger
}

// NewRelay creates a relay from source into hub
func NewRelay(source Source, hub *Hub, logger *slog.Logger) *Relay {
	return &Relay{
		source: source,
		hub:    hub,
		logger: logger.With(slog.String("component", "feed-relay")),
	}
}

// Run relays until ctx is done, resubscribing when the storage feed drops.
// Events committed while resubscribing are missed; clients recover by snapshot.
func (r *Relay) Run(ctx context.Context) {
	for {
		if err := r.relayOnce(ctx); err != nil {
			r.logger.Error("feed relay subscription failed", slog.Any("error", err))
		}
		select {
		case <-ctx.Done():
			return
		case <-time.After(resubscribeDelay):
		}
	}
}

func (r *Relay) relayOnce(ctx context.Context) error {
	sub, err := r.source.Subscribe(ctx)
	if err != nil {
		return err
	}
	defer func() { _ = sub.Close() }()

	for {
		select {
		case <-ctx.Done():
			return nil
		case event, ok := <-sub.Events():
			if !ok {
				if ctx.Err() == nil {
					r.logger.Warn("feed relay stream ended")
				}
				return nil
			}
			data, err := json.Marshal(event)
			if err != nil {
				r.logger.Error("feed relay encode failed", slog.Any("error", err))
				continue
			}
			r.hub.Broadcast(Message{Event: string(event.Kind), Data: data})
		}
	}
}
