// Package feed is the client side of the players change feed: one logical
// subscription per Client, delivered to a single handler in arrival order.
package feed

import (
	"context"
	"fmt"
	"log/slog"
	"sync"

	"github.com/mcoot/playfield/internal/model"
	"github.com/mcoot/playfield/internal/storage"
)

// Source opens change-feed streams. Every storage backend satisfies it,
// as do the SSE and websocket transports.
type Source interface {
	Subscribe(ctx context.Context) (storage.Subscription, error)
}

// Handler receives feed events one at a time, in arrival order.
// It must not call Unsubscribe on the Client delivering to it.
type Handler func(model.ChangeEvent)

// Baseline runs after the stream is open and before the first event is
// delivered. Events arriving meanwhile are buffered by the stream.
type Baseline func(ctx context.Context) error

type subscribeOptions struct {
	baseline Baseline
}

// Option configures a Subscribe call
type Option func(*subscribeOptions)

// WithBaseline installs a hook that loads the initial snapshot
func WithBaseline(fn Baseline) Option {
	return func(o *subscribeOptions) { o.baseline = fn }
}

// Client owns the subscribe/unsubscribe lifecycle of a single feed
type Client struct {
	source Source
	logger *slog.Logger

	mu     sync.Mutex
	live   bool
	sub    storage.Subscription
	cancel context.CancelFunc
	done   chan struct{}
}

// NewClient creates a feed client over source
func NewClient(source Source, logger *slog.Logger) *Client {
	return &Client{
		source: source,
		logger: logger.With(slog.String("component", "feed")),
	}
}

// Subscribe opens the feed and starts delivering events to handler.
// A failing baseline is logged and delivery continues from the live stream.
func (c *Client) Subscribe(ctx context.Context, handler Handler, opts ...Option) error {
	var o subscribeOptions
	for _, opt := range opts {
		opt(&o)
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	if c.live {
		return model.ErrAlreadySubscribed
	}

	subCtx, cancel := context.WithCancel(ctx)
	sub, err := c.source.Subscribe(subCtx)
	if err != nil {
		cancel()
		return fmt.Errorf("subscribe to change feed: %w", err)
	}

	if o.baseline != nil {
		if err := o.baseline(subCtx); err != nil {
			c.logger.Error("feed baseline failed", slog.Any("error", err))
		}
	}

	done := make(chan struct{})
	c.live = true
	c.sub = sub
	c.cancel = cancel
	c.done = done

	go c.dispatch(subCtx, sub, handler, done)
	c.logger.Info("feed subscribed")
	return nil
}

// Unsubscribe stops delivery and closes the stream. It is safe to call
// more than once and returns after the handler has been called for the last time.
func (c *Client) Unsubscribe() {
	c.mu.Lock()
	if !c.live {
		c.mu.Unlock()
		return
	}
	c.live = false
	c.cancel()
	if err := c.sub.Close(); err != nil {
		c.logger.Warn("feed close failed", slog.Any("error", err))
	}
	done := c.done
	c.mu.Unlock()

	<-done
	c.logger.Info("feed unsubscribed")
}

// Done returns a channel closed when delivery stops, either because the
// stream ended or Unsubscribe was called. Before any Subscribe it is already closed.
func (c *Client) Done() <-chan struct{} {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.done == nil {
		closed := make(chan struct{})
		close(closed)
		return closed
	}
	return c.done
}

func (c *Client) dispatch(ctx context.Context, sub storage.Subscription, handler Handler, done chan struct{}) {
	defer close(done)
	events := sub.Events()
	for {
		select {
		case <-ctx.Done():
			return
		case event, ok := <-events:
			if !ok {
				if ctx.Err() == nil {
					c.logger.Warn("feed stream ended")
				}
				return
			}
			if ctx.Err() != nil {
				return
			}
			c.logger.Debug("feed event",
				slog.String("kind", string(event.Kind)),
				slog.String("player_id", string(event.PlayerID())))
			handler(event)
		}
	}
}
