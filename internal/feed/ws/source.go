package ws

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"github.com/mcoot/playfield/internal/model"
	"github.com/mcoot/playfield/internal/storage"
)

// Source opens change feed subscriptions over a websocket
type Source struct {
	url    string
	dialer *websocket.Dialer
	logger *slog.Logger
}

// NewSource creates a websocket source for a server's http(s) base URL.
// A nil dialer uses websocket.DefaultDialer.
func NewSource(baseURL string, dialer *websocket.Dialer, logger *slog.Logger) *Source {
	if dialer == nil {
		dialer = websocket.DefaultDialer
	}
	return &Source{
		url:    toWebsocketURL(strings.TrimSuffix(baseURL, "/")) + FeedPath,
		dialer: dialer,
		logger: logger.With(slog.String("component", "ws-source")),
	}
}

func toWebsocketURL(base string) string {
	switch {
	case strings.HasPrefix(base, "https://"):
		return "wss://" + strings.TrimPrefix(base, "https://")
	case strings.HasPrefix(base, "http://"):
		return "ws://" + strings.TrimPrefix(base, "http://")
	}
	return base
}

// Subscribe dials and returns once the server has confirmed the stream
func (s *Source) Subscribe(ctx context.Context) (storage.Subscription, error) {
	conn, resp, err := s.dialer.DialContext(ctx, s.url, nil)
	if err != nil {
		if resp != nil {
			return nil, fmt.Errorf("dial feed: unexpected status %d: %w", resp.StatusCode, err)
		}
		return nil, fmt.Errorf("dial feed: %w", err)
	}

	var first Frame
	if err := conn.ReadJSON(&first); err != nil || first.Event != EventConnected {
		_ = conn.Close()
		if err == nil {
			err = fmt.Errorf("unexpected first frame %q", first.Event)
		}
		return nil, fmt.Errorf("await connected: %w", err)
	}

	ctx, cancel := context.WithCancel(ctx)
	sub := &subscription{
		conn:   conn,
		events: make(chan model.ChangeEvent, storage.SubscriptionBuffer),
		cancel: cancel,
		done:   make(chan struct{}),
	}
	// Tear the socket down if the caller's context ends first
	stop := context.AfterFunc(ctx, func() { _ = conn.Close() })
	go func() {
		defer stop()
		sub.pump(ctx, s.logger)
	}()
	return sub, nil
}

type subscription struct {
	conn   *websocket.Conn
	events chan model.ChangeEvent
	cancel context.CancelFunc
	done   chan struct{}
	once   sync.Once
}

func (sub *subscription) Events() <-chan model.ChangeEvent {
	return sub.events
}

func (sub *subscription) Close() error {
	sub.once.Do(func() {
		_ = sub.conn.WriteControl(websocket.CloseMessage,
			websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""),
			time.Now().Add(time.Second))
		sub.cancel()
		_ = sub.conn.Close()
		<-sub.done
	})
	return nil
}

func (sub *subscription) pump(ctx context.Context, logger *slog.Logger) {
	defer close(sub.done)
	defer close(sub.events)

	for {
		var frame Frame
		if err := sub.conn.ReadJSON(&frame); err != nil {
			if ctx.Err() == nil && !websocket.IsCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				logger.Warn("websocket stream error", slog.Any("error", err))
			}
			return
		}

		if !model.ChangeKind(frame.Event).Valid() {
			logger.Debug("ignoring websocket frame", slog.String("event", frame.Event))
			continue
		}

		var event model.ChangeEvent
		if err := json.Unmarshal(frame.Data, &event); err != nil {
			logger.Warn("undecodable websocket frame", slog.String("event", frame.Event), slog.Any("error", err))
			continue
		}

		select {
		case sub.events <- event:
		case <-ctx.Done():
			return
		}
	}
}
