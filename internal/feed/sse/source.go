package sse

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"sync"

	"github.com/mcoot/playfield/internal/model"
	"github.com/mcoot/playfield/internal/storage"
)

// EventsPath is the SSE endpoint relative to the server URL
const EventsPath = "/api/v1/players/events"

// Source opens change feed subscriptions against a playfield server
type Source struct {
	baseURL    string
	httpClient *http.Client
	logger     *slog.Logger
}

// NewSource creates an SSE source. A nil httpClient uses a client with no timeout.
func NewSource(baseURL string, httpClient *http.Client, logger *slog.Logger) *Source {
	if httpClient == nil {
		httpClient = &http.Client{Timeout: 0} // No timeout for SSE
	}
	return &Source{
		baseURL:    strings.TrimSuffix(baseURL, "/"),
		httpClient: httpClient,
		logger:     logger.With(slog.String("component", "sse-source")),
	}
}

// Subscribe connects and returns once the server has confirmed the stream
func (s *Source) Subscribe(ctx context.Context) (storage.Subscription, error) {
	ctx, cancel := context.WithCancel(ctx)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, s.baseURL+EventsPath, nil)
	if err != nil {
		cancel()
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Accept", "text/event-stream")
	req.Header.Set("Cache-Control", "no-cache")

	resp, err := s.httpClient.Do(req)
	if err != nil {
		cancel()
		return nil, fmt.Errorf("connection failed: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		_ = resp.Body.Close()
		cancel()
		return nil, fmt.Errorf("unexpected status: %d", resp.StatusCode)
	}

	reader := NewReader(resp.Body)
	first, err := reader.Next()
	if err != nil || first.Name != EventConnected {
		_ = resp.Body.Close()
		cancel()
		if err == nil {
			err = fmt.Errorf("unexpected first event %q", first.Name)
		}
		return nil, fmt.Errorf("await connected: %w", err)
	}

	sub := &subscription{
		events: make(chan model.ChangeEvent, storage.SubscriptionBuffer),
		body:   resp.Body,
		cancel: cancel,
		done:   make(chan struct{}),
	}
	go sub.pump(ctx, reader, s.logger)
	return sub, nil
}

type subscription struct {
	events chan model.ChangeEvent
	body   io.Closer
	cancel context.CancelFunc
	done   chan struct{}
	once   sync.Once
}

func (sub *subscription) Events() <-chan model.ChangeEvent {
	return sub.events
}

func (sub *subscription) Close() error {
	var err error
	sub.once.Do(func() {
		sub.cancel()
		err = sub.body.Close()
		<-sub.done
	})
	return err
}

func (sub *subscription) pump(ctx context.Context, reader *Reader, logger *slog.Logger) {
	defer close(sub.done)
	defer close(sub.events)

	for {
		frame, err := reader.Next()
		if err != nil {
			if ctx.Err() == nil && !errors.Is(err, io.EOF) {
				logger.Warn("sse stream error", slog.Any("error", err))
			}
			return
		}

		kind := model.ChangeKind(frame.Name)
		if !kind.Valid() {
			logger.Debug("ignoring sse event", slog.String("event", frame.Name))
			continue
		}

		var event model.ChangeEvent
		if err := json.Unmarshal([]byte(frame.Data), &event); err != nil {
			logger.Warn("undecodable sse event", slog.String("event", frame.Name), slog.Any("error", err))
			continue
		}

		select {
		case sub.events <- event:
		case <-ctx.Done():
			return
		}
	}
}
