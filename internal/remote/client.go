// Package remote is the HTTP client for a playfield server. It satisfies the
// same store and feed interfaces as the in-process storage backends.
package remote

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/mcoot/playfield/internal/api/apierr"
	"github.com/mcoot/playfield/internal/api/request"
	"github.com/mcoot/playfield/internal/api/response"
	"github.com/mcoot/playfield/internal/feed"
	"github.com/mcoot/playfield/internal/feed/sse"
	"github.com/mcoot/playfield/internal/feed/ws"
	"github.com/mcoot/playfield/internal/model"
)

// Transport names the change feed transport
type Transport string

const (
	TransportSSE       Transport = "sse"
	TransportWebsocket Transport = "ws"
)

// ParseTransport validates a transport name
func ParseTransport(s string) (Transport, error) {
	switch Transport(strings.ToLower(s)) {
	case TransportSSE, "":
		return TransportSSE, nil
	case TransportWebsocket, "websocket":
		return TransportWebsocket, nil
	}
	return "", fmt.Errorf("unknown transport %q (want sse or ws)", s)
}

// Client is an HTTP client for the API
type Client struct {
	baseURL    string
	transport  Transport
	httpClient *http.Client
	logger     *slog.Logger
}

// New creates a new API client
func New(baseURL string, transport Transport, logger *slog.Logger) *Client {
	return &Client{
		baseURL:   strings.TrimSuffix(baseURL, "/"),
		transport: transport,
		httpClient: &http.Client{
			Timeout: 30 * time.Second,
		},
		logger: logger,
	}
}

// APIError represents an error response from the API
type APIError struct {
	Status  int
	Code    string
	Message string
	err     error
}

func (e *APIError) Error() string {
	return fmt.Sprintf("%s (%s)", e.Message, e.Code)
}

// Unwrap lets errors.Is match the model sentinel the code maps to
func (e *APIError) Unwrap() error {
	return e.err
}

// Do performs an HTTP request
func (c *Client) Do(ctx context.Context, method, path string, body, result any) error {
	var bodyReader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("failed to marshal request: %w", err)
		}
		bodyReader = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, bodyReader)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}

	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("request failed: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("failed to read response: %w", err)
	}

	// Check for error responses
	if resp.StatusCode >= 400 {
		var errResp apierr.ErrorResponse
		if err := json.Unmarshal(respBody, &errResp); err == nil && errResp.Error.Code != "" {
			return &APIError{
				Status:  resp.StatusCode,
				Code:    errResp.Error.Code,
				Message: errResp.Error.Message,
				err:     apierr.Sentinel(errResp.Error.Code),
			}
		}
		return fmt.Errorf("HTTP %d: %s", resp.StatusCode, string(respBody))
	}

	// Parse successful response
	if result != nil && len(respBody) > 0 {
		if err := json.Unmarshal(respBody, result); err != nil {
			return fmt.Errorf("failed to parse response: %w", err)
		}
	}

	return nil
}

// InsertPlayer creates the row for player
func (c *Client) InsertPlayer(ctx context.Context, player *model.Player) error {
	body := request.CreatePlayerRequest{
		ID:    string(player.ID),
		X:     player.X,
		Y:     player.Y,
		Color: player.Color,
		Name:  player.Name,
	}
	return c.Do(ctx, http.MethodPost, "/api/v1/players", body, nil)
}

// UpdatePlayerPosition moves a player and returns the stored row
func (c *Client) UpdatePlayerPosition(ctx context.Context, id model.PlayerID, update model.PositionUpdate) (*model.Player, error) {
	body := request.UpdatePositionRequest{X: &update.X, Y: &update.Y}
	var resp response.Player
	if err := c.Do(ctx, http.MethodPatch, playerPath(id), body, &resp); err != nil {
		return nil, err
	}
	p := resp.ToModel()
	return &p, nil
}

// DeletePlayer removes a player; removing a missing player succeeds
func (c *Client) DeletePlayer(ctx context.Context, id model.PlayerID) error {
	return c.Do(ctx, http.MethodDelete, playerPath(id), nil, nil)
}

// ListPlayers returns every player in insertion order
func (c *Client) ListPlayers(ctx context.Context) ([]model.Player, error) {
	var resp response.PlayerList
	if err := c.Do(ctx, http.MethodGet, "/api/v1/players", nil, &resp); err != nil {
		return nil, err
	}
	players := make([]model.Player, len(resp.Players))
	for i, p := range resp.Players {
		players[i] = p.ToModel()
	}
	return players, nil
}

// Health fetches the server's health report
func (c *Client) Health(ctx context.Context) (*response.Health, error) {
	var resp response.Health
	if err := c.Do(ctx, http.MethodGet, "/api/v1/health", nil, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// Source returns the change feed source for the configured transport
func (c *Client) Source() feed.Source {
	if c.transport == TransportWebsocket {
		return ws.NewSource(c.baseURL, nil, c.logger)
	}
	return sse.NewSource(c.baseURL, nil, c.logger)
}

func playerPath(id model.PlayerID) string {
	return "/api/v1/players/" + url.PathEscape(string(id))
}
