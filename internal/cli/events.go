package cli

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/mcoot/playfield/internal/feed/sse"
	"github.com/mcoot/playfield/internal/model"
)

func newEventsCmd() *cobra.Command {
	var (
		jsonOutput bool
		raw        bool
	)

	cmd := &cobra.Command{
		Use:   "events",
		Short: "Stream the players change feed",
		Long: `Subscribe to the players change feed and print events as they arrive.

Events are:
  - INSERT: a player joined
  - UPDATE: a player moved
  - DELETE: a player left

With --raw the SSE stream is printed frame by frame, including the
connected frame, regardless of --transport.

Press Ctrl+C to disconnect.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			w := cmd.OutOrStdout()
			if raw {
				return streamRaw(ctx, w, jsonOutput)
			}
			return streamChanges(ctx, w, jsonOutput)
		},
	}

	cmd.Flags().BoolVar(&jsonOutput, "json", false, "Output events as JSON lines")
	cmd.Flags().BoolVar(&raw, "raw", false, "Print raw SSE frames")

	return cmd
}

// StreamEvent is one printed feed event
type StreamEvent struct {
	Time  time.Time `json:"time"`
	Event string    `json:"event"`
	Data  string    `json:"data"`
}

func streamChanges(ctx context.Context, w io.Writer, jsonOutput bool) error {
	sub, err := client.Source().Subscribe(ctx)
	if err != nil {
		return err
	}
	defer func() { _ = sub.Close() }()

	if !jsonOutput {
		_, _ = fmt.Fprintf(w, "Connected to %s\n", cfg.ServerURL)
	}

	for {
		select {
		case <-ctx.Done():
			if !jsonOutput {
				_, _ = fmt.Fprintln(w, "\nDisconnected")
			}
			return nil
		case event, ok := <-sub.Events():
			if !ok {
				if !jsonOutput {
					_, _ = fmt.Fprintln(w, "Disconnected")
				}
				return nil
			}
			printEvent(w, string(event.Kind), describeChange(event), jsonOutput)
		}
	}
}

func describeChange(event model.ChangeEvent) string {
	if event.New != nil {
		data, _ := json.Marshal(event.New)
		return string(data)
	}
	return string(event.PlayerID())
}

func streamRaw(ctx context.Context, w io.Writer, jsonOutput bool) error {
	url := strings.TrimSuffix(cfg.ServerURL, "/") + sse.EventsPath

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Accept", "text/event-stream")
	req.Header.Set("Cache-Control", "no-cache")

	httpClient := &http.Client{
		Timeout: 0, // No timeout for SSE
	}

	resp, err := httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("connection failed: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("unexpected status: %d", resp.StatusCode)
	}

	reader := sse.NewReader(resp.Body)
	for {
		event, err := reader.Next()
		if err != nil {
			// Context cancellation is expected
			if ctx.Err() != nil || errors.Is(err, io.EOF) {
				if !jsonOutput {
					_, _ = fmt.Fprintln(w, "Disconnected")
				}
				return nil
			}
			return fmt.Errorf("stream error: %w", err)
		}
		printEvent(w, event.Name, event.Data, jsonOutput)
	}
}

func printEvent(w io.Writer, event, data string, jsonOutput bool) {
	now := time.Now()

	if jsonOutput {
		evt := StreamEvent{
			Time:  now,
			Event: event,
			Data:  data,
		}
		jsonData, _ := json.Marshal(evt)
		_, _ = fmt.Fprintln(w, string(jsonData))
	} else {
		timestamp := now.Format("2006-01-02 15:04:05")
		// Truncate data if it's too long for display
		displayData := data
		if len(displayData) > 100 {
			displayData = displayData[:100] + "..."
		}
		// Remove newlines for cleaner display
		displayData = strings.ReplaceAll(displayData, "\n", " ")
		_, _ = fmt.Fprintf(w, "[%s] %s: %s\n", timestamp, event, displayData)
	}
}
