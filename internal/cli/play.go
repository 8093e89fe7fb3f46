package cli

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/mcoot/playfield/internal/dependencies/clock"
	"github.com/mcoot/playfield/internal/dependencies/random"
	"github.com/mcoot/playfield/internal/motion"
	"github.com/mcoot/playfield/internal/session"
)

func newPlayCmd() *cobra.Command {
	var (
		name    string
		refresh time.Duration
	)

	cmd := &cobra.Command{
		Use:   "play",
		Short: "Join the field and move around",
		Long: `Join the field as a new player and stream everyone's positions.

Type one or more of w/a/s/d and press enter to toggle moving in that
direction. Other commands:
  stop  - release every key
  list  - print the field now
  join  - retry joining after a failed attempt
  quit  - leave the field

Press Ctrl+C to leave.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			sessionCfg := session.DefaultConfig()
			sessionCfg.Name = name

			clk := clock.New()
			field := session.New(sessionCfg, client, client.Source(), clk, random.New(), logger)
			return runPlay(ctx, field, clk, cmd.InOrStdin(), NewOutput(cfg.Output, cmd.OutOrStdout()), refresh)
		},
	}

	cmd.Flags().StringVar(&name, "name", "", "Display name (default: generated)")
	cmd.Flags().DurationVar(&refresh, "refresh", time.Second, "How often to print the field")

	return cmd
}

type inputAction int

const (
	inputNone inputAction = iota
	inputQuit
	inputList
	inputJoin
	inputUnknown
)

// handleInput applies one line of player input to the motion controller
func handleInput(ctrl *motion.Controller, line string) inputAction {
	line = strings.ToLower(strings.TrimSpace(line))
	switch line {
	case "":
		return inputNone
	case "q", "quit", "exit":
		return inputQuit
	case "l", "list":
		return inputList
	case "join":
		return inputJoin
	case "stop":
		ctrl.ReleaseAll()
		return inputNone
	}

	keys := make([]motion.Key, 0, len(line))
	for _, r := range line {
		k, err := motion.ParseKey(string(r))
		if err != nil {
			return inputUnknown
		}
		keys = append(keys, k)
	}
	for _, k := range keys {
		ctrl.Toggle(k)
	}
	return inputNone
}

func runPlay(ctx context.Context, field *session.Field, clk clock.Clock, in io.Reader, out *Output, refresh time.Duration) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()
	defer func() {
		field.Close()
		field.Wait()
	}()

	if err := field.Start(ctx); err != nil {
		out.PrintMessage(fmt.Sprintf("Could not join: %s (type join to retry)", err))
	} else {
		out.PrintMessage(fmt.Sprintf("Joined as %s", field.Identity().Name))
	}
	out.Print(fieldView(field))

	lines := make(chan string)
	go func() {
		defer close(lines)
		scanner := bufio.NewScanner(in)
		for scanner.Scan() {
			select {
			case lines <- scanner.Text():
			case <-ctx.Done():
				return
			}
		}
	}()

	ticker := clk.NewTicker(refresh)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil
		case line, ok := <-lines:
			if !ok {
				return nil
			}
			switch handleInput(field.Motion(), line) {
			case inputQuit:
				return nil
			case inputList:
				out.Print(fieldView(field))
			case inputJoin:
				if err := field.Join(ctx); err != nil {
					out.PrintMessage(fmt.Sprintf("Could not join: %s", err))
				}
			case inputUnknown:
				out.PrintMessage(fmt.Sprintf("Unknown command %q", line))
			}
		case <-ticker.C():
			out.Print(fieldView(field))
		}
	}
}

func fieldView(field *session.Field) FieldView {
	sprites := field.Frame()
	view := FieldView{
		Phase:   field.Phase().String(),
		Held:    field.Motion().Held().String(),
		Players: make([]FieldRow, len(sprites)),
	}
	for i, s := range sprites {
		entry := session.Entry{ID: s.ID, Name: s.Name, Color: s.Color, IsSelf: s.IsSelf}
		view.Players[i] = FieldRow{
			ID:     string(s.ID),
			Label:  entry.Label(),
			X:      s.X,
			Y:      s.Y,
			Color:  s.Color,
			IsSelf: s.IsSelf,
		}
	}
	return view
}
