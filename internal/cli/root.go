package cli

import (
	"io"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"github.com/mcoot/playfield/internal/remote"
)

var (
	cfg    *Config
	client *remote.Client
	logger *slog.Logger
)

// NewRootCmd creates the root command
func NewRootCmd() *cobra.Command {
	cfg = DefaultConfig()

	rootCmd := &cobra.Command{
		Use:   "playfield",
		Short: "CLI client for the playfield server",
		Long: `playfield is a CLI client for a shared playfield server.

It can inspect and clean up the players table, stream the raw change feed,
and join the field as a player moved with w/a/s/d.`,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			transport, err := remote.ParseTransport(cfg.Transport)
			if err != nil {
				return err
			}

			logger = newLogger(cmd.ErrOrStderr(), cfg.Verbose)
			client = remote.New(cfg.ServerURL, transport, logger)
			return nil
		},
		SilenceUsage: true,
	}

	// Global flags
	rootCmd.PersistentFlags().StringVar(&cfg.ServerURL, "server", cfg.ServerURL, "Server URL (env: PLAYFIELD_SERVER)")
	rootCmd.PersistentFlags().StringVar(&cfg.Transport, "transport", cfg.Transport, "Change feed transport: sse, ws (env: PLAYFIELD_TRANSPORT)")
	rootCmd.PersistentFlags().StringVarP(&cfg.Output, "output", "o", cfg.Output, "Output format: text, json")
	rootCmd.PersistentFlags().BoolVarP(&cfg.Verbose, "verbose", "v", cfg.Verbose, "Verbose output")

	// Add subcommands
	rootCmd.AddCommand(newPlayersCmd())
	rootCmd.AddCommand(newPlayCmd())
	rootCmd.AddCommand(newEventsCmd())
	rootCmd.AddCommand(newHealthCmd())

	return rootCmd
}

// Execute runs the root command
func Execute() {
	if err := NewRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}

// Client logs go to stderr so they never interleave with command output
func newLogger(w io.Writer, verbose bool) *slog.Logger {
	level := slog.LevelWarn
	if verbose {
		level = slog.LevelDebug
	}
	return slog.New(slog.NewJSONHandler(w, &slog.HandlerOptions{Level: level}))
}
