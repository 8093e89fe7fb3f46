package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/mcoot/playfield/internal/api/response"
	"github.com/mcoot/playfield/internal/model"
)

func newPlayersCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "players",
		Short: "Players table commands",
	}

	cmd.AddCommand(newPlayersListCmd())
	cmd.AddCommand(newPlayersDeleteCmd())

	return cmd
}

func newPlayersListCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List every player on the field",
		RunE: func(cmd *cobra.Command, args []string) error {
			players, err := client.ListPlayers(cmd.Context())
			if err != nil {
				return err
			}

			out := NewOutput(cfg.Output, cmd.OutOrStdout())
			out.Print(response.PlayerListFromModel(players))
			return nil
		},
	}
}

func newPlayersDeleteCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "delete <id>...",
		Short: "Remove players left behind by clients that never cleaned up",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			out := NewOutput(cfg.Output, cmd.OutOrStdout())
			for _, id := range args {
				if err := client.DeletePlayer(cmd.Context(), model.PlayerID(id)); err != nil {
					return fmt.Errorf("delete %s: %w", id, err)
				}
				out.PrintMessage(fmt.Sprintf("Deleted player %s", id))
			}
			return nil
		},
	}
}
