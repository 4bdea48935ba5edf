package main

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/doodlesbykumbi/membersync/pkg/batch"
)

// syncStatusCmd represents the sync status command
var syncStatusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show the batch run cursor",
	Args:  cobra.NoArgs,
	Run: func(cmd *cobra.Command, args []string) {
		output, _ := cmd.Flags().GetString("output")

		withApp(func(a *app) error {
			status, err := a.coordinator.Status(context.Background())
			if err != nil {
				return err
			}
			if output == "json" {
				return printJSON(status)
			}
			printStatus(status)
			return nil
		})
	},
}

func init() {
	syncCmd.AddCommand(syncStatusCmd)
	syncStatusCmd.Flags().StringP("output", "o", "text", "Output format (text or json)")
}

func printStatus(s batch.Status) {
	switch s.State {
	case batch.StateRunning:
		fmt.Printf("Running: offset %d of %d memberships\n", s.Offset, s.Total)
	default:
		fmt.Printf("No batch run in progress (%s); %d memberships\n", s.State, s.Total)
	}
}
