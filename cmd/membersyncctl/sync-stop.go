package main

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"
)

// syncStopCmd represents the sync stop command
var syncStopCmd = &cobra.Command{
	Use:   "stop",
	Short: "Stop the current batch run",
	Long: `Stop the current batch run by deleting its cursor. A chunk in flight
completes but its progress is not persisted.`,
	Args: cobra.NoArgs,
	Run: func(cmd *cobra.Command, args []string) {
		withApp(func(a *app) error {
			if err := a.coordinator.Stop(context.Background()); err != nil {
				return err
			}
			fmt.Println("Batch run stopped")
			return nil
		})
	},
}

func init() {
	syncCmd.AddCommand(syncStopCmd)
}
