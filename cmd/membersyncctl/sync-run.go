package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
)

// syncRunCmd represents the sync run command
var syncRunCmd = &cobra.Command{
	Use:   "run",
	Short: "Sync every membership in chunks until the run finishes",
	Long: `Sync every CRM membership, one chunk at a time, until the run finishes,
is stopped or a chunk cannot be fetched.

A run that was interrupted resumes at the persisted cursor. Interrupting
this command finishes the current chunk and leaves the cursor in place.

Example:
  membersyncctl sync run
  membersyncctl sync run --dry-run --batch-size 50`,
	Args: cobra.NoArgs,
	Run: func(cmd *cobra.Command, args []string) {
		withApp(func(a *app) error {
			ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
			defer cancel()

			p := batchParams(cmd, a.cfg)
			err := a.coordinator.Run(ctx, p, printStep)
			if errors.Is(err, context.Canceled) {
				fmt.Println("Interrupted; run again to resume")
				return nil
			}
			return err
		})
	},
}

func init() {
	syncCmd.AddCommand(syncRunCmd)
	addBatchFlags(syncRunCmd)
}
