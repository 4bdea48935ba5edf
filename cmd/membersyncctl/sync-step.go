package main

import (
	"context"

	"github.com/spf13/cobra"
)

// syncStepCmd represents the sync step command
var syncStepCmd = &cobra.Command{
	Use:   "step",
	Short: "Sync the next chunk of memberships",
	Long: `Sync the chunk of memberships at the persisted cursor and advance it.

Example:
  membersyncctl sync step
  membersyncctl sync step --output json`,
	Args: cobra.NoArgs,
	Run: func(cmd *cobra.Command, args []string) {
		output, _ := cmd.Flags().GetString("output")

		withApp(func(a *app) error {
			step, err := a.coordinator.Step(context.Background(), batchParams(cmd, a.cfg))
			if err != nil {
				return err
			}
			if output == "json" {
				return printJSON(step)
			}
			printStep(step)
			if step.Failed {
				return step.Err
			}
			return nil
		})
	},
}

func init() {
	syncCmd.AddCommand(syncStepCmd)
	addBatchFlags(syncStepCmd)
	syncStepCmd.Flags().StringP("output", "o", "text", "Output format (text or json)")
}
