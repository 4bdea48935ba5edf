package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/doodlesbykumbi/membersync/pkg/batch"
	"github.com/doodlesbykumbi/membersync/pkg/config"
)

// syncCmd represents the sync command
var syncCmd = &cobra.Command{
	Use:   "sync",
	Short: "Synchronise memberships",
	Long:  `Run batch syncs over every CRM membership or sync a single contact.`,
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Println("error: Command 'sync' requires a subcommand (run, step, stop, status, contact)")
		fmt.Println()
		_ = cmd.Help()
		os.Exit(1)
	},
}

func init() {
	rootCmd.AddCommand(syncCmd)
}

// addBatchFlags registers the flags that override configured batch parameters.
func addBatchFlags(cmd *cobra.Command) {
	cmd.Flags().Int("from", 0, "Offset to start a new run at")
	cmd.Flags().Int("to", 0, "Offset to stop at (exclusive, 0 for no limit)")
	cmd.Flags().Int("batch-size", batch.DefaultBatchSize, "Memberships per chunk (default from configuration)")
	cmd.Flags().Bool("create-users", true, "Create users for unlinked contacts (default from configuration)")
	cmd.Flags().Bool("dry-run", false, "Simulate without writing (default from configuration)")
}

// batchParams merges explicitly set flags over the configured parameters.
func batchParams(cmd *cobra.Command, cfg *config.Config) batch.Params {
	from, _ := cmd.Flags().GetInt("from")
	to, _ := cmd.Flags().GetInt("to")
	p := cfg.BatchParams(from, to)

	if cmd.Flags().Changed("batch-size") {
		p.BatchSize, _ = cmd.Flags().GetInt("batch-size")
	}
	if cmd.Flags().Changed("create-users") {
		p.CreateUsers, _ = cmd.Flags().GetBool("create-users")
	}
	if cmd.Flags().Changed("dry-run") {
		p.DryRun, _ = cmd.Flags().GetBool("dry-run")
	}
	return p
}

func printStep(s batch.Step) {
	failed := 0
	for _, r := range s.Feedback {
		if r.Failed() {
			failed++
		}
	}
	state := "advanced"
	switch {
	case s.Failed:
		state = "failed"
	case s.Stopped:
		state = "stopped"
	case s.Finished:
		state = "finished"
	}
	fmt.Printf("[%s] offset %d-%d %s: %d result(s), %d failed\n", s.RunID, s.From, s.To, state, len(s.Feedback), failed)
	for _, r := range s.Feedback {
		if r.Failed() {
			fmt.Printf("  contact %d: %v\n", r.ContactID, r.Err)
		}
	}
	if s.Err != nil {
		fmt.Printf("  %v\n", s.Err)
	}
}
