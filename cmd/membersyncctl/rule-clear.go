package main

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"
)

// ruleClearCmd represents the rule clear command
var ruleClearCmd = &cobra.Command{
	Use:   "clear",
	Short: "Delete every association rule of a sync method",
	Long: `Delete every association rule of a sync method.

Example:
  membersyncctl rule clear --method capability`,
	Args: cobra.NoArgs,
	Run: func(cmd *cobra.Command, args []string) {
		withApp(func(a *app) error {
			method, err := ruleMethod(cmd, a.cfg.SyncMethod)
			if err != nil {
				return err
			}
			n, err := a.rules.Clear(context.Background(), method)
			if err != nil {
				return fmt.Errorf("failed to clear rules: %w", err)
			}
			fmt.Printf("Deleted %d %s rule(s)\n", n, method)
			return nil
		})
	},
}

func init() {
	ruleCmd.AddCommand(ruleClearCmd)
}
