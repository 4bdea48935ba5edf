package main

import (
	"context"
	"fmt"
	"strconv"

	"github.com/spf13/cobra"
)

// ruleDeleteCmd represents the rule delete command
var ruleDeleteCmd = &cobra.Command{
	Use:   "delete <membership-type-id>",
	Short: "Delete an association rule",
	Long: `Delete the association rule of a membership type.

Permissions already granted by the rule are left in place; the next sync
of an affected contact no longer considers the membership type.

Example:
  membersyncctl rule delete 5`,
	Args: cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		withApp(func(a *app) error {
			method, err := ruleMethod(cmd, a.cfg.SyncMethod)
			if err != nil {
				return err
			}
			typeID, err := strconv.Atoi(args[0])
			if err != nil {
				return fmt.Errorf("invalid membership type id %q", args[0])
			}
			if err := a.rules.Delete(context.Background(), typeID, method); err != nil {
				return fmt.Errorf("failed to delete rule: %w", err)
			}
			fmt.Printf("Deleted %s rule for membership type %d\n", method, typeID)
			return nil
		})
	},
}

func init() {
	ruleCmd.AddCommand(ruleDeleteCmd)
}
