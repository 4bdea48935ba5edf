package main

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/doodlesbykumbi/membersync/pkg/rules"
)

// ruleListCmd represents the rule list command
var ruleListCmd = &cobra.Command{
	Use:   "list",
	Short: "List association rules",
	Long: `List the association rules of a sync method.

Example:
  membersyncctl rule list
  membersyncctl rule list --method capability --output yaml`,
	Args: cobra.NoArgs,
	Run: func(cmd *cobra.Command, args []string) {
		output, _ := cmd.Flags().GetString("output")

		withApp(func(a *app) error {
			method, err := ruleMethod(cmd, a.cfg.SyncMethod)
			if err != nil {
				return err
			}
			all, err := a.rules.List(context.Background(), method)
			if err != nil {
				return fmt.Errorf("failed to list rules: %w", err)
			}

			f := rules.FileFor(method, all)
			switch output {
			case "yaml":
				return f.Write(cmd.OutOrStdout())
			case "json":
				return printJSON(f)
			}

			fmt.Printf("%-10s %-16s %-16s %-20s %s\n", "TYPE", "CURRENT", "EXPIRED", "CURRENT ROLE", "EXPIRED ROLE")
			for _, entry := range f.Rules {
				fmt.Printf("%-10d %-16s %-16s %-20s %s\n", entry.TypeID, formatIDs(entry.Current), formatIDs(entry.Expired), entry.CurrentRole, entry.ExpiredRole)
			}
			return nil
		})
	},
}

func init() {
	ruleCmd.AddCommand(ruleListCmd)
	ruleListCmd.Flags().StringP("output", "o", "text", "Output format (text, json or yaml)")
}
