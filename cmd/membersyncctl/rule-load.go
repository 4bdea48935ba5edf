package main

import (
	"context"
	"fmt"
	"sort"

	"github.com/spf13/cobra"

	"github.com/doodlesbykumbi/membersync/pkg/rules"
)

// ruleLoadCmd represents the rule load command
var ruleLoadCmd = &cobra.Command{
	Use:   "load <file>",
	Short: "Load association rules from a YAML file",
	Long: `Load association rules from a YAML rule file.

Invalid entries are reported and skipped; valid ones are saved. With
--replace, stored rules of the file's method that the file does not
mention are deleted.

Example:
  membersyncctl rule load rules.yml
  membersyncctl rule load --replace rules.yml`,
	Args: cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		replace, _ := cmd.Flags().GetBool("replace")

		withApp(func(a *app) error {
			res, err := a.rules.LoadFile(context.Background(), args[0], rules.LoadOptions{Replace: replace})
			if err != nil {
				return fmt.Errorf("failed to load rules: %w", err)
			}
			printLoadResult(res)
			return nil
		})
	},
}

func init() {
	ruleCmd.AddCommand(ruleLoadCmd)
	ruleLoadCmd.Flags().Bool("replace", false, "delete rules the file does not mention")
}

func printLoadResult(res *rules.LoadResult) {
	fmt.Printf("Loaded %s rules: %d saved, %d deleted, %d invalid\n", res.Method, len(res.Saved), len(res.Deleted), len(res.Invalid))

	typeIDs := make([]int, 0, len(res.Invalid))
	for id := range res.Invalid {
		typeIDs = append(typeIDs, id)
	}
	sort.Ints(typeIDs)
	for _, id := range typeIDs {
		fmt.Printf("  membership type %d: %v\n", id, res.Invalid[id])
	}
}
