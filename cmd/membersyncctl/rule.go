package main

import (
	"encoding/json"
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"github.com/doodlesbykumbi/membersync/pkg/rule"
)

// ruleCmd represents the rule command
var ruleCmd = &cobra.Command{
	Use:   "rule",
	Short: "Manage association rules",
	Long:  `Manage the rules that map membership types to roles or capabilities.`,
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Println("error: Command 'rule' requires a subcommand (list, set, delete, clear, load, watch)")
		fmt.Println()
		_ = cmd.Help()
		os.Exit(1)
	},
}

func init() {
	rootCmd.AddCommand(ruleCmd)
	ruleCmd.PersistentFlags().StringP("method", "m", "", "Sync method (role or capability); defaults to the configured sync_method")
}

// ruleMethod returns the --method flag, falling back to the configured one.
func ruleMethod(cmd *cobra.Command, configured rule.Method) (rule.Method, error) {
	name, _ := cmd.Flags().GetString("method")
	if name == "" {
		return configured, nil
	}
	m, err := rule.MethodString(name)
	if err != nil {
		return 0, fmt.Errorf("unknown sync method %q", name)
	}
	return m, nil
}

// parseIDs parses a comma separated list of status IDs.
func parseIDs(s string) ([]int, error) {
	var ids []int
	for _, part := range strings.Split(s, ",") {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		id, err := strconv.Atoi(part)
		if err != nil {
			return nil, fmt.Errorf("invalid status id %q", part)
		}
		ids = append(ids, id)
	}
	return ids, nil
}

func formatIDs(ids []int) string {
	parts := make([]string, 0, len(ids))
	for _, id := range ids {
		parts = append(parts, strconv.Itoa(id))
	}
	return strings.Join(parts, ",")
}

func printJSON(v interface{}) error {
	out, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return err
	}
	fmt.Println(string(out))
	return nil
}
