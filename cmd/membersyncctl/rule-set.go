package main

import (
	"context"
	"errors"
	"fmt"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/doodlesbykumbi/membersync/pkg/rule"
	"github.com/doodlesbykumbi/membersync/pkg/rules"
)

// ruleSetCmd represents the rule set command
var ruleSetCmd = &cobra.Command{
	Use:   "set <membership-type-id>",
	Short: "Create or replace an association rule",
	Long: `Create or replace the association rule of a membership type.

Example:
  membersyncctl rule set 5 --current 1,2 --expired 3,4 --current-role member --expired-role expired_member
  membersyncctl rule set 5 --method capability --current 1,2 --expired 3,4`,
	Args: cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		withApp(func(a *app) error {
			method, err := ruleMethod(cmd, a.cfg.SyncMethod)
			if err != nil {
				return err
			}
			entry, err := ruleFromFlags(cmd, args[0])
			if err != nil {
				return err
			}

			r := entry.Rule(method)
			if err := a.rules.Save(context.Background(), r); err != nil {
				var invalid rule.ValidationErrors
				if errors.As(err, &invalid) {
					for field, code := range invalid {
						fmt.Printf("  %s: %s\n", field, code)
					}
				}
				return fmt.Errorf("failed to save rule: %w", err)
			}
			fmt.Printf("Saved %s rule for membership type %d\n", method, r.MembershipTypeID)
			return nil
		})
	},
}

func init() {
	ruleCmd.AddCommand(ruleSetCmd)
	ruleSetCmd.Flags().String("current", "", "Comma separated current status IDs")
	ruleSetCmd.Flags().String("expired", "", "Comma separated expired status IDs")
	ruleSetCmd.Flags().String("current-role", "", "Role granted for current statuses (role method)")
	ruleSetCmd.Flags().String("expired-role", "", "Role granted for expired statuses (role method)")
}

func ruleFromFlags(cmd *cobra.Command, typeArg string) (rules.FileRule, error) {
	typeID, err := strconv.Atoi(typeArg)
	if err != nil {
		return rules.FileRule{}, fmt.Errorf("invalid membership type id %q", typeArg)
	}
	currentFlag, _ := cmd.Flags().GetString("current")
	expiredFlag, _ := cmd.Flags().GetString("expired")
	current, err := parseIDs(currentFlag)
	if err != nil {
		return rules.FileRule{}, err
	}
	expired, err := parseIDs(expiredFlag)
	if err != nil {
		return rules.FileRule{}, err
	}

	entry := rules.FileRule{TypeID: typeID, Current: current, Expired: expired}
	entry.CurrentRole, _ = cmd.Flags().GetString("current-role")
	entry.ExpiredRole, _ = cmd.Flags().GetString("expired-role")
	return entry, nil
}
