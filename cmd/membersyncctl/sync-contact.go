package main

import (
	"context"
	"errors"
	"fmt"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/doodlesbykumbi/membersync/pkg/directory"
	"github.com/doodlesbykumbi/membersync/pkg/reconcile"
)

// syncContactCmd represents the sync contact command
var syncContactCmd = &cobra.Command{
	Use:   "contact <contact-id>",
	Short: "Sync or simulate the memberships of one contact",
	Long: `Sync the memberships of one contact onto its linked user.

With --simulate nothing is written and the outcome of a sync is printed.

Example:
  membersyncctl sync contact 42
  membersyncctl sync contact 42 --simulate`,
	Args: cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		simulate, _ := cmd.Flags().GetBool("simulate")

		withApp(func(a *app) error {
			contactID, err := strconv.Atoi(args[0])
			if err != nil {
				return fmt.Errorf("invalid contact id %q", args[0])
			}
			results, err := syncContact(context.Background(), a, contactID, simulate)
			if err != nil {
				return err
			}
			return printJSON(results)
		})
	},
}

func init() {
	syncCmd.AddCommand(syncContactCmd)
	syncContactCmd.Flags().Bool("simulate", false, "report what a sync would do without writing")
}

func syncContact(ctx context.Context, a *app, contactID int, simulate bool) ([]reconcile.Result, error) {
	memberships, err := a.aggregator.ForContact(ctx, contactID, a.engine.Method())
	if err != nil {
		return nil, err
	}
	if simulate {
		return a.engine.Simulate(ctx, memberships)
	}

	u, err := a.directory.FindUserByContact(ctx, contactID)
	if errors.Is(err, directory.ErrUserNotFound) {
		return nil, fmt.Errorf("contact %d has no linked user", contactID)
	}
	if err != nil {
		return nil, err
	}
	return a.engine.Sync(ctx, *u, memberships)
}
