package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/spf13/cobra"

	"github.com/doodlesbykumbi/membersync/pkg/rules"
)

// ruleWatchCmd represents the rule watch command
var ruleWatchCmd = &cobra.Command{
	Use:   "watch <file>",
	Short: "Watch a rule file and reload it when it changes",
	Long: `Watch a YAML rule file and reload it whenever it is written.

The file is loaded once at start. Every later write or re-creation of the
file loads it again with the same options as "rule load".

Example:
  membersyncctl rule watch --replace /etc/membersync/rules.yml`,
	Args: cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		replace, _ := cmd.Flags().GetBool("replace")

		withApp(func(a *app) error {
			return watchRules(a, args[0], rules.LoadOptions{Replace: replace})
		})
	},
}

func init() {
	ruleCmd.AddCommand(ruleWatchCmd)
	ruleWatchCmd.Flags().Bool("replace", false, "delete rules the file does not mention")
}

func watchRules(a *app, filename string, opts rules.LoadOptions) error {
	reload := func() {
		res, err := a.rules.LoadFile(context.Background(), filename, opts)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error loading rules: %v\n", err)
			return
		}
		printLoadResult(res)
	}
	reload()

	// Create file watcher
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("failed to create watcher: %w", err)
	}
	defer func() { _ = watcher.Close() }()

	if err := watcher.Add(filename); err != nil {
		return fmt.Errorf("failed to watch file %s: %w", filename, err)
	}

	fmt.Printf("Watching %s for rule changes\n", filename)

	// Handle signals for graceful shutdown
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	for {
		select {
		case event, ok := <-watcher.Events:
			if !ok {
				return nil
			}
			if event.Op&fsnotify.Write == fsnotify.Write || event.Op&fsnotify.Create == fsnotify.Create {
				fmt.Printf("[%s] File modified, reloading rules...\n", time.Now().Format(time.RFC3339))
				reload()
			}
			// Editors that replace the file drop the watch; re-add it.
			if event.Op&(fsnotify.Remove|fsnotify.Rename) != 0 {
				if err := watcher.Add(filename); err == nil {
					reload()
				}
			}
		case err, ok := <-watcher.Errors:
			if !ok {
				return nil
			}
			fmt.Fprintf(os.Stderr, "Watcher error: %v\n", err)
		case <-sigChan:
			fmt.Println("\nShutting down...")
			return nil
		}
	}
}
