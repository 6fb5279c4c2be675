// Package main provides the recruitpulse daemon and its one-shot snapshot tool.
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

func main() {
	rootCmd := &cobra.Command{
		Use:   "recruitpulse",
		Short: "Recruiting spreadsheet dashboard feed",
		Long: `recruitpulse aggregates a recruiting spreadsheet into dashboard datasets
and pushes them to connected viewers whenever the sheet changes.

Commands:
  serve     Run the WebSocket feed and source watcher
  snapshot  Compute the datasets once and print them as JSON`,
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	rootCmd.AddCommand(newServeCommand())
	rootCmd.AddCommand(newSnapshotCommand())

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
