// Package cmd defines and implements the CLI commands for the houzzscraper executable.
package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

var cfgFile string

// newRootCmd creates and configures the root command.
func newRootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "houzzscraper",
		Short: "Scrapes professional profiles from the Houzz directory.",
		Long: `houzzscraper walks the paginated Houzz professional directory,
extracts each profile page together with its reviews feed, and writes
one structured record per profile to a JSON Lines file.`,
	}

	cmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (optional; env vars use the HOUZZ_ prefix)")

	cmd.AddCommand(newCrawlCmd())

	return cmd
}

// Execute is the main entry point.
func Execute() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
