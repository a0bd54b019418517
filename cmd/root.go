// Package cmd defines and implements the CLI commands for the feedxml-mx
// executable.
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
		Use:   "feedxml-mx",
		Short: "Product feed processor for Google Merchant and Facebook Catalog",
		Long: `feedxml-mx ingests the store's upstream XML product feed and re-emits
platform-specific feeds for Google Merchant Center and Facebook Catalog,
optionally enriching each product from its detail page.`,
		SilenceUsage: true,
	}

	cmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (YAML); environment variables override")
	cmd.AddCommand(newRunCmd())

	return cmd
}

// Execute is the main entry point.
func Execute() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}
