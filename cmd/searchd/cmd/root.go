// Package cmd provides the CLI commands for searchd.
package cmd

import (
	"github.com/spf13/cobra"

	"github.com/sourcebot-dev/sourcebot-sub003/pkg/version"
)

// NewRootCmd creates the root command for the searchd CLI.
func NewRootCmd() *cobra.Command {
	var configPath string

	cmd := &cobra.Command{
		Use:   "searchd",
		Short: "Search gateway for a Zoekt-compatible code search engine",
		Long: `searchd compiles query-language searches into engine queries and
executes them against a Zoekt-compatible backend, serving results over
an HTTP API with optional streaming.

Run 'searchd serve' to start the API server, or 'searchd search' for a
one-shot query from the command line.`,
		Version:       version.Version,
		SilenceUsage:  true,
		SilenceErrors: false,
	}

	cmd.SetVersionTemplate("searchd version {{.Version}}\n")

	cmd.PersistentFlags().StringVarP(&configPath, "config", "c", "", "Path to config file (YAML)")

	cmd.AddCommand(newServeCmd(&configPath))
	cmd.AddCommand(newSearchCmd(&configPath))
	cmd.AddCommand(newQueryCmd(&configPath))
	cmd.AddCommand(newVersionCmd())

	return cmd
}

// Execute runs the root command.
func Execute() error {
	return NewRootCmd().Execute()
}
