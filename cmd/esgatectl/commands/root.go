// Package commands implements the esgatectl CLI.
package commands

import (
	"github.com/spf13/cobra"
)

var (
	// serverURL is the base URL of a running esgate instance.
	serverURL string

	// outputFormat selects table, json or yaml output.
	outputFormat string
)

var rootCmd = &cobra.Command{
	Use:   "esgatectl",
	Short: "Manage and inspect an esgate instance",
	Long: `esgatectl is the admin CLI for esgate, the Elasticsearch
authentication gate.

It talks to a running instance over its HTTP API and offers local
helpers for key generation and configuration inspection.

Examples:
  # Check the health of a running instance
  esgatectl health

  # Show the sanitized runtime configuration
  esgatectl config --server http://gate.internal:5601

  # Print the configured group to role mappings
  esgatectl roles --config /etc/esgate/config.yaml

  # Generate a secret key
  esgatectl keygen

  # Verify Elasticsearch management credentials
  esgatectl check --url https://es.internal:9200 --username elastic`,
	SilenceUsage:  true,
	SilenceErrors: true,
}

func init() {
	rootCmd.PersistentFlags().StringVar(&serverURL, "server", "http://localhost:5601", "Base URL of the esgate instance")
	rootCmd.PersistentFlags().StringVarP(&outputFormat, "output", "o", "table", "Output format (table, json, yaml)")

	rootCmd.AddCommand(healthCmd)
	rootCmd.AddCommand(configCmd)
	rootCmd.AddCommand(rolesCmd)
	rootCmd.AddCommand(keygenCmd)
	rootCmd.AddCommand(checkCmd)
}

// Execute runs the root command.
func Execute() error {
	return rootCmd.Execute()
}
