package commands

import (
	"encoding/json"
	"fmt"
	"net/http"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/marmos91/esgate/internal/cli/output"
)

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Show the sanitized runtime configuration of a running instance",
	Long: `Fetches the /config endpoint of a running esgate instance.

Secrets are redacted server-side; this command never sees them.`,
	RunE: runConfig,
}

func runConfig(cmd *cobra.Command, args []string) error {
	format, err := output.ParseFormat(outputFormat)
	if err != nil {
		return err
	}

	client := &http.Client{Timeout: 10 * time.Second}
	resp, err := client.Get(serverURL + "/config")
	if err != nil {
		return fmt.Errorf("failed to reach %s: %w", serverURL, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("unexpected status %d from /config", resp.StatusCode)
	}

	var cfg map[string]interface{}
	if err := json.NewDecoder(resp.Body).Decode(&cfg); err != nil {
		return fmt.Errorf("failed to decode configuration: %w", err)
	}

	switch format {
	case output.FormatJSON, output.FormatTable:
		// A nested config does not fit a flat table; JSON is the
		// readable default.
		return output.PrintJSON(os.Stdout, cfg)
	default:
		return output.PrintYAML(os.Stdout, cfg)
	}
}
