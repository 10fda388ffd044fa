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

var healthCmd = &cobra.Command{
	Use:   "health",
	Short: "Check the health of a running esgate instance",
	RunE:  runHealth,
}

// probeResult is one health endpoint's outcome.
type probeResult struct {
	Probe  string `json:"probe" yaml:"probe"`
	Status string `json:"status" yaml:"status"`
	Detail string `json:"detail,omitempty" yaml:"detail,omitempty"`
}

func runHealth(cmd *cobra.Command, args []string) error {
	format, err := output.ParseFormat(outputFormat)
	if err != nil {
		return err
	}

	client := &http.Client{Timeout: 10 * time.Second}

	results := []probeResult{
		probe(client, "liveness", serverURL+"/health/live"),
		probe(client, "readiness", serverURL+"/health/ready"),
	}

	switch format {
	case output.FormatJSON:
		return output.PrintJSON(os.Stdout, results)
	case output.FormatYAML:
		return output.PrintYAML(os.Stdout, results)
	default:
		table := output.NewTableData("PROBE", "STATUS", "DETAIL")
		for _, r := range results {
			table.AddRow(r.Probe, r.Status, r.Detail)
		}
		return output.PrintTable(os.Stdout, table)
	}
}

func probe(client *http.Client, name, url string) probeResult {
	resp, err := client.Get(url)
	if err != nil {
		return probeResult{Probe: name, Status: "unreachable", Detail: err.Error()}
	}
	defer resp.Body.Close()

	var body struct {
		Status string `json:"status"`
		Error  string `json:"error"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return probeResult{Probe: name, Status: "invalid", Detail: fmt.Sprintf("bad response: %v", err)}
	}

	return probeResult{Probe: name, Status: body.Status, Detail: body.Error}
}
