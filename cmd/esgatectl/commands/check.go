package commands

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/marmos91/esgate/internal/cli/output"
	"github.com/marmos91/esgate/internal/cli/prompt"
	"github.com/marmos91/esgate/pkg/directory"
)

var (
	checkURL      string
	checkUsername string
	checkPassword string
	checkInsecure bool
)

var checkCmd = &cobra.Command{
	Use:   "check",
	Short: "Verify Elasticsearch management credentials",
	Long: `Authenticates against an Elasticsearch cluster with the given
management credentials, the same way esgate does at startup.

The password is prompted for when not passed via --password.`,
	RunE: runCheck,
}

func init() {
	checkCmd.Flags().StringVar(&checkURL, "url", "http://localhost:9200", "Elasticsearch base URL")
	checkCmd.Flags().StringVar(&checkUsername, "username", "elastic", "Management username")
	checkCmd.Flags().StringVar(&checkPassword, "password", "", "Management password (prompted when empty)")
	checkCmd.Flags().BoolVar(&checkInsecure, "insecure", false, "Skip TLS certificate verification")
}

func runCheck(cmd *cobra.Command, args []string) error {
	password := checkPassword
	if password == "" {
		var err error
		password, err = prompt.Password("Elasticsearch password")
		if err != nil {
			return err
		}
	}

	client := directory.NewElasticsearchClient(directory.ElasticsearchConfig{
		URL:                checkURL,
		Username:           checkUsername,
		Password:           password,
		InsecureSkipVerify: checkInsecure,
		Timeout:            10 * time.Second,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()

	if err := client.Authenticate(ctx); err != nil {
		output.Failuref(os.Stderr, "Authentication failed: %v", err)
		return fmt.Errorf("credentials rejected by %s", checkURL)
	}

	output.Successf(os.Stdout, "Authenticated against %s as %q", checkURL, checkUsername)
	return nil
}
