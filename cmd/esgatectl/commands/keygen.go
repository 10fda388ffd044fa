package commands

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/marmos91/esgate/pkg/crypto"
)

var keygenCmd = &cobra.Command{
	Use:   "keygen",
	Short: "Generate a new secret key",
	Long: `Generates a random secret key suitable for the secret_key
configuration field or the ESGATE_SECRET_KEY environment variable.`,
	RunE: runKeygen,
}

func runKeygen(cmd *cobra.Command, args []string) error {
	key, err := crypto.GenerateSecretKey()
	if err != nil {
		return fmt.Errorf("failed to generate secret key: %w", err)
	}
	fmt.Println(key)
	return nil
}
