package commands

import (
	"os"
	"sort"
	"strings"

	"github.com/spf13/cobra"

	"github.com/marmos91/esgate/internal/cli/output"
	"github.com/marmos91/esgate/pkg/config"
)

var rolesConfigPath string

var rolesCmd = &cobra.Command{
	Use:   "roles",
	Short: "Print the configured group to role mappings",
	Long: `Loads a local esgate configuration file and prints the group to
role mapping table along with the default role.`,
	RunE: runRoles,
}

func init() {
	rolesCmd.Flags().StringVar(&rolesConfigPath, "config", "", "Path to the configuration file (default: standard locations)")
}

type roleMapping struct {
	Group string   `json:"group" yaml:"group"`
	Roles []string `json:"roles" yaml:"roles"`
}

func runRoles(cmd *cobra.Command, args []string) error {
	format, err := output.ParseFormat(outputFormat)
	if err != nil {
		return err
	}

	cfg, err := config.MustLoad(rolesConfigPath)
	if err != nil {
		return err
	}

	groups := make([]string, 0, len(cfg.Roles.GroupMappings))
	for group := range cfg.Roles.GroupMappings {
		groups = append(groups, group)
	}
	sort.Strings(groups)

	mappings := make([]roleMapping, 0, len(groups)+1)
	for _, group := range groups {
		mappings = append(mappings, roleMapping{Group: group, Roles: cfg.Roles.GroupMappings[group]})
	}
	mappings = append(mappings, roleMapping{
		Group: "(default)",
		Roles: []string{cfg.Roles.DefaultRole},
	})

	switch format {
	case output.FormatJSON:
		return output.PrintJSON(os.Stdout, mappings)
	case output.FormatYAML:
		return output.PrintYAML(os.Stdout, mappings)
	default:
		table := output.NewTableData("GROUP", "ROLES")
		for _, m := range mappings {
			table.AddRow(m.Group, strings.Join(m.Roles, ", "))
		}
		return output.PrintTable(os.Stdout, table)
	}
}
