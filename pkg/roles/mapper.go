// Package roles maps proxy-asserted group membership onto Elasticsearch
// role names.
package roles

// GroupRoleConfig is the role-mapping table loaded at startup. It is
// read-only after initialization.
type GroupRoleConfig struct {
	// DefaultRole is assigned when no group matches any mapping.
	DefaultRole string `mapstructure:"default_role" yaml:"default_role"`

	// GroupMappings maps a group name to the ordered roles it grants.
	GroupMappings map[string][]string `mapstructure:"group_mappings" yaml:"group_mappings"`
}

// Map resolves the ordered role list for the given groups.
//
// Groups are considered in input order; every matching mapping contributes
// its roles in configured order, duplicates included. When nothing matches
// (no groups, no mapping table, or no overlap) the result is the single
// default role. The output is deterministic for a given input.
func Map(groups []string, cfg GroupRoleConfig) []string {
	var mapped []string

	for _, group := range groups {
		if assigned, ok := cfg.GroupMappings[group]; ok {
			mapped = append(mapped, assigned...)
		}
	}

	if len(mapped) == 0 {
		return []string{cfg.DefaultRole}
	}

	return mapped
}
