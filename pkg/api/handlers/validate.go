package handlers

import (
	"fmt"
	"regexp"
	"strings"
)

var (
	usernamePattern = regexp.MustCompile(`^[a-zA-Z0-9._\-@]+$`)
	emailPattern    = regexp.MustCompile(`^[a-zA-Z0-9._%+\-]+@[a-zA-Z0-9.\-]+\.[a-zA-Z]{2,}$`)
)

// ValidateUsername checks format and length of a proxy-asserted username.
// Allowed: alphanumerics, dot, underscore, hyphen, at-sign; 1-255 chars.
func ValidateUsername(username string) error {
	if len(username) == 0 {
		return fmt.Errorf("username cannot be empty")
	}
	if len(username) > 255 {
		return fmt.Errorf("username exceeds maximum length of 255 characters (got %d)", len(username))
	}
	if !usernamePattern.MatchString(username) {
		return fmt.Errorf("username contains invalid characters; allowed: alphanumeric, dot, underscore, hyphen, at-sign")
	}
	return nil
}

// ValidateEmail checks format and length of an email address. An empty
// email is allowed; the proxy may not know it.
func ValidateEmail(email string) error {
	if len(email) == 0 {
		return nil
	}
	if len(email) > 320 {
		return fmt.Errorf("email exceeds maximum length of 320 characters (got %d)", len(email))
	}
	if !emailPattern.MatchString(email) {
		return fmt.Errorf("email format is invalid")
	}
	return nil
}

// ValidateName checks a display name. Control characters other than tab,
// newline and carriage return are rejected.
func ValidateName(name string) error {
	if len(name) > 500 {
		return fmt.Errorf("name exceeds maximum length of 500 characters (got %d)", len(name))
	}
	for _, r := range name {
		if r < 32 && r != '\t' && r != '\n' && r != '\r' {
			return fmt.Errorf("name contains invalid control characters")
		}
	}
	return nil
}

// ValidateGroupName checks a single group name.
func ValidateGroupName(group string) error {
	if len(group) == 0 {
		return fmt.Errorf("group name cannot be empty")
	}
	if len(group) > 255 {
		return fmt.Errorf("group name exceeds maximum length of 255 characters (got %d)", len(group))
	}
	for _, r := range group {
		if r < 32 {
			return fmt.Errorf("group name contains invalid control characters")
		}
	}
	return nil
}

// ParseAndValidateGroups splits the comma-separated groups header,
// trimming whitespace and dropping empty elements. When a whitelist is
// set, a group outside it is an error rather than silently dropped, so
// a mistyped proxy configuration surfaces immediately.
func ParseAndValidateGroups(groupsHeader string, whitelist []string) ([]string, error) {
	if len(groupsHeader) == 0 {
		return []string{}, nil
	}

	rawGroups := strings.Split(groupsHeader, ",")
	validated := []string{}

	for _, group := range rawGroups {
		trimmed := strings.TrimSpace(group)
		if len(trimmed) == 0 {
			continue
		}

		if err := ValidateGroupName(trimmed); err != nil {
			return nil, err
		}

		if len(whitelist) > 0 && !containsFold(whitelist, trimmed) {
			return nil, fmt.Errorf("group %q is not in whitelist", trimmed)
		}

		validated = append(validated, trimmed)
	}

	return validated, nil
}

func containsFold(haystack []string, needle string) bool {
	for _, v := range haystack {
		if strings.EqualFold(v, needle) {
			return true
		}
	}
	return false
}
