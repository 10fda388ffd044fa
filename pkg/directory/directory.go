// Package directory talks to the remote user directory that backs the
// dashboard, i.e. the Elasticsearch security API. The issuer only depends
// on the Client interface; the HTTP implementation lives in
// elasticsearch.go.
package directory

import (
	"context"
	"errors"
	"fmt"
)

var (
	// ErrConnect indicates the directory service could not be reached.
	ErrConnect = errors.New("directory unreachable")

	// ErrAuth indicates the management credentials were rejected.
	ErrAuth = errors.New("directory authentication failed")
)

// UpsertOutcome distinguishes whether an upsert created a new user record
// or updated an existing one.
type UpsertOutcome int

const (
	// OutcomeCreated means the user did not exist and was created.
	OutcomeCreated UpsertOutcome = iota

	// OutcomeUpdated means an existing user record was overwritten.
	OutcomeUpdated
)

func (o UpsertOutcome) String() string {
	switch o {
	case OutcomeCreated:
		return "created"
	case OutcomeUpdated:
		return "updated"
	default:
		return "unknown"
	}
}

// UpsertError reports a rejected upsert: the service answered, but with a
// non-success status.
type UpsertError struct {
	StatusCode int
	Body       string
}

func (e *UpsertError) Error() string {
	return fmt.Sprintf("directory rejected upsert with status %d: %s", e.StatusCode, e.Body)
}

// UserMetadata is the free-form metadata attached to a directory user.
type UserMetadata struct {
	Groups []string `json:"groups"`
}

// User is the record written to the directory on every issuance.
type User struct {
	Enabled  bool         `json:"enabled"`
	Email    string       `json:"email"`
	Password string       `json:"password"`
	Metadata UserMetadata `json:"metadata"`
	FullName string       `json:"full_name"`
	Roles    []string     `json:"roles"`
}

// Client is the capability interface consumed by the issuer.
type Client interface {
	// Authenticate verifies the management credentials against the
	// directory. Called at startup and by readiness probes.
	Authenticate(ctx context.Context) error

	// UpsertUser creates or replaces the user record stored under
	// username. The call is all-or-nothing: any error means no change can
	// be assumed on the remote side.
	UpsertUser(ctx context.Context, username string, user User) (UpsertOutcome, error)
}
