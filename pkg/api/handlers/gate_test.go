package handlers

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/marmos91/esgate/pkg/config"
	"github.com/marmos91/esgate/pkg/crypto"
	"github.com/marmos91/esgate/pkg/directory"
	"github.com/marmos91/esgate/pkg/issuer"
	"github.com/marmos91/esgate/pkg/roles"
)

// memStore is a minimal in-memory cache.Store for handler tests.
type memStore struct {
	mu     sync.Mutex
	values map[string][]byte
	ttls   map[string]time.Duration
	broken bool
}

func newMemStore() *memStore {
	return &memStore{values: map[string][]byte{}, ttls: map[string]time.Duration{}}
}

func (s *memStore) Exists(_ context.Context, key string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, ok := s.values[key]
	return ok, nil
}

func (s *memStore) Get(_ context.Context, key string) ([]byte, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	v, ok := s.values[key]
	if !ok {
		return nil, errors.New("not found")
	}
	return v, nil
}

func (s *memStore) Set(_ context.Context, key string, value []byte, ttl time.Duration) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.values[key] = value
	s.ttls[key] = ttl
	return nil
}

func (s *memStore) TTL(_ context.Context, key string) (time.Duration, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.ttls[key], nil
}

func (s *memStore) RefreshExpiry(_ context.Context, key string, ttl time.Duration) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.values[key]; ok {
		s.ttls[key] = ttl
	}
	return nil
}

func (s *memStore) Ping(context.Context) error {
	if s.broken {
		return errors.New("cache down")
	}
	return nil
}

func (s *memStore) Close() error { return nil }

// stubDirectory implements directory.Client for handler tests.
type stubDirectory struct {
	mu      sync.Mutex
	users   map[string]directory.User
	err     error
	authErr error
}

func newStubDirectory() *stubDirectory {
	return &stubDirectory{users: map[string]directory.User{}}
}

func (d *stubDirectory) Authenticate(context.Context) error { return d.authErr }

func (d *stubDirectory) UpsertUser(_ context.Context, username string, user directory.User) (directory.UpsertOutcome, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.err != nil {
		return 0, d.err
	}
	_, existed := d.users[username]
	d.users[username] = user
	if existed {
		return directory.OutcomeUpdated, nil
	}
	return directory.OutcomeCreated, nil
}

func testAuthConfig() config.AuthConfig {
	cfg := config.AuthConfig{}
	cfg.Headers = config.HeadersConfig{
		Username: "Remote-User",
		Groups:   "Remote-Groups",
		Email:    "Remote-Email",
		Name:     "Remote-Name",
	}
	return cfg
}

func newTestGate(t *testing.T, store *memStore, dir *stubDirectory, authCfg config.AuthConfig) *GateHandler {
	t.Helper()
	iss := issuer.New(store, dir, crypto.New("handler-test-key"),
		roles.GroupRoleConfig{
			DefaultRole:   "viewer",
			GroupMappings: map[string][]string{"admins": {"superuser"}},
		},
		issuer.Config{TTL: time.Hour},
	)
	return NewGateHandler(iss, authCfg)
}

func TestGateMissingUsernameHeader(t *testing.T) {
	h := newTestGate(t, newMemStore(), newStubDirectory(), testAuthConfig())

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	rec := httptest.NewRecorder()
	h.Handle(rec, req)

	// Not an error: hitting the gate without the proxy is informational.
	require.Equal(t, http.StatusOK, rec.Code)

	var body infoResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, "esgate", body.Name)
	assert.Contains(t, body.Info, "headers")
	assert.Empty(t, rec.Header().Get("Authorization"))
}

func TestGateSuccess(t *testing.T) {
	store := newMemStore()
	dir := newStubDirectory()
	h := newTestGate(t, store, dir, testAuthConfig())

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("Remote-User", "alice")
	req.Header.Set("Remote-Groups", "admins, devs")
	req.Header.Set("Remote-Email", "alice@example.com")
	req.Header.Set("Remote-Name", "Alice Doe")
	rec := httptest.NewRecorder()
	h.Handle(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)

	auth := rec.Header().Get("Authorization")
	require.True(t, strings.HasPrefix(auth, "Basic "), "expected basic auth, got %q", auth)

	decoded, err := base64.StdEncoding.DecodeString(strings.TrimPrefix(auth, "Basic "))
	require.NoError(t, err)
	parts := strings.SplitN(string(decoded), ":", 2)
	require.Len(t, parts, 2)
	assert.Equal(t, "alice", parts[0])
	assert.NotEmpty(t, parts[1])

	// The directory got the same password the header carries.
	user := dir.users["alice"]
	assert.Equal(t, parts[1], user.Password)
	assert.Equal(t, []string{"superuser"}, user.Roles)
	assert.Equal(t, []string{"admins", "devs"}, user.Metadata.Groups)

	// Identity headers are mirrored back to the proxy.
	assert.Equal(t, "alice", rec.Header().Get("Remote-User"))
	assert.Equal(t, "alice@example.com", rec.Header().Get("Remote-Email"))
}

func TestGateRepeatRequestServedFromCache(t *testing.T) {
	store := newMemStore()
	dir := newStubDirectory()
	h := newTestGate(t, store, dir, testAuthConfig())

	issue := func() string {
		req := httptest.NewRequest(http.MethodGet, "/", nil)
		req.Header.Set("Remote-User", "bob")
		rec := httptest.NewRecorder()
		h.Handle(rec, req)
		require.Equal(t, http.StatusOK, rec.Code)
		return rec.Header().Get("Authorization")
	}

	first := issue()
	second := issue()
	assert.Equal(t, first, second, "cached credential must produce the same authorization")
}

func TestGateInvalidUsername(t *testing.T) {
	h := newTestGate(t, newMemStore(), newStubDirectory(), testAuthConfig())

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("Remote-User", "alice; DROP TABLE users")
	rec := httptest.NewRecorder()
	h.Handle(rec, req)

	require.Equal(t, http.StatusBadRequest, rec.Code)

	var body ErrorResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Contains(t, body.Error, "username")
}

func TestGateInvalidEmail(t *testing.T) {
	h := newTestGate(t, newMemStore(), newStubDirectory(), testAuthConfig())

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("Remote-User", "alice")
	req.Header.Set("Remote-Email", "not-an-email")
	rec := httptest.NewRecorder()
	h.Handle(rec, req)

	require.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestGateGroupWhitelist(t *testing.T) {
	authCfg := testAuthConfig()
	authCfg.GroupWhitelist = []string{"admins"}
	h := newTestGate(t, newMemStore(), newStubDirectory(), authCfg)

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("Remote-User", "alice")
	req.Header.Set("Remote-Groups", "admins,outsiders")
	rec := httptest.NewRecorder()
	h.Handle(rec, req)

	require.Equal(t, http.StatusBadRequest, rec.Code)

	var body ErrorResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Contains(t, body.Error, "whitelist")
}

func TestGateDirectoryFailure(t *testing.T) {
	store := newMemStore()
	dir := newStubDirectory()
	dir.err = errors.New("cluster unreachable")
	h := newTestGate(t, store, dir, testAuthConfig())

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("Remote-User", "carol")
	rec := httptest.NewRecorder()
	h.Handle(rec, req)

	require.Equal(t, http.StatusInternalServerError, rec.Code)

	// The body carries an "error" key naming the failed issuance while
	// the backend error text stays out of the response.
	var raw map[string]string
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &raw))
	require.Contains(t, raw, "error")
	assert.Contains(t, raw["error"], `credential issuance for "carol" failed`)
	assert.NotContains(t, raw["error"], "cluster unreachable")
	assert.Empty(t, rec.Header().Get("Authorization"))
}

func TestGateCustomHeaderNames(t *testing.T) {
	authCfg := testAuthConfig()
	authCfg.Headers.Username = "X-Forwarded-User"
	h := newTestGate(t, newMemStore(), newStubDirectory(), authCfg)

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("X-Forwarded-User", "dave")
	rec := httptest.NewRecorder()
	h.Handle(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	assert.NotEmpty(t, rec.Header().Get("Authorization"))
}
