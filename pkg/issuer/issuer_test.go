package issuer

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/marmos91/esgate/pkg/crypto"
	"github.com/marmos91/esgate/pkg/directory"
	"github.com/marmos91/esgate/pkg/roles"
)

// fakeStore is an in-memory cache.Store with controllable TTL reporting.
type fakeStore struct {
	mu       sync.Mutex
	values   map[string][]byte
	ttls     map[string]time.Duration
	setCalls int
	refCalls int
}

func newFakeStore() *fakeStore {
	return &fakeStore{
		values: make(map[string][]byte),
		ttls:   make(map[string]time.Duration),
	}
}

func (s *fakeStore) Exists(_ context.Context, key string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, ok := s.values[key]
	return ok, nil
}

func (s *fakeStore) Get(_ context.Context, key string) ([]byte, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	v, ok := s.values[key]
	if !ok {
		return nil, errors.New("not found")
	}
	return v, nil
}

func (s *fakeStore) Set(_ context.Context, key string, value []byte, ttl time.Duration) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.setCalls++
	s.values[key] = value
	s.ttls[key] = ttl
	return nil
}

func (s *fakeStore) TTL(_ context.Context, key string) (time.Duration, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.ttls[key], nil
}

func (s *fakeStore) RefreshExpiry(_ context.Context, key string, ttl time.Duration) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.refCalls++
	if _, ok := s.values[key]; ok {
		s.ttls[key] = ttl
	}
	return nil
}

func (s *fakeStore) Ping(context.Context) error { return nil }
func (s *fakeStore) Close() error               { return nil }

// setTTL overrides the reported remaining lifetime without touching the
// stored value.
func (s *fakeStore) setTTL(key string, ttl time.Duration) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.ttls[key] = ttl
}

// fakeDirectory records upserts and can be told to fail.
type fakeDirectory struct {
	mu      sync.Mutex
	upserts []directory.User
	names   []string
	err     error
	outcome directory.UpsertOutcome
}

func (d *fakeDirectory) Authenticate(context.Context) error { return nil }

func (d *fakeDirectory) UpsertUser(_ context.Context, username string, user directory.User) (directory.UpsertOutcome, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.err != nil {
		return 0, d.err
	}
	d.names = append(d.names, username)
	d.upserts = append(d.upserts, user)
	return d.outcome, nil
}

func (d *fakeDirectory) callCount() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return len(d.names)
}

func newTestIssuer(t *testing.T, store *fakeStore, dir *fakeDirectory, cfg Config) *Issuer {
	t.Helper()
	if cfg.TTL == 0 {
		cfg.TTL = time.Hour
	}
	roleCfg := roles.GroupRoleConfig{
		DefaultRole:   "kibana_user",
		GroupMappings: map[string][]string{"admins": {"superuser"}},
	}
	return New(store, dir, crypto.New("test-passphrase"), roleCfg, cfg)
}

func TestCacheKey(t *testing.T) {
	assert.Equal(t, "esgate-alice", CacheKey("alice"))
	assert.Equal(t, CacheKey("bob"), CacheKey("bob"))

	// Usernames with separators must not produce colliding keys.
	assert.NotEqual(t, CacheKey("a/b"), CacheKey("a%2Fb"))
}

func TestIssueProvisionsOnMiss(t *testing.T) {
	store := newFakeStore()
	dir := &fakeDirectory{outcome: directory.OutcomeCreated}
	iss := newTestIssuer(t, store, dir, Config{})

	password, err := iss.Issue(context.Background(), Identity{
		Username: "alice",
		Groups:   []string{"admins", "devs"},
		Email:    "alice@example.com",
		Name:     "Alice Doe",
	})
	require.NoError(t, err)
	assert.Len(t, password, 18)

	require.Equal(t, 1, dir.callCount())
	assert.Equal(t, "alice", dir.names[0])

	user := dir.upserts[0]
	assert.True(t, user.Enabled)
	assert.Equal(t, "alice@example.com", user.Email)
	assert.Equal(t, "Alice Doe", user.FullName)
	assert.Equal(t, password, user.Password)
	assert.Equal(t, []string{"superuser"}, user.Roles)
	assert.Equal(t, []string{"admins", "devs"}, user.Metadata.Groups)

	// The cached blob is the encrypted password, not the plaintext.
	raw, err := store.Get(context.Background(), CacheKey("alice"))
	require.NoError(t, err)
	assert.NotEqual(t, password, string(raw))

	decrypted, err := crypto.New("test-passphrase").Decrypt(string(raw))
	require.NoError(t, err)
	assert.Equal(t, password, decrypted)
}

func TestIssueIsIdempotentWhileCached(t *testing.T) {
	store := newFakeStore()
	dir := &fakeDirectory{}
	iss := newTestIssuer(t, store, dir, Config{})

	id := Identity{Username: "bob"}

	first, err := iss.Issue(context.Background(), id)
	require.NoError(t, err)

	second, err := iss.Issue(context.Background(), id)
	require.NoError(t, err)
	third, err := iss.Issue(context.Background(), id)
	require.NoError(t, err)

	assert.Equal(t, first, second)
	assert.Equal(t, first, third)
	assert.Equal(t, 1, dir.callCount(), "repeat issuance must not touch the directory")
	assert.Equal(t, 1, store.setCalls)
}

func TestIssueRegeneratesAfterExpiry(t *testing.T) {
	store := newFakeStore()
	dir := &fakeDirectory{}
	iss := newTestIssuer(t, store, dir, Config{})

	id := Identity{Username: "carol"}

	first, err := iss.Issue(context.Background(), id)
	require.NoError(t, err)

	// Simulate expiry: the backend reports no remaining lifetime.
	store.setTTL(CacheKey("carol"), 0)

	second, err := iss.Issue(context.Background(), id)
	require.NoError(t, err)

	assert.NotEqual(t, first, second)
	assert.Equal(t, 2, dir.callCount())
}

func TestIssueUpsertFailureLeavesNoCacheEntry(t *testing.T) {
	store := newFakeStore()
	dir := &fakeDirectory{err: errors.New("cluster said no")}
	iss := newTestIssuer(t, store, dir, Config{})

	_, err := iss.Issue(context.Background(), Identity{Username: "dave"})
	require.Error(t, err)

	var issErr *IssuanceError
	require.ErrorAs(t, err, &issErr)
	assert.Equal(t, "dave", issErr.Username)
	assert.ErrorContains(t, err, "cluster said no")

	assert.Equal(t, 0, store.setCalls, "a rejected upsert must not be cached")

	// The next request retries the directory instead of serving a
	// half-issued credential.
	dir.err = nil
	_, err = iss.Issue(context.Background(), Identity{Username: "dave"})
	require.NoError(t, err)
	assert.Equal(t, 1, store.setCalls)
}

func TestIssueFixedPassword(t *testing.T) {
	store := newFakeStore()
	dir := &fakeDirectory{}
	iss := newTestIssuer(t, store, dir, Config{FixedPassword: "hunter2"})

	password, err := iss.Issue(context.Background(), Identity{Username: "eve"})
	require.NoError(t, err)
	assert.Equal(t, "hunter2", password)
	assert.Equal(t, "hunter2", dir.upserts[0].Password)
}

func TestIssueDryRunSkipsDirectory(t *testing.T) {
	store := newFakeStore()
	dir := &fakeDirectory{}
	iss := newTestIssuer(t, store, dir, Config{DryRun: true})

	password, err := iss.Issue(context.Background(), Identity{Username: "frank"})
	require.NoError(t, err)
	assert.Len(t, password, 18)

	assert.Equal(t, 0, dir.callCount())
	assert.Equal(t, 1, store.setCalls, "dry run still caches the credential")
}

func TestIssueExtendsTTLOnlyBelowFullWindow(t *testing.T) {
	store := newFakeStore()
	dir := &fakeDirectory{}
	iss := newTestIssuer(t, store, dir, Config{TTL: time.Hour, ExtendTTL: true})

	id := Identity{Username: "grace"}

	_, err := iss.Issue(context.Background(), id)
	require.NoError(t, err)

	// Full window remaining: no refresh.
	_, err = iss.Issue(context.Background(), id)
	require.NoError(t, err)
	assert.Equal(t, 0, store.refCalls)

	// Partially elapsed window: refresh back to the full TTL.
	store.setTTL(CacheKey("grace"), 10*time.Minute)
	_, err = iss.Issue(context.Background(), id)
	require.NoError(t, err)
	assert.Equal(t, 1, store.refCalls)

	ttl, err := store.TTL(context.Background(), CacheKey("grace"))
	require.NoError(t, err)
	assert.Equal(t, time.Hour, ttl)
}

func TestIssueNoExtensionWhenDisabled(t *testing.T) {
	store := newFakeStore()
	dir := &fakeDirectory{}
	iss := newTestIssuer(t, store, dir, Config{TTL: time.Hour})

	id := Identity{Username: "heidi"}

	_, err := iss.Issue(context.Background(), id)
	require.NoError(t, err)

	store.setTTL(CacheKey("heidi"), time.Minute)
	_, err = iss.Issue(context.Background(), id)
	require.NoError(t, err)
	assert.Equal(t, 0, store.refCalls)
}

func TestIssueConcurrentSameUserSingleUpsert(t *testing.T) {
	store := newFakeStore()
	dir := &fakeDirectory{}
	iss := newTestIssuer(t, store, dir, Config{})

	const workers = 16
	var wg sync.WaitGroup
	passwords := make([]string, workers)
	errs := make([]error, workers)

	for n := 0; n < workers; n++ {
		wg.Add(1)
		go func(n int) {
			defer wg.Done()
			passwords[n], errs[n] = iss.Issue(context.Background(), Identity{Username: "ivan"})
		}(n)
	}
	wg.Wait()

	for n := 0; n < workers; n++ {
		require.NoError(t, errs[n])
		assert.Equal(t, passwords[0], passwords[n])
	}
	assert.Equal(t, 1, dir.callCount())
}
