package cache

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestStore(t *testing.T) *BadgerStore {
	t.Helper()

	store, err := NewBadgerStore(BadgerConfig{InMemory: true})
	require.NoError(t, err)
	t.Cleanup(func() { _ = store.Close() })

	return store
}

func TestBadgerSetGetRoundTrip(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	require.NoError(t, store.Set(ctx, "esgate-alice", []byte("ciphertext"), time.Hour))

	got, err := store.Get(ctx, "esgate-alice")
	require.NoError(t, err)
	assert.Equal(t, []byte("ciphertext"), got)
}

func TestBadgerGetMissingKey(t *testing.T) {
	store := newTestStore(t)

	_, err := store.Get(context.Background(), "absent")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestBadgerExists(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	ok, err := store.Exists(ctx, "esgate-alice")
	require.NoError(t, err)
	assert.False(t, ok)

	require.NoError(t, store.Set(ctx, "esgate-alice", []byte("v"), time.Hour))

	ok, err = store.Exists(ctx, "esgate-alice")
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestBadgerTTL(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	ttl, err := store.TTL(ctx, "absent")
	require.NoError(t, err)
	assert.LessOrEqual(t, ttl, time.Duration(0))

	require.NoError(t, store.Set(ctx, "esgate-alice", []byte("v"), time.Hour))

	ttl, err = store.TTL(ctx, "esgate-alice")
	require.NoError(t, err)
	assert.Greater(t, ttl, 59*time.Minute)
	assert.LessOrEqual(t, ttl, time.Hour)
}

func TestBadgerSetOverwrites(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	require.NoError(t, store.Set(ctx, "k", []byte("first"), time.Hour))
	require.NoError(t, store.Set(ctx, "k", []byte("second"), time.Hour))

	got, err := store.Get(ctx, "k")
	require.NoError(t, err)
	assert.Equal(t, []byte("second"), got)
}

func TestBadgerRefreshExpiry(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	require.NoError(t, store.Set(ctx, "k", []byte("v"), 2*time.Second))
	require.NoError(t, store.RefreshExpiry(ctx, "k", time.Hour))

	ttl, err := store.TTL(ctx, "k")
	require.NoError(t, err)
	assert.Greater(t, ttl, time.Minute)

	// Value must be untouched by the refresh.
	got, err := store.Get(ctx, "k")
	require.NoError(t, err)
	assert.Equal(t, []byte("v"), got)
}

func TestBadgerRefreshExpiryMissingKeyIsNoop(t *testing.T) {
	store := newTestStore(t)

	assert.NoError(t, store.RefreshExpiry(context.Background(), "absent", time.Hour))
}

func TestBadgerExpiredEntryBehavesAbsent(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	require.NoError(t, store.Set(ctx, "k", []byte("v"), time.Second))
	time.Sleep(1100 * time.Millisecond)

	ok, err := store.Exists(ctx, "k")
	require.NoError(t, err)
	assert.False(t, ok)

	_, err = store.Get(ctx, "k")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestBadgerPingAfterClose(t *testing.T) {
	store, err := NewBadgerStore(BadgerConfig{InMemory: true})
	require.NoError(t, err)

	assert.NoError(t, store.Ping(context.Background()))
	require.NoError(t, store.Close())
	assert.Error(t, store.Ping(context.Background()))
}

func TestBadgerContextCancelled(t *testing.T) {
	store := newTestStore(t)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := store.Get(ctx, "k")
	assert.ErrorIs(t, err, context.Canceled)
}

func TestFactorySelectsBackend(t *testing.T) {
	store, err := New(Config{
		Backend: BackendBadger,
		TTL:     time.Hour,
		Badger:  BadgerConfig{InMemory: true},
	})
	require.NoError(t, err)
	defer func() { _ = store.Close() }()

	_, ok := store.(*BadgerStore)
	assert.True(t, ok)

	_, err = New(Config{Backend: "memcached"})
	assert.Error(t, err)
}
