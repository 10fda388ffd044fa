package api

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/marmos91/esgate/pkg/cache"
	"github.com/marmos91/esgate/pkg/config"
	"github.com/marmos91/esgate/pkg/crypto"
	"github.com/marmos91/esgate/pkg/issuer"
)

func newStoppedServer(t *testing.T) *Server {
	t.Helper()

	cfg := config.GetDefaultConfig()
	cfg.SecretKey = "server-test-key"
	cfg.Server.Host = "127.0.0.1"
	cfg.Server.Port = 0

	store, err := cache.New(cache.Config{
		Backend: cache.BackendBadger,
		TTL:     time.Hour,
		Badger:  cache.BadgerConfig{InMemory: true},
	})
	require.NoError(t, err)
	t.Cleanup(func() { _ = store.Close() })

	dir := &recordingDirectory{}
	iss := issuer.New(store, dir, crypto.New(cfg.SecretKey), cfg.Roles,
		issuer.Config{TTL: cfg.Cache.TTL})

	return NewServer(cfg, iss, store, dir)
}

func TestServerStartStopsOnContextCancel(t *testing.T) {
	srv := newStoppedServer(t)

	ctx, cancel := context.WithCancel(context.Background())

	done := make(chan error, 1)
	go func() { done <- srv.Start(ctx) }()

	// Give the listener a moment to come up, then shut down.
	time.Sleep(100 * time.Millisecond)
	cancel()

	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("server did not shut down after context cancellation")
	}
}

func TestServerStopIsIdempotent(t *testing.T) {
	srv := newStoppedServer(t)

	ctx := context.Background()
	assert.NoError(t, srv.Stop(ctx))
	assert.NoError(t, srv.Stop(ctx))
}

func TestServerAddr(t *testing.T) {
	srv := newStoppedServer(t)
	assert.Equal(t, "127.0.0.1:0", srv.Addr())
}
