package issuer

import (
	"context"
	"fmt"
	"net/url"
	"time"

	"github.com/google/uuid"

	"github.com/marmos91/esgate/internal/logger"
	"github.com/marmos91/esgate/internal/telemetry"
	"github.com/marmos91/esgate/pkg/cache"
	"github.com/marmos91/esgate/pkg/crypto"
	"github.com/marmos91/esgate/pkg/directory"
	"github.com/marmos91/esgate/pkg/metrics"
	"github.com/marmos91/esgate/pkg/roles"
)

// cacheKeyPrefix namespaces issuer entries inside a shared cache backend.
const cacheKeyPrefix = "esgate-"

// Identity is the caller identity extracted from the trusted proxy
// headers.
type Identity struct {
	Username string
	Groups   []string
	Email    string
	Name     string
}

// Config controls credential issuance.
type Config struct {
	// TTL is the lifetime of a cached credential.
	TTL time.Duration

	// ExtendTTL re-arms the cache expiry on every valid lookup, turning
	// the TTL into an inactivity window instead of a hard deadline.
	ExtendTTL bool

	// FixedPassword, when set, is issued to every user instead of a
	// generated one. Meant for test environments only.
	FixedPassword string

	// DryRun skips the directory upsert. Credentials are still
	// generated, encrypted and cached.
	DryRun bool
}

// IssuanceError wraps any failure inside Issue so callers can report a
// single failure class while the cause stays inspectable via errors.As
// and errors.Is.
type IssuanceError struct {
	Username string
	Cause    error
}

func (e *IssuanceError) Error() string {
	return fmt.Sprintf("credential issuance for %q failed: %v", e.Username, e.Cause)
}

func (e *IssuanceError) Unwrap() error { return e.Cause }

// Issuer produces a valid directory password for an identity, creating
// or updating the directory user and caching the encrypted credential.
type Issuer struct {
	store     cache.Store
	dir       directory.Client
	cipher    *crypto.Cipher
	roleCfg   roles.GroupRoleConfig
	cfg       Config
	userLocks *keyedMutex
}

// New builds an Issuer. All collaborators are required except dir, which
// may be nil only when cfg.DryRun is set.
func New(store cache.Store, dir directory.Client, cipher *crypto.Cipher, roleCfg roles.GroupRoleConfig, cfg Config) *Issuer {
	return &Issuer{
		store:     store,
		dir:       dir,
		cipher:    cipher,
		roleCfg:   roleCfg,
		cfg:       cfg,
		userLocks: newKeyedMutex(),
	}
}

// CacheKey returns the cache key for a username. The username is
// escaped so that usernames with separators cannot collide with or
// shadow other entries.
func CacheKey(username string) string {
	return cacheKeyPrefix + url.QueryEscape(username)
}

// Issue returns a plaintext password for the identity, reusing the
// cached credential when one is still live and provisioning a fresh one
// otherwise. Concurrent calls for the same username are serialized, so
// a burst of requests behind an expired entry performs exactly one
// directory write.
func (i *Issuer) Issue(ctx context.Context, id Identity) (string, error) {
	unlock := i.userLocks.Lock(id.Username)
	defer unlock()

	ctx, span := telemetry.StartSpan(ctx, "issuer.issue")
	defer span.End()
	span.SetAttributes(telemetry.String(telemetry.AttrUsername, id.Username))

	issuanceID := uuid.New().String()
	key := CacheKey(id.Username)

	remaining, err := i.store.TTL(ctx, key)
	if err != nil {
		return "", i.fail(ctx, id.Username, err)
	}

	if remaining > 0 {
		password, err := i.reuse(ctx, key, remaining, issuanceID, id.Username)
		if err != nil {
			return "", i.fail(ctx, id.Username, err)
		}
		span.SetAttributes(telemetry.Bool(telemetry.AttrCacheHit, true))
		metrics.ObserveIssuance("cached")
		return password, nil
	}

	span.SetAttributes(telemetry.Bool(telemetry.AttrCacheHit, false))
	metrics.ObserveCacheLookup(false)
	logger.DebugCtx(ctx, "no live cached credential, provisioning",
		"issuance_id", issuanceID, "username", id.Username)

	password, outcome, err := i.provision(ctx, id, issuanceID)
	if err != nil {
		return "", i.fail(ctx, id.Username, err)
	}

	encrypted, err := i.cipher.Encrypt(password)
	if err != nil {
		return "", i.fail(ctx, id.Username, err)
	}

	if err := i.store.Set(ctx, key, []byte(encrypted), i.cfg.TTL); err != nil {
		return "", i.fail(ctx, id.Username, err)
	}

	span.SetAttributes(telemetry.String(telemetry.AttrOutcome, outcome))
	metrics.ObserveIssuance("issued")
	logger.InfoCtx(ctx, "credential issued",
		"issuance_id", issuanceID,
		"username", id.Username,
		"outcome", outcome,
		"ttl", i.cfg.TTL.String())

	return password, nil
}

// fail records the failure on metrics and the active span and wraps the
// cause.
func (i *Issuer) fail(ctx context.Context, username string, cause error) error {
	metrics.ObserveIssuance("failed")
	err := &IssuanceError{Username: username, Cause: cause}
	telemetry.RecordError(ctx, err)
	return err
}

// reuse decrypts the cached credential and, when the sliding window is
// enabled, re-arms its expiry. The expiry is only refreshed while the
// remaining lifetime is below the full TTL, which keeps backends that
// report coarse remaining times from rewriting the entry on every hit.
func (i *Issuer) reuse(ctx context.Context, key string, remaining time.Duration, issuanceID, username string) (string, error) {
	raw, err := i.store.Get(ctx, key)
	if err != nil {
		return "", err
	}

	password, err := i.cipher.Decrypt(string(raw))
	if err != nil {
		return "", err
	}

	metrics.ObserveCacheLookup(true)

	if i.cfg.ExtendTTL && remaining < i.cfg.TTL {
		if err := i.store.RefreshExpiry(ctx, key, i.cfg.TTL); err != nil {
			return "", err
		}
		metrics.ObserveTTLExtension()
		logger.DebugCtx(ctx, "cache expiry extended",
			"issuance_id", issuanceID,
			"username", username,
			"remaining", remaining.String(),
			"ttl", i.cfg.TTL.String())
	}

	return password, nil
}

// provision generates the password and writes the user record to the
// directory. A failed upsert aborts issuance before anything reaches
// the cache, so stale credentials never outlive a rejected write.
func (i *Issuer) provision(ctx context.Context, id Identity, issuanceID string) (password, outcome string, err error) {
	if i.cfg.FixedPassword != "" {
		password = i.cfg.FixedPassword
	} else {
		password, err = crypto.GenerateToken()
		if err != nil {
			return "", "", err
		}
	}

	if i.cfg.DryRun {
		logger.InfoCtx(ctx, "dry run, skipping directory upsert",
			"issuance_id", issuanceID, "username", id.Username)
		return password, "dry_run", nil
	}

	user := directory.User{
		Enabled:  true,
		Email:    id.Email,
		Password: password,
		FullName: id.Name,
		Roles:    roles.Map(id.Groups, i.roleCfg),
		Metadata: directory.UserMetadata{Groups: id.Groups},
	}

	start := time.Now()
	result, err := i.dir.UpsertUser(ctx, id.Username, user)
	metrics.ObserveUpsert(time.Since(start))
	if err != nil {
		logger.ErrorCtx(ctx, "directory upsert failed",
			"issuance_id", issuanceID, "username", id.Username, "error", err)
		return "", "", err
	}

	return password, result.String(), nil
}
