package handlers

import (
	"net/http"

	"github.com/marmos91/esgate/pkg/cache"
	"github.com/marmos91/esgate/pkg/directory"
)

// HealthHandler serves the liveness and readiness probes.
type HealthHandler struct {
	store cache.Store
	dir   directory.Client
	// dryRun skips the directory check; there is nothing to reach
	dryRun bool
}

// NewHealthHandler creates a health handler. dir may be nil when the
// gate runs in dry-run mode.
func NewHealthHandler(store cache.Store, dir directory.Client, dryRun bool) *HealthHandler {
	return &HealthHandler{store: store, dir: dir, dryRun: dryRun}
}

// Health answers the plain probe with the minimal body older monitors
// expect.
func (h *HealthHandler) Health(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "OK"})
}

// Liveness reports that the process is up. It never touches backends so
// a dependency outage does not get the process restarted.
func (h *HealthHandler) Liveness(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, healthyResponse(map[string]string{"service": "esgate"}))
}

// Readiness verifies the cache and the directory are reachable. A 503
// takes the instance out of rotation until its dependencies recover.
func (h *HealthHandler) Readiness(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	checks := map[string]string{}
	healthy := true

	if err := h.store.Ping(ctx); err != nil {
		checks["cache"] = err.Error()
		healthy = false
	} else {
		checks["cache"] = "ok"
	}

	if h.dryRun || h.dir == nil {
		checks["directory"] = "skipped"
	} else if err := h.dir.Authenticate(ctx); err != nil {
		checks["directory"] = err.Error()
		healthy = false
	} else {
		checks["directory"] = "ok"
	}

	if !healthy {
		resp := unhealthyResponse("one or more dependencies unavailable")
		resp.Data = checks
		writeJSON(w, http.StatusServiceUnavailable, resp)
		return
	}

	writeJSON(w, http.StatusOK, healthyResponse(checks))
}
