package handlers

import (
	"encoding/base64"
	"errors"
	"fmt"
	"net/http"

	"github.com/marmos91/esgate/internal/logger"
	"github.com/marmos91/esgate/internal/telemetry"
	"github.com/marmos91/esgate/pkg/config"
	"github.com/marmos91/esgate/pkg/issuer"
)

// GateHandler serves the main authentication endpoint. It trusts the
// identity headers set by the fronting proxy, obtains a valid directory
// password from the issuer and answers with a Basic Authorization
// header the proxy forwards to the dashboard.
type GateHandler struct {
	issuer  *issuer.Issuer
	headers config.HeadersConfig
	// whitelist limits which asserted groups are accepted; empty allows all
	whitelist []string
}

// NewGateHandler creates the gate handler.
func NewGateHandler(iss *issuer.Issuer, authCfg config.AuthConfig) *GateHandler {
	return &GateHandler{
		issuer:    iss,
		headers:   authCfg.Headers,
		whitelist: authCfg.GroupWhitelist,
	}
}

// infoResponse is served when the username header is absent. Browsers
// hitting the gate directly get a hint instead of an error; the proxy
// always sets the header, so this is not a failure mode.
type infoResponse struct {
	Name string `json:"name"`
	Info string `json:"info"`
}

// Handle processes an authentication request.
func (h *GateHandler) Handle(w http.ResponseWriter, r *http.Request) {
	ctx, span := telemetry.StartSpan(r.Context(), "gate.handle")
	defer span.End()

	username := r.Header.Get(h.headers.Username)
	if username == "" {
		writeJSON(w, http.StatusOK, infoResponse{
			Name: "esgate",
			Info: "Please provide required headers",
		})
		return
	}

	if err := ValidateUsername(username); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	// Tag every log line below with the authenticated user.
	ctx = logger.WithContext(ctx, logger.FromContext(ctx).WithUsername(username))

	email := r.Header.Get(h.headers.Email)
	if err := ValidateEmail(email); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	name := r.Header.Get(h.headers.Name)
	if err := ValidateName(name); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	groups, err := ParseAndValidateGroups(r.Header.Get(h.headers.Groups), h.whitelist)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	span.SetAttributes(
		telemetry.String(telemetry.AttrUsername, username),
		telemetry.Int("issuance.group_count", len(groups)),
	)

	password, err := h.issuer.Issue(ctx, issuer.Identity{
		Username: username,
		Groups:   groups,
		Email:    email,
		Name:     name,
	})
	if err != nil {
		telemetry.RecordError(ctx, err)
		logger.ErrorCtx(ctx, "credential issuance failed", "error", err)
		writeError(w, http.StatusInternalServerError, issuanceMessage(err))
		return
	}

	// Mirror the request headers so the proxy sees its own identity
	// assertions back, then add the credential it came for.
	out := w.Header()
	for key, values := range r.Header {
		for _, v := range values {
			out.Add(key, v)
		}
	}
	out.Set("Authorization", "Basic "+basicAuth(username, password))

	w.WriteHeader(http.StatusOK)
}

// issuanceMessage describes an issuance failure for the response body.
// The cause stays in the logs; backend addresses and upstream error text
// must not reach the client.
func issuanceMessage(err error) string {
	var issErr *issuer.IssuanceError
	if errors.As(err, &issErr) {
		return fmt.Sprintf("credential issuance for %q failed", issErr.Username)
	}
	return "credential issuance failed"
}

// basicAuth encodes a username and password as an HTTP basic auth token.
func basicAuth(username, password string) string {
	return base64.StdEncoding.EncodeToString([]byte(username + ":" + password))
}
