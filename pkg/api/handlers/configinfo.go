package handlers

import (
	"html/template"
	"net/http"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/marmos91/esgate/internal/logger"
	"github.com/marmos91/esgate/pkg/config"
)

// ConfigHandler exposes the redacted runtime configuration for
// diagnostics. Secrets never leave the process; Redacted masks them
// before rendering.
type ConfigHandler struct {
	cfg *config.Config
}

// NewConfigHandler creates the config inspection handler.
func NewConfigHandler(cfg *config.Config) *ConfigHandler {
	return &ConfigHandler{cfg: cfg}
}

var configPage = template.Must(template.New("config").Parse(`<!DOCTYPE html>
<html>
<head><title>esgate configuration</title></head>
<body>
<h1>esgate configuration</h1>
<pre>{{.}}</pre>
</body>
</html>
`))

// Show renders the redacted configuration. The representation follows
// the request Content-Type: YAML for application/yaml or text/yaml,
// HTML for text/html, JSON otherwise.
func (h *ConfigHandler) Show(w http.ResponseWriter, r *http.Request) {
	redacted := h.cfg.Redacted()

	contentType := r.Header.Get("Content-Type")
	switch {
	case strings.Contains(contentType, "yaml"):
		data, err := yaml.Marshal(redacted)
		if err != nil {
			writeError(w, http.StatusInternalServerError, "failed to render configuration")
			return
		}
		w.Header().Set("Content-Type", "application/yaml")
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write(data)

	case strings.Contains(contentType, "text/html"):
		data, err := yaml.Marshal(redacted)
		if err != nil {
			writeError(w, http.StatusInternalServerError, "failed to render configuration")
			return
		}
		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		w.WriteHeader(http.StatusOK)
		if err := configPage.Execute(w, string(data)); err != nil {
			logger.Error("Failed to render config page", "error", err)
		}

	default:
		// Round-trip through YAML so the JSON keys match the config
		// file's snake_case naming.
		data, err := yaml.Marshal(redacted)
		if err != nil {
			writeError(w, http.StatusInternalServerError, "failed to render configuration")
			return
		}
		var generic map[string]interface{}
		if err := yaml.Unmarshal(data, &generic); err != nil {
			writeError(w, http.StatusInternalServerError, "failed to render configuration")
			return
		}
		writeJSON(w, http.StatusOK, generic)
	}
}
