package directory

import (
	"bytes"
	"context"
	"crypto/tls"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"github.com/marmos91/esgate/internal/logger"
	"github.com/marmos91/esgate/internal/telemetry"
)

// defaultTimeout bounds every directory HTTP call; the original design had
// none, which turned a hung cluster into hung issuance requests.
const defaultTimeout = 10 * time.Second

// ElasticsearchConfig holds connection settings for the Elasticsearch
// security API.
type ElasticsearchConfig struct {
	// URL is the cluster base URL, e.g. https://es.example.com:9200.
	URL string `mapstructure:"url" validate:"required,url" yaml:"url"`

	// Username and Password are the management credentials used to
	// provision users.
	Username string `mapstructure:"username" yaml:"username"`
	Password string `mapstructure:"password" yaml:"password"`

	// InsecureSkipVerify disables TLS certificate verification.
	InsecureSkipVerify bool `mapstructure:"insecure_skip_verify" yaml:"insecure_skip_verify"`

	// Timeout bounds each request to the cluster. Defaults to 10s.
	Timeout time.Duration `mapstructure:"timeout" yaml:"timeout,omitempty"`

	// DryRun skips all writes to the cluster. Credentials are still
	// generated and cached, which is useful when testing the proxy chain.
	DryRun bool `mapstructure:"dry_run" yaml:"dry_run"`
}

// ElasticsearchClient implements Client against the _security endpoints.
type ElasticsearchClient struct {
	baseURL    string
	authHeader string
	httpClient *http.Client
}

// NewElasticsearchClient builds a client from cfg. No network traffic
// happens here; call Authenticate to verify connectivity.
func NewElasticsearchClient(cfg ElasticsearchConfig) *ElasticsearchClient {
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = defaultTimeout
	}

	httpClient := &http.Client{Timeout: timeout}
	if cfg.InsecureSkipVerify {
		httpClient.Transport = &http.Transport{
			TLSClientConfig: &tls.Config{InsecureSkipVerify: true},
		}
	}

	basic := base64.StdEncoding.EncodeToString([]byte(cfg.Username + ":" + cfg.Password))

	return &ElasticsearchClient{
		baseURL:    cfg.URL,
		authHeader: "Basic " + basic,
		httpClient: httpClient,
	}
}

// Authenticate calls GET /_security/_authenticate with the management
// credentials.
func (c *ElasticsearchClient) Authenticate(ctx context.Context) error {
	req, err := c.newRequest(ctx, http.MethodGet, "/_security/_authenticate", nil)
	if err != nil {
		return err
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("%w: %w", ErrConnect, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("%w: status %d", ErrAuth, resp.StatusCode)
	}
	return nil
}

// UpsertUser POSTs the user record to /_security/user/<username>.
// Elasticsearch reports whether the record was created or replaced in its
// response body.
func (c *ElasticsearchClient) UpsertUser(ctx context.Context, username string, user User) (UpsertOutcome, error) {
	ctx, span := telemetry.StartSpan(ctx, "directory.upsert")
	defer span.End()
	span.SetAttributes(telemetry.String(telemetry.AttrDirectoryURL, c.baseURL))

	payload, err := json.Marshal(user)
	if err != nil {
		return 0, fmt.Errorf("failed to encode user record: %w", err)
	}

	path := "/_security/user/" + url.PathEscape(username)
	req, err := c.newRequest(ctx, http.MethodPost, path, bytes.NewReader(payload))
	if err != nil {
		return 0, err
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return 0, fmt.Errorf("%w: %w", ErrConnect, err)
	}
	defer resp.Body.Close()

	body, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))

	if resp.StatusCode != http.StatusOK {
		return 0, &UpsertError{StatusCode: resp.StatusCode, Body: string(body)}
	}

	var result struct {
		Created bool `json:"created"`
	}
	if err := json.Unmarshal(body, &result); err != nil {
		return 0, fmt.Errorf("failed to decode upsert response: %w", err)
	}

	outcome := OutcomeUpdated
	if result.Created {
		outcome = OutcomeCreated
	}

	span.SetAttributes(telemetry.String(telemetry.AttrUpsertOutcome, outcome.String()))
	logger.DebugCtx(ctx, "directory upsert complete", "username", username, "outcome", outcome.String())

	return outcome, nil
}

func (c *ElasticsearchClient) newRequest(ctx context.Context, method, path string, body io.Reader) (*http.Request, error) {
	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, body)
	if err != nil {
		return nil, fmt.Errorf("failed to build directory request: %w", err)
	}
	req.Header.Set("Authorization", c.authHeader)
	req.Header.Set("Content-Type", "application/json")
	return req, nil
}
