package client

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"
	"strings"
	"time"

	"github.com/picogrid/legion-rendezvous/pkg/logger"
)

// contextKey is a custom type for context keys to avoid collisions
type contextKey string

// OrgIDContextKey is the context key for the organization ID
const OrgIDContextKey contextKey = "legion-org-id"

// DefaultTimeout applies when Config.Timeout is zero
const DefaultTimeout = 30 * time.Second

// Legion is a minimal client for the Legion entity API
type Legion struct {
	baseURL      string
	apiKey       string
	httpClient   *http.Client
	tokenManager TokenManager
}

// TokenManager supplies OAuth2 access tokens
type TokenManager interface {
	GetAccessToken(ctx context.Context) (string, error)
}

// Config holds the configuration for the Legion client
type Config struct {
	BaseURL      string
	APIKey       string
	Timeout      time.Duration
	TokenManager TokenManager // takes precedence over APIKey
}

// NewClient creates a new Legion client with the given configuration
func NewClient(cfg Config) (*Legion, error) {
	u, err := url.Parse(cfg.BaseURL)
	if err != nil {
		return nil, fmt.Errorf("invalid base URL: %w", err)
	}
	if u.Scheme == "" || u.Host == "" {
		return nil, fmt.Errorf("invalid base URL: %q", cfg.BaseURL)
	}

	timeout := cfg.Timeout
	if timeout == 0 {
		timeout = DefaultTimeout
	}

	return &Legion{
		baseURL:      strings.TrimRight(u.String(), "/"),
		apiKey:       cfg.APIKey,
		tokenManager: cfg.TokenManager,
		httpClient:   &http.Client{Timeout: timeout},
	}, nil
}

// GetAPIKey retrieves the API key from an environment variable
func GetAPIKey(envVarName string) string {
	if envVarName == "" {
		return ""
	}
	return os.Getenv(envVarName)
}

// WithOrgID returns a new context with the organization ID set
func WithOrgID(ctx context.Context, orgID string) context.Context {
	return context.WithValue(ctx, OrgIDContextKey, orgID)
}

// ValidateConnection checks the credentials against /v3/me
func (c *Legion) ValidateConnection(ctx context.Context) error {
	resp, err := c.doRequest(ctx, http.MethodGet, "/v3/me", nil)
	if err != nil {
		return fmt.Errorf("connection validation failed: %w", err)
	}
	return decodeResponse(resp, nil)
}

// doRequest performs an HTTP request with authentication and error handling
func (c *Legion) doRequest(ctx context.Context, method, path string, body interface{}) (*http.Response, error) {
	var bodyReader io.Reader
	if body != nil {
		jsonData, err := json.Marshal(body)
		if err != nil {
			return nil, fmt.Errorf("failed to marshal request body: %w", err)
		}
		bodyReader = bytes.NewReader(jsonData)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, bodyReader)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}

	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")

	if orgID, ok := ctx.Value(OrgIDContextKey).(string); ok && orgID != "" {
		req.Header.Set("X-ORG-ID", orgID)
	}

	if c.tokenManager != nil {
		token, err := c.tokenManager.GetAccessToken(ctx)
		if err != nil {
			return nil, fmt.Errorf("failed to get access token: %w", err)
		}
		req.Header.Set("Authorization", "Bearer "+token)
	} else if c.apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+c.apiKey)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("request failed: %w", err)
	}

	if resp.StatusCode >= 400 {
		defer closeBody(resp.Body)
		bodyBytes, _ := io.ReadAll(resp.Body)
		return nil, fmt.Errorf("HTTP %d: %s", resp.StatusCode, strings.TrimSpace(string(bodyBytes)))
	}

	return resp, nil
}

// decodeResponse decodes a JSON response into v and closes the body
func decodeResponse(resp *http.Response, v interface{}) error {
	defer closeBody(resp.Body)

	if v == nil {
		return nil
	}

	return json.NewDecoder(resp.Body).Decode(v)
}

func closeBody(body io.ReadCloser) {
	if err := body.Close(); err != nil {
		logger.Errorf("failed to close response body: %v", err)
	}
}
