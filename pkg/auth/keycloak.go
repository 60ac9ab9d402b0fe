package auth

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/picogrid/legion-rendezvous/pkg/logger"
)

// KeycloakConfig holds the configuration for Keycloak authentication
type KeycloakConfig struct {
	BaseURL  string
	Realm    string
	ClientID string
	Timeout  time.Duration
}

// TokenResponse represents the response from the Keycloak token endpoint
type TokenResponse struct {
	AccessToken      string `json:"access_token"`
	RefreshToken     string `json:"refresh_token"`
	ExpiresIn        int    `json:"expires_in"`
	RefreshExpiresIn int    `json:"refresh_expires_in"`
	TokenType        string `json:"token_type"`
}

// KeycloakClient obtains and refreshes tokens from a Keycloak realm
type KeycloakClient struct {
	config     KeycloakConfig
	httpClient *http.Client
}

// NewKeycloakClient creates a new Keycloak client
func NewKeycloakClient(config KeycloakConfig) *KeycloakClient {
	timeout := config.Timeout
	if timeout == 0 {
		timeout = 10 * time.Second
	}

	return &KeycloakClient{
		config:     config,
		httpClient: &http.Client{Timeout: timeout},
	}
}

// Authenticate performs password-based authentication
func (k *KeycloakClient) Authenticate(ctx context.Context, username, password string) (*TokenResponse, error) {
	data := url.Values{}
	data.Set("grant_type", "password")
	data.Set("username", username)
	data.Set("password", password)

	return k.requestToken(ctx, data, "authentication")
}

// RefreshToken exchanges a refresh token for a new access token
func (k *KeycloakClient) RefreshToken(ctx context.Context, refreshToken string) (*TokenResponse, error) {
	data := url.Values{}
	data.Set("grant_type", "refresh_token")
	data.Set("refresh_token", refreshToken)

	return k.requestToken(ctx, data, "token refresh")
}

func (k *KeycloakClient) tokenURL() string {
	return fmt.Sprintf("%s/realms/%s/protocol/openid-connect/token", strings.TrimRight(k.config.BaseURL, "/"), k.config.Realm)
}

func (k *KeycloakClient) requestToken(ctx context.Context, data url.Values, action string) (*TokenResponse, error) {
	data.Set("client_id", k.config.ClientID)

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, k.tokenURL(), strings.NewReader(data.Encode()))
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := k.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%s request failed: %w", action, err)
	}
	defer func() {
		if err := resp.Body.Close(); err != nil {
			logger.Errorf("failed to close response body: %v", err)
		}
	}()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read response: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		if resp.StatusCode == http.StatusUnauthorized && data.Get("grant_type") == "password" {
			return nil, fmt.Errorf("invalid credentials")
		}

		var errorResp struct {
			Error            string `json:"error"`
			ErrorDescription string `json:"error_description"`
		}
		if err := json.Unmarshal(body, &errorResp); err != nil || errorResp.ErrorDescription == "" {
			return nil, fmt.Errorf("%s failed: HTTP %d", action, resp.StatusCode)
		}
		return nil, fmt.Errorf("%s failed: %s", action, errorResp.ErrorDescription)
	}

	var tokenResp TokenResponse
	if err := json.Unmarshal(body, &tokenResp); err != nil {
		return nil, fmt.Errorf("failed to parse token response: %w", err)
	}
	if tokenResp.AccessToken == "" {
		return nil, fmt.Errorf("%s failed: empty access token", action)
	}

	return &tokenResp, nil
}
