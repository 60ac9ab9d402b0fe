package auth

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"os"
	"strings"
	"time"

	"github.com/picogrid/legion-rendezvous/pkg/client"
	"github.com/picogrid/legion-rendezvous/pkg/logger"
)

// DefaultClientID is the Keycloak client Legion's frontend logs in with
const DefaultClientID = "frontend...orion"

// ErrNoCredentials is returned when a login needs credentials that are
// neither in the environment nor allowed to be prompted for.
var ErrNoCredentials = errors.New("legion credentials not available: set LEGION_EMAIL and LEGION_PASSWORD or run interactively")

// Config locates the Keycloak realm that issues Legion tokens
type Config struct {
	KeycloakURL string
	Realm       string
	ClientID    string
}

// DefaultConfig returns the staging realm, or KEYCLOAK_URL when set
func DefaultConfig() Config {
	keycloakURL := os.Getenv("KEYCLOAK_URL")
	if keycloakURL == "" {
		keycloakURL = "https://auth.legion-staging.com"
	}

	return Config{
		KeycloakURL: keycloakURL,
		Realm:       "legion",
		ClientID:    clientID(),
	}
}

func clientID() string {
	if id := os.Getenv("KEYCLOAK_CLIENT_ID"); id != "" {
		return id
	}
	return DefaultClientID
}

// DiscoverConfig asks the Legion API at legionURL for its authorization URL
// and derives the Keycloak realm from it.
func DiscoverConfig(ctx context.Context, legionURL string) (Config, error) {
	endpoint := strings.TrimRight(legionURL, "/") + "/v3/integrations/oauth/authorization-url"

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return Config{}, fmt.Errorf("failed to create request: %w", err)
	}

	httpClient := &http.Client{Timeout: 10 * time.Second}
	resp, err := httpClient.Do(req)
	if err != nil {
		return Config{}, fmt.Errorf("failed to get authorization URL: %w", err)
	}
	defer func() {
		if err := resp.Body.Close(); err != nil {
			logger.Errorf("failed to close response body: %v", err)
		}
	}()

	if resp.StatusCode != http.StatusOK {
		return Config{}, fmt.Errorf("failed to get authorization URL: status %d", resp.StatusCode)
	}

	var authResp struct {
		AuthorizationURL string `json:"authorization_url"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&authResp); err != nil {
		return Config{}, fmt.Errorf("failed to decode response: %w", err)
	}
	if authResp.AuthorizationURL == "" {
		return Config{}, fmt.Errorf("empty authorization URL in response")
	}

	return parseAuthorizationURL(authResp.AuthorizationURL)
}

// parseAuthorizationURL splits an OpenID authorization URL such as
// https://auth.example.com/auth/realms/legion/protocol/openid-connect/auth
// into the Keycloak base URL and realm.
func parseAuthorizationURL(authURL string) (Config, error) {
	u, err := url.Parse(authURL)
	if err != nil {
		return Config{}, fmt.Errorf("invalid authorization URL: %w", err)
	}

	parts := strings.Split(strings.Trim(u.Path, "/"), "/")
	for i, part := range parts {
		if part != "realms" || i+1 >= len(parts) || parts[i+1] == "" {
			continue
		}

		base := fmt.Sprintf("%s://%s", u.Scheme, u.Host)
		if prefix := strings.Join(parts[:i], "/"); prefix != "" {
			base += "/" + prefix
		}
		return Config{KeycloakURL: base, Realm: parts[i+1], ClientID: clientID()}, nil
	}

	return Config{}, fmt.Errorf("could not extract realm from authorization URL %q", authURL)
}

// Authenticate logs in to the realm in cfg and returns a token manager
func Authenticate(ctx context.Context, cfg Config, creds Credentials) (*TokenManager, error) {
	keycloak := NewKeycloakClient(KeycloakConfig{
		BaseURL:  cfg.KeycloakURL,
		Realm:    cfg.Realm,
		ClientID: cfg.ClientID,
	})

	tokenResp, err := keycloak.Authenticate(ctx, creds.Email, creds.Password)
	if err != nil {
		return nil, fmt.Errorf("authentication failed: %w", err)
	}

	return NewTokenManager(keycloak, tokenResp), nil
}

// Login authenticates a user against the realm the Legion API at legionURL
// advertises, falling back to DefaultConfig. Credentials come from
// LEGION_EMAIL and LEGION_PASSWORD, or from the terminal when interactive.
func Login(ctx context.Context, legionURL string, interactive bool) (*TokenManager, error) {
	cfg, err := DiscoverConfig(ctx, legionURL)
	if err != nil {
		logger.Warnf("Could not fetch auth config from Legion, using defaults: %v", err)
		cfg = DefaultConfig()
	}

	creds := CredentialsFromEnv()
	if creds.Complete() {
		logger.Info("Using Legion credentials from environment")
	} else {
		if !interactive {
			return nil, ErrNoCredentials
		}
		logger.LogSection("Legion Authentication")
		if creds, err = PromptCredentials(creds); err != nil {
			return nil, err
		}
	}

	var tm *TokenManager
	err = logger.WithSpinner("Authenticating", func() error {
		tm, err = Authenticate(ctx, cfg, creds)
		return err
	})
	if err != nil {
		return nil, err
	}
	return tm, nil
}

// NewAuthenticatedClient creates a Legion client that authorizes with tm
func NewAuthenticatedClient(baseURL string, tm *TokenManager) (*client.Legion, error) {
	return client.NewClient(client.Config{
		BaseURL:      baseURL,
		TokenManager: tm,
	})
}
