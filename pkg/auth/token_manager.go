package auth

import (
	"context"
	"fmt"
	"sync"
	"time"
)

// refreshMargin is how long before expiry a token is refreshed
const refreshMargin = 30 * time.Second

// TokenManager hands out access tokens for the Legion client, refreshing
// them shortly before they expire. It is safe for concurrent use.
type TokenManager struct {
	keycloak     *KeycloakClient
	now          func() time.Time
	mu           sync.RWMutex
	accessToken  string
	refreshToken string
	expiresAt    time.Time
}

// NewTokenManager creates a token manager from an initial token response
func NewTokenManager(keycloak *KeycloakClient, tokenResp *TokenResponse) *TokenManager {
	tm := &TokenManager{keycloak: keycloak, now: time.Now}
	tm.UpdateTokens(tokenResp)
	return tm
}

// GetAccessToken returns a valid access token, refreshing if necessary
func (tm *TokenManager) GetAccessToken(ctx context.Context) (string, error) {
	tm.mu.RLock()
	if tm.fresh() {
		token := tm.accessToken
		tm.mu.RUnlock()
		return token, nil
	}
	tm.mu.RUnlock()

	tm.mu.Lock()
	defer tm.mu.Unlock()

	// another caller may have refreshed while we waited for the lock
	if tm.fresh() {
		return tm.accessToken, nil
	}

	tokenResp, err := tm.keycloak.RefreshToken(ctx, tm.refreshToken)
	if err != nil {
		return "", fmt.Errorf("failed to refresh token: %w", err)
	}
	tm.set(tokenResp)

	return tm.accessToken, nil
}

// UpdateTokens replaces the held tokens
func (tm *TokenManager) UpdateTokens(tokenResp *TokenResponse) {
	tm.mu.Lock()
	defer tm.mu.Unlock()
	tm.set(tokenResp)
}

// IsExpired reports whether the access token has expired
func (tm *TokenManager) IsExpired() bool {
	tm.mu.RLock()
	defer tm.mu.RUnlock()
	return tm.now().After(tm.expiresAt)
}

func (tm *TokenManager) fresh() bool {
	return tm.now().Before(tm.expiresAt.Add(-refreshMargin))
}

func (tm *TokenManager) set(tokenResp *TokenResponse) {
	tm.accessToken = tokenResp.AccessToken
	if tokenResp.RefreshToken != "" {
		tm.refreshToken = tokenResp.RefreshToken
	}
	tm.expiresAt = tm.now().Add(time.Duration(tokenResp.ExpiresIn) * time.Second)
}
