package metadata

import (
	"context"
	"sync"
	"time"

	"golang.org/x/oauth2/clientcredentials"

	"github.com/ziadkadry99/d365-plugin-assistant/internal/apperrors"
)

const (
	tokenSafetyMargin    = 60 * time.Second
	defaultTokenLifetime = 3599 * time.Second
)

// tokenCache holds one bearer token and renews it once it is within the
// safety margin of expiry.
type tokenCache struct {
	conf *clientcredentials.Config
	now  func() time.Time

	mu     sync.Mutex
	token  string
	expiry time.Time
}

func newTokenCache(cfg *ConnectionConfig) *tokenCache {
	return &tokenCache{
		conf: &clientcredentials.Config{
			ClientID:     cfg.ClientID,
			ClientSecret: cfg.ClientSecret,
			TokenURL:     cfg.TokenURL(),
			Scopes:       []string{cfg.Scope()},
		},
		now: time.Now,
	}
}

// Token returns the cached access token or acquires a new one.
func (c *tokenCache) Token(ctx context.Context) (string, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	now := c.now()
	if c.token != "" && now.Before(c.expiry.Add(-tokenSafetyMargin)) {
		return c.token, nil
	}

	tok, err := c.conf.Token(ctx)
	if err != nil {
		return "", apperrors.NewAuthError("acquiring token", err)
	}
	if tok.AccessToken == "" {
		return "", apperrors.NewAuthError("token response has no access_token", nil)
	}

	c.token = tok.AccessToken
	c.expiry = tok.Expiry
	if c.expiry.IsZero() {
		c.expiry = now.Add(defaultTokenLifetime)
	}
	return c.token, nil
}
