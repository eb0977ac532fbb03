package gateway

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/url"
	"strings"
)

const tokenCacheKey = "kyra:gateway:access_token"

// bearerToken returns the cached client-credentials token, fetching a
// fresh one when the cache window has passed. A fetch failure returns
// the empty string, which makes every gateway call short-circuit with
// "No headers available".
//
// The cache is shared site-wide without locking around the
// fetch-and-set; two concurrent requests may both hit the provider.
// That duplicate round-trip is the accepted cost of the relaxed
// consistency model.
func (c *Client) bearerToken(ctx context.Context, cfg Config) string {
	if token, ok := c.cache.Get(tokenCacheKey); ok && token != "" {
		return token
	}
	token := c.fetchToken(ctx, cfg)
	if token != "" {
		c.cache.Set(tokenCacheKey, token, cfg.tokenTTL())
	}
	return token
}

// InvalidateToken drops the cached token so the next call re-fetches.
func (c *Client) InvalidateToken() {
	c.cache.Invalidate(tokenCacheKey)
}

// fetchToken performs the client-credentials grant against the
// identity provider. Any failure yields an empty token.
func (c *Client) fetchToken(ctx context.Context, cfg Config) string {
	realms := strings.TrimRight(cfg.RealmsURL, "/")
	if realms == "" || cfg.ClientID == "" || cfg.ClientSecret == "" {
		return ""
	}
	tokenURL := realms + "/protocol/openid-connect/token"

	form := url.Values{}
	form.Set("grant_type", "client_credentials")
	form.Set("client_id", cfg.ClientID)
	form.Set("client_secret", cfg.ClientSecret)

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, tokenURL, strings.NewReader(form.Encode()))
	if err != nil {
		c.log.Error("token request build failed", "error", err)
		return ""
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		c.log.Error("token fetch failed", "error", err)
		return ""
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		c.log.Error("token fetch rejected", "status", resp.StatusCode)
		return ""
	}

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		c.log.Error("token response read failed", "error", err)
		return ""
	}
	var body struct {
		AccessToken string `json:"access_token"`
	}
	if err := json.Unmarshal(raw, &body); err != nil {
		c.log.Error("token response decode failed", "error", err)
		return ""
	}
	return body.AccessToken
}
