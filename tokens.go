package discovery

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/giantswarm/mcp-discovery/security"
)

// RevokeToken revokes a token per RFC 7009. Any 200 response means success,
// including when the token was already invalid — that is not an error path.
//
// Revocation is best-effort: non-200 responses, timeouts, and connection
// errors all yield (false, nil) so a failed revoke never blocks a logout
// flow. The only error returned is a *security.Error for a non-HTTPS
// endpoint, which must abort before any request is sent.
//
// tokenTypeHint should be "access_token" or "refresh_token" when known.
// Confidential clients (both credentials set) authenticate with HTTP Basic
// auth; public clients send client_id in the form body.
func (c *Client) RevokeToken(ctx context.Context, endpoint, token, tokenTypeHint string, creds *Credentials) (bool, error) {
	if err := security.ValidateHTTPSURL(endpoint, true); err != nil {
		return false, err
	}

	start := time.Now()
	resp, err := c.postTokenForm(ctx, endpoint, token, tokenTypeHint, creds, false)
	if err != nil {
		c.logger.Warn("Token revocation failed",
			"endpoint", endpoint,
			"error", err)
		c.inst.Metrics().RecordTokenOperation(ctx, "revoke", false, time.Since(start))
		return false, nil
	}
	defer func() { _ = resp.Body.Close() }()
	_, _ = io.Copy(io.Discard, resp.Body)

	ok := resp.StatusCode == http.StatusOK
	if !ok {
		c.logger.Warn("Token revocation rejected",
			"endpoint", endpoint,
			"status", resp.StatusCode)
	}
	c.inst.Metrics().RecordTokenOperation(ctx, "revoke", ok, time.Since(start))

	return ok, nil
}

// IntrospectToken introspects a token per RFC 7662 and returns the parsed
// response. On any failure — non-200, timeout, connection error, or an
// unparseable body — it returns (nil, nil) rather than a default inactive
// result, so callers can distinguish "could not determine" from "confirmed
// inactive". The only error returned is a *security.Error for a non-HTTPS
// endpoint.
func (c *Client) IntrospectToken(ctx context.Context, endpoint, token, tokenTypeHint string, creds *Credentials) (*TokenIntrospectionResult, error) {
	if err := security.ValidateHTTPSURL(endpoint, true); err != nil {
		return nil, err
	}

	start := time.Now()
	resp, err := c.postTokenForm(ctx, endpoint, token, tokenTypeHint, creds, true)
	if err != nil {
		c.logger.Warn("Token introspection failed",
			"endpoint", endpoint,
			"error", err)
		c.inst.Metrics().RecordTokenOperation(ctx, "introspect", false, time.Since(start))
		return nil, nil
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		c.logger.Warn("Token introspection rejected",
			"endpoint", endpoint,
			"status", resp.StatusCode)
		c.inst.Metrics().RecordTokenOperation(ctx, "introspect", false, time.Since(start))
		return nil, nil
	}

	var result TokenIntrospectionResult
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		c.logger.Warn("Token introspection returned unparseable body",
			"endpoint", endpoint,
			"error", err)
		c.inst.Metrics().RecordTokenOperation(ctx, "introspect", false, time.Since(start))
		return nil, nil
	}

	c.inst.Metrics().RecordTokenOperation(ctx, "introspect", true, time.Since(start))
	return &result, nil
}

// postTokenForm sends the form-encoded token operation request shared by
// revocation and introspection (RFC 7009 / RFC 7662).
func (c *Client) postTokenForm(ctx context.Context, endpoint, token, tokenTypeHint string, creds *Credentials, acceptJSON bool) (*http.Response, error) {
	form := url.Values{"token": {token}}
	if tokenTypeHint != "" {
		form.Set("token_type_hint", tokenTypeHint)
	}
	if creds != nil && !creds.Confidential() && creds.ClientID != "" {
		// Public clients identify themselves in the body.
		form.Set("client_id", creds.ClientID)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, strings.NewReader(form.Encode()))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	req.Header.Set(ProtocolVersionHeader, c.cfg.ProtocolVersion)
	if acceptJSON {
		req.Header.Set("Accept", "application/json")
	}
	if creds.Confidential() {
		req.SetBasicAuth(creds.ClientID, creds.ClientSecret)
	}

	if err := c.waitHost(ctx, req.URL.Host); err != nil {
		return nil, err
	}

	return c.scopedClient(c.cfg.TokenTimeout).Do(req)
}
