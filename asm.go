package discovery

import (
	"context"
	"encoding/json"
	"net/http"
	"strings"
	"time"
)

// Well-known path segments for authorization server metadata discovery.
const (
	wellKnownOAuthAuthServer = "/.well-known/oauth-authorization-server"
	wellKnownOpenIDConfig    = "/.well-known/openid-configuration"
)

// authServerMetadataCandidates returns the ordered discovery URLs for an
// issuer per RFC 8414 and OIDC Discovery conventions. Issuers with a
// non-root path get the path-insertion and path-append variants first;
// root-path issuers only get the two root documents.
func authServerMetadataCandidates(issuerURL string) ([]string, error) {
	u, err := parseEndpointURL(issuerURL)
	if err != nil {
		return nil, err
	}

	base := origin(u)
	if path := cleanPath(u); path != "" {
		return []string{
			base + wellKnownOAuthAuthServer + path,
			base + wellKnownOpenIDConfig + path,
			base + path + wellKnownOpenIDConfig,
			base + wellKnownOAuthAuthServer,
			base + wellKnownOpenIDConfig,
		}, nil
	}
	return []string{
		base + wellKnownOAuthAuthServer,
		base + wellKnownOpenIDConfig,
	}, nil
}

// FetchAuthServerMetadata resolves RFC 8414 Authorization Server Metadata
// for an issuer. Candidates are tried sequentially; the first 200 response
// with a parseable JSON body wins. Deeper validation (HTTPS enforcement,
// PKCE capability) is a separate gate applied before the metadata is used.
//
// When every candidate fails, fallback metadata is synthesized from the
// issuer's origin per the MCP authorization spec: {origin}/authorize,
// {origin}/token, {origin}/register, with Fallback set. The origin-only
// choice is deliberate: resource paths are resource-server concerns, so
// nesting authorization endpoints under them would be incorrect.
//
// Discovered documents are cached per issuer with the configured TTL;
// concurrent fetches for the same issuer are deduplicated.
func (c *Client) FetchAuthServerMetadata(ctx context.Context, issuerURL string) (*AuthorizationServerMetadata, error) {
	issuer := strings.TrimSuffix(issuerURL, "/")

	if metadata := c.cachedAuthServerMetadata(ctx, issuer); metadata != nil {
		return metadata, nil
	}

	// Deduplicate concurrent fetches for the same issuer.
	result, err, _ := c.metadataGroup.Do(issuer, func() (interface{}, error) {
		if metadata := c.cachedAuthServerMetadata(ctx, issuer); metadata != nil {
			return metadata, nil
		}
		return c.doFetchAuthServerMetadata(ctx, issuer)
	})
	if err != nil {
		return nil, err
	}

	return result.(*AuthorizationServerMetadata), nil
}

// cachedAuthServerMetadata returns fresh cached metadata for an issuer, or nil.
func (c *Client) cachedAuthServerMetadata(ctx context.Context, issuer string) *AuthorizationServerMetadata {
	if c.cfg.MetadataCacheTTL < 0 {
		return nil
	}

	c.cacheMu.RLock()
	entry, ok := c.metadataCache[issuer]
	c.cacheMu.RUnlock()

	if ok && time.Since(entry.fetchedAt) < c.cfg.MetadataCacheTTL {
		c.logger.Debug("Authorization server metadata cache hit", "issuer", issuer)
		c.inst.Metrics().RecordCacheHit(ctx, true)
		return entry.metadata
	}

	c.inst.Metrics().RecordCacheHit(ctx, false)
	return nil
}

// doFetchAuthServerMetadata walks the candidate list and synthesizes
// fallback metadata when the list is exhausted.
func (c *Client) doFetchAuthServerMetadata(ctx context.Context, issuer string) (*AuthorizationServerMetadata, error) {
	start := time.Now()

	candidates, err := authServerMetadataCandidates(issuer)
	if err != nil {
		return nil, err
	}

	for _, candidate := range candidates {
		metadata := c.fetchMetadataDocument(ctx, candidate)
		if metadata == nil {
			continue
		}

		c.logger.Info("Authorization server metadata discovered",
			"issuer", issuer,
			"metadata_url", candidate,
			"authorization_endpoint", metadata.AuthorizationEndpoint,
			"token_endpoint", metadata.TokenEndpoint)
		c.inst.Metrics().RecordMetadata(ctx, "auth_server", true, time.Since(start))
		c.cacheAuthServerMetadata(issuer, metadata)
		return metadata, nil
	}

	// Every candidate failed: synthesize origin-based endpoints.
	// Fallback documents are not cached so a later-deployed well-known
	// endpoint is picked up on the next discovery.
	metadata := c.fallbackAuthServerMetadata(issuer)

	c.logger.Warn("No authorization server metadata found, synthesizing fallback endpoints",
		"issuer", issuer,
		"candidates", len(candidates),
		"authorization_endpoint", metadata.AuthorizationEndpoint)
	c.inst.Metrics().RecordMetadata(ctx, "auth_server", false, time.Since(start))
	c.inst.Metrics().RecordFallback(ctx)

	return metadata, nil
}

// fetchMetadataDocument fetches one well-known candidate. Returns nil when
// the candidate does not answer 200 with a parseable JSON body.
func (c *Client) fetchMetadataDocument(ctx context.Context, candidateURL string) *AuthorizationServerMetadata {
	resp, err := c.get(ctx, candidateURL, c.cfg.DiscoveryTimeout)
	if err != nil {
		c.logger.Debug("Metadata candidate failed",
			"url", candidateURL,
			"error", err)
		return nil
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		return nil
	}

	var metadata AuthorizationServerMetadata
	if err := json.NewDecoder(resp.Body).Decode(&metadata); err != nil {
		c.logger.Debug("Metadata candidate returned unparseable body",
			"url", candidateURL,
			"error", err)
		return nil
	}

	return &metadata
}

// fallbackAuthServerMetadata synthesizes metadata from an issuer's origin
// per FallbackPolicy20250326.
func (c *Client) fallbackAuthServerMetadata(issuer string) *AuthorizationServerMetadata {
	base := issuer
	if u, err := parseEndpointURL(issuer); err == nil {
		base = origin(u)
	}

	return &AuthorizationServerMetadata{
		Issuer:                base,
		AuthorizationEndpoint: base + "/authorize",
		TokenEndpoint:         base + "/token",
		RegistrationEndpoint:  base + "/register",
		Fallback:              true,
	}
}

// cacheAuthServerMetadata stores discovered metadata for an issuer.
func (c *Client) cacheAuthServerMetadata(issuer string, metadata *AuthorizationServerMetadata) {
	if c.cfg.MetadataCacheTTL < 0 {
		return
	}

	c.cacheMu.Lock()
	c.metadataCache[issuer] = &cachedMetadata{
		metadata:  metadata,
		fetchedAt: time.Now(),
	}
	c.cacheMu.Unlock()
}

// ClearMetadataCache clears the authorization server metadata cache,
// forcing a refresh on the next discovery.
func (c *Client) ClearMetadataCache() {
	c.cacheMu.Lock()
	c.metadataCache = make(map[string]*cachedMetadata)
	c.cacheMu.Unlock()
}
