package discovery

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"
)

// wellKnownProtectedResource is the RFC 9728 well-known path segment.
const wellKnownProtectedResource = "/.well-known/oauth-protected-resource"

// protectedResourceCandidates returns the candidate PRM URLs for a resource
// in RFC 9728 §5.2 order: path-specific discovery takes precedence over the
// root document.
func protectedResourceCandidates(resourceURL string) ([]string, error) {
	u, err := parseEndpointURL(resourceURL)
	if err != nil {
		return nil, err
	}

	base := origin(u)
	if path := cleanPath(u); path != "" {
		return []string{
			base + wellKnownProtectedResource + path,
			base + wellKnownProtectedResource,
		}, nil
	}
	return []string{base + wellKnownProtectedResource}, nil
}

// FindProtectedResourceMetadata locates the RFC 9728 Protected Resource
// Metadata document for a resource URL, trying the path-aware well-known URI
// before the root one. Candidates are probed sequentially; the first 200
// response whose JSON body names authorization_servers or resource wins.
//
// Returns the URL of the valid document, or "" when no candidate answered
// with a usable document. Only a malformed resource URL is an error.
func (c *Client) FindProtectedResourceMetadata(ctx context.Context, resourceURL string) (string, error) {
	candidates, err := protectedResourceCandidates(resourceURL)
	if err != nil {
		return "", err
	}

	for _, candidate := range candidates {
		if c.probeProtectedResourceMetadata(ctx, candidate) {
			c.logger.Debug("Found protected resource metadata",
				"resource_url", resourceURL,
				"metadata_url", candidate)
			return candidate, nil
		}
	}

	c.logger.Debug("No protected resource metadata found",
		"resource_url", resourceURL,
		"candidates", len(candidates))
	return "", nil
}

// probeProtectedResourceMetadata reports whether a candidate URL serves a
// valid PRM document. A 200 with an unrelated JSON body is not accepted.
func (c *Client) probeProtectedResourceMetadata(ctx context.Context, candidateURL string) bool {
	start := time.Now()
	ok := false
	defer func() {
		c.inst.Metrics().RecordMetadata(ctx, "protected_resource", ok, time.Since(start))
	}()

	resp, err := c.get(ctx, candidateURL, c.cfg.DiscoveryTimeout)
	if err != nil {
		c.logger.Debug("Protected resource metadata candidate failed",
			"url", candidateURL,
			"error", err)
		return false
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		return false
	}

	var metadata ProtectedResourceMetadata
	if err := json.NewDecoder(resp.Body).Decode(&metadata); err != nil {
		return false
	}

	ok = metadata.Valid()
	return ok
}

// FetchProtectedResourceMetadata fetches and parses the PRM document at a
// known URL. Unlike discovery probing, a non-200 response here is an error:
// the URL was already located (or supplied by the resource's challenge), so
// there is no further fallback and the caller must decide how to proceed.
func (c *Client) FetchProtectedResourceMetadata(ctx context.Context, metadataURL string) (*ProtectedResourceMetadata, error) {
	resp, err := c.get(ctx, metadataURL, c.cfg.DiscoveryTimeout)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch protected resource metadata from %s: %w", metadataURL, err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("protected resource metadata fetch from %s failed with status %d", metadataURL, resp.StatusCode)
	}

	var metadata ProtectedResourceMetadata
	if err := json.NewDecoder(resp.Body).Decode(&metadata); err != nil {
		return nil, fmt.Errorf("failed to decode protected resource metadata: %w", err)
	}

	return &metadata, nil
}
