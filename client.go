package discovery

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"golang.org/x/sync/singleflight"
	"golang.org/x/time/rate"

	"github.com/giantswarm/mcp-discovery/instrumentation"
)

// cachedMetadata holds authorization server metadata with its fetch timestamp.
type cachedMetadata struct {
	metadata  *AuthorizationServerMetadata
	fetchedAt time.Time
}

// Client is the MCP OAuth discovery engine. It locates and validates the
// OAuth configuration protecting a resource server and performs post-flow
// token maintenance.
//
// The client is stateless apart from an optional metadata cache and is safe
// for concurrent use from multiple goroutines. Each HTTP call runs through a
// client scoped to that call's timeout tier; the underlying transport (and
// its connection pool) is shared.
type Client struct {
	cfg       Config
	logger    *slog.Logger
	transport http.RoundTripper
	inst      *instrumentation.Instrumentation

	// Per-host rate limiters for discovery traffic
	limiterMu sync.Mutex
	limiters  map[string]*rate.Limiter

	// Metadata cache with singleflight to deduplicate concurrent fetches
	cacheMu       sync.RWMutex
	metadataCache map[string]*cachedMetadata
	metadataGroup singleflight.Group
}

// NewClient creates a new discovery client. A nil config uses defaults.
func NewClient(cfg *Config) (*Client, error) {
	resolved, err := cfg.withDefaults()
	if err != nil {
		return nil, fmt.Errorf("invalid discovery config: %w", err)
	}

	inst := resolved.Instrumentation
	if inst == nil {
		inst = instrumentation.NewNoop()
	}

	return &Client{
		cfg:           resolved,
		logger:        resolved.Logger,
		transport:     http.DefaultTransport,
		inst:          inst,
		limiters:      make(map[string]*rate.Limiter),
		metadataCache: make(map[string]*cachedMetadata),
	}, nil
}

// DiscoverOptions tunes a DiscoverAuthorization run.
type DiscoverOptions struct {
	// PreferredServer is chosen when the protected resource metadata lists
	// more than one authorization server and this one is among them.
	PreferredServer string

	// StaticServer is the statically configured authorization server used
	// when no protected resource metadata names one.
	StaticServer string
}

// DiscoveryResult is the outcome of a full discovery run. Metadata has
// passed the HTTPS and PKCE security gates and is ready for an
// authorization flow.
type DiscoveryResult struct {
	// Challenge is the parsed WWW-Authenticate challenge. Empty when the
	// resource did not demand authentication.
	Challenge *AuthChallenge

	// ResourceMetadata is the RFC 9728 document, nil when none was found.
	ResourceMetadata *ProtectedResourceMetadata

	// AuthorizationServer is the selected authorization server URL.
	AuthorizationServer string

	// Metadata is the validated authorization server metadata.
	Metadata *AuthorizationServerMetadata
}

// DiscoverAuthorization runs the full discovery chain for a resource URL:
// challenge probe, protected resource metadata, authorization server
// selection, server metadata, and the security gates.
//
// Returns a *security.Error for HTTPS or PKCE violations, a *DiscoveryError
// when no authorization server can be resolved, and a *ProbeError when the
// resource cannot be reached at all.
func (c *Client) DiscoverAuthorization(ctx context.Context, resourceURL string, opts *DiscoverOptions) (*DiscoveryResult, error) {
	if opts == nil {
		opts = &DiscoverOptions{}
	}

	ctx, span := c.inst.Tracer("client").Start(ctx, "discovery.authorization",
		trace.WithAttributes(attribute.String("resource_url", resourceURL)))
	defer span.End()

	challenge, err := c.ExtractAuthChallenge(ctx, resourceURL)
	if err != nil {
		span.SetStatus(codes.Error, "probe failed")
		return nil, err
	}

	result := &DiscoveryResult{Challenge: challenge}

	// Prefer the resource_metadata hint from the challenge; fall back to
	// well-known probing per RFC 9728.
	prmURL := challenge.ResourceMetadata
	if prmURL == "" {
		prmURL, err = c.FindProtectedResourceMetadata(ctx, resourceURL)
		if err != nil {
			return nil, err
		}
	}

	if prmURL != "" {
		prm, err := c.FetchProtectedResourceMetadata(ctx, prmURL)
		if err != nil {
			return nil, err
		}
		result.ResourceMetadata = prm
	}

	var servers []string
	if result.ResourceMetadata != nil {
		servers = result.ResourceMetadata.AuthorizationServers
	}
	if len(servers) == 0 && opts.StaticServer != "" {
		servers = []string{opts.StaticServer}
	}

	server, err := SelectAuthorizationServer(servers, opts.PreferredServer)
	if err != nil {
		span.SetStatus(codes.Error, "no authorization server")
		return nil, err
	}
	result.AuthorizationServer = server
	span.SetAttributes(attribute.String("authorization_server", server))

	metadata, err := c.FetchAuthServerMetadata(ctx, server)
	if err != nil {
		return nil, err
	}

	// Security gates: fail before the metadata is ever used for a live request.
	if err := metadata.ValidateEndpoints(); err != nil {
		span.SetStatus(codes.Error, "endpoint validation failed")
		return nil, err
	}
	if err := metadata.ValidatePKCE(); err != nil {
		span.SetStatus(codes.Error, "pkce validation failed")
		return nil, err
	}
	result.Metadata = metadata

	c.logger.Info("Authorization discovery complete",
		"resource_url", resourceURL,
		"authorization_server", server,
		"fallback", metadata.Fallback)

	return result, nil
}

// scopedClient returns an HTTP client for a single call at the given timeout
// tier. A configured HTTPClient override takes precedence.
func (c *Client) scopedClient(timeout time.Duration) *http.Client {
	if c.cfg.HTTPClient != nil {
		return c.cfg.HTTPClient
	}
	return &http.Client{
		Transport: c.transport,
		Timeout:   timeout,
	}
}

// get performs a GET with the MCP protocol version header at the given
// timeout tier, honoring the per-host rate limit.
func (c *Client) get(ctx context.Context, rawURL string, timeout time.Duration) (*http.Response, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request for %s: %w", rawURL, err)
	}
	req.Header.Set(ProtocolVersionHeader, c.cfg.ProtocolVersion)
	req.Header.Set("Accept", "application/json")

	if err := c.waitHost(ctx, req.URL.Host); err != nil {
		return nil, err
	}

	return c.scopedClient(timeout).Do(req)
}

// waitHost blocks until the per-host rate limiter admits another request.
func (c *Client) waitHost(ctx context.Context, host string) error {
	if c.cfg.RateLimit <= 0 {
		return nil
	}

	c.limiterMu.Lock()
	limiter, ok := c.limiters[host]
	if !ok {
		limiter = rate.NewLimiter(rate.Limit(c.cfg.RateLimit), c.cfg.RateBurst)
		c.limiters[host] = limiter
	}
	c.limiterMu.Unlock()

	return limiter.Wait(ctx)
}

// isTimeout reports whether an HTTP transport error was a timeout rather
// than a connection failure. Timeouts degrade to "could not determine";
// connection failures propagate.
func isTimeout(err error) bool {
	if errors.Is(err, context.DeadlineExceeded) {
		return true
	}
	var netErr net.Error
	return errors.As(err, &netErr) && netErr.Timeout()
}

// origin returns the scheme://host portion of a URL.
func origin(u *url.URL) string {
	return u.Scheme + "://" + u.Host
}

// parseEndpointURL parses a URL and requires an absolute http(s) form.
func parseEndpointURL(rawURL string) (*url.URL, error) {
	u, err := url.Parse(rawURL)
	if err != nil {
		return nil, fmt.Errorf("invalid URL %q: %w", rawURL, err)
	}
	if u.Scheme == "" || u.Host == "" {
		return nil, fmt.Errorf("invalid URL %q: missing scheme or host", rawURL)
	}
	return u, nil
}

// cleanPath returns the URL path with any trailing slash removed, or ""
// for root paths.
func cleanPath(u *url.URL) string {
	return strings.TrimSuffix(u.Path, "/")
}
