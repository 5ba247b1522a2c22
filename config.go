package discovery

import (
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/giantswarm/mcp-discovery/instrumentation"
)

const (
	// ProtocolVersionHeader carries the negotiated MCP protocol version on
	// every outbound request.
	ProtocolVersionHeader = "MCP-Protocol-Version"

	// DefaultProtocolVersion is the MCP protocol version sent when none is configured.
	DefaultProtocolVersion = "2025-11-25"

	// DefaultProbeTimeout bounds the initial unauthenticated probe.
	// Probes must fail fast: they are attempted even against servers that
	// turn out not to require auth at all.
	DefaultProbeTimeout = 5 * time.Second

	// DefaultDiscoveryTimeout bounds each well-known metadata fetch.
	// Metadata documents are small but TLS handshakes on unfamiliar hosts are slow.
	DefaultDiscoveryTimeout = 10 * time.Second

	// DefaultTokenTimeout bounds revocation and introspection calls, which
	// may be rate-limited or slow under load.
	DefaultTokenTimeout = 30 * time.Second

	// DefaultMetadataCacheTTL is the default TTL for cached authorization
	// server metadata.
	DefaultMetadataCacheTTL = 30 * time.Minute
)

// FallbackPolicy identifies which MCP specification revision governs the
// synthesized authorization server metadata used when no well-known document
// can be discovered. Later spec drafts hint at different fallback semantics;
// the policy is explicit so a second interpretation can be added without
// silently changing behavior.
type FallbackPolicy string

// FallbackPolicy20250326 synthesizes endpoints from the issuer's origin only,
// never preserving a resource path, per the 2025-03-26 MCP authorization text.
const FallbackPolicy20250326 FallbackPolicy = "2025-03-26"

// Config holds the discovery client configuration.
// The zero value is usable; unset fields take the documented defaults.
type Config struct {
	// ProtocolVersion is the MCP protocol version sent with every request.
	// Default: DefaultProtocolVersion.
	ProtocolVersion string

	// ProbeTimeout bounds the unauthenticated challenge probe.
	// Default: DefaultProbeTimeout.
	ProbeTimeout time.Duration

	// DiscoveryTimeout bounds each metadata discovery request.
	// Default: DefaultDiscoveryTimeout.
	DiscoveryTimeout time.Duration

	// TokenTimeout bounds token revocation and introspection requests.
	// Default: DefaultTokenTimeout.
	TokenTimeout time.Duration

	// MetadataCacheTTL is how long discovered authorization server metadata
	// is cached. Zero uses DefaultMetadataCacheTTL; a negative value
	// disables caching entirely.
	MetadataCacheTTL time.Duration

	// RateLimit is the per-host request rate (requests per second) applied
	// to discovery traffic, so sequential well-known candidate sweeps do not
	// hammer hosts that are not OAuth-protected. Zero disables limiting.
	RateLimit float64

	// RateBurst is the per-host burst size. Defaults to 1 when RateLimit is set.
	RateBurst int

	// FallbackPolicy selects the spec revision for synthesized fallback
	// metadata. Default: FallbackPolicy20250326, the only implemented policy.
	FallbackPolicy FallbackPolicy

	// Logger for structured logging (optional, uses slog.Default if not provided)
	Logger *slog.Logger

	// HTTPClient overrides the per-call scoped HTTP clients entirely.
	// When set, its own timeout applies and the tiered timeouts above are
	// not used. Leave nil to get the documented per-operation timeouts.
	HTTPClient *http.Client

	// Instrumentation provides OpenTelemetry metrics and traces.
	// If nil, a no-op instance is used.
	Instrumentation *instrumentation.Instrumentation
}

// withDefaults returns a copy of the config with defaults applied.
func (c *Config) withDefaults() (Config, error) {
	cfg := Config{}
	if c != nil {
		cfg = *c
	}

	if cfg.ProtocolVersion == "" {
		cfg.ProtocolVersion = DefaultProtocolVersion
	}
	if cfg.ProbeTimeout == 0 {
		cfg.ProbeTimeout = DefaultProbeTimeout
	}
	if cfg.DiscoveryTimeout == 0 {
		cfg.DiscoveryTimeout = DefaultDiscoveryTimeout
	}
	if cfg.TokenTimeout == 0 {
		cfg.TokenTimeout = DefaultTokenTimeout
	}
	if cfg.MetadataCacheTTL == 0 {
		cfg.MetadataCacheTTL = DefaultMetadataCacheTTL
	}
	if cfg.FallbackPolicy == "" {
		cfg.FallbackPolicy = FallbackPolicy20250326
	}
	if cfg.RateLimit > 0 && cfg.RateBurst <= 0 {
		cfg.RateBurst = 1
	}
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}

	if cfg.ProbeTimeout < 0 || cfg.DiscoveryTimeout < 0 || cfg.TokenTimeout < 0 {
		return cfg, fmt.Errorf("timeouts must not be negative")
	}
	if cfg.FallbackPolicy != FallbackPolicy20250326 {
		return cfg, fmt.Errorf("unsupported fallback policy %q", cfg.FallbackPolicy)
	}

	return cfg, nil
}
