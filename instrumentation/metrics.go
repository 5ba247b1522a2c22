package instrumentation

import (
	"context"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

// Metrics holds the pre-configured metric instruments for the discovery engine
type Metrics struct {
	// ProbeRequests counts challenge probes by outcome
	ProbeRequests metric.Int64Counter

	// MetadataRequests counts metadata discovery attempts by kind and outcome
	MetadataRequests metric.Int64Counter

	// MetadataDuration records metadata discovery latency in seconds
	MetadataDuration metric.Float64Histogram

	// MetadataFallbacks counts synthesized fallback metadata documents
	MetadataFallbacks metric.Int64Counter

	// CacheHits counts metadata cache hits
	CacheHits metric.Int64Counter

	// CacheMisses counts metadata cache misses
	CacheMisses metric.Int64Counter

	// TokenOperations counts revocation/introspection calls by operation and outcome
	TokenOperations metric.Int64Counter

	// TokenOperationDuration records token operation latency in seconds
	TokenOperationDuration metric.Float64Histogram
}

// newMetrics creates the metric instruments using the instrumentation's meter provider
func newMetrics(inst *Instrumentation) (*Metrics, error) {
	meter := inst.Meter("discovery")
	m := &Metrics{}
	var err error

	m.ProbeRequests, err = meter.Int64Counter(
		"mcp_discovery_probe_requests_total",
		metric.WithDescription("Number of challenge probes, by outcome"),
	)
	if err != nil {
		return nil, err
	}

	m.MetadataRequests, err = meter.Int64Counter(
		"mcp_discovery_metadata_requests_total",
		metric.WithDescription("Number of metadata discovery attempts, by kind and outcome"),
	)
	if err != nil {
		return nil, err
	}

	m.MetadataDuration, err = meter.Float64Histogram(
		"mcp_discovery_metadata_duration_seconds",
		metric.WithDescription("Latency of metadata discovery, by kind"),
		metric.WithUnit("s"),
	)
	if err != nil {
		return nil, err
	}

	m.MetadataFallbacks, err = meter.Int64Counter(
		"mcp_discovery_metadata_fallbacks_total",
		metric.WithDescription("Number of synthesized fallback metadata documents"),
	)
	if err != nil {
		return nil, err
	}

	m.CacheHits, err = meter.Int64Counter(
		"mcp_discovery_metadata_cache_hits_total",
		metric.WithDescription("Number of metadata cache hits"),
	)
	if err != nil {
		return nil, err
	}

	m.CacheMisses, err = meter.Int64Counter(
		"mcp_discovery_metadata_cache_misses_total",
		metric.WithDescription("Number of metadata cache misses"),
	)
	if err != nil {
		return nil, err
	}

	m.TokenOperations, err = meter.Int64Counter(
		"mcp_discovery_token_operations_total",
		metric.WithDescription("Number of token revocation/introspection calls, by operation and outcome"),
	)
	if err != nil {
		return nil, err
	}

	m.TokenOperationDuration, err = meter.Float64Histogram(
		"mcp_discovery_token_operation_duration_seconds",
		metric.WithDescription("Latency of token operations, by operation"),
		metric.WithUnit("s"),
	)
	if err != nil {
		return nil, err
	}

	return m, nil
}

// outcomeAttr converts a success flag to the shared outcome attribute
func outcomeAttr(ok bool) attribute.KeyValue {
	if ok {
		return attribute.String("outcome", "success")
	}
	return attribute.String("outcome", "failure")
}

// RecordProbe records a challenge probe and whether it yielded a challenge
func (m *Metrics) RecordProbe(ctx context.Context, challenged bool) {
	if m == nil {
		return
	}
	m.ProbeRequests.Add(ctx, 1, metric.WithAttributes(
		attribute.Bool("challenged", challenged),
	))
}

// RecordMetadata records a metadata discovery attempt.
// Kind is "protected_resource" or "auth_server".
func (m *Metrics) RecordMetadata(ctx context.Context, kind string, ok bool, duration time.Duration) {
	if m == nil {
		return
	}
	attrs := metric.WithAttributes(
		attribute.String("kind", kind),
		outcomeAttr(ok),
	)
	m.MetadataRequests.Add(ctx, 1, attrs)
	m.MetadataDuration.Record(ctx, duration.Seconds(), metric.WithAttributes(
		attribute.String("kind", kind),
	))
}

// RecordFallback records a synthesized fallback metadata document
func (m *Metrics) RecordFallback(ctx context.Context) {
	if m == nil {
		return
	}
	m.MetadataFallbacks.Add(ctx, 1)
}

// RecordCacheHit records a metadata cache hit or miss
func (m *Metrics) RecordCacheHit(ctx context.Context, hit bool) {
	if m == nil {
		return
	}
	if hit {
		m.CacheHits.Add(ctx, 1)
		return
	}
	m.CacheMisses.Add(ctx, 1)
}

// RecordTokenOperation records a revocation or introspection call.
// Operation is "revoke" or "introspect".
func (m *Metrics) RecordTokenOperation(ctx context.Context, operation string, ok bool, duration time.Duration) {
	if m == nil {
		return
	}
	m.TokenOperations.Add(ctx, 1, metric.WithAttributes(
		attribute.String("operation", operation),
		outcomeAttr(ok),
	))
	m.TokenOperationDuration.Record(ctx, duration.Seconds(), metric.WithAttributes(
		attribute.String("operation", operation),
	))
}
