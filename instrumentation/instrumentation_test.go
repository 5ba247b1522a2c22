package instrumentation

import (
	"context"
	"testing"
	"time"
)

func TestNew(t *testing.T) {
	inst, err := New(Config{ServiceName: "test-service", ServiceVersion: "1.2.3"})
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	if inst.Metrics() == nil {
		t.Error("Metrics() should be initialized")
	}
	if inst.Meter("client") == nil {
		t.Error("Meter() should never return nil")
	}
	if inst.Tracer("client") == nil {
		t.Error("Tracer() should never return nil")
	}
	if err := inst.Shutdown(context.Background()); err != nil {
		t.Errorf("Shutdown() error = %v", err)
	}
}

func TestNewNoop(t *testing.T) {
	inst := NewNoop()
	if inst.Metrics() == nil {
		t.Fatal("noop instrumentation should still carry instruments")
	}

	// All recorders must be safe to call on the noop instance.
	ctx := context.Background()
	inst.Metrics().RecordProbe(ctx, true)
	inst.Metrics().RecordMetadata(ctx, "auth_server", true, time.Millisecond)
	inst.Metrics().RecordFallback(ctx)
	inst.Metrics().RecordCacheHit(ctx, false)
	inst.Metrics().RecordTokenOperation(ctx, "revoke", false, time.Millisecond)
}

func TestNilMetricsAreSafe(t *testing.T) {
	var m *Metrics
	ctx := context.Background()
	m.RecordProbe(ctx, true)
	m.RecordMetadata(ctx, "protected_resource", false, 0)
	m.RecordFallback(ctx)
	m.RecordCacheHit(ctx, true)
	m.RecordTokenOperation(ctx, "introspect", true, 0)
}
