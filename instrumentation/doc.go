// Package instrumentation provides OpenTelemetry metrics and tracing for the
// mcp-discovery library.
//
// Instrumentation is optional: when disabled (or when a nil instance is used)
// all instruments are backed by no-op providers with zero overhead. The
// package records probe outcomes, metadata discovery attempts and durations,
// fallback synthesis, cache effectiveness, and token operation results.
package instrumentation
