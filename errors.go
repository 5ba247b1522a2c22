package discovery

import (
	"fmt"
)

// OAuth error codes as constants
const (
	ErrorCodeInvalidRequest       = "invalid_request"
	ErrorCodeInvalidGrant         = "invalid_grant"
	ErrorCodeInvalidClient        = "invalid_client"
	ErrorCodeInvalidScope         = "invalid_scope"
	ErrorCodeInvalidToken         = "invalid_token"
	ErrorCodeUnauthorizedClient   = "unauthorized_client"
	ErrorCodeUnsupportedGrantType = "unsupported_grant_type"
	ErrorCodeServerError          = "server_error"
	ErrorCodeAccessDenied         = "access_denied"

	// ErrorCodeUnknown is used when an error response body cannot be parsed
	ErrorCodeUnknown = "unknown_error"
)

// DiscoveryError indicates the discovery chain was exhausted with no valid
// path forward, e.g. no authorization servers could be resolved for a
// resource. It is always fatal to the calling flow.
type DiscoveryError struct {
	Resource string // URL or identifier discovery was attempted for
	Reason   string // Human-readable description of what was exhausted
}

// Error implements the error interface
func (e *DiscoveryError) Error() string {
	if e.Resource == "" {
		return fmt.Sprintf("discovery failed: %s", e.Reason)
	}
	return fmt.Sprintf("discovery failed for %s: %s", e.Resource, e.Reason)
}

// NewDiscoveryError creates a new discovery exhaustion error
func NewDiscoveryError(resource, reason string) *DiscoveryError {
	return &DiscoveryError{
		Resource: resource,
		Reason:   reason,
	}
}

// ProbeError indicates the initial probe against a resource URL could not
// connect at all (refused connection, DNS failure). Unlike timeouts, which
// degrade to an empty challenge, connection failures usually signal a
// configuration error the caller must surface.
type ProbeError struct {
	URL string
	Err error
}

// Error implements the error interface
func (e *ProbeError) Error() string {
	return fmt.Sprintf("probe of %s failed: %v", e.URL, e.Err)
}

// Unwrap returns the underlying transport error
func (e *ProbeError) Unwrap() error {
	return e.Err
}
