// Package discovery implements client-side OAuth 2.1 authorization discovery
// for MCP resource servers.
//
// Given nothing but a resource URL, the package resolves the OAuth endpoints
// protecting it by walking the MCP authorization discovery chain:
//
//  1. Probe the resource and parse the WWW-Authenticate challenge (RFC 6750)
//  2. Locate and fetch Protected Resource Metadata (RFC 9728)
//  3. Select an authorization server and fetch its metadata (RFC 8414 /
//     OpenID Connect Discovery), synthesizing origin-based fallback endpoints
//     when no well-known document exists
//  4. Gate the result behind security checks: HTTPS enforcement, confirmed
//     S256 PKCE support, and JWT issuer cross-checks
//
// Post-flow token maintenance (RFC 7009 revocation and RFC 7662 introspection)
// is provided as best-effort operations that never fail a calling flow.
//
// The package performs no token exchange and stores nothing: every result is a
// request-scoped value object, and credential storage, redirect handling, and
// the authorization-code flow itself are the caller's concern.
//
// # Example Usage
//
//	client, err := discovery.NewClient(nil)
//	if err != nil {
//	    return err
//	}
//
//	result, err := client.DiscoverAuthorization(ctx, "https://api.example.com/mcp", nil)
//	if err != nil {
//	    return fmt.Errorf("discovery failed: %w", err)
//	}
//
//	// result.Metadata is validated and ready for an authorization flow:
//	config := &oauth2.Config{Endpoint: result.Metadata.Endpoint()}
package discovery
