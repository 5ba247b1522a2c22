package discovery

import (
	"strings"
	"time"

	"golang.org/x/oauth2"

	"github.com/giantswarm/mcp-discovery/security"
)

// DefaultExpiryMargin is the default margin when checking token expiry.
// This accounts for clock skew and network latency.
const DefaultExpiryMargin = 30 * time.Second

// AuthChallenge represents parsed information from a WWW-Authenticate header.
// This contains the discovery hints needed to initiate the auth flow.
type AuthChallenge struct {
	// Raw is the unparsed WWW-Authenticate header value.
	// Empty when the probed resource did not answer 401.
	Raw string

	// Scheme is the authentication scheme (typically "Bearer" for OAuth 2.0).
	Scheme string

	// Realm is the protection realm (often the authorization server URL).
	Realm string

	// ResourceMetadata is the URL to the protected resource metadata.
	// This follows RFC 9728 for OAuth 2.0 Protected Resource Metadata.
	ResourceMetadata string

	// Scope is the space-separated list of required OAuth scopes.
	Scope string

	// Error is the error code from the WWW-Authenticate header (if any).
	Error string

	// ErrorDescription is a human-readable error description (if any).
	ErrorDescription string
}

// Empty reports whether the challenge carries no information, i.e. the
// probed resource does not require authentication.
func (c *AuthChallenge) Empty() bool {
	return c == nil || c.Raw == ""
}

// IsOAuthChallenge returns true if this represents an OAuth authentication challenge.
func (c *AuthChallenge) IsOAuthChallenge() bool {
	if c.Empty() {
		return false
	}
	// Must be Bearer scheme
	return strings.EqualFold(c.Scheme, "Bearer")
}

// Issuer returns the authorization server URL hinted by the challenge.
// The realm is often the issuer URL; non-URL realms yield an empty string.
func (c *AuthChallenge) Issuer() string {
	if c == nil {
		return ""
	}
	if strings.HasPrefix(c.Realm, "http://") || strings.HasPrefix(c.Realm, "https://") {
		return c.Realm
	}
	return ""
}

// ProtectedResourceMetadata represents OAuth 2.0 Protected Resource Metadata (RFC 9728)
type ProtectedResourceMetadata struct {
	// Resource is the identifier for the protected resource
	Resource string `json:"resource,omitempty"`

	// AuthorizationServers lists the authorization servers that can issue tokens for this resource
	AuthorizationServers []string `json:"authorization_servers,omitempty"`

	// JwksURI is the URL of the resource's JSON Web Key Set
	JwksURI string `json:"jwks_uri,omitempty"`

	// BearerMethodsSupported lists the ways Bearer tokens can be sent (RFC 6750)
	BearerMethodsSupported []string `json:"bearer_methods_supported,omitempty"`

	// ResourceSigningAlgValuesSupported lists supported signing algorithms
	ResourceSigningAlgValuesSupported []string `json:"resource_signing_alg_values_supported,omitempty"`

	// ScopesSupported lists the scopes understood by this resource
	ScopesSupported []string `json:"scopes_supported,omitempty"`

	// ResourceName is the human-readable name of the resource
	ResourceName string `json:"resource_name,omitempty"`

	// ResourceDocumentation points to developer documentation for the resource
	ResourceDocumentation string `json:"resource_documentation,omitempty"`
}

// Valid reports whether the document is a usable RFC 9728 metadata document.
// A 200 response with an unrelated JSON body must not be accepted, so at
// least one of authorization_servers or resource has to be present.
func (m *ProtectedResourceMetadata) Valid() bool {
	if m == nil {
		return false
	}
	return len(m.AuthorizationServers) > 0 || m.Resource != ""
}

// AuthorizationServerMetadata represents OAuth 2.0 Authorization Server Metadata (RFC 8414)
type AuthorizationServerMetadata struct {
	// Issuer is the authorization server's issuer identifier URL
	Issuer string `json:"issuer"`

	// AuthorizationEndpoint is the URL of the authorization endpoint
	AuthorizationEndpoint string `json:"authorization_endpoint"`

	// TokenEndpoint is the URL of the token endpoint
	TokenEndpoint string `json:"token_endpoint"`

	// RegistrationEndpoint is the URL of the dynamic client registration endpoint (RFC 7591)
	RegistrationEndpoint string `json:"registration_endpoint,omitempty"`

	// RevocationEndpoint is the URL of the OAuth 2.0 token revocation endpoint (RFC 7009)
	RevocationEndpoint string `json:"revocation_endpoint,omitempty"`

	// IntrospectionEndpoint is the URL of the OAuth 2.0 token introspection endpoint (RFC 7662)
	IntrospectionEndpoint string `json:"introspection_endpoint,omitempty"`

	// JwksURI is the URL of the JSON Web Key Set
	JwksURI string `json:"jwks_uri,omitempty"`

	// ScopesSupported lists the OAuth scopes supported
	ScopesSupported []string `json:"scopes_supported,omitempty"`

	// ResponseTypesSupported lists the OAuth response types supported
	ResponseTypesSupported []string `json:"response_types_supported,omitempty"`

	// GrantTypesSupported lists the OAuth grant types supported
	GrantTypesSupported []string `json:"grant_types_supported,omitempty"`

	// TokenEndpointAuthMethodsSupported lists the client authentication methods supported at the token endpoint
	TokenEndpointAuthMethodsSupported []string `json:"token_endpoint_auth_methods_supported,omitempty"`

	// CodeChallengeMethodsSupported lists the PKCE code challenge methods supported
	CodeChallengeMethodsSupported []string `json:"code_challenge_methods_supported,omitempty"`

	// Fallback is true when no well-known document could be discovered and
	// the endpoints were synthesized from the issuer's origin.
	Fallback bool `json:"fallback,omitempty"`
}

// Endpoint returns the discovered endpoints as an oauth2.Endpoint for use
// with golang.org/x/oauth2 authorization flows.
func (m *AuthorizationServerMetadata) Endpoint() oauth2.Endpoint {
	return oauth2.Endpoint{
		AuthURL:  m.AuthorizationEndpoint,
		TokenURL: m.TokenEndpoint,
	}
}

// namedEndpoints returns the metadata's endpoints in validation order.
// Optional endpoints are included only when present.
func (m *AuthorizationServerMetadata) namedEndpoints() []security.Endpoint {
	endpoints := []security.Endpoint{
		{Name: "issuer", URL: m.Issuer},
		{Name: "authorization_endpoint", URL: m.AuthorizationEndpoint},
		{Name: "token_endpoint", URL: m.TokenEndpoint},
	}

	optional := []security.Endpoint{
		{Name: "registration_endpoint", URL: m.RegistrationEndpoint},
		{Name: "revocation_endpoint", URL: m.RevocationEndpoint},
		{Name: "introspection_endpoint", URL: m.IntrospectionEndpoint},
	}
	for _, endpoint := range optional {
		if endpoint.URL != "" {
			endpoints = append(endpoints, endpoint)
		}
	}

	return endpoints
}

// ValidateEndpoints checks that every endpoint in the metadata uses HTTPS
// (localhost is exempt for development). The first violation is returned
// with the offending endpoint named.
func (m *AuthorizationServerMetadata) ValidateEndpoints() error {
	return security.ValidateEndpoints(m.namedEndpoints(), true)
}

// ValidatePKCE checks that the authorization server advertises S256 PKCE
// support. This is a hard precondition before any authorization flow.
func (m *AuthorizationServerMetadata) ValidatePKCE() error {
	return security.ValidatePKCESupport(m.CodeChallengeMethodsSupported)
}

// VerifyTokenIssuer cross-checks an access token's iss claim against this
// server's issuer. Opaque (non-JWT) tokens always pass; only an explicit
// mismatch fails.
func (m *AuthorizationServerMetadata) VerifyTokenIssuer(accessToken string) bool {
	return security.ValidateJWTIssuer(accessToken, m.Issuer)
}

// TokenIntrospectionResult represents an RFC 7662 introspection response.
type TokenIntrospectionResult struct {
	// Active indicates whether the token is currently valid.
	// This is the only field the endpoint is required to return.
	Active bool `json:"active"`

	// Scope is the space-separated list of scopes granted to the token.
	Scope string `json:"scope,omitempty"`

	// ClientID is the client the token was issued to.
	ClientID string `json:"client_id,omitempty"`

	// Username is a human-readable identifier for the resource owner.
	Username string `json:"username,omitempty"`

	// TokenType is the type of the token (typically "Bearer").
	TokenType string `json:"token_type,omitempty"`

	// Exp is the expiration timestamp (Unix seconds).
	Exp int64 `json:"exp,omitempty"`

	// Iat is the issued-at timestamp (Unix seconds).
	Iat int64 `json:"iat,omitempty"`

	// Nbf is the not-before timestamp (Unix seconds).
	Nbf int64 `json:"nbf,omitempty"`

	// Sub is the subject of the token.
	Sub string `json:"sub,omitempty"`

	// Iss is the issuer of the token.
	Iss string `json:"iss,omitempty"`

	// Jti is the unique token identifier.
	Jti string `json:"jti,omitempty"`
}

// ExpiresAt returns the token expiry as a time.Time, or the zero time when
// the endpoint reported no expiry.
func (r *TokenIntrospectionResult) ExpiresAt() time.Time {
	if r.Exp == 0 {
		return time.Time{}
	}
	return time.Unix(r.Exp, 0)
}

// Scopes returns the granted scope as a slice of individual scopes.
func (r *TokenIntrospectionResult) Scopes() []string {
	if r.Scope == "" {
		return nil
	}
	return strings.Fields(r.Scope)
}

// OAuthErrorResponse represents a normalized OAuth error response (RFC 6749 §5.2).
// Every field is always populated; unparseable bodies degrade to
// ErrorCodeUnknown with a truncated raw-body description.
type OAuthErrorResponse struct {
	// Error is the OAuth error code
	Error string `json:"error"`

	// ErrorDescription provides additional information
	ErrorDescription string `json:"error_description,omitempty"`

	// ErrorURI points to error documentation
	ErrorURI string `json:"error_uri,omitempty"`

	// StatusCode is the HTTP status the error arrived with
	StatusCode int `json:"-"`
}

// Credentials holds OAuth client credentials passed per-operation by the
// caller. The package never stores them.
type Credentials struct {
	// ClientID is the OAuth client identifier.
	ClientID string

	// ClientSecret is the client secret. Empty for public clients.
	ClientSecret string
}

// Confidential reports whether both credentials are present, in which case
// token operations authenticate with HTTP Basic auth per RFC 6749 §2.3.1.
func (c *Credentials) Confidential() bool {
	return c != nil && c.ClientID != "" && c.ClientSecret != ""
}

// Token represents an OAuth access token with associated metadata.
type Token struct {
	// AccessToken is the bearer token used for authorization.
	AccessToken string `json:"access_token"`

	// TokenType is typically "Bearer".
	TokenType string `json:"token_type,omitempty"`

	// RefreshToken is used to obtain new access tokens (optional).
	RefreshToken string `json:"refresh_token,omitempty"`

	// ExpiresIn is the token lifetime in seconds (from token response).
	ExpiresIn int `json:"expires_in,omitempty"`

	// ExpiresAt is the calculated expiration timestamp.
	ExpiresAt time.Time `json:"expires_at,omitempty"`

	// Scope is the granted scope(s), space-separated.
	Scope string `json:"scope,omitempty"`

	// Issuer is the token issuer (Identity Provider URL).
	Issuer string `json:"issuer,omitempty"`
}

// IsExpired checks if the token has expired.
// Returns true if the token is expired or will expire within the default margin.
func (t *Token) IsExpired() bool {
	return t.IsExpiredWithMargin(DefaultExpiryMargin)
}

// IsExpiredWithMargin checks if the token has expired or will expire within the margin.
func (t *Token) IsExpiredWithMargin(margin time.Duration) bool {
	if t.ExpiresAt.IsZero() {
		return false // Tokens without expiration don't expire
	}
	return time.Now().Add(margin).After(t.ExpiresAt)
}

// SetExpiresAtFromExpiresIn calculates and sets ExpiresAt from ExpiresIn.
func (t *Token) SetExpiresAtFromExpiresIn() {
	if t.ExpiresIn > 0 && t.ExpiresAt.IsZero() {
		t.ExpiresAt = time.Now().Add(time.Duration(t.ExpiresIn) * time.Second)
	}
}

// Scopes returns the scope as a slice of individual scopes.
func (t *Token) Scopes() []string {
	if t.Scope == "" {
		return nil
	}
	return strings.Fields(t.Scope)
}

// ToOAuth2Token converts the Token to an oauth2.Token for compatibility with golang.org/x/oauth2.
func (t *Token) ToOAuth2Token() *oauth2.Token {
	return &oauth2.Token{
		AccessToken:  t.AccessToken,
		TokenType:    t.TokenType,
		RefreshToken: t.RefreshToken,
		Expiry:       t.ExpiresAt,
	}
}

// PKCEChallenge represents a PKCE (Proof Key for Code Exchange) challenge.
// PKCE is required for OAuth 2.1 public clients to prevent authorization code interception.
type PKCEChallenge struct {
	// CodeVerifier is the cryptographically random string (base64url-encoded).
	// This is kept secret and never transmitted to the authorization server.
	CodeVerifier string

	// CodeChallenge is the SHA256 hash of the verifier (base64url-encoded).
	// This is sent in the authorization request.
	CodeChallenge string

	// CodeChallengeMethod is always "S256" (plain is not allowed in OAuth 2.1).
	CodeChallengeMethod string
}

// NormalizeResourceURL normalizes a resource server URL by stripping
// transport-specific path suffixes (/mcp, /sse) and trailing slashes.
// This ensures consistent metadata discovery regardless of which endpoint
// path is used when connecting.
func NormalizeResourceURL(resourceURL string) string {
	resourceURL = strings.TrimSuffix(resourceURL, "/")
	resourceURL = strings.TrimSuffix(resourceURL, "/mcp")
	resourceURL = strings.TrimSuffix(resourceURL, "/sse")
	return resourceURL
}
