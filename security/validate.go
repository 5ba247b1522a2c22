package security

import (
	"encoding/base64"
	"encoding/json"
	"fmt"
	"net/url"
	"strings"
)

// Security check identifiers used in Error.Check
const (
	CheckHTTPS  = "https"
	CheckPKCE   = "pkce"
	CheckIssuer = "issuer"
)

// Error indicates a failed security precondition. Security violations are
// always fatal to the calling flow and must abort before any token exchange.
type Error struct {
	Check  string // Which gate failed (CheckHTTPS, CheckPKCE, CheckIssuer)
	Detail string // Human-readable description naming the offending URL or capability
}

// Error implements the error interface
func (e *Error) Error() string {
	return fmt.Sprintf("security violation (%s): %s", e.Check, e.Detail)
}

// Endpoint is a named URL from an authorization server configuration,
// used to report HTTPS violations with the offending key named.
type Endpoint struct {
	Name string
	URL  string
}

// localhostHosts are the only hostnames exempt from HTTPS enforcement.
var localhostHosts = map[string]bool{
	"localhost": true,
	"127.0.0.1": true,
	"::1":       true,
}

// ValidateHTTPSURL checks that a URL uses HTTPS. Plain HTTP is accepted only
// when allowLocalhost is true and the hostname is exactly localhost,
// 127.0.0.1, or ::1. Any other scheme or host fails with the offending URL
// named in the error.
func ValidateHTTPSURL(rawURL string, allowLocalhost bool) error {
	u, err := url.Parse(rawURL)
	if err != nil || u.Scheme == "" || u.Host == "" {
		return &Error{Check: CheckHTTPS, Detail: fmt.Sprintf("invalid URL %q", rawURL)}
	}

	switch u.Scheme {
	case "https":
		return nil
	case "http":
		if allowLocalhost && localhostHosts[u.Hostname()] {
			return nil
		}
	}

	return &Error{Check: CheckHTTPS, Detail: fmt.Sprintf("endpoint must use HTTPS: %s", rawURL)}
}

// ValidateEndpoints applies HTTPS enforcement to every endpoint in order,
// failing on the first violation with the endpoint's name prepended.
// Entries with an empty URL are skipped; required-field checks are the
// caller's concern.
func ValidateEndpoints(endpoints []Endpoint, allowLocalhost bool) error {
	for _, endpoint := range endpoints {
		if endpoint.URL == "" {
			continue
		}
		if err := ValidateHTTPSURL(endpoint.URL, allowLocalhost); err != nil {
			return &Error{Check: CheckHTTPS, Detail: fmt.Sprintf("%s must use HTTPS: %s", endpoint.Name, endpoint.URL)}
		}
	}
	return nil
}

// ValidatePKCESupport checks that an authorization server advertises the S256
// PKCE code challenge method. A client MUST refuse to proceed without
// confirmed S256 support; this is a hard precondition, not a warning.
//
// The failure message distinguishes a server that advertises nothing from one
// that offers only the deprecated plain method.
func ValidatePKCESupport(methods []string) error {
	if len(methods) == 0 {
		return &Error{
			Check:  CheckPKCE,
			Detail: "authorization server metadata does not advertise code_challenge_methods_supported; PKCE support cannot be confirmed",
		}
	}

	hasPlain := false
	for _, method := range methods {
		if method == "S256" {
			return nil
		}
		if method == "plain" {
			hasPlain = true
		}
	}

	if hasPlain {
		return &Error{
			Check:  CheckPKCE,
			Detail: "authorization server offers only the plain code challenge method, which is insecure; S256 is required",
		}
	}
	return &Error{
		Check:  CheckPKCE,
		Detail: "authorization server does not support the S256 code challenge method",
	}
}

// ValidateJWTIssuer cross-checks an access token's iss claim against the
// expected issuer. The middle JWT segment is decoded without any signature
// verification; trailing slashes are stripped from both sides before
// comparison so "https://a.com/" and "https://a.com" are treated as equal.
//
// Tokens that are not JWT-shaped (not exactly 3 dot-separated segments) or
// whose payload cannot be decoded pass the check: opaque tokens cannot be
// validated this way, and malformed-but-opaque tokens must not fail a flow.
// Only an explicit issuer mismatch returns false.
func ValidateJWTIssuer(accessToken, expectedIssuer string) bool {
	segments := strings.Split(accessToken, ".")
	if len(segments) != 3 {
		return true
	}

	payload, err := decodeJWTSegment(segments[1])
	if err != nil {
		return true
	}

	var claims struct {
		Iss string `json:"iss"`
	}
	if err := json.Unmarshal(payload, &claims); err != nil {
		return true
	}
	if claims.Iss == "" {
		// No issuer claim to compare against.
		return true
	}

	return strings.TrimRight(claims.Iss, "/") == strings.TrimRight(expectedIssuer, "/")
}

// decodeJWTSegment base64url-decodes a JWT segment, adding the = padding
// that JWTs omit.
func decodeJWTSegment(segment string) ([]byte, error) {
	if rem := len(segment) % 4; rem != 0 {
		segment += strings.Repeat("=", 4-rem)
	}
	return base64.URLEncoding.DecodeString(segment)
}
