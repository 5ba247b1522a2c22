package discovery

import (
	"fmt"
	"net/http"
	"regexp"
	"strings"
)

// authParamRegexp matches key="value" auth parameters. The value group
// tolerates backslash-escaped characters so quoted-pair values like
// key="has \" inside" parse as a single parameter.
var authParamRegexp = regexp.MustCompile(`(\w+)\s*=\s*"((?:[^"\\]|\\.)*)"`)

// ParseWWWAuthenticate parses a WWW-Authenticate header value.
// It supports the Bearer scheme with OAuth 2.0 and MCP-specific parameters.
//
// Example headers:
//
//	Bearer realm="https://auth.example.com"
//	Bearer resource_metadata="https://mcp.example.com/.well-known/oauth-protected-resource", scope="openid profile"
//	Bearer error="invalid_token", error_description="The token has \"expired\""
//
// Returns an AuthChallenge with the parsed parameters, or an error if the
// header is empty.
func ParseWWWAuthenticate(header string) (*AuthChallenge, error) {
	trimmed := strings.TrimSpace(header)
	if trimmed == "" {
		return nil, fmt.Errorf("empty WWW-Authenticate header")
	}

	challenge := &AuthChallenge{Raw: header}

	// Split into scheme and parameters
	parts := strings.SplitN(trimmed, " ", 2)
	challenge.Scheme = parts[0]

	if len(parts) > 1 {
		params := parseAuthParams(parts[1])
		challenge.Realm = params["realm"]
		challenge.ResourceMetadata = params["resource_metadata"]
		challenge.Scope = params["scope"]
		challenge.Error = params["error"]
		challenge.ErrorDescription = params["error_description"]
	}

	return challenge, nil
}

// parseAuthParams parses the parameter portion of a WWW-Authenticate header.
// Parameters are in the format: key1="value1", key2="value2", where values
// may contain \" escape sequences.
func parseAuthParams(paramStr string) map[string]string {
	params := make(map[string]string)

	for _, match := range authParamRegexp.FindAllStringSubmatch(paramStr, -1) {
		key := strings.ToLower(match[1])
		params[key] = unescapeQuoted(match[2])
	}

	return params
}

// unescapeQuoted resolves backslash escapes inside a quoted-string value,
// so `value with \" inside` becomes `value with " inside`.
func unescapeQuoted(s string) string {
	if !strings.Contains(s, `\`) {
		return s
	}

	var b strings.Builder
	b.Grow(len(s))
	for i := 0; i < len(s); i++ {
		if s[i] == '\\' && i+1 < len(s) {
			i++
		}
		b.WriteByte(s[i])
	}
	return b.String()
}

// ParseWWWAuthenticateFromResponse extracts an auth challenge from a 401 response.
// Returns nil if the response is not a 401 or carries no WWW-Authenticate header.
func ParseWWWAuthenticateFromResponse(resp *http.Response) *AuthChallenge {
	if resp == nil || resp.StatusCode != http.StatusUnauthorized {
		return nil
	}

	header := resp.Header.Get("WWW-Authenticate")
	if header == "" {
		return nil
	}

	challenge, err := ParseWWWAuthenticate(header)
	if err != nil {
		return nil
	}

	return challenge
}
