package discovery

import (
	"encoding/json"
	"io"
	"net/http"
	"strings"
)

// maxRawErrorDescription caps how much of an unparseable body is carried
// into ErrorDescription.
const maxRawErrorDescription = 500

// ParseOAuthErrorResponse normalizes an OAuth error response (RFC 6749 §5.2).
// The body is parsed as JSON regardless of the declared Content-Type, since
// some servers mislabel error bodies. When no error code can be extracted,
// the result degrades to ErrorCodeUnknown with the first 500 characters of
// the raw body as the description. The result is always fully populated.
func ParseOAuthErrorResponse(resp *http.Response) *OAuthErrorResponse {
	result := &OAuthErrorResponse{
		Error:      ErrorCodeUnknown,
		StatusCode: resp.StatusCode,
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return result
	}

	var parsed OAuthErrorResponse
	if err := json.Unmarshal(body, &parsed); err == nil && parsed.Error != "" {
		parsed.StatusCode = resp.StatusCode
		return &parsed
	}

	description := strings.TrimSpace(string(body))
	if len(description) > maxRawErrorDescription {
		description = description[:maxRawErrorDescription]
	}
	result.ErrorDescription = description

	return result
}

// SelectAuthorizationServer picks an authorization server from a PRM
// document's list. An empty list is a discovery error: there is no valid
// "zero servers" state. A preferred server is honored when listed;
// otherwise the first-listed server wins deterministically.
func SelectAuthorizationServer(servers []string, preferred string) (string, error) {
	if len(servers) == 0 {
		return "", NewDiscoveryError("", "no authorization servers available")
	}

	if preferred != "" {
		for _, server := range servers {
			if server == preferred {
				return server, nil
			}
		}
	}

	return servers[0], nil
}
