package discovery

import (
	"errors"
	"io"
	"net/http"
	"strings"
	"testing"
)

func errorResponse(status int, contentType, body string) *http.Response {
	header := http.Header{}
	if contentType != "" {
		header.Set("Content-Type", contentType)
	}
	return &http.Response{
		StatusCode: status,
		Header:     header,
		Body:       io.NopCloser(strings.NewReader(body)),
	}
}

func TestParseOAuthErrorResponse(t *testing.T) {
	t.Run("standard JSON error", func(t *testing.T) {
		resp := errorResponse(http.StatusBadRequest, "application/json",
			`{"error":"invalid_grant","error_description":"authorization code expired","error_uri":"https://example.com/errs"}`)

		parsed := ParseOAuthErrorResponse(resp)
		if parsed.Error != ErrorCodeInvalidGrant {
			t.Errorf("Error = %q, want %q", parsed.Error, ErrorCodeInvalidGrant)
		}
		if parsed.ErrorDescription != "authorization code expired" {
			t.Errorf("ErrorDescription = %q", parsed.ErrorDescription)
		}
		if parsed.ErrorURI != "https://example.com/errs" {
			t.Errorf("ErrorURI = %q", parsed.ErrorURI)
		}
		if parsed.StatusCode != http.StatusBadRequest {
			t.Errorf("StatusCode = %d, want %d", parsed.StatusCode, http.StatusBadRequest)
		}
	})

	t.Run("JSON despite text content type", func(t *testing.T) {
		resp := errorResponse(http.StatusUnauthorized, "text/html",
			`{"error":"invalid_client"}`)

		parsed := ParseOAuthErrorResponse(resp)
		if parsed.Error != ErrorCodeInvalidClient {
			t.Errorf("Error = %q, want %q despite mislabeled content type", parsed.Error, ErrorCodeInvalidClient)
		}
	})

	t.Run("non-JSON body degrades to unknown", func(t *testing.T) {
		resp := errorResponse(http.StatusBadGateway, "text/html", "  <html>bad gateway</html>  ")

		parsed := ParseOAuthErrorResponse(resp)
		if parsed.Error != ErrorCodeUnknown {
			t.Errorf("Error = %q, want %q", parsed.Error, ErrorCodeUnknown)
		}
		if parsed.ErrorDescription != "<html>bad gateway</html>" {
			t.Errorf("ErrorDescription = %q, want trimmed raw body", parsed.ErrorDescription)
		}
		if parsed.StatusCode != http.StatusBadGateway {
			t.Errorf("StatusCode = %d, want %d", parsed.StatusCode, http.StatusBadGateway)
		}
	})

	t.Run("JSON without error field degrades to unknown", func(t *testing.T) {
		resp := errorResponse(http.StatusBadRequest, "application/json", `{"message":"nope"}`)

		parsed := ParseOAuthErrorResponse(resp)
		if parsed.Error != ErrorCodeUnknown {
			t.Errorf("Error = %q, want %q", parsed.Error, ErrorCodeUnknown)
		}
	})

	t.Run("long raw body is truncated", func(t *testing.T) {
		resp := errorResponse(http.StatusInternalServerError, "", strings.Repeat("x", 2000))

		parsed := ParseOAuthErrorResponse(resp)
		if len(parsed.ErrorDescription) != maxRawErrorDescription {
			t.Errorf("len(ErrorDescription) = %d, want %d", len(parsed.ErrorDescription), maxRawErrorDescription)
		}
	})

	t.Run("empty body", func(t *testing.T) {
		resp := errorResponse(http.StatusForbidden, "", "")

		parsed := ParseOAuthErrorResponse(resp)
		if parsed.Error != ErrorCodeUnknown {
			t.Errorf("Error = %q, want %q", parsed.Error, ErrorCodeUnknown)
		}
		if parsed.ErrorDescription != "" {
			t.Errorf("ErrorDescription = %q, want empty", parsed.ErrorDescription)
		}
	})
}

func TestSelectAuthorizationServer(t *testing.T) {
	servers := []string{"https://a.example.com", "https://b.example.com"}

	t.Run("first server by default", func(t *testing.T) {
		got, err := SelectAuthorizationServer(servers, "")
		if err != nil {
			t.Fatalf("SelectAuthorizationServer() error = %v", err)
		}
		if got != "https://a.example.com" {
			t.Errorf("server = %q, want first-listed", got)
		}
	})

	t.Run("preferred server when listed", func(t *testing.T) {
		got, err := SelectAuthorizationServer(servers, "https://b.example.com")
		if err != nil {
			t.Fatalf("SelectAuthorizationServer() error = %v", err)
		}
		if got != "https://b.example.com" {
			t.Errorf("server = %q, want preferred", got)
		}
	})

	t.Run("unlisted preference falls back to first", func(t *testing.T) {
		got, err := SelectAuthorizationServer(servers, "https://c.example.com")
		if err != nil {
			t.Fatalf("SelectAuthorizationServer() error = %v", err)
		}
		if got != "https://a.example.com" {
			t.Errorf("server = %q, want first-listed", got)
		}
	})

	t.Run("empty list is a discovery error", func(t *testing.T) {
		_, err := SelectAuthorizationServer(nil, "")
		var discErr *DiscoveryError
		if !errors.As(err, &discErr) {
			t.Fatalf("error = %v, want *DiscoveryError", err)
		}
	})
}
