package discovery

import (
	"context"
	"reflect"
	"strings"
	"sync"
	"testing"

	"github.com/giantswarm/mcp-discovery/internal/testutil"
)

func TestAuthServerMetadataCandidates(t *testing.T) {
	t.Run("issuer with path", func(t *testing.T) {
		got, err := authServerMetadataCandidates("https://auth.example.com/tenant/a")
		if err != nil {
			t.Fatalf("authServerMetadataCandidates() error = %v", err)
		}
		want := []string{
			"https://auth.example.com/.well-known/oauth-authorization-server/tenant/a",
			"https://auth.example.com/.well-known/openid-configuration/tenant/a",
			"https://auth.example.com/tenant/a/.well-known/openid-configuration",
			"https://auth.example.com/.well-known/oauth-authorization-server",
			"https://auth.example.com/.well-known/openid-configuration",
		}
		if !reflect.DeepEqual(got, want) {
			t.Errorf("candidates = %v, want %v", got, want)
		}
	})

	t.Run("root issuer", func(t *testing.T) {
		got, err := authServerMetadataCandidates("https://auth.example.com")
		if err != nil {
			t.Fatalf("authServerMetadataCandidates() error = %v", err)
		}
		want := []string{
			"https://auth.example.com/.well-known/oauth-authorization-server",
			"https://auth.example.com/.well-known/openid-configuration",
		}
		if !reflect.DeepEqual(got, want) {
			t.Errorf("candidates = %v, want %v", got, want)
		}
	})

	t.Run("invalid issuer", func(t *testing.T) {
		if _, err := authServerMetadataCandidates("::not-a-url"); err == nil {
			t.Fatal("invalid issuer should fail")
		}
	})
}

func validASMDocument(issuer string) map[string]any {
	return map[string]any{
		"issuer":                           issuer,
		"authorization_endpoint":           issuer + "/oauth/authorize",
		"token_endpoint":                   issuer + "/oauth/token",
		"code_challenge_methods_supported": []string{"S256"},
	}
}

func TestFetchAuthServerMetadata(t *testing.T) {
	t.Run("first candidate wins", func(t *testing.T) {
		srv, recorder := testutil.NewJSONServer(t, map[string]any{
			"/.well-known/oauth-authorization-server": validASMDocument("https://auth.example.com"),
			"/.well-known/openid-configuration":       validASMDocument("https://auth.example.com"),
		})

		client := newTestClient(t, nil)
		metadata, err := client.FetchAuthServerMetadata(context.Background(), srv.URL)
		if err != nil {
			t.Fatalf("FetchAuthServerMetadata() error = %v", err)
		}
		if metadata.Fallback {
			t.Error("discovered document must not be marked fallback")
		}
		if metadata.AuthorizationEndpoint != "https://auth.example.com/oauth/authorize" {
			t.Errorf("AuthorizationEndpoint = %q", metadata.AuthorizationEndpoint)
		}

		paths := recorder.Paths()
		if len(paths) != 1 || paths[0] != "/.well-known/oauth-authorization-server" {
			t.Errorf("requests = %v, want only the first candidate", paths)
		}
	})

	t.Run("candidate order for path issuer", func(t *testing.T) {
		server, recorder := testutil.NewJSONServer(t, map[string]any{})

		client := newTestClient(t, nil)
		if _, err := client.FetchAuthServerMetadata(context.Background(), server.URL+"/tenant/a"); err != nil {
			t.Fatalf("FetchAuthServerMetadata() error = %v", err)
		}

		want := []string{
			"/.well-known/oauth-authorization-server/tenant/a",
			"/.well-known/openid-configuration/tenant/a",
			"/tenant/a/.well-known/openid-configuration",
			"/.well-known/oauth-authorization-server",
			"/.well-known/openid-configuration",
		}
		if !reflect.DeepEqual(recorder.Paths(), want) {
			t.Errorf("request order = %v, want %v", recorder.Paths(), want)
		}
	})

	t.Run("fallback synthesized from origin only", func(t *testing.T) {
		server, _ := testutil.NewJSONServer(t, map[string]any{})

		client := newTestClient(t, nil)
		metadata, err := client.FetchAuthServerMetadata(context.Background(), server.URL+"/tenant/a")
		if err != nil {
			t.Fatalf("FetchAuthServerMetadata() error = %v", err)
		}

		if !metadata.Fallback {
			t.Fatal("exhausted discovery must yield a fallback document")
		}
		if metadata.AuthorizationEndpoint != server.URL+"/authorize" {
			t.Errorf("AuthorizationEndpoint = %q, want %q", metadata.AuthorizationEndpoint, server.URL+"/authorize")
		}
		if metadata.TokenEndpoint != server.URL+"/token" {
			t.Errorf("TokenEndpoint = %q, want %q", metadata.TokenEndpoint, server.URL+"/token")
		}
		if metadata.RegistrationEndpoint != server.URL+"/register" {
			t.Errorf("RegistrationEndpoint = %q, want %q", metadata.RegistrationEndpoint, server.URL+"/register")
		}
		if metadata.Issuer != server.URL {
			t.Errorf("Issuer = %q, want %q", metadata.Issuer, server.URL)
		}
		for _, endpoint := range []string{metadata.AuthorizationEndpoint, metadata.TokenEndpoint, metadata.RegistrationEndpoint} {
			if strings.Contains(endpoint, "/tenant/a") {
				t.Errorf("fallback endpoint %q must not include the issuer path", endpoint)
			}
		}
	})

	t.Run("metadata is cached", func(t *testing.T) {
		srv, recorder := testutil.NewJSONServer(t, map[string]any{
			"/.well-known/oauth-authorization-server": validASMDocument("https://auth.example.com"),
		})

		client := newTestClient(t, nil)
		ctx := context.Background()
		if _, err := client.FetchAuthServerMetadata(ctx, srv.URL); err != nil {
			t.Fatalf("first fetch error = %v", err)
		}
		if _, err := client.FetchAuthServerMetadata(ctx, srv.URL); err != nil {
			t.Fatalf("second fetch error = %v", err)
		}

		if got := len(recorder.Paths()); got != 1 {
			t.Errorf("server saw %d requests, want 1 (second should be served from cache)", got)
		}
	})

	t.Run("negative TTL disables caching", func(t *testing.T) {
		srv, recorder := testutil.NewJSONServer(t, map[string]any{
			"/.well-known/oauth-authorization-server": validASMDocument("https://auth.example.com"),
		})

		client := newTestClient(t, &Config{MetadataCacheTTL: -1})
		ctx := context.Background()
		for i := 0; i < 2; i++ {
			if _, err := client.FetchAuthServerMetadata(ctx, srv.URL); err != nil {
				t.Fatalf("fetch %d error = %v", i, err)
			}
		}

		if got := len(recorder.Paths()); got != 2 {
			t.Errorf("server saw %d requests, want 2 with caching disabled", got)
		}
	})

	t.Run("fallback documents are not cached", func(t *testing.T) {
		server, recorder := testutil.NewJSONServer(t, map[string]any{})

		client := newTestClient(t, nil)
		ctx := context.Background()
		for i := 0; i < 2; i++ {
			metadata, err := client.FetchAuthServerMetadata(ctx, server.URL)
			if err != nil {
				t.Fatalf("fetch %d error = %v", i, err)
			}
			if !metadata.Fallback {
				t.Fatalf("fetch %d should synthesize fallback metadata", i)
			}
		}

		// Two sweeps with two candidates each for a root issuer.
		if got := len(recorder.Paths()); got != 4 {
			t.Errorf("server saw %d requests, want 4", got)
		}
	})

	t.Run("concurrent fetches are deduplicated", func(t *testing.T) {
		srv, recorder := testutil.NewJSONServer(t, map[string]any{
			"/.well-known/oauth-authorization-server": validASMDocument("https://auth.example.com"),
		})

		client := newTestClient(t, nil)
		ctx := context.Background()

		var wg sync.WaitGroup
		for i := 0; i < 8; i++ {
			wg.Add(1)
			go func() {
				defer wg.Done()
				if _, err := client.FetchAuthServerMetadata(ctx, srv.URL); err != nil {
					t.Errorf("concurrent fetch error = %v", err)
				}
			}()
		}
		wg.Wait()

		if got := len(recorder.Paths()); got != 1 {
			t.Errorf("server saw %d requests, want 1 for deduplicated fetches", got)
		}
	})

	t.Run("trailing slash on issuer is normalized", func(t *testing.T) {
		srv, recorder := testutil.NewJSONServer(t, map[string]any{
			"/.well-known/oauth-authorization-server": validASMDocument("https://auth.example.com"),
		})

		client := newTestClient(t, nil)
		ctx := context.Background()
		if _, err := client.FetchAuthServerMetadata(ctx, srv.URL+"/"); err != nil {
			t.Fatalf("fetch error = %v", err)
		}
		if _, err := client.FetchAuthServerMetadata(ctx, srv.URL); err != nil {
			t.Fatalf("fetch error = %v", err)
		}

		if got := len(recorder.Paths()); got != 1 {
			t.Errorf("server saw %d requests, want 1 (same issuer either way)", got)
		}
	})
}

func TestClearMetadataCache(t *testing.T) {
	srv, recorder := testutil.NewJSONServer(t, map[string]any{
		"/.well-known/oauth-authorization-server": validASMDocument("https://auth.example.com"),
	})

	client := newTestClient(t, nil)
	ctx := context.Background()
	if _, err := client.FetchAuthServerMetadata(ctx, srv.URL); err != nil {
		t.Fatalf("fetch error = %v", err)
	}
	client.ClearMetadataCache()
	if _, err := client.FetchAuthServerMetadata(ctx, srv.URL); err != nil {
		t.Fatalf("fetch error = %v", err)
	}

	if got := len(recorder.Paths()); got != 2 {
		t.Errorf("server saw %d requests, want 2 after cache clear", got)
	}
}
