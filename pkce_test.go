package discovery

import (
	"crypto/sha256"
	"encoding/base64"
	"testing"
)

func TestGeneratePKCE(t *testing.T) {
	challenge, err := GeneratePKCE()
	if err != nil {
		t.Fatalf("GeneratePKCE() error = %v", err)
	}

	if challenge.CodeChallengeMethod != "S256" {
		t.Errorf("CodeChallengeMethod = %q, want S256", challenge.CodeChallengeMethod)
	}

	// 32 bytes base64url-encode to 43 characters without padding.
	if len(challenge.CodeVerifier) != 43 {
		t.Errorf("len(CodeVerifier) = %d, want 43", len(challenge.CodeVerifier))
	}

	hash := sha256.Sum256([]byte(challenge.CodeVerifier))
	want := base64.RawURLEncoding.EncodeToString(hash[:])
	if challenge.CodeChallenge != want {
		t.Errorf("CodeChallenge = %q, want SHA256 of the verifier", challenge.CodeChallenge)
	}

	other, err := GeneratePKCE()
	if err != nil {
		t.Fatalf("GeneratePKCE() error = %v", err)
	}
	if other.CodeVerifier == challenge.CodeVerifier {
		t.Error("consecutive verifiers should not repeat")
	}
}

func TestGenerateState(t *testing.T) {
	state, err := GenerateState()
	if err != nil {
		t.Fatalf("GenerateState() error = %v", err)
	}
	if len(state) < 32 {
		t.Errorf("len(state) = %d, want at least 32", len(state))
	}

	other, err := GenerateState()
	if err != nil {
		t.Fatalf("GenerateState() error = %v", err)
	}
	if other == state {
		t.Error("consecutive states should not repeat")
	}
}

func TestGenerateNonce(t *testing.T) {
	nonce, err := GenerateNonce()
	if err != nil {
		t.Fatalf("GenerateNonce() error = %v", err)
	}
	if nonce == "" {
		t.Error("nonce should not be empty")
	}
}
