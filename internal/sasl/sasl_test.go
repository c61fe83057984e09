package sasl

import (
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

func TestPlain_StartProducesInitialResponse(t *testing.T) {
	m := Plain("", "user@example.com", "secret")
	ir, err := m.Start()
	if err != nil {
		t.Fatalf("Start: %v", err)
	}
	want := "\x00user@example.com\x00secret"
	if string(ir) != want {
		t.Fatalf("got %q, want %q", ir, want)
	}
	if m.Name() != "PLAIN" {
		t.Fatalf("Name() = %q", m.Name())
	}
}

func TestOAuthBearer_RejectsExpiredJWT(t *testing.T) {
	tok := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"exp": time.Now().Add(-time.Hour).Unix(),
	})
	signed, err := tok.SignedString([]byte("test-secret"))
	if err != nil {
		t.Fatalf("sign: %v", err)
	}

	if _, err := OAuthBearer("user@example.com", signed, "imap.example.com", 993); err == nil {
		t.Fatal("expected expired bearer token to be rejected before a round trip")
	}
}

func TestOAuthBearer_AcceptsUnexpiredJWT(t *testing.T) {
	tok := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"exp": time.Now().Add(time.Hour).Unix(),
	})
	signed, err := tok.SignedString([]byte("test-secret"))
	if err != nil {
		t.Fatalf("sign: %v", err)
	}

	if _, err := OAuthBearer("user@example.com", signed, "imap.example.com", 993); err != nil {
		t.Fatalf("unexpected rejection: %v", err)
	}
}

func TestOAuthBearer_OpaqueTokenPassesThrough(t *testing.T) {
	if _, err := OAuthBearer("user@example.com", "not-a-jwt-opaque-token", "imap.example.com", 993); err != nil {
		t.Fatalf("opaque token should not be rejected: %v", err)
	}
}

func TestChallengeRoundTrip(t *testing.T) {
	payload := []byte("hello \x00 world")
	decoded, err := DecodeChallenge(EncodeChallenge(payload))
	if err != nil {
		t.Fatalf("DecodeChallenge: %v", err)
	}
	if string(decoded) != string(payload) {
		t.Fatalf("got %q, want %q", decoded, payload)
	}
}
