package auth

import (
	"testing"
	"time"
)

func TestResetTokenRoundTrip(t *testing.T) {
	secret := []byte("test-secret")

	token, err := signResetToken(secret, 42, "jti-1", time.Minute)
	if err != nil {
		t.Fatalf("sign: %v", err)
	}

	claims, err := parseResetToken(secret, token)
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if claims.UserID != 42 {
		t.Fatalf("uid = %d, want 42", claims.UserID)
	}
	if claims.ID != "jti-1" {
		t.Fatalf("jti = %q, want jti-1", claims.ID)
	}
}

func TestResetTokenWrongSecret(t *testing.T) {
	token, err := signResetToken([]byte("secret-a"), 1, "jti-2", time.Minute)
	if err != nil {
		t.Fatalf("sign: %v", err)
	}
	if _, err := parseResetToken([]byte("secret-b"), token); err == nil {
		t.Fatal("token signed with a different secret should not parse")
	}
}

func TestResetTokenExpired(t *testing.T) {
	token, err := signResetToken([]byte("secret"), 1, "jti-3", -time.Minute)
	if err != nil {
		t.Fatalf("sign: %v", err)
	}
	if _, err := parseResetToken([]byte("secret"), token); err == nil {
		t.Fatal("expired token should not parse")
	}
}

func TestResetTokenGarbage(t *testing.T) {
	if _, err := parseResetToken([]byte("secret"), "not-a-jwt"); err == nil {
		t.Fatal("garbage input should not parse")
	}
}
