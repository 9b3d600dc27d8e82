package middleware

import (
	"testing"
)

func TestHashKey_Verifies(t *testing.T) {
	hash, salt, err := HashKey("my-key")
	if err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}

	verifier, err := NewKeyVerifier(hash, salt)
	if err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}
	if !verifier.Enabled() {
		t.Fatal("Expected verifier to be enabled")
	}
	if !verifier.VerifyKey("my-key") {
		t.Error("Expected key to verify")
	}
	if verifier.VerifyKey("other-key") || verifier.VerifyKey("") {
		t.Error("Expected other keys to be rejected")
	}
}

func TestHashKey_UsesFreshSalt(t *testing.T) {
	hash1, salt1, _ := HashKey("my-key")
	hash2, salt2, _ := HashKey("my-key")
	if salt1 == salt2 || hash1 == hash2 {
		t.Error("Expected a fresh salt per hash")
	}
}

func TestHashKey_EmptyKey(t *testing.T) {
	if _, _, err := HashKey(""); err == nil {
		t.Error("Expected error for empty key")
	}
}

func TestNewKeyVerifier(t *testing.T) {
	verifier, err := NewKeyVerifier("", "")
	if err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}
	if verifier.Enabled() || verifier.VerifyKey("anything") {
		t.Error("Verifier without hash must be disabled")
	}

	if _, err := NewKeyVerifier("zz", "00"); err == nil {
		t.Error("Expected error for invalid hash")
	}
	if _, err := NewKeyVerifier("00", "zz"); err == nil {
		t.Error("Expected error for invalid salt")
	}
	if _, err := NewKeyVerifier("00", ""); err == nil {
		t.Error("Expected error for empty salt")
	}
}
