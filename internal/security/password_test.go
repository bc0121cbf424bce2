package security

import (
	"errors"
	"strings"
	"testing"

	"golang.org/x/crypto/bcrypt"
)

func TestBcryptHasher_RoundTrip(t *testing.T) {
	h := NewBcryptHasher(bcrypt.MinCost)

	hash, err := h.Hash("testpass123")
	if err != nil {
		t.Fatalf("hash: %v", err)
	}

	if hash == "testpass123" || !strings.HasPrefix(hash, "$2") {
		t.Fatalf("expected bcrypt hash, got %q", hash)
	}

	if !h.Verify(hash, "testpass123") {
		t.Fatalf("expected password to verify")
	}

	if h.Verify(hash, "wrong") {
		t.Fatalf("expected wrong password to fail")
	}
}

func TestBcryptHasher_DefaultCost(t *testing.T) {
	if got := NewBcryptHasher(0).Cost; got != bcrypt.DefaultCost {
		t.Fatalf("expected default cost %d, got %d", bcrypt.DefaultCost, got)
	}
}

func TestBcryptHasher_TooLong(t *testing.T) {
	h := NewBcryptHasher(bcrypt.MinCost)

	if _, err := h.Hash(strings.Repeat("a", MaxPasswordBytes)); err != nil {
		t.Fatalf("expected %d bytes to hash, got %v", MaxPasswordBytes, err)
	}

	_, err := h.Hash(strings.Repeat("a", MaxPasswordBytes+1))
	if !errors.Is(err, ErrPasswordTooLong) {
		t.Fatalf("expected ErrPasswordTooLong, got %v", err)
	}
}
