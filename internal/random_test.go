package internal

import (
	"encoding/hex"
	"testing"
)

func TestNewResetTokenEntropy(t *testing.T) {
	a, err := NewResetToken()
	if err != nil {
		t.Fatalf("new reset token: %v", err)
	}
	b, err := NewResetToken()
	if err != nil {
		t.Fatalf("new reset token: %v", err)
	}

	if a == b {
		t.Fatal("two reset tokens collided")
	}
	if len(a) != resetTokenRawSize*2 {
		t.Fatalf("token length = %d, want %d", len(a), resetTokenRawSize*2)
	}
	if _, err := hex.DecodeString(a); err != nil {
		t.Fatalf("token is not hex: %v", err)
	}
}

func TestHashTokenIsStableHexDigest(t *testing.T) {
	h := HashToken("some-token")
	if h != HashToken("some-token") {
		t.Fatal("digest not deterministic")
	}
	if len(h) != 64 {
		t.Fatalf("digest length = %d, want 64", len(h))
	}
	if h == HashToken("other-token") {
		t.Fatal("distinct tokens produced the same digest")
	}
}

func TestTokenHashEqual(t *testing.T) {
	h := HashToken("x")
	if !TokenHashEqual(h, h) {
		t.Fatal("equal digests reported unequal")
	}
	if TokenHashEqual(h, HashToken("y")) {
		t.Fatal("unequal digests reported equal")
	}
	if TokenHashEqual(h, h[:32]) {
		t.Fatal("different lengths reported equal")
	}
}
