package auth

import (
	"strings"
	"testing"
)

func TestHashAndVerifyPassword(t *testing.T) {
	digest, err := HashPassword("Secretpw1")
	if err != nil {
		t.Fatalf("HashPassword: %v", err)
	}
	if !strings.HasPrefix(digest, "$pbkdf2-sha256$29000$") {
		t.Fatalf("unexpected digest format: %s", digest)
	}
	if !VerifyPassword(digest, "Secretpw1") {
		t.Fatal("correct password did not verify")
	}
	if VerifyPassword(digest, "wrongpw99") {
		t.Fatal("wrong password verified")
	}
}

func TestHashPasswordSaltsDiffer(t *testing.T) {
	a, err := HashPassword("same-password")
	if err != nil {
		t.Fatalf("HashPassword: %v", err)
	}
	b, err := HashPassword("same-password")
	if err != nil {
		t.Fatalf("HashPassword: %v", err)
	}
	if a == b {
		t.Fatal("two digests of the same password are identical; salt is not random")
	}
	if !VerifyPassword(a, "same-password") || !VerifyPassword(b, "same-password") {
		t.Fatal("both digests must verify the original password")
	}
}

func TestHashPasswordRejectsEmpty(t *testing.T) {
	if _, err := HashPassword(""); err == nil {
		t.Fatal("expected error for empty password")
	}
}

func TestVerifyPasswordMalformedDigest(t *testing.T) {
	for _, digest := range []string{
		"",
		"not-a-digest",
		"$pbkdf2-sha256$",
		"$pbkdf2-sha256$abc$salt$hash",
		"$pbkdf2-sha256$0$c2FsdA$aGFzaA",
		"$bcrypt$29000$c2FsdA$aGFzaA",
		"$pbkdf2-sha256$29000$!!$aGFzaA",
		"$pbkdf2-sha256$29000$c2FsdA$",
	} {
		if VerifyPassword(digest, "whatever") {
			t.Fatalf("malformed digest %q verified", digest)
		}
	}
}
