package auth

import (
	"crypto/rand"
	"crypto/sha256"
	"crypto/subtle"
	"encoding/base64"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"golang.org/x/crypto/pbkdf2"
)

// Digest layout: $pbkdf2-sha256$<rounds>$<salt>$<checksum>, salt and checksum
// in adapted base64 ("." instead of "+", no padding). Compatible with digests
// produced by passlib's pbkdf2_sha256 scheme.
const (
	pbkdf2Scheme     = "pbkdf2-sha256"
	pbkdf2Iterations = 29000
	pbkdf2SaltLen    = 16
	pbkdf2KeyLen     = 32
)

// HashPassword derives a salted one-way digest of the password.
func HashPassword(password string) (string, error) {
	if password == "" {
		return "", errors.New("auth: password is empty")
	}
	salt := make([]byte, pbkdf2SaltLen)
	if _, err := rand.Read(salt); err != nil {
		return "", fmt.Errorf("auth: generate salt: %w", err)
	}
	key := pbkdf2.Key([]byte(password), salt, pbkdf2Iterations, pbkdf2KeyLen, sha256.New)
	return fmt.Sprintf("$%s$%d$%s$%s", pbkdf2Scheme, pbkdf2Iterations, ab64Encode(salt), ab64Encode(key)), nil
}

// VerifyPassword reports whether password matches the stored digest. The
// comparison is constant time; malformed digests verify false, never panic.
func VerifyPassword(digest, password string) bool {
	parts := strings.Split(digest, "$")
	if len(parts) != 5 || parts[0] != "" || parts[1] != pbkdf2Scheme {
		return false
	}
	rounds, err := strconv.Atoi(parts[2])
	if err != nil || rounds < 1 {
		return false
	}
	salt, err := ab64Decode(parts[3])
	if err != nil || len(salt) == 0 {
		return false
	}
	want, err := ab64Decode(parts[4])
	if err != nil || len(want) == 0 {
		return false
	}
	got := pbkdf2.Key([]byte(password), salt, rounds, len(want), sha256.New)
	return subtle.ConstantTimeCompare(got, want) == 1
}

func ab64Encode(b []byte) string {
	return strings.ReplaceAll(base64.RawStdEncoding.EncodeToString(b), "+", ".")
}

func ab64Decode(s string) ([]byte, error) {
	return base64.RawStdEncoding.DecodeString(strings.ReplaceAll(s, ".", "+"))
}
