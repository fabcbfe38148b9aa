package auth

import (
	"crypto/rand"
	"encoding/base64"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// Token types carried in the token_type claim.
const (
	TokenTypeAccess  = "access"
	TokenTypeRefresh = "refresh"
)

// TokenClaims is the claim set carried by both access and refresh tokens.
type TokenClaims struct {
	TokenType string `json:"token_type"`
	jwt.RegisteredClaims
}

// TokenCodec signs and verifies session tokens with a fixed HS256 secret.
// It performs no revocation check; that is the caller's responsibility.
type TokenCodec struct {
	secret []byte
	now    func() time.Time
}

// NewTokenCodec builds a codec over the given symmetric secret. A nil clock
// defaults to time.Now.
func NewTokenCodec(secret []byte, now func() time.Time) (*TokenCodec, error) {
	if len(secret) == 0 {
		return nil, errors.New("auth: token secret is empty")
	}
	if now == nil {
		now = time.Now
	}
	return &TokenCodec{secret: secret, now: now}, nil
}

// Issue mints a signed token for the subject with a fresh random token id.
func (c *TokenCodec) Issue(subject, tokenType string, ttl time.Duration) (string, TokenClaims, error) {
	subject = strings.TrimSpace(subject)
	if subject == "" {
		return "", TokenClaims{}, errors.New("auth: subject is required")
	}
	if tokenType != TokenTypeAccess && tokenType != TokenTypeRefresh {
		return "", TokenClaims{}, fmt.Errorf("auth: unknown token type %q", tokenType)
	}
	if ttl <= 0 {
		return "", TokenClaims{}, errors.New("auth: ttl must be greater than zero")
	}
	jti, err := newTokenID()
	if err != nil {
		return "", TokenClaims{}, err
	}

	now := c.now().UTC()
	claims := TokenClaims{
		TokenType: tokenType,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   subject,
			ID:        jti,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
		},
	}
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(c.secret)
	if err != nil {
		return "", TokenClaims{}, fmt.Errorf("auth: sign token: %w", err)
	}
	return signed, claims, nil
}

// Decode verifies the signature first, then the expiry, and returns the
// claim set. Signature mismatch, malformed structure or an unexpected
// algorithm yield ErrInvalidToken; expiry yields ErrTokenExpired.
func (c *TokenCodec) Decode(token string) (*TokenClaims, error) {
	token = strings.TrimSpace(token)
	if token == "" {
		return nil, ErrInvalidToken
	}
	parsed, err := jwt.ParseWithClaims(token, &TokenClaims{}, func(t *jwt.Token) (any, error) {
		if t.Method != jwt.SigningMethodHS256 {
			return nil, ErrInvalidToken
		}
		return c.secret, nil
	}, jwt.WithTimeFunc(c.now), jwt.WithExpirationRequired())
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return nil, ErrTokenExpired
		}
		return nil, ErrInvalidToken
	}
	claims, ok := parsed.Claims.(*TokenClaims)
	if !ok || !parsed.Valid {
		return nil, ErrInvalidToken
	}
	if strings.TrimSpace(claims.Subject) == "" || claims.ID == "" {
		return nil, ErrInvalidToken
	}
	if claims.TokenType != TokenTypeAccess && claims.TokenType != TokenTypeRefresh {
		return nil, ErrInvalidToken
	}
	return claims, nil
}

// newTokenID returns a URL-safe identifier with 128 bits of entropy.
func newTokenID() (string, error) {
	buf := make([]byte, 16)
	if _, err := rand.Read(buf); err != nil {
		return "", fmt.Errorf("auth: generate token id: %w", err)
	}
	return base64.RawURLEncoding.EncodeToString(buf), nil
}
