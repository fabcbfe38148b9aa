package auth

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"log/slog"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
	"golang.org/x/time/rate"
)

const (
	revocationKeyPrefix = "blacklist:token:"
	revocationOpTimeout = time.Second
)

// RevocationStore tracks identifiers of tokens that must no longer be
// honored. Entries expire on their own; they are never updated or removed.
type RevocationStore interface {
	// Add marks the token id revoked for ttl. It is an atomic
	// insert-if-absent and reports false when the id was already present,
	// which is how concurrent refresh-token replays are arbitrated.
	Add(ctx context.Context, jti string, ttl time.Duration) bool

	// Contains reports whether the token id has been revoked.
	Contains(ctx context.Context, jti string) bool
}

// hashTokenID truncates a SHA-256 of the token id; only this form is ever
// stored, so a compromised store does not yield usable identifiers.
func hashTokenID(jti string) string {
	sum := sha256.Sum256([]byte(jti))
	return hex.EncodeToString(sum[:])[:16]
}

// MemoryRevocationStore is a process-local revocation set with expiry.
// It has no cross-process visibility and does not survive restarts; it
// exists as the availability fallback when the shared cache is down and as
// the sole store in single-instance deployments without Redis.
type MemoryRevocationStore struct {
	mu      sync.Mutex
	entries map[string]time.Time
	now     func() time.Time
}

// NewMemoryRevocationStore builds the local store. A nil clock defaults to
// time.Now.
func NewMemoryRevocationStore(now func() time.Time) *MemoryRevocationStore {
	if now == nil {
		now = time.Now
	}
	return &MemoryRevocationStore{
		entries: make(map[string]time.Time),
		now:     now,
	}
}

func (s *MemoryRevocationStore) Add(_ context.Context, jti string, ttl time.Duration) bool {
	if ttl <= 0 {
		ttl = time.Second
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	now := s.now()
	s.prune(now)
	key := hashTokenID(jti)
	if exp, ok := s.entries[key]; ok && exp.After(now) {
		return false
	}
	s.entries[key] = now.Add(ttl)
	return true
}

func (s *MemoryRevocationStore) Contains(_ context.Context, jti string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	now := s.now()
	s.prune(now)
	exp, ok := s.entries[hashTokenID(jti)]
	return ok && exp.After(now)
}

// prune drops expired entries. Called lazily under the lock on each access.
func (s *MemoryRevocationStore) prune(now time.Time) {
	for k, exp := range s.entries {
		if !exp.After(now) {
			delete(s.entries, k)
		}
	}
}

// RedisRevocationStore keeps revocations in a shared Redis with per-key TTL
// so every instance sees them. Cache failures never surface past this type:
// they degrade to the in-process fallback, an explicit consistency-for-
// availability trade (a revoked token may be honored by another instance
// until it expires naturally).
type RedisRevocationStore struct {
	client   *redis.Client
	fallback *MemoryRevocationStore
	log      *slog.Logger
	logEvery *rate.Limiter
}

// NewRedisRevocationStore wraps the client with a local fallback.
func NewRedisRevocationStore(client *redis.Client, log *slog.Logger) *RedisRevocationStore {
	return &RedisRevocationStore{
		client:   client,
		fallback: NewMemoryRevocationStore(nil),
		log:      log,
		logEvery: rate.NewLimiter(rate.Every(30*time.Second), 1),
	}
}

func (s *RedisRevocationStore) Add(ctx context.Context, jti string, ttl time.Duration) bool {
	if ttl <= 0 {
		ttl = time.Second
	}
	opCtx, cancel := context.WithTimeout(ctx, revocationOpTimeout)
	defer cancel()

	ok, err := s.client.SetNX(opCtx, revocationKeyPrefix+hashTokenID(jti), "1", ttl).Result()
	if err != nil {
		s.degraded("add", err)
		return s.fallback.Add(ctx, jti, ttl)
	}
	return ok
}

func (s *RedisRevocationStore) Contains(ctx context.Context, jti string) bool {
	opCtx, cancel := context.WithTimeout(ctx, revocationOpTimeout)
	defer cancel()

	n, err := s.client.Exists(opCtx, revocationKeyPrefix+hashTokenID(jti)).Result()
	if err != nil {
		s.degraded("contains", err)
		return s.fallback.Contains(ctx, jti)
	}
	if n > 0 {
		return true
	}
	// Revocations written while the cache was unreachable live only in the
	// local set; consult it even on a cache miss.
	return s.fallback.Contains(ctx, jti)
}

func (s *RedisRevocationStore) degraded(op string, err error) {
	if s.log == nil || !s.logEvery.Allow() {
		return
	}
	s.log.Warn("revocation cache unavailable, using in-process fallback",
		slog.String("op", op),
		slog.Any("error", err),
	)
}
