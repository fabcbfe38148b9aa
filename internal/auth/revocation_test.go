package auth

import (
	"context"
	"testing"
	"time"
)

func TestMemoryRevocationStoreAddAndContains(t *testing.T) {
	now := time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)
	store := NewMemoryRevocationStore(func() time.Time { return now })
	ctx := context.Background()

	if store.Contains(ctx, "jti-1") {
		t.Fatal("fresh store reports jti-1 revoked")
	}
	if !store.Add(ctx, "jti-1", time.Hour) {
		t.Fatal("first Add returned false")
	}
	if !store.Contains(ctx, "jti-1") {
		t.Fatal("Contains after Add returned false")
	}
	if store.Contains(ctx, "jti-2") {
		t.Fatal("unrelated id reported revoked")
	}
}

func TestMemoryRevocationStoreAddIsInsertIfAbsent(t *testing.T) {
	store := NewMemoryRevocationStore(nil)
	ctx := context.Background()

	if !store.Add(ctx, "jti-1", time.Hour) {
		t.Fatal("first Add returned false")
	}
	if store.Add(ctx, "jti-1", time.Hour) {
		t.Fatal("second Add of the same id returned true")
	}
}

func TestMemoryRevocationStoreExpiry(t *testing.T) {
	now := time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)
	store := NewMemoryRevocationStore(func() time.Time { return now })
	ctx := context.Background()

	store.Add(ctx, "jti-1", time.Minute)
	now = now.Add(2 * time.Minute)

	if store.Contains(ctx, "jti-1") {
		t.Fatal("expired entry still reported revoked")
	}
	// The slot is free again once the entry has lapsed.
	if !store.Add(ctx, "jti-1", time.Minute) {
		t.Fatal("Add after expiry returned false")
	}
}

func TestMemoryRevocationStoreClampsNonPositiveTTL(t *testing.T) {
	now := time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)
	store := NewMemoryRevocationStore(func() time.Time { return now })
	ctx := context.Background()

	if !store.Add(ctx, "jti-1", 0) {
		t.Fatal("Add with zero ttl returned false")
	}
	if !store.Contains(ctx, "jti-1") {
		t.Fatal("entry with clamped ttl not visible immediately")
	}
}

func TestHashTokenIDIsStableAndOpaque(t *testing.T) {
	a := hashTokenID("jti-1")
	b := hashTokenID("jti-1")
	if a != b {
		t.Fatalf("hashTokenID not deterministic: %q vs %q", a, b)
	}
	if len(a) != 16 {
		t.Fatalf("len(hashTokenID) = %d, want 16", len(a))
	}
	if a == "jti-1" || hashTokenID("jti-2") == a {
		t.Fatal("hashTokenID must not echo or collide trivially")
	}
}
