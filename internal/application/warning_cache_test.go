package application

import (
	"testing"
	"time"
)

func TestWarningCacheStoresAndReturnsCopies(t *testing.T) {
	fixed := time.Date(2024, 5, 1, 9, 0, 0, 0, time.UTC)
	current := fixed
	cache := newWarningCache(time.Minute, 4, func() time.Time { return current })

	original := []ConflictWarning{{BookingID: "booking-1", ConflictsWith: "booking-2"}}
	cache.Store("key", original)

	// Mutating the original slice should not affect the cached copy.
	original[0].BookingID = "mutated"

	cached, ok := cache.Get("key")
	if !ok {
		t.Fatalf("expected cache hit")
	}
	if cached[0].BookingID != "booking-1" {
		t.Fatalf("expected cached booking id to remain unchanged, got %s", cached[0].BookingID)
	}

	// Mutating the returned slice should not be visible on subsequent reads.
	cached[0].BookingID = "changed"
	cachedAgain, ok := cache.Get("key")
	if !ok {
		t.Fatalf("expected cache hit on second read")
	}
	if cachedAgain[0].BookingID != "booking-1" {
		t.Fatalf("expected cache to return independent copy, got %s", cachedAgain[0].BookingID)
	}
}

func TestWarningCacheExpiresEntries(t *testing.T) {
	fixed := time.Date(2024, 5, 1, 9, 0, 0, 0, time.UTC)
	current := fixed
	cache := newWarningCache(time.Second, 4, func() time.Time { return current })

	cache.Store("key", []ConflictWarning{{BookingID: "booking-1"}})
	if _, ok := cache.Get("key"); !ok {
		t.Fatalf("expected cache hit before expiry")
	}

	current = current.Add(2 * time.Second)
	if _, ok := cache.Get("key"); ok {
		t.Fatalf("expected cache entry to expire")
	}
}

func TestWarningCacheInvalidate(t *testing.T) {
	cache := newWarningCache(time.Minute, 4, time.Now)
	cache.Store("key", []ConflictWarning{{BookingID: "booking-1"}})
	cache.Invalidate()
	if _, ok := cache.Get("key"); ok {
		t.Fatalf("expected cache to be empty after invalidation")
	}
}

func TestBuildWarningCacheKeyNormalizesZones(t *testing.T) {
	utc := time.Date(2025, 3, 3, 9, 0, 0, 0, time.UTC)
	tokyo := utc.In(time.FixedZone("JST", 9*60*60))

	a := buildWarningCacheKey(ListBookingsParams{From: &utc, LeadID: "lead-1"})
	b := buildWarningCacheKey(ListBookingsParams{From: &tokyo, LeadID: "lead-1"})
	if a != b {
		t.Fatalf("expected identical keys for the same instant, got %q and %q", a, b)
	}
	if c := buildWarningCacheKey(ListBookingsParams{To: &utc, LeadID: "lead-1"}); c == a {
		t.Fatalf("expected from and to to produce distinct keys")
	}
}
