package cache

import (
	"testing"
	"time"
)

func TestLRUWithTTL_BasicOperations(t *testing.T) {
	c, err := NewLRUWithTTL[string, int](3, 0)
	if err != nil {
		t.Fatalf("failed to create cache: %v", err)
	}

	c.Set("key1", 42)
	if val, ok := c.Get("key1"); !ok || val != 42 {
		t.Errorf("Get(key1) = (%v, %v), want (42, true)", val, ok)
	}
	if _, ok := c.Get("nonexistent"); ok {
		t.Error("Get(nonexistent) should return false")
	}

	// key1 was just read, so key2 is the eviction victim.
	c.Set("key2", 100)
	c.Get("key1")
	c.Set("key3", 200)
	c.Set("key4", 300)

	if _, ok := c.Get("key2"); ok {
		t.Error("key2 should have been evicted")
	}
	if val, ok := c.Get("key1"); !ok || val != 42 {
		t.Errorf("Get(key1) = (%v, %v), want (42, true)", val, ok)
	}

	stats := c.Stats()
	if stats.Evicted != 1 || stats.Size != 3 {
		t.Errorf("unexpected stats: %+v", stats)
	}
}

func TestLRUWithTTL_Expiration(t *testing.T) {
	c, err := NewLRUWithTTL[string, string](10, time.Minute)
	if err != nil {
		t.Fatalf("failed to create cache: %v", err)
	}
	clock := time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC)
	c.now = func() time.Time { return clock }

	c.Set("a", "1")
	c.Set("b", "2")
	if _, ok := c.Get("a"); !ok {
		t.Fatal("a should be present before expiration")
	}

	clock = clock.Add(2 * time.Minute)
	c.Set("c", "3")

	if _, ok := c.Get("a"); ok {
		t.Error("a should have expired")
	}
	if keys := c.Keys(); len(keys) != 1 || keys[0] != "c" {
		t.Errorf("expected only c live, got %v", keys)
	}
	if removed := c.CleanupExpired(); removed != 1 {
		t.Errorf("expected 1 expired entry cleaned (b), got %d", removed)
	}
	if c.Len() != 1 {
		t.Errorf("expected 1 entry left, got %d", c.Len())
	}
}

func TestLRUWithTTL_InvalidSize(t *testing.T) {
	if _, err := NewLRUWithTTL[string, int](0, 0); err == nil {
		t.Error("expected error for zero size")
	}
}
