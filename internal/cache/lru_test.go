package cache

import (
	"testing"
	"time"
)

func TestLRUCacheEvictsLeastRecentlyUsed(t *testing.T) {
	c := NewLRUCache[int](2, time.Minute)
	c.Set("a", 1)
	c.Set("b", 2)
	if _, ok := c.Get("a"); !ok {
		t.Fatal("expected a")
	}
	c.Set("c", 3)

	if _, ok := c.Get("b"); ok {
		t.Error("b should have been evicted")
	}
	if v, ok := c.Get("a"); !ok || v != 1 {
		t.Errorf("expected a=1, got %v %v", v, ok)
	}
	if c.Size() != 2 {
		t.Errorf("expected size 2, got %d", c.Size())
	}
}

func TestLRUCacheExpiry(t *testing.T) {
	c := NewLRUCache[string](10, time.Second)
	now := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
	c.now = func() time.Time { return now }

	c.Set("k", "v")
	c.Set("other", "v")
	now = now.Add(2 * time.Second)
	if _, ok := c.Get("k"); ok {
		t.Error("expected k to be expired")
	}
	if n := c.CleanExpired(); n != 1 {
		t.Errorf("expected 1 expired entry cleaned, got %d", n)
	}
	if c.Size() != 0 {
		t.Errorf("expected empty cache, got %d", c.Size())
	}
}

func TestLRUCacheInvalidateRejectsStaleWrite(t *testing.T) {
	c := NewLRUCache[[]int](10, time.Minute)

	gen := c.Generation("tok")
	c.Set("tok", []int{1})
	c.Invalidate("tok")
	if _, ok := c.Get("tok"); ok {
		t.Fatal("expected entry to be dropped")
	}

	if c.SetIfCurrent("tok", []int{1, 2}, gen) {
		t.Error("write from before the invalidation must be dropped")
	}
	if !c.SetIfCurrent("tok", []int{1, 2, 3}, c.Generation("tok")) {
		t.Error("fresh write must be stored")
	}
	if v, ok := c.Get("tok"); !ok || len(v) != 3 {
		t.Errorf("unexpected value %v %v", v, ok)
	}
}

func TestManagerCleanNow(t *testing.T) {
	c := NewLRUCache[int](10, time.Millisecond)
	now := time.Now()
	c.now = func() time.Time { return now }
	c.Set("a", 1)
	now = now.Add(time.Second)

	m := NewManager(nil)
	m.Register(c)
	if n := m.CleanNow(); n != 1 {
		t.Errorf("expected 1 removed entry, got %d", n)
	}

	m.StartCleanup(time.Hour)
	m.Stop()
	m.Stop()
}
