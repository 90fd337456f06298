package header

import (
	"testing"
	"time"
)

func TestCache_SetGet(t *testing.T) {
	c := NewCache(DefaultTTL)

	if _, ok := c.Get("bucket/file"); ok {
		t.Error("Get() on empty cache reported a hit")
	}

	headers := []string{"Client Name", "Amount", "Posting Date"}
	c.Set("bucket/file", headers)

	got, ok := c.Get("bucket/file")
	if !ok {
		t.Fatal("Get() missed immediately after Set()")
	}
	if len(got) != 3 || got[0] != "Client Name" {
		t.Errorf("Get() = %v, want %v", got, headers)
	}
}

func TestCache_TTLExpiry(t *testing.T) {
	now := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	clock := func() time.Time { return now }

	c := NewCache(5 * time.Minute).WithClock(clock)
	c.Set("bucket/file", []string{"a", "b"})

	now = now.Add(299 * time.Second)
	if _, ok := c.Get("bucket/file"); !ok {
		t.Error("Get() at +299s missed, want hit inside TTL")
	}

	now = now.Add(2 * time.Second) // +301s
	if _, ok := c.Get("bucket/file"); ok {
		t.Error("Get() at +301s hit, want miss past TTL")
	}

	// The expired entry is gone; a fresh Set starts a new TTL.
	c.Set("bucket/file", []string{"c"})
	if _, ok := c.Get("bucket/file"); !ok {
		t.Error("Get() missed after re-Set of an expired key")
	}
}

func TestCache_DefaultTTL(t *testing.T) {
	c := NewCache(0)
	if c.ttl != DefaultTTL {
		t.Errorf("NewCache(0) ttl = %v, want %v", c.ttl, DefaultTTL)
	}
}

func TestCache_KeysAreIndependent(t *testing.T) {
	c := NewCache(time.Minute)
	c.Set("bucket/a", []string{"x"})
	c.Set("bucket/b", []string{"y"})

	a, _ := c.Get("bucket/a")
	b, _ := c.Get("bucket/b")
	if a[0] != "x" || b[0] != "y" {
		t.Errorf("cache mixed entries: a=%v b=%v", a, b)
	}
}
