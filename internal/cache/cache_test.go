package cache

import (
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"
)

func TestCache_PutGet(t *testing.T) {
	c, err := New(true, t.TempDir(), 86400)
	if err != nil {
		t.Fatalf("New error: %v", err)
	}

	key := ReviewKey("acme/api", 42, "abc123", "d1g3st")
	value := `{"runId":"r1","outcome":"critical"}`

	if _, ok := c.Get(key); ok {
		t.Error("Expected cache miss before put")
	}
	if err := c.Put(key, value); err != nil {
		t.Fatalf("Put error: %v", err)
	}
	got, ok := c.Get(key)
	if !ok {
		t.Fatal("Expected cache hit after put")
	}
	if got != value {
		t.Errorf("Got = %q, want %q", got, value)
	}
}

func TestCache_TTLExpiration(t *testing.T) {
	c, err := New(true, t.TempDir(), 60)
	if err != nil {
		t.Fatalf("New error: %v", err)
	}
	now := time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC)
	c.now = func() time.Time { return now }

	key := "expire-test"
	if err := c.Put(key, "data"); err != nil {
		t.Fatalf("Put error: %v", err)
	}
	if _, ok := c.Get(key); !ok {
		t.Error("Expected cache hit before expiration")
	}

	now = now.Add(61 * time.Second)
	if _, ok := c.Get(key); ok {
		t.Error("Expected cache miss after TTL expiration")
	}
	if _, err := os.Stat(c.entryPath(key)); !os.IsNotExist(err) {
		t.Error("expired entry should be removed on read")
	}
}

func TestCache_Disabled(t *testing.T) {
	c, err := New(false, "", 0)
	if err != nil {
		t.Fatalf("New error: %v", err)
	}
	if c.Enabled() {
		t.Error("Enabled() = true for disabled cache")
	}
	if err := c.Put("k", "v"); err != nil {
		t.Errorf("Put on disabled cache: %v", err)
	}
	if _, ok := c.Get("k"); ok {
		t.Error("disabled cache should always miss")
	}
	if n, err := c.Clear(); n != 0 || err != nil {
		t.Errorf("Clear = %d, %v", n, err)
	}
}

func TestCache_NilSafe(t *testing.T) {
	var c *Cache
	if _, ok := c.Get("k"); ok {
		t.Error("nil cache should miss")
	}
	if err := c.Put("k", "v"); err != nil {
		t.Errorf("Put on nil cache: %v", err)
	}
}

func TestCache_ClearAndStats(t *testing.T) {
	dir := t.TempDir()
	c, err := New(true, dir, 60)
	if err != nil {
		t.Fatal(err)
	}
	for _, k := range []string{"a", "b", "c"} {
		if err := c.Put(k, "value-"+k); err != nil {
			t.Fatal(err)
		}
	}
	// Unrelated files are left alone.
	if err := os.WriteFile(filepath.Join(dir, "notes.txt"), []byte("x"), 0o644); err != nil {
		t.Fatal(err)
	}

	stats, err := c.GetStats()
	if err != nil {
		t.Fatalf("GetStats error: %v", err)
	}
	if stats.Entries != 3 || stats.Expired != 0 || stats.TotalBytes == 0 {
		t.Errorf("stats = %+v", stats)
	}

	c.now = func() time.Time { return time.Now().Add(time.Hour) }
	if stats, _ := c.GetStats(); stats.Expired != 3 {
		t.Errorf("Expired = %d, want 3", stats.Expired)
	}

	n, err := c.Clear()
	if err != nil {
		t.Fatalf("Clear error: %v", err)
	}
	if n != 3 {
		t.Errorf("Clear removed %d, want 3", n)
	}
	if _, err := os.Stat(filepath.Join(dir, "notes.txt")); err != nil {
		t.Error("Clear removed a non-cache file")
	}
}

func TestCache_ConcurrentPut(t *testing.T) {
	c, err := New(true, t.TempDir(), 60)
	if err != nil {
		t.Fatal(err)
	}
	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_ = c.Put("same-key", "v")
		}()
	}
	wg.Wait()
	if v, ok := c.Get("same-key"); !ok || v != "v" {
		t.Errorf("Get = %q, %v", v, ok)
	}
}

func TestHashKey(t *testing.T) {
	a := HashKey("x")
	if len(a) != 64 {
		t.Errorf("HashKey length = %d, want 64", len(a))
	}
	if a != HashKey("x") || a == HashKey("y") {
		t.Error("HashKey must be deterministic and distinguish inputs")
	}
}

func TestReviewKey(t *testing.T) {
	k1 := ReviewKey("acme/api", 7, "sha1", "digest")
	if k1 == ReviewKey("acme/api", 7, "sha2", "digest") {
		t.Error("different head SHA should change the key")
	}
	if k1 == ReviewKey("acme/api", 7, "sha1", "other") {
		t.Error("different rule digest should change the key")
	}
}
