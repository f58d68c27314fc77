package cache

import (
	"crypto/sha256"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"sync"
	"time"
)

// Entry is one cached value.
type Entry struct {
	Key       string    `json:"key"`
	Value     string    `json:"value"`
	CreatedAt time.Time `json:"createdAt"`
}

// Cache is a file-backed key/value store with expiry. It is safe for
// concurrent use within one process.
type Cache struct {
	mu      sync.Mutex
	dir     string
	ttl     time.Duration
	enabled bool
	now     func() time.Time
}

// New creates a new Cache. If dir is empty, uses the default cache directory.
// A disabled cache misses every lookup and ignores writes.
func New(enabled bool, dir string, ttlSeconds int) (*Cache, error) {
	if !enabled {
		return &Cache{now: time.Now}, nil
	}
	if dir == "" {
		d, err := DefaultDir()
		if err != nil {
			return nil, err
		}
		dir = d
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("creating cache directory: %w", err)
	}
	return &Cache{
		dir:     dir,
		ttl:     time.Duration(ttlSeconds) * time.Second,
		enabled: true,
		now:     time.Now,
	}, nil
}

// Get returns the value stored under key. Expired entries are removed and
// reported as a miss.
func (c *Cache) Get(key string) (string, bool) {
	if c == nil || !c.enabled {
		return "", false
	}
	c.mu.Lock()
	defer c.mu.Unlock()

	path := c.entryPath(key)
	entry, err := readEntry(path)
	if err != nil {
		return "", false
	}
	if c.expired(entry) {
		_ = os.Remove(path)
		return "", false
	}
	return entry.Value, true
}

// Put stores value under key, replacing any existing entry.
func (c *Cache) Put(key, value string) error {
	if c == nil || !c.enabled {
		return nil
	}
	data, err := json.Marshal(Entry{Key: HashKey(key), Value: value, CreatedAt: c.now()})
	if err != nil {
		return fmt.Errorf("marshaling cache entry: %w", err)
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	tmp, err := os.CreateTemp(c.dir, ".entry-*")
	if err != nil {
		return fmt.Errorf("writing cache entry: %w", err)
	}
	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmp.Name())
		return fmt.Errorf("writing cache entry: %w", err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmp.Name())
		return fmt.Errorf("writing cache entry: %w", err)
	}
	return os.Rename(tmp.Name(), c.entryPath(key))
}

// Clear removes all cache entries and returns how many were removed.
func (c *Cache) Clear() (int, error) {
	if c == nil || !c.enabled {
		return 0, nil
	}
	c.mu.Lock()
	defer c.mu.Unlock()

	entries, err := os.ReadDir(c.dir)
	if err != nil {
		if os.IsNotExist(err) {
			return 0, nil
		}
		return 0, fmt.Errorf("reading cache directory: %w", err)
	}
	removed := 0
	for _, e := range entries {
		if filepath.Ext(e.Name()) != ".json" {
			continue
		}
		if err := os.Remove(filepath.Join(c.dir, e.Name())); err == nil {
			removed++
		}
	}
	return removed, nil
}

// Stats describes the cache contents.
type Stats struct {
	Dir        string `json:"dir"`
	Entries    int    `json:"entries"`
	TotalBytes int64  `json:"totalBytes"`
	Expired    int    `json:"expired"`
}

// GetStats returns information about the cache.
func (c *Cache) GetStats() (Stats, error) {
	stats := Stats{Dir: c.Dir()}
	if c == nil || !c.enabled {
		return stats, nil
	}
	c.mu.Lock()
	defer c.mu.Unlock()

	entries, err := os.ReadDir(c.dir)
	if err != nil {
		if os.IsNotExist(err) {
			return stats, nil
		}
		return stats, fmt.Errorf("reading cache directory: %w", err)
	}
	for _, e := range entries {
		if filepath.Ext(e.Name()) != ".json" {
			continue
		}
		info, err := e.Info()
		if err != nil {
			continue
		}
		stats.Entries++
		stats.TotalBytes += info.Size()
		if entry, err := readEntry(filepath.Join(c.dir, e.Name())); err == nil && c.expired(entry) {
			stats.Expired++
		}
	}
	return stats, nil
}

// Dir returns the cache directory path.
func (c *Cache) Dir() string {
	if c == nil {
		return ""
	}
	return c.dir
}

// Enabled returns whether caching is enabled.
func (c *Cache) Enabled() bool {
	return c != nil && c.enabled
}

// HashKey creates a SHA-256 hash of the given key material.
func HashKey(key string) string {
	h := sha256.Sum256([]byte(key))
	return fmt.Sprintf("%x", h)
}

// ReviewKey identifies one review of one pull request revision under one
// rule set.
func ReviewKey(repo string, number int, headSHA, rulesDigest string) string {
	return fmt.Sprintf("review:%s#%d@%s:%s", repo, number, headSHA, rulesDigest)
}

func (c *Cache) expired(e Entry) bool {
	return c.ttl > 0 && c.now().Sub(e.CreatedAt) > c.ttl
}

func (c *Cache) entryPath(key string) string {
	return filepath.Join(c.dir, HashKey(key)+".json")
}

func readEntry(path string) (Entry, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Entry{}, err
	}
	var entry Entry
	if err := json.Unmarshal(data, &entry); err != nil {
		return Entry{}, err
	}
	return entry, nil
}

// DefaultDir returns the platform cache directory for stylegate.
func DefaultDir() (string, error) {
	if xdg := os.Getenv("XDG_CACHE_HOME"); xdg != "" {
		return filepath.Join(xdg, "stylegate"), nil
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("cannot determine home directory: %w", err)
	}
	switch runtime.GOOS {
	case "darwin":
		return filepath.Join(home, "Library", "Caches", "stylegate"), nil
	case "windows":
		if localAppData := os.Getenv("LOCALAPPDATA"); localAppData != "" {
			return filepath.Join(localAppData, "stylegate", "cache"), nil
		}
		return filepath.Join(home, "AppData", "Local", "stylegate", "cache"), nil
	default:
		return filepath.Join(home, ".cache", "stylegate"), nil
	}
}
