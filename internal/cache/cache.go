package cache

import (
	"crypto/sha256"
	"encoding/json"
	"fmt"
	"net/http"
	"os"
	"path/filepath"
	"runtime"
	"time"
)

// SavedCookie is the persisted form of one cookie.
type SavedCookie struct {
	Name  string `json:"name"`
	Value string `json:"value"`
	Path  string `json:"path,omitempty"`
}

// Entry represents the cached session of one site.
type Entry struct {
	Site      string        `json:"site"`
	Cookies   []SavedCookie `json:"cookies"`
	CreatedAt time.Time     `json:"createdAt"`
	TTL       int           `json:"ttl"`
}

// Cache provides file-based storage for site session cookies.
type Cache struct {
	dir        string
	ttlSeconds int
	enabled    bool
}

// New creates a new Cache. If dir is empty, uses the default cache directory.
func New(enabled bool, dir string, ttlSeconds int) (*Cache, error) {
	if !enabled {
		return &Cache{enabled: false}, nil
	}
	if dir == "" {
		d, err := defaultCacheDir()
		if err != nil {
			return nil, err
		}
		dir = d
	}
	if err := os.MkdirAll(dir, 0o700); err != nil {
		return nil, fmt.Errorf("creating cache directory: %w", err)
	}
	return &Cache{
		dir:        dir,
		ttlSeconds: ttlSeconds,
		enabled:    true,
	}, nil
}

// Get returns the cookies saved for siteURL. Returns (nil, false) on miss.
func (c *Cache) Get(siteURL string) ([]*http.Cookie, bool) {
	if !c.enabled {
		return nil, false
	}
	path := c.entryPath(siteURL)
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, false
	}
	var entry Entry
	if err := json.Unmarshal(data, &entry); err != nil {
		return nil, false
	}
	if c.expired(entry) {
		os.Remove(path)
		return nil, false
	}
	cookies := make([]*http.Cookie, 0, len(entry.Cookies))
	for _, sc := range entry.Cookies {
		p := sc.Path
		if p == "" {
			p = "/"
		}
		cookies = append(cookies, &http.Cookie{Name: sc.Name, Value: sc.Value, Path: p})
	}
	return cookies, len(cookies) > 0
}

// Put stores the cookies of siteURL, replacing any previous entry. An empty
// cookie list removes the entry.
func (c *Cache) Put(siteURL string, cookies []*http.Cookie) error {
	if !c.enabled {
		return nil
	}
	if len(cookies) == 0 {
		return c.Delete(siteURL)
	}
	entry := Entry{
		Site:      siteURL,
		CreatedAt: time.Now(),
		TTL:       c.ttlSeconds,
	}
	for _, ck := range cookies {
		entry.Cookies = append(entry.Cookies, SavedCookie{Name: ck.Name, Value: ck.Value, Path: ck.Path})
	}
	data, err := json.Marshal(entry)
	if err != nil {
		return fmt.Errorf("marshaling cache entry: %w", err)
	}
	return os.WriteFile(c.entryPath(siteURL), data, 0o600)
}

// Delete removes the entry of siteURL if present.
func (c *Cache) Delete(siteURL string) error {
	if !c.enabled {
		return nil
	}
	if err := os.Remove(c.entryPath(siteURL)); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("removing cache entry: %w", err)
	}
	return nil
}

// Clear removes all cache entries and returns how many were removed.
func (c *Cache) Clear() (int, error) {
	if !c.enabled || c.dir == "" {
		return 0, nil
	}
	entries, err := os.ReadDir(c.dir)
	if err != nil {
		if os.IsNotExist(err) {
			return 0, nil
		}
		return 0, fmt.Errorf("reading cache directory: %w", err)
	}
	var removed int
	for _, e := range entries {
		if filepath.Ext(e.Name()) == ".json" {
			if err := os.Remove(filepath.Join(c.dir, e.Name())); err == nil {
				removed++
			}
		}
	}
	return removed, nil
}

// Stats returns cache statistics.
type Stats struct {
	Dir        string   `json:"dir"`
	Entries    int      `json:"entries"`
	TotalBytes int64    `json:"totalBytes"`
	Expired    int      `json:"expired"`
	Sites      []string `json:"sites,omitempty"`
}

// GetStats returns information about the cache.
func (c *Cache) GetStats() (Stats, error) {
	stats := Stats{Dir: c.dir}
	if !c.enabled || c.dir == "" {
		return stats, nil
	}
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

		data, err := os.ReadFile(filepath.Join(c.dir, e.Name()))
		if err != nil {
			continue
		}
		var entry Entry
		if err := json.Unmarshal(data, &entry); err != nil {
			continue
		}
		if c.expired(entry) {
			stats.Expired++
			continue
		}
		stats.Sites = append(stats.Sites, entry.Site)
	}
	return stats, nil
}

// Dir returns the cache directory path.
func (c *Cache) Dir() string {
	return c.dir
}

// Enabled returns whether caching is enabled.
func (c *Cache) Enabled() bool {
	return c.enabled
}

// HashKey creates a SHA-256 hash of the given key material.
func HashKey(key string) string {
	h := sha256.Sum256([]byte(key))
	return fmt.Sprintf("%x", h)
}

func (c *Cache) expired(entry Entry) bool {
	return c.ttlSeconds > 0 && time.Since(entry.CreatedAt) > time.Duration(c.ttlSeconds)*time.Second
}

func (c *Cache) entryPath(siteURL string) string {
	return filepath.Join(c.dir, HashKey(siteURL)+".json")
}

func defaultCacheDir() (string, error) {
	if xdg := os.Getenv("XDG_CACHE_HOME"); xdg != "" {
		return filepath.Join(xdg, "reviewdeck"), nil
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("cannot determine home directory: %w", err)
	}
	switch runtime.GOOS {
	case "darwin":
		return filepath.Join(home, "Library", "Caches", "reviewdeck"), nil
	case "windows":
		if localAppData := os.Getenv("LOCALAPPDATA"); localAppData != "" {
			return filepath.Join(localAppData, "reviewdeck", "cache"), nil
		}
		return filepath.Join(home, "AppData", "Local", "reviewdeck", "cache"), nil
	default:
		return filepath.Join(home, ".cache", "reviewdeck"), nil
	}
}
