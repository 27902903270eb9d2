// Package cache memoizes institution-detection results by content hash.
// Detection is deterministic, so a hash of the document prefix is enough to
// reuse an earlier result without re-scanning the whole text.
package cache

import (
	"crypto/sha256"
	"encoding/hex"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/finparse/financial-parser/internal/entity"
)

// prefixLen bounds how much normalized text feeds the key. The opening of a
// document identifies the institution; hashing more buys nothing.
const prefixLen = 500

// evictFraction of entries removed when the cache is full.
const evictFraction = 0.10

type cacheEntry struct {
	detection  entity.InstitutionDetection
	insertedAt time.Time
}

// DetectionCache is a TTL'd, capacity-bounded map from content hash to
// detection result. Safe for concurrent use. A disabled cache behaves as a
// permanent miss and never errors.
type DetectionCache struct {
	mu      sync.RWMutex
	entries map[string]cacheEntry

	ttl     time.Duration
	maxSize int
	enabled bool

	hits   int64
	misses int64

	// now is swappable for TTL tests
	now func() time.Time
}

// Stats is a point-in-time view of cache effectiveness.
type Stats struct {
	Enabled bool    `json:"enabled"`
	Hits    int64   `json:"hits"`
	Misses  int64   `json:"misses"`
	HitRate float64 `json:"hit_rate"`
	Size    int     `json:"size"`
	MaxSize int     `json:"max_size"`
}

// New creates a detection cache. enabled=false yields a no-op passthrough
// that alters latency only, never correctness.
func New(ttl time.Duration, maxSize int, enabled bool) *DetectionCache {
	return &DetectionCache{
		entries: make(map[string]cacheEntry),
		ttl:     ttl,
		maxSize: maxSize,
		enabled: enabled,
		now:     time.Now,
	}
}

// Key hashes a whitespace-normalized prefix of the text. SHA-256 is used for
// collision avoidance only; nothing security-sensitive hangs off it.
func Key(text string) string {
	normalized := strings.Join(strings.Fields(strings.ToLower(text)), " ")
	if len(normalized) > prefixLen {
		normalized = normalized[:prefixLen]
	}
	sum := sha256.Sum256([]byte(normalized))
	return hex.EncodeToString(sum[:])
}

// Get returns the cached detection for the text, if present and fresh.
// Expired entries are treated as absent and lazily removed.
func (c *DetectionCache) Get(text string) (entity.InstitutionDetection, bool) {
	if c == nil || !c.enabled {
		return entity.InstitutionDetection{}, false
	}
	key := Key(text)

	c.mu.Lock()
	defer c.mu.Unlock()

	if e, ok := c.entries[key]; ok {
		if c.now().Sub(e.insertedAt) <= c.ttl {
			c.hits++
			return e.detection, true
		}
		delete(c.entries, key)
	}
	c.misses++
	return entity.InstitutionDetection{}, false
}

// Put stores a detection result. When the cache is full, the oldest ~10% of
// entries are evicted first.
func (c *DetectionCache) Put(text string, detection entity.InstitutionDetection) {
	if c == nil || !c.enabled {
		return
	}
	key := Key(text)

	c.mu.Lock()
	defer c.mu.Unlock()

	if len(c.entries) >= c.maxSize {
		c.evictOldestLocked()
	}
	c.entries[key] = cacheEntry{detection: detection, insertedAt: c.now()}
}

// evictOldestLocked removes the oldest evictFraction of entries. Caller must
// hold the write lock.
func (c *DetectionCache) evictOldestLocked() {
	type keyed struct {
		key string
		at  time.Time
	}
	all := make([]keyed, 0, len(c.entries))
	for k, e := range c.entries {
		all = append(all, keyed{k, e.insertedAt})
	}
	sort.Slice(all, func(i, j int) bool { return all[i].at.Before(all[j].at) })

	n := int(float64(c.maxSize) * evictFraction)
	if n < 1 {
		n = 1
	}
	if n > len(all) {
		n = len(all)
	}
	for _, k := range all[:n] {
		delete(c.entries, k.key)
	}
}

// Clear drops all entries and resets the counters.
func (c *DetectionCache) Clear() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries = make(map[string]cacheEntry)
	c.hits = 0
	c.misses = 0
}

// Stats returns hit/miss counters and sizes.
func (c *DetectionCache) Stats() Stats {
	c.mu.RLock()
	defer c.mu.RUnlock()

	total := c.hits + c.misses
	rate := 0.0
	if total > 0 {
		rate = float64(c.hits) / float64(total)
	}
	return Stats{
		Enabled: c.enabled,
		Hits:    c.hits,
		Misses:  c.misses,
		HitRate: rate,
		Size:    len(c.entries),
		MaxSize: c.maxSize,
	}
}
