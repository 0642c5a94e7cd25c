// Package linkpreview attaches Open Graph metadata to bookmark and
// link_preview blocks. Results are cached on disk keyed by URL hash so
// repeated renders of the same page cost no network, with a small LRU
// front in memory.
package linkpreview

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"os"
	"path/filepath"
	"time"

	lru "github.com/hashicorp/golang-lru/v2"
	"go.uber.org/zap"

	"github.com/notionpress/core/internal/notion"
)

const (
	// DefaultTTL is how long a disk entry stays fresh.
	DefaultTTL = 24 * time.Hour
	// memorySize bounds the in-memory front.
	memorySize = 500
)

// memoEntry wraps a metadata value with its expiry. Failed fetches are
// memoized as empty metadata too, which naturally rate-limits repeated
// requests for a dead URL.
type memoEntry struct {
	meta      notion.LinkMetadata
	expiresAt time.Time
}

// Enricher fetches and caches link preview metadata.
type Enricher struct {
	dir    string
	ttl    time.Duration
	clock  func() time.Time
	memory *lru.Cache[string, memoEntry]
	fetch  func(ctx context.Context, url string) notion.LinkMetadata
	log    *zap.Logger
}

func New(dir string, ttl time.Duration, log *zap.Logger) *Enricher {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	memory, _ := lru.New[string, memoEntry](memorySize)
	e := &Enricher{
		dir:    dir,
		ttl:    ttl,
		clock:  time.Now,
		memory: memory,
		log:    log.Named("linkpreview"),
	}
	e.fetch = e.fetchMetadata
	return e
}

// Get returns preview metadata for a URL, never an error: any failure
// degrades to stale cached metadata or an all-empty value.
func (e *Enricher) Get(ctx context.Context, url string) notion.LinkMetadata {
	if entry, ok := e.memory.Get(url); ok && e.clock().Before(entry.expiresAt) {
		return entry.meta
	}

	path := e.cachePath(url)
	cached, haveCached, fresh := e.readDisk(path)
	if haveCached && fresh {
		e.memoize(url, cached)
		return cached
	}

	fetched := e.fetch(ctx, url)
	if fetched.Title != "" {
		e.writeDisk(path, fetched)
		e.memoize(url, fetched)
		return fetched
	}
	if haveCached {
		e.memoize(url, cached)
		return cached
	}
	e.memoize(url, notion.LinkMetadata{})
	return notion.LinkMetadata{}
}

func (e *Enricher) memoize(url string, meta notion.LinkMetadata) {
	e.memory.Add(url, memoEntry{meta: meta, expiresAt: e.clock().Add(e.ttl)})
}

// cachePath hashes a URL into a stable filename.
func (e *Enricher) cachePath(url string) string {
	hash := base64.RawURLEncoding.EncodeToString([]byte(url))
	if len(hash) > 64 {
		hash = hash[:64]
	}
	return filepath.Join(e.dir, hash+".json")
}

// readDisk returns the cached metadata, whether one exists, and
// whether its mtime is within the TTL.
func (e *Enricher) readDisk(path string) (notion.LinkMetadata, bool, bool) {
	info, err := os.Stat(path)
	if err != nil {
		return notion.LinkMetadata{}, false, false
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return notion.LinkMetadata{}, false, false
	}
	var meta notion.LinkMetadata
	if err := json.Unmarshal(data, &meta); err != nil {
		return notion.LinkMetadata{}, false, false
	}
	fresh := e.clock().Sub(info.ModTime()) < e.ttl
	return meta, true, fresh
}

// writeDisk overwrites the entry unconditionally, restarting its TTL
// clock. Write failures only cost us the cache.
func (e *Enricher) writeDisk(path string, meta notion.LinkMetadata) {
	if err := os.MkdirAll(e.dir, 0o755); err != nil {
		e.log.Warn("preview cache dir unavailable", zap.Error(err))
		return
	}
	data, err := json.Marshal(meta)
	if err != nil {
		return
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		e.log.Warn("preview cache write failed", zap.Error(err))
	}
}

// Prune removes disk entries whose mtime is older than the cutoff.
// Entries past the TTL can still serve as stale fallbacks, so callers
// typically prune at a multiple of the TTL.
func (e *Enricher) Prune(olderThan time.Duration) (int, error) {
	entries, err := os.ReadDir(e.dir)
	if err != nil {
		if os.IsNotExist(err) {
			return 0, nil
		}
		return 0, err
	}

	cutoff := e.clock().Add(-olderThan)
	removed := 0
	for _, entry := range entries {
		if entry.IsDir() || filepath.Ext(entry.Name()) != ".json" {
			continue
		}
		info, err := entry.Info()
		if err != nil || !info.ModTime().Before(cutoff) {
			continue
		}
		if err := os.Remove(filepath.Join(e.dir, entry.Name())); err != nil {
			e.log.Warn("preview cache prune failed", zap.String("entry", entry.Name()), zap.Error(err))
			continue
		}
		removed++
	}
	return removed, nil
}
