package middleware

import (
	"context"
	"encoding/json"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
)

// Page-level response cache. GET responses under the API group are
// stored in Redis for a short window so bursts on the same listing or
// detail endpoint skip the snapshot and render pipeline entirely. The
// in-process snapshot caches already absorb upstream latency, so the
// TTL here stays small.

const (
	// PageCachePrefix namespaces cache keys so a purge can scan them.
	PageCachePrefix = "np:page-cache:"

	defaultPageTTL           = 15 * time.Second
	maxCachedBodyBytes       = 1 << 20
	staleWhileRevalidateSecs = 60
	cacheHitHeader           = "x-np-cache"
)

type PageCacheOptions struct {
	TTL time.Duration
	// SkipPaths are never cached; a trailing * matches a prefix.
	SkipPaths []string
	// EnableCDNHeader emits s-maxage directives for an edge cache.
	EnableCDNHeader bool
}

// cachedPage is the stored representation. Body round-trips through
// JSON's standard base64 encoding for []byte.
type cachedPage struct {
	Status      int    `json:"status"`
	ContentType string `json:"contentType,omitempty"`
	Body        []byte `json:"body"`
}

// captureWriter tees the response body. Oversized bodies are discarded
// wholesale; a truncated page must never be served later.
type captureWriter struct {
	gin.ResponseWriter
	body     []byte
	overflow bool
}

func (w *captureWriter) Write(data []byte) (int, error) {
	w.capture(data)
	return w.ResponseWriter.Write(data)
}

func (w *captureWriter) WriteString(s string) (int, error) {
	w.capture([]byte(s))
	return w.ResponseWriter.WriteString(s)
}

func (w *captureWriter) capture(data []byte) {
	if w.overflow {
		return
	}
	if len(w.body)+len(data) > maxCachedBodyBytes {
		w.overflow = true
		w.body = nil
		return
	}
	w.body = append(w.body, data...)
}

// PageCache returns the caching middleware. A nil Redis client turns
// it into a passthrough. Requests authenticated with the admin secret
// bypass the cache and are marked uncacheable downstream; a non-empty
// `fresh` query parameter forces a bypass for a single request.
func PageCache(rdb *redis.Client, opts PageCacheOptions) gin.HandlerFunc {
	if opts.TTL <= 0 {
		opts.TTL = defaultPageTTL
	}
	return func(c *gin.Context) {
		if rdb == nil || c.Request.Method != http.MethodGet {
			c.Next()
			return
		}
		if skipCachePath(c.Request.URL.Path, opts.SkipPaths) || c.Query("fresh") != "" {
			c.Next()
			return
		}
		if IsAuthenticated(c) {
			c.Next()
			markPrivate(c.Writer)
			return
		}

		key := PageCachePrefix + c.Request.URL.RequestURI()
		if page, ok := readCachedPage(c.Request.Context(), rdb, key); ok {
			writeCacheHeaders(c.Writer, opts, true)
			c.Data(page.Status, page.ContentType, page.Body)
			c.Abort()
			return
		}

		buffer := &captureWriter{ResponseWriter: c.Writer}
		c.Writer = buffer
		c.Next()

		if c.Writer.Status() != http.StatusOK || !cacheableHeaders(c.Writer.Header()) {
			return
		}
		writeCacheHeaders(c.Writer, opts, false)
		if buffer.overflow || len(buffer.body) == 0 {
			return
		}

		raw, err := json.Marshal(cachedPage{
			Status:      http.StatusOK,
			ContentType: c.Writer.Header().Get("Content-Type"),
			Body:        buffer.body,
		})
		if err != nil {
			return
		}
		_ = rdb.Set(c.Request.Context(), key, raw, opts.TTL).Err()
	}
}

// PurgePageCache deletes every cached page. Called on revalidation so
// purged content cannot be served for a residual TTL window.
func PurgePageCache(ctx context.Context, rdb *redis.Client) (int64, error) {
	if rdb == nil {
		return 0, nil
	}
	var (
		cursor  uint64
		deleted int64
	)
	for {
		keys, next, err := rdb.Scan(ctx, cursor, PageCachePrefix+"*", 200).Result()
		if err != nil {
			return deleted, err
		}
		if len(keys) > 0 {
			n, err := rdb.Del(ctx, keys...).Result()
			if err != nil {
				return deleted, err
			}
			deleted += n
		}
		cursor = next
		if cursor == 0 {
			return deleted, nil
		}
	}
}

func readCachedPage(ctx context.Context, rdb *redis.Client, key string) (cachedPage, bool) {
	raw, err := rdb.Get(ctx, key).Bytes()
	if err != nil || len(raw) == 0 {
		return cachedPage{}, false
	}
	var page cachedPage
	if err := json.Unmarshal(raw, &page); err != nil || len(page.Body) == 0 {
		return cachedPage{}, false
	}
	if page.Status <= 0 {
		page.Status = http.StatusOK
	}
	if page.ContentType == "" {
		page.ContentType = "application/json; charset=utf-8"
	}
	return page, true
}

func skipCachePath(path string, patterns []string) bool {
	for _, pattern := range patterns {
		p := strings.TrimSpace(pattern)
		if p == "" {
			continue
		}
		if strings.HasSuffix(p, "*") {
			if strings.HasPrefix(path, strings.TrimSuffix(p, "*")) {
				return true
			}
			continue
		}
		if path == p {
			return true
		}
	}
	return false
}

func cacheableHeaders(h http.Header) bool {
	cc := strings.ToLower(h.Get("Cache-Control"))
	return !strings.Contains(cc, "no-store") &&
		!strings.Contains(cc, "no-cache") &&
		!strings.Contains(cc, "private")
}

func writeCacheHeaders(w gin.ResponseWriter, opts PageCacheOptions, hit bool) {
	if hit {
		w.Header().Set(cacheHitHeader, "hit")
	}
	if !opts.EnableCDNHeader {
		return
	}
	ttl := int(opts.TTL / time.Second)
	v := "s-maxage=" + strconv.Itoa(ttl) + ", stale-while-revalidate=" + strconv.Itoa(staleWhileRevalidateSecs)
	w.Header().Set("CDN-Cache-Control", v)
	if w.Header().Get("Cache-Control") == "" {
		w.Header().Set("Cache-Control", v)
	}
}

func markPrivate(w gin.ResponseWriter) {
	v := "private, no-store"
	w.Header().Set("Cache-Control", v)
	w.Header().Set("CDN-Cache-Control", v)
}
