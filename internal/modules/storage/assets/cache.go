// Package assets pins remote images to local disk so pages never embed
// expiring signed URLs, and derives small blurred placeholders for
// progressive loading.
package assets

import (
	"context"
	"io"
	"net/http"
	"net/url"
	"os"
	"path"
	"path/filepath"
	"strings"
	"time"

	"go.uber.org/zap"
)

// ServePath is the route prefix the handler mounts; materialized
// assets are referenced as ServePath/{id}.
const ServePath = "/api/notion-image"

// blurExt is the sidecar holding the placeholder data URL for an id.
const blurExt = ".blur"

var contentTypeExt = map[string]string{
	"image/png":     ".png",
	"image/jpeg":    ".jpg",
	"image/gif":     ".gif",
	"image/webp":    ".webp",
	"image/svg+xml": ".svg",
	"image/avif":    ".avif",
}

var extContentType = map[string]string{
	".png":  "image/png",
	".jpg":  "image/jpeg",
	".jpeg": "image/jpeg",
	".gif":  "image/gif",
	".webp": "image/webp",
	".svg":  "image/svg+xml",
	".avif": "image/avif",
}

// cacheableHosts marks URL substrings of the source's expiring signed
// storage. Anything else is stable enough to hot-link.
var cacheableHosts = []string{"secure.notion-static.com", "prod-files-secure"}

// ShouldCache reports whether a URL points at expiring signed storage
// and therefore must be pinned locally.
func ShouldCache(rawURL string) bool {
	for _, host := range cacheableHosts {
		if strings.Contains(rawURL, host) {
			return true
		}
	}
	return false
}

// Cache is the on-disk image store. Files are keyed {id}{ext}; two
// concurrent writers for the same id write the same bytes, so the race
// is harmless and unguarded.
type Cache struct {
	dir    string
	client *http.Client
	log    *zap.Logger
}

func NewCache(dir string, log *zap.Logger) *Cache {
	return &Cache{
		dir:    dir,
		client: &http.Client{Timeout: 30 * time.Second},
		log:    log.Named("assets"),
	}
}

// Materialize returns a local serving URL and blur placeholder for the
// remote image, downloading it on first sight. Every failure path
// degrades to the untouched remote URL with no placeholder.
func (c *Cache) Materialize(ctx context.Context, id, remoteURL string) (string, string) {
	if !ShouldCache(remoteURL) {
		return remoteURL, ""
	}
	if _, _, ok := c.Lookup(id); ok {
		return ServePath + "/" + id, c.readBlur(id)
	}

	data, contentType, err := c.download(ctx, remoteURL)
	if err != nil {
		c.log.Warn("asset download failed", zap.String("id", id), zap.Error(err))
		return remoteURL, ""
	}
	ext := extensionFor(contentType, remoteURL)
	if err := os.MkdirAll(c.dir, 0o755); err != nil {
		c.log.Warn("asset cache dir unavailable", zap.Error(err))
		return remoteURL, ""
	}
	if err := os.WriteFile(filepath.Join(c.dir, id+ext), data, 0o644); err != nil {
		c.log.Warn("asset write failed", zap.String("id", id), zap.Error(err))
		return remoteURL, ""
	}

	blur := ""
	if placeholder, err := blurPlaceholder(data); err == nil {
		blur = placeholder
		if err := os.WriteFile(filepath.Join(c.dir, id+blurExt), []byte(placeholder), 0o644); err != nil {
			c.log.Warn("blur sidecar write failed", zap.String("id", id), zap.Error(err))
		}
	}
	return ServePath + "/" + id, blur
}

// Lookup finds the cached file for an id under any known extension and
// returns its path and content type.
func (c *Cache) Lookup(id string) (string, string, bool) {
	entries, err := os.ReadDir(c.dir)
	if err != nil {
		return "", "", false
	}
	for _, entry := range entries {
		name := entry.Name()
		ext := filepath.Ext(name)
		if ext == blurExt || strings.TrimSuffix(name, ext) != id {
			continue
		}
		if contentType, ok := extContentType[strings.ToLower(ext)]; ok {
			return filepath.Join(c.dir, name), contentType, true
		}
	}
	return "", "", false
}

func (c *Cache) readBlur(id string) string {
	data, err := os.ReadFile(filepath.Join(c.dir, id+blurExt))
	if err != nil {
		return ""
	}
	return string(data)
}

func (c *Cache) download(ctx context.Context, rawURL string) ([]byte, string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return nil, "", err
	}
	resp, err := c.client.Do(req)
	if err != nil {
		return nil, "", err
	}
	defer resp.Body.Close()
	if resp.StatusCode >= 400 {
		return nil, "", &url.Error{Op: "Get", URL: rawURL, Err: httpStatusError(resp.StatusCode)}
	}
	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, "", err
	}
	contentType, _, _ := strings.Cut(resp.Header.Get("Content-Type"), ";")
	return data, strings.TrimSpace(contentType), nil
}

type httpStatusError int

func (e httpStatusError) Error() string {
	return "unexpected status " + http.StatusText(int(e))
}

// extensionFor prefers the response content type and falls back to
// sniffing the URL path against the known extension set.
func extensionFor(contentType, rawURL string) string {
	if ext, ok := contentTypeExt[contentType]; ok {
		return ext
	}
	if u, err := url.Parse(rawURL); err == nil {
		ext := strings.ToLower(path.Ext(u.Path))
		if _, ok := extContentType[ext]; ok {
			return ext
		}
	}
	return ".png"
}
