package assets

import (
	"bytes"
	"context"
	"image"
	"image/color"
	"image/png"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/notionpress/core/internal/notion"
)

func pngBytes(t *testing.T) []byte {
	t.Helper()
	img := image.NewRGBA(image.Rect(0, 0, 64, 64))
	for x := 0; x < 64; x++ {
		for y := 0; y < 64; y++ {
			img.Set(x, y, color.RGBA{R: uint8(x * 4), G: uint8(y * 4), B: 128, A: 255})
		}
	}
	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		t.Fatal(err)
	}
	return buf.Bytes()
}

// upstream serves a valid PNG and counts hits; URLs are rewritten to
// include a signed-storage marker so they qualify for caching.
func upstream(t *testing.T, body []byte, status int) (*httptest.Server, *int) {
	t.Helper()
	hits := 0
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits++
		if status != http.StatusOK {
			w.WriteHeader(status)
			return
		}
		w.Header().Set("Content-Type", "image/png")
		w.Write(body)
	}))
	t.Cleanup(srv.Close)
	return srv, &hits
}

func signedURL(srv *httptest.Server, file string) string {
	return srv.URL + "/prod-files-secure/" + file
}

func TestMaterializeDownloadsOnceAndServesLocally(t *testing.T) {
	srv, hits := upstream(t, pngBytes(t), http.StatusOK)
	c := NewCache(t.TempDir(), zap.NewNop())

	src, blur := c.Materialize(context.Background(), "block-1", signedURL(srv, "a.png"))
	if src != ServePath+"/block-1" {
		t.Errorf("Materialize() src = %q, want local serving URL", src)
	}
	if !strings.HasPrefix(blur, "data:image/jpeg;base64,") {
		t.Errorf("Materialize() blur = %q, want inline jpeg data URL", blur)
	}

	src2, blur2 := c.Materialize(context.Background(), "block-1", signedURL(srv, "a.png"))
	if src2 != src || blur2 != blur {
		t.Errorf("second Materialize() = (%q, %q), want identical to first", src2, blur2)
	}
	if *hits != 1 {
		t.Errorf("upstream hit %d times, want 1; the cache must short-circuit", *hits)
	}
}

func TestMaterializeFallsBackOnFailure(t *testing.T) {
	srv, _ := upstream(t, nil, http.StatusInternalServerError)
	c := NewCache(t.TempDir(), zap.NewNop())

	remote := signedURL(srv, "broken.png")
	src, blur := c.Materialize(context.Background(), "block-2", remote)
	if src != remote || blur != "" {
		t.Errorf("Materialize() = (%q, %q), want untouched remote URL and no placeholder", src, blur)
	}
}

func TestMaterializeSkipsStableHosts(t *testing.T) {
	c := NewCache(t.TempDir(), zap.NewNop())
	remote := "https://cdn.example.com/logo.png"
	src, blur := c.Materialize(context.Background(), "block-3", remote)
	if src != remote || blur != "" {
		t.Errorf("Materialize() = (%q, %q), want stable host left alone", src, blur)
	}
}

func TestExtensionFor(t *testing.T) {
	tests := []struct {
		name        string
		contentType string
		url         string
		want        string
	}{
		{"content type wins", "image/webp", "https://x/file.png", ".webp"},
		{"url sniff", "application/octet-stream", "https://x/photo.jpeg?sig=abc", ".jpeg"},
		{"avif sniff", "", "https://x/pic.AVIF", ".avif"},
		{"unknown defaults to png", "text/plain", "https://x/file.bin", ".png"},
		{"no extension defaults to png", "", "https://x/file", ".png"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := extensionFor(tt.contentType, tt.url); got != tt.want {
				t.Errorf("extensionFor(%q, %q) = %q, want %q", tt.contentType, tt.url, got, tt.want)
			}
		})
	}
}

func TestLookupScansAnyKnownExtension(t *testing.T) {
	dir := t.TempDir()
	c := NewCache(dir, zap.NewNop())
	if err := os.WriteFile(filepath.Join(dir, "id-1.webp"), []byte("x"), 0o644); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(filepath.Join(dir, "id-1.blur"), []byte("data:"), 0o644); err != nil {
		t.Fatal(err)
	}

	path, contentType, ok := c.Lookup("id-1")
	if !ok || contentType != "image/webp" || filepath.Base(path) != "id-1.webp" {
		t.Errorf("Lookup() = (%q, %q, %v), want the webp variant", path, contentType, ok)
	}

	if _, _, ok := c.Lookup("missing"); ok {
		t.Error("Lookup(missing) = hit, want miss")
	}
}

func TestCacheImagesImmutableTransform(t *testing.T) {
	srv, _ := upstream(t, pngBytes(t), http.StatusOK)
	c := NewCache(t.TempDir(), zap.NewNop())

	remote := signedURL(srv, "pic.png")
	in := []notion.Block{
		{ID: "p1", Type: notion.BlockParagraph, Text: &notion.TextPayload{}},
		{
			ID:   "tg",
			Type: notion.BlockToggle,
			Text: &notion.TextPayload{},
			Children: []notion.Block{
				{ID: "img-1", Type: notion.BlockImage, File: &notion.FilePayload{URL: remote}},
			},
		},
	}

	out := c.CacheImages(context.Background(), in)

	if in[1].Children[0].File.URL != remote {
		t.Errorf("input tree mutated: URL became %q", in[1].Children[0].File.URL)
	}
	got := out[1].Children[0].File
	if got.URL != ServePath+"/img-1" {
		t.Errorf("output URL = %q, want local serving URL", got.URL)
	}
	if got.Blur == "" {
		t.Error("output blur placeholder empty, want data URL")
	}
	if out[0].ID != "p1" || out[1].ID != "tg" {
		t.Errorf("node order changed: %v", []string{out[0].ID, out[1].ID})
	}
}

func TestServeHandler(t *testing.T) {
	gin.SetMode(gin.TestMode)
	dir := t.TempDir()
	body := pngBytes(t)
	if err := os.WriteFile(filepath.Join(dir, "img-9.png"), body, 0o644); err != nil {
		t.Fatal(err)
	}
	c := NewCache(dir, zap.NewNop())

	r := gin.New()
	NewHandler(c).RegisterRoutes(r)

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, ServePath+"/img-9", nil))
	if w.Code != http.StatusOK {
		t.Fatalf("GET cached image status = %d, want 200", w.Code)
	}
	if cc := w.Header().Get("Cache-Control"); cc != "public, max-age=31536000, immutable" {
		t.Errorf("Cache-Control = %q, want immutable caching", cc)
	}
	if !bytes.Equal(w.Body.Bytes(), body) {
		t.Error("served bytes differ from cached file")
	}

	w = httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, ServePath+"/absent", nil))
	if w.Code != http.StatusNotFound {
		t.Errorf("GET missing image status = %d, want 404", w.Code)
	}
}
