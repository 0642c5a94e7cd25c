package linkpreview

import (
	"context"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"
	"go.uber.org/zap"

	"github.com/notionpress/core/internal/notion"
)

const (
	fetchTimeout = 5 * time.Second
	// maxHTMLBytes bounds how much of the target page is read; meta
	// tags live in the head, so the tail is never needed.
	maxHTMLBytes = 50_000

	userAgent = "Mozilla/5.0 (compatible; notionpress-bot/1.0)"
)

var previewClient = &http.Client{Timeout: fetchTimeout}

// fetchMetadata pulls the target page and extracts its Open Graph
// tags. Every failure returns empty metadata, never an error.
func (e *Enricher) fetchMetadata(ctx context.Context, target string) notion.LinkMetadata {
	ctx, cancel := context.WithTimeout(ctx, fetchTimeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, target, nil)
	if err != nil {
		return notion.LinkMetadata{}
	}
	req.Header.Set("User-Agent", userAgent)
	req.Header.Set("Accept", "text/html")

	resp, err := previewClient.Do(req)
	if err != nil {
		e.log.Debug("preview fetch failed", zap.String("url", target), zap.Error(err))
		return notion.LinkMetadata{}
	}
	defer resp.Body.Close()
	if resp.StatusCode >= 400 {
		return notion.LinkMetadata{}
	}
	return extract(io.LimitReader(resp.Body, maxHTMLBytes), target)
}

// extract parses meta tags tolerantly; malformed HTML yields whatever
// tags could be read, never a failure.
func extract(r io.Reader, target string) notion.LinkMetadata {
	doc, err := goquery.NewDocumentFromReader(r)
	if err != nil {
		return notion.LinkMetadata{}
	}

	metaContent := func(selectors ...string) string {
		for _, sel := range selectors {
			if v, ok := doc.Find(sel).First().Attr("content"); ok && strings.TrimSpace(v) != "" {
				return strings.TrimSpace(v)
			}
		}
		return ""
	}

	meta := notion.LinkMetadata{
		Title:       metaContent(`meta[property="og:title"]`),
		Description: metaContent(`meta[property="og:description"]`, `meta[name="description"]`),
		Image:       metaContent(`meta[property="og:image"]`),
		SiteName:    metaContent(`meta[property="og:site_name"]`),
	}
	if meta.Title == "" {
		meta.Title = strings.TrimSpace(doc.Find("title").First().Text())
	}

	favicon := ""
	for _, sel := range []string{`link[rel="icon"]`, `link[rel="shortcut icon"]`, `link[rel="apple-touch-icon"]`} {
		if v, ok := doc.Find(sel).First().Attr("href"); ok && strings.TrimSpace(v) != "" {
			favicon = strings.TrimSpace(v)
			break
		}
	}
	meta.Favicon = resolveFavicon(favicon, target)
	return meta
}

// resolveFavicon makes relative icon paths absolute against the target
// origin, defaulting to the conventional /favicon.ico.
func resolveFavicon(favicon, target string) string {
	base, err := url.Parse(target)
	if err != nil {
		return favicon
	}
	if favicon == "" {
		return base.Scheme + "://" + base.Host + "/favicon.ico"
	}
	ref, err := url.Parse(favicon)
	if err != nil {
		return favicon
	}
	return base.ResolveReference(ref).String()
}
