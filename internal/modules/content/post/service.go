package post

import (
	"context"
	"sort"
	"strings"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/notionpress/core/internal/models"
	"github.com/notionpress/core/internal/notion"
	"github.com/notionpress/core/internal/pkg/memocache"
)

// RecordSource pages through the raw records of one data source.
type RecordSource interface {
	QueryDataSource(ctx context.Context, dataSourceID, cursor string) (*notion.RecordPage, error)
}

// ImageStore pins a remote image to local storage and returns the URL
// to serve plus a blur placeholder. Ineligible or failed downloads
// return the remote URL unchanged with an empty placeholder.
type ImageStore interface {
	Materialize(ctx context.Context, id, url string) (src, blur string)
}

// RelatedLimit caps the number of related posts attached to a detail
// response.
const RelatedLimit = 3

// SearchLimit caps search results.
const SearchLimit = 10

// Service is the post repository. It fetches the full record set from
// the source, normalizes it, and serves every read from one cached
// snapshot so a burst of requests costs one upstream round trip.
type Service struct {
	source       RecordSource
	dataSourceID string
	images       ImageStore
	store        *memocache.Store[[]models.Post]
	log          *zap.Logger
}

func NewService(source RecordSource, dataSourceID string, images ImageStore, ttl time.Duration, clock memocache.Clock, log *zap.Logger) *Service {
	return &Service{
		source:       source,
		dataSourceID: dataSourceID,
		images:       images,
		store:        memocache.New[[]models.Post](ttl, clock),
		log:          log.Named("post"),
	}
}

// All returns the normalized record set, refreshing the snapshot when
// stale. On refresh failure a stale snapshot is returned with the
// error so callers can keep serving.
func (s *Service) All(ctx context.Context) ([]models.Post, error) {
	return s.store.GetOrRefresh(ctx, s.fetchAll)
}

// Invalidate discards the snapshot so the next read refetches.
func (s *Service) Invalidate() {
	s.store.Invalidate()
}

func (s *Service) fetchAll(ctx context.Context) ([]models.Post, error) {
	var posts []models.Post
	cursor := ""
	for {
		page, err := s.source.QueryDataSource(ctx, s.dataSourceID, cursor)
		if err != nil {
			return nil, err
		}
		for _, rec := range page.Results {
			posts = append(posts, Normalize(rec))
		}
		if !page.HasMore || page.NextCursor == "" {
			break
		}
		cursor = page.NextCursor
	}
	s.materializeThumbnails(ctx, posts)
	s.log.Debug("record set refreshed", zap.Int("count", len(posts)))
	return posts, nil
}

// materializeThumbnails rewrites expiring cover URLs to locally pinned
// copies and fills in blur placeholders. Workers write to disjoint
// indexes, never to shared slices.
func (s *Service) materializeThumbnails(ctx context.Context, posts []models.Post) {
	if s.images == nil {
		return
	}
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(4)
	for i := range posts {
		if posts[i].Thumbnail == "" {
			continue
		}
		i := i
		g.Go(func() error {
			src, blur := s.images.Materialize(gctx, posts[i].ID, posts[i].Thumbnail)
			posts[i].Thumbnail = src
			posts[i].BlurDataURL = blur
			return nil
		})
	}
	g.Wait()
}

// Published returns posts visible on detail pages, newest first.
// Standalone pages are excluded.
func (s *Service) Published(ctx context.Context) ([]models.Post, error) {
	all, err := s.All(ctx)
	if err != nil && all == nil {
		return nil, err
	}
	return sortByDateDesc(filter(all, func(p models.Post) bool {
		return p.Type == models.TypePost && p.VisibleOnDetail()
	})), nil
}

// PublicOnly returns strictly public posts, newest first. This drives
// feeds and listings, where PublicOnDetail posts must not appear.
func (s *Service) PublicOnly(ctx context.Context) ([]models.Post, error) {
	all, err := s.All(ctx)
	if err != nil && all == nil {
		return nil, err
	}
	return sortByDateDesc(filter(all, func(p models.Post) bool {
		return p.Type == models.TypePost && p.Status == models.StatusPublic
	})), nil
}

// Pages returns detail-visible standalone pages.
func (s *Service) Pages(ctx context.Context) ([]models.Post, error) {
	all, err := s.All(ctx)
	if err != nil && all == nil {
		return nil, err
	}
	return filter(all, func(p models.Post) bool {
		return p.Type == models.TypePage && p.VisibleOnDetail()
	}), nil
}

// BySlug resolves one detail-visible post or page by slug. Posts win
// over pages on a slug collision.
func (s *Service) BySlug(ctx context.Context, slug string) (models.Post, bool, error) {
	published, err := s.Published(ctx)
	if err != nil {
		return models.Post{}, false, err
	}
	for _, p := range published {
		if p.Slug == slug {
			return p, true, nil
		}
	}
	pages, err := s.Pages(ctx)
	if err != nil {
		return models.Post{}, false, err
	}
	for _, p := range pages {
		if p.Slug == slug {
			return p, true, nil
		}
	}
	return models.Post{}, false, nil
}

// ByCategory returns strictly public posts in the named category,
// matched case-insensitively.
func (s *Service) ByCategory(ctx context.Context, category string) ([]models.Post, error) {
	posts, err := s.PublicOnly(ctx)
	if err != nil {
		return nil, err
	}
	return filter(posts, func(p models.Post) bool {
		return strings.EqualFold(p.Category, category)
	}), nil
}

// ByTag returns strictly public posts carrying the named tag, matched
// case-insensitively.
func (s *Service) ByTag(ctx context.Context, tag string) ([]models.Post, error) {
	posts, err := s.PublicOnly(ctx)
	if err != nil {
		return nil, err
	}
	return filter(posts, func(p models.Post) bool {
		for _, t := range p.Tags {
			if strings.EqualFold(t, tag) {
				return true
			}
		}
		return false
	}), nil
}

// ByAuthor returns strictly public posts attributed to the author,
// matched by source identifier first and display name second.
func (s *Service) ByAuthor(ctx context.Context, author models.Author) ([]models.Post, error) {
	posts, err := s.PublicOnly(ctx)
	if err != nil {
		return nil, err
	}
	ids := make(map[string]bool, len(author.PeopleIDs))
	for _, id := range author.PeopleIDs {
		ids[id] = true
	}
	return filter(posts, func(p models.Post) bool {
		for _, id := range p.AuthorIDs {
			if ids[id] {
				return true
			}
		}
		return author.Name != "" && strings.Contains(strings.ToLower(p.Author), strings.ToLower(author.Name))
	}), nil
}

// Series returns every published post in the same series as p, oldest
// first so the reader can follow the arc in order.
func (s *Service) Series(ctx context.Context, p models.Post) ([]models.Post, error) {
	if p.Series == "" {
		return nil, nil
	}
	published, err := s.Published(ctx)
	if err != nil {
		return nil, err
	}
	in := filter(published, func(q models.Post) bool {
		return q.Series == p.Series
	})
	sort.SliceStable(in, func(i, j int) bool {
		return in[i].Date < in[j].Date
	})
	return in, nil
}

// Related returns up to RelatedLimit other public posts sharing p's
// category, newest first.
func (s *Service) Related(ctx context.Context, p models.Post) ([]models.Post, error) {
	if p.Category == "" {
		return nil, nil
	}
	posts, err := s.ByCategory(ctx, p.Category)
	if err != nil {
		return nil, err
	}
	related := filter(posts, func(q models.Post) bool {
		return q.ID != p.ID
	})
	if len(related) > RelatedLimit {
		related = related[:RelatedLimit]
	}
	return related, nil
}

// Search matches strictly public posts against q across title, summary,
// tags and category, case-insensitively. Queries shorter than two
// characters return nothing.
func (s *Service) Search(ctx context.Context, q string) ([]models.Post, error) {
	q = strings.ToLower(strings.TrimSpace(q))
	if len(q) < 2 {
		return nil, nil
	}
	posts, err := s.PublicOnly(ctx)
	if err != nil {
		return nil, err
	}
	hits := filter(posts, func(p models.Post) bool {
		if strings.Contains(strings.ToLower(p.Title), q) ||
			strings.Contains(strings.ToLower(p.Summary), q) ||
			strings.Contains(strings.ToLower(p.Category), q) {
			return true
		}
		for _, t := range p.Tags {
			if strings.Contains(strings.ToLower(t), q) {
				return true
			}
		}
		return false
	})
	if len(hits) > SearchLimit {
		hits = hits[:SearchLimit]
	}
	return hits, nil
}

// NameCount is one aggregate bucket for category and tag listings.
type NameCount struct {
	Name  string `json:"name"`
	Count int    `json:"count"`
}

// Categories aggregates strictly public posts by category, most used
// first.
func (s *Service) Categories(ctx context.Context) ([]NameCount, error) {
	posts, err := s.PublicOnly(ctx)
	if err != nil {
		return nil, err
	}
	return countBy(posts, func(p models.Post) []string {
		if p.Category == "" {
			return nil
		}
		return []string{p.Category}
	}), nil
}

// Tags aggregates strictly public posts by tag, most used first.
func (s *Service) Tags(ctx context.Context) ([]NameCount, error) {
	posts, err := s.PublicOnly(ctx)
	if err != nil {
		return nil, err
	}
	return countBy(posts, func(p models.Post) []string {
		return p.Tags
	}), nil
}

func filter(posts []models.Post, keep func(models.Post) bool) []models.Post {
	out := make([]models.Post, 0, len(posts))
	for _, p := range posts {
		if keep(p) {
			out = append(out, p)
		}
	}
	return out
}

// sortByDateDesc orders newest first. Records without a date sink to
// the end; ties keep source order.
func sortByDateDesc(posts []models.Post) []models.Post {
	sort.SliceStable(posts, func(i, j int) bool {
		a, b := posts[i].Date, posts[j].Date
		if a == "" {
			return false
		}
		if b == "" {
			return true
		}
		return a > b
	})
	return posts
}

func countBy(posts []models.Post, keys func(models.Post) []string) []NameCount {
	counts := map[string]int{}
	order := []string{}
	for _, p := range posts {
		for _, k := range keys(p) {
			if counts[k] == 0 {
				order = append(order, k)
			}
			counts[k]++
		}
	}
	out := make([]NameCount, 0, len(order))
	for _, k := range order {
		out = append(out, NameCount{Name: k, Count: counts[k]})
	}
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].Count > out[j].Count
	})
	return out
}
