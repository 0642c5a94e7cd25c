package author

import (
	"context"
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

// ImageStore pins a remote image locally; see the post module.
type ImageStore interface {
	Materialize(ctx context.Context, id, url string) (src, blur string)
}

// Service caches the authors data source. Authors change rarely but
// resolve on every post listing, so the TTL is short enough to pick up
// edits and long enough to keep listings cheap.
type Service struct {
	source       RecordSource
	dataSourceID string
	images       ImageStore
	store        *memocache.Store[[]models.Author]
	log          *zap.Logger
}

func NewService(source RecordSource, dataSourceID string, images ImageStore, ttl time.Duration, clock memocache.Clock, log *zap.Logger) *Service {
	return &Service{
		source:       source,
		dataSourceID: dataSourceID,
		images:       images,
		store:        memocache.New[[]models.Author](ttl, clock),
		log:          log.Named("author"),
	}
}

// All returns every author. An unconfigured authors source yields an
// empty list, not an error.
func (s *Service) All(ctx context.Context) ([]models.Author, error) {
	if s.dataSourceID == "" {
		return nil, nil
	}
	return s.store.GetOrRefresh(ctx, s.fetchAll)
}

// Invalidate discards the snapshot so the next read refetches.
func (s *Service) Invalidate() {
	s.store.Invalidate()
}

func (s *Service) fetchAll(ctx context.Context) ([]models.Author, error) {
	var authors []models.Author
	cursor := ""
	for {
		page, err := s.source.QueryDataSource(ctx, s.dataSourceID, cursor)
		if err != nil {
			return nil, err
		}
		for _, rec := range page.Results {
			authors = append(authors, Normalize(rec))
		}
		if !page.HasMore || page.NextCursor == "" {
			break
		}
		cursor = page.NextCursor
	}
	s.materializeAvatars(ctx, authors)
	s.log.Debug("authors refreshed", zap.Int("count", len(authors)))
	return authors, nil
}

func (s *Service) materializeAvatars(ctx context.Context, authors []models.Author) {
	if s.images == nil {
		return
	}
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(4)
	for i := range authors {
		if authors[i].Avatar == "" {
			continue
		}
		i := i
		g.Go(func() error {
			src, _ := s.images.Materialize(gctx, authors[i].ID, authors[i].Avatar)
			authors[i].Avatar = src
			return nil
		})
	}
	g.Wait()
}

// Resolve finds the author a post is attributed to. A source identifier
// match wins over a display name match, so renamed accounts still
// resolve to the right profile.
func (s *Service) Resolve(ctx context.Context, peopleIDs []string, name string) (models.Author, bool, error) {
	authors, err := s.All(ctx)
	if err != nil {
		return models.Author{}, false, err
	}
	for _, a := range authors {
		for _, want := range peopleIDs {
			for _, id := range a.PeopleIDs {
				if id == want {
					return a, true, nil
				}
			}
		}
	}
	for _, a := range authors {
		if a.Name != "" && strings.EqualFold(a.Name, name) {
			return a, true, nil
		}
	}
	return models.Author{}, false, nil
}

// ByName finds one author by display name, case-insensitively.
func (s *Service) ByName(ctx context.Context, name string) (models.Author, bool, error) {
	authors, err := s.All(ctx)
	if err != nil {
		return models.Author{}, false, err
	}
	for _, a := range authors {
		if strings.EqualFold(a.Name, name) {
			return a, true, nil
		}
	}
	return models.Author{}, false, nil
}

// SummaryMap keys compact author views by display name and by every
// source person identifier, so feed consumers can resolve either form
// of attribution with one map.
func (s *Service) SummaryMap(ctx context.Context) (map[string]models.AuthorSummary, error) {
	authors, err := s.All(ctx)
	if err != nil {
		return nil, err
	}
	out := make(map[string]models.AuthorSummary, len(authors))
	for _, a := range authors {
		summary := models.AuthorSummary{Name: a.Name, Avatar: a.Avatar}
		out[a.Name] = summary
		for _, id := range a.PeopleIDs {
			out[id] = summary
		}
	}
	return out, nil
}
