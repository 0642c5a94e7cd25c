// Package detail assembles full page responses: it is the only place
// where the repository, the block tree resolver, the enrichment passes
// and the renderer meet.
package detail

import (
	"context"
	"strings"

	"go.uber.org/zap"

	"github.com/notionpress/core/internal/models"
	"github.com/notionpress/core/internal/modules/content/author"
	"github.com/notionpress/core/internal/modules/content/post"
	"github.com/notionpress/core/internal/notion"
)

// wordsPerMinute drives the reading time estimate.
const wordsPerMinute = 200

// BlockResolver turns a page id into its resolved block tree.
type BlockResolver interface {
	Resolve(ctx context.Context, pageID string) ([]notion.Block, error)
}

// TreePass is one enrichment step over a resolved tree. Passes return
// a new tree and never modify their input.
type TreePass interface {
	Apply(ctx context.Context, blocks []notion.Block) []notion.Block
}

// TreePassFunc adapts a plain function to TreePass.
type TreePassFunc func(ctx context.Context, blocks []notion.Block) []notion.Block

func (f TreePassFunc) Apply(ctx context.Context, blocks []notion.Block) []notion.Block {
	return f(ctx, blocks)
}

// Markup renders a finished tree to HTML.
type Markup interface {
	Render(blocks []notion.Block) string
}

// PostDetail is the full response for one post page.
type PostDetail struct {
	Post        models.Post    `json:"post"`
	Author      *models.Author `json:"author,omitempty"`
	HTML        string         `json:"html"`
	WordCount   int            `json:"word_count"`
	ReadingTime int            `json:"reading_time"`
	Related     []models.Post  `json:"related"`
	Series      []models.Post  `json:"series,omitempty"`
}

// PageDetail is the response for one standalone page.
type PageDetail struct {
	Page models.Post `json:"page"`
	HTML string      `json:"html"`
}

// FeedData carries the aggregates feed pages need alongside the posts.
type FeedData struct {
	Posts   []models.Post                   `json:"posts"`
	Tags    []post.NameCount                `json:"tags"`
	Authors map[string]models.AuthorSummary `json:"authors"`
}

type Service struct {
	posts    *post.Service
	authors  *author.Service
	resolver BlockResolver
	passes   []TreePass
	markup   Markup
	log      *zap.Logger
}

func NewService(posts *post.Service, authors *author.Service, resolver BlockResolver, markup Markup, log *zap.Logger, passes ...TreePass) *Service {
	return &Service{
		posts:    posts,
		authors:  authors,
		resolver: resolver,
		passes:   passes,
		markup:   markup,
		log:      log.Named("detail"),
	}
}

// Post assembles the detail response for a post slug. A missing slug
// returns (nil, nil); pipeline errors after the lookup degrade to what
// could be built rather than failing the page.
func (s *Service) Post(ctx context.Context, slug string) (*PostDetail, error) {
	published, err := s.posts.Published(ctx)
	if err != nil {
		return nil, err
	}
	var found *models.Post
	for i := range published {
		if published[i].Slug == slug {
			found = &published[i]
			break
		}
	}
	if found == nil {
		return nil, nil
	}

	blocks, html := s.renderPage(ctx, found.ID)
	words := countWords(blocks)

	d := &PostDetail{
		Post:        *found,
		HTML:        html,
		WordCount:   words,
		ReadingTime: readingTime(words),
	}
	if a, ok, err := s.authors.Resolve(ctx, found.AuthorIDs, found.Author); err == nil && ok {
		d.Author = &a
	}
	if related, err := s.posts.Related(ctx, *found); err == nil {
		d.Related = related
	}
	if series, err := s.posts.Series(ctx, *found); err == nil {
		d.Series = series
	}
	return d, nil
}

// Page assembles the response for a standalone page slug. A missing
// slug returns (nil, nil).
func (s *Service) Page(ctx context.Context, slug string) (*PageDetail, error) {
	pages, err := s.posts.Pages(ctx)
	if err != nil {
		return nil, err
	}
	for i := range pages {
		if pages[i].Slug == slug {
			_, html := s.renderPage(ctx, pages[i].ID)
			return &PageDetail{Page: pages[i], HTML: html}, nil
		}
	}
	return nil, nil
}

// Feed bundles the public post list with tag aggregates and the author
// lookup map.
func (s *Service) Feed(ctx context.Context) (*FeedData, error) {
	posts, err := s.posts.PublicOnly(ctx)
	if err != nil {
		return nil, err
	}
	tags, err := s.posts.Tags(ctx)
	if err != nil {
		return nil, err
	}
	authors, err := s.authors.SummaryMap(ctx)
	if err != nil {
		s.log.Warn("author map degraded to empty", zap.Error(err))
		authors = map[string]models.AuthorSummary{}
	}
	return &FeedData{Posts: posts, Tags: tags, Authors: authors}, nil
}

// renderPage runs the resolve-enrich-render pipeline for one page id.
// Resolution failure yields empty markup, never an error.
func (s *Service) renderPage(ctx context.Context, pageID string) ([]notion.Block, string) {
	blocks, err := s.resolver.Resolve(ctx, pageID)
	if err != nil {
		s.log.Error("block resolution failed", zap.String("page", pageID), zap.Error(err))
		return nil, ""
	}
	for _, pass := range s.passes {
		blocks = pass.Apply(ctx, blocks)
	}
	return blocks, s.markup.Render(blocks)
}

// countWords totals whitespace-separated words across every rich text
// run in the tree, including table cells.
func countWords(blocks []notion.Block) int {
	total := 0
	for i := range blocks {
		total += len(strings.Fields(notion.PlainText(blocks[i].RichTextRuns())))
		if blocks[i].TableRow != nil {
			for _, cell := range blocks[i].TableRow.Cells {
				total += len(strings.Fields(notion.PlainText(cell)))
			}
		}
		total += countWords(blocks[i].Children)
	}
	return total
}

// readingTime rounds the estimate up and never reports zero minutes.
func readingTime(words int) int {
	minutes := (words + wordsPerMinute - 1) / wordsPerMinute
	if minutes < 1 {
		return 1
	}
	return minutes
}
