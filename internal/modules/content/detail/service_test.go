package detail

import (
	"context"
	"testing"
	"time"

	"go.uber.org/zap"

	"github.com/notionpress/core/internal/modules/content/author"
	"github.com/notionpress/core/internal/modules/content/post"
	"github.com/notionpress/core/internal/notion"
)

type fakeRecords struct {
	recs []notion.Record
}

func (f *fakeRecords) QueryDataSource(ctx context.Context, dataSourceID, cursor string) (*notion.RecordPage, error) {
	return &notion.RecordPage{Results: f.recs}, nil
}

type fakeResolver struct {
	blocks []notion.Block
	err    error
	lastID string
}

func (f *fakeResolver) Resolve(ctx context.Context, pageID string) ([]notion.Block, error) {
	f.lastID = pageID
	return f.blocks, f.err
}

type fakeMarkup struct{}

func (fakeMarkup) Render(blocks []notion.Block) string {
	if len(blocks) == 0 {
		return ""
	}
	return "<html>"
}

func raw(s string) []byte { return []byte(s) }

func postRecord(id, slug, status, typ string) notion.Record {
	return notion.Record{
		ID: id,
		Properties: notion.Properties{
			"title":  raw(`{"type":"title","title":[{"type":"text","plain_text":"` + slug + `","annotations":{}}]}`),
			"slug":   raw(`{"type":"rich_text","rich_text":[{"type":"text","plain_text":"` + slug + `","annotations":{}}]}`),
			"status": raw(`{"type":"select","select":{"name":"` + status + `"}}`),
			"type":   raw(`{"type":"select","select":{"name":"` + typ + `"}}`),
			"date":   raw(`{"type":"date","date":{"start":"2025-01-01"}}`),
		},
	}
}

func textBlock(words string) notion.Block {
	return notion.Block{
		ID:   "p",
		Type: notion.BlockParagraph,
		Text: &notion.TextPayload{RichText: []notion.RichText{{Type: "text", PlainText: words}}},
	}
}

func newFixture(recs []notion.Record, r *fakeResolver, passes ...TreePass) *Service {
	log := zap.NewNop()
	posts := post.NewService(&fakeRecords{recs: recs}, "ds", nil, time.Hour, nil, log)
	authors := author.NewService(&fakeRecords{}, "", nil, time.Hour, nil, log)
	return NewService(posts, authors, r, fakeMarkup{}, log, passes...)
}

func TestPostDetailAssembly(t *testing.T) {
	r := &fakeResolver{blocks: []notion.Block{textBlock("one two three")}}
	svc := newFixture([]notion.Record{
		postRecord("id-1", "hello", "Public", "Post"),
		postRecord("id-2", "hidden", "PublicOnDetail", "Post"),
	}, r)

	d, err := svc.Post(context.Background(), "hello")
	if err != nil {
		t.Fatalf("Post() error = %v", err)
	}
	if d == nil {
		t.Fatal("Post() = nil, want detail")
	}
	if d.Post.ID != "id-1" || r.lastID != "id-1" {
		t.Errorf("resolved page %q for post %q, want id-1", r.lastID, d.Post.ID)
	}
	if d.HTML != "<html>" {
		t.Errorf("HTML = %q, want rendered markup", d.HTML)
	}
	if d.WordCount != 3 || d.ReadingTime != 1 {
		t.Errorf("words/time = %d/%d, want 3/1", d.WordCount, d.ReadingTime)
	}

	// Detail-only posts are reachable by slug even though feeds skip them.
	d, err = svc.Post(context.Background(), "hidden")
	if err != nil || d == nil {
		t.Fatalf("Post(hidden) = %v, %v, want detail-visible post found", d, err)
	}
}

func TestPostDetailNotFound(t *testing.T) {
	svc := newFixture([]notion.Record{
		postRecord("id-1", "draft-one", "Draft", "Post"),
	}, &fakeResolver{})

	d, err := svc.Post(context.Background(), "draft-one")
	if err != nil {
		t.Fatal(err)
	}
	if d != nil {
		t.Errorf("Post(draft slug) = %+v, want nil for invisible post", d)
	}
}

func TestPostDetailResolutionFailureDegrades(t *testing.T) {
	r := &fakeResolver{err: context.DeadlineExceeded}
	svc := newFixture([]notion.Record{postRecord("id-1", "hello", "Public", "Post")}, r)

	d, err := svc.Post(context.Background(), "hello")
	if err != nil {
		t.Fatalf("Post() error = %v, want resolution failure contained", err)
	}
	if d == nil || d.HTML != "" {
		t.Errorf("Post() = %+v, want detail with empty markup", d)
	}
	if d.ReadingTime != 1 {
		t.Errorf("ReadingTime = %d, want floor of 1", d.ReadingTime)
	}
}

func TestTreePassesRunInOrder(t *testing.T) {
	var order []string
	pass := func(name string) TreePass {
		return TreePassFunc(func(ctx context.Context, blocks []notion.Block) []notion.Block {
			order = append(order, name)
			return blocks
		})
	}
	r := &fakeResolver{blocks: []notion.Block{textBlock("x")}}
	svc := newFixture([]notion.Record{postRecord("id-1", "hello", "Public", "Post")}, r,
		pass("assets"), pass("previews"))

	if _, err := svc.Post(context.Background(), "hello"); err != nil {
		t.Fatal(err)
	}
	if len(order) != 2 || order[0] != "assets" || order[1] != "previews" {
		t.Errorf("pass order = %v, want [assets previews]", order)
	}
}

func TestPageDetail(t *testing.T) {
	r := &fakeResolver{blocks: []notion.Block{textBlock("about us")}}
	svc := newFixture([]notion.Record{
		postRecord("pg-1", "about", "Public", "Page"),
		postRecord("id-1", "hello", "Public", "Post"),
	}, r)

	d, err := svc.Page(context.Background(), "about")
	if err != nil || d == nil {
		t.Fatalf("Page() = %v, %v", d, err)
	}
	if d.Page.ID != "pg-1" || d.HTML != "<html>" {
		t.Errorf("Page() = %+v", d)
	}

	if d, _ := svc.Page(context.Background(), "hello"); d != nil {
		t.Error("Page(post slug) found a page, want nil")
	}
}

func TestReadingTime(t *testing.T) {
	tests := []struct {
		words int
		want  int
	}{
		{0, 1}, {1, 1}, {200, 1}, {201, 2}, {1000, 5}, {1001, 6},
	}
	for _, tt := range tests {
		if got := readingTime(tt.words); got != tt.want {
			t.Errorf("readingTime(%d) = %d, want %d", tt.words, got, tt.want)
		}
	}
}

func TestCountWordsIncludesNestedAndTables(t *testing.T) {
	table := notion.Block{
		ID:    "t",
		Type:  notion.BlockTable,
		Table: &notion.TablePayload{},
		Children: []notion.Block{
			{
				ID:   "r",
				Type: notion.BlockTableRow,
				TableRow: &notion.TableRowPayload{Cells: [][]notion.RichText{
					{{Type: "text", PlainText: "cell one"}},
					{{Type: "text", PlainText: "two"}},
				}},
			},
		},
	}
	parent := textBlock("top level")
	parent.Children = []notion.Block{textBlock("nested words here")}

	if got := countWords([]notion.Block{parent, table}); got != 8 {
		t.Errorf("countWords() = %d, want 8", got)
	}
}

func TestFeedBundlesAggregates(t *testing.T) {
	svc := newFixture([]notion.Record{
		postRecord("id-1", "hello", "Public", "Post"),
		postRecord("id-2", "hidden", "PublicOnDetail", "Post"),
	}, &fakeResolver{})

	feed, err := svc.Feed(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	if len(feed.Posts) != 1 {
		t.Errorf("feed posts = %d, want strictly public only", len(feed.Posts))
	}
	if feed.Authors == nil {
		t.Error("feed authors map = nil, want empty map at minimum")
	}
}
