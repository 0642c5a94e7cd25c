package linkpreview

import (
	"context"

	"golang.org/x/sync/errgroup"

	"github.com/notionpress/core/internal/notion"
)

// Enrich returns a copy of the block tree with preview metadata
// attached to every bookmark and link_preview node. The input tree is
// never modified; node order and shape are preserved exactly.
func (e *Enricher) Enrich(ctx context.Context, blocks []notion.Block) []notion.Block {
	if len(blocks) == 0 {
		return blocks
	}
	out := make([]notion.Block, len(blocks))
	copy(out, blocks)

	g, gctx := errgroup.WithContext(ctx)
	for i := range out {
		isLink := out[i].Type == notion.BlockBookmark || out[i].Type == notion.BlockLinkPreview
		if isLink && out[i].Link != nil && out[i].Link.URL != "" {
			meta := &notion.LinkMetadata{}
			out[i].LinkMeta = meta
			url := out[i].Link.URL
			g.Go(func() error {
				*meta = e.Get(gctx, url)
				return nil
			})
		}
		if len(out[i].Children) > 0 {
			out[i].Children = e.Enrich(ctx, out[i].Children)
		}
	}
	g.Wait()
	return out
}
