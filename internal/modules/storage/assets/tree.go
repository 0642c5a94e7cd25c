package assets

import (
	"context"

	"golang.org/x/sync/errgroup"

	"github.com/notionpress/core/internal/notion"
)

// CacheImages returns a copy of the block tree with every cacheable
// image rewritten to its local serving URL and annotated with a blur
// placeholder. The input tree is never modified; node order and shape
// are preserved exactly.
func (c *Cache) CacheImages(ctx context.Context, blocks []notion.Block) []notion.Block {
	if len(blocks) == 0 {
		return blocks
	}
	out := make([]notion.Block, len(blocks))
	copy(out, blocks)

	g, gctx := errgroup.WithContext(ctx)
	for i := range out {
		if out[i].Type == notion.BlockImage && out[i].File != nil && ShouldCache(out[i].File.URL) {
			file := *out[i].File
			out[i].File = &file
			id := out[i].ID
			g.Go(func() error {
				file.URL, file.Blur = c.Materialize(gctx, id, file.URL)
				return nil
			})
		}
		if len(out[i].Children) > 0 {
			out[i].Children = c.CacheImages(ctx, out[i].Children)
		}
	}
	g.Wait()
	return out
}
