// Package resolver turns a page identifier into a fully populated
// block tree. The source API only returns one level of children per
// call, so nested content is fetched recursively with a shared
// concurrency cap to stay inside upstream rate limits.
package resolver

import (
	"context"
	"sync"

	"go.uber.org/zap"
	"golang.org/x/sync/semaphore"

	"github.com/notionpress/core/internal/notion"
)

// BlockSource pages through the direct children of one block.
type BlockSource interface {
	BlockChildren(ctx context.Context, blockID, cursor string) (*notion.BlockPage, error)
}

// DefaultConcurrency caps in-flight children fetches across one whole
// resolution, not per level.
const DefaultConcurrency = 3

// Resolver fetches block trees depth-first with bounded fan-out.
type Resolver struct {
	source BlockSource
	sem    *semaphore.Weighted
	log    *zap.Logger
}

func New(source BlockSource, concurrency int64, log *zap.Logger) *Resolver {
	if concurrency <= 0 {
		concurrency = DefaultConcurrency
	}
	return &Resolver{
		source: source,
		sem:    semaphore.NewWeighted(concurrency),
		log:    log.Named("resolver"),
	}
}

// Resolve returns the complete block tree of a page. A failure at the
// top level is an error; a failure inside a nested subtree degrades
// that subtree to empty children so one broken branch cannot take the
// whole page down.
func (r *Resolver) Resolve(ctx context.Context, pageID string) ([]notion.Block, error) {
	blocks, err := r.children(ctx, pageID)
	if err != nil {
		return nil, err
	}
	r.resolveNested(ctx, blocks)
	return blocks, nil
}

// resolveNested fills in Children for every block flagged as having
// descendants. Each worker writes only to its own index, so sibling
// order survives concurrent resolution.
func (r *Resolver) resolveNested(ctx context.Context, blocks []notion.Block) {
	var wg sync.WaitGroup
	for i := range blocks {
		if !blocks[i].HasChildren {
			continue
		}
		i := i
		wg.Add(1)
		go func() {
			defer wg.Done()
			children, err := r.children(ctx, blocks[i].ID)
			if err != nil {
				r.log.Error("subtree resolution failed",
					zap.String("block", blocks[i].ID),
					zap.String("type", string(blocks[i].Type)),
					zap.Error(err))
				blocks[i].Children = []notion.Block{}
				return
			}
			r.resolveNested(ctx, children)
			blocks[i].Children = children
		}()
	}
	wg.Wait()
}

// children collects every page of a block's direct children. The
// semaphore is held per request, not across recursion, so deep trees
// cannot deadlock the pool.
func (r *Resolver) children(ctx context.Context, blockID string) ([]notion.Block, error) {
	blocks := make([]notion.Block, 0, 8)
	cursor := ""
	for {
		if err := r.sem.Acquire(ctx, 1); err != nil {
			return nil, err
		}
		page, err := r.source.BlockChildren(ctx, blockID, cursor)
		r.sem.Release(1)
		if err != nil {
			return nil, err
		}
		blocks = append(blocks, page.Results...)
		if !page.HasMore || page.NextCursor == "" {
			return blocks, nil
		}
		cursor = page.NextCursor
	}
}
