package app

import (
	"context"
	"time"

	"go.uber.org/zap"

	pkgcron "github.com/notionpress/core/internal/pkg/cron"
)

// registerCronJobs schedules background maintenance. Snapshot warming
// runs at the post TTL cadence so expiry never lands on a request.
func (a *App) registerCronJobs() {
	log := a.logger.Named("cron")

	a.sched.Register(pkgcron.Job{
		Name:       "warm_content_snapshots",
		Interval:   a.cfg.PostTTL(),
		RunAtStart: true,
		Fn: func(ctx context.Context) error {
			ctx, cancel := context.WithTimeout(ctx, 2*time.Minute)
			defer cancel()
			if _, err := a.posts.All(ctx); err != nil {
				log.Warn("post snapshot warmup failed", zap.Error(err))
				return err
			}
			if _, err := a.authors.All(ctx); err != nil {
				log.Warn("author snapshot warmup failed", zap.Error(err))
				return err
			}
			return nil
		},
	})

	a.sched.Register(pkgcron.Job{
		Name:     "prune_link_previews",
		Interval: 24 * time.Hour,
		Fn: func(ctx context.Context) error {
			removed, err := a.previews.Prune(7 * a.cfg.PreviewTTL())
			if err != nil {
				return err
			}
			if removed > 0 {
				log.Info("pruned link preview cache", zap.Int("removed", removed))
			}
			return nil
		},
	})
}
