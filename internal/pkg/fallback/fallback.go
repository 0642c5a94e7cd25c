// Package fallback implements the safe-query convention: every content
// read used on a render path goes through Run, which substitutes a
// caller-supplied default on any error and logs the failure instead of
// surfacing it to the end user.
package fallback

import (
	"context"

	"go.uber.org/zap"
)

// Run invokes fn and returns its value, or def when fn fails. The error
// is logged at Warn level with the given operation name.
func Run[T any](ctx context.Context, log *zap.Logger, op string, def T, fn func(ctx context.Context) (T, error)) T {
	v, err := fn(ctx)
	if err != nil {
		if log != nil {
			log.Warn("degraded to fallback", zap.String("op", op), zap.Error(err))
		}
		return def
	}
	return v
}
