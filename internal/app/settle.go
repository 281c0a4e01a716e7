/**
 * @description
 * This file implements the best-effort fan-out used by the profile aggregator.
 * Each read is an independent failure domain: its outcome is captured in a
 * Settled value and collapsed to a safe default, so one failed join never
 * fails the whole view.
 *
 * @dependencies
 * - golang.org/x/sync/errgroup: Bounded goroutine group with a join barrier.
 * - go.uber.org/zap: Debug logging of absorbed failures.
 */
package app

import (
	"context"
	"errors"
	"fmt"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/helparo/admin-service/internal/store"
)

// Settled is the outcome of one read: either a value or the error that replaced it.
type Settled[T any] struct {
	Value T
	Err   error
}

// Or returns the value, or def when the read failed.
func (s Settled[T]) Or(def T) T {
	if s.Err != nil {
		return def
	}
	return s.Value
}

// List collapses a failed or nil list read to an empty, non-nil slice.
func List[T any](s Settled[[]T]) []T {
	v := s.Or(nil)
	if v == nil {
		return []T{}
	}
	return v
}

// Single collapses a failed singleton read to nil. A missing row is not a failure.
func Single[T any](s Settled[*T]) *T {
	return s.Or(nil)
}

// fanOut schedules settled reads on a bounded group. Every branch returns nil so the
// group never short-circuits; Wait is a pure barrier.
type fanOut struct {
	ctx    context.Context
	group  *errgroup.Group
	logger *zap.Logger
	userID string
}

func newFanOut(ctx context.Context, limit int, logger *zap.Logger, userID string) *fanOut {
	g := new(errgroup.Group)
	if limit > 0 {
		g.SetLimit(limit)
	}
	return &fanOut{ctx: ctx, group: g, logger: logger, userID: userID}
}

// settle runs fn on the fan-out and stores its outcome in out. A panic inside fn is
// recovered and recorded as the branch's error.
func settle[T any](f *fanOut, source string, out *Settled[T], fn func(ctx context.Context) (T, error)) {
	f.group.Go(func() (err error) {
		defer func() {
			if r := recover(); r != nil {
				out.Err = fmt.Errorf("%s: panic: %v", source, r)
			}
			if out.Err != nil && !errors.Is(out.Err, store.ErrNotFound) {
				f.logger.Debug("sub-query degraded to default",
					zap.String("source", source),
					zap.String("user_id", f.userID),
					zap.Error(out.Err))
			}
		}()
		out.Value, out.Err = fn(f.ctx)
		return nil
	})
}

// wait blocks until every scheduled read has settled.
func (f *fanOut) wait() {
	_ = f.group.Wait()
}
