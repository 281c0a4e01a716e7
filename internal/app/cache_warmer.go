/**
 * @description
 * Scheduled refresh of the admin details cache. The most recently updated customers
 * and helpers are re-aggregated so the first admin read after a change is warm.
 */
package app

import (
	"context"
	"time"

	"github.com/robfig/cron/v3"
	"go.uber.org/zap"

	"github.com/helparo/admin-service/internal/domain"
	"github.com/helparo/admin-service/internal/store"
)

const defaultWarmBatch = 25

// DetailsRefresher rebuilds and re-caches a single view.
type DetailsRefresher interface {
	RefreshCustomerFullDetails(ctx context.Context, userID string) error
	RefreshHelperFullDetails(ctx context.Context, userID string) error
}

// CacheWarmer refreshes the cached views of recently active users.
type CacheWarmer struct {
	repo      store.Repository
	refresher DetailsRefresher
	logger    *zap.Logger
	batch     int
}

// NewCacheWarmer creates a new CacheWarmer.
func NewCacheWarmer(repo store.Repository, refresher DetailsRefresher, logger *zap.Logger, batch int) *CacheWarmer {
	if logger == nil {
		logger = zap.NewNop()
	}
	if batch <= 0 {
		batch = defaultWarmBatch
	}
	return &CacheWarmer{repo: repo, refresher: refresher, logger: logger.Named("cache_warmer"), batch: batch}
}

// WarmDetailsCache is the cron job body. Users are refreshed one at a time so the
// job never competes with admin traffic for more than one fan-out.
func (w *CacheWarmer) WarmDetailsCache() {
	started := time.Now()
	w.logger.Info("starting details cache warm job")
	ctx := context.Background()

	warmed := 0
	for _, role := range []string{domain.RoleCustomer, domain.RoleHelper} {
		ids, err := w.repo.ListRecentlyActiveUserIDs(ctx, role, w.batch)
		if err != nil {
			w.logger.Error("failed to list recently active users", zap.String("role", role), zap.Error(err))
			continue
		}
		for _, id := range ids {
			var err error
			if role == domain.RoleHelper {
				err = w.refresher.RefreshHelperFullDetails(ctx, id)
			} else {
				err = w.refresher.RefreshCustomerFullDetails(ctx, id)
			}
			if err != nil {
				w.logger.Warn("failed to warm details", zap.String("role", role), zap.String("user_id", id), zap.Error(err))
				continue
			}
			warmed++
		}
	}

	w.logger.Info("details cache warm job finished", zap.Int("warmed", warmed), zap.Duration("elapsed", time.Since(started)))
}

// Scheduler manages the cron jobs.
type Scheduler struct {
	cron     *cron.Cron
	warmer   *CacheWarmer
	logger   *zap.Logger
	schedule string
}

// NewScheduler creates a new scheduler instance. An empty schedule disables warming.
func NewScheduler(warmer *CacheWarmer, logger *zap.Logger, schedule string) *Scheduler {
	if logger == nil {
		logger = zap.NewNop()
	}
	cronLogger := cron.PrintfLogger(zap.NewStdLog(logger.Named("cron")))
	c := cron.New(cron.WithChain(cron.Recover(cronLogger), cron.SkipIfStillRunning(cronLogger)))

	return &Scheduler{cron: c, warmer: warmer, logger: logger, schedule: schedule}
}

// Start registers the warm job and starts the cron scheduler. It reports whether a job was scheduled.
func (s *Scheduler) Start() bool {
	if s.schedule == "" {
		s.logger.Info("details cache warming disabled")
		return false
	}
	if _, err := s.cron.AddFunc(s.schedule, s.warmer.WarmDetailsCache); err != nil {
		s.logger.Error("failed to schedule details cache warm job", zap.String("schedule", s.schedule), zap.Error(err))
		return false
	}
	s.logger.Info("scheduled details cache warm job", zap.String("schedule", s.schedule))
	s.cron.Start()
	return true
}

// Stop gracefully stops the cron scheduler.
func (s *Scheduler) Stop() context.Context {
	return s.cron.Stop()
}
