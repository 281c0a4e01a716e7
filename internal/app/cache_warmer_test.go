package app

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/helparo/admin-service/internal/domain"
)

type stubRefresher struct {
	mu        sync.Mutex
	customers []string
	helpers   []string
	failFor   string
}

func (s *stubRefresher) RefreshCustomerFullDetails(ctx context.Context, userID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.customers = append(s.customers, userID)
	if userID == s.failFor {
		return ErrUserNotFound
	}
	return nil
}

func (s *stubRefresher) RefreshHelperFullDetails(ctx context.Context, userID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.helpers = append(s.helpers, userID)
	if userID == s.failFor {
		return ErrUserNotFound
	}
	return nil
}

func TestWarmDetailsCache(t *testing.T) {
	repo := &fakeRepo{recentIDs: map[string][]string{
		domain.RoleCustomer: {"c1", "c2", "c3"},
		domain.RoleHelper:   {"h1", "h2"},
	}}
	refresher := &stubRefresher{failFor: "c2"}

	NewCacheWarmer(repo, refresher, nil, 2).WarmDetailsCache()

	assert.Equal(t, []string{"c1", "c2"}, refresher.customers, "batch caps each role and a failure does not stop the job")
	assert.Equal(t, []string{"h1", "h2"}, refresher.helpers)
}

func TestWarmDetailsCache_ListFailureSkipsRole(t *testing.T) {
	repo := &fakeRepo{errs: map[string]error{"ListRecentlyActiveUserIDs": errors.New("timeout")}}
	refresher := &stubRefresher{}

	NewCacheWarmer(repo, refresher, nil, 0).WarmDetailsCache()

	assert.Empty(t, refresher.customers)
	assert.Empty(t, refresher.helpers)
	assert.Equal(t, 2, repo.callCount("ListRecentlyActiveUserIDs"))
}

func TestWarmDetailsCache_WithAggregator(t *testing.T) {
	repo := customerFixture()
	repo.recentIDs = map[string][]string{domain.RoleCustomer: {"u1", "missing"}}
	cache := newMemoryCache()
	agg := newTestAggregator(repo, cache, nil)

	NewCacheWarmer(repo, agg, nil, 10).WarmDetailsCache()

	assert.True(t, cache.has(domain.RoleCustomer, "u1"))
	assert.False(t, cache.has(domain.RoleCustomer, "missing"))
}

func TestScheduler(t *testing.T) {
	warmer := NewCacheWarmer(&fakeRepo{}, &stubRefresher{}, nil, 1)

	t.Run("empty schedule disables warming", func(t *testing.T) {
		s := NewScheduler(warmer, nil, "")
		assert.False(t, s.Start())
	})

	t.Run("invalid schedule is rejected", func(t *testing.T) {
		s := NewScheduler(warmer, nil, "not a cron spec")
		assert.False(t, s.Start())
	})

	t.Run("valid schedule starts and stops", func(t *testing.T) {
		s := NewScheduler(warmer, nil, "*/10 * * * *")
		require.True(t, s.Start())

		select {
		case <-s.Stop().Done():
		case <-time.After(time.Second):
			t.Fatal("scheduler did not stop")
		}
	})
}
