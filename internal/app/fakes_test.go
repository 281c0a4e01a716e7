package app

import (
	"context"
	"encoding/json"
	"sync"
	"time"

	"github.com/helparo/admin-service/internal/domain"
	"github.com/helparo/admin-service/internal/store"
)

// fakeRepo serves canned rows. errs and panics are keyed by method name and are only
// read while a fan-out runs, so they need no locking.
type fakeRepo struct {
	store.Repository

	errs   map[string]error
	panics map[string]bool

	mu          sync.Mutex
	calls       map[string]int
	locationKey string
	categoryIDs []string

	profile        *domain.Profile
	role           string
	page           *domain.ProfileListPage
	lastFilter     domain.ProfileListFilter
	phoneOwner     string
	recentIDs      map[string][]string
	logins         []domain.LoginAttempt
	sessions       []domain.UserSession
	requests       []domain.ServiceRequest
	payments       []domain.PaymentOrder
	referrals      []domain.Referral
	rewards        []domain.ReferralReward
	referrer       *string
	tokens         []domain.DeviceToken
	prefs          *domain.NotificationPrefs
	loyalty        *domain.LoyaltyPoints
	reviewsGiven   []domain.Review
	tickets        []domain.SupportTicket
	legal          []domain.LegalAcceptance
	wallet         *domain.WalletAccount
	promos         []domain.PromoCodeUsage
	helperProfile  *domain.HelperProfile
	jobs           []domain.ServiceRequest
	helperPayments []domain.PaymentOrder
	helperReviews  []domain.Review
	locations      []domain.LocationPoint
	checks         []domain.BackgroundCheck
	trust          *domain.TrustScore
	badges         []domain.Badge
	earnings       []domain.Earning
	subscription   *domain.Subscription
	banks          []domain.BankAccount
	documents      []domain.VerificationDocument
	categories     []domain.Category
}

func (r *fakeRepo) hit(method string) error {
	r.mu.Lock()
	if r.calls == nil {
		r.calls = make(map[string]int)
	}
	r.calls[method]++
	r.mu.Unlock()

	if r.panics[method] {
		panic(method + " exploded")
	}
	return r.errs[method]
}

func (r *fakeRepo) callCount(method string) int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.calls[method]
}

func one[T any](r *fakeRepo, method string, v *T) (*T, error) {
	if err := r.hit(method); err != nil {
		return nil, err
	}
	if v == nil {
		return nil, store.ErrNotFound
	}
	return v, nil
}

func many[T any](r *fakeRepo, method string, v []T) ([]T, error) {
	if err := r.hit(method); err != nil {
		return nil, err
	}
	return v, nil
}

func (r *fakeRepo) GetProfile(ctx context.Context, userID string) (*domain.Profile, error) {
	if err := r.hit("GetProfile"); err != nil {
		return nil, err
	}
	if r.profile == nil || r.profile.ID != userID {
		return nil, store.ErrProfileNotFound
	}
	return r.profile, nil
}

func (r *fakeRepo) GetProfileRole(ctx context.Context, userID string) (string, error) {
	if err := r.hit("GetProfileRole"); err != nil {
		return "", err
	}
	if r.role == "" {
		return "", store.ErrProfileNotFound
	}
	return r.role, nil
}

func (r *fakeRepo) ListProfiles(ctx context.Context, filter domain.ProfileListFilter) (*domain.ProfileListPage, error) {
	if err := r.hit("ListProfiles"); err != nil {
		return nil, err
	}
	r.mu.Lock()
	r.lastFilter = filter
	r.mu.Unlock()
	if r.page == nil {
		return &domain.ProfileListPage{}, nil
	}
	return r.page, nil
}

func (r *fakeRepo) FindOtherProfileByPhone(ctx context.Context, phone, excludeUserID string) (string, error) {
	if err := r.hit("FindOtherProfileByPhone"); err != nil {
		return "", err
	}
	if r.phoneOwner == "" || r.phoneOwner == excludeUserID {
		return "", store.ErrProfileNotFound
	}
	return r.phoneOwner, nil
}

func (r *fakeRepo) ListRecentlyActiveUserIDs(ctx context.Context, role string, limit int) ([]string, error) {
	if err := r.hit("ListRecentlyActiveUserIDs"); err != nil {
		return nil, err
	}
	ids := r.recentIDs[role]
	if len(ids) > limit {
		ids = ids[:limit]
	}
	return ids, nil
}

func (r *fakeRepo) ListLoginAttempts(ctx context.Context, userID string) ([]domain.LoginAttempt, error) {
	return many(r, "ListLoginAttempts", r.logins)
}

func (r *fakeRepo) ListSessions(ctx context.Context, userID string) ([]domain.UserSession, error) {
	return many(r, "ListSessions", r.sessions)
}

func (r *fakeRepo) ListCustomerRequests(ctx context.Context, customerID string) ([]domain.ServiceRequest, error) {
	return many(r, "ListCustomerRequests", r.requests)
}

func (r *fakeRepo) ListCustomerPaymentOrders(ctx context.Context, customerID string) ([]domain.PaymentOrder, error) {
	return many(r, "ListCustomerPaymentOrders", r.payments)
}

func (r *fakeRepo) ListReferralsByReferrer(ctx context.Context, referrerID string) ([]domain.Referral, error) {
	return many(r, "ListReferralsByReferrer", r.referrals)
}

func (r *fakeRepo) ListReferralRewards(ctx context.Context, referrerID string) ([]domain.ReferralReward, error) {
	return many(r, "ListReferralRewards", r.rewards)
}

func (r *fakeRepo) GetReferrerName(ctx context.Context, referredUserID string) (*string, error) {
	return one(r, "GetReferrerName", r.referrer)
}

func (r *fakeRepo) ListDeviceTokens(ctx context.Context, userID string) ([]domain.DeviceToken, error) {
	return many(r, "ListDeviceTokens", r.tokens)
}

func (r *fakeRepo) GetNotificationPrefs(ctx context.Context, userID string) (*domain.NotificationPrefs, error) {
	return one(r, "GetNotificationPrefs", r.prefs)
}

func (r *fakeRepo) GetLoyaltyPoints(ctx context.Context, userID string) (*domain.LoyaltyPoints, error) {
	return one(r, "GetLoyaltyPoints", r.loyalty)
}

func (r *fakeRepo) ListReviewsByCustomer(ctx context.Context, customerID string) ([]domain.Review, error) {
	return many(r, "ListReviewsByCustomer", r.reviewsGiven)
}

func (r *fakeRepo) ListSupportTickets(ctx context.Context, userID string) ([]domain.SupportTicket, error) {
	return many(r, "ListSupportTickets", r.tickets)
}

func (r *fakeRepo) ListLegalAcceptances(ctx context.Context, userID string) ([]domain.LegalAcceptance, error) {
	return many(r, "ListLegalAcceptances", r.legal)
}

func (r *fakeRepo) GetWalletAccount(ctx context.Context, userID string) (*domain.WalletAccount, error) {
	return one(r, "GetWalletAccount", r.wallet)
}

func (r *fakeRepo) ListPromoCodeUsages(ctx context.Context, userID string) ([]domain.PromoCodeUsage, error) {
	return many(r, "ListPromoCodeUsages", r.promos)
}

func (r *fakeRepo) GetHelperProfile(ctx context.Context, userID string) (*domain.HelperProfile, error) {
	return one(r, "GetHelperProfile", r.helperProfile)
}

func (r *fakeRepo) ListHelperJobs(ctx context.Context, helperID string) ([]domain.ServiceRequest, error) {
	return many(r, "ListHelperJobs", r.jobs)
}

func (r *fakeRepo) ListHelperPaymentOrders(ctx context.Context, helperID string) ([]domain.PaymentOrder, error) {
	return many(r, "ListHelperPaymentOrders", r.helperPayments)
}

func (r *fakeRepo) ListReviewsForHelper(ctx context.Context, helperID string) ([]domain.Review, error) {
	return many(r, "ListReviewsForHelper", r.helperReviews)
}

func (r *fakeRepo) ListLocationHistory(ctx context.Context, helperKey string) ([]domain.LocationPoint, error) {
	r.mu.Lock()
	r.locationKey = helperKey
	r.mu.Unlock()
	return many(r, "ListLocationHistory", r.locations)
}

func (r *fakeRepo) ListBackgroundChecks(ctx context.Context, helperID string) ([]domain.BackgroundCheck, error) {
	return many(r, "ListBackgroundChecks", r.checks)
}

func (r *fakeRepo) GetTrustScore(ctx context.Context, helperID string) (*domain.TrustScore, error) {
	return one(r, "GetTrustScore", r.trust)
}

func (r *fakeRepo) ListBadges(ctx context.Context, helperID string) ([]domain.Badge, error) {
	return many(r, "ListBadges", r.badges)
}

func (r *fakeRepo) ListEarnings(ctx context.Context, helperID string) ([]domain.Earning, error) {
	return many(r, "ListEarnings", r.earnings)
}

func (r *fakeRepo) GetActiveSubscription(ctx context.Context, helperID string) (*domain.Subscription, error) {
	return one(r, "GetActiveSubscription", r.subscription)
}

func (r *fakeRepo) ListBankAccounts(ctx context.Context, helperID string) ([]domain.BankAccount, error) {
	return many(r, "ListBankAccounts", r.banks)
}

func (r *fakeRepo) ListVerificationDocuments(ctx context.Context, helperID string) ([]domain.VerificationDocument, error) {
	return many(r, "ListVerificationDocuments", r.documents)
}

func (r *fakeRepo) ListCategoriesByIDs(ctx context.Context, ids []string) ([]domain.Category, error) {
	r.mu.Lock()
	r.categoryIDs = append([]string(nil), ids...)
	r.mu.Unlock()
	return many(r, "ListCategoriesByIDs", r.categories)
}

// memoryCache is a DetailsCache that round-trips values through JSON like the Redis cache.
type memoryCache struct {
	mu          sync.Mutex
	entries     map[string][]byte
	getErr      error
	setErr      error
	invalidated []string
}

func newMemoryCache() *memoryCache {
	return &memoryCache{entries: make(map[string][]byte)}
}

func (c *memoryCache) Get(ctx context.Context, role, userID string, dest any) (bool, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.getErr != nil {
		return false, c.getErr
	}
	raw, ok := c.entries[role+":"+userID]
	if !ok {
		return false, nil
	}
	return true, json.Unmarshal(raw, dest)
}

func (c *memoryCache) Set(ctx context.Context, role, userID string, value any) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.setErr != nil {
		return c.setErr
	}
	raw, err := json.Marshal(value)
	if err != nil {
		return err
	}
	c.entries[role+":"+userID] = raw
	return nil
}

func (c *memoryCache) Invalidate(ctx context.Context, userID string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.invalidated = append(c.invalidated, userID)
	delete(c.entries, domain.RoleCustomer+":"+userID)
	delete(c.entries, domain.RoleHelper+":"+userID)
	return nil
}

func (c *memoryCache) has(role, userID string) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	_, ok := c.entries[role+":"+userID]
	return ok
}

type publishedEvent struct {
	exchange   string
	routingKey string
	body       interface{}
}

type recordingPublisher struct {
	mu     sync.Mutex
	events []publishedEvent
	err    error
}

func (p *recordingPublisher) Publish(ctx context.Context, exchange, routingKey string, body interface{}) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = append(p.events, publishedEvent{exchange: exchange, routingKey: routingKey, body: body})
	return p.err
}

func ptr[T any](v T) *T { return &v }

var fixedNow = time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC)

func newTestAggregator(repo *fakeRepo, cache DetailsCache, publisher EventPublisher) *ProfileAggregator {
	a := NewProfileAggregator(repo, cache, publisher, nil, AggregatorConfig{})
	a.now = func() time.Time { return fixedNow }
	return a
}
