package app

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"

	"github.com/helparo/admin-service/internal/domain"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

func customerFixture() *fakeRepo {
	return &fakeRepo{
		profile: &domain.Profile{
			ID:        "u1",
			Email:     "asha@example.com",
			FullName:  ptr("Asha"),
			Role:      domain.RoleCustomer,
			CreatedAt: fixedNow.Add(-720 * time.Hour),
			UpdatedAt: fixedNow.Add(-time.Hour),
		},
		requests: []domain.ServiceRequest{
			{ID: "r1", Title: "Deep clean", Status: domain.RequestCompleted, CustomerID: "u1", AssignedHelperID: ptr("h1"), CounterpartName: ptr("Ravi"), CreatedAt: fixedNow.Add(-48 * time.Hour)},
			{ID: "r2", Title: "Plumbing", Status: domain.RequestOpen, CustomerID: "u1", CreatedAt: fixedNow.Add(-24 * time.Hour)},
		},
		payments: []domain.PaymentOrder{
			{RequestID: ptr("r1"), OrderAmount: 50000, PaymentStatus: ptr("paid"), PaymentMethod: ptr("upi")},
			{RequestID: ptr("r1"), OrderAmount: 40000, PaymentStatus: ptr("failed"), PaymentMethod: ptr("card")},
		},
		referrals: []domain.Referral{
			{ID: "ref1", Status: "converted", ReferredName: ptr("Meera")},
			{ID: "ref2", Status: "pending"},
		},
		rewards: []domain.ReferralReward{
			{ID: "rw1", ReferralID: ptr("ref1"), Status: "granted", AmountPaise: 10000},
			{ID: "rw2", ReferralID: ptr("ref2"), Status: "pending", AmountPaise: 5000},
		},
		logins: []domain.LoginAttempt{
			{ID: "l1", Success: false, CreatedAt: fixedNow.Add(-time.Minute)},
			{ID: "l2", Success: true, IPAddress: ptr("10.0.0.1"), CreatedAt: fixedNow.Add(-2 * time.Hour)},
			{ID: "l3", Success: false, CreatedAt: fixedNow.Add(-(24*time.Hour + time.Minute))},
		},
		wallet:  &domain.WalletAccount{AvailableBalance: 250.5},
		loyalty: &domain.LoyaltyPoints{PointsBalance: 120, Tier: ptr("gold")},
		promos:  []domain.PromoCodeUsage{{Code: "WELCOME", AppliedAmountPaise: 2500, CreatedAt: fixedNow}},
	}
}

func TestGetCustomerFullDetails(t *testing.T) {
	repo := customerFixture()
	agg := newTestAggregator(repo, nil, nil)

	details, err := agg.GetCustomerFullDetails(context.Background(), "u1", ViewOptions{})
	require.NoError(t, err)
	require.NotNil(t, details)

	assert.Equal(t, "u1", details.ID)
	assert.Equal(t, domain.StatusActive, details.Status)
	assert.InDelta(t, 500.0, details.TotalSpent, 0.001)
	assert.InDelta(t, 100.0, details.ReferralEarnings, 0.001)
	assert.Equal(t, 2, details.TotalReferrals)
	assert.Equal(t, 1, details.SuccessfulReferrals)
	assert.Equal(t, 1, details.FailedLoginAttempts)
	require.NotNil(t, details.LastLoginIP)
	assert.Equal(t, "10.0.0.1", *details.LastLoginIP)
	require.NotNil(t, details.PreferredPaymentMethod)
	assert.Equal(t, "upi", *details.PreferredPaymentMethod)

	assert.Equal(t, 2, details.TotalOrders)
	assert.Equal(t, 1, details.CompletedOrders)
	assert.Equal(t, 1, details.PendingOrders)
	assert.Equal(t, 0, details.CancelledOrders)

	require.Len(t, details.Orders, 2)
	first := details.Orders[0]
	require.NotNil(t, first.FinalPrice)
	assert.InDelta(t, 500.0, *first.FinalPrice, 0.001, "first payment row wins the join")
	assert.Equal(t, "paid", *first.PaymentStatus)
	assert.Equal(t, "Ravi", *first.HelperName)
	assert.Equal(t, "h1", *first.HelperID)
	assert.Nil(t, details.Orders[1].FinalPrice)

	require.Len(t, details.Referrals, 2)
	require.NotNil(t, details.Referrals[0].RewardAmount)
	assert.InDelta(t, 100.0, *details.Referrals[0].RewardAmount, 0.001)

	assert.Equal(t, int64(120), details.LoyaltyPoints)
	assert.Equal(t, "gold", *details.LoyaltyTier)
	assert.InDelta(t, 250.5, details.WalletBalance, 0.001)
	require.Len(t, details.PromoCodesUsed, 1)
	assert.InDelta(t, 25.0, details.PromoCodesUsed[0].DiscountAmount, 0.001)
}

func TestGetCustomerFullDetails_NotFound(t *testing.T) {
	tests := []struct {
		name string
		repo *fakeRepo
	}{
		{name: "missing profile", repo: &fakeRepo{}},
		{name: "profile lookup error", repo: &fakeRepo{errs: map[string]error{"GetProfile": errors.New("connection reset")}}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			agg := newTestAggregator(tt.repo, nil, nil)
			details, err := agg.GetCustomerFullDetails(context.Background(), "u1", ViewOptions{})
			assert.Nil(t, details)
			require.ErrorIs(t, err, ErrUserNotFound)
			assert.Equal(t, "User not found or not accessible", err.Error())
			assert.Zero(t, tt.repo.callCount("ListLoginAttempts"), "no fan-out without a base profile")
		})
	}
}

func TestGetCustomerFullDetails_RejectsBlankID(t *testing.T) {
	agg := newTestAggregator(&fakeRepo{}, nil, nil)
	_, err := agg.GetCustomerFullDetails(context.Background(), "  ", ViewOptions{})
	require.ErrorIs(t, err, ErrInvalidUserID)
}

func TestGetCustomerFullDetails_DegradesFailedSources(t *testing.T) {
	repo := customerFixture()
	repo.errs = map[string]error{
		"ListCustomerPaymentOrders": errors.New("timeout"),
		"GetWalletAccount":          errors.New("permission denied"),
		"ListReferralsByReferrer":   errors.New("relation does not exist"),
	}
	repo.panics = map[string]bool{"ListLoginAttempts": true}
	agg := newTestAggregator(repo, nil, nil)

	details, err := agg.GetCustomerFullDetails(context.Background(), "u1", ViewOptions{})
	require.NoError(t, err)

	assert.Zero(t, details.TotalSpent)
	assert.Nil(t, details.PreferredPaymentMethod)
	assert.Zero(t, details.WalletBalance)
	assert.NotNil(t, details.LoginHistory)
	assert.Empty(t, details.LoginHistory)
	assert.Zero(t, details.FailedLoginAttempts)
	assert.NotNil(t, details.Referrals)
	assert.Empty(t, details.Referrals)
	assert.Zero(t, details.TotalReferrals)

	require.Len(t, details.Orders, 2)
	assert.Nil(t, details.Orders[0].FinalPrice)
}

func TestGetCustomerFullDetails_EmptySourcesSerializeAsArrays(t *testing.T) {
	repo := &fakeRepo{profile: &domain.Profile{ID: "u2", Role: domain.RoleCustomer}}
	agg := newTestAggregator(repo, nil, nil)

	details, err := agg.GetCustomerFullDetails(context.Background(), "u2", ViewOptions{})
	require.NoError(t, err)

	raw, err := json.Marshal(details)
	require.NoError(t, err)

	var fields map[string]json.RawMessage
	require.NoError(t, json.Unmarshal(raw, &fields))
	for _, key := range []string{
		"login_history", "active_sessions", "orders", "referrals", "device_tokens",
		"reviews_given", "support_tickets", "legal_acceptances", "promo_codes_used",
	} {
		assert.Equal(t, "[]", string(fields[key]), key)
	}
	for _, key := range []string{"total_spent", "wallet_balance", "loyalty_points", "referral_earnings"} {
		assert.Equal(t, "0", string(fields[key]), key)
	}
	assert.Equal(t, "null", string(fields["notification_prefs"]))
}

func TestGetCustomerFullDetails_UsesCache(t *testing.T) {
	repo := customerFixture()
	cache := newMemoryCache()
	publisher := &recordingPublisher{}
	agg := newTestAggregator(repo, cache, publisher)
	ctx := context.Background()

	_, err := agg.GetCustomerFullDetails(ctx, "u1", ViewOptions{AdminID: "admin-1"})
	require.NoError(t, err)
	assert.True(t, cache.has(domain.RoleCustomer, "u1"))

	cached, err := agg.GetCustomerFullDetails(ctx, "u1", ViewOptions{AdminID: "admin-1"})
	require.NoError(t, err)
	assert.InDelta(t, 500.0, cached.TotalSpent, 0.001)
	assert.Equal(t, 1, repo.callCount("GetProfile"), "second read served from cache")

	_, err = agg.GetCustomerFullDetails(ctx, "u1", ViewOptions{AdminID: "admin-1", ForceRefresh: true})
	require.NoError(t, err)
	assert.Equal(t, 2, repo.callCount("GetProfile"))

	require.Len(t, publisher.events, 3)
	for i, want := range []bool{false, true, false} {
		ev := publisher.events[i]
		assert.Equal(t, "admin_events", ev.exchange)
		assert.Equal(t, domain.UserDetailsViewedRoutingKey, ev.routingKey)
		viewed, ok := ev.body.(domain.UserDetailsViewedEvent)
		require.True(t, ok)
		assert.Equal(t, want, viewed.Cached)
		assert.Equal(t, "admin-1", viewed.AdminID)
		assert.NotEmpty(t, viewed.EventID)
	}
}

func TestGetCustomerFullDetails_CacheAndPublishFailuresAreIgnored(t *testing.T) {
	repo := customerFixture()
	cache := newMemoryCache()
	cache.getErr = errors.New("redis down")
	cache.setErr = errors.New("redis down")
	publisher := &recordingPublisher{err: errors.New("channel closed")}
	agg := newTestAggregator(repo, cache, publisher)

	details, err := agg.GetCustomerFullDetails(context.Background(), "u1", ViewOptions{AdminID: "admin-1"})
	require.NoError(t, err)
	assert.Equal(t, "u1", details.ID)
}

func TestInvalidateUser(t *testing.T) {
	cache := newMemoryCache()
	agg := newTestAggregator(customerFixture(), cache, nil)

	require.NoError(t, agg.RefreshCustomerFullDetails(context.Background(), "u1"))
	require.True(t, cache.has(domain.RoleCustomer, "u1"))

	require.NoError(t, agg.InvalidateUser(context.Background(), "u1"))
	assert.False(t, cache.has(domain.RoleCustomer, "u1"))

	noCache := newTestAggregator(customerFixture(), nil, nil)
	assert.NoError(t, noCache.InvalidateUser(context.Background(), "u1"))
}

func helperFixture() *fakeRepo {
	repo := customerFixture()
	repo.profile.Role = domain.RoleHelper
	repo.helperProfile = &domain.HelperProfile{
		ID:                "hp-9",
		UserID:            "u1",
		ServiceCategories: []string{"Cleaning", "0b6a7c1e-1111-4a2b-9c3d-000000000001", "Cleaning", "0b6a7c1e-1111-4a2b-9c3d-00000000dead"},
		Skills:            []string{"0B6A7C1E-1111-4A2B-9C3D-000000000002", ""},
		ServiceAreas:      []string{"Indiranagar", ""},
		IsApproved:        true,
		ResponseRate:      ptr(0.0),
		AcceptanceRate:    ptr(0.9),
		Latitude:          ptr(12.97),
		Longitude:         ptr(77.59),
		IsAvailableNow:    true,
	}
	repo.categories = []domain.Category{
		{ID: "0b6a7c1e-1111-4a2b-9c3d-000000000001", Name: "Plumbing"},
		{ID: "0b6a7c1e-1111-4a2b-9c3d-000000000002", Name: "Electrical"},
	}
	repo.jobs = []domain.ServiceRequest{
		{ID: "j1", Title: "Fix tap", Status: domain.RequestCompleted, AssignedHelperID: ptr("u1"), CounterpartName: ptr("Asha")},
		{ID: "j2", Title: "Wiring", Status: domain.RequestCompleted, AssignedHelperID: ptr("u1")},
		{ID: "j3", Title: "Geyser", Status: domain.RequestInProgress, AssignedHelperID: ptr("u1")},
	}
	repo.helperPayments = []domain.PaymentOrder{
		{RequestID: ptr("j1"), OrderAmount: 120000, PaymentStatus: ptr("SUCCESS")},
		{RequestID: ptr("j2"), OrderAmount: 30000, PaymentStatus: ptr("refunded")},
	}
	repo.helperReviews = []domain.Review{{ID: "rv1", Rating: 5}, {ID: "rv2", Rating: 4}, {ID: "rv3", Rating: 4}}
	repo.trust = &domain.TrustScore{OverallScore: ptr(82.5), RatingScore: 90}
	return repo
}

func TestGetHelperFullDetails(t *testing.T) {
	repo := helperFixture()
	agg := newTestAggregator(repo, nil, nil)

	details, err := agg.GetHelperFullDetails(context.Background(), "u1", ViewOptions{})
	require.NoError(t, err)

	assert.Equal(t, "hp-9", *details.HelperProfileID)
	assert.Equal(t, "hp-9", repo.locationKey, "location history is keyed by the helper profile id")
	assert.Equal(t, []string{"0b6a7c1e-1111-4a2b-9c3d-000000000001", "0b6a7c1e-1111-4a2b-9c3d-00000000dead", "0B6A7C1E-1111-4A2B-9C3D-000000000002"}, repo.categoryIDs)

	assert.Equal(t, []string{"Cleaning", "Plumbing"}, details.ServiceCategories)
	assert.Equal(t, []string{"Electrical"}, details.Skills)
	assert.Equal(t, []domain.ServiceArea{{AreaName: "Indiranagar"}}, details.ServiceAreas)

	assert.Equal(t, 3, details.TotalJobsAssigned)
	assert.Equal(t, 2, details.TotalJobsCompleted)
	assert.Equal(t, 1, details.InProgressJobs)
	assert.Equal(t, 0, details.PendingJobs)
	require.NotNil(t, details.CompletionRate)
	assert.Equal(t, 67, *details.CompletionRate)
	assert.InDelta(t, 1200.0, details.TotalEarnings, 0.001)
	assert.InDelta(t, 4.3, details.AverageRating, 0.0001)
	assert.Equal(t, 3, details.TotalReviews)

	require.Len(t, details.Orders, 3, "orders are replaced by the assigned jobs")
	for _, o := range details.Orders {
		assert.Nil(t, o.HelperName)
		assert.Nil(t, o.HelperID)
	}
	assert.Equal(t, 3, details.TotalOrders)

	assert.Nil(t, details.ResponseRate, "zero rate is reported as unknown")
	assert.InDelta(t, 0.9, *details.AcceptanceRate, 0.0001)
	assert.True(t, details.IsOnline)
	assert.Equal(t, 12.97, *details.CurrentLocationLat)

	require.NotNil(t, details.TrustScore)
	assert.InDelta(t, 82.5, *details.TrustScore, 0.001)
	require.NotNil(t, details.TrustScoreBreakdown)
	assert.InDelta(t, 90.0, details.TrustScoreBreakdown.RatingScore, 0.001)

	assert.InDelta(t, 500.0, details.TotalSpent, 0.001, "customer sections are kept")
}

func TestGetHelperFullDetails_NoJobs(t *testing.T) {
	repo := &fakeRepo{profile: &domain.Profile{ID: "h2", Role: domain.RoleHelper}}
	agg := newTestAggregator(repo, nil, nil)

	details, err := agg.GetHelperFullDetails(context.Background(), "h2", ViewOptions{})
	require.NoError(t, err)

	assert.Nil(t, details.CompletionRate)
	assert.Zero(t, details.AverageRating)
	assert.Nil(t, details.HelperProfileID)
	assert.Nil(t, details.TrustScore)
	assert.Nil(t, details.TrustScoreBreakdown)
	assert.Empty(t, details.ServiceCategories)
	assert.NotNil(t, details.ServiceCategories)
	assert.NotNil(t, details.ServiceAreas)
	assert.NotNil(t, details.Availability)
	assert.Empty(t, details.Availability)
	assert.NotNil(t, details.BankAccounts)
	assert.Equal(t, "h2", repo.locationKey, "falls back to the user id without a helper profile")
	assert.Zero(t, repo.callCount("ListCategoriesByIDs"), "no lookup without uuid tokens")
}

func TestGetHelperFullDetails_RequiresCustomerView(t *testing.T) {
	repo := &fakeRepo{}
	agg := newTestAggregator(repo, nil, nil)

	_, err := agg.GetHelperFullDetails(context.Background(), "ghost", ViewOptions{})
	require.ErrorIs(t, err, ErrUserNotFound)
	assert.Zero(t, repo.callCount("GetHelperProfile"))
}

func TestGetHelperFullDetails_DegradesFailedSources(t *testing.T) {
	repo := helperFixture()
	repo.errs = map[string]error{
		"GetHelperProfile":        errors.New("timeout"),
		"ListHelperPaymentOrders": errors.New("timeout"),
	}
	repo.panics = map[string]bool{"ListBadges": true, "GetTrustScore": true}
	agg := newTestAggregator(repo, nil, nil)

	details, err := agg.GetHelperFullDetails(context.Background(), "u1", ViewOptions{})
	require.NoError(t, err)

	assert.Nil(t, details.HelperProfileID)
	assert.False(t, details.IsApproved)
	assert.Zero(t, details.TotalEarnings)
	assert.NotNil(t, details.Badges)
	assert.Empty(t, details.Badges)
	assert.Nil(t, details.TrustScore)
	assert.Equal(t, 3, details.TotalJobsAssigned)
}

func TestGetHelperFullDetails_CachesByRole(t *testing.T) {
	cache := newMemoryCache()
	agg := newTestAggregator(helperFixture(), cache, nil)

	require.NoError(t, agg.RefreshHelperFullDetails(context.Background(), "u1"))
	assert.True(t, cache.has(domain.RoleHelper, "u1"))
	assert.False(t, cache.has(domain.RoleCustomer, "u1"))

	details, err := agg.GetHelperFullDetails(context.Background(), "u1", ViewOptions{})
	require.NoError(t, err)
	assert.Equal(t, []string{"Cleaning", "Plumbing"}, details.ServiceCategories)
	assert.Equal(t, "u1", details.ID)
}

func TestGetHelperFullDetails_ZeroTrustScoreIsUnknown(t *testing.T) {
	repo := helperFixture()
	repo.trust = &domain.TrustScore{OverallScore: ptr(0.0), RatingScore: 40}
	agg := newTestAggregator(repo, nil, nil)

	details, err := agg.GetHelperFullDetails(context.Background(), "u1", ViewOptions{})
	require.NoError(t, err)

	assert.Nil(t, details.TrustScore)
	require.NotNil(t, details.TrustScoreBreakdown)
	assert.InDelta(t, 40.0, details.TrustScoreBreakdown.RatingScore, 0.001)
}

func TestGetHelperFullDetails_LiveLocation(t *testing.T) {
	updated := fixedNow.Add(-time.Hour)
	touched := fixedNow.Add(-2 * time.Hour)

	tests := []struct {
		name        string
		edit        func(hp *domain.HelperProfile)
		wantLat     float64
		wantLng     float64
		wantOnline  bool
		wantUpdated time.Time
	}{
		{
			name: "live columns win",
			edit: func(hp *domain.HelperProfile) {
				hp.CurrentLat, hp.CurrentLng = ptr(13.01), ptr(77.64)
				hp.IsOnline = ptr(false)
				hp.LocationUpdatedAt, hp.UpdatedAt = &updated, &touched
			},
			wantLat: 13.01, wantLng: 77.64, wantOnline: false, wantUpdated: updated,
		},
		{
			name: "profile columns as fallback",
			edit: func(hp *domain.HelperProfile) {
				hp.UpdatedAt = &touched
			},
			wantLat: 12.97, wantLng: 77.59, wantOnline: true, wantUpdated: touched,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			repo := helperFixture()
			tt.edit(repo.helperProfile)
			agg := newTestAggregator(repo, nil, nil)

			details, err := agg.GetHelperFullDetails(context.Background(), "u1", ViewOptions{})
			require.NoError(t, err)

			require.NotNil(t, details.CurrentLocationLat)
			require.NotNil(t, details.CurrentLocationLng)
			assert.Equal(t, tt.wantLat, *details.CurrentLocationLat)
			assert.Equal(t, tt.wantLng, *details.CurrentLocationLng)
			assert.Equal(t, tt.wantOnline, details.IsOnline)
			require.NotNil(t, details.CurrentLocationUpdatedAt)
			assert.True(t, tt.wantUpdated.Equal(*details.CurrentLocationUpdatedAt))
		})
	}
}

func TestHelperFullDetails_AvailabilitySerializesEmpty(t *testing.T) {
	agg := newTestAggregator(helperFixture(), nil, nil)

	details, err := agg.GetHelperFullDetails(context.Background(), "u1", ViewOptions{})
	require.NoError(t, err)

	raw, err := json.Marshal(details)
	require.NoError(t, err)
	assert.Contains(t, string(raw), `"availability":[]`)
}
