/**
 * @description
 * This file contains the profile aggregator, the core of the admin-service. Given a
 * user id it reads the base profile, fans out a fixed battery of independent reads,
 * derives the summary statistics and assembles one denormalized view for the admin UI.
 *
 * @dependencies
 * - internal/store: Read access to the marketplace database.
 * - go.uber.org/zap: Structured logging.
 *
 * @notes
 * - Every auxiliary read is optional evidence: a failure collapses to an empty list,
 *   nil or zero. Only the base profile lookup and unexpected panics fail a call.
 * - The aggregator is read-only. The audit event it publishes is best-effort.
 */
package app

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/helparo/admin-service/internal/domain"
	"github.com/helparo/admin-service/internal/store"
)

var (
	ErrUserNotFound  = errors.New("User not found or not accessible")
	ErrInvalidUserID = errors.New("user id is required")
)

const (
	defaultFanOutLimit   = 8
	auditPublishTimeout  = 2 * time.Second
	defaultAuditExchange = "admin_events"
)

// DetailsCache stores aggregated views keyed by role and user id.
type DetailsCache interface {
	Get(ctx context.Context, role, userID string, dest any) (bool, error)
	Set(ctx context.Context, role, userID string, value any) error
	Invalidate(ctx context.Context, userID string) error
}

// EventPublisher publishes JSON events to a topic exchange.
type EventPublisher interface {
	Publish(ctx context.Context, exchange, routingKey string, body interface{}) error
}

// AggregatorConfig tunes the aggregator. Zero values select defaults.
type AggregatorConfig struct {
	FanOutLimit   int
	AuditExchange string
}

// ViewOptions carries the caller's identity and cache preference for one read.
type ViewOptions struct {
	AdminID      string
	ForceRefresh bool
}

// ProfileAggregator assembles the admin customer and helper views.
type ProfileAggregator struct {
	repo          store.Repository
	cache         DetailsCache
	publisher     EventPublisher
	logger        *zap.Logger
	fanOutLimit   int
	auditExchange string
	now           func() time.Time
}

// NewProfileAggregator creates a new aggregator. cache and publisher may be nil.
func NewProfileAggregator(repo store.Repository, cache DetailsCache, publisher EventPublisher, logger *zap.Logger, cfg AggregatorConfig) *ProfileAggregator {
	if logger == nil {
		logger = zap.NewNop()
	}
	if cfg.FanOutLimit <= 0 {
		cfg.FanOutLimit = defaultFanOutLimit
	}
	if strings.TrimSpace(cfg.AuditExchange) == "" {
		cfg.AuditExchange = defaultAuditExchange
	}
	return &ProfileAggregator{
		repo:          repo,
		cache:         cache,
		publisher:     publisher,
		logger:        logger.Named("aggregator"),
		fanOutLimit:   cfg.FanOutLimit,
		auditExchange: cfg.AuditExchange,
		now:           time.Now,
	}
}

// GetCustomerFullDetails returns the aggregated customer view for userID.
func (a *ProfileAggregator) GetCustomerFullDetails(ctx context.Context, userID string, opts ViewOptions) (*domain.CustomerFullDetails, error) {
	userID = strings.TrimSpace(userID)
	if userID == "" {
		return nil, ErrInvalidUserID
	}

	if details := new(domain.CustomerFullDetails); a.readCache(ctx, domain.RoleCustomer, userID, opts, details) {
		a.recordView(ctx, opts.AdminID, userID, domain.RoleCustomer, true)
		return details, nil
	}

	details, err := a.buildCustomerDetails(ctx, userID)
	if err != nil {
		return nil, err
	}

	a.writeCache(ctx, domain.RoleCustomer, userID, details)
	a.recordView(ctx, opts.AdminID, userID, domain.RoleCustomer, false)
	return details, nil
}

// RefreshCustomerFullDetails rebuilds and re-caches a customer view without auditing.
func (a *ProfileAggregator) RefreshCustomerFullDetails(ctx context.Context, userID string) error {
	details, err := a.buildCustomerDetails(ctx, userID)
	if err != nil {
		return err
	}
	a.writeCache(ctx, domain.RoleCustomer, userID, details)
	return nil
}

// InvalidateUser drops every cached view for userID.
func (a *ProfileAggregator) InvalidateUser(ctx context.Context, userID string) error {
	if a.cache == nil {
		return nil
	}
	return a.cache.Invalidate(ctx, userID)
}

// buildCustomerDetails runs the uncached customer aggregation. A panic anywhere is
// reported as a fatal error instead of escaping.
func (a *ProfileAggregator) buildCustomerDetails(ctx context.Context, userID string) (details *domain.CustomerFullDetails, err error) {
	defer func() {
		if r := recover(); r != nil {
			a.logger.Error("customer aggregation panicked", zap.String("user_id", userID), zap.Any("panic", r))
			details, err = nil, fmt.Errorf("aggregate customer details: %v", r)
		}
	}()

	profile, err := a.repo.GetProfile(ctx, userID)
	if err != nil {
		if !errors.Is(err, store.ErrProfileNotFound) {
			a.logger.Error("failed to load base profile", zap.String("user_id", userID), zap.Error(err))
		}
		return nil, ErrUserNotFound
	}

	var (
		logins     Settled[[]domain.LoginAttempt]
		sessions   Settled[[]domain.UserSession]
		requests   Settled[[]domain.ServiceRequest]
		payments   Settled[[]domain.PaymentOrder]
		referrals  Settled[[]domain.Referral]
		rewards    Settled[[]domain.ReferralReward]
		tokens     Settled[[]domain.DeviceToken]
		prefs      Settled[*domain.NotificationPrefs]
		loyalty    Settled[*domain.LoyaltyPoints]
		reviews    Settled[[]domain.Review]
		tickets    Settled[[]domain.SupportTicket]
		legal      Settled[[]domain.LegalAcceptance]
		wallet     Settled[*domain.WalletAccount]
		promos     Settled[[]domain.PromoCodeUsage]
		referredBy Settled[*string]
	)

	f := newFanOut(ctx, a.fanOutLimit, a.logger, userID)
	settle(f, "login_attempts", &logins, func(ctx context.Context) ([]domain.LoginAttempt, error) {
		return a.repo.ListLoginAttempts(ctx, userID)
	})
	settle(f, "user_sessions", &sessions, func(ctx context.Context) ([]domain.UserSession, error) {
		return a.repo.ListSessions(ctx, userID)
	})
	settle(f, "service_requests", &requests, func(ctx context.Context) ([]domain.ServiceRequest, error) {
		return a.repo.ListCustomerRequests(ctx, userID)
	})
	settle(f, "payment_orders", &payments, func(ctx context.Context) ([]domain.PaymentOrder, error) {
		return a.repo.ListCustomerPaymentOrders(ctx, userID)
	})
	settle(f, "referrals", &referrals, func(ctx context.Context) ([]domain.Referral, error) {
		return a.repo.ListReferralsByReferrer(ctx, userID)
	})
	settle(f, "referral_rewards", &rewards, func(ctx context.Context) ([]domain.ReferralReward, error) {
		return a.repo.ListReferralRewards(ctx, userID)
	})
	settle(f, "device_tokens", &tokens, func(ctx context.Context) ([]domain.DeviceToken, error) {
		return a.repo.ListDeviceTokens(ctx, userID)
	})
	settle(f, "user_notification_prefs", &prefs, func(ctx context.Context) (*domain.NotificationPrefs, error) {
		return a.repo.GetNotificationPrefs(ctx, userID)
	})
	settle(f, "loyalty_points", &loyalty, func(ctx context.Context) (*domain.LoyaltyPoints, error) {
		return a.repo.GetLoyaltyPoints(ctx, userID)
	})
	settle(f, "reviews", &reviews, func(ctx context.Context) ([]domain.Review, error) {
		return a.repo.ListReviewsByCustomer(ctx, userID)
	})
	settle(f, "support_tickets", &tickets, func(ctx context.Context) ([]domain.SupportTicket, error) {
		return a.repo.ListSupportTickets(ctx, userID)
	})
	settle(f, "legal_acceptances", &legal, func(ctx context.Context) ([]domain.LegalAcceptance, error) {
		return a.repo.ListLegalAcceptances(ctx, userID)
	})
	settle(f, "wallet_accounts", &wallet, func(ctx context.Context) (*domain.WalletAccount, error) {
		return a.repo.GetWalletAccount(ctx, userID)
	})
	settle(f, "promo_code_usages", &promos, func(ctx context.Context) ([]domain.PromoCodeUsage, error) {
		return a.repo.ListPromoCodeUsages(ctx, userID)
	})
	settle(f, "referred_by", &referredBy, func(ctx context.Context) (*string, error) {
		return a.repo.GetReferrerName(ctx, userID)
	})
	f.wait()

	details = baseDetails(profile)
	now := a.now()

	loginRows := List(logins)
	details.LoginHistory = make([]domain.LoginRecord, 0, len(loginRows))
	for _, l := range loginRows {
		details.LoginHistory = append(details.LoginHistory, domain.LoginRecord{
			ID:            l.ID,
			IPAddress:     l.IPAddress,
			UserAgent:     l.UserAgent,
			Location:      l.Location,
			CreatedAt:     l.CreatedAt,
			Success:       l.Success,
			FailureReason: l.FailureReason,
		})
	}
	details.FailedLoginAttempts = recentFailedLogins(loginRows, now)
	if last := lastSuccessfulLogin(loginRows); last != nil {
		details.LastLoginIP = nonEmpty(last.IPAddress)
		at := last.CreatedAt
		details.LastLoginAt = &at
	}

	details.ActiveSessions = List(sessions)
	details.TotalSessions = len(details.ActiveSessions)

	paymentRows := List(payments)
	requestRows := List(requests)
	details.Orders = buildOrders(requestRows, firstPaymentByRequest(paymentRows), true)
	counts := countOrders(requestRows, customerPendingStatuses)
	details.TotalOrders = counts.total
	details.CompletedOrders = counts.completed
	details.CancelledOrders = counts.cancelled
	details.PendingOrders = counts.pending
	details.TotalSpent = paidTotal(paymentRows)
	details.PreferredPaymentMethod = preferredPaymentMethod(paymentRows)

	referralRows := List(referrals)
	rewardRows := List(rewards)
	rewardByReferral := firstRewardByReferral(rewardRows)
	details.Referrals = make([]domain.ReferralView, 0, len(referralRows))
	for _, r := range referralRows {
		view := domain.ReferralView{
			ID:            r.ID,
			ReferredName:  nonEmpty(r.ReferredName),
			ReferredEmail: nonEmpty(r.ReferredEmail),
			ReferredRole:  nonEmpty(r.ReferredRole),
			Status:        r.Status,
			CreatedAt:     r.CreatedAt,
		}
		if reward, ok := rewardByReferral[r.ID]; ok {
			amount := paise(reward.AmountPaise)
			view.RewardAmount = &amount
		}
		details.Referrals = append(details.Referrals, view)
	}
	details.TotalReferrals = len(referralRows)
	details.SuccessfulReferrals = countSuccessfulReferrals(referralRows)
	details.ReferralEarnings = grantedRewardTotal(rewardRows)
	details.ReferredBy = nonEmpty(Single(referredBy))

	details.DeviceTokens = List(tokens)
	for _, t := range details.DeviceTokens {
		if t.IsActive {
			details.HasAppInstalled = true
			break
		}
	}
	if len(details.DeviceTokens) > 0 {
		details.LastAppActivity = details.DeviceTokens[0].LastSeenAt
	}

	details.NotificationPrefs = Single(prefs)
	if l := Single(loyalty); l != nil {
		details.LoyaltyPoints = l.PointsBalance
		details.LoyaltyTier = nonEmpty(l.Tier)
	}

	reviewRows := List(reviews)
	details.ReviewsGiven = make([]domain.ReviewGiven, 0, len(reviewRows))
	for _, r := range reviewRows {
		details.ReviewsGiven = append(details.ReviewsGiven, domain.ReviewGiven{
			ID:         r.ID,
			Rating:     r.Rating,
			Comment:    r.Comment,
			HelperName: nonEmpty(r.CounterpartName),
			CreatedAt:  r.CreatedAt,
		})
	}

	details.SupportTickets = List(tickets)
	details.LegalAcceptances = List(legal)
	if w := Single(wallet); w != nil {
		details.WalletBalance = w.AvailableBalance
	}

	promoRows := List(promos)
	details.PromoCodesUsed = make([]domain.PromoUse, 0, len(promoRows))
	for _, p := range promoRows {
		details.PromoCodesUsed = append(details.PromoCodesUsed, domain.PromoUse{
			Code:           p.Code,
			DiscountAmount: paise(p.AppliedAmountPaise),
			UsedAt:         p.CreatedAt,
		})
	}

	return details, nil
}

func baseDetails(p *domain.Profile) *domain.CustomerFullDetails {
	status := p.Status
	if status == "" {
		status = domain.StatusActive
	}
	return &domain.CustomerFullDetails{
		ID:                p.ID,
		Email:             p.Email,
		FullName:          p.FullName,
		Phone:             p.Phone,
		CountryCode:       p.CountryCode,
		AvatarURL:         p.AvatarURL,
		Role:              p.Role,
		Status:            status,
		IsVerified:        p.IsVerified,
		IsBanned:          p.IsBanned,
		BanReason:         p.BanReason,
		BannedAt:          p.BannedAt,
		BanExpiresAt:      p.BanExpiresAt,
		CreatedAt:         p.CreatedAt,
		UpdatedAt:         p.UpdatedAt,
		Address:           p.Address,
		City:              p.City,
		State:             p.State,
		Pincode:           p.Pincode,
		LocationLat:       p.LocationLat,
		LocationLng:       p.LocationLng,
		LocationUpdatedAt: p.LocationUpdatedAt,
		PhoneVerified:     p.PhoneVerified,
		PhoneVerifiedAt:   p.PhoneVerifiedAt,
	}
}

// buildOrders joins each booking with its first payment. withHelper keeps the assigned
// helper fields; the helper's own job view clears them.
func buildOrders(requests []domain.ServiceRequest, payments map[string]domain.PaymentOrder, withHelper bool) []domain.Order {
	orders := make([]domain.Order, 0, len(requests))
	for _, r := range requests {
		o := domain.Order{
			ID:             r.ID,
			Title:          r.Title,
			Description:    r.Description,
			Status:         r.Status,
			CategoryName:   nonEmpty(r.CategoryName),
			EstimatedPrice: r.EstimatedPrice,
			CreatedAt:      r.CreatedAt,
			CompletedAt:    r.JobCompletedAt,
			Address:        nonEmpty(r.ServiceAddress),
			Latitude:       nonZero(r.ServiceLat),
			Longitude:      nonZero(r.ServiceLng),
		}
		if withHelper {
			o.HelperName = nonEmpty(r.CounterpartName)
			o.HelperID = r.AssignedHelperID
		}
		if pay, ok := payments[r.ID]; ok {
			price := paise(pay.OrderAmount)
			o.FinalPrice = &price
			o.PaymentMethod = nonEmpty(pay.PaymentMethod)
			o.PaymentStatus = nonEmpty(pay.PaymentStatus)
		}
		orders = append(orders, o)
	}
	return orders
}

func (a *ProfileAggregator) readCache(ctx context.Context, role, userID string, opts ViewOptions, dest any) bool {
	if a.cache == nil || opts.ForceRefresh {
		return false
	}
	hit, err := a.cache.Get(ctx, role, userID, dest)
	if err != nil {
		a.logger.Warn("details cache read failed", zap.String("role", role), zap.String("user_id", userID), zap.Error(err))
		return false
	}
	return hit
}

func (a *ProfileAggregator) writeCache(ctx context.Context, role, userID string, value any) {
	if a.cache == nil {
		return
	}
	if err := a.cache.Set(ctx, role, userID, value); err != nil {
		a.logger.Warn("details cache write failed", zap.String("role", role), zap.String("user_id", userID), zap.Error(err))
	}
}

// recordView publishes the audit event for an admin read. Failures are logged only.
func (a *ProfileAggregator) recordView(ctx context.Context, adminID, userID, role string, cached bool) {
	if a.publisher == nil || adminID == "" {
		return
	}
	event := domain.UserDetailsViewedEvent{
		EventID:  uuid.NewString(),
		AdminID:  adminID,
		UserID:   userID,
		Role:     role,
		Cached:   cached,
		ViewedAt: a.now().UTC(),
	}

	pubCtx, cancel := context.WithTimeout(ctx, auditPublishTimeout)
	defer cancel()
	if err := a.publisher.Publish(pubCtx, a.auditExchange, domain.UserDetailsViewedRoutingKey, event); err != nil {
		a.logger.Warn("failed to publish view audit event", zap.String("user_id", userID), zap.Error(err))
	}
}

func nonEmpty(s *string) *string {
	if s == nil || *s == "" {
		return nil
	}
	return s
}

func nonZero(f *float64) *float64 {
	if f == nil || *f == 0 {
		return nil
	}
	return f
}
