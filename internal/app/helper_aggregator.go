package app

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/helparo/admin-service/internal/domain"
	"github.com/helparo/admin-service/internal/store"
)

// GetHelperFullDetails returns the aggregated helper view for userID. It requires the
// customer view to succeed and replaces its orders with the helper's assigned jobs.
func (a *ProfileAggregator) GetHelperFullDetails(ctx context.Context, userID string, opts ViewOptions) (*domain.HelperFullDetails, error) {
	userID = strings.TrimSpace(userID)
	if userID == "" {
		return nil, ErrInvalidUserID
	}

	if details := new(domain.HelperFullDetails); a.readCache(ctx, domain.RoleHelper, userID, opts, details) {
		a.recordView(ctx, opts.AdminID, userID, domain.RoleHelper, true)
		return details, nil
	}

	details, err := a.buildHelperDetails(ctx, userID)
	if err != nil {
		return nil, err
	}

	a.writeCache(ctx, domain.RoleHelper, userID, details)
	a.recordView(ctx, opts.AdminID, userID, domain.RoleHelper, false)
	return details, nil
}

// RefreshHelperFullDetails rebuilds and re-caches a helper view without auditing.
func (a *ProfileAggregator) RefreshHelperFullDetails(ctx context.Context, userID string) error {
	details, err := a.buildHelperDetails(ctx, userID)
	if err != nil {
		return err
	}
	a.writeCache(ctx, domain.RoleHelper, userID, details)
	return nil
}

func (a *ProfileAggregator) buildHelperDetails(ctx context.Context, userID string) (details *domain.HelperFullDetails, err error) {
	customer, err := a.buildCustomerDetails(ctx, userID)
	if err != nil {
		return nil, err
	}

	defer func() {
		if r := recover(); r != nil {
			a.logger.Error("helper aggregation panicked", zap.String("user_id", userID), zap.Any("panic", r))
			details, err = nil, fmt.Errorf("aggregate helper details: %v", r)
		}
	}()

	// The helper profile is read first because the location history is keyed by its id.
	hp, err := a.repo.GetHelperProfile(ctx, userID)
	if err != nil {
		if !errors.Is(err, store.ErrNotFound) {
			a.logger.Debug("sub-query degraded to default",
				zap.String("source", "helper_profiles"), zap.String("user_id", userID), zap.Error(err))
		}
		hp, err = nil, nil
	}

	locationKey := userID
	var rawCategories, rawSkills []string
	if hp != nil {
		if hp.ID != "" {
			locationKey = hp.ID
		}
		rawCategories = hp.ServiceCategories
		rawSkills = hp.Skills
	}
	ids := categoryIDs(rawCategories, rawSkills)

	var (
		jobs       Settled[[]domain.ServiceRequest]
		payments   Settled[[]domain.PaymentOrder]
		reviews    Settled[[]domain.Review]
		locations  Settled[[]domain.LocationPoint]
		checks     Settled[[]domain.BackgroundCheck]
		trust      Settled[*domain.TrustScore]
		badges     Settled[[]domain.Badge]
		earnings   Settled[[]domain.Earning]
		sub        Settled[*domain.Subscription]
		banks      Settled[[]domain.BankAccount]
		documents  Settled[[]domain.VerificationDocument]
		categories Settled[[]domain.Category]
	)

	f := newFanOut(ctx, a.fanOutLimit, a.logger, userID)
	settle(f, "helper_jobs", &jobs, func(ctx context.Context) ([]domain.ServiceRequest, error) {
		return a.repo.ListHelperJobs(ctx, userID)
	})
	settle(f, "helper_payment_orders", &payments, func(ctx context.Context) ([]domain.PaymentOrder, error) {
		return a.repo.ListHelperPaymentOrders(ctx, userID)
	})
	settle(f, "helper_reviews", &reviews, func(ctx context.Context) ([]domain.Review, error) {
		return a.repo.ListReviewsForHelper(ctx, userID)
	})
	settle(f, "helper_location_history", &locations, func(ctx context.Context) ([]domain.LocationPoint, error) {
		return a.repo.ListLocationHistory(ctx, locationKey)
	})
	settle(f, "background_check_results", &checks, func(ctx context.Context) ([]domain.BackgroundCheck, error) {
		return a.repo.ListBackgroundChecks(ctx, userID)
	})
	settle(f, "helper_trust_scores", &trust, func(ctx context.Context) (*domain.TrustScore, error) {
		return a.repo.GetTrustScore(ctx, userID)
	})
	settle(f, "helper_badges", &badges, func(ctx context.Context) ([]domain.Badge, error) {
		return a.repo.ListBadges(ctx, userID)
	})
	settle(f, "helper_earnings", &earnings, func(ctx context.Context) ([]domain.Earning, error) {
		return a.repo.ListEarnings(ctx, userID)
	})
	settle(f, "helper_subscriptions", &sub, func(ctx context.Context) (*domain.Subscription, error) {
		return a.repo.GetActiveSubscription(ctx, userID)
	})
	settle(f, "helper_bank_accounts", &banks, func(ctx context.Context) ([]domain.BankAccount, error) {
		return a.repo.ListBankAccounts(ctx, userID)
	})
	settle(f, "verification_documents", &documents, func(ctx context.Context) ([]domain.VerificationDocument, error) {
		return a.repo.ListVerificationDocuments(ctx, userID)
	})
	if len(ids) > 0 {
		settle(f, "service_categories", &categories, func(ctx context.Context) ([]domain.Category, error) {
			return a.repo.ListCategoriesByIDs(ctx, ids)
		})
	}
	f.wait()

	details = &domain.HelperFullDetails{CustomerFullDetails: *customer}

	jobRows := List(jobs)
	paymentRows := List(payments)
	details.Orders = buildOrders(jobRows, firstPaymentByRequest(paymentRows), false)
	counts := countOrders(jobRows, helperPendingStatuses)
	details.TotalOrders = counts.total
	details.CompletedOrders = counts.completed
	details.CancelledOrders = counts.cancelled
	details.PendingOrders = counts.pending

	details.TotalJobsCompleted = counts.completed
	details.TotalJobsAssigned = counts.total
	details.PendingJobs = counts.pending
	details.InProgressJobs = counts.inProgress
	details.CancelledJobs = counts.cancelled
	details.TotalEarnings = paidTotal(paymentRows)
	details.CompletionRate = completionRate(counts.completed, counts.total)

	reviewRows := List(reviews)
	details.AverageRating = averageRating(reviewRows)
	details.TotalReviews = len(reviewRows)

	names := make(map[string]string)
	for _, c := range List(categories) {
		if c.ID != "" && c.Name != "" {
			names[strings.ToLower(c.ID)] = c.Name
		}
	}
	details.ServiceCategories = normalizeCategoryTokens(rawCategories, names)
	details.Skills = normalizeCategoryTokens(rawSkills, names)
	details.ServiceAreas = []domain.ServiceArea{}
	details.Availability = []domain.AvailabilitySlot{}

	if hp != nil {
		id := hp.ID
		details.HelperProfileID = nonEmpty(&id)
		details.ExperienceYears = hp.ExperienceYears
		details.HourlyRate = hp.HourlyRate
		details.ServiceRadius = hp.ServiceRadius
		details.IsApproved = hp.IsApproved
		details.VerificationStatus = hp.VerificationStatus
		details.Bio = hp.Bio
		details.ResponseRate = nonZero(hp.ResponseRate)
		details.AcceptanceRate = nonZero(hp.AcceptanceRate)
		details.CurrentLocationLat = firstFloat(hp.CurrentLat, hp.Latitude)
		details.CurrentLocationLng = firstFloat(hp.CurrentLng, hp.Longitude)
		details.CurrentLocationUpdatedAt = hp.LocationUpdatedAt
		if details.CurrentLocationUpdatedAt == nil {
			details.CurrentLocationUpdatedAt = hp.UpdatedAt
		}
		details.IsOnline = hp.IsAvailableNow
		if hp.IsOnline != nil {
			details.IsOnline = *hp.IsOnline
		}
		for _, area := range hp.ServiceAreas {
			if area == "" {
				continue
			}
			details.ServiceAreas = append(details.ServiceAreas, domain.ServiceArea{AreaName: area})
		}
	}

	details.LocationHistory = List(locations)
	details.Documents = List(documents)
	details.BackgroundChecks = List(checks)
	if t := Single(trust); t != nil {
		details.TrustScore = nonZero(t.OverallScore)
		details.TrustScoreBreakdown = &domain.TrustScoreBreakdown{
			VerificationScore: t.VerificationScore,
			RatingScore:       t.RatingScore,
			CompletionScore:   t.CompletionScore,
			ResponseScore:     t.ResponseScore,
		}
	}
	details.Badges = List(badges)
	details.EarningsHistory = List(earnings)
	details.Subscription = Single(sub)
	details.BankAccounts = List(banks)

	return details, nil
}

func firstFloat(values ...*float64) *float64 {
	for _, v := range values {
		if v != nil {
			return v
		}
	}
	return nil
}
