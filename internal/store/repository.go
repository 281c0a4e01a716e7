/**
 * @description
 * This file defines the `Repository` interface, the read contract the admin-service
 * needs from the marketplace database. Every method is a single independent read so
 * the aggregator can issue them concurrently and absorb each failure on its own.
 *
 * @dependencies
 * - context: Standard Go library.
 * - internal/domain: For the service's row models.
 */

package store

import (
	"context"

	"github.com/helparo/admin-service/internal/domain"
)

// Page sizes for the capped collections. Every list is read newest-first.
const (
	LoginAttemptsLimit         = 50
	SessionsLimit              = 50
	ServiceRequestsLimit       = 200
	PaymentOrdersLimit         = 200
	ReferralsLimit             = 200
	ReferralRewardsLimit       = 200
	DeviceTokensLimit          = 50
	ReviewsLimit               = 200
	SupportTicketsLimit        = 200
	LegalAcceptancesLimit      = 50
	PromoUsagesLimit           = 200
	LocationHistoryLimit       = 100
	BackgroundChecksLimit      = 50
	BadgesLimit                = 100
	EarningsLimit              = 50
	BankAccountsLimit          = 20
	VerificationDocumentsLimit = 50
)

// Repository defines the set of methods for reading the marketplace database.
type Repository interface {
	// Profile and admin methods
	GetProfile(ctx context.Context, userID string) (*domain.Profile, error)
	GetProfileRole(ctx context.Context, userID string) (string, error)
	ListProfiles(ctx context.Context, filter domain.ProfileListFilter) (*domain.ProfileListPage, error)
	FindOtherProfileByPhone(ctx context.Context, phone, excludeUserID string) (string, error)
	ListRecentlyActiveUserIDs(ctx context.Context, role string, limit int) ([]string, error)

	// Customer view methods
	ListLoginAttempts(ctx context.Context, userID string) ([]domain.LoginAttempt, error)
	ListSessions(ctx context.Context, userID string) ([]domain.UserSession, error)
	ListCustomerRequests(ctx context.Context, customerID string) ([]domain.ServiceRequest, error)
	ListCustomerPaymentOrders(ctx context.Context, customerID string) ([]domain.PaymentOrder, error)
	ListReferralsByReferrer(ctx context.Context, referrerID string) ([]domain.Referral, error)
	ListReferralRewards(ctx context.Context, referrerID string) ([]domain.ReferralReward, error)
	GetReferrerName(ctx context.Context, referredUserID string) (*string, error)
	ListDeviceTokens(ctx context.Context, userID string) ([]domain.DeviceToken, error)
	GetNotificationPrefs(ctx context.Context, userID string) (*domain.NotificationPrefs, error)
	GetLoyaltyPoints(ctx context.Context, userID string) (*domain.LoyaltyPoints, error)
	ListReviewsByCustomer(ctx context.Context, customerID string) ([]domain.Review, error)
	ListSupportTickets(ctx context.Context, userID string) ([]domain.SupportTicket, error)
	ListLegalAcceptances(ctx context.Context, userID string) ([]domain.LegalAcceptance, error)
	GetWalletAccount(ctx context.Context, userID string) (*domain.WalletAccount, error)
	ListPromoCodeUsages(ctx context.Context, userID string) ([]domain.PromoCodeUsage, error)

	// Helper view methods
	GetHelperProfile(ctx context.Context, userID string) (*domain.HelperProfile, error)
	ListHelperJobs(ctx context.Context, helperID string) ([]domain.ServiceRequest, error)
	ListHelperPaymentOrders(ctx context.Context, helperID string) ([]domain.PaymentOrder, error)
	ListReviewsForHelper(ctx context.Context, helperID string) ([]domain.Review, error)
	ListLocationHistory(ctx context.Context, helperKey string) ([]domain.LocationPoint, error)
	ListBackgroundChecks(ctx context.Context, helperID string) ([]domain.BackgroundCheck, error)
	GetTrustScore(ctx context.Context, helperID string) (*domain.TrustScore, error)
	ListBadges(ctx context.Context, helperID string) ([]domain.Badge, error)
	ListEarnings(ctx context.Context, helperID string) ([]domain.Earning, error)
	GetActiveSubscription(ctx context.Context, helperID string) (*domain.Subscription, error)
	ListBankAccounts(ctx context.Context, helperID string) ([]domain.BankAccount, error)
	ListVerificationDocuments(ctx context.Context, helperID string) ([]domain.VerificationDocument, error)
	ListCategoriesByIDs(ctx context.Context, ids []string) ([]domain.Category, error)
}
