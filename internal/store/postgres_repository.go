/**
 * @description
 * This file provides the PostgreSQL implementation of the `Repository` interface for
 * profiles, the admin directory, and every customer-facing relation read by the
 * aggregator. Helper relations live in postgres_repository_helper.go.
 *
 * @dependencies
 * - github.com/jackc/pgx/v5: The PostgreSQL driver for database operations.
 * - internal/domain: Contains the row models used for data transfer.
 *
 * @notes
 * - Booleans, statuses and amounts are COALESCEd in SQL so scans never see NULL
 *   for a non-pointer field.
 * - Numeric columns are cast to float8 or bigint before scanning.
 */

package store

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/helparo/admin-service/internal/domain"
)

var (
	ErrProfileNotFound = errors.New("profile not found")
	ErrNotFound        = errors.New("row not found")
)

const defaultQueryTimeout = 5 * time.Second

// PostgresRepository is a concrete implementation of the Repository interface for PostgreSQL.
type PostgresRepository struct {
	db           *pgxpool.Pool
	queryTimeout time.Duration
}

// NewPostgresRepository creates a new instance of PostgresRepository. Every query is
// bounded by queryTimeout; a non-positive value falls back to five seconds.
func NewPostgresRepository(db *pgxpool.Pool, queryTimeout time.Duration) *PostgresRepository {
	if queryTimeout <= 0 {
		queryTimeout = defaultQueryTimeout
	}
	return &PostgresRepository{db: db, queryTimeout: queryTimeout}
}

func (r *PostgresRepository) withTimeout(ctx context.Context) (context.Context, context.CancelFunc) {
	return context.WithTimeout(ctx, r.queryTimeout)
}

// queryList runs a bounded list query and scans every row with scan.
func queryList[T any](ctx context.Context, r *PostgresRepository, scan func(pgx.CollectableRow) (T, error), query string, args ...any) ([]T, error) {
	ctx, cancel := r.withTimeout(ctx)
	defer cancel()

	rows, err := r.db.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	items, err := pgx.CollectRows(rows, scan)
	if err != nil {
		return nil, err
	}
	if items == nil {
		items = []T{}
	}
	return items, nil
}

// queryOne runs a single-row query. A missing row is reported as ErrNotFound.
func queryOne(ctx context.Context, r *PostgresRepository, query string, args []any, dest ...any) error {
	ctx, cancel := r.withTimeout(ctx)
	defer cancel()

	err := r.db.QueryRow(ctx, query, args...).Scan(dest...)
	if errors.Is(err, pgx.ErrNoRows) {
		return ErrNotFound
	}
	return err
}

const profileColumns = `
	id, COALESCE(email, ''), full_name, phone, country_code, avatar_url,
	COALESCE(role, 'customer'), COALESCE(NULLIF(status, ''), 'active'),
	COALESCE(is_verified, FALSE), COALESCE(is_banned, FALSE), ban_reason, banned_at, ban_expires_at,
	created_at, COALESCE(updated_at, created_at),
	address, city, state, pincode, location_lat::float8, location_lng::float8, location_updated_at,
	COALESCE(phone_verified, FALSE), phone_verified_at`

// GetProfile retrieves the base profile row for a user.
func (r *PostgresRepository) GetProfile(ctx context.Context, userID string) (*domain.Profile, error) {
	var p domain.Profile
	err := queryOne(ctx, r, "SELECT "+profileColumns+" FROM profiles WHERE id = $1", []any{userID},
		&p.ID, &p.Email, &p.FullName, &p.Phone, &p.CountryCode, &p.AvatarURL,
		&p.Role, &p.Status,
		&p.IsVerified, &p.IsBanned, &p.BanReason, &p.BannedAt, &p.BanExpiresAt,
		&p.CreatedAt, &p.UpdatedAt,
		&p.Address, &p.City, &p.State, &p.Pincode, &p.LocationLat, &p.LocationLng, &p.LocationUpdatedAt,
		&p.PhoneVerified, &p.PhoneVerifiedAt,
	)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return nil, ErrProfileNotFound
		}
		return nil, err
	}
	return &p, nil
}

// GetProfileRole returns profiles.role for a user.
func (r *PostgresRepository) GetProfileRole(ctx context.Context, userID string) (string, error) {
	var role string
	err := queryOne(ctx, r, "SELECT COALESCE(role, '') FROM profiles WHERE id = $1", []any{userID}, &role)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return "", ErrProfileNotFound
		}
		return "", err
	}
	return role, nil
}

// FindOtherProfileByPhone returns the id of a profile other than excludeUserID that owns phone.
func (r *PostgresRepository) FindOtherProfileByPhone(ctx context.Context, phone, excludeUserID string) (string, error) {
	var id string
	err := queryOne(ctx, r, `
		SELECT id FROM profiles
		WHERE phone = $1 AND ($2 = '' OR id::text <> $2)
		LIMIT 1
	`, []any{phone, excludeUserID}, &id)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return "", ErrProfileNotFound
		}
		return "", err
	}
	return id, nil
}

// ListRecentlyActiveUserIDs returns the ids of the most recently updated profiles of a role.
func (r *PostgresRepository) ListRecentlyActiveUserIDs(ctx context.Context, role string, limit int) ([]string, error) {
	return queryList(ctx, r, pgx.RowTo[string], `
		SELECT id::text FROM profiles
		WHERE role = $1
		ORDER BY COALESCE(updated_at, created_at) DESC
		LIMIT $2
	`, role, limit)
}

// ListLoginAttempts retrieves the most recent login attempts for a user.
func (r *PostgresRepository) ListLoginAttempts(ctx context.Context, userID string) ([]domain.LoginAttempt, error) {
	return queryList(ctx, r, func(row pgx.CollectableRow) (domain.LoginAttempt, error) {
		var a domain.LoginAttempt
		err := row.Scan(&a.ID, &a.Success, &a.IPAddress, &a.UserAgent, &a.Location, &a.FailureReason, &a.CreatedAt)
		return a, err
	}, `
		SELECT id, COALESCE(success, FALSE), ip_address::text, user_agent, location, failure_reason, created_at
		FROM login_attempts
		WHERE user_id = $1
		ORDER BY created_at DESC
		LIMIT $2
	`, userID, LoginAttemptsLimit)
}

// ListSessions retrieves the most recent sessions for a user.
func (r *PostgresRepository) ListSessions(ctx context.Context, userID string) ([]domain.UserSession, error) {
	return queryList(ctx, r, func(row pgx.CollectableRow) (domain.UserSession, error) {
		var s domain.UserSession
		err := row.Scan(&s.ID, &s.DeviceName, &s.Browser, &s.OS, &s.IPAddress, &s.Location,
			&s.IsCurrent, &s.Revoked, &s.CreatedAt, &s.LastActiveAt)
		return s, err
	}, `
		SELECT id, COALESCE(device_name, ''), browser, os, ip_address::text, location,
		       COALESCE(is_current, FALSE), COALESCE(revoked, FALSE), created_at, last_active_at
		FROM user_sessions
		WHERE user_id = $1
		ORDER BY created_at DESC
		LIMIT $2
	`, userID, SessionsLimit)
}

const serviceRequestColumns = `
	sr.id, COALESCE(sr.title, ''), sr.description, COALESCE(sr.status, ''), sr.estimated_price::float8,
	sr.created_at, sr.job_completed_at, sr.customer_id::text, sr.assigned_helper_id::text,
	sr.service_address, sr.service_location_lat::float8, sr.service_location_lng::float8,
	sc.name`

func scanServiceRequest(row pgx.CollectableRow) (domain.ServiceRequest, error) {
	var s domain.ServiceRequest
	err := row.Scan(&s.ID, &s.Title, &s.Description, &s.Status, &s.EstimatedPrice,
		&s.CreatedAt, &s.JobCompletedAt, &s.CustomerID, &s.AssignedHelperID,
		&s.ServiceAddress, &s.ServiceLat, &s.ServiceLng,
		&s.CategoryName, &s.CounterpartName)
	return s, err
}

// ListCustomerRequests retrieves bookings made by a customer. CounterpartName is the assigned helper.
func (r *PostgresRepository) ListCustomerRequests(ctx context.Context, customerID string) ([]domain.ServiceRequest, error) {
	return queryList(ctx, r, scanServiceRequest, `
		SELECT `+serviceRequestColumns+`, hp.full_name
		FROM service_requests sr
		LEFT JOIN service_categories sc ON sc.id = sr.category_id
		LEFT JOIN profiles hp ON hp.id = sr.assigned_helper_id
		WHERE sr.customer_id = $1
		ORDER BY sr.created_at DESC
		LIMIT $2
	`, customerID, ServiceRequestsLimit)
}

const paymentOrderColumns = `
	request_id::text, COALESCE(order_amount, 0)::bigint, payment_status, payment_method, payment_time, created_at`

func scanPaymentOrder(row pgx.CollectableRow) (domain.PaymentOrder, error) {
	var p domain.PaymentOrder
	err := row.Scan(&p.RequestID, &p.OrderAmount, &p.PaymentStatus, &p.PaymentMethod, &p.PaymentTime, &p.CreatedAt)
	return p, err
}

// ListCustomerPaymentOrders retrieves payment attempts made by a customer.
func (r *PostgresRepository) ListCustomerPaymentOrders(ctx context.Context, customerID string) ([]domain.PaymentOrder, error) {
	return queryList(ctx, r, scanPaymentOrder, `
		SELECT `+paymentOrderColumns+`
		FROM payment_orders
		WHERE customer_id = $1
		ORDER BY created_at DESC
		LIMIT $2
	`, customerID, PaymentOrdersLimit)
}

// ListReferralsByReferrer retrieves referrals made by a user, joined with the referred profile.
func (r *PostgresRepository) ListReferralsByReferrer(ctx context.Context, referrerID string) ([]domain.Referral, error) {
	return queryList(ctx, r, func(row pgx.CollectableRow) (domain.Referral, error) {
		var ref domain.Referral
		err := row.Scan(&ref.ID, &ref.Status, &ref.CreatedAt, &ref.ReferredName, &ref.ReferredEmail, &ref.ReferredRole)
		return ref, err
	}, `
		SELECT r.id, COALESCE(r.status, ''), r.created_at, p.full_name, p.email, p.role
		FROM referrals r
		LEFT JOIN profiles p ON p.id = r.referred_user_id
		WHERE r.referrer_id = $1
		ORDER BY r.created_at DESC
		LIMIT $2
	`, referrerID, ReferralsLimit)
}

// ListReferralRewards retrieves reward rows credited to a referrer.
func (r *PostgresRepository) ListReferralRewards(ctx context.Context, referrerID string) ([]domain.ReferralReward, error) {
	return queryList(ctx, r, func(row pgx.CollectableRow) (domain.ReferralReward, error) {
		var rr domain.ReferralReward
		err := row.Scan(&rr.ID, &rr.ReferralID, &rr.Status, &rr.AmountPaise, &rr.CreatedAt)
		return rr, err
	}, `
		SELECT id, referral_id::text, COALESCE(status, ''), COALESCE(amount_paise, 0)::bigint, created_at
		FROM referral_rewards
		WHERE referrer_id = $1
		ORDER BY created_at DESC
		LIMIT $2
	`, referrerID, ReferralRewardsLimit)
}

// GetReferrerName returns the full name of whoever referred the user.
func (r *PostgresRepository) GetReferrerName(ctx context.Context, referredUserID string) (*string, error) {
	var name *string
	err := queryOne(ctx, r, `
		SELECT p.full_name
		FROM referrals r
		JOIN profiles p ON p.id = r.referrer_id
		WHERE r.referred_user_id = $1
		ORDER BY r.created_at ASC
		LIMIT 1
	`, []any{referredUserID}, &name)
	if err != nil {
		return nil, err
	}
	return name, nil
}

// ListDeviceTokens retrieves push tokens registered by a user.
func (r *PostgresRepository) ListDeviceTokens(ctx context.Context, userID string) ([]domain.DeviceToken, error) {
	return queryList(ctx, r, func(row pgx.CollectableRow) (domain.DeviceToken, error) {
		var t domain.DeviceToken
		err := row.Scan(&t.ID, &t.DeviceType, &t.Provider, &t.IsActive, &t.LastSeenAt, &t.CreatedAt)
		return t, err
	}, `
		SELECT id, device_type, COALESCE(provider, ''), COALESCE(is_active, FALSE), last_seen_at, created_at
		FROM device_tokens
		WHERE user_id = $1
		ORDER BY created_at DESC
		LIMIT $2
	`, userID, DeviceTokensLimit)
}

// GetNotificationPrefs retrieves the notification channel toggles for a user.
func (r *PostgresRepository) GetNotificationPrefs(ctx context.Context, userID string) (*domain.NotificationPrefs, error) {
	var p domain.NotificationPrefs
	err := queryOne(ctx, r, `
		SELECT COALESCE(push_enabled, FALSE), COALESCE(in_app_enabled, FALSE),
		       COALESCE(email_enabled, FALSE), COALESCE(sms_enabled, FALSE)
		FROM user_notification_prefs
		WHERE user_id = $1
	`, []any{userID}, &p.PushEnabled, &p.InAppEnabled, &p.EmailEnabled, &p.SMSEnabled)
	if err != nil {
		return nil, err
	}
	return &p, nil
}

// GetLoyaltyPoints retrieves the loyalty balance and tier for a user.
func (r *PostgresRepository) GetLoyaltyPoints(ctx context.Context, userID string) (*domain.LoyaltyPoints, error) {
	var l domain.LoyaltyPoints
	err := queryOne(ctx, r, `
		SELECT COALESCE(points_balance, 0)::bigint, tier
		FROM loyalty_points
		WHERE user_id = $1
	`, []any{userID}, &l.PointsBalance, &l.Tier)
	if err != nil {
		return nil, err
	}
	return &l, nil
}

func scanReview(row pgx.CollectableRow) (domain.Review, error) {
	var rv domain.Review
	err := row.Scan(&rv.ID, &rv.Rating, &rv.Comment, &rv.CreatedAt, &rv.CounterpartName)
	return rv, err
}

// ListReviewsByCustomer retrieves reviews a customer wrote. CounterpartName is the reviewed helper.
func (r *PostgresRepository) ListReviewsByCustomer(ctx context.Context, customerID string) ([]domain.Review, error) {
	return queryList(ctx, r, scanReview, `
		SELECT rv.id, COALESCE(rv.rating, 0)::float8, rv.comment, rv.created_at, p.full_name
		FROM reviews rv
		LEFT JOIN profiles p ON p.id = rv.helper_id
		WHERE rv.customer_id = $1
		ORDER BY rv.created_at DESC
		LIMIT $2
	`, customerID, ReviewsLimit)
}

// ListSupportTickets retrieves support tickets opened by a user.
func (r *PostgresRepository) ListSupportTickets(ctx context.Context, userID string) ([]domain.SupportTicket, error) {
	return queryList(ctx, r, func(row pgx.CollectableRow) (domain.SupportTicket, error) {
		var t domain.SupportTicket
		err := row.Scan(&t.ID, &t.Subject, &t.Status, &t.Priority, &t.CreatedAt)
		return t, err
	}, `
		SELECT id, COALESCE(subject, ''), COALESCE(status, ''), COALESCE(priority, ''), created_at
		FROM support_tickets
		WHERE user_id = $1
		ORDER BY created_at DESC
		LIMIT $2
	`, userID, SupportTicketsLimit)
}

// ListLegalAcceptances retrieves the legal documents a user accepted.
func (r *PostgresRepository) ListLegalAcceptances(ctx context.Context, userID string) ([]domain.LegalAcceptance, error) {
	return queryList(ctx, r, func(row pgx.CollectableRow) (domain.LegalAcceptance, error) {
		var l domain.LegalAcceptance
		err := row.Scan(&l.DocumentType, &l.AcceptedAt, &l.IP)
		return l, err
	}, `
		SELECT COALESCE(document_type, ''), accepted_at, ip::text
		FROM legal_acceptances
		WHERE user_id = $1
		ORDER BY accepted_at DESC
		LIMIT $2
	`, userID, LegalAcceptancesLimit)
}

// GetWalletAccount retrieves the wallet balances for a user.
func (r *PostgresRepository) GetWalletAccount(ctx context.Context, userID string) (*domain.WalletAccount, error) {
	var w domain.WalletAccount
	err := queryOne(ctx, r, `
		SELECT COALESCE(available_balance, 0)::float8, COALESCE(escrow_balance, 0)::float8, updated_at
		FROM wallet_accounts
		WHERE user_id = $1
	`, []any{userID}, &w.AvailableBalance, &w.EscrowBalance, &w.UpdatedAt)
	if err != nil {
		return nil, err
	}
	return &w, nil
}

// ListPromoCodeUsages retrieves promo codes applied by a user.
func (r *PostgresRepository) ListPromoCodeUsages(ctx context.Context, userID string) ([]domain.PromoCodeUsage, error) {
	return queryList(ctx, r, func(row pgx.CollectableRow) (domain.PromoCodeUsage, error) {
		var u domain.PromoCodeUsage
		err := row.Scan(&u.Code, &u.AppliedAmountPaise, &u.CreatedAt)
		return u, err
	}, `
		SELECT COALESCE(pc.code, ''), COALESCE(u.applied_amount_paise, 0)::bigint, u.created_at
		FROM promo_code_usages u
		JOIN promo_codes pc ON pc.id = u.promo_code_id
		WHERE u.user_id = $1
		ORDER BY u.created_at DESC
		LIMIT $2
	`, userID, PromoUsagesLimit)
}

// directorySortColumns whitelists the columns a directory listing may be ordered by.
var directorySortColumns = map[string]string{
	"created_at": "p.created_at",
	"full_name":  "p.full_name",
	"email":      "p.email",
	"status":     "p.status",
}

// ListProfiles returns one page of the admin directory for a role plus the total match count.
func (r *PostgresRepository) ListProfiles(ctx context.Context, filter domain.ProfileListFilter) (*domain.ProfileListPage, error) {
	where, args := buildDirectoryWhere(filter)

	from := "FROM profiles p"
	if filter.Role == domain.RoleHelper {
		from += " LEFT JOIN helper_profiles hp ON hp.user_id = p.id"
	}

	ctx, cancel := r.withTimeout(ctx)
	defer cancel()

	var total int
	if err := r.db.QueryRow(ctx, "SELECT COUNT(*) "+from+" WHERE "+where, args...).Scan(&total); err != nil {
		return nil, fmt.Errorf("count profiles: %w", err)
	}

	sortColumn, ok := directorySortColumns[filter.SortBy]
	if !ok {
		sortColumn = directorySortColumns["created_at"]
	}
	direction := "DESC"
	if filter.SortAscending {
		direction = "ASC"
	}

	columns := `p.id, COALESCE(p.email, ''), p.full_name, p.phone, COALESCE(NULLIF(p.status, ''), 'active'),
		COALESCE(p.is_banned, FALSE), p.created_at, p.address, p.city, p.state,
		p.location_lat::float8, p.location_lng::float8`
	if filter.Role == domain.RoleHelper {
		columns += `, hp.id::text, COALESCE(hp.is_approved, FALSE), hp.verification_status,
		COALESCE(hp.service_categories::text[], '{}'), hp.latitude::float8, hp.longitude::float8,
		hp.updated_at, COALESCE(hp.is_available_now, FALSE)`
	}

	limitArg := len(args) + 1
	query := fmt.Sprintf("SELECT %s %s WHERE %s ORDER BY %s %s NULLS LAST, p.id LIMIT $%d OFFSET $%d",
		columns, from, where, sortColumn, direction, limitArg, limitArg+1)
	args = append(args, filter.Limit, filter.Offset)

	rows, err := r.db.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list profiles: %w", err)
	}
	summaries, err := pgx.CollectRows(rows, func(row pgx.CollectableRow) (domain.ProfileSummary, error) {
		var s domain.ProfileSummary
		dest := []any{&s.ID, &s.Email, &s.FullName, &s.Phone, &s.Status, &s.IsBanned, &s.CreatedAt,
			&s.Address, &s.City, &s.State, &s.LocationLat, &s.LocationLng}
		if filter.Role != domain.RoleHelper {
			return s, row.Scan(dest...)
		}

		var (
			helperID *string
			hs       domain.HelperProfileSummary
		)
		dest = append(dest, &helperID, &hs.IsApproved, &hs.VerificationStatus, &hs.ServiceCategories,
			&hs.Latitude, &hs.Longitude, &hs.UpdatedAt, &hs.IsAvailableNow)
		if err := row.Scan(dest...); err != nil {
			return s, err
		}
		if helperID != nil {
			hs.ID = *helperID
			s.Helper = &hs
		}
		return s, nil
	})
	if err != nil {
		return nil, fmt.Errorf("scan profiles: %w", err)
	}
	if summaries == nil {
		summaries = []domain.ProfileSummary{}
	}

	return &domain.ProfileListPage{Data: summaries, Count: total}, nil
}

// buildDirectoryWhere renders the WHERE clause and positional args for a directory filter.
func buildDirectoryWhere(filter domain.ProfileListFilter) (string, []any) {
	clauses := []string{"p.role = $1"}
	args := []any{filter.Role}

	if search := strings.TrimSpace(filter.Search); search != "" {
		args = append(args, "%"+escapeLike(search)+"%")
		n := len(args)
		clauses = append(clauses, fmt.Sprintf("(p.email ILIKE $%d OR p.full_name ILIKE $%d OR p.phone ILIKE $%d)", n, n, n))
	}

	switch status := strings.TrimSpace(filter.Status); status {
	case "", "all":
	case "banned":
		clauses = append(clauses, "p.is_banned = TRUE")
	default:
		args = append(args, status)
		clauses = append(clauses, fmt.Sprintf("p.status = $%d", len(args)))
	}

	if filter.Role == domain.RoleHelper {
		if vs := strings.TrimSpace(filter.VerificationStatus); vs != "" && vs != "all" {
			args = append(args, vs)
			clauses = append(clauses, fmt.Sprintf("hp.verification_status = $%d", len(args)))
		}
	}

	return strings.Join(clauses, " AND "), args
}

var likeEscaper = strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)

func escapeLike(s string) string {
	return likeEscaper.Replace(s)
}
