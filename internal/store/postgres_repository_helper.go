package store

import (
	"context"
	"strings"

	"github.com/jackc/pgx/v5"

	"github.com/helparo/admin-service/internal/domain"
)

// GetHelperProfile retrieves the helper extension row keyed by the owning user id.
// The live-location columns are optional in the schema, so they are read through to_jsonb.
func (r *PostgresRepository) GetHelperProfile(ctx context.Context, userID string) (*domain.HelperProfile, error) {
	var h domain.HelperProfile
	err := queryOne(ctx, r, `
		SELECT id::text, user_id::text,
		       COALESCE(service_categories::text[], '{}'), COALESCE(skills::text[], '{}'),
		       COALESCE(service_areas::text[], '{}'),
		       experience_years, hourly_rate::float8, service_radius::float8,
		       COALESCE(is_approved, FALSE), verification_status, bio,
		       response_rate::float8, acceptance_rate::float8,
		       (to_jsonb(h) ->> 'current_location_lat')::float8,
		       (to_jsonb(h) ->> 'current_location_lng')::float8,
		       latitude::float8, longitude::float8,
		       location_updated_at, updated_at,
		       (to_jsonb(h) ->> 'is_online')::boolean,
		       COALESCE(is_available_now, FALSE)
		FROM helper_profiles h
		WHERE user_id = $1
	`, []any{userID},
		&h.ID, &h.UserID,
		&h.ServiceCategories, &h.Skills, &h.ServiceAreas,
		&h.ExperienceYears, &h.HourlyRate, &h.ServiceRadius,
		&h.IsApproved, &h.VerificationStatus, &h.Bio,
		&h.ResponseRate, &h.AcceptanceRate,
		&h.CurrentLat, &h.CurrentLng,
		&h.Latitude, &h.Longitude,
		&h.LocationUpdatedAt, &h.UpdatedAt,
		&h.IsOnline,
		&h.IsAvailableNow,
	)
	if err != nil {
		return nil, err
	}
	return &h, nil
}

// ListHelperJobs retrieves jobs assigned to a helper. CounterpartName is the booking customer.
func (r *PostgresRepository) ListHelperJobs(ctx context.Context, helperID string) ([]domain.ServiceRequest, error) {
	return queryList(ctx, r, scanServiceRequest, `
		SELECT `+serviceRequestColumns+`, cp.full_name
		FROM service_requests sr
		LEFT JOIN service_categories sc ON sc.id = sr.category_id
		LEFT JOIN profiles cp ON cp.id = sr.customer_id
		WHERE sr.assigned_helper_id = $1
		ORDER BY sr.created_at DESC
		LIMIT $2
	`, helperID, ServiceRequestsLimit)
}

// ListHelperPaymentOrders retrieves payment attempts attributed to a helper.
func (r *PostgresRepository) ListHelperPaymentOrders(ctx context.Context, helperID string) ([]domain.PaymentOrder, error) {
	return queryList(ctx, r, scanPaymentOrder, `
		SELECT `+paymentOrderColumns+`
		FROM payment_orders
		WHERE helper_id = $1
		ORDER BY created_at DESC
		LIMIT $2
	`, helperID, PaymentOrdersLimit)
}

// ListReviewsForHelper retrieves reviews a helper received. CounterpartName is the reviewing customer.
func (r *PostgresRepository) ListReviewsForHelper(ctx context.Context, helperID string) ([]domain.Review, error) {
	return queryList(ctx, r, scanReview, `
		SELECT rv.id, COALESCE(rv.rating, 0)::float8, rv.comment, rv.created_at, p.full_name
		FROM reviews rv
		LEFT JOIN profiles p ON p.id = rv.customer_id
		WHERE rv.helper_id = $1
		ORDER BY rv.created_at DESC
		LIMIT $2
	`, helperID, ReviewsLimit)
}

// ListLocationHistory retrieves recorded positions. The history table is keyed by the
// helper profile id, so callers pass that id when they have it and the user id otherwise.
func (r *PostgresRepository) ListLocationHistory(ctx context.Context, helperKey string) ([]domain.LocationPoint, error) {
	return queryList(ctx, r, func(row pgx.CollectableRow) (domain.LocationPoint, error) {
		var l domain.LocationPoint
		err := row.Scan(&l.Latitude, &l.Longitude, &l.RecordedAt, &l.RequestID)
		return l, err
	}, `
		SELECT latitude::float8, longitude::float8, recorded_at, request_id::text
		FROM helper_location_history
		WHERE helper_id = $1
		ORDER BY recorded_at DESC
		LIMIT $2
	`, helperKey, LocationHistoryLimit)
}

// ListBackgroundChecks retrieves background check results for a helper.
func (r *PostgresRepository) ListBackgroundChecks(ctx context.Context, helperID string) ([]domain.BackgroundCheck, error) {
	return queryList(ctx, r, func(row pgx.CollectableRow) (domain.BackgroundCheck, error) {
		var b domain.BackgroundCheck
		err := row.Scan(&b.ID, &b.CheckType, &b.Status, &b.VerificationScore, &b.VerifiedAt, &b.ExpiresAt)
		return b, err
	}, `
		SELECT id, COALESCE(check_type, ''), COALESCE(status, ''), verification_score::float8, verified_at, expires_at
		FROM background_check_results
		WHERE helper_id = $1
		ORDER BY created_at DESC
		LIMIT $2
	`, helperID, BackgroundChecksLimit)
}

// GetTrustScore retrieves the trust score row for a helper.
func (r *PostgresRepository) GetTrustScore(ctx context.Context, helperID string) (*domain.TrustScore, error) {
	var t domain.TrustScore
	err := queryOne(ctx, r, `
		SELECT overall_score::float8,
		       COALESCE(verification_score, 0)::float8, COALESCE(rating_score, 0)::float8,
		       COALESCE(completion_score, 0)::float8, COALESCE(response_score, 0)::float8
		FROM helper_trust_scores
		WHERE helper_id = $1
	`, []any{helperID}, &t.OverallScore, &t.VerificationScore, &t.RatingScore, &t.CompletionScore, &t.ResponseScore)
	if err != nil {
		return nil, err
	}
	return &t, nil
}

// ListBadges retrieves badges earned by a helper.
func (r *PostgresRepository) ListBadges(ctx context.Context, helperID string) ([]domain.Badge, error) {
	return queryList(ctx, r, func(row pgx.CollectableRow) (domain.Badge, error) {
		var b domain.Badge
		err := row.Scan(&b.Name, &b.Description, &b.IconURL, &b.EarnedAt)
		return b, err
	}, `
		SELECT COALESCE(bd.name, ''), bd.description, bd.icon_url, hb.earned_at
		FROM helper_badges hb
		JOIN badge_definitions bd ON bd.id = hb.badge_id
		WHERE hb.helper_id = $1
		ORDER BY hb.earned_at DESC
		LIMIT $2
	`, helperID, BadgesLimit)
}

// ListEarnings retrieves the earnings ledger for a helper.
func (r *PostgresRepository) ListEarnings(ctx context.Context, helperID string) ([]domain.Earning, error) {
	return queryList(ctx, r, func(row pgx.CollectableRow) (domain.Earning, error) {
		var e domain.Earning
		err := row.Scan(&e.Amount, &e.Type, &e.Description, &e.CreatedAt, &e.RequestID)
		return e, err
	}, `
		SELECT COALESCE(amount, 0)::float8, COALESCE(type, ''), description, created_at, request_id::text
		FROM helper_earnings
		WHERE helper_id = $1
		ORDER BY created_at DESC
		LIMIT $2
	`, helperID, EarningsLimit)
}

// GetActiveSubscription retrieves the helper's active subscription joined with its plan.
func (r *PostgresRepository) GetActiveSubscription(ctx context.Context, helperID string) (*domain.Subscription, error) {
	var s domain.Subscription
	err := queryOne(ctx, r, `
		SELECT COALESCE(sp.name, ''), hs.status, hs.started_at, hs.expires_at
		FROM helper_subscriptions hs
		JOIN subscription_plans sp ON sp.id = hs.plan_id
		WHERE hs.helper_id = $1 AND hs.status = 'active'
		ORDER BY hs.started_at DESC
		LIMIT 1
	`, []any{helperID}, &s.PlanName, &s.Status, &s.StartedAt, &s.ExpiresAt)
	if err != nil {
		return nil, err
	}
	return &s, nil
}

// ListBankAccounts retrieves payout accounts for a helper with account numbers masked.
func (r *PostgresRepository) ListBankAccounts(ctx context.Context, helperID string) ([]domain.BankAccount, error) {
	return queryList(ctx, r, func(row pgx.CollectableRow) (domain.BankAccount, error) {
		var (
			b      domain.BankAccount
			number string
		)
		err := row.Scan(&b.ID, &b.BankName, &b.AccountHolderName, &number, &b.IFSCCode, &b.IsPrimary, &b.Status, &b.CreatedAt)
		b.AccountNumber = MaskAccountNumber(number)
		return b, err
	}, `
		SELECT id, bank_name, account_holder_name, COALESCE(account_number, ''), ifsc_code,
		       COALESCE(is_primary, FALSE), status, created_at
		FROM helper_bank_accounts
		WHERE helper_id = $1
		ORDER BY created_at DESC
		LIMIT $2
	`, helperID, BankAccountsLimit)
}

// ListVerificationDocuments retrieves identity documents uploaded by a helper.
func (r *PostgresRepository) ListVerificationDocuments(ctx context.Context, helperID string) ([]domain.VerificationDocument, error) {
	return queryList(ctx, r, func(row pgx.CollectableRow) (domain.VerificationDocument, error) {
		var d domain.VerificationDocument
		err := row.Scan(&d.ID, &d.DocumentType, &d.DocumentURL, &d.Status, &d.VerifiedAt, &d.ExpiresAt)
		return d, err
	}, `
		SELECT id, COALESCE(document_type, ''), document_url, COALESCE(status, 'pending'), verified_at, expires_at
		FROM verification_documents
		WHERE helper_id = $1
		ORDER BY created_at DESC
		LIMIT $2
	`, helperID, VerificationDocumentsLimit)
}

// ListCategoriesByIDs resolves category ids to names in one batch.
func (r *PostgresRepository) ListCategoriesByIDs(ctx context.Context, ids []string) ([]domain.Category, error) {
	query, args := buildCategoryLookup(ids)
	if query == "" {
		return []domain.Category{}, nil
	}
	return queryList(ctx, r, func(row pgx.CollectableRow) (domain.Category, error) {
		var c domain.Category
		err := row.Scan(&c.ID, &c.Name)
		return c, err
	}, query, args...)
}

// buildCategoryLookup compares ids as uuid values so the token's letter case does not matter.
func buildCategoryLookup(ids []string) (string, []any) {
	seen := make(map[string]struct{}, len(ids))
	unique := make([]string, 0, len(ids))
	for _, id := range ids {
		id = strings.ToLower(strings.TrimSpace(id))
		if id == "" {
			continue
		}
		if _, dup := seen[id]; dup {
			continue
		}
		seen[id] = struct{}{}
		unique = append(unique, id)
	}
	if len(unique) == 0 {
		return "", nil
	}
	return `
		SELECT id::text, COALESCE(name, '')
		FROM service_categories
		WHERE id = ANY($1::uuid[])
	`, []any{unique}
}

// MaskAccountNumber keeps only the last four characters of an account number.
func MaskAccountNumber(number string) string {
	trimmed := strings.TrimSpace(number)
	if len(trimmed) <= 4 {
		return trimmed
	}
	return strings.Repeat("*", len(trimmed)-4) + trimmed[len(trimmed)-4:]
}
