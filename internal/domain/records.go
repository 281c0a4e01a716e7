/**
 * @description
 * This file defines one struct per source relation read by the profile aggregator.
 * Each struct mirrors the columns selected by the store, already joined where the
 * original relation needs a lookup (category name, counterpart name, plan name).
 *
 * @notes
 * - Money columns are `int64` in the smallest currency unit (paise).
 * - The aggregator never mutates any of these rows.
 */
package domain

import "time"

// ServiceRequest statuses.
const (
	RequestDraft      = "draft"
	RequestOpen       = "open"
	RequestAssigned   = "assigned"
	RequestInProgress = "in_progress"
	RequestCompleted  = "completed"
	RequestCancelled  = "cancelled"
)

// LoginAttempt maps to `login_attempts`.
type LoginAttempt struct {
	ID            string    `json:"id"`
	Success       bool      `json:"success"`
	IPAddress     *string   `json:"ip_address"`
	UserAgent     *string   `json:"user_agent"`
	Location      *string   `json:"location"`
	FailureReason *string   `json:"failure_reason"`
	CreatedAt     time.Time `json:"created_at"`
}

// UserSession maps to `user_sessions`.
type UserSession struct {
	ID           string     `json:"id"`
	DeviceName   string     `json:"device_name"`
	Browser      *string    `json:"browser"`
	OS           *string    `json:"os"`
	IPAddress    *string    `json:"ip_address"`
	Location     *string    `json:"location"`
	IsCurrent    bool       `json:"is_current"`
	Revoked      bool       `json:"revoked"`
	CreatedAt    time.Time  `json:"created_at"`
	LastActiveAt *time.Time `json:"last_active_at"`
}

// ServiceRequest maps to `service_requests` joined with its category and counterpart profile.
// CounterpartName is the assigned helper's name in the customer view and the customer's
// name in the helper view.
type ServiceRequest struct {
	ID               string     `json:"id"`
	Title            string     `json:"title"`
	Description      *string    `json:"description"`
	Status           string     `json:"status"`
	EstimatedPrice   *float64   `json:"estimated_price"`
	CreatedAt        time.Time  `json:"created_at"`
	JobCompletedAt   *time.Time `json:"job_completed_at"`
	CustomerID       string     `json:"customer_id"`
	AssignedHelperID *string    `json:"assigned_helper_id"`
	ServiceAddress   *string    `json:"service_address"`
	ServiceLat       *float64   `json:"service_location_lat"`
	ServiceLng       *float64   `json:"service_location_lng"`
	CategoryName     *string    `json:"category_name"`
	CounterpartName  *string    `json:"counterpart_name"`
}

// PaymentOrder maps to `payment_orders`. One row per payment attempt.
type PaymentOrder struct {
	RequestID     *string    `json:"request_id"`
	OrderAmount   int64      `json:"order_amount"`
	PaymentStatus *string    `json:"payment_status"`
	PaymentMethod *string    `json:"payment_method"`
	PaymentTime   *time.Time `json:"payment_time"`
	CreatedAt     time.Time  `json:"created_at"`
}

// Referral maps to `referrals` joined with the referred profile.
type Referral struct {
	ID            string    `json:"id"`
	Status        string    `json:"status"`
	CreatedAt     time.Time `json:"created_at"`
	ReferredName  *string   `json:"referred_name"`
	ReferredEmail *string   `json:"referred_email"`
	ReferredRole  *string   `json:"referred_role"`
}

// ReferralReward maps to `referral_rewards`.
type ReferralReward struct {
	ID          string    `json:"id"`
	ReferralID  *string   `json:"referral_id"`
	Status      string    `json:"status"`
	AmountPaise int64     `json:"amount_paise"`
	CreatedAt   time.Time `json:"created_at"`
}

// DeviceToken maps to `device_tokens`.
type DeviceToken struct {
	ID         string     `json:"id"`
	DeviceType *string    `json:"device_type"`
	Provider   string     `json:"provider"`
	IsActive   bool       `json:"is_active"`
	LastSeenAt *time.Time `json:"last_seen_at"`
	CreatedAt  time.Time  `json:"created_at"`
}

// NotificationPrefs maps to `user_notification_prefs`.
type NotificationPrefs struct {
	PushEnabled  bool `json:"push_enabled"`
	InAppEnabled bool `json:"in_app_enabled"`
	EmailEnabled bool `json:"email_enabled"`
	SMSEnabled   bool `json:"sms_enabled"`
}

// LoyaltyPoints maps to `loyalty_points`.
type LoyaltyPoints struct {
	PointsBalance int64   `json:"points_balance"`
	Tier          *string `json:"tier"`
}

// Review maps to `reviews` joined with the counterpart profile name.
type Review struct {
	ID              string    `json:"id"`
	Rating          float64   `json:"rating"`
	Comment         *string   `json:"comment"`
	CreatedAt       time.Time `json:"created_at"`
	CounterpartName *string   `json:"counterpart_name"`
}

// SupportTicket maps to `support_tickets`.
type SupportTicket struct {
	ID        string    `json:"id"`
	Subject   string    `json:"subject"`
	Status    string    `json:"status"`
	Priority  string    `json:"priority"`
	CreatedAt time.Time `json:"created_at"`
}

// LegalAcceptance maps to `legal_acceptances`.
type LegalAcceptance struct {
	DocumentType string    `json:"document_type"`
	AcceptedAt   time.Time `json:"accepted_at"`
	IP           *string   `json:"ip"`
}

// WalletAccount maps to `wallet_accounts`.
type WalletAccount struct {
	AvailableBalance float64    `json:"available_balance"`
	EscrowBalance    float64    `json:"escrow_balance"`
	UpdatedAt        *time.Time `json:"updated_at"`
}

// PromoCodeUsage maps to `promo_code_usages` joined with `promo_codes`.
type PromoCodeUsage struct {
	Code               string    `json:"code"`
	AppliedAmountPaise int64     `json:"applied_amount_paise"`
	CreatedAt          time.Time `json:"created_at"`
}

// HelperProfile maps to `helper_profiles`, the one-to-one helper extension of a profile.
type HelperProfile struct {
	ID                 string     `json:"id"`
	UserID             string     `json:"user_id"`
	ServiceCategories  []string   `json:"service_categories"`
	Skills             []string   `json:"skills"`
	ServiceAreas       []string   `json:"service_areas"`
	ExperienceYears    *int       `json:"experience_years"`
	HourlyRate         *float64   `json:"hourly_rate"`
	ServiceRadius      *float64   `json:"service_radius"`
	IsApproved         bool       `json:"is_approved"`
	VerificationStatus *string    `json:"verification_status"`
	Bio                *string    `json:"bio"`
	ResponseRate       *float64   `json:"response_rate"`
	AcceptanceRate     *float64   `json:"acceptance_rate"`
	CurrentLat         *float64   `json:"current_location_lat"`
	CurrentLng         *float64   `json:"current_location_lng"`
	Latitude           *float64   `json:"latitude"`
	Longitude          *float64   `json:"longitude"`
	LocationUpdatedAt  *time.Time `json:"location_updated_at"`
	UpdatedAt          *time.Time `json:"updated_at"`
	IsOnline           *bool      `json:"is_online"`
	IsAvailableNow     bool       `json:"is_available_now"`
}

// LocationPoint maps to `helper_location_history`.
type LocationPoint struct {
	Latitude   float64   `json:"latitude"`
	Longitude  float64   `json:"longitude"`
	RecordedAt time.Time `json:"recorded_at"`
	RequestID  *string   `json:"request_id"`
}

// BackgroundCheck maps to `background_check_results`.
type BackgroundCheck struct {
	ID                string     `json:"id"`
	CheckType         string     `json:"check_type"`
	Status            string     `json:"status"`
	VerificationScore *float64   `json:"verification_score"`
	VerifiedAt        *time.Time `json:"verified_at"`
	ExpiresAt         *time.Time `json:"expires_at"`
}

// TrustScore maps to `helper_trust_scores`.
type TrustScore struct {
	OverallScore      *float64 `json:"overall_score"`
	VerificationScore float64  `json:"verification_score"`
	RatingScore       float64  `json:"rating_score"`
	CompletionScore   float64  `json:"completion_score"`
	ResponseScore     float64  `json:"response_score"`
}

// Badge maps to `helper_badges` joined with `badge_definitions`.
type Badge struct {
	Name        string    `json:"name"`
	Description *string   `json:"description"`
	IconURL     *string   `json:"icon_url"`
	EarnedAt    time.Time `json:"earned_at"`
}

// Earning maps to `helper_earnings`.
type Earning struct {
	Amount      float64   `json:"amount"`
	Type        string    `json:"type"`
	Description *string   `json:"description"`
	CreatedAt   time.Time `json:"created_at"`
	RequestID   *string   `json:"request_id"`
}

// Subscription maps to an active `helper_subscriptions` row joined with its plan.
type Subscription struct {
	PlanName  string     `json:"plan_name"`
	Status    string     `json:"status"`
	StartedAt time.Time  `json:"started_at"`
	ExpiresAt *time.Time `json:"expires_at"`
}

// BankAccount maps to `helper_bank_accounts`. The account number is masked by the store.
type BankAccount struct {
	ID                string    `json:"id"`
	BankName          *string   `json:"bank_name"`
	AccountHolderName *string   `json:"account_holder_name"`
	AccountNumber     string    `json:"account_number"`
	IFSCCode          *string   `json:"ifsc_code"`
	IsPrimary         bool      `json:"is_primary"`
	Status            *string   `json:"status"`
	CreatedAt         time.Time `json:"created_at"`
}

// VerificationDocument maps to `verification_documents`.
type VerificationDocument struct {
	ID           string     `json:"id"`
	DocumentType string     `json:"document_type"`
	DocumentURL  *string    `json:"document_url"`
	Status       string     `json:"status"`
	VerifiedAt   *time.Time `json:"verified_at"`
	ExpiresAt    *time.Time `json:"expires_at"`
}

// Category maps to `service_categories`.
type Category struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}
