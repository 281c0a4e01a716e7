/**
 * @description
 * This file defines the denormalized admin views returned by the profile aggregator:
 * CustomerFullDetails for any user, and HelperFullDetails which layers the helper
 * specific sections on top of it.
 *
 * @notes
 * - Every collection field is a non-nil slice so it serializes as `[]`, never `null`.
 * - Money fields are float64 in major currency units (rupees).
 */
package domain

import "time"

// LoginRecord is one entry of a user's login history.
type LoginRecord struct {
	ID            string    `json:"id"`
	IPAddress     *string   `json:"ip_address"`
	Browser       *string   `json:"browser"`
	DeviceType    *string   `json:"device_type"`
	OS            *string   `json:"os"`
	UserAgent     *string   `json:"user_agent"`
	Location      *string   `json:"location"`
	CreatedAt     time.Time `json:"created_at"`
	Success       bool      `json:"success"`
	FailureReason *string   `json:"failure_reason"`
}

// Order is a booking as seen by the admin, with its first payment joined in.
type Order struct {
	ID             string     `json:"id"`
	Title          string     `json:"title"`
	Description    *string    `json:"description"`
	Status         string     `json:"status"`
	CategoryName   *string    `json:"category_name"`
	EstimatedPrice *float64   `json:"estimated_price"`
	FinalPrice     *float64   `json:"final_price"`
	CreatedAt      time.Time  `json:"created_at"`
	CompletedAt    *time.Time `json:"completed_at"`
	HelperName     *string    `json:"helper_name"`
	HelperID       *string    `json:"helper_id"`
	PaymentMethod  *string    `json:"payment_method"`
	PaymentStatus  *string    `json:"payment_status"`
	Address        *string    `json:"address"`
	Latitude       *float64   `json:"latitude"`
	Longitude      *float64   `json:"longitude"`
}

// ReferralView is a referral made by the user.
type ReferralView struct {
	ID            string    `json:"id"`
	ReferredName  *string   `json:"referred_name"`
	ReferredEmail *string   `json:"referred_email"`
	ReferredRole  *string   `json:"referred_role"`
	Status        string    `json:"status"`
	RewardAmount  *float64  `json:"reward_amount"`
	CreatedAt     time.Time `json:"created_at"`
}

// ReviewGiven is a review the user wrote about a helper.
type ReviewGiven struct {
	ID         string    `json:"id"`
	Rating     float64   `json:"rating"`
	Comment    *string   `json:"comment"`
	HelperName *string   `json:"helper_name"`
	CreatedAt  time.Time `json:"created_at"`
}

// PromoUse is one applied promo code.
type PromoUse struct {
	Code           string    `json:"code"`
	DiscountAmount float64   `json:"discount_amount"`
	UsedAt         time.Time `json:"used_at"`
}

// CustomerFullDetails is the aggregated admin view of a single user.
type CustomerFullDetails struct {
	// Basic info
	ID           string     `json:"id"`
	Email        string     `json:"email"`
	FullName     *string    `json:"full_name"`
	Phone        *string    `json:"phone"`
	CountryCode  *string    `json:"country_code"`
	AvatarURL    *string    `json:"avatar_url"`
	Role         string     `json:"role"`
	Status       string     `json:"status"`
	IsVerified   bool       `json:"is_verified"`
	IsBanned     bool       `json:"is_banned"`
	BanReason    *string    `json:"ban_reason"`
	BannedAt     *time.Time `json:"banned_at"`
	BanExpiresAt *time.Time `json:"ban_expires_at"`
	CreatedAt    time.Time  `json:"created_at"`
	UpdatedAt    time.Time  `json:"updated_at"`

	// Location
	Address           *string    `json:"address"`
	City              *string    `json:"city"`
	State             *string    `json:"state"`
	Pincode           *string    `json:"pincode"`
	LocationLat       *float64   `json:"location_lat"`
	LocationLng       *float64   `json:"location_lng"`
	LocationUpdatedAt *time.Time `json:"location_updated_at"`

	PhoneVerified   bool       `json:"phone_verified"`
	PhoneVerifiedAt *time.Time `json:"phone_verified_at"`

	// Security and sessions
	LoginHistory        []LoginRecord `json:"login_history"`
	ActiveSessions      []UserSession `json:"active_sessions"`
	TotalSessions       int           `json:"total_sessions"`
	FailedLoginAttempts int           `json:"failed_login_attempts"`
	LastLoginIP         *string       `json:"last_login_ip"`
	LastLoginBrowser    *string       `json:"last_login_browser"`
	LastLoginDevice     *string       `json:"last_login_device"`
	LastLoginOS         *string       `json:"last_login_os"`
	LastLoginAt         *time.Time    `json:"last_login_at"`

	// Orders and payments
	Orders                 []Order `json:"orders"`
	TotalOrders            int     `json:"total_orders"`
	CompletedOrders        int     `json:"completed_orders"`
	CancelledOrders        int     `json:"cancelled_orders"`
	PendingOrders          int     `json:"pending_orders"`
	TotalSpent             float64 `json:"total_spent"`
	PreferredPaymentMethod *string `json:"preferred_payment_method"`

	// Referrals
	Referrals           []ReferralView `json:"referrals"`
	TotalReferrals      int            `json:"total_referrals"`
	SuccessfulReferrals int            `json:"successful_referrals"`
	ReferralEarnings    float64        `json:"referral_earnings"`
	ReferredBy          *string        `json:"referred_by"`

	// App usage
	DeviceTokens    []DeviceToken `json:"device_tokens"`
	HasAppInstalled bool          `json:"has_app_installed"`
	LastAppActivity *time.Time    `json:"last_app_activity"`

	NotificationPrefs *NotificationPrefs `json:"notification_prefs"`

	LoyaltyPoints int64   `json:"loyalty_points"`
	LoyaltyTier   *string `json:"loyalty_tier"`

	ReviewsGiven     []ReviewGiven     `json:"reviews_given"`
	SupportTickets   []SupportTicket   `json:"support_tickets"`
	LegalAcceptances []LegalAcceptance `json:"legal_acceptances"`
	WalletBalance    float64           `json:"wallet_balance"`
	PromoCodesUsed   []PromoUse        `json:"promo_codes_used"`
}

// TrustScoreBreakdown is the per-dimension part of a helper trust score.
type TrustScoreBreakdown struct {
	VerificationScore float64 `json:"verification_score"`
	RatingScore       float64 `json:"rating_score"`
	CompletionScore   float64 `json:"completion_score"`
	ResponseScore     float64 `json:"response_score"`
}

// ServiceArea is a named area a helper serves.
type ServiceArea struct {
	AreaName string  `json:"area_name"`
	Pincode  *string `json:"pincode"`
}

// AvailabilitySlot is one weekly availability window.
type AvailabilitySlot struct {
	DayOfWeek   int    `json:"day_of_week"`
	StartTime   string `json:"start_time"`
	EndTime     string `json:"end_time"`
	IsAvailable bool   `json:"is_available"`
}

// HelperFullDetails extends the customer view with the helper specific sections.
// Orders holds the jobs assigned to the helper instead of the bookings they made.
type HelperFullDetails struct {
	CustomerFullDetails

	HelperProfileID    *string  `json:"helper_profile_id"`
	ServiceCategories  []string `json:"service_categories"`
	Skills             []string `json:"skills"`
	ExperienceYears    *int     `json:"experience_years"`
	HourlyRate         *float64 `json:"hourly_rate"`
	ServiceRadius      *float64 `json:"service_radius"`
	IsApproved         bool     `json:"is_approved"`
	VerificationStatus *string  `json:"verification_status"`
	Bio                *string  `json:"bio"`

	// Stats
	TotalJobsCompleted int      `json:"total_jobs_completed"`
	TotalJobsAssigned  int      `json:"total_jobs_assigned"`
	PendingJobs        int      `json:"pending_jobs"`
	InProgressJobs     int      `json:"in_progress_jobs"`
	CancelledJobs      int      `json:"cancelled_jobs"`
	TotalEarnings      float64  `json:"total_earnings"`
	AverageRating      float64  `json:"average_rating"`
	TotalReviews       int      `json:"total_reviews"`
	ResponseRate       *float64 `json:"response_rate"`
	AcceptanceRate     *float64 `json:"acceptance_rate"`
	CompletionRate     *int     `json:"completion_rate"`

	CurrentLocationLat       *float64   `json:"current_location_lat"`
	CurrentLocationLng       *float64   `json:"current_location_lng"`
	CurrentLocationUpdatedAt *time.Time `json:"current_location_updated_at"`
	IsOnline                 bool       `json:"is_online"`

	LocationHistory     []LocationPoint        `json:"location_history"`
	Documents           []VerificationDocument `json:"documents"`
	BackgroundChecks    []BackgroundCheck      `json:"background_checks"`
	TrustScore          *float64               `json:"trust_score"`
	TrustScoreBreakdown *TrustScoreBreakdown   `json:"trust_score_breakdown"`
	Badges              []Badge                `json:"badges"`
	EarningsHistory     []Earning              `json:"earnings_history"`
	Subscription        *Subscription          `json:"subscription"`
	ServiceAreas        []ServiceArea          `json:"service_areas"`
	Availability        []AvailabilitySlot     `json:"availability"`
	BankAccounts        []BankAccount          `json:"bank_accounts"`
}
