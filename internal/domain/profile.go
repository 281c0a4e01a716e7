/**
 * @description
 * This file defines the profile models shared by the admin-service: the canonical
 * per-user identity row, the summary rows used by the admin directory, and the
 * filter accepted by directory listings.
 *
 * @notes
 * - Nullable columns are pointers; booleans and status are coerced with COALESCE in SQL
 *   so they are always present here.
 */
package domain

import "time"

// Role values stored in profiles.role.
const (
	RoleCustomer = "customer"
	RoleHelper   = "helper"
	RoleAdmin    = "admin"
)

// Profile status values.
const (
	StatusActive    = "active"
	StatusInactive  = "inactive"
	StatusSuspended = "suspended"
)

// Profile maps to the `profiles` table.
type Profile struct {
	ID                string     `json:"id"`
	Email             string     `json:"email"`
	FullName          *string    `json:"full_name"`
	Phone             *string    `json:"phone"`
	CountryCode       *string    `json:"country_code"`
	AvatarURL         *string    `json:"avatar_url"`
	Role              string     `json:"role"`
	Status            string     `json:"status"`
	IsVerified        bool       `json:"is_verified"`
	IsBanned          bool       `json:"is_banned"`
	BanReason         *string    `json:"ban_reason"`
	BannedAt          *time.Time `json:"banned_at"`
	BanExpiresAt      *time.Time `json:"ban_expires_at"`
	CreatedAt         time.Time  `json:"created_at"`
	UpdatedAt         time.Time  `json:"updated_at"`
	Address           *string    `json:"address"`
	City              *string    `json:"city"`
	State             *string    `json:"state"`
	Pincode           *string    `json:"pincode"`
	LocationLat       *float64   `json:"location_lat"`
	LocationLng       *float64   `json:"location_lng"`
	LocationUpdatedAt *time.Time `json:"location_updated_at"`
	PhoneVerified     bool       `json:"phone_verified"`
	PhoneVerifiedAt   *time.Time `json:"phone_verified_at"`
}

// ProfileSummary is one row of the admin customer/helper directory.
type ProfileSummary struct {
	ID          string                `json:"id"`
	Email       string                `json:"email"`
	FullName    *string               `json:"full_name"`
	Phone       *string               `json:"phone"`
	Status      string                `json:"status"`
	IsBanned    bool                  `json:"is_banned"`
	CreatedAt   time.Time             `json:"created_at"`
	Address     *string               `json:"address"`
	City        *string               `json:"city"`
	State       *string               `json:"state"`
	LocationLat *float64              `json:"location_lat"`
	LocationLng *float64              `json:"location_lng"`
	Helper      *HelperProfileSummary `json:"helper_profile,omitempty"`
}

// HelperProfileSummary is the helper_profiles slice joined into helper directory rows.
type HelperProfileSummary struct {
	ID                 string     `json:"id"`
	IsApproved         bool       `json:"is_approved"`
	VerificationStatus *string    `json:"verification_status"`
	ServiceCategories  []string   `json:"service_categories"`
	Latitude           *float64   `json:"latitude"`
	Longitude          *float64   `json:"longitude"`
	UpdatedAt          *time.Time `json:"updated_at"`
	IsAvailableNow     bool       `json:"is_available_now"`
}

// ProfileListFilter narrows a directory listing. Zero values mean "no filter".
type ProfileListFilter struct {
	Role               string
	Search             string
	Status             string // "all", "banned", or an exact profiles.status value
	VerificationStatus string // helpers only
	SortBy             string
	SortAscending      bool
	Limit              int
	Offset             int
}

// ProfileListPage is a page of directory rows plus the total matching count.
type ProfileListPage struct {
	Data  []ProfileSummary `json:"data"`
	Count int              `json:"count"`
}
