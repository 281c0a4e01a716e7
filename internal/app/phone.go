/**
 * @description
 * This file implements the phone pre-check run before a client starts the external
 * OTP challenge: number sanity validation, the "already registered" guard, and a
 * per-number rate limit. OTP issuance and verification stay with the identity provider.
 */
package app

import (
	"context"
	"errors"
	"fmt"
	"math"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/helparo/admin-service/internal/domain"
	"github.com/helparo/admin-service/internal/store"
)

// PhoneValidationError reports a number that fails the sanity checks.
type PhoneValidationError struct {
	Message string
}

func (e *PhoneValidationError) Error() string { return e.Message }

var (
	ErrPhoneRequired = &PhoneValidationError{Message: "Phone number is required"}
	ErrPhoneFormat   = &PhoneValidationError{Message: "Invalid phone number format"}
	ErrPhoneRegion   = &PhoneValidationError{Message: "Invalid Indian phone number"}
	ErrPhoneBlocked  = &PhoneValidationError{Message: "Please enter a valid phone number"}

	ErrPhoneExists = errors.New("This phone number is already registered with another account")
)

// RateLimitedError is returned when a number has exhausted its attempts for the window.
type RateLimitedError struct {
	RetryAfterSeconds int
}

func (e *RateLimitedError) Error() string {
	return "Too many OTP requests. Please wait before trying again."
}

// BlockedError is returned while a number is locked out after exceeding its attempts.
type BlockedError struct {
	Until             time.Time
	RetryAfterSeconds int
}

func (e *BlockedError) Error() string {
	minutes := int(math.Ceil(float64(e.RetryAfterSeconds) / 60))
	return fmt.Sprintf("Too many attempts. Please try again in %d minutes.", minutes)
}

var blockedPhones = map[string]struct{}{
	"1234567890": {},
	"0123456789": {},
	"9876543210": {},
}

// ValidatePhone strips non-digits and returns the 10 digit national number.
func ValidatePhone(raw string) (string, error) {
	if strings.TrimSpace(raw) == "" {
		return "", ErrPhoneRequired
	}

	var b strings.Builder
	for _, r := range raw {
		if r >= '0' && r <= '9' {
			b.WriteRune(r)
		}
	}
	digits := b.String()

	if len(digits) != 10 {
		return "", ErrPhoneFormat
	}
	if digits[0] < '6' || digits[0] > '9' {
		return "", ErrPhoneRegion
	}
	if strings.Count(digits, digits[:1]) == len(digits) {
		return "", ErrPhoneBlocked
	}
	if _, blocked := blockedPhones[digits]; blocked {
		return "", ErrPhoneBlocked
	}
	return digits, nil
}

// MaskPhone keeps the last four digits, padded to ten characters.
func MaskPhone(phone string) string {
	if len(phone) <= 4 {
		return phone
	}
	tail := phone[len(phone)-4:]
	return strings.Repeat("*", 10-len(tail)) + tail
}

// RateLimiter counts one attempt for subject within scope under policy.
type RateLimiter interface {
	Attempt(ctx context.Context, scope, subject string, policy domain.AttemptPolicy) (domain.AttemptDecision, error)
}

// PhoneCheckConfig bounds the attempts per number. A zero Block disables the lockout.
type PhoneCheckConfig struct {
	Limit  int
	Window time.Duration
	Block  time.Duration
}

// PhoneChecker runs the pre-OTP phone checks.
type PhoneChecker struct {
	repo    store.Repository
	limiter RateLimiter
	logger  *zap.Logger
	cfg     PhoneCheckConfig
	now     func() time.Time
}

// NewPhoneChecker creates a new PhoneChecker. limiter may be nil to disable rate limiting.
func NewPhoneChecker(repo store.Repository, limiter RateLimiter, logger *zap.Logger, cfg PhoneCheckConfig) *PhoneChecker {
	if logger == nil {
		logger = zap.NewNop()
	}
	if cfg.Limit <= 0 {
		cfg.Limit = 5
	}
	if cfg.Window <= 0 {
		cfg.Window = 15 * time.Minute
	}
	if cfg.Block < 0 {
		cfg.Block = 0
	}
	return &PhoneChecker{repo: repo, limiter: limiter, logger: logger.Named("phone_check"), cfg: cfg, now: time.Now}
}

// PhoneCheckResult is returned when the client may proceed to the OTP challenge.
type PhoneCheckResult struct {
	Phone       string `json:"phone"`
	MaskedPhone string `json:"masked_phone"`
}

// Check validates raw for callerID. Limiter failures are logged and do not block.
func (c *PhoneChecker) Check(ctx context.Context, callerID, raw string) (*PhoneCheckResult, error) {
	phone, err := ValidatePhone(raw)
	if err != nil {
		return nil, err
	}

	_, err = c.repo.FindOtherProfileByPhone(ctx, phone, callerID)
	switch {
	case err == nil:
		return nil, ErrPhoneExists
	case errors.Is(err, store.ErrProfileNotFound):
	default:
		return nil, fmt.Errorf("check phone ownership: %w", err)
	}

	if c.limiter != nil {
		policy := domain.AttemptPolicy{Limit: c.cfg.Limit, Window: c.cfg.Window, Block: c.cfg.Block}
		decision, err := c.limiter.Attempt(ctx, "phone_check", phone, policy)
		if err != nil {
			c.logger.Warn("phone rate limit check failed; continuing", zap.Error(err))
		} else if err := c.refusal(decision); err != nil {
			return nil, err
		}
	}

	return &PhoneCheckResult{Phone: phone, MaskedPhone: MaskPhone(phone)}, nil
}

func (c *PhoneChecker) refusal(d domain.AttemptDecision) error {
	retry := int(math.Ceil(d.RetryAfter.Seconds()))
	if retry < 1 {
		retry = 1
	}
	switch d.Status {
	case domain.AttemptBlocked:
		return &BlockedError{Until: c.now().Add(d.RetryAfter).UTC(), RetryAfterSeconds: retry}
	case domain.AttemptRateLimited:
		return &RateLimitedError{RetryAfterSeconds: retry}
	default:
		return nil
	}
}
