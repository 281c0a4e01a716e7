package domain

import "time"

// AttemptPolicy bounds the attempts one subject may make. Once Limit attempts have been
// made inside Window the next one is refused; with a positive Block the subject is then
// locked out for Block regardless of the window.
type AttemptPolicy struct {
	Limit  int
	Window time.Duration
	Block  time.Duration
}

// AttemptStatus is the outcome of one counted attempt.
type AttemptStatus int

const (
	AttemptAllowed AttemptStatus = iota
	AttemptRateLimited
	AttemptBlocked
)

func (s AttemptStatus) String() string {
	switch s {
	case AttemptAllowed:
		return "allowed"
	case AttemptRateLimited:
		return "rate_limited"
	case AttemptBlocked:
		return "blocked"
	default:
		return "unknown"
	}
}

// AttemptDecision reports the outcome and how long until the subject may retry.
// RetryAfter is the remaining window for allowed and rate limited attempts, and the
// remaining lockout for blocked ones.
type AttemptDecision struct {
	Status     AttemptStatus
	Attempts   int
	RetryAfter time.Duration
}
