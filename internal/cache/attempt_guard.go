package cache

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/helparo/admin-service/internal/domain"
)

const defaultAttemptPrefix = "helparo:rate_limit"

// KEYS[1] counts attempts in the window, KEYS[2] marks a lockout.
// ARGV: window ms, limit, block ms. Replies {status, attempts, retry ms}.
var attemptScript = redis.NewScript(`
local locked = redis.call("PTTL", KEYS[2])
if locked > 0 then
  return {2, 0, locked}
end

local attempts = redis.call("INCR", KEYS[1])
if attempts == 1 then
  redis.call("PEXPIRE", KEYS[1], ARGV[1])
end
if attempts <= tonumber(ARGV[2]) then
  return {0, attempts, redis.call("PTTL", KEYS[1])}
end

local block = tonumber(ARGV[3])
if block > 0 then
  redis.call("SET", KEYS[2], attempts, "PX", block)
  redis.call("DEL", KEYS[1])
  return {2, attempts, block}
end
return {1, attempts, redis.call("PTTL", KEYS[1])}
`)

// AttemptGuard enforces an AttemptPolicy per subject through Redis so every replica
// shares the same counters.
type AttemptGuard struct {
	client redis.UniversalClient
	prefix string
}

func NewAttemptGuard(client redis.UniversalClient, prefix string) *AttemptGuard {
	prefix = strings.Trim(strings.TrimSpace(prefix), ":")
	if prefix == "" {
		prefix = defaultAttemptPrefix
	}
	return &AttemptGuard{client: client, prefix: prefix}
}

func (g *AttemptGuard) keys(scope, subject string) (counter, lock string) {
	counter = g.prefix + ":" + scope + ":" + subject
	return counter, counter + ":blocked"
}

// Attempt counts one attempt by subject under scope. A disabled policy or a blank subject
// is always allowed without touching Redis.
func (g *AttemptGuard) Attempt(ctx context.Context, scope, subject string, policy domain.AttemptPolicy) (domain.AttemptDecision, error) {
	allowed := domain.AttemptDecision{Status: domain.AttemptAllowed}
	scope, subject = strings.TrimSpace(scope), strings.TrimSpace(subject)
	if g == nil || g.client == nil || policy.Limit <= 0 || policy.Window <= 0 || scope == "" || subject == "" {
		return allowed, nil
	}

	windowMs := max(policy.Window.Milliseconds(), 1)
	var blockMs int64
	if policy.Block > 0 {
		blockMs = max(policy.Block.Milliseconds(), 1)
	}

	counter, lock := g.keys(scope, subject)
	reply, err := attemptScript.Run(ctx, g.client, []string{counter, lock}, windowMs, policy.Limit, blockMs).Int64Slice()
	if err != nil {
		return allowed, fmt.Errorf("run attempt script for %s: %w", scope, err)
	}
	if len(reply) != 3 {
		return allowed, fmt.Errorf("attempt script returned %d values, want 3", len(reply))
	}

	retry := time.Duration(reply[2]) * time.Millisecond
	if retry <= 0 {
		retry = time.Duration(windowMs) * time.Millisecond
	}
	decision := domain.AttemptDecision{Attempts: int(reply[1]), RetryAfter: retry}
	switch reply[0] {
	case 0:
		decision.Status = domain.AttemptAllowed
	case 1:
		decision.Status = domain.AttemptRateLimited
	case 2:
		decision.Status = domain.AttemptBlocked
	default:
		return allowed, fmt.Errorf("attempt script returned unknown status %d", reply[0])
	}
	return decision, nil
}
