package app

import (
	"math"
	"strings"
	"time"

	"github.com/helparo/admin-service/internal/domain"
)

// Status vocabularies. A status outside every set falls into no bucket.
var (
	paidPaymentStatuses        = stringSet("paid", "success", "completed")
	customerPendingStatuses    = stringSet(domain.RequestOpen, domain.RequestAssigned, domain.RequestInProgress, domain.RequestDraft)
	helperPendingStatuses      = stringSet(domain.RequestOpen, domain.RequestAssigned)
	successfulReferralStatuses = stringSet("converted", "rewarded")
	grantedRewardStatuses      = stringSet("granted")
)

const failedLoginWindow = 24 * time.Hour

func stringSet(values ...string) map[string]struct{} {
	set := make(map[string]struct{}, len(values))
	for _, v := range values {
		set[v] = struct{}{}
	}
	return set
}

func inSet(set map[string]struct{}, value string) bool {
	_, ok := set[value]
	return ok
}

// paise converts minor currency units to rupees.
func paise(amount int64) float64 {
	return float64(amount) / 100
}

// orderCounts buckets bookings by status membership.
type orderCounts struct {
	total      int
	completed  int
	cancelled  int
	pending    int
	inProgress int
}

func countOrders(requests []domain.ServiceRequest, pending map[string]struct{}) orderCounts {
	c := orderCounts{total: len(requests)}
	for _, r := range requests {
		switch {
		case r.Status == domain.RequestCompleted:
			c.completed++
		case r.Status == domain.RequestCancelled:
			c.cancelled++
		case inSet(pending, r.Status):
			c.pending++
		}
		if r.Status == domain.RequestInProgress {
			c.inProgress++
		}
	}
	return c
}

// paidTotal sums paid orders in minor units before converting, case-insensitively on status.
func paidTotal(orders []domain.PaymentOrder) float64 {
	var sum int64
	for _, o := range orders {
		if o.PaymentStatus == nil {
			continue
		}
		if inSet(paidPaymentStatuses, strings.ToLower(*o.PaymentStatus)) {
			sum += o.OrderAmount
		}
	}
	return paise(sum)
}

// firstPaymentByRequest keys payments by request id; the first row seen wins.
func firstPaymentByRequest(orders []domain.PaymentOrder) map[string]domain.PaymentOrder {
	byRequest := make(map[string]domain.PaymentOrder, len(orders))
	for _, o := range orders {
		if o.RequestID == nil || *o.RequestID == "" {
			continue
		}
		if _, seen := byRequest[*o.RequestID]; !seen {
			byRequest[*o.RequestID] = o
		}
	}
	return byRequest
}

// preferredPaymentMethod is the mode of the non-empty methods; ties go to the first seen.
func preferredPaymentMethod(orders []domain.PaymentOrder) *string {
	counts := make(map[string]int)
	var order []string
	for _, o := range orders {
		if o.PaymentMethod == nil || *o.PaymentMethod == "" {
			continue
		}
		m := *o.PaymentMethod
		if counts[m] == 0 {
			order = append(order, m)
		}
		counts[m]++
	}

	var best string
	for _, m := range order {
		if counts[m] > counts[best] {
			best = m
		}
	}
	if best == "" {
		return nil
	}
	return &best
}

// recentFailedLogins counts failures strictly newer than now minus 24h.
func recentFailedLogins(attempts []domain.LoginAttempt, now time.Time) int {
	cutoff := now.Add(-failedLoginWindow)
	n := 0
	for _, a := range attempts {
		if !a.Success && a.CreatedAt.After(cutoff) {
			n++
		}
	}
	return n
}

func lastSuccessfulLogin(attempts []domain.LoginAttempt) *domain.LoginAttempt {
	for i := range attempts {
		if attempts[i].Success {
			return &attempts[i]
		}
	}
	return nil
}

func countSuccessfulReferrals(referrals []domain.Referral) int {
	n := 0
	for _, r := range referrals {
		if inSet(successfulReferralStatuses, strings.ToLower(r.Status)) {
			n++
		}
	}
	return n
}

func grantedRewardTotal(rewards []domain.ReferralReward) float64 {
	var sum int64
	for _, r := range rewards {
		if inSet(grantedRewardStatuses, strings.ToLower(r.Status)) {
			sum += r.AmountPaise
		}
	}
	return paise(sum)
}

// firstRewardByReferral keys rewards by referral id; the first (newest) row wins.
func firstRewardByReferral(rewards []domain.ReferralReward) map[string]domain.ReferralReward {
	byReferral := make(map[string]domain.ReferralReward, len(rewards))
	for _, r := range rewards {
		if r.ReferralID == nil || *r.ReferralID == "" {
			continue
		}
		if _, seen := byReferral[*r.ReferralID]; !seen {
			byReferral[*r.ReferralID] = r
		}
	}
	return byReferral
}

// averageRating is the mean rating rounded to one decimal, or 0 without reviews.
func averageRating(reviews []domain.Review) float64 {
	if len(reviews) == 0 {
		return 0
	}
	var sum float64
	for _, r := range reviews {
		sum += r.Rating
	}
	return math.Round(sum/float64(len(reviews))*10) / 10
}

// completionRate is round(100*completed/total), or nil when there are no jobs.
func completionRate(completed, total int) *int {
	if total == 0 {
		return nil
	}
	rate := int(math.Round(float64(completed) / float64(total) * 100))
	return &rate
}
