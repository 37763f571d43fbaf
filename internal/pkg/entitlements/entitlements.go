package entitlements

import (
	"strings"
	"time"

	"github.com/memorizu/memorizu/app/models"
)

type Plan string

const (
	PlanFree     Plan = "free"
	PlanPro      Plan = "pro"
	PlanBusiness Plan = "business"
)

// Limits are the feature switches and quotas the builder UI gates on.
type Limits struct {
	MaxPages           int  `json:"max_pages"`
	CanRemoveBranding  bool `json:"can_remove_branding"`
	HasCustomDomain    bool `json:"has_custom_domain"`
	HasAnalytics       bool `json:"has_analytics"`
	HasPrioritySupport bool `json:"has_priority_support"`
}

// LimitsFor returns the static limits table entry for a plan. Unknown plan
// strings get free limits.
func LimitsFor(plan Plan) Limits {
	switch NormalizePlan(string(plan)) {
	case PlanBusiness:
		return Limits{
			MaxPages:           100,
			CanRemoveBranding:  true,
			HasCustomDomain:    true,
			HasAnalytics:       true,
			HasPrioritySupport: true,
		}
	case PlanPro:
		return Limits{
			MaxPages:           20,
			CanRemoveBranding:  true,
			HasCustomDomain:    false,
			HasAnalytics:       true,
			HasPrioritySupport: false,
		}
	default:
		return Limits{
			MaxPages:           3,
			CanRemoveBranding:  false,
			HasCustomDomain:    false,
			HasAnalytics:       false,
			HasPrioritySupport: false,
		}
	}
}

// NormalizePlan maps arbitrary plan strings to a known plan, defaulting free.
func NormalizePlan(plan string) Plan {
	switch strings.ToLower(strings.TrimSpace(plan)) {
	case string(PlanPro):
		return PlanPro
	case string(PlanBusiness):
		return PlanBusiness
	default:
		return PlanFree
	}
}

// PlanRank orders plans for comparisons; higher is better.
func PlanRank(plan Plan) int {
	switch NormalizePlan(string(plan)) {
	case PlanBusiness:
		return 2
	case PlanPro:
		return 1
	default:
		return 0
	}
}

// EffectivePlan computes the plan a user is actually entitled to right now.
// A stored paid plan only counts while the subscription is active and inside
// the current billing period; otherwise the user is treated as free. The
// stored plan field is never rewritten here (lazy downgrade).
func EffectivePlan(u *models.User, now time.Time) Plan {
	if u == nil {
		return PlanFree
	}
	plan := NormalizePlan(u.Plan)
	if plan == PlanFree {
		return PlanFree
	}
	if u.SubscriptionStatus != models.SubscriptionStatusActive {
		return PlanFree
	}
	if u.CurrentPeriodEnd != nil && now.After(*u.CurrentPeriodEnd) {
		return PlanFree
	}
	return plan
}

// EffectiveLimits is the lookup used by UI guards: plan liveness check plus
// static limits table.
func EffectiveLimits(u *models.User, now time.Time) Limits {
	return LimitsFor(EffectivePlan(u, now))
}
