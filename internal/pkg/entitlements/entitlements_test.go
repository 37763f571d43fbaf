package entitlements

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/memorizu/memorizu/app/models"
)

func TestNormalizePlan(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		expected Plan
	}{
		{"free", "free", PlanFree},
		{"pro", "pro", PlanPro},
		{"business", "business", PlanBusiness},
		{"mixed case", "PRO", PlanPro},
		{"padded", "  business ", PlanBusiness},
		{"unknown", "enterprise", PlanFree},
		{"empty", "", PlanFree},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, NormalizePlan(tt.input))
		})
	}
}

func TestLimitsFor(t *testing.T) {
	free := LimitsFor(PlanFree)
	pro := LimitsFor(PlanPro)
	business := LimitsFor(PlanBusiness)

	assert.Equal(t, 3, free.MaxPages)
	assert.False(t, free.CanRemoveBranding)
	assert.False(t, free.HasAnalytics)

	assert.Equal(t, 20, pro.MaxPages)
	assert.True(t, pro.CanRemoveBranding)
	assert.True(t, pro.HasAnalytics)
	assert.False(t, pro.HasCustomDomain)

	assert.Equal(t, 100, business.MaxPages)
	assert.True(t, business.HasCustomDomain)
	assert.True(t, business.HasPrioritySupport)

	// unknown plan strings fall back to free limits
	assert.Equal(t, free, LimitsFor(Plan("enterprise")))
}

func TestPlanRank(t *testing.T) {
	assert.Greater(t, PlanRank(PlanBusiness), PlanRank(PlanPro))
	assert.Greater(t, PlanRank(PlanPro), PlanRank(PlanFree))
	assert.Equal(t, PlanRank(PlanFree), PlanRank(Plan("bogus")))
}

func TestEffectivePlan(t *testing.T) {
	now := time.Now()
	future := now.Add(24 * time.Hour)
	past := now.Add(-24 * time.Hour)

	tests := []struct {
		name     string
		user     *models.User
		expected Plan
	}{
		{
			name:     "nil user",
			user:     nil,
			expected: PlanFree,
		},
		{
			name:     "free user",
			user:     &models.User{Plan: "free"},
			expected: PlanFree,
		},
		{
			name: "active pro inside billing period",
			user: &models.User{
				Plan:               "pro",
				SubscriptionStatus: models.SubscriptionStatusActive,
				CurrentPeriodEnd:   &future,
			},
			expected: PlanPro,
		},
		{
			name: "active business without a recorded period end",
			user: &models.User{
				Plan:               "business",
				SubscriptionStatus: models.SubscriptionStatusActive,
			},
			expected: PlanBusiness,
		},
		{
			name: "expired billing period downgrades without a write",
			user: &models.User{
				Plan:               "pro",
				SubscriptionStatus: models.SubscriptionStatusActive,
				CurrentPeriodEnd:   &past,
			},
			expected: PlanFree,
		},
		{
			name: "past due subscription",
			user: &models.User{
				Plan:               "pro",
				SubscriptionStatus: models.SubscriptionStatusPastDue,
				CurrentPeriodEnd:   &future,
			},
			expected: PlanFree,
		},
		{
			name: "canceled subscription",
			user: &models.User{
				Plan:               "business",
				SubscriptionStatus: models.SubscriptionStatusCanceled,
			},
			expected: PlanFree,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, EffectivePlan(tt.user, now))

			// the stored plan field is never rewritten by the check
			if tt.user != nil {
				stored := tt.user.Plan
				EffectivePlan(tt.user, now)
				assert.Equal(t, stored, tt.user.Plan)
			}
		})
	}
}

func TestEffectiveLimits(t *testing.T) {
	now := time.Now()
	past := now.Add(-time.Hour)

	lapsed := &models.User{
		Plan:               "business",
		SubscriptionStatus: models.SubscriptionStatusActive,
		CurrentPeriodEnd:   &past,
	}
	assert.Equal(t, LimitsFor(PlanFree), EffectiveLimits(lapsed, now))
}
