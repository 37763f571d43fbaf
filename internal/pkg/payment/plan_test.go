package payment

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/memorizu/memorizu/internal/pkg/entitlements"
)

func TestPriceTablePlanFor(t *testing.T) {
	table := PriceTable{
		"price_pro_monthly":      entitlements.PlanPro,
		"price_business_monthly": entitlements.PlanBusiness,
	}

	tests := []struct {
		name     string
		priceID  string
		expected entitlements.Plan
	}{
		{"pro price", "price_pro_monthly", entitlements.PlanPro},
		{"business price", "price_business_monthly", entitlements.PlanBusiness},
		{"whitespace is trimmed", "  price_pro_monthly  ", entitlements.PlanPro},
		{"unknown price defaults to free", "price_retired", entitlements.PlanFree},
		{"empty price defaults to free", "", entitlements.PlanFree},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, table.PlanFor(tt.priceID))
		})
	}
}
