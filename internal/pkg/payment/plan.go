package payment

import (
	"strings"

	"github.com/memorizu/memorizu/internal/pkg/entitlements"
	"github.com/memorizu/memorizu/internal/pkg/env"
)

// PriceTable maps Stripe price identifiers to internal plans. Price IDs not
// in the table resolve to free.
type PriceTable map[string]entitlements.Plan

// NewPriceTableFromEnv builds the static price table from the configured
// Stripe price IDs. Unset entries are simply absent from the table.
func NewPriceTableFromEnv() PriceTable {
	table := PriceTable{}
	add := func(key string, plan entitlements.Plan) {
		if id := strings.TrimSpace(env.GetEnv(key, "")); id != "" {
			table[id] = plan
		}
	}
	add("STRIPE_PRICE_PRO_MONTHLY", entitlements.PlanPro)
	add("STRIPE_PRICE_PRO_YEARLY", entitlements.PlanPro)
	add("STRIPE_PRICE_BUSINESS_MONTHLY", entitlements.PlanBusiness)
	add("STRIPE_PRICE_BUSINESS_YEARLY", entitlements.PlanBusiness)
	return table
}

// PlanFor resolves a price ID to an internal plan, defaulting free.
func (t PriceTable) PlanFor(priceID string) entitlements.Plan {
	if plan, ok := t[strings.TrimSpace(priceID)]; ok {
		return plan
	}
	return entitlements.PlanFree
}
