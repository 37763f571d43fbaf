package models

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestPageIsPaidAndPublished(t *testing.T) {
	tests := []struct {
		name          string
		published     bool
		paymentStatus string
		expected      bool
	}{
		{"paid and published", true, PaymentStatusPaid, true},
		{"paid but unpublished", false, PaymentStatusPaid, false},
		{"published but unpaid", true, PaymentStatusUnpaid, false},
		{"refunded", false, PaymentStatusRefunded, false},
		{"fresh page", false, PaymentStatusUnpaid, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := &Page{Published: tt.published, PaymentStatus: tt.paymentStatus}
			assert.Equal(t, tt.expected, p.IsPaidAndPublished())
		})
	}
}

func TestPagePublicPath(t *testing.T) {
	withSlug := &Page{UUID: "0b5e9a1c-0000-0000-0000-000000000000", Slug: "my-launch"}
	assert.Equal(t, "/p/my-launch", withSlug.PublicPath())

	withoutSlug := &Page{UUID: "0b5e9a1c-0000-0000-0000-000000000000"}
	assert.Equal(t, "/p/0b5e9a1c-0000-0000-0000-000000000000", withoutSlug.PublicPath())
}

func TestPageValidate(t *testing.T) {
	valid := &Page{UUID: "u", UserID: 1, Title: "My Page"}
	assert.NoError(t, valid.Validate())

	missingTitle := &Page{UUID: "u", UserID: 1}
	assert.Error(t, missingTitle.Validate())
}

func TestDefaultPublicationPricing(t *testing.T) {
	pricing := DefaultPublicationPricing()
	assert.Equal(t, int64(DefaultPublicationAmountCents), pricing.AmountCents)
	assert.Equal(t, DefaultPublicationCurrency, pricing.Currency)
	assert.Equal(t, DefaultPublicationDescription, pricing.Description)
}
