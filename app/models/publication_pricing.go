package models

import (
	"time"

	"gorm.io/gorm"
)

// Defaults used when the pricing record has not been seeded yet.
const (
	DefaultPublicationAmountCents = 100
	DefaultPublicationCurrency    = "brl"
	DefaultPublicationDescription = "Page Publication Fee"
)

// PublicationPricing is the singleton fee configuration charged per page
// publication. Exactly one row is expected; readers fall back to defaults
// when the row is absent.
type PublicationPricing struct {
	ID          uint      `gorm:"primaryKey" json:"id"`
	AmountCents int64     `gorm:"not null" json:"amount_cents"`
	Currency    string    `gorm:"type:varchar(8);not null" json:"currency"`
	Description string    `gorm:"type:varchar(255);not null" json:"description"`
	CreatedAt   time.Time `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt   time.Time `gorm:"autoUpdateTime" json:"updated_at"`
}

// DefaultPublicationPricing returns the hardcoded fallback configuration.
func DefaultPublicationPricing() *PublicationPricing {
	return &PublicationPricing{
		AmountCents: DefaultPublicationAmountCents,
		Currency:    DefaultPublicationCurrency,
		Description: DefaultPublicationDescription,
	}
}

// GetOrCreatePublicationPricing returns the stored pricing row, seeding the
// default when none exists yet.
func GetOrCreatePublicationPricing(db *gorm.DB) (*PublicationPricing, error) {
	var pricing PublicationPricing
	if err := db.First(&pricing).Error; err != nil {
		if err == gorm.ErrRecordNotFound {
			pricing = *DefaultPublicationPricing()
			if err := db.Create(&pricing).Error; err != nil {
				return nil, err
			}
			return &pricing, nil
		}
		return nil, err
	}
	return &pricing, nil
}
