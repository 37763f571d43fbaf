package repository

import (
	"gorm.io/gorm"

	"github.com/memorizu/memorizu/app/models"
)

// pricingRepository implements the PricingRepository interface
type pricingRepository struct {
	db *gorm.DB
}

// NewPricingRepository creates a new pricing repository instance
func NewPricingRepository(db *gorm.DB) PricingRepository {
	return &pricingRepository{db: db}
}

// GetOrCreate returns the singleton pricing row, seeding defaults if absent
func (r *pricingRepository) GetOrCreate() (*models.PublicationPricing, error) {
	return models.GetOrCreatePublicationPricing(r.db)
}

// Save persists the pricing row
func (r *pricingRepository) Save(pricing *models.PublicationPricing) error {
	return r.db.Save(pricing).Error
}
