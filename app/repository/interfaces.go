package repository

import (
	"gorm.io/gorm"

	"github.com/memorizu/memorizu/app/models"
)

// UserRepository defines the interface for user-related database operations
type UserRepository interface {
	Create(user *models.User) error
	GetByID(id uint) (*models.User, error)
	GetByEmail(email string) (*models.User, error)
	GetByStripeCustomerID(customerID string) (*models.User, error)
	Update(user *models.User) error
	Delete(id uint) error
	Count() (int64, error)
}

// PageRepository defines the interface for page-related database operations
type PageRepository interface {
	Create(page *models.Page) error
	GetByID(id uint) (*models.Page, error)
	GetByUUID(uuid string) (*models.Page, error)
	GetBySlug(slug string) (*models.Page, error)
	GetByUserID(userID uint) ([]models.Page, error)
	CountByUserID(userID uint) (int64, error)
	Update(page *models.Page) error
	Delete(id uint) error
	SlugExists(slug string) (bool, error)
	SlugExistsExceptID(slug string, id uint) (bool, error)
}

// PricingRepository defines the interface for the publication fee config
type PricingRepository interface {
	GetOrCreate() (*models.PublicationPricing, error)
	Save(pricing *models.PublicationPricing) error
}

// Repositories struct holds all repository instances
type Repositories struct {
	User    UserRepository
	Page    PageRepository
	Pricing PricingRepository
}

// NewRepositories creates a new instance of all repositories
func NewRepositories(db *gorm.DB) *Repositories {
	return &Repositories{
		User:    NewUserRepository(db),
		Page:    NewPageRepository(db),
		Pricing: NewPricingRepository(db),
	}
}
