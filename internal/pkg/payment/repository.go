package payment

import (
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/memorizu/memorizu/app/models"
)

// Repository provides the DB operations used by the payment service.
type Repository interface {
	GetUserByID(id uint) (*models.User, error)
	GetUserByCustomerID(customerID string) (*models.User, error)
	SaveUser(u *models.User) error
	GetPageByUUID(uuid string) (*models.Page, error)
	SavePage(p *models.Page) error
	GetOrCreatePricing() (*models.PublicationPricing, error)
	SavePricing(p *models.PublicationPricing) error
	CreateWebhookEventIfNotExists(event *models.WebhookEvent) (bool, *models.WebhookEvent, error)
	MarkWebhookProcessed(id uint, processingError string) error
}

type gormRepository struct {
	db *gorm.DB
}

// NewRepository creates a payment repository backed by GORM.
func NewRepository(db *gorm.DB) Repository {
	return &gormRepository{db: db}
}

func (r *gormRepository) GetUserByID(id uint) (*models.User, error) {
	var user models.User
	if err := r.db.First(&user, id).Error; err != nil {
		return nil, err
	}
	return &user, nil
}

func (r *gormRepository) GetUserByCustomerID(customerID string) (*models.User, error) {
	var user models.User
	err := r.db.Where("stripe_customer_id = ?", customerID).First(&user).Error
	if err != nil {
		return nil, err
	}
	return &user, nil
}

func (r *gormRepository) SaveUser(u *models.User) error {
	return r.db.Save(u).Error
}

func (r *gormRepository) GetPageByUUID(uuid string) (*models.Page, error) {
	var page models.Page
	err := r.db.Where("uuid = ?", uuid).First(&page).Error
	if err != nil {
		return nil, err
	}
	return &page, nil
}

func (r *gormRepository) SavePage(p *models.Page) error {
	return r.db.Save(p).Error
}

func (r *gormRepository) GetOrCreatePricing() (*models.PublicationPricing, error) {
	return models.GetOrCreatePublicationPricing(r.db)
}

func (r *gormRepository) SavePricing(p *models.PublicationPricing) error {
	return r.db.Save(p).Error
}

func (r *gormRepository) CreateWebhookEventIfNotExists(event *models.WebhookEvent) (bool, *models.WebhookEvent, error) {
	tx := r.db.Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "stripe_event_id"}},
		DoNothing: true,
	}).Create(event)
	if tx.Error != nil {
		return false, nil, tx.Error
	}

	created := tx.RowsAffected > 0
	var stored models.WebhookEvent
	if err := r.db.Where("stripe_event_id = ?", event.StripeEventID).
		First(&stored).Error; err != nil {
		return false, nil, err
	}
	return created, &stored, nil
}

func (r *gormRepository) MarkWebhookProcessed(id uint, processingError string) error {
	now := time.Now()
	updates := map[string]interface{}{
		"processed_at":     &now,
		"processing_error": processingError,
	}
	return r.db.Model(&models.WebhookEvent{}).Where("id = ?", id).Updates(updates).Error
}
