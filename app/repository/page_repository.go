package repository

import (
	"gorm.io/gorm"

	"github.com/memorizu/memorizu/app/models"
)

// pageRepository implements the PageRepository interface
type pageRepository struct {
	db *gorm.DB
}

// NewPageRepository creates a new page repository instance
func NewPageRepository(db *gorm.DB) PageRepository {
	return &pageRepository{db: db}
}

// Create creates a new page in the database
func (r *pageRepository) Create(page *models.Page) error {
	return r.db.Create(page).Error
}

// GetByID retrieves a page by its ID
func (r *pageRepository) GetByID(id uint) (*models.Page, error) {
	var page models.Page
	err := r.db.First(&page, id).Error
	if err != nil {
		return nil, err
	}
	return &page, nil
}

// GetByUUID retrieves a page by its public identifier
func (r *pageRepository) GetByUUID(uuid string) (*models.Page, error) {
	var page models.Page
	err := r.db.Where("uuid = ?", uuid).First(&page).Error
	if err != nil {
		return nil, err
	}
	return &page, nil
}

// GetBySlug retrieves a page by its custom slug
func (r *pageRepository) GetBySlug(slug string) (*models.Page, error) {
	var page models.Page
	err := r.db.Where("slug = ?", slug).First(&page).Error
	if err != nil {
		return nil, err
	}
	return &page, nil
}

// GetByUserID retrieves all pages owned by a user, newest first
func (r *pageRepository) GetByUserID(userID uint) ([]models.Page, error) {
	var pages []models.Page
	err := r.db.Where("user_id = ?", userID).Order("created_at DESC").Find(&pages).Error
	return pages, err
}

// CountByUserID returns the number of pages owned by a user
func (r *pageRepository) CountByUserID(userID uint) (int64, error) {
	var count int64
	err := r.db.Model(&models.Page{}).Where("user_id = ?", userID).Count(&count).Error
	return count, err
}

// Update updates an existing page in the database
func (r *pageRepository) Update(page *models.Page) error {
	return r.db.Save(page).Error
}

// Delete soft deletes a page by its ID
func (r *pageRepository) Delete(id uint) error {
	return r.db.Delete(&models.Page{}, id).Error
}

// SlugExists checks if a slug is already claimed
func (r *pageRepository) SlugExists(slug string) (bool, error) {
	var count int64
	err := r.db.Model(&models.Page{}).Where("slug = ?", slug).Count(&count).Error
	return count > 0, err
}

// SlugExistsExceptID checks if a slug is claimed by any other page
func (r *pageRepository) SlugExistsExceptID(slug string, id uint) (bool, error) {
	var count int64
	err := r.db.Model(&models.Page{}).Where("slug = ? AND id != ?", slug, id).Count(&count).Error
	return count > 0, err
}
