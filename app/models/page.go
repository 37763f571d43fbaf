package models

import (
	"time"

	"github.com/go-playground/validator/v10"
	"gorm.io/gorm"
)

// Payment statuses a page moves through. Published pages must be paid;
// the only writers of these fields are the payment service transitions.
const (
	PaymentStatusUnpaid   = "unpaid"
	PaymentStatusPaid     = "paid"
	PaymentStatusFailed   = "failed"
	PaymentStatusRefunded = "refunded"
)

// Page is a user-built single-page site. Components is the ordered list of
// component descriptors produced by the builder, stored as opaque JSON.
type Page struct {
	ID     uint   `gorm:"primaryKey" json:"id"`
	UUID   string `gorm:"type:varchar(36);uniqueIndex;not null" json:"uuid"`
	UserID uint   `gorm:"not null;index" json:"user_id"`
	Title  string `gorm:"type:varchar(255);not null" json:"title" validate:"required,min=1,max=255"`

	Components      string `gorm:"type:longtext" json:"components"`
	BackgroundColor string `gorm:"type:varchar(32);default:''" json:"background_color"`
	Font            string `gorm:"type:varchar(100);default:''" json:"font"`
	CustomCSS       string `gorm:"type:longtext" json:"custom_css"`

	Slug string `gorm:"type:varchar(255);uniqueIndex;default:null" json:"slug,omitempty" validate:"omitempty,min=1,max=255"`

	// Incremented in Redis and flushed in batches, never written directly.
	ViewCount uint64 `gorm:"default:0" json:"view_count"`

	Published       bool       `gorm:"default:false;index" json:"published"`
	PaymentStatus   string     `gorm:"type:varchar(20);not null;default:'unpaid';index" json:"payment_status"`
	PaymentIntentID string     `gorm:"type:varchar(191);default:''" json:"payment_intent_id,omitempty"`
	RefundID        string     `gorm:"type:varchar(191);default:''" json:"refund_id,omitempty"`
	PaidAt          *time.Time `gorm:"type:timestamp;default:null" json:"paid_at,omitempty"`
	PublishedAt     *time.Time `gorm:"type:timestamp;default:null" json:"published_at,omitempty"`
	RefundedAt      *time.Time `gorm:"type:timestamp;default:null" json:"refunded_at,omitempty"`
	RecoveredAt     *time.Time `gorm:"type:timestamp;default:null" json:"recovered_at,omitempty"`

	CreatedAt time.Time      `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt time.Time      `gorm:"autoUpdateTime" json:"updated_at"`
	DeletedAt gorm.DeletedAt `gorm:"index" json:"-"`
}

func (p *Page) Validate() error {
	v := validator.New()
	return v.Struct(p)
}

// IsPaidAndPublished reports whether the page already went through a
// successful publication payment.
func (p *Page) IsPaidAndPublished() bool {
	return p.Published && p.PaymentStatus == PaymentStatusPaid
}

// PublicPath returns the public route the page is served under once
// published. Pages with a claimed slug are served by slug, the rest by UUID.
func (p *Page) PublicPath() string {
	if p.Slug != "" {
		return "/p/" + p.Slug
	}
	return "/p/" + p.UUID
}
