package models

import "time"

// WebhookEvent stores payment-provider webhook payloads with deduplication
// metadata. Stripe retries delivery on non-2xx responses and may deliver the
// same event more than once; the unique event id lets the handler detect
// duplicates instead of reprocessing.
type WebhookEvent struct {
	ID              uint       `gorm:"primaryKey" json:"id"`
	StripeEventID   string     `gorm:"type:varchar(191);not null;uniqueIndex" json:"stripe_event_id"`
	EventType       string     `gorm:"type:varchar(100);not null;index" json:"event_type"`
	PayloadJSON     string     `gorm:"type:longtext;not null" json:"payload_json"`
	ProcessedAt     *time.Time `gorm:"type:timestamp;default:null" json:"processed_at,omitempty"`
	ProcessingError string     `gorm:"type:text" json:"processing_error"`
	CreatedAt       time.Time  `gorm:"autoCreateTime;index" json:"created_at"`
	UpdatedAt       time.Time  `gorm:"autoUpdateTime" json:"updated_at"`
}

// Processed reports whether the event was handled successfully. Events whose
// handler failed keep their processing error and stay eligible for
// reprocessing on the next delivery.
func (e *WebhookEvent) Processed() bool {
	return e.ProcessedAt != nil && e.ProcessingError == ""
}
