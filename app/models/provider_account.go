package models

import "time"

// ProviderAccount links an external OAuth identity (Google etc.) to a local
// user. One user can carry several provider identities; the pair of provider
// and provider user id is unique.
type ProviderAccount struct {
	ID             uint       `gorm:"primaryKey" json:"id"`
	UserID         uint       `gorm:"index" json:"user_id"`
	Provider       string     `gorm:"index:provider_uid,unique;type:varchar(50)" json:"provider"`
	ProviderUserID string     `gorm:"index:provider_uid,unique;type:varchar(191)" json:"provider_user_id"`
	AccessToken    string     `gorm:"type:text" json:"-"`
	RefreshToken   string     `gorm:"type:text" json:"-"`
	ExpiresAt      *time.Time `gorm:"type:timestamp;default:null" json:"expires_at,omitempty"`
	CreatedAt      time.Time  `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt      time.Time  `gorm:"autoUpdateTime" json:"updated_at"`
}

// ApplyTokens overwrites the stored provider tokens with the ones from the
// latest login. A zero expiry means the provider did not report one.
func (pa *ProviderAccount) ApplyTokens(accessToken, refreshToken string, expiresAt time.Time) {
	pa.AccessToken = accessToken
	pa.RefreshToken = refreshToken
	if expiresAt.IsZero() {
		pa.ExpiresAt = nil
		return
	}
	t := expiresAt
	pa.ExpiresAt = &t
}

// TokenExpired reports whether the stored access token is past its expiry.
// Accounts without a reported expiry are treated as not expired.
func (pa *ProviderAccount) TokenExpired(now time.Time) bool {
	return pa.ExpiresAt != nil && now.After(*pa.ExpiresAt)
}
