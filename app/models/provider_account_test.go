package models

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestProviderAccountApplyTokens(t *testing.T) {
	now := time.Now()
	pa := &ProviderAccount{Provider: "google", ProviderUserID: "uid-1"}

	pa.ApplyTokens("access-1", "refresh-1", now.Add(time.Hour))
	assert.Equal(t, "access-1", pa.AccessToken)
	assert.Equal(t, "refresh-1", pa.RefreshToken)
	assert.NotNil(t, pa.ExpiresAt)
	assert.False(t, pa.TokenExpired(now))
	assert.True(t, pa.TokenExpired(now.Add(2*time.Hour)))

	// providers that report no expiry clear the stored one
	pa.ApplyTokens("access-2", "refresh-2", time.Time{})
	assert.Nil(t, pa.ExpiresAt)
	assert.False(t, pa.TokenExpired(now))
}
