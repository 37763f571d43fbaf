package models

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCreateUser(t *testing.T) {
	t.Run("valid user", func(t *testing.T) {
		user, err := CreateUser("tester", "tester@example.com", "secret-password")
		require.NoError(t, err)

		assert.Equal(t, "tester", user.Name)
		assert.Equal(t, ROLE_USER, user.Role)
		assert.Equal(t, STATUS_ACTIVE, user.Status)
		assert.Equal(t, "free", user.Plan)

		// password is stored hashed, never verbatim
		assert.NotEqual(t, "secret-password", user.Password)
		assert.True(t, user.CheckPassword("secret-password"))
		assert.False(t, user.CheckPassword("wrong-password"))
	})

	t.Run("validation failures", func(t *testing.T) {
		tests := []struct {
			name     string
			username string
			email    string
		}{
			{"username too short", "ab", "tester@example.com"},
			{"invalid email", "tester", "not-an-email"},
			{"empty email", "tester", ""},
		}

		for _, tt := range tests {
			t.Run(tt.name, func(t *testing.T) {
				_, err := CreateUser(tt.username, tt.email, "secret-password")
				assert.Error(t, err)
			})
		}
	})
}

func TestUserSetPassword(t *testing.T) {
	user, err := CreateUser("tester", "tester@example.com", "old-password")
	require.NoError(t, err)

	require.NoError(t, user.SetPassword("new-password"))
	assert.True(t, user.CheckPassword("new-password"))
	assert.False(t, user.CheckPassword("old-password"))
}

func TestUserRoleAndStatus(t *testing.T) {
	admin := &User{Role: ROLE_ADMIN, Status: STATUS_ACTIVE}
	assert.True(t, admin.IsAdmin())
	assert.True(t, admin.IsActive())

	disabled := &User{Role: ROLE_USER, Status: STATUS_DISABLED}
	assert.False(t, disabled.IsAdmin())
	assert.False(t, disabled.IsActive())
}

func TestUserClearSubscription(t *testing.T) {
	end := time.Now().Add(time.Hour)
	user := &User{
		Plan:                 "business",
		StripeSubscriptionID: "sub_1",
		SubscriptionStatus:   SubscriptionStatusActive,
		CurrentPeriodEnd:     &end,
		CancelAtPeriodEnd:    true,
		StripeCustomerID:     "cus_1",
	}

	user.ClearSubscription()

	assert.Equal(t, "free", user.Plan)
	assert.Empty(t, user.StripeSubscriptionID)
	assert.Equal(t, SubscriptionStatusNone, user.SubscriptionStatus)
	assert.Nil(t, user.CurrentPeriodEnd)
	assert.False(t, user.CancelAtPeriodEnd)

	// the provider customer survives; only the subscription is gone
	assert.Equal(t, "cus_1", user.StripeCustomerID)
}
