package controllers

import (
	"encoding/json"
	"io"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/memorizu/memorizu/internal/pkg/payment"
)

func TestFormatTimePtr(t *testing.T) {
	assert.Nil(t, formatTimePtr(nil))

	now := time.Date(2026, 5, 1, 12, 34, 56, 0, time.Local)
	formatted := formatTimePtr(&now)
	assert.IsType(t, "", formatted)

	expected := now.UTC().Format(time.RFC3339)
	assert.Equal(t, expected, formatted)
}

func TestPaymentErrorMapping(t *testing.T) {
	tests := []struct {
		name           string
		err            error
		expectedStatus int
		expectedCode   string
	}{
		{"user not found", payment.ErrUserNotFound, fiber.StatusNotFound, "not_found"},
		{"page not found", payment.ErrPageNotFound, fiber.StatusNotFound, "not_found"},
		{"already paid", payment.ErrAlreadyPaid, fiber.StatusConflict, "already_paid"},
		{"not paid", payment.ErrNotPaid, fiber.StatusConflict, "not_paid"},
		{"no customer", payment.ErrNoCustomer, fiber.StatusBadRequest, "no_customer"},
		{"no matching charge", payment.ErrNoMatchingCharge, fiber.StatusNotFound, "no_matching_charge"},
		{"unknown error", assert.AnError, fiber.StatusInternalServerError, "internal_server_error"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			app := fiber.New()
			app.Get("/test", func(c *fiber.Ctx) error {
				return paymentError(c, tt.err)
			})

			resp, err := app.Test(httptest.NewRequest("GET", "/test", nil))
			require.NoError(t, err)
			defer resp.Body.Close()

			assert.Equal(t, tt.expectedStatus, resp.StatusCode)

			body, err := io.ReadAll(resp.Body)
			require.NoError(t, err)

			var payload map[string]string
			require.NoError(t, json.Unmarshal(body, &payload))
			assert.Equal(t, tt.expectedCode, payload["error"])
			assert.NotEmpty(t, payload["message"])
		})
	}
}

func TestSlugValidation(t *testing.T) {
	valid := []string{"my-page", "abc", "launch-2026", "a1-b2-c3"}
	for _, slug := range valid {
		assert.True(t, slugPattern.MatchString(slug), "slug %q must be valid", slug)
		assert.False(t, reservedSlugs[slug], "slug %q must not be reserved", slug)
	}

	invalid := []string{"My-Page", "-leading", "trailing-", "double--dash", "under_score", "with space", "ümlaut"}
	for _, slug := range invalid {
		assert.False(t, slugPattern.MatchString(slug), "slug %q must be invalid", slug)
	}

	for _, slug := range []string{"api", "admin", "auth", "p"} {
		assert.True(t, reservedSlugs[slug], "slug %q must be reserved", slug)
	}
}
