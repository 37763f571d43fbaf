package controllers

import (
	"errors"
	"time"

	"github.com/gofiber/fiber/v2"

	"github.com/memorizu/memorizu/internal/pkg/payment"
)

// jsonError writes the shared error body shape used by all API handlers.
func jsonError(c *fiber.Ctx, status int, code, message string) error {
	return c.Status(status).JSON(fiber.Map{
		"error":   code,
		"message": message,
	})
}

// paymentError maps payment service sentinels onto the API error taxonomy.
// Unknown errors become a generic 500; provider details stay in the logs.
func paymentError(c *fiber.Ctx, err error) error {
	switch {
	case errors.Is(err, payment.ErrUserNotFound):
		return jsonError(c, fiber.StatusNotFound, "not_found", "User not found")
	case errors.Is(err, payment.ErrPageNotFound):
		return jsonError(c, fiber.StatusNotFound, "not_found", "Page not found")
	case errors.Is(err, payment.ErrAlreadyPaid):
		return jsonError(c, fiber.StatusConflict, "already_paid", "Page is already paid and published")
	case errors.Is(err, payment.ErrNotPaid):
		return jsonError(c, fiber.StatusConflict, "not_paid", "Page has no successful payment to act on")
	case errors.Is(err, payment.ErrNoCustomer):
		return jsonError(c, fiber.StatusBadRequest, "no_customer", "No payment customer on file for this user")
	case errors.Is(err, payment.ErrNoMatchingCharge):
		return jsonError(c, fiber.StatusNotFound, "no_matching_charge", "No succeeded payment found for this page")
	default:
		return jsonError(c, fiber.StatusInternalServerError, "internal_server_error", "Payment operation failed")
	}
}

func formatTimePtr(t *time.Time) interface{} {
	if t == nil {
		return nil
	}
	return t.UTC().Format(time.RFC3339)
}
