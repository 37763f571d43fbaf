package controllers

import (
	"errors"
	"log"

	"github.com/gofiber/fiber/v2"
	"gorm.io/gorm"

	"github.com/memorizu/memorizu/internal/pkg/database"
	"github.com/memorizu/memorizu/internal/pkg/payment"
)

// HandleForcePublish marks a page paid and published without touching the
// payment provider. Recovery tool for pages whose payment succeeded but whose
// publication was never recorded. Admin only.
// POST /api/admin/force-publish
func HandleForcePublish(c *fiber.Ctx) error {
	var req publishPaymentRequest
	if err := c.BodyParser(&req); err != nil {
		return jsonError(c, fiber.StatusBadRequest, "invalid_request", "Invalid request body")
	}
	if req.UserID == 0 || req.PageID == "" {
		return jsonError(c, fiber.StatusBadRequest, "invalid_request", "userId and pageId are required")
	}

	svc := payment.NewServiceFromDB(database.GetDB())
	page, err := svc.ForcePublish(c.Context(), req.UserID, req.PageID)
	if err != nil {
		log.Printf("[Admin] force-publish failed for user %d page %s: %v", req.UserID, req.PageID, err)
		return paymentError(c, err)
	}

	log.Printf("[Admin] page %s force-published for user %d", req.PageID, req.UserID)
	return c.JSON(fiber.Map{
		"success": true,
		"page": fiber.Map{
			"id":            page.UUID,
			"published":     page.Published,
			"paymentStatus": page.PaymentStatus,
			"recoveredAt":   formatTimePtr(page.RecoveredAt),
		},
	})
}

// HandlePageStatus returns the raw payment and publication state of a page,
// used when diagnosing stuck pages. Admin only.
// GET /api/admin/page-status
func HandlePageStatus(c *fiber.Ctx) error {
	pageID := c.Query("pageId")
	if pageID == "" {
		return jsonError(c, fiber.StatusBadRequest, "invalid_request", "pageId query parameter is required")
	}

	page, err := payment.NewRepository(database.GetDB()).GetPageByUUID(pageID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return jsonError(c, fiber.StatusNotFound, "not_found", "Page not found")
		}
		log.Printf("[Admin] page-status lookup failed for page %s: %v", pageID, err)
		return jsonError(c, fiber.StatusInternalServerError, "internal_server_error", "Failed to load page")
	}

	return c.JSON(fiber.Map{
		"page": fiber.Map{
			"id":              page.UUID,
			"userId":          page.UserID,
			"title":           page.Title,
			"slug":            page.Slug,
			"published":       page.Published,
			"paymentStatus":   page.PaymentStatus,
			"paymentIntentId": page.PaymentIntentID,
			"refundId":        page.RefundID,
			"paidAt":          formatTimePtr(page.PaidAt),
			"publishedAt":     formatTimePtr(page.PublishedAt),
			"refundedAt":      formatTimePtr(page.RefundedAt),
			"recoveredAt":     formatTimePtr(page.RecoveredAt),
		},
	})
}
