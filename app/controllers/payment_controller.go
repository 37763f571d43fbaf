package controllers

import (
	"fmt"
	"log"

	"github.com/gofiber/fiber/v2"
	"github.com/stripe/stripe-go/v72/webhook"

	"github.com/memorizu/memorizu/app/models"
	"github.com/memorizu/memorizu/internal/pkg/database"
	"github.com/memorizu/memorizu/internal/pkg/env"
	"github.com/memorizu/memorizu/internal/pkg/jobqueue"
	"github.com/memorizu/memorizu/internal/pkg/mail"
	"github.com/memorizu/memorizu/internal/pkg/payment"
	"github.com/memorizu/memorizu/internal/pkg/usercontext"
)

type checkoutRequest struct {
	UserID  uint   `json:"userId"`
	PriceID string `json:"priceId"`
}

type publishPaymentRequest struct {
	UserID uint   `json:"userId"`
	PageID string `json:"pageId"`
}

type refundRequest struct {
	UserID          uint   `json:"userId"`
	PageID          string `json:"pageId"`
	PaymentIntentID string `json:"paymentIntentId"`
	Reason          string `json:"reason"`
}

// requireOwnUser rejects requests that act on behalf of another account.
// Admins may act on any user, which the admin endpoints rely on.
func requireOwnUser(c *fiber.Ctx, userID uint) error {
	uc := usercontext.GetUserContext(c)
	if uc.IsAdmin || uc.UserID == userID {
		return nil
	}
	return jsonError(c, fiber.StatusForbidden, "forbidden", "Cannot perform payment operations for another user")
}

// HandleStripeCheckout creates a subscription checkout session for a plan price.
// POST /api/stripe/checkout
func HandleStripeCheckout(c *fiber.Ctx) error {
	var req checkoutRequest
	if err := c.BodyParser(&req); err != nil {
		return jsonError(c, fiber.StatusBadRequest, "invalid_request", "Invalid request body")
	}
	if req.UserID == 0 || req.PriceID == "" {
		return jsonError(c, fiber.StatusBadRequest, "invalid_request", "userId and priceId are required")
	}
	if err := requireOwnUser(c, req.UserID); err != nil {
		return err
	}

	svc := payment.NewServiceFromDB(database.GetDB())
	session, err := svc.CreateSubscriptionCheckout(c.Context(), req.UserID, req.PriceID)
	if err != nil {
		log.Printf("[Payment] subscription checkout failed for user %d: %v", req.UserID, err)
		return paymentError(c, err)
	}

	return c.JSON(fiber.Map{
		"sessionId": session.SessionID,
		"url":       session.URL,
	})
}

// HandlePublishPayment creates the one-time publication fee checkout for a page.
// POST /api/stripe/publish-payment
func HandlePublishPayment(c *fiber.Ctx) error {
	var req publishPaymentRequest
	if err := c.BodyParser(&req); err != nil {
		return jsonError(c, fiber.StatusBadRequest, "invalid_request", "Invalid request body")
	}
	if req.UserID == 0 || req.PageID == "" {
		return jsonError(c, fiber.StatusBadRequest, "invalid_request", "userId and pageId are required")
	}
	if err := requireOwnUser(c, req.UserID); err != nil {
		return err
	}

	svc := payment.NewServiceFromDB(database.GetDB())
	session, err := svc.CreatePublicationCheckout(c.Context(), req.UserID, req.PageID)
	if err != nil {
		log.Printf("[Payment] publication checkout failed for user %d page %s: %v", req.UserID, req.PageID, err)
		return paymentError(c, err)
	}

	// Reconcile later even if the client never returns from checkout.
	payload := jobqueue.PublicationReconcileJobPayload{UserID: req.UserID, PageUUID: req.PageID}
	if _, err := jobqueue.GetManager().GetQueue().EnqueueJob(jobqueue.JobTypePublicationReconcile, payload.ToMap()); err != nil {
		log.Printf("[Payment] failed to enqueue reconcile job for page %s: %v", req.PageID, err)
	}

	return c.JSON(fiber.Map{
		"sessionId": session.SessionID,
		"url":       session.URL,
	})
}

// HandleVerifyAndPublish reconciles a page against the payment provider and
// publishes it when a matching succeeded charge exists. Safe to call repeatedly.
// POST /api/payment/verify-and-publish
func HandleVerifyAndPublish(c *fiber.Ctx) error {
	var req publishPaymentRequest
	if err := c.BodyParser(&req); err != nil {
		return jsonError(c, fiber.StatusBadRequest, "invalid_request", "Invalid request body")
	}
	if req.UserID == 0 || req.PageID == "" {
		return jsonError(c, fiber.StatusBadRequest, "invalid_request", "userId and pageId are required")
	}
	if err := requireOwnUser(c, req.UserID); err != nil {
		return err
	}

	svc := payment.NewServiceFromDB(database.GetDB())
	page, charge, err := svc.VerifyAndPublish(c.Context(), req.UserID, req.PageID)
	if err != nil {
		log.Printf("[Payment] verify-and-publish failed for user %d page %s: %v", req.UserID, req.PageID, err)
		return paymentError(c, err)
	}

	go notifyPublication(req.UserID, page)

	resp := fiber.Map{
		"success": true,
		"page": fiber.Map{
			"id":            page.UUID,
			"published":     page.Published,
			"paymentStatus": page.PaymentStatus,
			"paidAt":        formatTimePtr(page.PaidAt),
			"publishedAt":   formatTimePtr(page.PublishedAt),
		},
	}
	if charge != nil {
		resp["payment"] = fiber.Map{
			"chargeId": charge.ID,
			"amount":   charge.Amount,
			"currency": charge.Currency,
			"status":   charge.Status,
		}
	}
	return c.JSON(resp)
}

// HandleRefund refunds a page's publication fee and unpublishes the page.
// POST /api/stripe/refund
func HandleRefund(c *fiber.Ctx) error {
	var req refundRequest
	if err := c.BodyParser(&req); err != nil {
		return jsonError(c, fiber.StatusBadRequest, "invalid_request", "Invalid request body")
	}
	if req.UserID == 0 || req.PageID == "" || req.PaymentIntentID == "" {
		return jsonError(c, fiber.StatusBadRequest, "invalid_request", "userId, pageId and paymentIntentId are required")
	}
	if err := requireOwnUser(c, req.UserID); err != nil {
		return err
	}

	svc := payment.NewServiceFromDB(database.GetDB())
	refund, err := svc.RefundPublication(c.Context(), req.UserID, req.PageID, req.PaymentIntentID, req.Reason)
	if err != nil {
		log.Printf("[Payment] refund failed for user %d page %s: %v", req.UserID, req.PageID, err)
		return paymentError(c, err)
	}

	go notifyRefund(req.UserID, req.PageID)

	return c.JSON(fiber.Map{
		"success":  true,
		"refundId": refund.ID,
		"amount":   refund.Amount,
	})
}

// Best-effort email notifications; failures only show up in the logs.
func notifyPublication(userID uint, page *models.Page) {
	user, err := payment.NewRepository(database.GetDB()).GetUserByID(userID)
	if err != nil {
		return
	}
	body := fmt.Sprintf("<p>Your page <strong>%s</strong> is now live at %s.</p>", page.Title, page.PublicPath())
	_ = mail.SendMail(user.Email, "Your page is published", body)
}

func notifyRefund(userID uint, pageUUID string) {
	user, err := payment.NewRepository(database.GetDB()).GetUserByID(userID)
	if err != nil {
		return
	}
	body := "<p>Your publication fee was refunded and the page has been unpublished.</p>"
	_ = mail.SendMail(user.Email, "Publication fee refunded", body)
}

// HandleStripeWebhook verifies, deduplicates and dispatches provider events.
// Duplicates of successfully handled events are acknowledged without
// reprocessing. Handler errors return 500 so the provider retries the
// delivery, and the retried event runs the handler again.
// POST /api/stripe/webhook
func HandleStripeWebhook(c *fiber.Ctx) error {
	secret := env.GetEnv("STRIPE_WEBHOOK_SECRET", "")
	if secret == "" {
		log.Printf("[Payment] STRIPE_WEBHOOK_SECRET is not configured, rejecting webhook")
		return jsonError(c, fiber.StatusInternalServerError, "internal_server_error", "Webhook is not configured")
	}

	event, err := webhook.ConstructEvent(c.Body(), c.Get("Stripe-Signature"), secret)
	if err != nil {
		log.Printf("[Payment] webhook signature verification failed: %v", err)
		return jsonError(c, fiber.StatusBadRequest, "invalid_signature", "Webhook signature verification failed")
	}

	svc := payment.NewServiceFromDB(database.GetDB())
	created, stored, err := svc.RecordWebhookEvent(c.Context(), event)
	if err != nil {
		log.Printf("[Payment] failed to record webhook event %s: %v", event.ID, err)
		return jsonError(c, fiber.StatusInternalServerError, "internal_server_error", "Failed to record event")
	}
	if !created && stored.Processed() {
		// Already handled successfully, acknowledge without reprocessing.
		// Redeliveries of events whose handler failed fall through and run
		// again; the handlers are idempotent by overwrite.
		return c.JSON(fiber.Map{"received": true, "duplicate": true})
	}

	handleErr := svc.HandleEvent(c.Context(), event)
	if err := svc.MarkWebhookProcessed(c.Context(), stored.ID, handleErr); err != nil {
		log.Printf("[Payment] failed to mark webhook event %s processed: %v", event.ID, err)
	}
	if handleErr != nil {
		log.Printf("[Payment] webhook event %s (%s) failed: %v", event.ID, event.Type, handleErr)
		return jsonError(c, fiber.StatusInternalServerError, "internal_server_error", "Event processing failed")
	}

	return c.JSON(fiber.Map{"received": true})
}
