package payment

import (
	"context"
	"encoding/json"
	"errors"
	"log"
	"strings"
	"time"

	"github.com/stripe/stripe-go/v72"
	"gorm.io/gorm"

	"github.com/memorizu/memorizu/app/models"
)

// Webhook event types the dispatcher acts on. Anything else is acknowledged
// and ignored so the provider stops redelivering it.
const (
	EventSubscriptionCreated = "customer.subscription.created"
	EventSubscriptionUpdated = "customer.subscription.updated"
	EventSubscriptionDeleted = "customer.subscription.deleted"
	EventInvoicePaid         = "invoice.payment_succeeded"
	EventInvoiceFailed       = "invoice.payment_failed"
)

// RecordWebhookEvent persists an incoming event idempotently. The bool
// reports whether this delivery is the first one seen for the event id.
func (s *Service) RecordWebhookEvent(ctx context.Context, event stripe.Event) (bool, *models.WebhookEvent, error) {
	_ = ctx
	if strings.TrimSpace(event.ID) == "" {
		return false, nil, errors.New("event id is required")
	}
	stored := &models.WebhookEvent{
		StripeEventID: event.ID,
		EventType:     string(event.Type),
		PayloadJSON:   string(event.Data.Raw),
	}
	return s.repo.CreateWebhookEventIfNotExists(stored)
}

// MarkWebhookProcessed marks an event as processed and stores an optional error.
func (s *Service) MarkWebhookProcessed(ctx context.Context, webhookEventID uint, processingErr error) error {
	_ = ctx
	if webhookEventID == 0 {
		return errors.New("webhook_event_id is required")
	}
	errMsg := ""
	if processingErr != nil {
		errMsg = processingErr.Error()
	}
	return s.repo.MarkWebhookProcessed(webhookEventID, errMsg)
}

// HandleEvent dispatches a signature-verified provider event. Errors from
// the non-default arms surface to the controller as 500 so the provider
// retries delivery; the subscription arms are idempotent by overwrite, so
// redelivery is safe.
func (s *Service) HandleEvent(ctx context.Context, event stripe.Event) error {
	switch string(event.Type) {
	case EventSubscriptionCreated, EventSubscriptionUpdated:
		var sub stripe.Subscription
		if err := json.Unmarshal(event.Data.Raw, &sub); err != nil {
			return err
		}
		return s.applySubscription(ctx, &sub)

	case EventSubscriptionDeleted:
		var sub stripe.Subscription
		if err := json.Unmarshal(event.Data.Raw, &sub); err != nil {
			return err
		}
		return s.removeSubscription(ctx, &sub)

	case EventInvoicePaid:
		var invoice stripe.Invoice
		if err := json.Unmarshal(event.Data.Raw, &invoice); err != nil {
			return err
		}
		return s.handleInvoicePaid(ctx, &invoice)

	case EventInvoiceFailed:
		var invoice stripe.Invoice
		if err := json.Unmarshal(event.Data.Raw, &invoice); err != nil {
			return err
		}
		// No state change and no customer notification; Stripe dunning
		// handles retries and the liveness check in entitlements downgrades
		// lapsed subscriptions lazily.
		log.Printf("[payment] invoice payment failed: invoice=%s customer=%s", invoice.ID, customerIDOf(invoice.Customer))
		return nil

	default:
		return nil
	}
}

// applySubscription writes provider subscription state onto the owning user
// record. Applying the same subscription twice yields the same row.
func (s *Service) applySubscription(ctx context.Context, sub *stripe.Subscription) error {
	_ = ctx
	customerID := customerIDOf(sub.Customer)
	if customerID == "" {
		return errors.New("subscription event without customer")
	}

	user, err := s.repo.GetUserByCustomerID(customerID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			// Nothing local to update; acknowledge so the provider does not
			// redeliver an event we can never apply.
			log.Printf("[payment] no user for customer %s, ignoring subscription %s", customerID, sub.ID)
			return nil
		}
		return err
	}

	priceID := ""
	if sub.Items != nil && len(sub.Items.Data) > 0 && sub.Items.Data[0].Price != nil {
		priceID = sub.Items.Data[0].Price.ID
	}

	user.Plan = string(s.prices.PlanFor(priceID))
	user.StripeSubscriptionID = sub.ID
	user.SubscriptionStatus = string(sub.Status)
	user.CancelAtPeriodEnd = sub.CancelAtPeriodEnd
	if sub.CurrentPeriodEnd > 0 {
		end := time.Unix(sub.CurrentPeriodEnd, 0)
		user.CurrentPeriodEnd = &end
	} else {
		user.CurrentPeriodEnd = nil
	}
	return s.repo.SaveUser(user)
}

func (s *Service) removeSubscription(ctx context.Context, sub *stripe.Subscription) error {
	_ = ctx
	customerID := customerIDOf(sub.Customer)
	if customerID == "" {
		return errors.New("subscription event without customer")
	}

	user, err := s.repo.GetUserByCustomerID(customerID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil
		}
		return err
	}
	user.ClearSubscription()
	return s.repo.SaveUser(user)
}

// handleInvoicePaid re-fetches the invoice's subscription and re-applies it.
// This self-heals out-of-order delivery: even if the subscription.updated
// event was missed or arrived stale, the fresh fetch carries the current
// period end and status.
func (s *Service) handleInvoicePaid(ctx context.Context, invoice *stripe.Invoice) error {
	if invoice.Subscription == nil || invoice.Subscription.ID == "" {
		// One-time publication payments also raise paid invoices; the page
		// state is driven by the charge metadata paths, not from here.
		return nil
	}
	sub, err := s.stripe.GetSubscription(invoice.Subscription.ID)
	if err != nil {
		return err
	}
	return s.applySubscription(ctx, sub)
}

func customerIDOf(c *stripe.Customer) string {
	if c == nil {
		return ""
	}
	return c.ID
}
