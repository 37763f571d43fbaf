package payment

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/stripe/stripe-go/v72"
	"gorm.io/gorm"

	"github.com/memorizu/memorizu/app/models"
	"github.com/memorizu/memorizu/internal/pkg/env"
)

// Charge metadata keys. Checkout stamps them on the payment intent so the
// webhook and the reconciler can tie a provider charge back to a page.
const (
	MetadataPageID = "pageId"
	MetadataUserID = "userId"
	MetadataType   = "type"

	PaymentTypePublication  = "page_publication"
	PaymentTypeSubscription = "subscription"
)

// chargeScanLimit caps the reconciler's charge scan to one provider page.
// Customers with more charges than this need the webhook path; the scan is
// only the recovery fallback for missed deliveries.
const chargeScanLimit = 100

// CheckoutSession is the subset of a provider checkout session returned to
// the UI for redirecting.
type CheckoutSession struct {
	SessionID string `json:"sessionId"`
	URL       string `json:"url"`
}

// Service implements checkout initiation, webhook synchronization, payment
// reconciliation and refunds. All publication state transitions go through
// markPaidAndPublished / markRefunded so `published` never diverges from
// `payment_status`.
type Service struct {
	repo   Repository
	stripe StripeClient
	prices PriceTable
}

// NewService creates a payment service from injected dependencies.
func NewService(repo Repository, sc StripeClient, prices PriceTable) *Service {
	return &Service{repo: repo, stripe: sc, prices: prices}
}

// NewServiceFromDB creates a payment service from a GORM DB handle with the
// environment-configured Stripe client and price table.
func NewServiceFromDB(db *gorm.DB) *Service {
	return NewService(NewRepository(db), NewStripeClientFromEnv(), NewPriceTableFromEnv())
}

// GetOrInitPricing returns the publication fee configuration, seeding the
// default when absent.
func (s *Service) GetOrInitPricing(ctx context.Context) (*models.PublicationPricing, error) {
	_ = ctx
	return s.repo.GetOrCreatePricing()
}

// UpdatePricing overwrites the singleton pricing record. Admin only.
func (s *Service) UpdatePricing(ctx context.Context, amountCents int64, currency, description string) (*models.PublicationPricing, error) {
	_ = ctx
	pricing, err := s.repo.GetOrCreatePricing()
	if err != nil {
		return nil, err
	}
	if amountCents > 0 {
		pricing.AmountCents = amountCents
	}
	if c := strings.ToLower(strings.TrimSpace(currency)); c != "" {
		pricing.Currency = c
	}
	if d := strings.TrimSpace(description); d != "" {
		pricing.Description = d
	}
	if err := s.repo.SavePricing(pricing); err != nil {
		return nil, err
	}
	return pricing, nil
}

// CreateSubscriptionCheckout creates a recurring-billing checkout session
// for the given price. No local state changes; the webhook applies the
// subscription once the provider confirms payment.
func (s *Service) CreateSubscriptionCheckout(ctx context.Context, userID uint, priceID string) (*CheckoutSession, error) {
	priceID = strings.TrimSpace(priceID)
	if userID == 0 || priceID == "" {
		return nil, errors.New("user_id and price_id are required")
	}

	user, err := s.repo.GetUserByID(userID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrUserNotFound
		}
		return nil, err
	}
	customerID, err := s.ensureCustomer(ctx, user)
	if err != nil {
		return nil, err
	}

	base := publicBaseURL()
	params := &stripe.CheckoutSessionParams{
		Mode:       stripe.String(string(stripe.CheckoutSessionModeSubscription)),
		Customer:   stripe.String(customerID),
		SuccessURL: stripe.String(base + "/builder/billing?checkout=success"),
		CancelURL:  stripe.String(base + "/builder/billing?checkout=cancelled"),
		LineItems: []*stripe.CheckoutSessionLineItemParams{
			{
				Price:    stripe.String(priceID),
				Quantity: stripe.Int64(1),
			},
		},
		SubscriptionData: &stripe.CheckoutSessionSubscriptionDataParams{
			Metadata: map[string]string{
				MetadataUserID: fmt.Sprint(userID),
				MetadataType:   PaymentTypeSubscription,
			},
		},
	}
	params.SetIdempotencyKey(uuid.New().String())

	sess, err := s.stripe.CreateCheckoutSession(params)
	if err != nil {
		return nil, err
	}
	return &CheckoutSession{SessionID: sess.ID, URL: sess.URL}, nil
}

// CreatePublicationCheckout creates a one-time checkout session for
// publishing a page. The page must belong to the user and must not already
// be paid and published.
func (s *Service) CreatePublicationCheckout(ctx context.Context, userID uint, pageUUID string) (*CheckoutSession, error) {
	pageUUID = strings.TrimSpace(pageUUID)
	if userID == 0 || pageUUID == "" {
		return nil, errors.New("user_id and page_id are required")
	}

	user, err := s.repo.GetUserByID(userID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrUserNotFound
		}
		return nil, err
	}
	page, err := s.pageOwnedBy(pageUUID, userID)
	if err != nil {
		return nil, err
	}
	if page.IsPaidAndPublished() {
		return nil, ErrAlreadyPaid
	}

	customerID, err := s.ensureCustomer(ctx, user)
	if err != nil {
		return nil, err
	}
	pricing, err := s.repo.GetOrCreatePricing()
	if err != nil {
		return nil, err
	}

	metadata := map[string]string{
		MetadataPageID: page.UUID,
		MetadataUserID: fmt.Sprint(userID),
		MetadataType:   PaymentTypePublication,
	}
	base := publicBaseURL()
	params := &stripe.CheckoutSessionParams{
		Mode:       stripe.String(string(stripe.CheckoutSessionModePayment)),
		Customer:   stripe.String(customerID),
		SuccessURL: stripe.String(base + "/builder/pages/" + page.UUID + "?payment=success"),
		CancelURL:  stripe.String(base + "/builder/pages/" + page.UUID + "?payment=cancelled"),
		LineItems: []*stripe.CheckoutSessionLineItemParams{
			{
				Quantity: stripe.Int64(1),
				PriceData: &stripe.CheckoutSessionLineItemPriceDataParams{
					Currency:   stripe.String(pricing.Currency),
					UnitAmount: stripe.Int64(pricing.AmountCents),
					ProductData: &stripe.CheckoutSessionLineItemPriceDataProductDataParams{
						Name: stripe.String(pricing.Description),
					},
				},
			},
		},
		PaymentIntentData: &stripe.CheckoutSessionPaymentIntentDataParams{
			Metadata: metadata,
		},
	}
	params.SetIdempotencyKey(uuid.New().String())

	sess, err := s.stripe.CreateCheckoutSession(params)
	if err != nil {
		return nil, err
	}
	return &CheckoutSession{SessionID: sess.ID, URL: sess.URL}, nil
}

// VerifyAndPublish is the reconciliation path for pages whose publication
// webhook never arrived. It scans the customer's recent charges for a
// succeeded charge tagged with this page and publishes on a match, stamping
// recovered_at to distinguish the recovery from the webhook path.
func (s *Service) VerifyAndPublish(ctx context.Context, userID uint, pageUUID string) (*models.Page, *stripe.Charge, error) {
	_ = ctx
	user, err := s.repo.GetUserByID(userID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil, ErrUserNotFound
		}
		return nil, nil, err
	}
	page, err := s.pageOwnedBy(pageUUID, userID)
	if err != nil {
		return nil, nil, err
	}
	if page.IsPaidAndPublished() {
		return page, nil, nil
	}
	if strings.TrimSpace(user.StripeCustomerID) == "" {
		return nil, nil, ErrNoCustomer
	}

	charges, err := s.stripe.ListCharges(user.StripeCustomerID, chargeScanLimit)
	if err != nil {
		return nil, nil, err
	}

	match := matchPublicationCharge(charges, page.UUID, userID)
	if match == nil {
		return nil, nil, ErrNoMatchingCharge
	}

	intentID := ""
	if match.PaymentIntent != nil {
		intentID = match.PaymentIntent.ID
	}
	markPaidAndPublished(page, intentID, true)
	if err := s.repo.SavePage(page); err != nil {
		return nil, nil, err
	}

	refreshed, err := s.repo.GetPageByUUID(page.UUID)
	if err != nil {
		return nil, nil, err
	}
	return refreshed, match, nil
}

// RefundPublication refunds a page's publication payment and reverts the
// page to unpublished/refunded. The stored status must be paid; no provider
// call is made otherwise.
func (s *Service) RefundPublication(ctx context.Context, userID uint, pageUUID, paymentIntentID, reason string) (*stripe.Refund, error) {
	_ = ctx
	paymentIntentID = strings.TrimSpace(paymentIntentID)
	if userID == 0 || pageUUID == "" || paymentIntentID == "" {
		return nil, errors.New("user_id, page_id and payment_intent_id are required")
	}

	page, err := s.pageOwnedBy(pageUUID, userID)
	if err != nil {
		return nil, err
	}
	if page.PaymentStatus != models.PaymentStatusPaid {
		return nil, ErrNotPaid
	}

	params := &stripe.RefundParams{
		PaymentIntent: stripe.String(paymentIntentID),
	}
	if r := strings.TrimSpace(reason); r != "" {
		params.Reason = stripe.String(r)
	}
	refund, err := s.stripe.CreateRefund(params)
	if err != nil {
		return nil, err
	}

	markRefunded(page, refund.ID)
	if err := s.repo.SavePage(page); err != nil {
		return refund, err
	}
	return refund, nil
}

// ForcePublish publishes a page without payment verification. Operator
// override, admin gated at the route; it still goes through the shared
// transition so the paid/published invariant holds.
func (s *Service) ForcePublish(ctx context.Context, userID uint, pageUUID string) (*models.Page, error) {
	_ = ctx
	page, err := s.pageOwnedBy(pageUUID, userID)
	if err != nil {
		return nil, err
	}
	markPaidAndPublished(page, page.PaymentIntentID, false)
	if err := s.repo.SavePage(page); err != nil {
		return nil, err
	}
	return page, nil
}

func (s *Service) pageOwnedBy(pageUUID string, userID uint) (*models.Page, error) {
	page, err := s.repo.GetPageByUUID(strings.TrimSpace(pageUUID))
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrPageNotFound
		}
		return nil, err
	}
	// Ownership mismatch is reported as not-found, not forbidden, so page
	// UUIDs of other users cannot be probed.
	if page.UserID != userID {
		return nil, ErrPageNotFound
	}
	return page, nil
}

func (s *Service) ensureCustomer(ctx context.Context, user *models.User) (string, error) {
	_ = ctx
	if id := strings.TrimSpace(user.StripeCustomerID); id != "" {
		return id, nil
	}
	params := &stripe.CustomerParams{
		Email: stripe.String(user.Email),
		Name:  stripe.String(user.Name),
	}
	params.AddMetadata(MetadataUserID, fmt.Sprint(user.ID))
	customer, err := s.stripe.CreateCustomer(params)
	if err != nil {
		return "", err
	}
	user.StripeCustomerID = customer.ID
	if err := s.repo.SaveUser(user); err != nil {
		return "", err
	}
	return customer.ID, nil
}

func matchPublicationCharge(charges []*stripe.Charge, pageUUID string, userID uint) *stripe.Charge {
	wantUser := fmt.Sprint(userID)
	for _, ch := range charges {
		if ch == nil || ch.Status != "succeeded" {
			continue
		}
		if ch.Metadata[MetadataPageID] != pageUUID {
			continue
		}
		if ch.Metadata[MetadataUserID] != wantUser {
			continue
		}
		if ch.Metadata[MetadataType] != PaymentTypePublication {
			continue
		}
		return ch
	}
	return nil
}

// markPaidAndPublished is the single authoritative transition into the
// paid/published state, shared by the webhook path, the reconciler and the
// admin override.
func markPaidAndPublished(page *models.Page, paymentIntentID string, recovered bool) {
	now := time.Now()
	page.PaymentStatus = models.PaymentStatusPaid
	page.Published = true
	if paymentIntentID != "" {
		page.PaymentIntentID = paymentIntentID
	}
	if page.PaidAt == nil {
		page.PaidAt = &now
	}
	if page.PublishedAt == nil {
		page.PublishedAt = &now
	}
	if recovered {
		page.RecoveredAt = &now
	}
}

// markRefunded is the single authoritative transition out of the published
// state after a refund.
func markRefunded(page *models.Page, refundID string) {
	now := time.Now()
	page.PaymentStatus = models.PaymentStatusRefunded
	page.Published = false
	page.RefundID = refundID
	page.RefundedAt = &now
}

func publicBaseURL() string {
	base := strings.TrimRight(env.GetEnv("PUBLIC_DOMAIN", ""), "/")
	if base == "" {
		base = "http://localhost:" + env.GetEnv("APP_PORT", "4000")
	}
	return base
}
