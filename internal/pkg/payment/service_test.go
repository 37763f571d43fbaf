package payment

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/stripe/stripe-go/v72"
	"gorm.io/gorm"

	"github.com/memorizu/memorizu/app/models"
)

// fakeRepo is an in-memory Repository for service tests.
type fakeRepo struct {
	users   map[uint]*models.User
	pages   map[string]*models.Page
	pricing *models.PublicationPricing
	events  map[string]*models.WebhookEvent

	nextEventID uint
	savedUsers  int
	savedPages  int
}

func newFakeRepo() *fakeRepo {
	return &fakeRepo{
		users:  map[uint]*models.User{},
		pages:  map[string]*models.Page{},
		events: map[string]*models.WebhookEvent{},
	}
}

func (r *fakeRepo) GetUserByID(id uint) (*models.User, error) {
	u, ok := r.users[id]
	if !ok {
		return nil, gorm.ErrRecordNotFound
	}
	copied := *u
	return &copied, nil
}

func (r *fakeRepo) GetUserByCustomerID(customerID string) (*models.User, error) {
	for _, u := range r.users {
		if u.StripeCustomerID == customerID {
			copied := *u
			return &copied, nil
		}
	}
	return nil, gorm.ErrRecordNotFound
}

func (r *fakeRepo) SaveUser(u *models.User) error {
	copied := *u
	r.users[u.ID] = &copied
	r.savedUsers++
	return nil
}

func (r *fakeRepo) GetPageByUUID(uuid string) (*models.Page, error) {
	p, ok := r.pages[uuid]
	if !ok {
		return nil, gorm.ErrRecordNotFound
	}
	copied := *p
	return &copied, nil
}

func (r *fakeRepo) SavePage(p *models.Page) error {
	copied := *p
	r.pages[p.UUID] = &copied
	r.savedPages++
	return nil
}

func (r *fakeRepo) GetOrCreatePricing() (*models.PublicationPricing, error) {
	if r.pricing == nil {
		r.pricing = models.DefaultPublicationPricing()
		r.pricing.ID = 1
	}
	copied := *r.pricing
	return &copied, nil
}

func (r *fakeRepo) SavePricing(p *models.PublicationPricing) error {
	copied := *p
	r.pricing = &copied
	return nil
}

func (r *fakeRepo) CreateWebhookEventIfNotExists(event *models.WebhookEvent) (bool, *models.WebhookEvent, error) {
	if stored, ok := r.events[event.StripeEventID]; ok {
		copied := *stored
		return false, &copied, nil
	}
	r.nextEventID++
	event.ID = r.nextEventID
	copied := *event
	r.events[event.StripeEventID] = &copied
	result := *event
	return true, &result, nil
}

func (r *fakeRepo) MarkWebhookProcessed(id uint, processingError string) error {
	for _, e := range r.events {
		if e.ID == id {
			now := time.Now()
			e.ProcessedAt = &now
			e.ProcessingError = processingError
			return nil
		}
	}
	return gorm.ErrRecordNotFound
}

// fakeStripe is a canned-response StripeClient that records calls.
type fakeStripe struct {
	checkoutSession *stripe.CheckoutSession
	checkoutErr     error
	checkoutCalls   []*stripe.CheckoutSessionParams

	customer      *stripe.Customer
	customerErr   error
	customerCalls int

	charges     []*stripe.Charge
	chargesErr  error
	chargeCalls int

	refund      *stripe.Refund
	refundErr   error
	refundCalls []*stripe.RefundParams

	subscription    *stripe.Subscription
	subscriptionErr error
}

func (f *fakeStripe) CreateCheckoutSession(params *stripe.CheckoutSessionParams) (*stripe.CheckoutSession, error) {
	f.checkoutCalls = append(f.checkoutCalls, params)
	if f.checkoutErr != nil {
		return nil, f.checkoutErr
	}
	if f.checkoutSession == nil {
		return &stripe.CheckoutSession{ID: "cs_test", URL: "https://checkout.example/cs_test"}, nil
	}
	return f.checkoutSession, nil
}

func (f *fakeStripe) CreateCustomer(params *stripe.CustomerParams) (*stripe.Customer, error) {
	f.customerCalls++
	if f.customerErr != nil {
		return nil, f.customerErr
	}
	if f.customer == nil {
		return &stripe.Customer{ID: "cus_test"}, nil
	}
	return f.customer, nil
}

func (f *fakeStripe) ListCharges(customerID string, limit int64) ([]*stripe.Charge, error) {
	f.chargeCalls++
	if f.chargesErr != nil {
		return nil, f.chargesErr
	}
	return f.charges, nil
}

func (f *fakeStripe) CreateRefund(params *stripe.RefundParams) (*stripe.Refund, error) {
	f.refundCalls = append(f.refundCalls, params)
	if f.refundErr != nil {
		return nil, f.refundErr
	}
	if f.refund == nil {
		return &stripe.Refund{ID: "re_test", Amount: 100, Status: "succeeded"}, nil
	}
	return f.refund, nil
}

func (f *fakeStripe) GetSubscription(id string) (*stripe.Subscription, error) {
	if f.subscriptionErr != nil {
		return nil, f.subscriptionErr
	}
	return f.subscription, nil
}

func newTestService(repo *fakeRepo, sc *fakeStripe) *Service {
	return NewService(repo, sc, PriceTable{
		"price_pro":      "pro",
		"price_business": "business",
	})
}

func seedUser(repo *fakeRepo, id uint, customerID string) *models.User {
	u := &models.User{
		ID:               id,
		Name:             "tester",
		Email:            "tester@example.com",
		StripeCustomerID: customerID,
		Plan:             "free",
		Status:           models.STATUS_ACTIVE,
	}
	repo.users[id] = u
	return u
}

func seedPage(repo *fakeRepo, userID uint, uuid string) *models.Page {
	p := &models.Page{
		ID:            1,
		UUID:          uuid,
		UserID:        userID,
		Title:         "My Page",
		PaymentStatus: models.PaymentStatusUnpaid,
	}
	repo.pages[uuid] = p
	return p
}

func TestCreatePublicationCheckout(t *testing.T) {
	ctx := context.Background()

	t.Run("creates a customer and a checkout session", func(t *testing.T) {
		repo := newFakeRepo()
		sc := &fakeStripe{}
		seedUser(repo, 1, "")
		seedPage(repo, 1, "page-uuid-1")
		svc := newTestService(repo, sc)

		sess, err := svc.CreatePublicationCheckout(ctx, 1, "page-uuid-1")
		require.NoError(t, err)
		assert.Equal(t, "cs_test", sess.SessionID)
		assert.Equal(t, "https://checkout.example/cs_test", sess.URL)

		// customer created once and persisted on the user
		assert.Equal(t, 1, sc.customerCalls)
		assert.Equal(t, "cus_test", repo.users[1].StripeCustomerID)

		// payment intent carries the reconciliation metadata
		require.Len(t, sc.checkoutCalls, 1)
		params := sc.checkoutCalls[0]
		require.NotNil(t, params.PaymentIntentData)
		assert.Equal(t, "page-uuid-1", params.PaymentIntentData.Metadata[MetadataPageID])
		assert.Equal(t, "1", params.PaymentIntentData.Metadata[MetadataUserID])
		assert.Equal(t, PaymentTypePublication, params.PaymentIntentData.Metadata[MetadataType])
	})

	t.Run("reuses an existing customer", func(t *testing.T) {
		repo := newFakeRepo()
		sc := &fakeStripe{}
		seedUser(repo, 1, "cus_existing")
		seedPage(repo, 1, "page-uuid-1")
		svc := newTestService(repo, sc)

		_, err := svc.CreatePublicationCheckout(ctx, 1, "page-uuid-1")
		require.NoError(t, err)
		assert.Equal(t, 0, sc.customerCalls)
	})

	t.Run("rejects already published pages", func(t *testing.T) {
		repo := newFakeRepo()
		sc := &fakeStripe{}
		seedUser(repo, 1, "cus_existing")
		page := seedPage(repo, 1, "page-uuid-1")
		page.Published = true
		page.PaymentStatus = models.PaymentStatusPaid
		svc := newTestService(repo, sc)

		_, err := svc.CreatePublicationCheckout(ctx, 1, "page-uuid-1")
		assert.ErrorIs(t, err, ErrAlreadyPaid)
		assert.Empty(t, sc.checkoutCalls)
	})

	t.Run("unknown user", func(t *testing.T) {
		repo := newFakeRepo()
		svc := newTestService(repo, &fakeStripe{})

		_, err := svc.CreatePublicationCheckout(ctx, 99, "page-uuid-1")
		assert.ErrorIs(t, err, ErrUserNotFound)
	})

	t.Run("foreign page reads as not found", func(t *testing.T) {
		repo := newFakeRepo()
		seedUser(repo, 1, "")
		seedUser(repo, 2, "")
		seedPage(repo, 2, "other-page")
		svc := newTestService(repo, &fakeStripe{})

		_, err := svc.CreatePublicationCheckout(ctx, 1, "other-page")
		assert.ErrorIs(t, err, ErrPageNotFound)
	})
}

func TestCreateSubscriptionCheckout(t *testing.T) {
	ctx := context.Background()

	t.Run("happy path", func(t *testing.T) {
		repo := newFakeRepo()
		sc := &fakeStripe{}
		seedUser(repo, 1, "cus_existing")
		svc := newTestService(repo, sc)

		sess, err := svc.CreateSubscriptionCheckout(ctx, 1, "price_pro")
		require.NoError(t, err)
		assert.NotEmpty(t, sess.SessionID)

		require.Len(t, sc.checkoutCalls, 1)
		params := sc.checkoutCalls[0]
		assert.Equal(t, string(stripe.CheckoutSessionModeSubscription), *params.Mode)
		require.NotNil(t, params.SubscriptionData)
		assert.Equal(t, "1", params.SubscriptionData.Metadata[MetadataUserID])
	})

	t.Run("missing arguments", func(t *testing.T) {
		svc := newTestService(newFakeRepo(), &fakeStripe{})

		_, err := svc.CreateSubscriptionCheckout(ctx, 0, "price_pro")
		assert.Error(t, err)
		_, err = svc.CreateSubscriptionCheckout(ctx, 1, "  ")
		assert.Error(t, err)
	})
}

func publicationCharge(pageUUID string, userID, intentID, status string) *stripe.Charge {
	return &stripe.Charge{
		ID:     "ch_" + pageUUID,
		Status: stripe.ChargeStatus(status),
		Metadata: map[string]string{
			MetadataPageID: pageUUID,
			MetadataUserID: userID,
			MetadataType:   PaymentTypePublication,
		},
		PaymentIntent: &stripe.PaymentIntent{ID: intentID},
	}
}

func TestVerifyAndPublish(t *testing.T) {
	ctx := context.Background()

	t.Run("publishes on a matching succeeded charge", func(t *testing.T) {
		repo := newFakeRepo()
		sc := &fakeStripe{
			charges: []*stripe.Charge{
				publicationCharge("some-other-page", "1", "pi_other", "succeeded"),
				publicationCharge("page-uuid-1", "1", "pi_match", "succeeded"),
			},
		}
		seedUser(repo, 1, "cus_1")
		seedPage(repo, 1, "page-uuid-1")
		svc := newTestService(repo, sc)

		page, charge, err := svc.VerifyAndPublish(ctx, 1, "page-uuid-1")
		require.NoError(t, err)
		require.NotNil(t, charge)
		assert.Equal(t, "pi_match", charge.PaymentIntent.ID)

		assert.True(t, page.Published)
		assert.Equal(t, models.PaymentStatusPaid, page.PaymentStatus)
		assert.Equal(t, "pi_match", page.PaymentIntentID)
		assert.NotNil(t, page.PaidAt)
		assert.NotNil(t, page.PublishedAt)
		assert.NotNil(t, page.RecoveredAt, "recovery path must stamp recovered_at")
	})

	t.Run("is idempotent for already published pages", func(t *testing.T) {
		repo := newFakeRepo()
		sc := &fakeStripe{}
		seedUser(repo, 1, "cus_1")
		page := seedPage(repo, 1, "page-uuid-1")
		page.Published = true
		page.PaymentStatus = models.PaymentStatusPaid
		svc := newTestService(repo, sc)

		got, charge, err := svc.VerifyAndPublish(ctx, 1, "page-uuid-1")
		require.NoError(t, err)
		assert.Nil(t, charge)
		assert.True(t, got.Published)
		assert.Equal(t, 0, sc.chargeCalls, "no provider scan for published pages")
	})

	t.Run("user without customer", func(t *testing.T) {
		repo := newFakeRepo()
		seedUser(repo, 1, "")
		seedPage(repo, 1, "page-uuid-1")
		svc := newTestService(repo, &fakeStripe{})

		_, _, err := svc.VerifyAndPublish(ctx, 1, "page-uuid-1")
		assert.ErrorIs(t, err, ErrNoCustomer)
	})

	t.Run("no matching charge", func(t *testing.T) {
		repo := newFakeRepo()
		sc := &fakeStripe{
			charges: []*stripe.Charge{
				// right page, wrong status
				publicationCharge("page-uuid-1", "1", "pi_fail", "failed"),
				// right status, wrong user
				publicationCharge("page-uuid-1", "2", "pi_foreign", "succeeded"),
			},
		}
		seedUser(repo, 1, "cus_1")
		seedPage(repo, 1, "page-uuid-1")
		svc := newTestService(repo, sc)

		_, _, err := svc.VerifyAndPublish(ctx, 1, "page-uuid-1")
		assert.ErrorIs(t, err, ErrNoMatchingCharge)
		assert.Equal(t, 0, repo.savedPages)
	})
}

func TestMatchPublicationCharge(t *testing.T) {
	tests := []struct {
		name    string
		charge  *stripe.Charge
		matched bool
	}{
		{
			name:    "succeeded publication charge",
			charge:  publicationCharge("uuid-1", "7", "pi_1", "succeeded"),
			matched: true,
		},
		{
			name:    "pending charge",
			charge:  publicationCharge("uuid-1", "7", "pi_1", "pending"),
			matched: false,
		},
		{
			name:    "different page",
			charge:  publicationCharge("uuid-2", "7", "pi_1", "succeeded"),
			matched: false,
		},
		{
			name:    "different user",
			charge:  publicationCharge("uuid-1", "8", "pi_1", "succeeded"),
			matched: false,
		},
		{
			name: "subscription charge",
			charge: &stripe.Charge{
				Status: "succeeded",
				Metadata: map[string]string{
					MetadataPageID: "uuid-1",
					MetadataUserID: "7",
					MetadataType:   PaymentTypeSubscription,
				},
			},
			matched: false,
		},
		{
			name:    "nil charge",
			charge:  nil,
			matched: false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := matchPublicationCharge([]*stripe.Charge{tt.charge}, "uuid-1", 7)
			if tt.matched {
				assert.NotNil(t, got)
			} else {
				assert.Nil(t, got)
			}
		})
	}
}

func TestRefundPublication(t *testing.T) {
	ctx := context.Background()

	t.Run("refunds and unpublishes", func(t *testing.T) {
		repo := newFakeRepo()
		sc := &fakeStripe{refund: &stripe.Refund{ID: "re_1", Amount: 100}}
		seedUser(repo, 1, "cus_1")
		page := seedPage(repo, 1, "page-uuid-1")
		page.Published = true
		page.PaymentStatus = models.PaymentStatusPaid
		page.PaymentIntentID = "pi_1"
		svc := newTestService(repo, sc)

		refund, err := svc.RefundPublication(ctx, 1, "page-uuid-1", "pi_1", "requested_by_customer")
		require.NoError(t, err)
		assert.Equal(t, "re_1", refund.ID)

		stored := repo.pages["page-uuid-1"]
		assert.False(t, stored.Published)
		assert.Equal(t, models.PaymentStatusRefunded, stored.PaymentStatus)
		assert.Equal(t, "re_1", stored.RefundID)
		assert.NotNil(t, stored.RefundedAt)

		require.Len(t, sc.refundCalls, 1)
		assert.Equal(t, "pi_1", *sc.refundCalls[0].PaymentIntent)
		assert.Equal(t, "requested_by_customer", *sc.refundCalls[0].Reason)
	})

	t.Run("unpaid page never reaches the provider", func(t *testing.T) {
		repo := newFakeRepo()
		sc := &fakeStripe{}
		seedUser(repo, 1, "cus_1")
		seedPage(repo, 1, "page-uuid-1")
		svc := newTestService(repo, sc)

		_, err := svc.RefundPublication(ctx, 1, "page-uuid-1", "pi_1", "")
		assert.ErrorIs(t, err, ErrNotPaid)
		assert.Empty(t, sc.refundCalls)
	})

	t.Run("provider failure keeps the page paid", func(t *testing.T) {
		repo := newFakeRepo()
		sc := &fakeStripe{refundErr: errors.New("stripe down")}
		seedUser(repo, 1, "cus_1")
		page := seedPage(repo, 1, "page-uuid-1")
		page.Published = true
		page.PaymentStatus = models.PaymentStatusPaid
		svc := newTestService(repo, sc)

		_, err := svc.RefundPublication(ctx, 1, "page-uuid-1", "pi_1", "")
		assert.Error(t, err)
		assert.Equal(t, models.PaymentStatusPaid, repo.pages["page-uuid-1"].PaymentStatus)
		assert.True(t, repo.pages["page-uuid-1"].Published)
	})
}

func TestForcePublish(t *testing.T) {
	repo := newFakeRepo()
	seedUser(repo, 1, "")
	seedPage(repo, 1, "page-uuid-1")
	svc := newTestService(repo, &fakeStripe{})

	page, err := svc.ForcePublish(context.Background(), 1, "page-uuid-1")
	require.NoError(t, err)

	assert.True(t, page.Published)
	assert.Equal(t, models.PaymentStatusPaid, page.PaymentStatus)
	assert.NotNil(t, page.PaidAt)
	assert.Nil(t, page.RecoveredAt, "operator override is not a recovery")
}

func TestUpdatePricing(t *testing.T) {
	ctx := context.Background()

	t.Run("partial update", func(t *testing.T) {
		repo := newFakeRepo()
		svc := newTestService(repo, &fakeStripe{})

		pricing, err := svc.UpdatePricing(ctx, 250, "", "")
		require.NoError(t, err)
		assert.Equal(t, int64(250), pricing.AmountCents)
		assert.Equal(t, models.DefaultPublicationCurrency, pricing.Currency)
		assert.Equal(t, models.DefaultPublicationDescription, pricing.Description)
	})

	t.Run("currency is normalized", func(t *testing.T) {
		repo := newFakeRepo()
		svc := newTestService(repo, &fakeStripe{})

		pricing, err := svc.UpdatePricing(ctx, 0, " USD ", "Launch fee")
		require.NoError(t, err)
		assert.Equal(t, "usd", pricing.Currency)
		assert.Equal(t, "Launch fee", pricing.Description)
		assert.Equal(t, int64(models.DefaultPublicationAmountCents), pricing.AmountCents)
	})
}
