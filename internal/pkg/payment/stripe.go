package payment

import (
	"github.com/stripe/stripe-go/v72"
	"github.com/stripe/stripe-go/v72/client"

	"github.com/memorizu/memorizu/internal/pkg/env"
)

// StripeClient is the narrow slice of the Stripe API the payment service
// uses. Handlers and tests depend on this interface, not on the SDK client.
type StripeClient interface {
	CreateCheckoutSession(params *stripe.CheckoutSessionParams) (*stripe.CheckoutSession, error)
	CreateCustomer(params *stripe.CustomerParams) (*stripe.Customer, error)
	ListCharges(customerID string, limit int64) ([]*stripe.Charge, error)
	CreateRefund(params *stripe.RefundParams) (*stripe.Refund, error)
	GetSubscription(id string) (*stripe.Subscription, error)
}

type apiClient struct {
	api *client.API
}

// NewStripeClient wraps a stripe-go client.
func NewStripeClient(api *client.API) StripeClient {
	return &apiClient{api: api}
}

// NewStripeClientFromEnv builds a client from STRIPE_API_KEY.
func NewStripeClientFromEnv() StripeClient {
	return NewStripeClient(client.New(env.GetEnv("STRIPE_API_KEY", ""), nil))
}

func (c *apiClient) CreateCheckoutSession(params *stripe.CheckoutSessionParams) (*stripe.CheckoutSession, error) {
	return c.api.CheckoutSessions.New(params)
}

func (c *apiClient) CreateCustomer(params *stripe.CustomerParams) (*stripe.Customer, error) {
	return c.api.Customers.New(params)
}

// ListCharges returns up to limit most recent charges for a customer. The
// scan is capped at a single page; customers with more charges than the cap
// need the webhook path, this is only the recovery fallback.
func (c *apiClient) ListCharges(customerID string, limit int64) ([]*stripe.Charge, error) {
	params := &stripe.ChargeListParams{Customer: stripe.String(customerID)}
	params.Limit = stripe.Int64(limit)

	charges := make([]*stripe.Charge, 0, limit)
	it := c.api.Charges.List(params)
	for it.Next() {
		charges = append(charges, it.Charge())
		if int64(len(charges)) >= limit {
			break
		}
	}
	if err := it.Err(); err != nil {
		return nil, err
	}
	return charges, nil
}

func (c *apiClient) CreateRefund(params *stripe.RefundParams) (*stripe.Refund, error) {
	return c.api.Refunds.New(params)
}

func (c *apiClient) GetSubscription(id string) (*stripe.Subscription, error) {
	return c.api.Subscriptions.Get(id, nil)
}
