package stripe

import (
	"context"
	"fmt"

	"github.com/stripe/stripe-go/v84"
	"github.com/stripe/stripe-go/v84/checkout/session"

	"github.com/heykudos/kudos-backend/pkg/config"
)

// CheckoutSessionInput carries the data needed to start billing setup.
type CheckoutSessionInput struct {
	CompanyID        string
	StripeCustomerID string
	SeatCount        int
	Metadata         map[string]string
}

// CheckoutSessionCreator starts a Stripe Checkout session for the company's
// first subscription.
type CheckoutSessionCreator interface {
	CreateCheckoutSession(ctx context.Context, input CheckoutSessionInput) (string, error)
}

type checkoutClient struct {
	cfg config.StripeConfig
}

// NewCheckoutClient wraps the configured Stripe client for checkout sessions.
func NewCheckoutClient(api *Client, cfg config.StripeConfig) CheckoutSessionCreator {
	if api == nil {
		return nil
	}
	return &checkoutClient{cfg: cfg}
}

func (c *checkoutClient) CreateCheckoutSession(ctx context.Context, input CheckoutSessionInput) (string, error) {
	if input.CompanyID == "" {
		return "", fmt.Errorf("company id is required")
	}
	seatCount := input.SeatCount
	if seatCount < 1 {
		seatCount = 1
	}

	metadata := map[string]string{"company_id": input.CompanyID}
	for k, v := range input.Metadata {
		metadata[k] = v
	}

	params := &stripe.CheckoutSessionParams{
		Params:            stripe.Params{Context: ctx},
		Mode:              stripe.String(string(stripe.CheckoutSessionModeSubscription)),
		ClientReferenceID: stripe.String(input.CompanyID),
		SuccessURL:        stripe.String(c.cfg.CheckoutSuccessURL),
		CancelURL:         stripe.String(c.cfg.CheckoutCancelURL),
		LineItems: []*stripe.CheckoutSessionLineItemParams{
			{
				Price:    stripe.String(c.cfg.SeatPriceID),
				Quantity: stripe.Int64(int64(seatCount)),
			},
		},
		SubscriptionData: &stripe.CheckoutSessionSubscriptionDataParams{
			Metadata: metadata,
		},
	}
	if input.StripeCustomerID != "" {
		params.Customer = stripe.String(input.StripeCustomerID)
	}

	created, err := session.New(params)
	if err != nil {
		return "", fmt.Errorf("create checkout session: %w", err)
	}
	return created.URL, nil
}
