package stripe

import (
	"context"
	"fmt"

	"github.com/stripe/stripe-go/v84"
	"github.com/stripe/stripe-go/v84/subscription"
)

// SubscriptionUpdater pushes a new billed seat quantity to a Stripe
// subscription with proration.
type SubscriptionUpdater interface {
	UpdateQuantity(ctx context.Context, subscriptionID string, quantity int) error
}

type subscriptionClient struct{}

// NewSubscriptionClient wraps the configured Stripe client so callers can be
// tested against the SubscriptionUpdater interface.
func NewSubscriptionClient(api *Client) SubscriptionUpdater {
	if api == nil {
		return nil
	}
	return &subscriptionClient{}
}

// UpdateQuantity sets the subscription's first item to the provided quantity.
// Stripe prorates the difference on the current invoice period.
func (c *subscriptionClient) UpdateQuantity(ctx context.Context, subscriptionID string, quantity int) error {
	if subscriptionID == "" {
		return fmt.Errorf("stripe subscription id is required")
	}
	if quantity < 0 {
		return fmt.Errorf("quantity must be non-negative, got %d", quantity)
	}

	current, err := subscription.Get(subscriptionID, &stripe.SubscriptionParams{
		Params: stripe.Params{Context: ctx},
	})
	if err != nil {
		return fmt.Errorf("get subscription %s: %w", subscriptionID, err)
	}
	if current.Items == nil || len(current.Items.Data) == 0 {
		return fmt.Errorf("subscription %s has no items", subscriptionID)
	}

	item := current.Items.Data[0]
	if item.Quantity == int64(quantity) {
		return nil
	}

	params := &stripe.SubscriptionParams{
		Params: stripe.Params{Context: ctx},
		Items: []*stripe.SubscriptionItemsParams{
			{
				ID:       stripe.String(item.ID),
				Quantity: stripe.Int64(int64(quantity)),
			},
		},
		ProrationBehavior: stripe.String("create_prorations"),
	}
	if _, err := subscription.Update(subscriptionID, params); err != nil {
		return fmt.Errorf("update subscription %s quantity: %w", subscriptionID, err)
	}
	return nil
}
