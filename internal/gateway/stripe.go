package gateway

import (
	"context"

	"github.com/stripe/stripe-go/v84"
	"github.com/stripe/stripe-go/v84/checkout/session"

	pkgstripe "github.com/martinolivares/vendora-backend/pkg/stripe"
)

// CheckoutSessionClient exposes the subset of Stripe operations the settlement
// service needs.
type CheckoutSessionClient interface {
	RetrieveSession(ctx context.Context, id string) (*stripe.CheckoutSession, error)
}

type checkoutClientWrapper struct{}

// NewCheckoutClient wraps the shared Stripe client so settlement can be tested
// against a stub.
func NewCheckoutClient(api *pkgstripe.Client) CheckoutSessionClient {
	if api == nil {
		return nil
	}
	return &checkoutClientWrapper{}
}

// RetrieveSession loads a checkout session with its line items and the backing
// product objects expanded, so settlement never needs follow-up calls.
func (w *checkoutClientWrapper) RetrieveSession(ctx context.Context, id string) (*stripe.CheckoutSession, error) {
	params := &stripe.CheckoutSessionParams{}
	params.Context = ctx
	params.AddExpand("line_items")
	params.AddExpand("line_items.data.price.product")
	return session.Get(id, params)
}
