package settlement

import (
	"fmt"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"github.com/stripe/stripe-go/v84"

	pkgerrors "github.com/martinolivares/vendora-backend/pkg/errors"
	"github.com/martinolivares/vendora-backend/pkg/types"
)

// Metadata keys written by the checkout flow onto the payment session and its
// product objects.
const (
	metadataOrderNumber     = "order_number"
	metadataUserID          = "user_id"
	metadataShippingDetails = "shipping_details"
	metadataProductID       = "product_id"
)

// orderMetadata is the checkout context recovered from session metadata. It is
// everything settlement needs beyond the line items themselves.
type orderMetadata struct {
	OrderNumber string
	UserID      uuid.UUID
	Shipping    types.ShippingDetails
}

func extractOrderMetadata(sess *stripe.CheckoutSession, validate *validator.Validate) (*orderMetadata, error) {
	if sess == nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "checkout session required")
	}

	orderNumber := sess.Metadata[metadataOrderNumber]
	if orderNumber == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "order number missing from session metadata")
	}

	rawUserID := sess.Metadata[metadataUserID]
	if rawUserID == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "user id missing from session metadata")
	}
	userID, err := uuid.Parse(rawUserID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid user id in session metadata")
	}

	rawShipping := sess.Metadata[metadataShippingDetails]
	if rawShipping == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "shipping details missing from session metadata")
	}
	shipping, err := types.ParseShippingDetails(rawShipping)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid shipping details in session metadata")
	}
	if validate != nil {
		if err := validate.Struct(shipping); err != nil {
			return nil, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "incomplete shipping details")
		}
	}

	return &orderMetadata{
		OrderNumber: orderNumber,
		UserID:      userID,
		Shipping:    *shipping,
	}, nil
}

// lineItemProductID recovers the catalog product id stamped on the Stripe
// product at listing time. Returns an error when the line item has no
// resolvable product reference; callers skip such lines instead of failing
// the settlement.
func lineItemProductID(line *stripe.LineItem) (uuid.UUID, error) {
	if line == nil || line.Price == nil || line.Price.Product == nil {
		return uuid.Nil, fmt.Errorf("line item has no expanded product")
	}
	raw := line.Price.Product.Metadata[metadataProductID]
	if raw == "" {
		return uuid.Nil, fmt.Errorf("product %s has no %s metadata", line.Price.Product.ID, metadataProductID)
	}
	id, err := uuid.Parse(raw)
	if err != nil {
		return uuid.Nil, fmt.Errorf("product %s has invalid %s metadata: %w", line.Price.Product.ID, metadataProductID, err)
	}
	return id, nil
}
