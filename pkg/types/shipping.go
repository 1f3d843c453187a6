package types

import "encoding/json"

// ShippingDetails is the checkout-supplied shipping record carried in the
// payment session metadata as a JSON blob.
type ShippingDetails struct {
	Name       string `json:"name" validate:"required"`
	Address    string `json:"address" validate:"required"`
	City       string `json:"city" validate:"required"`
	State      string `json:"state"`
	Country    string `json:"country" validate:"required"`
	PostalCode string `json:"postal_code"`
	Contact    string `json:"contact"`

	Method   string `json:"method"`
	FeeCents int    `json:"fee_cents" validate:"gte=0"`
}

// ParseShippingDetails decodes the serialized shipping record.
func ParseShippingDetails(raw string) (*ShippingDetails, error) {
	var details ShippingDetails
	if err := json.Unmarshal([]byte(raw), &details); err != nil {
		return nil, err
	}
	return &details, nil
}
