package controllers

import (
	"context"
	"net/http"

	"github.com/google/uuid"

	"github.com/martinolivares/vendora-backend/api/responses"
	"github.com/martinolivares/vendora-backend/internal/settlement"
	pkgerrors "github.com/martinolivares/vendora-backend/pkg/errors"
	"github.com/martinolivares/vendora-backend/pkg/logger"
)

// PaymentSettler is implemented by the settlement service.
type PaymentSettler interface {
	SettlePayment(ctx context.Context, sessionID string) (*settlement.Result, error)
}

// CheckoutConfirmation is the success-page callback: the storefront redirects
// the buyer here with the checkout session id. It settles the payment (a
// no-op when the webhook already did) and returns the order summary, so the
// buyer sees a confirmed order even when webhook delivery lags.
func CheckoutConfirmation(settler PaymentSettler, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()

		if settler == nil {
			responses.WriteError(ctx, logg, w, pkgerrors.New(pkgerrors.CodeInternal, "settlement service unavailable"))
			return
		}

		sessionID := r.URL.Query().Get("session_id")
		if sessionID == "" {
			responses.WriteError(ctx, logg, w, pkgerrors.New(pkgerrors.CodeValidation, "session_id is required"))
			return
		}

		result, err := settler.SettlePayment(ctx, sessionID)
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}

		status := http.StatusCreated
		if result.AlreadySettled {
			status = http.StatusOK
		}
		responses.WriteSuccessStatus(w, status, newConfirmationResponse(result))
	}
}

type confirmationResponse struct {
	OrderID          uuid.UUID `json:"order_id"`
	OrderNumber      string    `json:"order_number"`
	AmountTotalCents int64     `json:"amount_total_cents"`
	AlreadySettled   bool      `json:"already_settled"`
}

func newConfirmationResponse(result *settlement.Result) confirmationResponse {
	if result == nil {
		return confirmationResponse{}
	}
	return confirmationResponse{
		OrderID:          result.OrderID,
		OrderNumber:      result.OrderNumber,
		AmountTotalCents: result.AmountTotalCents,
		AlreadySettled:   result.AlreadySettled,
	}
}
