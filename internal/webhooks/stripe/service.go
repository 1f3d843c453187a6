package stripewebhook

import (
	"context"

	"github.com/stripe/stripe-go/v84"

	"github.com/martinolivares/vendora-backend/internal/settlement"
	pkgerrors "github.com/martinolivares/vendora-backend/pkg/errors"
	"github.com/martinolivares/vendora-backend/pkg/logger"
)

// PaymentSettler is implemented by the settlement service.
type PaymentSettler interface {
	SettlePayment(ctx context.Context, sessionID string) (*settlement.Result, error)
}

type ServiceParams struct {
	Settlement PaymentSettler
	Logger     *logger.Logger
}

// Service routes verified Stripe events to the settlement engine.
type Service struct {
	settler PaymentSettler
	logg    *logger.Logger
}

func NewService(params ServiceParams) (*Service, error) {
	if params.Settlement == nil {
		return nil, pkgerrors.New(pkgerrors.CodeInternal, "settlement service required")
	}
	if params.Logger == nil {
		return nil, pkgerrors.New(pkgerrors.CodeInternal, "logger required")
	}
	return &Service{settler: params.Settlement, logg: params.Logger}, nil
}

// HandleEvent processes one verified webhook delivery. Unknown event types
// are acknowledged without action so Stripe stops redelivering them.
func (s *Service) HandleEvent(ctx context.Context, event *stripe.Event) error {
	if event == nil || event.Data == nil {
		return pkgerrors.New(pkgerrors.CodeValidation, "stripe event data required")
	}

	switch event.Type {
	case stripe.EventTypeCheckoutSessionCompleted:
		sessionID := event.GetObjectValue("id")
		if sessionID == "" {
			return pkgerrors.New(pkgerrors.CodeValidation, "session id missing from event")
		}
		result, err := s.settler.SettlePayment(ctx, sessionID)
		if err != nil {
			return err
		}
		if result.AlreadySettled {
			s.logg.Info(ctx, "event replay resolved to existing order")
		}
		return nil
	default:
		s.logg.Info(s.logg.WithField(ctx, "event_type", string(event.Type)), "ignoring stripe event")
		return nil
	}
}
