package stripewebhook

import (
	"context"
	"errors"
	"io"
	"testing"

	"github.com/google/uuid"
	"github.com/stripe/stripe-go/v84"

	"github.com/martinolivares/vendora-backend/internal/settlement"
	pkgerrors "github.com/martinolivares/vendora-backend/pkg/errors"
	"github.com/martinolivares/vendora-backend/pkg/logger"
)

type stubSettler struct {
	calls  []string
	result *settlement.Result
	err    error
}

func (s *stubSettler) SettlePayment(ctx context.Context, sessionID string) (*settlement.Result, error) {
	s.calls = append(s.calls, sessionID)
	if s.err != nil {
		return nil, s.err
	}
	return s.result, nil
}

func testLogger() *logger.Logger {
	return logger.New(logger.Options{ServiceName: "test", Output: io.Discard})
}

func checkoutCompletedEvent(sessionID string) *stripe.Event {
	return &stripe.Event{
		ID:   "evt_" + sessionID,
		Type: stripe.EventTypeCheckoutSessionCompleted,
		Data: &stripe.EventData{
			Raw:    []byte(`{"id":"` + sessionID + `"}`),
			Object: map[string]interface{}{"id": sessionID},
		},
	}
}

func TestHandleEventSettlesCompletedCheckout(t *testing.T) {
	settler := &stubSettler{result: &settlement.Result{OrderID: uuid.New(), OrderNumber: "VN-1042"}}
	service, err := NewService(ServiceParams{Settlement: settler, Logger: testLogger()})
	if err != nil {
		t.Fatalf("setup service: %v", err)
	}

	if err := service.HandleEvent(context.Background(), checkoutCompletedEvent("cs_test_123")); err != nil {
		t.Fatalf("handle event: %v", err)
	}
	if len(settler.calls) != 1 || settler.calls[0] != "cs_test_123" {
		t.Fatalf("settler calls = %v", settler.calls)
	}
}

func TestHandleEventAcceptsDuplicateResolution(t *testing.T) {
	settler := &stubSettler{result: &settlement.Result{OrderID: uuid.New(), AlreadySettled: true}}
	service, err := NewService(ServiceParams{Settlement: settler, Logger: testLogger()})
	if err != nil {
		t.Fatalf("setup service: %v", err)
	}

	if err := service.HandleEvent(context.Background(), checkoutCompletedEvent("cs_test_dup")); err != nil {
		t.Fatalf("replays must be acknowledged: %v", err)
	}
}

func TestHandleEventPropagatesSettlementFailure(t *testing.T) {
	settler := &stubSettler{err: errors.New("db down")}
	service, err := NewService(ServiceParams{Settlement: settler, Logger: testLogger()})
	if err != nil {
		t.Fatalf("setup service: %v", err)
	}

	if err := service.HandleEvent(context.Background(), checkoutCompletedEvent("cs_test_err")); err == nil {
		t.Fatal("expected settlement failure to propagate")
	}
}

func TestHandleEventIgnoresOtherEventTypes(t *testing.T) {
	settler := &stubSettler{}
	service, err := NewService(ServiceParams{Settlement: settler, Logger: testLogger()})
	if err != nil {
		t.Fatalf("setup service: %v", err)
	}

	event := &stripe.Event{
		Type: stripe.EventTypeInvoicePaid,
		Data: &stripe.EventData{Raw: []byte(`{}`)},
	}
	if err := service.HandleEvent(context.Background(), event); err != nil {
		t.Fatalf("unknown events must be acknowledged: %v", err)
	}
	if len(settler.calls) != 0 {
		t.Fatal("settler must not run for unrelated events")
	}
}

func TestHandleEventRejectsMissingSessionID(t *testing.T) {
	service, err := NewService(ServiceParams{Settlement: &stubSettler{}, Logger: testLogger()})
	if err != nil {
		t.Fatalf("setup service: %v", err)
	}

	event := &stripe.Event{
		Type: stripe.EventTypeCheckoutSessionCompleted,
		Data: &stripe.EventData{Raw: []byte(`{}`), Object: map[string]interface{}{}},
	}
	handleErr := service.HandleEvent(context.Background(), event)
	typed := pkgerrors.As(handleErr)
	if typed == nil || typed.Code() != pkgerrors.CodeValidation {
		t.Fatalf("expected validation error, got %v", handleErr)
	}
}

func TestHandleEventRequiresEventData(t *testing.T) {
	service, err := NewService(ServiceParams{Settlement: &stubSettler{}, Logger: testLogger()})
	if err != nil {
		t.Fatalf("setup service: %v", err)
	}
	if err := service.HandleEvent(context.Background(), nil); err == nil {
		t.Fatal("expected error for nil event")
	}
}
