package routes

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/martinolivares/vendora-backend/internal/settlement"
	"github.com/martinolivares/vendora-backend/pkg/config"
	"github.com/martinolivares/vendora-backend/pkg/logger"
	"github.com/martinolivares/vendora-backend/pkg/metrics"
)

type stubPinger struct{}

func (stubPinger) Ping(context.Context) error {
	return nil
}

type stubSettler struct{}

func (stubSettler) SettlePayment(ctx context.Context, sessionID string) (*settlement.Result, error) {
	return &settlement.Result{OrderID: uuid.New(), OrderNumber: "VN-1"}, nil
}

func testRouter(t *testing.T, reg prometheus.Gatherer) http.Handler {
	t.Helper()
	cfg := &config.Config{App: config.AppConfig{Env: "dev", Port: "8080"}}
	return NewRouter(RouterParams{
		Config:     cfg,
		Logger:     logger.New(logger.Options{ServiceName: "test"}),
		DB:         stubPinger{},
		Redis:      stubPinger{},
		Settlement: stubSettler{},
		MetricsReg: reg,
	})
}

func TestRouterHealthEndpoints(t *testing.T) {
	router := testRouter(t, nil)

	for _, path := range []string{"/health/live", "/health/ready"} {
		req := httptest.NewRequest(http.MethodGet, path, nil)
		rec := httptest.NewRecorder()
		router.ServeHTTP(rec, req)
		if rec.Code != http.StatusOK {
			t.Fatalf("%s: expected 200, got %d (%s)", path, rec.Code, rec.Body.String())
		}
	}
}

func TestRouterCheckoutConfirmationRoute(t *testing.T) {
	router := testRouter(t, nil)

	req := httptest.NewRequest(http.MethodGet, "/api/v1/checkout/confirmation?session_id=cs_test_1", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	if rec.Code != http.StatusCreated {
		t.Fatalf("expected 201, got %d (%s)", rec.Code, rec.Body.String())
	}
}

func TestRouterMetricsEndpoint(t *testing.T) {
	reg := prometheus.NewRegistry()
	metrics.NewSettlementMetrics(reg)
	router := testRouter(t, reg)

	req := httptest.NewRequest(http.MethodGet, "/metrics", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
}

func TestRouterMetricsDisabledWithoutRegistry(t *testing.T) {
	router := testRouter(t, nil)

	req := httptest.NewRequest(http.MethodGet, "/metrics", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	if rec.Code != http.StatusNotFound {
		t.Fatalf("expected 404 when metrics are not wired, got %d", rec.Code)
	}
}

func TestRouterWebhookWithoutServiceFailsClosed(t *testing.T) {
	router := testRouter(t, nil)

	req := httptest.NewRequest(http.MethodPost, "/api/v1/webhooks/stripe", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	if rec.Code != http.StatusInternalServerError {
		t.Fatalf("expected 500 when webhook deps missing, got %d", rec.Code)
	}
}
