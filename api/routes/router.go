package routes

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/martinolivares/vendora-backend/api/controllers"
	webhookcontrollers "github.com/martinolivares/vendora-backend/api/controllers/webhooks"
	"github.com/martinolivares/vendora-backend/api/middleware"
	stripewebhook "github.com/martinolivares/vendora-backend/internal/webhooks/stripe"
	"github.com/martinolivares/vendora-backend/pkg/config"
	"github.com/martinolivares/vendora-backend/pkg/db"
	"github.com/martinolivares/vendora-backend/pkg/logger"
	"github.com/martinolivares/vendora-backend/pkg/redis"
	"github.com/martinolivares/vendora-backend/pkg/stripe"
)

type RouterParams struct {
	Config     *config.Config
	Logger     *logger.Logger
	DB         db.Pinger
	Redis      redis.Pinger
	Settlement controllers.PaymentSettler
	Stripe     *stripe.Client
	Webhook    *stripewebhook.Service
	Guard      *stripewebhook.IdempotencyGuard
	MetricsReg prometheus.Gatherer
}

func NewRouter(p RouterParams) http.Handler {
	r := chi.NewRouter()
	r.Use(
		middleware.Recoverer(p.Logger),
		middleware.RequestID(p.Logger),
		middleware.Logging(p.Logger),
		middleware.CORS(),
	)

	r.Route("/health", func(r chi.Router) {
		r.Get("/live", controllers.HealthLive(p.Config))
		r.Get("/ready", controllers.HealthReady(p.Config, p.Logger, p.DB, p.Redis))
	})

	if p.MetricsReg != nil {
		r.Method(http.MethodGet, "/metrics", promhttp.HandlerFor(p.MetricsReg, promhttp.HandlerOpts{}))
	}

	r.Route("/api/v1/webhooks", func(r chi.Router) {
		r.Post("/stripe", webhookcontrollers.StripeWebhook(webhookDeps(p)))
	})

	r.Route("/api/v1/checkout", func(r chi.Router) {
		r.Get("/confirmation", controllers.CheckoutConfirmation(p.Settlement, p.Logger))
	})

	return r
}

// webhookDeps converts the concrete handles into the controller's interfaces,
// keeping nil pointers as nil interfaces so the handler fails closed.
func webhookDeps(p RouterParams) (webhookcontrollers.StripeWebhookService, webhookcontrollers.SigningSecretProvider, webhookcontrollers.EventGuard, *logger.Logger) {
	var svc webhookcontrollers.StripeWebhookService
	if p.Webhook != nil {
		svc = p.Webhook
	}
	var client webhookcontrollers.SigningSecretProvider
	if p.Stripe != nil {
		client = p.Stripe
	}
	var guard webhookcontrollers.EventGuard
	if p.Guard != nil {
		guard = p.Guard
	}
	return svc, client, guard, p.Logger
}
