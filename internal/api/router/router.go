package router

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/bundlebooth/booking-services/internal/availability"
	"github.com/bundlebooth/booking-services/internal/bookings"
	"github.com/bundlebooth/booking-services/internal/confirmation"
	httpmiddleware "github.com/bundlebooth/booking-services/internal/http/middleware"
	"github.com/bundlebooth/booking-services/internal/http/respond"
	"github.com/bundlebooth/booking-services/internal/payments"
	"github.com/bundlebooth/booking-services/internal/pricing"
	"github.com/bundlebooth/booking-services/pkg/logging"
)

// Config holds router configuration. Nil handlers leave their routes unmounted.
type Config struct {
	Logger              *logging.Logger
	AvailabilityHandler *availability.Handler
	PricingHandler      *pricing.Handler
	ConfirmationHandler *confirmation.Handler
	BookingsHandler     *bookings.Handler
	PaymentsHandler     *payments.Handler
	StripeWebhook       *payments.StripeWebhookHandler
	MetricsHandler      http.Handler
	CORSAllowedOrigins  []string

	// RateLimit guards the public API routes. Webhooks and health checks are exempt.
	RateLimit func(http.Handler) http.Handler
}

// New creates a new Chi router with all routes configured
func New(cfg *Config) http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(httpmiddleware.RequestLogger(cfg.Logger))
	r.Use(middleware.Recoverer)
	if len(cfg.CORSAllowedOrigins) > 0 {
		r.Use(httpmiddleware.CORS(cfg.CORSAllowedOrigins))
	}

	r.NotFound(func(w http.ResponseWriter, r *http.Request) {
		respond.Message(w, http.StatusNotFound, "not found")
	})
	r.MethodNotAllowed(func(w http.ResponseWriter, r *http.Request) {
		respond.Message(w, http.StatusMethodNotAllowed, "method not allowed")
	})

	// Health checks and webhooks
	r.Group(func(public chi.Router) {
		public.Get("/health", health)
		if cfg.ConfirmationHandler != nil {
			public.Get("/", cfg.ConfirmationHandler.Banner)
		}
		if cfg.MetricsHandler != nil {
			public.Handle("/metrics", cfg.MetricsHandler)
		}
		if cfg.StripeWebhook != nil {
			public.Post("/api/payments/webhook", cfg.StripeWebhook.Handle)
		}
	})

	// Client-facing API
	r.Group(func(api chi.Router) {
		if cfg.RateLimit != nil {
			api.Use(cfg.RateLimit)
		}
		if cfg.ConfirmationHandler != nil {
			api.Post("/send-booking-email", cfg.ConfirmationHandler.SendBookingEmail)
			api.Post("/api/confirmations/render", cfg.ConfirmationHandler.Render)
		}
		if cfg.AvailabilityHandler != nil {
			api.Get("/api/availability", cfg.AvailabilityHandler.GetAvailability)
		}
		if cfg.PricingHandler != nil {
			api.Post("/api/pricing/preview", cfg.PricingHandler.Preview)
		}
		if cfg.BookingsHandler != nil {
			api.Get("/api/bookings", cfg.BookingsHandler.List)
			api.Post("/api/bookings", cfg.BookingsHandler.Create)
		}
		if cfg.PaymentsHandler != nil {
			api.Post("/api/payments/create-payment-intent", cfg.PaymentsHandler.CreatePaymentIntent)
			api.Post("/api/payments/payment-success", cfg.PaymentsHandler.PaymentSuccess)
		}
	})

	return r
}

func health(w http.ResponseWriter, r *http.Request) {
	respond.JSON(w, http.StatusOK, map[string]string{"status": "ok"})
}
