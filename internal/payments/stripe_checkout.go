package payments

import (
	"context"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stripe/stripe-go/v79"
	"github.com/stripe/stripe-go/v79/client"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"

	"github.com/bundlebooth/booking-services/internal/apperr"
	"github.com/bundlebooth/booking-services/pkg/logging"
)

const stripeCollaborator = "stripe"

var stripeTracer = otel.Tracer("bundlebooth.internal.payments.stripe")

// IntentParams describes a payment intent to create.
type IntentParams struct {
	AmountMinor  int64
	Currency     string
	BookingID    string
	Description  string
	ReceiptEmail string
}

// Intent is the subset of a Stripe PaymentIntent the booking flow needs.
type Intent struct {
	ID           string
	ClientSecret string
	Amount       int64
	Currency     string
	Status       string
	Metadata     map[string]string
}

// Succeeded reports whether the intent has been paid.
func (i *Intent) Succeeded() bool {
	return i.Status == string(stripe.PaymentIntentStatusSucceeded)
}

// StripeConfig configures StripeService.
type StripeConfig struct {
	SecretKey string
	Currency  string
	// BaseURL overrides https://api.stripe.com (for testing).
	BaseURL    string
	HTTPClient *http.Client
}

// StripeService creates and reads PaymentIntents through a per-process client.
// Network retries are disabled; each call is one attempt.
type StripeService struct {
	api      *client.API
	currency string
	logger   *logging.Logger
}

// NewStripeService returns nil when no secret key is configured.
func NewStripeService(cfg StripeConfig, logger *logging.Logger) *StripeService {
	if strings.TrimSpace(cfg.SecretKey) == "" {
		return nil
	}
	if logger == nil {
		logger = logging.Default()
	}
	if cfg.Currency == "" {
		cfg.Currency = "cad"
	}
	if cfg.HTTPClient == nil {
		cfg.HTTPClient = &http.Client{Timeout: 10 * time.Second}
	}

	backendCfg := &stripe.BackendConfig{
		HTTPClient:        cfg.HTTPClient,
		MaxNetworkRetries: stripe.Int64(0),
		LeveledLogger:     &stripe.LeveledLogger{Level: stripe.LevelNull},
	}
	if cfg.BaseURL != "" {
		backendCfg.URL = stripe.String(strings.TrimRight(cfg.BaseURL, "/"))
	}
	api := client.New(cfg.SecretKey, &stripe.Backends{
		API:     stripe.GetBackendWithConfig(stripe.APIBackend, backendCfg),
		Connect: stripe.GetBackendWithConfig(stripe.ConnectBackend, backendCfg),
		Uploads: stripe.GetBackendWithConfig(stripe.UploadsBackend, backendCfg),
	})

	return &StripeService{
		api:      api,
		currency: strings.ToLower(cfg.Currency),
		logger:   logger,
	}
}

// Currency is the default ISO currency for new intents.
func (s *StripeService) Currency() string { return s.currency }

// CreateIntent creates a PaymentIntent with automatic payment methods.
func (s *StripeService) CreateIntent(ctx context.Context, p IntentParams) (*Intent, error) {
	ctx, span := stripeTracer.Start(ctx, "stripe.create_payment_intent")
	defer span.End()

	currency := strings.ToLower(p.Currency)
	if currency == "" {
		currency = s.currency
	}
	span.SetAttributes(
		attribute.Int64("bundlebooth.amount_minor", p.AmountMinor),
		attribute.String("bundlebooth.currency", currency),
		attribute.String("bundlebooth.booking_id", p.BookingID),
	)

	params := &stripe.PaymentIntentParams{
		Amount:   stripe.Int64(p.AmountMinor),
		Currency: stripe.String(currency),
		AutomaticPaymentMethods: &stripe.PaymentIntentAutomaticPaymentMethodsParams{
			Enabled: stripe.Bool(true),
		},
	}
	params.Context = ctx
	if p.Description != "" {
		params.Description = stripe.String(p.Description)
	}
	if p.ReceiptEmail != "" {
		params.ReceiptEmail = stripe.String(p.ReceiptEmail)
	}
	if p.BookingID != "" {
		params.AddMetadata("booking_id", p.BookingID)
	}

	pi, err := s.api.PaymentIntents.New(params)
	if err != nil {
		span.RecordError(err)
		s.logger.Error("stripe payment intent failed", "error", err, "amount_minor", p.AmountMinor, "currency", currency)
		return nil, apperr.Upstream(stripeCollaborator, fmt.Errorf("create payment intent: %w", err))
	}
	s.logger.Info("stripe payment intent created", "payment_intent_id", pi.ID, "amount_minor", pi.Amount, "booking_id", p.BookingID)
	return toIntent(pi), nil
}

// GetIntent retrieves a PaymentIntent by id.
func (s *StripeService) GetIntent(ctx context.Context, id string) (*Intent, error) {
	ctx, span := stripeTracer.Start(ctx, "stripe.get_payment_intent")
	defer span.End()

	params := &stripe.PaymentIntentParams{}
	params.Context = ctx
	pi, err := s.api.PaymentIntents.Get(id, params)
	if err != nil {
		span.RecordError(err)
		return nil, apperr.Upstream(stripeCollaborator, fmt.Errorf("retrieve payment intent %s: %w", id, err))
	}
	return toIntent(pi), nil
}

func toIntent(pi *stripe.PaymentIntent) *Intent {
	return &Intent{
		ID:           pi.ID,
		ClientSecret: pi.ClientSecret,
		Amount:       pi.Amount,
		Currency:     string(pi.Currency),
		Status:       string(pi.Status),
		Metadata:     pi.Metadata,
	}
}

// ToMinorUnits converts a major-unit amount to cents, rounding half away from zero.
func ToMinorUnits(amount decimal.Decimal) int64 {
	return amount.Mul(decimal.NewFromInt(100)).Round(0).IntPart()
}
