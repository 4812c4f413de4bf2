package payments

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/stripe/stripe-go/v79"
	"github.com/stripe/stripe-go/v79/webhook"

	"github.com/bundlebooth/booking-services/internal/bookings"
	"github.com/bundlebooth/booking-services/internal/http/respond"
	"github.com/bundlebooth/booking-services/pkg/logging"
)

const maxWebhookBytes = 1 << 20

// StripeWebhookHandler handles Stripe webhook events for payment intents.
// Signature verification is its only authentication.
type StripeWebhookHandler struct {
	webhookSecret string
	tolerance     time.Duration
	bookings      PaidMarker
	logger        *logging.Logger
}

// NewStripeWebhookHandler creates a new handler for Stripe webhooks.
func NewStripeWebhookHandler(webhookSecret string, marker PaidMarker, logger *logging.Logger) *StripeWebhookHandler {
	if logger == nil {
		logger = logging.Default()
	}
	return &StripeWebhookHandler{
		webhookSecret: webhookSecret,
		tolerance:     webhook.DefaultTolerance,
		bookings:      marker,
		logger:        logger,
	}
}

// Handle processes incoming Stripe webhook events.
func (h *StripeWebhookHandler) Handle(w http.ResponseWriter, r *http.Request) {
	if strings.TrimSpace(h.webhookSecret) == "" {
		respond.Message(w, http.StatusServiceUnavailable, "stripe webhook not configured")
		return
	}
	sigHeader := r.Header.Get("Stripe-Signature")
	if strings.TrimSpace(sigHeader) == "" {
		respond.Message(w, http.StatusBadRequest, "missing Stripe-Signature header")
		return
	}

	payload, err := io.ReadAll(io.LimitReader(r.Body, maxWebhookBytes))
	if err != nil {
		respond.Message(w, http.StatusBadRequest, "invalid body")
		return
	}

	evt, err := webhook.ConstructEventWithTolerance(payload, sigHeader, h.webhookSecret, h.tolerance)
	if err != nil {
		h.logger.Warn("stripe webhook rejected", "error", err)
		respond.Message(w, http.StatusBadRequest, "invalid signature")
		return
	}

	h.logger.Info("stripe event received", "event_id", evt.ID, "event_type", string(evt.Type))

	switch evt.Type {
	case "payment_intent.succeeded":
		var pi stripe.PaymentIntent
		if err := json.Unmarshal(evt.Data.Raw, &pi); err != nil {
			h.logger.Error("failed to decode payment intent", "event_id", evt.ID, "error", err)
			respond.Message(w, http.StatusBadRequest, "invalid payment intent payload")
			return
		}
		h.markPaid(r, &pi)
	case "payment_intent.payment_failed":
		var pi stripe.PaymentIntent
		if err := json.Unmarshal(evt.Data.Raw, &pi); err == nil {
			h.logger.Warn("payment intent failed", "payment_intent_id", pi.ID, "booking_id", pi.Metadata["booking_id"])
		}
	default:
		h.logger.Debug("stripe event ignored", "event_type", string(evt.Type))
	}

	respond.JSON(w, http.StatusOK, map[string]bool{"received": true})
}

func (h *StripeWebhookHandler) markPaid(r *http.Request, pi *stripe.PaymentIntent) {
	bookingID := pi.Metadata["booking_id"]
	if bookingID == "" || h.bookings == nil {
		h.logger.Info("payment intent succeeded without booking", "payment_intent_id", pi.ID)
		return
	}
	if _, err := h.bookings.MarkPaid(r.Context(), bookingID, pi.ID); err != nil {
		if errors.Is(err, bookings.ErrNotFound) {
			h.logger.Warn("payment for unknown booking", "booking_id", bookingID, "payment_intent_id", pi.ID)
			return
		}
		h.logger.Error("failed to mark booking paid", "booking_id", bookingID, "error", err)
	}
}
