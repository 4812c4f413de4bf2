package payments

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/shopspring/decimal"

	"github.com/bundlebooth/booking-services/internal/apperr"
	"github.com/bundlebooth/booking-services/internal/bookings"
	"github.com/bundlebooth/booking-services/internal/http/respond"
	"github.com/bundlebooth/booking-services/internal/observability/metrics"
	"github.com/bundlebooth/booking-services/internal/pricing"
	"github.com/bundlebooth/booking-services/pkg/logging"
)

// IntentService is the payment provider used by the handlers.
type IntentService interface {
	CreateIntent(ctx context.Context, p IntentParams) (*Intent, error)
	GetIntent(ctx context.Context, id string) (*Intent, error)
}

// PaidMarker records a completed payment against a booking.
type PaidMarker interface {
	MarkPaid(ctx context.Context, bookingID, paymentIntentID string) (*bookings.Booking, error)
}

// CreateIntentRequest is the body of POST /api/payments/create-payment-intent.
// Exactly one of Amount or Services must be set.
type CreateIntentRequest struct {
	Amount       *decimal.Decimal   `json:"amount,omitempty"`
	Currency     string             `json:"currency,omitempty" validate:"omitempty,len=3,alpha"`
	Services     []pricing.LineItem `json:"services,omitempty" validate:"dive"`
	Bundle       *pricing.Discount  `json:"bundle,omitempty"`
	Promo        *pricing.Discount  `json:"promo,omitempty"`
	CustomBundle bool               `json:"customBundle"`
	BookingID    string             `json:"bookingId,omitempty"`
	Email        string             `json:"email,omitempty" validate:"omitempty,email"`
	Description  string             `json:"description,omitempty"`
}

type createIntentResponse struct {
	ClientSecret    string `json:"clientSecret"`
	PaymentIntentID string `json:"paymentIntentId"`
	Amount          int64  `json:"amount"`
	Currency        string `json:"currency"`
}

type paymentSuccessRequest struct {
	PaymentID string `json:"paymentId" validate:"required"`
}

type paymentSuccessResponse struct {
	Success         bool   `json:"success"`
	Status          string `json:"status"`
	PaymentIntentID string `json:"paymentIntentId"`
	BookingID       string `json:"bookingId,omitempty"`
}

// Handler serves payment intent creation and confirmation.
type Handler struct {
	intents  IntentService
	bookings PaidMarker
	metrics  *metrics.BookingMetrics
	logger   *logging.Logger
}

func NewHandler(intents IntentService, marker PaidMarker, m *metrics.BookingMetrics, logger *logging.Logger) *Handler {
	if intents == nil {
		panic("payments: intent service required")
	}
	if logger == nil {
		logger = logging.Default()
	}
	return &Handler{intents: intents, bookings: marker, metrics: m, logger: logger}
}

// amountFor resolves the charge amount without reconciling competing totals.
func (req CreateIntentRequest) amountFor() (decimal.Decimal, error) {
	hasAmount, hasServices := req.Amount != nil, len(req.Services) > 0
	switch {
	case hasAmount && hasServices:
		return decimal.Zero, apperr.Validation("amount", "provide either amount or services, not both")
	case hasAmount:
		return *req.Amount, nil
	case hasServices:
		return pricing.Summarize(req.Services, req.Bundle, req.Promo, req.CustomBundle).Total, nil
	default:
		return decimal.Zero, apperr.Validation("amount", "amount or services is required")
	}
}

// CreatePaymentIntent handles POST /api/payments/create-payment-intent.
func (h *Handler) CreatePaymentIntent(w http.ResponseWriter, r *http.Request) {
	var req CreateIntentRequest
	if err := respond.Decode(w, r, &req); err != nil {
		respond.Error(w, h.logger, err)
		return
	}
	amount, err := req.amountFor()
	if err != nil {
		respond.Error(w, h.logger, err)
		return
	}
	minor := ToMinorUnits(amount)
	if minor <= 0 {
		respond.Error(w, h.logger, apperr.Validation("amount", "must be greater than zero"))
		return
	}

	start := time.Now()
	intent, err := h.intents.CreateIntent(r.Context(), IntentParams{
		AmountMinor:  minor,
		Currency:     req.Currency,
		BookingID:    req.BookingID,
		Description:  req.Description,
		ReceiptEmail: req.Email,
	})
	h.metrics.ObserveUpstreamLatency(stripeCollaborator, time.Since(start).Seconds())
	h.metrics.ObservePaymentIntent(err)
	if err != nil {
		respond.Error(w, h.logger, err)
		return
	}

	respond.JSON(w, http.StatusOK, createIntentResponse{
		ClientSecret:    intent.ClientSecret,
		PaymentIntentID: intent.ID,
		Amount:          intent.Amount,
		Currency:        intent.Currency,
	})
}

// PaymentSuccess handles POST /api/payments/payment-success. An intent that
// has not succeeded is a 409.
func (h *Handler) PaymentSuccess(w http.ResponseWriter, r *http.Request) {
	var req paymentSuccessRequest
	if err := respond.Decode(w, r, &req); err != nil {
		respond.Error(w, h.logger, err)
		return
	}

	intent, err := h.intents.GetIntent(r.Context(), req.PaymentID)
	if err != nil {
		respond.Error(w, h.logger, err)
		return
	}
	if !intent.Succeeded() {
		respond.JSON(w, http.StatusConflict, paymentSuccessResponse{
			Success:         false,
			Status:          intent.Status,
			PaymentIntentID: intent.ID,
		})
		return
	}

	bookingID := intent.Metadata["booking_id"]
	if bookingID != "" && h.bookings != nil {
		if _, err := h.bookings.MarkPaid(r.Context(), bookingID, intent.ID); err != nil && !errors.Is(err, bookings.ErrNotFound) {
			respond.Error(w, h.logger, err)
			return
		}
	}

	h.logger.Info("payment confirmed", "payment_intent_id", intent.ID, "booking_id", bookingID)
	respond.JSON(w, http.StatusOK, paymentSuccessResponse{
		Success:         true,
		Status:          intent.Status,
		PaymentIntentID: intent.ID,
		BookingID:       bookingID,
	})
}
