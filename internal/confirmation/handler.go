package confirmation

import (
	"context"
	"encoding/base64"
	"fmt"
	"net/http"
	"time"

	"github.com/bundlebooth/booking-services/internal/apperr"
	"github.com/bundlebooth/booking-services/internal/http/respond"
	"github.com/bundlebooth/booking-services/internal/notify"
	"github.com/bundlebooth/booking-services/internal/observability/metrics"
	"github.com/bundlebooth/booking-services/pkg/logging"
)

const (
	icsFilename    = "booking.ics"
	icsContentType = "text/calendar; method=REQUEST; charset=UTF-8"
)

// SendResult is the response of a successful confirmation send.
type SendResult struct {
	Success   bool      `json:"success"`
	MessageID string    `json:"messageId"`
	Timestamp time.Time `json:"timestamp"`
}

type renderResponse struct {
	HTML string `json:"html"`
	ICS  string `json:"ics"`
}

// Service renders confirmations and hands them to an EmailSender.
type Service struct {
	renderer *Renderer
	sender   notify.EmailSender
	metrics  *metrics.BookingMetrics
	logger   *logging.Logger
	now      func() time.Time
}

func NewService(renderer *Renderer, sender notify.EmailSender, m *metrics.BookingMetrics, logger *logging.Logger) *Service {
	if renderer == nil || sender == nil {
		panic("confirmation: renderer and sender required")
	}
	if logger == nil {
		logger = logging.Default()
	}
	return &Service{renderer: renderer, sender: sender, metrics: m, logger: logger, now: time.Now}
}

// Send renders b and emails it with the ICS attached. Nothing is sent if
// either document fails to render.
func (s *Service) Send(ctx context.Context, b *Booking) (*SendResult, error) {
	docs, err := s.renderer.Render(b)
	if err != nil {
		return nil, err
	}
	text, err := s.renderer.RenderText(b)
	if err != nil {
		return nil, err
	}

	start := time.Now()
	res, err := s.sender.Send(ctx, notify.EmailMessage{
		To:      b.Email,
		ToName:  b.ContactName,
		Subject: Subject(b),
		Body:    text,
		HTML:    docs.HTML,
		Attachments: []notify.Attachment{{
			Filename:    icsFilename,
			ContentType: icsContentType,
			Content:     []byte(docs.ICS),
		}},
	})
	s.metrics.ObserveUpstreamLatency(s.sender.Name(), time.Since(start).Seconds())
	s.metrics.ObserveEmail(s.sender.Name(), err)
	if err != nil {
		return nil, apperr.Upstream(s.sender.Name(), fmt.Errorf("confirmation: send: %w", err))
	}

	s.logger.Info("booking confirmation sent",
		"provider", s.sender.Name(),
		"message_id", res.MessageID,
		"event_date", b.EventDate.String(),
	)
	return &SendResult{Success: true, MessageID: res.MessageID, Timestamp: s.now().UTC()}, nil
}

// Handler serves the confirmation email endpoints.
type Handler struct {
	service     *Service
	serviceName string
	logger      *logging.Logger
}

func NewHandler(service *Service, serviceName string, logger *logging.Logger) *Handler {
	if logger == nil {
		logger = logging.Default()
	}
	if serviceName == "" {
		serviceName = "booking-services"
	}
	return &Handler{service: service, serviceName: serviceName, logger: logger}
}

func (h *Handler) decodeBooking(w http.ResponseWriter, r *http.Request) (*Booking, error) {
	var req Request
	if err := respond.Decode(w, r, &req); err != nil {
		return nil, err
	}
	return req.Booking()
}

// SendBookingEmail handles POST /send-booking-email.
func (h *Handler) SendBookingEmail(w http.ResponseWriter, r *http.Request) {
	b, err := h.decodeBooking(w, r)
	if err != nil {
		respond.Error(w, h.logger, err)
		return
	}
	res, err := h.service.Send(r.Context(), b)
	if err != nil {
		respond.Error(w, h.logger, err)
		return
	}
	respond.JSON(w, http.StatusOK, res)
}

// Render handles POST /api/confirmations/render. The ICS is base64 encoded so
// its CRLF line endings survive JSON clients.
func (h *Handler) Render(w http.ResponseWriter, r *http.Request) {
	b, err := h.decodeBooking(w, r)
	if err != nil {
		respond.Error(w, h.logger, err)
		return
	}
	docs, err := h.service.renderer.Render(b)
	if err != nil {
		respond.Error(w, h.logger, err)
		return
	}
	respond.JSON(w, http.StatusOK, renderResponse{
		HTML: docs.HTML,
		ICS:  base64.StdEncoding.EncodeToString([]byte(docs.ICS)),
	})
}

// Banner handles GET /.
func (h *Handler) Banner(w http.ResponseWriter, r *http.Request) {
	respond.JSON(w, http.StatusOK, map[string]any{
		"status":    "OK",
		"service":   h.serviceName,
		"timestamp": time.Now().UTC(),
	})
}
