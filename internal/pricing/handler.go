package pricing

import (
	"net/http"

	"github.com/bundlebooth/booking-services/internal/http/respond"
	"github.com/bundlebooth/booking-services/pkg/logging"
)

// PreviewRequest is the body of POST /api/pricing/preview.
type PreviewRequest struct {
	Services     []LineItem `json:"services" validate:"dive"`
	Bundle       *Discount  `json:"bundle,omitempty"`
	Promo        *Discount  `json:"promo,omitempty"`
	CustomBundle bool       `json:"customBundle"`
}

// PreviewResponse carries both raw and display-formatted totals.
type PreviewResponse struct {
	Summary   Summary   `json:"summary"`
	Formatted Formatted `json:"formatted"`
}

// Handler exposes pricing previews for client-side totals.
type Handler struct {
	currencySymbol string
	logger         *logging.Logger
}

func NewHandler(currencySymbol string, logger *logging.Logger) *Handler {
	if logger == nil {
		logger = logging.Default()
	}
	return &Handler{currencySymbol: currencySymbol, logger: logger}
}

// Preview handles POST /api/pricing/preview.
func (h *Handler) Preview(w http.ResponseWriter, r *http.Request) {
	var req PreviewRequest
	if err := respond.Decode(w, r, &req); err != nil {
		respond.Error(w, h.logger, err)
		return
	}

	summary := Summarize(req.Services, req.Bundle, req.Promo, req.CustomBundle)
	respond.JSON(w, http.StatusOK, PreviewResponse{
		Summary:   summary,
		Formatted: summary.Format(h.currencySymbol),
	})
}
