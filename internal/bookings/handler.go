package bookings

import (
	"net/http"

	"github.com/bundlebooth/booking-services/internal/http/respond"
	"github.com/bundlebooth/booking-services/pkg/logging"
)

// Handler exposes the bookings ledger over HTTP.
type Handler struct {
	service *Service
	logger  *logging.Logger
}

func NewHandler(service *Service, logger *logging.Logger) *Handler {
	if logger == nil {
		logger = logging.Default()
	}
	return &Handler{service: service, logger: logger}
}

// Create handles POST /api/bookings.
func (h *Handler) Create(w http.ResponseWriter, r *http.Request) {
	var req CreateRequest
	if err := respond.Decode(w, r, &req); err != nil {
		respond.Error(w, h.logger, err)
		return
	}
	created, err := h.service.Create(r.Context(), req)
	if err != nil {
		respond.Error(w, h.logger, err)
		return
	}
	respond.JSON(w, http.StatusCreated, created)
}

// List handles GET /api/bookings.
func (h *Handler) List(w http.ResponseWriter, r *http.Request) {
	respond.JSON(w, http.StatusOK, h.service.List(r.Context()))
}
