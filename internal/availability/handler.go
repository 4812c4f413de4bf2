package availability

import (
	"errors"
	"net/http"

	"github.com/bundlebooth/booking-services/internal/http/respond"
	"github.com/bundlebooth/booking-services/pkg/logging"
)

// Handler serves the availability query endpoint.
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

// GetAvailability handles GET /api/availability?date=YYYY-MM-DD.
func (h *Handler) GetAvailability(w http.ResponseWriter, r *http.Request) {
	date, err := ParseDate(r.URL.Query().Get("date"))
	if err != nil {
		respond.Message(w, http.StatusBadRequest, "invalid date")
		return
	}

	day, err := h.service.DayAvailability(r.Context(), date)
	if err != nil {
		if errors.Is(err, ErrNoCalendarData) {
			h.logger.Warn("calendar returned no data", "date", date.String())
			respond.Message(w, http.StatusNotFound, ErrNoCalendarData.Error())
			return
		}
		respond.Error(w, h.logger, err)
		return
	}
	respond.JSON(w, http.StatusOK, day)
}
