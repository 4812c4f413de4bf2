package availability

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"

	"github.com/bundlebooth/booking-services/internal/observability/metrics"
	"github.com/bundlebooth/booking-services/pkg/logging"
)

var availabilityTracer = otel.Tracer("bundlebooth.internal.availability")

// ErrNoCalendarData means the calendar provider returned nothing for the
// requested calendar. It is not the same as an empty busy list.
var ErrNoCalendarData = errors.New("no calendar data")

// BusySource reports busy intervals from an external calendar. Implementations
// signal missing data with ErrNoCalendarData and never with a nil slice.
type BusySource interface {
	BusyIntervals(ctx context.Context, from, to time.Time) ([]Interval, error)
}

// Day is the resolved availability for one civil date.
type Day struct {
	Date     string `json:"date"`
	Timezone string `json:"timezone"`
	Slots    []Slot `json:"availability"`
}

// Service resolves slot availability against a calendar.
type Service struct {
	source  BusySource
	loc     *time.Location
	specs   []SlotSpec
	metrics *metrics.BookingMetrics
	logger  *logging.Logger
}

// NewService builds a Service. A nil loc defaults to UTC and empty specs to
// DefaultSlotSpecs.
func NewService(source BusySource, loc *time.Location, specs []SlotSpec, m *metrics.BookingMetrics, logger *logging.Logger) *Service {
	if source == nil {
		panic("availability: busy source required")
	}
	if loc == nil {
		loc = time.UTC
	}
	if len(specs) == 0 {
		specs = DefaultSlotSpecs()
	}
	if logger == nil {
		logger = logging.Default()
	}
	return &Service{source: source, loc: loc, specs: specs, metrics: m, logger: logger}
}

// DayAvailability marks every grid slot on date as booked or free.
func (s *Service) DayAvailability(ctx context.Context, date Date) (*Day, error) {
	ctx, span := availabilityTracer.Start(ctx, "availability.day")
	defer span.End()
	span.SetAttributes(attribute.String("bundlebooth.date", date.String()))

	slots := Grid(date, s.loc, s.specs)
	day := &Day{Date: date.String(), Timezone: s.loc.String(), Slots: slots}
	if len(slots) == 0 {
		return day, nil
	}

	from, to := slots[0].Start, slots[0].End
	for _, slot := range slots[1:] {
		if slot.Start.Before(from) {
			from = slot.Start
		}
		if slot.End.After(to) {
			to = slot.End
		}
	}

	start := time.Now()
	busy, err := s.source.BusyIntervals(ctx, from, to)
	s.metrics.ObserveUpstreamLatency("calendar", time.Since(start).Seconds())
	if err != nil {
		span.RecordError(err)
		if errors.Is(err, ErrNoCalendarData) {
			s.metrics.ObserveAvailability("no_data")
		} else {
			s.metrics.ObserveAvailability("error")
		}
		return nil, fmt.Errorf("availability: busy lookup for %s: %w", date, err)
	}

	merged, err := Merge(busy)
	if err != nil {
		span.RecordError(err)
		s.metrics.ObserveAvailability("error")
		s.logger.Error("busy intervals reached merge unvalidated", "date", date.String(), "error", err)
		return nil, err
	}

	day.Slots = Resolve(slots, merged)
	s.metrics.ObserveAvailability("ok")
	s.logger.Debug("availability resolved", "date", date.String(), "busy_intervals", len(merged))
	return day, nil
}
