package bookings

import (
	"context"
	"errors"
	"sync"
	"time"
)

// ErrNotFound is returned when no booking has the requested id.
var ErrNotFound = errors.New("bookings: not found")

// Status is the lifecycle state of a booking.
type Status string

const (
	StatusConfirmed Status = "confirmed"
	StatusPaid      Status = "paid"
)

// EventDetails is the free-text event information attached to a booking.
type EventDetails struct {
	EventName  string `json:"eventName,omitempty"`
	Location   string `json:"location,omitempty"`
	GuestCount int    `json:"guestCount,omitempty" validate:"gte=0"`
	Notes      string `json:"notes,omitempty"`
}

// Booking is a recorded reservation.
type Booking struct {
	ID              string       `json:"id"`
	Start           time.Time    `json:"start"`
	End             time.Time    `json:"end"`
	Name            string       `json:"name"`
	Email           string       `json:"email"`
	EventDetails    EventDetails `json:"eventDetails"`
	Status          Status       `json:"status"`
	CalendarEventID string       `json:"calendarEventId,omitempty"`
	PaymentIntentID string       `json:"paymentIntentId,omitempty"`
	CreatedAt       time.Time    `json:"createdAt"`
	PaidAt          *time.Time   `json:"paidAt,omitempty"`
}

// Repository keeps bookings in process memory. Contents are lost on restart.
type Repository struct {
	mu    sync.RWMutex
	order []string
	byID  map[string]*Booking
}

func NewRepository() *Repository {
	return &Repository{byID: make(map[string]*Booking)}
}

// Insert stores a copy of b.
func (r *Repository) Insert(_ context.Context, b Booking) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, exists := r.byID[b.ID]; exists {
		return errors.New("bookings: duplicate id " + b.ID)
	}
	r.byID[b.ID] = &b
	r.order = append(r.order, b.ID)
	return nil
}

// List returns copies of all bookings in insertion order.
func (r *Repository) List(_ context.Context) []Booking {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]Booking, 0, len(r.order))
	for _, id := range r.order {
		out = append(out, *r.byID[id])
	}
	return out
}

// Get returns a copy of the booking with id.
func (r *Repository) Get(_ context.Context, id string) (*Booking, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	b, ok := r.byID[id]
	if !ok {
		return nil, ErrNotFound
	}
	cp := *b
	return &cp, nil
}

// MarkPaid flips a booking to paid. Repeating it for the same intent is a no-op.
func (r *Repository) MarkPaid(_ context.Context, id, paymentIntentID string, at time.Time) (*Booking, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	b, ok := r.byID[id]
	if !ok {
		return nil, ErrNotFound
	}
	if b.Status != StatusPaid {
		b.Status = StatusPaid
		b.PaymentIntentID = paymentIntentID
		paidAt := at.UTC()
		b.PaidAt = &paidAt
	}
	cp := *b
	return &cp, nil
}
