// Package confirmation renders booking confirmations as HTML email bodies and
// iCalendar attachments, and serves the confirmation email endpoint.
package confirmation

import (
	"github.com/bundlebooth/booking-services/internal/availability"
	"github.com/bundlebooth/booking-services/internal/pricing"
)

// PaymentInfo is the payment metadata shown on a confirmation.
type PaymentInfo struct {
	IntentID string `json:"intentId,omitempty"`
	Method   string `json:"method,omitempty"`
	Status   string `json:"status,omitempty"`
}

// Request is the body of POST /send-booking-email and
// POST /api/confirmations/render.
type Request struct {
	ContactName     string             `json:"contactName" validate:"required"`
	Email           string             `json:"email" validate:"required,email"`
	PhoneNumber     string             `json:"phoneNumber,omitempty"`
	EventName       string             `json:"eventName" validate:"required"`
	EventType       string             `json:"eventType,omitempty"`
	EventDate       string             `json:"eventDate" validate:"required,datetime=2006-01-02"`
	TimeSlotDisplay string             `json:"timeSlotDisplay" validate:"required"`
	DurationHours   float64            `json:"durationHours,omitempty" validate:"gte=0"`
	EventLocation   string             `json:"eventLocation,omitempty"`
	GuestCount      int                `json:"guestCount,omitempty" validate:"gte=0"`
	SpecialRequests string             `json:"specialRequests,omitempty"`
	Services        []pricing.LineItem `json:"services" validate:"dive"`
	SelectedBundle  *pricing.Discount  `json:"selectedBundle,omitempty"`
	Promo           *pricing.Discount  `json:"promo,omitempty"`
	CustomBundle    bool               `json:"customBundle"`
	Payment         *PaymentInfo       `json:"payment,omitempty"`
}

// Booking is the immutable rendering input for one confirmation.
type Booking struct {
	ContactName     string
	Email           string
	Phone           string
	EventName       string
	EventType       string
	EventDate       availability.Date
	SlotLabel       string
	DurationHours   float64
	Location        string
	GuestCount      int
	SpecialRequests string
	Items           []pricing.LineItem
	BundleName      string
	PromoCode       string
	Summary         pricing.Summary
	Payment         PaymentInfo
}

// Booking converts a validated request into a priced Booking.
func (r Request) Booking() (*Booking, error) {
	date, err := availability.ParseDate(r.EventDate)
	if err != nil {
		return nil, err
	}

	b := &Booking{
		ContactName:     r.ContactName,
		Email:           r.Email,
		Phone:           r.PhoneNumber,
		EventName:       r.EventName,
		EventType:       r.EventType,
		EventDate:       date,
		SlotLabel:       r.TimeSlotDisplay,
		DurationHours:   r.DurationHours,
		Location:        r.EventLocation,
		GuestCount:      r.GuestCount,
		SpecialRequests: r.SpecialRequests,
		Items:           append([]pricing.LineItem(nil), r.Services...),
		Summary:         pricing.Summarize(r.Services, r.SelectedBundle, r.Promo, r.CustomBundle),
	}
	if r.SelectedBundle != nil {
		b.BundleName = r.SelectedBundle.Name
	}
	if r.Promo != nil {
		b.PromoCode = r.Promo.Code
	}
	if r.Payment != nil {
		b.Payment = *r.Payment
	}
	return b, nil
}
