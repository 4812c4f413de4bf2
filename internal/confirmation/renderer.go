package confirmation

import (
	"strings"
	"time"

	"github.com/google/uuid"
)

const (
	placeholderLocation = "Location not specified"
	placeholderMissing  = "Not specified"
	placeholderPhone    = "Not provided"
)

// RendererConfig configures a Renderer. Zero values fall back to UTC, "$",
// and "BundleBooth".
type RendererConfig struct {
	Location       *time.Location
	BrandName      string
	FromEmail      string
	FromName       string
	CurrencySymbol string

	// Now and NewUID are overridable for deterministic output in tests.
	Now    func() time.Time
	NewUID func() string
}

// Renderer turns a Booking into an HTML email body and an ICS attachment.
// It holds only read-only configuration and is safe for concurrent use.
type Renderer struct {
	loc            *time.Location
	brand          string
	fromEmail      string
	fromName       string
	currencySymbol string
	now            func() time.Time
	newUID         func() string
}

func NewRenderer(cfg RendererConfig) *Renderer {
	r := &Renderer{
		loc:            cfg.Location,
		brand:          cfg.BrandName,
		fromEmail:      cfg.FromEmail,
		fromName:       cfg.FromName,
		currencySymbol: cfg.CurrencySymbol,
		now:            cfg.Now,
		newUID:         cfg.NewUID,
	}
	if r.loc == nil {
		r.loc = time.UTC
	}
	if r.brand == "" {
		r.brand = "BundleBooth"
	}
	if r.fromName == "" {
		r.fromName = r.brand
	}
	if r.currencySymbol == "" {
		r.currencySymbol = "$"
	}
	if r.now == nil {
		r.now = time.Now
	}
	if r.newUID == nil {
		domain := "localhost"
		if at := strings.LastIndex(r.fromEmail, "@"); at >= 0 && at < len(r.fromEmail)-1 {
			domain = r.fromEmail[at+1:]
		}
		r.newUID = func() string { return uuid.NewString() + "@" + domain }
	}
	return r
}

// Rendered is the output of a full confirmation render.
type Rendered struct {
	HTML string
	ICS  string
}

// Render produces both documents. The ICS is built first so a bad slot label
// fails the whole render.
func (r *Renderer) Render(b *Booking) (*Rendered, error) {
	ics, err := r.RenderICS(b)
	if err != nil {
		return nil, err
	}
	html, err := r.RenderHTML(b)
	if err != nil {
		return nil, err
	}
	return &Rendered{HTML: html, ICS: ics}, nil
}

// Subject is the confirmation email subject line.
func Subject(b *Booking) string {
	return "Booking Confirmation - " + b.EventName
}
