package confirmation

import (
	"bytes"
	"fmt"
	htmltemplate "html/template"
	"strconv"
	texttemplate "text/template"
	"time"

	"github.com/bundlebooth/booking-services/internal/pricing"
)

var htmlTemplate = htmltemplate.Must(htmltemplate.New("confirmation.html").Option("missingkey=error").Parse(`<!DOCTYPE html>
<html>
<head>
  <meta charset="UTF-8">
  <meta name="viewport" content="width=device-width, initial-scale=1.0">
  <title>Booking Confirmation</title>
  <style>
    body { font-family: Arial, sans-serif; line-height: 1.6; color: #333; max-width: 600px; margin: 0 auto; padding: 20px; }
    .header { background-color: #f8f8f8; padding: 20px; text-align: center; border-radius: 8px 8px 0 0; }
    .content { padding: 20px; background-color: white; border-left: 1px solid #eee; border-right: 1px solid #eee; }
    .footer { background-color: #f8f8f8; padding: 20px; text-align: center; border-radius: 0 0 8px 8px; font-size: 14px; }
    .event-title { font-size: 24px; font-weight: bold; margin-bottom: 10px; }
    .detail-row { display: flex; margin-bottom: 10px; }
    .detail-label { font-weight: bold; width: 150px; }
    .services-table { width: 100%; border-collapse: collapse; margin: 20px 0; }
    .services-table td { padding: 8px 0; border-bottom: 1px solid #eee; }
    .amount { text-align: right; }
    .total-row td { font-weight: bold; border-top: 2px solid #333; }
    .special-requests { background-color: #f9f9f9; padding: 15px; border-radius: 4px; margin: 15px 0; }
  </style>
</head>
<body>
  <div class="header">
    <div class="event-title">{{.EventName}}</div>
    <div>Your event booking has been confirmed</div>
  </div>

  <div class="content">
    <h3>Contact Information</h3>
    <div class="detail-row"><div class="detail-label">Your Name:</div><div>{{.ContactName}}</div></div>
    <div class="detail-row"><div class="detail-label">Email:</div><div>{{.Email}}</div></div>
    <div class="detail-row"><div class="detail-label">Phone Number:</div><div>{{.Phone}}</div></div>

    <h3>Event Details</h3>
    <div class="detail-row"><div class="detail-label">Event Name:</div><div>{{.EventName}}</div></div>
    <div class="detail-row"><div class="detail-label">Event Type:</div><div>{{.EventType}}</div></div>
    <div class="detail-row"><div class="detail-label">Event Date:</div><div>{{.EventDate}}</div></div>
    <div class="detail-row"><div class="detail-label">Time:</div><div>{{.TimeSlot}}</div></div>
    <div class="detail-row"><div class="detail-label">Duration:</div><div>{{.Duration}}</div></div>
    <div class="detail-row"><div class="detail-label">Location:</div><div>{{.Location}}</div></div>
    <div class="detail-row"><div class="detail-label">Guest Count:</div><div>{{.GuestCount}}</div></div>
{{- if .SpecialRequests}}

    <div class="special-requests">
      <h4>Special Requests/Notes</h4>
      <p>{{.SpecialRequests}}</p>
    </div>
{{- end}}

    <h3>Services Booked</h3>
    <table class="services-table">
{{- range .Items}}
      <tr><td>{{.Name}}{{if .Option}} ({{.Option}}){{end}}</td><td class="amount">{{.Price}}</td></tr>
{{- else}}
      <tr><td colspan="2">No services selected</td></tr>
{{- end}}
      <tr><td>Subtotal</td><td class="amount">{{.Subtotal}}</td></tr>
{{- if .BundleDiscount}}
      <tr><td>Bundle Discount{{if .BundleName}} ({{.BundleName}}){{end}}</td><td class="amount">{{.BundleDiscount}}</td></tr>
{{- end}}
{{- if .PromoDiscount}}
      <tr><td>Promo{{if .PromoCode}} ({{.PromoCode}}){{end}}</td><td class="amount">{{.PromoDiscount}}</td></tr>
{{- end}}
      <tr class="total-row"><td>Total</td><td class="amount">{{.Total}}</td></tr>
    </table>

    <h3>Payment Information</h3>
    <div class="detail-row"><div class="detail-label">Method:</div><div>{{.PaymentMethod}}</div></div>
    <div class="detail-row"><div class="detail-label">Status:</div><div>{{.PaymentStatus}}</div></div>
{{- if .PaymentRef}}
    <div class="detail-row"><div class="detail-label">Reference:</div><div>{{.PaymentRef}}</div></div>
{{- end}}

    <p>Thank you for choosing {{.Brand}}, {{.ContactName}}!</p>
    <p>We'll be in touch soon to confirm the details of your event.</p>
  </div>

  <div class="footer">
    <p>&copy; {{.Year}} {{.Brand}}. All rights reserved.</p>
  </div>
</body>
</html>
`))

var textTemplate = texttemplate.Must(texttemplate.New("confirmation.txt").Option("missingkey=error").Parse(`Thank you for your booking, {{.ContactName}}!

{{.EventName}} is confirmed for {{.EventDate}}, {{.TimeSlot}}.
Location: {{.Location}}
{{- if .SpecialRequests}}
Notes: {{.SpecialRequests}}
{{- end}}

Services:
{{- range .Items}}
  {{.Name}}: {{.Price}}
{{- else}}
  No services selected
{{- end}}
Subtotal: {{.Subtotal}}
{{- if .BundleDiscount}}
Bundle discount: {{.BundleDiscount}}
{{- end}}
{{- if .PromoDiscount}}
Promo: {{.PromoDiscount}}
{{- end}}
Total: {{.Total}}

{{.Brand}}
`))

type viewItem struct {
	Name   string
	Option string
	Price  string
}

type view struct {
	Brand           string
	ContactName     string
	Email           string
	Phone           string
	EventName       string
	EventType       string
	EventDate       string
	TimeSlot        string
	Duration        string
	Location        string
	GuestCount      string
	SpecialRequests string
	Items           []viewItem
	Subtotal        string
	BundleName      string
	BundleDiscount  string
	PromoCode       string
	PromoDiscount   string
	Total           string
	PaymentMethod   string
	PaymentStatus   string
	PaymentRef      string
	Year            int
}

func orDefault(s, fallback string) string {
	if s == "" {
		return fallback
	}
	return s
}

func (r *Renderer) view(b *Booking) view {
	v := view{
		Brand:           r.brand,
		ContactName:     b.ContactName,
		Email:           b.Email,
		Phone:           orDefault(b.Phone, placeholderPhone),
		EventName:       b.EventName,
		EventType:       orDefault(b.EventType, placeholderMissing),
		EventDate:       time.Date(b.EventDate.Year, b.EventDate.Month, b.EventDate.Day, 0, 0, 0, 0, time.UTC).Format("Monday, January 2, 2006"),
		TimeSlot:        b.SlotLabel,
		Duration:        placeholderMissing,
		Location:        orDefault(b.Location, placeholderLocation),
		GuestCount:      placeholderMissing,
		SpecialRequests: b.SpecialRequests,
		Subtotal:        pricing.FormatMoney(r.currencySymbol, b.Summary.Subtotal),
		BundleName:      b.BundleName,
		PromoCode:       b.PromoCode,
		Total:           pricing.FormatMoney(r.currencySymbol, b.Summary.Total),
		PaymentMethod:   orDefault(b.Payment.Method, placeholderMissing),
		PaymentStatus:   orDefault(b.Payment.Status, placeholderMissing),
		PaymentRef:      b.Payment.IntentID,
		Year:            r.now().In(r.loc).Year(),
	}
	if b.DurationHours > 0 {
		v.Duration = strconv.FormatFloat(b.DurationHours, 'f', -1, 64) + " hours"
	}
	if b.GuestCount > 0 {
		v.GuestCount = strconv.Itoa(b.GuestCount)
	}
	if !b.Summary.BundleDiscount.IsZero() {
		v.BundleDiscount = pricing.FormatMoney(r.currencySymbol, b.Summary.BundleDiscount.Neg())
	}
	if !b.Summary.PromoDiscount.IsZero() {
		v.PromoDiscount = pricing.FormatMoney(r.currencySymbol, b.Summary.PromoDiscount.Neg())
	}
	for _, item := range b.Items {
		v.Items = append(v.Items, viewItem{
			Name:   item.Name,
			Option: item.SelectedOption,
			Price:  pricing.FormatMoney(r.currencySymbol, item.UnitPrice),
		})
	}
	return v
}

// RenderHTML renders the confirmation email body. All booking text is
// HTML-escaped by html/template.
func (r *Renderer) RenderHTML(b *Booking) (string, error) {
	var buf bytes.Buffer
	if err := htmlTemplate.Execute(&buf, r.view(b)); err != nil {
		return "", fmt.Errorf("confirmation: render html: %w", err)
	}
	return buf.String(), nil
}

// RenderText renders the plain-text alternative body.
func (r *Renderer) RenderText(b *Booking) (string, error) {
	var buf bytes.Buffer
	if err := textTemplate.Execute(&buf, r.view(b)); err != nil {
		return "", fmt.Errorf("confirmation: render text: %w", err)
	}
	return buf.String(), nil
}
