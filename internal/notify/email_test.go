package notify

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/sesv2"
	"github.com/aws/aws-sdk-go-v2/service/sesv2/types"
)

func testMessage() EmailMessage {
	return EmailMessage{
		To:      "jordan@example.com",
		ToName:  "Jordan Lee",
		Subject: "Booking Confirmation - Spring Gala",
		Body:    "Thanks for booking",
		HTML:    "<p>Thanks for booking</p>",
		Attachments: []Attachment{{
			Filename:    "booking.ics",
			ContentType: "text/calendar; method=REQUEST; charset=UTF-8",
			Content:     []byte("BEGIN:VCALENDAR\r\nEND:VCALENDAR\r\n"),
		}},
	}
}

func TestNewSendGridSender_NilWithoutAPIKey(t *testing.T) {
	sender := NewSendGridSender(SendGridConfig{
		APIKey:    "",
		FromEmail: "test@example.com",
	}, nil)

	if sender != nil {
		t.Error("expected nil sender when API key is empty")
	}
}

func TestNewSendGridSender_DefaultFromName(t *testing.T) {
	sender := NewSendGridSender(SendGridConfig{
		APIKey:    "test-key",
		FromEmail: "test@example.com",
	}, nil)

	if sender == nil {
		t.Fatal("expected non-nil sender")
	}
	if sender.fromName != "BundleBooth" {
		t.Errorf("expected default from name 'BundleBooth', got %q", sender.fromName)
	}
}

func TestSendGridSender_Send_NilClient(t *testing.T) {
	sender := &SendGridSender{client: nil}

	_, err := sender.Send(context.Background(), testMessage())
	if err == nil {
		t.Error("expected error when client is nil")
	}
}

func TestSendGridSender_SendsAttachment(t *testing.T) {
	var got map[string]any
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/v3/mail/send" {
			t.Errorf("unexpected path %s", r.URL.Path)
		}
		if auth := r.Header.Get("Authorization"); auth != "Bearer sg-key" {
			t.Errorf("unexpected authorization %q", auth)
		}
		if err := json.NewDecoder(r.Body).Decode(&got); err != nil {
			t.Fatalf("decode: %v", err)
		}
		w.Header().Set("X-Message-Id", "sg-123")
		w.WriteHeader(http.StatusAccepted)
	}))
	defer srv.Close()

	sender := NewSendGridSender(SendGridConfig{APIKey: "sg-key", FromEmail: "hello@bundlebooth.ca", BaseURL: srv.URL}, nil)
	res, err := sender.Send(context.Background(), testMessage())
	if err != nil {
		t.Fatalf("send: %v", err)
	}
	if res.MessageID != "sg-123" {
		t.Errorf("expected message id sg-123, got %q", res.MessageID)
	}

	atts, _ := got["attachments"].([]any)
	if len(atts) != 1 {
		t.Fatalf("expected one attachment, got %v", got["attachments"])
	}
	att := atts[0].(map[string]any)
	if att["filename"] != "booking.ics" {
		t.Errorf("unexpected filename %v", att["filename"])
	}
	decoded, err := base64.StdEncoding.DecodeString(att["content"].(string))
	if err != nil || !strings.HasPrefix(string(decoded), "BEGIN:VCALENDAR") {
		t.Errorf("attachment content not base64 ICS: %q (%v)", decoded, err)
	}
}

func TestSendGridSender_ErrorStatus(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
		_, _ = w.Write([]byte(`{"errors":[{"message":"bad key"}]}`))
	}))
	defer srv.Close()

	sender := NewSendGridSender(SendGridConfig{APIKey: "sg-key", BaseURL: srv.URL}, nil)
	if _, err := sender.Send(context.Background(), testMessage()); err == nil {
		t.Fatal("expected error on 401")
	}
}

type brevoRequest struct {
	Sender struct {
		Email string `json:"email"`
		Name  string `json:"name"`
	} `json:"sender"`
	To []struct {
		Email string `json:"email"`
		Name  string `json:"name"`
	} `json:"to"`
	Subject     string `json:"subject"`
	HTMLContent string `json:"htmlContent"`
	Attachment  []struct {
		Content string `json:"content"`
		Name    string `json:"name"`
	} `json:"attachment"`
}

func TestBrevoSender_Send(t *testing.T) {
	var got brevoRequest
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost || r.URL.Path != "/v3/smtp/email" {
			t.Errorf("unexpected request %s %s", r.Method, r.URL.Path)
		}
		if key := r.Header.Get("api-key"); key != "xkeysib-test" {
			t.Errorf("unexpected api key %q", key)
		}
		if err := json.NewDecoder(r.Body).Decode(&got); err != nil {
			t.Fatalf("decode: %v", err)
		}
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusCreated)
		_, _ = w.Write([]byte(`{"messageId":"<202410171200.1@smtp-relay.mailin.fr>"}`))
	}))
	defer srv.Close()

	sender := NewBrevoSender(BrevoConfig{APIKey: "xkeysib-test", BaseURL: srv.URL + "/", FromEmail: "hello@bundlebooth.ca"}, nil)
	res, err := sender.Send(context.Background(), testMessage())
	if err != nil {
		t.Fatalf("send: %v", err)
	}
	if res.MessageID != "<202410171200.1@smtp-relay.mailin.fr>" {
		t.Errorf("unexpected message id %q", res.MessageID)
	}
	if got.Sender.Name != "BundleBooth" || got.Sender.Email != "hello@bundlebooth.ca" {
		t.Errorf("unexpected sender %+v", got.Sender)
	}
	if len(got.To) != 1 || got.To[0].Email != "jordan@example.com" || got.To[0].Name != "Jordan Lee" {
		t.Errorf("unexpected recipients %+v", got.To)
	}
	if len(got.Attachment) != 1 || got.Attachment[0].Name != "booking.ics" {
		t.Fatalf("unexpected attachments %+v", got.Attachment)
	}
	content, err := base64.StdEncoding.DecodeString(got.Attachment[0].Content)
	if err != nil || !strings.HasPrefix(string(content), "BEGIN:VCALENDAR") {
		t.Errorf("unexpected attachment content %q (%v)", content, err)
	}
}

func TestBrevoSender_ErrorStatus(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusBadRequest)
		_, _ = w.Write([]byte(`{"code":"invalid_parameter"}`))
	}))
	defer srv.Close()

	sender := NewBrevoSender(BrevoConfig{APIKey: "k", BaseURL: srv.URL}, nil)
	if _, err := sender.Send(context.Background(), testMessage()); err == nil {
		t.Fatal("expected error on 400")
	}
}

func TestNewBrevoSender_NilWithoutAPIKey(t *testing.T) {
	if NewBrevoSender(BrevoConfig{}, nil) != nil {
		t.Error("expected nil sender when API key is empty")
	}
}

type fakeSES struct {
	input *sesv2.SendEmailInput
	err   error
}

func (f *fakeSES) SendEmail(_ context.Context, params *sesv2.SendEmailInput, _ ...func(*sesv2.Options)) (*sesv2.SendEmailOutput, error) {
	f.input = params
	if f.err != nil {
		return nil, f.err
	}
	return &sesv2.SendEmailOutput{MessageId: aws.String("ses-001")}, nil
}

func TestSESSender_SendsAttachment(t *testing.T) {
	fake := &fakeSES{}
	sender := NewSESSender(fake, SESConfig{FromEmail: "hello@bundlebooth.ca"}, nil)

	res, err := sender.Send(context.Background(), testMessage())
	if err != nil {
		t.Fatalf("send: %v", err)
	}
	if res.MessageID != "ses-001" {
		t.Errorf("unexpected message id %q", res.MessageID)
	}
	if got := aws.ToString(fake.input.FromEmailAddress); got != `"BundleBooth" <hello@bundlebooth.ca>` {
		t.Errorf("unexpected from address %q", got)
	}

	simple := fake.input.Content.Simple
	if simple == nil {
		t.Fatal("expected simple content")
	}
	if got := aws.ToString(simple.Subject.Data); got != "Booking Confirmation - Spring Gala" {
		t.Errorf("unexpected subject %q", got)
	}
	if got := aws.ToString(simple.Body.Text.Data); got != "Thanks for booking" {
		t.Errorf("unexpected text body %q", got)
	}
	if got := aws.ToString(simple.Body.Html.Data); got != "<p>Thanks for booking</p>" {
		t.Errorf("unexpected html body %q", got)
	}

	if len(simple.Attachments) != 1 {
		t.Fatalf("expected one attachment, got %d", len(simple.Attachments))
	}
	att := simple.Attachments[0]
	if aws.ToString(att.FileName) != "booking.ics" {
		t.Errorf("unexpected attachment filename %q", aws.ToString(att.FileName))
	}
	if aws.ToString(att.ContentType) != "text/calendar; method=REQUEST; charset=UTF-8" {
		t.Errorf("unexpected attachment content type %q", aws.ToString(att.ContentType))
	}
	if att.ContentDisposition != types.AttachmentContentDispositionAttachment {
		t.Errorf("unexpected disposition %q", att.ContentDisposition)
	}
	if !strings.HasPrefix(string(att.RawContent), "BEGIN:VCALENDAR") {
		t.Errorf("unexpected attachment body %q", att.RawContent)
	}
}

func TestSESSender_TextFallsBackToSubject(t *testing.T) {
	fake := &fakeSES{}
	sender := NewSESSender(fake, SESConfig{FromEmail: "hello@bundlebooth.ca"}, nil)

	msg := testMessage()
	msg.Body = ""
	msg.HTML = ""
	msg.Attachments = nil
	if _, err := sender.Send(context.Background(), msg); err != nil {
		t.Fatalf("send: %v", err)
	}
	simple := fake.input.Content.Simple
	if got := aws.ToString(simple.Body.Text.Data); got != msg.Subject {
		t.Errorf("expected subject as text body, got %q", got)
	}
	if simple.Body.Html != nil {
		t.Error("expected no html body")
	}
	if len(simple.Attachments) != 0 {
		t.Error("expected no attachments")
	}
}

func TestSESSender_PropagatesError(t *testing.T) {
	sender := NewSESSender(&fakeSES{err: errors.New("throttled")}, SESConfig{FromEmail: "hello@bundlebooth.ca"}, nil)
	if _, err := sender.Send(context.Background(), testMessage()); err == nil {
		t.Fatal("expected error")
	}
}

func TestStubEmailSender(t *testing.T) {
	res, err := NewStubEmailSender(nil).Send(context.Background(), testMessage())
	if err != nil {
		t.Fatalf("send: %v", err)
	}
	if res.MessageID == "" {
		t.Error("expected a synthetic message id")
	}
}
