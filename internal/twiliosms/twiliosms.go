// Package twiliosms wraps the Twilio API for sending follow-up SMS messages.
//
// The finalizer sends the caller a case number and a correction-form link.
// SMS delivery is best-effort: transient failures are retried briefly, and a
// logging fallback stands in when no Twilio credentials are configured.
package twiliosms

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"regexp"

	"github.com/cenkalti/backoff/v4"
	"github.com/twilio/twilio-go"
	twilioApi "github.com/twilio/twilio-go/rest/api/v2010"
)

// Sender sends one SMS message. The finalizer depends only on this interface.
type Sender interface {
	SendSMS(ctx context.Context, to string, body string) error
}

// maxSendRetries bounds retries of a transient Twilio failure. The caller is
// on the line, so we give up quickly rather than block the closing message.
const maxSendRetries = 2

var phoneNumberRegex = regexp.MustCompile(`[^0-9]`)

// Opts holds configuration options for the Twilio SMS client.
type Opts struct {
	AccountSID string
	AuthToken  string
	FromNumber string
}

// Option defines a configuration option for the Twilio SMS client.
type Option func(*Opts)

// WithAccountSID sets the Twilio account SID.
func WithAccountSID(sid string) Option {
	return func(o *Opts) { o.AccountSID = sid }
}

// WithAuthToken sets the Twilio auth token.
func WithAuthToken(token string) Option {
	return func(o *Opts) { o.AuthToken = token }
}

// WithFromNumber sets the sending number in E.164 format.
func WithFromNumber(from string) Option {
	return func(o *Opts) { o.FromNumber = from }
}

// Client wraps the Twilio REST API for SMS.
type Client struct {
	client *twilio.RestClient
	from   string
}

// NewClient creates a Twilio SMS client, falling back to the
// TWILIO_ACCOUNT_SID, TWILIO_AUTH_TOKEN, and TWILIO_FROM_NUMBER environment
// variables for unset options.
func NewClient(opts ...Option) (*Client, error) {
	var cfg Opts
	for _, opt := range opts {
		opt(&cfg)
	}
	if cfg.AccountSID == "" {
		cfg.AccountSID = os.Getenv("TWILIO_ACCOUNT_SID")
	}
	if cfg.AuthToken == "" {
		cfg.AuthToken = os.Getenv("TWILIO_AUTH_TOKEN")
	}
	if cfg.FromNumber == "" {
		cfg.FromNumber = os.Getenv("TWILIO_FROM_NUMBER")
	}
	slog.Debug("Twilio SMS client config loaded",
		"AccountSID_set", cfg.AccountSID != "",
		"AuthToken_set", cfg.AuthToken != "",
		"FromNumber_set", cfg.FromNumber != "")

	if cfg.AccountSID == "" || cfg.AuthToken == "" {
		return nil, fmt.Errorf("account SID and auth token must be provided")
	}
	if cfg.FromNumber == "" {
		return nil, fmt.Errorf("from number must be provided")
	}

	client := twilio.NewRestClientWithParams(twilio.ClientParams{
		Username: cfg.AccountSID,
		Password: cfg.AuthToken,
	})
	return &Client{client: client, from: cfg.FromNumber}, nil
}

// CanonicalizeNumber validates and canonicalizes a recipient phone number by
// removing all non-numeric characters and requiring at least 7 digits.
func CanonicalizeNumber(recipient string) (string, error) {
	if recipient == "" {
		return "", fmt.Errorf("recipient cannot be empty")
	}
	canonical := phoneNumberRegex.ReplaceAllString(recipient, "")
	if canonical == "" {
		return "", fmt.Errorf("invalid phone number: no digits found in recipient %q", recipient)
	}
	if len(canonical) < 7 {
		return "", fmt.Errorf("invalid phone number: %q is too short (minimum 7 digits required)", canonical)
	}
	return canonical, nil
}

// SendSMS sends one SMS, retrying transient failures a bounded number of times.
func (c *Client) SendSMS(ctx context.Context, to string, body string) error {
	canonical, err := CanonicalizeNumber(to)
	if err != nil {
		slog.Error("Twilio SendSMS validation error", "error", err, "to", to)
		return err
	}
	// Twilio expects E.164; the canonical form is digits only.
	canonical = "+" + canonical

	params := &twilioApi.CreateMessageParams{}
	params.SetTo(canonical)
	params.SetFrom(c.from)
	params.SetBody(body)

	operation := func() error {
		_, sendErr := c.client.Api.CreateMessage(params)
		return sendErr
	}
	policy := backoff.WithContext(backoff.WithMaxRetries(backoff.NewExponentialBackOff(), maxSendRetries), ctx)
	if err := backoff.Retry(operation, policy); err != nil {
		slog.Error("Twilio SendSMS failed", "to", canonical, "error", err)
		return fmt.Errorf("failed to send SMS to %s: %w", canonical, err)
	}
	slog.Debug("Twilio SMS sent", "to", canonical)
	return nil
}

// LogSender implements Sender by logging the message instead of sending it.
// Used when Twilio credentials are absent so local runs still complete.
type LogSender struct{}

// SendSMS logs the message body and succeeds.
func (LogSender) SendSMS(ctx context.Context, to string, body string) error {
	slog.Info("SMS (logged, not sent)", "to", to, "body", body)
	return nil
}

// MockClient records sent messages for tests.
type MockClient struct {
	SentMessages []SentMessage
	Err          error
}

// SentMessage is one recorded SMS.
type SentMessage struct {
	To   string
	Body string
}

// NewMockClient creates an empty mock sender.
func NewMockClient() *MockClient {
	return &MockClient{}
}

// SendSMS records the message, or fails with the configured error.
func (m *MockClient) SendSMS(ctx context.Context, to string, body string) error {
	if m.Err != nil {
		return m.Err
	}
	m.SentMessages = append(m.SentMessages, SentMessage{To: to, Body: body})
	return nil
}
