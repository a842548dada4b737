package twiliosms

import (
	"context"
	"testing"
)

func TestNewClient_MissingCredentials(t *testing.T) {
	t.Setenv("TWILIO_ACCOUNT_SID", "")
	t.Setenv("TWILIO_AUTH_TOKEN", "")
	t.Setenv("TWILIO_FROM_NUMBER", "")
	if _, err := NewClient(); err == nil {
		t.Error("expected error without credentials")
	}
	if _, err := NewClient(WithAccountSID("AC123"), WithAuthToken("tok")); err == nil {
		t.Error("expected error without from number")
	}
}

func TestNewClient_WithOptions(t *testing.T) {
	client, err := NewClient(
		WithAccountSID("AC123"),
		WithAuthToken("tok"),
		WithFromNumber("+15550001111"),
	)
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if client.from != "+15550001111" {
		t.Errorf("from number not applied: %q", client.from)
	}
}

func TestCanonicalizeNumber(t *testing.T) {
	tests := []struct {
		in      string
		want    string
		wantErr bool
	}{
		{"+1 (555) 000-1111", "15550001111", false},
		{"9937261001", "9937261001", false},
		{"", "", true},
		{"no digits", "", true},
		{"123", "", true},
	}
	for _, tt := range tests {
		got, err := CanonicalizeNumber(tt.in)
		if (err != nil) != tt.wantErr || got != tt.want {
			t.Errorf("CanonicalizeNumber(%q) = (%q, %v), want (%q, err=%v)", tt.in, got, err, tt.want, tt.wantErr)
		}
	}
}

func TestMockClient_Records(t *testing.T) {
	m := NewMockClient()
	if err := m.SendSMS(context.Background(), "9937261001", "hello"); err != nil {
		t.Fatalf("mock send: %v", err)
	}
	if len(m.SentMessages) != 1 || m.SentMessages[0].Body != "hello" {
		t.Errorf("message not recorded: %+v", m.SentMessages)
	}
}
