package forms

import (
	"net/url"
	"testing"
)

func TestFormLink(t *testing.T) {
	b := NewLinkBuilder("https://safeline.example.org/")
	got := b.FormLink("CR-20260823-AB12CD34")
	want := "https://safeline.example.org/f/CR-20260823-AB12CD34"
	if got != want {
		t.Errorf("FormLink = %q, want %q", got, want)
	}
}

func TestNewLinkBuilder_Default(t *testing.T) {
	t.Setenv("BASE_URL", "")
	b := NewLinkBuilder("")
	if got := b.FormLink("CR-1"); got != "http://localhost:8080/f/CR-1" {
		t.Errorf("default base URL not applied: %q", got)
	}
}

func TestParseSubmission(t *testing.T) {
	values := url.Values{}
	values.Set("name", "John Smith")
	values.Set("description", "account hacked")
	values.Set("email", "")
	values.Set("amount_lost", "1,200.50")
	values.Set("crime_type", "Hacking")
	values.Set("evidence_ref", "https://evidence.example.org/shot.png")
	values.Set("case_id", "CR-injected") // not editable

	fields, err := ParseSubmission(values)
	if err != nil {
		t.Fatalf("ParseSubmission: %v", err)
	}
	if fields["name"] != "John Smith" {
		t.Errorf("name = %v", fields["name"])
	}
	if fields["email"] != nil {
		t.Errorf("cleared email should map to nil, got %v", fields["email"])
	}
	if fields["amount_lost"] != 1200.50 {
		t.Errorf("amount_lost = %v", fields["amount_lost"])
	}
	if fields["crime_type"] != "hacking" {
		t.Errorf("crime_type = %v", fields["crime_type"])
	}
	if fields["evidence"] != "https://evidence.example.org/shot.png" {
		t.Errorf("evidence_ref not mapped to evidence column: %v", fields["evidence"])
	}
	if _, present := fields["case_id"]; present {
		t.Error("non-editable field leaked into update")
	}
}

func TestParseSubmission_Rejections(t *testing.T) {
	tests := []struct {
		label  string
		values url.Values
	}{
		{"bad amount", url.Values{"amount_lost": {"a lot"}}},
		{"bad crime type", url.Values{"crime_type": {"jaywalking"}}},
		{"empty name", url.Values{"name": {""}}},
		{"nothing editable", url.Values{"case_id": {"CR-1"}}},
	}
	for _, tt := range tests {
		if _, err := ParseSubmission(tt.values); err == nil {
			t.Errorf("%s: expected error", tt.label)
		}
	}
}
