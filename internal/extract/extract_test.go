package extract

import (
	"testing"
	"time"
)

func TestName_NonAnswersRejected(t *testing.T) {
	for _, utterance := range []string{"yes", "No", "ok", "Okay.", "thanks", "hello", "skip", "SURE"} {
		if got, ok := Name(utterance); ok {
			t.Errorf("Name(%q) = %q, want no match", utterance, got)
		}
	}
}

func TestName_Strategies(t *testing.T) {
	tests := []struct {
		utterance string
		want      string
		ok        bool
	}{
		{"my name is Priya Sharma", "Priya Sharma", true},
		{"I am John Smith.", "John Smith", true},
		{"call me Alex Doe", "Alex Doe", true},
		{"this is Maria Lopez", "Maria Lopez", true},
		{"John Smith", "John Smith", true},
		{"Anita Rao Kulkarni", "Anita Rao Kulkarni", true},
		{"um it's john smith actually", "um it's john smith actually", true}, // whole-utterance fallback
		{"1234567890", "", false},
		{"", "", false},
		{"x", "", false},
	}
	for _, tt := range tests {
		got, ok := Name(tt.utterance)
		if ok != tt.ok || got != tt.want {
			t.Errorf("Name(%q) = (%q, %v), want (%q, %v)", tt.utterance, got, ok, tt.want, tt.ok)
		}
	}
}

func TestPhone_FormattingNoiseIdempotent(t *testing.T) {
	// All spellings of the same number must collapse to one digit string.
	for _, utterance := range []string{
		"nine nine three seven two six one zero zero one",
		"9937261001",
		"993-726-1001",
		"my number is 993 726 1001",
		"+91 9937261001", // country code dropped, last 10 kept
	} {
		got, ok := Phone(utterance)
		if !ok || got != "9937261001" {
			t.Errorf("Phone(%q) = (%q, %v), want (9937261001, true)", utterance, got, ok)
		}
	}
}

func TestPhone_SpokenConstructs(t *testing.T) {
	got, ok := Phone("nine double zero triple five two oh one four")
	if !ok || got != "9005552014" {
		t.Errorf("Phone double/triple = (%q, %v), want (9005552014, true)", got, ok)
	}
}

func TestPhone_NoMatch(t *testing.T) {
	for _, utterance := range []string{"", "yes", "call me later", "123"} {
		if got, ok := Phone(utterance); ok {
			t.Errorf("Phone(%q) = %q, want no match", utterance, got)
		}
	}
}

func TestDigits(t *testing.T) {
	tests := []struct {
		utterance string
		want      string
	}{
		{"seven", "7"},
		{"oh", "0"},
		{"double nine", "99"},
		{"5", "5"},
		{"umm three I think", "3"},
		{"no digits here", ""},
	}
	for _, tt := range tests {
		if got := Digits(tt.utterance); got != tt.want {
			t.Errorf("Digits(%q) = %q, want %q", tt.utterance, got, tt.want)
		}
	}
}

func TestEmail_Extraction(t *testing.T) {
	tests := []struct {
		utterance string
		name      string
		want      string
		ok        bool
	}{
		{"john at gmail dot com", "", "john@gmail.com", true},
		{"john@gmail.com", "", "john@gmail.com", true},
		{"it's maria.lopez at yahoo dot com", "", "maria.lopez@yahoo.com", true},
		{"gmail dot com", "John Doe", "johndoe@gmail.com", true},
		{"my email is on outlook", "Priya Sharma", "priyasharma@outlook.com", true},
		{"gmail", "", "caller@gmail.com", true},
		{"yes", "John Doe", "", false},
		{"I do not use email", "", "", false},
	}
	for _, tt := range tests {
		got, ok := Email(tt.utterance, tt.name)
		if ok != tt.ok || got != tt.want {
			t.Errorf("Email(%q, %q) = (%q, %v), want (%q, %v)", tt.utterance, tt.name, got, ok, tt.want, tt.ok)
		}
	}
}

func TestEmail_SynthesisDeterministic(t *testing.T) {
	first, _ := Email("gmail dot com", "John Doe")
	for i := 0; i < 5; i++ {
		again, _ := Email("gmail dot com", "John Doe")
		if again != first {
			t.Fatalf("Email synthesis not deterministic: %q then %q", first, again)
		}
	}
}

func TestDate_RelativeAndExplicit(t *testing.T) {
	now := time.Date(2026, time.August, 23, 12, 0, 0, 0, time.UTC)
	tests := []struct {
		utterance string
		want      string
		ok        bool
	}{
		{"today", "2026-08-23", true},
		{"it happened yesterday evening", "2026-08-22", true},
		{"day before yesterday", "2026-08-21", true},
		{"sometime last week", "2026-08-16", true},
		{"15/7/2026", "2026-07-15", true},
		{"15-7-2026", "2026-07-15", true},
		{"2026-07-15", "2026-07-15", true},
		{"July 15, 2026", "2026-07-15", true},
		{"last Tuesday I think", "last Tuesday I think", true},
		{"early this year", "early this year", true},
		{"yes", "", false},
		{"skip", "", false},
		{"ok", "", false},
		{"4821", "", false},
		{"", "", false},
	}
	for _, tt := range tests {
		got, ok := Date(tt.utterance, now)
		if ok != tt.ok || got != tt.want {
			t.Errorf("Date(%q) = (%q, %v), want (%q, %v)", tt.utterance, got, ok, tt.want, tt.ok)
		}
	}
}

func TestRecognizers(t *testing.T) {
	if !IsAffirmative("yes that's right") || !IsAffirmative("Correct") || IsAffirmative("nothing") {
		t.Error("IsAffirmative misclassified")
	}
	if !IsNegative("no, start over") || !IsNegative("that's not right") || IsNegative("I know him") {
		t.Error("IsNegative misclassified")
	}
	// A rejection wrapped around an affirmative word is still a rejection.
	for _, compound := range []string{"no, that's not right", "no, that is not correct", "that's not okay"} {
		if IsAffirmative(compound) {
			t.Errorf("IsAffirmative(%q) = true, want false", compound)
		}
	}
	if !IsNegative("no, that's not right") {
		t.Error(`IsNegative("no, that's not right") = false, want true`)
	}
	if !IsSkipRequest("skip this") || !IsSkipRequest("I don't have a phone") || IsSkipRequest("9937261001") {
		t.Error("IsSkipRequest misclassified")
	}
}

func TestAmountLost(t *testing.T) {
	tests := []struct {
		utterance string
		want      float64
		ok        bool
	}{
		{"I lost $5,000 to them", 5000, true},
		{"they took rs 1200.50 from my account", 1200.50, true},
		{"around 300 rupees", 300, true},
		{"my OTP was 4821", 0, false},
		{"no money involved", 0, false},
	}
	for _, tt := range tests {
		got, ok := AmountLost(tt.utterance)
		if ok != tt.ok || got != tt.want {
			t.Errorf("AmountLost(%q) = (%v, %v), want (%v, %v)", tt.utterance, got, ok, tt.want, tt.ok)
		}
	}
}

func TestEvidenceURL(t *testing.T) {
	got, ok := EvidenceURL("the fake site was https://example.com/login.")
	if !ok || got != "https://example.com/login" {
		t.Errorf("EvidenceURL = (%q, %v)", got, ok)
	}
	if _, ok := EvidenceURL("no link here"); ok {
		t.Error("EvidenceURL matched without a URL")
	}
}
