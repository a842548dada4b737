package store

import (
	"errors"
	"path/filepath"
	"strings"
	"testing"

	"github.com/safeline/helpline/internal/models"
)

func TestGenerateCaseID_Format(t *testing.T) {
	id := GenerateCaseID()
	parts := strings.Split(id, "-")
	if len(parts) != 3 || parts[0] != "CR" || len(parts[1]) != 8 || len(parts[2]) != 8 {
		t.Errorf("unexpected case ID format: %q", id)
	}
	if id == GenerateCaseID() {
		t.Error("consecutive case IDs should differ")
	}
}

func TestInMemoryStore_CreateGetUpdate(t *testing.T) {
	s := NewInMemoryStore()
	amount := 250.0
	rec := &models.CaseRecord{
		Name:        "John Smith",
		Phone:       "9937261001",
		CrimeType:   models.CrimeTypeHacking,
		Description: "account hacked",
		AmountLost:  &amount,
		IsEmergency: false,
		Consent:     true,
	}

	caseID, err := s.CreateCase(rec.Fields())
	if err != nil {
		t.Fatalf("CreateCase: %v", err)
	}

	got, err := s.GetCase(caseID)
	if err != nil {
		t.Fatalf("GetCase: %v", err)
	}
	if got.Name != "John Smith" || got.Phone != "9937261001" || got.CrimeType != models.CrimeTypeHacking {
		t.Errorf("retrieved case mismatch: %+v", got)
	}
	if got.AmountLost == nil || *got.AmountLost != 250.0 {
		t.Errorf("amount_lost not preserved: %v", got.AmountLost)
	}
	if !got.Consent || got.IsEmergency {
		t.Errorf("flags not preserved: %+v", got)
	}

	if err := s.UpdateCase(caseID, map[string]any{"email": "john@gmail.com"}); err != nil {
		t.Fatalf("UpdateCase: %v", err)
	}
	got, _ = s.GetCase(caseID)
	if got.Email != "john@gmail.com" {
		t.Errorf("update not applied: %q", got.Email)
	}
}

func TestInMemoryStore_NotFound(t *testing.T) {
	s := NewInMemoryStore()
	if _, err := s.GetCase("CR-00000000-NOPE"); !errors.Is(err, models.ErrCaseNotFound) {
		t.Errorf("expected ErrCaseNotFound, got %v", err)
	}
	if err := s.UpdateCase("CR-00000000-NOPE", map[string]any{"name": "x"}); !errors.Is(err, models.ErrCaseNotFound) {
		t.Errorf("expected ErrCaseNotFound on update, got %v", err)
	}
}

func TestFields_OmitsUnsetAndPlaceholder(t *testing.T) {
	rec := &models.CaseRecord{Name: "Jane Doe", Phone: models.NotProvided}
	fields := rec.Fields()
	if _, present := fields["phone"]; present {
		t.Error("placeholder phone should not reach the store")
	}
	if _, present := fields["email"]; present {
		t.Error("unset email should not reach the store")
	}
	if fields["name"] != "Jane Doe" {
		t.Errorf("name missing from fields: %v", fields)
	}
}

func TestBuildUpdate_IgnoresUnknownKeys(t *testing.T) {
	assignments, args := buildUpdate(map[string]any{
		"name":    "Jane Doe",
		"unknown": "boom",
	}, func(int) string { return "?" })
	if len(assignments) != 1 || assignments[0] != "name = ?" {
		t.Errorf("unexpected assignments: %v", assignments)
	}
	if len(args) != 1 {
		t.Errorf("unexpected args: %v", args)
	}
}

func TestSQLiteStore_RoundTrip(t *testing.T) {
	dsn := filepath.Join(t.TempDir(), "cases.db")
	s, err := NewSQLiteStore(WithDSN(dsn))
	if err != nil {
		t.Fatalf("NewSQLiteStore: %v", err)
	}
	defer s.Close()

	caseID, err := s.CreateCase(map[string]any{
		"name":         "Priya Sharma",
		"description":  "lottery scam call",
		"crime_type":   "scam",
		"is_emergency": false,
	})
	if err != nil {
		t.Fatalf("CreateCase: %v", err)
	}

	got, err := s.GetCase(caseID)
	if err != nil {
		t.Fatalf("GetCase: %v", err)
	}
	if got.Name != "Priya Sharma" || got.CrimeType != models.CrimeTypeScam {
		t.Errorf("retrieved case mismatch: %+v", got)
	}
	// Empty optional fields come back as zero values, not fabricated data.
	if got.Phone != "" || got.Email != "" || got.AmountLost != nil {
		t.Errorf("optional fields should be empty: %+v", got)
	}

	if err := s.UpdateCase(caseID, map[string]any{"phone": "9876543210", "amount_lost": 120.5}); err != nil {
		t.Fatalf("UpdateCase: %v", err)
	}
	got, _ = s.GetCase(caseID)
	if got.Phone != "9876543210" || got.AmountLost == nil || *got.AmountLost != 120.5 {
		t.Errorf("update not applied: %+v", got)
	}

	if _, err := s.GetCase("CR-00000000-NOPE"); !errors.Is(err, models.ErrCaseNotFound) {
		t.Errorf("expected ErrCaseNotFound, got %v", err)
	}
}

func TestNewSQLiteStore_RequiresDSN(t *testing.T) {
	if _, err := NewSQLiteStore(); err == nil {
		t.Error("expected error without DSN")
	}
}
