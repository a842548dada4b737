// Package store provides storage backends for SafeLine case records.
//
// It includes an in-memory store for tests and local development plus
// SQLite and PostgreSQL backends. A case is created exactly once during a
// call; later updates come from the correction web form.
package store

import (
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/safeline/helpline/internal/models"
)

// CaseStore is the keyed record store the call flow persists into. Field
// maps are keyed by column name; unknown keys are ignored, and empty values
// are stored as NULL rather than defaults that look like real data.
type CaseStore interface {
	// CreateCase inserts a new case and returns its generated identifier.
	CreateCase(fields map[string]any) (string, error)

	// GetCase retrieves a case by identifier, or models.ErrCaseNotFound.
	GetCase(caseID string) (*models.CaseRecord, error)

	// UpdateCase applies the given fields to an existing case.
	UpdateCase(caseID string, fields map[string]any) error

	// Close releases the underlying resources.
	Close() error
}

// caseColumns lists the updatable columns; keys outside this set are ignored.
var caseColumns = []string{
	"name", "phone", "email", "crime_type", "incident_date", "description",
	"amount_lost", "evidence", "is_emergency", "consent_recorded", "transcript",
}

// Opts holds configuration options for store backends.
type Opts struct {
	DSN string
}

// Option defines a configuration option for store backends.
type Option func(*Opts)

// WithDSN sets the data source name (file path for SQLite, URL for Postgres).
func WithDSN(dsn string) Option {
	return func(o *Opts) { o.DSN = dsn }
}

// DetectDSNType reports whether a DSN targets PostgreSQL or SQLite. URL and
// key=value connection strings mean Postgres; anything else is treated as a
// SQLite file path.
func DetectDSNType(dsn string) string {
	if strings.HasPrefix(dsn, "postgres://") || strings.HasPrefix(dsn, "postgresql://") || strings.Contains(dsn, "host=") {
		return "postgres"
	}
	return "sqlite"
}

// GenerateCaseID produces a human-readable case identifier such as
// CR-20260823-1A2B3C4D. The date prefix makes IDs easy to triage manually.
func GenerateCaseID() string {
	unique := strings.ToUpper(strings.ReplaceAll(uuid.NewString(), "-", "")[:8])
	return fmt.Sprintf("CR-%s-%s", time.Now().Format("20060102"), unique)
}

// stringField extracts a non-empty string value for key, if present.
func stringField(fields map[string]any, key string) (string, bool) {
	v, isString := fields[key].(string)
	return v, isString && v != ""
}

// floatField extracts a numeric value for key, if present.
func floatField(fields map[string]any, key string) (float64, bool) {
	switch v := fields[key].(type) {
	case float64:
		return v, true
	case int:
		return float64(v), true
	}
	return 0, false
}

// boolField extracts a boolean value for key, defaulting to false.
func boolField(fields map[string]any, key string) bool {
	v, isBool := fields[key].(bool)
	return isBool && v
}

// recordFromFields builds a CaseRecord from a flat field map.
func recordFromFields(caseID string, fields map[string]any) *models.CaseRecord {
	rec := &models.CaseRecord{ID: caseID, CreatedAt: time.Now()}
	applyFields(rec, fields)
	return rec
}

// applyFields copies known keys from a field map onto a record. An explicit
// nil value clears the field, mirroring the NULL the SQL backends would write.
func applyFields(rec *models.CaseRecord, fields map[string]any) {
	setString := func(key string, dst *string) {
		raw, present := fields[key]
		if !present {
			return
		}
		if raw == nil {
			*dst = ""
			return
		}
		if v, isString := raw.(string); isString && v != "" {
			*dst = v
		}
	}
	setString("name", &rec.Name)
	setString("phone", &rec.Phone)
	setString("email", &rec.Email)
	setString("incident_date", &rec.IncidentDate)
	setString("description", &rec.Description)
	setString("evidence", &rec.EvidenceRef)
	setString("transcript", &rec.Transcript)
	if v, hasValue := stringField(fields, "crime_type"); hasValue {
		rec.CrimeType = models.CrimeType(v)
	}
	if raw, present := fields["amount_lost"]; present {
		if raw == nil {
			rec.AmountLost = nil
		} else if v, hasValue := floatField(fields, "amount_lost"); hasValue {
			rec.AmountLost = &v
		}
	}
	if _, present := fields["is_emergency"]; present {
		rec.IsEmergency = boolField(fields, "is_emergency")
	}
	if _, present := fields["consent_recorded"]; present {
		rec.Consent = boolField(fields, "consent_recorded")
	}
}

// InMemoryStore is a simple in-memory case store for tests and local runs.
type InMemoryStore struct {
	mu    sync.RWMutex
	cases map[string]*models.CaseRecord

	// FailCreate makes CreateCase return an error; used to exercise the
	// persistence-failure path in tests.
	FailCreate bool
}

// NewInMemoryStore creates an empty in-memory store.
func NewInMemoryStore() *InMemoryStore {
	return &InMemoryStore{cases: make(map[string]*models.CaseRecord)}
}

// CreateCase inserts a new case and returns its identifier.
func (s *InMemoryStore) CreateCase(fields map[string]any) (string, error) {
	if s.FailCreate {
		return "", fmt.Errorf("in-memory store configured to fail")
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	caseID := GenerateCaseID()
	s.cases[caseID] = recordFromFields(caseID, fields)
	return caseID, nil
}

// GetCase retrieves a case by identifier.
func (s *InMemoryStore) GetCase(caseID string) (*models.CaseRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	rec, found := s.cases[caseID]
	if !found {
		return nil, models.ErrCaseNotFound
	}
	copied := *rec
	return &copied, nil
}

// UpdateCase applies fields to an existing case.
func (s *InMemoryStore) UpdateCase(caseID string, fields map[string]any) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	rec, found := s.cases[caseID]
	if !found {
		return models.ErrCaseNotFound
	}
	applyFields(rec, fields)
	return nil
}

// Close is a no-op for the in-memory store.
func (s *InMemoryStore) Close() error { return nil }

// Count returns the number of stored cases.
func (s *InMemoryStore) Count() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.cases)
}
