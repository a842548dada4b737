// Package forms builds correction-form links and maps form submissions onto
// case updates.
//
// After a call is saved the caller receives an SMS with a link to a short web
// form where they can review and correct the details captured by voice. The
// form posts back plain urlencoded fields; this package translates those into
// the column updates the store understands.
package forms

import (
	"fmt"
	"net/url"
	"os"
	"strconv"
	"strings"

	"github.com/safeline/helpline/internal/models"
)

// editableFields are the form inputs a caller may correct. Anything else in
// a submission is dropped.
var editableFields = []string{
	"name",
	"phone",
	"email",
	"crime_type",
	"incident_date",
	"description",
	"amount_lost",
	"evidence_ref",
}

// LinkBuilder constructs public correction-form URLs for saved cases.
type LinkBuilder struct {
	baseURL string
}

// NewLinkBuilder creates a link builder rooted at baseURL, falling back to
// the BASE_URL environment variable, then to a localhost default.
func NewLinkBuilder(baseURL string) *LinkBuilder {
	if baseURL == "" {
		baseURL = os.Getenv("BASE_URL")
	}
	if baseURL == "" {
		baseURL = "http://localhost:8080"
	}
	return &LinkBuilder{baseURL: strings.TrimRight(baseURL, "/")}
}

// FormLink returns the correction-form URL for a case.
func (b *LinkBuilder) FormLink(caseID string) string {
	return b.baseURL + "/f/" + url.PathEscape(caseID)
}

// ParseSubmission converts submitted form values into a store update map.
// Empty optional fields clear the stored value; amount_lost must parse as a
// number, and crime_type must be one of the known categories.
func ParseSubmission(values url.Values) (map[string]any, error) {
	fields := make(map[string]any)
	for _, key := range editableFields {
		if !values.Has(key) {
			continue
		}
		raw := strings.TrimSpace(values.Get(key))
		switch key {
		case "amount_lost":
			if raw == "" {
				fields[key] = nil
				continue
			}
			amount, err := strconv.ParseFloat(strings.ReplaceAll(raw, ",", ""), 64)
			if err != nil {
				return nil, fmt.Errorf("invalid amount_lost %q: %w", raw, err)
			}
			fields[key] = amount
		case "crime_type":
			if raw == "" {
				continue
			}
			if !models.IsValidCrimeType(models.CrimeType(strings.ToLower(raw))) {
				return nil, fmt.Errorf("unknown crime_type %q", raw)
			}
			fields[key] = strings.ToLower(raw)
		case "name", "description":
			// Required on the form; an empty value means the caller cleared
			// a required field, which we refuse rather than null out.
			if raw == "" {
				return nil, fmt.Errorf("%s cannot be empty", key)
			}
			fields[key] = raw
		default:
			// The form exposes the evidence column as evidence_ref.
			storeKey := key
			if key == "evidence_ref" {
				storeKey = "evidence"
			}
			if raw == "" {
				fields[storeKey] = nil
			} else {
				fields[storeKey] = raw
			}
		}
	}
	if len(fields) == 0 {
		return nil, fmt.Errorf("submission contained no editable fields")
	}
	return fields, nil
}
