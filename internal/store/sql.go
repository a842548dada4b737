package store

import (
	"database/sql"
	"time"

	"github.com/safeline/helpline/internal/models"
)

// nullString converts a field-map entry into a nullable SQL value so the
// optional columns end up NULL instead of empty strings.
func nullString(fields map[string]any, key string) sql.NullString {
	v, hasValue := stringField(fields, key)
	return sql.NullString{String: v, Valid: hasValue}
}

func nullFloat(fields map[string]any, key string) sql.NullFloat64 {
	v, hasValue := floatField(fields, key)
	return sql.NullFloat64{Float64: v, Valid: hasValue}
}

// buildUpdate turns a field map into SET assignments and args, restricted to
// known columns. The placeholder function receives the 1-based arg position
// so both SQLite (?) and Postgres ($n) styles work.
func buildUpdate(fields map[string]any, placeholder func(pos int) string) ([]string, []any) {
	var assignments []string
	var args []any
	for _, col := range caseColumns {
		if _, present := fields[col]; !present {
			continue
		}
		var val any
		switch col {
		case "amount_lost":
			val = nullFloat(fields, col)
		case "is_emergency", "consent_recorded":
			val = boolField(fields, col)
		default:
			val = nullString(fields, col)
		}
		args = append(args, val)
		assignments = append(assignments, col+" = "+placeholder(len(args)))
	}
	return assignments, args
}

// scanCase reads one cases row into a CaseRecord, mapping NULLs back to the
// zero values the rest of the system expects.
func scanCase(row *sql.Row) (*models.CaseRecord, error) {
	var (
		rec        models.CaseRecord
		name       sql.NullString
		phone      sql.NullString
		email      sql.NullString
		crimeType  sql.NullString
		incident   sql.NullString
		desc       sql.NullString
		amount     sql.NullFloat64
		evidence   sql.NullString
		transcript sql.NullString
		createdAt  time.Time
	)
	err := row.Scan(&rec.ID, &name, &phone, &email, &crimeType, &incident, &desc,
		&amount, &evidence, &rec.IsEmergency, &rec.Consent, &transcript, &createdAt)
	if err != nil {
		return nil, err
	}
	rec.Name = name.String
	rec.Phone = phone.String
	rec.Email = email.String
	rec.CrimeType = models.CrimeType(crimeType.String)
	rec.IncidentDate = incident.String
	rec.Description = desc.String
	rec.EvidenceRef = evidence.String
	rec.Transcript = transcript.String
	rec.CreatedAt = createdAt
	if amount.Valid {
		rec.AmountLost = &amount.Float64
	}
	return &rec, nil
}
