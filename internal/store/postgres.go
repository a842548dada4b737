// Package store provides storage backends for SafeLine case records.
//
// This file implements the PostgreSQL-backed case store.
package store

import (
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	_ "embed"

	_ "github.com/lib/pq"

	"github.com/safeline/helpline/internal/models"
)

//go:embed migrations_postgres.sql
var postgresMigrations string

// PostgresStore persists cases in PostgreSQL.
type PostgresStore struct {
	db *sql.DB
}

// NewPostgresStore creates a new Postgres store with the given DSN
// (a postgres:// connection URL) and applies migrations.
func NewPostgresStore(opts ...Option) (*PostgresStore, error) {
	var cfg Opts
	for _, opt := range opts {
		opt(&cfg)
	}
	if cfg.DSN == "" {
		slog.Error("PostgresStore DSN not set")
		return nil, fmt.Errorf("database DSN not set")
	}

	db, err := sql.Open("postgres", cfg.DSN)
	if err != nil {
		slog.Error("Failed to open Postgres connection", "error", err)
		return nil, err
	}
	if err := db.Ping(); err != nil {
		slog.Error("Postgres ping failed", "error", err)
		return nil, err
	}
	if _, err := db.Exec(postgresMigrations); err != nil {
		slog.Error("Failed to run Postgres migrations", "error", err)
		return nil, fmt.Errorf("failed to run migrations: %w", err)
	}
	slog.Debug("PostgresStore ready")
	return &PostgresStore{db: db}, nil
}

// CreateCase inserts a new case and returns its identifier.
func (s *PostgresStore) CreateCase(fields map[string]any) (string, error) {
	caseID := GenerateCaseID()
	_, err := s.db.Exec(`INSERT INTO cases
		(id, name, phone, email, crime_type, incident_date, description, amount_lost, evidence, is_emergency, consent_recorded, transcript)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)`,
		caseID,
		nullString(fields, "name"),
		nullString(fields, "phone"),
		nullString(fields, "email"),
		nullString(fields, "crime_type"),
		nullString(fields, "incident_date"),
		nullString(fields, "description"),
		nullFloat(fields, "amount_lost"),
		nullString(fields, "evidence"),
		boolField(fields, "is_emergency"),
		boolField(fields, "consent_recorded"),
		nullString(fields, "transcript"),
	)
	if err != nil {
		slog.Error("PostgresStore CreateCase failed", "error", err)
		return "", fmt.Errorf("failed to insert case: %w", err)
	}
	slog.Info("PostgresStore CreateCase succeeded", "caseID", caseID)
	return caseID, nil
}

// GetCase retrieves a case by identifier.
func (s *PostgresStore) GetCase(caseID string) (*models.CaseRecord, error) {
	row := s.db.QueryRow(`SELECT id, name, phone, email, crime_type, incident_date, description, amount_lost, evidence, is_emergency, consent_recorded, transcript, created_at
		FROM cases WHERE id = $1`, caseID)
	rec, err := scanCase(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, models.ErrCaseNotFound
		}
		slog.Error("PostgresStore GetCase failed", "error", err, "caseID", caseID)
		return nil, fmt.Errorf("failed to get case %s: %w", caseID, err)
	}
	return rec, nil
}

// UpdateCase applies the given fields to an existing case.
func (s *PostgresStore) UpdateCase(caseID string, fields map[string]any) error {
	assignments, args := buildUpdate(fields, func(pos int) string {
		return fmt.Sprintf("$%d", pos)
	})
	if len(assignments) == 0 {
		return nil
	}
	args = append(args, caseID)
	res, err := s.db.Exec(
		fmt.Sprintf(`UPDATE cases SET %s WHERE id = $%d`, strings.Join(assignments, ", "), len(args)),
		args...,
	)
	if err != nil {
		slog.Error("PostgresStore UpdateCase failed", "error", err, "caseID", caseID)
		return fmt.Errorf("failed to update case %s: %w", caseID, err)
	}
	if affected, _ := res.RowsAffected(); affected == 0 {
		return models.ErrCaseNotFound
	}
	slog.Debug("PostgresStore UpdateCase succeeded", "caseID", caseID, "fields", len(assignments))
	return nil
}

// Close closes the underlying database handle.
func (s *PostgresStore) Close() error {
	return s.db.Close()
}
