// Package store provides storage backends for SafeLine case records.
//
// This file implements the SQLite-backed case store.
package store

import (
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	_ "embed"

	_ "github.com/mattn/go-sqlite3"

	"github.com/safeline/helpline/internal/models"
)

// DefaultDirPermissions defines the default permissions for database directories.
const DefaultDirPermissions = 0755

//go:embed migrations_sqlite.sql
var sqliteMigrations string

// SQLiteStore persists cases in a local SQLite database file.
type SQLiteStore struct {
	db *sql.DB
}

// NewSQLiteStore creates a new SQLite store with the given DSN (a file path).
// The parent directory is created if missing and migrations are applied.
func NewSQLiteStore(opts ...Option) (*SQLiteStore, error) {
	var cfg Opts
	for _, opt := range opts {
		opt(&cfg)
	}
	if cfg.DSN == "" {
		slog.Error("SQLiteStore DSN not set")
		return nil, fmt.Errorf("database DSN not set")
	}

	if err := os.MkdirAll(filepath.Dir(cfg.DSN), DefaultDirPermissions); err != nil {
		slog.Error("Failed to create database directory", "error", err, "dir", filepath.Dir(cfg.DSN))
		return nil, fmt.Errorf("failed to create database directory: %w", err)
	}

	db, err := sql.Open("sqlite3", cfg.DSN)
	if err != nil {
		slog.Error("Failed to open SQLite connection", "error", err)
		return nil, err
	}
	if err := db.Ping(); err != nil {
		slog.Error("SQLite ping failed", "error", err)
		return nil, err
	}
	if _, err := db.Exec(sqliteMigrations); err != nil {
		slog.Error("Failed to run SQLite migrations", "error", err)
		return nil, fmt.Errorf("failed to run migrations: %w", err)
	}
	slog.Debug("SQLiteStore ready", "dsn", cfg.DSN)
	return &SQLiteStore{db: db}, nil
}

// CreateCase inserts a new case and returns its identifier. Absent or empty
// optional fields are written as NULL.
func (s *SQLiteStore) CreateCase(fields map[string]any) (string, error) {
	caseID := GenerateCaseID()
	_, err := s.db.Exec(`INSERT INTO cases
		(id, name, phone, email, crime_type, incident_date, description, amount_lost, evidence, is_emergency, consent_recorded, transcript)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
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
		slog.Error("SQLiteStore CreateCase failed", "error", err)
		return "", fmt.Errorf("failed to insert case: %w", err)
	}
	slog.Info("SQLiteStore CreateCase succeeded", "caseID", caseID)
	return caseID, nil
}

// GetCase retrieves a case by identifier.
func (s *SQLiteStore) GetCase(caseID string) (*models.CaseRecord, error) {
	row := s.db.QueryRow(`SELECT id, name, phone, email, crime_type, incident_date, description, amount_lost, evidence, is_emergency, consent_recorded, transcript, created_at
		FROM cases WHERE id = ?`, caseID)
	rec, err := scanCase(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, models.ErrCaseNotFound
		}
		slog.Error("SQLiteStore GetCase failed", "error", err, "caseID", caseID)
		return nil, fmt.Errorf("failed to get case %s: %w", caseID, err)
	}
	return rec, nil
}

// UpdateCase applies the given fields to an existing case. Keys outside the
// known column set are ignored.
func (s *SQLiteStore) UpdateCase(caseID string, fields map[string]any) error {
	assignments, args := buildUpdate(fields, func(int) string { return "?" })
	if len(assignments) == 0 {
		return nil
	}
	args = append(args, caseID)
	res, err := s.db.Exec(
		fmt.Sprintf(`UPDATE cases SET %s WHERE id = ?`, strings.Join(assignments, ", ")),
		args...,
	)
	if err != nil {
		slog.Error("SQLiteStore UpdateCase failed", "error", err, "caseID", caseID)
		return fmt.Errorf("failed to update case %s: %w", caseID, err)
	}
	if affected, _ := res.RowsAffected(); affected == 0 {
		return models.ErrCaseNotFound
	}
	slog.Debug("SQLiteStore UpdateCase succeeded", "caseID", caseID, "fields", len(assignments))
	return nil
}

// Close closes the underlying database handle.
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}
