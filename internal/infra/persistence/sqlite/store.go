// Package sqlite persists generated patients and studies to a SQLite
// database file.
package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	_ "modernc.org/sqlite" // pure go sqlite driver

	"medsynth/internal/generator"
)

const schema = `
CREATE TABLE IF NOT EXISTS patients (
	id TEXT PRIMARY KEY,
	identification TEXT NOT NULL UNIQUE,
	name TEXT NOT NULL,
	gender TEXT NOT NULL,
	document_type TEXT NOT NULL,
	date_of_birth TEXT NOT NULL
);
CREATE TABLE IF NOT EXISTS studies (
	id TEXT PRIMARY KEY,
	patient_id TEXT NOT NULL REFERENCES patients(id),
	study_date TEXT NOT NULL,
	procedure_code TEXT NOT NULL,
	procedure_name TEXT NOT NULL,
	price REAL NOT NULL,
	physician TEXT NOT NULL,
	referral TEXT NOT NULL
);`

// Store writes generated pairs to SQLite.
type Store struct {
	db   *sql.DB
	path string
}

// NewStore opens (creating if necessary) the database file and ensures the
// schema exists.
func NewStore(path string) (*Store, error) {
	if path == "" {
		path = "medsynth.db"
	}
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o750); err != nil && !errors.Is(err, os.ErrExist) {
			return nil, fmt.Errorf("create dirs: %w", err)
		}
	}
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}
	if _, err := db.Exec(schema); err != nil {
		return nil, fmt.Errorf("create schema: %w", err)
	}
	return &Store{db: db, path: path}, nil
}

// InsertPair writes the patient and its study in one transaction.
func (s *Store) InsertPair(ctx context.Context, patient generator.Patient, study generator.Study) (retErr error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin: %w", err)
	}
	defer func() {
		if retErr != nil {
			_ = tx.Rollback()
		}
	}()
	if _, err := tx.ExecContext(ctx,
		`INSERT INTO patients(id, identification, name, gender, document_type, date_of_birth)
		 VALUES(?, ?, ?, ?, ?, ?)`,
		patient.ID, patient.Identification, patient.Name,
		string(patient.Gender), string(patient.DocumentType),
		patient.DateOfBirth.Format("2006-01-02"),
	); err != nil {
		retErr = fmt.Errorf("insert patient %s: %w", patient.ID, err)
		return retErr
	}
	if _, err := tx.ExecContext(ctx,
		`INSERT INTO studies(id, patient_id, study_date, procedure_code, procedure_name, price, physician, referral)
		 VALUES(?, ?, ?, ?, ?, ?, ?, ?)`,
		study.ID, study.PatientID, study.StudyDate.Format("2006-01-02"),
		study.ProcedureCode, study.ProcedureName, study.Price,
		study.Physician, study.Referral,
	); err != nil {
		retErr = fmt.Errorf("insert study %s: %w", study.ID, err)
		return retErr
	}
	return tx.Commit()
}

// CountPatients returns the number of stored patients.
func (s *Store) CountPatients(ctx context.Context) (int, error) {
	return s.count(ctx, "patients")
}

// CountStudies returns the number of stored studies.
func (s *Store) CountStudies(ctx context.Context) (int, error) {
	return s.count(ctx, "studies")
}

func (s *Store) count(ctx context.Context, table string) (int, error) {
	var n int
	if err := s.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM "+table).Scan(&n); err != nil {
		return 0, fmt.Errorf("count %s: %w", table, err)
	}
	return n, nil
}

// DB exposes the underlying sql.DB for integration testing hooks.
func (s *Store) DB() *sql.DB { return s.db }

// Path returns the configured database path.
func (s *Store) Path() string { return s.path }

// Close closes the database handle.
func (s *Store) Close() error { return s.db.Close() }
