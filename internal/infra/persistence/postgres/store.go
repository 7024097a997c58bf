// Package postgres persists generated patients and studies to PostgreSQL
// through the pgx stdlib driver.
package postgres

import (
	"context"
	"database/sql"
	"fmt"

	_ "github.com/jackc/pgx/v5/stdlib" // database/sql driver

	"medsynth/internal/generator"
)

const schema = `
CREATE TABLE IF NOT EXISTS patients (
	id TEXT PRIMARY KEY,
	identification TEXT NOT NULL UNIQUE,
	name TEXT NOT NULL,
	gender TEXT NOT NULL,
	document_type TEXT NOT NULL,
	date_of_birth DATE NOT NULL
);
CREATE TABLE IF NOT EXISTS studies (
	id TEXT PRIMARY KEY,
	patient_id TEXT NOT NULL REFERENCES patients(id),
	study_date DATE NOT NULL,
	procedure_code TEXT NOT NULL,
	procedure_name TEXT NOT NULL,
	price DOUBLE PRECISION NOT NULL,
	physician TEXT NOT NULL,
	referral TEXT NOT NULL
);`

// Store writes generated pairs to PostgreSQL.
type Store struct {
	db *sql.DB
}

// NewStore connects using the given DSN and ensures the schema exists.
func NewStore(ctx context.Context, dsn string) (*Store, error) {
	if dsn == "" {
		return nil, fmt.Errorf("postgres dsn required")
	}
	db, err := sql.Open("pgx", dsn)
	if err != nil {
		return nil, fmt.Errorf("open postgres: %w", err)
	}
	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("ping postgres: %w", err)
	}
	if _, err := db.ExecContext(ctx, schema); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("create schema: %w", err)
	}
	return &Store{db: db}, nil
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
		 VALUES($1, $2, $3, $4, $5, $6)`,
		patient.ID, patient.Identification, patient.Name,
		string(patient.Gender), string(patient.DocumentType), patient.DateOfBirth,
	); err != nil {
		retErr = fmt.Errorf("insert patient %s: %w", patient.ID, err)
		return retErr
	}
	if _, err := tx.ExecContext(ctx,
		`INSERT INTO studies(id, patient_id, study_date, procedure_code, procedure_name, price, physician, referral)
		 VALUES($1, $2, $3, $4, $5, $6, $7, $8)`,
		study.ID, study.PatientID, study.StudyDate,
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

// Close closes the connection pool.
func (s *Store) Close() error { return s.db.Close() }
