// Package memory provides the in-memory reference implementation of the
// generated-record store, used by tests and dry runs.
package memory

import (
	"context"
	"sync"

	"medsynth/internal/generator"
)

// Store accumulates generated pairs in memory.
type Store struct {
	mu       sync.Mutex
	patients []generator.Patient
	studies  []generator.Study
}

// NewStore returns an empty in-memory store.
func NewStore() *Store {
	return &Store{}
}

// InsertPair appends the pair.
func (s *Store) InsertPair(_ context.Context, patient generator.Patient, study generator.Study) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.patients = append(s.patients, patient)
	s.studies = append(s.studies, study)
	return nil
}

// CountPatients returns the number of stored patients.
func (s *Store) CountPatients(context.Context) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.patients), nil
}

// CountStudies returns the number of stored studies.
func (s *Store) CountStudies(context.Context) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.studies), nil
}

// Patients returns a copy of the stored patients.
func (s *Store) Patients() []generator.Patient {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]generator.Patient, len(s.patients))
	copy(out, s.patients)
	return out
}

// Studies returns a copy of the stored studies.
func (s *Store) Studies() []generator.Study {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]generator.Study, len(s.studies))
	copy(out, s.studies)
	return out
}

// Close is a no-op for the in-memory store.
func (s *Store) Close() error { return nil }
