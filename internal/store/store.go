// Package store defines the persistence boundary for generated entities.
// Implementations consume the generator's streamed output; they never reach
// back into the sampling engine.
package store

import (
	"context"

	"medsynth/internal/generator"
)

// Store is the minimal abstraction over durable backends for generated
// patients and studies. Writes happen pair-by-pair as the lazy record
// sequence is drained, so a failed write surfaces before further draws.
type Store interface {
	InsertPair(ctx context.Context, patient generator.Patient, study generator.Study) error
	CountPatients(ctx context.Context) (int, error)
	CountStudies(ctx context.Context) (int, error)
	Close() error
}
