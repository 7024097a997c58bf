// Package export writes generated datasets as JSON Lines files into a blob
// store, one object per entity type plus a manifest describing the run.
package export

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"time"

	"medsynth/internal/blob"
	"medsynth/internal/generator"
)

const (
	contentTypeJSONL = "application/jsonl"
	contentTypeJSON  = "application/json"
)

// Manifest describes one completed export run.
type Manifest struct {
	RunID     string      `json:"run_id"`
	Seed      int64       `json:"seed"`
	Patients  int         `json:"patients"`
	Studies   int         `json:"studies"`
	Files     []blob.Info `json:"files"`
	Driver    blob.Driver `json:"driver"`
	CreatedAt time.Time   `json:"created_at"`
}

// Exporter serializes datasets into a blob store.
type Exporter struct {
	store blob.Store
	now   func() time.Time
}

// New returns an exporter writing to the given store.
func New(store blob.Store) *Exporter {
	return &Exporter{store: store, now: func() time.Time { return time.Now().UTC() }}
}

// Export writes patients.jsonl, studies.jsonl and manifest.json under the
// runID prefix and returns the manifest.
func (e *Exporter) Export(ctx context.Context, runID string, seed int64, patients []generator.Patient, studies []generator.Study) (Manifest, error) {
	if runID == "" {
		return Manifest{}, fmt.Errorf("run id required")
	}
	patientLines, err := encodeLines(patients)
	if err != nil {
		return Manifest{}, fmt.Errorf("encode patients: %w", err)
	}
	studyLines, err := encodeLines(studies)
	if err != nil {
		return Manifest{}, fmt.Errorf("encode studies: %w", err)
	}
	manifest := Manifest{
		RunID:     runID,
		Seed:      seed,
		Patients:  len(patients),
		Studies:   len(studies),
		Driver:    e.store.Driver(),
		CreatedAt: e.now(),
	}
	for _, part := range []struct {
		name string
		data []byte
	}{
		{runID + "/patients.jsonl", patientLines},
		{runID + "/studies.jsonl", studyLines},
	} {
		info, err := e.store.Put(ctx, part.name, bytes.NewReader(part.data), blob.PutOptions{ContentType: contentTypeJSONL})
		if err != nil {
			return Manifest{}, fmt.Errorf("put %s: %w", part.name, err)
		}
		manifest.Files = append(manifest.Files, info)
	}
	raw, err := json.MarshalIndent(manifest, "", "  ")
	if err != nil {
		return Manifest{}, fmt.Errorf("encode manifest: %w", err)
	}
	if _, err := e.store.Put(ctx, runID+"/manifest.json", bytes.NewReader(raw), blob.PutOptions{ContentType: contentTypeJSON}); err != nil {
		return Manifest{}, fmt.Errorf("put manifest: %w", err)
	}
	return manifest, nil
}

// ReadManifest loads the manifest stored under the runID prefix.
func ReadManifest(ctx context.Context, store blob.Store, runID string) (Manifest, error) {
	_, rc, err := store.Get(ctx, runID+"/manifest.json")
	if err != nil {
		return Manifest{}, err
	}
	defer func() { _ = rc.Close() }()
	raw, err := io.ReadAll(rc)
	if err != nil {
		return Manifest{}, err
	}
	var manifest Manifest
	if err := json.Unmarshal(raw, &manifest); err != nil {
		return Manifest{}, fmt.Errorf("decode manifest: %w", err)
	}
	return manifest, nil
}

func encodeLines[T any](items []T) ([]byte, error) {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	for _, item := range items {
		if err := enc.Encode(item); err != nil {
			return nil, err
		}
	}
	return buf.Bytes(), nil
}
