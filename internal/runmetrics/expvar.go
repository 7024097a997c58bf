package runmetrics

import (
	"expvar"
	"fmt"
	"sync"
	"sync/atomic"
	"time"
)

var expvarSeq uint64

// ExpvarRecorder publishes pair and conflict counters via expvar. It keeps
// total elapsed milliseconds and pair counts per period plus conflict counts
// per variable.
type ExpvarRecorder struct {
	name      string
	mu        sync.Mutex
	pairs     map[int]int64
	elapsedMS float64
	conflicts map[string]int64
}

// ExpvarSnapshot is a read-only view of the recorded counters.
type ExpvarSnapshot struct {
	PairsPerPeriod map[int]int64    `json:"pairs_per_period"`
	ElapsedMS      float64          `json:"elapsed_ms_total"`
	Conflicts      map[string]int64 `json:"conflicts_total"`
	RecordedAt     time.Time        `json:"recorded_at"`
}

// NewExpvarRecorder constructs a recorder and publishes it under the supplied
// name. When name is empty a unique identifier is generated.
func NewExpvarRecorder(name string) *ExpvarRecorder {
	if name == "" {
		id := atomic.AddUint64(&expvarSeq, 1)
		name = fmt.Sprintf("medsynth_run_metrics_%d", id)
	}
	rec := &ExpvarRecorder{
		name:      name,
		pairs:     make(map[int]int64),
		conflicts: make(map[string]int64),
	}
	expvar.Publish(name, expvar.Func(func() any {
		return rec.Snapshot()
	}))
	return rec
}

// Name returns the expvar export name associated with the recorder.
func (r *ExpvarRecorder) Name() string { return r.name }

// RecordPair notes one generated pair in the given period.
func (r *ExpvarRecorder) RecordPair(period int, elapsed time.Duration) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.pairs[period]++
	r.elapsedMS += float64(elapsed) / float64(time.Millisecond)
}

// RecordConflict notes a constraint conflict on the named variable.
func (r *ExpvarRecorder) RecordConflict(variable string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.conflicts[variable]++
}

// Snapshot returns an immutable copy of the aggregated counters.
func (r *ExpvarRecorder) Snapshot() ExpvarSnapshot {
	r.mu.Lock()
	defer r.mu.Unlock()
	pairs := make(map[int]int64, len(r.pairs))
	for period, n := range r.pairs {
		pairs[period] = n
	}
	conflicts := make(map[string]int64, len(r.conflicts))
	for variable, n := range r.conflicts {
		conflicts[variable] = n
	}
	return ExpvarSnapshot{
		PairsPerPeriod: pairs,
		ElapsedMS:      r.elapsedMS,
		Conflicts:      conflicts,
		RecordedAt:     time.Now().UTC(),
	}
}
