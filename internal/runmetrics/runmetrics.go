// Package runmetrics records generation run counters. Two recorders are
// provided: an expvar recorder for process-local inspection and a Prometheus
// recorder for scraped deployments.
package runmetrics

import "time"

// Recorder receives one event per generated pair and one per constraint
// conflict. Implementations must be safe for concurrent use.
type Recorder interface {
	// RecordPair notes one generated patient/study pair in the given period.
	RecordPair(period int, elapsed time.Duration)
	// RecordConflict notes a constraint conflict on the named variable.
	RecordConflict(variable string)
}

// Nop discards all events.
type Nop struct{}

func (Nop) RecordPair(int, time.Duration) {}
func (Nop) RecordConflict(string)         {}
