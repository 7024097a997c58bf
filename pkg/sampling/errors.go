package sampling

import (
	"fmt"
	"sort"
	"strings"
)

// InvalidDistributionError reports a malformed or zero-mass distribution
// specification. Generation cannot proceed for the affected variable.
type InvalidDistributionError struct {
	Reason string
}

func (e *InvalidDistributionError) Error() string {
	return "invalid distribution: " + e.Reason
}

func invalidDistribution(format string, args ...any) error {
	return &InvalidDistributionError{Reason: fmt.Sprintf(format, args...)}
}

// ConstraintConflictError reports that hard constraints removed every
// candidate's probability mass for a variable under the current context. It
// carries a snapshot of the context so the offending configuration can be
// fixed; retrying with the same context would yield the same conflict, so the
// engine never retries.
type ConstraintConflictError struct {
	Variable string
	Context  map[string]Value
}

func (e *ConstraintConflictError) Error() string {
	names := make([]string, 0, len(e.Context))
	for name := range e.Context {
		names = append(names, name)
	}
	sort.Strings(names)
	parts := make([]string, 0, len(names))
	for _, name := range names {
		parts = append(parts, name+"="+e.Context[name].String())
	}
	return fmt.Sprintf("constraint conflict: hard constraints exhausted all mass for %q (context: %s)",
		e.Variable, strings.Join(parts, " "))
}

// CorrelationCycleError reports that the conditioning graph declared by the
// correlation rules is not acyclic. It is detected once at sampler setup,
// before any draw.
type CorrelationCycleError struct {
	Variables []string
}

func (e *CorrelationCycleError) Error() string {
	return "correlation cycle involving variables: " + strings.Join(e.Variables, ", ")
}
