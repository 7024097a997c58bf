package sampling

import (
	"fmt"
	"sort"
)

// VariableSpec binds a variable name to its base distribution.
type VariableSpec struct {
	Name string
	Spec Spec
}

// PeriodVolume is one unit of batch work: an expected record count for a
// period index, computed by an external volume model. GrowthStep, when
// positive, is folded into the aggregate's running growth factor as the
// period begins.
type PeriodVolume struct {
	Period     int
	Count      int
	GrowthStep float64
}

// Sampler orchestrates repeated draws across a batch. Construction validates
// every base spec and computes a fixed topological order of variables from
// the correlation graph; a cycle is a configuration error reported here, not
// at draw time.
//
// A sampler owns its aggregate and is bound to a single batch worker.
// Independent batches run concurrently only with separate Sampler and Source
// instances.
type Sampler struct {
	specs       map[string]Spec
	order       []string
	rules       *Rules
	constraints *Constraints
	agg         *Aggregate
}

// NewSampler builds a sampler over the declared variables, rules, and
// constraints. Nil rules or constraints are treated as empty.
func NewSampler(variables []VariableSpec, rules *Rules, constraints *Constraints) (*Sampler, error) {
	if len(variables) == 0 {
		return nil, fmt.Errorf("no variables declared")
	}
	if rules == nil {
		rules = NewRules()
	}
	if constraints == nil {
		constraints = NewConstraints()
	}
	specs := make(map[string]Spec, len(variables))
	names := make([]string, 0, len(variables))
	for _, v := range variables {
		if v.Name == "" {
			return nil, fmt.Errorf("variable with empty name")
		}
		if _, dup := specs[v.Name]; dup {
			return nil, fmt.Errorf("variable %q declared twice", v.Name)
		}
		if err := v.Spec.Validate(); err != nil {
			return nil, fmt.Errorf("variable %q: %w", v.Name, err)
		}
		specs[v.Name] = v.Spec
		names = append(names, v.Name)
	}
	order, err := topologicalOrder(names, specs, rules)
	if err != nil {
		return nil, err
	}
	return &Sampler{
		specs:       specs,
		order:       order,
		rules:       rules,
		constraints: constraints,
		agg:         NewAggregate(),
	}, nil
}

// Order returns the fixed sampling order of variables.
func (s *Sampler) Order() []string {
	out := make([]string, len(s.order))
	copy(out, s.order)
	return out
}

// Aggregate exposes the batch-scoped aggregate.
func (s *Sampler) Aggregate() *Aggregate { return s.agg }

// Generate returns a lazy sequence of n records drawn in the current period.
func (s *Sampler) Generate(src *Source, n int) *RecordSeq {
	return s.GenerateSeries(src, []PeriodVolume{{Period: s.agg.Period(), Count: n}})
}

// GenerateSeries returns a lazy sequence covering the given period volumes in
// order. The sequence is forward-only and not restartable; callers needing
// persistence must consume and store records as they are produced.
func (s *Sampler) GenerateSeries(src *Source, volumes []PeriodVolume) *RecordSeq {
	return &RecordSeq{sampler: s, src: src, volumes: volumes, volume: -1}
}

// drawRecord samples every variable in topological order into a fresh
// context, then commits the completed record into the aggregate.
func (s *Sampler) drawRecord(src *Source) (Record, error) {
	ctx := NewContext(s.agg)
	for _, name := range s.order {
		adjusted, err := s.rules.Apply(name, s.specs[name], ctx)
		if err != nil {
			return nil, err
		}
		constrained, err := s.constraints.Apply(name, adjusted, ctx)
		if err != nil {
			return nil, err
		}
		normalized, err := Normalize(constrained)
		if err != nil {
			return nil, fmt.Errorf("variable %q: %w", name, err)
		}
		v, err := Sample(src, normalized)
		if err != nil {
			return nil, fmt.Errorf("variable %q: %w", name, err)
		}
		ctx.set(name, v)
	}
	rec := Record(ctx.Snapshot())
	s.agg.commit(rec)
	return rec, nil
}

// RecordSeq is a lazy, forward-only sequence of sampled records, consumed in
// the style of database result sets: Next advances, Record and Period read
// the current element, Err reports the terminating error, if any.
type RecordSeq struct {
	sampler   *Sampler
	src       *Source
	volumes   []PeriodVolume
	volume    int
	remaining int
	cur       Record
	err       error
	done      bool
}

// Next draws the next record and reports whether one is available. It
// returns false once the volumes are exhausted or a draw failed; the error is
// terminal for the sequence.
func (q *RecordSeq) Next() bool {
	if q.done || q.err != nil {
		return false
	}
	for q.remaining <= 0 {
		q.volume++
		if q.volume >= len(q.volumes) {
			q.done = true
			return false
		}
		vol := q.volumes[q.volume]
		q.remaining = vol.Count
		// Period state advances between records, never mid-record.
		q.sampler.agg.advancePeriod(vol.Period, vol.GrowthStep)
	}
	rec, err := q.sampler.drawRecord(q.src)
	if err != nil {
		q.err = err
		q.done = true
		return false
	}
	q.cur = rec
	q.remaining--
	return true
}

// Record returns the record produced by the last successful Next call.
func (q *RecordSeq) Record() Record { return q.cur }

// Period returns the period index of the current record.
func (q *RecordSeq) Period() int {
	if q.volume >= 0 && q.volume < len(q.volumes) {
		return q.volumes[q.volume].Period
	}
	return q.sampler.agg.Period()
}

// Err returns the error that terminated the sequence, if any.
func (q *RecordSeq) Err() error { return q.err }

// topologicalOrder computes a fixed draw order over the declared variables
// from the correlation conditioning graph. Among ready variables declaration
// order is preserved, so the order is deterministic. Conditioning variables
// that are not declared never enter the context and impose no ordering.
func topologicalOrder(names []string, specs map[string]Spec, rules *Rules) ([]string, error) {
	indegree := make(map[string]int, len(names))
	dependents := make(map[string][]string, len(names))
	for _, name := range names {
		for _, dep := range rules.Conditioning(name) {
			if _, declared := specs[dep]; !declared {
				continue
			}
			indegree[name]++
			dependents[dep] = append(dependents[dep], name)
		}
	}

	ready := make([]string, 0, len(names))
	for _, name := range names {
		if indegree[name] == 0 {
			ready = append(ready, name)
		}
	}

	order := make([]string, 0, len(names))
	for len(ready) > 0 {
		name := ready[0]
		ready = ready[1:]
		order = append(order, name)
		for _, dependent := range dependents[name] {
			indegree[dependent]--
			if indegree[dependent] == 0 {
				ready = append(ready, dependent)
			}
		}
	}

	if len(order) != len(names) {
		var cycle []string
		for name, deg := range indegree {
			if deg > 0 {
				cycle = append(cycle, name)
			}
		}
		sort.Strings(cycle)
		return nil, &CorrelationCycleError{Variables: cycle}
	}
	return order, nil
}
