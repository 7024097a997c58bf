package sampling

// Aggregate is batch-scoped running state: per-variable label counts, the
// number of committed records, the elapsed period index, and a running growth
// factor. It persists across a whole batch and is mutated exactly once per
// draw, after the draw completes, by the sampler. Correlation rules and
// constraints only read it.
//
// An Aggregate must never be shared mutably across concurrent workers; each
// batch owns its own instance.
type Aggregate struct {
	counts  map[string]map[string]int
	records int
	period  int
	growth  float64
}

// NewAggregate returns an empty aggregate with a unit growth factor.
func NewAggregate() *Aggregate {
	return &Aggregate{counts: make(map[string]map[string]int), growth: 1}
}

// Count returns how many committed records sampled the given label for the
// given variable.
func (a *Aggregate) Count(variable, label string) int {
	return a.counts[variable][label]
}

// Share returns the fraction of committed records whose value for variable is
// label, or zero before any record committed.
func (a *Aggregate) Share(variable, label string) float64 {
	if a.records == 0 {
		return 0
	}
	return float64(a.Count(variable, label)) / float64(a.records)
}

// Records returns the number of committed records.
func (a *Aggregate) Records() int { return a.records }

// Period returns the current period index.
func (a *Aggregate) Period() int { return a.period }

// Growth returns the running growth factor.
func (a *Aggregate) Growth() float64 { return a.growth }

// commit folds one completed record into the aggregate. Called by the sampler
// only after every variable of the record was sampled, so stopping
// consumption never leaves the aggregate updated for an in-flight record.
func (a *Aggregate) commit(rec Record) {
	for name, v := range rec {
		if v.Kind != ValueLabel {
			continue
		}
		byLabel := a.counts[name]
		if byLabel == nil {
			byLabel = make(map[string]int)
			a.counts[name] = byLabel
		}
		byLabel[v.Label]++
	}
	a.records++
}

// advancePeriod moves the aggregate to the given period index and folds the
// growth step into the running factor.
func (a *Aggregate) advancePeriod(period int, growthStep float64) {
	a.period = period
	if growthStep > 0 {
		a.growth *= growthStep
	}
}

// Context holds the values already sampled for the record under construction
// plus a reference to the shared batch aggregate. A context lives for one
// record and is discarded once the record is emitted.
type Context struct {
	values map[string]Value
	agg    *Aggregate
}

// NewContext returns an empty per-record context referencing the given
// aggregate.
func NewContext(agg *Aggregate) *Context {
	return &Context{values: make(map[string]Value), agg: agg}
}

// Value returns the already-sampled value for a variable, if present.
func (c *Context) Value(name string) (Value, bool) {
	v, ok := c.values[name]
	return v, ok
}

// Aggregate exposes the batch-scoped aggregate for read access.
func (c *Context) Aggregate() *Aggregate { return c.agg }

// Snapshot copies the sampled values, for error reporting and record emission.
func (c *Context) Snapshot() map[string]Value {
	out := make(map[string]Value, len(c.values))
	for name, v := range c.values {
		out[name] = v
	}
	return out
}

func (c *Context) set(name string, v Value) {
	c.values[name] = v
}
