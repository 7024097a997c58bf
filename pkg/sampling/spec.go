package sampling

import "math"

// Kind identifies the closed set of supported distribution variants. The set
// is extended by adding variant members, not by subclassing.
type Kind string

// Supported distribution kinds.
const (
	// KindCategorical draws a label from weighted categories.
	KindCategorical Kind = "categorical"
	// KindWeightedRange draws a number from weighted numeric intervals.
	KindWeightedRange Kind = "weighted_range"
	// KindUniform draws a number uniformly from [Lo, Hi).
	KindUniform Kind = "uniform"
)

// Category is one weighted member of a categorical distribution. Categories
// are held in declaration order so normalization and inverse-CDF lookup are
// deterministic.
type Category struct {
	Label  string
	Weight float64
}

// Interval is one weighted numeric interval [Lo, Hi) of a weighted-range
// distribution. Intervals must be ascending and non-overlapping; gaps between
// consecutive intervals are allowed.
type Interval struct {
	Lo     float64
	Hi     float64
	Weight float64
}

// normTolerance is the floating-point tolerance used when checking that
// normalized weights sum to one.
const normTolerance = 1e-9

// Spec is a distribution specification. Exactly one variant payload is
// populated according to Kind. Weights are non-negative and need not pre-sum
// to one; Normalize rescales them at sample time.
type Spec struct {
	Kind       Kind
	Categories []Category
	Intervals  []Interval
	Lo         float64
	Hi         float64
}

// Categorical builds a categorical spec over the given weighted categories.
func Categorical(categories ...Category) Spec {
	return Spec{Kind: KindCategorical, Categories: categories}
}

// WeightedRange builds a weighted-range spec over the given intervals.
func WeightedRange(intervals ...Interval) Spec {
	return Spec{Kind: KindWeightedRange, Intervals: intervals}
}

// Uniform builds a uniform spec over [lo, hi).
func Uniform(lo, hi float64) Spec {
	return Spec{Kind: KindUniform, Lo: lo, Hi: hi}
}

// Clone returns a deep copy of the spec. Correlation rules and constraints
// operate on clones so the registered base spec is never mutated.
func (s Spec) Clone() Spec {
	out := s
	if s.Categories != nil {
		out.Categories = make([]Category, len(s.Categories))
		copy(out.Categories, s.Categories)
	}
	if s.Intervals != nil {
		out.Intervals = make([]Interval, len(s.Intervals))
		copy(out.Intervals, s.Intervals)
	}
	return out
}

// TotalWeight returns the sum of the variant's weights. Uniform specs carry an
// implicit unit mass.
func (s Spec) TotalWeight() float64 {
	switch s.Kind {
	case KindCategorical:
		var total float64
		for _, c := range s.Categories {
			total += c.Weight
		}
		return total
	case KindWeightedRange:
		var total float64
		for _, iv := range s.Intervals {
			total += iv.Weight
		}
		return total
	default:
		return 1
	}
}

// Validate checks the structural invariants of the spec: a known kind, a
// populated variant payload, non-negative weights, ordered non-overlapping
// intervals, and at least one member with positive weight.
func (s Spec) Validate() error {
	switch s.Kind {
	case KindCategorical:
		if len(s.Categories) == 0 {
			return invalidDistribution("categorical spec has no categories")
		}
		seen := make(map[string]struct{}, len(s.Categories))
		for _, c := range s.Categories {
			if c.Label == "" {
				return invalidDistribution("categorical spec has an empty label")
			}
			if _, dup := seen[c.Label]; dup {
				return invalidDistribution("categorical spec repeats label %q", c.Label)
			}
			seen[c.Label] = struct{}{}
			if c.Weight < 0 || math.IsNaN(c.Weight) {
				return invalidDistribution("weight for %q must be non-negative, got %v", c.Label, c.Weight)
			}
		}
	case KindWeightedRange:
		if len(s.Intervals) == 0 {
			return invalidDistribution("weighted-range spec has no intervals")
		}
		for i, iv := range s.Intervals {
			if iv.Lo >= iv.Hi {
				return invalidDistribution("interval [%v, %v) has non-positive width", iv.Lo, iv.Hi)
			}
			if iv.Weight < 0 || math.IsNaN(iv.Weight) {
				return invalidDistribution("weight for interval [%v, %v) must be non-negative, got %v", iv.Lo, iv.Hi, iv.Weight)
			}
			if i > 0 && iv.Lo < s.Intervals[i-1].Hi {
				return invalidDistribution("interval [%v, %v) overlaps or precedes [%v, %v)",
					iv.Lo, iv.Hi, s.Intervals[i-1].Lo, s.Intervals[i-1].Hi)
			}
		}
	case KindUniform:
		if s.Lo >= s.Hi {
			return invalidDistribution("uniform bounds [%v, %v) have non-positive width", s.Lo, s.Hi)
		}
	default:
		return invalidDistribution("unknown kind %q", string(s.Kind))
	}
	if s.TotalWeight() <= 0 {
		return invalidDistribution("total mass is zero")
	}
	return nil
}

// Normalize validates the spec and returns a copy whose weights sum to one.
// Uniform specs are returned unchanged after validation.
func Normalize(spec Spec) (Spec, error) {
	if err := spec.Validate(); err != nil {
		return Spec{}, err
	}
	out := spec.Clone()
	total := out.TotalWeight()
	switch out.Kind {
	case KindCategorical:
		for i := range out.Categories {
			out.Categories[i].Weight /= total
		}
	case KindWeightedRange:
		for i := range out.Intervals {
			out.Intervals[i].Weight /= total
		}
	}
	return out, nil
}

// normalized reports whether the variant's weights already sum to one within
// tolerance. Sample requires a normalized spec.
func (s Spec) normalized() bool {
	return math.Abs(s.TotalWeight()-1) <= normTolerance
}
