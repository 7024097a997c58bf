package sampling

import "fmt"

// ConstraintKind tags a constraint as hard or soft.
type ConstraintKind string

// Constraint kinds.
const (
	// Hard constraints force the weight of non-conforming candidates to
	// exactly zero before sampling.
	Hard ConstraintKind = "hard"
	// Soft constraints multiply the weight of non-conforming candidates by a
	// factor in (0, 1]; candidates are discouraged, never eliminated and
	// never amplified.
	Soft ConstraintKind = "soft"
)

// SoftCombine selects how multipliers compose when several soft constraints
// discourage the same candidate.
type SoftCombine string

// Soft multiplier combination modes.
const (
	// CombineMultiply multiplies the factors of all discouraging constraints
	// in declaration order. This is the default.
	CombineMultiply SoftCombine = "multiply"
	// CombineMin applies only the smallest factor among the discouraging
	// constraints.
	CombineMin SoftCombine = "min"
)

// Predicate reports whether a candidate value conforms given the current
// context. Constraints must not mutate the context or the aggregate.
type Predicate func(candidate Value, ctx *Context) bool

// Constraint is a preventive business rule on one variable. The predicate is
// evaluated per candidate: per category for categorical specs, per interval
// (the candidate value is the interval midpoint) for weighted-range specs.
// Uniform specs carry no discrete candidates and are left untouched.
type Constraint struct {
	Name       string
	Kind       ConstraintKind
	Target     string
	Allows     Predicate
	Multiplier float64
}

// Constraints holds hard and soft constraints keyed by target variable in
// declaration order. Built once at setup, never mutated during a batch.
type Constraints struct {
	byTarget map[string][]Constraint
	combine  SoftCombine
}

// NewConstraints returns an empty constraint collection using the default
// multiplicative soft combination.
func NewConstraints() *Constraints {
	return &Constraints{byTarget: make(map[string][]Constraint), combine: CombineMultiply}
}

// SetSoftCombine switches the soft multiplier combination mode.
func (c *Constraints) SetSoftCombine(mode SoftCombine) error {
	switch mode {
	case CombineMultiply, CombineMin:
		c.combine = mode
		return nil
	default:
		return fmt.Errorf("unknown soft combine mode %q", string(mode))
	}
}

// Register appends a constraint after validating its shape. Soft constraints
// require a multiplier in (0, 1].
func (c *Constraints) Register(ct Constraint) error {
	if ct.Target == "" {
		return fmt.Errorf("register constraint %q: empty target", ct.Name)
	}
	if ct.Allows == nil {
		return fmt.Errorf("register constraint %q: nil predicate", ct.Name)
	}
	switch ct.Kind {
	case Hard:
	case Soft:
		if ct.Multiplier <= 0 || ct.Multiplier > 1 {
			return fmt.Errorf("register constraint %q: multiplier %v outside (0, 1]", ct.Name, ct.Multiplier)
		}
	default:
		return fmt.Errorf("register constraint %q: unknown kind %q", ct.Name, string(ct.Kind))
	}
	c.byTarget[ct.Target] = append(c.byTarget[ct.Target], ct)
	return nil
}

// Apply reshapes the spec for a variable under the current context, called
// after correlation adjustment and before sampling. Processing order is
// fixed: hard constraints zero non-conforming weights, soft constraints then
// shrink non-conforming weights, and the result is renormalized. If the hard
// pass exhausts every candidate's mass the call fails with
// ConstraintConflictError; falling back to an unconstrained draw would
// reintroduce invalid records, so it never does.
func (c *Constraints) Apply(variable string, spec Spec, ctx *Context) (Spec, error) {
	constraints := c.byTarget[variable]
	if len(constraints) == 0 || spec.Kind == KindUniform {
		return spec, nil
	}
	out := spec.Clone()
	candidates := candidateValues(out)

	for _, ct := range constraints {
		if ct.Kind != Hard {
			continue
		}
		for i, cand := range candidates {
			if !ct.Allows(cand, ctx) {
				setWeight(&out, i, 0)
			}
		}
	}
	if out.TotalWeight() <= 0 {
		return Spec{}, &ConstraintConflictError{Variable: variable, Context: ctx.Snapshot()}
	}

	factors := make([]float64, len(candidates))
	for i := range factors {
		factors[i] = 1
	}
	for _, ct := range constraints {
		if ct.Kind != Soft {
			continue
		}
		for i, cand := range candidates {
			if ct.Allows(cand, ctx) {
				continue
			}
			switch c.combine {
			case CombineMin:
				if ct.Multiplier < factors[i] {
					factors[i] = ct.Multiplier
				}
			default:
				factors[i] *= ct.Multiplier
			}
		}
	}
	for i, factor := range factors {
		if factor != 1 {
			setWeight(&out, i, getWeight(out, i)*factor)
		}
	}

	return Normalize(out)
}

// candidateValues lists the discrete candidates a predicate is evaluated
// against: category labels, or interval midpoints standing in for intervals.
func candidateValues(spec Spec) []Value {
	switch spec.Kind {
	case KindCategorical:
		out := make([]Value, len(spec.Categories))
		for i, cat := range spec.Categories {
			out[i] = LabelValue(cat.Label)
		}
		return out
	case KindWeightedRange:
		out := make([]Value, len(spec.Intervals))
		for i, iv := range spec.Intervals {
			out[i] = NumberValue((iv.Lo + iv.Hi) / 2)
		}
		return out
	default:
		return nil
	}
}

func getWeight(spec Spec, i int) float64 {
	if spec.Kind == KindCategorical {
		return spec.Categories[i].Weight
	}
	return spec.Intervals[i].Weight
}

func setWeight(spec *Spec, i int, w float64) {
	if spec.Kind == KindCategorical {
		spec.Categories[i].Weight = w
		return
	}
	spec.Intervals[i].Weight = w
}
