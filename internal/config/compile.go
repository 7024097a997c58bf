package config

import (
	"fmt"
	"sort"

	"medsynth/pkg/sampling"
)

// Engine bundles the compiled scenario: validated variable specs plus the
// correlation and constraint collections, ready to hand to a sampler.
type Engine struct {
	Variables   []sampling.VariableSpec
	Rules       *sampling.Rules
	Constraints *sampling.Constraints
}

// Compile turns a validated scenario into engine objects. Categorical labels
// are ordered lexically so compiled specs are deterministic regardless of map
// iteration order.
func Compile(s *Scenario) (*Engine, error) {
	if err := s.Validate(); err != nil {
		return nil, err
	}

	variables := make([]sampling.VariableSpec, 0, len(s.Distributions))
	for _, d := range s.Distributions {
		spec, err := compileDistribution(d)
		if err != nil {
			return nil, fmt.Errorf("distribution %q: %w", d.Name, err)
		}
		variables = append(variables, sampling.VariableSpec{Name: d.Name, Spec: spec})
	}

	rules := sampling.NewRules()
	for i, c := range s.Correlations {
		for _, target := range sortedKeys(c.Adjustments) {
			overrides := c.Adjustments[target]
			condition := c.Condition
			rule := sampling.Rule{
				Name:         fmt.Sprintf("%s/%s", correlationLabel(c, i), target),
				Target:       target,
				Conditioning: condition.fields(),
				Adjust: func(base sampling.Spec, cond map[string]sampling.Value) (sampling.Spec, error) {
					if !condition.matches(cond) {
						return base, nil
					}
					return sampling.SetCategoryWeights(overrides)(base, cond)
				},
			}
			if err := rules.Register(rule); err != nil {
				return nil, err
			}
		}
	}

	constraints := sampling.NewConstraints()
	if s.SoftCombine != "" {
		if err := constraints.SetSoftCombine(sampling.SoftCombine(s.SoftCombine)); err != nil {
			return nil, err
		}
	}
	for i, ct := range s.Constraints {
		compiled, err := compileConstraint(ct, i)
		if err != nil {
			return nil, err
		}
		if err := constraints.Register(compiled); err != nil {
			return nil, err
		}
	}

	return &Engine{Variables: variables, Rules: rules, Constraints: constraints}, nil
}

func compileDistribution(d Distribution) (sampling.Spec, error) {
	switch d.Type {
	case TypeCategorical:
		labels := sortedKeys(d.Weights)
		categories := make([]sampling.Category, 0, len(labels))
		for _, label := range labels {
			categories = append(categories, sampling.Category{Label: label, Weight: d.Weights[label]})
		}
		return sampling.Categorical(categories...), nil
	case TypeWeightedRange:
		intervals := make([]sampling.Interval, 0, len(d.Ranges))
		for _, r := range d.Ranges {
			intervals = append(intervals, sampling.Interval{Lo: r.Range[0], Hi: r.Range[1], Weight: r.Weight})
		}
		sort.Slice(intervals, func(i, j int) bool { return intervals[i].Lo < intervals[j].Lo })
		return sampling.WeightedRange(intervals...), nil
	case TypeUniform:
		return sampling.Uniform(d.Range[0], d.Range[1]), nil
	default:
		return sampling.Spec{}, fmt.Errorf("unknown distribution type %q", d.Type)
	}
}

func compileConstraint(ct ConstraintSpec, i int) (sampling.Constraint, error) {
	target := ct.Target
	if target == "" {
		target = "procedures"
	}
	name := ct.Name
	if name == "" {
		name = fmt.Sprintf("%s_%d", ct.Rule, i)
	}
	var allows sampling.Predicate
	switch ct.Rule {
	case RuleRequireGender:
		procedure, gender := ct.Procedure, ct.Gender
		allows = func(candidate sampling.Value, ctx *sampling.Context) bool {
			if candidate.Kind != sampling.ValueLabel || candidate.Label != procedure {
				return true
			}
			g, ok := ctx.Value("gender")
			if !ok {
				// Gender not sampled for this record: nothing to enforce.
				return true
			}
			return g.Label == gender
		}
	case RuleRequireAgeRange:
		procedure, minAge, maxAge := ct.Procedure, ct.MinAge, ct.MaxAge
		allows = func(candidate sampling.Value, ctx *sampling.Context) bool {
			if candidate.Kind != sampling.ValueLabel || candidate.Label != procedure {
				return true
			}
			age, ok := ctx.Value("age")
			if !ok {
				return true
			}
			return age.Number >= minAge && age.Number <= maxAge
		}
	default:
		return sampling.Constraint{}, fmt.Errorf("unknown constraint rule %q", ct.Rule)
	}

	kind := sampling.Hard
	if ct.Type == "soft" {
		kind = sampling.Soft
	}
	return sampling.Constraint{
		Name:       name,
		Kind:       kind,
		Target:     target,
		Allows:     allows,
		Multiplier: ct.Multiplier,
	}, nil
}

// matches evaluates a condition tree against the conditioning values passed
// to a rule. Absent fields fail their leaf, mirroring the source semantics.
func (c Condition) matches(values map[string]sampling.Value) bool {
	if len(c.All) > 0 {
		for _, sub := range c.All {
			if !sub.matches(values) {
				return false
			}
		}
		return true
	}
	if len(c.Any) > 0 {
		for _, sub := range c.Any {
			if sub.matches(values) {
				return true
			}
		}
		return false
	}
	v, ok := values[c.Field]
	if !ok {
		return false
	}
	if c.Value != nil {
		return valueEquals(v, c.Value)
	}
	if len(c.Range) == 2 {
		return v.Kind == sampling.ValueNumber && v.Number >= c.Range[0] && v.Number <= c.Range[1]
	}
	return false
}

func valueEquals(v sampling.Value, want any) bool {
	switch w := want.(type) {
	case string:
		return v.Kind == sampling.ValueLabel && v.Label == w
	case int:
		return v.Kind == sampling.ValueNumber && v.Number == float64(w)
	case int64:
		return v.Kind == sampling.ValueNumber && v.Number == float64(w)
	case float64:
		return v.Kind == sampling.ValueNumber && v.Number == w
	default:
		return false
	}
}

func sortedKeys[M map[string]V, V any](m M) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
