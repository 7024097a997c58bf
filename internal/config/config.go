// Package config loads and validates declarative generation scenarios and
// compiles them into the engine's distribution, correlation, and constraint
// objects. Schema validation and type coercion happen here, before anything
// reaches the sampling engine.
package config

import (
	"fmt"
	"sort"
)

// Distribution kinds accepted in scenario files.
const (
	TypeCategorical   = "categorical"
	TypeWeightedRange = "weighted_ranges"
	TypeUniform       = "uniform"
)

// Constraint rule identifiers accepted in scenario files.
const (
	RuleRequireGender   = "if_procedure_then_gender"
	RuleRequireAgeRange = "if_procedure_then_age_range"
)

// Scenario is the root of a generation scenario file.
type Scenario struct {
	Distributions []Distribution   `yaml:"distributions" json:"distributions"`
	Correlations  []Correlation    `yaml:"correlations" json:"correlations"`
	Constraints   []ConstraintSpec `yaml:"constraints" json:"constraints"`
	SoftCombine   string           `yaml:"soft_combine" json:"soft_combine"`
}

// Distribution declares one named variable and its base distribution.
type Distribution struct {
	Name    string             `yaml:"name" json:"name"`
	Type    string             `yaml:"type" json:"type"`
	Weights map[string]float64 `yaml:"weights" json:"weights"`
	Ranges  []RangeSpec        `yaml:"ranges" json:"ranges"`
	Range   []float64          `yaml:"range" json:"range"`
}

// RangeSpec is one weighted interval, written as range: [lo, hi].
type RangeSpec struct {
	Range  []float64 `yaml:"range" json:"range"`
	Weight float64   `yaml:"weight" json:"weight"`
}

// Condition gates a correlation. Leaf conditions name a field and either an
// exact value or an inclusive numeric range; All and Any nest conditions with
// AND / OR logic.
type Condition struct {
	Field string      `yaml:"field" json:"field"`
	Value any         `yaml:"value" json:"value"`
	Range []float64   `yaml:"range" json:"range"`
	All   []Condition `yaml:"all" json:"all"`
	Any   []Condition `yaml:"any" json:"any"`
}

// Correlation rewrites target distribution weights when its condition holds.
// Adjustments map a distribution name to label weight overrides.
type Correlation struct {
	Name        string                        `yaml:"name" json:"name"`
	Condition   Condition                     `yaml:"condition" json:"condition"`
	Adjustments map[string]map[string]float64 `yaml:"adjustments" json:"adjustments"`
}

// ConstraintSpec declares one hard or soft business rule.
type ConstraintSpec struct {
	Name       string  `yaml:"name" json:"name"`
	Type       string  `yaml:"type" json:"type"`
	Rule       string  `yaml:"rule" json:"rule"`
	Target     string  `yaml:"target" json:"target"`
	Procedure  string  `yaml:"procedure" json:"procedure"`
	Gender     string  `yaml:"required_gender" json:"required_gender"`
	MinAge     float64 `yaml:"min_age" json:"min_age"`
	MaxAge     float64 `yaml:"max_age" json:"max_age"`
	Multiplier float64 `yaml:"multiplier" json:"multiplier"`
}

// Validate checks the scenario schema before compilation: known types and
// rules, well-formed weights and ranges, and resolvable references.
func (s *Scenario) Validate() error {
	if len(s.Distributions) == 0 {
		return fmt.Errorf("scenario declares no distributions")
	}
	names := make(map[string]struct{}, len(s.Distributions))
	for _, d := range s.Distributions {
		if d.Name == "" {
			return fmt.Errorf("distribution with empty name")
		}
		if _, dup := names[d.Name]; dup {
			return fmt.Errorf("distribution %q declared twice", d.Name)
		}
		names[d.Name] = struct{}{}
		if err := d.validate(); err != nil {
			return fmt.Errorf("distribution %q: %w", d.Name, err)
		}
	}
	for i, c := range s.Correlations {
		if len(c.Adjustments) == 0 {
			return fmt.Errorf("correlation %s has no adjustments", correlationLabel(c, i))
		}
		for target, overrides := range c.Adjustments {
			if _, ok := names[target]; !ok {
				return fmt.Errorf("correlation %s adjusts unknown distribution %q", correlationLabel(c, i), target)
			}
			for label, w := range overrides {
				if w < 0 {
					return fmt.Errorf("correlation %s sets negative weight %v for %q", correlationLabel(c, i), w, label)
				}
			}
		}
		if err := c.Condition.validate(); err != nil {
			return fmt.Errorf("correlation %s: %w", correlationLabel(c, i), err)
		}
	}
	for i, ct := range s.Constraints {
		if err := ct.validate(); err != nil {
			return fmt.Errorf("constraint %d (%s): %w", i, ct.Rule, err)
		}
	}
	return nil
}

func correlationLabel(c Correlation, i int) string {
	if c.Name != "" {
		return fmt.Sprintf("%q", c.Name)
	}
	return fmt.Sprintf("%d", i)
}

func (d Distribution) validate() error {
	switch d.Type {
	case TypeCategorical:
		if len(d.Weights) == 0 {
			return fmt.Errorf("categorical distribution requires weights")
		}
		for label, w := range d.Weights {
			if w < 0 {
				return fmt.Errorf("weight for %q must be non-negative, got %v", label, w)
			}
		}
	case TypeUniform:
		if len(d.Range) != 2 {
			return fmt.Errorf("uniform distribution requires range [min, max], got %v", d.Range)
		}
		if d.Range[0] >= d.Range[1] {
			return fmt.Errorf("uniform range min (%v) must be < max (%v)", d.Range[0], d.Range[1])
		}
	case TypeWeightedRange:
		if len(d.Ranges) == 0 {
			return fmt.Errorf("weighted ranges distribution requires ranges")
		}
		for _, r := range d.Ranges {
			if len(r.Range) != 2 {
				return fmt.Errorf("range must be [min, max], got %v", r.Range)
			}
			if r.Range[0] > r.Range[1] {
				return fmt.Errorf("range min (%v) must be <= max (%v)", r.Range[0], r.Range[1])
			}
			if r.Weight <= 0 {
				return fmt.Errorf("range weight must be positive, got %v", r.Weight)
			}
		}
	default:
		return fmt.Errorf("unknown distribution type %q", d.Type)
	}
	return nil
}

func (c Condition) validate() error {
	if len(c.All) > 0 {
		for _, sub := range c.All {
			if err := sub.validate(); err != nil {
				return err
			}
		}
		return nil
	}
	if len(c.Any) > 0 {
		for _, sub := range c.Any {
			if err := sub.validate(); err != nil {
				return err
			}
		}
		return nil
	}
	if c.Field == "" {
		return fmt.Errorf("condition requires a field, or an all/any group")
	}
	if c.Value == nil && len(c.Range) == 0 {
		return fmt.Errorf("condition on %q requires a value or a range", c.Field)
	}
	if len(c.Range) != 0 && len(c.Range) != 2 {
		return fmt.Errorf("condition range must be [min, max], got %v", c.Range)
	}
	return nil
}

func (ct ConstraintSpec) validate() error {
	switch ct.Type {
	case "hard":
	case "soft":
		if ct.Multiplier <= 0 || ct.Multiplier > 1 {
			return fmt.Errorf("soft constraint multiplier %v outside (0, 1]", ct.Multiplier)
		}
	default:
		return fmt.Errorf("constraint type must be hard or soft, got %q", ct.Type)
	}
	switch ct.Rule {
	case RuleRequireGender:
		if ct.Procedure == "" || ct.Gender == "" {
			return fmt.Errorf("%s requires procedure and required_gender", ct.Rule)
		}
	case RuleRequireAgeRange:
		if ct.Procedure == "" {
			return fmt.Errorf("%s requires procedure", ct.Rule)
		}
		if ct.MinAge > ct.MaxAge {
			return fmt.Errorf("%s min_age %v above max_age %v", ct.Rule, ct.MinAge, ct.MaxAge)
		}
	default:
		return fmt.Errorf("unknown constraint rule %q", ct.Rule)
	}
	return nil
}

// fields lists the leaf fields referenced by a condition tree, sorted and
// deduplicated; they become the conditioning variables of the compiled rule.
func (c Condition) fields() []string {
	set := make(map[string]struct{})
	c.collectFields(set)
	out := make([]string, 0, len(set))
	for f := range set {
		out = append(out, f)
	}
	sort.Strings(out)
	return out
}

func (c Condition) collectFields(set map[string]struct{}) {
	if c.Field != "" {
		set[c.Field] = struct{}{}
	}
	for _, sub := range c.All {
		sub.collectFields(set)
	}
	for _, sub := range c.Any {
		sub.collectFields(set)
	}
}
