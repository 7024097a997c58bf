package sampling

import "fmt"

// AdjustFunc rewrites a distribution given the values of the rule's
// conditioning variables. It must preserve the variant kind of the base spec
// and must not produce negative weights; both are checked after every
// application.
type AdjustFunc func(base Spec, conditioning map[string]Value) (Spec, error)

// Rule conditions the distribution of Target on previously sampled values of
// the Conditioning variables.
type Rule struct {
	Name         string
	Target       string
	Conditioning []string
	Adjust       AdjustFunc
}

// Rules holds correlation rules keyed by target variable in declaration
// order. The collection is built once at setup and never mutated during a
// batch.
type Rules struct {
	byTarget map[string][]Rule
}

// NewRules returns an empty rule collection.
func NewRules() *Rules {
	return &Rules{byTarget: make(map[string][]Rule)}
}

// Register appends a rule. Rules registered earlier take effect first: later
// rules adjust the output of earlier ones, not the original base.
func (r *Rules) Register(rule Rule) error {
	if rule.Target == "" {
		return fmt.Errorf("register rule %q: empty target", rule.Name)
	}
	if rule.Adjust == nil {
		return fmt.Errorf("register rule %q: nil adjust function", rule.Name)
	}
	if len(rule.Conditioning) == 0 {
		return fmt.Errorf("register rule %q: no conditioning variables", rule.Name)
	}
	for _, dep := range rule.Conditioning {
		if dep == rule.Target {
			return fmt.Errorf("register rule %q: target %q conditions on itself", rule.Name, rule.Target)
		}
	}
	r.byTarget[rule.Target] = append(r.byTarget[rule.Target], rule)
	return nil
}

// Conditioning returns the union of conditioning variables across all rules
// targeting the given variable, in first-seen order. The sampler uses it to
// build the dependency graph.
func (r *Rules) Conditioning(variable string) []string {
	var deps []string
	seen := make(map[string]struct{})
	for _, rule := range r.byTarget[variable] {
		for _, dep := range rule.Conditioning {
			if _, ok := seen[dep]; ok {
				continue
			}
			seen[dep] = struct{}{}
			deps = append(deps, dep)
		}
	}
	return deps
}

// Apply composes every applicable rule for the variable over the base spec in
// declaration order and returns the adjusted spec. A rule whose conditioning
// variables are not all present in the context is skipped; it never fails the
// record. With no applicable rule the base is returned unchanged.
func (r *Rules) Apply(variable string, base Spec, ctx *Context) (Spec, error) {
	result := base
	for _, rule := range r.byTarget[variable] {
		conditioning, ok := gatherConditioning(rule, ctx)
		if !ok {
			continue
		}
		adjusted, err := rule.Adjust(result.Clone(), conditioning)
		if err != nil {
			return Spec{}, fmt.Errorf("correlation rule %q on %q: %w", rule.Name, variable, err)
		}
		if adjusted.Kind != result.Kind {
			return Spec{}, invalidDistribution("correlation rule %q changed kind of %q from %q to %q",
				rule.Name, variable, string(result.Kind), string(adjusted.Kind))
		}
		if err := checkNonNegative(adjusted); err != nil {
			return Spec{}, fmt.Errorf("correlation rule %q on %q: %w", rule.Name, variable, err)
		}
		result = adjusted
	}
	return result, nil
}

func gatherConditioning(rule Rule, ctx *Context) (map[string]Value, bool) {
	conditioning := make(map[string]Value, len(rule.Conditioning))
	for _, dep := range rule.Conditioning {
		v, ok := ctx.Value(dep)
		if !ok {
			return nil, false
		}
		conditioning[dep] = v
	}
	return conditioning, true
}

func checkNonNegative(spec Spec) error {
	for _, c := range spec.Categories {
		if c.Weight < 0 {
			return invalidDistribution("negative weight %v for %q", c.Weight, c.Label)
		}
	}
	for _, iv := range spec.Intervals {
		if iv.Weight < 0 {
			return invalidDistribution("negative weight %v for interval [%v, %v)", iv.Weight, iv.Lo, iv.Hi)
		}
	}
	return nil
}

// ScaleCategories returns an AdjustFunc that multiplies the weights of the
// given labels by the given factors, leaving other categories untouched. It
// is the common shape for declarative weight-adjustment correlations.
func ScaleCategories(factors map[string]float64) AdjustFunc {
	return func(base Spec, _ map[string]Value) (Spec, error) {
		if base.Kind != KindCategorical {
			return Spec{}, invalidDistribution("category scaling applied to %q spec", string(base.Kind))
		}
		for i, c := range base.Categories {
			if factor, ok := factors[c.Label]; ok {
				base.Categories[i].Weight = c.Weight * factor
			}
		}
		return base, nil
	}
}

// SetCategoryWeights returns an AdjustFunc that overwrites the weights of the
// given labels, leaving other categories untouched.
func SetCategoryWeights(weights map[string]float64) AdjustFunc {
	return func(base Spec, _ map[string]Value) (Spec, error) {
		if base.Kind != KindCategorical {
			return Spec{}, invalidDistribution("category override applied to %q spec", string(base.Kind))
		}
		for i, c := range base.Categories {
			if w, ok := weights[c.Label]; ok {
				base.Categories[i].Weight = w
			}
		}
		return base, nil
	}
}
