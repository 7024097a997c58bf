package sampling

import (
	"errors"
	"testing"
)

func baseGenderSpec() Spec {
	return Categorical(
		Category{Label: "M", Weight: 0.5},
		Category{Label: "F", Weight: 0.5},
	)
}

func TestRulesApplySkipsAbsentConditioning(t *testing.T) {
	rules := NewRules()
	err := rules.Register(Rule{
		Name:         "gender_by_region",
		Target:       "gender",
		Conditioning: []string{"region"},
		Adjust:       SetCategoryWeights(map[string]float64{"M": 1, "F": 0}),
	})
	if err != nil {
		t.Fatalf("register: %v", err)
	}
	base := baseGenderSpec()
	ctx := NewContext(NewAggregate())
	adjusted, err := rules.Apply("gender", base, ctx)
	if err != nil {
		t.Fatalf("apply: %v", err)
	}
	// region was never sampled: the base distribution must be unchanged.
	for i, c := range adjusted.Categories {
		if c != base.Categories[i] {
			t.Fatalf("rule with absent conditioning altered the base: %+v", adjusted.Categories)
		}
	}
}

func TestRulesApplyNoRuleReturnsBase(t *testing.T) {
	rules := NewRules()
	base := baseGenderSpec()
	adjusted, err := rules.Apply("gender", base, NewContext(NewAggregate()))
	if err != nil {
		t.Fatalf("apply: %v", err)
	}
	if adjusted.Categories[0] != base.Categories[0] {
		t.Fatalf("apply without rules altered the base")
	}
}

func TestRulesComposeInDeclarationOrder(t *testing.T) {
	// The second rule must see the output of the first, not the base.
	rules := NewRules()
	if err := rules.Register(Rule{
		Name:         "double_b",
		Target:       "v",
		Conditioning: []string{"cond"},
		Adjust:       ScaleCategories(map[string]float64{"B": 2}),
	}); err != nil {
		t.Fatalf("register: %v", err)
	}
	if err := rules.Register(Rule{
		Name:         "triple_b",
		Target:       "v",
		Conditioning: []string{"cond"},
		Adjust:       ScaleCategories(map[string]float64{"B": 3}),
	}); err != nil {
		t.Fatalf("register: %v", err)
	}
	ctx := NewContext(NewAggregate())
	ctx.set("cond", LabelValue("yes"))
	base := Categorical(Category{Label: "A", Weight: 1}, Category{Label: "B", Weight: 1})
	adjusted, err := rules.Apply("v", base, ctx)
	if err != nil {
		t.Fatalf("apply: %v", err)
	}
	if adjusted.Categories[1].Weight != 6 {
		t.Fatalf("composed weight = %v, want 6 (2x then 3x)", adjusted.Categories[1].Weight)
	}
}

func TestRulesApplyDoesNotMutateBase(t *testing.T) {
	rules := NewRules()
	if err := rules.Register(Rule{
		Name:         "boost",
		Target:       "v",
		Conditioning: []string{"cond"},
		Adjust:       ScaleCategories(map[string]float64{"A": 10}),
	}); err != nil {
		t.Fatalf("register: %v", err)
	}
	ctx := NewContext(NewAggregate())
	ctx.set("cond", LabelValue("yes"))
	base := Categorical(Category{Label: "A", Weight: 1})
	if _, err := rules.Apply("v", base, ctx); err != nil {
		t.Fatalf("apply: %v", err)
	}
	if base.Categories[0].Weight != 1 {
		t.Fatalf("apply mutated the registered base spec")
	}
}

func TestRulesApplyRejectsKindChange(t *testing.T) {
	rules := NewRules()
	if err := rules.Register(Rule{
		Name:         "kind_change",
		Target:       "v",
		Conditioning: []string{"cond"},
		Adjust: func(base Spec, _ map[string]Value) (Spec, error) {
			return Uniform(0, 1), nil
		},
	}); err != nil {
		t.Fatalf("register: %v", err)
	}
	ctx := NewContext(NewAggregate())
	ctx.set("cond", LabelValue("yes"))
	_, err := rules.Apply("v", baseGenderSpec(), ctx)
	var invalid *InvalidDistributionError
	if !errors.As(err, &invalid) {
		t.Fatalf("expected InvalidDistributionError for kind change, got %v", err)
	}
}

func TestRulesApplyRejectsNegativeWeights(t *testing.T) {
	rules := NewRules()
	if err := rules.Register(Rule{
		Name:         "negative",
		Target:       "v",
		Conditioning: []string{"cond"},
		Adjust: func(base Spec, _ map[string]Value) (Spec, error) {
			base.Categories[0].Weight = -1
			return base, nil
		},
	}); err != nil {
		t.Fatalf("register: %v", err)
	}
	ctx := NewContext(NewAggregate())
	ctx.set("cond", LabelValue("yes"))
	if _, err := rules.Apply("v", baseGenderSpec(), ctx); err == nil {
		t.Fatalf("expected error for negative adjusted weight")
	}
}

func TestRulesRegisterValidation(t *testing.T) {
	rules := NewRules()
	adjust := ScaleCategories(nil)
	cases := []struct {
		name string
		rule Rule
	}{
		{"empty target", Rule{Conditioning: []string{"x"}, Adjust: adjust}},
		{"nil adjust", Rule{Target: "v", Conditioning: []string{"x"}}},
		{"no conditioning", Rule{Target: "v", Adjust: adjust}},
		{"self conditioning", Rule{Target: "v", Conditioning: []string{"v"}, Adjust: adjust}},
	}
	for _, tc := range cases {
		if err := rules.Register(tc.rule); err == nil {
			t.Fatalf("expected register error for %s", tc.name)
		}
	}
}

func TestRulesConditioningUnion(t *testing.T) {
	rules := NewRules()
	adjust := ScaleCategories(nil)
	_ = rules.Register(Rule{Name: "r1", Target: "v", Conditioning: []string{"a", "b"}, Adjust: adjust})
	_ = rules.Register(Rule{Name: "r2", Target: "v", Conditioning: []string{"b", "c"}, Adjust: adjust})
	deps := rules.Conditioning("v")
	want := []string{"a", "b", "c"}
	if len(deps) != len(want) {
		t.Fatalf("conditioning = %v, want %v", deps, want)
	}
	for i, dep := range want {
		if deps[i] != dep {
			t.Fatalf("conditioning = %v, want %v", deps, want)
		}
	}
}
