package sampling

import (
	"errors"
	"math"
	"testing"
)

func procedureSpec() Spec {
	return Categorical(
		Category{Label: "chest_xray", Weight: 0.5},
		Category{Label: "obstetric_ultrasound", Weight: 0.3},
		Category{Label: "bone_density", Weight: 0.2},
	)
}

// requireGenderFor allows the named procedure only when the context's gender
// matches; every other candidate always conforms.
func requireGenderFor(procedure, gender string) Predicate {
	return func(candidate Value, ctx *Context) bool {
		if candidate.Label != procedure {
			return true
		}
		g, ok := ctx.Value("gender")
		return ok && g.Label == gender
	}
}

func TestHardConstraintNeverViolated(t *testing.T) {
	constraints := NewConstraints()
	if err := constraints.Register(Constraint{
		Name:   "obstetric_requires_female",
		Kind:   Hard,
		Target: "procedure",
		Allows: requireGenderFor("obstetric_ultrasound", "F"),
	}); err != nil {
		t.Fatalf("register: %v", err)
	}
	ctx := NewContext(NewAggregate())
	ctx.set("gender", LabelValue("M"))

	src := NewSource(99)
	for i := 0; i < 100000; i++ {
		spec, err := constraints.Apply("procedure", procedureSpec(), ctx)
		if err != nil {
			t.Fatalf("apply: %v", err)
		}
		v, err := Sample(src, spec)
		if err != nil {
			t.Fatalf("sample: %v", err)
		}
		if v.Label == "obstetric_ultrasound" {
			t.Fatalf("draw %d produced a hard-forbidden value", i)
		}
	}
}

func TestSoftConstraintReducesWithoutEliminating(t *testing.T) {
	constraints := NewConstraints()
	if err := constraints.Register(Constraint{
		Name:       "discourage_bone_density",
		Kind:       Soft,
		Target:     "procedure",
		Allows:     func(candidate Value, _ *Context) bool { return candidate.Label != "bone_density" },
		Multiplier: 0.25,
	}); err != nil {
		t.Fatalf("register: %v", err)
	}
	ctx := NewContext(NewAggregate())
	spec, err := constraints.Apply("procedure", procedureSpec(), ctx)
	if err != nil {
		t.Fatalf("apply: %v", err)
	}

	const n = 50000
	src := NewSource(5)
	count := 0
	for i := 0; i < n; i++ {
		v, err := Sample(src, spec)
		if err != nil {
			t.Fatalf("sample: %v", err)
		}
		if v.Label == "bone_density" {
			count++
		}
	}
	freq := float64(count) / n
	// Unconstrained frequency is 0.2; with weight 0.05 of mass 0.85 the
	// expected frequency is about 0.059.
	if freq >= 0.2 {
		t.Fatalf("soft-discouraged frequency %v not below unconstrained 0.2", freq)
	}
	if count == 0 {
		t.Fatalf("soft constraint fully eliminated the candidate")
	}
	if math.Abs(freq-0.05/0.85) > 0.02 {
		t.Fatalf("soft-discouraged frequency %v far from expected %v", freq, 0.05/0.85)
	}
}

func TestSoftConstraintNeverAmplifies(t *testing.T) {
	constraints := NewConstraints()
	err := constraints.Register(Constraint{
		Name:       "bad_multiplier",
		Kind:       Soft,
		Target:     "procedure",
		Allows:     func(Value, *Context) bool { return true },
		Multiplier: 1.5,
	})
	if err == nil {
		t.Fatalf("expected register error for multiplier above 1")
	}
	if err := constraints.Register(Constraint{
		Name:       "zero_multiplier",
		Kind:       Soft,
		Target:     "procedure",
		Allows:     func(Value, *Context) bool { return true },
		Multiplier: 0,
	}); err == nil {
		t.Fatalf("expected register error for zero multiplier")
	}
}

func TestHardConflictRaisesConstraintConflict(t *testing.T) {
	constraints := NewConstraints()
	if err := constraints.Register(Constraint{
		Name:   "reject_everything",
		Kind:   Hard,
		Target: "procedure",
		Allows: func(Value, *Context) bool { return false },
	}); err != nil {
		t.Fatalf("register: %v", err)
	}
	ctx := NewContext(NewAggregate())
	ctx.set("gender", LabelValue("M"))
	_, err := constraints.Apply("procedure", procedureSpec(), ctx)
	var conflict *ConstraintConflictError
	if !errors.As(err, &conflict) {
		t.Fatalf("expected ConstraintConflictError, got %v", err)
	}
	if conflict.Variable != "procedure" {
		t.Fatalf("conflict variable = %q, want procedure", conflict.Variable)
	}
	if got, ok := conflict.Context["gender"]; !ok || got.Label != "M" {
		t.Fatalf("conflict context missing gender snapshot: %+v", conflict.Context)
	}
}

func TestSoftMultipliersCombineMultiplicatively(t *testing.T) {
	constraints := NewConstraints()
	discourageA := func(candidate Value, _ *Context) bool { return candidate.Label != "A" }
	for _, m := range []float64{0.5, 0.4} {
		if err := constraints.Register(Constraint{
			Name: "soft", Kind: Soft, Target: "v", Allows: discourageA, Multiplier: m,
		}); err != nil {
			t.Fatalf("register: %v", err)
		}
	}
	base := Categorical(Category{Label: "A", Weight: 1}, Category{Label: "B", Weight: 1})
	spec, err := constraints.Apply("v", base, NewContext(NewAggregate()))
	if err != nil {
		t.Fatalf("apply: %v", err)
	}
	// A ends at 1*0.5*0.4 = 0.2 against B at 1, normalized 0.2/1.2.
	if math.Abs(spec.Categories[0].Weight-0.2/1.2) > normTolerance {
		t.Fatalf("A weight = %v, want %v", spec.Categories[0].Weight, 0.2/1.2)
	}
}

func TestSoftMultipliersCombineMin(t *testing.T) {
	constraints := NewConstraints()
	if err := constraints.SetSoftCombine(CombineMin); err != nil {
		t.Fatalf("set combine: %v", err)
	}
	discourageA := func(candidate Value, _ *Context) bool { return candidate.Label != "A" }
	for _, m := range []float64{0.5, 0.4} {
		if err := constraints.Register(Constraint{
			Name: "soft", Kind: Soft, Target: "v", Allows: discourageA, Multiplier: m,
		}); err != nil {
			t.Fatalf("register: %v", err)
		}
	}
	base := Categorical(Category{Label: "A", Weight: 1}, Category{Label: "B", Weight: 1})
	spec, err := constraints.Apply("v", base, NewContext(NewAggregate()))
	if err != nil {
		t.Fatalf("apply: %v", err)
	}
	// Min mode applies only the smallest factor: A at 0.4 against B at 1.
	if math.Abs(spec.Categories[0].Weight-0.4/1.4) > normTolerance {
		t.Fatalf("A weight = %v, want %v", spec.Categories[0].Weight, 0.4/1.4)
	}
	if err := constraints.SetSoftCombine(SoftCombine("average")); err == nil {
		t.Fatalf("expected error for unknown combine mode")
	}
}

func TestConstraintsOnWeightedRangeIntervals(t *testing.T) {
	constraints := NewConstraints()
	if err := constraints.Register(Constraint{
		Name:   "adults_only",
		Kind:   Hard,
		Target: "age",
		Allows: func(candidate Value, _ *Context) bool { return candidate.Number >= 18 },
	}); err != nil {
		t.Fatalf("register: %v", err)
	}
	base := WeightedRange(
		Interval{Lo: 0, Hi: 17, Weight: 1},
		Interval{Lo: 18, Hi: 90, Weight: 1},
	)
	spec, err := constraints.Apply("age", base, NewContext(NewAggregate()))
	if err != nil {
		t.Fatalf("apply: %v", err)
	}
	if spec.Intervals[0].Weight != 0 {
		t.Fatalf("minor interval retained weight %v", spec.Intervals[0].Weight)
	}
	src := NewSource(21)
	for i := 0; i < 10000; i++ {
		v, err := Sample(src, spec)
		if err != nil {
			t.Fatalf("sample: %v", err)
		}
		if v.Number < 18 {
			t.Fatalf("sampled forbidden minor age %v", v.Number)
		}
	}
}

func TestConstraintsSkipUniformSpecs(t *testing.T) {
	constraints := NewConstraints()
	if err := constraints.Register(Constraint{
		Name:   "noop",
		Kind:   Hard,
		Target: "v",
		Allows: func(Value, *Context) bool { return false },
	}); err != nil {
		t.Fatalf("register: %v", err)
	}
	spec, err := constraints.Apply("v", Uniform(0, 1), NewContext(NewAggregate()))
	if err != nil {
		t.Fatalf("apply: %v", err)
	}
	if spec.Kind != KindUniform {
		t.Fatalf("uniform spec was rewritten to %q", string(spec.Kind))
	}
}

func TestConstraintsNoConstraintReturnsSpecUnchanged(t *testing.T) {
	constraints := NewConstraints()
	base := procedureSpec()
	spec, err := constraints.Apply("procedure", base, NewContext(NewAggregate()))
	if err != nil {
		t.Fatalf("apply: %v", err)
	}
	if spec.Categories[0] != base.Categories[0] {
		t.Fatalf("constraint-free apply altered the spec")
	}
}
