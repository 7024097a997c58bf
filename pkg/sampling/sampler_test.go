package sampling

import (
	"errors"
	"testing"
)

func patientVariables() []VariableSpec {
	return []VariableSpec{
		{Name: "gender", Spec: Categorical(
			Category{Label: "M", Weight: 0.49},
			Category{Label: "F", Weight: 0.51},
		)},
		{Name: "age", Spec: WeightedRange(
			Interval{Lo: 0, Hi: 18, Weight: 1},
			Interval{Lo: 18, Hi: 65, Weight: 3},
			Interval{Lo: 65, Hi: 95, Weight: 1},
		)},
		{Name: "procedure", Spec: Categorical(
			Category{Label: "chest_xray", Weight: 0.5},
			Category{Label: "obstetric_ultrasound", Weight: 0.3},
			Category{Label: "bone_density", Weight: 0.2},
		)},
	}
}

func procedureRules(t *testing.T) *Rules {
	t.Helper()
	rules := NewRules()
	if err := rules.Register(Rule{
		Name:         "procedures_by_gender",
		Target:       "procedure",
		Conditioning: []string{"gender"},
		Adjust: func(base Spec, cond map[string]Value) (Spec, error) {
			if cond["gender"].Label == "F" {
				return ScaleCategories(map[string]float64{"obstetric_ultrasound": 1.5})(base, cond)
			}
			return base, nil
		},
	}); err != nil {
		t.Fatalf("register rule: %v", err)
	}
	return rules
}

func procedureConstraints(t *testing.T) *Constraints {
	t.Helper()
	constraints := NewConstraints()
	if err := constraints.Register(Constraint{
		Name:   "obstetric_requires_female",
		Kind:   Hard,
		Target: "procedure",
		Allows: requireGenderFor("obstetric_ultrasound", "F"),
	}); err != nil {
		t.Fatalf("register constraint: %v", err)
	}
	return constraints
}

func drainRecords(t *testing.T, seq *RecordSeq) []Record {
	t.Helper()
	var out []Record
	for seq.Next() {
		out = append(out, seq.Record())
	}
	if err := seq.Err(); err != nil {
		t.Fatalf("sequence failed: %v", err)
	}
	return out
}

func TestSamplerOrderFollowsConditioning(t *testing.T) {
	sampler, err := NewSampler(patientVariables(), procedureRules(t), nil)
	if err != nil {
		t.Fatalf("new sampler: %v", err)
	}
	order := sampler.Order()
	genderAt, procedureAt := -1, -1
	for i, name := range order {
		switch name {
		case "gender":
			genderAt = i
		case "procedure":
			procedureAt = i
		}
	}
	if genderAt < 0 || procedureAt < 0 || genderAt > procedureAt {
		t.Fatalf("order %v does not sample gender before procedure", order)
	}
}

func TestSamplerDetectsCorrelationCycle(t *testing.T) {
	rules := NewRules()
	adjust := ScaleCategories(nil)
	if err := rules.Register(Rule{Name: "a_on_b", Target: "a", Conditioning: []string{"b"}, Adjust: adjust}); err != nil {
		t.Fatalf("register: %v", err)
	}
	if err := rules.Register(Rule{Name: "b_on_a", Target: "b", Conditioning: []string{"a"}, Adjust: adjust}); err != nil {
		t.Fatalf("register: %v", err)
	}
	variables := []VariableSpec{
		{Name: "a", Spec: Categorical(Category{Label: "x", Weight: 1})},
		{Name: "b", Spec: Categorical(Category{Label: "y", Weight: 1})},
	}
	_, err := NewSampler(variables, rules, nil)
	var cycle *CorrelationCycleError
	if !errors.As(err, &cycle) {
		t.Fatalf("expected CorrelationCycleError at setup, got %v", err)
	}
	if len(cycle.Variables) != 2 {
		t.Fatalf("cycle variables = %v, want both a and b", cycle.Variables)
	}
}

func TestSamplerRejectsInvalidBaseSpec(t *testing.T) {
	variables := []VariableSpec{{Name: "v", Spec: Categorical(Category{Label: "x", Weight: 0})}}
	if _, err := NewSampler(variables, nil, nil); err == nil {
		t.Fatalf("expected setup error for zero-mass base spec")
	}
}

func TestSamplerHardConstraintHoldsAcrossBatch(t *testing.T) {
	sampler, err := NewSampler(patientVariables(), procedureRules(t), procedureConstraints(t))
	if err != nil {
		t.Fatalf("new sampler: %v", err)
	}
	records := drainRecords(t, sampler.Generate(NewSource(42), 20000))
	if len(records) != 20000 {
		t.Fatalf("got %d records, want 20000", len(records))
	}
	for i, rec := range records {
		if rec["gender"].Label == "M" && rec["procedure"].Label == "obstetric_ultrasound" {
			t.Fatalf("record %d violates hard gender constraint: %v", i, rec)
		}
	}
}

func TestSamplerDeterministicWithSameSeed(t *testing.T) {
	build := func() *Sampler {
		sampler, err := NewSampler(patientVariables(), procedureRules(t), procedureConstraints(t))
		if err != nil {
			t.Fatalf("new sampler: %v", err)
		}
		return sampler
	}
	first := drainRecords(t, build().Generate(NewSource(42), 2000))
	second := drainRecords(t, build().Generate(NewSource(42), 2000))
	if len(first) != len(second) {
		t.Fatalf("run lengths differ: %d vs %d", len(first), len(second))
	}
	for i := range first {
		for name, v := range first[i] {
			if !second[i][name].Equal(v) {
				t.Fatalf("record %d variable %s differs: %v vs %v", i, name, v, second[i][name])
			}
		}
	}
}

func TestSamplerDifferentSeedsDiverge(t *testing.T) {
	sampler, err := NewSampler(patientVariables(), nil, nil)
	if err != nil {
		t.Fatalf("new sampler: %v", err)
	}
	first := drainRecords(t, sampler.Generate(NewSource(1), 200))
	sampler2, err := NewSampler(patientVariables(), nil, nil)
	if err != nil {
		t.Fatalf("new sampler: %v", err)
	}
	second := drainRecords(t, sampler2.Generate(NewSource(2), 200))
	same := true
	for i := range first {
		if !first[i]["age"].Equal(second[i]["age"]) {
			same = false
			break
		}
	}
	if same {
		t.Fatalf("different seeds produced identical age sequences")
	}
}

func TestSamplerAggregateCountsCommittedRecords(t *testing.T) {
	sampler, err := NewSampler(patientVariables(), nil, nil)
	if err != nil {
		t.Fatalf("new sampler: %v", err)
	}
	seq := sampler.Generate(NewSource(8), 100)
	consumed := 0
	for consumed < 40 && seq.Next() {
		consumed++
	}
	agg := sampler.Aggregate()
	// Stopping consumption mid-batch must leave the aggregate reflecting only
	// fully completed records.
	if agg.Records() != consumed {
		t.Fatalf("aggregate records = %d, want %d", agg.Records(), consumed)
	}
	if agg.Count("gender", "M")+agg.Count("gender", "F") != consumed {
		t.Fatalf("gender counts do not sum to committed records")
	}
	if s := agg.Share("gender", "M") + agg.Share("gender", "F"); s < 0.999 || s > 1.001 {
		t.Fatalf("gender shares sum to %v", s)
	}
}

func TestSamplerGenerateSeriesAdvancesPeriods(t *testing.T) {
	sampler, err := NewSampler(patientVariables(), nil, nil)
	if err != nil {
		t.Fatalf("new sampler: %v", err)
	}
	volumes := []PeriodVolume{
		{Period: 0, Count: 3, GrowthStep: 1},
		{Period: 1, Count: 0, GrowthStep: 1.1},
		{Period: 2, Count: 2, GrowthStep: 1.1},
	}
	seq := sampler.GenerateSeries(NewSource(4), volumes)
	var periods []int
	for seq.Next() {
		periods = append(periods, seq.Period())
	}
	if err := seq.Err(); err != nil {
		t.Fatalf("series: %v", err)
	}
	want := []int{0, 0, 0, 2, 2}
	if len(periods) != len(want) {
		t.Fatalf("periods = %v, want %v", periods, want)
	}
	for i := range want {
		if periods[i] != want[i] {
			t.Fatalf("periods = %v, want %v", periods, want)
		}
	}
	agg := sampler.Aggregate()
	if agg.Period() != 2 {
		t.Fatalf("aggregate period = %d, want 2", agg.Period())
	}
	if g := agg.Growth(); g < 1.2 || g > 1.22 {
		t.Fatalf("aggregate growth = %v, want 1.1*1.1", g)
	}
}

func TestSamplerConflictTerminatesSequence(t *testing.T) {
	constraints := NewConstraints()
	if err := constraints.Register(Constraint{
		Name:   "reject_all_procedures",
		Kind:   Hard,
		Target: "procedure",
		Allows: func(Value, *Context) bool { return false },
	}); err != nil {
		t.Fatalf("register: %v", err)
	}
	sampler, err := NewSampler(patientVariables(), nil, constraints)
	if err != nil {
		t.Fatalf("new sampler: %v", err)
	}
	seq := sampler.Generate(NewSource(6), 10)
	if seq.Next() {
		t.Fatalf("expected no records under an all-rejecting hard constraint")
	}
	var conflict *ConstraintConflictError
	if !errors.As(seq.Err(), &conflict) {
		t.Fatalf("expected ConstraintConflictError, got %v", seq.Err())
	}
	if sampler.Aggregate().Records() != 0 {
		t.Fatalf("failed draw must not commit to the aggregate")
	}
	if seq.Next() {
		t.Fatalf("sequence must stay terminated after an error")
	}
}

func TestSamplerSoftConstraintShiftsBatchFrequencies(t *testing.T) {
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
	sampler, err := NewSampler(patientVariables(), nil, constraints)
	if err != nil {
		t.Fatalf("new sampler: %v", err)
	}
	records := drainRecords(t, sampler.Generate(NewSource(12), 30000))
	count := sampler.Aggregate().Count("procedure", "bone_density")
	freq := float64(count) / float64(len(records))
	if freq >= 0.2 {
		t.Fatalf("soft-discouraged batch frequency %v not below unconstrained 0.2", freq)
	}
	if count == 0 {
		t.Fatalf("soft constraint eliminated the candidate across the batch")
	}
}
