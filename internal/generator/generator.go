package generator

import (
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"medsynth/internal/config"
	"medsynth/internal/runmetrics"
	"medsynth/pkg/sampling"
)

// Variable names the generator reads from engine records. The gender, age,
// and procedures variables must be declared by the scenario; physician and
// referral are sampled from the built-in pools when the scenario omits them.
const (
	VarGender    = "gender"
	VarAge       = "age"
	VarProcedure = "procedures"
	VarPhysician = "physician"
	VarReferral  = "referral"
)

// Generator maps engine records onto patient and study entities. One engine
// record yields one patient with one study; period indexes map onto calendar
// days starting at the base date.
type Generator struct {
	sampler  *sampling.Sampler
	src      *sampling.Source
	baseDate time.Time
	newID    func() string
	metrics  runmetrics.Recorder
}

// New builds a generator over a compiled scenario. The seed drives every
// draw, so two generators with the same scenario and seed produce the same
// sampled field sequences.
func New(engine *config.Engine, seed int64, baseDate time.Time) (*Generator, error) {
	declared := make(map[string]struct{}, len(engine.Variables))
	for _, v := range engine.Variables {
		declared[v.Name] = struct{}{}
	}
	for _, required := range []string{VarGender, VarAge, VarProcedure} {
		if _, ok := declared[required]; !ok {
			return nil, fmt.Errorf("scenario does not declare variable %q", required)
		}
	}
	sampler, err := sampling.NewSampler(engine.Variables, engine.Rules, engine.Constraints)
	if err != nil {
		return nil, err
	}
	return &Generator{
		sampler:  sampler,
		src:      sampling.NewSource(seed),
		baseDate: baseDate,
		newID:    func() string { return uuid.NewString() },
		metrics:  runmetrics.Nop{},
	}, nil
}

// SetRecorder replaces the run metrics recorder. The default discards all
// events.
func (g *Generator) SetRecorder(rec runmetrics.Recorder) {
	if rec == nil {
		rec = runmetrics.Nop{}
	}
	g.metrics = rec
}

// Aggregate exposes the batch aggregate of the underlying sampler.
func (g *Generator) Aggregate() *sampling.Aggregate { return g.sampler.Aggregate() }

// GeneratePeriods draws the configured volume for each period and streams
// every generated pair to fn as it is produced. Generation stops at the first
// engine or callback error; the error is returned unchanged.
func (g *Generator) GeneratePeriods(volumes []sampling.PeriodVolume, fn func(Patient, Study) error) error {
	seq := g.sampler.GenerateSeries(g.src, volumes)
	for seq.Next() {
		start := time.Now()
		patient, study, err := g.mapRecord(seq.Record(), seq.Period())
		if err != nil {
			return err
		}
		if err := fn(patient, study); err != nil {
			return err
		}
		g.metrics.RecordPair(seq.Period(), time.Since(start))
	}
	if err := seq.Err(); err != nil {
		var conflict *sampling.ConstraintConflictError
		if errors.As(err, &conflict) {
			g.metrics.RecordConflict(conflict.Variable)
		}
		return err
	}
	return nil
}

// Generate draws n pairs in the current period and returns them as a batch.
func (g *Generator) Generate(n int) ([]Patient, []Study, error) {
	patients := make([]Patient, 0, n)
	studies := make([]Study, 0, n)
	err := g.GeneratePeriods(
		[]sampling.PeriodVolume{{Period: g.sampler.Aggregate().Period(), Count: n}},
		func(p Patient, s Study) error {
			patients = append(patients, p)
			studies = append(studies, s)
			return nil
		})
	if err != nil {
		return nil, nil, err
	}
	return patients, studies, nil
}

func (g *Generator) mapRecord(rec sampling.Record, period int) (Patient, Study, error) {
	gender, ok := rec[VarGender]
	if !ok || gender.Kind != sampling.ValueLabel {
		return Patient{}, Study{}, fmt.Errorf("record missing gender label")
	}
	age, ok := rec[VarAge]
	if !ok || age.Kind != sampling.ValueNumber {
		return Patient{}, Study{}, fmt.Errorf("record missing numeric age")
	}
	procedureCode, ok := rec[VarProcedure]
	if !ok || procedureCode.Kind != sampling.ValueLabel {
		return Patient{}, Study{}, fmt.Errorf("record missing procedure label")
	}
	procedure, ok := ProcedureByCode(procedureCode.Label)
	if !ok {
		return Patient{}, Study{}, fmt.Errorf("procedure %q not in catalogue", procedureCode.Label)
	}

	studyDate := g.baseDate.AddDate(0, 0, period)
	years := int(age.Number)
	// Scatter birthdays within the sampled age year so cohorts do not share
	// one synthetic birthday.
	dayOffset := 1 + g.src.IntN(364)
	dateOfBirth := studyDate.AddDate(-years-1, 0, 0).AddDate(0, 0, dayOffset)

	patient := Patient{
		ID:             g.newID(),
		Identification: g.identification(),
		Name:           g.pick(givenNames) + " " + g.pick(surnames),
		Gender:         Gender(gender.Label),
		DocumentType:   DocumentTypeForAge(AgeOn(dateOfBirth, studyDate)),
		DateOfBirth:    dateOfBirth,
	}
	study := Study{
		ID:            g.newID(),
		PatientID:     patient.ID,
		StudyDate:     studyDate,
		ProcedureCode: procedure.Code,
		ProcedureName: procedure.Name,
		Price:         procedure.Price,
		Physician:     g.labelOr(rec, VarPhysician, physicians),
		Referral:      g.labelOr(rec, VarReferral, referrals),
	}
	return patient, study, nil
}

// AgeOn returns the completed age in years of someone born on birth as of the
// given date.
func AgeOn(birth, on time.Time) int {
	years := on.Year() - birth.Year()
	if on.YearDay() < birth.YearDay() {
		years--
	}
	return years
}

// identification builds a ten digit identification number from the source so
// batches stay reproducible under a fixed seed.
func (g *Generator) identification() string {
	digits := make([]byte, 10)
	digits[0] = byte('1' + g.src.IntN(9))
	for i := 1; i < len(digits); i++ {
		digits[i] = byte('0' + g.src.IntN(10))
	}
	return string(digits)
}

func (g *Generator) pick(pool []string) string {
	return pool[g.src.IntN(len(pool))]
}

func (g *Generator) labelOr(rec sampling.Record, name string, pool []string) string {
	if v, ok := rec[name]; ok && v.Kind == sampling.ValueLabel {
		return v.Label
	}
	return g.pick(pool)
}
