// Package generator composes engine primitives into domain records: patient
// demographics and clinical study events. It contains mapping logic only; all
// probabilistic behavior lives in pkg/sampling and the compiled scenario.
package generator

// Gender abbreviations used in patient records.
type Gender string

// Canonical gender codes.
const (
	GenderMale   Gender = "M"
	GenderFemale Gender = "F"
)

// DocumentType is the legal identity document class of a patient. The class
// is tied to patient age.
type DocumentType string

// Canonical document type codes.
const (
	// DocumentRC is the civil registry document carried by young children.
	DocumentRC DocumentType = "RC"
	// DocumentTI is the identity card carried by minors.
	DocumentTI DocumentType = "TI"
	// DocumentCC is the citizenship card carried by adults.
	DocumentCC DocumentType = "CC"
)

// DocumentTypeForAge maps an age in years to the document type a patient of
// that age carries.
func DocumentTypeForAge(age int) DocumentType {
	switch {
	case age < 7:
		return DocumentRC
	case age < 18:
		return DocumentTI
	default:
		return DocumentCC
	}
}

// Procedure is one entry of the imaging procedure catalogue.
type Procedure struct {
	Code  string
	Name  string
	Price float64
}

// Catalogue lists the procedures a scenario can reference by code.
var Catalogue = []Procedure{
	{Code: "chest_xray", Name: "Chest X-Ray", Price: 45000},
	{Code: "obstetric_ultrasound", Name: "Obstetric Ultrasound", Price: 120000},
	{Code: "bone_density", Name: "Bone Density Scan", Price: 95000},
	{Code: "abdominal_ct", Name: "Abdominal CT", Price: 310000},
	{Code: "brain_mri", Name: "Brain MRI", Price: 480000},
}

// ProcedureByCode resolves a catalogue entry.
func ProcedureByCode(code string) (Procedure, bool) {
	for _, p := range Catalogue {
		if p.Code == code {
			return p, true
		}
	}
	return Procedure{}, false
}

// Name pools for sampled patient names and clinician assignments.
var (
	givenNames = []string{
		"Ana", "Carlos", "Diana", "Eduardo", "Fernanda", "Gabriel",
		"Helena", "Ivan", "Juliana", "Luis", "Mariana", "Nicolas",
		"Olga", "Pedro", "Rosa", "Santiago", "Tatiana", "Valentina",
	}
	surnames = []string{
		"Alvarez", "Bermudez", "Castro", "Duarte", "Espinosa", "Franco",
		"Gomez", "Herrera", "Jimenez", "Lopez", "Martinez", "Navarro",
		"Ortiz", "Perez", "Quintero", "Rodriguez", "Suarez", "Torres",
	}
	physicians = []string{
		"Dr. Acosta", "Dr. Benavides", "Dr. Cardenas", "Dr. Delgado",
		"Dr. Escobar", "Dr. Fonseca", "Dr. Guzman", "Dr. Hurtado",
	}
	referrals = []string{
		"Dr. Ibarra", "Dr. Jaramillo", "Dr. Lozano", "Dr. Mendoza",
		"Dr. Niño", "Dr. Ospina", "Dr. Pineda", "Dr. Restrepo",
	}
)
