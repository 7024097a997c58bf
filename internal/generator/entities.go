package generator

import "time"

// Patient holds the demographic fields of one generated patient.
type Patient struct {
	ID             string       `json:"id"`
	Identification string       `json:"identification"`
	Name           string       `json:"name"`
	Gender         Gender       `json:"gender"`
	DocumentType   DocumentType `json:"document_type"`
	DateOfBirth    time.Time    `json:"date_of_birth"`
}

// Study holds one generated clinical study event referencing a patient.
type Study struct {
	ID            string    `json:"id"`
	PatientID     string    `json:"patient_id"`
	StudyDate     time.Time `json:"study_date"`
	ProcedureCode string    `json:"procedure_code"`
	ProcedureName string    `json:"procedure_name"`
	Price         float64   `json:"price"`
	Physician     string    `json:"physician"`
	Referral      string    `json:"referral"`
}
