package domain

import (
	"strings"
	"time"
)

type RecordID int64

type PatientProfile struct {
	DateOfBirth      string
	Gender           string
	Phone            string
	Address          string
	EmergencyContact string
	BloodType        string
	Height           float64
	Weight           float64
	Age              int
	BMI              float64
}

type MedicalRecord struct {
	ID                 RecordID
	PatientName        string
	DoctorName         string
	Symptoms           string
	Duration           string
	Severity           string
	PreviousConditions string
	CurrentMedications string
	Allergies          string
	DoctorNotes        string
	AnalyzedByDoctor   bool
	CreatedAt          time.Time
}

// RecordDraft is the write-side shape of a medical record before the backend assigns an id.
type RecordDraft struct {
	Symptoms           string
	Duration           string
	Severity           Severity
	PreviousConditions string
	CurrentMedications string
	Allergies          string
}

func (d RecordDraft) Validate() error {
	if len(SplitSymptoms(d.Symptoms)) == 0 {
		return ErrNoSymptoms
	}
	return d.Severity.Validate()
}

type PatientSummary struct {
	ID                  UserID
	Username            string
	FirstName           string
	LastName            string
	Email               string
	DateJoined          time.Time
	LastLogin           time.Time
	Profile             *PatientProfile
	MedicalRecordsCount int
	PredictionsCount    int
}

func (p PatientSummary) DisplayName() string {
	return User{Username: p.Username, FirstName: p.FirstName, LastName: p.LastName}.DisplayName()
}

type Pagination struct {
	CurrentPage   int
	TotalPages    int
	TotalPatients int
	PageSize      int
	HasNext       bool
	HasPrevious   bool
}

type PatientPage struct {
	Patients   []PatientSummary
	Pagination Pagination
	Search     string
}

type PatientDetail struct {
	PatientSummary
	RecentRecords    []MedicalRecord
	TotalRecords     int
	TotalPredictions int
}

// SplitSymptoms turns "fever, cough ,," into ["fever", "cough"].
func SplitSymptoms(raw string) []string {
	parts := strings.Split(raw, ",")
	symptoms := make([]string, 0, len(parts))
	for _, part := range parts {
		trimmed := strings.TrimSpace(part)
		if trimmed == "" {
			continue
		}
		symptoms = append(symptoms, trimmed)
	}
	return symptoms
}

// LastSymptom returns the token after the final comma, which is what the user is still typing.
func LastSymptom(raw string) string {
	idx := strings.LastIndex(raw, ",")
	return strings.TrimSpace(raw[idx+1:])
}

type PatientQuery struct {
	Search   string
	Page     int
	PageSize int
}
