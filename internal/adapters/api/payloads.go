package api

import (
	"bytes"
	"encoding/json"
	"fmt"
	"slices"
	"strconv"
	"strings"
	"time"

	"github.com/bnema/healthcare-assistant-cli/internal/domain"
)

// flexTime accepts RFC 3339 timestamps with or without a zone, and null.
type flexTime time.Time

func (t *flexTime) UnmarshalJSON(data []byte) error {
	var raw *string
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	if raw == nil || *raw == "" {
		*t = flexTime{}
		return nil
	}
	for _, layout := range []string{time.RFC3339Nano, "2006-01-02T15:04:05.999999999", "2006-01-02"} {
		if parsed, err := time.Parse(layout, *raw); err == nil {
			*t = flexTime(parsed)
			return nil
		}
	}
	return fmt.Errorf("unsupported timestamp %q", *raw)
}

// flexFloat accepts numbers and the quoted decimals DRF emits for DecimalField.
type flexFloat float64

func (f *flexFloat) UnmarshalJSON(data []byte) error {
	trimmed := bytes.Trim(bytes.TrimSpace(data), `"`)
	if len(trimmed) == 0 || string(trimmed) == "null" {
		*f = 0
		return nil
	}
	value, err := strconv.ParseFloat(string(trimmed), 64)
	if err != nil {
		return fmt.Errorf("unsupported number %s", data)
	}
	*f = flexFloat(value)
	return nil
}

// flexString accepts strings, numbers and null.
type flexString string

func (s *flexString) UnmarshalJSON(data []byte) error {
	trimmed := bytes.TrimSpace(data)
	if string(trimmed) == "null" {
		*s = ""
		return nil
	}
	if len(trimmed) > 0 && trimmed[0] == '"' {
		var value string
		if err := json.Unmarshal(trimmed, &value); err != nil {
			return err
		}
		*s = flexString(value)
		return nil
	}
	*s = flexString(trimmed)
	return nil
}

type userPayload struct {
	ID        int64  `json:"id"`
	Username  string `json:"username"`
	Email     string `json:"email"`
	FirstName string `json:"first_name"`
	LastName  string `json:"last_name"`
	UserType  string `json:"user_type"`
}

type authResponse struct {
	Token string      `json:"token"`
	User  userPayload `json:"user"`
}

type loginRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

type registerRequest struct {
	Username  string `json:"username"`
	Email     string `json:"email"`
	FirstName string `json:"first_name"`
	LastName  string `json:"last_name"`
	Password  string `json:"password"`
	UserType  string `json:"user_type"`
}

type patientProfilePayload struct {
	DateOfBirth      string    `json:"date_of_birth,omitempty"`
	Gender           string    `json:"gender,omitempty"`
	Phone            string    `json:"phone,omitempty"`
	Address          string    `json:"address,omitempty"`
	EmergencyContact string    `json:"emergency_contact,omitempty"`
	BloodType        string    `json:"blood_type,omitempty"`
	Height           flexFloat `json:"height,omitempty"`
	Weight           flexFloat `json:"weight,omitempty"`
	Age              int       `json:"age,omitempty"`
	BMI              flexFloat `json:"bmi,omitempty"`
}

type doctorProfilePayload struct {
	User                *userPayload `json:"user,omitempty"`
	FirstName           string       `json:"first_name,omitempty"`
	LastName            string       `json:"last_name,omitempty"`
	Email               string       `json:"email,omitempty"`
	LicenseNumber       string       `json:"license_number,omitempty"`
	Specialization      string       `json:"specialization,omitempty"`
	YearsOfExperience   int          `json:"years_of_experience,omitempty"`
	HospitalAffiliation string       `json:"hospital_affiliation,omitempty"`
	Phone               string       `json:"phone,omitempty"`
	IsVerified          bool         `json:"is_verified,omitempty"`
}

type doctorProfileUpdate struct {
	LicenseNumber       string `json:"license_number,omitempty"`
	Specialization      string `json:"specialization,omitempty"`
	YearsOfExperience   int    `json:"years_of_experience,omitempty"`
	HospitalAffiliation string `json:"hospital_affiliation,omitempty"`
	Phone               string `json:"phone,omitempty"`
}

type medicalRecordPayload struct {
	ID                 int64      `json:"id"`
	PatientName        string     `json:"patient_name"`
	DoctorName         string     `json:"doctor_name"`
	Symptoms           string     `json:"symptoms"`
	Duration           string     `json:"duration"`
	Severity           flexString `json:"severity"`
	PreviousConditions string     `json:"previous_conditions"`
	CurrentMedications string     `json:"current_medications"`
	Allergies          string     `json:"allergies"`
	DoctorNotes        string     `json:"doctor_notes"`
	AnalyzedByDoctor   bool       `json:"is_analyzed_by_doctor"`
	CreatedAt          flexTime   `json:"created_at"`
}

type recordRequest struct {
	Symptoms           string `json:"symptoms"`
	Duration           string `json:"duration,omitempty"`
	Severity           string `json:"severity,omitempty"`
	PreviousConditions string `json:"previous_conditions,omitempty"`
	CurrentMedications string `json:"current_medications,omitempty"`
	Allergies          string `json:"allergies,omitempty"`
}

type historyEntryPayload struct {
	ID               int64     `json:"id"`
	PatientID        int64     `json:"patient_id"`
	PatientName      string    `json:"patient_name"`
	Symptoms         []string  `json:"symptoms"`
	PredictedDisease string    `json:"predicted_disease"`
	Confidence       flexFloat `json:"confidence"`
	DoctorApproved   bool      `json:"doctor_approved"`
	DoctorComments   string    `json:"doctor_comments"`
	CreatedAt        flexTime  `json:"created_at"`
}

type historyResponse struct {
	History []historyEntryPayload `json:"history"`
	Count   int                   `json:"count"`
}

type predictRequest struct {
	Symptoms           []string `json:"symptoms"`
	PatientID          int64    `json:"patient_id,omitempty"`
	Severity           string   `json:"severity,omitempty"`
	Duration           string   `json:"duration,omitempty"`
	PreviousConditions string   `json:"previous_conditions,omitempty"`
	CurrentMedications string   `json:"current_medications,omitempty"`
	Allergies          string   `json:"allergies,omitempty"`
}

type topPredictionPayload struct {
	Disease     string    `json:"disease"`
	Probability flexFloat `json:"probability"`
}

type predictResponse struct {
	PredictedDisease string                 `json:"predicted_disease"`
	Confidence       flexFloat              `json:"confidence"`
	MatchedSymptoms  []string               `json:"matched_symptoms"`
	TopPredictions   []topPredictionPayload `json:"top_predictions"`
	InputSymptoms    []string               `json:"input_symptoms"`
}

type approveRequest struct {
	Approved    bool   `json:"approved"`
	Comments    string `json:"comments"`
	DoctorNotes string `json:"doctor_notes,omitempty"`
}

type approveResponse struct {
	Message  string `json:"message"`
	Approved bool   `json:"approved"`
	Comments string `json:"comments"`
}

type statisticsPayload struct {
	TotalRecords        int       `json:"total_records"`
	TotalPredictions    int       `json:"total_predictions"`
	ApprovedPredictions int       `json:"approved_predictions"`
	ApprovalRate        flexFloat `json:"approval_rate"`
	TotalPatients       int       `json:"total_patients"`
	RecentPredictions   int       `json:"recent_predictions"`
	DoctorAnalyses      int       `json:"doctor_analyses"`
}

type symptomsResponse struct {
	Symptoms []string `json:"symptoms"`
}

type suggestionsResponse struct {
	Suggestions []string `json:"suggestions"`
}

type diseasesResponse struct {
	Diseases []string `json:"diseases"`
}

type patientSummaryPayload struct {
	ID         int64                  `json:"id"`
	Username   string                 `json:"username"`
	Email      string                 `json:"email"`
	FirstName  string                 `json:"first_name"`
	LastName   string                 `json:"last_name"`
	DateJoined flexTime               `json:"date_joined"`
	LastLogin  flexTime               `json:"last_login"`
	Profile    *patientProfilePayload `json:"profile"`
	Statistics struct {
		MedicalRecordsCount int `json:"medical_records_count"`
		PredictionsCount    int `json:"predictions_count"`
		TotalRecords        int `json:"total_records"`
		TotalPredictions    int `json:"total_predictions"`
	} `json:"statistics"`
}

type paginationPayload struct {
	CurrentPage   int  `json:"current_page"`
	TotalPages    int  `json:"total_pages"`
	TotalPatients int  `json:"total_patients"`
	PageSize      int  `json:"page_size"`
	HasNext       bool `json:"has_next"`
	HasPrevious   bool `json:"has_previous"`
}

type patientsResponse struct {
	Patients   []patientSummaryPayload `json:"patients"`
	Pagination paginationPayload       `json:"pagination"`
	Search     string                  `json:"search"`
}

// patientDetailResponse is a patient summary with its latest records inlined.
type patientDetailResponse struct {
	patientSummaryPayload
	RecentRecords []medicalRecordPayload `json:"recent_records"`
}

func (u userPayload) toDomain() (domain.User, error) {
	role, err := domain.ParseRole(u.UserType)
	if err != nil {
		return domain.User{}, err
	}
	return domain.User{
		ID:        domain.UserID(u.ID),
		Username:  u.Username,
		Role:      role,
		FirstName: u.FirstName,
		LastName:  u.LastName,
		Email:     u.Email,
	}, nil
}

func patientProfileFromPayload(p patientProfilePayload) domain.PatientProfile {
	return domain.PatientProfile{
		DateOfBirth:      p.DateOfBirth,
		Gender:           p.Gender,
		Phone:            p.Phone,
		Address:          p.Address,
		EmergencyContact: p.EmergencyContact,
		BloodType:        p.BloodType,
		Height:           float64(p.Height),
		Weight:           float64(p.Weight),
		Age:              p.Age,
		BMI:              float64(p.BMI),
	}
}

func patientProfileToPayload(p domain.PatientProfile) patientProfilePayload {
	return patientProfilePayload{
		DateOfBirth:      p.DateOfBirth,
		Gender:           p.Gender,
		Phone:            p.Phone,
		Address:          p.Address,
		EmergencyContact: p.EmergencyContact,
		BloodType:        p.BloodType,
		Height:           flexFloat(p.Height),
		Weight:           flexFloat(p.Weight),
	}
}

func (f flexFloat) MarshalJSON() ([]byte, error) {
	return json.Marshal(float64(f))
}

func doctorProfileFromPayload(p doctorProfilePayload) domain.DoctorProfile {
	profile := domain.DoctorProfile{
		FirstName:           p.FirstName,
		LastName:            p.LastName,
		Email:               p.Email,
		LicenseNumber:       p.LicenseNumber,
		Specialization:      p.Specialization,
		YearsOfExperience:   p.YearsOfExperience,
		HospitalAffiliation: p.HospitalAffiliation,
		Phone:               p.Phone,
		IsVerified:          p.IsVerified,
	}
	if p.User != nil {
		profile.FirstName = firstNonEmpty(profile.FirstName, p.User.FirstName)
		profile.LastName = firstNonEmpty(profile.LastName, p.User.LastName)
		profile.Email = firstNonEmpty(profile.Email, p.User.Email)
	}
	return profile
}

func doctorProfileToPayload(p domain.DoctorProfile) doctorProfileUpdate {
	return doctorProfileUpdate{
		LicenseNumber:       p.LicenseNumber,
		Specialization:      p.Specialization,
		YearsOfExperience:   p.YearsOfExperience,
		HospitalAffiliation: p.HospitalAffiliation,
		Phone:               p.Phone,
	}
}

func recordFromPayload(p medicalRecordPayload) domain.MedicalRecord {
	return domain.MedicalRecord{
		ID:                 domain.RecordID(p.ID),
		PatientName:        p.PatientName,
		DoctorName:         p.DoctorName,
		Symptoms:           p.Symptoms,
		Duration:           p.Duration,
		Severity:           string(p.Severity),
		PreviousConditions: p.PreviousConditions,
		CurrentMedications: p.CurrentMedications,
		Allergies:          p.Allergies,
		DoctorNotes:        p.DoctorNotes,
		AnalyzedByDoctor:   p.AnalyzedByDoctor,
		CreatedAt:          time.Time(p.CreatedAt),
	}
}

func recordsFromPayload(payloads []medicalRecordPayload) []domain.MedicalRecord {
	records := make([]domain.MedicalRecord, 0, len(payloads))
	for _, p := range payloads {
		records = append(records, recordFromPayload(p))
	}
	return records
}

func recordToPayload(d domain.RecordDraft, format domain.SeverityFormat) recordRequest {
	return recordRequest{
		Symptoms:           strings.Join(domain.SplitSymptoms(d.Symptoms), ", "),
		Duration:           d.Duration,
		Severity:           d.Severity.Wire(format),
		PreviousConditions: d.PreviousConditions,
		CurrentMedications: d.CurrentMedications,
		Allergies:          d.Allergies,
	}
}

func historyFromPayload(resp historyResponse) []domain.Prediction {
	predictions := make([]domain.Prediction, 0, len(resp.History))
	for _, p := range resp.History {
		predictions = append(predictions, domain.Prediction{
			ID:               domain.PredictionID(p.ID),
			PatientID:        domain.UserID(p.PatientID),
			PatientName:      strings.TrimSpace(p.PatientName),
			Symptoms:         p.Symptoms,
			PredictedDisease: p.PredictedDisease,
			Confidence:       float64(p.Confidence),
			DoctorApproved:   p.DoctorApproved,
			DoctorComments:   p.DoctorComments,
			CreatedAt:        time.Time(p.CreatedAt),
		})
	}
	return predictions
}

func predictToPayload(r domain.PredictionRequest, format domain.SeverityFormat) predictRequest {
	return predictRequest{
		Symptoms:           r.Symptoms,
		PatientID:          int64(r.PatientID),
		Severity:           r.Severity.Wire(format),
		Duration:           r.Duration,
		PreviousConditions: r.PreviousConditions,
		CurrentMedications: r.CurrentMedications,
		Allergies:          r.Allergies,
	}
}

func predictionFromPayload(p predictResponse) domain.PredictionResult {
	top := make([]domain.TopPrediction, 0, len(p.TopPredictions))
	for _, t := range p.TopPredictions {
		top = append(top, domain.TopPrediction{Disease: t.Disease, Probability: float64(t.Probability)})
	}
	return domain.PredictionResult{
		PredictedDisease: p.PredictedDisease,
		Confidence:       float64(p.Confidence),
		MatchedSymptoms:  p.MatchedSymptoms,
		TopPredictions:   top,
		InputSymptoms:    p.InputSymptoms,
	}
}

func statisticsFromPayload(p statisticsPayload) domain.Statistics {
	return domain.Statistics{
		TotalRecords:        p.TotalRecords,
		TotalPredictions:    p.TotalPredictions,
		ApprovedPredictions: p.ApprovedPredictions,
		ApprovalRate:        float64(p.ApprovalRate),
		TotalPatients:       p.TotalPatients,
		RecentPredictions:   p.RecentPredictions,
		DoctorAnalyses:      p.DoctorAnalyses,
	}
}

func patientSummaryFromPayload(p patientSummaryPayload) domain.PatientSummary {
	summary := domain.PatientSummary{
		ID:                  domain.UserID(p.ID),
		Username:            p.Username,
		FirstName:           p.FirstName,
		LastName:            p.LastName,
		Email:               p.Email,
		DateJoined:          time.Time(p.DateJoined),
		LastLogin:           time.Time(p.LastLogin),
		MedicalRecordsCount: p.Statistics.MedicalRecordsCount,
		PredictionsCount:    p.Statistics.PredictionsCount,
	}
	if p.Profile != nil {
		profile := patientProfileFromPayload(*p.Profile)
		summary.Profile = &profile
	}
	return summary
}

func patientPageFromPayload(p patientsResponse) domain.PatientPage {
	patients := make([]domain.PatientSummary, 0, len(p.Patients))
	for _, summary := range p.Patients {
		patients = append(patients, patientSummaryFromPayload(summary))
	}
	return domain.PatientPage{
		Patients: patients,
		Pagination: domain.Pagination{
			CurrentPage:   p.Pagination.CurrentPage,
			TotalPages:    p.Pagination.TotalPages,
			TotalPatients: p.Pagination.TotalPatients,
			PageSize:      p.Pagination.PageSize,
			HasNext:       p.Pagination.HasNext,
			HasPrevious:   p.Pagination.HasPrevious,
		},
		Search: p.Search,
	}
}

func patientDetailFromPayload(p patientDetailResponse) domain.PatientDetail {
	return domain.PatientDetail{
		PatientSummary:   patientSummaryFromPayload(p.patientSummaryPayload),
		RecentRecords:    recordsFromPayload(p.RecentRecords),
		TotalRecords:     p.Statistics.TotalRecords,
		TotalPredictions: p.Statistics.TotalPredictions,
	}
}

func firstNonEmpty(values ...string) string {
	for _, value := range values {
		if strings.TrimSpace(value) != "" {
			return value
		}
	}
	return ""
}

func sortedKeys[V any](m map[string]V) []string {
	keys := make([]string, 0, len(m))
	for key := range m {
		keys = append(keys, key)
	}
	slices.Sort(keys)
	return keys
}
