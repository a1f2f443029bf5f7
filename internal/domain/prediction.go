package domain

import (
	"math"
	"time"
)

type PredictionID int64

// Prediction is an entry of the prediction history.
type Prediction struct {
	ID               PredictionID
	PatientID        UserID
	PatientName      string
	Symptoms         []string
	PredictedDisease string
	Confidence       float64
	DoctorApproved   bool
	DoctorComments   string
	CreatedAt        time.Time
}

type TopPrediction struct {
	Disease     string
	Probability float64
}

// PredictionResult is the backend's answer to a predict request.
type PredictionResult struct {
	PredictedDisease string
	Confidence       float64
	MatchedSymptoms  []string
	TopPredictions   []TopPrediction
	InputSymptoms    []string
}

// PredictionRequest also carries the record details; the backend stores them as a medical record.
type PredictionRequest struct {
	Symptoms           []string
	PatientID          UserID
	Severity           Severity
	Duration           string
	PreviousConditions string
	CurrentMedications string
	Allergies          string
}

// PredictionRequestFor builds the request for a draft. Zero patient means the signed-in patient.
func PredictionRequestFor(patientID UserID, draft RecordDraft) (PredictionRequest, error) {
	if err := draft.Validate(); err != nil {
		return PredictionRequest{}, err
	}
	return PredictionRequest{
		Symptoms:           SplitSymptoms(draft.Symptoms),
		PatientID:          patientID,
		Severity:           draft.Severity,
		Duration:           draft.Duration,
		PreviousConditions: draft.PreviousConditions,
		CurrentMedications: draft.CurrentMedications,
		Allergies:          draft.Allergies,
	}, nil
}

type Approval struct {
	Approved    bool
	Comments    string
	DoctorNotes string
}

type ApprovalResult struct {
	Message  string
	Approved bool
	Comments string
}

type Urgency string

const (
	UrgencyHigh   Urgency = "High"
	UrgencyMedium Urgency = "Medium"
	UrgencyLow    Urgency = "Low"
)

type ConditionEstimate struct {
	Condition   string
	Probability int
	Severity    string
}

// Analysis is the patient-facing reading of a PredictionResult.
type Analysis struct {
	PatientName     string
	AnalyzedAt      time.Time
	Predictions     []ConditionEstimate
	MatchedSymptoms []string
	InputSymptoms   []string
	Recommendations []string
	Urgency         Urgency
	NextSteps       string
	Confidence      float64
}

func NewAnalysis(patientName string, at time.Time, severity Severity, symptoms []string, result PredictionResult) Analysis {
	label := severity.Label()

	estimates := make([]ConditionEstimate, 0, len(result.TopPredictions))
	for _, top := range result.TopPredictions {
		estimates = append(estimates, ConditionEstimate{
			Condition:   top.Disease,
			Probability: percent(top.Probability),
			Severity:    label,
		})
	}
	if len(estimates) == 0 {
		estimates = append(estimates, ConditionEstimate{
			Condition:   result.PredictedDisease,
			Probability: percent(result.Confidence),
			Severity:    label,
		})
	}

	input := result.InputSymptoms
	if len(input) == 0 {
		input = symptoms
	}

	return Analysis{
		PatientName:     patientName,
		AnalyzedAt:      at,
		Predictions:     estimates,
		MatchedSymptoms: result.MatchedSymptoms,
		InputSymptoms:   input,
		Recommendations: Recommendations(result.Confidence),
		Urgency:         UrgencyFor(result.Confidence),
		NextSteps:       NextSteps(result.Confidence),
		Confidence:      result.Confidence,
	}
}

func Recommendations(confidence float64) []string {
	recommendations := []string{
		"Rest and stay hydrated",
		"Monitor symptoms carefully",
	}
	if confidence > 0.7 {
		return append(recommendations,
			"Consider consulting a healthcare provider",
			"Keep track of symptom progression",
		)
	}
	return append(recommendations,
		"Continue monitoring symptoms",
		"Consider over-the-counter remedies if appropriate",
	)
}

func UrgencyFor(confidence float64) Urgency {
	switch {
	case confidence > 0.7:
		return UrgencyHigh
	case confidence > 0.4:
		return UrgencyMedium
	default:
		return UrgencyLow
	}
}

func NextSteps(confidence float64) string {
	switch {
	case confidence > 0.8:
		return "Strongly consider consulting a healthcare professional within 24 hours"
	case confidence > 0.6:
		return "Schedule a medical consultation if symptoms persist or worsen"
	default:
		return "Monitor symptoms and seek medical advice if they persist beyond 7 days"
	}
}

func percent(probability float64) int {
	return int(math.Round(probability * 100))
}
