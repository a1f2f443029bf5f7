package dashboard

import (
	"time"

	"github.com/bnema/healthcare-assistant-cli/internal/domain"
)

var demoDate = time.Date(2025, 9, 18, 9, 0, 0, 0, time.UTC)

func DemoPatientProfile() domain.PatientProfile {
	return domain.PatientProfile{
		DateOfBirth: "1990-04-12",
		Gender:      "F",
		Phone:       "(555) 123-4567",
		BloodType:   "O+",
		Height:      165,
		Weight:      60,
		Age:         35,
		BMI:         22.0,
	}
}

func DemoRecords() []domain.MedicalRecord {
	return []domain.MedicalRecord{
		{ID: 1, PatientName: "Jane Doe", Symptoms: "headache, fatigue", Duration: "2 days", Severity: "mild", CreatedAt: demoDate.AddDate(0, 0, -7)},
		{ID: 2, PatientName: "Jane Doe", Symptoms: "cough, runny nose, sneezing", Duration: "4 days", Severity: "moderate", CreatedAt: demoDate},
	}
}

func DemoPredictions() []domain.Prediction {
	return []domain.Prediction{
		{ID: 1, PatientID: 1, PatientName: "Jane Doe", Symptoms: []string{"cough", "runny nose", "sneezing"}, PredictedDisease: "Common Cold", Confidence: 0.65, CreatedAt: demoDate},
		{ID: 2, PatientID: 2, PatientName: "Bob Johnson", Symptoms: []string{"itchy eyes", "sneezing"}, PredictedDisease: "Seasonal Allergies", Confidence: 0.45, DoctorApproved: true, CreatedAt: demoDate.AddDate(0, 0, -2)},
	}
}

func DemoPatientStatistics() domain.Statistics {
	return domain.Statistics{TotalRecords: 2, TotalPredictions: 1, ApprovedPredictions: 0}
}

func DemoDoctorProfile() domain.DoctorProfile {
	return domain.DoctorProfile{
		FirstName:           "John",
		LastName:            "Smith",
		Email:               "john.smith@example.com",
		LicenseNumber:       "MD-123456",
		Specialization:      "Internal Medicine",
		YearsOfExperience:   15,
		HospitalAffiliation: "General Hospital",
		IsVerified:          true,
	}
}

func DemoPatientPage() domain.PatientPage {
	return domain.PatientPage{
		Patients: []domain.PatientSummary{
			{ID: 1, Username: "jane.doe", FirstName: "Jane", LastName: "Doe", Email: "jane.doe@example.com", MedicalRecordsCount: 2, PredictionsCount: 1, LastLogin: demoDate},
			{ID: 2, Username: "bob.johnson", FirstName: "Bob", LastName: "Johnson", Email: "bob.johnson@example.com", MedicalRecordsCount: 1, PredictionsCount: 1, LastLogin: demoDate.AddDate(0, 0, -2)},
		},
		Pagination: domain.Pagination{CurrentPage: 1, TotalPages: 1, TotalPatients: 2, PageSize: 10},
	}
}

func DemoDoctorStatistics() domain.Statistics {
	return domain.Statistics{TotalPatients: 2, TotalPredictions: 2, ApprovedPredictions: 1, ApprovalRate: 50, RecentPredictions: 2, DoctorAnalyses: 1}
}

// DemoAnalysis is the sample result shown when a prediction cannot be obtained.
func DemoAnalysis(patientName string, at time.Time, symptoms []string) domain.Analysis {
	matched := symptoms
	if len(matched) > 3 {
		matched = matched[:3]
	}
	return domain.Analysis{
		PatientName: patientName,
		AnalyzedAt:  at,
		Predictions: []domain.ConditionEstimate{
			{Condition: "Common Cold", Probability: 65, Severity: "Mild"},
			{Condition: "Seasonal Allergies", Probability: 45, Severity: "Mild"},
			{Condition: "Viral Infection", Probability: 35, Severity: "Moderate"},
		},
		MatchedSymptoms: matched,
		InputSymptoms:   symptoms,
		Recommendations: []string{
			"Rest and stay hydrated",
			"Monitor symptoms for 24-48 hours",
			"Consider over-the-counter pain relief",
			"Avoid contact with others if contagious",
		},
		Urgency:    domain.UrgencyLow,
		NextSteps:  "Schedule follow-up if symptoms persist beyond 7 days",
		Confidence: 0.65,
	}
}
