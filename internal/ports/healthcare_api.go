package ports

import (
	"context"

	"github.com/bnema/healthcare-assistant-cli/internal/domain"
)

// AuthAPI talks to the unauthenticated endpoints. The returned session carries the issued token.
type AuthAPI interface {
	Login(ctx context.Context, baseURL string, username string, password string) (domain.Session, error)
	Register(ctx context.Context, baseURL string, registration domain.Registration) (domain.Session, error)
}

type CatalogAPI interface {
	Symptoms(ctx context.Context) ([]string, error)
	Diseases(ctx context.Context) ([]string, error)
	SymptomSuggestions(ctx context.Context, query string) ([]string, error)
}

type PatientAPI interface {
	CatalogAPI
	PatientProfile(ctx context.Context) (domain.PatientProfile, error)
	UpdatePatientProfile(ctx context.Context, profile domain.PatientProfile) (domain.PatientProfile, error)
	Records(ctx context.Context) ([]domain.MedicalRecord, error)
	CreateRecord(ctx context.Context, draft domain.RecordDraft) (domain.MedicalRecord, error)
	PredictionHistory(ctx context.Context) ([]domain.Prediction, error)
	Statistics(ctx context.Context) (domain.Statistics, error)
	Predict(ctx context.Context, request domain.PredictionRequest) (domain.PredictionResult, error)
}

type DoctorAPI interface {
	DoctorProfile(ctx context.Context) (domain.DoctorProfile, error)
	UpdateDoctorProfile(ctx context.Context, profile domain.DoctorProfile) (domain.DoctorProfile, error)
	Patients(ctx context.Context, query domain.PatientQuery) (domain.PatientPage, error)
	Patient(ctx context.Context, id domain.UserID) (domain.PatientDetail, error)
	PatientPredictions(ctx context.Context, id domain.UserID) ([]domain.Prediction, error)
	RecentPredictions(ctx context.Context, limit int) ([]domain.Prediction, error)
	Statistics(ctx context.Context) (domain.Statistics, error)
	Approve(ctx context.Context, id domain.PredictionID, approval domain.Approval) (domain.ApprovalResult, error)
	Predict(ctx context.Context, request domain.PredictionRequest) (domain.PredictionResult, error)
}
