package application

import (
	"context"
	"sync"
	"time"

	"github.com/bnema/healthcare-assistant-cli/internal/domain"
)

// fakeBackend implements both dashboard APIs with canned answers.
type fakeBackend struct {
	mu    sync.Mutex
	calls map[string]int
	errs  map[string]error

	patientProfile domain.PatientProfile
	records        []domain.MedicalRecord
	history        []domain.Prediction
	statistics     domain.Statistics
	symptoms       []string
	diseases       []string
	suggestions    []string
	predictResult  domain.PredictionResult
	createdRecord  domain.MedicalRecord

	doctorProfile      domain.DoctorProfile
	updatedDoctor      domain.DoctorProfile
	page               domain.PatientPage
	details            map[domain.UserID]domain.PatientDetail
	patientPredictions map[domain.UserID][]domain.Prediction
	recent             []domain.Prediction
	approval           domain.ApprovalResult

	lastPredict     domain.PredictionRequest
	lastQuery       domain.PatientQuery
	lastSuggest     string
	lastRecentLimit int
}

func newFakeBackend() *fakeBackend {
	return &fakeBackend{
		calls:              map[string]int{},
		errs:               map[string]error{},
		details:            map[domain.UserID]domain.PatientDetail{},
		patientPredictions: map[domain.UserID][]domain.Prediction{},
	}
}

func (f *fakeBackend) call(name string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls[name]++
	return f.errs[name]
}

func (f *fakeBackend) count(name string) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls[name]
}

func (f *fakeBackend) failWith(name string, err error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.errs[name] = err
}

func (f *fakeBackend) Symptoms(context.Context) ([]string, error) {
	return f.symptoms, f.call("Symptoms")
}

func (f *fakeBackend) Diseases(context.Context) ([]string, error) {
	return f.diseases, f.call("Diseases")
}

func (f *fakeBackend) SymptomSuggestions(_ context.Context, query string) ([]string, error) {
	f.mu.Lock()
	f.lastSuggest = query
	f.mu.Unlock()
	return f.suggestions, f.call("SymptomSuggestions")
}

func (f *fakeBackend) PatientProfile(context.Context) (domain.PatientProfile, error) {
	return f.patientProfile, f.call("PatientProfile")
}

func (f *fakeBackend) UpdatePatientProfile(_ context.Context, profile domain.PatientProfile) (domain.PatientProfile, error) {
	if err := f.call("UpdatePatientProfile"); err != nil {
		return domain.PatientProfile{}, err
	}
	return profile, nil
}

func (f *fakeBackend) Records(context.Context) ([]domain.MedicalRecord, error) {
	f.mu.Lock()
	records := append([]domain.MedicalRecord(nil), f.records...)
	f.mu.Unlock()
	return records, f.call("Records")
}

func (f *fakeBackend) CreateRecord(context.Context, domain.RecordDraft) (domain.MedicalRecord, error) {
	if err := f.call("CreateRecord"); err != nil {
		return domain.MedicalRecord{}, err
	}
	return f.createdRecord, nil
}

func (f *fakeBackend) PredictionHistory(context.Context) ([]domain.Prediction, error) {
	return f.history, f.call("PredictionHistory")
}

func (f *fakeBackend) Statistics(context.Context) (domain.Statistics, error) {
	return f.statistics, f.call("Statistics")
}

func (f *fakeBackend) Predict(_ context.Context, request domain.PredictionRequest) (domain.PredictionResult, error) {
	f.mu.Lock()
	f.lastPredict = request
	f.mu.Unlock()
	if err := f.call("Predict"); err != nil {
		return domain.PredictionResult{}, err
	}
	return f.predictResult, nil
}

func (f *fakeBackend) DoctorProfile(context.Context) (domain.DoctorProfile, error) {
	return f.doctorProfile, f.call("DoctorProfile")
}

func (f *fakeBackend) UpdateDoctorProfile(context.Context, domain.DoctorProfile) (domain.DoctorProfile, error) {
	if err := f.call("UpdateDoctorProfile"); err != nil {
		return domain.DoctorProfile{}, err
	}
	return f.updatedDoctor, nil
}

func (f *fakeBackend) Patients(_ context.Context, query domain.PatientQuery) (domain.PatientPage, error) {
	f.mu.Lock()
	f.lastQuery = query
	page := f.page
	f.mu.Unlock()
	return page, f.call("Patients")
}

func (f *fakeBackend) Patient(_ context.Context, id domain.UserID) (domain.PatientDetail, error) {
	f.mu.Lock()
	detail := f.details[id]
	f.mu.Unlock()
	return detail, f.call("Patient")
}

func (f *fakeBackend) PatientPredictions(_ context.Context, id domain.UserID) ([]domain.Prediction, error) {
	f.mu.Lock()
	predictions := append([]domain.Prediction(nil), f.patientPredictions[id]...)
	f.mu.Unlock()
	return predictions, f.call("PatientPredictions")
}

func (f *fakeBackend) RecentPredictions(_ context.Context, limit int) ([]domain.Prediction, error) {
	f.mu.Lock()
	f.lastRecentLimit = limit
	recent := append([]domain.Prediction(nil), f.recent...)
	f.mu.Unlock()
	return recent, f.call("RecentPredictions")
}

func (f *fakeBackend) Approve(context.Context, domain.PredictionID, domain.Approval) (domain.ApprovalResult, error) {
	if err := f.call("Approve"); err != nil {
		return domain.ApprovalResult{}, err
	}
	return f.approval, nil
}

type fixedClock struct{ now time.Time }

func (c fixedClock) Now() time.Time { return c.now }
