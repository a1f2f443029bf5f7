package application

import (
	"context"
	"errors"
	"fmt"

	"go.uber.org/zap"

	"github.com/bnema/healthcare-assistant-cli/internal/cache"
	"github.com/bnema/healthcare-assistant-cli/internal/domain"
	"github.com/bnema/healthcare-assistant-cli/internal/ports"
)

// PatientDashboard is the signed-in patient's view over one cache.
type PatientDashboard struct {
	session domain.Session
	api     ports.PatientAPI
	cache   *cache.Cache
	deps    dashboardDeps

	profile    cache.Handle[domain.PatientProfile]
	records    cache.Handle[[]domain.MedicalRecord]
	history    cache.Handle[[]domain.Prediction]
	statistics cache.Handle[domain.Statistics]
	symptoms   cache.Handle[[]string]
	diseases   cache.Handle[[]string]
}

type PatientSnapshot struct {
	User              domain.User
	Profile           cache.Entity[domain.PatientProfile]
	Records           cache.Entity[[]domain.MedicalRecord]
	PredictionHistory cache.Entity[[]domain.Prediction]
	Statistics        cache.Entity[domain.Statistics]
	Symptoms          cache.Entity[[]string]
	Diseases          cache.Entity[[]string]
}

func NewPatientDashboard(session domain.Session, api ports.PatientAPI, c *cache.Cache, opts ...DashboardOption) (*PatientDashboard, error) {
	if err := session.RequireRole(domain.RolePatient); err != nil {
		return nil, err
	}

	d := &PatientDashboard{session: session, api: api, cache: c, deps: newDashboardDeps(opts)}

	var errs []error
	d.profile = register[domain.PatientProfile](c, ResourceProfile, api.PatientProfile, &errs)
	d.records = register[[]domain.MedicalRecord](c, ResourceRecords, api.Records, &errs)
	d.history = register[[]domain.Prediction](c, ResourcePredictionHistory, api.PredictionHistory, &errs)
	d.statistics = register[domain.Statistics](c, ResourceStatistics, api.Statistics, &errs)
	d.symptoms = register[[]string](c, ResourceSymptoms, api.Symptoms, &errs)
	d.diseases = register[[]string](c, ResourceDiseases, api.Diseases, &errs)
	if err := errors.Join(errs...); err != nil {
		return nil, fmt.Errorf("register patient resources: %w", err)
	}

	return d, nil
}

// Activate loads every resource and waits for all of them to settle.
func (d *PatientDashboard) Activate(ctx context.Context) error {
	return loadAll(ctx, d.profile, d.records, d.history, d.statistics, d.symptoms, d.diseases)
}

func (d *PatientDashboard) UpdateProfile(ctx context.Context, profile domain.PatientProfile) (domain.PatientProfile, error) {
	updated, err := d.api.UpdatePatientProfile(ctx, profile)
	if err != nil {
		return domain.PatientProfile{}, err
	}

	if err := d.profile.Mutate(func(domain.PatientProfile) domain.PatientProfile { return updated }); err != nil {
		return domain.PatientProfile{}, err
	}
	d.deps.logger.Info("patient profile updated", zap.String("username", d.session.User.Username))
	return updated, nil
}

func (d *PatientDashboard) AddRecord(ctx context.Context, draft domain.RecordDraft) (domain.MedicalRecord, error) {
	if err := draft.Validate(); err != nil {
		return domain.MedicalRecord{}, err
	}

	record, err := d.api.CreateRecord(ctx, draft)
	if err != nil {
		return domain.MedicalRecord{}, err
	}

	err = d.records.Mutate(func(current []domain.MedicalRecord) []domain.MedicalRecord {
		next := make([]domain.MedicalRecord, 0, len(current)+1)
		next = append(next, current...)
		return append(next, record)
	})
	if err := errors.Join(err, d.statistics.Invalidate()); err != nil {
		return domain.MedicalRecord{}, err
	}
	d.deps.logger.Info("medical record created", zap.Int64("record_id", int64(record.ID)))
	return record, nil
}

// Analyze sends the draft to the prediction endpoint, which also stores it as
// a medical record, and refreshes the affected resources.
func (d *PatientDashboard) Analyze(ctx context.Context, draft domain.RecordDraft) (domain.Analysis, error) {
	request, err := domain.PredictionRequestFor(0, draft)
	if err != nil {
		return domain.Analysis{}, err
	}

	result, err := d.api.Predict(ctx, request)
	if err != nil {
		return domain.Analysis{}, err
	}

	if err := errors.Join(d.records.Refresh(ctx), d.history.Refresh(ctx), d.statistics.Invalidate()); err != nil {
		return domain.Analysis{}, err
	}
	d.deps.logger.Info("prediction completed",
		zap.String("disease", result.PredictedDisease),
		zap.Float64("confidence", result.Confidence),
	)

	return domain.NewAnalysis(d.session.User.DisplayName(), d.deps.clock.Now(), draft.Severity, request.Symptoms, result), nil
}

// SuggestSymptoms completes the symptom currently being typed, the text after
// the last comma. Short fragments return nothing without a request.
func (d *PatientDashboard) SuggestSymptoms(ctx context.Context, input string) ([]string, error) {
	return suggestSymptoms(ctx, d.api, input)
}

func (d *PatientDashboard) Snapshot() PatientSnapshot {
	return PatientSnapshot{
		User:              d.session.User,
		Profile:           d.profile.Read(),
		Records:           d.records.Read(),
		PredictionHistory: d.history.Read(),
		Statistics:        d.statistics.Read(),
		Symptoms:          d.symptoms.Read(),
		Diseases:          d.diseases.Read(),
	}
}

// Wait blocks until the records and history refreshed by Analyze have settled.
func (d *PatientDashboard) Wait(ctx context.Context) error {
	if err := d.records.Wait(ctx); err != nil {
		return err
	}
	return d.history.Wait(ctx)
}

// History loads the prediction history alone, for callers that do not need
// the whole dashboard.
func (d *PatientDashboard) History(ctx context.Context) (cache.Entity[[]domain.Prediction], error) {
	return d.history.LoadAndWait(ctx)
}

func suggestSymptoms(ctx context.Context, api ports.CatalogAPI, input string) ([]string, error) {
	fragment := domain.LastSymptom(input)
	if len([]rune(fragment)) < minSuggestionLength {
		return []string{}, nil
	}
	suggestions, err := api.SymptomSuggestions(ctx, fragment)
	if err != nil {
		return nil, err
	}
	if suggestions == nil {
		suggestions = []string{}
	}
	return suggestions, nil
}
