package application

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"

	"go.uber.org/zap"

	"github.com/bnema/healthcare-assistant-cli/internal/cache"
	"github.com/bnema/healthcare-assistant-cli/internal/domain"
	"github.com/bnema/healthcare-assistant-cli/internal/ports"
)

const (
	defaultPatientPageSize = 10
	maxPatientPageSize     = 100
)

// DoctorDashboard is the signed-in doctor's view over one cache.
type DoctorDashboard struct {
	session domain.Session
	api     ports.DoctorAPI
	cache   *cache.Cache
	deps    dashboardDeps

	profile    cache.Handle[domain.DoctorProfile]
	patients   cache.Handle[domain.PatientPage]
	statistics cache.Handle[domain.Statistics]
	recent     cache.Handle[[]domain.Prediction]

	mu       sync.Mutex
	query    domain.PatientQuery
	selected map[domain.UserID]patientView
}

type patientView struct {
	detail      cache.Handle[domain.PatientDetail]
	predictions cache.Handle[[]domain.Prediction]
}

type DoctorSnapshot struct {
	User              domain.User
	Profile           cache.Entity[domain.DoctorProfile]
	Patients          cache.Entity[domain.PatientPage]
	Statistics        cache.Entity[domain.Statistics]
	RecentPredictions cache.Entity[[]domain.Prediction]
	Query             domain.PatientQuery
}

type PatientView struct {
	ID          domain.UserID
	Detail      cache.Entity[domain.PatientDetail]
	Predictions cache.Entity[[]domain.Prediction]
}

func NewDoctorDashboard(session domain.Session, api ports.DoctorAPI, c *cache.Cache, opts ...DashboardOption) (*DoctorDashboard, error) {
	if err := session.RequireRole(domain.RoleDoctor); err != nil {
		return nil, err
	}

	d := &DoctorDashboard{
		session:  session,
		api:      api,
		cache:    c,
		deps:     newDashboardDeps(opts),
		query:    domain.PatientQuery{Page: 1, PageSize: defaultPatientPageSize},
		selected: map[domain.UserID]patientView{},
	}

	var errs []error
	d.profile = register[domain.DoctorProfile](c, ResourceProfile, api.DoctorProfile, &errs)
	d.patients = register[domain.PatientPage](c, ResourcePatients, d.fetchPatients, &errs)
	d.statistics = register[domain.Statistics](c, ResourceStatistics, api.Statistics, &errs)
	d.recent = register[[]domain.Prediction](c, ResourceRecentPredictions, func(ctx context.Context) ([]domain.Prediction, error) {
		return api.RecentPredictions(ctx, recentPredictionsLimit)
	}, &errs)
	if err := errors.Join(errs...); err != nil {
		return nil, fmt.Errorf("register doctor resources: %w", err)
	}

	return d, nil
}

func (d *DoctorDashboard) Activate(ctx context.Context) error {
	return loadAll(ctx, d.profile, d.patients, d.statistics, d.recent)
}

func (d *DoctorDashboard) UpdateProfile(ctx context.Context, profile domain.DoctorProfile) (domain.DoctorProfile, error) {
	updated, err := d.api.UpdateDoctorProfile(ctx, profile)
	if err != nil {
		return domain.DoctorProfile{}, err
	}

	err = d.profile.Mutate(func(current domain.DoctorProfile) domain.DoctorProfile {
		return mergeDoctorProfile(current, updated)
	})
	if err != nil {
		return domain.DoctorProfile{}, err
	}
	d.deps.logger.Info("doctor profile updated", zap.String("username", d.session.User.Username))
	return d.profile.Read().Value, nil
}

// SearchPatients changes the patient query and refetches the list. The
// previous query's response, if still in flight, is discarded.
func (d *DoctorDashboard) SearchPatients(ctx context.Context, search string, page int) error {
	d.mu.Lock()
	d.query.Search = strings.TrimSpace(search)
	d.query.Page = max(page, 1)
	d.mu.Unlock()

	if err := d.patients.Refresh(ctx); err != nil {
		return err
	}
	return d.patients.Wait(ctx)
}

func (d *DoctorDashboard) SetPageSize(size int) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.query.PageSize = min(max(size, 1), maxPatientPageSize)
}

// SelectPatient registers the patient's resources on first use, then loads
// both and waits for them.
func (d *DoctorDashboard) SelectPatient(ctx context.Context, id domain.UserID) (PatientView, error) {
	view, err := d.patientView(id)
	if err != nil {
		return PatientView{}, err
	}

	if err := loadAll(ctx, view.detail, view.predictions); err != nil {
		return PatientView{}, err
	}
	return d.readPatient(id, view), nil
}

func (d *DoctorDashboard) Patient(id domain.UserID) (PatientView, error) {
	d.mu.Lock()
	view, ok := d.selected[id]
	d.mu.Unlock()
	if !ok {
		return PatientView{}, fmt.Errorf("%w: %d", ErrUnknownPatient, id)
	}
	return d.readPatient(id, view), nil
}

// Approve records the decision and flips the approved flag wherever the
// prediction is already cached.
func (d *DoctorDashboard) Approve(ctx context.Context, patientID domain.UserID, predictionID domain.PredictionID, approval domain.Approval) (domain.ApprovalResult, error) {
	result, err := d.api.Approve(ctx, predictionID, approval)
	if err != nil {
		return domain.ApprovalResult{}, err
	}

	update := func(current []domain.Prediction) []domain.Prediction {
		return markApproved(current, predictionID, result)
	}

	d.mu.Lock()
	view, selected := d.selected[patientID]
	d.mu.Unlock()
	var errs []error
	if selected {
		errs = append(errs, mutateCached(view.predictions, update))
	}
	errs = append(errs, mutateCached(d.recent, update), d.statistics.Invalidate())
	if err := errors.Join(errs...); err != nil {
		return domain.ApprovalResult{}, err
	}

	d.deps.logger.Info("prediction reviewed",
		zap.Int64("prediction_id", int64(predictionID)),
		zap.Int64("patient_id", int64(patientID)),
		zap.Bool("approved", result.Approved),
	)
	return result, nil
}

// RunAnalysis predicts for a patient on the doctor's behalf.
func (d *DoctorDashboard) RunAnalysis(ctx context.Context, patientID domain.UserID, draft domain.RecordDraft) (domain.Analysis, error) {
	if patientID <= 0 {
		return domain.Analysis{}, domain.ErrPatientNotLoaded
	}

	request, err := domain.PredictionRequestFor(patientID, draft)
	if err != nil {
		return domain.Analysis{}, err
	}

	result, err := d.api.Predict(ctx, request)
	if err != nil {
		return domain.Analysis{}, err
	}

	name := fmt.Sprintf("Patient #%d", patientID)
	d.mu.Lock()
	view, selected := d.selected[patientID]
	d.mu.Unlock()
	if selected {
		if detail := view.detail.Read(); detail.HasValue {
			name = detail.Value.DisplayName()
		}
		err = errors.Join(view.predictions.Refresh(ctx), view.detail.Invalidate())
	}
	if err := errors.Join(err, d.recent.Refresh(ctx), d.statistics.Invalidate()); err != nil {
		return domain.Analysis{}, err
	}

	d.deps.logger.Info("doctor analysis completed",
		zap.Int64("patient_id", int64(patientID)),
		zap.String("disease", result.PredictedDisease),
	)
	return domain.NewAnalysis(name, d.deps.clock.Now(), draft.Severity, request.Symptoms, result), nil
}

func (d *DoctorDashboard) Snapshot() DoctorSnapshot {
	d.mu.Lock()
	query := d.query
	d.mu.Unlock()

	return DoctorSnapshot{
		User:              d.session.User,
		Profile:           d.profile.Read(),
		Patients:          d.patients.Read(),
		Statistics:        d.statistics.Read(),
		RecentPredictions: d.recent.Read(),
		Query:             query,
	}
}

func (d *DoctorDashboard) fetchPatients(ctx context.Context) (domain.PatientPage, error) {
	d.mu.Lock()
	query := d.query
	d.mu.Unlock()

	page, err := d.api.Patients(ctx, query)
	if err != nil {
		return domain.PatientPage{}, err
	}
	if page.Search == "" {
		page.Search = query.Search
	}
	return page, nil
}

func (d *DoctorDashboard) patientView(id domain.UserID) (patientView, error) {
	if id <= 0 {
		return patientView{}, fmt.Errorf("%w: invalid patient id %d", ErrUnknownPatient, id)
	}

	d.mu.Lock()
	defer d.mu.Unlock()

	if view, ok := d.selected[id]; ok {
		return view, nil
	}

	var errs []error
	view := patientView{
		detail: register[domain.PatientDetail](d.cache, fmt.Sprintf("patient/%d", id), func(ctx context.Context) (domain.PatientDetail, error) {
			return d.api.Patient(ctx, id)
		}, &errs),
		predictions: register[[]domain.Prediction](d.cache, fmt.Sprintf("patient/%d/predictions", id), func(ctx context.Context) ([]domain.Prediction, error) {
			return d.api.PatientPredictions(ctx, id)
		}, &errs),
	}
	if err := errors.Join(errs...); err != nil {
		return patientView{}, fmt.Errorf("register patient %d: %w", id, err)
	}

	d.selected[id] = view
	return view, nil
}

func (d *DoctorDashboard) readPatient(id domain.UserID, view patientView) PatientView {
	return PatientView{ID: id, Detail: view.detail.Read(), Predictions: view.predictions.Read()}
}

// mutateCached only touches resources that already hold a value; the others
// are invalidated so the next load fetches the server's copy.
func mutateCached(h cache.Handle[[]domain.Prediction], update func([]domain.Prediction) []domain.Prediction) error {
	if !h.Read().HasValue {
		return h.Invalidate()
	}
	return h.Mutate(update)
}

// mergeDoctorProfile keeps cached fields the update response left empty.
func mergeDoctorProfile(current domain.DoctorProfile, updated domain.DoctorProfile) domain.DoctorProfile {
	merged := updated
	if merged.FirstName == "" {
		merged.FirstName = current.FirstName
	}
	if merged.LastName == "" {
		merged.LastName = current.LastName
	}
	if merged.Email == "" {
		merged.Email = current.Email
	}
	if merged.LicenseNumber == "" {
		merged.LicenseNumber = current.LicenseNumber
	}
	if merged.Specialization == "" {
		merged.Specialization = current.Specialization
	}
	if merged.HospitalAffiliation == "" {
		merged.HospitalAffiliation = current.HospitalAffiliation
	}
	if merged.Phone == "" {
		merged.Phone = current.Phone
	}
	return merged
}
