package api

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strconv"

	"github.com/bnema/healthcare-assistant-cli/internal/domain"
	"github.com/bnema/healthcare-assistant-cli/internal/ports"
)

const (
	pathLogin              = "/login/"
	pathRegister           = "/register/"
	pathPatientProfile     = "/patient/profile/"
	pathPatientProfileEdit = "/patient/profile/update/"
	pathRecords            = "/medical-records/"
	pathRecordCreate       = "/medical-records/create/"
	pathHistory            = "/predictions/history/"
	pathPredict            = "/predict/"
	pathSymptoms           = "/symptoms/"
	pathSuggestions        = "/symptoms/suggestions/"
	pathDiseases           = "/diseases/"
	pathStatistics         = "/statistics/"
	pathDoctorProfile      = "/doctor/profile/"
	pathDoctorProfileEdit  = "/doctor/profile/update/"
	pathDoctorPatients     = "/doctor/patients/"
)

func pathDoctorPatient(id domain.UserID) string {
	return fmt.Sprintf("/doctor/patients/%d/", id)
}

func pathDoctorPatientPredictions(id domain.UserID) string {
	return fmt.Sprintf("/doctor/patients/%d/predictions/", id)
}

func pathApprove(id domain.PredictionID) string {
	return fmt.Sprintf("/predictions/%d/approve/", id)
}

var (
	_ ports.PatientAPI = (*Backend)(nil)
	_ ports.DoctorAPI  = (*Backend)(nil)
)

// Backend is the authenticated API surface shared by both dashboards.
type Backend struct {
	client         *Client
	severityFormat domain.SeverityFormat
}

func NewBackend(client *Client, severityFormat domain.SeverityFormat) *Backend {
	if severityFormat == "" {
		severityFormat = domain.SeverityFormatBucket
	}
	return &Backend{client: client, severityFormat: severityFormat}
}

func (b *Backend) PatientProfile(ctx context.Context) (domain.PatientProfile, error) {
	return GetFetcher(b.client, pathPatientProfile, nil, patientProfileFromPayload)(ctx)
}

func (b *Backend) UpdatePatientProfile(ctx context.Context, profile domain.PatientProfile) (domain.PatientProfile, error) {
	var payload patientProfilePayload
	if err := b.client.Put(ctx, pathPatientProfileEdit, patientProfileToPayload(profile), &payload); err != nil {
		return domain.PatientProfile{}, fmt.Errorf("update patient profile: %w", err)
	}
	return patientProfileFromPayload(payload), nil
}

func (b *Backend) Records(ctx context.Context) ([]domain.MedicalRecord, error) {
	return GetFetcher(b.client, pathRecords, nil, recordsFromPayload)(ctx)
}

func (b *Backend) CreateRecord(ctx context.Context, draft domain.RecordDraft) (domain.MedicalRecord, error) {
	if err := draft.Validate(); err != nil {
		return domain.MedicalRecord{}, err
	}

	var payload medicalRecordPayload
	if err := b.client.Post(ctx, pathRecordCreate, recordToPayload(draft, b.severityFormat), &payload); err != nil {
		return domain.MedicalRecord{}, fmt.Errorf("create medical record: %w", err)
	}
	return recordFromPayload(payload), nil
}

func (b *Backend) PredictionHistory(ctx context.Context) ([]domain.Prediction, error) {
	return GetFetcher(b.client, pathHistory, nil, historyFromPayload)(ctx)
}

func (b *Backend) RecentPredictions(ctx context.Context, limit int) ([]domain.Prediction, error) {
	query := url.Values{}
	if limit > 0 {
		query.Set("limit", strconv.Itoa(limit))
	}
	predictions, err := GetFetcher(b.client, pathHistory, query, historyFromPayload)(ctx)
	if err != nil {
		return nil, err
	}
	if limit > 0 && len(predictions) > limit {
		predictions = predictions[:limit]
	}
	return predictions, nil
}

func (b *Backend) Statistics(ctx context.Context) (domain.Statistics, error) {
	return GetFetcher(b.client, pathStatistics, nil, statisticsFromPayload)(ctx)
}

func (b *Backend) Predict(ctx context.Context, request domain.PredictionRequest) (domain.PredictionResult, error) {
	if len(request.Symptoms) == 0 {
		return domain.PredictionResult{}, domain.ErrNoSymptoms
	}

	var payload predictResponse
	if err := b.client.Post(ctx, pathPredict, predictToPayload(request, b.severityFormat), &payload); err != nil {
		return domain.PredictionResult{}, fmt.Errorf("predict: %w", err)
	}
	return predictionFromPayload(payload), nil
}

func (b *Backend) Symptoms(ctx context.Context) ([]string, error) {
	return GetFetcher(b.client, pathSymptoms, nil, func(p symptomsResponse) []string { return p.Symptoms })(ctx)
}

func (b *Backend) Diseases(ctx context.Context) ([]string, error) {
	return GetFetcher(b.client, pathDiseases, nil, func(p diseasesResponse) []string { return p.Diseases })(ctx)
}

func (b *Backend) SymptomSuggestions(ctx context.Context, query string) ([]string, error) {
	values := url.Values{}
	values.Set("q", query)
	return GetFetcher(b.client, pathSuggestions, values, func(p suggestionsResponse) []string { return p.Suggestions })(ctx)
}

func (b *Backend) DoctorProfile(ctx context.Context) (domain.DoctorProfile, error) {
	return GetFetcher(b.client, pathDoctorProfile, nil, doctorProfileFromPayload)(ctx)
}

func (b *Backend) UpdateDoctorProfile(ctx context.Context, profile domain.DoctorProfile) (domain.DoctorProfile, error) {
	var payload doctorProfilePayload
	if err := b.client.Put(ctx, pathDoctorProfileEdit, doctorProfileToPayload(profile), &payload); err != nil {
		return domain.DoctorProfile{}, fmt.Errorf("update doctor profile: %w", err)
	}
	return doctorProfileFromPayload(payload), nil
}

func (b *Backend) Patients(ctx context.Context, query domain.PatientQuery) (domain.PatientPage, error) {
	values := url.Values{}
	if query.Search != "" {
		values.Set("search", query.Search)
	}
	if query.Page > 0 {
		values.Set("page", strconv.Itoa(query.Page))
	}
	if query.PageSize > 0 {
		values.Set("page_size", strconv.Itoa(query.PageSize))
	}
	return GetFetcher(b.client, pathDoctorPatients, values, patientPageFromPayload)(ctx)
}

func (b *Backend) Patient(ctx context.Context, id domain.UserID) (domain.PatientDetail, error) {
	return GetFetcher(b.client, pathDoctorPatient(id), nil, patientDetailFromPayload)(ctx)
}

// PatientPredictions reads the per-patient endpoint and falls back to the
// filtered history on backends that do not expose it.
func (b *Backend) PatientPredictions(ctx context.Context, id domain.UserID) ([]domain.Prediction, error) {
	predictions, err := GetFetcher(b.client, pathDoctorPatientPredictions(id), nil, historyFromPayload)(ctx)
	if err == nil || !domain.IsStatus(err, http.StatusNotFound) {
		return predictions, err
	}

	query := url.Values{}
	query.Set("patient_id", strconv.FormatInt(int64(id), 10))
	return GetFetcher(b.client, pathHistory, query, historyFromPayload)(ctx)
}

func (b *Backend) Approve(ctx context.Context, id domain.PredictionID, approval domain.Approval) (domain.ApprovalResult, error) {
	var payload approveResponse
	request := approveRequest{
		Approved:    approval.Approved,
		Comments:    approval.Comments,
		DoctorNotes: approval.DoctorNotes,
	}
	if err := b.client.Post(ctx, pathApprove(id), request, &payload); err != nil {
		return domain.ApprovalResult{}, fmt.Errorf("approve prediction %d: %w", id, err)
	}
	return domain.ApprovalResult{
		Message:  payload.Message,
		Approved: payload.Approved,
		Comments: payload.Comments,
	}, nil
}

var _ ports.AuthAPI = Authenticator{}

// Authenticator calls the token endpoints, which need no session.
type Authenticator struct {
	Options []Option
}

func (a Authenticator) Login(ctx context.Context, baseURL string, username string, password string) (domain.Session, error) {
	if username == "" || password == "" {
		return domain.Session{}, errors.New("username and password are required")
	}

	client, err := New(Credentials{BaseURL: baseURL}, a.Options...)
	if err != nil {
		return domain.Session{}, err
	}

	var resp authResponse
	if err := client.Post(ctx, pathLogin, loginRequest{Username: username, Password: password}, &resp); err != nil {
		return domain.Session{}, fmt.Errorf("login: %w", err)
	}
	return sessionFromAuth(client, resp)
}

func (a Authenticator) Register(ctx context.Context, baseURL string, registration domain.Registration) (domain.Session, error) {
	if err := registration.Validate(); err != nil {
		return domain.Session{}, err
	}

	client, err := New(Credentials{BaseURL: baseURL}, a.Options...)
	if err != nil {
		return domain.Session{}, err
	}

	request := registerRequest{
		Username:  registration.Username,
		Email:     registration.Email,
		FirstName: registration.FirstName,
		LastName:  registration.LastName,
		Password:  registration.Password,
		UserType:  string(registration.Role),
	}
	var resp authResponse
	if err := client.Post(ctx, pathRegister, request, &resp); err != nil {
		return domain.Session{}, fmt.Errorf("register: %w", err)
	}
	return sessionFromAuth(client, resp)
}

func sessionFromAuth(client *Client, resp authResponse) (domain.Session, error) {
	if resp.Token == "" {
		return domain.Session{}, &domain.ParseError{Err: errors.New("auth response missing token")}
	}
	user, err := resp.User.toDomain()
	if err != nil {
		return domain.Session{}, err
	}
	return domain.Session{
		Token:   resp.Token,
		BaseURL: client.BaseURL(),
		User:    user,
	}, nil
}
