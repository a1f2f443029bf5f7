package application

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bnema/healthcare-assistant-cli/internal/cache"
	"github.com/bnema/healthcare-assistant-cli/internal/domain"
)

func patientBackend() *fakeBackend {
	f := newFakeBackend()
	f.patientProfile = domain.PatientProfile{Gender: "F", BloodType: "O+"}
	f.records = []domain.MedicalRecord{{ID: 1, Symptoms: "headache", Severity: "mild"}}
	f.history = []domain.Prediction{{ID: 10, PredictedDisease: "Migraine", Confidence: 0.8}}
	f.statistics = domain.Statistics{TotalRecords: 1, TotalPredictions: 1}
	f.symptoms = []string{"fever", "cough"}
	f.diseases = []string{"Flu"}
	return f
}

func newPatientDashboard(t *testing.T, f *fakeBackend) (*PatientDashboard, *cache.Cache) {
	t.Helper()

	c := cache.New()
	t.Cleanup(func() { _ = c.Drain(context.Background()) })

	d, err := NewPatientDashboard(janeSession(), f, c, WithDashboardClock(fixedClock{now: testNow}))
	require.NoError(t, err)
	return d, c
}

func TestNewPatientDashboardRequiresPatientRole(t *testing.T) {
	t.Parallel()

	session := janeSession()
	session.User.Role = domain.RoleDoctor

	_, err := NewPatientDashboard(session, newFakeBackend(), cache.New())
	require.ErrorIs(t, err, domain.ErrWrongRole)
}

func TestNewPatientDashboardRegistersResources(t *testing.T) {
	t.Parallel()

	_, c := newPatientDashboard(t, newFakeBackend())
	assert.Equal(t, []string{
		ResourceProfile, ResourceRecords, ResourcePredictionHistory,
		ResourceStatistics, ResourceSymptoms, ResourceDiseases,
	}, c.Names())
}

func TestPatientDashboardActivateLoadsEverything(t *testing.T) {
	t.Parallel()

	f := patientBackend()
	d, _ := newPatientDashboard(t, f)

	require.NoError(t, d.Activate(context.Background()))

	snap := d.Snapshot()
	assert.Equal(t, "Jane Doe", snap.User.DisplayName())
	assert.True(t, snap.Profile.Ready())
	assert.Equal(t, "O+", snap.Profile.Value.BloodType)
	assert.Len(t, snap.Records.Value, 1)
	assert.Equal(t, "Migraine", snap.PredictionHistory.Value[0].PredictedDisease)
	assert.Equal(t, 1, snap.Statistics.Value.TotalRecords)
	assert.Equal(t, []string{"fever", "cough"}, snap.Symptoms.Value)
	assert.Equal(t, []string{"Flu"}, snap.Diseases.Value)

	require.NoError(t, d.Activate(context.Background()))
	assert.Equal(t, 1, f.count("Records"), "ready resources are not refetched")
}

func TestPatientDashboardActivateKeepsFailuresOnEntities(t *testing.T) {
	t.Parallel()

	f := patientBackend()
	f.failWith("Statistics", &domain.HTTPError{Status: 500, Message: "boom"})
	d, _ := newPatientDashboard(t, f)

	require.NoError(t, d.Activate(context.Background()))

	snap := d.Snapshot()
	assert.True(t, snap.Statistics.Failed())
	assert.Equal(t, domain.ErrorKindHTTP, snap.Statistics.Err.Kind)
	assert.Equal(t, 500, snap.Statistics.Err.HTTPStatus)
	assert.True(t, snap.Records.Ready())
}

func TestPatientDashboardActivateHonorsContext(t *testing.T) {
	t.Parallel()

	d, _ := newPatientDashboard(t, patientBackend())
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	err := d.Activate(ctx)
	if err != nil {
		require.ErrorIs(t, err, context.Canceled)
	}
}

func TestPatientDashboardUpdateProfileReplacesCachedValue(t *testing.T) {
	t.Parallel()

	f := patientBackend()
	d, _ := newPatientDashboard(t, f)
	require.NoError(t, d.Activate(context.Background()))

	updated, err := d.UpdateProfile(context.Background(), domain.PatientProfile{Gender: "F", BloodType: "A-", Phone: "555-0100"})
	require.NoError(t, err)
	assert.Equal(t, "A-", updated.BloodType)

	snap := d.Snapshot()
	assert.Equal(t, "A-", snap.Profile.Value.BloodType)
	assert.Equal(t, "555-0100", snap.Profile.Value.Phone)
}

func TestPatientDashboardUpdateProfileFailureLeavesCache(t *testing.T) {
	t.Parallel()

	f := patientBackend()
	f.failWith("UpdatePatientProfile", &domain.HTTPError{Status: 400, Message: "phone: invalid"})
	d, _ := newPatientDashboard(t, f)
	require.NoError(t, d.Activate(context.Background()))

	_, err := d.UpdateProfile(context.Background(), domain.PatientProfile{BloodType: "??"})
	require.Error(t, err)
	assert.Equal(t, "O+", d.Snapshot().Profile.Value.BloodType)
}

func TestPatientDashboardAddRecordAppendsAndInvalidatesStatistics(t *testing.T) {
	t.Parallel()

	f := patientBackend()
	f.createdRecord = domain.MedicalRecord{ID: 2, Symptoms: "fever, cough", Severity: "moderate"}
	d, _ := newPatientDashboard(t, f)
	require.NoError(t, d.Activate(context.Background()))

	record, err := d.AddRecord(context.Background(), domain.RecordDraft{Symptoms: "fever, cough", Severity: 5})
	require.NoError(t, err)
	assert.Equal(t, domain.RecordID(2), record.ID)

	snap := d.Snapshot()
	require.Len(t, snap.Records.Value, 2)
	assert.Equal(t, domain.RecordID(2), snap.Records.Value[1].ID)
	assert.Equal(t, cache.StatusIdle, snap.Statistics.Status)
	assert.True(t, snap.Statistics.HasValue, "invalidation keeps the last value")
	assert.Equal(t, 1, f.count("Records"), "the append needs no refetch")
}

func TestPatientDashboardAddRecordValidatesDraft(t *testing.T) {
	t.Parallel()

	f := patientBackend()
	d, _ := newPatientDashboard(t, f)

	_, err := d.AddRecord(context.Background(), domain.RecordDraft{Symptoms: " , ", Severity: 5})
	require.ErrorIs(t, err, domain.ErrNoSymptoms)

	_, err = d.AddRecord(context.Background(), domain.RecordDraft{Symptoms: "fever", Severity: 11})
	require.ErrorIs(t, err, domain.ErrInvalidSeverity)

	assert.Zero(t, f.count("CreateRecord"))
}

func TestPatientDashboardAnalyze(t *testing.T) {
	t.Parallel()

	f := patientBackend()
	f.predictResult = domain.PredictionResult{
		PredictedDisease: "Common Cold",
		Confidence:       0.65,
		MatchedSymptoms:  []string{"cough"},
		TopPredictions: []domain.TopPrediction{
			{Disease: "Common Cold", Probability: 0.65},
			{Disease: "Seasonal Allergies", Probability: 0.45},
		},
	}
	d, _ := newPatientDashboard(t, f)
	require.NoError(t, d.Activate(context.Background()))

	analysis, err := d.Analyze(context.Background(), domain.RecordDraft{
		Symptoms:  "cough, runny nose",
		Duration:  "2 days",
		Severity:  3,
		Allergies: "pollen",
	})
	require.NoError(t, err)
	require.NoError(t, d.Wait(context.Background()))

	f.mu.Lock()
	request := f.lastPredict
	f.mu.Unlock()
	assert.Equal(t, []string{"cough", "runny nose"}, request.Symptoms)
	assert.Zero(t, request.PatientID)
	assert.Equal(t, "2 days", request.Duration)
	assert.Equal(t, "pollen", request.Allergies)

	assert.Equal(t, "Jane Doe", analysis.PatientName)
	assert.Equal(t, testNow, analysis.AnalyzedAt)
	require.Len(t, analysis.Predictions, 2)
	assert.Equal(t, 65, analysis.Predictions[0].Probability)
	assert.Equal(t, []string{"cough", "runny nose"}, analysis.InputSymptoms)
	assert.Equal(t, domain.UrgencyMedium, analysis.Urgency)

	assert.Equal(t, 2, f.count("Records"))
	assert.Equal(t, 2, f.count("PredictionHistory"))
	assert.Equal(t, cache.StatusIdle, d.Snapshot().Statistics.Status)
}

func TestPatientDashboardAnalyzeRejectsEmptySymptoms(t *testing.T) {
	t.Parallel()

	f := patientBackend()
	d, _ := newPatientDashboard(t, f)

	_, err := d.Analyze(context.Background(), domain.RecordDraft{Symptoms: ",,", Severity: 5})
	require.ErrorIs(t, err, domain.ErrNoSymptoms)
	assert.Zero(t, f.count("Predict"))
}

func TestPatientDashboardAnalyzeFailureDoesNotRefresh(t *testing.T) {
	t.Parallel()

	f := patientBackend()
	f.failWith("Predict", &domain.NetworkError{Op: "POST /predict/", Err: errors.New("connection refused")})
	d, _ := newPatientDashboard(t, f)
	require.NoError(t, d.Activate(context.Background()))

	_, err := d.Analyze(context.Background(), domain.RecordDraft{Symptoms: "fever", Severity: 5})
	kind, _ := domain.ClassifyError(err)
	assert.Equal(t, domain.ErrorKindNetwork, kind)
	assert.Equal(t, 1, f.count("Records"))
	assert.True(t, d.Snapshot().Statistics.Ready())
}

func TestPatientDashboardSuggestSymptoms(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name      string
		input     string
		wantQuery string
		wantCalls int
		want      []string
	}{
		{name: "empty", input: "", wantCalls: 0, want: []string{}},
		{name: "single character after comma", input: "fever, c", wantCalls: 0, want: []string{}},
		{name: "completes last token", input: "fever, co", wantQuery: "co", wantCalls: 1, want: []string{"cough", "cold"}},
		{name: "first token", input: "he", wantQuery: "he", wantCalls: 1, want: []string{"cough", "cold"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			f := patientBackend()
			f.suggestions = []string{"cough", "cold"}
			d, _ := newPatientDashboard(t, f)

			got, err := d.SuggestSymptoms(context.Background(), tt.input)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
			assert.Equal(t, tt.wantCalls, f.count("SymptomSuggestions"))
			if tt.wantCalls > 0 {
				assert.Equal(t, tt.wantQuery, f.lastSuggest)
			}
		})
	}
}

func TestPatientDashboardHistoryLoadsOnlyHistory(t *testing.T) {
	t.Parallel()

	f := patientBackend()
	d, _ := newPatientDashboard(t, f)

	history, err := d.History(context.Background())
	require.NoError(t, err)
	assert.True(t, history.Ready())
	assert.Equal(t, f.history, history.Value)
	assert.Zero(t, f.count("Records"))
	assert.Zero(t, f.count("PatientProfile"))
}
