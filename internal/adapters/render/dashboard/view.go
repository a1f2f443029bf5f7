package dashboard

import (
	"fmt"
	"math"
	"strconv"
	"strings"
	"time"

	"github.com/charmbracelet/lipgloss"

	"github.com/bnema/healthcare-assistant-cli/internal/application"
	"github.com/bnema/healthcare-assistant-cli/internal/cache"
	"github.com/bnema/healthcare-assistant-cli/internal/domain"
)

const (
	barWidth = 10
	indent   = "  "
)

func patientView(snap application.PatientSnapshot, policy Policy, s styles) string {
	lines := []string{
		s.title.Render("Patient Dashboard"),
		s.header.Render(fmt.Sprintf("signed in as %s (%s)", snap.User.DisplayName(), snap.User.Role)),
	}

	lines = append(lines,
		section(snap.Profile, DemoPatientProfile(), policy, "Profile", s, func(p domain.PatientProfile) []string {
			return profileLines(p, s)
		}),
		section(snap.Statistics, DemoPatientStatistics(), policy, "Statistics", s, func(st domain.Statistics) []string {
			return []string{s.detail.Render(fmt.Sprintf("records: %d   predictions: %d   approved: %d",
				st.TotalRecords, st.TotalPredictions, st.ApprovedPredictions))}
		}),
		section(snap.Records, DemoRecords(), policy, "Medical records", s, func(records []domain.MedicalRecord) []string {
			return recordLines(records, s)
		}),
		section(snap.PredictionHistory, DemoPredictions(), policy, "Prediction history", s, func(predictions []domain.Prediction) []string {
			return predictionLines(predictions, false, s)
		}),
		catalogLine(snap.Symptoms, snap.Diseases, s),
	)

	return lipgloss.JoinVertical(lipgloss.Left, lines...)
}

func doctorView(snap application.DoctorSnapshot, policy Policy, s styles) string {
	lines := []string{
		s.title.Render("Doctor Dashboard"),
		s.header.Render(fmt.Sprintf("signed in as %s (%s)", snap.User.DisplayName(), snap.User.Role)),
	}

	lines = append(lines,
		section(snap.Profile, DemoDoctorProfile(), policy, "Profile", s, func(p domain.DoctorProfile) []string {
			return doctorProfileLines(p, s)
		}),
		section(snap.Statistics, DemoDoctorStatistics(), policy, "Statistics", s, func(st domain.Statistics) []string {
			return []string{s.detail.Render(fmt.Sprintf("patients: %d   predictions: %d   approved: %d (%.0f%%)   last 7 days: %d   analyses: %d",
				st.TotalPatients, st.TotalPredictions, st.ApprovedPredictions, st.ApprovalRate, st.RecentPredictions, st.DoctorAnalyses))}
		}),
		section(snap.Patients, DemoPatientPage(), policy, "Patients", s, func(page domain.PatientPage) []string {
			return patientPageLines(page, s)
		}),
		section(snap.RecentPredictions, DemoPredictions(), policy, "Recent predictions", s, func(predictions []domain.Prediction) []string {
			return predictionLines(predictions, true, s)
		}),
	)

	return lipgloss.JoinVertical(lipgloss.Left, lines...)
}

func patientDetailView(view application.PatientView, policy Policy, s styles) string {
	// A single patient has no meaningful sample; missing data is reported as such.
	policy.DemoFallback = false

	detail, _ := Resolve(view.Detail, domain.PatientDetail{}, policy)
	name := detail.DisplayName()
	if name == "" {
		name = fmt.Sprintf("#%d", view.ID)
	}

	lines := []string{
		s.title.Render("Patient " + name),
		section(view.Detail, domain.PatientDetail{}, policy, "Summary", s, func(d domain.PatientDetail) []string {
			out := []string{s.detail.Render(fmt.Sprintf("username: %s   email: %s   joined: %s   last login: %s",
				orDash(d.Username), orDash(d.Email), formatDate(d.DateJoined), formatDate(d.LastLogin)))}
			out = append(out, s.detail.Render(fmt.Sprintf("records: %d   predictions: %d", d.TotalRecords, d.TotalPredictions)))
			if d.Profile != nil {
				out = append(out, profileLines(*d.Profile, s)...)
			}
			out = append(out, s.key.Render("recent records:"))
			return append(out, recordLines(d.RecentRecords, s)...)
		}),
		section(view.Predictions, nil, policy, "Predictions", s, func(predictions []domain.Prediction) []string {
			return predictionLines(predictions, false, s)
		}),
	}

	return lipgloss.JoinVertical(lipgloss.Left, lines...)
}

func predictionsView(title string, entity cache.Entity[[]domain.Prediction], withPatient bool, policy Policy, s styles) string {
	return lipgloss.JoinVertical(lipgloss.Left,
		s.title.Render(title),
		section(entity, DemoPredictions(), policy, "Predictions", s, func(predictions []domain.Prediction) []string {
			return predictionLines(predictions, withPatient, s)
		}),
	)
}

func patientListView(entity cache.Entity[domain.PatientPage], policy Policy, s styles) string {
	return lipgloss.JoinVertical(lipgloss.Left,
		s.title.Render("Patients"),
		section(entity, DemoPatientPage(), policy, "Results", s, func(page domain.PatientPage) []string {
			return patientPageLines(page, s)
		}),
	)
}

func analysisView(a domain.Analysis, demo bool, s styles) string {
	title := s.title.Render("Analysis for " + orDash(a.PatientName))
	if demo {
		title += " " + s.demo.Render("[demo data]")
	}

	urgencyStyle, ok := s.urgency[string(a.Urgency)]
	if !ok {
		urgencyStyle = s.detail
	}

	lines := []string{
		title,
		s.header.Render("analyzed " + formatDateTime(a.AnalyzedAt)),
		lipgloss.JoinHorizontal(lipgloss.Top,
			s.key.Render("urgency: "), urgencyStyle.Render(string(a.Urgency)),
			s.key.Render("   confidence: "), confidenceBar(a.Confidence*100, s), " ", percentText(a.Confidence*100),
		),
		s.section.Render(s.heading.Render("Possible conditions")),
	}

	width := 0
	for _, p := range a.Predictions {
		width = max(width, len(p.Condition))
	}
	for _, p := range a.Predictions {
		lines = append(lines, indent+lipgloss.JoinHorizontal(lipgloss.Top,
			s.detail.Render(fmt.Sprintf("%-*s", width, p.Condition)), " ",
			confidenceBar(float64(p.Probability), s), " ",
			percentText(float64(p.Probability)), " ",
			s.meta.Render(p.Severity),
		))
	}

	lines = append(lines,
		s.section.Render(s.key.Render("matched symptoms: ")+s.detail.Render(joinOrDash(a.MatchedSymptoms))),
		s.key.Render("input symptoms:   ")+s.detail.Render(joinOrDash(a.InputSymptoms)),
		s.section.Render(s.heading.Render("Recommendations")),
	)
	for _, r := range a.Recommendations {
		lines = append(lines, indent+s.detail.Render("- "+r))
	}
	lines = append(lines, s.section.Render(s.key.Render("next steps: ")+s.detail.Render(a.NextSteps)))

	return lipgloss.JoinVertical(lipgloss.Left, lines...)
}

// section renders one resource under a heading tagged with its source.
func section[T any](entity cache.Entity[T], demo T, policy Policy, label string, s styles, body func(T) []string) string {
	value, source := Resolve(entity, demo, policy)

	lines := []string{sectionTitle(label, source, s)}
	if entity.Err != nil {
		lines = append(lines, indent+s.warning.Render("error: "+entity.Err.Message))
	}

	switch source {
	case SourceLoading:
		lines = append(lines, indent+s.empty.Render("loading..."))
	case SourceUnavailable:
		if entity.Err == nil {
			lines = append(lines, indent+s.empty.Render("not loaded"))
		}
	default:
		for _, line := range body(value) {
			lines = append(lines, indent+line)
		}
	}

	return s.section.Render(lipgloss.JoinVertical(lipgloss.Left, lines...))
}

func sectionTitle(label string, source Source, s styles) string {
	title := s.heading.Render(label)
	switch source {
	case SourceStale:
		return title + " " + s.warning.Render("[stale]")
	case SourceDemo:
		return title + " " + s.demo.Render("[demo data]")
	case SourceUnavailable:
		return title + " " + s.warning.Render("[unavailable]")
	default:
		return title
	}
}

func profileLines(p domain.PatientProfile, s styles) []string {
	fields := [][2]string{
		{"date of birth", p.DateOfBirth},
		{"gender", p.Gender},
		{"blood type", p.BloodType},
		{"age", intOrEmpty(p.Age)},
		{"height", unitOrEmpty(p.Height, "cm")},
		{"weight", unitOrEmpty(p.Weight, "kg")},
		{"bmi", unitOrEmpty(p.BMI, "")},
		{"phone", p.Phone},
		{"address", p.Address},
		{"emergency contact", p.EmergencyContact},
	}
	return keyValueLines(fields, "No profile details yet.", s)
}

func doctorProfileLines(p domain.DoctorProfile, s styles) []string {
	verified := "no"
	if p.IsVerified {
		verified = "yes"
	}
	fields := [][2]string{
		{"name", p.DisplayName()},
		{"specialization", p.Specialization},
		{"experience", intOrEmpty(p.YearsOfExperience) + pluralSuffix(p.YearsOfExperience, " year", " years")},
		{"hospital", p.HospitalAffiliation},
		{"license", p.LicenseNumber},
		{"email", p.Email},
		{"phone", p.Phone},
		{"verified", verified},
	}
	return keyValueLines(fields, "No profile details yet.", s)
}

func keyValueLines(fields [][2]string, emptyText string, s styles) []string {
	width := 0
	for _, f := range fields {
		if strings.TrimSpace(f[1]) != "" {
			width = max(width, len(f[0]))
		}
	}

	lines := make([]string, 0, len(fields))
	for _, f := range fields {
		if strings.TrimSpace(f[1]) == "" {
			continue
		}
		lines = append(lines, s.key.Render(fmt.Sprintf("%-*s ", width+1, f[0]+":"))+s.detail.Render(f[1]))
	}
	if len(lines) == 0 {
		return []string{s.empty.Render(emptyText)}
	}
	return lines
}

func recordLines(records []domain.MedicalRecord, s styles) []string {
	if len(records) == 0 {
		return []string{s.empty.Render("No medical records yet.")}
	}

	lines := make([]string, 0, len(records))
	for _, r := range records {
		line := fmt.Sprintf("#%-4d %s  %s", r.ID, formatDate(r.CreatedAt), orDash(r.Symptoms))
		meta := []string{}
		if r.Severity != "" {
			meta = append(meta, r.Severity)
		}
		if r.Duration != "" {
			meta = append(meta, r.Duration)
		}
		if r.AnalyzedByDoctor {
			meta = append(meta, "reviewed")
		}
		if len(meta) > 0 {
			line = s.detail.Render(line) + "  " + s.meta.Render(strings.Join(meta, ", "))
		} else {
			line = s.detail.Render(line)
		}
		lines = append(lines, line)
	}
	return lines
}

func predictionLines(predictions []domain.Prediction, withPatient bool, s styles) []string {
	if len(predictions) == 0 {
		return []string{s.empty.Render("No predictions yet.")}
	}

	lines := make([]string, 0, len(predictions))
	for _, p := range predictions {
		status := s.pending.Render("pending review")
		if p.DoctorApproved {
			status = s.approved.Render("approved")
		}

		parts := []string{
			s.detail.Render(fmt.Sprintf("#%-4d %s  %s", p.ID, formatDate(p.CreatedAt), orDash(p.PredictedDisease))),
			" ",
			confidenceBar(p.Confidence*100, s),
			" ",
			percentText(p.Confidence * 100),
			"  ",
			status,
		}
		if withPatient && p.PatientName != "" {
			parts = append(parts, "  ", s.meta.Render(p.PatientName))
		}
		lines = append(lines, lipgloss.JoinHorizontal(lipgloss.Top, parts...))
		if p.DoctorComments != "" {
			lines = append(lines, indent+s.meta.Render("comment: "+p.DoctorComments))
		}
	}
	return lines
}

func patientPageLines(page domain.PatientPage, s styles) []string {
	lines := []string{}
	if page.Search != "" {
		lines = append(lines, s.meta.Render("search: "+page.Search))
	}
	if len(page.Patients) == 0 {
		return append(lines, s.empty.Render("No patients found."))
	}

	width := 0
	for _, p := range page.Patients {
		width = max(width, len(p.DisplayName()))
	}
	for _, p := range page.Patients {
		lines = append(lines, s.detail.Render(fmt.Sprintf("#%-4d %-*s  %s", p.ID, width, p.DisplayName(), orDash(p.Email)))+
			"  "+s.meta.Render(fmt.Sprintf("records %d, predictions %d, last login %s", p.MedicalRecordsCount, p.PredictionsCount, formatDate(p.LastLogin))))
	}

	pg := page.Pagination
	if pg.TotalPages > 0 {
		lines = append(lines, s.header.Render(fmt.Sprintf("page %d/%d, %d patients", pg.CurrentPage, pg.TotalPages, pg.TotalPatients)))
	}
	return lines
}

func catalogLine(symptoms cache.Entity[[]string], diseases cache.Entity[[]string], s styles) string {
	if !symptoms.HasValue && !diseases.HasValue {
		return s.section.Render(s.empty.Render("Symptom catalog unavailable."))
	}
	return s.section.Render(s.meta.Render(fmt.Sprintf("catalog: %d known symptoms, %d diseases", len(symptoms.Value), len(diseases.Value))))
}

func confidenceBar(percent float64, s styles) string {
	pct := clampPercent(percent)
	filled := int(math.Round(float64(barWidth) * pct / 100))
	filled = min(max(filled, 0), barWidth)

	return lipgloss.JoinHorizontal(
		lipgloss.Top,
		s.barBracket.Render("["),
		s.barFill.Render(strings.Repeat("=", filled)),
		s.barEmpty.Render(strings.Repeat("-", barWidth-filled)),
		s.barBracket.Render("]"),
	)
}

func percentText(percent float64) string {
	pct := clampPercent(percent)
	return lipgloss.NewStyle().Foreground(interpolateColor(pct, 0, 100)).Render(fmt.Sprintf("%3.0f%%", pct))
}

func clampPercent(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 100 {
		return 100
	}
	return v
}

// interpolateColor maps value onto the 240..255 greyscale ramp.
func interpolateColor(value, lo, hi float64) lipgloss.Color {
	if hi == lo {
		return lipgloss.Color("255")
	}

	normalized := (value - lo) / (hi - lo)
	normalized = math.Min(math.Max(normalized, 0), 1)

	return lipgloss.Color(strconv.Itoa(int(240 + 15*normalized)))
}

func formatDate(t time.Time) string {
	if t.IsZero() {
		return "-"
	}
	return t.Format("2006-01-02")
}

func formatDateTime(t time.Time) string {
	if t.IsZero() {
		return "-"
	}
	return t.Format("2006-01-02 15:04")
}

func orDash(v string) string {
	if strings.TrimSpace(v) == "" {
		return "-"
	}
	return v
}

func joinOrDash(values []string) string {
	if len(values) == 0 {
		return "-"
	}
	return strings.Join(values, ", ")
}

func intOrEmpty(v int) string {
	if v == 0 {
		return ""
	}
	return strconv.Itoa(v)
}

func unitOrEmpty(v float64, unit string) string {
	if v == 0 {
		return ""
	}
	return strings.TrimSpace(strconv.FormatFloat(v, 'f', -1, 64) + " " + unit)
}

func pluralSuffix(n int, one string, many string) string {
	switch {
	case n == 0:
		return ""
	case n == 1:
		return one
	default:
		return many
	}
}
