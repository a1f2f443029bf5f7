// Package dashboard renders dashboard snapshots for the terminal.
package dashboard

import (
	"errors"
	"io"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/bnema/healthcare-assistant-cli/internal/application"
	"github.com/bnema/healthcare-assistant-cli/internal/cache"
	"github.com/bnema/healthcare-assistant-cli/internal/domain"
)

var ErrUnexpectedRenderModel = errors.New("unexpected final bubbletea model type")

type renderReadyMsg struct{}

type model struct {
	view   func(styles) string
	styles styles
	output string
}

func newModel(view func(styles) string) model {
	return model{view: view, styles: newStyles()}
}

func (m model) Init() tea.Cmd {
	return func() tea.Msg {
		return renderReadyMsg{}
	}
}

func (m model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg.(type) {
	case renderReadyMsg:
		m.output = m.view(m.styles)
		return m, tea.Quit
	default:
		return m, nil
	}
}

func (m model) View() string {
	return m.output
}

func render(view func(styles) string) (string, error) {
	p := tea.NewProgram(
		newModel(view),
		tea.WithInput(nil),
		tea.WithOutput(io.Discard),
	)

	finalModel, err := p.Run()
	if err != nil {
		return "", err
	}

	rendered, ok := finalModel.(model)
	if !ok {
		return "", ErrUnexpectedRenderModel
	}

	return rendered.View(), nil
}

func RenderPatient(snapshot application.PatientSnapshot, policy Policy) (string, error) {
	return render(func(s styles) string { return patientView(snapshot, policy, s) })
}

func RenderDoctor(snapshot application.DoctorSnapshot, policy Policy) (string, error) {
	return render(func(s styles) string { return doctorView(snapshot, policy, s) })
}

func RenderPatientDetail(view application.PatientView, policy Policy) (string, error) {
	return render(func(s styles) string { return patientDetailView(view, policy, s) })
}

// RenderPredictions renders one prediction list, such as a patient's history.
func RenderPredictions(title string, entity cache.Entity[[]domain.Prediction], withPatient bool, policy Policy) (string, error) {
	return render(func(s styles) string { return predictionsView(title, entity, withPatient, policy, s) })
}

func RenderPatientList(entity cache.Entity[domain.PatientPage], policy Policy) (string, error) {
	return render(func(s styles) string { return patientListView(entity, policy, s) })
}

// RenderAnalysis renders a prediction result; demo marks sample output.
func RenderAnalysis(analysis domain.Analysis, demo bool) (string, error) {
	return render(func(s styles) string { return analysisView(analysis, demo, s) })
}
