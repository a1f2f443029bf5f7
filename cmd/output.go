package cmd

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"
	"time"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"
	"github.com/spf13/cobra"

	"github.com/bnema/healthcare-assistant-cli/internal/adapters/metrics"
	"github.com/bnema/healthcare-assistant-cli/internal/adapters/render/dashboard"
	"github.com/bnema/healthcare-assistant-cli/internal/domain"
)

// viewFlags are shared by every command that renders cached resources.
type viewFlags struct {
	asJSON      bool
	noDemo      bool
	withMetrics bool
}

func (f *viewFlags) bind(cmd *cobra.Command) {
	cmd.Flags().BoolVar(&f.asJSON, "json", false, "Render JSON output")
	cmd.Flags().BoolVar(&f.noDemo, "no-demo", false, "Never substitute demo data for resources that failed to load")
	cmd.Flags().BoolVar(&f.withMetrics, "metrics", false, "Print cache fetch statistics after the output")
}

func (f viewFlags) recorder() *metrics.Recorder {
	if !f.withMetrics {
		return nil
	}
	return metrics.NewRecorder()
}

// runFetch shows the spinner on stderr unless the output is JSON.
func runFetch(cmd *cobra.Command, asJSON bool, label string, fetch func(context.Context) error) error {
	if asJSON {
		return fetch(cmd.Context())
	}
	return runFetchSpinner(cmd.Context(), cmd.ErrOrStderr(), label, fetch)
}

func writeJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func writeRendered(cmd *cobra.Command, rendered string, err error) error {
	if err != nil {
		return fmt.Errorf("render output: %w", err)
	}
	_, err = fmt.Fprintln(cmd.OutOrStdout(), rendered)
	return err
}

func writeMetrics(w io.Writer, recorder *metrics.Recorder) error {
	if recorder == nil {
		return nil
	}

	stats, err := recorder.Summary()
	if err != nil {
		return fmt.Errorf("gather cache metrics: %w", err)
	}

	t := table.New().
		Border(lipgloss.NormalBorder()).
		Headers("resource", "ready", "failed", "discarded", "mutations", "fetch time")
	for _, s := range stats {
		t.Row(s.Resource, strconv.Itoa(s.Ready), strconv.Itoa(s.Failed), strconv.Itoa(s.Discarded),
			strconv.Itoa(s.Mutations), s.TotalDuration.Round(time.Millisecond).String())
	}
	_, err = fmt.Fprintln(w, t.String())
	return err
}

// draftFlags collect the medical record fields shared by record add and analyze.
type draftFlags struct {
	symptoms           string
	duration           string
	severity           string
	previousConditions string
	currentMedications string
	allergies          string
}

func (f *draftFlags) bind(cmd *cobra.Command) {
	cmd.Flags().StringVar(&f.symptoms, "symptoms", "", "Comma-separated symptoms")
	cmd.Flags().StringVar(&f.duration, "duration", "", "How long the symptoms have lasted")
	cmd.Flags().StringVar(&f.severity, "severity", "", "Severity 1-10 or mild, moderate, severe")
	cmd.Flags().StringVar(&f.previousConditions, "previous-conditions", "", "Previous medical conditions")
	cmd.Flags().StringVar(&f.currentMedications, "medications", "", "Current medications")
	cmd.Flags().StringVar(&f.allergies, "allergies", "", "Known allergies")
	_ = cmd.MarkFlagRequired("symptoms")
}

func (f draftFlags) draft() (domain.RecordDraft, error) {
	severity, err := domain.ParseSeverity(f.severity)
	if err != nil {
		return domain.RecordDraft{}, err
	}

	draft := domain.RecordDraft{
		Symptoms:           f.symptoms,
		Duration:           strings.TrimSpace(f.duration),
		Severity:           severity,
		PreviousConditions: strings.TrimSpace(f.previousConditions),
		CurrentMedications: strings.TrimSpace(f.currentMedications),
		Allergies:          strings.TrimSpace(f.allergies),
	}
	if err := draft.Validate(); err != nil {
		return domain.RecordDraft{}, err
	}
	return draft, nil
}

// analysisOrDemo replaces a failed backend prediction with the sample analysis
// when demo data is allowed. Input errors are always returned.
func analysisOrDemo(cmd *cobra.Command, analysis domain.Analysis, err error, policy dashboard.Policy, patientName string, draft domain.RecordDraft) (domain.Analysis, bool, error) {
	if err == nil {
		return analysis, false, nil
	}

	kind, _ := domain.ClassifyError(err)
	if kind == domain.ErrorKindUnknown || !policy.DemoFallback || errors.Is(err, context.Canceled) {
		return domain.Analysis{}, false, err
	}

	_, _ = fmt.Fprintf(cmd.ErrOrStderr(), "prediction failed (%v), showing demo analysis\n", err)
	return dashboard.DemoAnalysis(patientName, policy.Now, domain.SplitSymptoms(draft.Symptoms)), true, nil
}

func writeAnalysis(cmd *cobra.Command, analysis domain.Analysis, demo bool, asJSON bool) error {
	if asJSON {
		return writeJSON(cmd.OutOrStdout(), struct {
			Demo     bool
			Analysis domain.Analysis
		}{Demo: demo, Analysis: analysis})
	}
	rendered, err := dashboard.RenderAnalysis(analysis, demo)
	return writeRendered(cmd, rendered, err)
}
