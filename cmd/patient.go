package cmd

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/bnema/healthcare-assistant-cli/internal/adapters/metrics"
	"github.com/bnema/healthcare-assistant-cli/internal/adapters/render/dashboard"
	"github.com/bnema/healthcare-assistant-cli/internal/application"
	"github.com/bnema/healthcare-assistant-cli/internal/domain"
)

func newPatientCmd(app *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "patient",
		Short: "Patient dashboard, records and analyses",
	}

	profileCmd := &cobra.Command{
		Use:   "profile",
		Short: "Manage the patient profile",
	}
	profileCmd.AddCommand(newPatientProfileUpdateCmd(app))

	recordCmd := &cobra.Command{
		Use:   "record",
		Short: "Manage medical records",
	}
	recordCmd.AddCommand(newPatientRecordAddCmd(app))

	cmd.AddCommand(
		newPatientDashboardCmd(app),
		profileCmd,
		recordCmd,
		newPatientAnalyzeCmd(app),
		newPatientHistoryCmd(app),
	)

	return cmd
}

// openPatientDashboard wires a dashboard for the signed-in patient on a fresh cache.
func openPatientDashboard(cmd *cobra.Command, app *app, recorder *metrics.Recorder) (*application.PatientDashboard, error) {
	session, err := currentSession(cmd, app, domain.RolePatient)
	if err != nil {
		return nil, err
	}

	backend, err := app.backend(session)
	if err != nil {
		return nil, err
	}

	c := app.newCache(recorder)
	cmd.PostRunE = func(cmd *cobra.Command, _ []string) error {
		return c.Drain(cmd.Context())
	}

	return application.NewPatientDashboard(session, backend, c, app.dashboardOptions()...)
}

func newPatientDashboardCmd(app *app) *cobra.Command {
	var flags viewFlags

	cmd := &cobra.Command{
		Use:   "dashboard",
		Short: "Show profile, records, predictions and statistics",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			recorder := flags.recorder()
			d, err := openPatientDashboard(cmd, app, recorder)
			if err != nil {
				return err
			}

			if err := runFetch(cmd, flags.asJSON, "Loading patient dashboard...", d.Activate); err != nil {
				return err
			}

			snapshot := d.Snapshot()
			if flags.asJSON {
				if err := writeJSON(cmd.OutOrStdout(), snapshot); err != nil {
					return err
				}
			} else {
				rendered, err := dashboard.RenderPatient(snapshot, app.policy(flags.noDemo))
				if err := writeRendered(cmd, rendered, err); err != nil {
					return err
				}
			}
			return writeMetrics(cmd.OutOrStdout(), recorder)
		},
	}

	flags.bind(cmd)

	return cmd
}

func newPatientProfileUpdateCmd(app *app) *cobra.Command {
	var profile domain.PatientProfile

	cmd := &cobra.Command{
		Use:   "update",
		Short: "Replace the patient profile",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			d, err := openPatientDashboard(cmd, app, nil)
			if err != nil {
				return err
			}

			updated, err := d.UpdateProfile(cmd.Context(), profile)
			if err != nil {
				return err
			}
			_, err = fmt.Fprintf(cmd.OutOrStdout(), "Profile updated (blood type %s, %d cm, %d kg)\n",
				orUnset(updated.BloodType), int(updated.Height), int(updated.Weight))
			return err
		},
	}

	cmd.Flags().StringVar(&profile.DateOfBirth, "date-of-birth", "", "Date of birth (YYYY-MM-DD)")
	cmd.Flags().StringVar(&profile.Gender, "gender", "", "Gender")
	cmd.Flags().StringVar(&profile.Phone, "phone", "", "Phone number")
	cmd.Flags().StringVar(&profile.Address, "address", "", "Postal address")
	cmd.Flags().StringVar(&profile.EmergencyContact, "emergency-contact", "", "Emergency contact")
	cmd.Flags().StringVar(&profile.BloodType, "blood-type", "", "Blood type")
	cmd.Flags().Float64Var(&profile.Height, "height", 0, "Height in cm")
	cmd.Flags().Float64Var(&profile.Weight, "weight", 0, "Weight in kg")

	return cmd
}

func newPatientRecordAddCmd(app *app) *cobra.Command {
	var flags draftFlags

	cmd := &cobra.Command{
		Use:   "add",
		Short: "Create a medical record",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			draft, err := flags.draft()
			if err != nil {
				return err
			}

			d, err := openPatientDashboard(cmd, app, nil)
			if err != nil {
				return err
			}

			record, err := d.AddRecord(cmd.Context(), draft)
			if err != nil {
				return err
			}
			_, err = fmt.Fprintf(cmd.OutOrStdout(), "Created medical record #%d\n", record.ID)
			return err
		},
	}

	flags.bind(cmd)

	return cmd
}

func newPatientAnalyzeCmd(app *app) *cobra.Command {
	var flags draftFlags
	var view viewFlags

	cmd := &cobra.Command{
		Use:   "analyze",
		Short: "Run a symptom analysis",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			draft, err := flags.draft()
			if err != nil {
				return err
			}

			d, err := openPatientDashboard(cmd, app, view.recorder())
			if err != nil {
				return err
			}

			var analysis domain.Analysis
			analyzeErr := runFetch(cmd, view.asJSON, "Analyzing symptoms...", func(ctx context.Context) error {
				var err error
				analysis, err = d.Analyze(ctx, draft)
				return err
			})

			policy := app.policy(view.noDemo)
			analysis, demo, err := analysisOrDemo(cmd, analysis, analyzeErr, policy, d.Snapshot().User.DisplayName(), draft)
			if err != nil {
				return err
			}
			return writeAnalysis(cmd, analysis, demo, view.asJSON)
		},
	}

	flags.bind(cmd)
	cmd.Flags().BoolVar(&view.asJSON, "json", false, "Render JSON output")
	cmd.Flags().BoolVar(&view.noDemo, "no-demo", false, "Fail instead of showing a demo analysis when the prediction fails")

	return cmd
}

func newPatientHistoryCmd(app *app) *cobra.Command {
	var flags viewFlags

	cmd := &cobra.Command{
		Use:   "history",
		Short: "Show the prediction history",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			recorder := flags.recorder()
			d, err := openPatientDashboard(cmd, app, recorder)
			if err != nil {
				return err
			}

			if err := runFetch(cmd, flags.asJSON, "Loading prediction history...", func(ctx context.Context) error {
				_, err := d.History(ctx)
				return err
			}); err != nil {
				return err
			}

			history := d.Snapshot().PredictionHistory
			if flags.asJSON {
				if err := writeJSON(cmd.OutOrStdout(), history); err != nil {
					return err
				}
			} else {
				rendered, err := dashboard.RenderPredictions("Prediction history", history, false, app.policy(flags.noDemo))
				if err := writeRendered(cmd, rendered, err); err != nil {
					return err
				}
			}
			return writeMetrics(cmd.OutOrStdout(), recorder)
		},
	}

	flags.bind(cmd)

	return cmd
}

func orUnset(v string) string {
	if v == "" {
		return "unset"
	}
	return v
}
