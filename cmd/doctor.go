package cmd

import (
	"context"
	"fmt"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/bnema/healthcare-assistant-cli/internal/adapters/metrics"
	"github.com/bnema/healthcare-assistant-cli/internal/adapters/render/dashboard"
	"github.com/bnema/healthcare-assistant-cli/internal/application"
	"github.com/bnema/healthcare-assistant-cli/internal/domain"
)

const defaultPatientPageSize = 10

func newDoctorCmd(app *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "doctor",
		Short: "Doctor dashboard, patients and prediction reviews",
	}

	profileCmd := &cobra.Command{
		Use:   "profile",
		Short: "Manage the doctor profile",
	}
	profileCmd.AddCommand(newDoctorProfileUpdateCmd(app))

	cmd.AddCommand(
		newDoctorDashboardCmd(app),
		newDoctorPatientsCmd(app),
		newDoctorPatientCmd(app),
		newDoctorApproveCmd(app),
		newDoctorAnalyzeCmd(app),
		profileCmd,
	)

	return cmd
}

func openDoctorDashboard(cmd *cobra.Command, app *app, recorder *metrics.Recorder) (*application.DoctorDashboard, error) {
	session, err := currentSession(cmd, app, domain.RoleDoctor)
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

	return application.NewDoctorDashboard(session, backend, c, app.dashboardOptions()...)
}

// patientQueryFlags select the page of the patient list.
type patientQueryFlags struct {
	search   string
	page     int
	pageSize int
}

func (f *patientQueryFlags) bind(cmd *cobra.Command) {
	cmd.Flags().StringVar(&f.search, "search", "", "Filter patients by name, username or email")
	cmd.Flags().IntVar(&f.page, "page", 1, "Patient list page")
	cmd.Flags().IntVar(&f.pageSize, "page-size", defaultPatientPageSize, "Patients per page (1-100)")
}

// apply loads the patient list for the flags; the list is fetched once.
func (f patientQueryFlags) apply(ctx context.Context, d *application.DoctorDashboard) error {
	d.SetPageSize(f.pageSize)
	return d.SearchPatients(ctx, f.search, f.page)
}

func newDoctorDashboardCmd(app *app) *cobra.Command {
	var flags viewFlags
	var query patientQueryFlags

	cmd := &cobra.Command{
		Use:   "dashboard",
		Short: "Show profile, patients, statistics and recent predictions",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			recorder := flags.recorder()
			d, err := openDoctorDashboard(cmd, app, recorder)
			if err != nil {
				return err
			}

			if err := runFetch(cmd, flags.asJSON, "Loading doctor dashboard...", func(ctx context.Context) error {
				if err := query.apply(ctx, d); err != nil {
					return err
				}
				return d.Activate(ctx)
			}); err != nil {
				return err
			}

			snapshot := d.Snapshot()
			if flags.asJSON {
				if err := writeJSON(cmd.OutOrStdout(), snapshot); err != nil {
					return err
				}
			} else {
				rendered, err := dashboard.RenderDoctor(snapshot, app.policy(flags.noDemo))
				if err := writeRendered(cmd, rendered, err); err != nil {
					return err
				}
			}
			return writeMetrics(cmd.OutOrStdout(), recorder)
		},
	}

	flags.bind(cmd)
	query.bind(cmd)

	return cmd
}

func newDoctorPatientsCmd(app *app) *cobra.Command {
	var flags viewFlags
	var query patientQueryFlags

	cmd := &cobra.Command{
		Use:   "patients",
		Short: "List and search patients",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			recorder := flags.recorder()
			d, err := openDoctorDashboard(cmd, app, recorder)
			if err != nil {
				return err
			}

			if err := runFetch(cmd, flags.asJSON, "Loading patients...", func(ctx context.Context) error {
				return query.apply(ctx, d)
			}); err != nil {
				return err
			}

			patients := d.Snapshot().Patients
			if flags.asJSON {
				if err := writeJSON(cmd.OutOrStdout(), patients); err != nil {
					return err
				}
			} else {
				rendered, err := dashboard.RenderPatientList(patients, app.policy(flags.noDemo))
				if err := writeRendered(cmd, rendered, err); err != nil {
					return err
				}
			}
			return writeMetrics(cmd.OutOrStdout(), recorder)
		},
	}

	flags.bind(cmd)
	query.bind(cmd)

	return cmd
}

func newDoctorPatientCmd(app *app) *cobra.Command {
	var flags viewFlags

	cmd := &cobra.Command{
		Use:   "patient <patient-id>",
		Short: "Show one patient with their predictions",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseID(args[0], "patient id")
			if err != nil {
				return err
			}

			recorder := flags.recorder()
			d, err := openDoctorDashboard(cmd, app, recorder)
			if err != nil {
				return err
			}

			var view application.PatientView
			if err := runFetch(cmd, flags.asJSON, "Loading patient...", func(ctx context.Context) error {
				var err error
				view, err = d.SelectPatient(ctx, domain.UserID(id))
				return err
			}); err != nil {
				return err
			}

			if flags.asJSON {
				if err := writeJSON(cmd.OutOrStdout(), view); err != nil {
					return err
				}
			} else {
				rendered, err := dashboard.RenderPatientDetail(view, app.policy(flags.noDemo))
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

func newDoctorApproveCmd(app *app) *cobra.Command {
	var patientID int64
	var reject bool
	var approval domain.Approval

	cmd := &cobra.Command{
		Use:   "approve <prediction-id>",
		Short: "Approve or reject a prediction",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			predictionID, err := parseID(args[0], "prediction id")
			if err != nil {
				return err
			}

			d, err := openDoctorDashboard(cmd, app, nil)
			if err != nil {
				return err
			}

			approval.Approved = !reject
			result, err := d.Approve(cmd.Context(), domain.UserID(patientID), domain.PredictionID(predictionID), approval)
			if err != nil {
				return err
			}

			message := result.Message
			if message == "" {
				message = "Prediction reviewed"
			}
			_, err = fmt.Fprintf(cmd.OutOrStdout(), "%s (prediction #%d, approved: %t)\n", message, predictionID, result.Approved)
			return err
		},
	}

	cmd.Flags().Int64Var(&patientID, "patient", 0, "Patient the prediction belongs to")
	cmd.Flags().BoolVar(&reject, "reject", false, "Reject instead of approving")
	cmd.Flags().StringVar(&approval.Comments, "comments", "", "Comments shown to the patient")
	cmd.Flags().StringVar(&approval.DoctorNotes, "notes", "", "Private doctor notes")

	return cmd
}

func newDoctorAnalyzeCmd(app *app) *cobra.Command {
	var flags draftFlags
	var view viewFlags

	cmd := &cobra.Command{
		Use:   "analyze <patient-id>",
		Short: "Run a symptom analysis for a patient",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseID(args[0], "patient id")
			if err != nil {
				return err
			}
			patientID := domain.UserID(id)

			draft, err := flags.draft()
			if err != nil {
				return err
			}

			d, err := openDoctorDashboard(cmd, app, nil)
			if err != nil {
				return err
			}

			name := fmt.Sprintf("Patient #%d", patientID)
			var analysis domain.Analysis
			analyzeErr := runFetch(cmd, view.asJSON, "Analyzing symptoms...", func(ctx context.Context) error {
				selected, err := d.SelectPatient(ctx, patientID)
				if err != nil {
					return err
				}
				if selected.Detail.HasValue {
					name = selected.Detail.Value.DisplayName()
				}
				analysis, err = d.RunAnalysis(ctx, patientID, draft)
				return err
			})

			analysis, demo, err := analysisOrDemo(cmd, analysis, analyzeErr, app.policy(view.noDemo), name, draft)
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

func newDoctorProfileUpdateCmd(app *app) *cobra.Command {
	var profile domain.DoctorProfile

	cmd := &cobra.Command{
		Use:   "update",
		Short: "Update the doctor profile",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			d, err := openDoctorDashboard(cmd, app, nil)
			if err != nil {
				return err
			}

			updated, err := d.UpdateProfile(cmd.Context(), profile)
			if err != nil {
				return err
			}
			_, err = fmt.Fprintf(cmd.OutOrStdout(), "Profile updated for %s (%s)\n", updated.DisplayName(), orUnset(updated.Specialization))
			return err
		},
	}

	cmd.Flags().StringVar(&profile.FirstName, "first-name", "", "First name")
	cmd.Flags().StringVar(&profile.LastName, "last-name", "", "Last name")
	cmd.Flags().StringVar(&profile.Email, "email", "", "Email address")
	cmd.Flags().StringVar(&profile.Specialization, "specialization", "", "Medical specialization")
	cmd.Flags().StringVar(&profile.LicenseNumber, "license", "", "License number")
	cmd.Flags().IntVar(&profile.YearsOfExperience, "years", 0, "Years of experience")
	cmd.Flags().StringVar(&profile.HospitalAffiliation, "hospital", "", "Hospital affiliation")
	cmd.Flags().StringVar(&profile.Phone, "phone", "", "Phone number")

	return cmd
}

func parseID(raw string, what string) (int64, error) {
	id, err := strconv.ParseInt(raw, 10, 64)
	if err != nil || id <= 0 {
		return 0, fmt.Errorf("invalid %s %q", what, raw)
	}
	return id, nil
}
