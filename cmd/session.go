package cmd

import (
	"bufio"
	"errors"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/bnema/healthcare-assistant-cli/internal/domain"
)

func newLoginCmd(app *app) *cobra.Command {
	var username string
	var password string
	var baseURL string

	cmd := &cobra.Command{
		Use:   "login",
		Short: "Sign in and store the session token",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if password == "" {
				read, err := readPassword(cmd)
				if err != nil {
					return err
				}
				password = read
			}

			session, err := app.sessions.Login(cmd.Context(), baseURL, username, password)
			if err != nil {
				return err
			}
			_, err = fmt.Fprintf(cmd.OutOrStdout(), "Signed in as %s (%s)\n", session.User.DisplayName(), session.User.Role)
			return err
		},
	}

	cmd.Flags().StringVar(&username, "username", "", "Account username")
	cmd.Flags().StringVar(&password, "password", "", "Account password (read from stdin when empty)")
	cmd.Flags().StringVar(&baseURL, "base-url", app.cfg.API.BaseURL, "Backend API base URL")
	_ = cmd.MarkFlagRequired("username")

	return cmd
}

func newRegisterCmd(app *app) *cobra.Command {
	var registration domain.Registration
	var role string
	var baseURL string

	cmd := &cobra.Command{
		Use:   "register",
		Short: "Create a patient or doctor account and sign in",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			parsed, err := domain.ParseRole(role)
			if err != nil {
				return err
			}
			registration.Role = parsed

			if registration.Password == "" {
				read, err := readPassword(cmd)
				if err != nil {
					return err
				}
				registration.Password = read
			}

			session, err := app.sessions.Register(cmd.Context(), baseURL, registration)
			if err != nil {
				return err
			}
			_, err = fmt.Fprintf(cmd.OutOrStdout(), "Registered and signed in as %s (%s)\n", session.User.DisplayName(), session.User.Role)
			return err
		},
	}

	cmd.Flags().StringVar(&registration.Username, "username", "", "Account username")
	cmd.Flags().StringVar(&registration.Email, "email", "", "Email address")
	cmd.Flags().StringVar(&registration.FirstName, "first-name", "", "First name")
	cmd.Flags().StringVar(&registration.LastName, "last-name", "", "Last name")
	cmd.Flags().StringVar(&registration.Password, "password", "", "Account password (read from stdin when empty)")
	cmd.Flags().StringVar(&role, "role", string(domain.RolePatient), "Account role: patient or doctor")
	cmd.Flags().StringVar(&baseURL, "base-url", app.cfg.API.BaseURL, "Backend API base URL")
	_ = cmd.MarkFlagRequired("username")
	_ = cmd.MarkFlagRequired("email")

	return cmd
}

func newLogoutCmd(app *app) *cobra.Command {
	return &cobra.Command{
		Use:   "logout",
		Short: "Forget the stored session and token",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			session, err := app.sessions.Logout(cmd.Context())
			if errors.Is(err, domain.ErrNotLoggedIn) {
				_, err = fmt.Fprintln(cmd.OutOrStdout(), "Not signed in")
				return err
			}
			if err != nil {
				return err
			}
			_, err = fmt.Fprintf(cmd.OutOrStdout(), "Signed out %s\n", session.User.Username)
			return err
		},
	}
}

func newWhoamiCmd(app *app) *cobra.Command {
	var asJSON bool

	cmd := &cobra.Command{
		Use:   "whoami",
		Short: "Show the signed-in user",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			session, err := app.sessions.Current(cmd.Context())
			if err != nil {
				return err
			}
			if asJSON {
				session.Token = ""
				return writeJSON(cmd.OutOrStdout(), session)
			}
			_, err = fmt.Fprintf(cmd.OutOrStdout(), "%s (%s) on %s\n", session.User.DisplayName(), session.User.Role, session.BaseURL)
			return err
		},
	}

	cmd.Flags().BoolVar(&asJSON, "json", false, "Render JSON output")

	return cmd
}

func readPassword(cmd *cobra.Command) (string, error) {
	line, err := bufio.NewReader(cmd.InOrStdin()).ReadString('\n')
	password := strings.TrimRight(line, "\r\n")
	if password == "" {
		if err != nil {
			return "", fmt.Errorf("read password from stdin: %w", err)
		}
		return "", errors.New("password is required")
	}
	return password, nil
}

// currentSession loads the stored session and checks it belongs to role.
func currentSession(cmd *cobra.Command, app *app, role domain.Role) (domain.Session, error) {
	session, err := app.sessions.Current(cmd.Context())
	if err != nil {
		if errors.Is(err, domain.ErrNotLoggedIn) {
			return domain.Session{}, fmt.Errorf("%w: run hc login first", err)
		}
		return domain.Session{}, err
	}
	if session.User.Role != role {
		return domain.Session{}, fmt.Errorf("%w: %s is signed in as %s", domain.ErrWrongRole, session.User.Username, session.User.Role)
	}
	return session, nil
}
