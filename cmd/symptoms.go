package cmd

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/bnema/healthcare-assistant-cli/internal/application"
	"github.com/bnema/healthcare-assistant-cli/internal/cache"
	"github.com/bnema/healthcare-assistant-cli/internal/domain"
)

func newSymptomsCmd(app *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "symptoms",
		Short: "Browse the symptom and disease catalog",
	}

	cmd.AddCommand(
		newCatalogListCmd(app, "list", "List known symptoms", (*application.Catalog).Symptoms),
		newCatalogListCmd(app, "diseases", "List diseases the model can predict", (*application.Catalog).Diseases),
		newSymptomsSuggestCmd(app),
	)

	return cmd
}

// openCatalog uses the stored session when there is one; the catalog endpoints
// also answer anonymous requests.
func openCatalog(cmd *cobra.Command, app *app) (*application.Catalog, error) {
	session, err := app.sessions.Current(cmd.Context())
	if err != nil && !errors.Is(err, domain.ErrNotLoggedIn) {
		return nil, err
	}

	backend, err := app.backend(session)
	if err != nil {
		return nil, err
	}

	c := app.newCache(nil)
	cmd.PostRunE = func(cmd *cobra.Command, _ []string) error {
		return c.Drain(cmd.Context())
	}
	return application.NewCatalog(backend, c)
}

func newCatalogListCmd(app *app, use string, short string, load func(*application.Catalog, context.Context) (cache.Entity[[]string], error)) *cobra.Command {
	var asJSON bool

	cmd := &cobra.Command{
		Use:   use,
		Short: short,
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			catalog, err := openCatalog(cmd, app)
			if err != nil {
				return err
			}

			entity, err := load(catalog, cmd.Context())
			if err != nil {
				return err
			}
			if entity.Err != nil {
				return entity.Err
			}
			return writeList(cmd, entity.Value, asJSON)
		},
	}

	cmd.Flags().BoolVar(&asJSON, "json", false, "Render JSON output")

	return cmd
}

func newSymptomsSuggestCmd(app *app) *cobra.Command {
	var asJSON bool

	cmd := &cobra.Command{
		Use:   "suggest <text>",
		Short: "Complete the symptom being typed (text after the last comma)",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			catalog, err := openCatalog(cmd, app)
			if err != nil {
				return err
			}

			suggestions, err := catalog.Suggest(cmd.Context(), strings.Join(args, " "))
			if err != nil {
				return err
			}
			return writeList(cmd, suggestions, asJSON)
		},
	}

	cmd.Flags().BoolVar(&asJSON, "json", false, "Render JSON output")

	return cmd
}

func writeList(cmd *cobra.Command, items []string, asJSON bool) error {
	if asJSON {
		return writeJSON(cmd.OutOrStdout(), items)
	}
	for _, item := range items {
		if _, err := fmt.Fprintln(cmd.OutOrStdout(), item); err != nil {
			return err
		}
	}
	return nil
}
