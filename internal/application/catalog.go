package application

import (
	"context"
	"errors"
	"fmt"

	"github.com/bnema/healthcare-assistant-cli/internal/cache"
	"github.com/bnema/healthcare-assistant-cli/internal/ports"
)

// Catalog serves the symptom and disease lists to either role.
type Catalog struct {
	api      ports.CatalogAPI
	symptoms cache.Handle[[]string]
	diseases cache.Handle[[]string]
}

func NewCatalog(api ports.CatalogAPI, c *cache.Cache) (*Catalog, error) {
	catalog := &Catalog{api: api}

	var errs []error
	catalog.symptoms = register[[]string](c, ResourceSymptoms, api.Symptoms, &errs)
	catalog.diseases = register[[]string](c, ResourceDiseases, api.Diseases, &errs)
	if err := errors.Join(errs...); err != nil {
		return nil, fmt.Errorf("register catalog resources: %w", err)
	}
	return catalog, nil
}

func (c *Catalog) Symptoms(ctx context.Context) (cache.Entity[[]string], error) {
	return c.symptoms.LoadAndWait(ctx)
}

func (c *Catalog) Diseases(ctx context.Context) (cache.Entity[[]string], error) {
	return c.diseases.LoadAndWait(ctx)
}

func (c *Catalog) Suggest(ctx context.Context, input string) ([]string, error) {
	return suggestSymptoms(ctx, c.api, input)
}
