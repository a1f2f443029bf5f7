package application

import (
	"context"
	"errors"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/bnema/healthcare-assistant-cli/internal/cache"
	"github.com/bnema/healthcare-assistant-cli/internal/domain"
	"github.com/bnema/healthcare-assistant-cli/internal/ports"
)

// Resource names shared by both dashboards.
const (
	ResourceProfile           = "profile"
	ResourceRecords           = "records"
	ResourcePredictionHistory = "predictionHistory"
	ResourceStatistics        = "statistics"
	ResourceSymptoms          = "symptoms"
	ResourceDiseases          = "diseases"
	ResourcePatients          = "patients"
	ResourceRecentPredictions = "recentPredictions"

	recentPredictionsLimit = 5
	minSuggestionLength    = 2
)

var ErrUnknownPatient = errors.New("patient has not been selected")

type DashboardOption func(*dashboardDeps)

type dashboardDeps struct {
	logger *zap.Logger
	clock  ports.Clock
}

func WithDashboardLogger(logger *zap.Logger) DashboardOption {
	return func(d *dashboardDeps) {
		if logger != nil {
			d.logger = logger
		}
	}
}

func WithDashboardClock(clock ports.Clock) DashboardOption {
	return func(d *dashboardDeps) {
		if clock != nil {
			d.clock = clock
		}
	}
}

func newDashboardDeps(opts []DashboardOption) dashboardDeps {
	deps := dashboardDeps{logger: zap.NewNop(), clock: ports.SystemClock{}}
	for _, opt := range opts {
		opt(&deps)
	}
	return deps
}

// waitable is the part of a cache handle that activation needs.
type waitable interface {
	Load(ctx context.Context) error
	Wait(ctx context.Context) error
}

// loadAll starts every fetch and waits until each one settles. Fetch failures
// stay on the entities; only ctx errors are returned.
func loadAll(ctx context.Context, handles ...waitable) error {
	for _, h := range handles {
		if err := h.Load(ctx); err != nil {
			return err
		}
	}

	group, groupCtx := errgroup.WithContext(ctx)
	for _, h := range handles {
		group.Go(func() error {
			return h.Wait(groupCtx)
		})
	}
	return group.Wait()
}

func register[T any](c *cache.Cache, name string, fetch cache.Fetcher[T], errs *[]error) cache.Handle[T] {
	handle, err := cache.Register(c, name, fetch)
	if err != nil {
		*errs = append(*errs, err)
	}
	return handle
}

func markApproved(predictions []domain.Prediction, id domain.PredictionID, result domain.ApprovalResult) []domain.Prediction {
	if predictions == nil {
		return nil
	}
	updated := make([]domain.Prediction, len(predictions))
	copy(updated, predictions)
	for i := range updated {
		if updated[i].ID == id {
			updated[i].DoctorApproved = result.Approved
			if result.Comments != "" {
				updated[i].DoctorComments = result.Comments
			}
		}
	}
	return updated
}
