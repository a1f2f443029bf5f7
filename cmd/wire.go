package cmd

import (
	"fmt"
	"net/http"
	"os"

	"github.com/spf13/viper"
	"go.uber.org/zap"

	"github.com/bnema/healthcare-assistant-cli/internal/adapters/api"
	"github.com/bnema/healthcare-assistant-cli/internal/adapters/metrics"
	"github.com/bnema/healthcare-assistant-cli/internal/adapters/render/dashboard"
	tomlrepo "github.com/bnema/healthcare-assistant-cli/internal/adapters/repo/toml"
	chainstore "github.com/bnema/healthcare-assistant-cli/internal/adapters/secrets/chain"
	"github.com/bnema/healthcare-assistant-cli/internal/application"
	"github.com/bnema/healthcare-assistant-cli/internal/cache"
	"github.com/bnema/healthcare-assistant-cli/internal/config"
	"github.com/bnema/healthcare-assistant-cli/internal/domain"
	"github.com/bnema/healthcare-assistant-cli/internal/logging"
	"github.com/bnema/healthcare-assistant-cli/internal/ports"
)

type app struct {
	cfg        config.Config
	logger     *zap.Logger
	sessions   *application.SessionService
	httpClient *http.Client
	clock      ports.Clock
}

func wireApp() (*app, error) {
	v := viper.New()
	cfg, err := config.Load(v)
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}

	logger, err := logging.New(cfg.Log.Level, cfg.Log.Format, os.Stderr)
	if err != nil {
		return nil, fmt.Errorf("wire logger: %w", err)
	}

	repo, err := tomlrepo.NewSessionRepository(v)
	if err != nil {
		return nil, fmt.Errorf("wire session repository: %w", err)
	}

	secretStore, err := chainstore.ForBackend(cfg.Secrets.Backend, cfg.Secrets.Dir, logger)
	if err != nil {
		return nil, fmt.Errorf("wire secret store: %w", err)
	}

	httpClient := http.DefaultClient
	auth := api.Authenticator{Options: []api.Option{
		api.WithHTTPClient(httpClient),
		api.WithTimeout(cfg.API.Timeout),
	}}

	return &app{
		cfg:        cfg,
		logger:     logger,
		sessions:   application.NewSessionService(auth, repo, secretStore, ports.SystemClock{}, logger),
		httpClient: httpClient,
		clock:      ports.SystemClock{},
	}, nil
}

// newCache builds the per-command resource cache; recorder may be nil.
func (a *app) newCache(recorder *metrics.Recorder) *cache.Cache {
	opts := []cache.Option{
		cache.WithStaleAfter(a.cfg.Cache.StaleAfter),
		cache.WithLogger(a.logger),
		cache.WithClock(a.clock),
	}
	if recorder != nil {
		opts = append(opts, cache.WithObserver(recorder))
	}
	return cache.New(opts...)
}

func (a *app) backend(session domain.Session) (*api.Backend, error) {
	baseURL := session.BaseURL
	if baseURL == "" {
		baseURL = a.cfg.API.BaseURL
	}

	client, err := api.New(
		api.Credentials{BaseURL: baseURL, Token: session.Token},
		api.WithHTTPClient(a.httpClient),
		api.WithTimeout(a.cfg.API.Timeout),
	)
	if err != nil {
		return nil, fmt.Errorf("wire api client: %w", err)
	}
	return api.NewBackend(client, a.cfg.API.SeverityFormat), nil
}

func (a *app) policy(noDemo bool) dashboard.Policy {
	return dashboard.Policy{
		DemoFallback: a.cfg.Dashboard.DemoFallback && !noDemo,
		StaleAfter:   a.cfg.Cache.StaleAfter,
		Now:          a.clock.Now(),
	}
}

func (a *app) dashboardOptions() []application.DashboardOption {
	return []application.DashboardOption{
		application.WithDashboardLogger(a.logger),
		application.WithDashboardClock(a.clock),
	}
}
