// Package config resolves hc settings from defaults, ~/.healthcare/config.toml
// and HC_* environment variables.
package config

import (
	"errors"
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/viper"

	"github.com/bnema/healthcare-assistant-cli/internal/domain"
)

const (
	EnvPrefix = "HC"

	KeyAPIBaseURL        = "api.base_url"
	KeyAPITimeout        = "api.timeout"
	KeySeverityFormat    = "api.severity_format"
	KeyCacheStaleAfter   = "cache.stale_after"
	KeyDemoFallback      = "dashboard.demo_fallback"
	KeyLogLevel          = "log.level"
	KeyLogFormat         = "log.format"
	KeySessionPath       = "session.path"
	KeySecretsDir        = "secrets.dir"
	KeySecretsBackend    = "secrets.backend"
	KeyConfigFile        = "config.file"
	defaultConfigDirName = ".healthcare"
)

type Config struct {
	API       APIConfig
	Cache     CacheConfig
	Dashboard DashboardConfig
	Log       LogConfig
	Session   SessionConfig
	Secrets   SecretsConfig
	// File is the config file that was read, empty when none was found.
	File string
}

type APIConfig struct {
	BaseURL        string
	Timeout        time.Duration
	SeverityFormat domain.SeverityFormat
}

type CacheConfig struct {
	StaleAfter time.Duration
}

type DashboardConfig struct {
	DemoFallback bool
}

type LogConfig struct {
	Level  string
	Format string
}

type SessionConfig struct {
	Path string
}

type SecretsConfig struct {
	Dir     string
	Backend string
}

// SetDefaults registers every key so env overrides resolve through viper.
func SetDefaults(v *viper.Viper) {
	v.SetDefault(KeyAPIBaseURL, "http://localhost:8000/api")
	v.SetDefault(KeyAPITimeout, "15s")
	v.SetDefault(KeySeverityFormat, string(domain.SeverityFormatBucket))
	v.SetDefault(KeyCacheStaleAfter, "0s")
	v.SetDefault(KeyDemoFallback, true)
	v.SetDefault(KeyLogLevel, "warn")
	v.SetDefault(KeyLogFormat, "console")
	v.SetDefault(KeySessionPath, filepath.Join("~", defaultConfigDirName, "session.toml"))
	v.SetDefault(KeySecretsDir, filepath.Join("~", defaultConfigDirName, "secrets"))
	v.SetDefault(KeySecretsBackend, "auto")
}

// Load reads the optional config file, applies HC_ env overrides and
// validates the result. Resolved paths are written back into v so adapters
// sharing the same viper instance see them.
func Load(v *viper.Viper) (Config, error) {
	if v == nil {
		v = viper.New()
	}

	SetDefaults(v)
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	file, err := readConfigFile(v)
	if err != nil {
		return Config{}, err
	}

	timeout, err := duration(v, KeyAPITimeout)
	if err != nil {
		return Config{}, err
	}
	staleAfter, err := duration(v, KeyCacheStaleAfter)
	if err != nil {
		return Config{}, err
	}
	severityFormat, err := domain.ParseSeverityFormat(v.GetString(KeySeverityFormat))
	if err != nil {
		return Config{}, fmt.Errorf("%s: %w", KeySeverityFormat, err)
	}
	sessionPath, err := expandHome(v.GetString(KeySessionPath))
	if err != nil {
		return Config{}, fmt.Errorf("%s: %w", KeySessionPath, err)
	}
	secretsDir, err := expandHome(v.GetString(KeySecretsDir))
	if err != nil {
		return Config{}, fmt.Errorf("%s: %w", KeySecretsDir, err)
	}
	v.Set(KeySessionPath, sessionPath)
	v.Set(KeySecretsDir, secretsDir)

	cfg := Config{
		API: APIConfig{
			BaseURL:        strings.TrimSpace(v.GetString(KeyAPIBaseURL)),
			Timeout:        timeout,
			SeverityFormat: severityFormat,
		},
		Cache:     CacheConfig{StaleAfter: staleAfter},
		Dashboard: DashboardConfig{DemoFallback: v.GetBool(KeyDemoFallback)},
		Log: LogConfig{
			Level:  strings.ToLower(strings.TrimSpace(v.GetString(KeyLogLevel))),
			Format: strings.ToLower(strings.TrimSpace(v.GetString(KeyLogFormat))),
		},
		Session: SessionConfig{Path: sessionPath},
		Secrets: SecretsConfig{
			Dir:     secretsDir,
			Backend: strings.ToLower(strings.TrimSpace(v.GetString(KeySecretsBackend))),
		},
		File: file,
	}

	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func (c Config) Validate() error {
	var errs []error

	if c.API.BaseURL == "" {
		errs = append(errs, fmt.Errorf("%s is required", KeyAPIBaseURL))
	} else if parsed, err := url.Parse(c.API.BaseURL); err != nil || (parsed.Scheme != "http" && parsed.Scheme != "https") || parsed.Host == "" {
		errs = append(errs, fmt.Errorf("%s must be an absolute http(s) url, got %q", KeyAPIBaseURL, c.API.BaseURL))
	}
	if c.API.Timeout <= 0 {
		errs = append(errs, fmt.Errorf("%s must be positive", KeyAPITimeout))
	}
	if c.Cache.StaleAfter < 0 {
		errs = append(errs, fmt.Errorf("%s must not be negative", KeyCacheStaleAfter))
	}
	switch c.Log.Level {
	case "debug", "info", "warn", "error":
	default:
		errs = append(errs, fmt.Errorf("%s must be debug, info, warn or error, got %q", KeyLogLevel, c.Log.Level))
	}
	switch c.Log.Format {
	case "console", "json":
	default:
		errs = append(errs, fmt.Errorf("%s must be console or json, got %q", KeyLogFormat, c.Log.Format))
	}
	switch c.Secrets.Backend {
	case "auto", "file", "pass":
	default:
		errs = append(errs, fmt.Errorf("%s must be auto, file or pass, got %q", KeySecretsBackend, c.Secrets.Backend))
	}

	return errors.Join(errs...)
}

// readConfigFile honours config.file / HC_CONFIG_FILE and otherwise looks for
// ~/.healthcare/config.toml. A missing default file is not an error.
func readConfigFile(v *viper.Viper) (string, error) {
	explicit := strings.TrimSpace(v.GetString(KeyConfigFile))
	if explicit != "" {
		path, err := expandHome(explicit)
		if err != nil {
			return "", err
		}
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return "", fmt.Errorf("read config file %s: %w", path, err)
		}
		return path, nil
	}

	home, err := os.UserHomeDir()
	if err != nil {
		return "", nil
	}
	path := filepath.Join(home, defaultConfigDirName, "config.toml")
	if _, err := os.Stat(path); err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return "", nil
		}
		return "", fmt.Errorf("stat config file %s: %w", path, err)
	}
	v.SetConfigFile(path)
	if err := v.ReadInConfig(); err != nil {
		return "", fmt.Errorf("read config file %s: %w", path, err)
	}
	return path, nil
}

func duration(v *viper.Viper, key string) (time.Duration, error) {
	raw := strings.TrimSpace(v.GetString(key))
	if raw == "" || raw == "0" {
		return 0, nil
	}
	d, err := time.ParseDuration(raw)
	if err != nil {
		return 0, fmt.Errorf("%s: %w", key, err)
	}
	return d, nil
}

func expandHome(path string) (string, error) {
	path = strings.TrimSpace(path)
	if path != "~" && !strings.HasPrefix(path, "~/") {
		return path, nil
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("resolve home directory: %w", err)
	}
	return filepath.Join(home, strings.TrimPrefix(path, "~")), nil
}
