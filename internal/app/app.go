package app

import (
	"context"
	"fmt"
	"path/filepath"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"ipdash/internal/api"
	"ipdash/internal/config"
	"ipdash/internal/dashboard"
	"ipdash/internal/logging"
	"ipdash/internal/paths"
	"ipdash/internal/storage"
	"ipdash/internal/storage/sqlite"
)

// Version is set at build time.
var Version = "dev"

// Options are the inputs resolved from the command line.
type Options struct {
	ConfigFile string
	DBPath     string
	// Overrides are setting values given as flags; they win over everything.
	Overrides map[string]string
	// Verbose mirrors log output to stderr. The TUI never sets it.
	Verbose bool
}

// App represents the application context
type App struct {
	Storage storage.Storage
	Config  config.Config
	Client  *api.Client
	Logger  *zap.Logger

	ConfigFile string
	DBPath     string
	LogFile    string

	overrides map[string]string
}

// New resolves configuration (defaults, YAML file, stored settings, flags),
// opens storage and builds the API client.
func New(opts Options) (*App, error) {
	configFile := opts.ConfigFile
	required := configFile != ""
	if configFile == "" {
		var err error
		if configFile, err = paths.DefaultConfigFile(); err != nil {
			return nil, fmt.Errorf("failed to resolve config directory: %w", err)
		}
	}
	cfg, err := config.Load(configFile, required)
	if err != nil {
		return nil, err
	}

	dbPath := opts.DBPath
	if dbPath == "" {
		if dbPath, err = paths.DefaultDBPath(); err != nil {
			return nil, fmt.Errorf("failed to resolve data directory: %w", err)
		}
	}
	store, err := sqlite.New(dbPath)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize storage: %w", err)
	}

	a := &App{
		Storage:    store,
		ConfigFile: configFile,
		DBPath:     dbPath,
		overrides:  opts.Overrides,
	}
	if err := a.resolve(context.Background(), cfg); err != nil {
		store.Close()
		return nil, err
	}

	cacheDir, err := paths.CacheDir()
	if err != nil {
		store.Close()
		return nil, fmt.Errorf("failed to resolve cache directory: %w", err)
	}
	a.LogFile = filepath.Join(cacheDir, logging.FileName)
	a.Logger, err = buildLogger(cacheDir, a.Config.LogLevel, opts.Verbose)
	if err != nil {
		store.Close()
		return nil, err
	}

	if err := a.buildClient(); err != nil {
		a.Close()
		return nil, err
	}
	a.Logger.Debug("app initialized",
		zap.String("server", a.Config.ServerURL),
		zap.String("config_file", configFile),
		zap.String("db", dbPath))
	return a, nil
}

func buildLogger(dir, level string, verbose bool) (*zap.Logger, error) {
	file, err := logging.New(dir, level)
	if err != nil {
		return nil, err
	}
	if !verbose {
		return file, nil
	}
	console, err := logging.Console(level)
	if err != nil {
		return nil, err
	}
	return zap.New(zapcore.NewTee(file.Core(), console.Core())), nil
}

// resolve layers stored settings and flag overrides over base.
func (a *App) resolve(ctx context.Context, base config.Config) error {
	stored, err := a.Storage.GetAllSettings(ctx)
	if err != nil {
		return fmt.Errorf("failed to load settings: %w", err)
	}
	if err := base.ApplyAll(stored); err != nil {
		return err
	}
	for key, value := range a.overrides {
		if err := base.Apply(key, value); err != nil {
			return err
		}
	}
	if err := base.Validate(); err != nil {
		return err
	}
	a.Config = base
	return nil
}

func (a *App) buildClient() error {
	cfg := api.DefaultClientConfig()
	cfg.BaseURL = a.Config.ServerURL
	cfg.Timeout = a.Config.RequestTimeout.D()
	cfg.UserAgent = "ipdash/" + Version
	cfg.Logger = a.Logger
	client, err := api.NewClient(cfg)
	if err != nil {
		return fmt.Errorf("failed to create api client: %w", err)
	}
	a.Client = client
	return nil
}

// ControllerOptions maps the resolved configuration onto controller options
// with history recording and logging wired in.
func (a *App) ControllerOptions() dashboard.Options {
	opts := dashboard.OptionsFromConfig(a.Config)
	opts.History = a.Storage
	opts.Logger = a.Logger
	return opts
}

// NewController wires a dashboard controller to view.
func (a *App) NewController(view dashboard.View) (*dashboard.Controller, error) {
	return dashboard.New(a.Client, view, a.ControllerOptions())
}

// SetSetting validates value against the current configuration, persists it
// and rebuilds the client. Flag overrides still take precedence afterwards.
func (a *App) SetSetting(ctx context.Context, key, value string) error {
	next := a.Config
	if err := next.Apply(key, value); err != nil {
		return err
	}
	if err := next.Validate(); err != nil {
		return err
	}
	canonical, err := next.Get(key)
	if err != nil {
		return err
	}
	if err := a.Storage.SetSetting(ctx, key, canonical); err != nil {
		return err
	}

	base, err := config.Load(a.ConfigFile, false)
	if err != nil {
		return err
	}
	if err := a.resolve(ctx, base); err != nil {
		return err
	}
	if key == config.KeyServerURL || key == config.KeyRequestTimeout {
		return a.buildClient()
	}
	return nil
}

// Close closes the application and releases resources
func (a *App) Close() error {
	if a.Logger != nil {
		a.Logger.Sync()
	}
	if a.Storage != nil {
		return a.Storage.Close()
	}
	return nil
}
