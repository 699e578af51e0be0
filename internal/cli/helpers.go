package cli

import (
	"fmt"
	"os"

	"github.com/cperrin88/mcfetch/internal/logger"
	"github.com/cperrin88/mcfetch/pkg/config"
	"github.com/cperrin88/mcfetch/pkg/orchestrator"
)

// These variables will be set by the main package
var (
	ConfigPath  *string
	Verbose     *bool
	LogFormat   *string
	MetricsAddr *string
	NoProgress  *bool
)

func getConfigPath() string {
	if ConfigPath != nil && *ConfigPath != "" {
		return *ConfigPath
	}

	defaultPath, err := config.GetDefaultConfigPath()
	if err != nil {
		// an empty path makes the following load or save fail with a descriptive error
		logger.Warn("Failed to get default config path, using empty path", logger.Fields{"error": err.Error()})
		return ""
	}
	return defaultPath
}

// loadConfig loads the configuration file and applies the global flags.
func loadConfig() (*config.Config, error) {
	cfg, err := config.LoadConfig(getConfigPath())
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}
	if Verbose != nil && *Verbose {
		cfg.Settings.LogLevel = "debug"
	}
	initLogging(cfg.Settings.LogLevel)
	return cfg, nil
}

func initLogging(level string) {
	format := logger.FormatText
	if LogFormat != nil && *LogFormat == string(logger.FormatJSON) {
		format = logger.FormatJSON
	}
	logger.InitLogger(level, format)
}

// settingsProvider returns a provider that follows edits of the config file
// when one exists, and the loaded snapshot otherwise.
func settingsProvider(cfg *config.Config) config.Provider {
	path := getConfigPath()
	// the verbose flag overrides the file
	if path == "" || (Verbose != nil && *Verbose) {
		return config.Static(cfg.Settings)
	}
	if _, err := os.Stat(path); err != nil {
		return config.Static(cfg.Settings)
	}
	provider, err := config.NewFileProvider(path)
	if err != nil {
		return config.Static(cfg.Settings)
	}
	return provider
}

// session is an orchestrator wired to the terminal for one command.
type session struct {
	orch     *orchestrator.Orchestrator
	cfg      *config.Config
	progress *progressView
	stop     func()
}

func (s *session) Close() {
	s.progress.Finish()
	s.stop()
}

// newSession loads the configuration and builds an orchestrator reporting to
// stderr. The metrics endpoint, when requested, runs until Close.
func newSession() (*session, error) {
	cfg, err := loadConfig()
	if err != nil {
		return nil, err
	}

	view := newProgressView(os.Stderr, NoProgress == nil || !*NoProgress)
	orch, err := orchestrator.New(settingsProvider(cfg), nil, orchestrator.Hooks{
		OnEvent:    view.OnEvent,
		OnProgress: view.OnProgress,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create download engine: %w", err)
	}

	stop := func() {}
	if MetricsAddr != nil && *MetricsAddr != "" {
		stop, err = startMetricsServer(*MetricsAddr)
		if err != nil {
			return nil, err
		}
	}

	return &session{orch: orch, cfg: cfg, progress: view, stop: stop}, nil
}
