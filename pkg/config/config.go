// Package config provides configuration management for mcfetch.
// It loads the download engine settings from YAML or TOML files, fills in
// defaults, validates them and exposes them to the engine as a read-only
// snapshot through Provider.
package config

import (
	"bytes"
	"fmt"
	"io"
	"net/url"
	"os"
	"path/filepath"
	"runtime"
	"strings"
	"time"

	"github.com/BurntSushi/toml"
	"github.com/cperrin88/mcfetch/pkg/errors"
	"github.com/cperrin88/mcfetch/pkg/fsutil"
	"github.com/cperrin88/mcfetch/pkg/platform"
	"gopkg.in/yaml.v3"
)

// Format is the on-disk encoding of a configuration file.
type Format string

const (
	FormatYAML Format = "yaml"
	FormatTOML Format = "toml"
)

// Config represents the application configuration.
type Config struct {
	Settings Settings `yaml:"settings" toml:"settings"`
}

// Settings is the snapshot consumed by the download engine.
type Settings struct {
	// GameDir is the root of the launcher directory layout.
	GameDir string `yaml:"game_dir,omitempty" toml:"game_dir,omitempty"`

	// Verification
	VerifyFiles bool `yaml:"verify_files" toml:"verify_files"`

	// Network settings
	MaxConcurrent     int           `yaml:"max_concurrent_downloads" toml:"max_concurrent_downloads"`
	RequestTimeout    time.Duration `yaml:"request_timeout" toml:"request_timeout"`
	ResourceTimeout   time.Duration `yaml:"resource_timeout" toml:"resource_timeout"`
	RequestsPerSecond float64       `yaml:"requests_per_second" toml:"requests_per_second"`
	Proxy             string        `yaml:"proxy,omitempty" toml:"proxy,omitempty"`
	UserAgent         string        `yaml:"user_agent" toml:"user_agent"`
	AssetBaseURL      string        `yaml:"asset_base_url" toml:"asset_base_url"`

	// Retry settings
	RetryAttempts  int           `yaml:"retry_attempts" toml:"retry_attempts"`
	RetryBaseDelay time.Duration `yaml:"retry_base_delay" toml:"retry_base_delay"`
	RetryMaxDelay  time.Duration `yaml:"retry_max_delay" toml:"retry_max_delay"`

	// Output settings
	LogLevel string `yaml:"log_level" toml:"log_level"` // error, warn, info, debug
}

// Default configuration values.
const (
	// DefaultMaxConcurrent is the default number of simultaneous transfers.
	DefaultMaxConcurrent = 8

	// MinMaxConcurrent and MaxMaxConcurrent bound max_concurrent_downloads.
	MinMaxConcurrent = 1
	MaxMaxConcurrent = 64

	// DefaultRequestTimeout bounds connecting and waiting for response headers.
	DefaultRequestTimeout = 30 * time.Second

	// DefaultResourceTimeout bounds a whole transfer.
	DefaultResourceTimeout = 10 * time.Minute

	DefaultRetryAttempts  = 3
	DefaultRetryBaseDelay = time.Second
	DefaultRetryMaxDelay  = 10 * time.Second

	DefaultAssetBaseURL = "https://resources.download.minecraft.net"
	DefaultUserAgent    = "mcfetch"

	// YAMLIndent is the number of spaces to use for YAML indentation.
	YAMLIndent = 2
)

// DefaultConfig returns a configuration with sensible defaults.
func DefaultConfig() *Config {
	dataDir, err := getUserDataDir()
	if err != nil {
		// Fallback to current directory if we can't determine user data dir
		dataDir = "."
	}

	return &Config{
		Settings: Settings{
			GameDir:         filepath.Join(dataDir, "mcfetch"),
			VerifyFiles:     true,
			MaxConcurrent:   DefaultMaxConcurrent,
			RequestTimeout:  DefaultRequestTimeout,
			ResourceTimeout: DefaultResourceTimeout,
			RetryAttempts:   DefaultRetryAttempts,
			RetryBaseDelay:  DefaultRetryBaseDelay,
			RetryMaxDelay:   DefaultRetryMaxDelay,
			UserAgent:       DefaultUserAgent,
			AssetBaseURL:    DefaultAssetBaseURL,
			LogLevel:        "info",
		},
	}
}

// FormatForPath picks the encoding from the file extension. Anything that is
// not .toml is treated as YAML.
func FormatForPath(path string) Format {
	if strings.EqualFold(filepath.Ext(path), ".toml") {
		return FormatTOML
	}
	return FormatYAML
}

// LoadConfig loads configuration from a file. A missing file yields the
// defaults.
func LoadConfig(path string) (*Config, error) {
	if path == "" {
		return nil, errors.ErrEmptyConfigPath
	}

	absPath, err := filepath.Abs(path)
	if err != nil {
		return nil, errors.Wrap(errors.ErrInvalidConfigPath, err.Error())
	}

	file, err := os.Open(absPath)
	if err != nil {
		if os.IsNotExist(err) {
			return DefaultConfig(), nil
		}
		return nil, errors.Wrapf(err, "failed to open config file: %s", path)
	}
	defer func() { _ = file.Close() }()

	return LoadConfigFromReader(file, FormatForPath(absPath))
}

// LoadConfigFromReader loads configuration from an io.Reader. Keys missing
// from the document keep their default values.
func LoadConfigFromReader(reader io.Reader, format Format) (*Config, error) {
	data, err := io.ReadAll(reader)
	if err != nil {
		return nil, errors.Wrap(err, "failed to read config data")
	}

	config := DefaultConfig()
	switch format {
	case FormatTOML:
		if _, err := toml.Decode(string(data), config); err != nil {
			return nil, errors.Wrap(errors.ErrConfigParse, err.Error())
		}
	default:
		if err := yaml.Unmarshal(data, config); err != nil {
			return nil, errors.Wrap(errors.ErrConfigParse, err.Error())
		}
	}

	config.applyDefaults()

	if err := config.Validate(); err != nil {
		return nil, errors.Wrap(errors.ErrConfigValidation, err.Error())
	}

	return config, nil
}

// SaveConfig writes the configuration to path, replacing it atomically. The
// encoding follows the file extension.
func (c *Config) SaveConfig(path string) error {
	if path == "" {
		return errors.ErrEmptyConfigPath
	}

	absPath, err := filepath.Abs(path)
	if err != nil {
		return errors.Wrap(errors.ErrInvalidConfigPath, err.Error())
	}

	if err := fsutil.EnsureFileDir(absPath); err != nil {
		return errors.Wrap(errors.ErrConfigDirectory, err.Error())
	}

	data, err := c.Encode(FormatForPath(absPath))
	if err != nil {
		return err
	}

	tempPath := absPath + ".tmp"
	file, err := fsutil.CreateFilePerm(tempPath, fsutil.FileModeDefault)
	if err != nil {
		return errors.Wrap(errors.ErrConfigFileCreate, err.Error())
	}

	if _, err := file.Write(data); err != nil {
		_ = file.Close()
		_ = os.Remove(tempPath)
		return errors.Wrap(errors.ErrConfigEncode, err.Error())
	}
	_ = file.Close()

	// Atomically replace the config file
	if err := os.Rename(tempPath, absPath); err != nil {
		_ = os.Remove(tempPath)
		return errors.Wrap(errors.ErrConfigFileRename, err.Error())
	}

	return nil
}

// Encode renders the configuration in the given format.
func (c *Config) Encode(format Format) ([]byte, error) {
	var buf bytes.Buffer
	switch format {
	case FormatTOML:
		if err := toml.NewEncoder(&buf).Encode(c); err != nil {
			return nil, errors.Wrap(errors.ErrConfigEncode, err.Error())
		}
	default:
		encoder := yaml.NewEncoder(&buf)
		encoder.SetIndent(YAMLIndent)
		if err := encoder.Encode(c); err != nil {
			return nil, errors.Wrap(errors.ErrConfigEncode, err.Error())
		}
		_ = encoder.Close()
	}
	return buf.Bytes(), nil
}

// ToYAML converts the config to YAML bytes.
func (c *Config) ToYAML() ([]byte, error) {
	return c.Encode(FormatYAML)
}

// Validate checks if the configuration is valid.
func (c *Config) Validate() error {
	if c == nil {
		return errors.ErrConfigValidation
	}
	return validateSettings(c.Settings)
}

func validateSettings(s Settings) error {
	if s.MaxConcurrent < MinMaxConcurrent || s.MaxConcurrent > MaxMaxConcurrent {
		return errors.ErrMaxConcurrentInvalid
	}
	if s.RequestTimeout < 0 || s.ResourceTimeout < 0 || s.RetryBaseDelay < 0 || s.RetryMaxDelay < 0 {
		return errors.ErrTimeoutNegative
	}
	if s.RetryAttempts < 1 {
		return errors.ErrRetryAttemptsInvalid
	}
	if s.RetryMaxDelay > 0 && s.RetryBaseDelay > s.RetryMaxDelay {
		return errors.ErrInvalidConfigValWithDetails("retry_base_delay", s.RetryBaseDelay.String())
	}
	if s.RequestsPerSecond < 0 {
		return errors.ErrInvalidConfigValWithDetails("requests_per_second", fmt.Sprint(s.RequestsPerSecond))
	}
	if s.Proxy != "" {
		if err := validateURL(s.Proxy); err != nil {
			return errors.ErrInvalidConfigValWithDetails("proxy", s.Proxy)
		}
	}
	if err := validateURL(s.AssetBaseURL); err != nil {
		return errors.ErrInvalidConfigValWithDetails("asset_base_url", s.AssetBaseURL)
	}
	validLevels := map[string]bool{"debug": true, "info": true, "warn": true, "error": true}
	if !validLevels[strings.ToLower(s.LogLevel)] {
		return errors.ErrInvalidLogLevelWithDetails(s.LogLevel)
	}
	return nil
}

func validateURL(raw string) error {
	u, err := url.Parse(raw)
	if err != nil {
		return err
	}
	if u.Scheme == "" || u.Host == "" {
		return fmt.Errorf("url %q needs a scheme and host", raw)
	}
	return nil
}

// GetDefaultConfigPath returns the default configuration file path.
func GetDefaultConfigPath() (string, error) {
	configDir, err := os.UserConfigDir()
	if err != nil {
		return "", fmt.Errorf("failed to get user config directory: %w", err)
	}
	return filepath.Join(configDir, "mcfetch", "config.yaml"), nil
}

// Layout returns the directory layout rooted at the configured game dir.
func (c *Config) Layout() Layout {
	return NewLayout(c.Settings.GameDir)
}

// applyDefaults fills in missing values with defaults.
func (c *Config) applyDefaults() {
	defaults := DefaultConfig()

	if c.Settings.GameDir == "" {
		c.Settings.GameDir = defaults.Settings.GameDir
	}
	if c.Settings.MaxConcurrent == 0 {
		c.Settings.MaxConcurrent = defaults.Settings.MaxConcurrent
	}
	if c.Settings.RequestTimeout == 0 {
		c.Settings.RequestTimeout = defaults.Settings.RequestTimeout
	}
	if c.Settings.ResourceTimeout == 0 {
		c.Settings.ResourceTimeout = defaults.Settings.ResourceTimeout
	}
	if c.Settings.RetryAttempts == 0 {
		c.Settings.RetryAttempts = defaults.Settings.RetryAttempts
	}
	if c.Settings.RetryBaseDelay == 0 {
		c.Settings.RetryBaseDelay = defaults.Settings.RetryBaseDelay
	}
	if c.Settings.RetryMaxDelay == 0 {
		c.Settings.RetryMaxDelay = defaults.Settings.RetryMaxDelay
	}
	if c.Settings.UserAgent == "" {
		c.Settings.UserAgent = defaults.Settings.UserAgent
	}
	if c.Settings.AssetBaseURL == "" {
		c.Settings.AssetBaseURL = defaults.Settings.AssetBaseURL
	}
	c.Settings.AssetBaseURL = strings.TrimRight(c.Settings.AssetBaseURL, "/")
	if c.Settings.LogLevel == "" {
		c.Settings.LogLevel = defaults.Settings.LogLevel
	}
}

func getUserDataDir() (string, error) {
	if dir := os.Getenv("XDG_DATA_HOME"); dir != "" {
		return dir, nil
	}

	// Linux follows the XDG Base Directory Specification
	if runtime.GOOS == platform.OSLinux {
		homeDir, err := os.UserHomeDir()
		if err != nil {
			return "", fmt.Errorf("failed to get user home directory: %w", err)
		}
		return filepath.Join(homeDir, ".local", "share"), nil
	}

	configDir, err := os.UserConfigDir()
	if err != nil {
		return "", fmt.Errorf("failed to get user config directory: %w", err)
	}
	return configDir, nil
}
