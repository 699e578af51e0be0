package config

import (
	"sync"

	"github.com/cperrin88/mcfetch/internal/logger"
)

// Provider supplies the settings snapshot the download engine runs with.
type Provider interface {
	Settings() Settings
}

// Static is a Provider over a fixed snapshot.
type Static Settings

// Settings returns the snapshot.
func (s Static) Settings() Settings { return Settings(s) }

// FileProvider re-reads its file on every Settings call, so a reconfigure
// picks up edits made since the engine started. When the file becomes
// unreadable or invalid the last good settings are kept.
type FileProvider struct {
	path string

	mu   sync.Mutex
	last Settings
}

// NewFileProvider loads path once and fails when that first load fails.
func NewFileProvider(path string) (*FileProvider, error) {
	cfg, err := LoadConfig(path)
	if err != nil {
		return nil, err
	}
	return &FileProvider{path: path, last: cfg.Settings}, nil
}

// Path returns the watched file.
func (p *FileProvider) Path() string { return p.path }

// Settings implements Provider.
func (p *FileProvider) Settings() Settings {
	p.mu.Lock()
	defer p.mu.Unlock()

	cfg, err := LoadConfig(p.path)
	if err != nil {
		logger.Warn("Keeping previous settings", logger.Fields{"path": p.path, "error": err.Error()})
		return p.last
	}
	p.last = cfg.Settings
	return p.last
}
