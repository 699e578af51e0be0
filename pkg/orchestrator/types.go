//go:generate mockgen -destination=./mocks/orchestrator.go . NativeExtractor

package orchestrator

import (
	"context"

	"github.com/cperrin88/mcfetch/pkg/config"
	"github.com/cperrin88/mcfetch/pkg/download"
	"github.com/cperrin88/mcfetch/pkg/platform"
	"github.com/cperrin88/mcfetch/pkg/progress"
)

// PathProvider supplies the absolute directories downloads are placed in.
// config.Layout is the standard implementation.
type PathProvider interface {
	LibrariesDir() string
	AssetIndexesDir() string
	AssetObjectsDir() string
	LogConfigsDir() string
	VersionDir(id string) string
	NativesDir(id string) string
}

var _ PathProvider = config.Layout{}

// NativeExtractor unpacks native library archives.
type NativeExtractor interface {
	Extract(ctx context.Context, archivePath, destDir string, exclude []string) (int, error)
}

// ManagerFactory builds the download manager for a settings snapshot.
type ManagerFactory func(config.Settings) (download.Manager, error)

// Event phases.
const (
	PhasePlanning    = "planning"
	PhaseDownloading = "downloading"
	PhaseExtracting  = "extracting"
	PhaseDone        = "done"
	PhaseError       = "error"
)

// Event represents a simple progress notification.
type Event struct {
	Phase string // planning|downloading|extracting|done|error
	ID    string // version id, asset index id or batch name
	Msg   string
}

// Hooks carries callbacks for progress events.
type Hooks struct {
	OnEvent func(Event)
	// OnProgress receives every published snapshot. It runs while the
	// aggregator is locked and must not call back into the orchestrator.
	OnProgress func(progress.Progress)
}

// VersionOptions control a version download.
type VersionOptions struct {
	// ExtractNatives unpacks native archives into NativesDir once every
	// download succeeded.
	ExtractNatives bool
}

// Option customizes an Orchestrator.
type Option func(*Orchestrator)

// WithManagerFactory replaces how download managers are built.
func WithManagerFactory(f ManagerFactory) Option {
	return func(o *Orchestrator) { o.newManager = f }
}

// WithExtractor replaces the native archive extractor.
func WithExtractor(e NativeExtractor) Option {
	return func(o *Orchestrator) { o.extractor = e }
}

// WithPlatform overrides the platform library rules are evaluated for.
func WithPlatform(p platform.Platform) Option {
	return func(o *Orchestrator) { o.platform = p }
}
