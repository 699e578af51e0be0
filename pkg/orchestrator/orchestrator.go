// Package orchestrator is the download engine's facade. It turns versions and
// asset indexes into download batches, runs them on a download manager and
// exposes progress, speed and cancellation to its caller.
package orchestrator

import (
	"context"
	"fmt"
	"path/filepath"
	"sync"
	"sync/atomic"

	"github.com/cperrin88/mcfetch/internal/logger"
	"github.com/cperrin88/mcfetch/pkg/archive"
	"github.com/cperrin88/mcfetch/pkg/config"
	"github.com/cperrin88/mcfetch/pkg/download"
	pkgerrors "github.com/cperrin88/mcfetch/pkg/errors"
	"github.com/cperrin88/mcfetch/pkg/manifest"
	"github.com/cperrin88/mcfetch/pkg/metrics"
	"github.com/cperrin88/mcfetch/pkg/platform"
	"github.com/cperrin88/mcfetch/pkg/progress"
)

// Orchestrator ties the settings, the path layout and a download manager
// together. Every batch counts into its own aggregator; Progress and Speed
// follow the batch started last.
type Orchestrator struct {
	provider   config.Provider
	hooks      Hooks
	newManager ManagerFactory
	extractor  NativeExtractor
	platform   platform.Platform
	current    atomic.Pointer[progress.Aggregator]

	// fixedPaths is set when the caller supplied a PathProvider; otherwise
	// paths follow Settings.GameDir across reconfigurations.
	fixedPaths PathProvider

	mu       sync.Mutex
	manager  download.Manager
	settings config.Settings
	paths    PathProvider
	cancels  map[uint64]context.CancelFunc
	nextID   uint64

	active atomic.Int64
}

// DefaultManagerFactory builds a download.ManagerImpl from settings.
func DefaultManagerFactory(s config.Settings) (download.Manager, error) {
	return download.NewManager(download.OptionsFromSettings(s))
}

// New constructs an Orchestrator and builds its first download manager from
// provider. paths may be nil to use the standard layout under the configured
// game directory.
func New(provider config.Provider, paths PathProvider, hooks Hooks, opts ...Option) (*Orchestrator, error) {
	if provider == nil {
		return nil, fmt.Errorf("settings provider is not configured")
	}
	o := &Orchestrator{
		provider:   provider,
		hooks:      hooks,
		newManager: DefaultManagerFactory,
		extractor:  archive.NewExtractor(),
		platform:   platform.CurrentPlatform(),
		fixedPaths: paths,
		cancels:    make(map[uint64]context.CancelFunc),
	}
	for _, opt := range opts {
		opt(o)
	}
	o.current.Store(o.newAggregator())

	if err := o.Reconfigure(); err != nil {
		return nil, err
	}
	return o, nil
}

// newAggregator returns a batch aggregator that reports to the hooks while it
// is the current one.
func (o *Orchestrator) newAggregator() *progress.Aggregator {
	var agg *progress.Aggregator
	agg = progress.NewAggregator(progress.Options{
		OnUpdate: func(p progress.Progress) {
			if o.hooks.OnProgress != nil && o.current.Load() == agg {
				o.hooks.OnProgress(p)
			}
		},
		OnSpeed: func(bps float64) {
			if o.current.Load() == agg {
				metrics.DownloadSpeedBytes.Set(bps)
			}
		},
	})
	return agg
}

func emit(h Hooks, e Event) {
	if h.OnEvent != nil {
		h.OnEvent(e)
	}
}

// Reconfigure re-reads the settings provider and rebuilds the download
// manager. Batches already running keep the manager they started with.
func (o *Orchestrator) Reconfigure() error {
	settings := o.provider.Settings()
	mgr, err := o.newManager(settings)
	if err != nil {
		return pkgerrors.Wrap(err, "could not build download manager")
	}

	paths := o.fixedPaths
	if paths == nil {
		paths = config.NewLayout(settings.GameDir)
	}

	o.mu.Lock()
	o.manager = mgr
	o.settings = settings
	o.paths = paths
	o.mu.Unlock()

	logger.Debug("Download engine configured", logger.Fields{
		"max_concurrent": settings.MaxConcurrent,
		"verify":         settings.VerifyFiles,
	})
	return nil
}

// snapshot returns the manager, settings and paths a new batch runs with.
func (o *Orchestrator) snapshot() (download.Manager, config.Settings, PathProvider) {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.manager, o.settings, o.paths
}

// Paths returns the directory layout in use.
func (o *Orchestrator) Paths() PathProvider {
	_, _, paths := o.snapshot()
	return paths
}

// track derives a context CancelAll can reach and marks a download active
// until release is called.
func (o *Orchestrator) track(ctx context.Context) (context.Context, func()) {
	ctx, cancel := context.WithCancel(ctx)

	o.mu.Lock()
	id := o.nextID
	o.nextID++
	o.cancels[id] = cancel
	o.mu.Unlock()
	o.active.Add(1)

	return ctx, func() {
		o.mu.Lock()
		delete(o.cancels, id)
		o.mu.Unlock()
		cancel()
		o.active.Add(-1)
	}
}

// CancelAll cancels every running download. Files already installed stay.
func (o *Orchestrator) CancelAll() {
	o.mu.Lock()
	defer o.mu.Unlock()
	if len(o.cancels) > 0 {
		logger.Info("Cancelling downloads", logger.Fields{"running": len(o.cancels)})
	}
	for _, cancel := range o.cancels {
		cancel()
	}
}

// Progress returns the snapshot of the batch started last.
func (o *Orchestrator) Progress() progress.Progress {
	return o.current.Load().Snapshot()
}

// IsDownloading reports whether any download is running.
func (o *Orchestrator) IsDownloading() bool {
	return o.active.Load() > 0
}

// Speed returns the last sampled download speed in bytes per second.
func (o *Orchestrator) Speed() float64 {
	return o.current.Load().Speed()
}

// DownloadFile downloads one file. maxAttempts counts the first request and
// overrides the configured budget when positive.
func (o *Orchestrator) DownloadFile(ctx context.Context, url, dest string, size int64, digest string, maxAttempts int) error {
	ctx, release := o.track(ctx)
	defer release()

	mgr, _, _ := o.snapshot()
	item := download.Item{URL: url, Path: dest, Size: size, Digest: digest, Priority: download.PriorityNormal}
	if err := mgr.Fetch(ctx, item, download.WithMaxAttempts(maxAttempts)); err != nil {
		emit(o.hooks, Event{Phase: PhaseError, ID: dest, Msg: err.Error()})
		return err
	}
	emit(o.hooks, Event{Phase: PhaseDone, ID: dest})
	return nil
}

// DownloadFiles runs items as one batch.
func (o *Orchestrator) DownloadFiles(ctx context.Context, items []download.Item) error {
	if err := o.runBatch(ctx, "files", items); err != nil {
		return err
	}
	emit(o.hooks, Event{Phase: PhaseDone, ID: "files"})
	return nil
}

func (o *Orchestrator) runBatch(ctx context.Context, id string, items []download.Item) error {
	ctx, release := o.track(ctx)
	defer release()

	mgr, _, _ := o.snapshot()
	agg := o.newAggregator()
	o.current.Store(agg)

	emit(o.hooks, Event{Phase: PhaseDownloading, ID: id, Msg: fmt.Sprintf("%d files", len(items))})
	if err := mgr.FetchAll(ctx, items, agg); err != nil {
		emit(o.hooks, Event{Phase: PhaseError, ID: id, Msg: err.Error()})
		return err
	}
	return nil
}

// DownloadVersion downloads everything v needs on the orchestrator's
// platform and, when asked, unpacks its natives.
func (o *Orchestrator) DownloadVersion(ctx context.Context, v *manifest.Version, opts VersionOptions) error {
	if v == nil || v.ID == "" {
		return pkgerrors.Wrap(pkgerrors.ErrManifestInvalid, "version has no id")
	}
	_, _, paths := o.snapshot()

	emit(o.hooks, Event{Phase: PhasePlanning, ID: v.ID, Msg: o.platform.String()})
	items, natives := versionPlan(v, paths, o.platform)
	logger.Info("Downloading version", logger.Fields{"version": v.ID, "items": len(items), "natives": len(natives)})

	if err := o.runBatch(ctx, v.ID, items); err != nil {
		return err
	}

	if opts.ExtractNatives && len(natives) > 0 {
		if err := o.extractNatives(ctx, v.ID, paths.NativesDir(v.ID), natives); err != nil {
			emit(o.hooks, Event{Phase: PhaseError, ID: v.ID, Msg: err.Error()})
			return err
		}
	}

	emit(o.hooks, Event{Phase: PhaseDone, ID: v.ID})
	return nil
}

func (o *Orchestrator) extractNatives(ctx context.Context, id, dest string, natives []NativeJar) error {
	ctx, release := o.track(ctx)
	defer release()

	for _, jar := range natives {
		emit(o.hooks, Event{Phase: PhaseExtracting, ID: id, Msg: filepath.Base(jar.Path)})
		n, err := o.extractor.Extract(ctx, jar.Path, dest, jar.Exclude)
		if err != nil {
			return pkgerrors.Wrapf(err, "could not extract %s", jar.Path)
		}
		logger.Debug("Extracted natives", logger.Fields{"archive": jar.Path, "files": n})
	}
	return nil
}

// DownloadAssets downloads every object of a previously downloaded asset
// index.
func (o *Orchestrator) DownloadAssets(ctx context.Context, assetIndexID string) error {
	if assetIndexID == "" {
		return pkgerrors.Wrap(pkgerrors.ErrAssetIndexMissing, "empty asset index id")
	}
	_, settings, paths := o.snapshot()

	emit(o.hooks, Event{Phase: PhasePlanning, ID: assetIndexID})
	index, err := manifest.LoadAssetIndex(filepath.Join(paths.AssetIndexesDir(), assetIndexID+".json"))
	if err != nil {
		emit(o.hooks, Event{Phase: PhaseError, ID: assetIndexID, Msg: err.Error()})
		return err
	}
	baseURL := settings.AssetBaseURL
	if baseURL == "" {
		baseURL = config.DefaultAssetBaseURL
	}
	items, err := AssetItems(index, paths, baseURL)
	if err != nil {
		emit(o.hooks, Event{Phase: PhaseError, ID: assetIndexID, Msg: err.Error()})
		return err
	}
	logger.Info("Downloading assets", logger.Fields{"index": assetIndexID, "objects": len(items)})

	if err := o.runBatch(ctx, assetIndexID, items); err != nil {
		return err
	}
	emit(o.hooks, Event{Phase: PhaseDone, ID: assetIndexID})
	return nil
}
