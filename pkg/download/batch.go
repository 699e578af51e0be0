package download

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"runtime"
	"sync"

	"github.com/cperrin88/mcfetch/internal/logger"
	pkgerrors "github.com/cperrin88/mcfetch/pkg/errors"
	"github.com/cperrin88/mcfetch/pkg/fsutil"
	"github.com/cperrin88/mcfetch/pkg/metrics"
	"github.com/cperrin88/mcfetch/pkg/progress"
	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"
	"golang.org/x/sync/semaphore"
)

// FetchAll downloads items with at most MaxConcurrent transfers in flight.
// Items whose destination already holds a file of the declared size are
// dropped before progress starts. Completed items stay installed when others
// fail.
func (m *ManagerImpl) FetchAll(ctx context.Context, items []Item, tracker progress.Tracker) error {
	if tracker == nil {
		tracker = progress.NewAggregator(progress.Options{})
	}
	batch := logger.Fields{"batch": uuid.NewString()}

	planned, err := planBatch(items)
	if err != nil {
		return err
	}
	if err := createParentDirs(planned); err != nil {
		return err
	}
	pending, err := filterExisting(ctx, planned)
	if err != nil {
		return err
	}
	if skipped := len(planned) - len(pending); skipped > 0 {
		metrics.DownloadsTotal.WithLabelValues(metrics.ResultSkipped).Add(float64(skipped))
	}

	total := TotalSize(pending)
	tracker.Reset(len(pending), total)
	logger.Info("Starting download batch", batch, logger.Fields{
		"items":   len(pending),
		"skipped": len(planned) - len(pending),
		"bytes":   total,
	})
	if len(pending) == 0 {
		return nil
	}

	stopSampling := tracker.StartSampling(m.opts.SampleInterval)
	defer stopSampling()

	var (
		wg       sync.WaitGroup
		mu       sync.Mutex
		firstErr error
		failed   int
	)
	sem := semaphore.NewWeighted(int64(m.opts.MaxConcurrent))

	for _, item := range pending {
		// Acquire may succeed on a done context when capacity is free
		if ctx.Err() != nil {
			break
		}
		if err := sem.Acquire(ctx, 1); err != nil {
			break
		}
		wg.Add(1)
		go func(item Item) {
			defer wg.Done()
			defer sem.Release(1)

			_, err := m.fetchOne(ctx, item, m.opts.Retry)
			switch {
			case err == nil:
				tracker.MarkCompleted(item.Size)
			case errors.Is(err, pkgerrors.ErrCancelled):
				// cancelled items are neither completed nor failed
			default:
				tracker.MarkFailed()
				logger.Warn("Download failed", batch, logger.Fields{
					"url":   item.URL,
					"path":  item.Path,
					"error": err.Error(),
				})
				mu.Lock()
				failed++
				if firstErr == nil {
					firstErr = err
				}
				mu.Unlock()
			}
		}(item)
	}
	wg.Wait()

	if ctx.Err() != nil {
		logger.Warn("Download batch cancelled", batch, logger.Fields{"progress": tracker.Snapshot().Display()})
		return pkgerrors.Wrap(pkgerrors.ErrCancelled, ctx.Err().Error())
	}
	if firstErr != nil {
		return fmt.Errorf("%d of %d downloads failed: %w", failed, len(pending), firstErr)
	}
	logger.Success("Download batch complete", batch, logger.Fields{"items": len(pending)})
	return nil
}

// planBatch rejects relative destinations, orders items by priority and
// drops repeated destinations. The first occurrence of a path wins, which
// after sorting is the one with the highest priority.
func planBatch(items []Item) ([]Item, error) {
	sorted := make([]Item, len(items))
	copy(sorted, items)
	SortByPriority(sorted)

	seen := make(map[string]struct{}, len(sorted))
	out := make([]Item, 0, len(sorted))
	for _, item := range sorted {
		if err := validatePath(item.Path); err != nil {
			return nil, err
		}
		key := filepath.Clean(item.Path)
		if _, dup := seen[key]; dup {
			logger.Debug("Dropping duplicate destination", logger.Fields{"path": item.Path, "url": item.URL})
			continue
		}
		seen[key] = struct{}{}
		out = append(out, item)
	}
	return out, nil
}

func createParentDirs(items []Item) error {
	paths := make([]string, len(items))
	for i, item := range items {
		paths[i] = item.Path
	}
	for _, dir := range fsutil.ParentDirs(paths) {
		if err := fsutil.EnsureDir(dir); err != nil {
			return pkgerrors.Wrapf(err, "could not create directory %s", dir)
		}
	}
	return nil
}

// filterExisting stats destinations in parallel and keeps the items that
// still need a download. Stat failures leave the item pending so that the
// download reports them.
func filterExisting(ctx context.Context, items []Item) ([]Item, error) {
	present := make([]bool, len(items))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(runtime.NumCPU())
	for i := range items {
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			ok, err := fsutil.SizeMatches(items[i].Path, items[i].Size)
			if err == nil && ok {
				present[i] = true
				logger.Debug("File already present", logger.Fields{"path": items[i].Path})
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.ErrCancelled, err.Error())
	}

	pending := make([]Item, 0, len(items))
	for i, item := range items {
		if !present[i] {
			pending = append(pending, item)
		}
	}
	return pending, nil
}
