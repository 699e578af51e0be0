package cli

import (
	"fmt"
	"io"
	"sync"
	"time"

	"github.com/cperrin88/mcfetch/internal/logger"
	"github.com/cperrin88/mcfetch/pkg/orchestrator"
	"github.com/cperrin88/mcfetch/pkg/progress"
	"github.com/dustin/go-humanize"
	"github.com/schollz/progressbar/v3"
)

// progressView renders batch progress as a terminal progress bar.
type progressView struct {
	w       io.Writer
	enabled bool

	mu  sync.Mutex
	bar *progressbar.ProgressBar
}

func newProgressView(w io.Writer, enabled bool) *progressView {
	return &progressView{w: w, enabled: enabled}
}

// OnEvent logs orchestrator phase changes.
func (v *progressView) OnEvent(e orchestrator.Event) {
	fields := logger.Fields{"phase": e.Phase, "id": e.ID}
	switch e.Phase {
	case orchestrator.PhaseError:
		v.Finish()
		logger.Debug("Download step failed", fields, logger.Fields{"error": e.Msg})
	case orchestrator.PhaseExtracting:
		logger.Debug("Extracting natives", fields, logger.Fields{"archive": e.Msg})
	default:
		logger.Debug("Download step", fields, logger.Fields{"detail": e.Msg})
	}
}

// OnProgress follows aggregator snapshots. A snapshot without finished tasks
// starts a new bar.
func (v *progressView) OnProgress(p progress.Progress) {
	if !v.enabled {
		return
	}
	v.mu.Lock()
	defer v.mu.Unlock()

	if p.CompletedTasks+p.FailedTasks == 0 {
		v.finishLocked()
		if p.TotalTasks == 0 {
			return
		}
		v.bar = progressbar.NewOptions(
			p.TotalTasks,
			progressbar.OptionSetWriter(v.w),
			progressbar.OptionSetWidth(30),
			progressbar.OptionShowCount(),
			progressbar.OptionSetDescription(p.BytesDisplay()),
			progressbar.OptionThrottle(100*time.Millisecond),
			progressbar.OptionOnCompletion(func() {
				_, _ = fmt.Fprintln(v.w)
			}),
		)
		return
	}
	if v.bar == nil {
		return
	}
	v.bar.Describe(p.BytesDisplay())
	_ = v.bar.Set(p.CompletedTasks + p.FailedTasks)
}

// Finish drops the current bar, leaving it where it stopped.
func (v *progressView) Finish() {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.finishLocked()
}

func (v *progressView) finishLocked() {
	if v.bar == nil {
		return
	}
	if !v.bar.IsFinished() {
		_ = v.bar.Exit()
		_, _ = fmt.Fprintln(v.w)
	}
	v.bar = nil
}

// summary renders a finished batch for the final log line.
func summary(p progress.Progress, elapsed time.Duration) logger.Fields {
	fields := logger.Fields{
		"files":    p.Display(),
		"size":     humanize.Bytes(uint64(max(p.DownloadedBytes, 0))),
		"duration": elapsed.Round(time.Millisecond).String(),
	}
	if p.FailedTasks > 0 {
		fields["failed"] = p.FailedTasks
	}
	if secs := elapsed.Seconds(); secs > 0 && p.DownloadedBytes > 0 {
		fields["average"] = humanize.Bytes(uint64(float64(p.DownloadedBytes)/secs)) + "/s"
	}
	return fields
}
