// Package progress aggregates batch download progress from many concurrent
// workers into consistent snapshots, and derives a download speed from them.
package progress

import (
	"fmt"

	"github.com/dustin/go-humanize"
)

// Progress is an immutable snapshot of one batch.
type Progress struct {
	TotalTasks      int   `json:"total_tasks"`
	CompletedTasks  int   `json:"completed_tasks"`
	FailedTasks     int   `json:"failed_tasks"`
	TotalBytes      int64 `json:"total_bytes"`
	DownloadedBytes int64 `json:"downloaded_bytes"`
}

// Overall returns the completed fraction of tasks, 0 for an empty batch.
func (p Progress) Overall() float64 {
	if p.TotalTasks == 0 {
		return 0
	}
	return float64(p.CompletedTasks) / float64(p.TotalTasks)
}

// Display renders "completed/total".
func (p Progress) Display() string {
	return fmt.Sprintf("%d/%d", p.CompletedTasks, p.TotalTasks)
}

// BytesDisplay renders "downloaded/total" with human readable sizes.
func (p Progress) BytesDisplay() string {
	return humanize.Bytes(clampUint(p.DownloadedBytes)) + "/" + humanize.Bytes(clampUint(p.TotalBytes))
}

// Finished reports whether every task reached a terminal state.
func (p Progress) Finished() bool {
	return p.CompletedTasks+p.FailedTasks >= p.TotalTasks
}

func clampUint(n int64) uint64 {
	if n < 0 {
		return 0
	}
	return uint64(n)
}
