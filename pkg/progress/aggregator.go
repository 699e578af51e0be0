package progress

import (
	"math"
	"sync"
	"sync/atomic"
	"time"
)

// DefaultSampleInterval is how often the download speed is recomputed.
const DefaultSampleInterval = 500 * time.Millisecond

// Tracker receives progress from the batch scheduler.
type Tracker interface {
	Reset(totalTasks int, totalBytes int64) Progress
	MarkCompleted(bytes int64) Progress
	MarkFailed() Progress
	Snapshot() Progress
	StartSampling(interval time.Duration) (stop func())
}

// Options configures an Aggregator.
type Options struct {
	// OnUpdate is called with every new snapshot, in mutation order, while the
	// aggregator lock is held. It must not call back into the aggregator.
	OnUpdate func(Progress)
	// OnSpeed is called with every new speed sample.
	OnSpeed func(bytesPerSecond float64)
}

// Aggregator is the single owner of a batch's counters. All mutations go
// through its mutex and every read returns a whole snapshot.
type Aggregator struct {
	mu   sync.Mutex
	snap Progress
	opts Options

	speedBits atomic.Uint64

	sampleMu   sync.Mutex
	lastBytes  int64
	lastSample time.Time
}

var _ Tracker = (*Aggregator)(nil)

// NewAggregator creates an empty aggregator.
func NewAggregator(opts Options) *Aggregator {
	return &Aggregator{opts: opts}
}

// SetOnUpdate replaces the update callback.
func (a *Aggregator) SetOnUpdate(fn func(Progress)) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.opts.OnUpdate = fn
}

// Reset starts a new batch and publishes its initial snapshot.
func (a *Aggregator) Reset(totalTasks int, totalBytes int64) Progress {
	a.sampleMu.Lock()
	a.lastBytes = 0
	a.lastSample = time.Time{}
	a.sampleMu.Unlock()
	a.speedBits.Store(0)

	a.mu.Lock()
	defer a.mu.Unlock()
	a.snap = Progress{TotalTasks: totalTasks, TotalBytes: totalBytes}
	return a.publish()
}

// MarkCompleted records one installed item of the given declared size.
func (a *Aggregator) MarkCompleted(bytes int64) Progress {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.full() {
		return a.snap
	}
	a.snap.CompletedTasks++
	if bytes > 0 {
		a.snap.DownloadedBytes += bytes
	}
	return a.publish()
}

// MarkFailed records one item that failed terminally.
func (a *Aggregator) MarkFailed() Progress {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.full() {
		return a.snap
	}
	a.snap.FailedTasks++
	return a.publish()
}

// Snapshot returns the current snapshot.
func (a *Aggregator) Snapshot() Progress {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.snap
}

// full reports whether another terminal task would break
// completed+failed <= total. Callers hold mu.
func (a *Aggregator) full() bool {
	return a.snap.CompletedTasks+a.snap.FailedTasks >= a.snap.TotalTasks
}

func (a *Aggregator) publish() Progress {
	if a.opts.OnUpdate != nil {
		a.opts.OnUpdate(a.snap)
	}
	return a.snap
}

// Speed returns the last sampled download speed in bytes per second.
func (a *Aggregator) Speed() float64 {
	return math.Float64frombits(a.speedBits.Load())
}

// Sample recomputes the speed from the bytes downloaded since the previous
// sample. The first sample after Reset only establishes the baseline.
func (a *Aggregator) Sample(now time.Time) float64 {
	downloaded := a.Snapshot().DownloadedBytes

	a.sampleMu.Lock()
	defer a.sampleMu.Unlock()

	speed := a.Speed()
	if !a.lastSample.IsZero() {
		if elapsed := now.Sub(a.lastSample).Seconds(); elapsed > 0 {
			speed = float64(downloaded-a.lastBytes) / elapsed
		}
	}
	a.lastBytes = downloaded
	a.lastSample = now
	a.setSpeed(speed)
	return speed
}

func (a *Aggregator) setSpeed(speed float64) {
	if speed < 0 {
		speed = 0
	}
	a.speedBits.Store(math.Float64bits(speed))
	if a.opts.OnSpeed != nil {
		a.opts.OnSpeed(speed)
	}
}

// StartSampling samples the speed every interval until stop is called.
// Stopping resets the speed to zero.
func (a *Aggregator) StartSampling(interval time.Duration) (stop func()) {
	if interval <= 0 {
		interval = DefaultSampleInterval
	}
	done := make(chan struct{})
	finished := make(chan struct{})
	a.Sample(time.Now())

	go func() {
		defer close(finished)
		ticker := time.NewTicker(interval)
		defer ticker.Stop()
		for {
			select {
			case <-done:
				return
			case now := <-ticker.C:
				a.Sample(now)
			}
		}
	}()

	var once sync.Once
	return func() {
		once.Do(func() {
			close(done)
			<-finished
			a.sampleMu.Lock()
			a.lastSample = time.Time{}
			a.setSpeed(0)
			a.sampleMu.Unlock()
		})
	}
}
