package progress

import (
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestProgress_Derived(t *testing.T) {
	tests := []struct {
		name         string
		p            Progress
		overall      float64
		display      string
		bytesDisplay string
	}{
		{
			name:         "empty batch",
			p:            Progress{},
			overall:      0,
			display:      "0/0",
			bytesDisplay: "0 B/0 B",
		},
		{
			name:         "half done",
			p:            Progress{TotalTasks: 4, CompletedTasks: 2, TotalBytes: 2_000_000, DownloadedBytes: 1_000_000},
			overall:      0.5,
			display:      "2/4",
			bytesDisplay: "1.0 MB/2.0 MB",
		},
		{
			name:         "failures do not count as progress",
			p:            Progress{TotalTasks: 2, CompletedTasks: 1, FailedTasks: 1, TotalBytes: 10, DownloadedBytes: 5},
			overall:      0.5,
			display:      "1/2",
			bytesDisplay: "5 B/10 B",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.InDelta(t, tt.overall, tt.p.Overall(), 1e-9)
			assert.Equal(t, tt.display, tt.p.Display())
			assert.Equal(t, tt.bytesDisplay, tt.p.BytesDisplay())
		})
	}
}

func TestAggregator_Counts(t *testing.T) {
	var published []Progress
	agg := NewAggregator(Options{OnUpdate: func(p Progress) { published = append(published, p) }})

	initial := agg.Reset(3, 60)
	assert.Equal(t, Progress{TotalTasks: 3, TotalBytes: 60}, initial)

	agg.MarkCompleted(10)
	agg.MarkFailed()
	last := agg.MarkCompleted(20)

	assert.Equal(t, Progress{TotalTasks: 3, CompletedTasks: 2, FailedTasks: 1, TotalBytes: 60, DownloadedBytes: 30}, last)
	assert.True(t, last.Finished())
	require.Len(t, published, 4)
	assert.Equal(t, 1, published[1].CompletedTasks)
	assert.Equal(t, 1, published[2].FailedTasks)
}

func TestAggregator_NeverExceedsTotal(t *testing.T) {
	agg := NewAggregator(Options{})
	agg.Reset(1, 5)

	agg.MarkCompleted(5)
	p := agg.MarkCompleted(5)
	p2 := agg.MarkFailed()

	assert.Equal(t, 1, p.CompletedTasks)
	assert.Equal(t, int64(5), p.DownloadedBytes)
	assert.Equal(t, 0, p2.FailedTasks)
}

func TestAggregator_ConcurrentWriters(t *testing.T) {
	const writers = 64
	const perWriter = 50
	total := writers * perWriter

	var mu sync.Mutex
	violations := 0
	agg := NewAggregator(Options{OnUpdate: func(p Progress) {
		if p.CompletedTasks+p.FailedTasks > p.TotalTasks || p.DownloadedBytes != int64(p.CompletedTasks)*3 {
			mu.Lock()
			violations++
			mu.Unlock()
		}
	}})
	agg.Reset(total, int64(total)*3)

	var wg sync.WaitGroup
	stopReaders := make(chan struct{})
	var readers sync.WaitGroup
	for r := 0; r < 4; r++ {
		readers.Add(1)
		go func() {
			defer readers.Done()
			for {
				select {
				case <-stopReaders:
					return
				default:
				}
				s := agg.Snapshot()
				if s.DownloadedBytes != int64(s.CompletedTasks)*3 {
					mu.Lock()
					violations++
					mu.Unlock()
				}
			}
		}()
	}

	for w := 0; w < writers; w++ {
		wg.Add(1)
		go func(w int) {
			defer wg.Done()
			for i := 0; i < perWriter; i++ {
				if w%8 == 0 && i%10 == 0 {
					agg.MarkFailed()
					continue
				}
				agg.MarkCompleted(3)
			}
		}(w)
	}
	wg.Wait()
	close(stopReaders)
	readers.Wait()

	final := agg.Snapshot()
	assert.Equal(t, total, final.CompletedTasks+final.FailedTasks)
	assert.Equal(t, 8*5, final.FailedTasks)
	assert.Zero(t, violations)
}

func TestAggregator_Sample(t *testing.T) {
	var speeds []float64
	agg := NewAggregator(Options{OnSpeed: func(s float64) { speeds = append(speeds, s) }})
	agg.Reset(10, 10_000)

	start := time.Unix(1000, 0)
	assert.Zero(t, agg.Sample(start))

	agg.MarkCompleted(1000)
	assert.InDelta(t, 2000, agg.Sample(start.Add(500*time.Millisecond)), 1e-9)

	agg.MarkCompleted(500)
	assert.InDelta(t, 1000, agg.Sample(start.Add(time.Second)), 1e-9)
	assert.InDelta(t, 1000, agg.Speed(), 1e-9)

	// no elapsed time keeps the previous figure
	assert.InDelta(t, 1000, agg.Sample(start.Add(time.Second)), 1e-9)
	assert.Len(t, speeds, 4)

	agg.Reset(1, 1)
	assert.Zero(t, agg.Speed())
}

func TestAggregator_StartSampling(t *testing.T) {
	agg := NewAggregator(Options{})
	agg.Reset(2, 2_000_000)

	stop := agg.StartSampling(10 * time.Millisecond)
	agg.MarkCompleted(1_000_000)

	assert.Eventually(t, func() bool { return agg.Speed() > 0 }, 2*time.Second, 5*time.Millisecond)

	stop()
	stop()
	assert.Zero(t, agg.Speed())
}
