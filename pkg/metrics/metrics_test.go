package metrics

import (
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRegister(t *testing.T) {
	reg := prometheus.NewRegistry()
	require.NotPanics(t, func() { Register(reg) })

	DownloadsTotal.WithLabelValues(ResultCompleted).Inc()
	DownloadDuration.Observe(0.2)

	families, err := reg.Gather()
	require.NoError(t, err)

	names := make([]string, 0, len(families))
	for _, f := range families {
		names = append(names, f.GetName())
	}
	assert.Contains(t, names, "mcfetch_downloads_total")
	assert.Contains(t, names, "mcfetch_download_duration_seconds")

	assert.Panics(t, func() { Register(reg) }, "double registration must fail")
}

func TestCounters(t *testing.T) {
	before := testutil.ToFloat64(DownloadsTotal.WithLabelValues(ResultFailed))
	DownloadsTotal.WithLabelValues(ResultFailed).Inc()
	assert.Equal(t, before+1, testutil.ToFloat64(DownloadsTotal.WithLabelValues(ResultFailed)))

	DownloadSpeedBytes.Set(1024)
	assert.Equal(t, float64(1024), testutil.ToFloat64(DownloadSpeedBytes))
}
