package cli

import (
	"bytes"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/cperrin88/mcfetch/pkg/config"
	"github.com/cperrin88/mcfetch/pkg/download"
	pkgerrors "github.com/cperrin88/mcfetch/pkg/errors"
	"github.com/cperrin88/mcfetch/pkg/orchestrator"
	"github.com/cperrin88/mcfetch/pkg/progress"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadBatchFile(t *testing.T) {
	dir := t.TempDir()
	abs := filepath.Join(dir, "abs.bin")
	doc := `items:
  - url: https://example.com/a.jar
    path: libraries/a.jar
    size: 1024
    digest: 0beec7b5ea3f0fdbc95d0dd47f3c5bc275da8a33
    priority: high
  - url: https://example.com/b.bin
    path: ` + abs + `
`
	path := filepath.Join(dir, "batch.yaml")
	require.NoError(t, os.WriteFile(path, []byte(doc), 0o644))

	items, err := loadBatchFile(path, dir)
	require.NoError(t, err)
	require.Len(t, items, 2)
	assert.Equal(t, download.Item{
		URL:      "https://example.com/a.jar",
		Path:     filepath.Join(dir, "libraries", "a.jar"),
		Size:     1024,
		Digest:   "0beec7b5ea3f0fdbc95d0dd47f3c5bc275da8a33",
		Priority: download.PriorityHigh,
	}, items[0])
	assert.Equal(t, abs, items[1].Path)
	assert.Equal(t, download.PriorityLow, items[1].Priority)

	_, err = loadBatchFile(filepath.Join(dir, "missing.yaml"), dir)
	require.Error(t, err)

	bad := filepath.Join(dir, "bad.yaml")
	require.NoError(t, os.WriteFile(bad, []byte("items:\n  - priority: urgent\n"), 0o644))
	_, err = loadBatchFile(bad, dir)
	require.Error(t, err)
}

func TestSummary(t *testing.T) {
	fields := summary(progress.Progress{TotalTasks: 4, CompletedTasks: 3, FailedTasks: 1, TotalBytes: 4000, DownloadedBytes: 3000}, 2*time.Second)
	assert.Equal(t, "3/4", fields["files"])
	assert.Equal(t, "3.0 kB", fields["size"])
	assert.Equal(t, "1.5 kB/s", fields["average"])
	assert.Equal(t, 1, fields["failed"])

	fields = summary(progress.Progress{}, 0)
	assert.NotContains(t, fields, "average")
	assert.NotContains(t, fields, "failed")
}

func TestProgressView(t *testing.T) {
	var out bytes.Buffer
	view := newProgressView(&out, true)

	view.OnProgress(progress.Progress{TotalTasks: 2, TotalBytes: 10})
	require.NotNil(t, view.bar)
	view.OnProgress(progress.Progress{TotalTasks: 2, CompletedTasks: 1, TotalBytes: 10, DownloadedBytes: 5})
	view.OnProgress(progress.Progress{TotalTasks: 2, CompletedTasks: 2, TotalBytes: 10, DownloadedBytes: 10})
	view.Finish()
	assert.Nil(t, view.bar)
	assert.NotEmpty(t, out.String())

	// An empty batch draws nothing.
	view.OnProgress(progress.Progress{})
	assert.Nil(t, view.bar)

	// A failure event drops an unfinished bar.
	view.OnProgress(progress.Progress{TotalTasks: 3})
	view.OnEvent(orchestrator.Event{Phase: orchestrator.PhaseError, ID: "x", Msg: "boom"})
	assert.Nil(t, view.bar)

	quiet := newProgressView(io.Discard, false)
	quiet.OnProgress(progress.Progress{TotalTasks: 2})
	assert.Nil(t, quiet.bar)
}

func TestStartMetricsServer(t *testing.T) {
	stop, err := startMetricsServer("127.0.0.1:0")
	require.NoError(t, err)
	stop()

	_, err = startMetricsServer("256.0.0.1:bad")
	require.Error(t, err)
}

func TestMetricsEndpoint(t *testing.T) {
	ln := "127.0.0.1:39217"
	stop, err := startMetricsServer(ln)
	if err != nil {
		t.Skipf("port unavailable: %v", err)
	}
	defer stop()

	require.Eventually(t, func() bool {
		resp, err := http.Get("http://" + ln + "/metrics")
		if err != nil {
			return false
		}
		defer func() { _ = resp.Body.Close() }()
		body, _ := io.ReadAll(resp.Body)
		return resp.StatusCode == http.StatusOK && bytes.Contains(body, []byte("mcfetch_"))
	}, 2*time.Second, 20*time.Millisecond)
}

func TestApplySettings(t *testing.T) {
	tests := []struct {
		name    string
		args    []string
		wantErr error
		check   func(t *testing.T, s config.Settings)
	}{
		{
			name: "several pairs",
			args: []string{"max_concurrent_downloads", "16", "retry_attempts", "5", "verify_files", "false"},
			check: func(t *testing.T, s config.Settings) {
				assert.Equal(t, 16, s.MaxConcurrent)
				assert.Equal(t, 5, s.RetryAttempts)
				assert.False(t, s.VerifyFiles)
			},
		},
		{
			name:    "one invalid pair rejects the edit",
			args:    []string{"retry_attempts", "5", "max_concurrent_downloads", "65"},
			wantErr: pkgerrors.ErrMaxConcurrentInvalid,
		},
		{
			name: "unknown key",
			args: []string{"no_such_key", "1"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := config.DefaultConfig()
			err := applySettings(cfg, pairs(tt.args))
			if tt.check == nil {
				require.Error(t, err)
				if tt.wantErr != nil {
					assert.ErrorIs(t, err, tt.wantErr)
				}
				return
			}
			require.NoError(t, err)
			tt.check(t, cfg.Settings)
		})
	}
}

func TestPairs(t *testing.T) {
	assert.Equal(t, []setting{{key: "a", value: "1"}, {key: "b", value: "2"}}, pairs([]string{"a", "1", "b", "2"}))
	assert.Empty(t, pairs(nil))
}

func TestWriteLayout(t *testing.T) {
	root := t.TempDir()
	var out bytes.Buffer
	require.NoError(t, writeLayout(&out, "/etc/mcfetch.yaml", config.NewLayout(root)))

	lines := strings.Split(strings.TrimSpace(out.String()), "\n")
	require.Len(t, lines, 8)
	assert.Contains(t, lines[0], "/etc/mcfetch.yaml")
	assert.Contains(t, out.String(), filepath.Join(root, "assets", "objects"))
	assert.Contains(t, out.String(), filepath.Join(root, "versions", "<id>", "natives"))
}

func TestWriteSettingsTable(t *testing.T) {
	var out bytes.Buffer
	require.NoError(t, writeSettingsTable(&out, config.DefaultConfig()))
	for _, key := range config.Keys() {
		assert.Contains(t, out.String(), key)
	}
}
