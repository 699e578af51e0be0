package download

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"
	"path/filepath"
	"time"

	"github.com/cperrin88/mcfetch/internal/logger"
	"github.com/cperrin88/mcfetch/pkg/config"
	pkgerrors "github.com/cperrin88/mcfetch/pkg/errors"
	"github.com/cperrin88/mcfetch/pkg/fsutil"
	"github.com/cperrin88/mcfetch/pkg/metrics"
	"github.com/cperrin88/mcfetch/pkg/progress"
	"github.com/cperrin88/mcfetch/pkg/retry"
	"github.com/cperrin88/mcfetch/pkg/verify"
	"golang.org/x/time/rate"
)

// Options configures a ManagerImpl. It is fixed for the manager's lifetime.
type Options struct {
	// Client overrides the HTTP client built from Transport.
	Client    *http.Client
	Transport TransportOptions

	// MaxConcurrent bounds simultaneous transfers in FetchAll.
	MaxConcurrent int
	Retry         retry.Policy
	// VerifyFiles enables digest checks on freshly downloaded files.
	VerifyFiles bool
	UserAgent   string
	// RequestsPerSecond throttles request starts; zero disables throttling.
	RequestsPerSecond float64
	// SampleInterval is the speed sampling period during FetchAll.
	SampleInterval time.Duration
}

// OptionsFromSettings maps a configuration snapshot onto manager options.
func OptionsFromSettings(s config.Settings) Options {
	return Options{
		Transport: TransportOptions{
			RequestTimeout:  s.RequestTimeout,
			ResourceTimeout: s.ResourceTimeout,
			Proxy:           s.Proxy,
			MaxConnsPerHost: s.MaxConcurrent,
		},
		MaxConcurrent: s.MaxConcurrent,
		Retry: retry.Policy{
			MaxAttempts: s.RetryAttempts,
			BaseDelay:   s.RetryBaseDelay,
			MaxDelay:    s.RetryMaxDelay,
		},
		VerifyFiles:       s.VerifyFiles,
		UserAgent:         s.UserAgent,
		RequestsPerSecond: s.RequestsPerSecond,
		SampleInterval:    progress.DefaultSampleInterval,
	}
}

// ManagerImpl is the HTTP download manager. Files are streamed into a
// temporary sibling of the destination, verified, then renamed into place.
type ManagerImpl struct {
	client  *http.Client
	opts    Options
	limiter *rate.Limiter
}

var _ Manager = (*ManagerImpl)(nil)

// NewManager creates a download manager.
func NewManager(opts Options) (*ManagerImpl, error) {
	if opts.MaxConcurrent < config.MinMaxConcurrent || opts.MaxConcurrent > config.MaxMaxConcurrent {
		return nil, pkgerrors.ErrMaxConcurrentInvalid
	}
	if opts.Retry.MaxAttempts < 1 {
		opts.Retry = retry.DefaultPolicy()
	}
	if opts.UserAgent == "" {
		opts.UserAgent = config.DefaultUserAgent
	}
	if opts.SampleInterval <= 0 {
		opts.SampleInterval = progress.DefaultSampleInterval
	}

	client := opts.Client
	if client == nil {
		var err error
		client, err = NewClient(opts.Transport)
		if err != nil {
			return nil, err
		}
	}

	m := &ManagerImpl{client: client, opts: opts}
	if opts.RequestsPerSecond > 0 {
		burst := int(opts.RequestsPerSecond)
		if burst < 1 {
			burst = 1
		}
		m.limiter = rate.NewLimiter(rate.Limit(opts.RequestsPerSecond), burst)
	}
	return m, nil
}

// Options returns the manager's configuration.
func (m *ManagerImpl) Options() Options { return m.opts }

// Fetch downloads a single item.
func (m *ManagerImpl) Fetch(ctx context.Context, item Item, opts ...FetchOption) error {
	var cfg fetchConfig
	for _, opt := range opts {
		opt(&cfg)
	}
	_, err := m.fetchOne(ctx, item, m.opts.Retry.WithMaxAttempts(cfg.maxAttempts))
	return err
}

// fetchOne reports skipped when an existing file already satisfied item.
func (m *ManagerImpl) fetchOne(ctx context.Context, item Item, policy retry.Policy) (skipped bool, err error) {
	if err := validateItem(item); err != nil {
		return false, err
	}
	if m.opts.VerifyFiles && item.Digest != "" {
		if _, err := verify.Detect(item.Digest); err != nil {
			return false, err
		}
	}

	ok, err := fsutil.SizeMatches(item.Path, item.Size)
	if err != nil {
		return false, pkgerrors.Wrapf(err, "could not stat %s", item.Path)
	}
	if ok {
		metrics.DownloadsTotal.WithLabelValues(metrics.ResultSkipped).Inc()
		logger.Debug("File already present", logger.Fields{"path": item.Path, "size": item.Size})
		return true, nil
	}
	if err := fsutil.RemoveIfExists(item.Path); err != nil {
		return false, pkgerrors.Wrapf(err, "could not remove stale %s", item.Path)
	}

	metrics.ActiveTransfers.Inc()
	defer metrics.ActiveTransfers.Dec()
	start := time.Now()

	err = policy.Do(ctx, func(attempt int) error {
		if attempt > 0 {
			metrics.RetriesTotal.Inc()
			logger.Debug("Retrying download", logger.Fields{
				"url":     item.URL,
				"attempt": attempt + 1,
			})
		}
		attemptErr := m.attempt(ctx, item)
		if attemptErr != nil && policy.ShouldRetry(attempt, attemptErr) {
			logger.Debug("Download attempt failed", logger.Fields{
				"url":   item.URL,
				"error": attemptErr.Error(),
				"wait":  policy.DelayFor(attempt).String(),
			})
		}
		return attemptErr
	})
	metrics.DownloadDuration.Observe(time.Since(start).Seconds())

	if err != nil {
		metrics.DownloadsTotal.WithLabelValues(metrics.ResultFailed).Inc()
		return false, err
	}
	metrics.DownloadsTotal.WithLabelValues(metrics.ResultCompleted).Inc()
	metrics.DownloadedBytesTotal.Add(float64(item.Size))
	logger.Debug("Downloaded file", logger.Fields{"url": item.URL, "path": item.Path})
	return false, nil
}

func validateItem(item Item) error {
	u, err := url.Parse(item.URL)
	if err != nil {
		return pkgerrors.Wrapf(pkgerrors.ErrInvalidURL, "%q: %v", item.URL, err)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return pkgerrors.Wrapf(pkgerrors.ErrInvalidURL, "%q: unsupported scheme", item.URL)
	}
	if u.Host == "" {
		return pkgerrors.Wrapf(pkgerrors.ErrInvalidURL, "%q: missing host", item.URL)
	}
	return validatePath(item.Path)
}

func validatePath(path string) error {
	if path == "" || !filepath.IsAbs(path) {
		return fmt.Errorf("destination must be absolute: %w: %q", pkgerrors.ErrInvalidPath, path)
	}
	return nil
}

// attempt performs one request and installs the result. The temporary file
// is removed on every failure.
func (m *ManagerImpl) attempt(ctx context.Context, item Item) error {
	if m.limiter != nil {
		if err := m.limiter.Wait(ctx); err != nil {
			if ctx.Err() != nil {
				return pkgerrors.Wrap(pkgerrors.ErrCancelled, err.Error())
			}
			return pkgerrors.Wrap(err, "request throttle")
		}
	}

	resp, err := m.doRequest(ctx, item)
	if err != nil {
		return err
	}
	defer func() { _ = resp.Body.Close() }()

	tmpPath, written, err := writeBodyToTemp(resp.Body, item.Path)
	if err != nil {
		return err
	}
	installed := false
	defer func() {
		if !installed {
			_ = fsutil.RemoveIfExists(tmpPath)
		}
	}()

	if item.Size > 0 && written != item.Size {
		return pkgerrors.Wrapf(pkgerrors.ErrSizeMismatch, "%s: got %d bytes, want %d", item.URL, written, item.Size)
	}

	if m.opts.VerifyFiles && item.Digest != "" {
		ok, err := verify.File(tmpPath, item.Digest)
		if err != nil {
			return err
		}
		if !ok {
			return pkgerrors.Wrapf(pkgerrors.ErrDigestMismatch, "%s", item.URL)
		}
	}

	if err := finalizeFile(tmpPath, item.Path); err != nil {
		return err
	}
	installed = true
	return nil
}

func (m *ManagerImpl) doRequest(ctx context.Context, item Item) (*http.Response, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, item.URL, http.NoBody)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.ErrInvalidURL, err.Error())
	}
	req.Header.Set("User-Agent", m.opts.UserAgent)
	resp, err := m.client.Do(req)
	if err != nil {
		return nil, pkgerrors.Wrap(err, "request failed")
	}
	if resp.StatusCode < http.StatusOK || resp.StatusCode >= http.StatusMultipleChoices {
		_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, 4096))
		_ = resp.Body.Close()
		return nil, &pkgerrors.HTTPError{StatusCode: resp.StatusCode, URL: item.URL}
	}
	return resp, nil
}

// writeBodyToTemp streams body next to absPath and returns the temporary
// path with the number of bytes written.
func writeBodyToTemp(body io.Reader, absPath string) (string, int64, error) {
	if err := fsutil.EnsureFileDir(absPath); err != nil {
		return "", 0, pkgerrors.Wrap(err, "could not create download dir")
	}
	tmp, err := os.CreateTemp(filepath.Dir(absPath), "."+filepath.Base(absPath)+".*.part")
	if err != nil {
		return "", 0, pkgerrors.Wrap(err, "could not create temp file")
	}
	tmpPath := tmp.Name()

	fail := func(err error, msg string) (string, int64, error) {
		_ = tmp.Close()
		_ = os.Remove(tmpPath)
		return "", 0, pkgerrors.Wrap(err, msg)
	}
	written, err := io.Copy(tmp, body)
	if err != nil {
		return fail(err, "could not write file")
	}
	if err := tmp.Sync(); err != nil {
		return fail(err, "could not sync file")
	}
	if err := tmp.Close(); err != nil {
		_ = os.Remove(tmpPath)
		return "", 0, pkgerrors.Wrap(err, "could not close file")
	}
	return tmpPath, written, nil
}

func finalizeFile(tmpPath, absPath string) error {
	if err := fsutil.Move(tmpPath, absPath); err != nil {
		return pkgerrors.Wrap(err, "could not finalize file")
	}
	if err := os.Chmod(absPath, fsutil.FileModeDefault); err != nil {
		return pkgerrors.Wrap(err, "could not set permissions")
	}
	return nil
}
