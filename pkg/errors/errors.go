// Package errors defines the error taxonomy shared by the mcfetch packages.
// Every failure is a sentinel wrapped with context, so callers match with
// errors.Is / errors.As instead of comparing messages.
package errors

import (
	stderrors "errors"
	"fmt"
	"net/http"
)

// Common error types.
var (
	// Download errors.
	ErrInvalidURL        = fmt.Errorf("invalid download url")
	ErrHTTPStatus        = fmt.Errorf("unexpected http status")
	ErrDigestMismatch    = fmt.Errorf("file digest mismatch")
	ErrSizeMismatch      = fmt.Errorf("file size mismatch")
	ErrUnsupportedDigest = fmt.Errorf("unsupported digest format")
	ErrCancelled         = fmt.Errorf("download cancelled")
	ErrDownloadFailed    = fmt.Errorf("download failed")
	ErrInvalidPath       = fmt.Errorf("invalid path")
	ErrFileNotFound      = fmt.Errorf("file not found")

	// Archive errors.
	ErrArchiveFormat = fmt.Errorf("unsupported archive format")
	ErrUnsafeEntry   = fmt.Errorf("archive entry escapes destination")

	// Manifest errors.
	ErrAssetIndexMissing = fmt.Errorf("asset index not found")
	ErrManifestParse     = fmt.Errorf("failed to parse manifest")
	ErrManifestInvalid   = fmt.Errorf("invalid manifest")

	// Config errors.
	ErrEmptyConfigPath   = fmt.Errorf("config file path cannot be empty")
	ErrInvalidConfigPath = fmt.Errorf("invalid config file path")
	ErrConfigParse       = fmt.Errorf("failed to parse config")
	ErrConfigValidation  = fmt.Errorf("invalid configuration")
	ErrConfigEncode      = fmt.Errorf("failed to encode config")
	ErrConfigDirectory   = fmt.Errorf("failed to create config directory")
	ErrConfigFileCreate  = fmt.Errorf("failed to create config file")
	ErrConfigFileRename  = fmt.Errorf("failed to rename temporary config file")
	ErrConfigFileExists  = fmt.Errorf("configuration file already exists (use --force to overwrite)")
	ErrUnknownConfigKey  = fmt.Errorf("unknown configuration key")
	ErrInvalidConfigVal  = fmt.Errorf("invalid configuration value")

	// ErrMaxConcurrentInvalid is returned when max_concurrent_downloads is outside 1..64.
	ErrMaxConcurrentInvalid = fmt.Errorf("max_concurrent_downloads must be between 1 and 64")

	// ErrTimeoutNegative is returned when a timeout or delay is negative.
	ErrTimeoutNegative = fmt.Errorf("timeouts and delays cannot be negative")

	// ErrRetryAttemptsInvalid is returned when retry_attempts is less than 1.
	ErrRetryAttemptsInvalid = fmt.Errorf("retry_attempts must be at least 1")

	// ErrInvalidLogLevel is returned when an invalid log level is specified.
	ErrInvalidLogLevel = fmt.Errorf("invalid log level")
)

// HTTPError reports a non-success response status. It matches ErrHTTPStatus
// under errors.Is.
type HTTPError struct {
	StatusCode int
	URL        string
}

func (e *HTTPError) Error() string {
	return fmt.Sprintf("unexpected status code: %d %s (%s)", e.StatusCode, http.StatusText(e.StatusCode), e.URL)
}

// Is reports whether target is ErrHTTPStatus.
func (e *HTTPError) Is(target error) bool {
	return target == ErrHTTPStatus
}

// StatusCode extracts the HTTP status carried by err, or 0 when there is none.
func StatusCode(err error) int {
	var httpErr *HTTPError
	if stderrors.As(err, &httpErr) {
		return httpErr.StatusCode
	}
	return 0
}

// Wrap wraps an error with additional context.
func Wrap(err error, msg string) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf("%s: %w", msg, err)
}

// Wrapf wraps an error with additional formatted context.
func Wrapf(err error, format string, args ...interface{}) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf("%s: %w", fmt.Sprintf(format, args...), err)
}

// ErrInvalidLogLevelWithDetails is a helper to create a wrapped error with the invalid level and valid options.
func ErrInvalidLogLevelWithDetails(level string) error {
	return fmt.Errorf("%w: '%s', must be one of: debug, info, warn, error", ErrInvalidLogLevel, level)
}

// ErrInvalidConfigValWithDetails wraps ErrInvalidConfigVal with the offending key and value.
func ErrInvalidConfigValWithDetails(key, value string) error {
	return fmt.Errorf("%w for %s: %q", ErrInvalidConfigVal, key, value)
}

// ErrUnknownConfigKeyWithName wraps ErrUnknownConfigKey with the key name.
func ErrUnknownConfigKeyWithName(key string) error {
	return fmt.Errorf("%w: %s", ErrUnknownConfigKey, key)
}
