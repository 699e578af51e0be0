//go:generate mockgen -destination=./mocks/manager.go . Manager

package download

import (
	"context"
	"fmt"
	"sort"
	"strconv"
	"strings"

	"github.com/cperrin88/mcfetch/pkg/progress"
)

// Manager downloads remote files onto local paths.
type Manager interface {
	// Fetch downloads a single item onto item.Path, verifying and installing
	// it atomically. An existing file of the declared size is left alone.
	Fetch(ctx context.Context, item Item, opts ...FetchOption) error

	// FetchAll downloads every item under the configured concurrency bound,
	// reporting to tracker. It returns the first terminal item error, or
	// ErrCancelled when ctx ends first.
	FetchAll(ctx context.Context, items []Item, tracker progress.Tracker) error
}

// Priority biases the start order of items within one batch.
type Priority int

const (
	PriorityLow Priority = iota
	PriorityNormal
	PriorityHigh
	PriorityCritical
)

func (p Priority) String() string {
	switch p {
	case PriorityLow:
		return "low"
	case PriorityNormal:
		return "normal"
	case PriorityHigh:
		return "high"
	case PriorityCritical:
		return "critical"
	default:
		return fmt.Sprintf("priority(%d)", int(p))
	}
}

// ParsePriority accepts a priority name or its number.
func ParsePriority(s string) (Priority, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "normal":
		return PriorityNormal, nil
	case "low":
		return PriorityLow, nil
	case "high":
		return PriorityHigh, nil
	case "critical":
		return PriorityCritical, nil
	}
	n, err := strconv.Atoi(strings.TrimSpace(s))
	if err != nil || n < int(PriorityLow) || n > int(PriorityCritical) {
		return 0, fmt.Errorf("unknown priority %q", s)
	}
	return Priority(n), nil
}

// MarshalText implements encoding.TextMarshaler.
func (p Priority) MarshalText() ([]byte, error) {
	return []byte(p.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (p *Priority) UnmarshalText(text []byte) error {
	parsed, err := ParsePriority(string(text))
	if err != nil {
		return err
	}
	*p = parsed
	return nil
}

// Item is one remote file and where it must end up.
// Path must be absolute. Size is the declared size in bytes and Digest an
// optional hex digest.
type Item struct {
	URL      string   `yaml:"url" json:"url"`
	Path     string   `yaml:"path" json:"path"`
	Size     int64    `yaml:"size" json:"size"`
	Digest   string   `yaml:"digest,omitempty" json:"digest,omitempty"`
	Priority Priority `yaml:"priority" json:"priority"`
}

// SortByPriority orders items by descending priority, keeping the relative
// order of equal priorities.
func SortByPriority(items []Item) {
	sort.SliceStable(items, func(i, j int) bool {
		return items[i].Priority > items[j].Priority
	})
}

// TotalSize sums the declared sizes.
func TotalSize(items []Item) int64 {
	var total int64
	for _, it := range items {
		total += it.Size
	}
	return total
}

// FetchOption adjusts a single Fetch call.
type FetchOption func(*fetchConfig)

type fetchConfig struct {
	maxAttempts int
}

// WithMaxAttempts overrides the retry budget for one call. Values below one
// keep the manager's policy.
func WithMaxAttempts(n int) FetchOption {
	return func(c *fetchConfig) { c.maxAttempts = n }
}
