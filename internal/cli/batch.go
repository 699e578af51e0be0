package cli

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/cperrin88/mcfetch/internal/logger"
	"github.com/cperrin88/mcfetch/pkg/download"
	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"
)

// batchFile is the document read by the batch command.
type batchFile struct {
	Items []download.Item `yaml:"items"`
}

// NewBatchCmd creates the batch command.
func NewBatchCmd() *cobra.Command {
	var baseDir string

	cmd := &cobra.Command{
		Use:   "batch FILE",
		Short: "Download a list of files",
		Long: `Download every item listed in a YAML file:

  items:
    - url: https://example.com/a.jar
      path: libraries/a.jar
      size: 1024
      digest: 0beec7b5ea3f0fdbc95d0dd47f3c5bc275da8a33
      priority: high

Relative paths are resolved against --dir.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runBatch(cmd, args[0], baseDir)
		},
	}

	cmd.Flags().StringVar(&baseDir, "dir", ".", "directory relative item paths are resolved against")

	return cmd
}

// loadBatchFile reads a batch document and makes every path absolute.
func loadBatchFile(path, baseDir string) ([]download.Item, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read batch file: %w", err)
	}
	var doc batchFile
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("failed to parse batch file %s: %w", path, err)
	}

	base, err := filepath.Abs(baseDir)
	if err != nil {
		return nil, fmt.Errorf("invalid directory %s: %w", baseDir, err)
	}
	for i := range doc.Items {
		if doc.Items[i].Path != "" && !filepath.IsAbs(doc.Items[i].Path) {
			doc.Items[i].Path = filepath.Join(base, doc.Items[i].Path)
		}
	}
	return doc.Items, nil
}

func runBatch(cmd *cobra.Command, path, baseDir string) error {
	items, err := loadBatchFile(path, baseDir)
	if err != nil {
		return err
	}

	s, err := newSession()
	if err != nil {
		return err
	}
	defer s.Close()

	start := time.Now()
	err = s.orch.DownloadFiles(cmd.Context(), items)
	s.progress.Finish()
	if err != nil {
		return fmt.Errorf("batch failed: %w", err)
	}
	logger.Success("Batch complete", summary(s.orch.Progress(), time.Since(start)))
	return nil
}
