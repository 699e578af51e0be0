package cli

import (
	"fmt"
	"path/filepath"
	"time"

	"github.com/cperrin88/mcfetch/internal/logger"
	"github.com/spf13/cobra"
)

// NewFileCmd creates the file command.
func NewFileCmd() *cobra.Command {
	var (
		size     int64
		digest   string
		attempts int
	)

	cmd := &cobra.Command{
		Use:   "file URL DEST",
		Short: "Download a single file",
		Long: `Download one file to DEST. An existing file of the given size is kept,
otherwise the file is downloaded, verified against --digest and moved into place.`,
		Args: cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runFile(cmd, args[0], args[1], size, digest, attempts)
		},
	}

	cmd.Flags().Int64Var(&size, "size", 0, "expected size in bytes (0 if unknown)")
	cmd.Flags().StringVar(&digest, "digest", "", "expected hex SHA-1, SHA-256 or SHA-512 digest")
	cmd.Flags().IntVar(&attempts, "attempts", 0, "requests allowed for this file, including the first (default: from config)")

	return cmd
}

func runFile(cmd *cobra.Command, url, dest string, size int64, digest string, attempts int) error {
	s, err := newSession()
	if err != nil {
		return err
	}
	defer s.Close()

	abs, err := filepath.Abs(dest)
	if err != nil {
		return fmt.Errorf("invalid destination %s: %w", dest, err)
	}

	start := time.Now()
	if err := s.orch.DownloadFile(cmd.Context(), url, abs, size, digest, attempts); err != nil {
		return fmt.Errorf("failed to download %s: %w", url, err)
	}
	logger.Success("File downloaded", logger.Fields{"path": abs, "duration": time.Since(start).Round(time.Millisecond).String()})
	return nil
}
