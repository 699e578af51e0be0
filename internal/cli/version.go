package cli

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/cperrin88/mcfetch/internal/logger"
	"github.com/cperrin88/mcfetch/pkg/fsutil"
	"github.com/cperrin88/mcfetch/pkg/manifest"
	"github.com/cperrin88/mcfetch/pkg/orchestrator"
	"github.com/spf13/cobra"
)

// NewVersionCmd creates the version command.
func NewVersionCmd() *cobra.Command {
	var (
		natives    bool
		withAssets bool
	)

	cmd := &cobra.Command{
		Use:   "version MANIFEST",
		Short: "Download a game version",
		Long: `Download the client jar, libraries, natives, asset index and logging
configuration of a version. MANIFEST is a version JSON file or its URL; a
downloaded manifest is stored next to the client jar.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runVersion(cmd, args[0], natives, withAssets)
		},
	}

	cmd.Flags().BoolVar(&natives, "natives", true, "extract native libraries after downloading")
	cmd.Flags().BoolVar(&withAssets, "assets", false, "also download the version's assets")

	return cmd
}

func runVersion(cmd *cobra.Command, source string, natives, withAssets bool) error {
	s, err := newSession()
	if err != nil {
		return err
	}
	defer s.Close()

	ctx := cmd.Context()
	v, err := loadVersionManifest(ctx, s.orch, source)
	if err != nil {
		return err
	}

	start := time.Now()
	err = s.orch.DownloadVersion(ctx, v, orchestrator.VersionOptions{ExtractNatives: natives})
	s.progress.Finish()
	if err != nil {
		return fmt.Errorf("failed to download version %s: %w", v.ID, err)
	}
	logger.Success("Version downloaded", logger.Fields{"version": v.ID}, summary(s.orch.Progress(), time.Since(start)))

	if !withAssets {
		return nil
	}
	id := v.AssetIndexID()
	if id == "" {
		logger.Warn("Version has no asset index", logger.Fields{"version": v.ID})
		return nil
	}
	start = time.Now()
	err = s.orch.DownloadAssets(ctx, id)
	s.progress.Finish()
	if err != nil {
		return fmt.Errorf("failed to download assets %s: %w", id, err)
	}
	logger.Success("Assets downloaded", logger.Fields{"index": id}, summary(s.orch.Progress(), time.Since(start)))
	return nil
}

func isRemote(source string) bool {
	return strings.HasPrefix(source, "http://") || strings.HasPrefix(source, "https://")
}

// loadVersionManifest reads a local manifest, or downloads a remote one and
// keeps a copy at versions/<id>/<id>.json.
func loadVersionManifest(ctx context.Context, orch *orchestrator.Orchestrator, source string) (*manifest.Version, error) {
	if !isRemote(source) {
		return manifest.LoadVersion(source)
	}

	tmpDir, err := os.MkdirTemp("", "mcfetch-manifest-")
	if err != nil {
		return nil, fmt.Errorf("failed to create temporary directory: %w", err)
	}
	defer func() { _ = os.RemoveAll(tmpDir) }()

	tmp := filepath.Join(tmpDir, "version.json")
	if err := orch.DownloadFile(ctx, source, tmp, 0, "", 0); err != nil {
		return nil, fmt.Errorf("failed to download manifest: %w", err)
	}
	v, err := manifest.LoadVersion(tmp)
	if err != nil {
		return nil, err
	}

	dest := filepath.Join(orch.Paths().VersionDir(v.ID), v.ID+".json")
	if err := fsutil.EnsureFileDir(dest); err != nil {
		return nil, fmt.Errorf("failed to create version directory: %w", err)
	}
	if err := fsutil.Copy(tmp, dest); err != nil {
		return nil, fmt.Errorf("failed to store manifest: %w", err)
	}
	return v, nil
}
