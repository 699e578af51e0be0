package cli

import (
	"fmt"
	"time"

	"github.com/cperrin88/mcfetch/internal/logger"
	"github.com/spf13/cobra"
)

// NewAssetsCmd creates the assets command.
func NewAssetsCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "assets INDEX_ID",
		Short: "Download the objects of an asset index",
		Long: `Download every object listed in assets/indexes/INDEX_ID.json below the
game directory. The index itself is fetched by the version command.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := newSession()
			if err != nil {
				return err
			}
			defer s.Close()

			start := time.Now()
			err = s.orch.DownloadAssets(cmd.Context(), args[0])
			s.progress.Finish()
			if err != nil {
				return fmt.Errorf("failed to download assets %s: %w", args[0], err)
			}
			logger.Success("Assets downloaded", summary(s.orch.Progress(), time.Since(start)))
			return nil
		},
	}

	return cmd
}
