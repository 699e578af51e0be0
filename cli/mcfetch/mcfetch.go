package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/cperrin88/mcfetch/internal/cli"
	"github.com/spf13/cobra"
)

var (
	configPath  string
	verbose     bool
	logFormat   string
	metricsAddr string
	noProgress  bool
)

func main() {
	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)

	rootCmd := newRootCmd()
	if err := rootCmd.ExecuteContext(ctx); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		cancel()
		os.Exit(1)
	}

	cancel()
}

func newRootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "mcfetch",
		Short: "Download game versions, libraries and assets",
		Long: `mcfetch downloads the files a game launcher needs with:
- bounded concurrency and automatic retries
- digest verification and atomic installation
- live progress and optional Prometheus metrics`,
		SilenceUsage: true,
	}

	// Global flags
	cmd.PersistentFlags().StringVar(&configPath, "config", "", "config file path (default: auto-detect)")
	cmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "verbose output")
	cmd.PersistentFlags().StringVar(&logFormat, "log-format", "text", "log format (text, json)")
	cmd.PersistentFlags().StringVar(&metricsAddr, "metrics-addr", "", "serve Prometheus metrics on this address while downloading")
	cmd.PersistentFlags().BoolVar(&noProgress, "no-progress", false, "disable the progress bar")

	// Set up CLI pkg variables
	cli.ConfigPath = &configPath
	cli.Verbose = &verbose
	cli.LogFormat = &logFormat
	cli.MetricsAddr = &metricsAddr
	cli.NoProgress = &noProgress

	// Add subcommands
	cmd.AddCommand(
		cli.NewFileCmd(),
		cli.NewBatchCmd(),
		cli.NewVersionCmd(),
		cli.NewAssetsCmd(),
		cli.NewConfigCmd(),
		cli.NewAboutCmd(),
	)

	return cmd
}
