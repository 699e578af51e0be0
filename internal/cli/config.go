package cli

import (
	"fmt"
	"io"
	"os"
	"text/tabwriter"

	"github.com/cperrin88/mcfetch/internal/logger"
	"github.com/cperrin88/mcfetch/pkg/config"
	"github.com/cperrin88/mcfetch/pkg/errors"
	"github.com/spf13/cobra"
)

// NewConfigCmd creates the config command with subcommands.
func NewConfigCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "config",
		Short: "Manage configuration",
		Long:  "Inspect and edit the settings the download engine runs with.",
	}

	cmd.AddCommand(
		newConfigShowCmd(),
		newConfigGetCmd(),
		newConfigSetCmd(),
		newConfigInitCmd(),
		newConfigPathsCmd(),
	)

	return cmd
}

func newConfigShowCmd() *cobra.Command {
	var format string

	cmd := &cobra.Command{
		Use:   "show",
		Short: "Show the effective settings",
		Long:  "Print every setting after defaults are applied, as a table or as a yaml/toml document.",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return err
			}
			switch config.Format(format) {
			case config.FormatYAML, config.FormatTOML:
			case "table":
				return writeSettingsTable(cmd.OutOrStdout(), cfg)
			default:
				return fmt.Errorf("unknown format %q", format)
			}
			data, err := cfg.Encode(config.Format(format))
			if err != nil {
				return err
			}
			_, err = cmd.OutOrStdout().Write(data)
			return err
		},
	}

	cmd.Flags().StringVar(&format, "format", "table", "output format: table, yaml or toml")

	return cmd
}

func newConfigGetCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "get KEY",
		Short: "Print one setting",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return err
			}
			value, err := cfg.GetValue(args[0])
			if err != nil {
				return fmt.Errorf("failed to get configuration value: %w", err)
			}
			_, _ = fmt.Fprintln(cmd.OutOrStdout(), value)
			return nil
		},
	}
}

func newConfigSetCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "set KEY VALUE [KEY VALUE]...",
		Short: "Change settings",
		Long: `Change one or more settings. All pairs are applied and validated together;
nothing is written when any of them is rejected.

  mcfetch config set max_concurrent_downloads 16 retry_attempts 5`,
		Args: func(_ *cobra.Command, args []string) error {
			if len(args) == 0 || len(args)%2 != 0 {
				return fmt.Errorf("expected KEY VALUE pairs, got %d arguments", len(args))
			}
			return nil
		},
		RunE: func(_ *cobra.Command, args []string) error {
			return runConfigSet(pairs(args))
		},
	}
}

func newConfigInitCmd() *cobra.Command {
	var (
		force   bool
		gameDir string
	)

	cmd := &cobra.Command{
		Use:   "init",
		Short: "Write a default configuration file",
		Long:  "Write the default settings to the configuration file. A .toml path writes TOML, anything else YAML.",
		Args:  cobra.NoArgs,
		RunE: func(_ *cobra.Command, _ []string) error {
			return runConfigInit(force, gameDir)
		},
	}

	cmd.Flags().BoolVar(&force, "force", false, "overwrite an existing configuration file")
	cmd.Flags().StringVar(&gameDir, "game-dir", "", "game directory to download into (default: per-user data dir)")

	return cmd
}

func newConfigPathsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "paths",
		Short: "Show where files are downloaded",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return err
			}
			return writeLayout(cmd.OutOrStdout(), getConfigPath(), cfg.Layout())
		},
	}
}

// setting is one KEY VALUE pair from the command line.
type setting struct {
	key, value string
}

func pairs(args []string) []setting {
	out := make([]setting, 0, len(args)/2)
	for i := 0; i+1 < len(args); i += 2 {
		out = append(out, setting{key: args[i], value: args[i+1]})
	}
	return out
}

func runConfigSet(changes []setting) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	if err := applySettings(cfg, changes); err != nil {
		return err
	}

	path := getConfigPath()
	if err := cfg.SaveConfig(path); err != nil {
		return fmt.Errorf("failed to save configuration: %w", err)
	}
	for _, c := range changes {
		logger.Success("Setting updated", logger.Fields{"key": c.key, "value": c.value})
	}
	return nil
}

// applySettings sets every pair on cfg and validates the result once.
func applySettings(cfg *config.Config, changes []setting) error {
	for _, c := range changes {
		if err := cfg.SetValue(c.key, c.value); err != nil {
			return fmt.Errorf("failed to set %s: %w", c.key, err)
		}
	}
	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("rejected settings: %w", err)
	}
	return nil
}

func runConfigInit(force bool, gameDir string) error {
	path := getConfigPath()
	if _, err := os.Stat(path); err == nil && !force {
		return fmt.Errorf("configuration file already exists at %s (use --force to overwrite): %w", path, errors.ErrConfigFileExists)
	}

	initLogging("info")
	cfg := config.DefaultConfig()
	if gameDir != "" {
		cfg.Settings.GameDir = gameDir
	}
	if err := cfg.SaveConfig(path); err != nil {
		return fmt.Errorf("failed to save default configuration: %w", err)
	}

	logger.Success("Configuration file created", logger.Fields{"path": path, "game_dir": cfg.Settings.GameDir})
	return nil
}

func writeSettingsTable(out io.Writer, cfg *config.Config) error {
	tw := tabwriter.NewWriter(out, 0, 0, TabWidth, ' ', 0)
	_, _ = fmt.Fprintln(tw, "SETTING\tVALUE")
	values := cfg.ToMap()
	for _, key := range config.Keys() {
		_, _ = fmt.Fprintf(tw, "%s\t%s\n", key, values[key])
	}
	return tw.Flush()
}

func writeLayout(out io.Writer, configPath string, layout config.Layout) error {
	tw := tabwriter.NewWriter(out, 0, 0, TabWidth, ' ', 0)
	for _, row := range [][2]string{
		{"config", configPath},
		{"game", layout.Root},
		{"libraries", layout.LibrariesDir()},
		{"asset indexes", layout.AssetIndexesDir()},
		{"asset objects", layout.AssetObjectsDir()},
		{"log configs", layout.LogConfigsDir()},
		{"versions", layout.VersionDir("<id>")},
		{"natives", layout.NativesDir("<id>")},
	} {
		_, _ = fmt.Fprintf(tw, "%s\t%s\n", row[0], row[1])
	}
	return tw.Flush()
}
