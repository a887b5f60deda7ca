package main

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/jackzampolin/lqa/internal/config"
	"github.com/jackzampolin/lqa/internal/home"
	"github.com/jackzampolin/lqa/internal/output"
)

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Manage lqa configuration",
}

var configInitForce bool

var configInitCmd = &cobra.Command{
	Use:   "init",
	Short: "Write the default configuration file",
	Long: `Write the default configuration to ~/.lqa/config.yaml (or --config).

API keys are stored as ${ENV_VAR} references and resolved at load time.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		path := cfgFile
		if path == "" {
			h, err := home.New(homeDir)
			if err != nil {
				return err
			}
			if err := h.EnsureExists(); err != nil {
				return err
			}
			path = h.ConfigPath()
		} else if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
			return fmt.Errorf("failed to create config directory: %w", err)
		}

		if _, err := os.Stat(path); err == nil && !configInitForce {
			return fmt.Errorf("config already exists at %s (use --force to overwrite)", path)
		}
		if err := config.WriteDefault(path); err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "Wrote %s\n", path)
		return nil
	},
}

var configShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Print the effective configuration",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		mgr, err := config.NewManager(resolveConfigFile())
		if err != nil {
			return err
		}
		format := output.GetFormat()
		if format == output.FormatTable {
			format = output.FormatYAML
		}
		return output.WriteTo(cmd.OutOrStdout(), format, mgr.Get())
	},
}

func init() {
	configInitCmd.Flags().BoolVar(&configInitForce, "force", false, "overwrite an existing config file")
	configCmd.AddCommand(configInitCmd)
	configCmd.AddCommand(configShowCmd)
}

// resolveConfigFile prefers --config, then the config inside --home.
// An empty result lets the manager search its default paths.
func resolveConfigFile() string {
	if cfgFile != "" || homeDir == "" {
		return cfgFile
	}
	h, err := home.New(homeDir)
	if err != nil || !h.ConfigExists() {
		return ""
	}
	return h.ConfigPath()
}
