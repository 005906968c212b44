package main

import (
	"os"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/aigraph/aigraph/internal/config"
)

var configInitForce bool

func init() {
	configInitCmd.Flags().BoolVar(&configInitForce, "force", false, "Overwrite an existing config file")
	configCmd.AddCommand(configPathCmd)
	configCmd.AddCommand(configInitCmd)
	rootCmd.AddCommand(configCmd)
}

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Show the effective configuration",
	Long: `Show the effective configuration: defaults, then the config file, then
environment variables (OPENAI_API_KEY, OPENAI_BASE_URL, AIG_DB, AIG_ADDR,
AIG_LOG_LEVEL). The API key is redacted.

Usage:
  aig config            # Show effective config
  aig config path       # Show which file is read
  aig config init       # Write the defaults to the user config file`,
	Args: cobra.NoArgs,
	RunE: runConfig,
}

var configPathCmd = &cobra.Command{
	Use:   "path",
	Short: "Show the config file location",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		path := configPath
		if path == "" {
			path = config.Path()
		}
		if humanOutput {
			outputHuman("%s\n", path)
			return nil
		}
		return outputJSON(StatusResponse{Status: "ok", Path: path})
	},
}

var configInitCmd = &cobra.Command{
	Use:   "init",
	Short: "Write the default configuration",
	Args:  cobra.NoArgs,
	RunE:  runConfigInit,
}

func runConfig(cmd *cobra.Command, args []string) error {
	cfg := mustLoadConfig().Redacted()
	if humanOutput {
		data, err := yaml.Marshal(cfg)
		if err != nil {
			return err
		}
		outputHuman("%s", data)
		return nil
	}
	return outputJSON(cfg)
}

func runConfigInit(cmd *cobra.Command, args []string) error {
	path := configPath
	if path == "" {
		path = config.UserPath()
	}
	if path == "" {
		exitWithError(ExitConfigError, "cannot determine the user config directory")
	}
	if _, err := os.Stat(path); err == nil && !configInitForce {
		exitWithError(ExitConfigError, "%s already exists; use --force to overwrite", path)
	}
	if err := config.Default().Save(path); err != nil {
		exitWithError(ExitConfigError, "%v", err)
	}
	if humanOutput {
		outputHuman("Config written to %s\n", path)
		return nil
	}
	return outputJSON(StatusResponse{Status: "created", Path: path})
}
