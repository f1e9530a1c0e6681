package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"ytscan/pkg/config"
	"ytscan/pkg/ui"
)

// configCmd represents the config command
var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Manage configuration files",
	Long: `Manage ytscan configuration files.

Configuration can be loaded from:
  - Command line flags (highest priority)
  - Environment variables (YTSCAN_*)
  - .env files
  - Configuration file
  - Default values (lowest priority)`,
}

// initCmd represents the config init command
var initCmd = &cobra.Command{
	Use:   "init",
	Short: "Write the default configuration to a file",
	Long: `Write the default configuration to a YAML file.

The file is created in the current directory as 'ytscan.yaml' unless a
different path is given with the --config flag.`,
	Args: cobra.NoArgs,
	RunE: runConfigInit,
}

// showCmd represents the config show command
var showCmd = &cobra.Command{
	Use:   "show",
	Short: "Show the effective configuration",
	Args:  cobra.NoArgs,
	RunE:  runConfigShow,
}

// validateCmd represents the config validate command
var validateCmd = &cobra.Command{
	Use:   "validate",
	Short: "Validate the configuration",
	Args:  cobra.NoArgs,
	RunE:  runConfigValidate,
}

func init() {
	rootCmd.AddCommand(configCmd)
	configCmd.AddCommand(initCmd)
	configCmd.AddCommand(showCmd)
	configCmd.AddCommand(validateCmd)
}

func runConfigInit(cmd *cobra.Command, args []string) error {
	configPath := configFile
	if configPath == "" {
		configPath = "ytscan.yaml"
	}

	if _, err := os.Stat(configPath); err == nil {
		return fmt.Errorf("configuration file already exists: %s", configPath)
	}

	if err := config.DefaultConfig().Save(configPath); err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	fmt.Fprintln(out, ui.Green("Configuration file created: "+configPath))
	fmt.Fprintln(out, "\nNext steps:")
	fmt.Fprintln(out, "1. Edit the base URL, alphabet and width if needed")
	fmt.Fprintln(out, "2. Run 'ytscan config validate' to check the configuration")
	fmt.Fprintln(out, "3. Start scanning with 'ytscan scan'")
	return nil
}

func runConfigShow(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load(configFile, globalFlags(cmd))
	if err != nil {
		return err
	}

	data, err := yaml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("failed to format configuration: %w", err)
	}

	out := cmd.OutOrStdout()
	fmt.Fprint(out, string(data))

	fmt.Fprintln(out, "\nConfiguration sources (in order of priority):")
	fmt.Fprintln(out, "1. Command line flags")
	fmt.Fprintln(out, "2. Environment variables (YTSCAN_*)")
	if configFile != "" {
		fmt.Fprintf(out, "3. Configuration file: %s\n", configFile)
	} else {
		fmt.Fprintln(out, "3. Configuration file: (searched default locations)")
	}
	fmt.Fprintln(out, "4. Default values")
	return nil
}

func runConfigValidate(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load(configFile, globalFlags(cmd))
	if err != nil {
		return err
	}

	space, err := buildSpace(cfg)
	if err != nil {
		return err
	}

	dir, err := cfg.DataDirectory()
	if err != nil {
		return fmt.Errorf("cannot create data directory: %w", err)
	}

	out := cmd.OutOrStdout()
	fmt.Fprintln(out, ui.Green("Configuration is valid"))
	fmt.Fprintln(out, "\nConfiguration summary:")
	fmt.Fprintf(out, "  Base URL: %s\n", cfg.Target.BaseURL)
	fmt.Fprintf(out, "  Alphabet: %d symbols, width %d\n", space.Alphabet().Len(), space.Width())
	fmt.Fprintf(out, "  Space size: %s\n", space.Size(space.Origin()).String())
	fmt.Fprintf(out, "  Concurrency: %d\n", cfg.Scan.Concurrency)
	fmt.Fprintf(out, "  Data directory: %s\n", dir)
	fmt.Fprintf(out, "  Log level: %s\n", cfg.Logging.Level)
	return nil
}
