package main

import (
	"fmt"
	"os"
	"runtime"

	"github.com/spf13/cobra"

	"ytscan/pkg/config"
	"ytscan/pkg/keyspace"
	"ytscan/pkg/logger"
	"ytscan/pkg/ui"
)

var (
	// Version information
	version   = "1.0.0"
	gitCommit = "unknown"
	buildDate = "unknown"

	// Global flags
	configFile  string
	logLevel    string
	logFile     string
	dataDir     string
	checkpointF string
	noColor     bool
	quiet       bool
)

// rootCmd represents the base command when called without any subcommands
var rootCmd = &cobra.Command{
	Use:   "ytscan",
	Short: "Walk a fixed-width identifier space and record the ones that resolve",
	Long: `ytscan enumerates every identifier of a fixed width over an alphabet,
checks each one against an HTTP resource and records the ones that resolve
to real content.

Progress is checkpointed after every identifier, so an interrupted scan
resumes where it stopped.

Configuration can be loaded from:
  - Command line flags (highest priority)
  - Environment variables (YTSCAN_*)
  - .env files
  - Configuration file
  - Default values (lowest priority)`,
	Version:       fmt.Sprintf("%s (commit: %s, built: %s)", version, gitCommit, buildDate),
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRun: func(cmd *cobra.Command, args []string) {
		ui.SetOutput(cmd.OutOrStdout())
		if noColor {
			ui.SetColorEnabled(false)
		}
		if quiet {
			ui.SetQuietMode(true)
		}
		logger.Version = version
	},
}

// Execute adds all child commands to the root command and sets flags appropriately.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		ui.PrintError("ytscan failed", err.Error())
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&configFile, "config", "c", "", "config file (default is .ytscan.yaml or $HOME/.config/ytscan/config.yaml)")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "", "log level (debug, info, warn, error)")
	rootCmd.PersistentFlags().StringVar(&logFile, "log-file", "", "also write JSON logs to this file")
	rootCmd.PersistentFlags().StringVar(&dataDir, "data-dir", "", "directory holding the checkpoint and found files")
	rootCmd.PersistentFlags().StringVar(&checkpointF, "checkpoint", "", "checkpoint file name or path (default lastyt)")
	rootCmd.PersistentFlags().BoolVar(&noColor, "no-color", false, "disable colored output")
	rootCmd.PersistentFlags().BoolVarP(&quiet, "quiet", "q", false, "only print found identifiers and the summary")

	// Version template
	rootCmd.SetVersionTemplate(`ytscan {{.Version}}
Go Version: ` + runtime.Version() + `
OS/Arch: ` + runtime.GOOS + `/` + runtime.GOARCH + `
`)

	// Disable default completion command
	rootCmd.CompletionOptions.DisableDefaultCmd = true
}

// globalFlags returns the persistent flags the user actually set, keyed
// the way config.MergeCommandLineFlags expects
func globalFlags(cmd *cobra.Command) map[string]interface{} {
	flags := make(map[string]interface{})
	f := cmd.Flags()
	if f.Changed("log-level") {
		flags["log-level"] = logLevel
	}
	if f.Changed("log-file") {
		flags["log-file"] = logFile
	}
	if f.Changed("data-dir") {
		flags["data-dir"] = dataDir
	}
	if f.Changed("checkpoint") {
		flags["checkpoint"] = checkpointF
	}
	return flags
}

// loadConfig resolves the configuration and initializes the global logger
func loadConfig(flags map[string]interface{}) (*config.Config, error) {
	cfg, err := config.Load(configFile, flags)
	if err != nil {
		return nil, err
	}
	if err := logger.Initialize(&cfg.Logging); err != nil {
		return nil, fmt.Errorf("failed to initialize logger: %w", err)
	}
	return cfg, nil
}

// buildSpace creates the identifier space described by cfg
func buildSpace(cfg *config.Config) (*keyspace.Space, error) {
	alphabet, err := keyspace.NewAlphabet(cfg.Space.Alphabet)
	if err != nil {
		return nil, err
	}
	return keyspace.NewSpace(alphabet, cfg.Space.Width)
}
