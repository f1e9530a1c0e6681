package main

import (
	"fmt"
	"net/http"

	"github.com/spf13/cobra"

	"ytscan/pkg/checkpoint"
	"ytscan/pkg/config"
	"ytscan/pkg/keyspace"
	"ytscan/pkg/logger"
	"ytscan/pkg/prober"
	"ytscan/pkg/ui"
)

// resetCmd represents the reset command
var resetCmd = &cobra.Command{
	Use:   "reset",
	Short: "Reset the checkpoint to the first identifier",
	Long: `Reset the stored checkpoint so the next scan starts at the first identifier
of the space. The previous checkpoint is copied to <checkpoint>.backup first.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		space, store, err := openCheckpoint(cmd)
		if err != nil {
			return err
		}

		if current, err := store.Load(); err == nil && current.Compare(space.Origin()) == 0 {
			ui.PrintHighlight("Checkpoint already at the first identifier: " + space.Encode(current))
			return nil
		}

		if err := store.Backup(); err != nil {
			return err
		}
		if err := store.Reset(); err != nil {
			return err
		}
		logger.WithFields(map[string]interface{}{
			"checkpoint": store.Path(),
			"backup":     store.BackupPath(),
		}).Info("Checkpoint backed up and reset")

		ui.PrintSuccess("Checkpoint reset: " + space.Encode(space.Origin()))
		return nil
	},
}

// convertCmd represents the convert command
var convertCmd = &cobra.Command{
	Use:   "convert <identifier>",
	Short: "Print the index vector of an identifier",
	Long: `Print the colon-separated index vector of an identifier, the same
format the checkpoint file uses.`,
	Example: `  ytscan convert dQw4w9WgXcQ`,
	Args:    cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig(globalFlags(cmd))
		if err != nil {
			return err
		}
		space, err := buildSpace(cfg)
		if err != nil {
			return err
		}

		v, err := space.Decode(args[0])
		if err != nil {
			return err
		}
		fmt.Fprintln(cmd.OutOrStdout(), keyspace.FormatVector(v))
		return nil
	},
}

// testCmd represents the test command
var testCmd = &cobra.Command{
	Use:   "test <identifier>",
	Short: "Probe a single identifier and print its title",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig(globalFlags(cmd))
		if err != nil {
			return err
		}

		client := newProber(cfg, logger.GetLogger())

		logger.WithField("id", args[0]).Debug("Checking identifier")
		outcome, err := client.Check(cmd.Context(), args[0])
		if err != nil {
			ui.PrintWarning("Probe failed", err)
		}
		if outcome.Found() {
			ui.PrintInfo("Title", outcome.Title)
		} else {
			fmt.Fprintln(cmd.OutOrStdout(), "No title found.")
		}
		return nil
	},
}

// statusCmd represents the status command
var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show the stored checkpoint",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		space, store, err := openCheckpoint(cmd)
		if err != nil {
			return err
		}

		v, err := store.Load()
		if err != nil {
			return err
		}

		ui.PrintInfo("Checkpoint", store.Path())
		if !store.Exists() {
			ui.PrintWarning("No checkpoint yet, a scan starts at the first identifier")
		}
		ui.PrintInfo("Position", keyspace.FormatVector(v))
		ui.PrintInfo("Identifier", space.Encode(v))
		ui.PrintInfo("Remaining", space.Size(v).String())
		return nil
	},
}

// versionCmd represents the version command
var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print version information",
	Args:  cobra.NoArgs,
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Fprintf(cmd.OutOrStdout(), "ytscan %s (commit: %s, built: %s)\n", version, gitCommit, buildDate)
	},
}

func init() {
	rootCmd.AddCommand(resetCmd)
	rootCmd.AddCommand(convertCmd)
	rootCmd.AddCommand(testCmd)
	rootCmd.AddCommand(statusCmd)
	rootCmd.AddCommand(versionCmd)
}

// openCheckpoint loads configuration and opens the checkpoint store
func openCheckpoint(cmd *cobra.Command) (*keyspace.Space, *checkpoint.Store, error) {
	cfg, err := loadConfig(globalFlags(cmd))
	if err != nil {
		return nil, nil, err
	}
	space, err := buildSpace(cfg)
	if err != nil {
		return nil, nil, err
	}
	path, err := cfg.CheckpointPath()
	if err != nil {
		return nil, nil, err
	}
	store, err := checkpoint.NewStore(path, space, logger.GetLogger())
	if err != nil {
		return nil, nil, err
	}
	return space, store, nil
}

// newProber builds the HTTP prober, keeping one idle connection per
// concurrent probe so a scan reuses its connections
func newProber(cfg *config.Config, log logger.Logger) *prober.Client {
	client := prober.NewClient(prober.Options{
		BaseURL:           cfg.Target.BaseURL,
		UserAgent:         cfg.Target.UserAgent,
		Timeout:           cfg.Target.Timeout,
		PlaceholderTitles: cfg.Target.PlaceholderTitles,
		MaxBodyBytes:      cfg.Target.MaxBodyBytes,
	}, log)

	transport := http.DefaultTransport.(*http.Transport).Clone()
	transport.MaxIdleConnsPerHost = cfg.Scan.Concurrency
	client.SetHTTPClient(&http.Client{Transport: transport})
	return client
}
