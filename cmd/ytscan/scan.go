package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"ytscan/pkg/checkpoint"
	"ytscan/pkg/config"
	"ytscan/pkg/keyspace"
	"ytscan/pkg/logger"
	"ytscan/pkg/metrics"
	"ytscan/pkg/prober"
	"ytscan/pkg/ratelimit"
	"ytscan/pkg/results"
	"ytscan/pkg/scanner"
	"ytscan/pkg/ui"
	"ytscan/pkg/ui/tui"
)

var (
	// Scan command flags
	gentle      bool
	concurrency int
	timeout     time.Duration
	baseURL     string
	foundFile   string
	foundFormat string
	rpm         int
	metricsAddr string
	useTUI      bool
)

// scanCmd represents the scan command
var scanCmd = &cobra.Command{
	Use:   "scan [gentle|sleep]",
	Short: "Scan the identifier space from the last checkpoint",
	Long: `Scan every identifier from the stored checkpoint to the end of the space.

Each identifier is checked against the configured base URL. Identifiers whose
page title is a real title are recorded in the found file when the scan ends.
The checkpoint advances in enumeration order after every identifier, so the
scan can be interrupted with Ctrl+C and resumed later.

Pass "gentle" (or "sleep") to wait a random 1-4 seconds after every result.`,
	Example: `  # Scan from the last checkpoint with 10 concurrent probes
  ytscan scan

  # Scan politely
  ytscan scan gentle

  # Scan with a live terminal view and a metrics endpoint
  ytscan scan --tui --metrics-addr :9090`,
	Args: cobra.MaximumNArgs(1),
	RunE: runScan,
}

func init() {
	rootCmd.AddCommand(scanCmd)

	scanCmd.Flags().BoolVar(&gentle, "gentle", false, "wait a random delay after every result")
	scanCmd.Flags().IntVarP(&concurrency, "concurrency", "n", 0, "maximum probes in flight (default 10)")
	scanCmd.Flags().DurationVar(&timeout, "timeout", 0, "per-probe timeout (default 15s)")
	scanCmd.Flags().StringVar(&baseURL, "base-url", "", "resource each identifier is appended to")
	scanCmd.Flags().StringVar(&foundFile, "found-file", "", "found file name or path")
	scanCmd.Flags().StringVar(&foundFormat, "found-format", "", "found file format (csv, text)")
	scanCmd.Flags().IntVar(&rpm, "rpm", 0, "cap probes per minute (0 disables)")
	scanCmd.Flags().StringVar(&metricsAddr, "metrics-addr", "", "serve Prometheus metrics on this address")
	scanCmd.Flags().BoolVar(&useTUI, "tui", false, "use interactive terminal UI with real-time progress")
}

// scanFlags collects the scan flags the user set
func scanFlags(cmd *cobra.Command, args []string) (map[string]interface{}, error) {
	flags := globalFlags(cmd)
	f := cmd.Flags()

	if len(args) == 1 {
		switch args[0] {
		case "gentle", "sleep":
			flags["gentle"] = true
		default:
			return nil, fmt.Errorf("unknown scan mode %q (expected gentle or sleep)", args[0])
		}
	}
	if f.Changed("gentle") {
		flags["gentle"] = gentle
	}
	if f.Changed("concurrency") {
		flags["concurrency"] = concurrency
	}
	if f.Changed("timeout") {
		flags["timeout"] = timeout
	}
	if f.Changed("base-url") {
		flags["base-url"] = baseURL
	}
	if f.Changed("found-file") {
		flags["found-file"] = foundFile
	}
	if f.Changed("found-format") {
		flags["found-format"] = foundFormat
	}
	if f.Changed("rpm") {
		flags["rpm"] = rpm
	}
	if f.Changed("metrics-addr") {
		flags["metrics-addr"] = metricsAddr
	}
	// The live view owns the terminal; console logs would tear it
	if useTUI && !f.Changed("log-level") {
		flags["log-level"] = "error"
	}
	return flags, nil
}

// scanJob is everything a scan needs, built from configuration
type scanJob struct {
	cfg   *config.Config
	space *keyspace.Space
	store *checkpoint.Store
	sink  *results.Sink
	probe *prober.Client
	opts  scanner.Options
}

func newScanJob(cfg *config.Config, log logger.Logger) (*scanJob, error) {
	space, err := buildSpace(cfg)
	if err != nil {
		return nil, err
	}

	checkpointPath, err := cfg.CheckpointPath()
	if err != nil {
		return nil, err
	}
	store, err := checkpoint.NewStore(checkpointPath, space, log)
	if err != nil {
		return nil, err
	}

	format, err := results.ParseFormat(cfg.Storage.FoundFormat)
	if err != nil {
		return nil, err
	}
	foundPath, err := cfg.FoundPath()
	if err != nil {
		return nil, err
	}
	sink, err := results.NewSink(foundPath, format, log)
	if err != nil {
		return nil, err
	}

	client := newProber(cfg, log)

	opts := scanner.Options{
		Concurrency:      cfg.Scan.Concurrency,
		RateLimit:        ratelimit.New(cfg.Scan.RequestsPerMinute),
		ProgressInterval: cfg.Scan.ProgressInterval,
	}
	if cfg.Scan.Gentle {
		opts.Gentle = ratelimit.NewJitter(cfg.Scan.GentleMinDelay, cfg.Scan.GentleMaxDelay)
		lo, hi := opts.Gentle.Bounds()
		log.DebugWithFields("Gentle mode", map[string]interface{}{
			"min_delay": lo,
			"max_delay": hi,
		})
	}

	return &scanJob{
		cfg:   cfg,
		space: space,
		store: store,
		sink:  sink,
		probe: client,
		opts:  opts,
	}, nil
}

func (j *scanJob) newScanner(observer scanner.Observer, log logger.Logger) *scanner.Scanner {
	opts := j.opts
	opts.Observer = observer
	return scanner.New(j.space, j.probe, j.store, j.sink, opts, log)
}

func runScan(cmd *cobra.Command, args []string) error {
	flags, err := scanFlags(cmd, args)
	if err != nil {
		return err
	}

	cfg, err := loadConfig(flags)
	if err != nil {
		return err
	}
	log := logger.GetLogger()

	job, err := newScanJob(cfg, log)
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if cfg.Metrics.Addr != "" {
		go func() {
			if err := metrics.Serve(ctx, cfg.Metrics.Addr, log); err != nil {
				logger.WithError(err).WithField("addr", cfg.Metrics.Addr).Warn("Metrics endpoint stopped")
			}
		}()
	}

	logger.LogComponentStart(log, "scan", map[string]interface{}{
		"base_url":    cfg.Target.BaseURL,
		"concurrency": cfg.Scan.Concurrency,
		"gentle":      cfg.Scan.Gentle,
		"checkpoint":  job.store.Path(),
		"found_file":  job.sink.Path(),
	})

	var report scanner.Report
	if useTUI {
		report, err = runScanTUI(ctx, job, log)
	} else {
		ui.PrintLogo()
		report, err = job.newScanner(ui.NewConsole(ui.Output(), job.space), log).Run(ctx)
	}

	logger.LogComponentStop(log, "scan", report.State.String())
	return err
}

// runScanTUI runs the scan behind the live view. Quitting the view
// cancels the scan, which still drains and checkpoints in-flight probes.
func runScanTUI(ctx context.Context, job *scanJob, log logger.Logger) (scanner.Report, error) {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	terminal := tui.NewTUI(job.space, job.cfg.Scan.Concurrency, cancel)

	type scanOutcome struct {
		report scanner.Report
		err    error
	}
	scanDone := make(chan scanOutcome, 1)
	go func() {
		terminal.Log("INFO", "Checkpoint %s", job.store.Path())
		terminal.Log("INFO", "Found file %s", job.sink.Path())
		if job.cfg.Metrics.Addr != "" {
			terminal.Log("INFO", "Metrics on %s/metrics", job.cfg.Metrics.Addr)
		}
		report, err := job.newScanner(terminal, log).Run(ctx)
		scanDone <- scanOutcome{report, err}
		terminal.Stop()
	}()

	if err := terminal.Start(); err != nil {
		log.WithError(err).Error("Terminal view failed")
		cancel()
	}

	out := <-scanDone

	// The view is gone once the scan ends; leave a summary behind
	ui.NewConsole(ui.Output(), job.space).OnFinish(out.report)
	return out.report, out.err
}
