// Package main provides the formpilot command, which fills a single job
// application form in a real browser and records what it did.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"github.com/gofrs/flock"

	"github.com/entrhq/formpilot/pkg/browser"
	"github.com/entrhq/formpilot/pkg/config"
	"github.com/entrhq/formpilot/pkg/formfill"
	"github.com/entrhq/formpilot/pkg/logging"
	"github.com/entrhq/formpilot/pkg/profile"
	"github.com/entrhq/formpilot/pkg/report"
)

const version = "0.1.0"

// Exit codes
const (
	exitOK     = 0
	exitFailed = 1
	exitUsage  = 2
)

// CLIConfig holds command-line configuration
type CLIConfig struct {
	URL         string
	ProfilePath string
	Document    string
	Mode        string
	ConfigFile  string
	DataRoot    string
	JobID       string
	Verbosity   string
	SaveConfig  string
	Headless    bool
	Snapshots   bool
	Simulate    bool
	ShowVersion bool

	// set records which flags were given explicitly
	set map[string]bool
}

func main() {
	cli, err := parseFlags(os.Args[1:], os.Stderr)
	if err != nil {
		if errors.Is(err, flag.ErrHelp) {
			os.Exit(exitOK)
		}
		os.Exit(exitUsage)
	}

	if cli.ShowVersion {
		fmt.Printf("formpilot v%s\n", version)
		return
	}

	ctx, cancel := context.WithCancel(context.Background())

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
	go func() {
		<-sigChan
		fmt.Fprintln(os.Stderr, "\n\nShutting down gracefully...")
		cancel()
	}()

	code := run(ctx, cli)
	cancel()
	os.Exit(code)
}

// parseFlags parses command line flags
func parseFlags(args []string, output io.Writer) (*CLIConfig, error) {
	cli := &CLIConfig{set: map[string]bool{}}

	fs := flag.NewFlagSet("formpilot", flag.ContinueOnError)
	fs.SetOutput(output)

	fs.StringVar(&cli.URL, "url", "", "Application form URL (http or https)")
	fs.StringVar(&cli.ProfilePath, "profile", "", "Profile file, JSON or YAML (default: <data>/user/profile.json)")
	fs.StringVar(&cli.Document, "document", "", "Resume to upload")
	fs.StringVar(&cli.Mode, "mode", "", "Fill mode: draft or live (default: from config)")
	fs.StringVar(&cli.ConfigFile, "config", "", "Path to configuration file (YAML)")
	fs.StringVar(&cli.DataRoot, "data", "", "Data root directory (default: data)")
	fs.StringVar(&cli.JobID, "job-id", "", "Job identifier recorded in reports")
	fs.StringVar(&cli.Verbosity, "verbosity", "", "Console verbosity: quiet, normal, verbose or debug")
	fs.StringVar(&cli.SaveConfig, "save-config", "", "Write the effective configuration to this path and exit")
	fs.BoolVar(&cli.Headless, "headless", false, "Run the browser without a window")
	fs.BoolVar(&cli.Snapshots, "snapshot", false, "Also save a cleaned DOM snapshot")
	fs.BoolVar(&cli.Simulate, "simulate", false, "Fill a built-in mock job form to verify the installation")
	fs.BoolVar(&cli.ShowVersion, "version", false, "Show version and exit")

	fs.Usage = func() {
		fmt.Fprintf(output, "formpilot - fill a job application form in a real browser\n\n")
		fmt.Fprintf(output, "Usage: formpilot [options]\n\n")
		fmt.Fprintf(output, "Options:\n")
		fs.PrintDefaults()
		fmt.Fprintf(output, "\nExamples:\n")
		fmt.Fprintf(output, "  # Fill without submitting and keep a screenshot\n")
		fmt.Fprintf(output, "  formpilot -url https://jobs.example.com/apply/42 -document cv.pdf\n\n")
		fmt.Fprintf(output, "  # Submit for real\n")
		fmt.Fprintf(output, "  formpilot -url https://jobs.example.com/apply/42 -mode live\n\n")
		fmt.Fprintf(output, "  # Check the installation against a local mock form\n")
		fmt.Fprintf(output, "  formpilot -simulate -headless\n\n")
		fmt.Fprintf(output, "  # Start a config file from the defaults\n")
		fmt.Fprintf(output, "  formpilot -save-config formpilot.yaml\n\n")
	}

	if err := fs.Parse(args); err != nil {
		return nil, err
	}
	fs.Visit(func(f *flag.Flag) { cli.set[f.Name] = true })

	if !cli.ShowVersion && !cli.Simulate && cli.SaveConfig == "" && cli.URL == "" {
		fmt.Fprintln(output, "either -url or -simulate is required")
		fs.Usage()
		return nil, fmt.Errorf("missing -url")
	}
	return cli, nil
}

// loadConfig loads the configuration file, if any, and applies flag overrides.
func loadConfig(cli *CLIConfig) (*config.Config, error) {
	cfg := config.DefaultConfig()
	if cli.ConfigFile != "" {
		loaded, err := config.Load(cli.ConfigFile)
		if err != nil {
			return nil, err
		}
		cfg = loaded
	}

	if cli.set["data"] {
		cfg.DataRoot = cli.DataRoot
	}
	if cli.set["mode"] {
		cfg.Mode = cli.Mode
	}
	if cli.set["profile"] {
		cfg.Profile.Path = cli.ProfilePath
	}
	if cli.set["document"] {
		cfg.Profile.DocumentPath = cli.Document
	}
	if cli.set["headless"] {
		cfg.Browser.Headless = cli.Headless
	}
	if cli.set["snapshot"] {
		cfg.Evidence.Snapshots = cli.Snapshots
	}
	if cli.set["verbosity"] {
		cfg.Logging.Verbosity = cli.Verbosity
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return cfg, nil
}

// run performs one attempt and returns the process exit code.
func run(ctx context.Context, cli *CLIConfig) int {
	cfg, err := loadConfig(cli)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		return exitUsage
	}

	if cli.SaveConfig != "" {
		if err := cfg.Save(cli.SaveConfig); err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			return exitFailed
		}
		fmt.Printf("Configuration written to %s\n", cli.SaveConfig)
		return exitOK
	}

	level, _ := report.ParseLevel(cfg.Logging.Verbosity)
	console := report.NewConsole(os.Stdout, level)

	if cfg.Logging.Directory != "" {
		logging.SetDirectory(cfg.Logging.Directory)
	}
	log, err := logging.NewLogger("formpilot")
	if err != nil {
		console.Warningf("File logging unavailable: %v", err)
	}
	defer log.Close()

	if err := runAttempt(ctx, cli, cfg, console, log); err != nil {
		console.Errorf("%v", err)
		log.Errorf("Run failed: %v", err)
		return exitFailed
	}
	return exitOK
}

func runAttempt(ctx context.Context, cli *CLIConfig, cfg *config.Config, console *report.Console, log *logging.Logger) error {
	console.Header(fmt.Sprintf("formpilot v%s", version))
	console.Verbosef("Log file: %s", log.LogPath())

	if err := os.MkdirAll(cfg.DataRoot, 0750); err != nil {
		return fmt.Errorf("failed to create data root: %w", err)
	}

	lock := flock.New(cfg.LockPath())
	locked, err := lock.TryLock()
	if err != nil {
		return fmt.Errorf("failed to acquire run lock: %w", err)
	}
	if !locked {
		return fmt.Errorf("another formpilot run holds %s", cfg.LockPath())
	}
	defer func() {
		if err := lock.Unlock(); err != nil {
			log.Warnf("Failed to release run lock: %v", err)
		}
	}()

	req, cleanup, err := buildRequest(cli, cfg, console)
	if err != nil {
		return err
	}
	defer cleanup()

	engineOpts, err := cfg.EngineOptions(log.With("formfill"))
	if err != nil {
		return err
	}

	sessions := browser.NewSessionManager(cfg.BrowserOptions(log.With("browser")))
	defer func() {
		if err := sessions.Stop(); err != nil {
			console.Warningf("Browser shutdown: %v", err)
		}
	}()

	console.Step("Launching browser")
	if err := sessions.Start(cfg.Browser.Headless); err != nil {
		return err
	}
	console.Verbosef("Browser running (headless=%t)", sessions.Headless())

	console.Step(fmt.Sprintf("Filling %s in %s mode", req.URL, req.Mode))
	engine := formfill.NewEngine(sessions, engineOpts)
	console.Verbosef("Evidence directory: %s", engine.Evidence().Dir())
	out, fillErr := engine.Fill(ctx, req)

	console.Summary(out)
	writeReports(cfg, out, console, log)

	if fillErr != nil {
		return fmt.Errorf("attempt failed: %w", fillErr)
	}
	console.Successf("Attempt finished: %s", out.Status)
	return nil
}

// buildRequest assembles the fill request from flags and configuration. The
// returned cleanup removes anything created for a simulation.
func buildRequest(cli *CLIConfig, cfg *config.Config, console *report.Console) (formfill.Request, func(), error) {
	req := formfill.Request{
		URL:          cli.URL,
		DocumentPath: cfg.Profile.DocumentPath,
		Mode:         cfg.EffectiveMode(),
		JobID:        cli.JobID,
	}

	if !cli.Simulate {
		p, err := profile.Load(cfg.ProfilePath())
		if err != nil {
			return req, func() {}, err
		}
		req.Profile = *p
		return req, func() {}, nil
	}

	server, err := startMockServer()
	if err != nil {
		return req, func() {}, err
	}
	cvPath, err := writeDummyCV(filepath.Join(cfg.DataRoot, "simulate"))
	if err != nil {
		_ = server.Close()
		return req, func() {}, err
	}

	req.URL = server.URL()
	req.Profile = simulationProfile()
	req.DocumentPath = cvPath
	if req.JobID == "" {
		req.JobID = "simulation"
	}

	if req.Mode == formfill.ModeLive {
		console.Infof("Simulation in LIVE mode: the mock form will be submitted")
	} else {
		console.Infof("Simulation in DRAFT mode: the mock form is filled only")
	}

	return req, func() {
		_ = server.Close()
		_ = os.Remove(cvPath)
	}, nil
}

// writeReports writes the configured artifacts. Failures are reported but do
// not change the outcome of the run.
func writeReports(cfg *config.Config, out *formfill.Outcome, console *report.Console, log *logging.Logger) {
	if !cfg.Artifacts.Enabled {
		return
	}

	writer := report.NewArtifactWriter(cfg.ReportDir(), report.Formats{
		JSON:     cfg.Artifacts.JSON,
		Markdown: cfg.Artifacts.Markdown,
	})
	paths, err := writer.WriteAll(out)
	if err != nil {
		console.Warningf("Failed to write report to %s: %v", writer.Dir(), err)
		log.Warnf("Failed to write report to %s: %v", writer.Dir(), err)
	}
	for _, p := range paths {
		console.Verbosef("Report: %s", p)
	}

	if cfg.Artifacts.Record {
		historyPath := filepath.Join(cfg.DataRoot, "applications.json")
		if err := report.AppendRecord(historyPath, report.NewRecord(out)); err != nil {
			console.Warningf("Failed to record application: %v", err)
			log.Warnf("Failed to record application: %v", err)
		}
	}
}
