// Package config loads and validates the run configuration.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/entrhq/formpilot/pkg/browser"
	"github.com/entrhq/formpilot/pkg/formfill"
	"github.com/entrhq/formpilot/pkg/logging"
)

// Config represents the configuration for a fill run
type Config struct {
	// Root directory for profile, screenshots, reports and the run lock
	DataRoot string `yaml:"data_root" json:"data_root"`

	// Mode is draft or live. When empty, AutoApply selects live.
	Mode      string `yaml:"mode" json:"mode"`
	AutoApply bool   `yaml:"auto_apply" json:"auto_apply"`

	// Candidate data
	Profile ProfileConfig `yaml:"profile" json:"profile"`

	// Browser process and contexts
	Browser BrowserConfig `yaml:"browser" json:"browser"`

	// Bounded waits of one attempt
	Timeouts TimeoutConfig `yaml:"timeouts" json:"timeouts"`

	// Host allow/deny lists
	Targets TargetConfig `yaml:"targets" json:"targets"`

	// Screenshots and DOM snapshots
	Evidence EvidenceConfig `yaml:"evidence" json:"evidence"`

	// Report files
	Artifacts ArtifactConfig `yaml:"artifacts" json:"artifacts"`

	// Logging configuration
	Logging LoggingConfig `yaml:"logging" json:"logging"`
}

// ProfileConfig locates the candidate profile and resume
type ProfileConfig struct {
	// Path to profile.json or profile.yaml (default: <data_root>/user/profile.json)
	Path string `yaml:"path" json:"path"`
	// DocumentPath is the resume uploaded to file inputs (optional)
	DocumentPath     string `yaml:"document" json:"document"`
	CoverLetterLimit int    `yaml:"cover_letter_limit" json:"cover_letter_limit"`
}

// BrowserConfig configures Chromium
type BrowserConfig struct {
	Headless      bool             `yaml:"headless" json:"headless"`
	Viewport      browser.Viewport `yaml:"viewport" json:"viewport"`
	UserAgent     string           `yaml:"user_agent" json:"user_agent"`
	LaunchArgs    []string         `yaml:"launch_args" json:"launch_args"`
	InstallDriver bool             `yaml:"install_driver" json:"install_driver"`
}

// TimeoutConfig holds the bounded waits. Values are Go durations ("30s").
type TimeoutConfig struct {
	Navigation       time.Duration `yaml:"navigation" json:"navigation"`
	Hydration        time.Duration `yaml:"hydration" json:"hydration"`
	DraftHold        time.Duration `yaml:"draft_hold" json:"draft_hold"`
	ConfirmationWait time.Duration `yaml:"confirmation_wait" json:"confirmation_wait"`
	Action           time.Duration `yaml:"action" json:"action"`
}

// TargetConfig restricts which hosts may be filled
type TargetConfig struct {
	AllowedHosts []string `yaml:"allowed_hosts" json:"allowed_hosts"`
	DeniedHosts  []string `yaml:"denied_hosts" json:"denied_hosts"`
}

// EvidenceConfig defines evidence capture
type EvidenceConfig struct {
	// Directory for screenshots (default: <data_root>/screenshots)
	Dir       string `yaml:"dir" json:"dir"`
	Snapshots bool   `yaml:"snapshots" json:"snapshots"`
}

// ArtifactConfig defines report generation
type ArtifactConfig struct {
	Enabled   bool   `yaml:"enabled" json:"enabled"`
	OutputDir string `yaml:"output_dir" json:"output_dir"`

	// Individual format flags
	JSON     bool `yaml:"json" json:"json"`
	Markdown bool `yaml:"markdown" json:"markdown"`
	Record   bool `yaml:"record" json:"record"`
}

// LoggingConfig defines logging configuration
type LoggingConfig struct {
	// Verbosity controls console output: quiet, normal, verbose, debug
	Verbosity string `yaml:"verbosity" json:"verbosity"`
	// Directory for log files (default: ~/.formpilot/logs)
	Directory string `yaml:"directory" json:"directory"`
}

// DefaultConfig returns a configuration that fills forms in draft mode with a
// visible browser. Mode is left empty so auto_apply can select live.
func DefaultConfig() *Config {
	return &Config{
		DataRoot: "data",
		Profile: ProfileConfig{
			CoverLetterLimit: formfill.DefaultCoverLetterLimit,
		},
		Browser: BrowserConfig{
			Headless:      false,
			Viewport:      browser.Viewport{Width: browser.DefaultViewportWidth, Height: browser.DefaultViewportHeight},
			UserAgent:     browser.DefaultUserAgent,
			LaunchArgs:    append([]string(nil), browser.DefaultLaunchArgs...),
			InstallDriver: true,
		},
		Timeouts: TimeoutConfig{
			Navigation:       formfill.DefaultNavigationTimeout,
			Hydration:        formfill.DefaultHydrationTimeout,
			DraftHold:        formfill.DefaultDraftHold,
			ConfirmationWait: formfill.DefaultConfirmationWait,
			Action:           browser.DefaultActionTimeout,
		},
		Artifacts: ArtifactConfig{
			Enabled:  true,
			JSON:     true,
			Markdown: true,
			Record:   true,
		},
		Logging: LoggingConfig{
			Verbosity: "normal",
		},
	}
}

// Load reads a YAML configuration on top of DefaultConfig and validates it.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	cfg := DefaultConfig()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config file: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return cfg, nil
}

// Save writes the configuration as YAML, replacing path atomically.
func (c *Config) Save(path string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0750); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	data, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("failed to encode config: %w", err)
	}

	tempPath := path + ".tmp"
	if err := os.WriteFile(tempPath, data, 0600); err != nil {
		return fmt.Errorf("failed to write temp config file: %w", err)
	}

	if err := os.Rename(tempPath, path); err != nil {
		os.Remove(tempPath)
		return fmt.Errorf("failed to rename temp file: %w", err)
	}
	return nil
}

// Validate validates the configuration and fills derived defaults
func (c *Config) Validate() error {
	if c.DataRoot == "" {
		return fmt.Errorf("data root is required")
	}

	if c.Mode != "" {
		if _, err := formfill.ParseMode(c.Mode); err != nil {
			return err
		}
	}

	if c.Timeouts.Navigation < 0 || c.Timeouts.Hydration < 0 || c.Timeouts.DraftHold < 0 ||
		c.Timeouts.ConfirmationWait < 0 || c.Timeouts.Action < 0 {
		return fmt.Errorf("timeouts cannot be negative")
	}

	if c.Profile.CoverLetterLimit < 0 {
		return fmt.Errorf("cover_letter_limit cannot be negative")
	}

	if c.Browser.Viewport.Width < 0 || c.Browser.Viewport.Height < 0 {
		return fmt.Errorf("viewport dimensions cannot be negative")
	}

	if _, err := formfill.NewTargetPolicy(c.Targets.AllowedHosts, c.Targets.DeniedHosts); err != nil {
		return err
	}

	// Set default verbosity if not specified
	if c.Logging.Verbosity == "" {
		c.Logging.Verbosity = "normal"
	}

	validLevels := map[string]bool{
		"quiet":   true,
		"normal":  true,
		"verbose": true,
		"debug":   true,
	}
	if !validLevels[c.Logging.Verbosity] {
		return fmt.Errorf("invalid logging verbosity: %s (must be 'quiet', 'normal', 'verbose', or 'debug')", c.Logging.Verbosity)
	}

	return nil
}

// EffectiveMode resolves Mode and AutoApply into the mode an attempt runs in.
// An explicit mode wins; otherwise auto_apply selects live.
func (c *Config) EffectiveMode() formfill.Mode {
	if c.Mode != "" {
		return formfill.Mode(c.Mode)
	}
	if c.AutoApply {
		return formfill.ModeLive
	}
	return formfill.ModeDraft
}

// UserDir is where the profile, cv.txt and cover_letter.txt live.
func (c *Config) UserDir() string {
	return filepath.Join(c.DataRoot, "user")
}

// ProfilePath returns the configured profile path or the default one.
func (c *Config) ProfilePath() string {
	if c.Profile.Path != "" {
		return c.Profile.Path
	}
	return filepath.Join(c.UserDir(), "profile.json")
}

// ScreenshotDir returns the evidence directory.
func (c *Config) ScreenshotDir() string {
	if c.Evidence.Dir != "" {
		return c.Evidence.Dir
	}
	return filepath.Join(c.DataRoot, "screenshots")
}

// ReportDir returns the directory for report artifacts.
func (c *Config) ReportDir() string {
	if c.Artifacts.OutputDir != "" {
		return c.Artifacts.OutputDir
	}
	return filepath.Join(c.DataRoot, "reports")
}

// LockPath returns the run lock file.
func (c *Config) LockPath() string {
	return filepath.Join(c.DataRoot, ".formpilot.lock")
}

// BrowserOptions converts the configuration to session manager options.
func (c *Config) BrowserOptions(log *logging.Logger) browser.Options {
	return browser.Options{
		Headless:       c.Browser.Headless,
		Viewport:       c.Browser.Viewport,
		UserAgent:      c.Browser.UserAgent,
		LaunchArgs:     c.Browser.LaunchArgs,
		InstallDriver:  c.Browser.InstallDriver,
		DefaultTimeout: c.Timeouts.Navigation,
		ActionTimeout:  c.Timeouts.Action,
		Logger:         log,
	}
}

// EngineOptions converts the configuration to form fill options.
func (c *Config) EngineOptions(log *logging.Logger) (formfill.Options, error) {
	policy, err := formfill.NewTargetPolicy(c.Targets.AllowedHosts, c.Targets.DeniedHosts)
	if err != nil {
		return formfill.Options{}, err
	}

	opts := formfill.DefaultOptions(c.DataRoot)
	opts.EvidenceDir = c.ScreenshotDir()
	opts.NavigationTimeout = c.Timeouts.Navigation
	opts.HydrationTimeout = c.Timeouts.Hydration
	opts.DraftHold = c.Timeouts.DraftHold
	opts.ConfirmationWait = c.Timeouts.ConfirmationWait
	opts.CoverLetterLimit = c.Profile.CoverLetterLimit
	opts.Snapshots = c.Evidence.Snapshots
	opts.Policy = policy
	opts.Logger = log
	return opts, nil
}
