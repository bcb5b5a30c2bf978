package browser

import (
	"time"

	"github.com/entrhq/formpilot/pkg/logging"
)

// Options configures the browser process and the contexts created from it.
type Options struct {
	// Headless is used when NewContext has to start the browser itself
	Headless bool

	// Viewport is the fixed viewport of every context
	Viewport Viewport

	// UserAgent is the desktop user agent every context reports
	UserAgent string

	// LaunchArgs are passed to Chromium on launch
	LaunchArgs []string

	// InstallDriver downloads the playwright driver and Chromium before the
	// first start if they are missing
	InstallDriver bool

	// DefaultTimeout is the default timeout for page operations
	DefaultTimeout time.Duration

	// ActionTimeout bounds a single fill, click or upload on a located element
	ActionTimeout time.Duration

	// Logger receives lifecycle messages; nil discards them
	Logger *logging.Logger
}

// Viewport represents the browser viewport dimensions.
type Viewport struct {
	Width  int `yaml:"width" json:"width"`
	Height int `yaml:"height" json:"height"`
}

// Default values for the browser process and its contexts
const (
	DefaultViewportWidth  = 1920
	DefaultViewportHeight = 1080
	DefaultTimeout        = 30 * time.Second
	DefaultActionTimeout  = 5 * time.Second

	DefaultUserAgent = "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0.0.0 Safari/537.36"
)

// DefaultLaunchArgs hide the automation markers Chromium exposes and disable
// the sandbox, which is unavailable in most container hosts.
var DefaultLaunchArgs = []string{
	"--start-maximized",
	"--disable-blink-features=AutomationControlled",
	"--no-sandbox",
}

// DefaultOptions returns options for a headed browser with the default
// viewport, user agent and launch arguments.
func DefaultOptions() Options {
	return Options{
		Headless:       false,
		Viewport:       Viewport{Width: DefaultViewportWidth, Height: DefaultViewportHeight},
		UserAgent:      DefaultUserAgent,
		LaunchArgs:     append([]string(nil), DefaultLaunchArgs...),
		InstallDriver:  true,
		DefaultTimeout: DefaultTimeout,
		ActionTimeout:  DefaultActionTimeout,
	}
}

// withDefaults fills zero values with defaults.
func (o Options) withDefaults() Options {
	if o.Viewport.Width <= 0 || o.Viewport.Height <= 0 {
		o.Viewport = Viewport{Width: DefaultViewportWidth, Height: DefaultViewportHeight}
	}
	if o.UserAgent == "" {
		o.UserAgent = DefaultUserAgent
	}
	if o.LaunchArgs == nil {
		o.LaunchArgs = append([]string(nil), DefaultLaunchArgs...)
	}
	if o.DefaultTimeout <= 0 {
		o.DefaultTimeout = DefaultTimeout
	}
	if o.ActionTimeout <= 0 {
		o.ActionTimeout = DefaultActionTimeout
	}
	if o.Logger == nil {
		o.Logger = logging.Nop()
	}
	return o
}

// milliseconds converts a duration to the float milliseconds playwright expects.
func milliseconds(d time.Duration) float64 {
	return float64(d) / float64(time.Millisecond)
}
