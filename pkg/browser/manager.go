package browser

import (
	"context"
	"errors"
	"fmt"
	"io"
	"sync"

	"github.com/google/uuid"
	"github.com/playwright-community/playwright-go"

	"github.com/entrhq/formpilot/pkg/logging"
)

// SessionManager owns the playwright driver and the single browser process,
// and creates isolated contexts on top of them.
//
// The manager is constructed and owned by one caller, which is responsible
// for calling Stop. The mutex only keeps the lifecycle fields consistent; it
// does not make concurrent fill attempts against the same browser safe.
type SessionManager struct {
	mu         sync.Mutex
	opts       Options
	playwright *playwright.Playwright
	browser    playwright.Browser
	headless   bool
	log        *logging.Logger
}

// NewSessionManager creates a session manager. Nothing is launched until
// Start or NewContext is called.
func NewSessionManager(opts Options) *SessionManager {
	opts = opts.withDefaults()
	return &SessionManager{
		opts: opts,
		log:  opts.Logger,
	}
}

// Start launches the playwright driver if it is not running, then the
// browser process if it is not running. Calling Start on a running manager is
// a no-op, including when headless differs from the running browser.
func (m *SessionManager) Start(headless bool) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.start(headless)
}

// start must be called with the lock held.
func (m *SessionManager) start(headless bool) error {
	if m.playwright == nil {
		runOpts := &playwright.RunOptions{
			Browsers: []string{"chromium"},
			Verbose:  false,
			Stdout:   io.Discard,
			Stderr:   io.Discard,
		}

		if m.opts.InstallDriver {
			m.log.Infof("Installing playwright driver")
			if err := playwright.Install(runOpts); err != nil {
				return &SessionError{Op: "install", Err: err}
			}
		}

		m.log.Infof("Launching playwright")
		pw, err := playwright.Run(runOpts)
		if err != nil {
			return &SessionError{Op: "run", Err: err}
		}
		m.playwright = pw
	}

	if m.browser == nil {
		m.log.Infof("Launching browser (headless=%v)", headless)
		browser, err := m.playwright.Chromium.Launch(playwright.BrowserTypeLaunchOptions{
			Headless: playwright.Bool(headless),
			Args:     m.opts.LaunchArgs,
		})
		if err != nil {
			return &SessionError{Op: "launch", Err: err}
		}
		m.browser = browser
		m.headless = headless
	}

	return nil
}

// NewContext creates a fresh isolated context with one page, starting the
// browser first if needed. The returned page is ready to navigate.
func (m *SessionManager) NewContext(ctx context.Context) (*IsolatedContext, error) {
	if err := ctx.Err(); err != nil {
		return nil, &SessionError{Op: "new context", Err: err}
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	if m.browser == nil {
		if err := m.start(m.opts.Headless); err != nil {
			return nil, err
		}
	}

	bctx, err := m.browser.NewContext(playwright.BrowserNewContextOptions{
		Viewport: &playwright.Size{
			Width:  m.opts.Viewport.Width,
			Height: m.opts.Viewport.Height,
		},
		UserAgent: playwright.String(m.opts.UserAgent),
	})
	if err != nil {
		return nil, &SessionError{Op: "new context", Err: translateError(err)}
	}

	page, err := bctx.NewPage()
	if err != nil {
		_ = bctx.Close() // context is unusable without its page
		return nil, &SessionError{Op: "new page", Err: translateError(err)}
	}
	page.SetDefaultTimeout(milliseconds(m.opts.DefaultTimeout))

	id := uuid.New().String()
	m.log.Debugf("Opened context %s", id)

	return NewIsolatedContext(id, NewPage(page, m.opts.ActionTimeout), func() error {
		m.log.Debugf("Closing context %s", id)
		if err := bctx.Close(); err != nil {
			return fmt.Errorf("failed to close context %s: %w", id, translateError(err))
		}
		return nil
	}), nil
}

// Stop closes the browser process if it is running, then stops the playwright
// driver if it is running. Safe to call multiple times and on a manager that
// was never started. Every context still open is torn down with the browser.
func (m *SessionManager) Stop() error {
	m.mu.Lock()
	defer m.mu.Unlock()

	var errs []error

	if m.browser != nil {
		m.log.Infof("Closing browser")
		if err := m.browser.Close(); err != nil {
			errs = append(errs, fmt.Errorf("failed to close browser: %w", err))
		}
		m.browser = nil
	}

	if m.playwright != nil {
		if err := m.playwright.Stop(); err != nil {
			errs = append(errs, fmt.Errorf("failed to stop playwright: %w", err))
		}
		m.playwright = nil
	}

	return errors.Join(errs...)
}

// Running reports whether the browser process is up.
func (m *SessionManager) Running() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.browser != nil
}

// Headless reports the mode of the running browser. It is meaningless when
// Running is false.
func (m *SessionManager) Headless() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.headless
}
