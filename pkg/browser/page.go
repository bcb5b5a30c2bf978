package browser

import (
	"time"

	"github.com/playwright-community/playwright-go"
)

// Page is the subset of page operations the form filler relies on.
type Page interface {
	// Goto loads url, failing if it does not load within timeout.
	Goto(url string, timeout time.Duration) error

	// WaitForNetworkIdle waits until the page has no network activity.
	WaitForNetworkIdle(timeout time.Duration) error

	// Wait pauses for d while keeping the page alive.
	Wait(d time.Duration)

	// ByLabel resolves the first control whose accessible label contains text,
	// case-insensitively.
	ByLabel(text string) Element

	// ByPlaceholder resolves the first control whose placeholder contains
	// text, case-insensitively.
	ByPlaceholder(text string) Element

	// ButtonByName resolves the first element with role "button" whose
	// accessible name contains name, case-insensitively.
	ButtonByName(name string) Element

	// Locate resolves the first element matching a CSS selector.
	Locate(selector string) Element

	// Screenshot writes a PNG of the viewport to path.
	Screenshot(path string) error

	// Content returns the serialized DOM.
	Content() (string, error)

	// URL returns the current page URL.
	URL() string
}

// Element is a lazily resolved reference to the first match of a lookup.
type Element interface {
	Count() (int, error)
	IsVisible() (bool, error)
	Fill(value string) error
	Click() error
	SetInputFiles(path string) error
}

// playwrightPage adapts a playwright.Page to Page.
type playwrightPage struct {
	page          playwright.Page
	actionTimeout time.Duration
}

// NewPage wraps a playwright page. actionTimeout bounds element actions.
func NewPage(page playwright.Page, actionTimeout time.Duration) Page {
	if actionTimeout <= 0 {
		actionTimeout = DefaultActionTimeout
	}
	return &playwrightPage{page: page, actionTimeout: actionTimeout}
}

func (p *playwrightPage) Goto(url string, timeout time.Duration) error {
	_, err := p.page.Goto(url, playwright.PageGotoOptions{
		Timeout: playwright.Float(milliseconds(timeout)),
	})
	return translateError(err)
}

func (p *playwrightPage) WaitForNetworkIdle(timeout time.Duration) error {
	return translateError(p.page.WaitForLoadState(playwright.PageWaitForLoadStateOptions{
		State:   playwright.LoadStateNetworkidle,
		Timeout: playwright.Float(milliseconds(timeout)),
	}))
}

func (p *playwrightPage) Wait(d time.Duration) {
	p.page.WaitForTimeout(milliseconds(d))
}

func (p *playwrightPage) ByLabel(text string) Element {
	return p.element(p.page.GetByLabel(text, playwright.PageGetByLabelOptions{
		Exact: playwright.Bool(false),
	}))
}

func (p *playwrightPage) ByPlaceholder(text string) Element {
	return p.element(p.page.GetByPlaceholder(text, playwright.PageGetByPlaceholderOptions{
		Exact: playwright.Bool(false),
	}))
}

func (p *playwrightPage) ButtonByName(name string) Element {
	return p.element(p.page.GetByRole("button", playwright.PageGetByRoleOptions{
		Name:  name,
		Exact: playwright.Bool(false),
	}))
}

func (p *playwrightPage) Locate(selector string) Element {
	return p.element(p.page.Locator(selector))
}

func (p *playwrightPage) Screenshot(path string) error {
	_, err := p.page.Screenshot(playwright.PageScreenshotOptions{
		Path: playwright.String(path),
		Type: playwright.ScreenshotTypePng,
	})
	return translateError(err)
}

func (p *playwrightPage) Content() (string, error) {
	content, err := p.page.Content()
	return content, translateError(err)
}

func (p *playwrightPage) URL() string {
	return p.page.URL()
}

func (p *playwrightPage) element(locator playwright.Locator) Element {
	return &playwrightElement{locator: locator.First(), timeout: milliseconds(p.actionTimeout)}
}

// playwrightElement adapts a playwright.Locator to Element.
type playwrightElement struct {
	locator playwright.Locator
	timeout float64
}

func (e *playwrightElement) Count() (int, error) {
	n, err := e.locator.Count()
	return n, translateError(err)
}

func (e *playwrightElement) IsVisible() (bool, error) {
	visible, err := e.locator.IsVisible()
	return visible, translateError(err)
}

func (e *playwrightElement) Fill(value string) error {
	return translateError(e.locator.Fill(value, playwright.LocatorFillOptions{
		Timeout: playwright.Float(e.timeout),
	}))
}

func (e *playwrightElement) Click() error {
	return translateError(e.locator.Click(playwright.LocatorClickOptions{
		Timeout: playwright.Float(e.timeout),
	}))
}

func (e *playwrightElement) SetInputFiles(path string) error {
	return translateError(e.locator.SetInputFiles(path, playwright.LocatorSetInputFilesOptions{
		Timeout: playwright.Float(e.timeout),
	}))
}
