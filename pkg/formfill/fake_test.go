package formfill

import (
	"context"
	"fmt"
	"os"
	"strings"
	"sync"
	"time"

	"github.com/entrhq/formpilot/pkg/browser"
)

// control is one element on a fake page. A control matches ByLabel,
// ByPlaceholder or ButtonByName through the corresponding text and Locate
// through selector.
type control struct {
	label       string
	placeholder string
	button      string
	selector    string
	hidden      bool

	fillErr   error
	clickErr  error
	uploadErr error

	value   string
	clicked bool
	files   []string
}

// fakePage is an in-memory browser.Page.
type fakePage struct {
	controls []*control

	gotoErr       error
	idleErr       error
	contentErr    error
	screenshotErr error
	html          string

	// closeAfterGoto makes every element operation fail as if the page crashed
	closeAfterGoto bool
	// panicOnLookup panics on the first element lookup
	panicOnLookup bool

	visited     []string
	lookups     []string
	clicks      []string
	waits       []time.Duration
	screenshots []string
}

func newFakePage(controls ...*control) *fakePage {
	return &fakePage{controls: controls}
}

func (p *fakePage) Goto(url string, _ time.Duration) error {
	p.visited = append(p.visited, url)
	return p.gotoErr
}

func (p *fakePage) WaitForNetworkIdle(time.Duration) error { return p.idleErr }

func (p *fakePage) Wait(d time.Duration) { p.waits = append(p.waits, d) }

func (p *fakePage) ByLabel(text string) browser.Element {
	return p.find("label:"+text, func(c *control) bool { return containsFold(c.label, text) })
}

func (p *fakePage) ByPlaceholder(text string) browser.Element {
	return p.find("placeholder:"+text, func(c *control) bool { return containsFold(c.placeholder, text) })
}

func (p *fakePage) ButtonByName(name string) browser.Element {
	return p.find("button:"+name, func(c *control) bool { return containsFold(c.button, name) })
}

func (p *fakePage) Locate(selector string) browser.Element {
	return p.find("css:"+selector, func(c *control) bool { return c.selector == selector })
}

func (p *fakePage) Screenshot(path string) error {
	if p.screenshotErr != nil {
		return p.screenshotErr
	}
	if err := os.WriteFile(path, []byte("png"), 0600); err != nil {
		return err
	}
	p.screenshots = append(p.screenshots, path)
	return nil
}

func (p *fakePage) Content() (string, error) {
	if p.contentErr != nil {
		return "", p.contentErr
	}
	return p.html, nil
}

func (p *fakePage) URL() string {
	if len(p.visited) == 0 {
		return "about:blank"
	}
	return p.visited[len(p.visited)-1]
}

func (p *fakePage) find(lookup string, match func(*control) bool) browser.Element {
	if p.panicOnLookup {
		panic("renderer crashed")
	}
	p.lookups = append(p.lookups, lookup)
	for _, c := range p.controls {
		if match(c) {
			return &fakeElement{page: p, control: c, name: lookup}
		}
	}
	return &fakeElement{page: p, name: lookup}
}

func (p *fakePage) buttonLookups() []string {
	var out []string
	for _, l := range p.lookups {
		if strings.HasPrefix(l, "button:") || strings.Contains(l, "type='submit'") {
			out = append(out, l)
		}
	}
	return out
}

func containsFold(s, sub string) bool {
	return s != "" && strings.Contains(strings.ToLower(s), strings.ToLower(sub))
}

// fakeElement is the first match of a lookup, or an empty match.
type fakeElement struct {
	page    *fakePage
	control *control
	name    string
}

func (e *fakeElement) closed() error {
	if e.page.closeAfterGoto {
		return fmt.Errorf("%w: page crashed", browser.ErrPageClosed)
	}
	return nil
}

func (e *fakeElement) Count() (int, error) {
	if err := e.closed(); err != nil {
		return 0, err
	}
	if e.control == nil {
		return 0, nil
	}
	return 1, nil
}

func (e *fakeElement) IsVisible() (bool, error) {
	if err := e.closed(); err != nil {
		return false, err
	}
	return e.control != nil && !e.control.hidden, nil
}

func (e *fakeElement) Fill(value string) error {
	if err := e.closed(); err != nil {
		return err
	}
	if e.control == nil {
		return fmt.Errorf("%w: %s", browser.ErrTimeout, e.name)
	}
	if e.control.fillErr != nil {
		return e.control.fillErr
	}
	e.control.value = value
	return nil
}

func (e *fakeElement) Click() error {
	if err := e.closed(); err != nil {
		return err
	}
	if e.control == nil {
		return fmt.Errorf("%w: %s", browser.ErrTimeout, e.name)
	}
	if e.control.clickErr != nil {
		return e.control.clickErr
	}
	e.control.clicked = true
	e.page.clicks = append(e.page.clicks, e.name)
	return nil
}

func (e *fakeElement) SetInputFiles(path string) error {
	if err := e.closed(); err != nil {
		return err
	}
	if e.control == nil {
		return fmt.Errorf("%w: %s", browser.ErrTimeout, e.name)
	}
	if e.control.uploadErr != nil {
		return e.control.uploadErr
	}
	e.control.files = append(e.control.files, path)
	return nil
}

// fakeProvider hands out contexts around a single fake page and counts them.
type fakeProvider struct {
	mu       sync.Mutex
	page     browser.Page
	err      error
	closeErr error
	opened   int
	closed   int
}

func (f *fakeProvider) NewContext(ctx context.Context) (*browser.IsolatedContext, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	if f.err != nil {
		return nil, f.err
	}
	if err := ctx.Err(); err != nil {
		return nil, &browser.SessionError{Op: "new context", Err: err}
	}
	f.opened++
	id := fmt.Sprintf("ctx-%d", f.opened)
	return browser.NewIsolatedContext(id, f.page, func() error {
		f.mu.Lock()
		defer f.mu.Unlock()
		f.closed++
		return f.closeErr
	}), nil
}

func (f *fakeProvider) counts() (int, int) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.opened, f.closed
}

// Common controls.
func labeled(label string) *control { return &control{label: label} }

func placeholder(text string) *control { return &control{placeholder: text} }

func button(name string) *control { return &control{button: name} }

func fileInput() *control { return &control{selector: fileInputSelector} }
