package browser

import (
	"sync"
	"time"
)

// IsolatedContext is a cookie- and storage-isolated browser context with a
// single page, scoped to one fill attempt.
type IsolatedContext struct {
	// ID identifies the context in logs and reports
	ID string

	// Page is the context's only page
	Page Page

	// CreatedAt is the time the context was opened
	CreatedAt time.Time

	closeFn   func() error
	closeOnce sync.Once
	closeErr  error
	closed    bool
	mu        sync.Mutex
}

// NewIsolatedContext wraps a page and the function that tears its context
// down. closeFn runs at most once no matter how often Close is called.
func NewIsolatedContext(id string, page Page, closeFn func() error) *IsolatedContext {
	return &IsolatedContext{
		ID:        id,
		Page:      page,
		CreatedAt: time.Now(),
		closeFn:   closeFn,
	}
}

// Close tears the context down. Safe to call multiple times; later calls
// return the result of the first.
func (c *IsolatedContext) Close() error {
	c.closeOnce.Do(func() {
		if c.closeFn != nil {
			c.closeErr = c.closeFn()
		}
		c.mu.Lock()
		c.closed = true
		c.mu.Unlock()
	})
	return c.closeErr
}

// Closed reports whether Close has run.
func (c *IsolatedContext) Closed() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.closed
}
