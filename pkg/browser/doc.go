// Package browser owns the browser engine used to fill application forms.
//
// A SessionManager wraps one playwright driver and one Chromium process. Both
// are expensive, so they are started lazily and shared for the life of the
// process. Work happens in IsolatedContexts: a fresh, cookie-isolated browser
// context with a single page, handed out per fill attempt and closed when the
// attempt ends.
//
// # Lifecycle
//
//	manager := browser.NewSessionManager(browser.DefaultOptions())
//	defer manager.Stop()
//
//	ictx, err := manager.NewContext(ctx) // starts the browser on first use
//	if err != nil {
//	    return err // *browser.SessionError
//	}
//	defer ictx.Close()
//
// All contexts share the underlying browser process, so Stop tears down every
// context still open. A SessionManager must have a single logical owner; it is
// not a pool.
//
// # Page abstraction
//
// Callers drive pages through the Page and Element interfaces rather than
// playwright types. Element lookups always resolve to the first match, and a
// lookup that matches nothing is not an error: Count reports zero and
// IsVisible reports false.
package browser
