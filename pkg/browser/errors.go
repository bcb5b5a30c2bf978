package browser

import (
	"errors"
	"fmt"

	"github.com/playwright-community/playwright-go"
)

var (
	// ErrPageClosed is returned when the page, its context or the browser went
	// away underneath an operation.
	ErrPageClosed = errors.New("page closed")

	// ErrTimeout is returned when a bounded wait expired.
	ErrTimeout = errors.New("timeout")
)

// SessionError reports that the browser engine or process could not be
// brought up, or that a context could not be created on it. It is fatal to
// the run and never retried by this package.
type SessionError struct {
	Op  string
	Err error
}

func (e *SessionError) Error() string {
	return fmt.Sprintf("browser session %s: %v", e.Op, e.Err)
}

func (e *SessionError) Unwrap() error {
	return e.Err
}

// IsSessionError reports whether err is or wraps a *SessionError.
func IsSessionError(err error) bool {
	var se *SessionError
	return errors.As(err, &se)
}

// translateError maps playwright errors onto this package's sentinels while
// keeping the original error in the chain.
func translateError(err error) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, playwright.ErrTargetClosed):
		return fmt.Errorf("%w: %w", ErrPageClosed, err)
	case errors.Is(err, playwright.ErrTimeout):
		return fmt.Errorf("%w: %w", ErrTimeout, err)
	default:
		return err
	}
}
