package formfill

import (
	"encoding/json"
	"errors"
	"fmt"
)

// ErrorKind classifies why an attempt failed.
type ErrorKind string

const (
	// KindSession means no browser context could be obtained
	KindSession ErrorKind = "session"
	// KindNavigation means the target page was invalid, denied, unreachable or too slow
	KindNavigation ErrorKind = "navigation"
	// KindUnhandled covers every other failure mid-flow, such as a page crash
	KindUnhandled ErrorKind = "unhandled"
)

// ErrTargetDenied is returned when the target policy rejects a host.
var ErrTargetDenied = errors.New("target denied by policy")

// Error is the failure recorded on a failed Outcome and returned to the caller.
type Error struct {
	Kind ErrorKind
	Op   string
	URL  string
	Err  error
}

func (e *Error) Error() string {
	if e.URL == "" {
		return fmt.Sprintf("%s error during %s: %v", e.Kind, e.Op, e.Err)
	}
	return fmt.Sprintf("%s error during %s (%s): %v", e.Kind, e.Op, e.URL, e.Err)
}

func (e *Error) Unwrap() error {
	return e.Err
}

// MarshalJSON renders the error for attempt reports.
func (e *Error) MarshalJSON() ([]byte, error) {
	return json.Marshal(struct {
		Kind    ErrorKind `json:"kind"`
		Op      string    `json:"op"`
		Message string    `json:"message"`
	}{
		Kind:    e.Kind,
		Op:      e.Op,
		Message: e.Err.Error(),
	})
}

// KindOf returns the kind of a formfill error, or "" if err is not one.
func KindOf(err error) ErrorKind {
	var fe *Error
	if errors.As(err, &fe) {
		return fe.Kind
	}
	return ""
}

// IsNavigation reports whether err is a navigation failure.
func IsNavigation(err error) bool {
	return KindOf(err) == KindNavigation
}

// IsSession reports whether err is a browser session failure.
func IsSession(err error) bool {
	return KindOf(err) == KindSession
}

func navigationError(op, url string, err error) *Error {
	return &Error{Kind: KindNavigation, Op: op, URL: url, Err: err}
}

func unhandledError(op, url string, err error) *Error {
	return &Error{Kind: KindUnhandled, Op: op, URL: url, Err: err}
}

// asError returns err as an *Error, classifying anything else as unhandled.
func asError(err error, url string) *Error {
	var fe *Error
	if errors.As(err, &fe) {
		return fe
	}
	return unhandledError("fill", url, err)
}
