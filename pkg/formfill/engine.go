package formfill

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/entrhq/formpilot/pkg/browser"
	"github.com/entrhq/formpilot/pkg/logging"
)

// Default bounds for the waits of one attempt
const (
	DefaultNavigationTimeout = 30 * time.Second
	DefaultHydrationTimeout  = 10 * time.Second
	DefaultDraftHold         = 5 * time.Second
	DefaultConfirmationWait  = 3 * time.Second
	DefaultCoverLetterLimit  = 500
)

// ContextProvider hands out a fresh isolated context per attempt.
// *browser.SessionManager implements it.
type ContextProvider interface {
	NewContext(ctx context.Context) (*browser.IsolatedContext, error)
}

// Options configures an Engine.
type Options struct {
	// EvidenceDir receives screenshots and snapshots
	EvidenceDir string

	NavigationTimeout time.Duration
	HydrationTimeout  time.Duration
	DraftHold         time.Duration
	ConfirmationWait  time.Duration

	// CoverLetterLimit caps the cover letter excerpt in runes
	CoverLetterLimit int

	// Snapshots additionally writes a cleaned DOM snapshot per attempt
	Snapshots bool

	// Policy restricts target hosts; nil allows all
	Policy *TargetPolicy

	Logger *logging.Logger

	// Now is the clock used for attempt timestamps
	Now func() time.Time
}

// DefaultOptions returns options writing evidence to <dataRoot>/screenshots.
func DefaultOptions(dataRoot string) Options {
	return Options{
		EvidenceDir:       filepath.Join(dataRoot, "screenshots"),
		NavigationTimeout: DefaultNavigationTimeout,
		HydrationTimeout:  DefaultHydrationTimeout,
		DraftHold:         DefaultDraftHold,
		ConfirmationWait:  DefaultConfirmationWait,
		CoverLetterLimit:  DefaultCoverLetterLimit,
	}
}

func (o Options) withDefaults() Options {
	if o.EvidenceDir == "" {
		o.EvidenceDir = filepath.Join("data", "screenshots")
	}
	if o.NavigationTimeout <= 0 {
		o.NavigationTimeout = DefaultNavigationTimeout
	}
	if o.HydrationTimeout <= 0 {
		o.HydrationTimeout = DefaultHydrationTimeout
	}
	if o.CoverLetterLimit == 0 {
		o.CoverLetterLimit = DefaultCoverLetterLimit
	}
	if o.Logger == nil {
		o.Logger = logging.Nop()
	}
	if o.Now == nil {
		o.Now = time.Now
	}
	return o
}

// Engine fills application forms one attempt at a time.
type Engine struct {
	mu       sync.Mutex
	contexts ContextProvider
	opts     Options
	evidence *EvidenceRecorder
	log      *logging.Logger
}

// NewEngine creates an engine drawing contexts from contexts.
func NewEngine(contexts ContextProvider, opts Options) *Engine {
	opts = opts.withDefaults()
	return &Engine{
		contexts: contexts,
		opts:     opts,
		evidence: NewEvidenceRecorder(opts.EvidenceDir),
		log:      opts.Logger,
	}
}

// Evidence returns the engine's evidence recorder.
func (e *Engine) Evidence() *EvidenceRecorder {
	return e.evidence
}

// Fill opens a fresh isolated context and runs one attempt in it.
//
// The returned Outcome is never nil. The error is non-nil exactly when the
// outcome status is StatusFailed and is an *Error; a browser that cannot be
// started surfaces as KindSession wrapping *browser.SessionError.
func (e *Engine) Fill(ctx context.Context, req Request) (*Outcome, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	req = normalizeRequest(req)
	if err := validateRequest(req); err != nil {
		return e.reject(req, unhandledError("validate request", req.URL, err))
	}

	ictx, err := e.contexts.NewContext(ctx)
	if err != nil {
		return e.reject(req, &Error{Kind: KindSession, Op: "open context", URL: req.URL, Err: err})
	}

	return e.run(ctx, ictx, req)
}

// FillContext runs one attempt in a context the caller already opened. The
// engine takes ownership of ictx and closes it before returning.
func (e *Engine) FillContext(ctx context.Context, ictx *browser.IsolatedContext, req Request) (*Outcome, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	req = normalizeRequest(req)
	if err := validateRequest(req); err != nil {
		if cerr := ictx.Close(); cerr != nil {
			e.log.Warnf("Context close failed: %v", cerr)
		}
		return e.reject(req, unhandledError("validate request", req.URL, err))
	}
	return e.run(ctx, ictx, req)
}

// normalizeRequest defaults an unset mode to draft.
func normalizeRequest(req Request) Request {
	if req.Mode == "" {
		req.Mode = ModeDraft
	}
	return req
}

// validateRequest rejects requests that must not reach a page.
func validateRequest(req Request) error {
	_, err := ParseMode(string(req.Mode))
	return err
}

// reject fails an attempt that never ran in a context. No evidence is written.
func (e *Engine) reject(req Request, ferr *Error) (*Outcome, error) {
	now := e.opts.Now()
	out := newOutcome(req, now)
	out.Status = StatusFailed
	out.Error = ferr
	out.States = []State{StateStarted, StateFailed}
	out.FinishedAt = now
	e.log.Errorf("Attempt %s could not start: %v", out.AttemptID, ferr)
	return out, ferr
}

func newOutcome(req Request, started time.Time) *Outcome {
	return &Outcome{
		AttemptID: uuid.New().String(),
		JobID:     req.JobID,
		URL:       req.URL,
		Mode:      req.Mode,
		Fields:    []FieldResult{},
		Warnings:  []string{},
		StartedAt: started,
	}
}

// run executes one attempt and guarantees the context is closed on every
// exit path, panics included.
func (e *Engine) run(ctx context.Context, ictx *browser.IsolatedContext, req Request) (out *Outcome, err error) {
	started := e.opts.Now()
	a := &attempt{
		engine: e,
		opts:   e.opts,
		page:   ictx.Page,
		req:    req,
		at:     started,
		out:    newOutcome(req, started),
		states: newStateMachine(),
	}
	a.log = e.log.With(a.out.AttemptID[:8])
	a.out.ContextID = ictx.ID
	out = a.out

	defer func() {
		r := recover()
		if r != nil {
			a.fail(unhandledError("fill", req.URL, fmt.Errorf("panic: %v", r)))
		}
		if cerr := ictx.Close(); cerr != nil {
			a.warn("Context close failed: %v", cerr)
		}
		if aerr := a.states.advance(StateContextClosed); aerr != nil {
			a.states.force(StateContextClosed)
		}
		out.States = a.states.History()
		out.FinishedAt = e.opts.Now()
		a.log.Infof("Attempt finished: status=%s warnings=%d", out.Status, len(out.Warnings))
		if r != nil {
			panic(r)
		}
	}()

	a.log.Infof("Attempt started: url=%s mode=%s", req.URL, req.Mode)

	if runErr := a.execute(ctx); runErr != nil {
		ferr := asError(runErr, req.URL)
		a.fail(ferr)
		return out, ferr
	}
	return out, nil
}

// attempt carries the state of one fill attempt.
type attempt struct {
	engine *Engine
	opts   Options
	page   browser.Page
	req    Request
	at     time.Time
	out    *Outcome
	states *stateMachine
	log    *logging.Logger
}

func (a *attempt) warn(format string, args ...interface{}) {
	msg := fmt.Sprintf(format, args...)
	a.out.Warnings = append(a.out.Warnings, msg)
	a.log.Warnf("%s", msg)
}

func (a *attempt) advance(next State) error {
	if err := a.states.advance(next); err != nil {
		return unhandledError("advance", a.req.URL, err)
	}
	return nil
}

// execute runs steps 1-6 of the normal path.
func (a *attempt) execute(ctx context.Context) error {
	if err := a.engine.evidence.Prepare(); err != nil {
		return unhandledError("prepare evidence", a.req.URL, err)
	}

	if err := a.navigate(ctx); err != nil {
		return err
	}

	a.hydrate()
	a.inventory()

	if err := ctx.Err(); err != nil {
		return unhandledError("fill fields", a.req.URL, err)
	}
	if err := a.fillFields(); err != nil {
		return unhandledError("fill fields", a.req.URL, err)
	}
	if err := a.upload(); err != nil {
		return unhandledError("upload document", a.req.URL, err)
	}
	if err := a.advance(StateFieldsResolved); err != nil {
		return err
	}

	if err := ctx.Err(); err != nil {
		return unhandledError("submit", a.req.URL, err)
	}
	if err := a.decide(); err != nil {
		return err
	}

	return a.captureEvidence()
}

// navigate validates the target and loads it within the navigation timeout.
func (a *attempt) navigate(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return navigationError("navigate", a.req.URL, err)
	}

	target, err := parseTarget(a.req.URL)
	if err != nil {
		return navigationError("validate url", a.req.URL, err)
	}
	if !a.opts.Policy.Allows(target.Hostname()) {
		return navigationError("check target policy", a.req.URL, fmt.Errorf("%w: %s", ErrTargetDenied, target.Hostname()))
	}

	a.log.Infof("Navigating to %s", target)
	if err := a.page.Goto(target.String(), a.opts.NavigationTimeout); err != nil {
		return navigationError("navigate", a.req.URL, err)
	}
	return a.advance(StateNavigated)
}

// hydrate waits for network idle. Exceeding the bound is not fatal.
func (a *attempt) hydrate() {
	if err := a.page.WaitForNetworkIdle(a.opts.HydrationTimeout); err != nil {
		if errors.Is(err, browser.ErrTimeout) {
			a.warn("Network idle not reached within %s; continuing", a.opts.HydrationTimeout)
			return
		}
		a.warn("Network idle wait failed: %v; continuing", err)
	}
}

// inventory records which controls the page offers, for the report.
func (a *attempt) inventory() {
	content, err := a.page.Content()
	if err != nil {
		a.log.Debugf("Skipping form inventory: %v", err)
		return
	}
	inv, err := browser.InventoryForms(content)
	if err != nil {
		a.log.Debugf("Skipping form inventory: %v", err)
		return
	}
	a.out.Form = inv
	a.log.Debugf("Form inventory: forms=%d inputs=%d files=%d submits=%d",
		inv.Forms, inv.TextInputs+inv.TextAreas, inv.FileInputs, inv.SubmitControls)
}

func (a *attempt) fillFields() error {
	for _, field := range profileFields(a.req.Profile, a.opts.CoverLetterLimit) {
		result, err := resolveField(a.page, field)
		if err != nil {
			return err
		}
		a.out.Fields = append(a.out.Fields, result)

		if result.Status == FieldNotFound {
			a.warn("%q field not found", field.name)
			continue
		}
		a.log.Infof("Filled %q via %s", field.name, result.Strategy)
	}
	return nil
}

func (a *attempt) upload() error {
	if a.req.DocumentPath == "" {
		return nil
	}

	doc, err := InspectDocument(a.req.DocumentPath)
	if err != nil {
		a.warn("Skipping document upload: %v", err)
		return nil
	}

	result, warnings, err := uploadDocument(a.page, doc)
	a.out.Upload = result
	for _, w := range warnings {
		a.warn("%s", w)
	}
	if err != nil {
		return err
	}
	if result.Uploaded {
		a.log.Infof("Uploaded %s", doc.Path)
	}
	return nil
}

// decide holds the page in draft mode or searches for and clicks a submit
// control in live mode.
func (a *attempt) decide() error {
	if a.req.Mode == ModeDraft {
		a.log.Infof("Draft mode: holding page for %s without submitting", a.opts.DraftHold)
		if a.opts.DraftHold > 0 {
			a.page.Wait(a.opts.DraftHold)
		}
		a.out.Status = StatusFilledNotSubmitted
		return a.advance(StateDraftHeld)
	}

	if err := a.advance(StateSubmissionAttempted); err != nil {
		return err
	}

	control, err := clickSubmit(a.page)
	if err != nil {
		return unhandledError("submit", a.req.URL, err)
	}
	if control == "" {
		a.warn(NoSubmitWarning)
		a.out.Status = StatusFilledNotSubmitted
		return nil
	}

	a.log.Infof("Clicked %s", control)
	a.out.SubmitControl = control
	if a.opts.ConfirmationWait > 0 {
		a.page.Wait(a.opts.ConfirmationWait)
	}
	a.out.Status = StatusSubmitted
	return nil
}

// captureEvidence writes the primary artifacts of the normal path.
func (a *attempt) captureEvidence() error {
	tag := string(a.req.Mode)
	a.out.FinalURL = a.page.URL()

	if a.opts.Snapshots {
		a.snapshot(tag)
	}

	path, err := a.engine.evidence.Capture(a.page, tag, a.at)
	if err != nil {
		return unhandledError("capture evidence", a.req.URL, err)
	}
	a.out.EvidencePath = path
	a.log.Infof("Screenshot saved: %s", path)

	return a.advance(StateEvidenceCaptured)
}

func (a *attempt) snapshot(tag string) {
	content, err := a.page.Content()
	if err != nil {
		a.warn("DOM snapshot skipped: %v", err)
		return
	}
	path, err := a.engine.evidence.Snapshot(content, tag, a.at)
	if err != nil {
		a.warn("DOM snapshot skipped: %v", err)
		return
	}
	a.out.SnapshotPath = path
}

// fail records a failure. The error screenshot is taken first, then the
// primary one if the normal path did not get that far. Capture failures are
// logged and never replace the original error.
func (a *attempt) fail(ferr *Error) {
	if err := a.states.advance(StateFailed); err != nil {
		a.states.force(StateFailed)
	}
	if a.out.FinalURL == "" {
		a.out.FinalURL = a.page.URL()
	}

	if path, err := a.engine.evidence.Capture(a.page, ErrorTag, a.at); err != nil {
		a.log.Errorf("Error screenshot failed: %v", err)
	} else {
		a.out.ErrorEvidencePath = path
	}

	if a.out.EvidencePath == "" {
		if path, err := a.engine.evidence.Capture(a.page, string(a.req.Mode), a.at); err != nil {
			a.log.Errorf("Primary screenshot failed: %v", err)
		} else {
			a.out.EvidencePath = path
		}
	}

	a.out.Status = StatusFailed
	a.out.Error = ferr
	a.log.Errorf("Attempt failed: %v", ferr)

	_ = a.states.advance(StateEvidenceCaptured)
}
