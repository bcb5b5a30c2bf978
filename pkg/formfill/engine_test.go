package formfill

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/entrhq/formpilot/pkg/browser"
	"github.com/entrhq/formpilot/pkg/profile"
)

const testURL = "https://jobs.example.com/apply/42"

var testTime = time.Unix(1700000000, 0)

func testProfile() profile.Profile {
	return profile.Profile{
		Name:  "Ada Lovelace",
		Email: "ada@example.com",
	}
}

func newTestEngine(t *testing.T, page *fakePage) (*Engine, *fakeProvider, string) {
	t.Helper()
	dir := filepath.Join(t.TempDir(), "screenshots")
	provider := &fakeProvider{page: page}
	opts := DefaultOptions(t.TempDir())
	opts.EvidenceDir = dir
	opts.Now = func() time.Time { return testTime }
	return NewEngine(provider, opts), provider, dir
}

func evidenceFiles(t *testing.T, dir string) []string {
	t.Helper()
	entries, err := os.ReadDir(dir)
	if os.IsNotExist(err) {
		return nil
	}
	require.NoError(t, err)
	var names []string
	for _, e := range entries {
		names = append(names, e.Name())
	}
	return names
}

func TestFill_DraftFillsWithoutSubmitting(t *testing.T) {
	name := labeled("Full Name")
	email := labeled("Email Address")
	submit := button("Submit Application")
	page := newFakePage(name, email, submit)

	engine, provider, dir := newTestEngine(t, page)
	out, err := engine.Fill(context.Background(), Request{URL: testURL, Profile: testProfile(), Mode: ModeDraft})
	require.NoError(t, err)

	assert.Equal(t, StatusFilledNotSubmitted, out.Status)
	assert.Equal(t, "Ada Lovelace", name.value)
	assert.Equal(t, "ada@example.com", email.value)
	assert.False(t, submit.clicked)
	assert.Empty(t, page.clicks)
	assert.Empty(t, page.buttonLookups(), "draft mode must not search for submit controls")
	assert.Equal(t, []time.Duration{DefaultDraftHold}, page.waits)

	opened, closed := provider.counts()
	assert.Equal(t, 1, opened)
	assert.Equal(t, 1, closed)

	assert.Equal(t, []string{"draft_1700000000.png"}, evidenceFiles(t, dir))
	assert.Equal(t, filepath.Join(dir, "draft_1700000000.png"), out.EvidencePath)
	assert.Empty(t, out.ErrorEvidencePath)
	assert.Equal(t, []State{
		StateStarted, StateNavigated, StateFieldsResolved,
		StateDraftHeld, StateEvidenceCaptured, StateContextClosed,
	}, out.States)
	assert.Equal(t, "ctx-1", out.ContextID)
	assert.NotEmpty(t, out.AttemptID)
}

func TestFill_LiveNoSubmitControl(t *testing.T) {
	name := labeled("Name")
	email := labeled("Email")
	page := newFakePage(name, email, fileInput())

	engine, provider, dir := newTestEngine(t, page)
	out, err := engine.Fill(context.Background(), Request{URL: testURL, Profile: testProfile(), Mode: ModeLive})
	require.NoError(t, err)

	assert.Equal(t, StatusFilledNotSubmitted, out.Status)
	assert.Contains(t, out.Warnings, NoSubmitWarning)
	assert.Empty(t, page.clicks)

	for _, field := range []string{FieldName, FieldEmail} {
		result, ok := out.Field(field)
		require.True(t, ok, field)
		assert.Equal(t, FieldFilled, result.Status, field)
		assert.Equal(t, StrategyLabel, result.Strategy, field)
	}

	_, closed := provider.counts()
	assert.Equal(t, 1, closed)
	assert.Equal(t, []string{"live_1700000000.png"}, evidenceFiles(t, dir))
	assert.Contains(t, out.States, StateSubmissionAttempted)
}

func TestFill_LiveClicksApplyNow(t *testing.T) {
	apply := button("Apply Now")
	page := newFakePage(labeled("Name"), labeled("Email"), apply)

	engine, _, _ := newTestEngine(t, page)
	out, err := engine.Fill(context.Background(), Request{URL: testURL, Profile: testProfile(), Mode: ModeLive})
	require.NoError(t, err)

	assert.Equal(t, StatusSubmitted, out.Status)
	assert.True(t, apply.clicked)
	assert.Equal(t, `button "Apply Now"`, out.SubmitControl)
	assert.Equal(t, testURL, out.FinalURL)
	assert.Len(t, page.clicks, 1)
	assert.Equal(t, []time.Duration{DefaultConfirmationWait}, page.waits)
	assert.NotContains(t, out.Warnings, NoSubmitWarning)
}

func TestFill_SubmitPhrasePriority(t *testing.T) {
	tests := []struct {
		name     string
		buttons  []string
		expected string
	}{
		{"submit application beats apply", []string{"Apply", "Submit Application"}, "Submit Application"},
		{"submit beats apply now", []string{"Apply Now", "Submit"}, "Submit"},
		{"apply beats send", []string{"Send", "Apply"}, "Apply"},
		{"case insensitive", []string{"send application"}, "send application"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var controls []*control
			byName := map[string]*control{}
			for _, b := range tt.buttons {
				c := button(b)
				controls = append(controls, c)
				byName[b] = c
			}
			page := newFakePage(controls...)

			engine, _, _ := newTestEngine(t, page)
			out, err := engine.Fill(context.Background(), Request{URL: testURL, Profile: testProfile(), Mode: ModeLive})
			require.NoError(t, err)

			assert.Equal(t, StatusSubmitted, out.Status)
			require.Len(t, page.clicks, 1)
			for name, c := range byName {
				assert.Equal(t, name == tt.expected, c.clicked, name)
			}
		})
	}
}

func TestFill_SubmitFallbacks(t *testing.T) {
	t.Run("hidden phrase button falls through to submit-typed button", func(t *testing.T) {
		hidden := &control{button: "Submit", hidden: true}
		typed := &control{selector: "button[type='submit']"}
		page := newFakePage(hidden, typed)

		engine, _, _ := newTestEngine(t, page)
		out, err := engine.Fill(context.Background(), Request{URL: testURL, Profile: testProfile(), Mode: ModeLive})
		require.NoError(t, err)

		assert.Equal(t, StatusSubmitted, out.Status)
		assert.False(t, hidden.clicked)
		assert.True(t, typed.clicked)
		assert.Equal(t, "button[type='submit']", out.SubmitControl)
	})

	t.Run("submit input", func(t *testing.T) {
		input := &control{selector: "input[type='submit']"}
		page := newFakePage(input)

		engine, _, _ := newTestEngine(t, page)
		out, err := engine.Fill(context.Background(), Request{URL: testURL, Profile: testProfile(), Mode: ModeLive})
		require.NoError(t, err)

		assert.Equal(t, StatusSubmitted, out.Status)
		assert.True(t, input.clicked)
	})

	t.Run("failed click moves to next candidate", func(t *testing.T) {
		broken := &control{button: "Submit Application", clickErr: errors.New("intercepted")}
		apply := button("Apply")
		page := newFakePage(broken, apply)

		engine, _, _ := newTestEngine(t, page)
		out, err := engine.Fill(context.Background(), Request{URL: testURL, Profile: testProfile(), Mode: ModeLive})
		require.NoError(t, err)

		assert.Equal(t, StatusSubmitted, out.Status)
		assert.True(t, apply.clicked)
	})
}

func TestFill_PlaceholderFallback(t *testing.T) {
	name := labeled("Name")
	email := placeholder("Your email")
	page := newFakePage(name, email)

	engine, _, _ := newTestEngine(t, page)
	out, err := engine.Fill(context.Background(), Request{URL: testURL, Profile: testProfile(), Mode: ModeDraft})
	require.NoError(t, err)

	result, ok := out.Field(FieldEmail)
	require.True(t, ok)
	assert.Equal(t, FieldFilled, result.Status)
	assert.Equal(t, StrategyPlaceholder, result.Strategy)
	assert.Equal(t, "ada@example.com", email.value)
}

func TestFill_HiddenLabelUsesPlaceholder(t *testing.T) {
	hidden := &control{label: "Phone", hidden: true}
	visible := placeholder("Phone number")
	page := newFakePage(labeled("Name"), labeled("Email"), hidden, visible)

	p := testProfile()
	p.Phone = "+44 20 7946 0000"

	engine, _, _ := newTestEngine(t, page)
	out, err := engine.Fill(context.Background(), Request{URL: testURL, Profile: p, Mode: ModeDraft})
	require.NoError(t, err)

	assert.Empty(t, hidden.value)
	assert.Equal(t, p.Phone, visible.value)
	result, _ := out.Field(FieldPhone)
	assert.Equal(t, StrategyPlaceholder, result.Strategy)
}

func TestFill_MissingFieldsAreWarnings(t *testing.T) {
	page := newFakePage(labeled("Name"))

	p := testProfile()
	p.LinkedIn = "https://linkedin.com/in/ada"

	engine, _, _ := newTestEngine(t, page)
	out, err := engine.Fill(context.Background(), Request{URL: testURL, Profile: p, Mode: ModeDraft})
	require.NoError(t, err)

	assert.Equal(t, StatusFilledNotSubmitted, out.Status)
	assert.Contains(t, out.Warnings, `"Email" field not found`)
	assert.Contains(t, out.Warnings, `"LinkedIn" field not found`)

	var order []string
	for _, f := range out.Fields {
		order = append(order, f.Field)
	}
	assert.Equal(t, []string{FieldName, FieldEmail, FieldLinkedIn}, order, "absent optional fields are skipped")

	result, _ := out.Field(FieldEmail)
	assert.Equal(t, FieldNotFound, result.Status)
	assert.Empty(t, result.Strategy)
}

func TestFill_FillErrorIsAMiss(t *testing.T) {
	stuck := &control{label: "Email", fillErr: errors.New("element is not editable")}
	fallback := placeholder("Email")
	page := newFakePage(labeled("Name"), stuck, fallback)

	engine, _, _ := newTestEngine(t, page)
	out, err := engine.Fill(context.Background(), Request{URL: testURL, Profile: testProfile(), Mode: ModeDraft})
	require.NoError(t, err)

	result, _ := out.Field(FieldEmail)
	assert.Equal(t, StrategyPlaceholder, result.Strategy)
	assert.Equal(t, "ada@example.com", fallback.value)
}

func TestFill_CoverLetterExcerpt(t *testing.T) {
	letter := labeled("Cover Letter")
	page := newFakePage(labeled("Name"), labeled("Email"), letter)

	p := testProfile()
	p.CoverLetter = strings.Repeat("é", 600)

	engine, _, _ := newTestEngine(t, page)
	_, err := engine.Fill(context.Background(), Request{URL: testURL, Profile: p, Mode: ModeDraft})
	require.NoError(t, err)

	assert.Equal(t, DefaultCoverLetterLimit, len([]rune(letter.value)))
}

func TestFill_NavigationFailure(t *testing.T) {
	page := newFakePage(labeled("Name"), labeled("Email"))
	page.gotoErr = fmt.Errorf("%w: net::ERR_NAME_NOT_RESOLVED", browser.ErrTimeout)

	engine, provider, dir := newTestEngine(t, page)
	out, err := engine.Fill(context.Background(), Request{URL: testURL, Profile: testProfile(), Mode: ModeLive})
	require.Error(t, err)

	assert.True(t, IsNavigation(err))
	assert.ErrorIs(t, err, browser.ErrTimeout)
	assert.Equal(t, StatusFailed, out.Status)
	require.NotNil(t, out.Error)
	assert.Equal(t, KindNavigation, out.Error.Kind)
	assert.Empty(t, page.lookups, "no field lookups after a failed navigation")
	assert.Empty(t, out.Fields)

	opened, closed := provider.counts()
	assert.Equal(t, 1, opened)
	assert.Equal(t, 1, closed)

	files := evidenceFiles(t, dir)
	assert.ElementsMatch(t, []string{"error_1700000000.png", "live_1700000000.png"}, files)
	assert.Equal(t, filepath.Join(dir, "error_1700000000.png"), out.ErrorEvidencePath)
	assert.Equal(t, []State{StateStarted, StateFailed, StateEvidenceCaptured, StateContextClosed}, out.States)
}

func TestFill_InvalidTargets(t *testing.T) {
	denied, err := NewTargetPolicy(nil, []string{"*.internal"})
	require.NoError(t, err)

	tests := []struct {
		name   string
		url    string
		policy *TargetPolicy
		target error
	}{
		{name: "file scheme", url: "file:///etc/passwd"},
		{name: "relative", url: "/apply"},
		{name: "no host", url: "https://"},
		{name: "denied host", url: "https://hr.internal/apply", policy: denied, target: ErrTargetDenied},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			page := newFakePage()
			engine, provider, _ := newTestEngine(t, page)
			engine.opts.Policy = tt.policy

			out, err := engine.Fill(context.Background(), Request{URL: tt.url, Profile: testProfile(), Mode: ModeDraft})
			require.Error(t, err)
			assert.True(t, IsNavigation(err))
			if tt.target != nil {
				assert.ErrorIs(t, err, tt.target)
			}
			assert.Equal(t, StatusFailed, out.Status)
			assert.Empty(t, page.visited)

			_, closed := provider.counts()
			assert.Equal(t, 1, closed)
		})
	}
}

func TestFill_HydrationTimeoutIsAdvisory(t *testing.T) {
	page := newFakePage(labeled("Name"), labeled("Email"))
	page.idleErr = fmt.Errorf("%w: networkidle", browser.ErrTimeout)

	engine, _, _ := newTestEngine(t, page)
	out, err := engine.Fill(context.Background(), Request{URL: testURL, Profile: testProfile(), Mode: ModeDraft})
	require.NoError(t, err)

	assert.Equal(t, StatusFilledNotSubmitted, out.Status)
	require.NotEmpty(t, out.Warnings)
	assert.Contains(t, out.Warnings[0], "Network idle not reached")
}

func TestFill_PageClosedMidFlow(t *testing.T) {
	page := newFakePage(labeled("Name"), labeled("Email"))
	page.closeAfterGoto = true

	engine, provider, dir := newTestEngine(t, page)
	out, err := engine.Fill(context.Background(), Request{URL: testURL, Profile: testProfile(), Mode: ModeDraft})
	require.Error(t, err)

	assert.Equal(t, KindUnhandled, KindOf(err))
	assert.ErrorIs(t, err, browser.ErrPageClosed)
	assert.Equal(t, StatusFailed, out.Status)

	opened, closed := provider.counts()
	assert.Equal(t, 1, opened)
	assert.Equal(t, 1, closed)
	assert.ElementsMatch(t, []string{"error_1700000000.png", "draft_1700000000.png"}, evidenceFiles(t, dir))
}

func TestFill_ScreenshotFailureDoesNotMaskError(t *testing.T) {
	page := newFakePage()
	page.gotoErr = errors.New("connection refused")
	page.screenshotErr = errors.New("target crashed")

	engine, provider, _ := newTestEngine(t, page)
	out, err := engine.Fill(context.Background(), Request{URL: testURL, Profile: testProfile(), Mode: ModeDraft})
	require.Error(t, err)

	assert.True(t, IsNavigation(err))
	assert.Contains(t, err.Error(), "connection refused")
	assert.Empty(t, out.ErrorEvidencePath)

	_, closed := provider.counts()
	assert.Equal(t, 1, closed)
}

func TestFill_PrimaryScreenshotFailureFails(t *testing.T) {
	page := newFakePage(labeled("Name"), labeled("Email"))
	page.screenshotErr = errors.New("disk full")

	engine, _, _ := newTestEngine(t, page)
	out, err := engine.Fill(context.Background(), Request{URL: testURL, Profile: testProfile(), Mode: ModeDraft})
	require.Error(t, err)

	assert.Equal(t, KindUnhandled, KindOf(err))
	assert.Equal(t, StatusFailed, out.Status)
}

func TestFill_PanicStillClosesContext(t *testing.T) {
	page := newFakePage(labeled("Name"))
	page.panicOnLookup = true

	engine, provider, dir := newTestEngine(t, page)
	assert.Panics(t, func() {
		_, _ = engine.Fill(context.Background(), Request{URL: testURL, Profile: testProfile(), Mode: ModeDraft})
	})

	opened, closed := provider.counts()
	assert.Equal(t, 1, opened)
	assert.Equal(t, 1, closed)

	// Error evidence is still written before the panic propagates.
	assert.ElementsMatch(t, []string{"error_1700000000.png", "draft_1700000000.png"}, evidenceFiles(t, dir))

	// The engine lock must have been released.
	page.panicOnLookup = false
	_, err := engine.Fill(context.Background(), Request{URL: testURL, Profile: testProfile(), Mode: ModeDraft})
	assert.NoError(t, err)
}

func TestFill_UnknownModeRejected(t *testing.T) {
	page := newFakePage(labeled("Name"))
	engine, provider, dir := newTestEngine(t, page)

	out, err := engine.Fill(context.Background(), Request{URL: testURL, Profile: testProfile(), Mode: Mode("LIVE")})
	require.Error(t, err)

	assert.Equal(t, KindUnhandled, KindOf(err))
	assert.Equal(t, StatusFailed, out.Status)
	assert.Equal(t, []State{StateStarted, StateFailed}, out.States)
	assert.Empty(t, out.EvidencePath)
	assert.Empty(t, evidenceFiles(t, dir))
	assert.Empty(t, page.visited)

	opened, _ := provider.counts()
	assert.Zero(t, opened)

	t.Run("caller context is closed", func(t *testing.T) {
		closed := false
		ictx := browser.NewIsolatedContext("manual", page, func() error {
			closed = true
			return nil
		})
		_, err := engine.FillContext(context.Background(), ictx, Request{URL: testURL, Mode: Mode("submit")})
		require.Error(t, err)
		assert.True(t, closed)
		assert.Empty(t, evidenceFiles(t, dir))
	})
}

func TestFill_SessionFailure(t *testing.T) {
	provider := &fakeProvider{err: &browser.SessionError{Op: "launch", Err: errors.New("chromium not installed")}}
	dir := filepath.Join(t.TempDir(), "screenshots")
	opts := DefaultOptions(t.TempDir())
	opts.EvidenceDir = dir
	engine := NewEngine(provider, opts)

	out, err := engine.Fill(context.Background(), Request{URL: testURL, Profile: testProfile(), Mode: ModeLive})
	require.Error(t, err)

	assert.True(t, IsSession(err))
	assert.True(t, browser.IsSessionError(err))
	assert.Equal(t, StatusFailed, out.Status)
	assert.Empty(t, out.EvidencePath)
	assert.Empty(t, evidenceFiles(t, dir))
}

func TestFill_CancelledContext(t *testing.T) {
	page := newFakePage(labeled("Name"))
	engine, provider, _ := newTestEngine(t, page)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	out, err := engine.FillContext(ctx, browser.NewIsolatedContext("manual", page, func() error {
		provider.mu.Lock()
		defer provider.mu.Unlock()
		provider.closed++
		return nil
	}), Request{URL: testURL, Profile: testProfile(), Mode: ModeDraft})
	require.Error(t, err)

	assert.ErrorIs(t, err, context.Canceled)
	assert.Equal(t, StatusFailed, out.Status)
	assert.Empty(t, page.visited)

	_, closed := provider.counts()
	assert.Equal(t, 1, closed)
}

func TestFill_CloseErrorIsAWarning(t *testing.T) {
	page := newFakePage(labeled("Name"), labeled("Email"))
	engine, provider, _ := newTestEngine(t, page)
	provider.closeErr = errors.New("context already gone")

	out, err := engine.Fill(context.Background(), Request{URL: testURL, Profile: testProfile(), Mode: ModeDraft})
	require.NoError(t, err)

	assert.Equal(t, StatusFilledNotSubmitted, out.Status)
	assert.Contains(t, out.Warnings[len(out.Warnings)-1], "context already gone")
}

func TestFill_DefaultsToDraft(t *testing.T) {
	submit := button("Submit")
	page := newFakePage(submit)

	engine, _, dir := newTestEngine(t, page)
	out, err := engine.Fill(context.Background(), Request{URL: testURL, Profile: testProfile()})
	require.NoError(t, err)

	assert.Equal(t, ModeDraft, out.Mode)
	assert.False(t, submit.clicked)
	assert.Equal(t, []string{"draft_1700000000.png"}, evidenceFiles(t, dir))
}

func TestFill_Snapshot(t *testing.T) {
	page := newFakePage(labeled("Name"), labeled("Email"))
	page.html = `<html><head><title>Apply</title></head><body><form><label>Name <input name="n"></label><button type="submit">Go</button></form></body></html>`

	engine, _, dir := newTestEngine(t, page)
	engine.opts.Snapshots = true

	out, err := engine.Fill(context.Background(), Request{URL: testURL, Profile: testProfile(), Mode: ModeDraft})
	require.NoError(t, err)

	assert.Equal(t, filepath.Join(dir, "draft_1700000000.html"), out.SnapshotPath)
	require.NotNil(t, out.Form)
	assert.Equal(t, "Apply", out.Form.Title)
	assert.Equal(t, 1, out.Form.Forms)
	assert.ElementsMatch(t, []string{"draft_1700000000.png", "draft_1700000000.html"}, evidenceFiles(t, dir))
}

func TestFill_SerializesAttempts(t *testing.T) {
	page := newFakePage(labeled("Name"), labeled("Email"))
	engine, provider, _ := newTestEngine(t, page)

	done := make(chan struct{})
	for i := 0; i < 4; i++ {
		go func() {
			defer func() { done <- struct{}{} }()
			_, _ = engine.Fill(context.Background(), Request{URL: testURL, Profile: testProfile(), Mode: ModeDraft})
		}()
	}
	for i := 0; i < 4; i++ {
		<-done
	}

	opened, closed := provider.counts()
	assert.Equal(t, 4, opened)
	assert.Equal(t, 4, closed)
}
