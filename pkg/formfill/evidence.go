package formfill

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/entrhq/formpilot/pkg/browser"
)

// ErrorTag names the extra screenshot taken when an attempt fails.
const ErrorTag = "error"

// EvidenceRecorder writes the screenshots that document each attempt.
//
// Artifacts are named <tag>_<unix-seconds>.<ext>. Two attempts with the same
// tag started in the same second overwrite each other, which is acceptable
// for one attempt per invocation.
type EvidenceRecorder struct {
	dir string
}

// NewEvidenceRecorder creates a recorder writing into dir.
func NewEvidenceRecorder(dir string) *EvidenceRecorder {
	return &EvidenceRecorder{dir: dir}
}

// Dir returns the evidence directory.
func (r *EvidenceRecorder) Dir() string {
	return r.dir
}

// Prepare creates the evidence directory if it is missing.
func (r *EvidenceRecorder) Prepare() error {
	if err := os.MkdirAll(r.dir, 0750); err != nil {
		return fmt.Errorf("failed to create evidence directory: %w", err)
	}
	return nil
}

// Path returns the artifact path for a tag, attempt time and extension.
func (r *EvidenceRecorder) Path(tag string, at time.Time, ext string) string {
	return filepath.Join(r.dir, fmt.Sprintf("%s_%d.%s", tag, at.Unix(), ext))
}

// Capture screenshots page into <tag>_<unix>.png.
func (r *EvidenceRecorder) Capture(page browser.Page, tag string, at time.Time) (string, error) {
	path := r.Path(tag, at, "png")
	if err := page.Screenshot(path); err != nil {
		return "", fmt.Errorf("failed to capture %s screenshot: %w", tag, err)
	}
	return path, nil
}

// Snapshot writes a cleaned copy of rawHTML into <tag>_<unix>.html.
func (r *EvidenceRecorder) Snapshot(rawHTML, tag string, at time.Time) (string, error) {
	snap, err := browser.NewSnapshot(rawHTML, browser.DefaultSnapshotLength)
	if err != nil {
		return "", err
	}

	path := r.Path(tag, at, "html")
	if err := os.WriteFile(path, []byte(snap.HTML), 0600); err != nil {
		return "", fmt.Errorf("failed to write %s snapshot: %w", tag, err)
	}
	return path, nil
}
