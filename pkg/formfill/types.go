package formfill

import (
	"fmt"
	"time"

	"github.com/entrhq/formpilot/pkg/browser"
	"github.com/entrhq/formpilot/pkg/profile"
)

// Mode selects whether an attempt may submit the form.
type Mode string

const (
	// ModeDraft fills the form but never searches for or clicks a submit control
	ModeDraft Mode = "draft"
	// ModeLive fills the form and then clicks the best submit control it finds
	ModeLive Mode = "live"
)

// ParseMode converts a string to a Mode.
func ParseMode(s string) (Mode, error) {
	switch Mode(s) {
	case ModeDraft, ModeLive:
		return Mode(s), nil
	default:
		return "", fmt.Errorf("invalid mode: %s (must be 'draft' or 'live')", s)
	}
}

// Status is the terminal result of one attempt.
type Status string

const (
	StatusSubmitted          Status = "submitted"
	StatusFilledNotSubmitted Status = "filled_not_submitted"
	StatusFailed             Status = "failed"
)

// FieldStatus is the result of resolving one logical field.
type FieldStatus string

const (
	FieldFilled   FieldStatus = "filled"
	FieldNotFound FieldStatus = "not_found"
)

// Logical field names, in fill order. They double as the text matched
// against labels and placeholders.
const (
	FieldName        = "Name"
	FieldEmail       = "Email"
	FieldPhone       = "Phone"
	FieldLinkedIn    = "LinkedIn"
	FieldCoverLetter = "Cover Letter"
)

// FieldResult records how one logical field was resolved. Strategy is empty
// when the field was not found.
type FieldResult struct {
	Field    string      `json:"field"`
	Status   FieldStatus `json:"status"`
	Strategy string      `json:"strategy,omitempty"`
}

// UploadResult records the resume upload step.
type UploadResult struct {
	Path     string `json:"path"`
	Uploaded bool   `json:"uploaded"`
	PDFPages int    `json:"pdf_pages,omitempty"`
}

// Request is the input to one fill attempt.
type Request struct {
	// URL is the absolute http(s) address of the application page
	URL string

	// Profile supplies the values typed into the form
	Profile profile.Profile

	// DocumentPath optionally points at the resume to upload
	DocumentPath string

	// Mode selects draft or live behavior
	Mode Mode

	// JobID optionally identifies the job for reports
	JobID string
}

// Outcome is the single result of a fill attempt.
type Outcome struct {
	AttemptID         string                 `json:"attempt_id"`
	JobID             string                 `json:"job_id,omitempty"`
	ContextID         string                 `json:"context_id,omitempty"`
	URL               string                 `json:"url"`
	FinalURL          string                 `json:"final_url,omitempty"`
	Mode              Mode                   `json:"mode"`
	Status            Status                 `json:"status"`
	EvidencePath      string                 `json:"evidence_path,omitempty"`
	ErrorEvidencePath string                 `json:"error_evidence_path,omitempty"`
	SnapshotPath      string                 `json:"snapshot_path,omitempty"`
	Fields            []FieldResult          `json:"fields"`
	Upload            *UploadResult          `json:"upload,omitempty"`
	SubmitControl     string                 `json:"submit_control,omitempty"`
	Warnings          []string               `json:"warnings"`
	Error             *Error                 `json:"error,omitempty"`
	States            []State                `json:"states"`
	Form              *browser.FormInventory `json:"form,omitempty"`
	StartedAt         time.Time              `json:"started_at"`
	FinishedAt        time.Time              `json:"finished_at"`
}

// Field returns the result for a logical field.
func (o *Outcome) Field(name string) (FieldResult, bool) {
	for _, f := range o.Fields {
		if f.Field == name {
			return f, true
		}
	}
	return FieldResult{}, false
}

// Duration returns how long the attempt took.
func (o *Outcome) Duration() time.Duration {
	if o.FinishedAt.IsZero() {
		return 0
	}
	return o.FinishedAt.Sub(o.StartedAt)
}
