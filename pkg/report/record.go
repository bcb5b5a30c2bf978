package report

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"

	"github.com/entrhq/formpilot/pkg/formfill"
)

// RecordStatus is the application status kept in the history log.
type RecordStatus string

const (
	RecordApplied RecordStatus = "applied"
	RecordFailed  RecordStatus = "failed"
)

// Notes recorded for attempts that did not fail
const (
	NoteSubmitted = "Application was submitted"
	NoteDraft     = "Draft - Form filled only"
	NoteNoSubmit  = "Form filled - no submit control found"
)

// Record is one entry of the application history.
type Record struct {
	ID           string       `json:"id"`
	JobID        string       `json:"job_id"`
	Status       RecordStatus `json:"status"`
	AppliedAt    time.Time    `json:"applied_at"`
	ErrorMessage string       `json:"error_message,omitempty"`
	Notes        string       `json:"notes,omitempty"`
}

// NewRecord maps an outcome onto a history entry. Any outcome that did not
// fail counts as applied; the notes tell a draft from a submission.
func NewRecord(out *formfill.Outcome) Record {
	rec := Record{
		ID:        out.AttemptID,
		JobID:     out.JobID,
		Status:    RecordApplied,
		AppliedAt: out.FinishedAt,
	}
	if rec.ID == "" {
		rec.ID = uuid.New().String()
	}
	if rec.JobID == "" {
		rec.JobID = "unknown"
	}
	if rec.AppliedAt.IsZero() {
		rec.AppliedAt = time.Now()
	}

	switch out.Status {
	case formfill.StatusSubmitted:
		rec.Notes = NoteSubmitted
	case formfill.StatusFilledNotSubmitted:
		rec.Notes = NoteDraft
		if out.Mode == formfill.ModeLive {
			rec.Notes = NoteNoSubmit
		}
	default:
		rec.Status = RecordFailed
		if out.Error != nil {
			rec.ErrorMessage = out.Error.Error()
		}
	}
	return rec
}

// LoadRecords reads the history file. A missing file is an empty history.
func LoadRecords(path string) ([]Record, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return []Record{}, nil
		}
		return nil, fmt.Errorf("failed to read application history: %w", err)
	}

	var records []Record
	if err := json.Unmarshal(data, &records); err != nil {
		return nil, fmt.Errorf("failed to decode application history: %w", err)
	}
	return records, nil
}

// AppendRecord adds rec to the history file, replacing it atomically. The
// caller must hold the run lock.
func AppendRecord(path string, rec Record) error {
	records, err := LoadRecords(path)
	if err != nil {
		return err
	}
	records = append(records, rec)

	if err := os.MkdirAll(filepath.Dir(path), 0750); err != nil {
		return fmt.Errorf("failed to create history directory: %w", err)
	}

	data, err := json.MarshalIndent(records, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to encode application history: %w", err)
	}

	tempPath := path + ".tmp"
	if err := os.WriteFile(tempPath, data, 0600); err != nil {
		return fmt.Errorf("failed to write temp history file: %w", err)
	}
	if err := os.Rename(tempPath, path); err != nil {
		os.Remove(tempPath)
		return fmt.Errorf("failed to rename temp file: %w", err)
	}
	return nil
}
