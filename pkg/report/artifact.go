// Package report writes attempt artifacts and prints them for the operator.
package report

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/entrhq/formpilot/pkg/formfill"
)

// Formats selects which artifacts WriteAll produces.
type Formats struct {
	JSON     bool
	Markdown bool
}

// ArtifactWriter handles writing attempt artifacts
type ArtifactWriter struct {
	outputDir string
	formats   Formats
}

// NewArtifactWriter creates a new artifact writer
func NewArtifactWriter(outputDir string, formats Formats) *ArtifactWriter {
	return &ArtifactWriter{
		outputDir: outputDir,
		formats:   formats,
	}
}

// Dir returns the output directory.
func (w *ArtifactWriter) Dir() string {
	return w.outputDir
}

// WriteAll writes all configured artifact formats and returns their paths
func (w *ArtifactWriter) WriteAll(out *formfill.Outcome) ([]string, error) {
	if err := os.MkdirAll(w.outputDir, 0750); err != nil {
		return nil, fmt.Errorf("failed to create output directory: %w", err)
	}

	var paths []string

	if w.formats.JSON {
		path, err := w.WriteOutcomeJSON(out)
		if err != nil {
			return paths, fmt.Errorf("failed to write outcome JSON: %w", err)
		}
		paths = append(paths, path)
	}

	if w.formats.Markdown {
		path, err := w.WriteSummaryMarkdown(out)
		if err != nil {
			return paths, fmt.Errorf("failed to write summary markdown: %w", err)
		}
		paths = append(paths, path)
	}

	return paths, nil
}

func (w *ArtifactWriter) path(out *formfill.Outcome, ext string) string {
	return filepath.Join(w.outputDir, fmt.Sprintf("attempt_%s.%s", out.AttemptID, ext))
}

// WriteOutcomeJSON writes the full outcome as JSON
func (w *ArtifactWriter) WriteOutcomeJSON(out *formfill.Outcome) (string, error) {
	path := w.path(out, "json")

	data, err := json.MarshalIndent(out, "", "  ")
	if err != nil {
		return "", fmt.Errorf("failed to marshal outcome: %w", err)
	}

	if writeErr := os.WriteFile(path, data, 0600); writeErr != nil {
		return "", fmt.Errorf("failed to write outcome JSON: %w", writeErr)
	}

	return path, nil
}

// WriteSummaryMarkdown writes a human-readable markdown summary
func (w *ArtifactWriter) WriteSummaryMarkdown(out *formfill.Outcome) (string, error) {
	path := w.path(out, "md")

	var md strings.Builder

	md.WriteString("# Application Attempt Summary\n\n")
	md.WriteString(fmt.Sprintf("**URL:** %s\n\n", out.URL))
	if out.FinalURL != "" && out.FinalURL != out.URL {
		md.WriteString(fmt.Sprintf("**Final URL:** %s\n\n", out.FinalURL))
	}
	if out.JobID != "" {
		md.WriteString(fmt.Sprintf("**Job:** %s\n\n", out.JobID))
	}
	md.WriteString(fmt.Sprintf("**Mode:** %s\n\n", out.Mode))
	md.WriteString(fmt.Sprintf("**Status:** %s\n\n", out.Status))
	md.WriteString(fmt.Sprintf("**Started:** %s\n\n", out.StartedAt.Format(time.RFC3339)))
	md.WriteString(fmt.Sprintf("**Completed:** %s\n\n", out.FinishedAt.Format(time.RFC3339)))
	md.WriteString(fmt.Sprintf("**Duration:** %s\n\n", out.Duration()))

	md.WriteString("## Result\n\n")
	switch {
	case out.Error != nil:
		md.WriteString(fmt.Sprintf("❌ **Error (%s):** %s\n\n", out.Error.Kind, out.Error.Error()))
	case out.Status == formfill.StatusSubmitted:
		md.WriteString(fmt.Sprintf("✅ **Submitted** via %s\n\n", out.SubmitControl))
	default:
		md.WriteString("📝 **Filled, not submitted**\n\n")
	}

	if len(out.Fields) > 0 {
		md.WriteString("## Fields\n\n")
		md.WriteString("| Field | Status | Strategy |\n|---|---|---|\n")
		for _, f := range out.Fields {
			md.WriteString(fmt.Sprintf("| %s | %s | %s |\n", f.Field, f.Status, f.Strategy))
		}
		md.WriteString("\n")
	}

	if out.Upload != nil {
		md.WriteString("## Resume\n\n")
		md.WriteString(fmt.Sprintf("- `%s` uploaded: %t", out.Upload.Path, out.Upload.Uploaded))
		if out.Upload.PDFPages > 0 {
			md.WriteString(fmt.Sprintf(" (%d pages)", out.Upload.PDFPages))
		}
		md.WriteString("\n\n")
	}

	if len(out.Warnings) > 0 {
		md.WriteString("## Warnings\n\n")
		for _, warning := range out.Warnings {
			md.WriteString(fmt.Sprintf("- %s\n", warning))
		}
		md.WriteString("\n")
	}

	md.WriteString("## Evidence\n\n")
	if out.EvidencePath != "" {
		md.WriteString(fmt.Sprintf("- Screenshot: `%s`\n", out.EvidencePath))
	}
	if out.ErrorEvidencePath != "" {
		md.WriteString(fmt.Sprintf("- Error screenshot: `%s`\n", out.ErrorEvidencePath))
	}
	if out.SnapshotPath != "" {
		md.WriteString(fmt.Sprintf("- DOM snapshot: `%s`\n", out.SnapshotPath))
	}

	if len(out.States) > 0 {
		states := make([]string, len(out.States))
		for i, s := range out.States {
			states[i] = string(s)
		}
		md.WriteString(fmt.Sprintf("\n**States:** %s\n", strings.Join(states, " → ")))
	}

	if writeErr := os.WriteFile(path, []byte(md.String()), 0600); writeErr != nil {
		return "", fmt.Errorf("failed to write summary markdown: %w", writeErr)
	}

	return path, nil
}
