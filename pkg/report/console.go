package report

import (
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/entrhq/formpilot/pkg/formfill"
)

// Level represents console verbosity
type Level int

const (
	// LevelQuiet shows only warnings, errors and the final summary
	LevelQuiet Level = iota
	// LevelNormal shows run progress (default)
	LevelNormal
	// LevelVerbose adds per-field detail
	LevelVerbose
	// LevelDebug shows everything
	LevelDebug
)

// ParseLevel converts a verbosity name to a Level.
func ParseLevel(s string) (Level, error) {
	switch strings.ToLower(s) {
	case "quiet":
		return LevelQuiet, nil
	case "", "normal":
		return LevelNormal, nil
	case "verbose":
		return LevelVerbose, nil
	case "debug":
		return LevelDebug, nil
	default:
		return LevelNormal, fmt.Errorf("invalid verbosity: %s", s)
	}
}

// Console prints run progress and the attempt summary for a human operator.
type Console struct {
	level  Level
	writer io.Writer
	styles styles

	stepCount int
}

// NewConsole creates a console writing to w; a nil w writes to stdout.
func NewConsole(w io.Writer, level Level) *Console {
	if w == nil {
		w = os.Stdout
	}
	return &Console{
		level:  level,
		writer: w,
		styles: newStyles(w),
	}
}

// Header prints a prominent header message
func (c *Console) Header(message string) {
	if c.level >= LevelNormal {
		fmt.Fprintf(c.writer, "\n%s\n", c.styles.header.Render(message))
		fmt.Fprintln(c.writer, c.styles.muted.Render(strings.Repeat("─", 60)))
	}
}

// Section prints a section divider
func (c *Console) Section(title string) {
	if c.level >= LevelNormal {
		fmt.Fprintf(c.writer, "\n%s\n", c.styles.section.Render("▶ "+title))
	}
}

// Step prints a numbered step
func (c *Console) Step(message string) {
	if c.level >= LevelNormal {
		c.stepCount++
		fmt.Fprintln(c.writer, c.styles.step.Render(fmt.Sprintf("[%d] %s", c.stepCount, message)))
	}
}

// Successf prints a success message with checkmark
func (c *Console) Successf(format string, args ...interface{}) {
	if c.level >= LevelNormal {
		fmt.Fprintln(c.writer, c.styles.success.Render("✓ "+fmt.Sprintf(format, args...)))
	}
}

// Infof prints an informational message
func (c *Console) Infof(format string, args ...interface{}) {
	if c.level >= LevelNormal {
		fmt.Fprintln(c.writer, c.styles.info.Render(fmt.Sprintf(format, args...)))
	}
}

// Warningf prints a warning message
func (c *Console) Warningf(format string, args ...interface{}) {
	fmt.Fprintln(c.writer, c.styles.warning.Render("⚠ Warning: "+fmt.Sprintf(format, args...)))
}

// Errorf prints an error message
func (c *Console) Errorf(format string, args ...interface{}) {
	fmt.Fprintln(c.writer, c.styles.err.Render("✗ Error: "+fmt.Sprintf(format, args...)))
}

// Verbosef prints detail shown in verbose mode
func (c *Console) Verbosef(format string, args ...interface{}) {
	if c.level >= LevelVerbose {
		fmt.Fprintln(c.writer, c.styles.muted.Render("→ "+fmt.Sprintf(format, args...)))
	}
}

// Debugf prints debug information
func (c *Console) Debugf(format string, args ...interface{}) {
	if c.level >= LevelDebug {
		fmt.Fprintln(c.writer, c.styles.muted.Render("[DEBUG] "+fmt.Sprintf(format, args...)))
	}
}

// Summary prints the outcome of an attempt inside a box. It is printed at
// every level.
func (c *Console) Summary(out *formfill.Outcome) {
	var b strings.Builder

	b.WriteString(c.styles.header.Render("ATTEMPT SUMMARY"))
	b.WriteString("\n\n")
	c.row(&b, "Status", c.status(out.Status))
	c.row(&b, "URL", out.URL)
	if out.FinalURL != "" && out.FinalURL != out.URL {
		c.row(&b, "Landed on", out.FinalURL)
	}
	c.row(&b, "Mode", string(out.Mode))
	if out.JobID != "" {
		c.row(&b, "Job", out.JobID)
	}
	c.row(&b, "Duration", out.Duration().Round(100*time.Millisecond).String())

	filled := 0
	for _, f := range out.Fields {
		if f.Status == formfill.FieldFilled {
			filled++
		}
	}
	c.row(&b, "Fields", fmt.Sprintf("%d/%d filled", filled, len(out.Fields)))

	if c.level >= LevelVerbose {
		for _, f := range out.Fields {
			mark := c.styles.success.Render("✓")
			detail := f.Strategy
			if f.Status != formfill.FieldFilled {
				mark = c.styles.warning.Render("✗")
				detail = string(f.Status)
			}
			b.WriteString(fmt.Sprintf("  %s %s %s\n", mark, f.Field, c.styles.muted.Render("("+detail+")")))
		}
	}

	if out.Upload != nil {
		state := "not uploaded"
		if out.Upload.Uploaded {
			state = "uploaded"
		}
		c.row(&b, "Resume", fmt.Sprintf("%s (%s)", out.Upload.Path, state))
	}
	if out.SubmitControl != "" {
		c.row(&b, "Clicked", out.SubmitControl)
	}
	if out.EvidencePath != "" {
		c.row(&b, "Evidence", out.EvidencePath)
	}
	if out.ErrorEvidencePath != "" {
		c.row(&b, "Error shot", out.ErrorEvidencePath)
	}

	if len(out.Warnings) > 0 {
		b.WriteString("\n")
		b.WriteString(c.styles.warning.Render(fmt.Sprintf("Warnings (%d):", len(out.Warnings))))
		b.WriteString("\n")
		for _, w := range out.Warnings {
			b.WriteString("  • " + w + "\n")
		}
	}

	if out.Error != nil {
		b.WriteString("\n")
		b.WriteString(c.styles.err.Render("Error Details:"))
		b.WriteString("\n  " + out.Error.Error() + "\n")
	}

	fmt.Fprintln(c.writer)
	fmt.Fprintln(c.writer, c.styles.box.Render(strings.TrimRight(b.String(), "\n")))
}

func (c *Console) row(b *strings.Builder, label, value string) {
	b.WriteString(c.styles.label.Render(label+":") + " " + value + "\n")
}

func (c *Console) status(s formfill.Status) string {
	switch s {
	case formfill.StatusSubmitted:
		return c.styles.success.Render("✓ SUBMITTED")
	case formfill.StatusFilledNotSubmitted:
		return c.styles.warning.Render("◐ FILLED, NOT SUBMITTED")
	case formfill.StatusFailed:
		return c.styles.err.Render("✗ FAILED")
	default:
		return string(s)
	}
}
