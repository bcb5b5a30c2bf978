package report

import (
	"io"

	"github.com/charmbracelet/lipgloss"
)

// Color palette shared by console output
var (
	salmonPink  = lipgloss.Color("#FFB3BA")
	coralPink   = lipgloss.Color("#FFCCCB")
	mintGreen   = lipgloss.Color("#A8E6CF")
	amber       = lipgloss.Color("#FCD34D")
	mutedGray   = lipgloss.Color("#6B7280")
	brightWhite = lipgloss.Color("#F9FAFB")
)

// styles holds the styles of one console. They are bound to the console's
// writer so color support is detected for that writer, not for stdout.
type styles struct {
	header  lipgloss.Style
	section lipgloss.Style
	step    lipgloss.Style
	success lipgloss.Style
	info    lipgloss.Style
	warning lipgloss.Style
	err     lipgloss.Style
	muted   lipgloss.Style
	label   lipgloss.Style
	box     lipgloss.Style
}

func newStyles(w io.Writer) styles {
	r := lipgloss.NewRenderer(w)
	return styles{
		header:  r.NewStyle().Foreground(salmonPink).Bold(true),
		section: r.NewStyle().Foreground(coralPink).Bold(true),
		step:    r.NewStyle().Foreground(coralPink),
		success: r.NewStyle().Foreground(mintGreen).Bold(true),
		info:    r.NewStyle().Foreground(brightWhite),
		warning: r.NewStyle().Foreground(amber),
		err:     r.NewStyle().Foreground(salmonPink).Bold(true),
		muted:   r.NewStyle().Foreground(mutedGray),
		label:   r.NewStyle().Foreground(mutedGray).Width(12),
		box: r.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(salmonPink).
			Padding(0, 1),
	}
}
