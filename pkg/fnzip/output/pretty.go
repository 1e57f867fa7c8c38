package output

import (
	"bytes"
	"fmt"
	"strings"
	"time"

	"github.com/dustin/go-humanize"
)

// PrettyFormatter formats output with colors and styling using lipgloss.
type PrettyFormatter struct {
	// Theme overrides DefaultTheme when set.
	Theme *Theme
}

func (f *PrettyFormatter) theme() Theme {
	if f.Theme != nil {
		return *f.Theme
	}
	return DefaultTheme
}

// Format writes the formatted output to the buffer.
func (f *PrettyFormatter) Format(w *bytes.Buffer, r *Result) error {
	w.WriteString(f.formatHeader(r))
	w.WriteString("\n")
	w.WriteString(f.formatTable(r))
	w.WriteString(f.formatFooter(r))

	if len(r.Warnings) > 0 {
		w.WriteString("\n")
		w.WriteString(f.formatWarnings(r.Warnings))
	}
	return nil
}

// formatHeader builds the header box with function metadata.
func (f *PrettyFormatter) formatHeader(r *Result) string {
	t := f.theme()
	field := func(label, value string) string {
		return fmt.Sprintf("%s %s", t.Label.Render(label), t.Value.Render(value))
	}

	lines := []string{
		field("Source: ", r.Source),
		field("Handler:", r.HandlerFile),
		field("Root:   ", r.PackageRoot),
	}
	if r.ManifestID != "" {
		lines = append(lines, field("History:", r.ManifestID))
	}

	return t.Summary.Render(strings.Join(lines, "\n"))
}

// formatTable builds the member table: size, member name and, dimmed,
// the file the member was copied from.
func (f *PrettyFormatter) formatTable(r *Result) string {
	t := f.theme()
	if len(r.Files) == 0 {
		return t.Note.Render("  Archive is empty\n")
	}

	var sb strings.Builder
	sb.WriteString(fmt.Sprintf("  %s  %s\n", t.Heading.Render("SIZE    "), t.Heading.Render("MEMBER")))

	maxSizeWidth := 8
	for _, file := range r.Files {
		maxSizeWidth = max(maxSizeWidth, len(file.SizeHuman))
	}

	for _, file := range r.Files {
		name := t.Member.Render(file.Name)
		switch {
		case file.Entry:
			name = t.Entry.Render(file.Name) + t.Note.Render("  (entry)")
		case file.Link:
			name += t.Note.Render("  (link)") + t.Source.Render("  "+file.Source)
		default:
			name += t.Source.Render("  " + file.Source)
		}
		sb.WriteString(fmt.Sprintf("  %s  %s\n", t.Size.Render(padLeft(file.SizeHuman, maxSizeWidth)), name))
	}

	return sb.String()
}

// formatFooter builds the footer box with archive totals.
func (f *PrettyFormatter) formatFooter(r *Result) string {
	t := f.theme()
	parts := []string{
		fmt.Sprintf("%s %s", t.Label.Render("Members:"), t.Value.Render(fmt.Sprintf("%d", len(r.Files)))),
		fmt.Sprintf("%s %s", t.Label.Render("Total:"), t.Size.Render(humanBytes(r.TotalSize()))),
		fmt.Sprintf("%s %s", t.Label.Render("Archive:"), t.Size.Render(humanBytes(r.ArchiveSize))),
	}
	if r.TotalSize() > 0 {
		parts = append(parts, t.Ratio(r.Ratio()).Render(percent(r.Ratio())))
	}
	if r.Elapsed > 0 {
		parts = append(parts, t.Note.Render(formatDuration(r.Elapsed)))
	}
	parts = append(parts, t.Value.Render(r.Archive))

	return t.Totals.Render(strings.Join(parts, "  "))
}

// formatWarnings builds a warning block.
func (f *PrettyFormatter) formatWarnings(warnings []string) string {
	t := f.theme()
	var sb strings.Builder
	sb.WriteString(t.Warning.Bold(true).Render("Warnings:"))
	sb.WriteString("\n")
	for _, warning := range warnings {
		sb.WriteString(t.Warning.Render("  " + warning))
		sb.WriteString("\n")
	}
	return sb.String()
}

// padLeft pads a string with spaces on the left to achieve the desired width.
func padLeft(s string, width int) string {
	if len(s) >= width {
		return s
	}
	return strings.Repeat(" ", width-len(s)) + s
}

// formatDuration formats a duration in a human-friendly way.
func formatDuration(d time.Duration) string {
	sec := d.Seconds()
	if sec < 1 {
		return fmt.Sprintf("%.0fms", sec*1000)
	}
	if sec < 60 {
		return fmt.Sprintf("%.1fs", sec)
	}
	minutes := int(sec) / 60
	seconds := int(sec) % 60
	return fmt.Sprintf("%dm %ds", minutes, seconds)
}

// humanBytes formats a byte count with IEC units.
func humanBytes(n int64) string {
	if n < 0 {
		n = 0
	}
	return humanize.IBytes(uint64(n))
}

func init() {
	Register("pretty", func() Formatter {
		return &PrettyFormatter{}
	})
}

// Ensure PrettyFormatter implements Formatter.
var _ Formatter = (*PrettyFormatter)(nil)
