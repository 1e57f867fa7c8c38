package output

import (
	"bytes"
	"fmt"
	"text/tabwriter"
)

// PlainFormatter writes an unstyled member listing: one row per archive
// member with its uncompressed size and the file it was copied from,
// followed by a single totals line. Suited to logs and CI output.
type PlainFormatter struct{}

// Format writes the formatted output to the buffer.
func (f *PlainFormatter) Format(w *bytes.Buffer, r *Result) error {
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "SIZE\tMEMBER\tSOURCE")
	for _, file := range r.Files {
		fmt.Fprintf(tw, "%s\t%s\t%s\n", file.SizeHuman, file.Name, origin(file))
	}
	if err := tw.Flush(); err != nil {
		return err
	}

	_, err := fmt.Fprintf(w, "%s: %d %s, %s packed to %s (%s)\n",
		r.Archive, len(r.Files), plural(len(r.Files), "member", "members"),
		humanBytes(r.TotalSize()), humanBytes(r.ArchiveSize), percent(r.Ratio()))
	return err
}

// origin describes where a member's content came from.
func origin(file FileInfo) string {
	switch {
	case file.Entry:
		return "(generated entry)"
	case file.Link:
		return file.Source + " (link)"
	default:
		return file.Source
	}
}

func plural(n int, one, many string) string {
	if n == 1 {
		return one
	}
	return many
}

// percent renders a ratio such as 0.48 as "48%".
func percent(ratio float64) string {
	return fmt.Sprintf("%.0f%%", ratio*100)
}

func init() {
	Register("plain", func() Formatter {
		return &PlainFormatter{}
	})
}

var _ Formatter = (*PlainFormatter)(nil)
