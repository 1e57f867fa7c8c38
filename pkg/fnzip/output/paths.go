package output

import "bytes"

// PathsFormatter lists archive member names, one per line, the generated
// entry module first.
type PathsFormatter struct{}

// Format writes the formatted output to the buffer.
func (f *PathsFormatter) Format(w *bytes.Buffer, r *Result) error {
	for _, file := range r.Files {
		w.WriteString(file.Name)
		w.WriteByte('\n')
	}
	return nil
}

// SourcesFormatter lists the files that were copied into the archive, one
// per line. The generated entry module has no source and is left out, so
// the output can be fed to tools such as xargs or tar -T.
type SourcesFormatter struct{}

// Format writes the formatted output to the buffer.
func (f *SourcesFormatter) Format(w *bytes.Buffer, r *Result) error {
	for _, file := range r.Files {
		if file.Source == "" {
			continue
		}
		w.WriteString(file.Source)
		w.WriteByte('\n')
	}
	return nil
}

func init() {
	Register("paths", func() Formatter { return &PathsFormatter{} })
	Register("sources", func() Formatter { return &SourcesFormatter{} })
}

var (
	_ Formatter = (*PathsFormatter)(nil)
	_ Formatter = (*SourcesFormatter)(nil)
)
