package output

import (
	"bytes"
	"encoding/json"
)

// jsonOutput represents the full JSON output structure.
type jsonOutput struct {
	Files   []FileInfo  `json:"files"`
	Archive jsonArchive `json:"archive"`
	Meta    jsonMeta    `json:"meta"`
}

// jsonArchive describes the written archive in JSON output.
type jsonArchive struct {
	Path      string  `json:"path"`
	Size      int64   `json:"size"`
	SizeHuman string  `json:"size_human"`
	TotalSize int64   `json:"total_size"`
	Ratio     float64 `json:"ratio"`
}

// jsonMeta represents metadata in JSON output.
type jsonMeta struct {
	Source       string   `json:"source"`
	Handler      string   `json:"handler,omitempty"`
	HandlerFile  string   `json:"handler_file"`
	PackageRoot  string   `json:"package_root"`
	CommonPrefix string   `json:"common_prefix"`
	Elapsed      string   `json:"elapsed,omitempty"`
	ManifestID   string   `json:"manifest_id,omitempty"`
	Warnings     []string `json:"warnings,omitempty"`
}

// JSONFormatter formats output as a single indented JSON object.
// It produces a complete JSON document with files, archive, and meta sections.
type JSONFormatter struct{}

// Format writes the formatted output to the buffer.
func (f *JSONFormatter) Format(w *bytes.Buffer, r *Result) error {
	encoder := json.NewEncoder(w)
	encoder.SetIndent("", "  ")
	return encoder.Encode(f.buildOutput(r))
}

// buildOutput converts Result to the JSON output structure.
func (f *JSONFormatter) buildOutput(r *Result) jsonOutput {
	files := r.Files
	if files == nil {
		files = []FileInfo{}
	}

	return jsonOutput{
		Files: files,
		Archive: jsonArchive{
			Path:      r.Archive,
			Size:      r.ArchiveSize,
			SizeHuman: humanBytes(r.ArchiveSize),
			TotalSize: r.TotalSize(),
			Ratio:     r.Ratio(),
		},
		Meta: jsonMeta{
			Source:       r.Source,
			Handler:      r.Handler,
			HandlerFile:  r.HandlerFile,
			PackageRoot:  r.PackageRoot,
			CommonPrefix: r.CommonPrefix,
			Elapsed:      formatDurationString(r.Elapsed),
			ManifestID:   r.ManifestID,
			Warnings:     r.Warnings,
		},
	}
}

func init() {
	Register("json", func() Formatter {
		return &JSONFormatter{}
	})
}

// Ensure JSONFormatter implements Formatter.
var _ Formatter = (*JSONFormatter)(nil)

// JSONLFormatter formats output as newline-delimited JSON (one object per line).
// Each archive member is written as a compact JSON object on its own line.
type JSONLFormatter struct{}

// Format writes the formatted output to the buffer.
func (f *JSONLFormatter) Format(w *bytes.Buffer, r *Result) error {
	for _, file := range r.Files {
		data, err := json.Marshal(file)
		if err != nil {
			return err
		}
		w.Write(data)
		w.WriteByte('\n')
	}
	return nil
}

func init() {
	Register("jsonl", func() Formatter {
		return &JSONLFormatter{}
	})
}

// Ensure JSONLFormatter implements Formatter.
var _ Formatter = (*JSONLFormatter)(nil)
