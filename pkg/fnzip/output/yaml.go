package output

import (
	"bytes"

	"gopkg.in/yaml.v3"
)

// yamlOutput represents the full YAML output structure.
type yamlOutput struct {
	Files   []FileInfo  `yaml:"files"`
	Archive yamlArchive `yaml:"archive"`
	Meta    yamlMeta    `yaml:"meta"`
}

// yamlArchive describes the written archive in YAML output.
type yamlArchive struct {
	Path      string  `yaml:"path"`
	Size      int64   `yaml:"size"`
	SizeHuman string  `yaml:"size_human"`
	TotalSize int64   `yaml:"total_size"`
	Ratio     float64 `yaml:"ratio"`
}

// yamlMeta represents metadata in YAML output.
type yamlMeta struct {
	Source       string   `yaml:"source"`
	Handler      string   `yaml:"handler,omitempty"`
	HandlerFile  string   `yaml:"handler_file"`
	PackageRoot  string   `yaml:"package_root"`
	CommonPrefix string   `yaml:"common_prefix"`
	Elapsed      string   `yaml:"elapsed,omitempty"`
	ManifestID   string   `yaml:"manifest_id,omitempty"`
	Warnings     []string `yaml:"warnings,omitempty"`
}

// YAMLFormatter formats output as YAML.
// It produces the same structure as JSONFormatter but in YAML format.
type YAMLFormatter struct{}

// Format writes the formatted output to the buffer.
func (f *YAMLFormatter) Format(w *bytes.Buffer, r *Result) error {
	encoder := yaml.NewEncoder(w)
	encoder.SetIndent(2)
	if err := encoder.Encode(f.buildOutput(r)); err != nil {
		return err
	}
	return encoder.Close()
}

// buildOutput converts Result to the YAML output structure.
func (f *YAMLFormatter) buildOutput(r *Result) yamlOutput {
	files := r.Files
	if files == nil {
		files = []FileInfo{}
	}

	return yamlOutput{
		Files: files,
		Archive: yamlArchive{
			Path:      r.Archive,
			Size:      r.ArchiveSize,
			SizeHuman: humanBytes(r.ArchiveSize),
			TotalSize: r.TotalSize(),
			Ratio:     r.Ratio(),
		},
		Meta: yamlMeta{
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
	Register("yaml", func() Formatter {
		return &YAMLFormatter{}
	})
}

// Ensure YAMLFormatter implements Formatter.
var _ Formatter = (*YAMLFormatter)(nil)
