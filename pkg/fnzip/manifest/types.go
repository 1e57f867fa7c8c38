// Package manifest keeps a history of packaging runs on the filesystem.
package manifest

import "time"

// OperationType represents the type of operation.
type OperationType string

const (
	// OpZip represents a packaging run.
	OpZip OperationType = "zip"
)

// Entry represents a single manifest entry.
type Entry struct {
	ID        string        `json:"id"`
	Timestamp time.Time     `json:"timestamp"`
	Operation OperationType `json:"operation"`
	Function  Function      `json:"function"`
	Archive   ArchiveRecord `json:"archive"`
	Files     []FileRecord  `json:"files"`
	Summary   Summary       `json:"summary"`
}

// Function identifies the packaged function.
type Function struct {
	Source      string `json:"source"`
	Handler     string `json:"handler,omitempty"`
	HandlerFile string `json:"handler_file"`
	PackageRoot string `json:"package_root"`
}

// ArchiveRecord describes the written archive.
type ArchiveRecord struct {
	Path   string `json:"path"`
	Size   int64  `json:"size"`
	SHA256 string `json:"sha256,omitempty"`
}

// FileRecord represents an archived file.
type FileRecord struct {
	Name    string    `json:"name"`
	Source  string    `json:"source,omitempty"`
	Size    int64     `json:"size"`
	ModTime time.Time `json:"mod_time,omitempty"`
	SHA256  string    `json:"sha256,omitempty"`
}

// Summary contains operation summary.
type Summary struct {
	TotalFiles int64         `json:"total_files"`
	TotalBytes int64         `json:"total_bytes"`
	Elapsed    time.Duration `json:"elapsed"`
}
