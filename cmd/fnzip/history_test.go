package main

import (
	"bytes"
	"strings"
	"testing"
	"time"

	"github.com/jamesainslie/fnzip/pkg/fnzip/manifest"
)

func TestTruncateString(t *testing.T) {
	tests := []struct {
		input  string
		maxLen int
		want   string
	}{
		{"short", 10, "short"},
		{"exactly-ten", 11, "exactly-ten"},
		{"zip-20261017-abcdef", 10, "zip-202..."},
		{"abcdef", 3, "abc"},
	}

	for _, tt := range tests {
		if got := truncateString(tt.input, tt.maxLen); got != tt.want {
			t.Errorf("truncateString(%q, %d) = %q, want %q", tt.input, tt.maxLen, got, tt.want)
		}
	}
}

func TestPrintEntry(t *testing.T) {
	entry := &manifest.Entry{
		ID:        "zip-1",
		Timestamp: time.Date(2026, 10, 17, 12, 0, 0, 0, time.UTC),
		Operation: manifest.OpZip,
		Function: manifest.Function{
			Source:      "/app/api",
			Handler:     "index.handler",
			HandlerFile: "/app/api/index.js",
			PackageRoot: "/app",
		},
		Archive: manifest.ArchiveRecord{Path: "/app/api.zip", Size: 2048, SHA256: "abc123"},
		Files: []manifest.FileRecord{
			{Name: "index.js", Size: 40},
			{Name: "src/index.js", Source: "/app/api/index.js", Size: 120},
		},
		Summary: manifest.Summary{TotalFiles: 2, TotalBytes: 160},
	}

	var buf bytes.Buffer
	printEntry(&buf, entry)
	out := buf.String()

	for _, want := range []string{"zip-1", "index.handler", "/app/api.zip", "abc123", "src/index.js"} {
		if !strings.Contains(out, want) {
			t.Errorf("printEntry output missing %q:\n%s", want, out)
		}
	}
}

func TestPrintHistory(t *testing.T) {
	entries := []manifest.Entry{
		{ID: "zip-2", Archive: manifest.ArchiveRecord{Path: "/out/b.zip"}, Summary: manifest.Summary{TotalFiles: 3}},
		{ID: "zip-1", Archive: manifest.ArchiveRecord{Path: "/out/a.zip"}, Summary: manifest.Summary{TotalFiles: 1}},
	}

	var buf bytes.Buffer
	printHistory(&buf, entries)
	out := buf.String()

	if strings.Index(out, "zip-2") > strings.Index(out, "zip-1") {
		t.Error("printHistory() does not preserve entry order")
	}
	if !strings.Contains(out, "Showing 2 entries") {
		t.Errorf("printHistory() missing summary line:\n%s", out)
	}
}
