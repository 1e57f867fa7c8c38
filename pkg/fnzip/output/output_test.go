package output

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v3"

	"github.com/jamesainslie/fnzip/pkg/fnzip/types"
)

func sampleResult() *Result {
	return &Result{
		Archive:      "/out/fn.zip",
		Source:       "/app/fn",
		Handler:      "index.handler",
		HandlerFile:  "/app/fn/index.js",
		PackageRoot:  "/app",
		CommonPrefix: "/app/fn",
		Files: []FileInfo{
			{Name: "index.js", Size: 42, SizeHuman: "42 B", Entry: true},
			{Name: "src/index.js", Source: "/app/fn/index.js", Size: 2048, SizeHuman: "2.0 KiB"},
			{Name: "src/lib/util.js", Source: "/app/fn/lib/util.js", Size: 1024, SizeHuman: "1.0 KiB"},
		},
		ArchiveSize: 1557,
		Elapsed:     25 * time.Millisecond,
	}
}

func TestFromResult(t *testing.T) {
	dir := t.TempDir()
	src := filepath.Join(dir, "index.js")
	require.NoError(t, os.WriteFile(src, []byte("exports.handler = 1"), 0o644))
	info, err := os.Lstat(src)
	require.NoError(t, err)

	r := FromResult(&types.Result{
		Function:     types.FunctionDescriptor{SourcePath: dir, DestPath: "/out/fn.zip", Handler: "index.handler"},
		PackageRoot:  dir,
		HandlerFile:  src,
		CommonPrefix: dir,
		Entry:        types.ZipEntry{Name: "index.js", Content: []byte("module.exports = require('./src/index.js')")},
		Files:        []types.ZipEntry{{Name: "src/index.js", Source: src, Info: info}},
		ArchiveSize:  100,
	})

	require.Len(t, r.Files, 2)
	assert.True(t, r.Files[0].Entry)
	assert.Equal(t, "index.js", r.Files[0].Name)
	assert.Equal(t, "src/index.js", r.Files[1].Name)
	assert.Equal(t, int64(19), r.Files[1].Size)
	assert.Equal(t, "-rw-r--r--", r.Files[1].Perms)
	assert.False(t, r.Files[1].Link)
	assert.Equal(t, "/out/fn.zip", r.Archive)
	assert.Equal(t, int64(42+19), r.TotalSize())
}

func TestResultRatio(t *testing.T) {
	r := sampleResult()
	assert.InDelta(t, 1557.0/3114.0, r.Ratio(), 1e-9)
	assert.Zero(t, (&Result{}).Ratio())
}

func TestRegistry(t *testing.T) {
	for _, name := range []string{"json", "jsonl", "yaml", "plain", "pretty", "paths", "sources", "template"} {
		f, err := Get(name)
		require.NoError(t, err, name)
		assert.NotNil(t, f)
	}

	_, err := Get("nope")
	assert.Error(t, err)

	r := NewRegistry()
	r.Register("b", func() Formatter { return &PathsFormatter{} })
	r.Register("a", func() Formatter { return &PathsFormatter{} })
	assert.Equal(t, []string{"a", "b"}, r.Available())
}

func TestJSONFormatter(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, (&JSONFormatter{}).Format(&buf, sampleResult()))

	var out map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &out))

	files := out["files"].([]any)
	assert.Len(t, files, 3)
	archive := out["archive"].(map[string]any)
	assert.Equal(t, "/out/fn.zip", archive["path"])
	assert.EqualValues(t, 3114, archive["total_size"])
	meta := out["meta"].(map[string]any)
	assert.Equal(t, "/app/fn/index.js", meta["handler_file"])
	assert.Equal(t, "25ms", meta["elapsed"])
}

func TestJSONFormatterEmptyFiles(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, (&JSONFormatter{}).Format(&buf, &Result{}))
	assert.Contains(t, buf.String(), `"files": []`)
}

func TestJSONLFormatter(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, (&JSONLFormatter{}).Format(&buf, sampleResult()))

	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	require.Len(t, lines, 3)
	var first FileInfo
	require.NoError(t, json.Unmarshal([]byte(lines[0]), &first))
	assert.True(t, first.Entry)
}

func TestYAMLFormatter(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, (&YAMLFormatter{}).Format(&buf, sampleResult()))

	var out yamlOutput
	require.NoError(t, yaml.Unmarshal(buf.Bytes(), &out))
	assert.Len(t, out.Files, 3)
	assert.Equal(t, "/app", out.Meta.PackageRoot)
	assert.Equal(t, int64(1557), out.Archive.Size)
}

func TestPlainFormatter(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, (&PlainFormatter{}).Format(&buf, sampleResult()))

	out := buf.String()
	lines := strings.Split(strings.TrimSpace(out), "\n")
	require.Len(t, lines, 5)
	assert.Equal(t, []string{"SIZE", "MEMBER", "SOURCE"}, strings.Fields(lines[0]))
	assert.Equal(t, []string{"42", "B", "index.js", "(generated", "entry)"}, strings.Fields(lines[1]))
	assert.Equal(t, []string{"1.0", "KiB", "src/lib/util.js", "/app/fn/lib/util.js"}, strings.Fields(lines[3]))
	assert.Equal(t, "/out/fn.zip: 3 members, 3.0 KiB packed to 1.5 KiB (50%)", lines[4])
	assert.NotContains(t, out, "\x1b[")
}

func TestPlainFormatterSingleLink(t *testing.T) {
	r := &Result{
		Archive: "/out/fn.zip",
		Files:   []FileInfo{{Name: "src/current", Source: "/app/fn/current", SizeHuman: "7 B", Size: 7, Link: true}},
	}

	var buf bytes.Buffer
	require.NoError(t, (&PlainFormatter{}).Format(&buf, r))
	assert.Contains(t, buf.String(), "/app/fn/current (link)")
	assert.Contains(t, buf.String(), "1 member,")
}

func TestPathsFormatter(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, (&PathsFormatter{}).Format(&buf, sampleResult()))
	assert.Equal(t, "index.js\nsrc/index.js\nsrc/lib/util.js\n", buf.String())
}

func TestSourcesFormatter(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, (&SourcesFormatter{}).Format(&buf, sampleResult()))
	assert.Equal(t, "/app/fn/index.js\n/app/fn/lib/util.js\n", buf.String())
}

func TestPrettyFormatter(t *testing.T) {
	r := sampleResult()
	r.Warnings = []string{"handler resolved by fallback"}
	r.ManifestID = "zip-1"

	var buf bytes.Buffer
	require.NoError(t, (&PrettyFormatter{}).Format(&buf, r))

	out := buf.String()
	for _, want := range []string{"/app/fn", "src/lib/util.js", "/app/fn/lib/util.js", "(entry)", "Members:", "50%", "Warnings:", "handler resolved by fallback", "zip-1"} {
		assert.Contains(t, out, want)
	}
}

func TestPrettyFormatterEmpty(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, (&PrettyFormatter{}).Format(&buf, &Result{}))
	assert.Contains(t, buf.String(), "Archive is empty")
}

func TestTemplateFormatter(t *testing.T) {
	f := NewTemplateFormatter(`{{len .Files}} {{bytes .TotalSize}}`)

	var buf bytes.Buffer
	require.NoError(t, f.Format(&buf, sampleResult()))
	assert.Equal(t, "3 3.0 KiB", buf.String())

	f.SetTemplate(`{{range .Files}}{{.Name}};{{end}}`)
	buf.Reset()
	require.NoError(t, f.Format(&buf, sampleResult()))
	assert.Equal(t, "index.js;src/index.js;src/lib/util.js;", buf.String())

	f.SetTemplate(`{{.Members}} {{percent .Ratio}} {{range sources .Files}}{{base .}} {{end}}`)
	buf.Reset()
	require.NoError(t, f.Format(&buf, sampleResult()))
	assert.Equal(t, "3 50% index.js util.js ", buf.String())

	f.SetTemplate(`{{.Missing`)
	assert.Error(t, f.Format(&buf, sampleResult()))
}

func TestDefaultTemplate(t *testing.T) {
	f, err := Get("template")
	require.NoError(t, err)

	var buf bytes.Buffer
	require.NoError(t, f.Format(&buf, sampleResult()))
	assert.Equal(t, "42 B\tindex.js\t(entry)\n"+
		"2.0 KiB\tsrc/index.js\t<- /app/fn/index.js\n"+
		"1.0 KiB\tsrc/lib/util.js\t<- /app/fn/lib/util.js\n"+
		"3 members, 3.0 KiB -> 1.5 KiB (50%) /out/fn.zip\n", buf.String())
}

func TestFormatDuration(t *testing.T) {
	assert.Equal(t, "25ms", formatDuration(25*time.Millisecond))
	assert.Equal(t, "1.5s", formatDuration(1500*time.Millisecond))
	assert.Equal(t, "2m 5s", formatDuration(125*time.Second))
}
