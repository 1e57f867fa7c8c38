package output

import (
	"bytes"
	"path"
	"sync"
	"text/template"
)

// DefaultTemplate lists each member with the file it was copied from and
// ends with the archive totals.
const DefaultTemplate = `{{range .Files}}{{.SizeHuman}}	{{.Name}}{{if .Entry}}	(entry){{else}}	<- {{.Source}}{{end}}
{{end}}{{.Members}} {{if eq .Members 1}}member{{else}}members{{end}}, {{bytes .TotalSize}} -> {{bytes .ArchiveSize}} ({{percent .Ratio}}) {{.Archive}}
`

// TemplateFormatter renders a result through a user supplied text/template.
// Besides the Result fields, templates see Members, TotalSize and Ratio,
// plus the functions bytes, percent, base and sources.
type TemplateFormatter struct {
	mu   sync.Mutex
	text string
	tmpl *template.Template
}

// templateData is what a template executes against.
type templateData struct {
	*Result
	Members   int
	TotalSize int64
	Ratio     float64
}

// NewTemplateFormatter creates a formatter for text. The template is parsed
// on first use so a bad template surfaces as a Format error.
func NewTemplateFormatter(text string) *TemplateFormatter {
	return &TemplateFormatter{text: text}
}

// SetTemplate replaces the template text.
func (f *TemplateFormatter) SetTemplate(text string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.text = text
	f.tmpl = nil
}

var templateFuncs = template.FuncMap{
	"bytes":   humanBytes,
	"percent": percent,
	"base":    path.Base,
	// sources returns the copied files of a result, entry module excluded.
	"sources": func(files []FileInfo) []string {
		out := make([]string, 0, len(files))
		for _, f := range files {
			if f.Source != "" {
				out = append(out, f.Source)
			}
		}
		return out
	},
}

// Format writes the formatted output to the buffer.
func (f *TemplateFormatter) Format(w *bytes.Buffer, r *Result) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	if f.tmpl == nil {
		tmpl, err := template.New("result").Funcs(templateFuncs).Parse(f.text)
		if err != nil {
			return err
		}
		f.tmpl = tmpl
	}

	return f.tmpl.Execute(w, templateData{
		Result:    r,
		Members:   len(r.Files),
		TotalSize: r.TotalSize(),
		Ratio:     r.Ratio(),
	})
}

func init() {
	Register("template", func() Formatter {
		return NewTemplateFormatter(DefaultTemplate)
	})
}

var _ Formatter = (*TemplateFormatter)(nil)
