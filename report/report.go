// Package report renders an edit history as a human-readable change log,
// either as an HTML document or as Markdown for hand-off to whoever updates
// the page's source templates.
package report

import (
	"bytes"
	"fmt"
	"html/template"
	"sort"
	"strings"
	"time"

	"github.com/JohannesKaufmann/html-to-markdown/v2/converter"
	"github.com/JohannesKaufmann/html-to-markdown/v2/plugin/base"
	"github.com/JohannesKaufmann/html-to-markdown/v2/plugin/commonmark"
	"github.com/JohannesKaufmann/html-to-markdown/v2/plugin/table"

	"github.com/hazyhaar/liveedit/edit"
)

// Options controls rendering.
type Options struct {
	Title     string         // document heading (default "Change log")
	Location  *time.Location // timestamp zone (default UTC)
	Snapshots bool           // include before/after markup
	Footer    string         // closing paragraph, e.g. deployment instructions
}

func (o *Options) defaults() {
	if o.Title == "" {
		o.Title = "Change log"
	}
	if o.Location == nil {
		o.Location = time.UTC
	}
}

type entry struct {
	N           int
	Description string
	Kind        edit.Kind
	Target      string
	Parent      string
	Status      edit.Status
	When        string
	Details     []string
	Before      string
	After       string
}

var page = template.Must(template.New("report").Parse(`<h1>{{.Title}}</h1>
{{- if not .Entries}}
<p>No changes recorded.</p>
{{- else}}
<h2>Changes</h2>
<ol>
{{- range .Entries}}
<li>
<h3>Change {{.N}}: {{.Description}}</h3>
<p><strong>Kind:</strong> {{.Kind}}</p>
<p><strong>Element:</strong> <code>{{.Target}}</code></p>
{{- if .Parent}}
<p><strong>Parent:</strong> <code>{{.Parent}}</code></p>
{{- end}}
{{- if .Details}}
<ul>
{{- range .Details}}
<li>{{.}}</li>
{{- end}}
</ul>
{{- end}}
{{- if .Before}}
<p><strong>Before:</strong></p>
<pre><code>{{.Before}}</code></pre>
<p><strong>After:</strong></p>
<pre><code>{{.After}}</code></pre>
{{- end}}
<p><strong>Status:</strong> {{.Status}}, <strong>at</strong> {{.When}}</p>
</li>
{{- end}}
</ol>
{{- end}}
{{- if .Footer}}
<p>{{.Footer}}</p>
{{- end}}
`))

// HTML renders records, oldest first, as an HTML fragment.
func HTML(records []edit.Record, opts Options) (string, error) {
	opts.defaults()
	entries := make([]entry, len(records))
	for i, r := range records {
		entries[i] = toEntry(i+1, r, opts)
	}
	var buf bytes.Buffer
	err := page.Execute(&buf, struct {
		Title   string
		Footer  string
		Entries []entry
	}{opts.Title, opts.Footer, entries})
	if err != nil {
		return "", fmt.Errorf("report: render: %w", err)
	}
	return buf.String(), nil
}

var markdown = converter.NewConverter(
	converter.WithPlugins(
		base.NewBasePlugin(),
		commonmark.NewCommonmarkPlugin(),
		table.NewTablePlugin(),
	),
)

// Markdown renders records as Markdown by converting the HTML report.
func Markdown(records []edit.Record, opts Options) (string, error) {
	h, err := HTML(records, opts)
	if err != nil {
		return "", err
	}
	md, err := markdown.ConvertString(h)
	if err != nil {
		return "", fmt.Errorf("report: markdown: %w", err)
	}
	return strings.TrimSpace(md) + "\n", nil
}

func toEntry(n int, r edit.Record, opts Options) entry {
	e := entry{
		N:           n,
		Description: r.Description,
		Kind:        r.Kind,
		Target:      string(r.Target),
		Status:      r.Status,
		When:        r.CreatedAt.In(opts.Location).Format("2006-01-02 15:04:05 MST"),
		Details:     details(r.Payload),
	}
	if r.Removed() {
		e.Parent = string(r.Parent)
	}
	if opts.Snapshots {
		e.Before, e.After = r.Before, r.After
	}
	return e
}

func details(in edit.Instruction) []string {
	var out []string
	switch in.Kind {
	case edit.KindText, edit.KindColor, edit.KindBackground, edit.KindFontSize:
		out = append(out, "New value: "+in.Value)
	case edit.KindAttribute:
		out = append(out, fmt.Sprintf("Attribute %s = %s", in.Attribute, in.Value))
	case edit.KindReplace, edit.KindInsert:
		out = append(out, "Content: "+in.Markup)
	case edit.KindDelete:
		if in.RemoveText != "" {
			out = append(out, "Removed text: "+in.RemoveText)
		}
	case edit.KindStyle:
		props := make([]string, 0, len(in.Styles))
		for p := range in.Styles {
			props = append(props, p)
		}
		sort.Strings(props)
		for _, p := range props {
			out = append(out, p+": "+in.Styles[p])
		}
	}
	return out
}
