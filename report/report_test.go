package report

import (
	"strings"
	"testing"
	"time"

	"github.com/hazyhaar/liveedit/dom"
	"github.com/hazyhaar/liveedit/edit"
	"github.com/hazyhaar/liveedit/idgen"
)

func history(t *testing.T) []edit.Record {
	t.Helper()
	doc, err := dom.ParseString(`<p id="a">Hello</p><div id="x"><span>A</span><span>B</span></div>`)
	if err != nil {
		t.Fatal(err)
	}
	at := time.Date(2026, 3, 4, 5, 6, 7, 0, time.UTC)
	e := edit.New(doc,
		edit.WithIDGenerator(idgen.Sequence("mod_")),
		edit.WithClock(func() time.Time { return at }),
	)
	for _, in := range []edit.Instruction{
		{Kind: edit.KindText, Locator: "#a", Value: "Hi <there>"},
		{Kind: edit.KindStyle, Locator: "#a", Styles: map[string]string{"color": "red", "font-size": "2em"}},
		{Kind: edit.KindDelete, Locator: "#x > span:nth-of-type(1)"},
	} {
		if res := e.Apply(in); !res.Success {
			t.Fatalf("apply %s: %+v", in.Kind, res)
		}
	}
	return e.History()
}

func TestHTML(t *testing.T) {
	out, err := HTML(history(t), Options{Snapshots: true, Footer: "Apply these to the templates."})
	if err != nil {
		t.Fatal(err)
	}
	for _, want := range []string{
		"<h1>Change log</h1>",
		"<h3>Change 1: Changed text of p#a to &#34;Hi &lt;there&gt;&#34;</h3>",
		"<code>p#a</code>",
		"<li>color: red</li>",
		"<li>font-size: 2em</li>",
		"<strong>Parent:</strong> <code>div#x</code>",
		"&lt;p id=&#34;a&#34;&gt;Hello&lt;/p&gt;",
		"2026-03-04 05:06:07 UTC",
		"Apply these to the templates.",
	} {
		if !strings.Contains(out, want) {
			t.Errorf("HTML report missing %q\n%s", want, out)
		}
	}
	if strings.Contains(out, "<there>") {
		t.Error("payload text must be escaped")
	}
}

func TestHTML_Empty(t *testing.T) {
	out, err := HTML(nil, Options{Title: "Fixes"})
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(out, "<h1>Fixes</h1>") || !strings.Contains(out, "No changes recorded.") {
		t.Errorf("unexpected empty report: %s", out)
	}
}

func TestHTML_NoSnapshotsByDefault(t *testing.T) {
	out, err := HTML(history(t), Options{})
	if err != nil {
		t.Fatal(err)
	}
	if strings.Contains(out, "<pre>") {
		t.Error("snapshots rendered without Options.Snapshots")
	}
}

func TestMarkdown(t *testing.T) {
	md, err := Markdown(history(t), Options{})
	if err != nil {
		t.Fatal(err)
	}
	for _, want := range []string{"# Change log", "`p#a`", "`div#x`", "Change 3"} {
		if !strings.Contains(md, want) {
			t.Errorf("markdown missing %q\n%s", want, md)
		}
	}
	if strings.Contains(md, "<h1>") {
		t.Error("markdown still contains HTML tags")
	}
}
