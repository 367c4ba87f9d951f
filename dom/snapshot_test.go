package dom

import (
	"errors"
	"testing"
)

func mustParse(t *testing.T, page string) *Document {
	t.Helper()
	doc, err := ParseString(page)
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	return doc
}

func TestSplitSnapshot(t *testing.T) {
	s, err := SplitSnapshot(`<p id="a" class="x y">Hello <b>there</b></p>`)
	if err != nil {
		t.Fatal(err)
	}
	if s.Tag != "p" || s.Inner != "Hello <b>there</b>" {
		t.Errorf("split = %+v", s)
	}
	if len(s.Attr) != 2 || s.Attr[0].Key != "id" || s.Attr[1].Val != "x y" {
		t.Errorf("attrs = %+v", s.Attr)
	}

	s, err = SplitSnapshot(`<img src="a.png">`)
	if err != nil {
		t.Fatal(err)
	}
	if s.Tag != "img" || s.Inner != "" || len(s.Attr) != 1 {
		t.Errorf("void split = %+v", s)
	}

	if _, err := SplitSnapshot("just text"); !errors.Is(err, ErrNotElement) {
		t.Errorf("text snapshot: err = %v", err)
	}
}

func TestRestoreElement_Body(t *testing.T) {
	doc := mustParse(t, `<html><head><title>t</title></head><body>Hello</body></html>`)
	before := doc.Render()
	body := doc.Body()
	snap := Render(body)

	SetText(body, "Hi")
	SetStyle(body, "background-color", "red")
	if err := RestoreElement(body, snap); err != nil {
		t.Fatal(err)
	}
	if got := doc.Render(); got != before {
		t.Errorf("got  %s\nwant %s", got, before)
	}
	if n := len(doc.QueryAll("head")); n != 1 {
		t.Errorf("document has %d head elements", n)
	}
}

func TestRestoreElement_Root(t *testing.T) {
	doc := mustParse(t, `<html lang="en"><head><title>t</title></head><body><p>x</p></body></html>`)
	before := doc.Render()
	root := doc.Query("html")
	snap := Render(root)

	SetAttr(root, "lang", "fr")
	RemoveChildren(doc.Body())
	if err := RestoreElement(root, snap); err != nil {
		t.Fatal(err)
	}
	if got := doc.Render(); got != before {
		t.Errorf("got  %s\nwant %s", got, before)
	}
}

func TestRestoreElement_ChildrenTheParserWouldHoist(t *testing.T) {
	doc := mustParse(t, `<div id="w"><p id="a">Hello</p></div>`)
	p := doc.Query("#a")
	nodes, err := ParseFragment(p, "<div>x</div>")
	if err != nil {
		t.Fatal(err)
	}
	AppendChildren(p, nodes)
	snap := Render(p)
	if snap != `<p id="a">Hello<div>x</div></p>` {
		t.Fatalf("setup: %s", snap)
	}

	SetStyle(p, "color", "red")
	if err := RestoreElement(p, snap); err != nil {
		t.Fatal(err)
	}
	if got := Render(doc.Query("#w")); got != `<div id="w"><p id="a">Hello<div>x</div></p></div>` {
		t.Errorf("got %s", got)
	}
}

func TestRestoreElement_TableParts(t *testing.T) {
	doc := mustParse(t, `<table><tbody><tr id="r"><td id="c">1</td><td>2</td></tr></tbody></table>`)
	before := doc.Render()

	for _, sel := range []string{"#r", "#c"} {
		n := doc.Query(sel)
		snap := Render(n)
		SetAttr(n, "class", "hot")
		SetText(n, "gone")
		if err := RestoreElement(n, snap); err != nil {
			t.Fatalf("%s: %v", sel, err)
		}
		if got := doc.Render(); got != before {
			t.Errorf("%s:\n got %s\nwant %s", sel, got, before)
		}
	}
}

func TestRestoreElement_PreLeadingNewline(t *testing.T) {
	doc := mustParse(t, "<pre id=\"p\">\n\nx</pre>")
	pre := doc.Query("#p")
	snap := Render(pre)
	SetText(pre, "y")
	if err := RestoreElement(pre, snap); err != nil {
		t.Fatal(err)
	}
	if got := Render(pre); got != snap {
		t.Errorf("got %q, want %q", got, snap)
	}
}

func TestRestoreElement_TagMismatch(t *testing.T) {
	doc := mustParse(t, `<p id="a">x</p>`)
	p := doc.Query("#a")
	err := RestoreElement(p, `<div id="a">y</div>`)
	if !errors.Is(err, ErrTagMismatch) {
		t.Fatalf("err = %v", err)
	}
	if got := Render(p); got != `<p id="a">x</p>` {
		t.Errorf("failed restore changed the element: %s", got)
	}
}

func TestSnapshotElement(t *testing.T) {
	s, err := SplitSnapshot(`<tr class="row"><td>1</td><td><b>2</b></td></tr>`)
	if err != nil {
		t.Fatal(err)
	}
	n, err := s.Element("")
	if err != nil {
		t.Fatal(err)
	}
	if n.Parent != nil {
		t.Error("element should be detached")
	}
	if got := Render(n); got != `<tr class="row"><td>1</td><td><b>2</b></td></tr>` {
		t.Errorf("got %s", got)
	}
}

func TestChildNamespace(t *testing.T) {
	doc := mustParse(t, `<svg id="s"><circle r="1"></circle></svg>`)
	if ns := ChildNamespace(doc.Query("#s")); ns != "svg" {
		t.Errorf("under svg = %q", ns)
	}
	if ns := ChildNamespace(doc.Body()); ns != "" {
		t.Errorf("under body = %q", ns)
	}
}
