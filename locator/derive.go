package locator

import (
	"strconv"
	"strings"

	"golang.org/x/net/html"

	"github.com/hazyhaar/liveedit/dom"
)

// Derive returns the canonical structural locator for n within doc. Both the
// history recorder and undo go through this function, so a locator written
// into a record is always one the resolver agrees with.
//
// Preference order:
//  1. tag#id, when the id resolves to n
//  2. tag.class1.class2, when the first match is n
//  3. a child-combinator path from the nearest uniquely-identified ancestor
//     (or the html element), one tag:nth-of-type(k) step per level
//
// Derive returns "" for nil, non-element or detached nodes.
func Derive(doc *dom.Document, n *html.Node) Locator {
	if doc == nil || n == nil || n.Type != html.ElementNode || !doc.Contains(n) {
		return ""
	}
	if sel := idSelector(doc, n); sel != "" {
		return Locator(sel)
	}
	if classes := dom.Classes(n); len(classes) > 0 {
		sel := n.Data + classSuffix(classes)
		if doc.Query(sel) == n {
			return Locator(sel)
		}
	}
	return Locator(pathSelector(doc, n))
}

// idSelector returns tag#id when that selector's first match is n.
func idSelector(doc *dom.Document, n *html.Node) string {
	id := dom.AttrOr(n, "id")
	if strings.TrimSpace(id) == "" {
		return ""
	}
	sel := n.Data + "#" + dom.EscapeIdent(id)
	if doc.Query(sel) != n {
		return ""
	}
	return sel
}

func classSuffix(classes []string) string {
	var sb strings.Builder
	for _, c := range classes {
		sb.WriteByte('.')
		sb.WriteString(dom.EscapeIdent(c))
	}
	return sb.String()
}

func pathSelector(doc *dom.Document, n *html.Node) string {
	var steps []string
	for cur := n; cur != nil; cur = dom.ParentElement(cur) {
		if cur != n {
			if sel := idSelector(doc, cur); sel != "" {
				steps = append(steps, sel)
				break
			}
		}
		if dom.ParentElement(cur) == nil {
			steps = append(steps, cur.Data)
			break
		}
		steps = append(steps, cur.Data+":nth-of-type("+strconv.Itoa(dom.TypeIndex(cur))+")")
	}
	for i, j := 0, len(steps)-1; i < j; i, j = i+1, j-1 {
		steps[i], steps[j] = steps[j], steps[i]
	}
	return strings.Join(steps, " > ")
}
