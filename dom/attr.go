package dom

import (
	"strings"
	"unicode"

	"golang.org/x/net/html"
)

// Attr returns the value of an attribute on a node.
func Attr(n *html.Node, key string) (string, bool) {
	for _, a := range n.Attr {
		if a.Namespace == "" && a.Key == key {
			return a.Val, true
		}
	}
	return "", false
}

// AttrOr returns the attribute value or "" when absent.
func AttrOr(n *html.Node, key string) string {
	v, _ := Attr(n, key)
	return v
}

// SetAttr sets key to val, creating the attribute when absent.
func SetAttr(n *html.Node, key, val string) {
	key = strings.ToLower(key)
	for i := range n.Attr {
		if n.Attr[i].Namespace == "" && n.Attr[i].Key == key {
			n.Attr[i].Val = val
			return
		}
	}
	n.Attr = append(n.Attr, html.Attribute{Key: key, Val: val})
}

// RemoveAttr deletes key from n.
func RemoveAttr(n *html.Node, key string) {
	out := n.Attr[:0]
	for _, a := range n.Attr {
		if a.Namespace == "" && a.Key == key {
			continue
		}
		out = append(out, a)
	}
	n.Attr = out
}

// Classes returns the whitespace-separated class list of n.
func Classes(n *html.Node) []string {
	return strings.Fields(AttrOr(n, "class"))
}

// Declaration is one "property: value" pair of an inline style.
type Declaration struct {
	Property string
	Value    string
}

// Style parses the inline style attribute of n, preserving declaration order.
func Style(n *html.Node) []Declaration {
	raw, ok := Attr(n, "style")
	if !ok {
		return nil
	}
	var decls []Declaration
	for _, part := range strings.Split(raw, ";") {
		prop, val, found := strings.Cut(part, ":")
		if !found {
			continue
		}
		prop = strings.ToLower(strings.TrimSpace(prop))
		val = strings.TrimSpace(val)
		if prop == "" {
			continue
		}
		decls = append(decls, Declaration{Property: prop, Value: val})
	}
	return decls
}

// StyleValue returns the inline value of a single style property.
func StyleValue(n *html.Node, prop string) string {
	prop = PropertyName(prop)
	for _, d := range Style(n) {
		if d.Property == prop {
			return d.Value
		}
	}
	return ""
}

// SetStyle sets one inline style property. An empty value removes it, the
// way assigning "" to element.style does in a browser.
func SetStyle(n *html.Node, prop, value string) {
	prop = PropertyName(prop)
	value = strings.TrimSpace(value)
	decls := Style(n)
	out := decls[:0]
	replaced := false
	for _, d := range decls {
		if d.Property == prop {
			if value == "" || replaced {
				continue
			}
			d.Value = value
			replaced = true
		}
		out = append(out, d)
	}
	if !replaced && value != "" {
		out = append(out, Declaration{Property: prop, Value: value})
	}
	writeStyle(n, out)
}

func writeStyle(n *html.Node, decls []Declaration) {
	if len(decls) == 0 {
		RemoveAttr(n, "style")
		return
	}
	parts := make([]string, len(decls))
	for i, d := range decls {
		parts[i] = d.Property + ": " + d.Value
	}
	SetAttr(n, "style", strings.Join(parts, "; ")+";")
}

// PropertyName normalises a style property to its CSS spelling, so the
// script-style "backgroundColor" and "background-color" are the same key.
func PropertyName(prop string) string {
	prop = strings.TrimSpace(prop)
	if strings.HasPrefix(prop, "--") {
		return prop
	}
	var sb strings.Builder
	for _, r := range prop {
		if unicode.IsUpper(r) {
			sb.WriteByte('-')
			sb.WriteRune(unicode.ToLower(r))
			continue
		}
		sb.WriteRune(r)
	}
	return sb.String()
}
