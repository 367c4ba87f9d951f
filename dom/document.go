// Package dom is the Target Document handle: a mutable HTML tree parsed with
// golang.org/x/net/html plus the structural query, fragment parsing and tree
// mutation primitives the edit engine needs.
//
// The tree is owned by the host. Nothing in this package keeps node references
// between calls; callers re-query by selector at the start of every operation.
package dom

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"strings"

	"golang.org/x/net/html"
	"golang.org/x/net/html/atom"
)

// ErrEmptyFragment is returned when serialized markup parses into no nodes.
var ErrEmptyFragment = errors.New("dom: fragment parsed into no nodes")

// Document wraps the root of a parsed HTML tree.
type Document struct {
	root *html.Node
}

// Parse reads a complete HTML document.
func Parse(r io.Reader) (*Document, error) {
	root, err := html.Parse(r)
	if err != nil {
		return nil, fmt.Errorf("dom: parse: %w", err)
	}
	return &Document{root: root}, nil
}

// ParseString is Parse over a string.
func ParseString(s string) (*Document, error) {
	return Parse(strings.NewReader(s))
}

// Root returns the document node.
func (d *Document) Root() *html.Node { return d.root }

// Render serialises the whole document.
func (d *Document) Render() string {
	return Render(d.root)
}

// Body returns the <body> element, or nil.
func (d *Document) Body() *html.Node {
	var body *html.Node
	Walk(d.root, func(n *html.Node) bool {
		if n.Type == html.ElementNode && n.DataAtom == atom.Body {
			body = n
			return false
		}
		return true
	})
	return body
}

// Query returns the first element in tree order matching sel, or nil.
// A malformed selector matches nothing.
func (d *Document) Query(sel string) *html.Node {
	s, err := Compile(sel)
	if err != nil {
		return nil
	}
	var found *html.Node
	Walk(d.root, func(n *html.Node) bool {
		if s.Match(n) {
			found = n
			return false
		}
		return true
	})
	return found
}

// QueryAll returns every element matching sel in tree order.
func (d *Document) QueryAll(sel string) []*html.Node {
	s, err := Compile(sel)
	if err != nil {
		return nil
	}
	var out []*html.Node
	Walk(d.root, func(n *html.Node) bool {
		if s.Match(n) {
			out = append(out, n)
		}
		return true
	})
	return out
}

// Contains reports whether n is still attached under the document root.
func (d *Document) Contains(n *html.Node) bool {
	for p := n; p != nil; p = p.Parent {
		if p == d.root {
			return true
		}
	}
	return false
}

// ParseFragment builds fresh, detached nodes from serialized markup. The
// context element decides the parser's insertion mode (a <td> snapshot needs a
// <tr> context to survive parsing); nil or a non-element parses as <body>.
func ParseFragment(context *html.Node, markup string) ([]*html.Node, error) {
	if context != nil && context.Type != html.ElementNode {
		context = nil
	}
	if context == nil {
		context = &html.Node{Type: html.ElementNode, Data: "body", DataAtom: atom.Body}
	}
	nodes, err := html.ParseFragment(strings.NewReader(markup), context)
	if err != nil {
		return nil, fmt.Errorf("dom: parse fragment: %w", err)
	}
	if len(nodes) == 0 {
		return nil, ErrEmptyFragment
	}
	return nodes, nil
}

// Walk visits n and its descendants in tree order until fn returns false.
func Walk(n *html.Node, fn func(*html.Node) bool) bool {
	if !fn(n) {
		return false
	}
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		if !Walk(c, fn) {
			return false
		}
	}
	return true
}

// Render serialises an HTML node subtree back to a string.
func Render(n *html.Node) string {
	var buf bytes.Buffer
	html.Render(&buf, n)
	return buf.String()
}

// RenderChildren serialises the children of n (its inner HTML).
func RenderChildren(n *html.Node) string {
	var buf bytes.Buffer
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		html.Render(&buf, c)
	}
	return buf.String()
}
