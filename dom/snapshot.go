package dom

import (
	"errors"
	"fmt"
	"strings"

	"golang.org/x/net/html"
	"golang.org/x/net/html/atom"
)

var (
	// ErrNotElement is returned when a snapshot does not start with an element.
	ErrNotElement = errors.New("dom: snapshot is not an element")
	// ErrTagMismatch is returned when a snapshot is restored onto an element
	// with a different tag.
	ErrTagMismatch = errors.New("dom: snapshot tag does not match element")
)

// Snapshot is the serialisation of one element split into its start tag and
// the markup of its children.
type Snapshot struct {
	Tag   string
	Attr  []html.Attribute
	Inner string
}

// SplitSnapshot splits markup produced by Render for a single element.
func SplitSnapshot(markup string) (Snapshot, error) {
	z := html.NewTokenizer(strings.NewReader(markup))
	tt := z.Next()
	if tt != html.StartTagToken && tt != html.SelfClosingTagToken {
		return Snapshot{}, ErrNotElement
	}
	end := len(z.Raw())
	tok := z.Token()
	s := Snapshot{Tag: tok.Data, Attr: tok.Attr}
	if tt == html.SelfClosingTagToken {
		return s, nil
	}

	inner := markup[end:]
	closing := "</" + s.Tag + ">"
	if len(inner) >= len(closing) && strings.EqualFold(inner[len(inner)-len(closing):], closing) {
		inner = inner[:len(inner)-len(closing)]
	}
	// Render doubles a leading newline in these elements.
	switch s.Tag {
	case "pre", "listing", "textarea":
		inner = strings.TrimPrefix(inner, "\n")
	}
	s.Inner = inner
	return s, nil
}

// Element builds a detached element from s in namespace ns ("" for HTML).
func (s Snapshot) Element(ns string) (*html.Node, error) {
	n := &html.Node{
		Type:      html.ElementNode,
		Data:      s.Tag,
		DataAtom:  atom.Lookup([]byte(s.Tag)),
		Namespace: ns,
		Attr:      append([]html.Attribute(nil), s.Attr...),
	}
	children, err := s.children(n)
	if err != nil {
		return nil, err
	}
	AppendChildren(n, children)
	return n, nil
}

// children parses s.Inner with n's tag as the parser context, so content the
// parser would hoist out of n in a full parse (a div inside a p, a body under
// html, cells under a row) stays where it was.
func (s Snapshot) children(n *html.Node) ([]*html.Node, error) {
	if s.Inner == "" {
		return nil, nil
	}
	context := &html.Node{
		Type:      html.ElementNode,
		Data:      n.Data,
		DataAtom:  atom.Lookup([]byte(n.Data)),
		Namespace: n.Namespace,
	}
	nodes, err := html.ParseFragment(strings.NewReader(s.Inner), context)
	if err != nil {
		return nil, fmt.Errorf("dom: parse snapshot children: %w", err)
	}
	return nodes, nil
}

// RestoreElement overwrites the attributes and children of n with the element
// serialised in markup. n keeps its place in the tree.
func RestoreElement(n *html.Node, markup string) error {
	s, err := SplitSnapshot(markup)
	if err != nil {
		return err
	}
	if n.Type != html.ElementNode || !strings.EqualFold(s.Tag, n.Data) {
		return fmt.Errorf("%w: <%s> onto <%s>", ErrTagMismatch, s.Tag, n.Data)
	}
	children, err := s.children(n)
	if err != nil {
		return err
	}
	n.Attr = restoredAttrs(n, s.Attr)
	RemoveChildren(n)
	AppendChildren(n, children)
	return nil
}

// restoredAttrs keeps the live spelling of keys the tokenizer lowercased,
// such as viewBox on svg elements.
func restoredAttrs(n *html.Node, attrs []html.Attribute) []html.Attribute {
	live := make(map[string]string, len(n.Attr))
	for _, a := range n.Attr {
		live[strings.ToLower(a.Key)] = a.Key
	}
	out := make([]html.Attribute, len(attrs))
	for i, a := range attrs {
		if key, ok := live[a.Key]; ok {
			a.Key = key
		}
		out[i] = a
	}
	return out
}

// ChildNamespace is the namespace a new element inserted under parent takes.
func ChildNamespace(parent *html.Node) string {
	if parent == nil || parent.Namespace == "" || parent.Data == "foreignObject" {
		return ""
	}
	return parent.Namespace
}
