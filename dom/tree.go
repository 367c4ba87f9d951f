package dom

import (
	"strings"

	"golang.org/x/net/html"
)

// InsertBefore inserts the detached nodes under parent before ref, in order.
// A nil ref appends them.
func InsertBefore(parent *html.Node, nodes []*html.Node, ref *html.Node) {
	for _, n := range nodes {
		parent.InsertBefore(n, ref)
	}
}

// AppendChildren appends the detached nodes to parent.
func AppendChildren(parent *html.Node, nodes []*html.Node) {
	InsertBefore(parent, nodes, nil)
}

// ReplaceNode swaps old for the replacement nodes at the same position.
func ReplaceNode(old *html.Node, nodes []*html.Node) {
	parent := old.Parent
	InsertBefore(parent, nodes, old)
	parent.RemoveChild(old)
}

// Remove detaches n from its parent.
func Remove(n *html.Node) {
	n.Parent.RemoveChild(n)
}

// RemoveChildren detaches every child of n.
func RemoveChildren(n *html.Node) {
	for c := n.FirstChild; c != nil; {
		next := c.NextSibling
		n.RemoveChild(c)
		c = next
	}
}

// ParentElement returns the closest element ancestor of n, or nil.
func ParentElement(n *html.Node) *html.Node {
	if n.Parent != nil && n.Parent.Type == html.ElementNode {
		return n.Parent
	}
	return nil
}

// ElementChildren returns the element children of n.
func ElementChildren(n *html.Node) []*html.Node {
	var out []*html.Node
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		if c.Type == html.ElementNode {
			out = append(out, c)
		}
	}
	return out
}

// ChildElementCount returns the number of element children of n.
func ChildElementCount(n *html.Node) int {
	count := 0
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		if c.Type == html.ElementNode {
			count++
		}
	}
	return count
}

// ElementIndex returns the zero-based position of n among its parent's
// element children, or -1 when detached.
func ElementIndex(n *html.Node) int {
	if n.Parent == nil {
		return -1
	}
	i := 0
	for c := n.Parent.FirstChild; c != nil; c = c.NextSibling {
		if c == n {
			return i
		}
		if c.Type == html.ElementNode {
			i++
		}
	}
	return -1
}

// TypeIndex returns the one-based position of n among siblings sharing its
// tag name, the value :nth-of-type expects.
func TypeIndex(n *html.Node) int {
	i := 1
	for c := n.PrevSibling; c != nil; c = c.PrevSibling {
		if c.Type == html.ElementNode && c.Data == n.Data {
			i++
		}
	}
	return i
}

// NextElementSibling returns the element immediately following n, or nil.
func NextElementSibling(n *html.Node) *html.Node {
	for c := n.NextSibling; c != nil; c = c.NextSibling {
		if c.Type == html.ElementNode {
			return c
		}
	}
	return nil
}

// DirectText concatenates the immediate text children of n, trimmed.
func DirectText(n *html.Node) string {
	var sb strings.Builder
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		if c.Type == html.TextNode {
			sb.WriteString(c.Data)
		}
	}
	return strings.TrimSpace(sb.String())
}

// TotalText concatenates every descendant text node of n, trimmed.
func TotalText(n *html.Node) string {
	var sb strings.Builder
	Walk(n, func(c *html.Node) bool {
		if c.Type == html.TextNode {
			sb.WriteString(c.Data)
		}
		return true
	})
	return strings.TrimSpace(sb.String())
}

// SetText replaces every child of n with a single text node.
func SetText(n *html.Node, text string) {
	RemoveChildren(n)
	if text != "" {
		n.AppendChild(&html.Node{Type: html.TextNode, Data: text})
	}
}

// SetInnerHTML replaces the children of n with nodes parsed from markup.
func SetInnerHTML(n *html.Node, markup string) error {
	RemoveChildren(n)
	if strings.TrimSpace(markup) == "" {
		return nil
	}
	nodes, err := ParseFragment(n, markup)
	if err != nil {
		return err
	}
	AppendChildren(n, nodes)
	return nil
}
