// Package locator resolves serialized node references against a dom.Document
// and derives re-resolvable references for nodes.
//
// Two kinds of locator exist:
//
//	p#intro.lead > span:nth-of-type(2)   structural: a selector query
//	text:Contact us                      fingerprint: literal text content
//
// Resolution never mutates the tree, and a locator that matches nothing is a
// normal outcome reported through the boolean result.
package locator

import (
	"strings"

	"golang.org/x/net/html"

	"github.com/hazyhaar/liveedit/dom"
)

// FingerprintPrefix tags a content-fingerprint locator.
const FingerprintPrefix = "text:"

// Kind tells how a locator is resolved.
type Kind int

const (
	Structural Kind = iota
	Fingerprint
)

func (k Kind) String() string {
	if k == Fingerprint {
		return "fingerprint"
	}
	return "structural"
}

// Locator is a serialized reference to a node.
type Locator string

// Text builds a content-fingerprint locator.
func Text(s string) Locator {
	return Locator(FingerprintPrefix + s)
}

// Kind reports the locator kind.
func (l Locator) Kind() Kind {
	if strings.HasPrefix(string(l), FingerprintPrefix) {
		return Fingerprint
	}
	return Structural
}

// Fingerprint returns the trimmed literal text of a fingerprint locator.
func (l Locator) Fingerprint() string {
	return strings.TrimSpace(strings.TrimPrefix(string(l), FingerprintPrefix))
}

func (l Locator) String() string { return string(l) }

// IsZero reports an empty locator.
func (l Locator) IsZero() bool { return strings.TrimSpace(string(l)) == "" }

// Resolve finds the node l refers to.
func Resolve(doc *dom.Document, l Locator) (*html.Node, bool) {
	if doc == nil || l.IsZero() {
		return nil, false
	}
	if l.Kind() == Fingerprint {
		return resolveText(doc, l.Fingerprint())
	}
	n := doc.Query(string(l))
	return n, n != nil
}

const (
	exactBase   = 1000
	partialBase = 100
)

// resolveText scans every element for the fingerprint. An exact match on the
// direct or total text always beats a partial match on the direct text; within
// a tier fewer child elements scores higher, and the first node seen in tree
// order keeps a tie.
func resolveText(doc *dom.Document, fp string) (*html.Node, bool) {
	if fp == "" {
		return nil, false
	}
	var (
		best      *html.Node
		bestExact bool
		bestScore int
	)
	dom.Walk(doc.Root(), func(n *html.Node) bool {
		if n.Type != html.ElementNode {
			return true
		}
		direct := dom.DirectText(n)
		children := dom.ChildElementCount(n)

		var exact bool
		var score int
		switch {
		case direct == fp || dom.TotalText(n) == fp:
			exact, score = true, exactBase-children
		case strings.Contains(direct, fp):
			score = partialBase - children
		default:
			return true
		}

		if best == nil || (exact && !bestExact) || (exact == bestExact && score > bestScore) {
			best, bestExact, bestScore = n, exact, score
		}
		return true
	})
	return best, best != nil
}
