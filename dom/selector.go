package dom

import (
	"errors"
	"fmt"
	"strconv"
	"strings"

	"golang.org/x/net/html"
)

// ErrBadSelector is returned by Compile for selectors outside the supported grammar.
var ErrBadSelector = errors.New("dom: bad selector")

// Selector is a compiled structural query.
// Supports the subset of CSS the editor derives and accepts:
//   - tag: "p", "div", "*"
//   - #id, .class (repeatable): "div#main.card.wide"
//   - [attr], [attr=val], [attr="val"]
//   - :nth-of-type(n), :nth-child(n)
//   - descendant (whitespace) and child (">") combinators
type Selector struct {
	steps []step
}

type step struct {
	combinator byte // 0 for the leftmost step, ' ' or '>'
	compound
}

type compound struct {
	tag       string
	id        string
	classes   []string
	attrs     []attrMatch
	nthOfType int
	nthChild  int
}

type attrMatch struct {
	key    string
	val    string
	hasVal bool
}

// Compile parses sel.
func Compile(sel string) (*Selector, error) {
	p := &selParser{src: strings.TrimSpace(sel)}
	if p.src == "" {
		return nil, fmt.Errorf("%w: empty", ErrBadSelector)
	}
	var s Selector
	comb := byte(0)
	for {
		c, err := p.compound()
		if err != nil {
			return nil, fmt.Errorf("%w: %q: %v", ErrBadSelector, sel, err)
		}
		s.steps = append(s.steps, step{combinator: comb, compound: c})
		if p.done() {
			break
		}
		comb = p.combinator()
		if comb == 0 || p.done() {
			return nil, fmt.Errorf("%w: %q: dangling combinator", ErrBadSelector, sel)
		}
	}
	return &s, nil
}

// Match reports whether element n satisfies the selector.
func (s *Selector) Match(n *html.Node) bool {
	return s.matchAt(n, len(s.steps)-1)
}

func (s *Selector) matchAt(n *html.Node, i int) bool {
	st := s.steps[i]
	if !st.matches(n) {
		return false
	}
	if i == 0 {
		return true
	}
	switch st.combinator {
	case '>':
		p := ParentElement(n)
		return p != nil && s.matchAt(p, i-1)
	default:
		for p := ParentElement(n); p != nil; p = ParentElement(p) {
			if s.matchAt(p, i-1) {
				return true
			}
		}
		return false
	}
}

func (c *compound) matches(n *html.Node) bool {
	if n.Type != html.ElementNode {
		return false
	}
	if c.tag != "" && c.tag != "*" && n.Data != c.tag {
		return false
	}
	if c.id != "" && AttrOr(n, "id") != c.id {
		return false
	}
	if len(c.classes) > 0 {
		have := Classes(n)
		for _, want := range c.classes {
			if !contains(have, want) {
				return false
			}
		}
	}
	for _, a := range c.attrs {
		val, ok := Attr(n, a.key)
		if !ok || (a.hasVal && val != a.val) {
			return false
		}
	}
	if c.nthOfType > 0 && TypeIndex(n) != c.nthOfType {
		return false
	}
	if c.nthChild > 0 && ElementIndex(n)+1 != c.nthChild {
		return false
	}
	return true
}

func contains(list []string, s string) bool {
	for _, v := range list {
		if v == s {
			return true
		}
	}
	return false
}

type selParser struct {
	src string
	pos int
}

func (p *selParser) done() bool { return p.pos >= len(p.src) }

func (p *selParser) peek() byte { return p.src[p.pos] }

func (p *selParser) skipSpace() bool {
	start := p.pos
	for !p.done() && isSpace(p.peek()) {
		p.pos++
	}
	return p.pos > start
}

// combinator consumes whitespace and an optional '>' between compounds.
func (p *selParser) combinator() byte {
	sawSpace := p.skipSpace()
	if !p.done() && p.peek() == '>' {
		p.pos++
		p.skipSpace()
		return '>'
	}
	if sawSpace {
		return ' '
	}
	return 0
}

func (p *selParser) compound() (compound, error) {
	var c compound
	start := p.pos
	if !p.done() && p.peek() == '*' {
		c.tag = "*"
		p.pos++
	} else if !p.done() && isIdentByte(p.peek()) {
		c.tag = strings.ToLower(p.ident())
	}
	for !p.done() {
		switch p.peek() {
		case '#':
			p.pos++
			c.id = p.ident()
			if c.id == "" {
				return c, errors.New("empty id")
			}
		case '.':
			p.pos++
			cls := p.ident()
			if cls == "" {
				return c, errors.New("empty class")
			}
			c.classes = append(c.classes, cls)
		case '[':
			a, err := p.attr()
			if err != nil {
				return c, err
			}
			c.attrs = append(c.attrs, a)
		case ':':
			if err := p.pseudo(&c); err != nil {
				return c, err
			}
		default:
			if p.pos == start {
				return c, fmt.Errorf("unexpected %q", p.peek())
			}
			return c, nil
		}
	}
	if p.pos == start {
		return c, errors.New("empty compound")
	}
	return c, nil
}

// ident reads an identifier, honouring backslash escapes.
func (p *selParser) ident() string {
	var sb strings.Builder
	for !p.done() {
		b := p.peek()
		if b == '\\' && p.pos+1 < len(p.src) {
			sb.WriteByte(p.src[p.pos+1])
			p.pos += 2
			continue
		}
		if !isIdentByte(b) {
			break
		}
		sb.WriteByte(b)
		p.pos++
	}
	return sb.String()
}

func (p *selParser) attr() (attrMatch, error) {
	end := strings.IndexByte(p.src[p.pos:], ']')
	if end < 0 {
		return attrMatch{}, errors.New("unterminated attribute")
	}
	body := p.src[p.pos+1 : p.pos+end]
	p.pos += end + 1

	var a attrMatch
	key, val, found := strings.Cut(body, "=")
	a.key = strings.ToLower(strings.TrimSpace(key))
	if a.key == "" {
		return a, errors.New("empty attribute name")
	}
	if found {
		a.hasVal = true
		a.val = strings.Trim(strings.TrimSpace(val), `"'`)
	}
	return a, nil
}

func (p *selParser) pseudo(c *compound) error {
	p.pos++ // ':'
	name := p.ident()
	if p.done() || p.peek() != '(' {
		return fmt.Errorf("unsupported pseudo-class %q", name)
	}
	end := strings.IndexByte(p.src[p.pos:], ')')
	if end < 0 {
		return errors.New("unterminated pseudo-class")
	}
	arg := strings.TrimSpace(p.src[p.pos+1 : p.pos+end])
	p.pos += end + 1
	n, err := strconv.Atoi(arg)
	if err != nil || n < 1 {
		return fmt.Errorf("bad %s argument %q", name, arg)
	}
	switch name {
	case "nth-of-type":
		c.nthOfType = n
	case "nth-child":
		c.nthChild = n
	default:
		return fmt.Errorf("unsupported pseudo-class %q", name)
	}
	return nil
}

func isSpace(b byte) bool {
	return b == ' ' || b == '\t' || b == '\n' || b == '\r' || b == '\f'
}

func isIdentByte(b byte) bool {
	return b == '-' || b == '_' || b >= 0x80 ||
		(b >= 'a' && b <= 'z') || (b >= 'A' && b <= 'Z') || (b >= '0' && b <= '9')
}

// EscapeIdent escapes s for use as an id or class inside a selector.
func EscapeIdent(s string) string {
	var sb strings.Builder
	for i := 0; i < len(s); i++ {
		if !isIdentByte(s[i]) {
			sb.WriteByte('\\')
		}
		sb.WriteByte(s[i])
	}
	return sb.String()
}
