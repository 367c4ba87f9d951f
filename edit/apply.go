package edit

import (
	"fmt"
	"sort"
	"strings"

	"golang.org/x/net/html"

	"github.com/hazyhaar/liveedit/dom"
	"github.com/hazyhaar/liveedit/locator"
)

// Apply resolves the instruction's locator, mutates the node and appends a
// Record. On failure nothing is recorded. KindUndo is routed to UndoLast.
func (e *Engine) Apply(in Instruction) (res Result) {
	if e.doc == nil {
		return fail(CodeUnavailable, "no target document")
	}
	if in.Kind == KindUndo {
		return e.UndoLast()
	}
	if !in.Kind.valid() {
		e.logger.Warn("edit: unsupported kind", "kind", in.Kind)
		return fail(CodeUnsupported, "unsupported edit kind %q", in.Kind)
	}

	node, found := locator.Resolve(e.doc, in.Locator)
	if !found {
		e.logger.Debug("edit: locator not found", "kind", in.Kind, "locator", in.Locator)
		return fail(CodeNotFound, "no element matches %q", in.Locator)
	}

	defer func() {
		if r := recover(); r != nil {
			e.logger.Error("edit: apply panicked", "kind", in.Kind, "locator", in.Locator, "panic", r)
			res = fail(CodeMutationFailed, "%s edit on %q failed: %v", in.Kind, in.Locator, r)
		}
	}()

	rec, err := e.mutate(node, in)
	if err != nil {
		res = resultFrom(err)
		e.logger.Debug("edit: apply failed", "kind", in.Kind, "locator", in.Locator, "error", err)
		return res
	}

	e.push(rec)
	e.logger.Info("edit: applied", "id", rec.ID, "kind", rec.Kind, "target", rec.Target)
	return ok(rec.Description, rec.ID)
}

// mutate performs the edit and builds its record. The before snapshot is
// taken ahead of any change, which is the only moment it exists for a node
// about to be detached.
func (e *Engine) mutate(node *html.Node, in Instruction) (Record, error) {
	rec := Record{
		ID:        e.newID(),
		CreatedAt: e.now().UTC(),
		Kind:      in.Kind,
		Before:    dom.Render(node),
		Index:     -1,
		Status:    StatusApplied,
		Payload:   in,
	}
	label := describeNode(node)

	switch in.Kind {
	case KindText:
		dom.SetText(node, in.Value)
		rec.Description = fmt.Sprintf("Changed text of %s to %q", label, in.Value)

	case KindColor:
		dom.SetStyle(node, "color", in.Value)
		rec.Description = fmt.Sprintf("Set color of %s to %s", label, in.Value)

	case KindBackground:
		dom.SetStyle(node, "background-color", in.Value)
		rec.Description = fmt.Sprintf("Set background of %s to %s", label, in.Value)

	case KindFontSize:
		dom.SetStyle(node, "font-size", in.Value)
		rec.Description = fmt.Sprintf("Set font size of %s to %s", label, in.Value)

	case KindStyle:
		props := make([]string, 0, len(in.Styles))
		for p := range in.Styles {
			props = append(props, p)
		}
		sort.Strings(props)
		parts := make([]string, 0, len(props))
		for _, p := range props {
			dom.SetStyle(node, p, in.Styles[p])
			parts = append(parts, dom.PropertyName(p)+": "+in.Styles[p])
		}
		if len(parts) == 0 {
			rec.Description = fmt.Sprintf("Applied no style changes to %s", label)
		} else {
			rec.Description = fmt.Sprintf("Applied styles to %s (%s)", label, strings.Join(parts, "; "))
		}

	case KindAttribute:
		name := strings.TrimSpace(in.Attribute)
		if name == "" {
			return Record{}, failf(CodeMutationFailed, "attribute edit on %s has no attribute name", label)
		}
		dom.SetAttr(node, name, in.Value)
		rec.Description = fmt.Sprintf("Set attribute %s of %s to %q", name, label, in.Value)

	case KindReplace:
		if err := dom.SetInnerHTML(node, e.sanitizer.Sanitize(in.Markup)); err != nil {
			return Record{}, failf(CodeMutationFailed, "replace on %s: %v", label, err)
		}
		rec.Description = fmt.Sprintf("Replaced content of %s", label)

	case KindInsert:
		markup := e.sanitizer.Sanitize(in.Markup)
		if strings.TrimSpace(markup) == "" {
			return Record{}, failf(CodeMutationFailed, "insert on %s has no content", label)
		}
		nodes, err := dom.ParseFragment(node, markup)
		if err != nil {
			return Record{}, failf(CodeMutationFailed, "insert on %s: %v", label, err)
		}
		dom.AppendChildren(node, nodes)
		rec.Description = fmt.Sprintf("Inserted content into %s", label)

	case KindDelete:
		if in.RemoveText != "" {
			return e.deleteText(node, rec, in.RemoveText, label)
		}
		return e.detach(node, rec, label)

	default:
		return Record{}, failf(CodeUnsupported, "unsupported edit kind %q", in.Kind)
	}

	rec.Target = locator.Derive(e.doc, node)
	rec.After = dom.Render(node)
	return rec, nil
}

// deleteText removes the first occurrence of sub from the node's text.
func (e *Engine) deleteText(node *html.Node, rec Record, sub, label string) (Record, error) {
	text := dom.TotalText(node)
	i := strings.Index(text, sub)
	if i < 0 {
		return Record{}, failf(CodeNotFound, "text %q not found in %s", sub, label)
	}
	dom.SetText(node, strings.TrimSpace(text[:i]+text[i+len(sub):]))
	rec.Target = locator.Derive(e.doc, node)
	rec.After = dom.Render(node)
	rec.Description = fmt.Sprintf("Deleted %q from %s", sub, label)
	return rec, nil
}

// detach removes the node from the tree, recording where it was. The parent,
// target and index are captured against the tree as it stands; the next
// sibling's locator is derived once the node is gone, so a positional
// locator for it is valid in the tree undo will see.
func (e *Engine) detach(node *html.Node, rec Record, label string) (Record, error) {
	parent := node.Parent
	if parent == nil || parent.Type != html.ElementNode {
		return Record{}, failf(CodeMutationFailed, "cannot remove %s: no parent element", label)
	}
	rec.Parent = locator.Derive(e.doc, parent)
	if rec.Parent == "" {
		return Record{}, failf(CodeMutationFailed, "cannot remove %s: parent has no locator", label)
	}
	rec.Target = locator.Derive(e.doc, node)
	rec.Index = dom.ElementIndex(node)
	next := dom.NextElementSibling(node)

	dom.Remove(node)

	if next != nil {
		rec.NextSibling = locator.Derive(e.doc, next)
	}
	rec.After = Tombstone
	rec.Description = fmt.Sprintf("Removed %s", label)
	return rec, nil
}

// describeNode renders a short human label such as p#intro or div.card.
func describeNode(n *html.Node) string {
	label := n.Data
	if id := dom.AttrOr(n, "id"); id != "" {
		return label + "#" + id
	}
	if classes := dom.Classes(n); len(classes) > 0 {
		label += "." + strings.Join(classes, ".")
	}
	return label
}
