package edit

import (
	"fmt"

	"golang.org/x/net/html"

	"github.com/hazyhaar/liveedit/dom"
	"github.com/hazyhaar/liveedit/locator"
)

// UndoLast reverses the tail record. The record is popped before the attempt
// and pushed back if reversal fails for any reason, so a failed undo leaves
// the history exactly as it was and can be retried.
func (e *Engine) UndoLast() (res Result) {
	if e.doc == nil {
		return fail(CodeUnavailable, "no target document")
	}
	rec, found := e.pop()
	if !found {
		return fail(CodeEmptyHistory, "nothing to undo")
	}

	defer func() {
		if r := recover(); r != nil {
			e.history = append(e.history, rec)
			e.logger.Error("edit: undo panicked", "id", rec.ID, "kind", rec.Kind, "panic", r)
			res = fail(CodeMutationFailed, "undo of %s edit failed: %v", rec.Kind, r)
		}
	}()

	var err error
	if rec.Removed() {
		err = e.restoreRemoved(rec)
	} else {
		err = e.restoreNode(rec)
	}
	if err != nil {
		e.history = append(e.history, rec)
		e.logger.Warn("edit: undo failed", "id", rec.ID, "kind", rec.Kind, "error", err)
		return resultFrom(err)
	}

	e.logger.Info("edit: undone", "id", rec.ID, "kind", rec.Kind, "target", rec.Target)
	return ok(fmt.Sprintf("Undid: %s", rec.Description), rec.ID)
}

// restoreNode rebuilds the edited element from its before snapshot in place.
// Only the element's own attributes and children are rewritten, so the
// parser never re-parents anything around it.
func (e *Engine) restoreNode(rec Record) error {
	node, found := locator.Resolve(e.doc, rec.Target)
	if !found {
		return failf(CodeRestoreFailed, "edited element %q no longer exists", rec.Target)
	}
	if err := dom.RestoreElement(node, rec.Before); err != nil {
		return failf(CodeMutationFailed, "snapshot of %q is unusable: %v", rec.Target, err)
	}
	return nil
}

// restoreRemoved re-inserts a detached node under its recorded parent,
// preferring in order: before the recorded next sibling, at the recorded
// element index, as the last child.
func (e *Engine) restoreRemoved(rec Record) error {
	parent, found := locator.Resolve(e.doc, rec.Parent)
	if !found {
		return failf(CodeRestoreFailed, "parent %q of removed element no longer exists", rec.Parent)
	}
	snap, err := dom.SplitSnapshot(rec.Before)
	if err != nil {
		return failf(CodeMutationFailed, "snapshot of removed element is unusable: %v", err)
	}
	fresh, err := snap.Element(dom.ChildNamespace(parent))
	if err != nil {
		return failf(CodeMutationFailed, "snapshot of removed element is unusable: %v", err)
	}
	parent.InsertBefore(fresh, insertionPoint(e.doc, parent, rec))
	return nil
}

func insertionPoint(doc *dom.Document, parent *html.Node, rec Record) *html.Node {
	if !rec.NextSibling.IsZero() {
		if next, found := locator.Resolve(doc, rec.NextSibling); found && next.Parent == parent {
			return next
		}
	}
	if rec.Index >= 0 {
		children := dom.ElementChildren(parent)
		if rec.Index < len(children) {
			return children[rec.Index]
		}
	}
	return nil
}
