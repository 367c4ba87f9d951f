package dom

import "github.com/microcosm-cc/bluemonday"

// DefaultStyles are the inline style properties kept in sanitized markup.
var DefaultStyles = []string{
	"color", "background-color", "font-size", "font-weight", "font-style",
	"text-align", "text-decoration",
}

// Sanitizer cleans caller-supplied markup before it is spliced into the
// preview document. Snapshots taken from the document itself are never
// sanitized, so undo restores exactly what was there.
type Sanitizer struct {
	policy *bluemonday.Policy
}

// NewSanitizer builds a UGC policy that also keeps class attributes and the
// given style properties (DefaultStyles when none are given).
func NewSanitizer(styles ...string) *Sanitizer {
	if len(styles) == 0 {
		styles = DefaultStyles
	}
	p := bluemonday.UGCPolicy()
	p.AllowAttrs("class").Globally()
	p.AllowStyles(styles...).Globally()
	return &Sanitizer{policy: p}
}

// Sanitize returns markup with disallowed elements and attributes stripped.
func (s *Sanitizer) Sanitize(markup string) string {
	return s.policy.Sanitize(markup)
}
