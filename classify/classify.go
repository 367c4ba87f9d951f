// Package classify decides whether a free-text edit request can be applied
// immediately in the preview or needs out-of-band processing against the
// page's source templates.
//
// Classification is a pure function over an enumerated pattern set; it never
// touches a document or an edit history.
package classify

import (
	"regexp"
	"strings"
)

// Class is the outcome of Classify.
type Class string

const (
	// Immediate requests map onto a single live edit (text, color, size,
	// attribute, delete).
	Immediate Class = "immediate"
	// Batch requests need structural or site-wide work and are queued.
	Batch Class = "batch"
)

// Pattern is one named rule of the pattern set.
type Pattern struct {
	Name  string
	Class Class
	Re    *regexp.Regexp
}

// Patterns is the rule set, batch rules first. The first matching rule wins.
var Patterns = []Pattern{
	{"layout", Batch, regexp.MustCompile(`(?i)\b(layout|re-?design|restructure|reorder|move .+ (above|below|to))\b|レイアウト|構成|配置|並び替え|デザイン変更`)},
	{"new_page", Batch, regexp.MustCompile(`(?i)\b(new|add(ing)?) (a )?(page|section|menu|form)\b|ページ(を)?追加|新しいページ|セクション(を)?追加`)},
	{"site_wide", Batch, regexp.MustCompile(`(?i)\b(all pages|every page|site-?wide|whole site|globally)\b|全ページ|サイト全体|すべてのページ`)},
	{"media", Batch, regexp.MustCompile(`(?i)\b(upload|replace (the )?(image|photo|logo|video))\b|画像(を)?(差し替え|変更|追加)|写真(を)?(差し替え|変更)|動画`)},

	{"text", Immediate, regexp.MustCompile(`(?i)\b(change|replace|fix|rename|reword|edit) (the )?(text|wording|title|heading|label|typo)\b|\btypo\b|文言|テキスト(を)?(変更|修正)|誤字|タイトル(を)?変更`)},
	{"color", Immediate, regexp.MustCompile(`(?i)\b(colou?r|background)\b|色(を)?(変更|変え)|背景色|文字色`)},
	{"size", Immediate, regexp.MustCompile(`(?i)\b(font[- ]?size|bigger|smaller|larger|enlarge|shrink)\b|(文字|フォント)(の)?サイズ|大きく|小さく`)},
	{"style", Immediate, regexp.MustCompile(`(?i)\b(bold|italic|underline|align|centre|center)\b|太字|斜体|下線|中央揃え`)},
	{"delete", Immediate, regexp.MustCompile(`(?i)\b(delete|remove|hide)\b|削除|消して|消す|非表示`)},
	{"attribute", Immediate, regexp.MustCompile(`(?i)\b(link|href|alt text|tooltip)\b|リンク(先)?(を)?変更|代替テキスト`)},
}

// Result carries the class and the rule that decided it.
type Result struct {
	Class   Class  `json:"class"`
	Pattern string `json:"pattern,omitempty"`
}

// Classify returns the class for text. Empty or unmatched text is Batch:
// anything the editor cannot recognise goes to a human.
func Classify(text string) Class {
	return Explain(text).Class
}

// Explain is Classify with the deciding pattern name.
func Explain(text string) Result {
	text = strings.TrimSpace(text)
	if text == "" {
		return Result{Class: Batch}
	}
	for _, p := range Patterns {
		if p.Re.MatchString(text) {
			return Result{Class: p.Class, Pattern: p.Name}
		}
	}
	return Result{Class: Batch}
}
