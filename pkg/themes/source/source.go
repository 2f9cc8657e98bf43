// Package source rewrites raw theme stylesheet text before it is compiled.
//
// Scrollbar rules are pulled out of the theme body so they can be layered on
// and off at apply time without recompiling the theme. Extraction always runs
// on comment-free text; a scrollbar rule that only exists inside a comment
// must never be picked up.
package source

import (
	"regexp"
	"strings"
)

var (
	blockComment = regexp.MustCompile(`(?s)/\*.*?\*/`)

	// The selector part stops at braces and semicolons so that a declaration
	// sitting before a nested scrollbar rule is not captured with it.
	scrollbarRule = regexp.MustCompile(`[^{};]*::-webkit-scrollbar[^{]*\{[^}]*\}`)
)

// StripComments removes every /* ... */ block comment from text.
//
// Removing a comment can join a stray "/" and "*" into a new comment opener,
// so stripping repeats until nothing changes.
func StripComments(text string) string {
	for strings.Contains(text, "/*") {
		stripped := blockComment.ReplaceAllString(text, "")
		if stripped == text {
			break
		}
		text = stripped
	}
	return text
}

// ExtractScrollbarRules strips comments from text and then moves every rule
// targeting a ::-webkit-scrollbar pseudo-element out of it. The remaining
// stylesheet is returned as content, the removed rules in source order.
func ExtractScrollbarRules(text string) (content string, rules []string) {
	return extractScrollbarRules(StripComments(text))
}

// extractScrollbarRules works on text as-is. Callers must have stripped
// comments already.
func extractScrollbarRules(text string) (string, []string) {
	var rules []string
	content := scrollbarRule.ReplaceAllStringFunc(text, func(match string) string {
		rules = append(rules, strings.TrimSpace(match))
		return ""
	})
	return content, rules
}
