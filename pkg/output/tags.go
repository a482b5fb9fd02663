package output

import (
	"regexp"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/oetiker/mkp-builder/pkg/output/styles"
)

// tagRe matches one innermost style tag pair. Go regexps have no
// backreferences, so matching opening and closing names is checked in
// the replacement callback.
var tagRe = regexp.MustCompile(`(?s)<([A-Za-z][A-Za-z0-9-]*)>(.*?)</([A-Za-z][A-Za-z0-9-]*)>`)

// noFormatTag wraps content that is only shown in plain text mode.
const noFormatTag = "no-format"

// ExpandTags replaces XML-like style tags with styled terminal text.
// Unknown tag names are stripped, leaving their content unstyled.
// Content inside <no-format> tags is dropped.
func ExpandTags(input string, registry map[string]lipgloss.Style) string {
	out := input
	for {
		expanded := tagRe.ReplaceAllStringFunc(out, func(match string) string {
			m := tagRe.FindStringSubmatch(match)
			if m[1] != m[3] {
				return match
			}
			if m[1] == noFormatTag {
				return ""
			}
			if style, ok := registry[m[1]]; ok {
				return style.Render(m[2])
			}
			return m[2]
		})
		if expanded == out {
			return out
		}
		out = expanded
	}
}

// StripTags removes all style tags, returning plain text. Content inside
// <no-format> tags is kept.
func StripTags(input string) string {
	out := input
	for {
		stripped := tagRe.ReplaceAllStringFunc(out, func(match string) string {
			m := tagRe.FindStringSubmatch(match)
			if m[1] != m[3] {
				return match
			}
			return m[2]
		})
		if stripped == out {
			return out
		}
		out = stripped
	}
}

// Render expands tags against the default style registry, or strips them
// in plain text mode.
func Render(input string, noColor bool) string {
	input = strings.TrimRight(input, "\n")
	if noColor {
		return StripTags(input)
	}
	return ExpandTags(input, styles.Registry)
}
