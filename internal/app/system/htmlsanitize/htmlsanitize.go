// Package htmlsanitize strips markup from user-supplied text.
//
// Display names and group names are plain text. They are shown to other
// members of a group, so anything that looks like HTML is removed before
// the value is stored.
package htmlsanitize

import (
	"html"
	"strings"

	"github.com/microcosm-cc/bluemonday"
)

var strict = bluemonday.StrictPolicy()

// PlainText removes all tags (and the contents of script/style elements)
// and returns the remaining text unescaped.
func PlainText(s string) string {
	if s == "" {
		return ""
	}
	return html.UnescapeString(strict.Sanitize(s))
}

// IsPlainText reports whether s contains nothing that looks like a tag.
func IsPlainText(s string) bool {
	return !strings.Contains(s, "<")
}
