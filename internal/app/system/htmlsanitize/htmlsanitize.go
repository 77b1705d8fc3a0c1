// Package htmlsanitize cleans organizer-supplied event text before it is
// stored. Descriptions keep basic formatting; titles and locations are
// reduced to plain text.
package htmlsanitize

import (
	"html"
	"strings"
	"sync"

	"github.com/microcosm-cc/bluemonday"
)

var (
	once   sync.Once
	rich   *bluemonday.Policy
	strict *bluemonday.Policy
)

func policies() (*bluemonday.Policy, *bluemonday.Policy) {
	once.Do(func() {
		rich = bluemonday.UGCPolicy()
		rich.RequireNoFollowOnLinks(true)
		rich.AddTargetBlankToFullyQualifiedLinks(true)
		strict = bluemonday.StrictPolicy()
	})
	return rich, strict
}

// Sanitize keeps safe formatting markup and strips scripts, handlers and
// javascript: URLs.
func Sanitize(s string) string {
	if s == "" {
		return ""
	}
	p, _ := policies()
	return strings.TrimSpace(p.Sanitize(s))
}

// PlainText strips all markup and returns unescaped text, suitable for
// single-line fields such as titles.
func PlainText(s string) string {
	if s == "" {
		return ""
	}
	_, p := policies()
	return strings.TrimSpace(html.UnescapeString(p.Sanitize(s)))
}
