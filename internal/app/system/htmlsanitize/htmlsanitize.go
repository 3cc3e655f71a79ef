// Package htmlsanitize cleans user-supplied rich text before it is stored.
package htmlsanitize

import (
	"html"
	"regexp"
	"strings"
	"sync"

	"github.com/microcosm-cc/bluemonday"
)

var (
	richOnce sync.Once
	rich     *bluemonday.Policy

	strictOnce sync.Once
	strict     *bluemonday.Policy
)

// richPolicy allows the formatting produced by the admin editors:
// headings, lists, tables, links, images and code.
func richPolicy() *bluemonday.Policy {
	richOnce.Do(func() {
		p := bluemonday.UGCPolicy()
		p.AllowElements("u", "s", "mark", "sub", "sup", "hr", "br")
		p.AllowAttrs("class").OnElements("table", "thead", "tbody", "tr", "th", "td", "p", "span")
		p.AllowAttrs("colspan", "rowspan").Matching(bluemonday.Integer).OnElements("td", "th")
		p.AllowStyles("width", "text-align").OnElements("table", "th", "td")
		p.RequireNoFollowOnLinks(true)
		p.AllowURLSchemes("http", "https", "mailto")
		rich = p
	})
	return rich
}

func strictPolicy() *bluemonday.Policy {
	strictOnce.Do(func() { strict = bluemonday.StrictPolicy() })
	return strict
}

// Sanitize removes scripts, event handlers, frames, forms and unsafe URLs
// while keeping formatting markup.
func Sanitize(s string) string {
	if s == "" {
		return ""
	}
	return strings.TrimSpace(richPolicy().Sanitize(s))
}

// StripTags removes all markup. Used for message text and other plain
// fields.
func StripTags(s string) string {
	if s == "" {
		return ""
	}
	return html.UnescapeString(strings.TrimSpace(strictPolicy().Sanitize(s)))
}

var tagPattern = regexp.MustCompile(`<[a-zA-Z/!][^>]*>`)

// IsPlainText reports whether s has no HTML tags.
func IsPlainText(s string) bool {
	return !tagPattern.MatchString(s)
}

// PlainTextToHTML escapes s and wraps it in a paragraph, turning newlines
// into line breaks.
func PlainTextToHTML(s string) string {
	if s == "" {
		return ""
	}
	escaped := html.EscapeString(strings.ReplaceAll(s, "\r\n", "\n"))
	return "<p>" + strings.ReplaceAll(escaped, "\n", "<br>") + "</p>"
}

// Prepare returns the stored form of a rich-text body: plain text becomes a
// paragraph, markup is sanitized.
func Prepare(s string) string {
	s = strings.TrimSpace(s)
	if s == "" {
		return ""
	}
	if IsPlainText(s) {
		return PlainTextToHTML(s)
	}
	return Sanitize(s)
}
