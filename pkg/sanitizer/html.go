// Package sanitizer strips unsafe HTML from AI-generated article content
// before it is persisted or published.
package sanitizer

import (
	"sync"

	"github.com/microcosm-cc/bluemonday"
)

var (
	articlePolicy *bluemonday.Policy
	strictPolicy  *bluemonday.Policy
	initOnce      sync.Once
)

func initPolicies() {
	initOnce.Do(func() {
		strictPolicy = bluemonday.StrictPolicy()

		// Article bodies keep structural and formatting markup plus links;
		// scripts, event handlers, and javascript: URLs are stripped. Links
		// keep their rel attributes untouched because backlink anchors must
		// stay dofollow.
		articlePolicy = bluemonday.NewPolicy()
		articlePolicy.AllowStandardURLs()
		articlePolicy.AllowElements(
			"h1", "h2", "h3", "h4",
			"p", "br", "hr",
			"strong", "b", "em", "i",
			"ul", "ol", "li",
			"code", "pre", "blockquote",
			"img", "figure", "figcaption",
		)
		articlePolicy.AllowAttrs("href", "title").OnElements("a")
		articlePolicy.AllowAttrs("src", "alt").OnElements("img")
	})
}

// SanitizeArticleHTML cleans a generated article body, keeping headings,
// formatting, images, and anchors.
func SanitizeArticleHTML(s string) string {
	initPolicies()
	return articlePolicy.Sanitize(s)
}

// StripHTML removes all markup, returning plain text. Used for excerpts and
// notification previews.
func StripHTML(s string) string {
	initPolicies()
	return strictPolicy.Sanitize(s)
}
