// Package strutil holds the small string transforms the widget copy relies
// on: Unicode-aware case conversion and markup stripping.
package strutil

import (
	"html"

	"github.com/microcosm-cc/bluemonday"
	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

// stripPolicy removes every element and keeps the text of all of them,
// including the ones a sanitizer drops whole. AllowUnsafe only lets script
// and style text through; the policy still emits no element at all.
// Policies are safe for concurrent use once built.
var stripPolicy = bluemonday.StrictPolicy().
	AllowElementsContent(
		"script", "style", "title", "noscript", "nostyle", "iframe",
		"object", "noembed", "noframes", "frame", "frameset",
	).
	AllowUnsafe(true)

// maxStripPasses bounds how many layers of entity-encoded markup are peeled.
const maxStripPasses = 8

// LowerCase maps every character of s to its lowercase form.
func LowerCase(s string) string {
	return cases.Lower(language.Und).String(s)
}

// UpperCase maps every character of s to its uppercase form.
func UpperCase(s string) string {
	return cases.Upper(language.Und).String(s)
}

// LowerCaseIn lowercases s with the casing rules of lang (e.g. "tr" maps
// "I" to dotless "ı"). An unparsable lang falls back to LowerCase.
func LowerCaseIn(lang, s string) string {
	return cases.Lower(parseTag(lang)).String(s)
}

// UpperCaseIn uppercases s with the casing rules of lang.
func UpperCaseIn(lang, s string) string {
	return cases.Upper(parseTag(lang)).String(s)
}

func parseTag(lang string) language.Tag {
	tag, err := language.Parse(lang)
	if err != nil {
		return language.Und
	}
	return tag
}

// StripXMLTagsFromString removes every <...> delimited tag from s. Inner
// text, whitespace and punctuation around the tags are kept as is:
//
//	Click <tag>here</tag> or <a href="#">here</a>  ->  Click here or here
//
// Entities are decoded, and markup they encode is markup too: "&lt;b&gt;x"
// strips to "x". Stripping an already stripped string returns it unchanged.
func StripXMLTagsFromString(s string) string {
	if s == "" {
		return s
	}
	// The policy re-escapes text it lets through; undo that so "&" and
	// quotes come back as the characters the caller passed in. Decoding can
	// surface new tags, so repeat until nothing changes.
	out := s
	for range maxStripPasses {
		next := html.UnescapeString(stripPolicy.Sanitize(out))
		if next == out {
			break
		}
		out = next
	}
	return out
}
