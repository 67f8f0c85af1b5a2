// Package slug turns arbitrary Unicode names into URL-safe ASCII slugs.
package slug

import (
	"regexp"
	"strings"
	"unicode"

	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

// MaxLength matches the slug column width.
const MaxLength = 50

var (
	nonAllowed  = regexp.MustCompile(`[^a-z0-9_-]+`)
	multiHyphen = regexp.MustCompile(`-{2,}`)
)

// From lowercases s, strips accents and replaces every run of other
// characters with a single hyphen. Names without any ASCII letters or
// digits produce an empty slug.
func From(s string) string {
	t := transform.Chain(norm.NFD, transform.RemoveFunc(isMn), norm.NFC)
	result, _, err := transform.String(t, s)
	if err != nil {
		result = s
	}

	result = strings.ToLower(result)
	result = strings.Map(func(r rune) rune {
		if unicode.IsSpace(r) {
			return '-'
		}
		return r
	}, result)

	result = nonAllowed.ReplaceAllString(result, "-")
	result = multiHyphen.ReplaceAllString(result, "-")
	result = strings.Trim(result, "-")

	if len(result) > MaxLength {
		result = strings.TrimRight(result[:MaxLength], "-")
	}
	return result
}

func isMn(r rune) bool {
	return unicode.Is(unicode.Mn, r)
}
