package textutil

import (
	"regexp"
	"strings"
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

var whitespaceRegex = regexp.MustCompile(`\s+`)

// CollapseWhitespace trims s and replaces every run of whitespace with a single space.
func CollapseWhitespace(s string) string {
	return strings.TrimSpace(whitespaceRegex.ReplaceAllString(s, " "))
}

var germanLigatures = strings.NewReplacer(
	"ß", "ss",
	"ẞ", "ss",
	"æ", "ae",
	"œ", "oe",
)

// Fold lower-cases s, strips diacritics ("ü" -> "u", "ß" -> "ss") and
// collapses whitespace, producing a form suitable for substring rules.
func Fold(s string) string {
	s = strings.ToLower(s)
	s = germanLigatures.Replace(s)
	t := transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)
	folded, _, err := transform.String(t, s)
	if err != nil {
		folded = s
	}
	return CollapseWhitespace(folded)
}

// NormalizeName is Fold without any whitespace at all.
func NormalizeName(name string) string {
	return whitespaceRegex.ReplaceAllString(Fold(name), "")
}

// MatchName reports whether the normalized name contains any of the matchers.
func MatchName(name string, matchers []string) bool {
	name = NormalizeName(name)
	for _, m := range matchers {
		if strings.Contains(name, m) {
			return true
		}
	}
	return false
}
