// Package county joins case counts, population estimates and county
// boundaries into choropleth-ready features.
package county

import (
	"strings"
	"unicode"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

var suffixes = []string{" county", " parish", " borough", " census area", " municipality"}

// NormalizeName reduces a county name to its join key: lower-case, without a
// trailing "County"/"Parish" style suffix, punctuation other than hyphens
// removed and whitespace collapsed. "St. Louis County" becomes "st louis".
func NormalizeName(name string) string {
	s := cases.Lower(language.Und).String(strings.TrimSpace(name))
	for _, suf := range suffixes {
		if strings.HasSuffix(s, suf) && len(s) > len(suf) {
			s = strings.TrimSuffix(s, suf)
			break
		}
	}
	s = strings.Map(func(r rune) rune {
		if r != '-' && (unicode.IsPunct(r) || unicode.IsSymbol(r)) {
			return -1
		}
		return r
	}, s)
	return strings.Join(strings.Fields(s), " ")
}

// DisplayName title-cases a join key for labels when no source name is known.
func DisplayName(key string) string {
	return cases.Title(language.English).String(key)
}
