// Package slug turns display labels such as color and size names into
// lowercase ASCII identifiers.
package slug

import (
	"regexp"
	"strings"
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

var nonAlnum = regexp.MustCompile(`[^a-z0-9]+`)

// Letters that carry no combining mark to strip.
var special = strings.NewReplacer("ı", "i", "ß", "ss", "æ", "ae", "ø", "o", "đ", "d", "ł", "l")

// Generate lowercases name, folds accented letters to ASCII and joins the
// remaining words with single hyphens:
//
//	"Sage Green"   -> "sage-green"
//	"Crème Brûlée" -> "creme-brulee"
//	"King / XL"    -> "king-xl"
func Generate(name string) string {
	s := strings.ToLower(strings.TrimSpace(name))
	s = special.Replace(s)

	t := transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)
	if folded, _, err := transform.String(t, s); err == nil {
		s = folded
	}

	return strings.Trim(nonAlnum.ReplaceAllString(s, "-"), "-")
}
