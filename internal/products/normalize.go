package product

import (
	"strings"
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

var diacriticStripper = transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)

// NormalizeName folds a product name for accent-insensitive search.
// "Bajo Eléctrico" and "bajo electrico" normalize to the same value.
func NormalizeName(name string) string {
	folded := strings.ToLower(strings.TrimSpace(name))
	stripped, _, err := transform.String(diacriticStripper, folded)
	if err != nil {
		return folded
	}
	return stripped
}
