package model

import (
	"regexp"
	"strings"
	"unicode"

	"github.com/google/uuid"
	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

// SKUSeparator joins the item id and the attribute slugs.
const SKUSeparator = "-"

var (
	slugStrip    = regexp.MustCompile(`[^\w\s-]`)
	slugCollapse = regexp.MustCompile(`[-\s]+`)
)

// Slugify turns an attribute value into an uppercase, filesystem-safe token:
// accents are folded to ASCII, punctuation is dropped and runs of spaces or
// hyphens become a single hyphen. "0.7" -> "07", "Dark Blue" -> "DARK-BLUE".
func Slugify(value string) string {
	t := transform.Chain(norm.NFKD, runes.Remove(runes.In(unicode.Mn)))
	folded, _, err := transform.String(t, value)
	if err != nil {
		folded = value
	}

	ascii := make([]rune, 0, len(folded))
	for _, r := range folded {
		if r < unicode.MaxASCII {
			ascii = append(ascii, r)
		}
	}

	s := slugStrip.ReplaceAllString(string(ascii), "")
	s = strings.TrimSpace(s)
	s = slugCollapse.ReplaceAllString(s, SKUSeparator)
	s = strings.Trim(s, "-_")
	return strings.ToUpper(s)
}

// ComputeSKU builds the canonical SKU of a variant from its item id and attribute
// values taken in sorted-key order. Identical input always yields the same string.
// Every attribute keeps its slot, so a value that slugs to nothing still
// separates its neighbours.
func ComputeSKU(itemID uuid.UUID, attrs Attributes) string {
	parts := make([]string, 0, len(attrs)+1)
	parts = append(parts, strings.ToUpper(itemID.String()))
	for _, key := range attrs.SortedKeys() {
		parts = append(parts, Slugify(attrs[key]))
	}
	return strings.Join(parts, SKUSeparator)
}
