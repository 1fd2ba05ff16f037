package podscribe

import (
	"regexp"
	"strings"
	"unicode"

	"golang.org/x/text/unicode/norm"
)

var (
	nonSlugChars = regexp.MustCompile(`[^\w\s-]`)
	slugSeps     = regexp.MustCompile(`[-\s]+`)
)

// Slugify derives a URL-safe slug from a tag name: accents are folded to ASCII,
// punctuation is dropped, and runs of whitespace or dashes become a single dash.
func Slugify(name string) string {
	var b strings.Builder
	for _, r := range norm.NFKD.String(name) {
		if r > unicode.MaxASCII {
			continue
		}
		b.WriteRune(r)
	}

	s := strings.ToLower(b.String())
	s = nonSlugChars.ReplaceAllString(s, "")
	s = slugSeps.ReplaceAllString(strings.TrimSpace(s), "-")
	return strings.Trim(s, "-_")
}
