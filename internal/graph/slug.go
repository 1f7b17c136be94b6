package graph

import (
	"regexp"
	"strings"
	"unicode"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"
	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

var (
	nonSlug     = regexp.MustCompile(`[^a-z0-9]+`)
	datedPrefix = regexp.MustCompile(`^(\d{4})-(\d{2})-(\d{2})-(.+)$`)
)

// Slugify lowercases s, folds accents to ASCII and joins words with dashes.
func Slugify(s string) string {
	t := transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)
	folded, _, err := transform.String(t, s)
	if err != nil {
		folded = s
	}
	return strings.Trim(nonSlug.ReplaceAllString(strings.ToLower(folded), "-"), "-")
}

// TitleFromName turns a file name like "my-first_post" into "My First Post".
func TitleFromName(name string) string {
	if m := datedPrefix.FindStringSubmatch(name); m != nil {
		name = m[4]
	}
	words := strings.Fields(strings.NewReplacer("-", " ", "_", " ").Replace(name))
	return cases.Title(language.English).String(strings.Join(words, " "))
}

// splitDatedName splits "2025-01-01-hello" into the date string and "hello".
func splitDatedName(name string) (date, rest string, ok bool) {
	m := datedPrefix.FindStringSubmatch(name)
	if m == nil {
		return "", name, false
	}
	return m[1] + "-" + m[2] + "-" + m[3], m[4], true
}
