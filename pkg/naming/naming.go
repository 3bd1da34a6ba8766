// Package naming derives file names for recorded episodes.
package naming

import (
	"fmt"
	"regexp"
	"strings"
	"time"
	"unicode"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"
	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

// TimestampLayout is the second-resolution stamp appended to episode names.
const TimestampLayout = "2006-01-02_15-04-05"

var whitespaceRun = regexp.MustCompile(`[\s\v\x{85}\p{Z}]+`)

// unsafeReplacer replaces characters that are not allowed in object keys or
// file names on common filesystems.
var unsafeReplacer = strings.NewReplacer(
	"/", "-",
	"\\", "-",
	":", "-",
	"*", "-",
	"?", "",
	"\"", "",
	"<", "",
	">", "",
	"|", "",
)

// Normalize lowercases title, strips diacritics and replaces each run of
// whitespace with a single underscore. Normalize(Normalize(s)) == Normalize(s).
func Normalize(title string) string {
	// Marks are removed again after lowercasing: some lowercase mappings
	// (e.g. U+0130) produce a combining dot.
	t := transform.Chain(
		norm.NFD,
		runes.Remove(runes.In(unicode.Mn)),
		cases.Lower(language.Und),
		norm.NFD,
		runes.Remove(runes.In(unicode.Mn)),
	)
	out, _, err := transform.String(t, title)
	if err != nil {
		// Only malformed UTF-8 gets here; fall back to the plain lowercase.
		out = strings.ToLower(title)
	}
	return whitespaceRun.ReplaceAllString(out, "_")
}

// SafeName normalizes title and removes characters that cannot appear in a
// path segment. An empty result becomes "untitled".
func SafeName(title string) string {
	name := strings.Trim(unsafeReplacer.Replace(Normalize(title)), "_-.")
	if name == "" {
		return "untitled"
	}
	return name
}

// EpisodeFileName builds "<safe title>_<timestamp>.<media type>". Two calls
// with the same title within the same second return the same name.
func EpisodeFileName(title, mediaType string, startedAt time.Time) string {
	ext := strings.ToLower(strings.TrimPrefix(strings.TrimSpace(mediaType), "."))
	return fmt.Sprintf("%s_%s.%s", SafeName(title), startedAt.Format(TimestampLayout), ext)
}
