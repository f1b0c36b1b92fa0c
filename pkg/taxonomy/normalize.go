package taxonomy

import (
	"strings"
	"time"
	"unicode"
)

// NormalizeName normalizes a scientific name: all unicode whitespace is
// collapsed to single ASCII spaces, the string is trimmed, and the first
// word only is converted to title case. Later words keep the spelling
// the provider used, so `aus BUS` becomes `Aus BUS`.
func NormalizeName(text string) string {
	words := strings.Fields(text)
	if len(words) == 0 {
		return ""
	}
	words[0] = titleCase(words[0])
	return strings.Join(words, " ")
}

func titleCase(word string) string {
	runes := []rune(strings.ToLower(word))
	runes[0] = unicode.ToTitle(runes[0])
	return string(runes)
}

// dateTimeLayouts are the timestamp spellings providers are known to
// emit, tried in order. RFC 3339 is last because it is the documented
// convention and the earlier layouts are provider deviations from it.
var dateTimeLayouts = []string{
	"2006-01-02 15:04:05-0700",
	"2006-01-02 15:04:05-07:00",
	"2006-01-02 15:04:05.000-07:00",
	"20060102T15:04:05.000-07:00",
	"2006-01-02T15:04:05.000-07:00",
	time.RFC3339,
}

// ParseDateTime parses a provider timestamp into UTC.
func ParseDateTime(value string) (time.Time, error) {
	var firstErr error
	for _, layout := range dateTimeLayouts {
		ts, err := time.Parse(layout, value)
		if err == nil {
			return ts.UTC(), nil
		}
		if firstErr == nil {
			firstErr = err
		}
	}
	return time.Time{}, firstErr
}

// ParseDate parses a bare ISO 8601 date.
func ParseDate(value string) (time.Time, error) {
	return time.Parse("2006-01-02", strings.TrimSpace(value))
}
