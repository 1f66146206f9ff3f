package common

import "unicode/utf8"

// DefaultRawBodyLimit defines the maximum number of characters retained from a
// gateway result when attaching it to a provider response.
const DefaultRawBodyLimit = 1024

// TruncateRaw trims the supplied string to the specified rune limit. If limit
// is zero or negative it returns an empty string.
func TruncateRaw(raw string, limit int) string {
	if limit <= 0 {
		return ""
	}
	if utf8.RuneCountInString(raw) <= limit {
		return raw
	}
	return string([]rune(raw)[:limit])
}
