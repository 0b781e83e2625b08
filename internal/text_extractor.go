package internal

import (
	"fmt"
	"strings"
	"unicode"
	"unicode/utf8"
)

// TruncateText caps s at max bytes without splitting a UTF-8 sequence, appending a
// marker with the number of dropped bytes. max <= 0 disables the cap.
func TruncateText(s string, max int) string {
	if max <= 0 || len(s) <= max {
		return s
	}
	cut := max
	for cut > 0 && !utf8.RuneStart(s[cut]) {
		cut--
	}
	return fmt.Sprintf("%s\n[... truncated %d chars]", s[:cut], len(s)-cut)
}

// NormalizeFreeText reduces a short answer to a comparable form: markdown emphasis and
// surrounding punctuation stripped, whitespace collapsed, lower-cased
func NormalizeFreeText(s string) string {
	s = strings.TrimSpace(s)
	s = strings.NewReplacer("**", "", "__", "", "`", "").Replace(s)
	s = strings.TrimFunc(s, func(r rune) bool {
		return unicode.IsPunct(r) || unicode.IsSpace(r) || unicode.IsSymbol(r)
	})
	return strings.ToLower(strings.Join(strings.Fields(s), " "))
}

// wordCount counts whitespace-separated words
func wordCount(s string) int {
	return len(strings.Fields(s))
}

// firstLine returns the first non-empty line of s
func firstLine(s string) string {
	for _, line := range strings.Split(s, "\n") {
		if t := strings.TrimSpace(line); t != "" {
			return t
		}
	}
	return ""
}
