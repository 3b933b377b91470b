package render

import (
	"strings"
	"unicode/utf8"
)

// MaxMessageLength is the Telegram limit for a single text message.
const MaxMessageLength = 4096

// Split cuts text into parts of at most limit runes. A part ends before a
// code block or at a line break when one is available.
func Split(text string, limit int) []string {
	var parts []string
	for utf8.RuneCountInString(text) > limit {
		prefix := runePrefix(text, limit)

		cut := len(prefix)
		if i := strings.LastIndex(prefix, "<pre>"); i > 0 {
			cut = i
		} else if i := strings.LastIndex(prefix, "\n"); i > 0 {
			cut = i
		}

		parts = append(parts, text[:cut])
		text = strings.TrimLeft(text[cut:], "\n")
	}

	if text != "" {
		parts = append(parts, text)
	}
	return parts
}

func runePrefix(s string, n int) string {
	i := 0
	for j := range s {
		if i == n {
			return s[:j]
		}
		i++
	}
	return s
}
