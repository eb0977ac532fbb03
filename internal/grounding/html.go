package grounding

import (
	"regexp"
	"strings"
	"unicode/utf8"

	"golang.org/x/net/html"
)

// Stray structural words that leak into flattened block text when a
// naive flattener walks slate values ("p", "li", "h2", ...).
var strayTokenRE = regexp.MustCompile(`(?i)\b(?:p|li|ul|ol|h[1-6])\b`)

// StripMarkup removes HTML tags and entities from value and collapses
// whitespace.
func StripMarkup(value string) string {
	if strings.TrimSpace(value) == "" {
		return ""
	}
	if !strings.ContainsAny(value, "<&") {
		return collapseWhitespace(value)
	}
	var b strings.Builder
	tokenizer := html.NewTokenizer(strings.NewReader(value))
	for {
		tt := tokenizer.Next()
		if tt == html.ErrorToken {
			break
		}
		if tt == html.TextToken {
			b.WriteString(tokenizer.Token().Data)
			b.WriteByte(' ')
		}
	}
	return collapseWhitespace(b.String())
}

// CleanText strips markup and additionally removes stray structural
// tokens left over from block flattening.
func CleanText(value string) string {
	text := StripMarkup(value)
	text = strayTokenRE.ReplaceAllString(text, " ")
	return collapseWhitespace(text)
}

func collapseWhitespace(value string) string {
	return strings.Join(strings.Fields(value), " ")
}

// Truncate cuts value to at most limit bytes without splitting a
// rune, trimming trailing whitespace and marking the cut with an
// ellipsis.
func Truncate(value string, limit int) string {
	if limit <= 0 || len(value) <= limit {
		return value
	}
	cut := limit
	for cut > 0 && !utf8.RuneStart(value[cut]) {
		cut--
	}
	return strings.TrimRight(value[:cut], " \t\n") + "..."
}
