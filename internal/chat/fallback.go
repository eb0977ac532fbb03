package chat

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/interaktiv/kyra-assist/internal/grounding"
)

// ContentUnavailableMessage is returned when the resolved page has no
// extractable text at all. It carries no citations.
const ContentUnavailableMessage = "I cannot access the content of this page right now, so I cannot answer questions about it. Please try again later."

const (
	maxFallbackSentences = 3
	fallbackPrefixLimit  = 400
)

var sentenceRE = regexp.MustCompile(`[^.!?]+[.!?]?`)

// leadingSentences returns up to maxFallbackSentences cleaned leading
// sentences of text. An empty result means the text did not split.
func leadingSentences(text string) []string {
	var out []string
	for _, raw := range sentenceRE.FindAllString(text, -1) {
		sentence := strings.TrimSpace(raw)
		if sentence == "" {
			continue
		}
		out = append(out, sentence)
		if len(out) >= maxFallbackSentences {
			break
		}
	}
	return out
}

// extractiveSummary renders the page text as at most three leading
// sentences in bullet form, or a prefix of the cleaned text when no
// sentence splits cleanly.
func extractiveSummary(pageText string) string {
	cleaned := grounding.CleanText(pageText)
	sentences := leadingSentences(cleaned)
	if len(sentences) == 0 {
		return grounding.Truncate(cleaned, fallbackPrefixLimit)
	}
	var b strings.Builder
	for _, sentence := range sentences {
		b.WriteString("- ")
		b.WriteString(sentence)
		b.WriteString("\n")
	}
	return strings.TrimRight(b.String(), "\n")
}

// FallbackAnswer builds the local extractive answer for a bundle when
// the gateway answer is missing or unusable. Phrasing depends on the
// request mode.
func FallbackAnswer(bundle *grounding.Bundle, query string) string {
	if bundle == nil || strings.TrimSpace(bundle.PageDoc.Text) == "" {
		return ContentUnavailableMessage
	}
	title := bundle.PageDoc.Title
	summary := extractiveSummary(bundle.PageDoc.Text)

	switch bundle.Mode {
	case grounding.ModeSummarize:
		return fmt.Sprintf("Summary of %s:\n%s", title, summary)
	case grounding.ModeSearch, grounding.ModeRelated:
		seed := bundle.Query
		if seed == "" {
			seed = query
		}
		return fmt.Sprintf(
			"I'm sorry, I could not retrieve search results for \"%s\" right now. Here is a summary of %s instead:\n%s",
			seed, title, summary)
	default:
		return fmt.Sprintf(
			"I could not get an answer to \"%s\" from the assistant right now. Here is a summary of %s instead:\n%s",
			query, title, summary)
	}
}
