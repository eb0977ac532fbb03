package chat

import (
	"strings"

	"github.com/interaktiv/kyra-assist/internal/grounding"
)

// DefaultUnusablePhrases are substrings that mark a gateway answer as
// a leaked instruction template rather than a real answer. The table
// is data so new languages and phrases need no code change.
func DefaultUnusablePhrases() []string {
	return []string{
		"please modify the text according to the instruction",
		"maintaining proper tinymce html formatting",
		"please enter your search",
		"please summarize the content of this page",
		"bitte fassen sie den inhalt zusammen",
		"{{input}}",
	}
}

// AnswerPolicy decides whether a gateway answer may be shown to the
// user.
type AnswerPolicy struct {
	unusablePhrases []string
}

func NewAnswerPolicy(phrases []string) *AnswerPolicy {
	lowered := make([]string, 0, len(phrases))
	for _, phrase := range phrases {
		phrase = strings.ToLower(strings.TrimSpace(phrase))
		if phrase != "" {
			lowered = append(lowered, phrase)
		}
	}
	return &AnswerPolicy{unusablePhrases: lowered}
}

func NewDefaultAnswerPolicy() *AnswerPolicy {
	return NewAnswerPolicy(DefaultUnusablePhrases())
}

// Unusable reports whether answer echoes a known instruction-template
// phrase.
func (p *AnswerPolicy) Unusable(answer string) bool {
	lowered := strings.ToLower(answer)
	for _, phrase := range p.unusablePhrases {
		if strings.Contains(lowered, phrase) {
			return true
		}
	}
	return false
}

// Grounded reports whether answer mentions the page by title or URL.
// A page with neither title nor URL cannot be checked and passes. This
// substring heuristic is inherited behavior and intentionally kept
// behind one function.
func Grounded(answer string, pageDoc grounding.Document) bool {
	lowered := strings.ToLower(answer)
	title := strings.ToLower(strings.TrimSpace(pageDoc.Title))
	url := strings.ToLower(strings.TrimSpace(pageDoc.URL))
	if title == "" && url == "" {
		return true
	}
	if title != "" && strings.Contains(lowered, title) {
		return true
	}
	if url != "" && strings.Contains(lowered, url) {
		return true
	}
	return false
}
