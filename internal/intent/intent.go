// Package intent classifies user messages with keyword heuristics so
// trivial requests never reach the gateway. All matching is
// case-insensitive and driven by lexicon tables, so adding a language
// or phrase is a data change.
package intent

import "strings"

const smalltalkMaxLen = 40

// Lexicons are the phrase tables the classifier matches against.
type Lexicons struct {
	Greetings         []string
	ProbeWords        []string
	SiteTitlePhrases  []string
	PageTitlePhrases  []string
	SummarizeKeywords []string
}

// DefaultLexicons covers English and German.
func DefaultLexicons() Lexicons {
	return Lexicons{
		Greetings: []string{
			"hi", "hello", "hey", "hallo", "moin", "servus",
			"good morning", "good afternoon", "good evening",
			"guten morgen", "guten tag", "guten abend",
			"thanks", "thank you", "danke", "bye", "tschüss", "ciao",
			"how are you", "wie geht es dir", "wie gehts",
		},
		ProbeWords: []string{
			"what", "when", "where", "which", "who", "why", "how many",
			"was", "wann", "wo", "welche", "wer", "warum", "wie viele",
			"page", "seite", "title", "titel", "website", "site",
		},
		SiteTitlePhrases: []string{
			"title of the site", "title of this site", "name of the site",
			"site title", "website title", "what is this site called",
			"titel der website", "titel der seite?", "name der website",
			"wie heißt die website", "wie heißt diese website",
		},
		PageTitlePhrases: []string{
			"title of the page", "title of this page", "name of the page",
			"page title", "what is this page called",
			"titel dieser seite", "name dieser seite",
			"wie heißt die seite", "wie heißt diese seite",
		},
		SummarizeKeywords: []string{
			"summarize", "summarise", "summary", "sum up", "tl;dr",
			"zusammenfassen", "zusammenfassung", "fasse", "fass den",
		},
	}
}

// Classifier answers intent questions about the latest user message.
type Classifier struct {
	lex Lexicons
}

func NewClassifier(lex Lexicons) *Classifier {
	return &Classifier{lex: lex}
}

func NewDefaultClassifier() *Classifier {
	return NewClassifier(DefaultLexicons())
}

// IsSmalltalk reports whether message is a short greeting-style
// utterance: at most 40 characters, no question mark, a greeting
// lexicon match, and none of the interrogative probe words that mark
// a real question.
func (c *Classifier) IsSmalltalk(message string) bool {
	msg := normalize(message)
	if msg == "" || len(msg) > smalltalkMaxLen {
		return false
	}
	if strings.Contains(msg, "?") {
		return false
	}
	if !containsAny(msg, c.lex.Greetings) {
		return false
	}
	return !containsAny(msg, c.lex.ProbeWords)
}

// IsSiteTitleLookup reports whether message asks for the site title.
func (c *Classifier) IsSiteTitleLookup(message string) bool {
	return containsAny(normalize(message), c.lex.SiteTitlePhrases)
}

// IsPageTitleLookup reports whether message asks for the current
// page's title.
func (c *Classifier) IsPageTitleLookup(message string) bool {
	return containsAny(normalize(message), c.lex.PageTitlePhrases)
}

// WantsSummary reports whether message asks for a summary. A match
// forces summarize mode regardless of the caller-supplied mode.
func (c *Classifier) WantsSummary(message string) bool {
	return containsAny(normalize(message), c.lex.SummarizeKeywords)
}

// NeedsGroundedResponse reports whether the answer for query in mode
// must be grounded in the context documents. Summarize, search and
// related answers always are; page-mode answers are unless the query
// is smalltalk.
func (c *Classifier) NeedsGroundedResponse(query, mode string) bool {
	switch mode {
	case "summarize", "search", "related":
		return true
	case "page":
		return !c.IsSmalltalk(query)
	default:
		return false
	}
}

func normalize(message string) string {
	return strings.ToLower(strings.TrimSpace(message))
}

func containsAny(haystack string, needles []string) bool {
	for _, needle := range needles {
		if needle != "" && strings.Contains(haystack, needle) {
			return true
		}
	}
	return false
}
