package actions

import (
	"regexp"
	"strings"
)

// Local keyword/regex extraction, used when the gateway yields no
// plan. Patterns cover English and German editor phrasing.
var (
	labelTitleRE       = regexp.MustCompile(`(?i)(?:title|titel)\s*(?:to|auf)?\s+(.+?)(?:\s+and\b|$)`)
	labelTitleColonRE  = regexp.MustCompile(`(?i)(?:title|titel)\s*:\s*([^\n]+)`)
	labelDescRE        = regexp.MustCompile(`(?i)(?:description|beschreibung)\s*(?:to|auf)?\s+(.+?)(?:\s+and\b|$)`)
	labelDescColonRE   = regexp.MustCompile(`(?i)(?:description|beschreibung)\s*:\s*([^\n]+)`)
	textBlockRE        = regexp.MustCompile(`(?i)(?:text block|textblock)\s*[:\-]?\s+(.+)$`)
	textBlockAddRE     = regexp.MustCompile(`(?i)(?:add|insert|fuege|füge).*?(?:text block|textblock)\s*[:\-]?\s+(.+)$`)
	headingPatternRE   = regexp.MustCompile(`(?i)(?:heading|headline|überschrift)\s*[:\-]?\s+(.+)$`)
	listPatternRE      = regexp.MustCompile(`(?i)(?:list|liste)\s*[:\-]?\s+(.+)$`)
	quotePatternRE     = regexp.MustCompile(`(?i)(?:quote|zitat)\s*[:\-]?\s+(.+)$`)
	imagePatternRE     = regexp.MustCompile(`(?i)(?:image|bild)\s*[:\-]?\s+(.+)$`)
	httpURLRE          = regexp.MustCompile(`https?://\S+`)
	labelValueSplitSet = []string{";", "\n"}
)

// valueAfterLabel returns the text following label (e.g. "title:") up
// to the first separator.
func valueAfterLabel(label, text string) string {
	idx := strings.Index(strings.ToLower(text), label)
	if idx == -1 {
		return ""
	}
	value := strings.TrimSpace(text[idx+len(label):])
	for _, sep := range labelValueSplitSet {
		if i := strings.Index(value, sep); i != -1 {
			value = strings.TrimSpace(value[:i])
		}
	}
	return value
}

// DeriveFromLabels extracts explicit "title:", "description:" and
// "language:" assignments from the goal.
func DeriveFromLabels(goal string) []Action {
	var out []Action
	if title := valueAfterLabel("title:", goal); title != "" {
		out = append(out, UpdateTitle{Title: title})
	}
	if description := valueAfterLabel("description:", goal); description != "" {
		out = append(out, UpdateDescription{Description: description})
	}
	if language := valueAfterLabel("language:", goal); language != "" {
		out = append(out, UpdateLanguage{Language: language})
	}
	return out
}

// DeriveFromPatterns extracts actions from free-form goal text.
func DeriveFromPatterns(goal string) []Action {
	text := strings.TrimSpace(goal)
	var out []Action

	if m := matchFirst(text, labelTitleRE, labelTitleColonRE); m != "" {
		if title := stripWrappingQuotes(m); title != "" {
			out = append(out, UpdateTitle{Title: title})
		}
	}
	if m := matchFirst(text, labelDescRE, labelDescColonRE); m != "" {
		if description := stripWrappingQuotes(m); description != "" {
			out = append(out, UpdateDescription{Description: description})
		}
	}
	if m := matchFirst(text, textBlockRE, textBlockAddRE); m != "" {
		if blockText := stripWrappingQuotes(m); blockText != "" {
			out = append(out, InsertText{Text: blockText})
		}
	}
	if m := matchFirst(text, headingPatternRE); m != "" {
		headingText := cleanHeadingText(stripWrappingQuotes(m))
		if headingText != "" {
			out = append(out, InsertHeading{
				Text:  headingText,
				Level: headingLevelFromText(text, 2),
			})
		}
	}
	if m := matchFirst(text, listPatternRE); m != "" {
		items := splitListItems(strings.TrimSpace(m))
		if len(items) > 0 {
			out = append(out, InsertList{
				Items:   items,
				Ordered: detectOrderedList(text, items),
			})
		}
	}
	if m := matchFirst(text, quotePatternRE); m != "" {
		if quoteText := stripWrappingQuotes(m); quoteText != "" {
			out = append(out, InsertQuote{Text: quoteText})
		}
	}
	if m := matchFirst(text, imagePatternRE); m != "" {
		if image, ok := imageFromText(strings.TrimSpace(m)); ok {
			out = append(out, image)
		}
	}
	return out
}

func matchFirst(text string, patterns ...*regexp.Regexp) string {
	for _, pattern := range patterns {
		if m := pattern.FindStringSubmatch(text); m != nil {
			return m[1]
		}
	}
	return ""
}

// imageFromText recognizes a plain URL, a resolveuid link or a bare
// UUID and normalizes it.
func imageFromText(text string) (InsertImage, bool) {
	if m := httpURLRE.FindString(text); m != "" {
		return normalizeImageReference(map[string]any{"url": m}, nil)
	}
	if m := resolveUIDRE.FindStringSubmatch(text); m != nil {
		return normalizeImageReference(map[string]any{"url": "resolveuid/" + m[1]}, nil)
	}
	if uuidRE.MatchString(text) {
		return normalizeImageReference(map[string]any{"uid": text}, nil)
	}
	return InsertImage{}, false
}
