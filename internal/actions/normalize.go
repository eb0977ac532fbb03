package actions

import (
	"regexp"
	"strconv"
	"strings"
)

// Synonymous type names accepted from the gateway and canonicalized
// before the allow-list check.
var canonicalKinds = map[string]string{
	"add_text_block":    "insert_text_block",
	"append_text_block": "insert_text_block",
	"insert_block":      "insert_text_block",
	"add_block":         "insert_text_block",
	"add_heading_block": "insert_heading_block",
	"insert_heading":    "insert_heading_block",
	"add_heading":       "insert_heading_block",
	"heading_block":     "insert_heading_block",
	"add_list_block":    "insert_list_block",
	"insert_list":       "insert_list_block",
	"add_list":          "insert_list_block",
	"bullet_list":       "insert_list_block",
	"ordered_list":      "insert_list_block",
	"add_quote":         "insert_quote_block",
	"insert_quote":      "insert_quote_block",
	"quote_block":       "insert_quote_block",
	"add_image_block":   "insert_image_block",
	"insert_image":      "insert_image_block",
	"image_block":       "insert_image_block",
	"add_image":         "insert_image_block",
}

var (
	uuidRE        = regexp.MustCompile(`^[0-9a-fA-F-]{32,36}$`)
	resolveUIDRE  = regexp.MustCompile(`resolveuid/([0-9a-fA-F-]{32,36})`)
	imagesScaleRE = regexp.MustCompile(`@@images/([^/]+)/([^/?#]+)`)

	headingLevelRE    = regexp.MustCompile(`(?i)\b(?:h|heading\s*level|level)\s*([1-6])\b`)
	ordinalHeadingRE  = regexp.MustCompile(`(?i)\b([1-6])\s*(?:st|nd|rd|th)?\s*heading\b`)
	headingParenRE    = regexp.MustCompile(`(?i)\(\s*h[1-6]\s*\)`)
	headingMarkerRE   = regexp.MustCompile(`(?i)\b(?:h|level)\s*[1-6]\b`)
	listSeparatorRE   = regexp.MustCompile(`[;\n]+`)
	numberedSplitRE   = regexp.MustCompile(`\s*\d+[.)]\s*`)
	listItemPrefixRE  = regexp.MustCompile(`^\s*(?:[-*+]|\d+[.)])\s*`)
	orderedKeywordRE  = regexp.MustCompile(`(?i)\b(ordered|nummeriert|numbered)\b`)
	numericMarkerRE   = regexp.MustCompile(`\d+[.)]`)
	leadingNumberedRE = regexp.MustCompile(`^\d+[.)]`)
)

// headingLevelFromText infers a heading level from mentions like "h3",
// "level 3" or "3rd heading". Absent any marker it returns def.
func headingLevelFromText(text string, def int) int {
	if strings.TrimSpace(text) == "" {
		return def
	}
	match := headingLevelRE.FindStringSubmatch(text)
	if match == nil {
		match = ordinalHeadingRE.FindStringSubmatch(text)
	}
	if match == nil {
		return def
	}
	level, err := strconv.Atoi(match[1])
	if err != nil {
		return def
	}
	return clampLevel(level)
}

func clampLevel(level int) int {
	if level < 1 {
		return 1
	}
	if level > 6 {
		return 6
	}
	return level
}

// cleanHeadingText strips embedded level markers like "(h3)" or
// "level 3" from a heading text.
func cleanHeadingText(text string) string {
	text = headingParenRE.ReplaceAllString(text, "")
	text = headingMarkerRE.ReplaceAllString(text, "")
	return strings.TrimSpace(text)
}

// splitListItems breaks text into list items: on semicolons/newlines
// when present, else on numbered markers, else the whole text is one
// item. Leading bullet and number markers are stripped.
func splitListItems(text string) []string {
	var parts []string
	if strings.ContainsAny(text, ";\n") {
		parts = listSeparatorRE.Split(text, -1)
	} else {
		parts = numberedSplitRE.Split(text, -1)
		if len(nonEmpty(parts)) <= 1 {
			parts = []string{text}
		}
	}
	var cleaned []string
	for _, part := range parts {
		value := strings.TrimSpace(listItemPrefixRE.ReplaceAllString(part, ""))
		if value != "" {
			cleaned = append(cleaned, value)
		}
	}
	return cleaned
}

func nonEmpty(parts []string) []string {
	var out []string
	for _, p := range parts {
		if strings.TrimSpace(p) != "" {
			out = append(out, p)
		}
	}
	return out
}

// detectOrderedList reports whether text or its items carry numbering
// cues or an explicit ordered keyword.
func detectOrderedList(text string, items []string) bool {
	if orderedKeywordRE.MatchString(text) {
		return true
	}
	if numericMarkerRE.MatchString(text) {
		return true
	}
	for _, item := range items {
		if leadingNumberedRE.MatchString(strings.TrimSpace(item)) {
			return true
		}
	}
	return false
}

func stripWrappingQuotes(value string) string {
	value = strings.TrimSpace(value)
	if len(value) >= 2 && value[0] == value[len(value)-1] && (value[0] == '"' || value[0] == '\'') {
		return strings.TrimSpace(value[1 : len(value)-1])
	}
	return value
}

// normalizeImageReference canonicalizes any accepted image reference
// (plain URL, bare UUID, resolveuid link, @@images scale URL) into
// {url, image_field, scale}. UUIDs always become resolveuid links;
// internal references default to the large scale. The mapping is
// idempotent.
func normalizeImageReference(payload, raw map[string]any) (InsertImage, bool) {
	url := firstString(payload, "url", "src", "href")
	if url == "" {
		url = firstString(raw, "url", "src")
	}
	uid := firstString(payload, "uid", "resolveuid", "image_uid", "imageUid")
	if uid == "" {
		uid = firstString(raw, "uid", "resolveuid")
	}
	imageField := firstString(payload, "image_field", "field")
	if imageField == "" {
		imageField = "image"
	}
	scale := firstString(payload, "scale", "size", "image_scale")
	internal := false

	if url == "" && strings.TrimSpace(uid) != "" {
		url = "resolveuid/" + strings.TrimSpace(uid)
		internal = true
	}
	url = strings.TrimSpace(url)
	if uuidRE.MatchString(url) {
		url = "resolveuid/" + url
		internal = true
	}
	if match := imagesScaleRE.FindStringSubmatch(url); match != nil {
		if match[1] != "" {
			imageField = match[1]
		}
		if match[2] != "" {
			scale = match[2]
		}
		internal = true
	}
	if match := resolveUIDRE.FindStringSubmatch(url); match != nil {
		url = "resolveuid/" + match[1]
		internal = true
	}

	if url == "" {
		return InsertImage{}, false
	}
	if scale == "" && internal {
		scale = "large"
	}
	return InsertImage{URL: url, ImageField: imageField, Scale: scale}, true
}

// Normalize canonicalizes one raw action record into an Action. The
// bool is false when the record cannot be normalized; such records are
// dropped, never partially applied.
func Normalize(raw map[string]any) (Action, bool) {
	kind := firstString(raw, "type", "action", "name")
	kind = strings.TrimSpace(kind)
	if canonical, ok := canonicalKinds[kind]; ok {
		kind = canonical
	}
	if !Allowed(Kind(kind)) {
		return nil, false
	}

	payload, _ := raw["payload"].(map[string]any)
	if payload == nil {
		payload = map[string]any{}
	}

	switch Kind(kind) {
	case KindUpdateTitle:
		title := firstString(payload, "title", "value")
		if title == "" {
			title = firstString(raw, "title")
		}
		if title = strings.TrimSpace(title); title != "" {
			return UpdateTitle{Title: title}, true
		}
	case KindUpdateDescription:
		description := firstString(payload, "description", "value")
		if description == "" {
			description = firstString(raw, "description")
		}
		if description = strings.TrimSpace(description); description != "" {
			return UpdateDescription{Description: description}, true
		}
	case KindUpdateLanguage:
		language := firstString(payload, "language", "value")
		if language == "" {
			language = firstString(raw, "language")
		}
		if language = strings.TrimSpace(language); language != "" {
			return UpdateLanguage{Language: language}, true
		}
	case KindInsertText:
		text := firstString(payload, "text", "value")
		if text == "" {
			text = firstString(raw, "text")
		}
		if text = strings.TrimSpace(text); text != "" {
			return InsertText{Text: text}, true
		}
	case KindInsertHeading:
		text := firstString(payload, "text", "title")
		if text == "" {
			text = firstString(raw, "text", "title")
		}
		level, hasLevel := intValue(payload, "level", "heading_level")
		if !hasLevel {
			level, hasLevel = intValue(raw, "level")
		}
		if !hasLevel {
			level = headingLevelFromText(text, 2)
		}
		level = clampLevel(level)
		if strings.TrimSpace(text) != "" {
			cleaned := cleanHeadingText(text)
			if cleaned == "" {
				cleaned = strings.TrimSpace(text)
			}
			return InsertHeading{Text: cleaned, Level: level}, true
		}
	case KindInsertList:
		rawText := firstString(payload, "text")
		if rawText == "" {
			rawText = firstString(raw, "text")
		}
		items := stringList(payload["items"])
		if items == nil {
			items = stringList(raw["items"])
		}
		if s, ok := payload["items"].(string); ok {
			items = splitListItems(s)
		}
		if items == nil {
			items = splitListItems(rawText)
		}
		var cleaned []string
		for _, item := range items {
			value := strings.TrimSpace(listItemPrefixRE.ReplaceAllString(item, ""))
			if value != "" {
				cleaned = append(cleaned, value)
			}
		}
		ordered, hasOrdered := boolValue(payload, "ordered")
		if !hasOrdered {
			ordered, hasOrdered = boolValue(raw, "ordered")
		}
		if !hasOrdered {
			ordered = detectOrderedList(rawText, items)
		}
		if len(cleaned) > 0 {
			return InsertList{Items: cleaned, Ordered: ordered}, true
		}
	case KindInsertQuote:
		text := firstString(payload, "text", "quote")
		if text == "" {
			text = firstString(raw, "text")
		}
		citation := firstString(payload, "citation", "author")
		if citation == "" {
			citation = firstString(raw, "citation")
		}
		if text = strings.TrimSpace(text); text != "" {
			return InsertQuote{Text: text, Citation: strings.TrimSpace(citation)}, true
		}
	case KindInsertImage:
		image, ok := normalizeImageReference(payload, raw)
		if !ok {
			return nil, false
		}
		alt := firstString(payload, "alt", "title")
		if alt == "" {
			alt = firstString(raw, "alt")
		}
		image.Alt = strings.TrimSpace(alt)
		image.Caption = strings.TrimSpace(firstString(payload, "caption"))
		if image.Caption == "" {
			image.Caption = strings.TrimSpace(firstString(raw, "caption"))
		}
		return image, true
	}
	return nil, false
}

// NormalizeAll drops unnormalizable records silently.
func NormalizeAll(raw []map[string]any) []Action {
	var out []Action
	for _, record := range raw {
		if action, ok := Normalize(record); ok {
			out = append(out, action)
		}
	}
	return out
}

func firstString(m map[string]any, keys ...string) string {
	for _, key := range keys {
		if v, ok := m[key].(string); ok && strings.TrimSpace(v) != "" {
			return v
		}
	}
	return ""
}

func intValue(m map[string]any, keys ...string) (int, bool) {
	for _, key := range keys {
		switch v := m[key].(type) {
		case int:
			return v, true
		case float64:
			return int(v), true
		case string:
			if n, err := strconv.Atoi(strings.TrimSpace(v)); err == nil {
				return n, true
			}
		}
	}
	return 0, false
}

func boolValue(m map[string]any, key string) (bool, bool) {
	if v, ok := m[key].(bool); ok {
		return v, true
	}
	return false, false
}

func stringList(value any) []string {
	switch v := value.(type) {
	case []string:
		return v
	case []any:
		var out []string
		for _, item := range v {
			if s, ok := item.(string); ok {
				out = append(out, s)
			}
		}
		return out
	default:
		return nil
	}
}
