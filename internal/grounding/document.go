package grounding

// Text caps. The page document may carry up to MaxPageText characters
// of extracted body; every document in a bundle is independently cut
// to MaxDocText before assembly.
const (
	MaxPageText    = 15000
	MaxDocText     = 4000
	MaxRelatedDocs = 6
	MaxSiteDocs    = 3
)

// Document types.
const (
	DocTypePage        = "page"
	DocTypeSite        = "site"
	DocTypeSiteSection = "site-section"
	DocTypeRelated     = "related"
	DocTypeSearch      = "search"
)

// Bundle modes.
const (
	ModePage      = "page"
	ModeSummarize = "summarize"
	ModeRelated   = "related"
	ModeSearch    = "search"
)

// Document is one grounding unit handed to the gateway. Built fresh
// per request, never persisted.
type Document struct {
	ID    string  `json:"id"`
	Title string  `json:"title"`
	URL   string  `json:"url"`
	Text  string  `json:"text"`
	Type  string  `json:"type"`
	Score float64 `json:"score"`
}

// NewDocument builds a Document with the per-document text cap
// applied. Title falls back to the URL.
func NewDocument(id, title, url, text, docType string, score float64) Document {
	if title == "" {
		title = url
	}
	return Document{
		ID:    id,
		Title: title,
		URL:   url,
		Text:  Truncate(text, MaxDocText),
		Type:  docType,
		Score: score,
	}
}

// Bundle is the assembled grounding context for one request. PageDoc
// is always present; empty text signals that no content could be
// extracted.
type Bundle struct {
	Mode        string     `json:"mode"`
	Query       string     `json:"query"`
	Resolved    string     `json:"resolved"`
	PageDoc     Document   `json:"page_doc"`
	SiteDocs    []Document `json:"site_docs"`
	RelatedDocs []Document `json:"related_docs"`
	Documents   []Document `json:"documents"`
}

// dedupeDocuments keeps the first occurrence of each non-empty id,
// preserving order.
func dedupeDocuments(docs []Document) []Document {
	seen := map[string]bool{}
	out := docs[:0]
	for _, doc := range docs {
		if doc.ID == "" || seen[doc.ID] {
			continue
		}
		seen[doc.ID] = true
		out = append(out, doc)
	}
	return out
}
