package grounding

import (
	"fmt"
	"strings"

	"github.com/interaktiv/kyra-assist/internal/content"
	"github.com/interaktiv/kyra-assist/internal/platform/logger"
)

// Locator points at a page by uid and/or url. Both fields optional.
type Locator struct {
	UID   string `json:"uid"`
	URL   string `json:"url"`
	Title string `json:"title"`
}

// Request describes the context wanted by a chat request.
type Request struct {
	Mode          string  `json:"mode"`
	Page          Locator `json:"page"`
	Query         string  `json:"query"`
	SelectionText string  `json:"selection_text"`
}

// Builder assembles grounding bundles from the CMS collaborators.
type Builder struct {
	log      *logger.Logger
	store    content.Store
	searcher content.Searcher
}

func NewBuilder(log *logger.Logger, store content.Store, searcher content.Searcher) *Builder {
	return &Builder{
		log:      log.With("service", "GroundingBuilder"),
		store:    store,
		searcher: searcher,
	}
}

// Resolve maps a locator to a content object. Resolution order is UID,
// then path (URL made relative to the site root), then the site root
// itself. It never fails; absence degrades to root.
func (b *Builder) Resolve(loc Locator) (*content.Object, string) {
	if loc.UID != "" {
		if obj, ok := b.store.ByUID(loc.UID); ok {
			return obj, "UID:" + loc.UID
		}
	}
	if loc.URL != "" {
		path := loc.URL
		rootURL := strings.TrimRight(b.store.Root().URL, "/")
		if strings.HasPrefix(path, "http") && rootURL != "" && strings.HasPrefix(path, rootURL) {
			path = path[len(rootURL):]
		}
		path = strings.Trim(path, "/")
		if path != "" {
			if obj, ok := b.store.ByPath(path); ok {
				return obj, "path:/" + path
			}
		}
	}
	return b.store.Root(), "site-root"
}

// ExtractText concatenates the object's title, description and all
// structured-block text, strips markup and truncates to the page cap.
func (b *Builder) ExtractText(obj *content.Object) string {
	if obj == nil {
		return ""
	}
	var parts []string
	if obj.Title != "" {
		parts = append(parts, StripMarkup(obj.Title))
	}
	if obj.Description != "" {
		parts = append(parts, StripMarkup(obj.Description))
	}
	for _, id := range obj.BlockOrder {
		if text := flattenBlockValue(obj.Blocks[id]); text != "" {
			parts = append(parts, StripMarkup(text))
		}
	}
	// Blocks not present in the order list still count.
	ordered := map[string]bool{}
	for _, id := range obj.BlockOrder {
		ordered[id] = true
	}
	for id, block := range obj.Blocks {
		if ordered[id] {
			continue
		}
		if text := flattenBlockValue(block); text != "" {
			parts = append(parts, StripMarkup(text))
		}
	}
	text := strings.Join(parts, " ")
	return Truncate(collapseWhitespace(text), MaxPageText)
}

// flattenBlockValue reduces an arbitrarily nested block record to its
// string leaves.
func flattenBlockValue(value any) string {
	switch v := value.(type) {
	case nil:
		return ""
	case string:
		return v
	case int, int64, float64:
		return fmt.Sprint(v)
	case map[string]any:
		var parts []string
		for _, child := range v {
			if text := flattenBlockValue(child); text != "" {
				parts = append(parts, text)
			}
		}
		return strings.Join(parts, " ")
	case []any:
		var parts []string
		for _, child := range v {
			if text := flattenBlockValue(child); text != "" {
				parts = append(parts, text)
			}
		}
		return strings.Join(parts, " ")
	default:
		return ""
	}
}

// DocumentFor builds a grounding document for one content object.
func (b *Builder) DocumentFor(obj *content.Object, docType string, score float64) Document {
	if obj == nil {
		return Document{}
	}
	id := obj.UID
	if id == "" {
		id = obj.URL
	}
	return NewDocument(id, obj.Title, obj.URL, CleanText(b.ExtractText(obj)), docType, score)
}

// FindRelated queries the search collaborator and maps hits to
// documents, skipping excludeID and capping at limit.
func (b *Builder) FindRelated(query, excludeID string, limit int, docType string) []Document {
	if strings.TrimSpace(query) == "" || b.searcher == nil || limit <= 0 {
		return nil
	}
	hits := b.searcher.Search(query, limit*2)
	var docs []Document
	for _, hit := range hits {
		if excludeID != "" && hit.UID == excludeID {
			continue
		}
		id := hit.UID
		if id == "" {
			id = hit.URL
		}
		docs = append(docs, NewDocument(id, hit.Title, hit.URL, hit.Description, docType, hit.Score))
		if len(docs) >= limit {
			break
		}
	}
	return docs
}

// CollectSiteDocuments gathers the site root (unless it is the page)
// and up to MaxSiteDocs top-level sections, de-duplicated against the
// root and the page.
func (b *Builder) CollectSiteDocuments(pageDoc Document) []Document {
	root := b.store.Root()
	var docs []Document
	rootDoc := b.DocumentFor(root, DocTypeSite, 0.5)
	if rootDoc.ID != "" && rootDoc.ID != pageDoc.ID {
		docs = append(docs, rootDoc)
	}
	seen := map[string]bool{rootDoc.ID: true, pageDoc.ID: true}
	count := 0
	for _, section := range b.store.TopLevelSections() {
		if count >= MaxSiteDocs {
			break
		}
		id := section.UID
		if id == "" || seen[id] {
			continue
		}
		seen[id] = true
		docs = append(docs, b.DocumentFor(section, DocTypeSiteSection, 0.4-float64(count)*0.05))
		count++
	}
	return docs
}

// Build assembles the full bundle for a request. Mode defaults to
// page; related documents are populated only for related/search
// modes, seeded with the query or the page title.
func (b *Builder) Build(req Request) Bundle {
	mode := req.Mode
	if mode == "" {
		mode = ModePage
	}

	obj, resolved := b.Resolve(req.Page)
	pageDoc := b.DocumentFor(obj, DocTypePage, 1.0)
	if req.Page.UID != "" {
		pageDoc.ID = req.Page.UID
	}

	var relatedDocs []Document
	if mode == ModeRelated || mode == ModeSearch {
		seed := req.Query
		if seed == "" {
			seed = pageDoc.Title
		}
		if seed == "" {
			seed = req.Page.Title
		}
		relatedDocs = b.FindRelated(seed, pageDoc.ID, MaxRelatedDocs, mode)
	}

	siteDocs := b.CollectSiteDocuments(pageDoc)

	documents := make([]Document, 0, 1+len(siteDocs)+len(relatedDocs))
	documents = append(documents, pageDoc)
	documents = append(documents, siteDocs...)
	documents = append(documents, relatedDocs...)

	return Bundle{
		Mode:        mode,
		Query:       req.Query,
		Resolved:    resolved,
		PageDoc:     pageDoc,
		SiteDocs:    siteDocs,
		RelatedDocs: relatedDocs,
		Documents:   dedupeDocuments(documents),
	}
}
