// Package chat orchestrates grounded AI chat: it validates the
// conversation, builds a grounding bundle, forwards to the gateway,
// validates the answer and falls back to an extractive local summary
// when the gateway answer is missing, leaked-template or ungrounded.
package chat

import (
	"strings"

	"github.com/interaktiv/kyra-assist/internal/content"
	"github.com/interaktiv/kyra-assist/internal/grounding"
	"github.com/interaktiv/kyra-assist/internal/platform/apierr"
)

// Message roles accepted on the wire.
var validRoles = map[string]bool{
	"user":      true,
	"assistant": true,
	"system":    true,
	"tool":      true,
}

// Message is one conversation turn.
type Message struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// Request is the /ai-chat request body.
type Request struct {
	Messages       []Message          `json:"messages"`
	Context        *grounding.Request `json:"context"`
	ConversationID string             `json:"conversation_id"`
	Params         map[string]any     `json:"params"`
}

// ValidateMessages rejects malformed conversations before any I/O.
func ValidateMessages(messages []Message) error {
	if len(messages) == 0 {
		return apierr.Validation("Missing 'messages' array")
	}
	for _, message := range messages {
		if !validRoles[message.Role] {
			return apierr.Validation("Invalid message role")
		}
	}
	return nil
}

// LastUserMessage returns the content of the most recent user turn.
func LastUserMessage(messages []Message) string {
	for i := len(messages) - 1; i >= 0; i-- {
		if messages[i].Role == "user" {
			return messages[i].Content
		}
	}
	return ""
}

// Citation points an answer at a grounding source.
type Citation struct {
	SourceID string `json:"source_id"`
	Label    string `json:"label"`
	URL      string `json:"url"`
	Snippet  string `json:"snippet"`
}

// Capabilities tells the UI what the caller may do.
type Capabilities struct {
	IsAnonymous bool     `json:"is_anonymous"`
	CanEdit     bool     `json:"can_edit"`
	Features    []string `json:"features"`
}

// CapabilitiesFor computes the capability set for one caller on one
// resolved content object. Action features are advertised only to
// editors.
func CapabilitiesFor(id content.Identity, authz content.Authorizer, obj *content.Object) Capabilities {
	canEdit := false
	if !id.Anonymous() && authz != nil && obj != nil {
		canEdit = authz.CanEdit(id, obj)
	}
	features := []string{"chat"}
	if canEdit {
		features = append(features, "actions_plan", "actions_apply")
	}
	return Capabilities{
		IsAnonymous: id.Anonymous(),
		CanEdit:     canEdit,
		Features:    features,
	}
}

// Response is the non-streaming /ai-chat reply.
type Response struct {
	ConversationID string               `json:"conversation_id,omitempty"`
	Message        Message              `json:"message"`
	Citations      []Citation           `json:"citations"`
	Capabilities   Capabilities         `json:"capabilities"`
	UsedContext    []grounding.Document `json:"used_context,omitempty"`
}

const snippetLimit = 200

// citationFor maps a grounding document to a citation.
func citationFor(doc grounding.Document) Citation {
	return Citation{
		SourceID: doc.ID,
		Label:    doc.Title,
		URL:      doc.URL,
		Snippet:  grounding.Truncate(doc.Text, snippetLimit),
	}
}

// mergeCitations combines gateway-supplied citations with
// context-derived ones. Page and site documents are always eligible;
// related/search documents only in those modes. First occurrence of a
// source id wins; the list is capped at 5.
func mergeCitations(gatewayCitations []map[string]any, bundle *grounding.Bundle) []Citation {
	const maxCitations = 5

	var out []Citation
	seen := map[string]bool{}
	add := func(c Citation) {
		if len(out) >= maxCitations {
			return
		}
		if c.SourceID == "" || seen[c.SourceID] {
			return
		}
		seen[c.SourceID] = true
		c.Snippet = grounding.Truncate(c.Snippet, snippetLimit)
		out = append(out, c)
	}

	for _, raw := range gatewayCitations {
		add(Citation{
			SourceID: stringKey(raw, "source_id", "id"),
			Label:    stringKey(raw, "label", "title"),
			URL:      stringKey(raw, "url"),
			Snippet:  stringKey(raw, "snippet", "text"),
		})
	}

	if bundle == nil {
		return out
	}
	relatedEligible := bundle.Mode == grounding.ModeRelated || bundle.Mode == grounding.ModeSearch
	for _, doc := range bundle.Documents {
		if (doc.Type == grounding.DocTypeRelated || doc.Type == grounding.DocTypeSearch) && !relatedEligible {
			continue
		}
		add(citationFor(doc))
	}
	return out
}

func stringKey(m map[string]any, keys ...string) string {
	for _, key := range keys {
		if v, ok := m[key].(string); ok && strings.TrimSpace(v) != "" {
			return v
		}
	}
	return ""
}
