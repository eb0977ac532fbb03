package chat

import (
	"fmt"
	"strings"

	"github.com/interaktiv/kyra-assist/internal/grounding"
)

const (
	systemDocLimit     = 4
	documentMsgLimit   = 3
	systemSnippetLimit = 300
	documentTextLimit  = 1500
)

// systemGroundingMessage instructs the model to answer only from the
// supplied documents and enumerates up to four of them.
func systemGroundingMessage(bundle *grounding.Bundle) string {
	var b strings.Builder
	b.WriteString("You are Kyra AI, an assistant for this website. ")
	fmt.Fprintf(&b, "The current request mode is %q.\n", bundle.Mode)
	b.WriteString("Use ONLY the provided context documents to answer. ")
	b.WriteString("If the documents do not contain the answer, say that you cannot answer from the available content. Do not invent information.\n\nContext documents:\n")
	for i, doc := range bundle.Documents {
		if i >= systemDocLimit {
			break
		}
		fmt.Fprintf(&b, "%d. %s (%s): %s\n", i+1, doc.Title, doc.URL, grounding.Truncate(doc.Text, systemSnippetLimit))
	}
	return strings.TrimRight(b.String(), "\n")
}

// BuildGatewayPayload assembles the chat request sent upstream. With a
// bundle the conversation is prefixed by the system grounding message
// and up to three full document messages; context_documents carries
// the whole bundle for gateways that do their own retrieval.
func BuildGatewayPayload(req Request, bundle *grounding.Bundle, lastUser string) map[string]any {
	var wire []map[string]any
	if bundle != nil {
		wire = append(wire, map[string]any{
			"role":    "system",
			"content": systemGroundingMessage(bundle),
		})
		for i, doc := range bundle.Documents {
			if i >= documentMsgLimit {
				break
			}
			wire = append(wire, map[string]any{
				"role": "system",
				"content": fmt.Sprintf("Context document %q (%s):\n%s",
					doc.Title, doc.URL, grounding.Truncate(doc.Text, documentTextLimit)),
			})
		}
	}
	for _, message := range req.Messages {
		wire = append(wire, map[string]any{"role": message.Role, "content": message.Content})
	}

	payload := map[string]any{"messages": wire}
	if bundle != nil {
		payload["context_documents"] = bundle.Documents
	}
	if req.ConversationID != "" {
		payload["conversation_id"] = req.ConversationID
	}
	if req.Params != nil {
		payload["params"] = req.Params
	}
	if lastUser != "" {
		payload["query"] = lastUser
		payload["input"] = lastUser
	}
	return payload
}
