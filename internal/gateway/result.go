package gateway

import "strings"

// Result is the uniform outcome of a gateway call. Expected failure
// modes (non-2xx, timeout, connection failure) are carried in Err;
// errors never cross the client boundary as panics or raw transport
// errors. Exactly one of Data/List/Content is populated on success,
// depending on the upstream payload shape.
type Result struct {
	Data    map[string]any
	List    []any
	Content []byte
	Err     string
}

func Ok(data map[string]any) Result { return Result{Data: data} }
func OkList(list []any) Result      { return Result{List: list} }
func OkContent(raw []byte) Result   { return Result{Content: raw} }
func Errf(message string) Result    { return Result{Err: message} }

func (r Result) Failed() bool { return r.Err != "" }

// NotFound reports whether the failure looks like an upstream 404.
func (r Result) NotFound() bool { return IsNotFoundMessage(r.Err) }

// InvalidUUID reports whether the upstream rejected an id as not
// being a UUID, either in the top-level message or in a details list.
func (r Result) InvalidUUID() bool {
	if containsInvalidUUID(r.Err) {
		return true
	}
	if r.Data == nil {
		return false
	}
	if msg, ok := r.Data["message"].(string); ok && containsInvalidUUID(msg) {
		return true
	}
	details, ok := r.Data["details"].([]any)
	if !ok {
		return false
	}
	for _, detail := range details {
		dm, ok := detail.(map[string]any)
		if !ok {
			continue
		}
		if msg, ok := dm["message"].(string); ok && containsInvalidUUID(msg) {
			return true
		}
	}
	return false
}

// Recoverable reports whether a prompt-apply failure should trigger
// the invalidate-and-recreate path.
func (r Result) Recoverable() bool {
	lowered := strings.ToLower(r.Err)
	return r.NotFound() || r.InvalidUUID() || strings.Contains(lowered, "validation error")
}

func IsNotFoundMessage(message string) bool {
	lowered := strings.ToLower(message)
	return strings.Contains(lowered, "404") || strings.Contains(lowered, "not found")
}

func containsInvalidUUID(message string) bool {
	return strings.Contains(strings.ToLower(message), "invalid uuid")
}

// preferredTextKeys are searched, in order, when extracting an answer
// text from a dict-shaped gateway response.
var preferredTextKeys = []string{
	"response", "result", "text", "output", "completion", "content", "message",
}

// ignoredMetaKeys never contain answer text; the deep search skips
// them so prompt names and model ids are not mistaken for answers.
var ignoredMetaKeys = map[string]bool{
	"id": true, "name": true, "prompt": true, "promptId": true,
	"promptName": true, "domainId": true, "modelId": true,
	"modelProvider": true, "createdAt": true, "updatedAt": true,
	"description": true, "metadata": true, "query": true,
	"contextUsed": true, "tokenUsage": true, "executionTimeMs": true,
	"model": true,
}

// AssistantText pulls the assistant answer out of the result data.
// It prefers message.content, then the flat preferred keys, then a
// deep search that skips known meta keys.
func (r Result) AssistantText() string {
	if r.Data == nil {
		return ""
	}
	if message, ok := r.Data["message"].(map[string]any); ok {
		if text, ok := message["content"].(string); ok && strings.TrimSpace(text) != "" {
			return text
		}
	}
	for _, key := range preferredTextKeys {
		if text, ok := r.Data[key].(string); ok && strings.TrimSpace(text) != "" {
			return text
		}
	}
	return deepSearchText(r.Data)
}

func deepSearchText(value any) string {
	switch v := value.(type) {
	case string:
		if strings.TrimSpace(v) != "" {
			return v
		}
	case map[string]any:
		for _, key := range preferredTextKeys {
			if child, ok := v[key]; ok {
				if found := deepSearchText(child); found != "" {
					return found
				}
			}
		}
		for key, child := range v {
			if ignoredMetaKeys[key] {
				continue
			}
			if found := deepSearchText(child); found != "" {
				return found
			}
		}
	case []any:
		for _, child := range v {
			if found := deepSearchText(child); found != "" {
				return found
			}
		}
	}
	return ""
}

// Citations returns the gateway-supplied citations list, accepting
// either a "citations" or a "sources" key.
func (r Result) Citations() []map[string]any {
	if r.Data == nil {
		return nil
	}
	raw, ok := r.Data["citations"].([]any)
	if !ok {
		raw, ok = r.Data["sources"].([]any)
	}
	if !ok {
		return nil
	}
	var out []map[string]any
	for _, item := range raw {
		if m, ok := item.(map[string]any); ok {
			out = append(out, m)
		}
	}
	return out
}

// ConversationID returns the upstream conversation id, falling back
// to the request's own id when the response carries none.
func (r Result) ConversationID(fallback string) string {
	if r.Data != nil {
		if id, ok := r.Data["conversation_id"].(string); ok && id != "" {
			return id
		}
		if id, ok := r.Data["conversationId"].(string); ok && id != "" {
			return id
		}
	}
	return fallback
}

// ID returns the created/updated entity id from a CRUD response.
func (r Result) ID() string {
	if r.Data == nil {
		return ""
	}
	if id, ok := r.Data["id"].(string); ok && strings.TrimSpace(id) != "" {
		return id
	}
	if id, ok := r.Data["_id"].(string); ok && strings.TrimSpace(id) != "" {
		return id
	}
	return ""
}
