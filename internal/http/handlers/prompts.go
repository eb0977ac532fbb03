package handlers

import (
	"github.com/gin-gonic/gin"

	"github.com/interaktiv/kyra-assist/internal/gateway"
	"github.com/interaktiv/kyra-assist/internal/http/response"
	"github.com/interaktiv/kyra-assist/internal/platform/apierr"
)

// PromptsHandler exposes the gateway's prompt CRUD with a normalized
// prompt shape. The gateway is loose about field names (id/_id,
// prompt/text, metadata fallbacks); normalization happens here so the
// UI sees one stable contract.
type PromptsHandler struct {
	client *gateway.Client
}

func NewPromptsHandler(client *gateway.Client) *PromptsHandler {
	return &PromptsHandler{client: client}
}

// GET /ai-prompts
func (h *PromptsHandler) List(c *gin.Context) {
	result := h.client.ListPrompts(c.Request.Context(), 1, 100)
	if result.Failed() {
		response.RespondAPIError(c, upstreamError(result))
		return
	}

	var raw []any
	switch {
	case result.List != nil:
		raw = result.List
	case result.Data != nil:
		if list, ok := result.Data["prompts"].([]any); ok {
			raw = list
		} else if list, ok := result.Data["items"].([]any); ok {
			raw = list
		}
	}

	prompts := make([]map[string]any, 0, len(raw))
	for _, item := range raw {
		if record, ok := item.(map[string]any); ok {
			prompts = append(prompts, serializePrompt(record))
		}
	}
	response.RespondOK(c, prompts)
}

// GET /ai-prompts/:id
func (h *PromptsHandler) Get(c *gin.Context) {
	result := h.client.GetPrompt(c.Request.Context(), c.Param("id"))
	if result.Failed() {
		response.RespondAPIError(c, upstreamError(result))
		return
	}
	response.RespondOK(c, serializePrompt(result.Data))
}

// POST /ai-prompts
func (h *PromptsHandler) Create(c *gin.Context) {
	payload, err := bindPromptPayload(c)
	if err != nil {
		response.RespondAPIError(c, err)
		return
	}
	result := h.client.CreatePrompt(c.Request.Context(), payload)
	if result.Failed() {
		response.RespondAPIError(c, upstreamError(result))
		return
	}
	response.RespondOK(c, serializePrompt(result.Data))
}

// PATCH /ai-prompts/:id
func (h *PromptsHandler) Update(c *gin.Context) {
	payload, err := bindPromptPayload(c)
	if err != nil {
		response.RespondAPIError(c, err)
		return
	}
	result := h.client.UpdatePrompt(c.Request.Context(), c.Param("id"), payload)
	if result.Failed() {
		response.RespondAPIError(c, upstreamError(result))
		return
	}
	response.RespondOK(c, serializePrompt(result.Data))
}

// DELETE /ai-prompts/:id
func (h *PromptsHandler) Delete(c *gin.Context) {
	promptID := c.Param("id")
	result := h.client.DeletePrompt(c.Request.Context(), promptID)
	if result.Failed() {
		response.RespondAPIError(c, upstreamError(result))
		return
	}
	response.RespondOK(c, gin.H{"status": "deleted", "id": promptID})
}

// bindPromptPayload validates the request body and maps it to the
// gateway's prompt payload. actionType and categories are mirrored
// into metadata because older gateway revisions only read them there.
func bindPromptPayload(c *gin.Context) (map[string]any, error) {
	var data map[string]any
	if err := c.ShouldBindJSON(&data); err != nil {
		return nil, apierr.Validation("JSON object expected")
	}

	name, _ := data["name"].(string)
	if name == "" {
		return nil, apierr.Validation("Missing required field 'name'")
	}

	actionType := firstNonEmpty(stringField(data, "actionType"), stringField(data, "action"), "replace")
	categories := stringListField(data, "categories")
	text := firstNonEmpty(stringField(data, "text"), stringField(data, "prompt"))

	payload := map[string]any{
		"name":       name,
		"prompt":     text,
		"categories": categories,
		"actionType": actionType,
	}
	if description, ok := data["description"]; ok {
		value, _ := description.(string)
		payload["description"] = value
	}

	metadata := map[string]any{}
	if len(categories) > 0 {
		metadata["categories"] = categories
	}
	if actionType != "" {
		metadata["action"] = actionType
	}
	if len(metadata) > 0 {
		payload["metadata"] = metadata
	}
	return payload, nil
}

// serializePrompt maps a raw gateway prompt record to the normalized
// shape, preferring metadata values over top-level ones.
func serializePrompt(prompt map[string]any) map[string]any {
	if prompt == nil {
		prompt = map[string]any{}
	}
	metadata, _ := prompt["metadata"].(map[string]any)

	categories := stringListField(metadata, "categories")
	if len(categories) == 0 {
		categories = stringListField(prompt, "categories")
	}
	actionType := firstNonEmpty(
		stringField(metadata, "action"),
		stringField(prompt, "actionType"),
		"replace",
	)

	files, _ := prompt["files"].([]any)
	if files == nil {
		files = []any{}
	}

	return map[string]any{
		"id":          firstNonEmpty(stringField(prompt, "id"), stringField(prompt, "_id")),
		"name":        stringField(prompt, "name"),
		"description": stringField(prompt, "description"),
		"text":        firstNonEmpty(stringField(prompt, "prompt"), stringField(prompt, "text")),
		"categories":  categories,
		"actionType":  actionType,
		"files":       files,
		"created":     firstKey(prompt, "created", "createdAt", "created_at"),
		"updated":     firstKey(prompt, "updated", "updatedAt", "updated_at"),
	}
}

func upstreamError(result gateway.Result) error {
	if result.NotFound() {
		return apierr.NotFound(result.Err)
	}
	return apierr.Upstream(result.Err)
}

func stringField(m map[string]any, key string) string {
	if m == nil {
		return ""
	}
	value, _ := m[key].(string)
	return value
}

func stringListField(m map[string]any, key string) []string {
	if m == nil {
		return []string{}
	}
	switch value := m[key].(type) {
	case string:
		if value == "" {
			return []string{}
		}
		return []string{value}
	case []any:
		out := make([]string, 0, len(value))
		for _, item := range value {
			if text, ok := item.(string); ok {
				out = append(out, text)
			}
		}
		return out
	case []string:
		return value
	}
	return []string{}
}

func firstKey(m map[string]any, keys ...string) any {
	for _, key := range keys {
		if value, ok := m[key]; ok && value != nil {
			return value
		}
	}
	return nil
}

func firstNonEmpty(values ...string) string {
	for _, value := range values {
		if value != "" {
			return value
		}
	}
	return ""
}
