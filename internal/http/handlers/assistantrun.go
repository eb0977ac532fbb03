package handlers

import (
	"fmt"

	"github.com/gin-gonic/gin"

	"github.com/interaktiv/kyra-assist/internal/cache"
	"github.com/interaktiv/kyra-assist/internal/gateway"
	"github.com/interaktiv/kyra-assist/internal/http/response"
	"github.com/interaktiv/kyra-assist/internal/platform/apierr"
	"github.com/interaktiv/kyra-assist/internal/platform/logger"
)

// AssistantRunHandler applies a stored editor prompt to the current
// text selection. Prompt records live client-side; the gateway copy
// is created lazily and its id remembered, so a prompt deleted
// upstream heals on the next run.
type AssistantRunHandler struct {
	log    *logger.Logger
	client *gateway.Client
	cache  cache.SharedCache
}

func NewAssistantRunHandler(log *logger.Logger, client *gateway.Client, sharedCache cache.SharedCache) *AssistantRunHandler {
	return &AssistantRunHandler{
		log:    log.With("Handler", "AssistantRunHandler"),
		client: client,
		cache:  sharedCache,
	}
}

type assistantRunRequest struct {
	Prompt    assistantPrompt `json:"prompt"`
	Selection string          `json:"selection"`
}

type assistantPrompt struct {
	ID         string `json:"id"`
	Name       string `json:"name"`
	Text       string `json:"text"`
	ActionType string `json:"actionType"`
	GatewayID  string `json:"gateway_id"`
}

func gatewayIDCacheKey(localID string) string {
	return "kyra:assistant:gateway_id:" + localID
}

// POST /ai-assistant-run
func (h *AssistantRunHandler) Run(c *gin.Context) {
	var req assistantRunRequest
	if err := c.ShouldBindJSON(&req); err != nil || req.Prompt.ID == "" {
		response.RespondAPIError(c, apierr.Validation("Missing 'prompt' object with at least an 'id' field"))
		return
	}

	ctx := c.Request.Context()
	remoteID := req.Prompt.GatewayID
	if remoteID == "" {
		if cached, ok := h.cache.Get(gatewayIDCacheKey(req.Prompt.ID)); ok {
			remoteID = cached
		}
	}
	if remoteID == "" {
		remoteID = req.Prompt.ID
	}

	payload := gateway.ApplyPayload{Query: req.Selection, Input: req.Selection}
	result := h.client.ApplyPrompt(ctx, remoteID, payload)

	if result.Failed() && result.Recoverable() {
		created := h.client.CreatePrompt(ctx, map[string]any{
			"name":   firstNonEmpty(req.Prompt.Name, fmt.Sprintf("Editor prompt %s", req.Prompt.ID)),
			"prompt": req.Prompt.Text,
		})
		if newID := created.ID(); !created.Failed() && newID != "" {
			h.cache.Set(gatewayIDCacheKey(req.Prompt.ID), newID, 0)
			h.log.Info("assistant prompt recreated upstream", "local_id", req.Prompt.ID, "gateway_id", newID)
			result = h.client.ApplyPrompt(ctx, newID, payload)
		}
	}
	if result.Failed() {
		response.RespondAPIError(c, upstreamError(result))
		return
	}

	actionType := req.Prompt.ActionType
	if actionType == "" {
		actionType = "replace"
	}
	if result.Data != nil {
		if at := stringField(result.Data, "actionType"); at != "" {
			actionType = at
		}
	}

	var raw any = result.Data
	if result.Data == nil && result.List != nil {
		raw = result.List
	}
	response.RespondOK(c, gin.H{
		"result":     result.AssistantText(),
		"actionType": actionType,
		"raw":        raw,
	})
}
