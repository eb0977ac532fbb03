package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/interaktiv/kyra-assist/internal/http/response"
	"github.com/interaktiv/kyra-assist/internal/settings"
)

type SettingsHandler struct {
	store *settings.Store
}

func NewSettingsHandler(store *settings.Store) *SettingsHandler {
	return &SettingsHandler{store: store}
}

// GET /ai-settings
func (h *SettingsHandler) Get(c *gin.Context) {
	response.RespondOK(c, h.store.Snapshot())
}

// PATCH /ai-settings
func (h *SettingsHandler) Patch(c *gin.Context) {
	var patch settings.Patch
	if err := c.ShouldBindJSON(&patch); err != nil {
		response.RespondError(c, http.StatusBadRequest, "invalid_request", err)
		return
	}
	snap, err := h.store.Apply(patch)
	if err != nil {
		response.RespondAPIError(c, err)
		return
	}
	response.RespondOK(c, snap)
}
