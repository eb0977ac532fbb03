package handlers

import (
	"github.com/gin-gonic/gin"

	"github.com/interaktiv/kyra-assist/internal/chat"
	"github.com/interaktiv/kyra-assist/internal/content"
	"github.com/interaktiv/kyra-assist/internal/grounding"
	"github.com/interaktiv/kyra-assist/internal/http/middleware"
	"github.com/interaktiv/kyra-assist/internal/http/response"
)

type CapabilitiesHandler struct {
	builder *grounding.Builder
	authz   content.Authorizer
}

func NewCapabilitiesHandler(builder *grounding.Builder, authz content.Authorizer) *CapabilitiesHandler {
	return &CapabilitiesHandler{builder: builder, authz: authz}
}

// GET /ai-capabilities?uid=...&url=...
func (h *CapabilitiesHandler) Get(c *gin.Context) {
	loc := grounding.Locator{
		UID: c.Query("uid"),
		URL: c.Query("url"),
	}
	obj, _ := h.builder.Resolve(loc)
	id := middleware.IdentityFrom(c)
	response.RespondOK(c, chat.CapabilitiesFor(id, h.authz, obj))
}
