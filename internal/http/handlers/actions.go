package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/interaktiv/kyra-assist/internal/actions"
	"github.com/interaktiv/kyra-assist/internal/http/middleware"
	"github.com/interaktiv/kyra-assist/internal/http/response"
)

type ActionsHandler struct {
	actions *actions.Service
}

func NewActionsHandler(actionsService *actions.Service) *ActionsHandler {
	return &ActionsHandler{actions: actionsService}
}

// POST /ai-actions/plan
func (h *ActionsHandler) Plan(c *gin.Context) {
	var req actions.PlanRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.RespondError(c, http.StatusBadRequest, "invalid_request", err)
		return
	}
	resp, err := h.actions.Plan(c.Request.Context(), middleware.IdentityFrom(c), req)
	if err != nil {
		response.RespondAPIError(c, err)
		return
	}
	response.RespondOK(c, resp)
}

// POST /ai-actions/apply
func (h *ActionsHandler) Apply(c *gin.Context) {
	var req actions.ApplyRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.RespondError(c, http.StatusBadRequest, "invalid_request", err)
		return
	}
	resp, err := h.actions.ApplyPlan(c.Request.Context(), middleware.IdentityFrom(c), req)
	if err != nil {
		response.RespondAPIError(c, err)
		return
	}
	response.RespondOK(c, resp)
}
