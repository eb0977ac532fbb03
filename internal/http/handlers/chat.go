package handlers

import (
	"encoding/json"
	"fmt"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/interaktiv/kyra-assist/internal/chat"
	"github.com/interaktiv/kyra-assist/internal/http/middleware"
	"github.com/interaktiv/kyra-assist/internal/http/response"
	"github.com/interaktiv/kyra-assist/internal/platform/logger"
)

type ChatHandler struct {
	log  *logger.Logger
	chat *chat.Service
}

func NewChatHandler(log *logger.Logger, chatService *chat.Service) *ChatHandler {
	return &ChatHandler{log: log.With("Handler", "ChatHandler"), chat: chatService}
}

// POST /ai-chat
// Streams when the client asks for text/event-stream; /ai-chat/stream
// forces streaming regardless of the Accept header.
func (h *ChatHandler) Chat(c *gin.Context) {
	if wantsEventStream(c) {
		h.stream(c)
		return
	}
	h.reply(c)
}

// POST /ai-chat/stream
func (h *ChatHandler) ChatStream(c *gin.Context) {
	h.stream(c)
}

func (h *ChatHandler) reply(c *gin.Context) {
	var req chat.Request
	if err := c.ShouldBindJSON(&req); err != nil {
		response.RespondError(c, http.StatusBadRequest, "invalid_request", err)
		return
	}
	resp, err := h.chat.Reply(c.Request.Context(), middleware.IdentityFrom(c), req)
	if err != nil {
		response.RespondAPIError(c, err)
		return
	}
	response.RespondOK(c, resp)
}

func (h *ChatHandler) stream(c *gin.Context) {
	var req chat.Request
	if err := c.ShouldBindJSON(&req); err != nil {
		response.RespondError(c, http.StatusBadRequest, "invalid_request", err)
		return
	}
	events, err := h.chat.Stream(c.Request.Context(), middleware.IdentityFrom(c), req)
	if err != nil {
		response.RespondAPIError(c, err)
		return
	}

	c.Header("Content-Type", "text/event-stream")
	c.Header("Cache-Control", "no-cache")
	c.Header("Connection", "keep-alive")
	c.Header("X-Accel-Buffering", "no")
	c.Status(http.StatusOK)

	flusher, _ := c.Writer.(http.Flusher)
	for event := range events {
		if err := writeSSEEvent(c.Writer, event); err != nil {
			// Client went away. Keep draining so the producer can
			// finish and close the channel.
			h.log.Debug("stream write failed", "error", err)
			for range events {
			}
			return
		}
		if flusher != nil {
			flusher.Flush()
		}
	}
}

func writeSSEEvent(w http.ResponseWriter, event chat.Event) error {
	data, err := json.Marshal(event.Payload)
	if err != nil {
		data = []byte("{}")
	}
	_, err = fmt.Fprintf(w, "event: %s\ndata: %s\n\n", event.Name, data)
	return err
}

func wantsEventStream(c *gin.Context) bool {
	return strings.Contains(c.GetHeader("Accept"), "text/event-stream")
}
