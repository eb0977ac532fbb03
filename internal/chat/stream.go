package chat

import (
	"context"
	"encoding/json"
	"errors"
	"strings"

	"github.com/interaktiv/kyra-assist/internal/content"
	"github.com/interaktiv/kyra-assist/internal/gateway"
)

// upstreamStream is what the relay needs from a live gateway stream.
type upstreamStream interface {
	Events(onEvent func(event, data string) error) error
	Close() error
}

// errStopRelay stops the upstream read after a terminal frame.
var errStopRelay = errors.New("relay complete")

// Event is one frame of the streaming response. The orchestrator
// produces a finite ordered sequence token* citations? error? done,
// with exactly one terminal done; a transport adapter turns it into
// SSE frames.
type Event struct {
	Name    string
	Payload map[string]any
}

const streamChunkSize = 32

// chunkText splits text into fixed-size pieces for synthetic token
// events.
func chunkText(text string, size int) []string {
	if text == "" || size <= 0 {
		return nil
	}
	var out []string
	runes := []rune(text)
	for start := 0; start < len(runes); start += size {
		end := start + size
		if end > len(runes) {
			end = len(runes)
		}
		out = append(out, string(runes[start:end]))
	}
	return out
}

// parseStreamPayload tolerantly decodes one upstream data line. Lines
// that are not JSON become opaque string payloads; the event type
// falls back to the payload's own type/event field, then to token.
func parseStreamPayload(eventName, data string) (string, any) {
	var payload any = data
	var decoded any
	if err := json.Unmarshal([]byte(data), &decoded); err == nil {
		payload = decoded
	}
	if eventName == "" {
		if m, ok := payload.(map[string]any); ok {
			if t, ok := m["type"].(string); ok && t != "" {
				eventName = t
			} else if t, ok := m["event"].(string); ok && t != "" {
				eventName = t
			}
		}
	}
	if eventName == "" {
		eventName = "token"
	}
	return eventName, payload
}

// Stream runs the chat state machine in streaming form. Validation
// failures surface synchronously; everything after that arrives on the
// returned channel, which is closed after the terminal done event.
func (s *Service) Stream(ctx context.Context, id content.Identity, req Request) (<-chan Event, error) {
	state, err := s.prepare(id, req)
	if err != nil {
		return nil, err
	}

	events := make(chan Event, 8)
	go func() {
		defer close(events)
		s.streamEvents(ctx, req, state, events)
	}()
	return events, nil
}

func (s *Service) streamEvents(ctx context.Context, req Request, state *requestState, events chan<- Event) {
	emit := func(name string, payload map[string]any) {
		select {
		case events <- Event{Name: name, Payload: payload}:
		case <-ctx.Done():
		}
	}

	if state.bundle != nil && strings.TrimSpace(state.bundle.PageDoc.Text) == "" {
		s.emitFinal(emit, req, state, ContentUnavailableMessage, nil, false)
		return
	}
	if resp, ok := s.quickAnswer(state, req); ok {
		s.emitSimulated(emit, state, resp)
		return
	}

	payload := BuildGatewayPayload(req, state.bundle, state.lastUser)
	stream, errMsg := s.gateway.StreamChat(ctx, payload)
	if stream != nil {
		defer stream.Close()
		s.relayUpstream(emit, req, state, stream)
		return
	}

	if gateway.IsNotFoundMessage(errMsg) {
		result := s.repairViaPrompt(ctx, req, state)
		if !result.Failed() {
			answer := result.AssistantText()
			if !s.answerAcceptable(answer, state) && state.bundle != nil {
				resp := s.localFallback(req, state)
				s.emitSimulated(emit, state, resp)
				return
			}
			resp := Response{
				ConversationID: result.ConversationID(req.ConversationID),
				Message:        Message{Role: "assistant", Content: answer},
				Citations:      mergeCitations(result.Citations(), state.bundle),
				Capabilities:   state.capabilities,
				UsedContext:    usedContext(state.bundle),
			}
			s.emitSimulated(emit, state, resp)
			return
		}
		if state.bundle != nil {
			s.emitSimulated(emit, state, s.localFallback(req, state))
			return
		}
		errMsg = result.Err
	}

	emit("error", map[string]any{"message": errMsg})
	emit("done", map[string]any{"capabilities": state.capabilities})
}

// emitSimulated replays a fully assembled response as synthetic token
// events followed by citations and done.
func (s *Service) emitSimulated(emit func(string, map[string]any), state *requestState, resp Response) {
	for _, chunk := range chunkText(resp.Message.Content, streamChunkSize) {
		emit("token", map[string]any{"delta": chunk})
	}
	if len(resp.Citations) > 0 {
		emit("citations", map[string]any{"citations": resp.Citations})
	}
	emit("done", map[string]any{
		"conversation_id": resp.ConversationID,
		"message":         map[string]any{"role": "assistant", "content": resp.Message.Content},
		"citations":       resp.Citations,
		"capabilities":    resp.Capabilities,
		"used_context":    resp.UsedContext,
	})
}

func (s *Service) emitFinal(emit func(string, map[string]any), req Request, state *requestState, text string, citations []Citation, includeContext bool) {
	for _, chunk := range chunkText(text, streamChunkSize) {
		emit("token", map[string]any{"delta": chunk})
	}
	if len(citations) > 0 {
		emit("citations", map[string]any{"citations": citations})
	}
	done := map[string]any{
		"conversation_id": req.ConversationID,
		"message":         map[string]any{"role": "assistant", "content": text},
		"citations":       citations,
		"capabilities":    state.capabilities,
	}
	if includeContext {
		done["used_context"] = usedContext(state.bundle)
	}
	emit("done", done)
}

// relayUpstream forwards the gateway's live event stream, assembling
// the full answer so the terminal done frame always carries it. When
// the assembled answer fails validation the done frame is replaced by
// the local fallback answer; already emitted tokens cannot be
// recalled, but done is the canonical message for clients.
func (s *Service) relayUpstream(emit func(string, map[string]any), req Request, state *requestState, stream upstreamStream) {
	var parts []string
	var citations []Citation
	conversationID := req.ConversationID
	doneEmitted := false

	err := stream.Events(func(eventName, data string) error {
		name, payload := parseStreamPayload(eventName, data)
		switch name {
		case "error":
			message := any(data)
			if m, ok := payload.(map[string]any); ok {
				if v, ok := m["message"]; ok {
					message = v
				}
			}
			emit("error", map[string]any{"message": message})
			emit("done", map[string]any{"capabilities": state.capabilities})
			doneEmitted = true
			return errStopRelay
		case "citations":
			citations = parseCitations(payload)
			emit("citations", map[string]any{"citations": citations})
		case "done":
			if m, ok := payload.(map[string]any); ok {
				if id := stringKey(m, "conversation_id", "conversationId"); id != "" {
					conversationID = id
				}
				if msg, ok := m["message"].(map[string]any); ok {
					if c, ok := msg["content"].(string); ok && c != "" {
						parts = []string{c}
					}
				}
				if raw, ok := m["citations"].([]any); ok {
					citations = parseCitations(raw)
				}
			}
			s.finishRelay(emit, req, state, strings.Join(parts, ""), citations, conversationID)
			doneEmitted = true
			return errStopRelay
		default: // token
			delta := tokenDelta(payload)
			if delta != "" {
				parts = append(parts, delta)
				emit("token", map[string]any{"delta": delta})
			}
		}
		return nil
	})
	if doneEmitted {
		return
	}
	if err != nil {
		emit("error", map[string]any{"message": err.Error()})
		emit("done", map[string]any{"capabilities": state.capabilities})
		return
	}
	s.finishRelay(emit, req, state, strings.Join(parts, ""), citations, conversationID)
}

// finishRelay validates the assembled answer and emits the terminal
// done frame, swapping in the local fallback when the answer is
// unusable or ungrounded.
func (s *Service) finishRelay(emit func(string, map[string]any), req Request, state *requestState, answer string, citations []Citation, conversationID string) {
	if !s.answerAcceptable(answer, state) && state.bundle != nil {
		fallback := s.localFallback(req, state)
		fallback.ConversationID = conversationID
		emit("done", map[string]any{
			"conversation_id": fallback.ConversationID,
			"message":         map[string]any{"role": "assistant", "content": fallback.Message.Content},
			"citations":       fallback.Citations,
			"capabilities":    fallback.Capabilities,
			"used_context":    fallback.UsedContext,
		})
		return
	}
	if len(citations) == 0 && state.bundle != nil {
		citations = mergeCitations(nil, state.bundle)
	}
	emit("done", map[string]any{
		"conversation_id": conversationID,
		"message":         map[string]any{"role": "assistant", "content": answer},
		"citations":       citations,
		"capabilities":    state.capabilities,
		"used_context":    usedContext(state.bundle),
	})
}

func tokenDelta(payload any) string {
	switch v := payload.(type) {
	case string:
		return v
	case map[string]any:
		for _, key := range []string{"delta", "token", "content", "text"} {
			if s, ok := v[key].(string); ok && s != "" {
				return s
			}
		}
	}
	return ""
}

func parseCitations(payload any) []Citation {
	var raw []any
	switch v := payload.(type) {
	case []any:
		raw = v
	case map[string]any:
		if list, ok := v["citations"].([]any); ok {
			raw = list
		}
	}
	var out []Citation
	for _, item := range raw {
		m, ok := item.(map[string]any)
		if !ok {
			continue
		}
		out = append(out, Citation{
			SourceID: stringKey(m, "source_id", "id"),
			Label:    stringKey(m, "label", "title"),
			URL:      stringKey(m, "url"),
			Snippet:  stringKey(m, "snippet", "text"),
		})
	}
	return out
}
