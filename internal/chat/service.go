package chat

import (
	"context"
	"fmt"
	"strings"

	"github.com/interaktiv/kyra-assist/internal/content"
	"github.com/interaktiv/kyra-assist/internal/gateway"
	"github.com/interaktiv/kyra-assist/internal/grounding"
	"github.com/interaktiv/kyra-assist/internal/intent"
	"github.com/interaktiv/kyra-assist/internal/platform/apierr"
	"github.com/interaktiv/kyra-assist/internal/platform/logger"
)

// Gateway is the slice of the gateway client the orchestrator needs.
type Gateway interface {
	SendChat(ctx context.Context, payload map[string]any) gateway.Result
	StreamChat(ctx context.Context, payload map[string]any) (*gateway.Stream, string)
}

// PromptApplier is the repair path: apply a lazily created chat prompt
// when the chat endpoint itself is missing.
type PromptApplier interface {
	Apply(ctx context.Context, payload gateway.ApplyPayload) gateway.Result
}

// Service drives one chat request from validation to a final answer.
type Service struct {
	log        *logger.Logger
	gateway    Gateway
	chatPrompt PromptApplier
	builder    *grounding.Builder
	intents    *intent.Classifier
	policy     *AnswerPolicy
	authz      content.Authorizer
}

func NewService(
	log *logger.Logger,
	gw Gateway,
	chatPrompt PromptApplier,
	builder *grounding.Builder,
	intents *intent.Classifier,
	policy *AnswerPolicy,
	authz content.Authorizer,
) *Service {
	return &Service{
		log:        log.With("service", "ChatService"),
		gateway:    gw,
		chatPrompt: chatPrompt,
		builder:    builder,
		intents:    intents,
		policy:     policy,
		authz:      authz,
	}
}

// requestState is everything derived from one request before talking
// to the gateway.
type requestState struct {
	lastUser     string
	bundle       *grounding.Bundle
	target       *content.Object
	capabilities Capabilities
}

// prepare validates the conversation and builds the grounding bundle.
// Without a context block the request stays ungrounded and goes to the
// gateway as-is.
func (s *Service) prepare(id content.Identity, req Request) (*requestState, error) {
	if err := ValidateMessages(req.Messages); err != nil {
		return nil, err
	}
	state := &requestState{lastUser: LastUserMessage(req.Messages)}

	if req.Context == nil {
		state.capabilities = CapabilitiesFor(id, s.authz, nil)
		return state, nil
	}

	greq := *req.Context
	if greq.Query == "" {
		greq.Query = state.lastUser
	}
	if s.intents.WantsSummary(state.lastUser) {
		greq.Mode = grounding.ModeSummarize
	}
	target, _ := s.builder.Resolve(greq.Page)
	bundle := s.builder.Build(greq)
	state.bundle = &bundle
	state.target = target
	state.capabilities = CapabilitiesFor(id, s.authz, target)
	return state, nil
}

// quickAnswer handles title-lookup intents without contacting the
// gateway. The second return is false when no quick answer applies.
func (s *Service) quickAnswer(state *requestState, req Request) (Response, bool) {
	if state.bundle == nil {
		return Response{}, false
	}
	respond := func(text string, doc grounding.Document) Response {
		return Response{
			ConversationID: req.ConversationID,
			Message:        Message{Role: "assistant", Content: text},
			Citations:      []Citation{citationFor(doc)},
			Capabilities:   state.capabilities,
			UsedContext:    state.bundle.Documents,
		}
	}
	if s.intents.IsSiteTitleLookup(state.lastUser) {
		for _, doc := range state.bundle.SiteDocs {
			if doc.Type == grounding.DocTypeSite {
				return respond(fmt.Sprintf("The title of this site is \"%s\".", doc.Title), doc), true
			}
		}
		// The page is the site root itself.
		return respond(fmt.Sprintf("The title of this site is \"%s\".", state.bundle.PageDoc.Title), state.bundle.PageDoc), true
	}
	if s.intents.IsPageTitleLookup(state.lastUser) {
		return respond(fmt.Sprintf("The title of this page is \"%s\".", state.bundle.PageDoc.Title), state.bundle.PageDoc), true
	}
	return Response{}, false
}

// Reply runs the non-streaming chat state machine.
func (s *Service) Reply(ctx context.Context, id content.Identity, req Request) (Response, error) {
	state, err := s.prepare(id, req)
	if err != nil {
		return Response{}, err
	}

	if state.bundle != nil && strings.TrimSpace(state.bundle.PageDoc.Text) == "" {
		return Response{
			ConversationID: req.ConversationID,
			Message:        Message{Role: "assistant", Content: ContentUnavailableMessage},
			Citations:      []Citation{},
			Capabilities:   state.capabilities,
		}, nil
	}

	if resp, ok := s.quickAnswer(state, req); ok {
		return resp, nil
	}

	payload := BuildGatewayPayload(req, state.bundle, state.lastUser)
	result := s.gateway.SendChat(ctx, payload)

	if result.Failed() {
		if !result.NotFound() {
			return Response{}, apierr.Upstream(result.Err)
		}
		result = s.repairViaPrompt(ctx, req, state)
		if result.Failed() {
			if state.bundle != nil {
				return s.localFallback(req, state), nil
			}
			return Response{}, apierr.Upstream(result.Err)
		}
	}

	answer := result.AssistantText()
	repairedOnce := false
	if strings.TrimSpace(answer) == "" {
		// A 2xx with no answer text gets the same repair as a 404.
		repaired := s.repairViaPrompt(ctx, req, state)
		repairedOnce = true
		if repaired.Failed() {
			if state.bundle != nil {
				return s.localFallback(req, state), nil
			}
			return Response{}, apierr.Upstream(repaired.Err)
		}
		result = repaired
		answer = repaired.AssistantText()
	}
	if !s.answerAcceptable(answer, state) {
		if state.bundle != nil {
			return s.localFallback(req, state), nil
		}
		if repairedOnce {
			return Response{}, apierr.Upstream("Unusable answer from gateway")
		}
		// No grounding context to fall back on; repair once.
		repaired := s.repairViaPrompt(ctx, req, state)
		if repaired.Failed() {
			return Response{}, apierr.Upstream(repaired.Err)
		}
		answer = repaired.AssistantText()
		result = repaired
	}

	return Response{
		ConversationID: result.ConversationID(req.ConversationID),
		Message:        Message{Role: "assistant", Content: answer},
		Citations:      mergeCitations(result.Citations(), state.bundle),
		Capabilities:   state.capabilities,
		UsedContext:    usedContext(state.bundle),
	}, nil
}

// answerAcceptable checks the answer is non-empty, not a
// leaked template, grounded when the mode requires it.
func (s *Service) answerAcceptable(answer string, state *requestState) bool {
	if strings.TrimSpace(answer) == "" {
		return false
	}
	if s.policy.Unusable(answer) {
		return false
	}
	if state.bundle != nil && s.intents.NeedsGroundedResponse(state.lastUser, state.bundle.Mode) {
		return Grounded(answer, state.bundle.PageDoc)
	}
	return true
}

// repairViaPrompt applies the lazily managed chat prompt with the last
// user utterance. The applier itself handles the invalidate-and-retry
// discipline for stale prompt ids.
func (s *Service) repairViaPrompt(ctx context.Context, req Request, state *requestState) gateway.Result {
	if s.chatPrompt == nil {
		return gateway.Errf("No chat prompt configured")
	}
	payload := gateway.ApplyPayload{Query: state.lastUser, Input: state.lastUser}
	if lang, ok := req.Params["language"].(string); ok {
		payload.Language = lang
	}
	return s.chatPrompt.Apply(ctx, payload)
}

func (s *Service) localFallback(req Request, state *requestState) Response {
	answer := FallbackAnswer(state.bundle, state.lastUser)
	citations := []Citation{}
	if answer != ContentUnavailableMessage {
		citations = []Citation{citationFor(state.bundle.PageDoc)}
	}
	return Response{
		ConversationID: req.ConversationID,
		Message:        Message{Role: "assistant", Content: answer},
		Citations:      citations,
		Capabilities:   state.capabilities,
		UsedContext:    usedContext(state.bundle),
	}
}

func usedContext(bundle *grounding.Bundle) []grounding.Document {
	if bundle == nil {
		return nil
	}
	return bundle.Documents
}
