package chat

import (
	"context"
	"strings"
	"testing"

	"github.com/interaktiv/kyra-assist/internal/content"
	"github.com/interaktiv/kyra-assist/internal/gateway"
	"github.com/interaktiv/kyra-assist/internal/grounding"
	"github.com/interaktiv/kyra-assist/internal/intent"
	"github.com/interaktiv/kyra-assist/internal/platform/logger"
)

type fakeGateway struct {
	sendResult  gateway.Result
	sendCalls   int
	lastPayload map[string]any
	streamErr   string
}

func (f *fakeGateway) SendChat(_ context.Context, payload map[string]any) gateway.Result {
	f.sendCalls++
	f.lastPayload = payload
	return f.sendResult
}

func (f *fakeGateway) StreamChat(_ context.Context, payload map[string]any) (*gateway.Stream, string) {
	f.lastPayload = payload
	if f.streamErr == "" {
		f.streamErr = "404 Not Found"
	}
	return nil, f.streamErr
}

type fakeApplier struct {
	result gateway.Result
	calls  int
}

func (f *fakeApplier) Apply(_ context.Context, _ gateway.ApplyPayload) gateway.Result {
	f.calls++
	return f.result
}

func newTestStore() *content.MemStore {
	store := content.NewMemStore(&content.Object{
		UID:   "root-uid",
		Path:  "",
		URL:   "http://site.example",
		Title: "Example Site",
	})
	store.Add(&content.Object{
		UID:         "page-uid",
		Path:        "sample",
		URL:         "http://site.example/sample",
		Title:       "AI Chat Sample",
		Description: "Sample page for AI chat",
		Blocks: map[string]map[string]any{
			"b1": {"@type": "text", "text": "Alpha Beta Gamma. <strong>Delta</strong> text."},
		},
		BlockOrder: []string{"b1"},
	})
	return store
}

func newTestService(gw *fakeGateway, applier *fakeApplier) (*Service, *content.MemStore) {
	store := newTestStore()
	log := logger.NewNop()
	builder := grounding.NewBuilder(log, store, store)
	var prompt PromptApplier
	if applier != nil {
		prompt = applier
	}
	svc := NewService(log, gw, prompt, builder, intent.NewDefaultClassifier(),
		NewDefaultAnswerPolicy(), content.RoleAuthorizer{})
	return svc, store
}

func pageContext() *grounding.Request {
	return &grounding.Request{
		Mode: grounding.ModePage,
		Page: grounding.Locator{UID: "page-uid", URL: "http://site.example/sample"},
	}
}

func TestReplyWithoutContext(t *testing.T) {
	gw := &fakeGateway{sendResult: gateway.Ok(map[string]any{"response": "Hi there!"})}
	svc, _ := newTestService(gw, nil)

	resp, err := svc.Reply(context.Background(), content.Identity{}, Request{
		Messages: []Message{{Role: "user", Content: "Hello"}},
	})
	if err != nil {
		t.Fatalf("Reply: %v", err)
	}
	if resp.Message.Content != "Hi there!" {
		t.Fatalf("content = %q, want gateway answer", resp.Message.Content)
	}
	if len(resp.Capabilities.Features) != 1 || resp.Capabilities.Features[0] != "chat" {
		t.Fatalf("features = %v, want [chat]", resp.Capabilities.Features)
	}
	if !resp.Capabilities.IsAnonymous {
		t.Fatalf("expected anonymous capabilities")
	}
}

func TestReplyValidation(t *testing.T) {
	svc, _ := newTestService(&fakeGateway{}, nil)

	cases := []struct {
		name     string
		messages []Message
	}{
		{"empty", nil},
		{"bad role", []Message{{Role: "narrator", Content: "hi"}}},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if _, err := svc.Reply(context.Background(), content.Identity{}, Request{Messages: tc.messages}); err == nil {
				t.Fatalf("expected validation error")
			}
		})
	}
}

func TestReplyBuildsGroundedPayload(t *testing.T) {
	gw := &fakeGateway{sendResult: gateway.Ok(map[string]any{"response": "The AI Chat Sample page covers Alpha Beta Gamma."})}
	svc, _ := newTestService(gw, nil)

	resp, err := svc.Reply(context.Background(), content.Identity{}, Request{
		Messages: []Message{{Role: "user", Content: "Tell me about this page"}},
		Context:  pageContext(),
	})
	if err != nil {
		t.Fatalf("Reply: %v", err)
	}

	if gw.lastPayload["context_documents"] == nil {
		t.Fatalf("payload missing context_documents")
	}
	messages, ok := gw.lastPayload["messages"].([]map[string]any)
	if !ok || len(messages) == 0 {
		t.Fatalf("payload messages malformed: %v", gw.lastPayload["messages"])
	}
	if messages[0]["role"] != "system" {
		t.Fatalf("first message role = %v, want system", messages[0]["role"])
	}
	if !strings.Contains(messages[0]["content"].(string), "Use ONLY the provided context documents") {
		t.Fatalf("system message lacks grounding instruction: %q", messages[0]["content"])
	}

	if len(resp.Citations) == 0 || resp.Citations[0].SourceID != "page-uid" {
		t.Fatalf("citations = %+v, want page-uid first", resp.Citations)
	}
	if len(resp.UsedContext) == 0 {
		t.Fatalf("expected used_context documents")
	}
}

func TestReplyGatewayNotFoundFallsBackToSummary(t *testing.T) {
	gw := &fakeGateway{sendResult: gateway.Errf("404 Not Found")}
	applier := &fakeApplier{result: gateway.Errf("404 Not Found")}
	svc, _ := newTestService(gw, applier)

	resp, err := svc.Reply(context.Background(), content.Identity{}, Request{
		Messages: []Message{{Role: "user", Content: "Summarize this page"}},
		Context:  pageContext(),
	})
	if err != nil {
		t.Fatalf("Reply: %v", err)
	}
	if !strings.HasPrefix(resp.Message.Content, "Summary of AI Chat Sample:") {
		t.Fatalf("content = %q, want extractive summary", resp.Message.Content)
	}
	if len(resp.Citations) == 0 || resp.Citations[0].SourceID != "page-uid" {
		t.Fatalf("citations = %+v, want page citation", resp.Citations)
	}
	if applier.calls == 0 {
		t.Fatalf("expected prompt repair attempt before local fallback")
	}
}

func TestReplyEmptyAnswerRepairsViaPrompt(t *testing.T) {
	gw := &fakeGateway{sendResult: gateway.Ok(map[string]any{
		"message": map[string]any{"content": ""},
	})}
	applier := &fakeApplier{result: gateway.Ok(map[string]any{
		"response": "AI Chat Sample covers Alpha Beta Gamma.",
	})}
	svc, _ := newTestService(gw, applier)

	resp, err := svc.Reply(context.Background(), content.Identity{}, Request{
		Messages: []Message{{Role: "user", Content: "Tell me about this page"}},
		Context:  pageContext(),
	})
	if err != nil {
		t.Fatalf("Reply: %v", err)
	}
	if applier.calls != 1 {
		t.Fatalf("prompt applied %d times, want 1", applier.calls)
	}
	if resp.Message.Content != "AI Chat Sample covers Alpha Beta Gamma." {
		t.Fatalf("content = %q, want repaired answer", resp.Message.Content)
	}
}

func TestReplyEmptyAnswerRepairFailureFallsBack(t *testing.T) {
	gw := &fakeGateway{sendResult: gateway.Ok(map[string]any{
		"message": map[string]any{"content": "  "},
	})}
	applier := &fakeApplier{result: gateway.Errf("502 Bad Gateway")}
	svc, _ := newTestService(gw, applier)

	resp, err := svc.Reply(context.Background(), content.Identity{}, Request{
		Messages: []Message{{Role: "user", Content: "Summarize this page"}},
		Context:  pageContext(),
	})
	if err != nil {
		t.Fatalf("Reply: %v", err)
	}
	if applier.calls != 1 {
		t.Fatalf("prompt applied %d times, want 1", applier.calls)
	}
	if !strings.HasPrefix(resp.Message.Content, "Summary of AI Chat Sample:") {
		t.Fatalf("content = %q, want extractive summary", resp.Message.Content)
	}
}

func TestReplyLeakedTemplateTriggersFallback(t *testing.T) {
	gw := &fakeGateway{sendResult: gateway.Ok(map[string]any{
		"message": map[string]any{
			"role":    "assistant",
			"content": "Please modify the text according to the instruction and user query, maintaining proper TinyMCE HTML formatting:",
		},
	})}
	svc, _ := newTestService(gw, nil)

	resp, err := svc.Reply(context.Background(), content.Identity{}, Request{
		Messages: []Message{{Role: "user", Content: "Summarize this page"}},
		Context:  pageContext(),
	})
	if err != nil {
		t.Fatalf("Reply: %v", err)
	}
	if !strings.HasPrefix(resp.Message.Content, "Summary of AI Chat Sample:") {
		t.Fatalf("content = %q, want fallback instead of leaked template", resp.Message.Content)
	}
}

func TestReplyUngroundedSummarizeTriggersFallback(t *testing.T) {
	gw := &fakeGateway{sendResult: gateway.Ok(map[string]any{
		"message": map[string]any{"role": "assistant", "content": "Bitte fassen Sie den Inhalt zusammen."},
	})}
	svc, _ := newTestService(gw, nil)

	resp, err := svc.Reply(context.Background(), content.Identity{}, Request{
		Messages: []Message{{Role: "user", Content: "Fasse den Inhalt zusammen"}},
		Context:  pageContext(),
	})
	if err != nil {
		t.Fatalf("Reply: %v", err)
	}
	if !strings.HasPrefix(resp.Message.Content, "Summary of AI Chat Sample:") {
		t.Fatalf("content = %q, want fallback", resp.Message.Content)
	}
	if resp.Citations[0].SourceID != "page-uid" {
		t.Fatalf("citations = %+v", resp.Citations)
	}
}

func TestReplySearchModeFallbackMentionsSearchResults(t *testing.T) {
	gw := &fakeGateway{sendResult: gateway.Errf("404 Not Found")}
	svc, _ := newTestService(gw, nil)

	ctx := pageContext()
	ctx.Mode = grounding.ModeSearch
	ctx.Query = "career development"
	resp, err := svc.Reply(context.Background(), content.Identity{}, Request{
		Messages: []Message{{Role: "user", Content: "Find posts about careers"}},
		Context:  ctx,
	})
	if err != nil {
		t.Fatalf("Reply: %v", err)
	}
	if !strings.Contains(strings.ToLower(resp.Message.Content), "search results") {
		t.Fatalf("content = %q, want search-results apology", resp.Message.Content)
	}
}

func TestReplyPageModeFallbackQuotesQuestion(t *testing.T) {
	gw := &fakeGateway{sendResult: gateway.Errf("404 Not Found")}
	svc, _ := newTestService(gw, nil)

	resp, err := svc.Reply(context.Background(), content.Identity{}, Request{
		Messages: []Message{{Role: "user", Content: "Was kannst du tun?"}},
		Context:  pageContext(),
	})
	if err != nil {
		t.Fatalf("Reply: %v", err)
	}
	if !strings.Contains(strings.ToLower(resp.Message.Content), "was kannst du") {
		t.Fatalf("content = %q, want the question quoted", resp.Message.Content)
	}
}

func TestReplyContentUnavailable(t *testing.T) {
	gw := &fakeGateway{}
	svc, store := newTestService(gw, nil)
	store.Add(&content.Object{UID: "empty-uid", Path: "empty", URL: "http://site.example/empty"})

	resp, err := svc.Reply(context.Background(), content.Identity{}, Request{
		Messages: []Message{{Role: "user", Content: "What is here?"}},
		Context: &grounding.Request{
			Mode: grounding.ModePage,
			Page: grounding.Locator{UID: "empty-uid"},
		},
	})
	if err != nil {
		t.Fatalf("Reply: %v", err)
	}
	if resp.Message.Content != ContentUnavailableMessage {
		t.Fatalf("content = %q, want content-unavailable message", resp.Message.Content)
	}
	if len(resp.Citations) != 0 {
		t.Fatalf("citations = %+v, want none", resp.Citations)
	}
	if gw.sendCalls != 0 {
		t.Fatalf("gateway called %d times, want 0", gw.sendCalls)
	}
}

func TestReplyPageTitleQuickAnswer(t *testing.T) {
	gw := &fakeGateway{}
	svc, _ := newTestService(gw, nil)

	resp, err := svc.Reply(context.Background(), content.Identity{}, Request{
		Messages: []Message{{Role: "user", Content: "What is the title of this page"}},
		Context:  pageContext(),
	})
	if err != nil {
		t.Fatalf("Reply: %v", err)
	}
	if !strings.Contains(resp.Message.Content, "AI Chat Sample") {
		t.Fatalf("content = %q, want page title", resp.Message.Content)
	}
	if gw.sendCalls != 0 {
		t.Fatalf("quick answer must not call the gateway")
	}
	if resp.Citations[0].SourceID != "page-uid" {
		t.Fatalf("citations = %+v", resp.Citations)
	}
}

func TestReplyEditorCapabilities(t *testing.T) {
	gw := &fakeGateway{sendResult: gateway.Ok(map[string]any{"response": "AI Chat Sample is a demo page."})}
	svc, _ := newTestService(gw, nil)

	editor := content.Identity{UserID: "alice", Roles: []string{content.RoleEditor}}
	resp, err := svc.Reply(context.Background(), editor, Request{
		Messages: []Message{{Role: "user", Content: "Tell me about this page"}},
		Context:  pageContext(),
	})
	if err != nil {
		t.Fatalf("Reply: %v", err)
	}
	want := []string{"chat", "actions_plan", "actions_apply"}
	if len(resp.Capabilities.Features) != len(want) {
		t.Fatalf("features = %v, want %v", resp.Capabilities.Features, want)
	}
	for i, f := range want {
		if resp.Capabilities.Features[i] != f {
			t.Fatalf("features = %v, want %v", resp.Capabilities.Features, want)
		}
	}
}
