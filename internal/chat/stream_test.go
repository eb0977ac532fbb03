package chat

import (
	"context"
	"io"
	"strings"
	"testing"

	"github.com/interaktiv/kyra-assist/internal/content"
	"github.com/interaktiv/kyra-assist/internal/gateway"
)

type streamingGateway struct {
	fakeGateway
	body string
}

func (g *streamingGateway) StreamChat(_ context.Context, payload map[string]any) (*gateway.Stream, string) {
	g.lastPayload = payload
	if g.body == "" {
		return nil, g.streamErr
	}
	return gateway.NewStream(io.NopCloser(strings.NewReader(g.body))), ""
}

func collectEvents(t *testing.T, ch <-chan Event) []Event {
	t.Helper()
	var events []Event
	for ev := range ch {
		events = append(events, ev)
	}
	return events
}

func TestChunkText(t *testing.T) {
	cases := []struct {
		text string
		want int
	}{
		{"", 0},
		{strings.Repeat("a", 32), 1},
		{strings.Repeat("a", 33), 2},
		{strings.Repeat("a", 96), 3},
	}
	for _, tc := range cases {
		if got := len(chunkText(tc.text, streamChunkSize)); got != tc.want {
			t.Fatalf("chunkText(%d chars) = %d chunks, want %d", len(tc.text), got, tc.want)
		}
	}
}

func TestStreamSimulatedFallback(t *testing.T) {
	gw := &fakeGateway{streamErr: "404 Not Found"}
	applier := &fakeApplier{result: gateway.Ok(map[string]any{"response": "Short answer about AI Chat Sample."})}
	svc, _ := newTestService(gw, applier)

	ch, err := svc.Stream(context.Background(), content.Identity{}, Request{
		Messages: []Message{{Role: "user", Content: "Tell me about this page"}},
		Context:  pageContext(),
	})
	if err != nil {
		t.Fatalf("Stream: %v", err)
	}
	events := collectEvents(t, ch)
	if len(events) == 0 {
		t.Fatalf("no events emitted")
	}

	last := events[len(events)-1]
	if last.Name != "done" {
		t.Fatalf("last event = %q, want done", last.Name)
	}
	doneCount := 0
	var tokens []string
	for _, ev := range events {
		switch ev.Name {
		case "done":
			doneCount++
		case "token":
			delta, _ := ev.Payload["delta"].(string)
			if len([]rune(delta)) > streamChunkSize {
				t.Fatalf("token chunk too large: %q", delta)
			}
			tokens = append(tokens, delta)
		}
	}
	if doneCount != 1 {
		t.Fatalf("done events = %d, want exactly 1", doneCount)
	}

	message, _ := last.Payload["message"].(map[string]any)
	full, _ := message["content"].(string)
	if strings.Join(tokens, "") != full {
		t.Fatalf("token deltas %q do not assemble the done message %q", strings.Join(tokens, ""), full)
	}
}

func TestStreamRelayAssemblesTokens(t *testing.T) {
	body := "event: token\n" +
		"data: {\"delta\": \"AI Chat Sample \"}\n\n" +
		"data: covers Alpha.\n\n" +
		"event: done\n" +
		"data: {\"conversation_id\": \"conv-9\"}\n\n"
	gw := &streamingGateway{body: body}
	svc, _ := newTestService(&gw.fakeGateway, nil)
	svc.gateway = gw

	ch, err := svc.Stream(context.Background(), content.Identity{}, Request{
		Messages: []Message{{Role: "user", Content: "Tell me about this page"}},
		Context:  pageContext(),
	})
	if err != nil {
		t.Fatalf("Stream: %v", err)
	}
	events := collectEvents(t, ch)

	last := events[len(events)-1]
	if last.Name != "done" {
		t.Fatalf("last event = %q, want done", last.Name)
	}
	if got := last.Payload["conversation_id"]; got != "conv-9" {
		t.Fatalf("conversation_id = %v, want conv-9", got)
	}
	message, _ := last.Payload["message"].(map[string]any)
	if content, _ := message["content"].(string); content != "AI Chat Sample covers Alpha." {
		t.Fatalf("assembled content = %q", content)
	}
}

func TestStreamRelayErrorEmitsErrorThenDone(t *testing.T) {
	body := "event: error\n" +
		"data: {\"message\": \"upstream exploded\"}\n\n"
	gw := &streamingGateway{body: body}
	svc, _ := newTestService(&gw.fakeGateway, nil)
	svc.gateway = gw

	ch, err := svc.Stream(context.Background(), content.Identity{}, Request{
		Messages: []Message{{Role: "user", Content: "Tell me about this page"}},
		Context:  pageContext(),
	})
	if err != nil {
		t.Fatalf("Stream: %v", err)
	}
	events := collectEvents(t, ch)
	if len(events) != 2 {
		t.Fatalf("events = %d, want error+done", len(events))
	}
	if events[0].Name != "error" || events[1].Name != "done" {
		t.Fatalf("event order = %s,%s want error,done", events[0].Name, events[1].Name)
	}
	if events[0].Payload["message"] != "upstream exploded" {
		t.Fatalf("error payload = %v", events[0].Payload)
	}
}

func TestStreamValidationFailsSynchronously(t *testing.T) {
	svc, _ := newTestService(&fakeGateway{}, nil)
	if _, err := svc.Stream(context.Background(), content.Identity{}, Request{}); err == nil {
		t.Fatalf("expected validation error")
	}
}

func TestParseStreamPayloadTolerance(t *testing.T) {
	cases := []struct {
		name     string
		event    string
		data     string
		wantName string
	}{
		{"explicit event", "token", `{"delta":"x"}`, "token"},
		{"type field", "", `{"type":"citations","citations":[]}`, "citations"},
		{"non-json opaque", "", "plain words", "token"},
		{"default token", "", `{"delta":"y"}`, "token"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			name, payload := parseStreamPayload(tc.event, tc.data)
			if name != tc.wantName {
				t.Fatalf("event = %q, want %q", name, tc.wantName)
			}
			if tc.name == "non-json opaque" {
				if s, ok := payload.(string); !ok || s != "plain words" {
					t.Fatalf("payload = %v, want opaque string", payload)
				}
			}
		})
	}
}
