package actions

import (
	"testing"

	"github.com/interaktiv/kyra-assist/internal/gateway"
)

func TestPlanPayloadShapes(t *testing.T) {
	cases := []struct {
		name   string
		result gateway.Result
		want   int
	}{
		{
			name: "top level actions",
			result: gateway.Ok(map[string]any{
				"actions": []any{map[string]any{"type": "update_title", "payload": map[string]any{"title": "A"}}},
			}),
			want: 1,
		},
		{
			name: "wrapped in result object",
			result: gateway.Ok(map[string]any{
				"result": map[string]any{
					"actions": []any{map[string]any{"type": "update_title", "payload": map[string]any{"title": "A"}}},
				},
			}),
			want: 1,
		},
		{
			name: "json text with prose",
			result: gateway.Ok(map[string]any{
				"response": `Here you go: {"actions": [{"type": "update_title", "payload": {"title": "A"}}]}`,
			}),
			want: 1,
		},
		{
			name:   "bare array response",
			result: gateway.OkList([]any{map[string]any{"type": "update_title", "payload": map[string]any{"title": "A"}}}),
			want:   1,
		},
		{
			name:   "garbage yields nothing",
			result: gateway.Ok(map[string]any{"response": "no json here"}),
			want:   0,
		},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			payload := planPayload(tc.result)
			got := len(NormalizeAll(rawActionList(payload)))
			if got != tc.want {
				t.Fatalf("actions = %d, want %d", got, tc.want)
			}
		})
	}
}

func TestExtractJSONFromTextFences(t *testing.T) {
	text := "```json\n{\"actions\": []}\n```"
	payload := extractJSONFromText(text)
	m, ok := payload.(map[string]any)
	if !ok {
		t.Fatalf("payload = %T, want object", payload)
	}
	if _, ok := m["actions"]; !ok {
		t.Fatalf("payload = %v", m)
	}
}
