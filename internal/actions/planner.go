package actions

import (
	"context"
	"encoding/json"
	"strings"

	"github.com/interaktiv/kyra-assist/internal/content"
	"github.com/interaktiv/kyra-assist/internal/gateway"
	"github.com/interaktiv/kyra-assist/internal/platform/logger"
)

// PlannerPromptCacheKey is where the planner prompt id lives in the
// shared cache.
const PlannerPromptCacheKey = "kyra:actions:planner_prompt_id"

// PlannerPromptPayload is the prompt created upstream for action
// planning.
func PlannerPromptPayload() map[string]any {
	return map[string]any{
		"name": "Kyra Actions Planner",
		"prompt": "You are a planning assistant for content editor actions.\n" +
			"Given a user request and the current page metadata, return JSON only with an action plan.\n\n" +
			"Allowed action types:\n" +
			"- update_title (payload: {\"title\": \"...\"})\n" +
			"- update_description (payload: {\"description\": \"...\"})\n" +
			"- update_language (payload: {\"language\": \"...\"})\n" +
			"- insert_text_block (payload: {\"text\": \"...\"})\n" +
			"- insert_heading_block (payload: {\"text\": \"...\", \"level\": 2})\n" +
			"- insert_list_block (payload: {\"items\": [\"...\"], \"ordered\": false})\n" +
			"- insert_quote_block (payload: {\"text\": \"...\", \"citation\": \"...\"})\n" +
			"- insert_image_block (payload: {\"url\": \"...\" OR \"uid\": \"...\", \"alt\": \"...\", \"scale\": \"large\"})\n\n" +
			"If the request asks to improve the description but no new text is given,\n" +
			"rewrite the current description into a clearer, shorter version. If the\n" +
			"current description is empty, draft a concise one-sentence description.\n" +
			"If the request is unclear or unsupported, return an empty actions array.\n" +
			"Return JSON in this shape:\n" +
			"{\"actions\": [{\"type\": \"...\", \"payload\": {...}}], \"summary\": \"...\"}\n\n" +
			"INPUT:\n{{input}}\n\n" +
			"Return JSON only. Do not wrap in code fences.",
		"categories": []string{"Actions"},
		"actionType": "replace",
		"metadata":   map[string]any{"categories": []string{"Actions"}, "action": "replace"},
	}
}

// PromptApplier is the slice of the gateway the planner needs; the
// concrete implementation manages prompt creation and stale-id retry.
type PromptApplier interface {
	Apply(ctx context.Context, payload gateway.ApplyPayload) gateway.Result
}

// Planner derives actions for a goal, preferring the gateway and
// falling back to local extraction.
type Planner struct {
	log    *logger.Logger
	prompt PromptApplier
}

func NewPlanner(log *logger.Logger, prompt PromptApplier) *Planner {
	return &Planner{log: log.With("service", "ActionPlanner"), prompt: prompt}
}

// buildPlanInput renders the goal plus current page metadata as the
// prompt input.
func buildPlanInput(goal string, target *content.Object) string {
	lines := []string{"Request: " + strings.TrimSpace(goal)}
	if target != nil {
		if target.Title != "" {
			lines = append(lines, "Current title: "+target.Title)
		}
		if target.Description != "" {
			lines = append(lines, "Current description: "+target.Description)
		}
		if target.Language != "" {
			lines = append(lines, "Current language: "+target.Language)
		}
	}
	return strings.Join(lines, "\n")
}

// Derive returns the normalized action list for goal: label
// extraction, then the gateway plan, then free-form pattern
// extraction. Unnormalizable gateway records are dropped silently.
func (p *Planner) Derive(ctx context.Context, goal string, target *content.Object) []Action {
	if p.prompt != nil {
		if actions := p.deriveFromGateway(ctx, goal, target); len(actions) > 0 {
			return actions
		}
	}
	if actions := DeriveFromLabels(goal); len(actions) > 0 {
		return actions
	}
	return DeriveFromPatterns(goal)
}

func (p *Planner) deriveFromGateway(ctx context.Context, goal string, target *content.Object) []Action {
	result := p.prompt.Apply(ctx, gateway.ApplyPayload{
		Query: goal,
		Input: buildPlanInput(goal, target),
	})
	if result.Failed() {
		p.log.Warn("gateway planning failed", "error", result.Err)
		return nil
	}

	payload := planPayload(result)
	if payload == nil {
		return nil
	}
	return NormalizeAll(rawActionList(payload))
}

// planPayload digs the plan JSON out of the gateway response: a
// top-level actions list, a wrapping result/response/data value
// (object, list or JSON text), or JSON embedded in the answer text.
func planPayload(result gateway.Result) any {
	if result.Data != nil {
		if _, ok := result.Data["actions"].([]any); ok {
			return result.Data
		}
		for _, key := range []string{"result", "response", "data"} {
			switch value := result.Data[key].(type) {
			case map[string]any, []any:
				return value
			case string:
				return extractJSONFromText(value)
			}
		}
	}
	if result.List != nil {
		return result.List
	}
	return extractJSONFromText(result.AssistantText())
}

// rawActionList accepts either a bare array or an object wrapping an
// actions array.
func rawActionList(payload any) []map[string]any {
	var list []any
	switch v := payload.(type) {
	case map[string]any:
		list, _ = v["actions"].([]any)
	case []any:
		list = v
	}
	var out []map[string]any
	for _, item := range list {
		if m, ok := item.(map[string]any); ok {
			out = append(out, m)
		}
	}
	return out
}

// extractJSONFromText tolerates code fences and prose around the JSON
// document.
func extractJSONFromText(text string) any {
	text = strings.TrimSpace(text)
	if text == "" {
		return nil
	}
	if strings.HasPrefix(text, "```") {
		text = strings.Trim(text, "`")
		text = strings.TrimSpace(text)
		text = strings.TrimPrefix(text, "json")
		text = strings.TrimSpace(text)
	}
	if strings.HasPrefix(text, "{") || strings.HasPrefix(text, "[") {
		var decoded any
		if err := json.Unmarshal([]byte(text), &decoded); err == nil {
			return decoded
		}
	}
	start := strings.Index(text, "{")
	end := strings.LastIndex(text, "}")
	if start != -1 && end > start {
		var decoded any
		if err := json.Unmarshal([]byte(text[start:end+1]), &decoded); err == nil {
			return decoded
		}
	}
	return nil
}
