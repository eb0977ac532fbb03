package actions

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/interaktiv/kyra-assist/internal/audit"
	"github.com/interaktiv/kyra-assist/internal/content"
	"github.com/interaktiv/kyra-assist/internal/gateway"
	"github.com/interaktiv/kyra-assist/internal/grounding"
	"github.com/interaktiv/kyra-assist/internal/platform/apierr"
	"github.com/interaktiv/kyra-assist/internal/platform/logger"
)

type fakePromptApplier struct {
	result gateway.Result
	calls  int
}

func (f *fakePromptApplier) Apply(_ context.Context, _ gateway.ApplyPayload) gateway.Result {
	f.calls++
	return f.result
}

func newActionsFixture(prompt PromptApplier) (*Service, *content.MemStore, *content.Object) {
	store := content.NewMemStore(&content.Object{
		UID: "root-uid", URL: "http://site.example", Title: "Example Site",
	})
	page := &content.Object{
		UID:         "page-uid",
		Path:        "sample",
		URL:         "http://site.example/sample",
		Title:       "Old Title",
		Description: "Old description",
		Blocks:      map[string]map[string]any{},
	}
	store.Add(page)

	log := logger.NewNop()
	svc := NewService(log, store, content.RoleAuthorizer{},
		NewPlanner(log, prompt), NewPlanStore(), audit.NewLog(log, store))
	return svc, store, page
}

func editor() content.Identity {
	return content.Identity{UserID: "alice", Roles: []string{content.RoleEditor}}
}

func TestPlanAnonymousRejectedBeforeGateway(t *testing.T) {
	prompt := &fakePromptApplier{result: gateway.Ok(map[string]any{"actions": []any{}})}
	svc, _, page := newActionsFixture(prompt)

	_, err := svc.Plan(context.Background(), content.Identity{}, PlanRequest{
		Goal: "set title: New",
		Page: grounding.Locator{UID: "page-uid"},
	})
	if err == nil {
		t.Fatalf("expected authorization error")
	}
	if status := apierr.Status(err); status != 401 && status != 403 {
		t.Fatalf("status = %d, want authorization failure", status)
	}
	if prompt.calls != 0 {
		t.Fatalf("gateway called %d times, want 0", prompt.calls)
	}
	if _, ok := page.Annotation("kyra.ai_actions_plans"); ok {
		t.Fatalf("plan persisted despite authorization failure")
	}
}

func TestPlanMissingGoal(t *testing.T) {
	svc, _, _ := newActionsFixture(nil)
	_, err := svc.Plan(context.Background(), editor(), PlanRequest{
		Goal: "  ",
		Page: grounding.Locator{UID: "page-uid"},
	})
	if apierr.Status(err) != 400 {
		t.Fatalf("err = %v, want validation error", err)
	}
}

func TestPlanUsesGatewayActions(t *testing.T) {
	prompt := &fakePromptApplier{result: gateway.Ok(map[string]any{
		"response": "```json\n{\"actions\": [{\"type\": \"update_title\", \"payload\": {\"title\": \"Fresh Title\"}}], \"summary\": \"rename\"}\n```",
	})}
	svc, _, _ := newActionsFixture(prompt)

	resp, err := svc.Plan(context.Background(), editor(), PlanRequest{
		Goal: "Rename the page",
		Page: grounding.Locator{UID: "page-uid"},
	})
	if err != nil {
		t.Fatalf("Plan: %v", err)
	}
	if resp.PlanID == "" {
		t.Fatalf("missing plan id")
	}
	if len(resp.Actions) != 1 || resp.Actions[0]["type"] != "update_title" {
		t.Fatalf("actions = %v", resp.Actions)
	}
	if !strings.Contains(resp.Preview.Summary, "Update title") {
		t.Fatalf("preview = %+v", resp.Preview)
	}
	if !strings.Contains(resp.Preview.Diff, "Fresh Title") {
		t.Fatalf("diff = %q", resp.Preview.Diff)
	}
}

func TestPlanFallsBackToPatterns(t *testing.T) {
	prompt := &fakePromptApplier{result: gateway.Errf("404 Not Found")}
	svc, _, _ := newActionsFixture(prompt)

	resp, err := svc.Plan(context.Background(), editor(), PlanRequest{
		Goal: "title: Pattern Title",
		Page: grounding.Locator{UID: "page-uid"},
	})
	if err != nil {
		t.Fatalf("Plan: %v", err)
	}
	if len(resp.Actions) != 1 || resp.Actions[0]["type"] != "update_title" {
		t.Fatalf("actions = %v", resp.Actions)
	}
	payload := resp.Actions[0]["payload"].(map[string]any)
	if payload["title"] != "Pattern Title" {
		t.Fatalf("payload = %v", payload)
	}
}

func TestApplyPlanRoundTrip(t *testing.T) {
	svc, _, page := newActionsFixture(nil)

	plan, err := svc.Plan(context.Background(), editor(), PlanRequest{
		Goal: "title: Round Trip Title; description: Round trip description",
		Page: grounding.Locator{UID: "page-uid"},
	})
	if err != nil {
		t.Fatalf("Plan: %v", err)
	}

	resp, err := svc.ApplyPlan(context.Background(), editor(), ApplyRequest{
		PlanID: plan.PlanID,
		Page:   grounding.Locator{UID: "page-uid"},
	})
	if err != nil {
		t.Fatalf("ApplyPlan: %v", err)
	}
	if resp.Result != "ok" || !resp.Reload {
		t.Fatalf("resp = %+v", resp)
	}
	want := map[string]bool{"title": true, "description": true}
	if len(resp.Changed) != len(want) {
		t.Fatalf("changed = %v, want exactly %v", resp.Changed, want)
	}
	for _, aspect := range resp.Changed {
		if !want[aspect] {
			t.Fatalf("unexpected changed aspect %q", aspect)
		}
	}
	if page.Title != "Round Trip Title" {
		t.Fatalf("title = %q", page.Title)
	}
	if page.Description != "Round trip description" {
		t.Fatalf("description = %q", page.Description)
	}
}

func TestApplyDirectActionsInsertsBlocks(t *testing.T) {
	svc, _, page := newActionsFixture(nil)

	resp, err := svc.ApplyPlan(context.Background(), editor(), ApplyRequest{
		Actions: []map[string]any{
			{"type": "insert_heading_block", "payload": map[string]any{"text": "News", "level": float64(2)}},
			{"type": "insert_list_block", "payload": map[string]any{"items": []any{"a", "b"}, "ordered": true}},
		},
		Page: grounding.Locator{UID: "page-uid"},
	})
	if err != nil {
		t.Fatalf("ApplyPlan: %v", err)
	}
	if len(resp.Changed) != 1 || resp.Changed[0] != "blocks" {
		t.Fatalf("changed = %v, want [blocks]", resp.Changed)
	}
	if len(page.BlockOrder) != 2 || len(page.Blocks) != 2 {
		t.Fatalf("blocks = %d order = %d, want 2 each", len(page.Blocks), len(page.BlockOrder))
	}
	first := page.Blocks[page.BlockOrder[0]]
	if first["@type"] != "slate" {
		t.Fatalf("first block = %v", first)
	}
}

func TestApplyUnknownKindFailsWholeApply(t *testing.T) {
	svc, _, page := newActionsFixture(nil)

	_, err := svc.ApplyPlan(context.Background(), editor(), ApplyRequest{
		Actions: []map[string]any{
			{"type": "update_title", "payload": map[string]any{"title": "Should not land"}},
			{"type": "drop_database", "payload": map[string]any{}},
		},
		Page: grounding.Locator{UID: "page-uid"},
	})
	if err == nil {
		t.Fatalf("expected validation error")
	}
	if page.Title != "Old Title" {
		t.Fatalf("title mutated to %q despite failed apply", page.Title)
	}
}

func TestApplyUnknownPlanID(t *testing.T) {
	svc, _, _ := newActionsFixture(nil)
	_, err := svc.ApplyPlan(context.Background(), editor(), ApplyRequest{
		PlanID: "no-such-plan",
		Page:   grounding.Locator{UID: "page-uid"},
	})
	if apierr.Status(err) != 404 {
		t.Fatalf("err = %v, want not-found", err)
	}
}

func TestApplyRecordsAudit(t *testing.T) {
	svc, store, _ := newActionsFixture(nil)

	_, err := svc.ApplyPlan(context.Background(), editor(), ApplyRequest{
		Actions: []map[string]any{
			{"type": "update_title", "payload": map[string]any{"title": "Audited"}},
		},
		Page: grounding.Locator{UID: "page-uid"},
	})
	if err != nil {
		t.Fatalf("ApplyPlan: %v", err)
	}
	raw, ok := store.Root().Annotation(audit.Key)
	if !ok {
		t.Fatalf("no audit log written")
	}
	entries := raw.([]audit.Entry)
	if len(entries) != 1 || entries[0].UserID != "alice" || entries[0].Path != "/sample" {
		t.Fatalf("entries = %+v", entries)
	}
}

func TestPlanStoreEvictsOldest(t *testing.T) {
	store := NewPlanStore()
	tick := 0
	store.now = func() time.Time {
		tick++
		return time.Unix(int64(tick), 0)
	}
	target := &content.Object{UID: "t"}
	var firstID string
	for i := 0; i < maxPlansPerObject+1; i++ {
		plan := store.Save(target, []Action{UpdateTitle{Title: "x"}}, "alice")
		if i == 0 {
			firstID = plan.PlanID
		}
	}
	raw, _ := target.Annotation("kyra.ai_actions_plans")
	plans := raw.(map[string]Plan)
	if len(plans) != maxPlansPerObject {
		t.Fatalf("plans = %d, want %d", len(plans), maxPlansPerObject)
	}
	if _, ok := store.Load(target, firstID); ok {
		t.Fatalf("oldest plan survived eviction")
	}
}
