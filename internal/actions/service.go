package actions

import (
	"context"
	"strings"

	"github.com/interaktiv/kyra-assist/internal/audit"
	"github.com/interaktiv/kyra-assist/internal/content"
	"github.com/interaktiv/kyra-assist/internal/grounding"
	"github.com/interaktiv/kyra-assist/internal/platform/apierr"
	"github.com/interaktiv/kyra-assist/internal/platform/logger"
)

// PlanRequest is the /ai-actions/plan body.
type PlanRequest struct {
	Goal string            `json:"goal"`
	Page grounding.Locator `json:"page"`
}

// PlanResponse carries the stored plan and its preview.
type PlanResponse struct {
	PlanID  string           `json:"plan_id"`
	Actions []map[string]any `json:"actions"`
	Preview Preview          `json:"preview"`
}

// ApplyRequest is the /ai-actions/apply body: a stored plan id or a
// direct action list.
type ApplyRequest struct {
	PlanID  string            `json:"plan_id"`
	Actions []map[string]any  `json:"actions"`
	Page    grounding.Locator `json:"page"`
}

// ApplyResponse reports the mutated aspects.
type ApplyResponse struct {
	Result  string   `json:"result"`
	Changed []string `json:"changed"`
	Reload  bool     `json:"reload"`
}

// Service implements the plan and apply endpoints.
type Service struct {
	log     *logger.Logger
	store   content.Store
	authz   content.Authorizer
	planner *Planner
	plans   *PlanStore
	audit   *audit.Log
}

func NewService(
	log *logger.Logger,
	store content.Store,
	authz content.Authorizer,
	planner *Planner,
	plans *PlanStore,
	auditLog *audit.Log,
) *Service {
	return &Service{
		log:     log.With("service", "ActionsService"),
		store:   store,
		authz:   authz,
		planner: planner,
		plans:   plans,
		audit:   auditLog,
	}
}

// resolveTarget resolves the page locator to a content object. Unlike
// grounding resolution it does not degrade to the site root: actions
// need an explicit target.
func (s *Service) resolveTarget(page grounding.Locator) *content.Object {
	if page.UID != "" {
		if obj, ok := s.store.ByUID(page.UID); ok {
			return obj
		}
	}
	if page.URL != "" {
		path := page.URL
		rootURL := strings.TrimRight(s.store.Root().URL, "/")
		if strings.HasPrefix(path, "http") && rootURL != "" && strings.HasPrefix(path, rootURL) {
			path = path[len(rootURL):]
		}
		path = strings.Trim(path, "/")
		if path != "" {
			if obj, ok := s.store.ByPath(path); ok {
				return obj
			}
		}
	}
	return nil
}

// ensureEditor enforces the privileged-action contract: an
// authenticated caller, an explicit target and modify permission.
func (s *Service) ensureEditor(id content.Identity, target *content.Object) error {
	if id.Anonymous() {
		return apierr.Unauthenticated("Login required")
	}
	if target == nil {
		return apierr.Validation("Missing target page")
	}
	if !s.authz.CanEdit(id, target) {
		return apierr.Authorization("Insufficient permissions")
	}
	return nil
}

// Plan derives, stores and previews an action plan for the goal.
// Authorization is checked before any gateway traffic.
func (s *Service) Plan(ctx context.Context, id content.Identity, req PlanRequest) (PlanResponse, error) {
	if strings.TrimSpace(req.Goal) == "" {
		return PlanResponse{}, apierr.Validation("Missing goal")
	}
	target := s.resolveTarget(req.Page)
	if err := s.ensureEditor(id, target); err != nil {
		return PlanResponse{}, err
	}

	derived := s.planner.Derive(ctx, req.Goal, target)
	plan := s.plans.Save(target, derived, id.UserID)
	s.log.Info("action plan stored",
		"plan_id", plan.PlanID,
		"target", target.Path,
		"actions", len(derived),
	)

	return PlanResponse{
		PlanID:  plan.PlanID,
		Actions: WireList(derived),
		Preview: BuildPreview(derived, target),
	}, nil
}

// ApplyPlan validates and applies a stored plan or a direct action
// list, all-or-nothing, then reindexes and audits.
func (s *Service) ApplyPlan(ctx context.Context, id content.Identity, req ApplyRequest) (ApplyResponse, error) {
	target := s.resolveTarget(req.Page)
	if err := s.ensureEditor(id, target); err != nil {
		return ApplyResponse{}, err
	}

	var actions []Action
	if req.PlanID != "" {
		plan, ok := s.plans.Load(target, req.PlanID)
		if !ok {
			return ApplyResponse{}, apierr.NotFound("Unknown plan_id")
		}
		actions = plan.Actions
	} else {
		parsed, err := ParseWireList(req.Actions)
		if err != nil {
			return ApplyResponse{}, err
		}
		actions = parsed
	}
	if len(actions) == 0 {
		return ApplyResponse{}, apierr.Validation("Missing actions to apply")
	}

	changed := Apply(target, actions)
	if err := s.store.Reindex(target); err != nil {
		s.log.Warn("reindex after apply failed", "target", target.Path, "error", err)
	}
	s.audit.Record(target, WireList(actions), id.UserID, req.PlanID)

	return ApplyResponse{Result: "ok", Changed: changed, Reload: true}, nil
}
