package actions

import (
	"sort"
	"time"

	"github.com/google/uuid"

	"github.com/interaktiv/kyra-assist/internal/content"
)

// planStorageKey is the annotation key plans live under on their
// target object.
const planStorageKey = "kyra.ai_actions_plans"

// maxPlansPerObject bounds stored plans per target; the oldest plan is
// evicted first.
const maxPlansPerObject = 50

// Plan is one stored action plan, owned by its target object.
type Plan struct {
	PlanID    string
	Actions   []Action
	UserID    string
	Created   time.Time
	TargetUID string
}

// PlanStore persists plans in the target object's annotations. Like
// the other site-wide shared state it is deliberately lock-free; a
// racing write costs at most one lost plan, which the UI recreates.
type PlanStore struct {
	now func() time.Time
}

func NewPlanStore() *PlanStore {
	return &PlanStore{now: time.Now}
}

func plansOf(target *content.Object) map[string]Plan {
	if raw, ok := target.Annotation(planStorageKey); ok {
		if plans, ok := raw.(map[string]Plan); ok {
			return plans
		}
	}
	return nil
}

// Save stores actions as a new plan with a fresh id and returns it.
func (s *PlanStore) Save(target *content.Object, actions []Action, userID string) Plan {
	plans := plansOf(target)
	if plans == nil {
		plans = map[string]Plan{}
	}

	plan := Plan{
		PlanID:    uuid.NewString(),
		Actions:   actions,
		UserID:    userID,
		Created:   s.now().UTC(),
		TargetUID: target.UID,
	}
	plans[plan.PlanID] = plan

	for len(plans) > maxPlansPerObject {
		delete(plans, oldestPlanID(plans))
	}
	target.SetAnnotation(planStorageKey, plans)
	return plan
}

// Load returns the stored plan, if any.
func (s *PlanStore) Load(target *content.Object, planID string) (Plan, bool) {
	plans := plansOf(target)
	plan, ok := plans[planID]
	return plan, ok
}

func oldestPlanID(plans map[string]Plan) string {
	ids := make([]string, 0, len(plans))
	for id := range plans {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool {
		return plans[ids[i]].Created.Before(plans[ids[j]].Created)
	})
	return ids[0]
}
