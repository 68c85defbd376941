package task

import (
	"time"

	"github.com/mardukros/mardukros-sub000/config"
)

// ResourceState is the Resource Monitor's view the urgency component
// reads: overall system load plus a per-category load/cost pair (spec
// §4.9 "systemLoad · resourceCost · categoryLoadImpact · resourceFactor").
type ResourceState struct {
	SystemLoad         float64
	ResourceCost       float64
	CategoryLoadImpact float64
}

// componentSum is the per-component breakdown of spec §4.9's weighted
// sum. ComputePriority clamps each component to [0,10] before summing,
// except failure, clamped to [-10,0], and critical, a flat 2.
type componentSum struct {
	base, user, age, urgency, inherited, stalled, context, failure, critical float64
}

func (c componentSum) total() float64 {
	return c.base + c.user + c.age + c.urgency + c.inherited +
		c.stalled + c.context + c.failure + c.critical
}

// ComputePriority implements spec §4.9's full weighted-sum formula,
// multiplies by the task's category base multiplier, and clamps to the
// category's [minPriority, maxPriority] bounds (defaulting to [0,10]).
func ComputePriority(t *Task, cfg config.Task, res ResourceState, now time.Time, includeContext bool) float64 {
	c := componentSum{}

	c.base = clamp(cfg.BaseFactor, 0, 10)
	c.user = clamp(ParseUserPriority(t.UserPriorityExpr)*cfg.UserFactor, 0, 10)

	ageMs := float64(t.Age(now).Milliseconds())
	c.age = clamp(min1(ageMs/86_400_000)*cfg.AgingFactor, 0, 10)

	resourceDamping := 1 - res.SystemLoad*res.ResourceCost*res.CategoryLoadImpact*cfg.ResourceFactor
	c.urgency = clamp(t.Urgency*cfg.UrgencyFactor*resourceDamping, 0, 10)

	c.inherited = clamp(t.InheritedPriorityBoost, 0, 10)

	if t.Stalled(now, cfg.StalledThreshold) {
		c.stalled = clamp(cfg.StalledBoost, 0, 10)
	}

	if includeContext && t.HasRelevantContext {
		c.context = clamp(cfg.ContextBoost, 0, 10)
	}

	c.failure = clamp(-float64(t.RetryCount)*cfg.FailurePenalty, -10, 0)

	if t.IsSystemCritical {
		c.critical = 2
	}

	sum := c.total()
	rule := RuleFor(t.Category)
	sum *= rule.BaseMultiplier

	return clamp(sum, rule.MinPriority, rule.MaxPriority)
}

func min1(v float64) float64 {
	if v > 1 {
		return 1
	}
	return v
}
