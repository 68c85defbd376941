package task

import (
	"time"

	"github.com/mardukros/mardukros-sub000/config"
)

// applyAging implements spec §4.9's "for each pending task older than
// 30 min, add min(3, ageMinutes/20) to priority."
func applyAging(t *Task, cfg config.Task, now time.Time) {
	if t.Status != StatusPending {
		return
	}
	age := t.Age(now)
	if age < cfg.AgingThreshold {
		return
	}
	ageMinutes := age.Minutes()
	boost := ageMinutes / 20
	if boost > 3 {
		boost = 3
	}
	t.Priority = clamp(t.Priority+boost, 0, 10)
}

// applyDecay implements spec §4.9's "for non-critical tasks older than
// 24h, subtract priority * min(0.9, decayRate * ageDays), floor at 1."
func applyDecay(t *Task, cfg config.Task, now time.Time) {
	if t.IsSystemCritical {
		return
	}
	age := t.Age(now)
	if age < cfg.DecayThreshold {
		return
	}
	ageDays := age.Hours() / 24
	factor := cfg.DecayRate * ageDays
	if factor > 0.9 {
		factor = 0.9
	}
	decayed := t.Priority - t.Priority*factor
	if decayed < 1 {
		decayed = 1
	}
	t.Priority = decayed
}
