package task

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/mardukros/mardukros-sub000/config"
)

func TestParseUserPriorityNamedLevels(t *testing.T) {
	assert.Equal(t, 10.0, ParseUserPriority("CRITICAL"))
	assert.Equal(t, 8.0, ParseUserPriority("high"))
	assert.Equal(t, 5.0, ParseUserPriority(""))
}

func TestParseUserPriorityWithOffset(t *testing.T) {
	assert.Equal(t, 10.0, ParseUserPriority("HIGH+2"))
	assert.Equal(t, 2.0, ParseUserPriority("LOW-1"))
}

func TestComputePriorityClampsToZeroToTen(t *testing.T) {
	cfg := config.Default().Task
	now := time.Now()
	tsk := &Task{
		ID:               1,
		Category:         CategoryUser,
		UserPriorityExpr: "CRITICAL+5",
		CreatedAt:        now,
		Urgency:          10,
		IsSystemCritical: true,
	}
	p := ComputePriority(tsk, cfg, ResourceState{}, now, true)
	assert.GreaterOrEqual(t, p, 0.0)
	assert.LessOrEqual(t, p, 10.0)
}

func TestComputePriorityAppliesCategoryMultiplierAndFloor(t *testing.T) {
	cfg := config.Default().Task
	now := time.Now()
	tsk := &Task{ID: 1, Category: CategorySystem, CreatedAt: now}
	p := ComputePriority(tsk, cfg, ResourceState{}, now, false)
	assert.GreaterOrEqual(t, p, 8.0)
}

func TestApplyPriorityInheritancePropagatesAcrossEdge(t *testing.T) {
	a := &Task{ID: 1, Priority: 9, IsSystemCritical: true, Dependents: []int{2}}
	b := &Task{ID: 2, Priority: 3, Dependencies: []int{1}}
	tasks := map[int]*Task{1: a, 2: b}

	applyPriorityInheritance(tasks, 1.0)

	assert.Equal(t, 6.0, b.InheritedPriorityBoost)
	assert.True(t, b.IsSystemCritical)
}

func TestBuildDependentsDerivesReverseEdgesDeduped(t *testing.T) {
	a := &Task{ID: 1}
	b := &Task{ID: 2, Dependencies: []int{1}}
	c := &Task{ID: 3, Dependencies: []int{1, 1}}
	tasks := map[int]*Task{1: a, 2: b, 3: c}

	BuildDependents(tasks)

	assert.ElementsMatch(t, []int{2, 3}, a.Dependents)
	assert.Empty(t, b.Dependents)
}

func TestApplyAgingBoostsOldPendingTasks(t *testing.T) {
	cfg := config.Default().Task
	now := time.Now()
	tsk := &Task{Status: StatusPending, CreatedAt: now.Add(-45 * time.Minute), Priority: 2}
	applyAging(tsk, cfg, now)
	assert.Greater(t, tsk.Priority, 2.0)
}

func TestApplyDecayReducesOldNonCriticalTasks(t *testing.T) {
	cfg := config.Default().Task
	now := time.Now()
	tsk := &Task{CreatedAt: now.Add(-48 * time.Hour), Priority: 8}
	applyDecay(tsk, cfg, now)
	assert.Less(t, tsk.Priority, 8.0)
	assert.GreaterOrEqual(t, tsk.Priority, 1.0)
}

func TestApplyDecaySkipsCriticalTasks(t *testing.T) {
	cfg := config.Default().Task
	now := time.Now()
	tsk := &Task{CreatedAt: now.Add(-48 * time.Hour), Priority: 8, IsSystemCritical: true}
	applyDecay(tsk, cfg, now)
	assert.Equal(t, 8.0, tsk.Priority)
}
