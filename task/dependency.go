package task

import (
	"sort"

	"github.com/samber/lo"
)

// BuildDependents derives each task's Dependents edge list from every
// other task's Dependencies, deduplicating and sorting for determinism.
// Callers populate Dependencies when constructing tasks; this fills in
// the reverse edges the inheritance pass's second pass needs to
// propagate boosts to transitive dependents.
func BuildDependents(tasks map[int]*Task) {
	reverse := make(map[int][]int, len(tasks))
	for id, t := range tasks {
		for _, depID := range t.Dependencies {
			reverse[depID] = append(reverse[depID], id)
		}
	}
	for id, t := range tasks {
		deps := lo.Uniq(reverse[id])
		sort.Ints(deps)
		t.Dependents = deps
	}
}

// applyPriorityInheritance implements spec §4.9's inheritance pass:
// first, for each task whose priority is lower than the highest
// priority among its direct dependencies, set
// inheritedPriorityBoost = (maxPriorityOfDependencies - ownPriority) *
// dependencyFactor, and propagate isSystemCritical along the edge.
// Second, propagate 60% of that boost to transitive dependents via the
// dependents list. Requires priorities to already be populated on every
// task (a prior pass of ComputePriority without the inherited term).
func applyPriorityInheritance(tasks map[int]*Task, dependencyFactor float64) {
	for _, t := range tasks {
		maxDepPriority := 0.0
		critical := t.IsSystemCritical
		for _, depID := range t.Dependencies {
			dep, ok := tasks[depID]
			if !ok {
				continue
			}
			if dep.Priority > maxDepPriority {
				maxDepPriority = dep.Priority
			}
			if dep.IsSystemCritical {
				critical = true
			}
		}
		if maxDepPriority > t.Priority {
			t.InheritedPriorityBoost = (maxDepPriority - t.Priority) * dependencyFactor
		}
		t.IsSystemCritical = critical
	}

	// Second pass: 60% of each task's boost propagates to its
	// transitive dependents via the dependents edge list.
	boosts := make(map[int]float64, len(tasks))
	for id, t := range tasks {
		boosts[id] = t.InheritedPriorityBoost
	}
	for id, t := range tasks {
		boost := boosts[id]
		if boost <= 0 {
			continue
		}
		propagated := boost * 0.6
		for _, depID := range t.Dependents {
			dependent, ok := tasks[depID]
			if !ok {
				continue
			}
			if propagated > dependent.InheritedPriorityBoost {
				dependent.InheritedPriorityBoost = propagated
			}
		}
	}
}
