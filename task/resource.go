package task

import "sync"

// ResourceMonitor is the append-only resource state of spec §5: "The
// Resource Monitor is append-only from external inputs; the Task
// Manager reads it but does not mutate." External callers (the Health
// Monitor, category workers) push observations in; the Manager only
// ever calls Availability/State.
type ResourceMonitor struct {
	mu           sync.RWMutex
	systemLoad   float64
	resourceCost float64
	categoryLoad map[Category]float64
}

// NewResourceMonitor builds a monitor starting at zero load.
func NewResourceMonitor() *ResourceMonitor {
	return &ResourceMonitor{categoryLoad: make(map[Category]float64)}
}

// RecordSystemLoad sets the overall system load observation, a value
// in [0,1] read by the urgency damping term (spec §4.9).
func (r *ResourceMonitor) RecordSystemLoad(load, resourceCost float64) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.systemLoad = load
	r.resourceCost = resourceCost
}

// RecordCategoryLoad sets the current load-impact observation for cat,
// used both as the urgency damping factor and (inverted) as
// availability for scheduling.
func (r *ResourceMonitor) RecordCategoryLoad(cat Category, load float64) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.categoryLoad[cat] = load
}

// Availability returns 1-load for cat, the headroom getNextTask's
// resourceThreshold filter compares against.
func (r *ResourceMonitor) Availability(cat Category) float64 {
	r.mu.RLock()
	defer r.mu.RUnlock()
	load, ok := r.categoryLoad[cat]
	if !ok {
		return 1
	}
	return 1 - load
}

// State returns the snapshot ComputePriority's urgency term reads for
// a task in category cat.
func (r *ResourceMonitor) State(cat Category) ResourceState {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return ResourceState{
		SystemLoad:         r.systemLoad,
		ResourceCost:       r.resourceCost,
		CategoryLoadImpact: r.categoryLoad[cat],
	}
}
