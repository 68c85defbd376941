package task

import "sync"

// DeferredHandler holds tasks with a deferred condition (spec §4.10),
// separate from the Manager's own set since a deferred task is not yet
// eligible for prioritization or dispatch.
type DeferredHandler struct {
	mu    sync.Mutex
	tasks []*Task
}

// NewDeferredHandler builds an empty handler.
func NewDeferredHandler() *DeferredHandler {
	return &DeferredHandler{}
}

// Add registers t as deferred. t.Condition.Type must be
// ConditionDeferred; callers are expected to have already checked this
// before routing the task here (spec §4.11 step 4, "new tasks with a
// condition go to the Deferred Handler").
func (d *DeferredHandler) Add(t *Task) {
	d.mu.Lock()
	defer d.mu.Unlock()
	t.Status = StatusDeferred
	d.tasks = append(d.tasks, t)
}

// ActivateTasks returns every held task whose condition.prerequisite is
// in state.CompletedTopics, removing them from the deferred list, in
// insertion order (spec §4.10).
func (d *DeferredHandler) ActivateTasks(state MemoryState) []*Task {
	d.mu.Lock()
	defer d.mu.Unlock()

	activated := make([]*Task, 0)
	remaining := make([]*Task, 0, len(d.tasks))
	for _, t := range d.tasks {
		if state.hasCompleted(t.Condition.Prerequisite) {
			t.Status = StatusPending
			activated = append(activated, t)
		} else {
			remaining = append(remaining, t)
		}
	}
	d.tasks = remaining
	return activated
}

// Len reports how many tasks are currently held deferred.
func (d *DeferredHandler) Len() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return len(d.tasks)
}
