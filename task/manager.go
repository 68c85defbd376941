package task

import (
	"sort"
	"sync"
	"time"

	"github.com/mardukros/mardukros-sub000/config"
)

// PrioritizeOptions controls which passes prioritizeTasks runs (spec
// §4.9).
type PrioritizeOptions struct {
	ApplyAging       bool
	ApplyInheritance bool
	ApplyDecay       bool
	IncludeContext   bool
}

// NextTaskOptions filters getNextTask / getTaskBatch candidates (spec
// §4.9).
type NextTaskOptions struct {
	ExcludeIDs        map[int]bool
	ResourceThreshold float64 // default 0.3
	PriorityThreshold float64
	IncludeDeferred   bool
}

func (o NextTaskOptions) resourceThreshold() float64 {
	if o.ResourceThreshold == 0 {
		return 0.3
	}
	return o.ResourceThreshold
}

// ResourceAvailability reports available headroom per category, read
// by getNextTask's resourceThreshold filter. The Manager never
// mutates it (spec §5 "Resource Monitor is append-only... Task Manager
// reads it but does not mutate").
type ResourceAvailability interface {
	Availability(cat Category) float64
	State(cat Category) ResourceState
}

// Manager owns the task set (spec §4.9), exclusively — like each
// Memory Subsystem owns its map (spec §5), cross-task-set access here
// is through Manager's methods only.
type Manager struct {
	mu        sync.Mutex
	cfg       config.Task
	resources ResourceAvailability
	tasks     map[int]*Task
	order     []int // insertion order, for stable iteration
}

// NewManager builds an empty Manager.
func NewManager(cfg config.Task, resources ResourceAvailability) *Manager {
	return &Manager{
		cfg:       cfg,
		resources: resources,
		tasks:     make(map[int]*Task),
	}
}

// AddTask registers t, defaulting Status to pending and CreatedAt to
// now if unset.
func (m *Manager) AddTask(t *Task, now time.Time) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if t.Status == "" {
		t.Status = StatusPending
	}
	if t.CreatedAt.IsZero() {
		t.CreatedAt = now
	}
	if t.LastActivity.IsZero() {
		t.LastActivity = now
	}
	if _, exists := m.tasks[t.ID]; !exists {
		m.order = append(m.order, t.ID)
	}
	m.tasks[t.ID] = t
}

// Get returns the task with id, if present.
func (m *Manager) Get(id int) (*Task, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	t, ok := m.tasks[id]
	return t, ok
}

// PrioritizeTasks runs the inheritance/aging/decay passes named in opt,
// recomputes every task's priority, and returns a stable
// descending-priority sort with ties broken by ascending task id (spec
// §5 "Task priority results... deterministic; ties broken by ascending
// task_id").
func (m *Manager) PrioritizeTasks(opt PrioritizeOptions, now time.Time) []*Task {
	m.mu.Lock()
	defer m.mu.Unlock()

	resourceStateFor := func(t *Task) ResourceState {
		if m.resources == nil {
			return ResourceState{}
		}
		return m.resources.State(t.Category)
	}

	for _, t := range m.tasks {
		t.Priority = ComputePriority(t, m.cfg, resourceStateFor(t), now, opt.IncludeContext)
	}

	if opt.ApplyInheritance {
		applyPriorityInheritance(m.tasks, m.cfg.DependencyFactor)
		for _, t := range m.tasks {
			t.Priority = ComputePriority(t, m.cfg, resourceStateFor(t), now, opt.IncludeContext)
		}
	}
	if opt.ApplyAging {
		for _, t := range m.tasks {
			applyAging(t, m.cfg, now)
		}
	}
	if opt.ApplyDecay {
		for _, t := range m.tasks {
			applyDecay(t, m.cfg, now)
		}
	}

	out := make([]*Task, 0, len(m.tasks))
	for _, t := range m.tasks {
		out = append(out, t)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Priority != out[j].Priority {
			return out[i].Priority > out[j].Priority
		}
		return out[i].ID < out[j].ID
	})
	return out
}

// GetNextTask returns the highest-priority task matching category (if
// non-empty), not excluded, with status pending (or deferred if
// IncludeDeferred), and whose category resource availability is at
// least opt.resourceThreshold().
func (m *Manager) GetNextTask(category Category, opt NextTaskOptions) (*Task, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()

	candidates := m.candidatesLocked(category, opt)
	if len(candidates) == 0 {
		return nil, false
	}
	return candidates[0], true
}

// GetTaskBatch returns up to count tasks matching opt, without
// duplicates, in descending-priority order.
func (m *Manager) GetTaskBatch(count int, category Category, opt NextTaskOptions) []*Task {
	m.mu.Lock()
	defer m.mu.Unlock()

	candidates := m.candidatesLocked(category, opt)
	if count < len(candidates) {
		candidates = candidates[:count]
	}
	return candidates
}

func (m *Manager) candidatesLocked(category Category, opt NextTaskOptions) []*Task {
	threshold := opt.resourceThreshold()

	out := make([]*Task, 0, len(m.tasks))
	for _, t := range m.tasks {
		if opt.ExcludeIDs != nil && opt.ExcludeIDs[t.ID] {
			continue
		}
		if category != "" && t.Category != category {
			continue
		}
		if t.Status != StatusPending {
			if !(opt.IncludeDeferred && t.Status == StatusDeferred) {
				continue
			}
		}
		if t.Priority < opt.PriorityThreshold {
			continue
		}
		if m.resources != nil && m.resources.Availability(t.Category) < threshold {
			continue
		}
		out = append(out, t)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Priority != out[j].Priority {
			return out[i].Priority > out[j].Priority
		}
		return out[i].ID < out[j].ID
	})
	return out
}

// UpdateTaskStatus implements spec §4.9's status machine transitions.
// On a transition to completed, every dependent is notified; if all of
// a dependent's dependencies are now completed, it flips from deferred
// to pending. resetRetry, when true, zeroes RetryCount on a failed ->
// pending transition.
func (m *Manager) UpdateTaskStatus(id int, status Status, resetRetry bool, now time.Time) bool {
	m.mu.Lock()
	defer m.mu.Unlock()

	t, ok := m.tasks[id]
	if !ok {
		return false
	}
	t.Status = status
	t.LastActivity = now

	if status == StatusFailed {
		t.RetryCount++
	}
	if status == StatusPending && resetRetry {
		t.RetryCount = 0
	}
	if status == StatusCompleted {
		m.notifyDependentsLocked(t)
	}
	return true
}

func (m *Manager) notifyDependentsLocked(completed *Task) {
	for _, depID := range completed.Dependents {
		dependent, ok := m.tasks[depID]
		if !ok || dependent.Status != StatusDeferred {
			continue
		}
		if m.allDependenciesCompletedLocked(dependent) {
			dependent.Status = StatusPending
		}
	}
}

func (m *Manager) allDependenciesCompletedLocked(t *Task) bool {
	for _, depID := range t.Dependencies {
		dep, ok := m.tasks[depID]
		if !ok || dep.Status != StatusCompleted {
			return false
		}
	}
	return true
}
