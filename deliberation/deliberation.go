// Package deliberation implements the self-reflection cycle of spec
// §4.11: load prior self-notes, derive insights, generate goal tasks,
// route them through the Deferred Handler or straight to the Task
// Manager, activate anything newly unblocked, dispatch a prioritized
// batch to the subsystem workers, and write fresh self-notes for the
// next cycle.
//
// Grounded on flow's step-sequencing idiom (flow/flow.go, flow/branch.go):
// a fixed pipeline of named stages over one piece of state, generalized
// here from a generic processor chain to the notes -> insights -> tasks
// -> activate -> prioritize -> dispatch -> collect sequence spec §4.11
// names explicitly.
package deliberation

import (
	"context"
	"fmt"
	"time"

	"github.com/mardukros/mardukros-sub000/persistence"
	"github.com/mardukros/mardukros-sub000/task"
	"github.com/mardukros/mardukros-sub000/wireproto"
)

// SelfNote is one persisted reflection carried from a cycle to the
// next (spec §4.11 step 1/7).
type SelfNote struct {
	Topic     string    `json:"topic"`
	Content   string    `json:"content"`
	CreatedAt time.Time `json:"created_at"`
}

// Insight kinds name the two canonical seeds plus one reflection per
// held self-note (spec §4.11 step 2).
const (
	InsightError      = "error"
	InsightSuccess    = "success"
	InsightReflection = "reflection"
)

// Insight is an input to the goal generator (spec §4.11 step 2/3).
type Insight struct {
	Kind             string
	Topic            string
	Detail           string
	RequiresResearch bool
	UnlockedPaths    []string
}

// Dispatcher sends a Task Message to its target subsystem worker and
// waits for the matching Response (spec §6's worker channel), keeping
// this package free of any concrete transport.
type Dispatcher interface {
	Dispatch(ctx context.Context, msg wireproto.Task) (wireproto.Response, error)
}

// Outcome records one dispatched task's final status, for self-note
// derivation (spec §4.11 step 7).
type Outcome struct {
	TaskID int
	Status task.Status
	Result any
}

// Result is what one Run call produced, mostly useful to tests and
// callers that want to log a cycle's activity.
type Result struct {
	Insights   []Insight
	Dispatched []*task.Task
	Outcomes   []Outcome
}

// Options configures a Cycle.
type Options struct {
	Notes      *persistence.Store[SelfNote]
	Tasks      *task.Manager
	Deferred   *task.DeferredHandler
	Dispatcher Dispatcher

	// BatchSize caps how many tasks one cycle dispatches; default 5.
	BatchSize int

	// NextTaskID mints task IDs for goal-generated tasks. Callers
	// typically close over a shared atomic counter so IDs stay unique
	// across the Coordinator, the Task Manager, and deliberation.
	NextTaskID func() int
}

// Cycle runs the self-reflection loop of spec §4.11.
type Cycle struct {
	notes      *persistence.Store[SelfNote]
	tasks      *task.Manager
	deferred   *task.DeferredHandler
	dispatcher Dispatcher
	batchSize  int
	nextID     func() int
}

// New builds a Cycle from opt.
func New(opt Options) *Cycle {
	batchSize := opt.BatchSize
	if batchSize <= 0 {
		batchSize = 5
	}
	return &Cycle{
		notes:      opt.Notes,
		tasks:      opt.Tasks,
		deferred:   opt.Deferred,
		dispatcher: opt.Dispatcher,
		batchSize:  batchSize,
		nextID:     opt.NextTaskID,
	}
}

// Run executes one full cycle against the current memory state (spec
// §4.11's 7 steps).
func (c *Cycle) Run(ctx context.Context, state task.MemoryState) (Result, error) {
	now := time.Now()

	notes, err := c.notes.Load(ctx)
	if err != nil {
		return Result{}, err
	}

	insights := deriveInsights(notes)
	c.routeGeneratedTasks(insights, now)

	for _, t := range c.deferred.ActivateTasks(state) {
		c.tasks.AddTask(t, now)
	}

	c.tasks.PrioritizeTasks(task.PrioritizeOptions{
		ApplyAging:       true,
		ApplyInheritance: true,
		ApplyDecay:       true,
		IncludeContext:   true,
	}, now)

	batch := c.tasks.GetTaskBatch(c.batchSize, task.Category(""), task.NextTaskOptions{})

	outcomes := make([]Outcome, 0, len(batch))
	for _, t := range batch {
		outcomes = append(outcomes, c.dispatchOne(ctx, t, now))
	}

	if err := c.notes.Save(ctx, deriveSelfNotes(outcomes)); err != nil {
		return Result{Insights: insights, Dispatched: batch, Outcomes: outcomes}, err
	}

	return Result{Insights: insights, Dispatched: batch, Outcomes: outcomes}, nil
}

// routeGeneratedTasks implements step 3/4: a task with a deferred
// condition goes to the Deferred Handler, everything else goes
// straight to the Task Manager.
func (c *Cycle) routeGeneratedTasks(insights []Insight, now time.Time) {
	for _, ins := range insights {
		for _, t := range c.generateTasks(ins) {
			if t.Condition.Type == task.ConditionDeferred {
				c.deferred.Add(t)
				continue
			}
			c.tasks.AddTask(t, now)
		}
	}
}

// dispatchOne sends t to its target worker and folds the response (or
// failure) back into the Task Manager's status machine.
func (c *Cycle) dispatchOne(ctx context.Context, t *task.Task, now time.Time) Outcome {
	var cond *wireproto.Condition
	if t.Condition.Type == task.ConditionDeferred {
		cond = &wireproto.Condition{Type: string(t.Condition.Type), Prerequisite: t.Condition.Prerequisite}
	}
	msg := wireproto.NewTask(t.ID, t.Query, t.Target, cond)

	resp, err := c.dispatcher.Dispatch(ctx, msg)
	if err != nil {
		c.tasks.UpdateTaskStatus(t.ID, task.StatusFailed, false, now)
		return Outcome{TaskID: t.ID, Status: task.StatusFailed, Result: err.Error()}
	}
	c.tasks.UpdateTaskStatus(t.ID, task.StatusCompleted, false, now)
	return Outcome{TaskID: t.ID, Status: task.StatusCompleted, Result: resp.Result}
}

// deriveInsights implements step 2: two canonical seeds plus one
// reflection per held self-note.
func deriveInsights(notes []SelfNote) []Insight {
	insights := make([]Insight, 0, len(notes)+2)
	insights = append(insights, Insight{
		Kind:             InsightError,
		Topic:            "recent-failures",
		Detail:           "review tasks that failed or stalled since the last cycle",
		RequiresResearch: true,
	})
	insights = append(insights, Insight{
		Kind:          InsightSuccess,
		Topic:         "recent-successes",
		Detail:        "build on paths that completed cleanly",
		UnlockedPaths: []string{"extend-coverage", "document-outcome"},
	})
	for _, n := range notes {
		insights = append(insights, Insight{Kind: InsightReflection, Topic: n.Topic, Detail: n.Content})
	}
	return insights
}

// generateTasks implements step 3's per-insight branching.
func (c *Cycle) generateTasks(ins Insight) []*task.Task {
	switch ins.Kind {
	case InsightError:
		tasks := []*task.Task{{
			ID:       c.nextID(),
			Query:    fmt.Sprintf("investigate-error:%s", ins.Topic),
			Category: task.CategoryDefault,
		}}
		if ins.RequiresResearch {
			tasks = append(tasks, &task.Task{
				ID:       c.nextID(),
				Query:    fmt.Sprintf("study:%s", ins.Topic),
				Category: task.CategoryDefault,
				Condition: task.Condition{
					Type:         task.ConditionDeferred,
					Prerequisite: fmt.Sprintf("research-completed:%s", ins.Topic),
				},
			})
		}
		return tasks
	case InsightSuccess:
		tasks := make([]*task.Task, 0, len(ins.UnlockedPaths))
		for _, path := range ins.UnlockedPaths {
			tasks = append(tasks, &task.Task{
				ID:       c.nextID(),
				Query:    fmt.Sprintf("follow-up:%s", path),
				Category: task.CategoryDefault,
			})
		}
		return tasks
	default: // InsightReflection
		return []*task.Task{{
			ID:       c.nextID(),
			Query:    fmt.Sprintf("reflect:%s", ins.Topic),
			Category: task.CategoryBackground,
		}}
	}
}

// deriveSelfNotes implements step 7: one note per dispatched outcome.
func deriveSelfNotes(outcomes []Outcome) []SelfNote {
	now := time.Now()
	notes := make([]SelfNote, 0, len(outcomes))
	for _, o := range outcomes {
		notes = append(notes, SelfNote{
			Topic:     fmt.Sprintf("task-%d", o.TaskID),
			Content:   fmt.Sprintf("task %d ended %s", o.TaskID, o.Status),
			CreatedAt: now,
		})
	}
	return notes
}
