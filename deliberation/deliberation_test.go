package deliberation

import (
	"context"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mardukros/mardukros-sub000/config"
	"github.com/mardukros/mardukros-sub000/persistence"
	"github.com/mardukros/mardukros-sub000/task"
	"github.com/mardukros/mardukros-sub000/wireproto"
)

type fakeDispatcher struct {
	mu    sync.Mutex
	calls []wireproto.Task
	fail  map[string]bool
}

func (f *fakeDispatcher) Dispatch(_ context.Context, msg wireproto.Task) (wireproto.Response, error) {
	f.mu.Lock()
	f.calls = append(f.calls, msg)
	f.mu.Unlock()
	if f.fail != nil && f.fail[msg.Query] {
		return wireproto.Response{}, assertError{"dispatch failed"}
	}
	return wireproto.NewResponse("test-worker", msg.TaskID, "ok"), nil
}

type assertError struct{ msg string }

func (e assertError) Error() string { return e.msg }

func newCounter(start int) func() int {
	var n int64 = int64(start)
	return func() int { return int(atomic.AddInt64(&n, 1)) }
}

func newTestCycle(t *testing.T, dispatcher Dispatcher) *Cycle {
	t.Helper()
	dir := t.TempDir()
	notes := persistence.NewStore[SelfNote](dir, dir+"/_backups", persistence.Options{})
	mgr := task.NewManager(config.Task{
		BaseFactor: 1, UserFactor: 1, AgingFactor: 1, UrgencyFactor: 1,
		ResourceFactor: 1, DependencyFactor: 1, StalledBoost: 1, ContextBoost: 1,
		FailurePenalty: 1, DecayRate: 0.1,
		StalledThreshold: 5 * time.Minute, AgingThreshold: 30 * time.Minute, DecayThreshold: 24 * time.Hour,
	}, nil)

	return New(Options{
		Notes:      notes,
		Tasks:      mgr,
		Deferred:   task.NewDeferredHandler(),
		Dispatcher: dispatcher,
		BatchSize:  10,
		NextTaskID: newCounter(0),
	})
}

func TestRunRoutesDeferredStudyTaskAndDispatchesRest(t *testing.T) {
	disp := &fakeDispatcher{}
	c := newTestCycle(t, disp)

	result, err := c.Run(context.Background(), task.MemoryState{})
	require.NoError(t, err)

	assert.Equal(t, 1, c.deferred.Len(), "the error insight's study task must be deferred on research-completed")
	assert.NotEmpty(t, result.Dispatched)

	for _, o := range result.Outcomes {
		assert.Equal(t, task.StatusCompleted, o.Status)
	}
}

func TestRunActivatesDeferredTaskOnceResearchCompletes(t *testing.T) {
	disp := &fakeDispatcher{}
	c := newTestCycle(t, disp)

	_, err := c.Run(context.Background(), task.MemoryState{})
	require.NoError(t, err)
	require.Equal(t, 1, c.deferred.Len())

	result, err := c.Run(context.Background(), task.MemoryState{CompletedTopics: []string{"research-completed:recent-failures"}})
	require.NoError(t, err)
	assert.Equal(t, 0, c.deferred.Len(), "activated task must leave the deferred handler")

	found := false
	for _, d := range result.Dispatched {
		if d.Query == "study:recent-failures" {
			found = true
		}
	}
	assert.True(t, found, "activated study task must reach the dispatch batch")
}

func TestRunRecordsFailedOutcomeWithoutAbortingTheCycle(t *testing.T) {
	disp := &fakeDispatcher{fail: map[string]bool{"investigate-error:recent-failures": true}}
	c := newTestCycle(t, disp)

	result, err := c.Run(context.Background(), task.MemoryState{})
	require.NoError(t, err)

	var sawFailure bool
	for _, o := range result.Outcomes {
		if o.Status == task.StatusFailed {
			sawFailure = true
		}
	}
	assert.True(t, sawFailure)
}

func TestRunPersistsSelfNotesForNextCycle(t *testing.T) {
	disp := &fakeDispatcher{}
	c := newTestCycle(t, disp)

	_, err := c.Run(context.Background(), task.MemoryState{})
	require.NoError(t, err)

	notes, err := c.notes.Load(context.Background())
	require.NoError(t, err)
	assert.NotEmpty(t, notes)
}

func TestDeriveInsightsIncludesReflectionPerNote(t *testing.T) {
	notes := []SelfNote{{Topic: "a", Content: "note a"}, {Topic: "b", Content: "note b"}}
	insights := deriveInsights(notes)

	assert.Len(t, insights, 4) // 2 canonical seeds + 2 reflections
	assert.Equal(t, InsightError, insights[0].Kind)
	assert.Equal(t, InsightSuccess, insights[1].Kind)
	assert.Equal(t, InsightReflection, insights[2].Kind)
	assert.Equal(t, InsightReflection, insights[3].Kind)
}

func TestGenerateTasksSuccessInsightProducesOneTaskPerUnlockedPath(t *testing.T) {
	c := &Cycle{nextID: newCounter(0)}
	ins := Insight{Kind: InsightSuccess, Topic: "x", UnlockedPaths: []string{"p1", "p2", "p3"}}
	tasks := c.generateTasks(ins)
	assert.Len(t, tasks, 3)
}
