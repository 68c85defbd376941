package task

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mardukros/mardukros-sub000/config"
)

func TestPrioritizeTasksOrdersDescendingWithIDTieBreak(t *testing.T) {
	cfg := config.Default().Task
	m := NewManager(cfg, NewResourceMonitor())
	now := time.Now()
	m.AddTask(&Task{ID: 2, Category: CategoryDefault, UserPriorityExpr: "LOW"}, now)
	m.AddTask(&Task{ID: 1, Category: CategoryDefault, UserPriorityExpr: "LOW"}, now)

	ranked := m.PrioritizeTasks(PrioritizeOptions{}, now)
	require.Len(t, ranked, 2)
	assert.Equal(t, 1, ranked[0].ID)
	assert.Equal(t, 2, ranked[1].ID)
}

func TestGetNextTaskRespectsResourceThreshold(t *testing.T) {
	cfg := config.Default().Task
	monitor := NewResourceMonitor()
	monitor.RecordCategoryLoad(CategoryIO, 0.9) // availability 0.1, below default 0.3 threshold
	m := NewManager(cfg, monitor)
	now := time.Now()
	m.AddTask(&Task{ID: 1, Category: CategoryIO}, now)
	m.PrioritizeTasks(PrioritizeOptions{}, now)

	_, ok := m.GetNextTask(CategoryIO, NextTaskOptions{})
	assert.False(t, ok)
}

func TestGetTaskBatchRespectsCount(t *testing.T) {
	cfg := config.Default().Task
	m := NewManager(cfg, NewResourceMonitor())
	now := time.Now()
	for i := 1; i <= 5; i++ {
		m.AddTask(&Task{ID: i, Category: CategoryDefault}, now)
	}
	m.PrioritizeTasks(PrioritizeOptions{}, now)

	batch := m.GetTaskBatch(3, CategoryDefault, NextTaskOptions{})
	assert.Len(t, batch, 3)
}

func TestUpdateTaskStatusCompletedActivatesDependent(t *testing.T) {
	cfg := config.Default().Task
	m := NewManager(cfg, NewResourceMonitor())
	now := time.Now()
	m.AddTask(&Task{ID: 1, Status: StatusPending}, now)
	m.AddTask(&Task{ID: 2, Status: StatusDeferred, Dependencies: []int{1}}, now)
	dependent, _ := m.Get(1)
	dependent.Dependents = []int{2}

	ok := m.UpdateTaskStatus(1, StatusCompleted, false, now)
	require.True(t, ok)

	b, _ := m.Get(2)
	assert.Equal(t, StatusPending, b.Status)
}

func TestUpdateTaskStatusFailedIncrementsRetryCount(t *testing.T) {
	cfg := config.Default().Task
	m := NewManager(cfg, NewResourceMonitor())
	now := time.Now()
	m.AddTask(&Task{ID: 1, Status: StatusPending}, now)

	m.UpdateTaskStatus(1, StatusFailed, false, now)
	t1, _ := m.Get(1)
	assert.Equal(t, 1, t1.RetryCount)

	m.UpdateTaskStatus(1, StatusPending, true, now)
	t1, _ = m.Get(1)
	assert.Equal(t, 0, t1.RetryCount)
}
