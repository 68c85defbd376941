package task

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestActivateTasksRequiresCompletedPrerequisite(t *testing.T) {
	d := NewDeferredHandler()
	t1 := &Task{ID: 10, Query: "study X", Condition: Condition{Type: ConditionDeferred, Prerequisite: "research-completed:X"}}
	d.Add(t1)

	empty := d.ActivateTasks(MemoryState{})
	assert.Empty(t, empty)
	assert.Equal(t, 1, d.Len())

	activated := d.ActivateTasks(MemoryState{CompletedTopics: []string{"research-completed:X"}})
	require.Len(t, activated, 1)
	assert.Equal(t, 10, activated[0].ID)
	assert.Equal(t, StatusPending, activated[0].Status)
	assert.Equal(t, 0, d.Len())
}

func TestActivateTasksPreservesInsertionOrder(t *testing.T) {
	d := NewDeferredHandler()
	d.Add(&Task{ID: 1, Condition: Condition{Type: ConditionDeferred, Prerequisite: "topic"}})
	d.Add(&Task{ID: 2, Condition: Condition{Type: ConditionDeferred, Prerequisite: "topic"}})
	d.Add(&Task{ID: 3, Condition: Condition{Type: ConditionDeferred, Prerequisite: "topic"}})

	activated := d.ActivateTasks(MemoryState{CompletedTopics: []string{"topic"}})
	require.Len(t, activated, 3)
	assert.Equal(t, []int{1, 2, 3}, []int{activated[0].ID, activated[1].ID, activated[2].ID})
}
