package scheduleext

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aw32/hetsched/pkg/estimator"
	"github.com/aw32/hetsched/pkg/resource"
	"github.com/aw32/hetsched/pkg/schedule"
	"github.com/aw32/hetsched/pkg/task"
)

func res3() []*resource.Resource {
	return []*resource.Resource{
		{ID: 0, Name: "R0", IdlePower: 1},
		{ID: 1, Name: "R1", IdlePower: 1},
	}
}

func TestFindSlotEmptyQueue(t *testing.T) {
	t.Parallel()
	e := New(res3(), make([]*task.Copy, 2), estimator.NewLinear(), nil)
	slot, start, stop := e.FindSlot(0, 5e9, 0, 0)
	assert.Equal(t, 0, slot)
	assert.Equal(t, int64(0), start)
	assert.Equal(t, int64(5e9), stop)
}

func TestFindSlotBetweenEntries(t *testing.T) {
	t.Parallel()
	e := New(res3(), make([]*task.Copy, 2), estimator.NewLinear(), nil)
	e.TasksByResource[0] = []*schedule.Entry{
		{TimeReady: 0, TimeFinish: 10e9},
		{TimeReady: 30e9, TimeFinish: 40e9},
	}
	// gap between 10 and 30 is 20s, fits a 15s job
	slot, start, stop := e.FindSlot(0, 15e9, 0, 0)
	assert.Equal(t, 1, slot)
	assert.Equal(t, int64(10e9), start)
	assert.Equal(t, int64(25e9), stop)
}

func TestFindSlotPastEnd(t *testing.T) {
	t.Parallel()
	e := New(res3(), make([]*task.Copy, 2), estimator.NewLinear(), nil)
	e.TasksByResource[0] = []*schedule.Entry{
		{TimeReady: 0, TimeFinish: 10e9},
	}
	slot, start, stop := e.FindSlot(0, 100e9, 0, 0)
	assert.Equal(t, 1, slot)
	assert.Equal(t, int64(10e9), start)
	assert.Equal(t, int64(110e9), stop)
}

func TestAddEntryDependencyPropagation(t *testing.T) {
	t.Parallel()
	table := estimator.Table{"R0": {TComp: 40}}
	t1 := &task.Task{ID: 1, Name: "T1", Checkpoints: 10, CompatibleResources: []int{0}, Successors: []task.ID{2}, Attributes: map[string]interface{}{estimator.AttributesKey: table}}
	t2 := &task.Task{ID: 2, Name: "T2", Checkpoints: 10, CompatibleResources: []int{0}, Predecessors: []task.ID{1}, Attributes: map[string]interface{}{estimator.AttributesKey: table}}
	c1, c2 := t1.Copy(), t2.Copy()

	e := New(res3(), make([]*task.Copy, 2), estimator.NewLinear(), []*task.Copy{c1, c2})
	assert.True(t, e.TaskDepSatisfied(1))
	assert.False(t, e.TaskDepSatisfied(2))

	e.AddEntry(&schedule.Entry{TaskID: 1, TaskCopy: c1, StartProgress: 0, StopProgress: 10}, 0, -1)
	require.True(t, e.TaskLastPartMapped(1))
	assert.True(t, e.TaskDepSatisfied(2))
	assert.Equal(t, int64(40e9), e.TaskReadyTime(2))
}
