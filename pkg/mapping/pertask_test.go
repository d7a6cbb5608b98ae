package mapping

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aw32/hetsched/pkg/task"
)

func TestMCTPicksEarliestCompletion(t *testing.T) {
	est := &fakeEstimator{costs: map[string]map[string][3]float64{
		"T1": {"R0": {1, 10, 1}, "R1": {1, 5, 1}},
	}}
	t1 := newTask(1, "T1", 10, []int{0, 1})
	alg := NewMCT(twoResources(), est)
	sched := alg.Compute([]*task.Copy{t1}, make([]*task.Copy, 2), noInterrupt(), false)
	require.NotNil(t, sched)
	require.Len(t, sched.TasksByResource[1], 1)
	assert.Equal(t, int64(7e9), sched.TasksByResource[1][0].TimeFinish)
}

func TestMETPicksFastestResourceRegardlessOfLoad(t *testing.T) {
	est := &fakeEstimator{costs: map[string]map[string][3]float64{
		"T1": {"R0": {0, 1, 0}, "R1": {0, 100, 0}},
		"T2": {"R0": {0, 1, 0}, "R1": {0, 100, 0}},
	}}
	t1 := newTask(1, "T1", 1, []int{0, 1})
	t2 := newTask(2, "T2", 1, []int{0, 1})
	alg := NewMET(twoResources(), est)
	sched := alg.Compute([]*task.Copy{t1, t2}, make([]*task.Copy, 2), noInterrupt(), false)
	require.NotNil(t, sched)
	assert.Len(t, sched.TasksByResource[0], 2)
	assert.Len(t, sched.TasksByResource[1], 0)
}

func TestOLBBalancesLoad(t *testing.T) {
	est := &fakeEstimator{costs: map[string]map[string][3]float64{
		"T1": {"R0": {0, 10, 0}, "R1": {0, 10, 0}},
		"T2": {"R0": {0, 10, 0}, "R1": {0, 10, 0}},
	}}
	t1 := newTask(1, "T1", 1, []int{0, 1})
	t2 := newTask(2, "T2", 1, []int{0, 1})
	alg := NewOLB(twoResources(), est)
	sched := alg.Compute([]*task.Copy{t1, t2}, make([]*task.Copy, 2), noInterrupt(), false)
	require.NotNil(t, sched)
	assert.Len(t, sched.TasksByResource[0], 1)
	assert.Len(t, sched.TasksByResource[1], 1)
}

func TestKPBRestrictsToTopPercentile(t *testing.T) {
	est := &fakeEstimator{costs: map[string]map[string][3]float64{
		"T1": {"R0": {0, 1, 0}, "R1": {0, 5, 0}},
	}}
	t1 := newTask(1, "T1", 1, []int{0, 1})
	// 50% of 2 resources rounds up to 1: only R0 (fastest) is considered.
	alg := NewKPB(twoResources(), est, 50)
	sched := alg.Compute([]*task.Copy{t1}, make([]*task.Copy, 2), noInterrupt(), false)
	require.NotNil(t, sched)
	assert.Len(t, sched.TasksByResource[0], 1)
	assert.Len(t, sched.TasksByResource[1], 0)
}
