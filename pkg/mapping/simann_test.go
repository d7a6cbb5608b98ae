package mapping

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aw32/hetsched/pkg/task"
)

func TestSimulatedAnnealingProducesAFullSchedule(t *testing.T) {
	est := &fakeEstimator{costs: map[string]map[string][3]float64{
		"T1": {"R0": {0, 4, 0}, "R1": {0, 6, 0}},
		"T2": {"R0": {0, 4, 0}, "R1": {0, 6, 0}},
	}}
	t1 := newTask(1, "T1", 1, []int{0, 1})
	t2 := newTask(2, "T2", 1, []int{0, 1}, 1)
	t1.Successors = []task.ID{2}
	alg := NewSimulatedAnnealing(twoResources(), est, 11, 0.9, 1.0, 0.8, 0.01)
	sched := alg.Compute([]*task.Copy{t1, t2}, make([]*task.Copy, 2), noInterrupt(), false)
	require.NotNil(t, sched)
	total := len(sched.TasksByResource[0]) + len(sched.TasksByResource[1])
	assert.Equal(t, 2, total)
}

func TestSimulatedAnnealingEmptyTaskSet(t *testing.T) {
	est := &fakeEstimator{}
	alg := NewSimulatedAnnealing(twoResources(), est, 1, 0.9, 1.0, 0.8, 0.01)
	sched := alg.Compute(nil, make([]*task.Copy, 2), noInterrupt(), false)
	require.NotNil(t, sched)
	assert.Equal(t, int64(0), sched.Makespan)
}
