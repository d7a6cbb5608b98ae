package schedule

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aw32/hetsched/pkg/resource"
	"github.com/aw32/hetsched/pkg/task"
)

// fakeEstimator lets tests pin exact {init, compute_full, fini} costs per
// (task name, resource name) triple, the same literal-value style spec §8's
// end-to-end scenarios (S1..S6) use.
type fakeEstimator struct {
	costs map[string]map[string][3]float64 // task name -> resource name -> {init, compute_full, fini}
}

func (f *fakeEstimator) lookup(t *task.Copy, r *resource.Resource) ([3]float64, bool) {
	byRes, ok := f.costs[t.Name]
	if !ok {
		return [3]float64{}, false
	}
	c, ok := byRes[r.Name]
	return c, ok
}

func (f *fakeEstimator) TimeInit(t *task.Copy, r *resource.Resource) float64 {
	c, _ := f.lookup(t, r)
	return c[0]
}
func (f *fakeEstimator) TimeCompute(t *task.Copy, r *resource.Resource, start, stop int) float64 {
	c, ok := f.lookup(t, r)
	if !ok || t.Checkpoints == 0 {
		return 0
	}
	return (c[1] / float64(t.Checkpoints)) * float64(stop-start)
}
func (f *fakeEstimator) TimeFini(t *task.Copy, r *resource.Resource) float64 {
	c, _ := f.lookup(t, r)
	return c[2]
}
func (f *fakeEstimator) TimeComputeCheckpoint(t *task.Copy, r *resource.Resource, start int, budget float64) int {
	c, ok := f.lookup(t, r)
	if !ok || budget <= 0 || c[1] <= 0 {
		return 0
	}
	per := c[1] / float64(t.Checkpoints)
	return int(budget / per)
}
func (f *fakeEstimator) EnergyInit(t *task.Copy, r *resource.Resource) float64    { return 0 }
func (f *fakeEstimator) EnergyCompute(t *task.Copy, r *resource.Resource, start, stop int) float64 {
	return 0
}
func (f *fakeEstimator) EnergyFini(t *task.Copy, r *resource.Resource) float64 { return 0 }
func (f *fakeEstimator) EnergyComputeCheckpoint(t *task.Copy, r *resource.Resource, start int, budget float64) int {
	return 0
}
func (f *fakeEstimator) ResourceIdlePower(r *resource.Resource) float64 { return r.IdlePower }
func (f *fakeEstimator) ResourceIdleEnergy(r *resource.Resource, seconds float64) float64 {
	return r.IdleEnergy(seconds)
}

func resources3() []*resource.Resource {
	return []*resource.Resource{
		{ID: 0, Name: "R0", IdlePower: 1.0},
		{ID: 1, Name: "R1", IdlePower: 1.0},
		{ID: 2, Name: "R2", IdlePower: 1.0},
	}
}

// TestComputeTimesS1 implements spec §8 scenario S1: single task, MET pick.
func TestComputeTimesS1(t *testing.T) {
	est := &fakeEstimator{costs: map[string]map[string][3]float64{
		"T1": {
			"R0": {1, 10, 1},
			"R1": {1, 5, 1},
			"R2": {1, 20, 1},
		},
	}}
	t1 := (&task.Task{ID: 1, Name: "T1", Checkpoints: 10, CompatibleResources: []int{0, 1, 2}}).Copy()
	res := resources3()
	sched := New(res, make([]*task.Copy, 3), est)
	entry := &Entry{TaskID: 1, TaskCopy: t1, StartProgress: 0, StopProgress: 10}
	sched.AppendEntry(1, entry)

	require.NoError(t, sched.ComputeTimes())
	assert.Equal(t, int64(0), entry.TimeReady)
	assert.Equal(t, int64(7e9), entry.TimeFinish)
	assert.Equal(t, int64(7e9), sched.Makespan)
}

// TestComputeTimesS2 implements spec §8 scenario S2: dependency chain.
func TestComputeTimesS2(t *testing.T) {
	est := &fakeEstimator{costs: map[string]map[string][3]float64{
		"T1": {"R0": {0, 4, 0}},
		"T2": {"R0": {0, 4, 0}},
	}}
	t1 := (&task.Task{ID: 1, Name: "T1", Checkpoints: 10, CompatibleResources: []int{0}, Successors: []task.ID{2}}).Copy()
	t2 := (&task.Task{ID: 2, Name: "T2", Checkpoints: 10, CompatibleResources: []int{0}, Predecessors: []task.ID{1}}).Copy()
	res := resources3()
	sched := New(res, make([]*task.Copy, 3), est)
	e1 := &Entry{TaskID: 1, TaskCopy: t1, StartProgress: 0, StopProgress: 10}
	e2 := &Entry{TaskID: 2, TaskCopy: t2, StartProgress: 0, StopProgress: 10}
	sched.AppendEntry(0, e1)
	sched.AppendEntry(0, e2)

	require.NoError(t, sched.ComputeTimes())
	assert.Equal(t, int64(0), e1.TimeReady)
	assert.Equal(t, int64(4e9), e1.TimeFinish)
	assert.Equal(t, int64(4e9), e2.TimeReady)
	assert.Equal(t, int64(8e9), e2.TimeFinish)
	assert.Equal(t, int64(8e9), sched.Makespan)
}

func TestComputeTimesIdempotent(t *testing.T) {
	est := &fakeEstimator{costs: map[string]map[string][3]float64{
		"T1": {"R0": {1, 10, 1}},
	}}
	t1 := (&task.Task{ID: 1, Name: "T1", Checkpoints: 10, CompatibleResources: []int{0}}).Copy()
	res := resources3()
	sched := New(res, make([]*task.Copy, 3), est)
	entry := &Entry{TaskID: 1, TaskCopy: t1, StartProgress: 0, StopProgress: 10}
	sched.AppendEntry(0, entry)

	require.NoError(t, sched.ComputeTimes())
	first := *entry
	require.NoError(t, sched.ComputeTimes())
	assert.Equal(t, first.TimeReady, entry.TimeReady)
	assert.Equal(t, first.TimeFinish, entry.TimeFinish)
}

func TestComputeTimesMultiPartOrdering(t *testing.T) {
	est := &fakeEstimator{costs: map[string]map[string][3]float64{
		"T1": {"R0": {0, 10, 0}, "R1": {0, 10, 0}},
	}}
	t1 := (&task.Task{ID: 1, Name: "T1", Checkpoints: 10, CompatibleResources: []int{0, 1}}).Copy()
	res := resources3()
	sched := New(res, make([]*task.Copy, 3), est)
	partA := &Entry{TaskID: 1, TaskCopy: t1, StartProgress: 0, StopProgress: 5}
	partB := &Entry{TaskID: 1, TaskCopy: t1, StartProgress: 5, StopProgress: 10}
	sched.AppendEntry(0, partA)
	sched.AppendEntry(1, partB)

	require.NoError(t, sched.ComputeTimes())
	assert.Equal(t, 0, partA.PartNumber)
	assert.Equal(t, 1, partB.PartNumber)
	assert.GreaterOrEqual(t, partB.TimeReady, partA.TimeFinish)
}
