package mapping

import (
	"sync/atomic"

	"github.com/aw32/hetsched/pkg/resource"
	"github.com/aw32/hetsched/pkg/task"
)

// fakeEstimator pins exact {init, compute_full, fini} costs per (task name,
// resource name) triple, the same literal-value style the schedule package's
// own scenario tests use.
type fakeEstimator struct {
	costs map[string]map[string][3]float64
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
func (f *fakeEstimator) EnergyInit(t *task.Copy, r *resource.Resource) float64 { return 0 }
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

func twoResources() []*resource.Resource {
	return []*resource.Resource{
		{ID: 0, Name: "R0", IdlePower: 1.0},
		{ID: 1, Name: "R1", IdlePower: 1.0},
	}
}

func noInterrupt() *atomic.Bool { return &atomic.Bool{} }

func newTask(id task.ID, name string, checkpoints int, compat []int, preds ...task.ID) *task.Copy {
	return (&task.Task{ID: id, Name: name, Checkpoints: checkpoints, CompatibleResources: compat, Predecessors: preds}).Copy()
}
