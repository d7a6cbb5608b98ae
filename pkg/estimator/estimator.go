// Package estimator defines the pure, deterministic per-(task,resource)
// time/energy cost model every mapping algorithm consults (spec §4.1).
package estimator

import (
	"github.com/aw32/hetsched/pkg/resource"
	"github.com/aw32/hetsched/pkg/task"
)

// Estimator is the cost-estimation abstraction every mapper is built on. All
// methods are pure and deterministic. Per spec §4.1's "contract on
// incompatibility", implementations return 0 from time/energy queries when
// the resource is not in the task's compatibility set; callers must still
// guard with task.ValidResource before relying on a non-zero result meaning
// anything.
type Estimator interface {
	// TimeInit returns the task's startup time on res, in seconds.
	TimeInit(t *task.Copy, r *resource.Resource) float64
	// TimeCompute returns the compute time for the checkpoint span
	// [startCP, stopCP), assumed linear in checkpoint count.
	TimeCompute(t *task.Copy, r *resource.Resource, startCP, stopCP int) float64
	// TimeFini returns the task's teardown time on res, in seconds.
	TimeFini(t *task.Copy, r *resource.Resource) float64
	// TimeComputeCheckpoint returns the largest number of checkpoints whose
	// compute time, starting at startCP, fits within budgetSeconds. Returns 0
	// if budgetSeconds <= 0 or the task/resource pair is incompatible.
	TimeComputeCheckpoint(t *task.Copy, r *resource.Resource, startCP int, budgetSeconds float64) int

	// EnergyInit, EnergyCompute, EnergyFini mirror the Time* family for
	// dynamic (per-task) energy, in joules.
	EnergyInit(t *task.Copy, r *resource.Resource) float64
	EnergyCompute(t *task.Copy, r *resource.Resource, startCP, stopCP int) float64
	EnergyFini(t *task.Copy, r *resource.Resource) float64
	// EnergyComputeCheckpoint is the energy-budget analogue of
	// TimeComputeCheckpoint.
	EnergyComputeCheckpoint(t *task.Copy, r *resource.Resource, startCP int, energyBudget float64) int

	// ResourceIdlePower returns the resource's idle power draw, in watts.
	ResourceIdlePower(r *resource.Resource) float64
	// ResourceIdleEnergy returns the energy consumed idling for the given
	// number of seconds, in joules.
	ResourceIdleEnergy(r *resource.Resource, seconds float64) float64
}
