package estimator

import (
	"github.com/aw32/hetsched/pkg/resource"
	"github.com/aw32/hetsched/pkg/task"
)

// Sample is one (task, resource) row of measurement data, as averaged from
// the "ms_<name>(<size>)@<resource>_{time|energy}.csv" files the
// taskloaderms config loads (spec §6). Column order matches the CSV header:
// "ETotal; TTotal; ETask; TTask; TInit; TComp; TFini".
type Sample struct {
	ETotal float64
	TTotal float64
	ETask  float64 // dynamic energy for the full compute span
	TTask  float64
	TInit  float64
	TComp  float64 // full compute time (all checkpoints)
	TFini  float64
}

// AttributesKey is the Task.Attributes key the Linear estimator reads its
// per-resource Sample table from.
const AttributesKey = "msresults"

// Table maps a resource name to its Sample for one task.
type Table map[string]Sample

// Linear is the reference estimator: it assumes execution cost is linear in
// checkpoint span (spec §4.1). It draws its base numbers from
// task.Attributes["msresults"], a Table keyed by resource name; missing data
// (no table, or no entry for the resource) and a resource outside the task's
// compatibility set yield 0 from every query.
type Linear struct{}

// NewLinear returns a ready-to-use Linear estimator. It carries no state:
// all data lives on the tasks themselves.
func NewLinear() *Linear {
	return &Linear{}
}

func (l *Linear) sample(t *task.Copy, r *resource.Resource) (Sample, bool) {
	if !t.ValidResource(r.ID) {
		return Sample{}, false
	}
	raw, ok := t.Attributes[AttributesKey]
	if !ok {
		return Sample{}, false
	}
	table, ok := raw.(Table)
	if !ok {
		return Sample{}, false
	}
	s, ok := table[r.Name]
	return s, ok
}

// TimeInit implements Estimator.
func (l *Linear) TimeInit(t *task.Copy, r *resource.Resource) float64 {
	s, ok := l.sample(t, r)
	if !ok {
		return 0
	}
	return s.TInit
}

// TimeCompute implements Estimator.
func (l *Linear) TimeCompute(t *task.Copy, r *resource.Resource, startCP, stopCP int) float64 {
	s, ok := l.sample(t, r)
	if !ok || t.Checkpoints <= 0 {
		return 0
	}
	return (s.TComp / float64(t.Checkpoints)) * float64(stopCP-startCP)
}

// TimeFini implements Estimator.
func (l *Linear) TimeFini(t *task.Copy, r *resource.Resource) float64 {
	s, ok := l.sample(t, r)
	if !ok {
		return 0
	}
	return s.TFini
}

// TimeComputeCheckpoint implements Estimator.
func (l *Linear) TimeComputeCheckpoint(t *task.Copy, r *resource.Resource, startCP int, budgetSeconds float64) int {
	if budgetSeconds <= 0 {
		return 0
	}
	s, ok := l.sample(t, r)
	if !ok || t.Checkpoints <= 0 {
		return 0
	}
	perCheckpoint := s.TComp / float64(t.Checkpoints)
	if perCheckpoint <= 0 {
		return t.Checkpoints - startCP
	}
	return int(budgetSeconds / perCheckpoint)
}

// EnergyInit implements Estimator. The reference model charges no dynamic
// energy for init, matching the original linear estimator.
func (l *Linear) EnergyInit(t *task.Copy, r *resource.Resource) float64 {
	return 0
}

// EnergyCompute implements Estimator.
func (l *Linear) EnergyCompute(t *task.Copy, r *resource.Resource, startCP, stopCP int) float64 {
	s, ok := l.sample(t, r)
	if !ok || t.Checkpoints <= 0 {
		return 0
	}
	return (s.ETask / float64(t.Checkpoints)) * float64(stopCP-startCP)
}

// EnergyFini implements Estimator. No dynamic energy is charged for fini.
func (l *Linear) EnergyFini(t *task.Copy, r *resource.Resource) float64 {
	return 0
}

// EnergyComputeCheckpoint implements Estimator.
func (l *Linear) EnergyComputeCheckpoint(t *task.Copy, r *resource.Resource, startCP int, energyBudget float64) int {
	if energyBudget <= 0 {
		return 0
	}
	s, ok := l.sample(t, r)
	if !ok || t.Checkpoints <= 0 {
		return 0
	}
	perCheckpoint := s.ETask / float64(t.Checkpoints)
	if perCheckpoint <= 0 {
		return t.Checkpoints - startCP
	}
	return int(energyBudget / perCheckpoint)
}

// ResourceIdlePower implements Estimator.
func (l *Linear) ResourceIdlePower(r *resource.Resource) float64 {
	return r.IdlePower
}

// ResourceIdleEnergy implements Estimator.
func (l *Linear) ResourceIdleEnergy(r *resource.Resource, seconds float64) float64 {
	return r.IdleEnergy(seconds)
}
