package mapping

import (
	"math"
	"sync/atomic"

	"github.com/aw32/hetsched/pkg/estimator"
	"github.com/aw32/hetsched/pkg/resource"
	"github.com/aw32/hetsched/pkg/schedule"
	"github.com/aw32/hetsched/pkg/scheduleext"
	"github.com/aw32/hetsched/pkg/task"
)

// reMinMin is the energy-minimizing greedy of spec §4.6.5: like Min-Min, but
// each step picks the (task, resource) pair minimizing the *projected*
// total energy (static energy over the makespan including this task, plus
// dynamic energy accrued so far, plus this task's own dynamic energy)
// rather than completion time.
type reMinMin struct {
	base
	migration bool
}

// NewReMinMin returns the plain ReMinMin mapper.
func NewReMinMin(resources []*resource.Resource, est estimator.Estimator) Algorithm {
	return &reMinMin{base: newBase(resources, est)}
}

// NewReMinMinMig returns ReMinMin with two-part migration candidates scored
// by projected total energy instead of finish time (spec §4.6.5's
// migration variant, scored per the §4.6.4 enumeration shape).
func NewReMinMinMig(resources []*resource.Resource, est estimator.Estimator) Algorithm {
	return &reMinMin{base: newBase(resources, est), migration: true}
}

func (r *reMinMin) projectedStaticEnergy(makespan int64) float64 {
	var total float64
	seconds := float64(makespan) / 1e9
	for _, res := range r.resources {
		total += res.IdleEnergy(seconds)
	}
	return total
}

func (r *reMinMin) taskEnergy(t *task.Copy, res *resource.Resource) float64 {
	return r.estimator.EnergyInit(t, res) + r.estimator.EnergyCompute(t, res, t.Progress, t.Checkpoints) + r.estimator.EnergyFini(t, res)
}

// Compute implements Algorithm.
func (r *reMinMin) Compute(tasks []*task.Copy, running []*task.Copy, interrupt *atomic.Bool, progressUpdated bool) *schedule.Schedule {
	ext := r.buildExt(running, tasks)
	var dynamicSoFar float64
	var makespan int64

	for {
		if interrupted(interrupt) {
			return nil
		}
		ready := readyUnmappedTasks(ext, tasks)
		if len(ready) == 0 {
			break
		}

		bestTask, bestRes, bestCompletion, bestEnergy, bestTotal, found := r.pickStep(ext, ready, dynamicSoFar, makespan)
		if !found {
			break
		}
		if r.migration {
			if cand := r.evaluateEnergyMigration(ext, bestTask, dynamicSoFar, makespan); cand != nil && cand.total < bestTotal {
				r.commitEnergyMigration(ext, bestTask, cand)
				dynamicSoFar += cand.energy
				if cand.completion > makespan {
					makespan = cand.completion
				}
				continue
			}
		}
		placeWholeTask(ext, bestTask, bestRes)
		dynamicSoFar += bestEnergy
		if bestCompletion > makespan {
			makespan = bestCompletion
		}
	}

	if err := ext.Schedule.ComputeTimes(); err != nil {
		return ext.Schedule
	}
	return ext.Schedule
}

func (r *reMinMin) pickStep(ext *scheduleext.Ext, ready []*task.Copy, dynamicSoFar float64, makespan int64) (t *task.Copy, res int, completion int64, energy float64, total float64, found bool) {
	best := math.Inf(1)
	for _, candTask := range ready {
		for _, rid := range candTask.CompatibleResources {
			r2 := r.resources[rid]
			init, compute, fini := fullDuration(r.estimator, candTask, r2)
			exec := nanos(init + compute + fini)
			readyTime := maxI64(ext.ResourceReadyTime(rid), ext.TaskReadyTimeResource(candTask.ID, rid))
			candCompletion := readyTime + exec
			projMakespan := maxI64(makespan, candCompletion)
			candEnergy := r.taskEnergy(candTask, r2)
			candTotal := r.projectedStaticEnergy(projMakespan) + dynamicSoFar + candEnergy
			if candTotal < best {
				best = candTotal
				t, res, completion, energy, total, found = candTask, rid, candCompletion, candEnergy, candTotal, true
			}
		}
	}
	return
}

// energyMigrationCandidate is a two-part split of one task across two
// resources, scored by projected total energy instead of finish time.
type energyMigrationCandidate struct {
	resA, resB   int
	slotA, slotB int
	splitAt      int
	completion   int64
	energy       float64
	total        float64
}

// evaluateEnergyMigration mirrors heft.evaluateMigration's slot search but
// scores candidates by projected total energy (spec §4.6.5's migration
// variant).
func (r *reMinMin) evaluateEnergyMigration(ext *scheduleext.Ext, t *task.Copy, dynamicSoFar float64, makespan int64) *energyMigrationCandidate {
	var best *energyMigrationCandidate
	for _, ra := range t.CompatibleResources {
		for _, rb := range t.CompatibleResources {
			if ra == rb {
				continue
			}
			cand := r.oneEnergyMigration(ext, t, ra, rb, dynamicSoFar, makespan)
			if cand == nil {
				continue
			}
			if best == nil || cand.total < best.total {
				best = cand
			}
		}
	}
	return best
}

func (r *reMinMin) oneEnergyMigration(ext *scheduleext.Ext, t *task.Copy, ra, rb int, dynamicSoFar float64, makespan int64) *energyMigrationCandidate {
	resA, resB := r.resources[ra], r.resources[rb]
	initA := nanos(r.estimator.TimeInit(t, resA))
	finiA := nanos(r.estimator.TimeFini(t, resA))
	initB := nanos(r.estimator.TimeInit(t, resB))
	finiB := nanos(r.estimator.TimeFini(t, resB))

	startA := ext.TaskReadyTimeResource(t.ID, ra)
	_, gapStart, gapStop := ext.FindSlot(ra, initA+finiA+1, startA, 0)
	startA = gapStart
	available := gapStop - startA - initA - finiA
	if available <= 0 {
		return nil
	}
	pointsA := r.estimator.TimeComputeCheckpoint(t, resA, t.Progress, float64(available)/1e9)
	remaining := t.Checkpoints - t.Progress
	if pointsA <= 0 || pointsA >= remaining {
		return nil
	}
	splitAt := t.Progress + pointsA
	computeA := nanos(r.estimator.TimeCompute(t, resA, t.Progress, splitAt))
	finishA := startA + initA + computeA + finiA

	startB := finishA
	if startA > startB {
		startB = startA
	}
	computeB := nanos(r.estimator.TimeCompute(t, resB, splitAt, t.Checkpoints))
	durationB := initB + computeB + finiB
	slotB, gapStartB, _ := ext.FindSlot(rb, durationB, startB, 0)
	finishB := gapStartB + durationB

	energyA := r.estimator.EnergyInit(t, resA) + r.estimator.EnergyCompute(t, resA, t.Progress, splitAt) + r.estimator.EnergyFini(t, resA)
	energyB := r.estimator.EnergyInit(t, resB) + r.estimator.EnergyCompute(t, resB, splitAt, t.Checkpoints) + r.estimator.EnergyFini(t, resB)
	energy := energyA + energyB

	projMakespan := maxI64(makespan, finishB)
	total := r.projectedStaticEnergy(projMakespan) + dynamicSoFar + energy

	return &energyMigrationCandidate{
		resA: ra, resB: rb,
		slotA: 0, slotB: slotB,
		splitAt:    splitAt,
		completion: finishB,
		energy:     energy,
		total:      total,
	}
}

func (r *reMinMin) commitEnergyMigration(ext *scheduleext.Ext, t *task.Copy, c *energyMigrationCandidate) {
	partA := &schedule.Entry{TaskID: t.ID, TaskCopy: t, StartProgress: t.Progress, StopProgress: c.splitAt}
	ext.AddEntry(partA, c.resA, -1)
	partB := &schedule.Entry{TaskID: t.ID, TaskCopy: t, StartProgress: c.splitAt, StopProgress: t.Checkpoints}
	ext.AddEntry(partB, c.resB, c.slotB)
}

func readyUnmappedTasks(ext *scheduleext.Ext, tasks []*task.Copy) []*task.Copy {
	out := make([]*task.Copy, 0, len(tasks))
	for _, t := range tasks {
		if ext.TaskLastPartMapped(t.ID) {
			continue
		}
		if !ext.TaskDepSatisfied(t.ID) {
			continue
		}
		out = append(out, t)
	}
	return out
}
