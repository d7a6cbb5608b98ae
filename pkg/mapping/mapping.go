// Package mapping implements the mapping-algorithm family of spec §4.6: a
// set of pluggable policies that each turn a task set plus a running-task
// snapshot into a populated schedule.Schedule, built on the shared
// scheduleext.Ext bookkeeping.
package mapping

import (
	"sync/atomic"

	"github.com/aw32/hetsched/pkg/estimator"
	"github.com/aw32/hetsched/pkg/resource"
	"github.com/aw32/hetsched/pkg/schedule"
	"github.com/aw32/hetsched/pkg/scheduleext"
	"github.com/aw32/hetsched/pkg/task"
)

// Algorithm is the shared contract every mapper satisfies (spec §4.6): given
// a task set and a running-task snapshot, produce a populated Schedule, or
// nil if interrupt fires before completion.
type Algorithm interface {
	Compute(tasks []*task.Copy, running []*task.Copy, interrupt *atomic.Bool, progressUpdated bool) *schedule.Schedule
}

// base carries the constructor-injected dependencies every algorithm needs
// (spec §9 "Global singletons" — no package-level Config/Logger).
type base struct {
	resources []*resource.Resource
	estimator estimator.Estimator
}

func newBase(resources []*resource.Resource, est estimator.Estimator) base {
	return base{resources: resources, estimator: est}
}

func interrupted(flag *atomic.Bool) bool {
	return flag != nil && flag.Load()
}

// fullDuration returns the one-part execution time of t on res, from its
// current progress to completion.
func fullDuration(est estimator.Estimator, t *task.Copy, res *resource.Resource) (init, compute, fini float64) {
	return est.TimeInit(t, res), est.TimeCompute(t, res, t.Progress, t.Checkpoints), est.TimeFini(t, res)
}

func nanos(seconds float64) int64 {
	return int64(seconds * 1e9)
}

// buildExt constructs the ScheduleExt every mapper assigns into.
func (b base) buildExt(running []*task.Copy, tasks []*task.Copy) *scheduleext.Ext {
	return scheduleext.New(b.resources, running, b.estimator, tasks)
}

// placeWholeTask adds t as a single entry covering [t.Progress,
// t.Checkpoints) on resource r, the shape every non-migrating algorithm
// uses.
func placeWholeTask(ext *scheduleext.Ext, t *task.Copy, r int) {
	entry := &schedule.Entry{
		TaskID:        t.ID,
		TaskCopy:      t,
		StartProgress: t.Progress,
		StopProgress:  t.Checkpoints,
	}
	ext.AddEntry(entry, r, -1)
}

// remainingTasks filters out tasks whose final part has already been
// mapped.
func remainingTasks(ext *scheduleext.Ext, tasks []*task.Copy) []*task.Copy {
	out := make([]*task.Copy, 0, len(tasks))
	for _, t := range tasks {
		if !ext.TaskLastPartMapped(t.ID) {
			out = append(out, t)
		}
	}
	return out
}
