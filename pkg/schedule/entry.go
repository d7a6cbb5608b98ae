// Package schedule defines Schedule and TaskEntry, the per-resource queue
// data model mapping algorithms build, and ComputeTimes, the time
// propagation algorithm that turns a partial assignment into concrete
// ready/finish times (spec §4.4, "the hardest algorithm in the core").
package schedule

import (
	"github.com/aw32/hetsched/pkg/estimator"
	"github.com/aw32/hetsched/pkg/resource"
	"github.com/aw32/hetsched/pkg/task"
)

// EntryState is the lifecycle state of one TaskEntry.
type EntryState uint8

// Entry lifecycle states.
const (
	EntryTodo EntryState = iota
	EntryDone
	EntryAborted
)

// Entry is one contiguous part of one task, pinned to one resource (spec §3
// "TaskEntry"). StartProgress/StopProgress delimit the checkpoint range this
// part covers; a task with more than one Entry is a migrated task.
type Entry struct {
	TaskID   task.ID
	TaskCopy *task.Copy
	State    EntryState

	StartProgress int
	StopProgress  int
	PartNumber    int

	// TimeReady/TimeFinish are nanoseconds relative to the schedule's start.
	TimeReady  int64
	TimeFinish int64

	DurInit    int64
	DurCompute int64
	DurFini    int64
	DurTotal   int64
	DurBreak   int64

	Energy float64
}

// nanos converts seconds (as returned by Estimator) to nanoseconds, rounding
// toward zero. Negative durations never occur for a well-formed Estimator.
func nanos(seconds float64) int64 {
	return int64(seconds * 1e9)
}

// ComputeExecutionTime fills in e's duration/energy fields by consulting
// est, per spec §4.4.1. slotHint is the entry's position in its resource's
// queue at the time it was inserted; slotHint == 0 means it is the next
// thing to run on that resource, so if the task is already running there,
// its init cost (time and energy) is not re-paid. ScheduleExt.AddEntry and
// ComputeTimes both use this to keep execution-time computation in one
// place.
func ComputeExecutionTime(e *Entry, res *resource.Resource, est estimator.Estimator, running []*task.Copy, resID int, slotHint int) {
	continuing := slotHint == 0 && resID < len(running) && running[resID] != nil && running[resID].ID == e.TaskCopy.ID

	var durInit, energyInit float64
	if !continuing {
		durInit = est.TimeInit(e.TaskCopy, res)
		energyInit = est.EnergyInit(e.TaskCopy, res)
	}
	durCompute := est.TimeCompute(e.TaskCopy, res, e.StartProgress, e.StopProgress)
	durFini := est.TimeFini(e.TaskCopy, res)
	energyCompute := est.EnergyCompute(e.TaskCopy, res, e.StartProgress, e.StopProgress)
	energyFini := est.EnergyFini(e.TaskCopy, res)

	e.DurInit = nanos(durInit)
	e.DurCompute = nanos(durCompute)
	e.DurFini = nanos(durFini)
	e.DurTotal = e.DurInit + e.DurCompute + e.DurFini
	e.Energy = energyInit + energyCompute + energyFini
}
